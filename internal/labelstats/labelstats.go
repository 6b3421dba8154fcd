package labelstats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/lumivid/camreview/pkg/log"
)

// LabelVideos holds the positive and negative example videos of one label.
type LabelVideos struct {
	Pos []string `json:"pos"`
	Neg []string `json:"neg"`
}

// Stats is the per-label video index loaded from an all_labels.json dump.
type Stats struct {
	Labels map[string]LabelVideos
}

// Count is the frequency record of a single label.
type Count struct {
	Label     string `json:"label"`
	Positives int    `json:"positive_count"`
	Negatives int    `json:"negative_count"`
}

// Load reads an all_labels.json file: {label: {"pos": [...], "neg": [...]}}.
func Load(path string) (*Stats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label index: %w", err)
	}
	var labels map[string]LabelVideos
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, fmt.Errorf("parse label index %s: %w", path, err)
	}
	return &Stats{Labels: labels}, nil
}

// Counts returns the per-label frequency records sorted by label key.
func (s *Stats) Counts() []Count {
	ret := make([]Count, 0, len(s.Labels))
	for label, videos := range s.Labels {
		ret = append(ret, Count{
			Label:     label,
			Positives: len(videos.Pos),
			Negatives: len(videos.Neg),
		})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Label < ret[j].Label })
	return ret
}

// Rare returns the labels with at least one but fewer than threshold positive
// examples, sorted by positive count ascending, then by label key.
func (s *Stats) Rare(threshold int) []Count {
	var ret []Count
	for _, count := range s.Counts() {
		if count.Positives > 0 && count.Positives < threshold {
			ret = append(ret, count)
		}
	}
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].Positives < ret[j].Positives })
	return ret
}

// CollectVideos copies the positive example videos of every rare label into
// outDir/<label>/. Sources that do not exist are logged and skipped. It
// returns the number of labels processed and videos copied.
func (s *Stats) CollectVideos(sourceDir, outDir string, threshold int) (labels, copied int, err error) {
	for _, count := range s.Rare(threshold) {
		labelDir := filepath.Join(outDir, count.Label)
		if err := os.MkdirAll(labelDir, 0o755); err != nil {
			return labels, copied, fmt.Errorf("create label dir: %w", err)
		}
		log.Info("Collecting label %s (%d videos)", count.Label, count.Positives)

		for _, video := range s.Labels[count.Label].Pos {
			// some dumps store paths instead of bare names
			name := filepath.Base(video)
			src := filepath.Join(sourceDir, name)
			if _, statErr := os.Stat(src); statErr != nil {
				log.Warn("Missing video %s for label %s", name, count.Label)
				continue
			}
			if copyErr := copyFile(src, filepath.Join(labelDir, name)); copyErr != nil {
				return labels, copied, fmt.Errorf("copy %s: %w", name, copyErr)
			}
			copied++
		}
		labels++
	}
	return labels, copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
