package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lumivid/camreview/pkg/file"
	"github.com/lumivid/camreview/pkg/log"
)

// BatchRef locates a video inside the batch files it was assigned from.
type BatchRef struct {
	File  string `json:"batch_file"`
	Index int    `json:"batch_index"`
}

// BatchMap maps video URLs to their originating batch file and index.
type BatchMap map[string]BatchRef

// LoadBatchDir builds a BatchMap from every *.json file under dir. Each batch
// file is a JSON array of video URLs. Unreadable files are skipped with a
// warning so one bad batch does not sink the whole mapping.
func LoadBatchDir(dir string) (BatchMap, error) {
	if dir == "" {
		return BatchMap{}, nil
	}
	paths, err := file.FindByExt(dir, ".json")
	if err != nil {
		return nil, fmt.Errorf("scan batch dir: %w", err)
	}
	sort.Strings(paths)
	return LoadBatchFiles(paths)
}

// LoadBatchFiles builds a BatchMap from an explicit list of batch files.
func LoadBatchFiles(paths []string) (BatchMap, error) {
	byURL := make(BatchMap)
	loaded := 0
	for _, path := range paths {
		urls, err := loadURLList(path)
		if err != nil {
			log.Warn("Skipping batch file %s: %v", path, err)
			continue
		}
		name := filepath.Base(path)
		for idx, url := range urls {
			byURL[url] = BatchRef{File: name, Index: idx}
		}
		loaded++
	}
	log.Info("Built batch mapping for %d video URLs across %d batch files", len(byURL), loaded)
	return byURL, nil
}

// Lookup returns the batch placement for a video URL. Unknown URLs map to
// ("unknown", -1) so report rows always have something to show.
func (m BatchMap) Lookup(videoURL string) BatchRef {
	if ref, ok := m[videoURL]; ok {
		return ref
	}
	return BatchRef{File: "unknown", Index: -1}
}

// Len returns the number of mapped video URLs.
func (m BatchMap) Len() int {
	return len(m)
}

func loadURLList(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return nil, fmt.Errorf("parse url list: %w", err)
	}
	return urls, nil
}
