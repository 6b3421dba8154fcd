package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/lumivid/camreview/pkg/log"
)

const (
	// MarkdownFile is the report document inside a run directory.
	MarkdownFile = "report.md"
	// SamplesFile is the JSONL sample dump inside a run directory.
	SamplesFile = "samples.jsonl"

	runStampLayout = "20060102_1504"
)

// Run is one analysis run directory under the report root, named
// <analysis>_<slug>_<YYYYMMDD_HHMM>.
type Run struct {
	Name      string    `json:"name"`
	Analysis  string    `json:"analysis"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`

	dir string
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a free-form label into a directory-safe slug.
func Slugify(s string) string {
	slug := slugUnsafe.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(slug, "-")
}

// NewRun creates a fresh run directory for an analysis.
func NewRun(reportDir, analysis, slug string, now time.Time) (*Run, error) {
	if slug == "" {
		slug = "all"
	}
	name := fmt.Sprintf("%s_%s_%s", analysis, Slugify(slug), now.Format(runStampLayout))
	dir := filepath.Join(reportDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &Run{
		Name:      name,
		Analysis:  analysis,
		Slug:      Slugify(slug),
		CreatedAt: now,
		dir:       dir,
	}, nil
}

// Dir returns the absolute run directory.
func (r *Run) Dir() string {
	return r.dir
}

// WriteMarkdown writes the report document.
func (r *Run) WriteMarkdown(content string) error {
	return os.WriteFile(filepath.Join(r.dir, MarkdownFile), []byte(content), 0o644)
}

// WriteSamples writes one JSON object per line to samples.jsonl.
func (r *Run) WriteSamples(samples []any) error {
	f, err := os.Create(filepath.Join(r.dir, SamplesFile))
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, sample := range samples {
		if err := enc.Encode(sample); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Markdown reads the report document back.
func (r *Run) Markdown() (string, error) {
	raw, err := os.ReadFile(filepath.Join(r.dir, MarkdownFile))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// List scans the report root for run directories, newest first. Directories
// that do not match the run naming convention are skipped.
func List(reportDir string) ([]*Run, error) {
	entries, err := os.ReadDir(reportDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []*Run
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		run, ok := parseRunName(entry.Name())
		if !ok {
			log.Debug("Skipping non-run directory %s", entry.Name())
			continue
		}
		run.dir = filepath.Join(reportDir, entry.Name())
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].Name < runs[j].Name
	})
	return runs, nil
}

// Open resolves a run by directory name under the report root.
func Open(reportDir, name string) (*Run, error) {
	run, ok := parseRunName(name)
	if !ok {
		return nil, fmt.Errorf("not a run directory: %s", name)
	}
	dir := filepath.Join(reportDir, name)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("run not found: %s", name)
	}
	run.dir = dir
	return run, nil
}

func parseRunName(name string) (*Run, bool) {
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return nil, false
	}
	stamp := parts[len(parts)-2] + "_" + parts[len(parts)-1]
	createdAt, err := time.ParseInLocation(runStampLayout, stamp, time.Local)
	if err != nil {
		return nil, false
	}
	return &Run{
		Name:      name,
		Analysis:  parts[0],
		Slug:      strings.Join(parts[1:len(parts)-2], "_"),
		CreatedAt: createdAt,
	}, true
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts a markdown report to an HTML fragment.
func RenderHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
