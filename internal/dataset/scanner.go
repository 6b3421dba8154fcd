package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lumivid/camreview/pkg/log"
)

// Info summarizes one dataset directory for the viewer landing page.
type Info struct {
	Name           string   `json:"name"`
	JSONFiles      []string `json:"json_files"`
	SampleCount    int      `json:"sample_count"`
	CompletedCount int      `json:"completed_count"`
}

type scannerOptions struct {
	cacheTTL time.Duration
}

type Option func(*scannerOptions)

func WithCacheTTL(ttl time.Duration) Option {
	return func(o *scannerOptions) {
		o.cacheTTL = ttl
	}
}

type scanCache struct {
	version uint64
	scanned time.Time
	infos   []Info
}

// Scanner lists dataset directories under the data root. Listings are cached
// for a short TTL; Invalidate drops the cache after annotation writes.
type Scanner struct {
	dataDir string
	store   *Store

	mu            sync.RWMutex
	cacheTTL      time.Duration
	cache         *scanCache
	configVersion uint64
}

func NewScanner(dataDir string, store *Store, opts ...Option) *Scanner {
	options := scannerOptions{
		cacheTTL: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Scanner{
		dataDir:  dataDir,
		store:    store,
		cacheTTL: options.cacheTTL,
	}
}

func (s *Scanner) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.configVersion++
	s.mu.Unlock()
}

// List returns every dataset directory containing at least one JSON file,
// sorted by name.
func (s *Scanner) List(ctx context.Context) ([]Info, error) {
	s.mu.RLock()
	version := s.configVersion
	cacheTTL := s.cacheTTL
	if s.cache != nil && s.cache.version == version && (cacheTTL <= 0 || time.Since(s.cache.scanned) < cacheTTL) {
		cached := append([]Info(nil), s.cache.infos...)
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	infos := make([]Info, 0)
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		jsonFiles, err := listJSONFiles(filepath.Join(s.dataDir, entry.Name()))
		if err != nil {
			log.Warn("Skipping dataset %s: %v", entry.Name(), err)
			continue
		}
		if len(jsonFiles) == 0 {
			continue
		}

		info := Info{Name: entry.Name(), JSONFiles: jsonFiles}
		if file, err := s.load(entry.Name()); err == nil {
			info.SampleCount = len(file.Samples)
		}
		if s.store != nil {
			annotations, err := s.store.All(entry.Name())
			if err == nil {
				for _, annotation := range annotations {
					if annotation.IsComplete() {
						info.CompletedCount++
					}
				}
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	s.mu.Lock()
	if s.configVersion == version {
		s.cache = &scanCache{version: version, scanned: time.Now(), infos: append([]Info(nil), infos...)}
	}
	s.mu.Unlock()
	return infos, nil
}

// Load reads a dataset's first JSON file and marks every sample with its
// annotation status.
func (s *Scanner) Load(ctx context.Context, name string) (*File, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	file, err := s.load(name)
	if err != nil {
		return nil, err
	}

	for i := range file.Samples {
		file.Samples[i].AnnotationStatus = StatusPending
		if s.store == nil {
			continue
		}
		annotation, err := s.store.Get(name, i)
		if err != nil || annotation == nil {
			continue
		}
		if annotation.IsComplete() {
			file.Samples[i].AnnotationStatus = StatusCompleted
		} else {
			file.Samples[i].AnnotationStatus = StatusIncomplete
		}
	}
	return file, nil
}

func (s *Scanner) load(name string) (*File, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || name == ".." {
		return nil, fmt.Errorf("invalid dataset name: %q", name)
	}
	jsonFiles, err := listJSONFiles(filepath.Join(s.dataDir, name))
	if err != nil {
		return nil, err
	}
	if len(jsonFiles) == 0 {
		return nil, fmt.Errorf("dataset %s has no JSON files", name)
	}

	raw, err := os.ReadFile(filepath.Join(s.dataDir, name, jsonFiles[0]))
	if err != nil {
		return nil, err
	}
	var file File
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", name, err)
	}
	if file.DatasetName == "" {
		file.DatasetName = name
	}
	if file.Split == "" {
		file.Split = "unknown"
	}
	return &file, nil
}

func listJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var ret []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			ret = append(ret, entry.Name())
		}
	}
	sort.Strings(ret)
	return ret, nil
}
