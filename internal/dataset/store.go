package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Store persists annotations as annotations/<dataset>/sample_<index>.json.
// Writes go through a temp file and rename so readers never see a torn file.
type Store struct {
	root string
	mu   sync.Mutex
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// GetRaw returns the raw annotation JSON, or nil when none has been saved.
func (s *Store) GetRaw(datasetName string, index int) (json.RawMessage, error) {
	path, err := s.annotationPath(datasetName, index)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Get parses the saved annotation, or nil when none has been saved.
func (s *Store) Get(datasetName string, index int) (*Annotation, error) {
	raw, err := s.GetRaw(datasetName, index)
	if err != nil || raw == nil {
		return nil, err
	}
	var annotation Annotation
	if err := json.Unmarshal(raw, &annotation); err != nil {
		return nil, fmt.Errorf("parse annotation %s/%d: %w", datasetName, index, err)
	}
	return &annotation, nil
}

// Save writes an annotation atomically, validating it is JSON first.
func (s *Store) Save(datasetName string, index int, raw json.RawMessage) error {
	if !json.Valid(raw) {
		return fmt.Errorf("annotation is not valid JSON")
	}
	path, err := s.annotationPath(datasetName, index)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// All loads every saved annotation of a dataset keyed by sample index.
func (s *Store) All(datasetName string) (map[int]*Annotation, error) {
	if err := validName(datasetName); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, datasetName)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return map[int]*Annotation{}, nil
	}
	if err != nil {
		return nil, err
	}

	ret := make(map[int]*Annotation)
	for _, entry := range entries {
		index, ok := parseSampleFilename(entry.Name())
		if !ok {
			continue
		}
		annotation, err := s.Get(datasetName, index)
		if err != nil || annotation == nil {
			continue
		}
		ret[index] = annotation
	}
	return ret, nil
}

// Indices returns the sample indices with saved annotations, sorted.
func (s *Store) Indices(datasetName string) ([]int, error) {
	annotations, err := s.All(datasetName)
	if err != nil {
		return nil, err
	}
	ret := make([]int, 0, len(annotations))
	for index := range annotations {
		ret = append(ret, index)
	}
	sort.Ints(ret)
	return ret, nil
}

func (s *Store) annotationPath(datasetName string, index int) (string, error) {
	if err := validName(datasetName); err != nil {
		return "", err
	}
	if index < 0 {
		return "", fmt.Errorf("negative sample index: %d", index)
	}
	return filepath.Join(s.root, datasetName, fmt.Sprintf("sample_%d.json", index)), nil
}

func validName(datasetName string) error {
	if datasetName == "" || strings.ContainsAny(datasetName, "/\\") || datasetName == ".." {
		return fmt.Errorf("invalid dataset name: %q", datasetName)
	}
	return nil
}

func parseSampleFilename(name string) (int, bool) {
	if !strings.HasPrefix(name, "sample_") || !strings.HasSuffix(name, ".json") {
		return 0, false
	}
	index, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "sample_"), ".json"))
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}
