package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Load reads a caption export file. Exports come in two shapes: a JSON array
// of video records, or an object keyed by video id. Keyed exports are
// returned sorted by video id so repeated loads produce stable order.
func Load(path string) ([]VideoRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export file: %w", err)
	}

	var asList []VideoRecord
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList, nil
	}

	var asMap map[string]VideoRecord
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil, fmt.Errorf("parse export file %s: %w", path, err)
	}

	keys := make([]string, 0, len(asMap))
	for key := range asMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ret := make([]VideoRecord, 0, len(asMap))
	for _, key := range keys {
		record := asMap[key]
		if record.VideoID == "" {
			record.VideoID = key
		}
		ret = append(ret, record)
	}
	return ret, nil
}
