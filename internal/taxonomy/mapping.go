package taxonomy

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/lumivid/camreview/pkg/log"
)

// NameMapping builds {label_name: label} over all primitives. Duplicate
// display names are logged and the lexicographically last key wins, matching
// how the mapping files have historically been produced.
func NameMapping(primitives map[string]Primitive) map[string]string {
	keys := sortedKeys(primitives)

	mapping := make(map[string]string, len(primitives))
	for _, key := range keys {
		primitive := primitives[key]
		name := primitive.DisplayName()
		if existing, ok := mapping[name]; ok {
			log.Warn("Duplicate label name %q: keeping %s, replacing %s", name, key, existing)
		}
		mapping[name] = key
	}
	return mapping
}

// LoadNameMapping reads a previously saved {label_name: label} file.
func LoadNameMapping(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mapping map[string]string
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// SaveNameMapping writes the mapping as indented JSON.
func SaveNameMapping(mapping map[string]string, path string) error {
	raw, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func sortedKeys(primitives map[string]Primitive) []string {
	keys := make([]string, 0, len(primitives))
	for key := range primitives {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
