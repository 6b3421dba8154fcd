package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AspectEntry is a primitive summarized for hierarchical JSON output.
type AspectEntry struct {
	FullKey     string `json:"full_key"`
	LabelName   string `json:"label_name"`
	DefQuestion string `json:"def_question"`
	DefPrompt   string `json:"def_prompt"`
}

// Hierarchy groups primitives as collection → aspect → entries.
// Top-level primitives land under the "root" aspect.
type Hierarchy map[string]map[string][]AspectEntry

// WalkCollection reads every *.json under root/<collection> and keys each
// primitive by its dotted hierarchical path, e.g. "cam_motion.pan.pan_left".
func WalkCollection(root, collection string) (map[string]Primitive, error) {
	collectionPath := filepath.Join(root, collection)
	if _, err := os.Stat(collectionPath); err != nil {
		return nil, fmt.Errorf("label collection %s: %w", collection, err)
	}

	primitives := make(map[string]Primitive)
	err := filepath.WalkDir(collectionPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		rel, err := filepath.Rel(collectionPath, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		dirs := parts[:len(parts)-1]
		filename := strings.TrimSuffix(parts[len(parts)-1], filepath.Ext(parts[len(parts)-1]))

		segments := append([]string{collection}, dirs...)
		segments = append(segments, filename)
		fullKey := strings.Join(segments, ".")

		primitive, err := readPrimitive(path)
		if err != nil {
			return fmt.Errorf("read primitive %s: %w", rel, err)
		}
		primitive.HierarchyPath = append([]string(nil), dirs...)
		primitive.Filename = filename
		primitive.FullKey = fullKey

		primitives[fullKey] = primitive
		return nil
	})
	if err != nil {
		return nil, err
	}
	return primitives, nil
}

// WalkCollections merges the primitives of several collections.
func WalkCollections(root string, collections []string) (map[string]Primitive, error) {
	all := make(map[string]Primitive)
	for _, collection := range collections {
		primitives, err := WalkCollection(root, collection)
		if err != nil {
			return nil, err
		}
		for key, primitive := range primitives {
			all[key] = primitive
		}
	}
	return all, nil
}

// Organize arranges primitives by collection and aspect. The aspect of a key
// is the joined middle segments: "cam_motion.pan.pan_left" → "pan",
// "cam_setup.has_shot_transition" → "root".
func Organize(primitives map[string]Primitive) Hierarchy {
	hierarchy := make(Hierarchy)
	for fullKey, primitive := range primitives {
		parts := strings.Split(fullKey, ".")
		collection := parts[0]

		var aspect string
		switch {
		case len(parts) == 2:
			aspect = "root"
		default:
			aspect = strings.Join(parts[1:len(parts)-1], ".")
		}

		if hierarchy[collection] == nil {
			hierarchy[collection] = make(map[string][]AspectEntry)
		}
		hierarchy[collection][aspect] = append(hierarchy[collection][aspect], AspectEntry{
			FullKey:     fullKey,
			LabelName:   primitive.DisplayName(),
			DefQuestion: primitive.DefQuestion,
			DefPrompt:   primitive.DefPrompt,
		})
	}

	for _, aspects := range hierarchy {
		for _, entries := range aspects {
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].FullKey < entries[j].FullKey
			})
		}
	}
	return hierarchy
}

// SaveHierarchy writes the organized hierarchy as indented JSON.
func SaveHierarchy(hierarchy Hierarchy, path string) error {
	raw, err := json.MarshalIndent(hierarchy, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func readPrimitive(path string) (Primitive, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Primitive{}, err
	}
	var pf primitiveFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return Primitive{}, err
	}
	primitive := Primitive{
		LabelName: pf.LabelName,
		Label:     pf.Label,
	}
	if len(pf.DefQuestion) > 0 {
		primitive.DefQuestion = pf.DefQuestion[0]
	}
	if len(pf.DefPrompt) > 0 {
		primitive.DefPrompt = pf.DefPrompt[0]
	}
	return primitive, nil
}
