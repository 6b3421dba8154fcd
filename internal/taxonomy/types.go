package taxonomy

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Collections are the label trees that make up the taxonomy.
var Collections = []string{"cam_motion", "cam_setup"}

// Primitive is one boolean label in a collection tree, e.g.
// cam_motion.pan.pan_left. DefQuestion and DefPrompt are the first entries of
// the source file's question/prompt lists.
type Primitive struct {
	LabelName     string   `json:"label_name"`
	Label         string   `json:"label"`
	DefQuestion   string   `json:"def_question"`
	DefPrompt     string   `json:"def_prompt"`
	HierarchyPath []string `json:"hierarchy_path"`
	Filename      string   `json:"filename"`
	FullKey       string   `json:"full_key"`
}

// primitiveFile is the on-disk schema of a single label JSON file.
type primitiveFile struct {
	LabelName   string   `json:"label_name"`
	Label       string   `json:"label"`
	DefQuestion []string `json:"def_question"`
	DefPrompt   []string `json:"def_prompt"`
}

var titleCaser = cases.Title(language.English)

// DisplayName returns the human-readable name for the primitive, deriving one
// from the key when the source file has no label_name ("pan_left" → "Pan Left").
func (p Primitive) DisplayName() string {
	if p.LabelName != "" {
		return p.LabelName
	}
	return titleCaser.String(strings.ReplaceAll(p.Filename, "_", " "))
}
