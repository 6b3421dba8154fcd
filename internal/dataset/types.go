package dataset

import (
	"encoding/json"
	"strings"
)

// AnnotationStatus of a sample: no annotation file, a partial one, or a
// complete one.
const (
	StatusPending    = "pending"
	StatusIncomplete = "incomplete"
	StatusCompleted  = "completed"
)

// RatingFields are the six per-sample quality scores an annotator fills in.
var RatingFields = []string{"overall", "camera", "subject", "motion", "scene", "spatial"}

// Segment is a highlighted caption span. Indices are nil until the annotator
// anchors the segment to the caption text.
type Segment struct {
	StartIndex *int   `json:"startIndex"`
	EndIndex   *int   `json:"endIndex"`
	Text       string `json:"text,omitempty"`
	Label      string `json:"label,omitempty"`
}

// Annotation is one saved annotation file. Ratings map to the six rating
// fields; nil means unscored.
type Annotation struct {
	Overall  *float64  `json:"overall"`
	Camera   *float64  `json:"camera"`
	Subject  *float64  `json:"subject"`
	Motion   *float64  `json:"motion"`
	Scene    *float64  `json:"scene"`
	Spatial  *float64  `json:"spatial"`
	Segments []Segment `json:"segments,omitempty"`
	Notes    string    `json:"notes,omitempty"`
}

// IsComplete reports whether every rating is filled and every segment, if any
// exist, has both character indices.
func (a *Annotation) IsComplete() bool {
	if a == nil {
		return false
	}
	for _, rating := range []*float64{a.Overall, a.Camera, a.Subject, a.Motion, a.Scene, a.Spatial} {
		if rating == nil {
			return false
		}
	}
	for _, segment := range a.Segments {
		if segment.StartIndex == nil || segment.EndIndex == nil {
			return false
		}
	}
	return true
}

// Metadata is the per-video technical info carried by a sample.
type Metadata struct {
	Duration *float64 `json:"duration,omitempty"`
	FPS      *float64 `json:"fps,omitempty"`
}

// Sample is one video with its captions. Caption payload shapes vary by type
// so they stay raw until a consumer needs them.
type Sample struct {
	Video            string                     `json:"video"`
	Captions         map[string]json.RawMessage `json:"captions"`
	Metadata         Metadata                   `json:"metadata"`
	AnnotationStatus string                     `json:"annotation_status,omitempty"`
}

// File is a dataset JSON file: a named split with its samples.
type File struct {
	DatasetName string   `json:"dataset_name"`
	Split       string   `json:"split"`
	Samples     []Sample `json:"samples"`
}

// WordCount totals the caption words of a sample across the known caption
// shapes: a single string, a structured map, temporal segments, or
// per-annotator caption lists.
func (s Sample) WordCount() int {
	var words int
	for captionType, raw := range s.Captions {
		switch captionType {
		case "single":
			var caption string
			if json.Unmarshal(raw, &caption) == nil {
				words += countWords(caption)
			}
		case "structured":
			var sections map[string]string
			if json.Unmarshal(raw, &sections) == nil {
				for _, text := range sections {
					words += countWords(text)
				}
			}
		case "temporal":
			var segments []struct {
				Caption string `json:"caption"`
				Content string `json:"content"`
			}
			if json.Unmarshal(raw, &segments) == nil {
				for _, segment := range segments {
					text := segment.Caption
					if text == "" {
						text = segment.Content
					}
					words += countWords(text)
				}
			}
		case "multiple_annotators":
			var nested [][]string
			if json.Unmarshal(raw, &nested) == nil {
				for _, captions := range nested {
					for _, text := range captions {
						words += countWords(text)
					}
				}
				continue
			}
			var flat []string
			if json.Unmarshal(raw, &flat) == nil {
				for _, text := range flat {
					words += countWords(text)
				}
			}
		}
	}
	return words
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
