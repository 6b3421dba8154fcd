package export

import "sort"

// VideoRecord is one video entry in a caption export file.
type VideoRecord struct {
	VideoID  string                  `json:"video_id"`
	VideoURL string                  `json:"video_url"`
	Captions map[string]CaptionEntry `json:"captions"`
}

// CaptionEntry is one caption type's review state for a video.
type CaptionEntry struct {
	Status      string       `json:"status"`
	CaptionData *CaptionData `json:"caption_data,omitempty"`
}

// CaptionData carries the full feedback-and-regenerate workflow state for a
// caption. Text fields may be empty; the rating is nil when the annotator
// never scored the pre-caption.
type CaptionData struct {
	User            string `json:"user"`
	PreCaption      string `json:"pre_caption"`
	InitialFeedback string `json:"initial_feedback"`
	FinalFeedback   string `json:"final_feedback"`
	GPTCaption      string `json:"gpt_caption"`
	FinalCaption    string `json:"final_caption"`
	InitialRating   *int   `json:"initial_caption_rating_score"`
	WorkflowType    string `json:"workflow_type"`
	Timestamp       string `json:"timestamp"`
}

// FlatCaption is a (video, caption type) pair produced by Flatten.
type FlatCaption struct {
	VideoID     string
	VideoURL    string
	CaptionType string
	Entry       CaptionEntry
}

// Flatten expands video records into per-caption rows, skipping entries
// without caption data. Caption types are visited in sorted order so callers
// see a stable row order.
func Flatten(records []VideoRecord) []FlatCaption {
	ret := make([]FlatCaption, 0)
	for _, video := range records {
		captionTypes := make([]string, 0, len(video.Captions))
		for captionType := range video.Captions {
			captionTypes = append(captionTypes, captionType)
		}
		sort.Strings(captionTypes)

		for _, captionType := range captionTypes {
			entry := video.Captions[captionType]
			if entry.CaptionData == nil {
				continue
			}
			ret = append(ret, FlatCaption{
				VideoID:     video.VideoID,
				VideoURL:    video.VideoURL,
				CaptionType: captionType,
				Entry:       entry,
			})
		}
	}
	return ret
}
