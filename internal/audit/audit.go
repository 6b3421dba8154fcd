// Package audit detects annotators bypassing the feedback-and-regenerate
// caption workflow by editing GPT output directly, plus related feedback
// quality checks.
package audit

import (
	"github.com/abadojack/whatlanggo"

	"github.com/lumivid/camreview/internal/export"
)

// EditType classifies what happened between the GPT caption and the final one.
type EditType string

const (
	// EditDirect: the final caption differs from the GPT caption.
	EditDirect EditType = "direct_edit"
	// EditNone: the GPT caption was accepted as-is.
	EditNone EditType = "no_edit"
	// EditPerfectPrecaption: rating 5, no GPT caption was ever generated.
	EditPerfectPrecaption EditType = "perfect_precaption"
	// EditMissingGPT: no GPT caption despite a rating below 5.
	EditMissingGPT EditType = "missing_gpt_caption"
)

// Sample is one audited caption of the target user.
type Sample struct {
	VideoID            string   `json:"video_id"`
	VideoURL           string   `json:"video_url"`
	BatchFile          string   `json:"batch_file"`
	BatchIndex         int      `json:"batch_index"`
	CaptionType        string   `json:"caption_type"`
	Status             string   `json:"status"`
	User               string   `json:"user"`
	Timestamp          string   `json:"timestamp"`
	RatingScore        *int     `json:"initial_caption_rating_score"`
	WorkflowType       string   `json:"workflow_type"`
	PreCaption         string   `json:"pre_caption"`
	InitialFeedback    string   `json:"initial_feedback"`
	FinalFeedback      string   `json:"final_feedback"`
	GPTCaption         string   `json:"gpt_caption"`
	FinalCaption       string   `json:"final_caption"`
	EditType           EditType `json:"edit_type"`
	Diff               string   `json:"diff,omitempty"`
	ChangeSummary      string   `json:"change_summary,omitempty"`
	NonEnglishFeedback bool     `json:"non_english_feedback,omitempty"`
}

// Result groups the audited captions of one user by edit type.
type Result struct {
	Total              int
	DirectEdits        []Sample
	NoEdits            []Sample
	PerfectPrecaptions []Sample
}

// Analyze walks every caption of the target user in the export and classifies
// it. Missing-GPT cases are counted with the direct edits. Direct-edit samples
// carry a diff, a word-level change summary, and a non-English feedback flag.
func Analyze(records []export.VideoRecord, targetUser string, batches export.BatchMap) Result {
	var ret Result
	for _, flat := range export.Flatten(records) {
		data := flat.Entry.CaptionData
		if data.User != targetUser {
			continue
		}

		ref := batches.Lookup(flat.VideoURL)
		sample := Sample{
			VideoID:         flat.VideoID,
			VideoURL:        flat.VideoURL,
			BatchFile:       ref.File,
			BatchIndex:      ref.Index,
			CaptionType:     flat.CaptionType,
			Status:          flat.Entry.Status,
			User:            data.User,
			Timestamp:       data.Timestamp,
			RatingScore:     data.InitialRating,
			WorkflowType:    data.WorkflowType,
			PreCaption:      trim(data.PreCaption),
			InitialFeedback: trim(data.InitialFeedback),
			FinalFeedback:   trim(data.FinalFeedback),
			GPTCaption:      trim(data.GPTCaption),
			FinalCaption:    trim(data.FinalCaption),
		}

		switch {
		case ratingIs(data.InitialRating, 5):
			sample.EditType = EditPerfectPrecaption
			ret.PerfectPrecaptions = append(ret.PerfectPrecaptions, sample)
		case sample.GPTCaption == "":
			sample.EditType = EditMissingGPT
			decorateDirectEdit(&sample)
			ret.DirectEdits = append(ret.DirectEdits, sample)
		case sample.FinalCaption != sample.GPTCaption:
			sample.EditType = EditDirect
			decorateDirectEdit(&sample)
			ret.DirectEdits = append(ret.DirectEdits, sample)
		default:
			sample.EditType = EditNone
			ret.NoEdits = append(ret.NoEdits, sample)
		}
	}
	ret.Total = len(ret.DirectEdits) + len(ret.NoEdits) + len(ret.PerfectPrecaptions)
	return ret
}

func decorateDirectEdit(sample *Sample) {
	sample.Diff = LineDiff(sample.GPTCaption, sample.FinalCaption)
	sample.ChangeSummary = DiffSummary(sample.GPTCaption, sample.FinalCaption)
	sample.NonEnglishFeedback = IsNonEnglish(sample.FinalFeedback)
}

// IsNonEnglish reports whether a feedback text is reliably detected as a
// language other than English. Blank text is never flagged.
func IsNonEnglish(text string) bool {
	if trim(text) == "" {
		return false
	}
	info := whatlanggo.Detect(text)
	return info.IsReliable() && info.Lang != whatlanggo.Eng
}

func ratingIs(rating *int, want int) bool {
	return rating != nil && *rating == want
}
