package audit

import (
	"strings"

	"github.com/lumivid/camreview/internal/export"
)

const staticPhrase = "mostly static"

// StaticResult is the outcome of the mostly-static critique analysis.
type StaticResult struct {
	TotalApprovedRejected int
	Candidates            []Sample // rating below 5, so a critique exists
	Added                 []Sample // critiques that introduced the phrase
}

// MostlyStatic finds approved or rejected captions where the annotator's
// critique introduced the phrase "mostly static": the final caption and the
// feedback contain it but the pre-caption does not, and the pre-caption was
// not rated 5. Captions without a final text are ignored.
func MostlyStatic(records []export.VideoRecord) StaticResult {
	var ret StaticResult
	for _, flat := range export.Flatten(records) {
		if flat.Entry.Status != "approved" && flat.Entry.Status != "rejected" {
			continue
		}
		data := flat.Entry.CaptionData
		sample := Sample{
			VideoID:       flat.VideoID,
			VideoURL:      flat.VideoURL,
			CaptionType:   flat.CaptionType,
			Status:        flat.Entry.Status,
			User:          data.User,
			Timestamp:     data.Timestamp,
			RatingScore:   data.InitialRating,
			PreCaption:    trim(data.PreCaption),
			FinalFeedback: trim(data.FinalFeedback),
			FinalCaption:  trim(data.FinalCaption),
		}
		if sample.FinalCaption == "" {
			continue
		}
		ret.TotalApprovedRejected++
		if ratingIs(data.InitialRating, 5) {
			continue
		}
		ret.Candidates = append(ret.Candidates, sample)

		if ContainsMostlyStatic(sample.FinalCaption) &&
			ContainsMostlyStatic(sample.FinalFeedback) &&
			!ContainsMostlyStatic(sample.PreCaption) {
			sample.ChangeSummary = "Critique added 'mostly static'. Feedback context: \"" +
				staticContext(sample.FinalFeedback) + "\""
			ret.Added = append(ret.Added, sample)
		}
	}
	return ret
}

// ContainsMostlyStatic is a case-insensitive phrase check.
func ContainsMostlyStatic(text string) bool {
	return strings.Contains(strings.ToLower(text), staticPhrase)
}

// staticContext excerpts the feedback around the first occurrence of the
// phrase, 30 bytes before to 50 after, with ellipses when truncated.
func staticContext(feedback string) string {
	idx := strings.Index(strings.ToLower(feedback), staticPhrase)
	if idx < 0 {
		return ""
	}
	start := idx - 30
	if start < 0 {
		start = 0
	}
	end := idx + 50
	if end > len(feedback) {
		end = len(feedback)
	}
	context := feedback[start:end]
	if start > 0 {
		context = "..." + context
	}
	if end < len(feedback) {
		context = context + "..."
	}
	return context
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
