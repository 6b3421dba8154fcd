// Package globaledit classifies annotator feedback for "global edits": one
// correction applied in two or more separate places of the pre-caption.
package globaledit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/lumivid/camreview/internal/export"
	"github.com/lumivid/camreview/pkg/log"
)

// Prompt is the fixed classification prompt. The model must answer with
// "Rationale:" and "Classification:" markers, the latter Yes or No.
const Prompt = `You are checking whether the feedback contains at least ONE GLOBAL EDIT.

Definition:
- A **feedback point** is one specific correction or instruction in the feedback.
- A **place** is a location in the PRE-CAPTION where specific words are changed to different words in the FINAL CAPTION.

A feedback point is a **GLOBAL EDIT** if it corrects the same factual mistake in **2 or more separate places** in the PRE-CAPTION.

What counts as a GLOBAL EDIT:
- Feedback: "Not man but woman."
  - Pre-caption: "the man walks" -> "the woman walks" (place 1)
  - Pre-caption: "he smiles" -> "she smiles" (place 2)
  - Pre-caption: "his hand" -> "her hand" (place 3)
  - Result: ONE correction (gender) applied to 3 places -> GLOBAL EDIT = Yes

- Feedback: "It's a dog, not a cat."
  - Pre-caption: "the cat sits" -> "the dog sits" (place 1)
  - Pre-caption: "the cat's tail" -> "the dog's tail" (place 2)
  - Result: ONE correction (animal type) applied to 2 places -> GLOBAL EDIT = Yes

What does NOT count as a GLOBAL EDIT:
- Sentence restructuring or reordering (moving phrases around without changing word content)
- Adding new information to one location
- Rewriting one sentence/phrase, even if it becomes longer
- Style changes (making text more concise, changing voice, etc.)
- Corrections that only appear in ONE location, no matter how many words changed

CRITICAL: Only count as "places" where the actual WORDS are changed, not where sentences are restructured or reordered.

---

Inputs:

Feedback:
%s

Pre-caption:
%s

Final caption:
%s

---

Your task:

1. Split the feedback into separate feedback points.
2. For EACH feedback point:
   a. Check if it corrects a factual mistake (like wrong gender, object, color, position, etc.)
   b. Count how many SEPARATE LOCATIONS have this same correction applied
   c. Only count locations where words actually CHANGE (not just move/reorder)

3. If ANY feedback point corrects the same mistake in 2+ separate locations -> Yes
4. Otherwise -> No

---

Output format (STRICT):

Rationale: [For each feedback point: state what correction it makes and how many separate locations have this correction. If Yes, clearly identify which feedback point is global and list the 2+ locations with the specific text that changed (quote the actual words that were different).]
Classification: [Yes or No]`

// Label is the classifier verdict for one feedback.
type Label string

const (
	LabelYes Label = "Yes"
	LabelNo  Label = "No"
	// LabelUnexpected: the model response did not follow the output format.
	LabelUnexpected Label = "Unexpected"
)

// Sample is one candidate feedback with its classification.
type Sample struct {
	VideoID        string `json:"video_id"`
	CaptionType    string `json:"caption_type"`
	Status         string `json:"status"`
	User           string `json:"user"`
	Timestamp      string `json:"timestamp"`
	RatingScore    *int   `json:"initial_caption_rating_score"`
	PreCaption     string `json:"pre_caption"`
	FinalFeedback  string `json:"final_feedback"`
	FinalCaption   string `json:"final_caption"`
	FeedbackLength int    `json:"feedback_length"`
	NumChanges     int    `json:"num_changes"`
	Label          Label  `json:"label,omitempty"`
	Rationale      string `json:"rationale,omitempty"`
	RawResponse    string `json:"raw_response,omitempty"`
}

// Chatter is the LLM surface the classifier needs.
type Chatter interface {
	SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error)
}

// Candidates selects the feedbacks worth classifying: approved or rejected
// captions whose pre-caption was rated 4, with a non-empty feedback and final
// caption. NumChanges and FeedbackLength are precomputed.
func Candidates(records []export.VideoRecord) []Sample {
	var ret []Sample
	for _, flat := range export.Flatten(records) {
		if flat.Entry.Status != "approved" && flat.Entry.Status != "rejected" {
			continue
		}
		data := flat.Entry.CaptionData
		if data.InitialRating == nil || *data.InitialRating != 4 {
			continue
		}
		feedback := strings.TrimSpace(data.FinalFeedback)
		finalCaption := strings.TrimSpace(data.FinalCaption)
		if feedback == "" || finalCaption == "" {
			continue
		}
		preCaption := strings.TrimSpace(data.PreCaption)
		ret = append(ret, Sample{
			VideoID:        flat.VideoID,
			CaptionType:    flat.CaptionType,
			Status:         flat.Entry.Status,
			User:           data.User,
			Timestamp:      data.Timestamp,
			RatingScore:    data.InitialRating,
			PreCaption:     preCaption,
			FinalFeedback:  feedback,
			FinalCaption:   finalCaption,
			FeedbackLength: len(feedback),
			NumChanges:     CountTextChanges(preCaption, finalCaption),
		})
	}
	return ret
}

// CountTextChanges counts word-level changes between two captions.
func CountTextChanges(preCaption, finalCaption string) int {
	matcher := difflib.NewMatcher(strings.Fields(preCaption), strings.Fields(finalCaption))
	changes := 0
	for _, op := range matcher.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		deleted := op.I2 - op.I1
		inserted := op.J2 - op.J1
		if deleted > inserted {
			changes += deleted
		} else {
			changes += inserted
		}
	}
	return changes
}

// ParseResponse extracts the label and rationale from a model response. Any
// response without both markers, or with a verdict other than Yes or No, is
// LabelUnexpected.
func ParseResponse(raw string) (Label, string) {
	raw = strings.TrimSpace(raw)
	rationaleIdx := strings.Index(raw, "Rationale:")
	classificationIdx := strings.Index(raw, "Classification:")
	if rationaleIdx < 0 || classificationIdx < 0 || classificationIdx < rationaleIdx {
		return LabelUnexpected, ""
	}

	rationale := strings.TrimSpace(raw[rationaleIdx+len("Rationale:") : classificationIdx])
	verdict := strings.TrimSpace(raw[classificationIdx+len("Classification:"):])
	if i := strings.IndexByte(verdict, '\n'); i >= 0 {
		verdict = strings.TrimSpace(verdict[:i])
	}

	switch verdict {
	case "Yes":
		return LabelYes, rationale
	case "No":
		return LabelNo, rationale
	default:
		return LabelUnexpected, rationale
	}
}

// Classify runs the classifier over every sample with the given number of
// concurrent workers. LLM failures are recorded as LabelUnexpected rather
// than aborting the run.
func Classify(ctx context.Context, chatter Chatter, samples []Sample, workers int) []Sample {
	if workers < 1 {
		workers = 1
	}

	ret := make([]Sample, len(samples))
	copy(ret, samples)

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i := range ret {
		wg.Add(1)
		sem <- struct{}{}
		go func(sample *Sample) {
			defer wg.Done()
			defer func() { <-sem }()

			prompt := fmt.Sprintf(Prompt, sample.FinalFeedback, sample.PreCaption, sample.FinalCaption)
			raw, err := chatter.SimpleChat(ctx, prompt, "")
			if err != nil {
				log.Warn("Classification failed for %s/%s: %v", sample.VideoID, sample.CaptionType, err)
				sample.Label = LabelUnexpected
				sample.Rationale = "Error: " + err.Error()
				return
			}
			sample.RawResponse = strings.TrimSpace(raw)
			sample.Label, sample.Rationale = ParseResponse(raw)
		}(&ret[i])
	}
	wg.Wait()
	return ret
}
