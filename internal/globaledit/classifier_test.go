package globaledit

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumivid/camreview/internal/export"
)

type fakeChatter struct {
	calls    atomic.Int64
	response func(prompt string) (string, error)
}

func (f *fakeChatter) SimpleChat(ctx context.Context, prompt, systemPrompt string) (string, error) {
	f.calls.Add(1)
	return f.response(prompt)
}

func intPtr(v int) *int { return &v }

func candidateRecords() []export.VideoRecord {
	entry := func(status string, rating *int, feedback string) export.CaptionEntry {
		return export.CaptionEntry{
			Status: status,
			CaptionData: &export.CaptionData{
				User:          "alice",
				PreCaption:    "The man walks. He smiles.",
				FinalFeedback: feedback,
				FinalCaption:  "The woman walks. She smiles.",
				InitialRating: rating,
			},
		}
	}
	return []export.VideoRecord{
		{
			VideoID: "v1",
			Captions: map[string]export.CaptionEntry{
				"subject": entry("approved", intPtr(4), "Not man but woman."),
				"camera":  entry("approved", intPtr(3), "Wrong rating, skipped."),
				"scene":   entry("pending", intPtr(4), "Wrong status, skipped."),
				"spatial": entry("rejected", intPtr(4), ""),
			},
		},
	}
}

func TestCandidates(t *testing.T) {
	candidates := Candidates(candidateRecords())

	require.Len(t, candidates, 1)
	assert.Equal(t, "subject", candidates[0].CaptionType)
	assert.Equal(t, len("Not man but woman."), candidates[0].FeedbackLength)
	// "man"->"woman" and "He"->"She" both count
	assert.Equal(t, 2, candidates[0].NumChanges)
}

func TestCountTextChanges(t *testing.T) {
	assert.Equal(t, 0, CountTextChanges("same words here", "same words here"))
	assert.Equal(t, 1, CountTextChanges("the cat sits", "the dog sits"))
	assert.Equal(t, 2, CountTextChanges("the cat sits", "the big dog sits"))
}

func TestParseResponse(t *testing.T) {
	label, rationale := ParseResponse("Rationale: gender fix in two places.\nClassification: Yes")
	assert.Equal(t, LabelYes, label)
	assert.Equal(t, "gender fix in two places.", rationale)

	label, _ = ParseResponse("Rationale: single edit.\nClassification: No\nextra trailing text")
	assert.Equal(t, LabelNo, label)

	label, _ = ParseResponse("Rationale: hmm.\nClassification: Maybe")
	assert.Equal(t, LabelUnexpected, label)

	label, _ = ParseResponse("free-form answer without markers")
	assert.Equal(t, LabelUnexpected, label)
}

func TestClassify(t *testing.T) {
	// discriminate on a token unique to the second sample's feedback; the
	// prompt template itself carries gendered worked examples
	chatter := &fakeChatter{response: func(prompt string) (string, error) {
		if strings.Contains(prompt, "tree") {
			return "Rationale: one place.\nClassification: No", nil
		}
		return "Rationale: gender corrected twice.\nClassification: Yes", nil
	}}

	samples := []Sample{
		{VideoID: "v1", FinalFeedback: "Not man but woman.", PreCaption: "the man", FinalCaption: "the woman"},
		{VideoID: "v2", FinalFeedback: "Add the tree.", PreCaption: "a field", FinalCaption: "a field with a tree"},
	}

	classified := Classify(context.Background(), chatter, samples, 4)

	require.Len(t, classified, 2)
	assert.Equal(t, LabelYes, classified[0].Label)
	assert.Equal(t, "gender corrected twice.", classified[0].Rationale)
	assert.Equal(t, LabelNo, classified[1].Label)
	assert.EqualValues(t, 2, chatter.calls.Load())
	// inputs untouched
	assert.Empty(t, samples[0].Label)
}

func TestClassify_ErrorBecomesUnexpected(t *testing.T) {
	chatter := &fakeChatter{response: func(prompt string) (string, error) {
		return "", fmt.Errorf("rate limited")
	}}

	classified := Classify(context.Background(), chatter, []Sample{{VideoID: "v1"}}, 1)

	require.Len(t, classified, 1)
	assert.Equal(t, LabelUnexpected, classified[0].Label)
	assert.Contains(t, classified[0].Rationale, "rate limited")
}

func TestWriteReport(t *testing.T) {
	samples := []Sample{
		{VideoID: "v1", Label: LabelYes, Rationale: "two places", FeedbackLength: 20, NumChanges: 2, RatingScore: intPtr(4)},
		{VideoID: "v2", Label: LabelNo, FeedbackLength: 10, NumChanges: 1},
		{VideoID: "v3", Label: LabelUnexpected},
	}

	doc := WriteReport(samples, 50, "export.json", time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC))

	assert.Contains(t, doc, "# Global Edit Detection Analysis Report")
	assert.Contains(t, doc, "| Yes (Global Edit) | 1 | 33.33% | 20 chars | 2.0 words |")
	assert.Contains(t, doc, "## Global Edit Cases (1 total)")
	assert.Contains(t, doc, "## Unexpected Responses (1 total)")
	assert.Contains(t, doc, "Classification: [Yes or No]")
}
