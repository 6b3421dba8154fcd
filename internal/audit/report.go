package audit

import (
	"fmt"
	"sort"
	"time"

	"github.com/lumivid/camreview/internal/report"
)

// WriteReport renders the direct-edit audit as a markdown document, mirroring
// the summary table plus one section per direct-edit case, newest first.
func WriteReport(result Result, targetUser, exportFile string, now time.Time) string {
	direct := len(result.DirectEdits)
	noEdit := len(result.NoEdits)
	perfect := len(result.PerfectPrecaptions)

	b := report.NewBuilder()
	b.H1("Direct Caption Edit Detection Report")

	b.H2("Overview")
	b.Para("This report identifies cases where **%s** manually edited the GPT-generated "+
		"caption instead of using the feedback refinement workflow "+
		"(re-polish feedback + re-generate caption).", targetUser)

	b.H2("Dataset Information")
	b.Bullet("**Source Export File**: `%s`", exportFile)
	b.Bullet("**Target User**: %s", targetUser)
	b.Bullet("**Analysis Timestamp**: %s", now.Format("20060102_1504"))
	b.EndList()

	b.H2("Detection Criteria")
	b.Para("A caption is flagged as a direct edit when the pre-caption rating is "+
		"below 5, a GPT caption exists, and the final caption differs from it. "+
		"Captions with a missing GPT caption despite a sub-5 rating (%d here) are "+
		"counted with the direct edits.", countMissingGPT(result.DirectEdits))

	b.H2("Summary Statistics")
	b.Table(
		[]string{"Category", "Count", "Percentage"},
		[][]string{
			{"**Direct Edits** (final != gpt)", fmt.Sprintf("%d", direct), percent(direct, result.Total)},
			{"No Edits (final == gpt)", fmt.Sprintf("%d", noEdit), percent(noEdit, result.Total)},
			{"Perfect Pre-caption (rating=5)", fmt.Sprintf("%d", perfect), percent(perfect, result.Total)},
			{fmt.Sprintf("**Total by %s**", targetUser), fmt.Sprintf("%d", result.Total), "100.0%"},
		},
	)

	if direct == 0 {
		b.H2("Results")
		b.Para("No direct edit cases found for this user.")
		return b.String()
	}

	b.H2(fmt.Sprintf("Direct Edit Cases (%d total)", direct))
	b.Para("These are cases where the user manually edited the GPT-generated caption. " +
		"Sorted by timestamp (latest first).")

	cases := make([]Sample, len(result.DirectEdits))
	copy(cases, result.DirectEdits)
	sort.SliceStable(cases, func(i, j int) bool { return cases[i].Timestamp > cases[j].Timestamp })

	for i, sample := range cases {
		b.H3(fmt.Sprintf("Case %d/%d", i+1, direct))
		b.Table([]string{"Field", "Value"}, [][]string{
			{"Video ID", "`" + sample.VideoID + "`"},
			{"Batch File", "`" + sample.BatchFile + "`"},
			{"Batch Index", fmt.Sprintf("%d", sample.BatchIndex)},
			{"Caption Type", sample.CaptionType},
			{"Status", sample.Status},
			{"Rating Score", formatRating(sample.RatingScore)},
			{"Timestamp", sample.Timestamp},
		})
		b.Field("Pre-Caption", sample.PreCaption)
		b.Field("Initial Feedback", sample.InitialFeedback)
		b.Field("Final Feedback", feedbackWithLanguageFlag(sample))
		b.Field("GPT Caption (before edit)", sample.GPTCaption)
		b.Field("Final Caption (after manual edit)", sample.FinalCaption)
		b.Para("**Diff:**")
		b.CodeBlock("diff", sample.Diff)
		b.Field("Change Summary", sample.ChangeSummary)
		b.Rule()
	}
	return b.String()
}

// WriteStaticReport renders the mostly-static critique analysis.
func WriteStaticReport(result StaticResult, exportFile string, now time.Time) string {
	b := report.NewBuilder()
	b.H1("Mostly-Static Critique Report")

	b.H2("Overview")
	b.Para("Approved or rejected captions whose critique introduced the phrase " +
		"\"mostly static\": the final caption and the feedback contain it but the " +
		"pre-caption does not.")

	b.H2("Dataset Information")
	b.Bullet("**Source Export File**: `%s`", exportFile)
	b.Bullet("**Analysis Timestamp**: %s", now.Format("20060102_1504"))
	b.EndList()

	b.H2("Summary Statistics")
	b.Table([]string{"Category", "Count"}, [][]string{
		{"Approved/rejected captions", fmt.Sprintf("%d", result.TotalApprovedRejected)},
		{"With critique (rating below 5)", fmt.Sprintf("%d", len(result.Candidates))},
		{"Critique added \"mostly static\"", fmt.Sprintf("%d", len(result.Added))},
	})

	for i, sample := range result.Added {
		b.H3(fmt.Sprintf("Case %d/%d", i+1, len(result.Added)))
		b.Table([]string{"Field", "Value"}, [][]string{
			{"Video ID", "`" + sample.VideoID + "`"},
			{"Caption Type", sample.CaptionType},
			{"Status", sample.Status},
			{"User", sample.User},
			{"Rating Score", formatRating(sample.RatingScore)},
			{"Timestamp", sample.Timestamp},
		})
		b.Field("Pre-Caption", sample.PreCaption)
		b.Field("Final Feedback", sample.FinalFeedback)
		b.Field("Final Caption", sample.FinalCaption)
		b.Field("Classification", sample.ChangeSummary)
		b.Rule()
	}
	return b.String()
}

func countMissingGPT(samples []Sample) int {
	var n int
	for _, sample := range samples {
		if sample.EditType == EditMissingGPT {
			n++
		}
	}
	return n
}

func feedbackWithLanguageFlag(sample Sample) string {
	if sample.NonEnglishFeedback && sample.FinalFeedback != "" {
		return sample.FinalFeedback + " *(non-English feedback)*"
	}
	return sample.FinalFeedback
}

func percent(part, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}

func formatRating(rating *int) string {
	if rating == nil {
		return "None"
	}
	return fmt.Sprintf("%d", *rating)
}
