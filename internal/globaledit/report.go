package globaledit

import (
	"fmt"
	"time"

	"github.com/lumivid/camreview/internal/report"
)

// WriteReport renders the global-edit classification run as markdown.
func WriteReport(samples []Sample, totalApprovedRejected int, exportFile string, now time.Time) string {
	var yes, no, unexpected []Sample
	for _, sample := range samples {
		switch sample.Label {
		case LabelYes:
			yes = append(yes, sample)
		case LabelNo:
			no = append(no, sample)
		default:
			unexpected = append(unexpected, sample)
		}
	}
	total := len(samples)

	b := report.NewBuilder()
	b.H1("Global Edit Detection Analysis Report")

	b.H2("Dataset Information")
	b.Bullet("**Source Export File**: `%s`", exportFile)
	b.Bullet("**Total Feedback (Approved/Rejected only)**: %d", totalApprovedRejected)
	b.Bullet("**Classified (4-score pre-captions with feedback)**: %d", total)
	b.Bullet("**Timestamp**: %s", now.Format("20060102_1504"))
	b.EndList()

	b.H2("Classification Prompt")
	b.Para("The following prompt was used to classify critiques:")
	b.CodeBlock("", Prompt)

	b.H2("Classification Statistics")
	b.Table(
		[]string{"Label", "Count", "Percentage", "Avg Feedback Length", "Avg Word Changes"},
		[][]string{
			{"Yes (Global Edit)", fmt.Sprintf("%d", len(yes)), percent(len(yes), total),
				fmt.Sprintf("%.0f chars", avgLength(yes)), fmt.Sprintf("%.1f words", avgChanges(yes))},
			{"No (Not Global Edit)", fmt.Sprintf("%d", len(no)), percent(len(no), total),
				fmt.Sprintf("%.0f chars", avgLength(no)), fmt.Sprintf("%.1f words", avgChanges(no))},
			{"Unexpected", fmt.Sprintf("%d", len(unexpected)), percent(len(unexpected), total), "-", "-"},
			{"**Total**", fmt.Sprintf("%d", total), "100.00%", "-", "-"},
		},
	)

	writeCases(b, "Global Edit Cases", yes)
	writeCases(b, "Unexpected Responses", unexpected)
	return b.String()
}

func writeCases(b *report.Builder, title string, samples []Sample) {
	if len(samples) == 0 {
		return
	}
	b.H2(fmt.Sprintf("%s (%d total)", title, len(samples)))
	for i, sample := range samples {
		b.H3(fmt.Sprintf("Case %d/%d", i+1, len(samples)))
		b.Field("Video ID", "`"+sample.VideoID+"`")
		b.Field("Caption Type", sample.CaptionType)
		b.Field("Status", sample.Status)
		b.Field("Rating Score", formatRating(sample.RatingScore))
		b.Field("Feedback", sample.FinalFeedback)
		b.Field("Pre-Caption", sample.PreCaption)
		b.Field("Final Caption", sample.FinalCaption)
		b.Field("Rationale", sample.Rationale)
		b.Field("Classification", string(sample.Label))
		b.Rule()
	}
}

func avgLength(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum int
	for _, sample := range samples {
		sum += sample.FeedbackLength
	}
	return float64(sum) / float64(len(samples))
}

func avgChanges(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum int
	for _, sample := range samples {
		sum += sample.NumChanges
	}
	return float64(sum) / float64(len(samples))
}

func percent(part, total int) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(part)/float64(total)*100)
}

func formatRating(rating *int) string {
	if rating == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *rating)
}
