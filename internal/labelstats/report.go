package labelstats

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lumivid/camreview/internal/report"
)

// WriteReport renders the rare-label frequency table as markdown.
// definitions maps full label keys to definition prompts and may be nil.
func WriteReport(rare []Count, total int, threshold int, definitions map[string]string, now time.Time) string {
	b := report.NewBuilder()
	b.H1("Rare Label Report")
	b.Para("Generated: %s", now.Format("2006-01-02 15:04"))
	b.Para("Labels with fewer than %d positive examples: **%s** of %s total.",
		threshold, humanize.Comma(int64(len(rare))), humanize.Comma(int64(total)))

	rows := make([][]string, 0, len(rare))
	var positives, negatives int
	for _, count := range rare {
		definition := definitions[count.Label]
		rows = append(rows, []string{
			count.Label,
			definition,
			strconv.Itoa(count.Positives),
			strconv.Itoa(count.Negatives),
		})
		positives += count.Positives
		negatives += count.Negatives
	}
	rows = append(rows, []string{
		"**Total**", "",
		humanize.Comma(int64(positives)),
		humanize.Comma(int64(negatives)),
	})
	b.Table([]string{"Label", "Definition", "Positives", "Negatives"}, rows)
	return b.String()
}
