package audit

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/lumivid/camreview/pkg/log"
)

const maxSummaryWords = 10

// DiffSummary describes the word-level difference between the GPT caption and
// the final caption: the lowercase words added and removed, capped at ten
// each. When the word sets match it reports formatting-only changes.
func DiffSummary(gptCaption, finalCaption string) string {
	gptWords := wordSet(gptCaption)
	finalWords := wordSet(finalCaption)

	added := setDifference(finalWords, gptWords)
	removed := setDifference(gptWords, finalWords)

	var parts []string
	if len(added) > 0 {
		parts = append(parts, "Added: "+strings.Join(capWords(added), ", "))
	}
	if len(removed) > 0 {
		parts = append(parts, "Removed: "+strings.Join(capWords(removed), ", "))
	}
	if len(parts) == 0 {
		return "Minor changes (punctuation/formatting)"
	}
	return strings.Join(parts, "; ")
}

// LineDiff renders a sentence-level unified diff of the two captions as the
// body of a ```diff block. Single-sentence captions are split on commas
// instead so the diff still has lines to align. When the diff collapses to
// nothing (whitespace-only changes) both whole texts are shown.
func LineDiff(gptCaption, finalCaption string) string {
	gptLines := splitSentences(gptCaption)
	finalLines := splitSentences(finalCaption)

	if len(gptLines) <= 1 && len(finalLines) <= 1 {
		gptLines = splitClauses(gptCaption)
		finalLines = splitClauses(finalCaption)
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:       terminated(gptLines),
		B:       terminated(finalLines),
		Context: 0,
	})
	if err != nil {
		log.Warn("Diff failed: %v", err)
		unified = ""
	}

	var ret []string
	for _, line := range strings.Split(unified, "\n") {
		switch {
		case strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "@@"):
			continue
		case strings.HasPrefix(line, "-"):
			ret = append(ret, "- "+strings.TrimSpace(line[1:]))
		case strings.HasPrefix(line, "+"):
			ret = append(ret, "+ "+strings.TrimSpace(line[1:]))
		}
	}
	if len(ret) == 0 {
		return "- " + gptCaption + "\n+ " + finalCaption
	}
	return strings.Join(ret, "\n")
}

// splitSentences breaks text after ., ! or ? followed by whitespace.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		if isSentenceEnd(runes[i]) && isSpace(runes[i+1]) {
			sentence := strings.TrimSpace(string(runes[start : i+1]))
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func splitClauses(text string) []string {
	var ret []string
	for _, clause := range strings.Split(text, ",") {
		if clause = strings.TrimSpace(clause); clause != "" {
			ret = append(ret, clause)
		}
	}
	return ret
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func terminated(lines []string) []string {
	ret := make([]string, len(lines))
	for i, line := range lines {
		ret[i] = line + "\n"
	}
	return ret
}

func wordSet(text string) map[string]bool {
	ret := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		ret[word] = true
	}
	return ret
}

func setDifference(a, b map[string]bool) []string {
	var ret []string
	for word := range a {
		if !b[word] {
			ret = append(ret, word)
		}
	}
	sort.Strings(ret)
	return ret
}

func capWords(words []string) []string {
	if len(words) > maxSummaryWords {
		return words[:maxSummaryWords]
	}
	return words
}
