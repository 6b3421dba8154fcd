package taxonomy

import "sort"

// Comparison is the coverage of a new atomic extraction against a previous
// {label_name: label} mapping file.
type Comparison struct {
	InBoth         []string `json:"in_both"`
	OnlyInNew      []string `json:"only_in_atomic"`
	OnlyInPrevious []string `json:"only_in_previous"`
	PreviousTotal  int      `json:"previous_total"`
	NewTotal       int      `json:"atomic_total"`
}

// Covered reports whether every previous label is present in the extraction.
func (c Comparison) Covered() bool {
	return len(c.OnlyInPrevious) == 0
}

// Compare matches the raw names of extracted atomic labels against the values
// of a previous name mapping.
func Compare(extraction Extraction, previous map[string]string) Comparison {
	newNames := make(map[string]bool, len(extraction.Atomic))
	for _, atomic := range extraction.Atomic {
		newNames[atomic.RawName] = true
	}
	previousNames := make(map[string]bool, len(previous))
	for _, label := range previous {
		previousNames[label] = true
	}

	ret := Comparison{
		PreviousTotal: len(previousNames),
		NewTotal:      len(newNames),
	}
	for name := range newNames {
		if previousNames[name] {
			ret.InBoth = append(ret.InBoth, name)
		} else {
			ret.OnlyInNew = append(ret.OnlyInNew, name)
		}
	}
	for name := range previousNames {
		if !newNames[name] {
			ret.OnlyInPrevious = append(ret.OnlyInPrevious, name)
		}
	}

	sort.Strings(ret.InBoth)
	sort.Strings(ret.OnlyInNew)
	sort.Strings(ret.OnlyInPrevious)
	return ret
}
