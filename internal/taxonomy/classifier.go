package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/lumivid/camreview/pkg/log"
)

// TaskKind classifies how a pairwise benchmark task maps onto atomic labels.
type TaskKind string

const (
	// KindAtomicSimple: pos and neg are the same label with opposite types.
	KindAtomicSimple TaskKind = "atomic_simple"
	// KindAtomicDual: the neg side is a positive example of a different
	// label, so the task yields two atomic labels.
	KindAtomicDual TaskKind = "atomic_dual"
	// KindAtomicComplexNeg: pos is a single label but neg is a list.
	KindAtomicComplexNeg TaskKind = "atomic_with_complex_neg"
	// KindComposite: pos itself is a list of labels.
	KindComposite TaskKind = "composite"
)

// TaskSide is one side of a pairwise task when it is a single label.
type TaskSide struct {
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Task is one pairwise classifier task from the benchmark config.
// Pos and Neg are raw because either side may be a single label or a list.
type Task struct {
	Name        string          `json:"name"`
	Pos         json.RawMessage `json:"pos"`
	Neg         json.RawMessage `json:"neg"`
	PosQuestion string          `json:"pos_question"`
	PosPrompt   string          `json:"pos_prompt"`
	NegQuestion string          `json:"neg_question"`
	NegPrompt   string          `json:"neg_prompt"`
}

// AtomicLabel is a single-label classifier extracted from a task.
type AtomicLabel struct {
	RawName        string `json:"raw_name"`
	ClassifierName string `json:"classifier_name"`
	PosQuestion    string `json:"pos_question"`
	PosPrompt      string `json:"pos_prompt"`
}

// CompositeLabel is a multi-label classifier kept as a unit.
type CompositeLabel struct {
	ClassifierName string `json:"classifier_name"`
	PosQuestion    string `json:"pos_question"`
	PosPrompt      string `json:"pos_prompt"`
}

// Extraction is the result of ExtractLabels.
type Extraction struct {
	Atomic    map[string]AtomicLabel    `json:"atomic"`
	Composite map[string]CompositeLabel `json:"composite"`

	Breakdown map[TaskKind][]string `json:"-"`
	Skipped   int                   `json:"-"`
}

// ExtractLabels walks the pairwise tasks of every category, skips tasks in
// skipTasks, and splits the rest into atomic and composite classifier labels.
// Dual-atomic tasks contribute a second label named "<task>_negated" with the
// pos/neg fields swapped.
func ExtractLabels(categories map[string][]Task, skipTasks map[string]bool) Extraction {
	ret := Extraction{
		Atomic:    make(map[string]AtomicLabel),
		Composite: make(map[string]CompositeLabel),
		Breakdown: make(map[TaskKind][]string),
	}

	categoryNames := make([]string, 0, len(categories))
	for name := range categories {
		categoryNames = append(categoryNames, name)
	}
	sort.Strings(categoryNames)

	for _, category := range categoryNames {
		for _, task := range categories[category] {
			if skipTasks[task.Name] {
				ret.Skipped++
				log.Debug("Skipping task in test-skip set: %s", task.Name)
				continue
			}

			kind := classifyTask(task)
			ret.Breakdown[kind] = append(ret.Breakdown[kind], task.Name)

			if kind == KindComposite {
				ret.Composite[task.Name] = CompositeLabel{
					ClassifierName: category + "." + task.Name,
					PosQuestion:    task.PosQuestion,
					PosPrompt:      task.PosPrompt,
				}
				continue
			}

			pos, _ := singleSide(task.Pos)
			ret.Atomic[task.Name] = AtomicLabel{
				RawName:        pos.Label,
				ClassifierName: category + "." + task.Name,
				PosQuestion:    task.PosQuestion,
				PosPrompt:      task.PosPrompt,
			}

			if kind == KindAtomicDual {
				neg, _ := singleSide(task.Neg)
				negatedName := task.Name + "_negated"
				ret.Atomic[negatedName] = AtomicLabel{
					RawName:        neg.Label,
					ClassifierName: category + "." + negatedName,
					PosQuestion:    task.NegQuestion,
					PosPrompt:      task.NegPrompt,
				}
			}
		}
	}
	return ret
}

// classifyTask decides how a task maps onto atomic labels.
func classifyTask(task Task) TaskKind {
	pos, posIsSingle := singleSide(task.Pos)
	if !posIsSingle || pos.Label == "" || pos.Type == "" {
		return KindComposite
	}

	neg, negIsSingle := singleSide(task.Neg)
	if !negIsSingle {
		return KindAtomicComplexNeg
	}
	if neg.Label == "" || neg.Type == "" {
		return KindAtomicSimple
	}
	if neg.Type == "neg" && neg.Label == pos.Label {
		return KindAtomicSimple
	}
	if neg.Type == "pos" {
		return KindAtomicDual
	}
	// neg is a different label with type "neg" - unusual case
	return KindAtomicComplexNeg
}

// singleSide decodes a task side as a single label, reporting false when the
// side is a list (or absent).
func singleSide(raw json.RawMessage) (TaskSide, bool) {
	if len(raw) == 0 {
		return TaskSide{}, true
	}
	var side TaskSide
	if err := json.Unmarshal(raw, &side); err != nil {
		return TaskSide{}, false
	}
	return side, true
}

// LoadTasks reads a benchmark config file: {category: [task, ...]}.
func LoadTasks(path string) (map[string][]Task, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task config: %w", err)
	}
	var categories map[string][]Task
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("parse task config %s: %w", path, err)
	}
	return categories, nil
}

// Save writes the extraction as indented JSON with atomic and composite maps.
func (e Extraction) Save(path string) error {
	raw, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
