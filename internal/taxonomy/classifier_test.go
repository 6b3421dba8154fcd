package taxonomy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawJSON(s string) json.RawMessage {
	return json.RawMessage(s)
}

func TestClassifyTask(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want TaskKind
	}{
		{
			name: "same label opposite types",
			task: Task{
				Pos: rawJSON(`{"label": "cam_motion.pan.pan_left", "type": "pos"}`),
				Neg: rawJSON(`{"label": "cam_motion.pan.pan_left", "type": "neg"}`),
			},
			want: KindAtomicSimple,
		},
		{
			name: "neg side is a positive of another label",
			task: Task{
				Pos: rawJSON(`{"label": "cam_motion.pan.pan_left", "type": "pos"}`),
				Neg: rawJSON(`{"label": "cam_motion.pan.pan_right", "type": "pos"}`),
			},
			want: KindAtomicDual,
		},
		{
			name: "neg is a list",
			task: Task{
				Pos: rawJSON(`{"label": "cam_motion.zoom.zoom_in", "type": "pos"}`),
				Neg: rawJSON(`[{"label": "cam_motion.zoom.zoom_out", "type": "pos"}]`),
			},
			want: KindAtomicComplexNeg,
		},
		{
			name: "pos is a list",
			task: Task{
				Pos: rawJSON(`[{"label": "a", "type": "pos"}, {"label": "b", "type": "pos"}]`),
				Neg: rawJSON(`{"label": "a", "type": "neg"}`),
			},
			want: KindComposite,
		},
		{
			name: "different label with neg type",
			task: Task{
				Pos: rawJSON(`{"label": "a", "type": "pos"}`),
				Neg: rawJSON(`{"label": "b", "type": "neg"}`),
			},
			want: KindAtomicComplexNeg,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyTask(tt.task))
		})
	}
}

func TestExtractLabels(t *testing.T) {
	categories := map[string][]Task{
		"movement_and_steadiness": {
			{
				Name:        "pan_left",
				Pos:         rawJSON(`{"label": "cam_motion.pan.pan_left", "type": "pos"}`),
				Neg:         rawJSON(`{"label": "cam_motion.pan.pan_left", "type": "neg"}`),
				PosQuestion: "Does the camera pan left?",
			},
			{
				Name:        "pan_left_vs_right",
				Pos:         rawJSON(`{"label": "cam_motion.pan.pan_left", "type": "pos"}`),
				Neg:         rawJSON(`{"label": "cam_motion.pan.pan_right", "type": "pos"}`),
				PosQuestion: "Does the camera pan left?",
				NegQuestion: "Does the camera pan right?",
			},
			{
				Name: "complex_motion",
				Pos:  rawJSON(`[{"label": "a", "type": "pos"}, {"label": "b", "type": "pos"}]`),
			},
			{
				Name: "skipped_task",
				Pos:  rawJSON(`{"label": "x", "type": "pos"}`),
				Neg:  rawJSON(`{"label": "x", "type": "neg"}`),
			},
		},
	}

	extraction := ExtractLabels(categories, map[string]bool{"skipped_task": true})

	assert.Equal(t, 1, extraction.Skipped)
	require.Len(t, extraction.Atomic, 3)
	require.Len(t, extraction.Composite, 1)

	assert.Equal(t, "movement_and_steadiness.pan_left", extraction.Atomic["pan_left"].ClassifierName)

	// dual task contributes a second atomic label with swapped fields
	negated, ok := extraction.Atomic["pan_left_vs_right_negated"]
	require.True(t, ok)
	assert.Equal(t, "cam_motion.pan.pan_right", negated.RawName)
	assert.Equal(t, "Does the camera pan right?", negated.PosQuestion)
	assert.Equal(t, "movement_and_steadiness.pan_left_vs_right_negated", negated.ClassifierName)

	assert.Len(t, extraction.Breakdown[KindAtomicSimple], 1)
	assert.Len(t, extraction.Breakdown[KindAtomicDual], 1)
	assert.Len(t, extraction.Breakdown[KindComposite], 1)
}

func TestCompare(t *testing.T) {
	extraction := Extraction{
		Atomic: map[string]AtomicLabel{
			"pan_left":  {RawName: "cam_motion.pan.pan_left"},
			"pan_right": {RawName: "cam_motion.pan.pan_right"},
		},
	}
	previous := map[string]string{
		"Pan Left": "cam_motion.pan.pan_left",
		"Tilt Up":  "cam_motion.tilt.tilt_up",
	}

	cmp := Compare(extraction, previous)

	assert.Equal(t, []string{"cam_motion.pan.pan_left"}, cmp.InBoth)
	assert.Equal(t, []string{"cam_motion.pan.pan_right"}, cmp.OnlyInNew)
	assert.Equal(t, []string{"cam_motion.tilt.tilt_up"}, cmp.OnlyInPrevious)
	assert.False(t, cmp.Covered())
	assert.Equal(t, 2, cmp.PreviousTotal)
	assert.Equal(t, 2, cmp.NewTotal)
}
