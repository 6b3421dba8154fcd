package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_Enqueue_DeduplicatesSameKey(t *testing.T) {
	q := NewQueue(2, nil)

	jobA, createdA := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "directedits|export.json|alice",
	})
	jobB, createdB := q.Enqueue(EnqueueRequest{
		Source:    "cron",
		DedupeKey: "directedits|export.json|alice",
	})

	require.True(t, createdA)
	require.False(t, createdB)
	require.NotNil(t, jobA)
	require.NotNil(t, jobB)
	assert.Equal(t, jobA.ID, jobB.ID)
}

func TestQueue_Enqueue_AllowsRetryAfterFailure(t *testing.T) {
	q := NewQueue(1, nil)

	var attempts int
	q.Start(func(_ context.Context, _ *AnalysisJob) (string, error) {
		attempts++
		if attempts == 1 {
			return "", assert.AnError
		}
		return "directedits_alice_20260823_1200", nil
	})
	defer q.Stop()

	first, created := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "retry-key",
	})
	require.True(t, created)
	require.NotNil(t, first)

	require.Eventually(t, func() bool {
		got, ok := q.Get(first.ID)
		return ok && got != nil && got.Status == StatusFailed
	}, time.Second, 10*time.Millisecond)

	second, created := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "retry-key",
	})
	require.True(t, created)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	require.Eventually(t, func() bool {
		got, ok := q.Get(second.ID)
		return ok && got != nil && got.Status == StatusSuccess && got.RunName != ""
	}, time.Second, 10*time.Millisecond)
}

func TestQueue_SuccessRecordsRunName(t *testing.T) {
	q := NewQueue(1, nil)
	q.Start(func(_ context.Context, job *AnalysisJob) (string, error) {
		return "rarelabels_all_20260823_1200", nil
	})
	defer q.Stop()

	job, created := q.Enqueue(EnqueueRequest{
		Source:  "manual",
		Payload: JobPayload{Analysis: AnalysisRareLabels, Threshold: 30},
	})
	require.True(t, created)

	require.Eventually(t, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)

	got, ok := q.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, "rarelabels_all_20260823_1200", got.RunName)
}

func TestQueue_SkippedExecutorMarksJobSkipped(t *testing.T) {
	q := NewQueue(1, nil)
	q.Start(func(_ context.Context, _ *AnalysisJob) (string, error) {
		return "", fmt.Errorf("%w: nothing to classify", ErrSkipped)
	})
	defer q.Stop()

	job, created := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "skip-key",
		Payload:   JobPayload{Analysis: AnalysisGlobalEdits},
	})
	require.True(t, created)

	require.Eventually(t, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Status == StatusSkipped
	}, time.Second, 10*time.Millisecond)

	got, ok := q.Get(job.ID)
	require.True(t, ok)
	assert.Contains(t, got.Error, "nothing to classify")
	assert.Empty(t, got.RunName)

	// skipped is terminal, the dedupe key is free again
	_, created = q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "skip-key"})
	assert.True(t, created)
}

func TestQueue_ListNewestFirst(t *testing.T) {
	q := NewQueue(1, nil)

	q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "a"})
	q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "b"})

	listed := q.List()
	require.Len(t, listed, 2)
	assert.Equal(t, "job-2", listed[0].ID)
	assert.Equal(t, "job-1", listed[1].ID)
}
