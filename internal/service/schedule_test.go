package service

import (
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumivid/camreview/internal/jobs"
)

func TestScheduler_Schedule_RegistersCronEntry(t *testing.T) {
	cfg := testConfig(t)
	c := cron.New()
	scheduler := NewScheduler(cfg, jobs.NewQueue(1, nil), c)

	require.NoError(t, scheduler.Schedule())
	assert.Len(t, c.Entries(), 1)
}

func TestScheduler_Schedule_SkipsWithoutTargetUser(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.AuditTargetUser = ""
	c := cron.New()
	scheduler := NewScheduler(cfg, jobs.NewQueue(1, nil), c)

	require.NoError(t, scheduler.Schedule())
	assert.Empty(t, c.Entries())
}

func TestScheduler_EnqueueAudit_Dedupes(t *testing.T) {
	cfg := testConfig(t)
	queue := jobs.NewQueue(1, nil)
	scheduler := NewScheduler(cfg, queue, cron.New())

	scheduler.EnqueueAudit("cron")
	scheduler.EnqueueAudit("cron")

	listed := queue.List()
	require.Len(t, listed, 1)
	assert.Equal(t, jobs.AnalysisDirectEdits, listed[0].Payload.Analysis)
	assert.Equal(t, "alice", listed[0].Payload.TargetUser)
}

func TestScheduler_CatchUp_FirstRunEnqueues(t *testing.T) {
	cfg := testConfig(t)
	queue := jobs.NewQueue(1, nil)
	scheduler := NewScheduler(cfg, queue, cron.New())

	scheduler.CatchUp(time.Time{})
	assert.Len(t, queue.List(), 1)
}

func TestScheduler_CatchUp_RecentRunDoesNotEnqueue(t *testing.T) {
	cfg := testConfig(t)
	queue := jobs.NewQueue(1, nil)
	scheduler := NewScheduler(cfg, queue, cron.New())

	// a run newer than the last daily trigger means nothing was missed
	scheduler.CatchUp(time.Now())
	assert.Empty(t, queue.List())
}

func TestScheduler_CatchUp_MissedTriggerEnqueues(t *testing.T) {
	cfg := testConfig(t)
	queue := jobs.NewQueue(1, nil)
	scheduler := NewScheduler(cfg, queue, cron.New())

	scheduler.CatchUp(time.Now().Add(-48 * time.Hour))
	assert.Len(t, queue.List(), 1)
}
