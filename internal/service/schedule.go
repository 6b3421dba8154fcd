package service

import (
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/lumivid/camreview/internal/config"
	"github.com/lumivid/camreview/internal/jobs"
	"github.com/lumivid/camreview/pkg/icron"
	"github.com/lumivid/camreview/pkg/log"
)

// Scheduler enqueues the recurring direct-edit audit on the configured cron
// expression. The queue already dedupes by key, but singleflight keeps
// overlapping cron fires from even reaching it.
type Scheduler struct {
	cfg   *config.Config
	queue *jobs.Queue
	cron  *cron.Cron
}

var scheduleGroup singleflight.Group

func NewScheduler(cfg *config.Config, queue *jobs.Queue, c *cron.Cron) *Scheduler {
	return &Scheduler{
		cfg:   cfg,
		queue: queue,
		cron:  c,
	}
}

// Schedule registers the cron trigger. Without an audit target user there is
// nothing to schedule.
func (s *Scheduler) Schedule() error {
	if s.cfg.Analysis.AuditTargetUser == "" {
		log.Warn("AUDIT_TARGET_USER is not set, skipping the scheduled audit")
		return nil
	}
	log.Info("Scheduling direct-edit audit for %s with cron %q", s.cfg.Analysis.AuditTargetUser, s.cfg.Analysis.CronExpr)
	_, err := s.cron.AddFunc(s.cfg.Analysis.CronExpr, s.trigger)
	return err
}

// CatchUp enqueues one audit at startup when the cron fired while the process
// was down. lastRun is the creation time of the most recent audit run, zero
// when none exists yet.
func (s *Scheduler) CatchUp(lastRun time.Time) {
	if s.cfg.Analysis.AuditTargetUser == "" {
		return
	}
	if lastRun.IsZero() {
		s.EnqueueAudit("cron")
		return
	}
	due, err := icron.Due(s.cfg.Analysis.CronExpr, lastRun, time.Now())
	if err != nil {
		log.Error("Failed to evaluate cron expression %q: %v", s.cfg.Analysis.CronExpr, err)
		return
	}
	if due {
		log.Info("Missed scheduled audit since %s, catching up", lastRun.Format(time.RFC3339))
		s.EnqueueAudit("cron")
	}
}

func (s *Scheduler) trigger() {
	_, _, _ = scheduleGroup.Do("audit", func() (any, error) {
		s.EnqueueAudit("cron")
		return nil, nil
	})
}

// EnqueueAudit queues a direct-edit audit for the configured target user.
func (s *Scheduler) EnqueueAudit(source string) {
	payload := jobs.JobPayload{
		Analysis:   jobs.AnalysisDirectEdits,
		ExportFile: s.cfg.Data.ExportFile,
		TargetUser: s.cfg.Analysis.AuditTargetUser,
	}
	job, created := s.queue.Enqueue(jobs.EnqueueRequest{
		Source:    source,
		DedupeKey: payload.Analysis + "|" + payload.ExportFile + "|" + payload.TargetUser,
		Payload:   payload,
	})
	if created {
		log.Info("Enqueued scheduled audit job %s", job.ID)
	} else {
		log.Info("Scheduled audit already queued as job %s", job.ID)
	}
}
