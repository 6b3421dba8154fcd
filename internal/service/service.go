// Package service wires the analysis executors behind the job queue: each
// queued job loads its inputs, produces a report run directory, and records
// the run in the durable index.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lumivid/camreview/internal/audit"
	"github.com/lumivid/camreview/internal/config"
	"github.com/lumivid/camreview/internal/export"
	"github.com/lumivid/camreview/internal/globaledit"
	"github.com/lumivid/camreview/internal/jobs"
	"github.com/lumivid/camreview/internal/labelstats"
	"github.com/lumivid/camreview/internal/persistence"
	"github.com/lumivid/camreview/internal/report"
	"github.com/lumivid/camreview/internal/taxonomy"
	"github.com/lumivid/camreview/pkg/log"
)

type runRecorder interface {
	RecordRun(ctx context.Context, run persistence.AnalysisRun) error
}

// Service executes analysis jobs. Its Execute method satisfies jobs.Executor.
type Service struct {
	cfg     *config.Config
	runs    runRecorder
	chatter globaledit.Chatter
}

// New builds a Service. runs and chatter may be nil; without a chatter the
// global-edit analysis fails with a configuration error.
func New(cfg *config.Config, runs runRecorder, chatter globaledit.Chatter) *Service {
	return &Service{
		cfg:     cfg,
		runs:    runs,
		chatter: chatter,
	}
}

// Execute runs one analysis job and returns the produced run name.
func (s *Service) Execute(ctx context.Context, job *jobs.AnalysisJob) (string, error) {
	if job == nil {
		return "", fmt.Errorf("job is nil")
	}
	log.Info("Executing %s analysis job %s", job.Payload.Analysis, job.ID)

	switch job.Payload.Analysis {
	case jobs.AnalysisDirectEdits:
		return s.runDirectEdits(ctx, job.Payload)
	case jobs.AnalysisRareLabels:
		return s.runRareLabels(ctx, job.Payload)
	case jobs.AnalysisGlobalEdits:
		return s.runGlobalEdits(ctx, job.Payload)
	case jobs.AnalysisMostlyStatic:
		return s.runMostlyStatic(ctx, job.Payload)
	default:
		return "", fmt.Errorf("unknown analysis kind: %q", job.Payload.Analysis)
	}
}

func (s *Service) runDirectEdits(ctx context.Context, payload jobs.JobPayload) (string, error) {
	targetUser := strings.TrimSpace(payload.TargetUser)
	if targetUser == "" {
		return "", fmt.Errorf("target user is required for the direct-edit audit")
	}
	exportFile, err := s.exportFile(payload)
	if err != nil {
		return "", err
	}
	records, err := export.Load(exportFile)
	if err != nil {
		return "", err
	}

	batches, err := export.LoadBatchDir(s.cfg.Data.BatchDir)
	if err != nil {
		log.Warn("Continuing without batch mapping: %v", err)
		batches = export.BatchMap{}
	}

	result := audit.Analyze(records, targetUser, batches)
	now := time.Now()
	run, err := report.NewRun(s.cfg.Data.ReportDir, jobs.AnalysisDirectEdits, targetUser, now)
	if err != nil {
		return "", err
	}
	if err := run.WriteMarkdown(audit.WriteReport(result, targetUser, exportFile, now)); err != nil {
		return "", err
	}
	if err := run.WriteSamples(asAny(result.DirectEdits)); err != nil {
		return "", err
	}

	s.recordRun(ctx, run, exportFile, targetUser, len(result.DirectEdits))
	return run.Name, nil
}

func (s *Service) runRareLabels(ctx context.Context, payload jobs.JobPayload) (string, error) {
	if s.cfg.Data.AllLabelsFile == "" {
		return "", fmt.Errorf("CAMREVIEW_ALL_LABELS is not configured")
	}
	stats, err := labelstats.Load(s.cfg.Data.AllLabelsFile)
	if err != nil {
		return "", err
	}

	threshold := payload.Threshold
	if threshold <= 0 {
		threshold = s.cfg.Analysis.RareLabelThreshold
	}
	rare := stats.Rare(threshold)
	total := len(stats.Counts())

	now := time.Now()
	run, err := report.NewRun(s.cfg.Data.ReportDir, jobs.AnalysisRareLabels, "", now)
	if err != nil {
		return "", err
	}
	if err := run.WriteMarkdown(labelstats.WriteReport(rare, total, threshold, s.labelDefinitions(), now)); err != nil {
		return "", err
	}
	if err := run.WriteSamples(asAny(rare)); err != nil {
		return "", err
	}

	if s.cfg.Data.VideoDir != "" {
		labels, copied, err := stats.CollectVideos(s.cfg.Data.VideoDir, filepath.Join(run.Dir(), "videos"), threshold)
		if err != nil {
			log.Warn("Failed to collect rare-label videos: %v", err)
		} else {
			log.Info("Collected %d videos across %d rare labels", copied, labels)
		}
	}

	s.recordRun(ctx, run, s.cfg.Data.AllLabelsFile, "", len(rare))
	return run.Name, nil
}

func (s *Service) runGlobalEdits(ctx context.Context, payload jobs.JobPayload) (string, error) {
	if s.chatter == nil {
		return "", fmt.Errorf("LLM client is not configured, set LLM_API_KEY")
	}
	exportFile, err := s.exportFile(payload)
	if err != nil {
		return "", err
	}
	records, err := export.Load(exportFile)
	if err != nil {
		return "", err
	}

	candidates := globaledit.Candidates(records)
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no eligible feedback candidates in %s", jobs.ErrSkipped, exportFile)
	}
	log.Info("Classifying %d global-edit candidates", len(candidates))
	classified := globaledit.Classify(ctx, s.chatter, candidates, s.cfg.Analysis.Workers)

	now := time.Now()
	run, err := report.NewRun(s.cfg.Data.ReportDir, jobs.AnalysisGlobalEdits, "", now)
	if err != nil {
		return "", err
	}
	markdown := globaledit.WriteReport(classified, countApprovedRejected(records), exportFile, now)
	if err := run.WriteMarkdown(markdown); err != nil {
		return "", err
	}
	if err := run.WriteSamples(asAny(classified)); err != nil {
		return "", err
	}

	var yes int
	for _, sample := range classified {
		if sample.Label == globaledit.LabelYes {
			yes++
		}
	}
	s.recordRun(ctx, run, exportFile, "", yes)
	return run.Name, nil
}

func (s *Service) runMostlyStatic(ctx context.Context, payload jobs.JobPayload) (string, error) {
	exportFile, err := s.exportFile(payload)
	if err != nil {
		return "", err
	}
	records, err := export.Load(exportFile)
	if err != nil {
		return "", err
	}

	result := audit.MostlyStatic(records)
	now := time.Now()
	run, err := report.NewRun(s.cfg.Data.ReportDir, jobs.AnalysisMostlyStatic, "", now)
	if err != nil {
		return "", err
	}
	if err := run.WriteMarkdown(audit.WriteStaticReport(result, exportFile, now)); err != nil {
		return "", err
	}
	if err := run.WriteSamples(asAny(result.Added)); err != nil {
		return "", err
	}

	s.recordRun(ctx, run, exportFile, "", len(result.Added))
	return run.Name, nil
}

func (s *Service) exportFile(payload jobs.JobPayload) (string, error) {
	if payload.ExportFile != "" {
		return payload.ExportFile, nil
	}
	if s.cfg.Data.ExportFile != "" {
		return s.cfg.Data.ExportFile, nil
	}
	return "", fmt.Errorf("no export file: set CAMREVIEW_EXPORT_FILE or pass one in the job payload")
}

// labelDefinitions walks the taxonomy trees and maps full label keys to their
// definition prompts. Returns nil when no labels directory is configured.
func (s *Service) labelDefinitions() map[string]string {
	if s.cfg.Data.LabelsDir == "" {
		return nil
	}
	primitives, err := taxonomy.WalkCollections(s.cfg.Data.LabelsDir, taxonomy.Collections)
	if err != nil {
		log.Warn("Failed to walk label collections: %v", err)
		return nil
	}
	definitions := make(map[string]string, len(primitives))
	for key, primitive := range primitives {
		definitions[key] = primitive.DefPrompt
	}
	return definitions
}

func (s *Service) recordRun(ctx context.Context, run *report.Run, exportFile, targetUser string, sampleCount int) {
	if s.runs == nil {
		return
	}
	err := s.runs.RecordRun(ctx, persistence.AnalysisRun{
		RunName:     run.Name,
		Analysis:    run.Analysis,
		Slug:        run.Slug,
		ExportFile:  exportFile,
		TargetUser:  targetUser,
		SampleCount: sampleCount,
		CreatedAt:   run.CreatedAt,
	})
	if err != nil {
		log.Error("Failed to record run %s: %v", run.Name, err)
	}
}

func countApprovedRejected(records []export.VideoRecord) int {
	count := 0
	for _, flat := range export.Flatten(records) {
		if flat.Entry.Status == "approved" || flat.Entry.Status == "rejected" {
			count++
		}
	}
	return count
}

func asAny[T any](items []T) []any {
	ret := make([]any, 0, len(items))
	for _, item := range items {
		ret = append(ret, item)
	}
	return ret
}
