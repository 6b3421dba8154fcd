package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/lumivid/camreview/internal/config"
	"github.com/lumivid/camreview/internal/dataset"
	"github.com/lumivid/camreview/internal/globaledit"
	"github.com/lumivid/camreview/internal/httpapi"
	"github.com/lumivid/camreview/internal/jobs"
	"github.com/lumivid/camreview/internal/llm"
	"github.com/lumivid/camreview/internal/persistence"
	"github.com/lumivid/camreview/internal/service"
	"github.com/lumivid/camreview/pkg/log"
)

type auditScheduler interface {
	Schedule() error
	CatchUp(lastRun time.Time)
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	// .env is optional, environment variables win either way
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	store, err := persistence.NewSQLiteStore(cfg.Data.DBPath)
	if err != nil {
		log.Fatal("Failed to open state store: %v", err)
	}
	defer store.Close()

	var chatter globaledit.Chatter
	if cfg.LLM.APIKey != "" {
		client, err := llm.NewClient(&llm.Config{
			APIKey:      cfg.LLM.APIKey,
			APIURL:      cfg.LLM.APIURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		})
		if err != nil {
			log.Fatal("Failed to create LLM client: %v", err)
		}
		chatter = client
	} else {
		log.Warn("LLM_API_KEY is not set, the global-edit analysis is disabled")
	}

	queue := jobs.NewQueue(cfg.Analysis.Workers, store)
	svc := service.New(cfg, store, chatter)
	queue.Start(svc.Execute)
	defer queue.Stop()

	annotations := dataset.NewStore(cfg.Data.AnnotationsDir)
	scanner := dataset.NewScanner(cfg.Data.DataDir, annotations)
	server := httpapi.NewServer(
		scanner,
		annotations,
		queue,
		cfg.Data.ReportDir,
		httpapi.WithUI(cfg.HTTP.UIDir, cfg.HTTP.UIEnabled),
		httpapi.WithRunStore(store),
		httpapi.WithVideoDir(cfg.Data.VideoDir),
		httpapi.WithJobDefaults(jobs.JobPayload{
			ExportFile: cfg.Data.ExportFile,
			TargetUser: cfg.Analysis.AuditTargetUser,
			Threshold:  cfg.Analysis.RareLabelThreshold,
		}),
		httpapi.WithTaxonomy(httpapi.TaxonomyConfig{
			LabelsDir:   cfg.Data.LabelsDir,
			TasksFile:   cfg.Data.TasksFile,
			NameMapping: cfg.Data.NameMapping,
		}),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine := cron.New(cron.WithLocation(cfg.Location()))
	scheduler := service.NewScheduler(cfg, queue, engine)
	if err := runWithComponents(ctx, cfg, scheduler, lastAuditTime(store), engine, server); err != nil {
		log.Fatal("Service failed: %v", err)
	}
}

// runWithComponents wires the scheduler, cron engine, and HTTP server
// together and blocks until the context is cancelled or the server fails.
func runWithComponents(
	ctx context.Context,
	cfg *config.Config,
	scheduler auditScheduler,
	lastAudit time.Time,
	engine cronEngine,
	server httpServer,
) error {
	if err := scheduler.Schedule(); err != nil {
		return err
	}
	scheduler.CatchUp(lastAudit)

	engine.Start()
	defer engine.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.HTTP.Addr)
		err := server.ListenAndServe(cfg.HTTP.Addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// lastAuditTime finds when the most recent direct-edit audit ran, zero when
// none has.
func lastAuditTime(store *persistence.SQLiteStore) time.Time {
	runs, err := store.ListRuns(context.Background(), jobs.AnalysisDirectEdits)
	if err != nil || len(runs) == 0 {
		return time.Time{}
	}
	return runs[0].CreatedAt
}
