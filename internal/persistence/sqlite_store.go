package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/lumivid/camreview/internal/jobs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) LoadJobs(ctx context.Context) ([]*jobs.AnalysisJob, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, source, dedupe_key, analysis, export_file, target_user, threshold, status, error, run_name, created_at, updated_at
		 FROM jobs
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*jobs.AnalysisJob, 0)
	for rows.Next() {
		var item jobs.AnalysisJob
		var status string
		if err := rows.Scan(
			&item.ID,
			&item.Source,
			&item.DedupeKey,
			&item.Payload.Analysis,
			&item.Payload.ExportFile,
			&item.Payload.TargetUser,
			&item.Payload.Threshold,
			&status,
			&item.Error,
			&item.RunName,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Status = jobs.Status(status)
		ret = append(ret, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID)
	return err
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, job *jobs.AnalysisJob) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
			id, source, dedupe_key, analysis, export_file, target_user, threshold, status, error, run_name, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source=excluded.source,
			dedupe_key=excluded.dedupe_key,
			analysis=excluded.analysis,
			export_file=excluded.export_file,
			target_user=excluded.target_user,
			threshold=excluded.threshold,
			status=excluded.status,
			error=excluded.error,
			run_name=excluded.run_name,
			updated_at=excluded.updated_at`,
		job.ID,
		job.Source,
		job.DedupeKey,
		job.Payload.Analysis,
		job.Payload.ExportFile,
		job.Payload.TargetUser,
		job.Payload.Threshold,
		string(job.Status),
		job.Error,
		job.RunName,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// RecordRun saves the metadata of a produced report run.
func (s *SQLiteStore) RecordRun(ctx context.Context, run AnalysisRun) error {
	if run.RunName == "" {
		return fmt.Errorf("run name is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO analysis_runs (
			run_name, analysis, slug, export_file, target_user, sample_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_name) DO UPDATE SET
			analysis=excluded.analysis,
			slug=excluded.slug,
			export_file=excluded.export_file,
			target_user=excluded.target_user,
			sample_count=excluded.sample_count`,
		run.RunName,
		run.Analysis,
		run.Slug,
		run.ExportFile,
		run.TargetUser,
		run.SampleCount,
		run.CreatedAt,
	)
	return err
}

// ListRuns returns recorded runs newest first, optionally filtered by
// analysis kind.
func (s *SQLiteStore) ListRuns(ctx context.Context, analysis string) ([]AnalysisRun, error) {
	query := `SELECT run_name, analysis, slug, export_file, target_user, sample_count, created_at
		 FROM analysis_runs`
	args := make([]any, 0, 1)
	if analysis != "" {
		query += ` WHERE analysis = ?`
		args = append(args, analysis)
	}
	query += ` ORDER BY created_at DESC, run_name DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]AnalysisRun, 0)
	for rows.Next() {
		var item AnalysisRun
		if err := rows.Scan(
			&item.RunName,
			&item.Analysis,
			&item.Slug,
			&item.ExportFile,
			&item.TargetUser,
			&item.SampleCount,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
