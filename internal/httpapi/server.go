package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/lumivid/camreview/internal/dataset"
	"github.com/lumivid/camreview/internal/jobs"
	"github.com/lumivid/camreview/internal/persistence"
)

type runLister interface {
	ListRuns(ctx context.Context, analysis string) ([]persistence.AnalysisRun, error)
}

type Server struct {
	scanner     *dataset.Scanner
	annotations *dataset.Store
	queue       *jobs.Queue
	reportDir   string

	runs        runLister
	videoDir    string
	jobDefaults jobs.JobPayload
	taxonomy    TaxonomyConfig

	uiEnabled   bool
	uiStaticDir string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

// WithRunStore wires the durable run index used to enrich report listings.
func WithRunStore(runs runLister) Option {
	return func(s *Server) {
		s.runs = runs
	}
}

// WithVideoDir enables serving raw video files under /videos/.
func WithVideoDir(dir string) Option {
	return func(s *Server) {
		s.videoDir = dir
	}
}

// WithJobDefaults fills missing fields of enqueued job payloads.
func WithJobDefaults(defaults jobs.JobPayload) Option {
	return func(s *Server) {
		s.jobDefaults = defaults
	}
}

func NewServer(scanner *dataset.Scanner, annotations *dataset.Store, queue *jobs.Queue, reportDir string, opts ...Option) *Server {
	s := &Server{
		scanner:     scanner,
		annotations: annotations,
		queue:       queue,
		reportDir:   reportDir,
		uiEnabled:   false,
		mux:         http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/datasets", s.handleListDatasets)
	s.mux.HandleFunc("/api/datasets/", s.handleDataset)
	s.mux.HandleFunc("/api/reports", s.handleListReports)
	s.mux.HandleFunc("/api/reports/", s.handleReport)
	s.mux.HandleFunc("/api/taxonomy/", s.handleTaxonomy)
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/jobs/stream", s.handleJobStream)
	s.mux.HandleFunc("/api/scan", s.handleScan)
	s.mux.HandleFunc("/videos/", s.handleVideo)
	s.mux.HandleFunc("/", s.handleStatic)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		setNoStore(w, "index.html")
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		setNoStore(w, "index.html")
		http.ServeFile(w, r, indexPath)
		return
	}
	setNoStore(w, filePath)
	http.ServeFile(w, r, filePath)
}

// setNoStore disables caching for the frequently edited UI assets so
// annotators always see the current viewer.
func setNoStore(w http.ResponseWriter, filePath string) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".html", ".css", ".js":
		w.Header().Set("Cache-Control", "no-store")
	}
}
