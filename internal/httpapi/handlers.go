package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/lumivid/camreview/internal/dataset"
	"github.com/lumivid/camreview/internal/jobs"
	"github.com/lumivid/camreview/internal/report"
	"github.com/lumivid/camreview/pkg/file"
)

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	infos, err := s.scanner.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleDataset dispatches the per-dataset routes:
//
//	GET  /api/datasets/{name}
//	GET  /api/datasets/{name}/stats
//	GET  /api/datasets/{name}/samples/{index}
//	GET  /api/datasets/{name}/annotations/{index}
//	POST /api/datasets/{name}/annotations/{index}
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/datasets/"), "/")
	parts := strings.Split(rest, "/")
	name := parts[0]
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing dataset name")
		return
	}

	switch {
	case len(parts) == 1:
		s.handleGetDataset(w, r, name)
	case len(parts) == 2 && parts[1] == "stats":
		s.handleDatasetStats(w, r, name)
	case len(parts) == 3 && parts[1] == "samples":
		s.handleGetSample(w, r, name, parts[2])
	case len(parts) == 3 && parts[1] == "annotations":
		s.handleAnnotation(w, r, name, parts[2])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	loaded, err := s.scanner.Load(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, loaded)
}

func (s *Server) handleDatasetStats(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	loaded, err := s.scanner.Load(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	annotations, err := s.annotations.All(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dataset.ComputeStats(loaded.Samples, annotations))
}

type sampleResponse struct {
	DatasetName string          `json:"dataset_name"`
	Split       string          `json:"split"`
	Index       int             `json:"index"`
	Sample      dataset.Sample  `json:"sample"`
	Annotation  json.RawMessage `json:"annotation"`
}

func (s *Server) handleGetSample(w http.ResponseWriter, r *http.Request, name, indexRaw string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	index, err := strconv.Atoi(indexRaw)
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid sample index")
		return
	}
	loaded, err := s.scanner.Load(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if index >= len(loaded.Samples) {
		writeError(w, http.StatusNotFound, "sample index out of range")
		return
	}
	annotation, err := s.annotations.GetRaw(name, index)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sampleResponse{
		DatasetName: loaded.DatasetName,
		Split:       loaded.Split,
		Index:       index,
		Sample:      loaded.Samples[index],
		Annotation:  annotation,
	})
}

func (s *Server) handleAnnotation(w http.ResponseWriter, r *http.Request, name, indexRaw string) {
	index, err := strconv.Atoi(indexRaw)
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid sample index")
		return
	}

	switch r.Method {
	case http.MethodGet:
		raw, err := s.annotations.GetRaw(name, index)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if raw == nil {
			writeError(w, http.StatusNotFound, "no annotation saved")
			return
		}
		writeJSON(w, http.StatusOK, json.RawMessage(raw))
	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read body")
			return
		}
		if err := s.annotations.Save(name, index, body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// completed counts changed, drop the dataset listing cache
		s.scanner.Invalidate()
		writeJSON(w, http.StatusOK, map[string]any{
			"ok": true,
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type runResponse struct {
	*report.Run
	TargetUser  string `json:"target_user,omitempty"`
	SampleCount int    `json:"sample_count"`
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	analysis := r.URL.Query().Get("analysis")
	runs, err := report.List(s.reportDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	recorded := make(map[string]runResponse)
	if s.runs != nil {
		persisted, err := s.runs.ListRuns(r.Context(), analysis)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, run := range persisted {
			recorded[run.RunName] = runResponse{TargetUser: run.TargetUser, SampleCount: run.SampleCount}
		}
	}

	ret := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		if analysis != "" && run.Analysis != analysis {
			continue
		}
		item := runResponse{Run: run}
		if meta, ok := recorded[run.Name]; ok {
			item.TargetUser = meta.TargetUser
			item.SampleCount = meta.SampleCount
		}
		ret = append(ret, item)
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleReport serves one run:
//
//	GET /api/reports/{run}       report metadata plus raw markdown
//	GET /api/reports/{run}/html  rendered HTML fragment
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/reports/"), "/")
	wantHTML := strings.HasSuffix(rest, "/html")
	name := strings.TrimSuffix(rest, "/html")
	name = strings.TrimSuffix(name, "/")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing run name")
		return
	}

	run, err := report.Open(s.reportDir, name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	markdown, err := run.Markdown()
	if err != nil {
		writeError(w, http.StatusNotFound, "report document missing")
		return
	}

	if wantHTML {
		html, err := report.RenderHTML(markdown)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(html))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run":      run,
		"markdown": markdown,
	})
}

type enqueueJobRequest struct {
	Source     string `json:"source"`
	DedupeKey  string `json:"dedupe_key"`
	Analysis   string `json:"analysis"`
	ExportFile string `json:"export_file"`
	TargetUser string `json:"target_user"`
	Threshold  int    `json:"threshold"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.queue.List())
	case http.MethodPost:
		var req enqueueJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.Source == "" {
			req.Source = "manual"
		}
		if !validAnalysis(req.Analysis) {
			writeError(w, http.StatusBadRequest, "unknown analysis kind")
			return
		}

		payload := jobs.JobPayload{
			Analysis:   req.Analysis,
			ExportFile: req.ExportFile,
			TargetUser: req.TargetUser,
			Threshold:  req.Threshold,
		}
		if payload.ExportFile == "" {
			payload.ExportFile = s.jobDefaults.ExportFile
		}
		if payload.TargetUser == "" {
			payload.TargetUser = s.jobDefaults.TargetUser
		}
		if payload.Threshold <= 0 {
			payload.Threshold = s.jobDefaults.Threshold
		}
		if req.DedupeKey == "" {
			req.DedupeKey = payload.Analysis + "|" + payload.ExportFile + "|" + payload.TargetUser
		}

		job, created := s.queue.Enqueue(jobs.EnqueueRequest{
			Source:    req.Source,
			DedupeKey: req.DedupeKey,
			Payload:   payload,
		})
		code := http.StatusCreated
		if !created {
			code = http.StatusOK
		}
		writeJSON(w, code, map[string]any{
			"created": created,
			"job":     job,
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func validAnalysis(analysis string) bool {
	switch analysis {
	case jobs.AnalysisDirectEdits, jobs.AnalysisRareLabels, jobs.AnalysisGlobalEdits, jobs.AnalysisMostlyStatic:
		return true
	default:
		return false
	}
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.scanner.Invalidate()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"ok": true,
	})
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.videoDir == "" {
		writeError(w, http.StatusNotImplemented, "video directory is not configured")
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/videos/")
	if decoded, err := url.PathUnescape(rel); err == nil {
		rel = decoded
	}
	full, err := file.SafeChild(s.videoDir, rel)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid video path")
		return
	}
	if info, err := os.Stat(full); err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	http.ServeFile(w, r, full)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
