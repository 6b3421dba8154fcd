package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lumivid/camreview/internal/jobs"
)

// jobStreamEvent is one queue snapshot pushed to the viewer. Active counts
// the jobs still pending or running so the UI can show a badge without
// walking the list.
type jobStreamEvent struct {
	Jobs   []*jobs.AnalysisJob `json:"jobs"`
	Active int                 `json:"active"`
}

// handleJobStream streams queue snapshots as server-sent "jobs" events once a
// second. Ticks where nothing changed are not re-sent.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var last []byte
	send := func() bool {
		listed := s.queue.List()
		active := 0
		for _, job := range listed {
			if job.Status == jobs.StatusPending || job.Status == jobs.StatusRunning {
				active++
			}
		}
		payload, err := json.Marshal(jobStreamEvent{Jobs: listed, Active: active})
		if err != nil {
			return false
		}
		if bytes.Equal(payload, last) {
			return true
		}
		last = payload
		if _, err := fmt.Fprintf(w, "event: jobs\ndata: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send() {
		return
	}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if !send() {
				return
			}
		}
	}
}
