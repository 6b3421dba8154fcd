package httpapi

import (
	"net/http"
	"strings"

	"github.com/lumivid/camreview/internal/taxonomy"
)

// TaxonomyConfig points the taxonomy routes at the label pipeline inputs.
// TasksFile and NameMapping are optional; routes needing them answer 501
// until they are configured.
type TaxonomyConfig struct {
	LabelsDir   string
	TasksFile   string
	NameMapping string
}

// WithTaxonomy enables the /api/taxonomy/ routes.
func WithTaxonomy(cfg TaxonomyConfig) Option {
	return func(s *Server) {
		s.taxonomy = cfg
	}
}

// handleTaxonomy dispatches the taxonomy toolkit routes:
//
//	GET /api/taxonomy/hierarchy    label trees grouped by collection and aspect
//	GET /api/taxonomy/mapping      {label_name: label} over all primitives
//	GET /api/taxonomy/classifiers  classifier labels extracted from the task config
//	GET /api/taxonomy/compare      extraction coverage against the previous mapping
func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/taxonomy/"), "/") {
	case "hierarchy":
		s.handleTaxonomyHierarchy(w)
	case "mapping":
		s.handleTaxonomyMapping(w)
	case "classifiers":
		s.handleTaxonomyClassifiers(w)
	case "compare":
		s.handleTaxonomyCompare(w)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleTaxonomyHierarchy(w http.ResponseWriter) {
	primitives, ok := s.walkPrimitives(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, taxonomy.Organize(primitives))
}

func (s *Server) handleTaxonomyMapping(w http.ResponseWriter) {
	primitives, ok := s.walkPrimitives(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, taxonomy.NameMapping(primitives))
}

func (s *Server) handleTaxonomyClassifiers(w http.ResponseWriter) {
	extraction, ok := s.extractLabels(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, extraction)
}

func (s *Server) handleTaxonomyCompare(w http.ResponseWriter) {
	extraction, ok := s.extractLabels(w)
	if !ok {
		return
	}
	if s.taxonomy.NameMapping == "" {
		writeError(w, http.StatusNotImplemented, "previous name mapping is not configured")
		return
	}
	previous, err := taxonomy.LoadNameMapping(s.taxonomy.NameMapping)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, taxonomy.Compare(extraction, previous))
}

func (s *Server) walkPrimitives(w http.ResponseWriter) (map[string]taxonomy.Primitive, bool) {
	if s.taxonomy.LabelsDir == "" {
		writeError(w, http.StatusNotImplemented, "labels directory is not configured")
		return nil, false
	}
	primitives, err := taxonomy.WalkCollections(s.taxonomy.LabelsDir, taxonomy.Collections)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return primitives, true
}

func (s *Server) extractLabels(w http.ResponseWriter) (taxonomy.Extraction, bool) {
	if s.taxonomy.TasksFile == "" {
		writeError(w, http.StatusNotImplemented, "task config is not configured")
		return taxonomy.Extraction{}, false
	}
	categories, err := taxonomy.LoadTasks(s.taxonomy.TasksFile)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return taxonomy.Extraction{}, false
	}
	return taxonomy.ExtractLabels(categories, nil), true
}
