package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumivid/camreview/internal/taxonomy"
)

func taxonomyFixture(t *testing.T) TaxonomyConfig {
	t.Helper()
	root := t.TempDir()

	panDir := filepath.Join(root, "labels", "cam_motion", "pan")
	require.NoError(t, os.MkdirAll(panDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(panDir, "pan_left.json"), []byte(`{
		"label_name": "Pan Left",
		"label": "pan_left",
		"def_question": ["Does the camera pan left?"],
		"def_prompt": ["The camera pans left."]
	}`), 0o644))

	setupDir := filepath.Join(root, "labels", "cam_setup")
	require.NoError(t, os.MkdirAll(setupDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(setupDir, "overlays.json"), []byte(`{
		"def_question": ["Are there overlays on the video?"],
		"def_prompt": ["The video has overlays."]
	}`), 0o644))

	tasksFile := filepath.Join(root, "tasks.json")
	require.NoError(t, os.WriteFile(tasksFile, []byte(`{
		"movement": [
			{
				"name": "pan_left",
				"pos": {"label": "pan_left", "type": "pos"},
				"neg": {"label": "pan_left", "type": "neg"},
				"pos_question": "Does the camera pan left?",
				"pos_prompt": "The camera pans left."
			}
		]
	}`), 0o644))

	mappingFile := filepath.Join(root, "mapping.json")
	require.NoError(t, os.WriteFile(mappingFile, []byte(`{
		"Pan Left": "pan_left",
		"Zoom In": "zoom_in"
	}`), 0o644))

	return TaxonomyConfig{
		LabelsDir:   filepath.Join(root, "labels"),
		TasksFile:   tasksFile,
		NameMapping: mappingFile,
	}
}

func getTaxonomy(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_TaxonomyHierarchy(t *testing.T) {
	srv, _ := newTestServer(t, WithTaxonomy(taxonomyFixture(t)))

	rec := getTaxonomy(t, srv, "/api/taxonomy/hierarchy")
	require.Equal(t, http.StatusOK, rec.Code)

	var hierarchy taxonomy.Hierarchy
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hierarchy))
	require.Len(t, hierarchy["cam_motion"]["pan"], 1)
	assert.Equal(t, "cam_motion.pan.pan_left", hierarchy["cam_motion"]["pan"][0].FullKey)
	// top-level primitive lands under the root aspect with a derived name
	require.Len(t, hierarchy["cam_setup"]["root"], 1)
	assert.Equal(t, "Overlays", hierarchy["cam_setup"]["root"][0].LabelName)
}

func TestServer_TaxonomyMapping(t *testing.T) {
	srv, _ := newTestServer(t, WithTaxonomy(taxonomyFixture(t)))

	rec := getTaxonomy(t, srv, "/api/taxonomy/mapping")
	require.Equal(t, http.StatusOK, rec.Code)

	var mapping map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mapping))
	assert.Equal(t, "cam_motion.pan.pan_left", mapping["Pan Left"])
	assert.Equal(t, "cam_setup.overlays", mapping["Overlays"])
}

func TestServer_TaxonomyClassifiers(t *testing.T) {
	srv, _ := newTestServer(t, WithTaxonomy(taxonomyFixture(t)))

	rec := getTaxonomy(t, srv, "/api/taxonomy/classifiers")
	require.Equal(t, http.StatusOK, rec.Code)

	var extraction taxonomy.Extraction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &extraction))
	require.Contains(t, extraction.Atomic, "pan_left")
	assert.Equal(t, "movement.pan_left", extraction.Atomic["pan_left"].ClassifierName)
	assert.Empty(t, extraction.Composite)
}

func TestServer_TaxonomyCompare(t *testing.T) {
	srv, _ := newTestServer(t, WithTaxonomy(taxonomyFixture(t)))

	rec := getTaxonomy(t, srv, "/api/taxonomy/compare")
	require.Equal(t, http.StatusOK, rec.Code)

	var comparison taxonomy.Comparison
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comparison))
	assert.Equal(t, []string{"pan_left"}, comparison.InBoth)
	assert.Equal(t, []string{"zoom_in"}, comparison.OnlyInPrevious)
	assert.Empty(t, comparison.OnlyInNew)
}

func TestServer_Taxonomy_Unconfigured(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := getTaxonomy(t, srv, "/api/taxonomy/hierarchy")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = getTaxonomy(t, srv, "/api/taxonomy/classifiers")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestServer_Taxonomy_UnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t, WithTaxonomy(taxonomyFixture(t)))

	rec := getTaxonomy(t, srv, "/api/taxonomy/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
