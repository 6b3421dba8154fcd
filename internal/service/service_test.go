package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumivid/camreview/internal/config"
	"github.com/lumivid/camreview/internal/jobs"
	"github.com/lumivid/camreview/internal/persistence"
	"github.com/lumivid/camreview/internal/report"
)

const exportFixture = `[
  {
    "video_id": "v1",
    "video_url": "http://cdn.example/v1.mp4",
    "captions": {
      "subject_motion": {
        "status": "approved",
        "caption_data": {
          "user": "alice",
          "pre_caption": "A dog in a yard.",
          "initial_feedback": "mention the motion",
          "final_feedback": "the scene is mostly static overall",
          "gpt_caption": "A brown dog runs across the yard.",
          "final_caption": "A brown dog stands in a mostly static yard.",
          "initial_caption_rating_score": 3,
          "workflow_type": "feedback",
          "timestamp": "2026-08-20T10:00:00"
        }
      }
    }
  },
  {
    "video_id": "v2",
    "video_url": "http://cdn.example/v2.mp4",
    "captions": {
      "camera_motion": {
        "status": "approved",
        "caption_data": {
          "user": "bob",
          "pre_caption": "The camera pans left slowly.",
          "initial_feedback": "",
          "final_feedback": "Use present tense everywhere",
          "gpt_caption": "The camera pans left.",
          "final_caption": "The camera pans left then tilts.",
          "initial_caption_rating_score": 4,
          "workflow_type": "feedback",
          "timestamp": "2026-08-21T09:00:00"
        }
      }
    }
  }
]`

const allLabelsFixture = `{
  "cam_motion.pan.pan_left": {"pos": ["clip_a.mp4", "clip_b.mp4"], "neg": ["clip_c.mp4"]},
  "cam_motion.pan.pan_right": {"pos": [], "neg": ["clip_a.mp4"]},
  "cam_setup.overlays": {"pos": ["clip_c.mp4"], "neg": []}
}`

type recordedRuns struct {
	runs []persistence.AnalysisRun
}

func (r *recordedRuns) RecordRun(_ context.Context, run persistence.AnalysisRun) error {
	r.runs = append(r.runs, run)
	return nil
}

type fakeChatter struct {
	response string
}

func (f *fakeChatter) SimpleChat(_ context.Context, _ string, _ string) (string, error) {
	return f.response, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmp := t.TempDir()

	exportPath := filepath.Join(tmp, "export.json")
	require.NoError(t, os.WriteFile(exportPath, []byte(exportFixture), 0o644))
	labelsPath := filepath.Join(tmp, "all_labels.json")
	require.NoError(t, os.WriteFile(labelsPath, []byte(allLabelsFixture), 0o644))

	return &config.Config{
		Data: config.DataConfig{
			ExportFile:    exportPath,
			AllLabelsFile: labelsPath,
			ReportDir:     filepath.Join(tmp, "reports"),
		},
		Analysis: config.AnalysisConfig{
			RareLabelThreshold: 30,
			Workers:            2,
			CronExpr:           "0 0 * * *",
			AuditTargetUser:    "alice",
		},
	}
}

func TestService_DirectEdits_ProducesRun(t *testing.T) {
	cfg := testConfig(t)
	recorder := &recordedRuns{}
	svc := New(cfg, recorder, nil)

	runName, err := svc.Execute(context.Background(), &jobs.AnalysisJob{
		ID:      "job-1",
		Payload: jobs.JobPayload{Analysis: jobs.AnalysisDirectEdits, TargetUser: "alice"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(runName, "directedits_alice_"), "unexpected run name %s", runName)

	run, err := report.Open(cfg.Data.ReportDir, runName)
	require.NoError(t, err)
	markdown, err := run.Markdown()
	require.NoError(t, err)
	assert.Contains(t, markdown, "Direct Caption Edit Detection Report")
	assert.Contains(t, markdown, "alice")

	samples, err := os.ReadFile(filepath.Join(run.Dir(), report.SamplesFile))
	require.NoError(t, err)
	assert.Contains(t, string(samples), `"video_id":"v1"`)

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, runName, recorder.runs[0].RunName)
	assert.Equal(t, "alice", recorder.runs[0].TargetUser)
	assert.Equal(t, 1, recorder.runs[0].SampleCount)
}

func TestService_DirectEdits_RequiresTargetUser(t *testing.T) {
	svc := New(testConfig(t), nil, nil)

	_, err := svc.Execute(context.Background(), &jobs.AnalysisJob{
		Payload: jobs.JobPayload{Analysis: jobs.AnalysisDirectEdits},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target user")
}

func TestService_RareLabels_CollectsVideos(t *testing.T) {
	cfg := testConfig(t)
	videoDir := filepath.Join(t.TempDir(), "videos")
	require.NoError(t, os.MkdirAll(videoDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(videoDir, "clip_a.mp4"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(videoDir, "clip_c.mp4"), []byte("c"), 0o644))
	cfg.Data.VideoDir = videoDir

	recorder := &recordedRuns{}
	svc := New(cfg, recorder, nil)

	runName, err := svc.Execute(context.Background(), &jobs.AnalysisJob{
		Payload: jobs.JobPayload{Analysis: jobs.AnalysisRareLabels, Threshold: 3},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(runName, "rarelabels_all_"))

	run, err := report.Open(cfg.Data.ReportDir, runName)
	require.NoError(t, err)
	markdown, err := run.Markdown()
	require.NoError(t, err)
	assert.Contains(t, markdown, "cam_motion.pan.pan_left")
	// pan_right has zero positives so it is not rare
	assert.NotContains(t, markdown, "pan_right")

	// positive examples of each rare label are copied next to the report
	_, err = os.Stat(filepath.Join(run.Dir(), "videos", "cam_motion.pan.pan_left", "clip_a.mp4"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(run.Dir(), "videos", "cam_setup.overlays", "clip_c.mp4"))
	require.NoError(t, err)

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, 2, recorder.runs[0].SampleCount)
}

func TestService_GlobalEdits_RequiresLLM(t *testing.T) {
	svc := New(testConfig(t), nil, nil)

	_, err := svc.Execute(context.Background(), &jobs.AnalysisJob{
		Payload: jobs.JobPayload{Analysis: jobs.AnalysisGlobalEdits},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM")
}

func TestService_GlobalEdits_ClassifiesCandidates(t *testing.T) {
	cfg := testConfig(t)
	recorder := &recordedRuns{}
	chatter := &fakeChatter{response: "Rationale: tense fixed across the caption\nClassification: Yes"}
	svc := New(cfg, recorder, chatter)

	runName, err := svc.Execute(context.Background(), &jobs.AnalysisJob{
		Payload: jobs.JobPayload{Analysis: jobs.AnalysisGlobalEdits},
	})
	require.NoError(t, err)

	run, err := report.Open(cfg.Data.ReportDir, runName)
	require.NoError(t, err)
	markdown, err := run.Markdown()
	require.NoError(t, err)
	assert.Contains(t, markdown, "Global Edit")

	samples, err := os.ReadFile(filepath.Join(run.Dir(), report.SamplesFile))
	require.NoError(t, err)
	assert.Contains(t, string(samples), `"video_id":"v2"`)
	assert.Contains(t, string(samples), `"label":"Yes"`)

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, 1, recorder.runs[0].SampleCount)
}

func TestService_GlobalEdits_SkipsWithoutCandidates(t *testing.T) {
	cfg := testConfig(t)
	// only a rating-3 caption, so no global-edit candidates exist
	exportPath := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(exportPath, []byte(`[
	  {
	    "video_id": "v1",
	    "captions": {
	      "scene": {
	        "status": "approved",
	        "caption_data": {
	          "user": "alice",
	          "final_feedback": "minor wording",
	          "final_caption": "A quiet street.",
	          "initial_caption_rating_score": 3
	        }
	      }
	    }
	  }
	]`), 0o644))
	cfg.Data.ExportFile = exportPath

	recorder := &recordedRuns{}
	svc := New(cfg, recorder, &fakeChatter{response: "unused"})

	_, err := svc.Execute(context.Background(), &jobs.AnalysisJob{
		Payload: jobs.JobPayload{Analysis: jobs.AnalysisGlobalEdits},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, jobs.ErrSkipped)
	assert.Empty(t, recorder.runs)
}

func TestService_MostlyStatic(t *testing.T) {
	cfg := testConfig(t)
	recorder := &recordedRuns{}
	svc := New(cfg, recorder, nil)

	runName, err := svc.Execute(context.Background(), &jobs.AnalysisJob{
		Payload: jobs.JobPayload{Analysis: jobs.AnalysisMostlyStatic},
	})
	require.NoError(t, err)

	run, err := report.Open(cfg.Data.ReportDir, runName)
	require.NoError(t, err)
	markdown, err := run.Markdown()
	require.NoError(t, err)
	assert.Contains(t, markdown, "Mostly-Static Critique Report")

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, 1, recorder.runs[0].SampleCount)
}

func TestService_UnknownAnalysis(t *testing.T) {
	svc := New(testConfig(t), nil, nil)

	_, err := svc.Execute(context.Background(), &jobs.AnalysisJob{
		Payload: jobs.JobPayload{Analysis: "mystery"},
	})
	require.Error(t, err)
}
