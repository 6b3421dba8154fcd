package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ListFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "export.json", `[
		{"video_id": "vid-1", "video_url": "http://cdn/vid-1.mp4", "captions": {
			"subject_description": {"status": "approved", "caption_data": {
				"user": "Alice", "final_caption": "A woman walks.", "gpt_caption": "A woman walks.",
				"initial_caption_rating_score": 4
			}}
		}}
	]`)

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "vid-1", records[0].VideoID)

	entry := records[0].Captions["subject_description"]
	require.NotNil(t, entry.CaptionData)
	assert.Equal(t, "Alice", entry.CaptionData.User)
	require.NotNil(t, entry.CaptionData.InitialRating)
	assert.Equal(t, 4, *entry.CaptionData.InitialRating)
}

func TestLoad_KeyedFormatSortedAndBackfillsID(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "export.json", `{
		"vid-b": {"video_url": "http://cdn/b.mp4", "captions": {}},
		"vid-a": {"video_url": "http://cdn/a.mp4", "captions": {}}
	}`)

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "vid-a", records[0].VideoID)
	assert.Equal(t, "vid-b", records[1].VideoID)
}

func TestLoad_RejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "export.json", `{"vid": `)

	_, err := Load(path)
	require.Error(t, err)
}

func TestFlatten_SkipsEntriesWithoutCaptionData(t *testing.T) {
	records := []VideoRecord{
		{
			VideoID: "vid-1",
			Captions: map[string]CaptionEntry{
				"subject_description": {Status: "approved", CaptionData: &CaptionData{User: "Alice"}},
				"camera_framing":      {Status: "pending"},
			},
		},
	}

	flat := Flatten(records)
	require.Len(t, flat, 1)
	assert.Equal(t, "subject_description", flat[0].CaptionType)
	assert.Equal(t, "Alice", flat[0].Entry.CaptionData.User)
}
