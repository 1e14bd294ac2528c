package archive

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseai/internal/pose"
)

func sampleRecord() *Record {
	kps := []pose.Keypoint{
		{Name: pose.LeftShoulder, X: 150, Y: 100, Score: 0.9},
		{Name: pose.RightShoulder, X: 50, Y: 130, Score: 0.9},
		{Name: pose.LeftHip, X: 150, Y: 200, Score: 0.9},
		{Name: pose.RightHip, X: 50, Y: 200, Score: 0.9},
	}
	return &Record{
		ID:        NewID(time.Date(2026, 1, 3, 21, 58, 26, 0, time.UTC)),
		CreatedAt: time.Date(2026, 1, 3, 21, 58, 26, 0, time.UTC),
		Provider:  "gemini",
		Width:     200,
		Height:    300,
		Result:    pose.Score(kps, pose.DefaultScoreOptions()),
		Keypoints: kps,
	}
}

func TestNewID(t *testing.T) {
	now := time.Date(2026, 1, 3, 21, 58, 26, 0, time.UTC)
	a, b := NewID(now), NewID(now)
	assert.Regexp(t, `^2026-01-03_21-58-26-[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
}

func TestSaveAndLoad(t *testing.T) {
	store := NewStore(t.TempDir())
	rec := sampleRecord()

	require.NoError(t, store.Save(rec, []byte("jpeg bytes"), ".jpg", image.NewRGBA(image.Rect(0, 0, 4, 4))))
	assert.Equal(t, "input.jpg", rec.Image)
	assert.Equal(t, OverlayFile, rec.Overlay)

	for _, name := range []string{"input.jpg", OverlayFile, AnalysisFile, ReportFile} {
		_, err := os.Stat(filepath.Join(store.Dir(), rec.ID, name))
		assert.NoError(t, err, name)
	}

	loaded, err := store.Load(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Result.Score, loaded.Result.Score)
	assert.Equal(t, rec.Result.Issues, loaded.Result.Issues)
	assert.Equal(t, rec.Keypoints, loaded.Keypoints)
	assert.True(t, rec.CreatedAt.Equal(loaded.CreatedAt))
}

func TestSaveWithoutOverlay(t *testing.T) {
	store := NewStore(t.TempDir())
	rec := sampleRecord()
	require.NoError(t, store.Save(rec, []byte("png"), ".png", nil))
	assert.Empty(t, rec.Overlay)

	_, err := store.File(rec.ID, OverlayFile)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileRejectsTraversal(t *testing.T) {
	store := NewStore(t.TempDir())
	rec := sampleRecord()
	require.NoError(t, store.Save(rec, []byte("png"), ".png", nil))

	path, err := store.File(rec.ID, "input.png")
	require.NoError(t, err)
	assert.FileExists(t, path)

	for _, tc := range []struct{ id, name string }{
		{"..", AnalysisFile},
		{rec.ID, "../" + rec.ID},
		{rec.ID, ".."},
		{rec.ID, ""},
		{"", AnalysisFile},
		{"missing", AnalysisFile},
	} {
		_, err := store.File(tc.id, tc.name)
		assert.ErrorIs(t, err, ErrNotFound, "%q/%q", tc.id, tc.name)
	}

	_, err = store.Load("../etc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRejectsBadID(t *testing.T) {
	store := NewStore(t.TempDir())
	rec := sampleRecord()
	rec.ID = "../escape"
	assert.Error(t, store.Save(rec, nil, ".png", nil))
}

func TestRenderReport(t *testing.T) {
	rec := sampleRecord()
	rec.Image = "input.jpg"
	rec.Overlay = OverlayFile

	var buf bytes.Buffer
	require.NoError(t, RenderReport(&buf, rec))
	html := buf.String()

	assert.Contains(t, html, "Posture Report")
	assert.Contains(t, html, "/report/"+rec.ID+"/input.jpg")
	assert.Contains(t, html, "Left shoulder is higher by 30px")
	assert.Contains(t, html, "Scapular Retractions")
	assert.Contains(t, html, "Left Shoulder")
	assert.Contains(t, html, "Not measured")
}

func TestBuildRegions(t *testing.T) {
	rec := sampleRecord()
	regions := buildRegions(rec)
	require.Len(t, regions, 5)

	byTitle := map[string]region{}
	for _, r := range regions {
		byTitle[r.Title] = r
		assert.NotEmpty(t, r.Icon)
	}
	assert.Len(t, byTitle["Shoulders & Scapulae"].Findings, 1)
	assert.True(t, byTitle["Shoulders & Scapulae"].Measured)
	assert.False(t, byTitle["Head & Neck"].Measured)
	assert.Empty(t, byTitle["Pelvis & Hips"].Findings)
}

func TestRecommendExercises(t *testing.T) {
	res := pose.Result{Solutions: []pose.Solution{
		{Title: "Shoulder alignment", Exercises: []string{"Scapular Retractions", "Upper Trapezius Stretch"}},
		{Title: "Pelvic alignment", Exercises: []string{"Pelvic Tilts", "Scapular Retractions", "Unknown Drill"}},
	}}
	ex := recommendExercises(res)
	names := make([]string, len(ex))
	for i, e := range ex {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"Scapular Retractions", "Upper Trapezius Stretch", "Pelvic Tilts", "Postural Awareness Practice"}, names)

	assert.Empty(t, recommendExercises(pose.Result{}))
}
