package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseai/internal/archive"
	"poseai/internal/estimator"
	"poseai/internal/pose"
)

type fakeSource struct {
	kps   []pose.Keypoint
	err   error
	calls int
}

func (f *fakeSource) Estimate(ctx context.Context, frame estimator.Frame) ([]pose.Keypoint, error) {
	f.calls++
	return f.kps, f.err
}

func standing() []pose.Keypoint {
	return []pose.Keypoint{
		{Name: pose.Nose, X: 100, Y: 40, Score: 0.95},
		{Name: pose.LeftShoulder, X: 150, Y: 100, Score: 0.9},
		{Name: pose.RightShoulder, X: 50, Y: 100, Score: 0.9},
		{Name: pose.LeftHip, X: 150, Y: 200, Score: 0.9},
		{Name: pose.RightHip, X: 50, Y: 200, Score: 0.9},
		{Name: pose.LeftKnee, X: 150, Y: 300, Score: 0.9},
		{Name: pose.RightKnee, X: 50, Y: 300, Score: 0.9},
		{Name: pose.LeftAnkle, X: 150, Y: 380, Score: 0.9},
		{Name: pose.RightAnkle, X: 50, Y: 380, Score: 0.9},
	}
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 200, 400))))
	return buf.Bytes()
}

func TestEvaluate(t *testing.T) {
	_, err := Evaluate(nil, pose.UploadRequired, pose.DefaultScoreOptions())
	assert.ErrorIs(t, err, ErrNoBodyDetected)

	kps := standing()
	kps[5].Score = 0.3 // left_knee
	_, err = Evaluate(kps, pose.UploadRequired, pose.DefaultScoreOptions())
	var vis *VisibilityError
	require.ErrorAs(t, err, &vis)
	assert.Equal(t, []pose.BodyPart{pose.LeftKnee}, vis.Missing)
	assert.Contains(t, err.Error(), "left_knee")

	// the live check does not need legs
	res, err := Evaluate(kps, pose.LiveRequired, pose.DefaultScoreOptions())
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
}

func TestAnalyzeArchives(t *testing.T) {
	store := archive.NewStore(t.TempDir())
	src := &fakeSource{kps: standing()}
	svc := NewService(src, store, pose.DefaultScoreOptions(), "fake")

	report, err := svc.Analyze(context.Background(), pngImage(t))
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 100, report.Score)
	assert.Empty(t, report.Issues)
	assert.Equal(t, 200, report.Width)
	assert.Equal(t, 400, report.Height)
	assert.Equal(t, "/report/"+report.ID, report.ReportURL)
	assert.Equal(t, "/report/"+report.ID+"/overlay.png", report.OverlayURL)

	for _, name := range []string{"input.png", archive.OverlayFile, archive.AnalysisFile, archive.ReportFile} {
		_, err := os.Stat(filepath.Join(store.Dir(), report.ID, name))
		assert.NoError(t, err, name)
	}

	scene, err := svc.Scene(report.ID)
	require.NoError(t, err)
	assert.Len(t, scene.Points, len(standing()))

	_, err = svc.Scene("nope")
	assert.ErrorIs(t, err, archive.ErrNotFound)
}

func TestAnalyzeEnvelopeJSON(t *testing.T) {
	svc := NewService(&fakeSource{kps: standing()}, nil, pose.DefaultScoreOptions(), "fake")
	report, err := svc.Analyze(context.Background(), pngImage(t))
	require.NoError(t, err)
	assert.Empty(t, report.ReportURL)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	for _, key := range []string{"id", "score", "issues", "improvements", "solutions", "angles", "alignment", "keypoints"} {
		assert.Contains(t, body, key)
	}
	assert.NotContains(t, body, "report_url")
}

func TestAnalyzeErrors(t *testing.T) {
	opts := pose.DefaultScoreOptions()

	_, err := NewService(&fakeSource{}, nil, opts, "fake").Analyze(context.Background(), []byte("text"))
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = NewService(&fakeSource{kps: []pose.Keypoint{}}, nil, opts, "fake").Analyze(context.Background(), pngImage(t))
	assert.ErrorIs(t, err, ErrNoBodyDetected)

	boom := errors.New("quota exceeded")
	_, err = NewService(&fakeSource{err: boom}, nil, opts, "fake").Analyze(context.Background(), pngImage(t))
	var up *UpstreamError
	require.ErrorAs(t, err, &up)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "estimate keypoints", up.Op)

	_, err = NewService(&fakeSource{kps: standing()[:3]}, nil, opts, "fake").Analyze(context.Background(), pngImage(t))
	var vis *VisibilityError
	assert.ErrorAs(t, err, &vis)
}

func TestSceneWithoutStore(t *testing.T) {
	svc := NewService(&fakeSource{}, nil, pose.DefaultScoreOptions(), "fake")
	_, err := svc.Scene("anything")
	assert.ErrorIs(t, err, archive.ErrNotFound)
}
