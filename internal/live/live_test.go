package live

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseai/internal/analysis"
	"poseai/internal/config"
	"poseai/internal/estimator"
	"poseai/internal/pose"
)

func upperBody() []pose.Keypoint {
	return []pose.Keypoint{
		{Name: pose.Nose, X: 100, Y: 40, Score: 0.9},
		{Name: pose.LeftShoulder, X: 150, Y: 100, Score: 0.9},
		{Name: pose.RightShoulder, X: 50, Y: 100, Score: 0.9},
		{Name: pose.LeftHip, X: 150, Y: 200, Score: 0.9},
		{Name: pose.RightHip, X: 50, Y: 200, Score: 0.9},
	}
}

type fakeSource struct {
	fn func(ctx context.Context, frame estimator.Frame) ([]pose.Keypoint, error)
}

func (f *fakeSource) TryEstimate(ctx context.Context, frame estimator.Frame) ([]pose.Keypoint, error) {
	return f.fn(ctx, frame)
}

func constant(kps []pose.Keypoint, err error) *fakeSource {
	return &fakeSource{fn: func(context.Context, estimator.Frame) ([]pose.Keypoint, error) { return kps, err }}
}

type recordingSink struct {
	mu      sync.Mutex
	updates []*Update
}

func (r *recordingSink) Publish(ctx context.Context, u *Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	m := NewManager(constant(upperBody(), nil), pose.DefaultScoreOptions(), nil, time.Minute)
	s := m.Create()
	require.NotEmpty(t, s.ID)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = s.Latest()
	assert.False(t, ok)

	assert.True(t, m.Delete(s.ID))
	assert.False(t, m.Delete(s.ID))

	_, err := m.Submit(context.Background(), s.ID, estimator.Frame{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmitStoresAndPublishes(t *testing.T) {
	sink := &recordingSink{}
	m := NewManager(constant(upperBody(), nil), pose.DefaultScoreOptions(), sink, time.Minute)
	s := m.Create()

	u, err := m.Submit(context.Background(), s.ID, estimator.Frame{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.Seq)
	assert.Equal(t, 100, u.Score)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Same(t, u, latest)
	require.Len(t, sink.updates, 1)
	assert.Same(t, u, sink.updates[0])
}

func TestSubmitBusySkipsFrame(t *testing.T) {
	m := NewManager(constant(nil, estimator.ErrBusy), pose.DefaultScoreOptions(), nil, time.Minute)
	s := m.Create()

	_, err := m.Submit(context.Background(), s.ID, estimator.Frame{})
	assert.ErrorIs(t, err, estimator.ErrBusy)
	_, ok := s.Latest()
	assert.False(t, ok)
}

func TestSubmitErrors(t *testing.T) {
	m := NewManager(constant(upperBody()[:3], nil), pose.DefaultScoreOptions(), nil, time.Minute)
	s := m.Create()
	_, err := m.Submit(context.Background(), s.ID, estimator.Frame{})
	var vis *analysis.VisibilityError
	require.ErrorAs(t, err, &vis)
	assert.Equal(t, []pose.BodyPart{pose.LeftHip, pose.RightHip}, vis.Missing)

	m = NewManager(constant([]pose.Keypoint{}, nil), pose.DefaultScoreOptions(), nil, time.Minute)
	s = m.Create()
	_, err = m.Submit(context.Background(), s.ID, estimator.Frame{})
	assert.ErrorIs(t, err, analysis.ErrNoBodyDetected)

	boom := errors.New("connection reset")
	m = NewManager(constant(nil, boom), pose.DefaultScoreOptions(), nil, time.Minute)
	s = m.Create()
	_, err = m.Submit(context.Background(), s.ID, estimator.Frame{})
	var up *analysis.UpstreamError
	assert.ErrorAs(t, err, &up)
	assert.ErrorIs(t, err, boom)
}

func TestStaleCompletionNeverOverwritesNewer(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{fn: func(ctx context.Context, frame estimator.Frame) ([]pose.Keypoint, error) {
		if frame.Path == "slow" {
			close(started)
			<-release
		}
		return upperBody(), nil
	}}
	sink := &recordingSink{}
	m := NewManager(src, pose.DefaultScoreOptions(), sink, time.Minute)
	s := m.Create()

	type outcome struct {
		u   *Update
		err error
	}
	slow := make(chan outcome, 1)
	go func() {
		u, err := m.Submit(context.Background(), s.ID, estimator.Frame{Path: "slow"})
		slow <- outcome{u, err}
	}()
	<-started

	fast, err := m.Submit(context.Background(), s.ID, estimator.Frame{Path: "fast"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), fast.Seq)

	close(release)
	res := <-slow
	assert.ErrorIs(t, res.err, ErrStale)
	assert.Equal(t, uint64(1), res.u.Seq)

	latest, _ := s.Latest()
	assert.Equal(t, uint64(2), latest.Seq)
	assert.Len(t, sink.updates, 1)
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(constant(upperBody(), nil), pose.DefaultScoreOptions(), nil, time.Minute)
	m.now = func() time.Time { return now }

	idle := m.Create()
	now = now.Add(50 * time.Second)
	active := m.Create()
	now = now.Add(20 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	_, ok := m.Get(idle.ID)
	assert.False(t, ok)
	_, ok = m.Get(active.ID)
	assert.True(t, ok)
}

func writeFrames(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 20, 20))))
		name := filepath.Join(dir, "frame_"+string(rune('a'+i))+".png")
		require.NoError(t, os.WriteFile(name, buf.Bytes(), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0644))
	return dir
}

func TestRunnerReplaysDirectory(t *testing.T) {
	src, err := NewDirSource(writeFrames(t, 3))
	require.NoError(t, err)
	require.Equal(t, 3, src.Len())

	var mu sync.Mutex
	var seqs []uint64
	var paths []string
	recording := &fakeSource{fn: func(ctx context.Context, frame estimator.Frame) ([]pose.Keypoint, error) {
		mu.Lock()
		paths = append(paths, filepath.Base(frame.Path))
		mu.Unlock()
		return upperBody(), nil
	}}

	m := NewManager(recording, pose.DefaultScoreOptions(), nil, time.Minute)
	s := m.Create()

	r := NewRunner(m, s.ID, src, time.Millisecond)
	r.OnUpdate = func(u *Update) {
		mu.Lock()
		defer mu.Unlock()
		seqs = append(seqs, u.Seq)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	assert.Equal(t, []uint64{1, 2, 3}, seqs)
	assert.Equal(t, []string{"frame_a.png", "frame_b.png", "frame_c.png"}, paths)
}

type endlessSource struct{}

func (endlessSource) Next(ctx context.Context) (estimator.Frame, error) {
	return estimator.Frame{}, nil
}

func TestRunnerStopsOnCancel(t *testing.T) {
	m := NewManager(constant(nil, estimator.ErrBusy), pose.DefaultScoreOptions(), nil, time.Minute)
	s := m.Create()
	r := NewRunner(m, s.ID, endlessSource{}, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeClient struct {
	mqtt.Client
	topic   string
	qos     byte
	payload []byte
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic, c.qos, c.payload = topic, qos, payload.([]byte)
	done := make(chan struct{})
	close(done)
	return &fakeToken{done: done}
}

func TestMQTTPublisher(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, "poseai/live", 1)

	u := &Update{SessionID: "abc", Seq: 7, Result: pose.Score(upperBody(), pose.DefaultScoreOptions()), Keypoints: upperBody()}
	require.NoError(t, p.Publish(context.Background(), u))

	assert.Equal(t, "poseai/live/abc/result", client.topic)
	assert.Equal(t, byte(1), client.qos)

	var body map[string]any
	require.NoError(t, json.Unmarshal(client.payload, &body))
	assert.Equal(t, "abc", body["session_id"])
	assert.EqualValues(t, 7, body["seq"])
	assert.EqualValues(t, 100, body["score"])
}

func TestNewMQTTPublisherRequiresBroker(t *testing.T) {
	_, err := NewMQTTPublisher(config.MQTTConfig{TopicPrefix: "poseai/live"})
	assert.Error(t, err)
}
