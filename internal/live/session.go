// Package live tracks webcam sessions. Each submitted frame is scored
// independently and the newest result by submission order wins.
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"poseai/internal/analysis"
	"poseai/internal/estimator"
	"poseai/internal/pose"
)

var (
	ErrSessionNotFound = errors.New("live session not found")
	// ErrStale is returned when a newer frame of the same session finished
	// first. The stale result is discarded.
	ErrStale = errors.New("result superseded by a newer frame")
)

// TrySource estimates keypoints only when the estimator is idle,
// returning estimator.ErrBusy otherwise.
type TrySource interface {
	TryEstimate(ctx context.Context, frame estimator.Frame) ([]pose.Keypoint, error)
}

// ResultSink receives every stored live result.
type ResultSink interface {
	Publish(ctx context.Context, u *Update) error
}

// Update is the scored outcome of one live frame.
type Update struct {
	SessionID string `json:"session_id"`
	Seq       uint64 `json:"seq"`
	pose.Result
	Keypoints   []pose.Keypoint `json:"keypoints"`
	CompletedAt time.Time       `json:"completed_at"`
}

// Session holds the ordering state of one live stream.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	nextSeq   uint64
	latest    *Update
	updatedAt time.Time
}

func (s *Session) reserve(now time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	s.updatedAt = now
	return s.nextSeq
}

// offer stores u unless a result with a newer sequence is already held.
func (s *Session) offer(u *Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest != nil && s.latest.Seq >= u.Seq {
		return false
	}
	s.latest = u
	s.updatedAt = u.CompletedAt
	return true
}

// Latest returns the newest stored result.
func (s *Session) Latest() (*Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.latest != nil
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

type Manager struct {
	source TrySource
	opts   pose.ScoreOptions
	sink   ResultSink
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session registry. sink may be nil.
func NewManager(source TrySource, opts pose.ScoreOptions, sink ResultSink, ttl time.Duration) *Manager {
	return &Manager{
		source:   source,
		opts:     opts,
		sink:     sink,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Create() *Session {
	now := m.now()
	s := &Session{ID: uuid.NewString(), CreatedAt: now, updatedAt: now}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	slog.Info("Live session started", "session_id", s.ID)
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	slog.Info("Live session ended", "session_id", id)
	return true
}

// Submit scores one frame for a session. The sequence number is taken
// before estimation so ordering follows submission, not completion.
// A busy estimator yields estimator.ErrBusy and the frame is skipped.
func (m *Manager) Submit(ctx context.Context, id string, frame estimator.Frame) (*Update, error) {
	s, ok := m.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	seq := s.reserve(m.now())

	kps, err := m.source.TryEstimate(ctx, frame)
	if errors.Is(err, estimator.ErrBusy) {
		slog.Debug("Live frame skipped, estimator busy", "session_id", id, "seq", seq)
		return nil, err
	}
	if err != nil {
		return nil, &analysis.UpstreamError{Op: "estimate keypoints", Err: err}
	}

	res, err := analysis.Evaluate(kps, pose.LiveRequired, m.opts)
	if err != nil {
		return nil, err
	}

	u := &Update{SessionID: id, Seq: seq, Result: res, Keypoints: kps, CompletedAt: m.now()}
	if !s.offer(u) {
		slog.Debug("Dropping stale live result", "session_id", id, "seq", seq)
		return u, ErrStale
	}

	if m.sink != nil {
		if err := m.sink.Publish(ctx, u); err != nil {
			slog.Warn("Failed to publish live result", "session_id", id, "seq", seq, "error", err)
		}
	}
	return u, nil
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	if n > 0 {
		slog.Info("Expired idle live sessions", "count", n)
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx ends.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}
