package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"poseai/internal/estimator"
)

// FrameSource yields captured frames. Next returns io.EOF when the source
// is exhausted.
type FrameSource interface {
	Next(ctx context.Context) (estimator.Frame, error)
}

// Runner polls a frame source on a fixed interval and submits frames to a
// session. At most one frame is in flight; ticks that arrive while a frame
// is being scored are skipped.
type Runner struct {
	manager   *Manager
	sessionID string
	source    FrameSource
	interval  time.Duration

	// OnUpdate, when set, is called with every stored result.
	OnUpdate func(*Update)
}

func NewRunner(m *Manager, sessionID string, source FrameSource, interval time.Duration) *Runner {
	return &Runner{manager: m, sessionID: sessionID, source: source, interval: interval}
}

// Run blocks until ctx is cancelled or the source is exhausted. The
// in-flight frame, if any, is awaited before returning.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slot := make(chan struct{}, 1)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		select {
		case slot <- struct{}{}:
		default:
			continue
		}

		frame, err := r.source.Next(ctx)
		if err != nil {
			<-slot
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-slot }()
			r.process(ctx, frame)
		}()
	}
}

func (r *Runner) process(ctx context.Context, frame estimator.Frame) {
	u, err := r.manager.Submit(ctx, r.sessionID, frame)
	switch {
	case err == nil:
		if r.OnUpdate != nil {
			r.OnUpdate(u)
		}
	case errors.Is(err, estimator.ErrBusy), errors.Is(err, ErrStale), errors.Is(err, context.Canceled):
	default:
		slog.Warn("Live frame rejected", "session_id", r.sessionID, "path", frame.Path, "error", err)
	}
}

var frameExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// DirSource replays the image files of a directory in name order.
type DirSource struct {
	mu    sync.Mutex
	files []string
	next  int
}

func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return &DirSource{files: files}, nil
}

func (d *DirSource) Len() int {
	return len(d.files)
}

func (d *DirSource) Next(ctx context.Context) (estimator.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.next >= len(d.files) {
		return estimator.Frame{}, io.EOF
	}
	path := d.files[d.next]
	d.next++

	data, err := os.ReadFile(path)
	if err != nil {
		return estimator.Frame{}, err
	}
	frame, err := estimator.DecodeFrame(data)
	if err != nil {
		return estimator.Frame{}, fmt.Errorf("%s: %w", path, err)
	}
	frame.Path = path
	return frame, nil
}
