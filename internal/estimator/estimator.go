// Package estimator wraps external pose-estimation capabilities behind a
// single keypoint-source interface.
package estimator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"

	"poseai/internal/config"
	"poseai/internal/pose"
)

// ErrBusy is returned by TryEstimate when another estimation holds the
// estimator.
var ErrBusy = errors.New("estimator is busy")

// Frame is one still image or captured video frame.
type Frame struct {
	Data   []byte
	Format string // jpeg, png or webp
	Width  int
	Height int
	// Path is set when the frame is also stored on disk.
	Path string
}

// DecodeFrame reads the image header to learn format and dimensions.
func DecodeFrame(data []byte) (Frame, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("decode image header: %w", err)
	}
	return Frame{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// MIMEType returns the media type for the frame format.
func (f Frame) MIMEType() string {
	return "image/" + f.Format
}

// Image fully decodes the frame.
func (f Frame) Image() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Estimator returns the keypoints of the most prominent body in a frame.
// An empty slice means no body was detected and is not an error.
type Estimator interface {
	Estimate(ctx context.Context, frame Frame) ([]pose.Keypoint, error)
	Close() error
}

// New builds the estimator selected by cfg.Provider.
func New(ctx context.Context, cfg config.EstimatorConfig) (Estimator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini", "":
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case "mediapipe":
		return NewMediaPipe(cfg.PythonPath, cfg.ExtractorPath), nil
	case "movenet":
		return NewMoveNet(MoveNetParams{
			LibraryPath: cfg.OnnxLibrary,
			ModelPath:   cfg.MoveNetModel,
			InputSize:   cfg.MoveNetSize,
			InputName:   cfg.MoveNetInput,
			OutputName:  cfg.MoveNetOutput,
		})
	default:
		return nil, fmt.Errorf("unknown pose provider %q", cfg.Provider)
	}
}

// Exclusive serialises access to an estimator that is not reentrant.
type Exclusive struct {
	inner Estimator
	slot  chan struct{}
}

// NewExclusive guards e with a single busy slot.
func NewExclusive(e Estimator) *Exclusive {
	return &Exclusive{
		inner: e,
		slot:  make(chan struct{}, 1),
	}
}

// Estimate waits for the estimator to become free or ctx to end.
func (x *Exclusive) Estimate(ctx context.Context, frame Frame) ([]pose.Keypoint, error) {
	select {
	case x.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-x.slot }()
	return x.inner.Estimate(ctx, frame)
}

// TryEstimate runs only when the estimator is idle and returns ErrBusy
// otherwise.
func (x *Exclusive) TryEstimate(ctx context.Context, frame Frame) ([]pose.Keypoint, error) {
	select {
	case x.slot <- struct{}{}:
	default:
		return nil, ErrBusy
	}
	defer func() { <-x.slot }()
	return x.inner.Estimate(ctx, frame)
}

// Busy reports whether an estimation is in flight.
func (x *Exclusive) Busy() bool {
	return len(x.slot) == 1
}

func (x *Exclusive) Close() error {
	return x.inner.Close()
}
