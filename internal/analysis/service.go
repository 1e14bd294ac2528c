// Package analysis runs the upload workflow: estimate keypoints, check
// visibility, score, draw the overlay and archive the outcome.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"poseai/internal/archive"
	"poseai/internal/estimator"
	"poseai/internal/pose"
	"poseai/internal/render"
	"poseai/internal/viewer"
)

// KeypointSource is satisfied by estimator backends and by
// *estimator.Exclusive.
type KeypointSource interface {
	Estimate(ctx context.Context, frame estimator.Frame) ([]pose.Keypoint, error)
}

// Report is the response envelope of one upload analysis.
type Report struct {
	ID string `json:"id"`
	pose.Result
	Keypoints  []pose.Keypoint `json:"keypoints"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	ReportURL  string          `json:"report_url,omitempty"`
	OverlayURL string          `json:"overlay_url,omitempty"`
}

// Evaluate checks that the detection contains the required parts and
// scores it. No partial result is returned on failure.
func Evaluate(kps []pose.Keypoint, required []pose.BodyPart, opts pose.ScoreOptions) (pose.Result, error) {
	if len(kps) == 0 {
		return pose.Result{}, ErrNoBodyDetected
	}
	if missing := pose.Missing(kps, required); len(missing) > 0 {
		return pose.Result{}, &VisibilityError{Missing: missing}
	}
	return pose.Score(kps, opts), nil
}

type Service struct {
	source   KeypointSource
	store    *archive.Store
	opts     pose.ScoreOptions
	provider string
	now      func() time.Time
}

// NewService wires the pipeline. A nil store disables archiving.
func NewService(source KeypointSource, store *archive.Store, opts pose.ScoreOptions, provider string) *Service {
	return &Service{
		source:   source,
		store:    store,
		opts:     opts,
		provider: provider,
		now:      time.Now,
	}
}

// Analyze scores one uploaded still image. The archived copy is named after
// the decoded image format, never the client's file name.
func (s *Service) Analyze(ctx context.Context, data []byte) (*Report, error) {
	frame, err := estimator.DecodeFrame(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	start := s.now()
	kps, err := s.source.Estimate(ctx, frame)
	if err != nil {
		slog.Error("Keypoint estimation failed", "provider", s.provider, "error", err)
		return nil, &UpstreamError{Op: "estimate keypoints", Err: err}
	}
	slog.Info("Keypoints estimated", "provider", s.provider, "count", len(kps), "duration", s.now().Sub(start))

	res, err := Evaluate(kps, pose.UploadRequired, s.opts)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:        archive.NewID(s.now()),
		Result:    res,
		Keypoints: kps,
		Width:     frame.Width,
		Height:    frame.Height,
	}
	if s.store == nil {
		return report, nil
	}

	img, err := frame.Image()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	overlay := render.Render(img, kps, render.DefaultOptions())

	rec := &archive.Record{
		ID:        report.ID,
		CreatedAt: s.now(),
		Provider:  s.provider,
		Width:     frame.Width,
		Height:    frame.Height,
		Result:    res,
		Keypoints: kps,
	}
	if err := s.store.Save(rec, data, extensionFor(frame.Format), overlay); err != nil {
		return nil, fmt.Errorf("archive analysis: %w", err)
	}
	report.ReportURL = "/report/" + rec.ID
	report.OverlayURL = "/report/" + rec.ID + "/" + rec.Overlay
	return report, nil
}

// Scene rebuilds the 3D scene of an archived analysis.
func (s *Service) Scene(id string) (viewer.Scene, error) {
	if s.store == nil {
		return viewer.Scene{}, archive.ErrNotFound
	}
	rec, err := s.store.Load(id)
	if err != nil {
		return viewer.Scene{}, err
	}
	return viewer.BuildScene(rec.Keypoints, viewer.WithFrame(rec.Width, rec.Height)), nil
}

func extensionFor(format string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "":
		return ".img"
	default:
		return "." + format
	}
}
