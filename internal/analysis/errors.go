package analysis

import (
	"errors"
	"fmt"
	"strings"

	"poseai/internal/pose"
)

var (
	// ErrNoBodyDetected means the estimator found no person in the frame.
	ErrNoBodyDetected = errors.New("no body detected in the image")
	// ErrInvalidImage means the upload could not be decoded as an image.
	ErrInvalidImage = errors.New("unsupported or corrupt image")
)

// VisibilityError lists required body parts that were absent or not
// confidently detected.
type VisibilityError struct {
	Missing []pose.BodyPart
}

func (e *VisibilityError) Error() string {
	names := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		names[i] = p.String()
	}
	return "required body parts not clearly visible: " + strings.Join(names, ", ")
}

// UpstreamError wraps a failure of the keypoint source.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
