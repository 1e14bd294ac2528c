// Package archive stores each upload analysis on disk with its overlay,
// JSON result and HTML report.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"poseai/internal/pose"
	"poseai/internal/render"
)

const (
	AnalysisFile = "analysis.json"
	OverlayFile  = "overlay.png"
	ReportFile   = "report.html"
)

var ErrNotFound = errors.New("archive entry not found")

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Record is the persisted outcome of one analysis.
type Record struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Provider  string          `json:"provider,omitempty"`
	Image     string          `json:"image"`
	Overlay   string          `json:"overlay,omitempty"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Result    pose.Result     `json:"result"`
	Keypoints []pose.Keypoint `json:"keypoints"`
}

// Store lays records out as <dir>/<id>/.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir is the archive root.
func (s *Store) Dir() string {
	return s.dir
}

// NewID returns a sortable, collision-safe directory name.
func NewID(now time.Time) string {
	return now.Format("2006-01-02_15-04-05") + "-" + uuid.NewString()[:8]
}

// Save writes the input image, the overlay, analysis.json and report.html.
// The report is best effort: a template failure is logged and the record
// is still saved.
func (s *Store) Save(rec *Record, input []byte, ext string, overlay image.Image) error {
	if !validName.MatchString(rec.ID) {
		return fmt.Errorf("invalid archive id %q", rec.ID)
	}
	outputDir := filepath.Join(s.dir, rec.ID)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	rec.Image = "input" + ext
	if err := os.WriteFile(filepath.Join(outputDir, rec.Image), input, 0644); err != nil {
		return fmt.Errorf("save input image: %w", err)
	}

	if overlay != nil {
		f, err := os.Create(filepath.Join(outputDir, OverlayFile))
		if err != nil {
			return fmt.Errorf("create overlay: %w", err)
		}
		if err := render.EncodePNG(f, overlay); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("save overlay: %w", err)
		}
		rec.Overlay = OverlayFile
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, AnalysisFile), data, 0644); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}

	if err := writeReport(outputDir, rec); err != nil {
		slog.Warn("Could not generate HTML report", "id", rec.ID, "error", err)
	}
	slog.Info("Analysis archived", "id", rec.ID, "dir", outputDir)
	return nil
}

// Load reads a saved record back.
func (s *Store) Load(id string) (*Record, error) {
	path, err := s.File(id, AnalysisFile)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read analysis: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}
	return &rec, nil
}

// File resolves a file inside an archived analysis. Names that could
// escape the entry directory are rejected as not found.
func (s *Store) File(id, name string) (string, error) {
	if !validName.MatchString(id) || !validName.MatchString(name) {
		return "", ErrNotFound
	}
	path := filepath.Join(s.dir, id, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return path, nil
}
