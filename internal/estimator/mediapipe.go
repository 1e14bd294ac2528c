package estimator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"poseai/internal/pose"
)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// MediaPipe runs the Python landmark extractor as a subprocess. The script
// takes an image path and prints {"keypoints":[...]} in pixel coordinates.
type MediaPipe struct {
	python string
	script string
	run    commandRunner
}

func NewMediaPipe(python, script string) *MediaPipe {
	// Prefer the project virtualenv when present.
	if python == "" || python == "python3" {
		if _, err := os.Stat("./venv/bin/python3"); err == nil {
			python = "./venv/bin/python3"
		} else {
			python = "python3"
		}
	}
	return &MediaPipe{python: python, script: script, run: runCommand}
}

func (m *MediaPipe) Estimate(ctx context.Context, frame Frame) ([]pose.Keypoint, error) {
	path := frame.Path
	if path == "" {
		f, err := os.CreateTemp("", "poseai-frame-*."+frame.Format)
		if err != nil {
			return nil, fmt.Errorf("create frame file: %w", err)
		}
		defer os.Remove(f.Name())
		if _, err := f.Write(frame.Data); err != nil {
			f.Close()
			return nil, fmt.Errorf("write frame file: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("write frame file: %w", err)
		}
		path = f.Name()
	}

	output, err := m.run(ctx, m.python, m.script, path)
	if err != nil {
		return nil, fmt.Errorf("pose extraction failed: %w\n%s", err, output)
	}
	return parseExtractorOutput(output)
}

func (m *MediaPipe) Close() error {
	return nil
}

// parseExtractorOutput skips any log lines the script printed before its
// JSON document.
func parseExtractorOutput(output []byte) ([]pose.Keypoint, error) {
	lines := strings.Split(string(output), "\n")
	var jsonLines []string
	inJSON := false
	for _, line := range lines {
		if strings.HasPrefix(line, "{") {
			inJSON = true
		}
		if inJSON {
			jsonLines = append(jsonLines, line)
		}
	}
	if len(jsonLines) == 0 {
		return nil, fmt.Errorf("no JSON in extractor output")
	}

	var result struct {
		Keypoints json.RawMessage `json:"keypoints"`
	}
	if err := json.Unmarshal([]byte(strings.Join(jsonLines, "\n")), &result); err != nil {
		return nil, fmt.Errorf("failed to parse keypoints: %w", err)
	}
	if len(result.Keypoints) == 0 || string(result.Keypoints) == "null" {
		return []pose.Keypoint{}, nil
	}
	return pose.DecodeKeypoints(result.Keypoints)
}
