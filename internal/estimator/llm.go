package estimator

import (
	"encoding/json"
	"fmt"
	"strings"

	"poseai/internal/pose"
)

const keypointPrompt = `You are a pose-estimation service. Locate the single most prominent person in the image and return their body landmarks.

Return JSON only, shaped as {"keypoints":[{"name":..., "x_percent":..., "y_percent":..., "score":...}]}.
- name is one of: %s
- x_percent and y_percent are the landmark position as a percentage (0-100) of image width and height, measured from the top-left corner.
- score is your confidence (0-1) that the landmark is visible at that position.
- Omit landmarks that are not visible. If no person is visible return {"keypoints":[]}.`

// llmKeypoint is the landmark shape requested from vision-language models.
type llmKeypoint struct {
	Name     string  `json:"name"`
	XPercent float64 `json:"x_percent"`
	YPercent float64 `json:"y_percent"`
	Score    float64 `json:"score"`
}

type llmResponse struct {
	Keypoints []llmKeypoint `json:"keypoints"`
}

func bodyPartNames() []string {
	parts := pose.AllBodyParts()
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.String()
	}
	return names
}

func buildKeypointPrompt() string {
	return fmt.Sprintf(keypointPrompt, strings.Join(bodyPartNames(), ", "))
}

// parseLLMKeypoints decodes a model reply and converts percentage
// coordinates to the frame's pixel space.
func parseLLMKeypoints(text string, frame Frame) ([]pose.Keypoint, error) {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")

	var resp llmResponse
	if err := json.Unmarshal([]byte(clean), &resp); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}

	out := make([]pose.Keypoint, 0, len(resp.Keypoints))
	for _, k := range resp.Keypoints {
		part, ok := pose.ParseBodyPart(k.Name)
		if !ok {
			continue
		}
		out = append(out, pose.Keypoint{
			Name:  part,
			X:     clamp(k.XPercent, 0, 100) / 100 * float64(frame.Width),
			Y:     clamp(k.YPercent, 0, 100) / 100 * float64(frame.Height),
			Score: clamp(k.Score, 0, 1),
		})
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
