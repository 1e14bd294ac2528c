package pose

import (
	"encoding/json"
	"fmt"
)

// ConfidenceThreshold is the minimum detection score a keypoint needs to be
// treated as present. Keypoints at or below it are ignored everywhere.
const ConfidenceThreshold = 0.3

// BodyPart identifies an anatomical landmark.
type BodyPart int

const (
	Nose BodyPart = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	numBodyParts
)

var bodyPartNames = [numBodyParts]string{
	Nose:           "nose",
	LeftEye:        "left_eye",
	RightEye:       "right_eye",
	LeftEar:        "left_ear",
	RightEar:       "right_ear",
	LeftShoulder:   "left_shoulder",
	RightShoulder:  "right_shoulder",
	LeftElbow:      "left_elbow",
	RightElbow:     "right_elbow",
	LeftWrist:      "left_wrist",
	RightWrist:     "right_wrist",
	LeftHip:        "left_hip",
	RightHip:       "right_hip",
	LeftKnee:       "left_knee",
	RightKnee:      "right_knee",
	LeftAnkle:      "left_ankle",
	RightAnkle:     "right_ankle",
	LeftHeel:       "left_heel",
	RightHeel:      "right_heel",
	LeftFootIndex:  "left_foot_index",
	RightFootIndex: "right_foot_index",
}

var bodyPartsByName = func() map[string]BodyPart {
	m := make(map[string]BodyPart, numBodyParts)
	for i, name := range bodyPartNames {
		m[name] = BodyPart(i)
	}
	return m
}()

// AllBodyParts returns every known body part in enumeration order.
func AllBodyParts() []BodyPart {
	out := make([]BodyPart, numBodyParts)
	for i := range out {
		out[i] = BodyPart(i)
	}
	return out
}

// ParseBodyPart converts a snake_case landmark name to a BodyPart.
func ParseBodyPart(name string) (BodyPart, bool) {
	p, ok := bodyPartsByName[name]
	return p, ok
}

func (p BodyPart) String() string {
	if p < 0 || p >= numBodyParts {
		return fmt.Sprintf("body_part(%d)", int(p))
	}
	return bodyPartNames[p]
}

func (p BodyPart) MarshalText() ([]byte, error) {
	if p < 0 || p >= numBodyParts {
		return nil, fmt.Errorf("unknown body part %d", int(p))
	}
	return []byte(bodyPartNames[p]), nil
}

func (p *BodyPart) UnmarshalText(text []byte) error {
	v, ok := ParseBodyPart(string(text))
	if !ok {
		return fmt.Errorf("unknown body part %q", string(text))
	}
	*p = v
	return nil
}

// Keypoint is one detected landmark in the frame's pixel space.
type Keypoint struct {
	Name  BodyPart `json:"name"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Z     *float64 `json:"z,omitempty"`
	Score float64  `json:"score"`
}

// Visible reports whether the keypoint clears the confidence threshold.
func (k Keypoint) Visible() bool {
	return k.Score > ConfidenceThreshold
}

// Set is a per-detection lookup table of keypoints by body part.
type Set struct {
	points [numBodyParts]*Keypoint
}

// NewSet indexes keypoints by body part. When a part appears more than once
// the entry with the highest score wins.
func NewSet(kps []Keypoint) Set {
	var s Set
	for i := range kps {
		kp := kps[i]
		if kp.Name < 0 || kp.Name >= numBodyParts {
			continue
		}
		if cur := s.points[kp.Name]; cur != nil && cur.Score >= kp.Score {
			continue
		}
		s.points[kp.Name] = &kp
	}
	return s
}

// Get returns the keypoint for a part regardless of its score.
func (s Set) Get(p BodyPart) (Keypoint, bool) {
	if p < 0 || p >= numBodyParts || s.points[p] == nil {
		return Keypoint{}, false
	}
	return *s.points[p], true
}

// Visible returns the keypoint only when it is present above the threshold.
func (s Set) Visible(p BodyPart) (Keypoint, bool) {
	kp, ok := s.Get(p)
	if !ok || !kp.Visible() {
		return Keypoint{}, false
	}
	return kp, true
}

// Len counts the parts present in the set.
func (s Set) Len() int {
	n := 0
	for _, p := range s.points {
		if p != nil {
			n++
		}
	}
	return n
}

// DecodeKeypoints parses a JSON array of keypoints, dropping entries whose
// name is not a known body part.
func DecodeKeypoints(data []byte) ([]Keypoint, error) {
	var raw []struct {
		Name  string   `json:"name"`
		X     float64  `json:"x"`
		Y     float64  `json:"y"`
		Z     *float64 `json:"z"`
		Score float64  `json:"score"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode keypoints: %w", err)
	}
	out := make([]Keypoint, 0, len(raw))
	for _, r := range raw {
		part, ok := ParseBodyPart(r.Name)
		if !ok {
			continue
		}
		out = append(out, Keypoint{Name: part, X: r.X, Y: r.Y, Z: r.Z, Score: r.Score})
	}
	return out, nil
}
