package pose

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Solution groups corrective advice for a single issue.
type Solution struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Exercises   []string `json:"exercises"`
}

// Angles holds the measured tilt per region in degrees.
type Angles struct {
	Shoulders float64 `json:"shoulders"`
	Hips      float64 `json:"hips"`
	Neck      float64 `json:"neck"`
	// Back is the torso's deviation from upright, |90 - angle at the left
	// hip|, not the raw vertex angle.
	Back      float64 `json:"back"`
}

// Alignment is the narrative summary for the score tier.
type Alignment struct {
	Details string   `json:"details"`
	Tips    []string `json:"tips"`
}

// Result is the outcome of scoring one keypoint set. Issues, Improvements
// and Solutions always have the same length; entry i of each describes the
// same finding.
type Result struct {
	Score        int        `json:"score"`
	Issues       []string   `json:"issues"`
	Improvements []string   `json:"improvements"`
	Solutions    []Solution `json:"solutions"`
	Angles       Angles     `json:"angles"`
	Alignment    Alignment  `json:"alignment"`
}

func (r *Result) add(issue, improvement string, s Solution) {
	r.Issues = append(r.Issues, issue)
	r.Improvements = append(r.Improvements, improvement)
	r.Solutions = append(r.Solutions, s)
}

// ScoreOptions tunes the issue detection. The base score does not depend on
// them.
type ScoreOptions struct {
	// Tolerance is the vertical pixel difference between a left/right pair
	// above which an issue is reported.
	Tolerance float64
	// BackTolerance is the torso tilt in degrees above which the back is
	// reported as tilted.
	BackTolerance float64
	// ArmAsymmetry is the relative arm length difference above which an
	// asymmetry issue is reported.
	ArmAsymmetry float64
}

// DefaultScoreOptions returns the thresholds used for pixel-space keypoints:
// - Tolerance: 20px
// - BackTolerance: 5 degrees
// - ArmAsymmetry: 5%
func DefaultScoreOptions() ScoreOptions {
	return ScoreOptions{
		Tolerance:     20,
		BackTolerance: 5,
		ArmAsymmetry:  0.05,
	}
}

// AlignmentScore averages the shoulder, hip and ear symmetry checks that
// can be measured. It returns 0 when none can.
func AlignmentScore(set Set) int {
	total := 0.0
	measurements := 0

	checks := []struct {
		left, right BodyPart
		weight      float64
	}{
		{LeftShoulder, RightShoulder, 2},
		{LeftHip, RightHip, 2},
		{LeftEar, RightEar, 3},
	}
	for _, c := range checks {
		l, lok := set.Visible(c.left)
		r, rok := set.Visible(c.right)
		if !lok || !rok {
			continue
		}
		diff := math.Abs(l.Y - r.Y)
		total += math.Max(0, 100-diff*c.weight)
		measurements++
	}

	if measurements == 0 {
		return 0
	}
	return int(math.Round(total / float64(measurements)))
}

// Score computes the alignment score and the per-region findings for one
// detected body. Missing keypoints skip the checks that need them.
func Score(kps []Keypoint, opts ScoreOptions) Result {
	set := NewSet(kps)
	res := Result{
		Score:        AlignmentScore(set),
		Issues:       []string{},
		Improvements: []string{},
		Solutions:    []Solution{},
	}

	pairs := []struct {
		left, right BodyPart
		region      string
		angle       *float64
		solution    Solution
	}{
		{LeftShoulder, RightShoulder, "shoulder", &res.Angles.Shoulders, Solution{
			Title:     "Shoulder alignment",
			Exercises: []string{"Scapular Retractions", "Upper Trapezius Stretch"},
		}},
		{LeftHip, RightHip, "hip", &res.Angles.Hips, Solution{
			Title:     "Pelvic alignment",
			Exercises: []string{"Pelvic Tilts", "Side Plank"},
		}},
		{LeftEar, RightEar, "ear", &res.Angles.Neck, Solution{
			Title:     "Head and neck alignment",
			Exercises: []string{"Chin Tucks", "Lateral Neck Stretch"},
		}},
	}

	for _, p := range pairs {
		l, lok := set.Visible(p.left)
		r, rok := set.Visible(p.right)
		if !lok || !rok {
			continue
		}
		tilt := tiltAngle(l.Point(), r.Point())
		*p.angle = float64(tilt)

		diff := math.Abs(l.Y - r.Y)
		if diff <= opts.Tolerance {
			continue
		}
		higher, lower, side := "left", "right", "Left"
		if r.Y < l.Y {
			higher, lower, side = "right", "left", "Right"
		}
		s := p.solution
		s.Description = fmt.Sprintf("Bring the %s %ss level; the %s side is raised by about %d°.", higher, p.region, higher, tilt)
		if p.region == "ear" {
			res.add(
				fmt.Sprintf("Head tilts toward the %s: %s ear is higher by %.0fpx (%d°)", lower, higher, diff, tilt),
				fmt.Sprintf("Level your head by about %d°, lifting the %s side of your head", tilt, lower),
				s,
			)
			continue
		}
		res.add(
			fmt.Sprintf("%s %s is higher by %.0fpx (%d° tilt)", side, p.region, diff, tilt),
			fmt.Sprintf("Lower your %s %s by about %d° to level both sides", higher, p.region, tilt),
			s,
		)
	}

	if vertex, ok := Angle(set.pointOf(LeftShoulder), set.pointOf(LeftHip), set.pointOf(RightHip)); ok {
		tilt := math.Abs(90 - float64(vertex))
		res.Angles.Back = tilt
		if tilt > opts.BackTolerance {
			res.add(
				fmt.Sprintf("Back is tilted by %.0f°", tilt),
				fmt.Sprintf("Straighten your back by about %.0f° so the torso stands upright over the hips", tilt),
				Solution{
					Title:       "Back alignment",
					Description: fmt.Sprintf("Bring the torso upright; it leans about %.0f° away from vertical.", tilt),
					Exercises:   []string{"Thoracic Extensions", "Bird Dog"},
				},
			)
		}
	}

	if diff, longer, ok := armAsymmetry(set); ok && diff > opts.ArmAsymmetry {
		pct := math.Round(diff * 100)
		res.add(
			fmt.Sprintf("Arm length asymmetry of %.0f%% (%s arm appears longer)", pct, longer),
			"Square your shoulders to the camera; a rotated torso makes one arm look longer",
			Solution{
				Title:       "Shoulder and torso rotation",
				Description: fmt.Sprintf("The %s arm measures %.0f%% longer, which usually means the upper body is turned.", longer, pct),
				Exercises:   []string{"Open Book Rotations", "Postural Awareness Practice"},
			},
		)
	}

	res.Alignment = alignmentFor(res.Score)
	return res
}

// armAsymmetry returns the relative difference between the two
// shoulder-to-wrist distances and which side is longer.
func armAsymmetry(set Set) (float64, string, bool) {
	ls, rs := set.pointOf(LeftShoulder), set.pointOf(RightShoulder)
	lw, rw := set.pointOf(LeftWrist), set.pointOf(RightWrist)
	if ls == nil || rs == nil || lw == nil || rw == nil {
		return 0, "", false
	}
	left := r2.Norm(r2.Sub(*lw, *ls))
	right := r2.Norm(r2.Sub(*rw, *rs))
	longest := math.Max(left, right)
	if longest == 0 {
		return 0, "", false
	}
	side := "left"
	if right > left {
		side = "right"
	}
	return math.Abs(left-right) / longest, side, true
}

func alignmentFor(score int) Alignment {
	switch {
	case score >= 90:
		return Alignment{
			Details: "Overall posture is well aligned",
			Tips:    []string{"Maintain your current posture"},
		}
	case score >= 80:
		return Alignment{
			Details: "Minor posture corrections are needed",
			Tips: []string{
				"Draw your shoulders back and down",
				"Keep your pelvis in a neutral position",
				"Keep your neck straight",
			},
		}
	default:
		return Alignment{
			Details: "Posture correction is needed",
			Tips: []string{
				"Consult a physiotherapist or posture specialist",
				"Do corrective posture exercises regularly",
				"Stay aware of your posture during daily activities",
			},
		}
	}
}
