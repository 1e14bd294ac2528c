// Package viewer exports detected keypoints as a scene description that an
// external 3D library can render and rotate.
package viewer

import (
	"gonum.org/v1/gonum/spatial/r3"

	"poseai/internal/pose"
)

// Point is one landmark in scene space.
type Point struct {
	Name pose.BodyPart `json:"name"`
	X    float64       `json:"x"`
	Y    float64       `json:"y"`
	Z    float64       `json:"z"`
}

// Scene holds the visible landmarks and the bones joining them.
type Scene struct {
	Points   []Point            `json:"points"`
	Segments [][2]pose.BodyPart `json:"segments"`
}

type options struct {
	center r3.Vec
	scale  float64
}

// Option adjusts how image coordinates map into the scene.
type Option func(*options)

// WithFrame centres the scene on a width x height frame and scales it so
// 100 pixels become one scene unit.
func WithFrame(width, height int) Option {
	return func(o *options) {
		o.center = r3.Vec{X: float64(width) / 2, Y: float64(height) / 2}
		o.scale = 0.01
	}
}

// BuildScene converts keypoints into scene space. Image y grows downwards
// and depth grows away from the camera, so both are flipped. Keypoints at or
// below the confidence threshold are dropped and 2D keypoints sit at z = 0.
func BuildScene(kps []pose.Keypoint, opts ...Option) Scene {
	o := options{scale: 1}
	for _, fn := range opts {
		fn(&o)
	}

	set := pose.NewSet(kps)
	scene := Scene{Points: []Point{}, Segments: [][2]pose.BodyPart{}}

	for _, part := range pose.AllBodyParts() {
		kp, ok := set.Visible(part)
		if !ok {
			continue
		}
		v := r3.Vec{X: kp.X, Y: kp.Y}
		if kp.Z != nil {
			v.Z = *kp.Z
		}
		v = r3.Scale(o.scale, r3.Sub(v, o.center))
		scene.Points = append(scene.Points, Point{Name: part, X: v.X, Y: flip(v.Y), Z: flip(v.Z)})
	}

	for _, b := range pose.Skeleton {
		_, ok1 := set.Visible(b.From)
		_, ok2 := set.Visible(b.To)
		if ok1 && ok2 {
			scene.Segments = append(scene.Segments, [2]pose.BodyPart{b.From, b.To})
		}
	}
	return scene
}

// flip negates f without producing a negative zero.
func flip(f float64) float64 {
	if f == 0 {
		return 0
	}
	return -f
}
