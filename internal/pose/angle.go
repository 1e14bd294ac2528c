package pose

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point returns the keypoint position as a 2D vector.
func (k Keypoint) Point() r2.Vec {
	return r2.Vec{X: k.X, Y: k.Y}
}

// pointOf returns the position of a visible keypoint, or nil.
func (s Set) pointOf(p BodyPart) *r2.Vec {
	kp, ok := s.Visible(p)
	if !ok {
		return nil
	}
	v := kp.Point()
	return &v
}

// Angle returns the angle at vertex between the rays vertex->a and
// vertex->b, folded into [0,90] degrees and rounded. ok is false when any
// point is missing.
func Angle(a, vertex, b *r2.Vec) (deg int, ok bool) {
	if a == nil || vertex == nil || b == nil {
		return 0, false
	}
	da := r2.Sub(*a, *vertex)
	db := r2.Sub(*b, *vertex)
	d := math.Abs(math.Atan2(db.Y, db.X)-math.Atan2(da.Y, da.X)) * 180 / math.Pi
	if d > 180 {
		d = 360 - d
	}
	if d > 90 {
		d = 180 - d
	}
	return int(math.Round(d)), true
}

// tiltAngle is the inclination of the line from a to b against the
// horizontal, folded into [0,90].
func tiltAngle(a, b r2.Vec) int {
	deg := int(math.Round(math.Atan2(math.Abs(b.Y-a.Y), b.X-a.X) * 180 / math.Pi))
	if deg > 90 {
		deg = 180 - deg
	}
	return deg
}
