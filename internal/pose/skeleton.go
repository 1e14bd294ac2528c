package pose

// Bone is a drawn connection between two landmarks.
type Bone struct {
	From, To BodyPart
}

// Skeleton lists the bones drawn on overlays, grouped upper body, torso,
// legs, feet.
var Skeleton = []Bone{
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow},
	{RightShoulder, RightElbow},
	{LeftElbow, LeftWrist},
	{RightElbow, RightWrist},

	{LeftShoulder, LeftHip},
	{RightShoulder, RightHip},
	{LeftHip, RightHip},

	{LeftHip, LeftKnee},
	{RightHip, RightKnee},
	{LeftKnee, LeftAnkle},
	{RightKnee, RightAnkle},

	{LeftAnkle, LeftHeel},
	{RightAnkle, RightHeel},
	{LeftHeel, LeftFootIndex},
	{RightHeel, RightFootIndex},
}

// Region is the coarse anatomical group a landmark belongs to.
type Region int

const (
	RegionOther Region = iota
	RegionShoulder
	RegionHip
	RegionKnee
	RegionAnkle
	RegionElbow
	RegionWrist
)

// RegionOf maps a body part to its region.
func RegionOf(p BodyPart) Region {
	switch p {
	case LeftShoulder, RightShoulder:
		return RegionShoulder
	case LeftHip, RightHip:
		return RegionHip
	case LeftKnee, RightKnee:
		return RegionKnee
	case LeftAnkle, RightAnkle:
		return RegionAnkle
	case LeftElbow, RightElbow:
		return RegionElbow
	case LeftWrist, RightWrist:
		return RegionWrist
	}
	return RegionOther
}

// Region picks the region used to color a bone. Shoulders take precedence
// over hips, hips over knees, and so on down to wrists.
func (b Bone) Region() Region {
	from, to := RegionOf(b.From), RegionOf(b.To)
	for _, r := range []Region{RegionShoulder, RegionHip, RegionKnee, RegionAnkle, RegionElbow, RegionWrist} {
		if from == r || to == r {
			return r
		}
	}
	return RegionOther
}
