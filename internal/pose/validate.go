package pose

// UploadRequired are the parts a still image must show before scoring.
var UploadRequired = []BodyPart{
	Nose,
	LeftShoulder, RightShoulder,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
}

// LiveRequired is the smaller set checked on webcam frames, where the lower
// body is often out of shot.
var LiveRequired = []BodyPart{
	Nose,
	LeftShoulder, RightShoulder,
	LeftHip, RightHip,
}

// Missing lists the required parts that are absent or below the confidence
// threshold, in the order they were requested.
func Missing(kps []Keypoint, required []BodyPart) []BodyPart {
	set := NewSet(kps)
	var missing []BodyPart
	for _, p := range required {
		if _, ok := set.Visible(p); !ok {
			missing = append(missing, p)
		}
	}
	return missing
}
