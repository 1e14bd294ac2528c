package pose

// Exercise is a corrective routine suggested alongside a detected issue.
type Exercise struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	Purpose     string `json:"purpose"`
}

var exerciseCatalog = []Exercise{
	{
		Name:        "Scapular Retractions",
		Description: "Squeeze shoulder blades together as if holding a pencil between them. Hold for 5 seconds.",
		Frequency:   "3 sets of 15 reps, 2x daily",
		Purpose:     "Strengthens rhomboids and middle trapezius to level and settle the shoulders",
	},
	{
		Name:        "Upper Trapezius Stretch",
		Description: "Tilt the ear toward the shoulder on the lower side and hold 30 seconds without shrugging.",
		Frequency:   "3 reps per side, 2x daily",
		Purpose:     "Releases the elevated shoulder",
	},
	{
		Name:        "Pelvic Tilts",
		Description: "Lie on back with knees bent. Flatten lower back against floor by tilting pelvis. Hold 5 seconds.",
		Frequency:   "3 sets of 12 reps, 1-2x daily",
		Purpose:     "Activates core muscles and restores a neutral pelvis",
	},
	{
		Name:        "Side Plank",
		Description: "Support the body on one forearm with hips lifted in a straight line. Hold 20-30 seconds.",
		Frequency:   "3 holds per side, 3x weekly",
		Purpose:     "Strengthens the lateral hip and trunk stabilisers",
	},
	{
		Name:        "Chin Tucks",
		Description: "Gently retract chin backward (like making a double chin), hold for 5 seconds. Keep eyes level.",
		Frequency:   "3 sets of 10 reps, 2x daily",
		Purpose:     "Strengthens deep neck flexors and keeps the head centred",
	},
	{
		Name:        "Lateral Neck Stretch",
		Description: "Lower the ear toward the opposite shoulder from the tilt and hold 20 seconds.",
		Frequency:   "3 reps per side, daily",
		Purpose:     "Balances tension on both sides of the neck",
	},
	{
		Name:        "Thoracic Extensions",
		Description: "Place hands behind head, gently extend upper back over a foam roller or rolled towel. Hold 30 seconds.",
		Frequency:   "3-5 repetitions, 1-2x daily",
		Purpose:     "Improves thoracic spine mobility",
	},
	{
		Name:        "Bird Dog",
		Description: "From hands and knees, extend the opposite arm and leg while keeping the back flat. Hold 5 seconds.",
		Frequency:   "3 sets of 10 reps, daily",
		Purpose:     "Trains trunk control to keep the back upright",
	},
	{
		Name:        "Open Book Rotations",
		Description: "Lying on your side with knees bent, rotate the top arm open toward the floor behind you.",
		Frequency:   "2 sets of 10 reps per side, daily",
		Purpose:     "Restores symmetric upper-body rotation",
	},
	{
		Name:        "Postural Awareness Practice",
		Description: "Stand against wall with heels, buttocks, shoulders, and head touching. Hold 30 seconds while breathing normally.",
		Frequency:   "2-3 times daily",
		Purpose:     "Develops kinesthetic awareness of optimal alignment",
	},
}

var exercisesByName = func() map[string]Exercise {
	m := make(map[string]Exercise, len(exerciseCatalog))
	for _, e := range exerciseCatalog {
		m[e.Name] = e
	}
	return m
}()

// LookupExercise returns the catalog entry for an exercise name.
func LookupExercise(name string) (Exercise, bool) {
	e, ok := exercisesByName[name]
	return e, ok
}
