package archive

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"poseai/internal/pose"
)

//go:embed templates/*
var templates embed.FS

var reportTmpl = template.Must(template.New("report.html").Funcs(tmplFuncs).ParseFS(templates, "templates/report.html"))

var tmplFuncs = template.FuncMap{
	"formatKey": func(s string) string {
		return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
	},
	"add": func(a, b int) int { return a + b },
	"mul": func(a, b float64) float64 { return a * b },
	"scoreClass": func(score int) string {
		switch {
		case score >= 90:
			return "good"
		case score >= 80:
			return "fair"
		default:
			return "poor"
		}
	},
}

type region struct {
	Title    string
	Icon     string
	Angle    float64
	Measured bool
	Findings []string
}

type reportView struct {
	*Record
	Regions   []region
	Exercises []pose.Exercise
}

var regionIcons = map[string]string{
	"Head & Neck":          "M16 7a4 4 0 11-8 0 4 4 0 018 0zM12 14a7 7 0 00-7 7h14a7 7 0 00-7-7z",
	"Shoulders & Scapulae": "M19 11H5m14 0a2 2 0 012 2v6a2 2 0 01-2 2H5a2 2 0 01-2-2v-6a2 2 0 012-2m14 0V9a2 2 0 00-2-2M5 11V9a2 2 0 012-2m0 0V5a2 2 0 012-2h6a2 2 0 012 2v2M7 7h10",
	"Spine":                "M4 6h16M4 10h16M4 14h16M4 18h16",
	"Pelvis & Hips":        "M12 6V4m0 2a2 2 0 100 4m0-4a2 2 0 110 4m-6 8a2 2 0 100-4m0 4a2 2 0 110-4m0 4v2m0-6V4m6 6v10m6-2a2 2 0 100-4m0 4a2 2 0 110-4m0 4v2m0-6V4",
	"Arms & Torso":         "M13.828 10.172a4 4 0 00-5.656 0l-4 4a4 4 0 105.656 5.656l1.102-1.101m-.758-4.899a4 4 0 005.656 0l4-4a4 4 0 00-5.656-5.656l-1.1 1.1",
}

// solutionRegion maps a solution title to the report section it belongs to.
var solutionRegion = map[string]string{
	"Head and neck alignment":     "Head & Neck",
	"Shoulder alignment":          "Shoulders & Scapulae",
	"Back alignment":              "Spine",
	"Pelvic alignment":            "Pelvis & Hips",
	"Shoulder and torso rotation": "Arms & Torso",
}

func buildRegions(rec *Record) []region {
	regions := []region{
		{Title: "Head & Neck", Angle: rec.Result.Angles.Neck},
		{Title: "Shoulders & Scapulae", Angle: rec.Result.Angles.Shoulders},
		{Title: "Spine", Angle: rec.Result.Angles.Back},
		{Title: "Pelvis & Hips", Angle: rec.Result.Angles.Hips},
		{Title: "Arms & Torso"},
	}
	set := pose.NewSet(rec.Keypoints)
	measured := map[string]bool{
		"Head & Neck":          visible(set, pose.LeftEar, pose.RightEar),
		"Shoulders & Scapulae": visible(set, pose.LeftShoulder, pose.RightShoulder),
		"Spine":                visible(set, pose.LeftShoulder, pose.LeftHip, pose.RightHip),
		"Pelvis & Hips":        visible(set, pose.LeftHip, pose.RightHip),
		"Arms & Torso":         visible(set, pose.LeftShoulder, pose.RightShoulder, pose.LeftWrist, pose.RightWrist),
	}

	index := make(map[string]int, len(regions))
	for i := range regions {
		regions[i].Icon = regionIcons[regions[i].Title]
		regions[i].Measured = measured[regions[i].Title]
		index[regions[i].Title] = i
	}
	for i, s := range rec.Result.Solutions {
		if i >= len(rec.Result.Issues) {
			break
		}
		if j, ok := index[solutionRegion[s.Title]]; ok {
			regions[j].Findings = append(regions[j].Findings, rec.Result.Issues[i])
		}
	}
	return regions
}

func visible(set pose.Set, parts ...pose.BodyPart) bool {
	for _, p := range parts {
		if _, ok := set.Visible(p); !ok {
			return false
		}
	}
	return true
}

// recommendExercises collects the exercises named by the solutions in
// order, adding general awareness practice when three or more apply.
func recommendExercises(res pose.Result) []pose.Exercise {
	seen := map[string]bool{}
	var out []pose.Exercise
	for _, s := range res.Solutions {
		for _, name := range s.Exercises {
			if seen[name] {
				continue
			}
			seen[name] = true
			if ex, ok := pose.LookupExercise(name); ok {
				out = append(out, ex)
			}
		}
	}
	if len(out) >= 3 && !seen["Postural Awareness Practice"] {
		if ex, ok := pose.LookupExercise("Postural Awareness Practice"); ok {
			out = append(out, ex)
		}
	}
	return out
}

// RenderReport executes the HTML report for rec.
func RenderReport(w io.Writer, rec *Record) error {
	view := reportView{
		Record:    rec,
		Regions:   buildRegions(rec),
		Exercises: recommendExercises(rec.Result),
	}
	if err := reportTmpl.Execute(w, view); err != nil {
		return fmt.Errorf("execute report template: %w", err)
	}
	return nil
}

func writeReport(outputDir string, rec *Record) error {
	f, err := os.Create(filepath.Join(outputDir, ReportFile))
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()
	return RenderReport(f, rec)
}
