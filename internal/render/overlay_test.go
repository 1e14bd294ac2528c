package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseai/internal/pose"
)

func body() []pose.Keypoint {
	return []pose.Keypoint{
		{Name: pose.Nose, X: 100, Y: 40, Score: 0.9},
		{Name: pose.LeftShoulder, X: 150, Y: 100, Score: 0.9},
		{Name: pose.RightShoulder, X: 50, Y: 100, Score: 0.9},
		{Name: pose.LeftHip, X: 150, Y: 160, Score: 0.9},
		{Name: pose.RightHip, X: 50, Y: 160, Score: 0.9},
		{Name: pose.LeftKnee, X: 20, Y: 190, Score: 0.2},
	}
}

func assertColor(t *testing.T, img *image.RGBA, x, y int, want color.NRGBA) {
	t.Helper()
	got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	assert.InDelta(t, want.R, got.R, 2, "red at %d,%d", x, y)
	assert.InDelta(t, want.G, got.G, 2, "green at %d,%d", x, y)
	assert.InDelta(t, want.B, got.B, 2, "blue at %d,%d", x, y)
	assert.Equal(t, want.A, got.A, "alpha at %d,%d", x, y)
}

func TestOverlayDrawsBonesAndMarkers(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	Overlay(img, body(), DefaultOptions())

	// shoulder bone midway between the shoulders
	assertColor(t, img, 100, 100, colorShoulder)
	// hip bone
	assertColor(t, img, 100, 160, colorHip)
	// shoulder-hip bones take the shoulder color
	assertColor(t, img, 150, 130, colorShoulder)
	// nose marker uses the fallback color
	assertColor(t, img, 100, 40, colorPoint)
}

func TestOverlaySkipsLowConfidence(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	Overlay(img, body(), DefaultOptions())

	assert.Equal(t, color.RGBA{}, img.RGBAAt(20, 190))
	// no bone from the left hip towards the hidden knee
	assert.Equal(t, color.RGBA{}, img.RGBAAt(85, 175))
}

func TestOverlayWithoutTorsoDrawsNoGuides(t *testing.T) {
	kps := []pose.Keypoint{
		{Name: pose.LeftKnee, X: 150, Y: 100, Score: 0.9},
		{Name: pose.RightKnee, X: 50, Y: 100, Score: 0.9},
	}
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	Overlay(img, kps, DefaultOptions())

	assertColor(t, img, 150, 100, colorKnee)
	assert.Equal(t, color.RGBA{}, img.RGBAAt(97, 100))
}

func TestOverlayHonoursImageOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(100, 100, 300, 300))
	Overlay(img, []pose.Keypoint{{Name: pose.Nose, X: 200, Y: 200, Score: 1}}, DefaultOptions())
	assertColor(t, img, 200, 200, colorPoint)
	assert.Equal(t, color.RGBA{}, img.RGBAAt(110, 110))
}

func TestOverlayClipsAtImageEdge(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	kps := []pose.Keypoint{
		{Name: pose.Nose, X: 0, Y: 0, Score: 1},
		{Name: pose.LeftEye, X: -40, Y: 25, Score: 1},
	}
	Overlay(img, kps, DefaultOptions())
	assertColor(t, img, 1, 1, colorPoint)
	assert.Equal(t, color.RGBA{}, img.RGBAAt(10, 10))
}

func TestOverlayLargeImage(t *testing.T) {
	// 12MP phone photo with the body spread across the frame
	img := image.NewRGBA(image.Rect(0, 0, 4000, 3000))
	kps := []pose.Keypoint{
		{Name: pose.Nose, X: 2000, Y: 300, Score: 0.9},
		{Name: pose.LeftShoulder, X: 3000, Y: 800, Score: 0.9},
		{Name: pose.RightShoulder, X: 1000, Y: 800, Score: 0.9},
		{Name: pose.LeftHip, X: 3000, Y: 1600, Score: 0.9},
		{Name: pose.RightHip, X: 1000, Y: 1600, Score: 0.9},
		{Name: pose.LeftKnee, X: 3000, Y: 2400, Score: 0.9},
		{Name: pose.RightKnee, X: 1000, Y: 2400, Score: 0.9},
		{Name: pose.LeftAnkle, X: 3000, Y: 2900, Score: 0.9},
		{Name: pose.RightAnkle, X: 1000, Y: 2900, Score: 0.9},
	}

	start := time.Now()
	Overlay(img, kps, DefaultOptions())
	assert.Less(t, time.Since(start), 2*time.Second)

	assertColor(t, img, 2000, 800, colorShoulder)
	assertColor(t, img, 3000, 2000, colorHip)
	// knee guide runs right to left from x=3000: on for 1002..1003, off for 1007..1008
	assert.NotZero(t, img.RGBAAt(1997, 2400).A)
	assert.Zero(t, img.RGBAAt(1992, 2400).A)
}

func TestRenderAndEncode(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 200, 200))
	out := Render(src, body(), DefaultOptions())
	require.Equal(t, 200, out.Bounds().Dx())
	assertColor(t, out, 100, 100, colorShoulder)
	// background is copied from the source
	assertColor(t, out, 5, 5, color.NRGBA{0, 0, 0, 0xFF})

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, out))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, out.Bounds(), decoded.Bounds())
}

func TestBoneColors(t *testing.T) {
	assert.Equal(t, colorShoulder, boneColor(pose.Bone{From: pose.LeftShoulder, To: pose.LeftElbow}))
	assert.Equal(t, colorElbow, boneColor(pose.Bone{From: pose.LeftElbow, To: pose.LeftWrist}))
	assert.Equal(t, colorAnkle, boneColor(pose.Bone{From: pose.LeftAnkle, To: pose.LeftHeel}))
	assert.Equal(t, colorBone, boneColor(pose.Bone{From: pose.LeftHeel, To: pose.LeftFootIndex}))
}
