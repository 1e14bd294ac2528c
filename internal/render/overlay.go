// Package render draws detected keypoints over the analysed image.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"poseai/internal/pose"
)

var (
	colorShoulder = color.NRGBA{0xFF, 0x6B, 0x6B, 0xFF}
	colorHip      = color.NRGBA{0x4E, 0xCD, 0xC4, 0xFF}
	colorKnee     = color.NRGBA{0x45, 0xB7, 0xD1, 0xFF}
	colorAnkle    = color.NRGBA{0x96, 0xCE, 0xB4, 0xFF}
	colorElbow    = color.NRGBA{0xFF, 0xEE, 0xAD, 0xFF}
	colorWrist    = color.NRGBA{0xD4, 0xA5, 0xA5, 0xFF}
	colorPoint    = color.NRGBA{0xDC, 0xF8, 0x37, 0xFF}
	colorBone     = color.NRGBA{0xE1, 0xF2, 0x99, 0xFF}
)

// RegionColor returns the marker color for a region.
func RegionColor(r pose.Region) color.NRGBA {
	switch r {
	case pose.RegionShoulder:
		return colorShoulder
	case pose.RegionHip:
		return colorHip
	case pose.RegionKnee:
		return colorKnee
	case pose.RegionAnkle:
		return colorAnkle
	case pose.RegionElbow:
		return colorElbow
	case pose.RegionWrist:
		return colorWrist
	}
	return colorPoint
}

func boneColor(b pose.Bone) color.NRGBA {
	if r := b.Region(); r != pose.RegionOther {
		return RegionColor(r)
	}
	return colorBone
}

// Options controls stroke sizes in pixels.
type Options struct {
	LineWidth   float64
	PointRadius float64
	GuideWidth  float64
	// Dash is the on and off length of the alignment guides.
	Dash float64
}

func DefaultOptions() Options {
	return Options{
		LineWidth:   2,
		PointRadius: 4,
		GuideWidth:  1,
		Dash:        5,
	}
}

// guides are the horizontal alignment references drawn between left/right
// pairs. Knee and ankle guides need the shoulder and hip guides to be
// drawable first.
var guides = []struct {
	left, right pose.BodyPart
	region      pose.Region
}{
	{pose.LeftShoulder, pose.RightShoulder, pose.RegionShoulder},
	{pose.LeftHip, pose.RightHip, pose.RegionHip},
	{pose.LeftKnee, pose.RightKnee, pose.RegionKnee},
	{pose.LeftAnkle, pose.RightAnkle, pose.RegionAnkle},
}

// Overlay draws the skeleton, the keypoint markers and the dashed
// alignment guides onto dst. Keypoints at or below the confidence
// threshold are skipped.
func Overlay(dst draw.Image, kps []pose.Keypoint, opts Options) {
	set := pose.NewSet(kps)
	c := newCanvas(dst)

	for _, b := range pose.Skeleton {
		from, ok1 := set.Visible(b.From)
		to, ok2 := set.Visible(b.To)
		if !ok1 || !ok2 {
			continue
		}
		c.line(from.X, from.Y, to.X, to.Y, opts.LineWidth, boneColor(b))
	}

	for _, part := range pose.AllBodyParts() {
		kp, ok := set.Visible(part)
		if !ok {
			continue
		}
		c.disc(kp.X, kp.Y, opts.PointRadius, RegionColor(pose.RegionOf(part)))
	}

	for i, g := range guides {
		l, lok := set.Visible(g.left)
		r, rok := set.Visible(g.right)
		if !lok || !rok {
			if i < 2 {
				return
			}
			continue
		}
		col := RegionColor(g.region)
		col.A = 0x80
		c.dashed(l.X, l.Y, r.X, r.Y, opts.GuideWidth, opts.Dash, col)
	}
}

// Render copies src into a new RGBA image and draws the overlay on it.
func Render(src image.Image, kps []pose.Keypoint, opts Options) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	Overlay(dst, kps, opts)
	return dst
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode overlay: %w", err)
	}
	return nil
}

type canvas struct {
	dst draw.Image
}

func newCanvas(dst draw.Image) *canvas {
	return &canvas{dst: dst}
}

type point struct{ x, y float64 }

// fill rasterizes the closed polygons in one pass. The rasterizer only
// covers their bounding box clipped to dst, so cost follows the size of the
// shape and not of the image.
func (c *canvas) fill(col color.Color, polys ...[]point) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, poly := range polys {
		for _, p := range poly {
			minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
			minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
		}
	}
	if minX > maxX || minY > maxY {
		return
	}
	box := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1,
	).Intersect(c.dst.Bounds())
	if box.Empty() {
		return
	}

	r := vector.NewRasterizer(box.Dx(), box.Dy())
	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	for _, poly := range polys {
		if len(poly) < 3 {
			continue
		}
		r.MoveTo(float32(poly[0].x-ox), float32(poly[0].y-oy))
		for _, p := range poly[1:] {
			r.LineTo(float32(p.x-ox), float32(p.y-oy))
		}
		r.ClosePath()
	}
	r.Draw(c.dst, box, image.NewUniform(col), box.Min)
}

// quad returns the rectangle of the given width around the segment, or nil
// for a zero-length segment.
func quad(x0, y0, x1, y1, width float64) []point {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return nil
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	return []point{
		{x0 + nx, y0 + ny},
		{x1 + nx, y1 + ny},
		{x1 - nx, y1 - ny},
		{x0 - nx, y0 - ny},
	}
}

func (c *canvas) line(x0, y0, x1, y1, width float64, col color.Color) {
	if q := quad(x0, y0, x1, y1, width); q != nil {
		c.fill(col, q)
	}
}

// dashed fills every dash of the segment with a single rasterizer.
func (c *canvas) dashed(x0, y0, x1, y1, width, dash float64, col color.Color) {
	length := math.Hypot(x1-x0, y1-y0)
	if length == 0 || dash <= 0 {
		return
	}
	ux, uy := (x1-x0)/length, (y1-y0)/length
	var dashes [][]point
	for s := 0.0; s < length; s += 2 * dash {
		e := math.Min(s+dash, length)
		if q := quad(x0+ux*s, y0+uy*s, x0+ux*e, y0+uy*e, width); q != nil {
			dashes = append(dashes, q)
		}
	}
	c.fill(col, dashes...)
}

func (c *canvas) disc(cx, cy, radius float64, col color.Color) {
	const steps = 24
	poly := make([]point, steps)
	for i := range poly {
		a := 2 * math.Pi * float64(i) / steps
		poly[i] = point{cx + radius*math.Cos(a), cy + radius*math.Sin(a)}
	}
	c.fill(col, poly)
}
