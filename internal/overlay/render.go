// Package overlay renders measurement annotations onto a transparent
// RGBA layer sized to the radiograph, for export alongside the JSON
// response.
package overlay

import (
	"image"
	"image/color"
	"math"

	"spine-tracer/internal/keypoints"
	"spine-tracer/internal/profile"
	"spine-tracer/pkg/geometry"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Overlay colors per measurement family.
var (
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Cyan    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Orange  = color.RGBA{R: 255, G: 165, B: 0, A: 255}
)

var palette = map[string]color.RGBA{
	keypoints.TypeT1Slope:  Cyan,
	keypoints.TypeCervical: Cyan,
	keypoints.TypeTKT2T5:   Green,
	keypoints.TypeTKT5T12:  Green,
	keypoints.TypeLLL1S1:   Yellow,
	keypoints.TypeLLL1L4:   Yellow,
	keypoints.TypeLLL4S1:   Yellow,
	keypoints.TypeSVA:      Magenta,
	keypoints.TypeTPA:      Orange,
	keypoints.TypePI:       Orange,
	keypoints.TypePT:       Orange,
	keypoints.TypeSS:       Orange,
}

// Options configures overlay rendering.
type Options struct {
	LineWidth    int
	PointRadius  int
	DrawLabels   bool
	ProfileSteps int // samples along the centerline curve, 0 = skip
}

// DefaultOptions returns the rendering defaults.
func DefaultOptions() Options {
	return Options{
		LineWidth:    2,
		PointRadius:  4,
		DrawLabels:   true,
		ProfileSteps: 64,
	}
}

// Render draws every measurement (and optionally the fitted centerline)
// onto a fresh transparent layer of the response's image size.
func Render(resp *keypoints.Response, fit *profile.Fit, opts Options) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, resp.ImageWidth, resp.ImageHeight))

	if fit != nil && opts.ProfileSteps > 0 {
		drawPolyline(img, fit.Sample(opts.ProfileSteps), opts.LineWidth, White)
	}

	for i := range resp.Measurements {
		renderMeasurement(img, &resp.Measurements[i], opts)
	}

	return img
}

func renderMeasurement(img *image.RGBA, m *keypoints.Measurement, opts Options) {
	c, ok := palette[m.Type]
	if !ok {
		c = White
	}

	for _, seg := range segmentsFor(m) {
		drawThickLine(img, seg[0].X, seg[0].Y, seg[1].X, seg[1].Y, opts.LineWidth, c)
	}
	for _, p := range m.Points {
		fillCircle(img, int(p.X), int(p.Y), opts.PointRadius, c)
	}

	if opts.DrawLabels && len(m.Points) > 0 {
		drawLabel(img, m.Type, m.Points[0], c)
	}
}

// segmentsFor maps a measurement's point contract onto drawable
// segments.
func segmentsFor(m *keypoints.Measurement) [][2]geometry.Point2D {
	p := m.Points
	switch {
	case m.Type == keypoints.TypeTPA && len(p) == 7:
		t1Center := geometry.Centroid(p[0:4])
		s1Center := geometry.Midpoint(p[5], p[6])
		return [][2]geometry.Point2D{
			{t1Center, p[4]},
			{p[4], s1Center},
			{p[5], p[6]},
		}
	case (m.Type == keypoints.TypePI || m.Type == keypoints.TypePT) && len(p) == 3:
		s1Center := geometry.Midpoint(p[1], p[2])
		return [][2]geometry.Point2D{
			{p[0], s1Center},
			{p[1], p[2]},
		}
	case len(p) == 4:
		return [][2]geometry.Point2D{{p[0], p[1]}, {p[2], p[3]}}
	case len(p) == 2:
		return [][2]geometry.Point2D{{p[0], p[1]}}
	}

	// Unknown shape: chain consecutive points.
	var segs [][2]geometry.Point2D
	for i := 0; i+1 < len(p); i++ {
		segs = append(segs, [2]geometry.Point2D{p[i], p[i+1]})
	}
	return segs
}

func drawPolyline(img *image.RGBA, pts []geometry.Point2D, width int, c color.RGBA) {
	for i := 0; i+1 < len(pts); i++ {
		drawThickLine(img, pts[i].X, pts[i].Y, pts[i+1].X, pts[i+1].Y, width, c)
	}
}

func drawLabel(img *image.RGBA, text string, at geometry.Point2D, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot: fixed.Point26_6{
			X: fixed.I(int(at.X) + 6),
			Y: fixed.I(int(at.Y) - 6),
		},
	}
	d.DrawString(text)
}

// fillCircle fills a circle with the given color.
func fillCircle(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	bounds := img.Bounds()

	for y := cy - r; y <= cy+r; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := cx - r; x <= cx+r; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.Set(x, y, c)
			}
		}
	}
}

// drawThickLine draws a line with given thickness by sweeping parallel
// offsets along the perpendicular.
func drawThickLine(img *image.RGBA, x1, y1, x2, y2 float64, thickness int, c color.RGBA) {
	bounds := img.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	length := math.Sqrt(dx*dx + dy*dy)
	if length == 0 {
		fillCircle(img, int(x1), int(y1), thickness/2, c)
		return
	}

	px := -dy / length
	py := dx / length

	halfThick := float64(thickness) / 2

	for t := -halfThick; t <= halfThick; t += 1.0 {
		lx1 := x1 + px*t
		ly1 := y1 + py*t
		lx2 := x2 + px*t
		ly2 := y2 + py*t

		drawLine(img, int(lx1), int(ly1), int(lx2), int(ly2), c, bounds)
	}
}

// drawLine draws a line using Bresenham's algorithm.
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA, bounds image.Rectangle) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)

	var sx, sy int
	if x1 < x2 {
		sx = 1
	} else {
		sx = -1
	}
	if y1 < y2 {
		sy = 1
	} else {
		sy = -1
	}

	err := dx - dy

	for {
		if x1 >= bounds.Min.X && x1 < bounds.Max.X && y1 >= bounds.Min.Y && y1 < bounds.Max.Y {
			img.Set(x1, y1, c)
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
