// Package geometry provides basic geometric types and the angle
// primitives used by the spinal measurement pipeline.
//
// All angle functions return magnitudes. Composite clinical angles built
// on top of them (segment-difference curvature angles in particular)
// therefore carry no lordosis/kyphosis sign; this matches the upstream
// measurement conventions and is not corrected here.
package geometry

import (
	"math"
)

// epsilon pads dot-product denominators so zero-length vectors yield a
// finite angle instead of NaN.
const epsilon = 1e-9

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// ToPixel converts a normalized (image-fraction) point to pixel
// coordinates by scaling each axis independently.
func (p Point2D) ToPixel(width, height float64) Point2D {
	return Point2D{X: p.X * width, Y: p.Y * height}
}

// ToNormalized converts a pixel point back to image-fraction coordinates.
func (p Point2D) ToNormalized(width, height float64) Point2D {
	return Point2D{X: p.X / width, Y: p.Y / height}
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point2D) Point2D {
	return Point2D{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Centroid computes the centroid (average position) of a set of points.
func Centroid(points []Point2D) Point2D {
	if len(points) == 0 {
		return Point2D{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point2D{X: sumX / n, Y: sumY / n}
}

// AngleWithHorizontal returns the inclination of the segment p1->p2
// relative to the horizontal axis, in degrees.
//
// Both components enter as absolute values, so the result is a magnitude
// in [0, 90]: a segment tilted 10 degrees up is indistinguishable from
// one tilted 10 degrees down. Callers composing signed quantities must
// account for this.
func AngleWithHorizontal(p1, p2 Point2D) float64 {
	dx := math.Abs(p2.X - p1.X)
	dy := math.Abs(p2.Y - p1.Y)
	return math.Atan2(dy, dx) * 180 / math.Pi
}

// AngleBetweenLines returns the unsigned angle in degrees between the
// direction vectors a1->a2 and b1->b2, in [0, 180].
func AngleBetweenLines(a1, a2, b1, b2 Point2D) float64 {
	u := a2.Sub(a1)
	v := b2.Sub(b1)
	return vectorAngle(u, v)
}

// ThreePointAngle returns the unsigned angle in degrees at vertex formed
// by the rays vertex->p1 and vertex->p3, in [0, 180].
func ThreePointAngle(p1, vertex, p3 Point2D) float64 {
	u := p1.Sub(vertex)
	v := p3.Sub(vertex)
	return vectorAngle(u, v)
}

// vectorAngle computes the angle between two vectors via the dot
// product. The cosine is clamped to [-1, 1] to absorb floating-point
// overshoot before acos.
func vectorAngle(u, v Point2D) float64 {
	dot := u.X*v.X + u.Y*v.Y
	norm := math.Hypot(u.X, u.Y)*math.Hypot(v.X, v.Y) + epsilon
	cos := dot / norm
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) * 180 / math.Pi
}

// Rect represents an axis-aligned rectangle with floating-point
// coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point2D {
	return Point2D{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains returns true if the point is inside the rectangle.
func (r Rect) Contains(p Point2D) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
