package geometry

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestAngleWithHorizontal(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 Point2D
		want   float64
	}{
		{"horizontal", Point2D{0, 0}, Point2D{10, 0}, 0},
		{"vertical", Point2D{0, 0}, Point2D{0, 10}, 90},
		{"diagonal 45", Point2D{0, 0}, Point2D{10, 10}, 45},
		{"tilted up equals tilted down", Point2D{0, 0}, Point2D{10, -10}, 45},
		{"reversed endpoints", Point2D{10, 10}, Point2D{0, 0}, 45},
		{"shallow", Point2D{0, 0}, Point2D{math.Sqrt(3), 1}, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AngleWithHorizontal(tt.p1, tt.p2)
			if !almostEqual(got, tt.want, 1e-9) {
				t.Errorf("AngleWithHorizontal(%v, %v) = %v, want %v", tt.p1, tt.p2, got, tt.want)
			}
		})
	}
}

func TestAngleWithHorizontalBounded(t *testing.T) {
	// Sweep directions around the full circle; the magnitude convention
	// must keep every result in [0, 90].
	for i := 0; i < 360; i++ {
		rad := float64(i) * math.Pi / 180
		p2 := Point2D{X: math.Cos(rad), Y: math.Sin(rad)}
		got := AngleWithHorizontal(Point2D{}, p2)
		if got < 0 || got > 90 {
			t.Fatalf("direction %d deg: got %v, outside [0, 90]", i, got)
		}
		if math.IsNaN(got) {
			t.Fatalf("direction %d deg: NaN", i)
		}
	}
}

func TestAngleBetweenLines(t *testing.T) {
	tests := []struct {
		name           string
		a1, a2, b1, b2 Point2D
		want           float64
	}{
		{"parallel", Point2D{0, 0}, Point2D{1, 0}, Point2D{5, 5}, Point2D{6, 5}, 0},
		{"perpendicular", Point2D{0, 0}, Point2D{1, 0}, Point2D{0, 0}, Point2D{0, 1}, 90},
		{"opposite", Point2D{0, 0}, Point2D{1, 0}, Point2D{0, 0}, Point2D{-1, 0}, 180},
		{"sixty", Point2D{0, 0}, Point2D{1, 0}, Point2D{0, 0}, Point2D{0.5, math.Sqrt(3) / 2}, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AngleBetweenLines(tt.a1, tt.a2, tt.b1, tt.b2)
			if !almostEqual(got, tt.want, 1e-6) {
				t.Errorf("AngleBetweenLines = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAngleBetweenLinesDegenerate(t *testing.T) {
	// A zero-length direction vector must not produce NaN.
	got := AngleBetweenLines(Point2D{1, 1}, Point2D{1, 1}, Point2D{0, 0}, Point2D{1, 0})
	if math.IsNaN(got) {
		t.Fatal("degenerate segment produced NaN")
	}
	if got < 0 || got > 180 {
		t.Fatalf("degenerate segment produced %v, outside [0, 180]", got)
	}
}

func TestAngleClampAgainstOvershoot(t *testing.T) {
	// Nearly identical long vectors can push the raw cosine above 1.
	a := Point2D{0, 0}
	b := Point2D{1e8, 1e8 + 1e-7}
	c := Point2D{1e8 + 1e-7, 1e8}
	got := ThreePointAngle(b, a, c)
	if math.IsNaN(got) {
		t.Fatal("cosine overshoot produced NaN")
	}
	if got < 0 || got > 180 {
		t.Fatalf("got %v, outside [0, 180]", got)
	}
}

func TestThreePointAngle(t *testing.T) {
	tests := []struct {
		name           string
		p1, vertex, p3 Point2D
		want           float64
	}{
		{"right angle", Point2D{1, 0}, Point2D{0, 0}, Point2D{0, 1}, 90},
		{"straight line", Point2D{-1, 0}, Point2D{0, 0}, Point2D{1, 0}, 180},
		{"same ray", Point2D{1, 1}, Point2D{0, 0}, Point2D{2, 2}, 0},
		{"vertex offset", Point2D{11, 10}, Point2D{10, 10}, Point2D{10, 11}, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ThreePointAngle(tt.p1, tt.vertex, tt.p3)
			if !almostEqual(got, tt.want, 1e-6) {
				t.Errorf("ThreePointAngle = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPixelRoundTrip(t *testing.T) {
	const w, h = 1920.0, 2400.0
	points := []Point2D{
		{0.25, 0.75},
		{0.0, 1.0},
		{0.333333, 0.666667},
		{1.0, 0.0},
	}
	for _, p := range points {
		back := p.ToPixel(w, h).ToNormalized(w, h)
		if !almostEqual(back.X, p.X, tolerance) || !almostEqual(back.Y, p.Y, tolerance) {
			t.Errorf("round trip of %v gave %v", p, back)
		}
	}
}

func TestCentroid(t *testing.T) {
	pts := []Point2D{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	got := Centroid(pts)
	if got.X != 1 || got.Y != 1 {
		t.Errorf("Centroid = %v, want (1,1)", got)
	}

	if got := Centroid(nil); got.X != 0 || got.Y != 0 {
		t.Errorf("Centroid(nil) = %v, want origin", got)
	}
}

func TestMidpoint(t *testing.T) {
	got := Midpoint(Point2D{1, 3}, Point2D{5, 7})
	if got.X != 3 || got.Y != 5 {
		t.Errorf("Midpoint = %v, want (3,5)", got)
	}
}

func TestBoundingBox(t *testing.T) {
	pts := []Point2D{{3, 4}, {-1, 2}, {5, -2}}
	r := BoundingBox(pts)
	if r.X != -1 || r.Y != -2 || r.Width != 6 || r.Height != 6 {
		t.Errorf("BoundingBox = %+v", r)
	}
	if !r.Contains(Point2D{0, 0}) {
		t.Error("box should contain origin")
	}
}
