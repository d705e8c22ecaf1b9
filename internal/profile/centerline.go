// Package profile fits a smooth sagittal centerline through the detected
// vertebral body centers.
//
// The spine runs roughly vertically on a lateral film, so the fit models
// x as a polynomial in y. The curve is descriptive only: it feeds the
// overlay renderer and per-vertebra residual reporting, not any clinical
// metric.
package profile

import (
	"fmt"
	"math"
	"sort"

	"spine-tracer/internal/endplate"
	"spine-tracer/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// Fit is a least-squares polynomial x(y), lowest order first.
type Fit struct {
	Coeffs    []float64          `json:"coeffs"`
	Degree    int                `json:"degree"`
	Residuals map[string]float64 `json:"residuals"`
	RMS       float64            `json:"rms"`
	yMin      float64
	yMax      float64
}

// FitCenterline fits a polynomial of the requested degree through the
// vertebral centers. The degree is clamped so the system stays
// overdetermined or exactly determined; fewer than two centers cannot
// define a curve.
func FitCenterline(plates map[string]endplate.Points, degree int) (*Fit, error) {
	if len(plates) < 2 {
		return nil, fmt.Errorf("centerline fit needs at least 2 vertebrae, got %d", len(plates))
	}
	if degree < 1 {
		return nil, fmt.Errorf("centerline degree must be at least 1, got %d", degree)
	}
	if degree > len(plates)-1 {
		degree = len(plates) - 1
	}

	// Deterministic row order regardless of map iteration.
	labels := make([]string, 0, len(plates))
	for l := range plates {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	n := len(labels)
	cols := degree + 1

	// Vandermonde system in y, solved by QR as an overdetermined
	// least-squares problem.
	A := mat.NewDense(n, cols, nil)
	B := mat.NewVecDense(n, nil)

	yMin := math.Inf(1)
	yMax := math.Inf(-1)
	for i, label := range labels {
		c := plates[label].Center
		v := 1.0
		for j := 0; j < cols; j++ {
			A.Set(i, j, v)
			v *= c.Y
		}
		B.SetVec(i, c.X)

		if c.Y < yMin {
			yMin = c.Y
		}
		if c.Y > yMax {
			yMax = c.Y
		}
	}

	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return nil, fmt.Errorf("centerline solve: %w", err)
	}

	fit := &Fit{
		Coeffs:    make([]float64, cols),
		Degree:    degree,
		Residuals: make(map[string]float64, n),
		yMin:      yMin,
		yMax:      yMax,
	}
	for j := 0; j < cols; j++ {
		fit.Coeffs[j] = params.AtVec(j)
	}

	var sumSq float64
	for _, label := range labels {
		c := plates[label].Center
		r := math.Abs(c.X - fit.Eval(c.Y))
		fit.Residuals[label] = r
		sumSq += r * r
	}
	fit.RMS = math.Sqrt(sumSq / float64(n))

	return fit, nil
}

// Eval returns the fitted x for a given y (Horner evaluation).
func (f *Fit) Eval(y float64) float64 {
	var x float64
	for j := len(f.Coeffs) - 1; j >= 0; j-- {
		x = x*y + f.Coeffs[j]
	}
	return x
}

// Sample returns n points along the fitted curve over the y range of the
// input centers, ordered cranial to caudal.
func (f *Fit) Sample(n int) []geometry.Point2D {
	if n < 2 {
		n = 2
	}
	out := make([]geometry.Point2D, n)
	step := (f.yMax - f.yMin) / float64(n-1)
	for i := 0; i < n; i++ {
		y := f.yMin + float64(i)*step
		out[i] = geometry.Point2D{X: f.Eval(y), Y: y}
	}
	return out
}
