// Package metrics computes the clinical sagittal-alignment parameters
// from assembled measurements.
//
// Every metric is computed independently, and only when its measurement
// type is present: a shortened measurement list yields a shortened
// metrics map, never an error and never a null entry. All results are
// magnitudes, inherited from the upstream angle conventions.
package metrics

import (
	"fmt"
	"math"

	"spine-tracer/internal/keypoints"
	"spine-tracer/pkg/geometry"
)

// Metric name keys of the output map.
const (
	T1Slope               = "T1_Slope"
	CervicalLordosis      = "Cervical_Lordosis"
	ThoracicKyphosisT2T5  = "Thoracic_Kyphosis_T2_T5"
	ThoracicKyphosisT5T12 = "Thoracic_Kyphosis_T5_T12"
	LumbarLordosis        = "Lumbar_Lordosis"
	LumbarLordosisL1L4    = "Lumbar_Lordosis_L1_L4"
	LumbarLordosisL4S1    = "Lumbar_Lordosis_L4_S1"
	SVA                   = "SVA"
	TPA                   = "TPA"
	PI                    = "PI"
	PT                    = "PT"
	SS                    = "SS"
)

// Response pairs the metrics map with the radiograph it describes.
type Response struct {
	ImageID string             `json:"imageId"`
	Metrics map[string]float64 `json:"metrics"`
}

// MalformedMeasurementError reports a measurement whose point count does
// not match its type's contract.
type MalformedMeasurementError struct {
	Type  string
	Count int
	Want  int
}

func (e *MalformedMeasurementError) Error() string {
	return fmt.Sprintf("measurement %q: expected %d points, got %d", e.Type, e.Want, e.Count)
}

// pointContract maps each measurement type to its required point count.
var pointContract = map[string]int{
	keypoints.TypeT1Slope:  2,
	keypoints.TypeCervical: 4,
	keypoints.TypeTKT2T5:   4,
	keypoints.TypeTKT5T12:  4,
	keypoints.TypeLLL1S1:   4,
	keypoints.TypeLLL1L4:   4,
	keypoints.TypeLLL4S1:   4,
	keypoints.TypeSVA:      2,
	keypoints.TypeTPA:      7,
	keypoints.TypePI:       3,
	keypoints.TypePT:       3,
	keypoints.TypeSS:       2,
}

// metricName maps measurement type tags to output metric keys.
var metricName = map[string]string{
	keypoints.TypeT1Slope:  T1Slope,
	keypoints.TypeCervical: CervicalLordosis,
	keypoints.TypeTKT2T5:   ThoracicKyphosisT2T5,
	keypoints.TypeTKT5T12:  ThoracicKyphosisT5T12,
	keypoints.TypeLLL1S1:   LumbarLordosis,
	keypoints.TypeLLL1L4:   LumbarLordosisL1L4,
	keypoints.TypeLLL4S1:   LumbarLordosisL4S1,
	keypoints.TypeSVA:      SVA,
	keypoints.TypeTPA:      TPA,
	keypoints.TypePI:       PI,
	keypoints.TypePT:       PT,
	keypoints.TypeSS:       SS,
}

// Compute derives every metric whose measurement is present. Unknown
// measurement types are ignored; a known type with the wrong point count
// is a structural violation and fails.
func Compute(resp *keypoints.Response) (*Response, error) {
	out := make(map[string]float64, len(resp.Measurements))

	for i := range resp.Measurements {
		m := &resp.Measurements[i]
		want, known := pointContract[m.Type]
		if !known {
			continue
		}
		if len(m.Points) != want {
			return nil, &MalformedMeasurementError{Type: m.Type, Count: len(m.Points), Want: want}
		}

		out[metricName[m.Type]] = compute(m.Type, m.Points)
	}

	return &Response{ImageID: resp.ImageID, Metrics: out}, nil
}

func compute(typ string, p []geometry.Point2D) float64 {
	switch typ {
	case keypoints.TypeT1Slope, keypoints.TypeSS:
		// Slope of a single endplate against the horizontal.
		return geometry.AngleWithHorizontal(p[0], p[1])

	case keypoints.TypeCervical, keypoints.TypeTKT2T5, keypoints.TypeTKT5T12,
		keypoints.TypeLLL1S1, keypoints.TypeLLL1L4, keypoints.TypeLLL4S1:
		return segmentDifference(p)

	case keypoints.TypeSVA:
		// Horizontal offset only; the vertical component is deliberately
		// ignored for sagittal balance.
		return math.Abs(p[0].X - p[1].X)

	case keypoints.TypeTPA:
		t1Center := geometry.Centroid(p[0:4])
		cfh := p[4]
		s1Center := geometry.Midpoint(p[5], p[6])
		return geometry.ThreePointAngle(t1Center, cfh, s1Center)

	case keypoints.TypePI:
		return pelvicIncidence(p[0], p[1], p[2])

	case keypoints.TypePT:
		return pelvicTilt(p[0], p[1], p[2])
	}
	return 0
}

// segmentDifference is the shared curvature formula: the unsigned
// difference between the upper segment's and the lower segment's
// inclination. Because both inclinations are magnitudes, the result can
// differ from a signed Cobb angle when the segments tilt to opposite
// sides; this reproduces the upstream behavior.
func segmentDifference(p []geometry.Point2D) float64 {
	upper := geometry.AngleWithHorizontal(p[0], p[1])
	lower := geometry.AngleWithHorizontal(p[2], p[3])
	return math.Abs(upper - lower)
}

// pelvicIncidence approximates PI as the angle between the perpendicular
// to the S1 plate and the femoral-head-to-S1-center line.
func pelvicIncidence(cfh, s1Left, s1Right geometry.Point2D) float64 {
	s1Center := geometry.Midpoint(s1Left, s1Right)
	s1Angle := geometry.AngleWithHorizontal(s1Left, s1Right)

	cfhS1Angle := math.Atan2(s1Center.Y-cfh.Y, s1Center.X-cfh.X) * 180 / math.Pi

	s1Perpendicular := s1Angle + 90
	return math.Abs(s1Perpendicular - cfhS1Angle)
}

// pelvicTilt measures the femoral-head-to-S1-center line against the
// vertical. The atan2 arguments are swapped relative to pelvicIncidence
// on purpose: the angle is taken from the vertical axis, not the
// horizontal one.
func pelvicTilt(cfh, s1Left, s1Right geometry.Point2D) float64 {
	s1Center := geometry.Midpoint(s1Left, s1Right)

	cfhS1Angle := math.Atan2(s1Center.X-cfh.X, s1Center.Y-cfh.Y) * 180 / math.Pi

	return math.Abs(90 - cfhS1Angle)
}
