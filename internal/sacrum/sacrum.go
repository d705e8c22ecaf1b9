// Package sacrum approximates sacral landmarks. The upstream detector
// never emits S1 directly, so two distinct stand-ins exist:
//
//   - an extrapolated S1 upper-endplate center derived from L5's body
//     height, consumed by the SVA measurement;
//   - L5's own lower endplate used verbatim as the S1 plate, consumed by
//     TPA, PI, PT and SS.
//
// These are different points with different jobs. They are kept as
// separately named functions and must not be merged into one estimator.
package sacrum

import (
	"spine-tracer/internal/endplate"
	"spine-tracer/pkg/geometry"
)

// extrapolationFactor scales L5's body height when projecting downward
// to the estimated S1 upper endplate. Inherited from the upstream
// pipeline; changing it changes every SVA result.
const extrapolationFactor = 1.2

// EstimateUpperCenter extrapolates the S1 upper-endplate center from
// L5's geometry: the L5 lower-endplate midpoint pushed further down by
// 1.2 times the L5 body height, x unchanged.
func EstimateUpperCenter(l5 endplate.Points) geometry.Point2D {
	lowerCenter := geometry.Midpoint(l5.Lower[0], l5.Lower[1])
	upperCenterY := (l5.Upper[0].Y + l5.Upper[1].Y) / 2

	height := lowerCenter.Y - upperCenterY
	if height < 0 {
		height = -height
	}

	return geometry.Point2D{
		X: lowerCenter.X,
		Y: lowerCenter.Y + extrapolationFactor*height,
	}
}

// PlateFromL5 returns the S1 endplate proxy: L5's lower endplate
// corners, left = anterior, right = posterior.
func PlateFromL5(l5 endplate.Points) (left, right geometry.Point2D) {
	return l5.LowerAnterior(), l5.LowerPosterior()
}
