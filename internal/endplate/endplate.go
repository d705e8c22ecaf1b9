// Package endplate partitions raw vertebra corner keypoints into labeled
// endplate corners.
//
// Image y grows downward, so the two smallest-y corners form the upper
// (cranial) endplate. Within each endplate the larger-x corner is
// anterior: the pipeline assumes the fixed patient orientation of the
// upstream lateral films and must not "correct" it.
package endplate

import (
	"sort"

	"spine-tracer/internal/detection"
	"spine-tracer/pkg/geometry"
)

// Points holds the derived endplate corners of one vertebral body.
// Both pairs are ordered anterior then posterior.
type Points struct {
	Upper  [2]geometry.Point2D
	Lower  [2]geometry.Point2D
	Center geometry.Point2D
}

// UpperAnterior returns the front corner of the upper endplate.
func (p Points) UpperAnterior() geometry.Point2D { return p.Upper[0] }

// UpperPosterior returns the back corner of the upper endplate.
func (p Points) UpperPosterior() geometry.Point2D { return p.Upper[1] }

// LowerAnterior returns the front corner of the lower endplate.
func (p Points) LowerAnterior() geometry.Point2D { return p.Lower[0] }

// LowerPosterior returns the back corner of the lower endplate.
func (p Points) LowerPosterior() geometry.Point2D { return p.Lower[1] }

// Partition splits the four corner keypoints of one vertebra into upper
// and lower endplate pairs. The center is the centroid of the raw
// corners, not of the re-labeled pairs. A keypoint count other than four
// is a structural violation and fails, never truncates.
func Partition(label string, corners []geometry.Point2D) (Points, error) {
	if len(corners) != detection.CornerCount {
		return Points{}, &detection.MalformedDetectionError{Label: label, Count: len(corners)}
	}

	sorted := make([]geometry.Point2D, detection.CornerCount)
	copy(sorted, corners)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Y < sorted[j].Y
	})

	upper := orderAnteriorPosterior(sorted[0], sorted[1])
	lower := orderAnteriorPosterior(sorted[2], sorted[3])

	return Points{
		Upper:  upper,
		Lower:  lower,
		Center: geometry.Centroid(corners),
	}, nil
}

// orderAnteriorPosterior orders one endplate pair anterior-first.
func orderAnteriorPosterior(a, b geometry.Point2D) [2]geometry.Point2D {
	if a.X >= b.X {
		return [2]geometry.Point2D{a, b}
	}
	return [2]geometry.Point2D{b, a}
}

// PartitionAll derives endplate points for every detection in the set,
// keyed by vertebra label.
func PartitionAll(vertebrae []detection.VertebraDetection) (map[string]Points, error) {
	out := make(map[string]Points, len(vertebrae))
	for i := range vertebrae {
		pts, err := Partition(vertebrae[i].Label, vertebrae[i].Keypoints)
		if err != nil {
			return nil, err
		}
		out[vertebrae[i].Label] = pts
	}
	return out, nil
}
