// Package keypoints assembles the named clinical measurements that the
// metrics calculator consumes.
//
// Each measurement has a fixed prerequisite set of vertebrae (plus the
// femoral head center for the pelvic ones). A missing prerequisite is
// the normal partial-anatomy case: the measurement is skipped and the
// rest of the list is unaffected. Points are converted from normalized
// to pixel coordinates only at emission time.
package keypoints

import (
	"spine-tracer/internal/config"
	"spine-tracer/internal/detection"
	"spine-tracer/internal/endplate"
	"spine-tracer/internal/sacrum"
	"spine-tracer/pkg/geometry"
)

// Measurement type tags. These are the wire vocabulary shared with the
// hospital frontend and must match it byte for byte.
const (
	TypeT1Slope  = "T1 Slope"
	TypeCervical = "C2-C7 CL"
	TypeTKT2T5   = "TK T2-T5"
	TypeTKT5T12  = "TK T5-T12"
	TypeLLL1S1   = "LL L1-S1"
	TypeLLL1L4   = "LL L1-L4"
	TypeLLL4S1   = "LL L4-S1"
	TypeSVA      = "SVA"
	TypeTPA      = "TPA"
	TypePI       = "PI"
	TypePT       = "PT"
	TypeSS       = "SS"
)

// Measurement is one named point set in pixel coordinates. The point
// count and ordering depend on the type.
type Measurement struct {
	Type   string             `json:"type"`
	Points []geometry.Point2D `json:"points"`
}

// Response is the assembler's full output for one radiograph. It doubles
// as the JSON body returned by the surrounding web layer.
type Response struct {
	ImageID                string             `json:"imageId"`
	ImageWidth             int                `json:"imageWidth"`
	ImageHeight            int                `json:"imageHeight"`
	Measurements           []Measurement      `json:"measurements"`
	StandardDistance       float64            `json:"standardDistance"`
	StandardDistancePoints []geometry.Point2D `json:"standardDistancePoints"`
}

// Measurement returns the measurement with the given type tag, or nil.
func (r *Response) Measurement(typ string) *Measurement {
	for i := range r.Measurements {
		if r.Measurements[i].Type == typ {
			return &r.Measurements[i]
		}
	}
	return nil
}

// builder describes how one measurement type is produced from the
// per-vertebra endplate map.
type builder struct {
	typ      string
	requires []string
	needsCFH bool
	build    func(m map[string]endplate.Points, cfh geometry.Point2D) []geometry.Point2D
}

// upperPlusLower is the shared shape of the curvature measurements: the
// cranial vertebra's upper endplate followed by the caudal vertebra's
// lower endplate, four points total.
func upperPlusLower(upperLabel, lowerLabel string) func(map[string]endplate.Points, geometry.Point2D) []geometry.Point2D {
	return func(m map[string]endplate.Points, _ geometry.Point2D) []geometry.Point2D {
		u := m[upperLabel]
		l := m[lowerLabel]
		return []geometry.Point2D{u.Upper[0], u.Upper[1], l.Lower[0], l.Lower[1]}
	}
}

// builders is the fixed measurement vocabulary, in emission order.
//
// "C2-C7 CL" requires a C2 entry even though C2 is not in the detector
// vocabulary, so it never fires from vocabulary-valid input. The
// condition is kept verbatim from upstream rather than substituting a
// C7-only variant; resolving the mismatch belongs to the detector side.
var builders = []builder{
	{
		typ:      TypeT1Slope,
		requires: []string{"T1"},
		build: func(m map[string]endplate.Points, _ geometry.Point2D) []geometry.Point2D {
			t1 := m["T1"]
			return []geometry.Point2D{t1.Upper[0], t1.Upper[1]}
		},
	},
	{
		typ:      TypeCervical,
		requires: []string{"C2", "C7"},
		build: func(m map[string]endplate.Points, _ geometry.Point2D) []geometry.Point2D {
			c2 := m["C2"]
			c7 := m["C7"]
			return []geometry.Point2D{c2.Lower[0], c2.Lower[1], c7.Lower[0], c7.Lower[1]}
		},
	},
	{typ: TypeTKT2T5, requires: []string{"T2", "T5"}, build: upperPlusLower("T2", "T5")},
	{typ: TypeTKT5T12, requires: []string{"T5", "T12"}, build: upperPlusLower("T5", "T12")},
	{typ: TypeLLL1S1, requires: []string{"L1", "L5"}, build: upperPlusLower("L1", "L5")},
	{typ: TypeLLL1L4, requires: []string{"L1", "L4"}, build: upperPlusLower("L1", "L4")},
	{typ: TypeLLL4S1, requires: []string{"L4", "L5"}, build: upperPlusLower("L4", "L5")},
	{
		// The S1 estimate is extrapolated from L5, so SVA needs L5 even
		// though only C7 appears in its point list.
		typ:      TypeSVA,
		requires: []string{"C7", "L5"},
		build: func(m map[string]endplate.Points, _ geometry.Point2D) []geometry.Point2D {
			c7 := m["C7"]
			s1 := sacrum.EstimateUpperCenter(m["L5"])
			return []geometry.Point2D{c7.UpperPosterior(), s1}
		},
	},
	{
		typ:      TypeTPA,
		requires: []string{"T1", "L5"},
		needsCFH: true,
		build: func(m map[string]endplate.Points, cfh geometry.Point2D) []geometry.Point2D {
			t1 := m["T1"]
			left, right := sacrum.PlateFromL5(m["L5"])
			return []geometry.Point2D{
				t1.Upper[0], t1.Upper[1], t1.Lower[0], t1.Lower[1],
				cfh, left, right,
			}
		},
	},
	{typ: TypePI, requires: []string{"L5"}, needsCFH: true, build: pelvicTriplet},
	{typ: TypePT, requires: []string{"L5"}, needsCFH: true, build: pelvicTriplet},
	{
		typ:      TypeSS,
		requires: []string{"L5"},
		build: func(m map[string]endplate.Points, _ geometry.Point2D) []geometry.Point2D {
			left, right := sacrum.PlateFromL5(m["L5"])
			return []geometry.Point2D{left, right}
		},
	},
}

// pelvicTriplet is shared by PI and PT: femoral head center followed by
// the S1 plate proxy.
func pelvicTriplet(m map[string]endplate.Points, cfh geometry.Point2D) []geometry.Point2D {
	left, right := sacrum.PlateFromL5(m["L5"])
	return []geometry.Point2D{cfh, left, right}
}

// Assemble partitions the detections and emits every measurement whose
// prerequisites are present. Only structural violations (bad keypoint
// counts) produce an error.
func Assemble(req *detection.Request, calib config.Calibration) (*Response, error) {
	plates, err := endplate.PartitionAll(req.Vertebrae)
	if err != nil {
		return nil, err
	}

	var cfh *geometry.Point2D
	if req.CFH != nil {
		c := req.CFH.Center
		cfh = &c
	}

	return AssembleFromMap(req.ImageID, req.ImageWidth, req.ImageHeight, plates, cfh, calib), nil
}

// AssembleFromMap emits measurements from an already-partitioned
// endplate map. The map may contain labels outside the detector
// vocabulary; prerequisites are checked against the map alone.
func AssembleFromMap(imageID string, width, height int, plates map[string]endplate.Points, cfh *geometry.Point2D, calib config.Calibration) *Response {
	resp := &Response{
		ImageID:                imageID,
		ImageWidth:             width,
		ImageHeight:            height,
		Measurements:           []Measurement{},
		StandardDistance:       calib.StandardDistance,
		StandardDistancePoints: calib.StandardDistancePoints,
	}

	w := float64(width)
	h := float64(height)

	for _, b := range builders {
		if b.needsCFH && cfh == nil {
			continue
		}
		if !hasAll(plates, b.requires) {
			continue
		}

		var center geometry.Point2D
		if cfh != nil {
			center = *cfh
		}

		normalized := b.build(plates, center)
		points := make([]geometry.Point2D, len(normalized))
		for i, p := range normalized {
			points[i] = p.ToPixel(w, h)
		}

		resp.Measurements = append(resp.Measurements, Measurement{Type: b.typ, Points: points})
	}

	return resp
}

func hasAll(plates map[string]endplate.Points, labels []string) bool {
	for _, l := range labels {
		if _, ok := plates[l]; !ok {
			return false
		}
	}
	return true
}
