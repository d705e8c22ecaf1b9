// Package detection defines the wire contract between the upstream
// vertebra detector and the measurement engine, and validates its shape.
//
// Keypoint coordinates arrive normalized (fractions of the image width
// and height). They stay normalized until the keypoints assembler emits
// measurements in pixel space.
package detection

import (
	"fmt"

	"spine-tracer/pkg/geometry"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

var validate = validator.New()

// CornerCount is the number of corner keypoints the detector emits per
// vertebral body on a lateral film.
const CornerCount = 4

// Labels is the fixed vocabulary of detectable vertebrae. Note that C2
// is absent: the "C2-C7 CL" measurement still requires it, so that
// measurement cannot fire from vocabulary-valid input. This mirrors the
// upstream detector and is deliberately left unresolved.
var Labels = []string{
	"C7",
	"T1", "T2", "T3", "T4", "T5", "T6", "T7", "T8", "T9", "T10", "T11", "T12",
	"L1", "L2", "L3", "L4", "L5",
}

var labelSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Labels))
	for _, l := range Labels {
		m[l] = struct{}{}
	}
	return m
}()

// KnownLabel reports whether label belongs to the detector vocabulary.
func KnownLabel(label string) bool {
	_, ok := labelSet[label]
	return ok
}

// VertebraDetection is one detected vertebral body: its clinical label
// and the four corners of the body in normalized coordinates.
type VertebraDetection struct {
	Label     string             `json:"label" validate:"required"`
	Keypoints []geometry.Point2D `json:"keypoints" validate:"len=4"`
}

// CFHDetection is the combined femoral head center, the pelvic
// reference point. It is optional upstream.
type CFHDetection struct {
	Center geometry.Point2D `json:"center"`
}

// Request is the full detection set for one radiograph.
type Request struct {
	ImageID     string              `json:"imageId,omitempty"`
	ImageWidth  int                 `json:"imageWidth" validate:"gt=0"`
	ImageHeight int                 `json:"imageHeight" validate:"gt=0"`
	Vertebrae   []VertebraDetection `json:"vertebrae" validate:"dive"`
	CFH         *CFHDetection       `json:"cfh,omitempty"`
}

// MalformedDetectionError reports a vertebra detection whose keypoint
// count violates the four-corner contract.
type MalformedDetectionError struct {
	Label string
	Count int
}

func (e *MalformedDetectionError) Error() string {
	return fmt.Sprintf("vertebra %s: expected %d keypoints, got %d", e.Label, CornerCount, e.Count)
}

// UnknownLabelError reports a detection labeled outside the vocabulary.
type UnknownLabelError struct {
	Label string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("unknown vertebra label %q", e.Label)
}

// Validate checks the structural invariants of the request. Missing
// anatomy is never an error; only shape violations are.
func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		// Re-report keypoint count violations as the domain error so the
		// offending vertebra is named.
		for i := range r.Vertebrae {
			if len(r.Vertebrae[i].Keypoints) != CornerCount {
				return &MalformedDetectionError{
					Label: r.Vertebrae[i].Label,
					Count: len(r.Vertebrae[i].Keypoints),
				}
			}
		}
		return fmt.Errorf("invalid detection request: %w", err)
	}
	for i := range r.Vertebrae {
		if !KnownLabel(r.Vertebrae[i].Label) {
			return &UnknownLabelError{Label: r.Vertebrae[i].Label}
		}
	}
	return nil
}

// EnsureImageID mints an identifier when the caller supplied none.
func (r *Request) EnsureImageID() {
	if r.ImageID == "" {
		r.ImageID = uuid.NewString()
	}
}

// ParseRequest decodes and validates a JSON detection payload.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := jsonAPI.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode detection request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Marshal encodes any engine payload with the shared JSON codec.
func Marshal(v interface{}) ([]byte, error) {
	return jsonAPI.Marshal(v)
}

// Unmarshal decodes into v with the shared JSON codec.
func Unmarshal(data []byte, v interface{}) error {
	return jsonAPI.Unmarshal(data, v)
}
