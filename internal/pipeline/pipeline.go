// Package pipeline wires the detection, assembly, metric and profile
// stages into the two in-process contracts the surrounding system calls:
// detections in, keypoints response out; keypoints response in, metrics
// out.
//
// The engine holds configuration and a logger, nothing else: all state
// flows through as parameters, so concurrent requests need no
// coordination.
package pipeline

import (
	"github.com/sirupsen/logrus"

	"spine-tracer/internal/config"
	"spine-tracer/internal/detection"
	"spine-tracer/internal/endplate"
	"spine-tracer/internal/keypoints"
	"spine-tracer/internal/metrics"
	"spine-tracer/internal/profile"
	"spine-tracer/pkg/log"
)

// Engine runs the measurement pipeline.
type Engine struct {
	cfg *config.Config
	log *logrus.Logger
}

// New creates an engine. A nil logger falls back to the shared one.
func New(cfg *config.Config, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Engine{cfg: cfg, log: logger}
}

// Keypoints validates a detection set and assembles its measurements.
func (e *Engine) Keypoints(req *detection.Request) (*keypoints.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.EnsureImageID()

	resp, err := keypoints.Assemble(req, e.cfg.Calibration)
	if err != nil {
		return nil, err
	}

	e.log.WithFields(log.Fields{
		"image_id":     resp.ImageID,
		"vertebrae":    len(req.Vertebrae),
		"cfh":          req.CFH != nil,
		"measurements": len(resp.Measurements),
	}).Info("keypoints assembled")

	return resp, nil
}

// KeypointsJSON is the wire-level variant: JSON in, JSON out.
func (e *Engine) KeypointsJSON(payload []byte) ([]byte, error) {
	req, err := detection.ParseRequest(payload)
	if err != nil {
		return nil, err
	}
	resp, err := e.Keypoints(req)
	if err != nil {
		return nil, err
	}
	return detection.Marshal(resp)
}

// Metrics computes the clinical parameters for an assembled response.
func (e *Engine) Metrics(resp *keypoints.Response) (*metrics.Response, error) {
	out, err := metrics.Compute(resp)
	if err != nil {
		return nil, err
	}

	e.log.WithFields(log.Fields{
		"image_id": out.ImageID,
		"metrics":  len(out.Metrics),
	}).Info("metrics computed")

	return out, nil
}

// MetricsJSON is the wire-level variant of Metrics.
func (e *Engine) MetricsJSON(payload []byte) ([]byte, error) {
	var resp keypoints.Response
	if err := detection.Unmarshal(payload, &resp); err != nil {
		return nil, err
	}
	out, err := e.Metrics(&resp)
	if err != nil {
		return nil, err
	}
	return detection.Marshal(out)
}

// Centerline fits the sagittal profile curve through a detection set's
// vertebral centers, in pixel coordinates. Returns nil without error
// when too few vertebrae are present; a short spine is the normal
// partial-anatomy case, not a failure.
func (e *Engine) Centerline(req *detection.Request) (*profile.Fit, error) {
	plates, err := endplate.PartitionAll(req.Vertebrae)
	if err != nil {
		return nil, err
	}
	if len(plates) < 2 {
		return nil, nil
	}

	w := float64(req.ImageWidth)
	h := float64(req.ImageHeight)
	pixelPlates := make(map[string]endplate.Points, len(plates))
	for label, p := range plates {
		p.Center = p.Center.ToPixel(w, h)
		pixelPlates[label] = p
	}

	fit, err := profile.FitCenterline(pixelPlates, e.cfg.ProfileDegree)
	if err != nil {
		return nil, err
	}

	e.log.WithFields(log.Fields{
		"image_id":  req.ImageID,
		"vertebrae": len(plates),
		"degree":    fit.Degree,
		"rms_px":    fit.RMS,
	}).Debug("centerline fitted")

	return fit, nil
}
