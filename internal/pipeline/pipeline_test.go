package pipeline

import (
	"os"
	"testing"

	"spine-tracer/internal/config"
	"spine-tracer/internal/detection"
	"spine-tracer/pkg/geometry"
)

func TestMain(m *testing.M) {
	os.Setenv("SPINE_ENV", "test")
	os.Exit(m.Run())
}

func testEngine() *Engine {
	return New(&config.Config{
		Calibration:   config.DefaultCalibration(),
		ProfileDegree: 3,
	}, nil)
}

func box(label string, cx, cy float64) detection.VertebraDetection {
	const half = 0.025
	return detection.VertebraDetection{
		Label: label,
		Keypoints: []geometry.Point2D{
			{X: cx - half, Y: cy - half},
			{X: cx + half, Y: cy - half},
			{X: cx - half, Y: cy + half},
			{X: cx + half, Y: cy + half},
		},
	}
}

func TestKeypointsEndToEnd(t *testing.T) {
	req := &detection.Request{
		ImageWidth:  1000,
		ImageHeight: 2000,
		Vertebrae: []detection.VertebraDetection{
			box("T1", 0.49, 0.16),
			box("L5", 0.50, 0.76),
		},
		CFH: &detection.CFHDetection{Center: geometry.Point2D{X: 0.52, Y: 0.90}},
	}

	resp, err := testEngine().Keypoints(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ImageID == "" {
		t.Error("image id not minted")
	}
	// T1 Slope, TPA, PI, PT, SS fire from this set.
	if len(resp.Measurements) != 5 {
		t.Errorf("got %d measurements: %+v", len(resp.Measurements), resp.Measurements)
	}
	if resp.StandardDistance != config.DefaultCalibration().StandardDistance {
		t.Errorf("calibration not passed through: %v", resp.StandardDistance)
	}
}

func TestKeypointsRejectsStructuralViolation(t *testing.T) {
	req := &detection.Request{
		ImageWidth:  100,
		ImageHeight: 100,
		Vertebrae: []detection.VertebraDetection{
			{Label: "T1", Keypoints: make([]geometry.Point2D, 3)},
		},
	}
	if _, err := testEngine().Keypoints(req); err == nil {
		t.Fatal("expected error")
	}
}

func TestMetricsFromKeypoints(t *testing.T) {
	engine := testEngine()
	req := &detection.Request{
		ImageWidth:  1000,
		ImageHeight: 2000,
		Vertebrae:   []detection.VertebraDetection{box("T1", 0.49, 0.16), box("L5", 0.50, 0.76)},
	}

	kp, err := engine.Keypoints(req)
	if err != nil {
		t.Fatalf("keypoints: %v", err)
	}
	m, err := engine.Metrics(kp)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.ImageID != kp.ImageID {
		t.Errorf("image id mismatch: %s vs %s", m.ImageID, kp.ImageID)
	}
	if len(m.Metrics) != len(kp.Measurements) {
		t.Errorf("%d metrics for %d measurements", len(m.Metrics), len(kp.Measurements))
	}
}

func TestJSONRoundTrip(t *testing.T) {
	engine := testEngine()
	payload := []byte(`{
		"imageId": "wire-1",
		"imageWidth": 800,
		"imageHeight": 1600,
		"vertebrae": [
			{"label": "L5", "keypoints": [
				{"x": 0.44, "y": 0.70}, {"x": 0.52, "y": 0.70},
				{"x": 0.44, "y": 0.76}, {"x": 0.52, "y": 0.76}
			]}
		]
	}`)

	kpJSON, err := engine.KeypointsJSON(payload)
	if err != nil {
		t.Fatalf("keypoints json: %v", err)
	}

	metricsJSON, err := engine.MetricsJSON(kpJSON)
	if err != nil {
		t.Fatalf("metrics json: %v", err)
	}

	var out struct {
		ImageID string             `json:"imageId"`
		Metrics map[string]float64 `json:"metrics"`
	}
	if err := detection.Unmarshal(metricsJSON, &out); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if out.ImageID != "wire-1" {
		t.Errorf("image id = %s", out.ImageID)
	}
	if _, ok := out.Metrics["SS"]; !ok {
		t.Errorf("SS missing from %v", out.Metrics)
	}
}

func TestCenterline(t *testing.T) {
	engine := testEngine()
	req := &detection.Request{
		ImageWidth:  1000,
		ImageHeight: 2000,
		Vertebrae: []detection.VertebraDetection{
			box("T1", 0.49, 0.16),
			box("T5", 0.46, 0.34),
			box("T12", 0.45, 0.52),
			box("L5", 0.50, 0.76),
		},
	}

	fit, err := engine.Centerline(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fit == nil {
		t.Fatal("no fit returned")
	}
	if len(fit.Residuals) != 4 {
		t.Errorf("residuals for %d vertebrae, want 4", len(fit.Residuals))
	}
}

func TestCenterlineTooFewVertebrae(t *testing.T) {
	engine := testEngine()
	req := &detection.Request{
		ImageWidth:  1000,
		ImageHeight: 2000,
		Vertebrae:   []detection.VertebraDetection{box("L5", 0.50, 0.76)},
	}

	fit, err := engine.Centerline(req)
	if err != nil {
		t.Fatalf("short spine must not error: %v", err)
	}
	if fit != nil {
		t.Error("expected nil fit for a single vertebra")
	}
}
