// Package config loads engine configuration from the environment.
//
// The calibration pair is an opaque real-world scale reference defined
// by the imaging hardware, not computed here. It is passed through to
// every response unchanged so downstream consumers can convert pixels to
// millimeters.
package config

import (
	"fmt"
	"os"
	"strconv"

	"spine-tracer/pkg/geometry"

	"github.com/joho/godotenv"
)

// Calibration is the fixed real-world scale reference attached to every
// keypoints response.
type Calibration struct {
	StandardDistance       float64            `json:"standardDistance"`
	StandardDistancePoints []geometry.Point2D `json:"standardDistancePoints"`
}

// Config holds all tunables of the measurement engine.
type Config struct {
	Calibration   Calibration
	ProfileDegree int
}

// DefaultCalibration returns the upstream scanner's reference ruler: a
// 100-unit vertical segment at a fixed film position.
func DefaultCalibration() Calibration {
	return Calibration{
		StandardDistance: 100,
		StandardDistancePoints: []geometry.Point2D{
			{X: 50, Y: 50},
			{X: 50, Y: 150},
		},
	}
}

// Load reads configuration from the environment, honoring a local .env
// file when present.
func Load() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Calibration:   DefaultCalibration(),
		ProfileDegree: 3,
	}

	if v := os.Getenv("SPINE_STANDARD_DISTANCE"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("SPINE_STANDARD_DISTANCE: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("SPINE_STANDARD_DISTANCE must be positive, got %v", d)
		}
		cfg.Calibration.StandardDistance = d
	}

	if v := os.Getenv("SPINE_PROFILE_DEGREE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SPINE_PROFILE_DEGREE: %w", err)
		}
		if n < 1 || n > 6 {
			return nil, fmt.Errorf("SPINE_PROFILE_DEGREE out of range [1,6]: %d", n)
		}
		cfg.ProfileDegree = n
	}

	return cfg, nil
}
