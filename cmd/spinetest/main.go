// Command spinetest runs the spinal measurement pipeline on a detection
// JSON file and prints the assembled measurements and clinical metrics.
// With -o it also exports the annotation layer as a PNG, composited onto
// the radiograph when one is supplied via -i.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"sort"

	"spine-tracer/internal/config"
	"spine-tracer/internal/detection"
	"spine-tracer/internal/keypoints"
	"spine-tracer/internal/overlay"
	"spine-tracer/internal/pipeline"
	"spine-tracer/internal/profile"
	"spine-tracer/pkg/log"

	_ "golang.org/x/image/tiff"
)

func main() {
	detectionsPath := flag.String("d", "", "Path to detections JSON")
	imagePath := flag.String("i", "", "Path to the radiograph (optional, for overlay export)")
	overlayPath := flag.String("o", "", "Path to write the annotated PNG")
	withProfile := flag.Bool("profile", false, "Fit and report the sagittal centerline")
	flag.Parse()

	if *detectionsPath == "" {
		fmt.Println("Usage: spinetest -d <detections.json> [-i <radiograph>] [-o <overlay.png>] [-profile]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	engine := pipeline.New(cfg, log.NewLogger())

	payload, err := os.ReadFile(*detectionsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read detections: %v\n", err)
		os.Exit(1)
	}

	req, err := detection.ParseRequest(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid detections: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== Detections: %s ===\n", *detectionsPath)
	fmt.Printf("Image: %dx%d px, %d vertebrae, CFH: %v\n",
		req.ImageWidth, req.ImageHeight, len(req.Vertebrae), req.CFH != nil)

	// Step 1: assemble measurements
	fmt.Printf("\n=== Measurements ===\n")
	resp, err := engine.Keypoints(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Assembly failed: %v\n", err)
		os.Exit(1)
	}
	for _, m := range resp.Measurements {
		fmt.Printf("  %-10s %d points\n", m.Type, len(m.Points))
	}

	// Step 2: compute metrics
	fmt.Printf("\n=== Metrics (image %s) ===\n", resp.ImageID)
	result, err := engine.Metrics(resp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Metric computation failed: %v\n", err)
		os.Exit(1)
	}
	printMetrics(result.Metrics)

	// Step 3: optional centerline fit
	var fit *profile.Fit
	if *withProfile {
		fit = fitCenterline(engine, req)
	}

	// Step 4: optional overlay export
	if *overlayPath != "" {
		if err := writeOverlay(resp, fit, *imagePath, *overlayPath); err != nil {
			fmt.Fprintf(os.Stderr, "Overlay export failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nOverlay written to %s\n", *overlayPath)
	}
}

func printMetrics(metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-26s %8.2f\n", name, metrics[name])
	}
	if len(names) == 0 {
		fmt.Println("  (no metric prerequisites present)")
	}
}

func fitCenterline(engine *pipeline.Engine, req *detection.Request) *profile.Fit {
	fit, err := engine.Centerline(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Centerline fit failed: %v\n", err)
		return nil
	}
	if fit == nil {
		fmt.Println("\nCenterline: too few vertebrae")
		return nil
	}

	fmt.Printf("\n=== Centerline (degree %d) ===\n", fit.Degree)
	fmt.Printf("RMS residual: %.2f px\n", fit.RMS)

	labels := make([]string, 0, len(fit.Residuals))
	for l := range fit.Residuals {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		fmt.Printf("  %-4s residual %.2f px\n", l, fit.Residuals[l])
	}
	return fit
}

// writeOverlay renders the annotation layer and, when a radiograph is
// supplied, composites the layer on top of it before encoding.
func writeOverlay(resp *keypoints.Response, fit *profile.Fit, imagePath, overlayPath string) error {
	layer := overlay.Render(resp, fit, overlay.DefaultOptions())

	var out image.Image = layer
	if imagePath != "" {
		f, err := os.Open(imagePath)
		if err != nil {
			return fmt.Errorf("open radiograph: %w", err)
		}
		defer f.Close()

		base, _, err := image.Decode(f)
		if err != nil {
			return fmt.Errorf("decode radiograph: %w", err)
		}

		composite := image.NewRGBA(base.Bounds())
		draw.Draw(composite, composite.Bounds(), base, base.Bounds().Min, draw.Src)
		draw.Draw(composite, layer.Bounds(), layer, image.Point{}, draw.Over)
		out = composite
	}

	dst, err := os.Create(overlayPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer dst.Close()

	return png.Encode(dst, out)
}
