// Package pipeline runs the fixed fillplane conversion sequence against a
// Processor backend.
package pipeline

import (
	"context"
	"fmt"

	"github.com/Faultbox/fillconv/internal/config"
)

// Processor executes the individual filter steps. Every step reads its inputs
// from files and writes exactly one output file.
type Processor interface {
	// Name identifies the backend in logs.
	Name() string
	// Upscale tiles src onto the square canvas. keepAlpha false forces 24-bit RGB.
	Upscale(ctx context.Context, src, dst string, keepAlpha bool) error
	// DeriveHeight writes a grayscale height map derived from a diffuse map.
	DeriveHeight(ctx context.Context, diffuse, dst string) error
	// ComposeDiffuse writes diffuse with alpha = alpha * normal * height.
	ComposeDiffuse(ctx context.Context, diffuse, normal, height, dst string) error
	// ComposeNormal writes normal with blue = blue * diffuse * height * shininess.
	ComposeNormal(ctx context.Context, normal, height, diffuse, dst string) error
	// FinalizeHeight writes the height map resized to its final square size.
	FinalizeHeight(ctx context.Context, height, dst string) error
}

// Params are the texture dimensions and filter settings shared by all backends.
type Params struct {
	CanvasSize     int
	HeightSize     int
	BlurSigma      float64
	Gamma          float64
	ShininessScale float64
}

// ParamsFromConfig copies the texture section of the config.
func ParamsFromConfig(cfg config.TextureConfig) Params {
	return Params{
		CanvasSize:     cfg.CanvasSize,
		HeightSize:     cfg.HeightSize,
		BlurSigma:      cfg.BlurSigma,
		Gamma:          cfg.Gamma,
		ShininessScale: cfg.ShininessScale,
	}
}

// StepError reports which pipeline step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
