package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/fillconv/internal/logger"
	"github.com/Faultbox/fillconv/pkg/fillplane"
)

// Step names used in logs and StepError.
const (
	StepUpscaleDiffuse = "upscale diffuse"
	StepUpscaleNormal  = "upscale normal"
	StepDeriveHeight   = "derive height"
	StepComposeDiffuse = "compose diffuse"
	StepComposeNormal  = "compose normal"
	StepFinalizeHeight = "finalize height"
)

// Options control side effects of a run.
type Options struct {
	// KeepIntermediates leaves the tmp files on disk after a successful run.
	KeepIntermediates bool
}

// Result lists the files a run produced.
type Result struct {
	Diffuse       string
	Normal        string
	Height        string
	Intermediates []string
}

type step struct {
	name string
	dst  string
	run  func(ctx context.Context) error
}

// Run converts one fillplane. Steps run strictly in order and the first
// failure aborts the rest without cleaning up.
func Run(ctx context.Context, proc Processor, job *fillplane.Job, opts Options) (*Result, error) {
	for _, dir := range []string{job.TmpDir, job.OutDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	res := &Result{
		Diffuse: job.OutPath("diffuse"),
		Normal:  job.OutPath("normal"),
		Height:  job.OutPath("height"),
	}
	tmpHeight := job.TmpPath("height")

	// PNG inputs are already on the target canvas.
	diffuse, normal := job.Diffuse, job.Normal
	var steps []step
	if job.Mode == fillplane.ModeDDS {
		diffuse, normal = job.TmpPath("diffuse"), job.TmpPath("normal")
		src, nsrc := job.Diffuse, job.Normal
		steps = append(steps,
			step{StepUpscaleDiffuse, diffuse, func(ctx context.Context) error {
				return proc.Upscale(ctx, src, diffuse, true)
			}},
			step{StepUpscaleNormal, normal, func(ctx context.Context) error {
				return proc.Upscale(ctx, nsrc, normal, false)
			}},
		)
		res.Intermediates = append(res.Intermediates, diffuse, normal)
	}
	res.Intermediates = append(res.Intermediates, tmpHeight)

	steps = append(steps,
		step{StepDeriveHeight, tmpHeight, func(ctx context.Context) error {
			return proc.DeriveHeight(ctx, diffuse, tmpHeight)
		}},
		step{StepComposeDiffuse, res.Diffuse, func(ctx context.Context) error {
			return proc.ComposeDiffuse(ctx, diffuse, normal, tmpHeight, res.Diffuse)
		}},
		step{StepComposeNormal, res.Normal, func(ctx context.Context) error {
			return proc.ComposeNormal(ctx, normal, tmpHeight, diffuse, res.Normal)
		}},
		step{StepFinalizeHeight, res.Height, func(ctx context.Context) error {
			return proc.FinalizeHeight(ctx, tmpHeight, res.Height)
		}},
	)

	logger.Info("Converting fillplane",
		zap.String("name", job.Name),
		zap.Stringer("mode", job.Mode),
		zap.String("backend", proc.Name()),
		zap.String("out", job.OutDir))

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, &StepError{Step: s.name, Err: err}
		}
		logger.Info("Running step", zap.String("step", s.name), zap.String("dst", s.dst))
		start := time.Now()
		if err := s.run(ctx); err != nil {
			logger.Error("Step failed", zap.String("step", s.name), zap.Error(err))
			return nil, &StepError{Step: s.name, Err: err}
		}
		logger.Debug("Step done", zap.String("step", s.name), zap.Duration("took", time.Since(start)))
	}

	if !opts.KeepIntermediates {
		removeIntermediates(res.Intermediates)
		res.Intermediates = nil
	}
	return res, nil
}

func removeIntermediates(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove intermediate", zap.String("file", p), zap.Error(err))
		}
	}
}
