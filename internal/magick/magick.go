// Package magick runs the conversion steps through the ImageMagick 7 CLI.
package magick

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/fillconv/internal/logger"
	"github.com/Faultbox/fillconv/internal/pipeline"
)

// DownloadURL is shown when the magick binary cannot be found.
const DownloadURL = "https://imagemagick.org/script/download.php"

// Errors
var (
	ErrToolMissing = errors.New("ImageMagick 7+ is not installed or not found in the system PATH")
	ErrToolFailed  = errors.New("magick command failed")
)

// Runner executes one magick invocation.
type Runner interface {
	Run(ctx context.Context, path string, args ...string) error
}

// ExecRunner runs magick as a child process.
type ExecRunner struct{}

// Run implements Runner. Stderr is attached to the returned error.
func (ExecRunner) Run(ctx context.Context, path string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrToolMissing, path)
		}
		var pathErr *exec.Error
		if errors.As(err, &pathErr) {
			return fmt.Errorf("%w: %v", ErrToolMissing, pathErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%w: %v", ErrToolFailed, err)
		}
		return fmt.Errorf("%w: %v: %s", ErrToolFailed, err, msg)
	}
	return nil
}

// Verify checks that the binary at path starts.
func Verify(ctx context.Context, r Runner, path string) error {
	if err := r.Run(ctx, path, "-version"); err != nil {
		if errors.Is(err, ErrToolMissing) {
			return fmt.Errorf("%w. Download it from %s", err, DownloadURL)
		}
		return err
	}
	return nil
}

// Backend implements pipeline.Processor with magick invocations.
type Backend struct {
	path   string
	runner Runner
	params pipeline.Params
}

// New creates a Backend. A nil runner uses ExecRunner.
func New(path string, runner Runner, p pipeline.Params) *Backend {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Backend{path: path, runner: runner, params: p}
}

// Name implements pipeline.Processor.
func (b *Backend) Name() string {
	return "magick"
}

func (b *Backend) run(ctx context.Context, args []string) error {
	logger.Named("magick").Debug("exec", zap.String("path", b.path), zap.Strings("args", args))
	return b.runner.Run(ctx, b.path, args...)
}

// Upscale implements pipeline.Processor.
func (b *Backend) Upscale(ctx context.Context, src, dst string, keepAlpha bool) error {
	return b.run(ctx, UpscaleArgs(b.params, src, dst, keepAlpha))
}

// DeriveHeight implements pipeline.Processor.
func (b *Backend) DeriveHeight(ctx context.Context, diffuse, dst string) error {
	return b.run(ctx, DeriveHeightArgs(b.params, diffuse, dst))
}

// ComposeDiffuse implements pipeline.Processor.
func (b *Backend) ComposeDiffuse(ctx context.Context, diffuse, normal, height, dst string) error {
	return b.run(ctx, ComposeDiffuseArgs(diffuse, normal, height, dst))
}

// ComposeNormal implements pipeline.Processor.
func (b *Backend) ComposeNormal(ctx context.Context, normal, height, diffuse, dst string) error {
	return b.run(ctx, ComposeNormalArgs(b.params, normal, height, diffuse, dst))
}

// FinalizeHeight implements pipeline.Processor.
func (b *Backend) FinalizeHeight(ctx context.Context, height, dst string) error {
	return b.run(ctx, FinalizeHeightArgs(b.params, height, dst))
}

// UpscaleArgs tiles src 2x2 onto the canvas. Without alpha the PNG is forced to truecolor.
func UpscaleArgs(p pipeline.Params, src, dst string, keepAlpha bool) []string {
	args := []string{"-size", geometry(p.CanvasSize), "tile:" + src}
	if !keepAlpha {
		args = append(args, "-define", "png:color-type=2")
	}
	return append(args, dst)
}

// DeriveHeightArgs builds the grayscale, auto-level, blur and gamma invocation.
func DeriveHeightArgs(p pipeline.Params, diffuse, dst string) []string {
	return []string{
		diffuse,
		"-colorspace", "Gray",
		"-auto-level",
		"-blur", "0x" + formatFloat(p.BlurSigma),
		"-gamma", formatGamma(p.Gamma),
		dst,
	}
}

// ComposeDiffuseArgs multiplies normal and height into the diffuse alpha and writes PNG32.
func ComposeDiffuseArgs(diffuse, normal, height, dst string) []string {
	return []string{
		diffuse,
		"(", "-clone", "0", "-channel", "R", "-separate", "+channel", ")",
		"(", "-clone", "0", "-channel", "G", "-separate", "+channel", ")",
		"(", "-clone", "0", "-channel", "B", "-separate", "+channel", ")",
		"(", "-clone", "0", "-channel", "A", "-separate", "+channel",
		normal, "-compose", "multiply", "-composite",
		height, "-compose", "multiply", "-composite",
		")",
		"-alpha", "on",
		"-background", "none",
		"-delete", "0",
		"-combine", "-depth", "8", "PNG32:" + dst,
	}
}

// ComposeNormalArgs rebuilds the blue channel. A zero shininess scale clears it.
func ComposeNormalArgs(p pipeline.Params, normal, height, diffuse, dst string) []string {
	return []string{
		normal,
		"(", "-clone", "0", "-channel", "R", "-separate", "+channel", ")",
		"(", "-clone", "0", "-channel", "G", "-separate", "+channel", ")",
		"(", "-clone", "0", "-channel", "B", "-separate", "+channel",
		diffuse, "-compose", "multiply", "-composite",
		height, "-compose", "multiply", "-composite",
		"-evaluate", "multiply", formatFloat(p.ShininessScale),
		")",
		"-delete", "0",
		"-combine", "-alpha", "off", "-depth", "8", "PNG24:" + dst,
	}
}

// FinalizeHeightArgs forces the height map to a square single-channel gray PNG.
func FinalizeHeightArgs(p pipeline.Params, height, dst string) []string {
	return []string{
		height,
		"-resize", geometry(p.HeightSize) + "!",
		"-colorspace", "Gray",
		"-depth", "8",
		"-define", "png:color-type=0",
		dst,
	}
}

func geometry(size int) string {
	s := strconv.Itoa(size)
	return s + "x" + s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatGamma keeps one decimal for whole numbers so 2 renders as "2.0".
func formatGamma(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return formatFloat(v)
}
