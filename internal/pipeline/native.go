package pipeline

import (
	"context"
	"image"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/fillconv/internal/logger"
	"github.com/Faultbox/fillconv/internal/texture"
	"github.com/Faultbox/fillconv/pkg/dds"
)

// Native runs every step in process with the texture package.
type Native struct {
	params Params
}

// NewNative creates an in-process backend.
func NewNative(p Params) *Native {
	return &Native{params: p}
}

// Name implements Processor.
func (n *Native) Name() string {
	return "native"
}

// Upscale implements Processor.
func (n *Native) Upscale(ctx context.Context, src, dst string, keepAlpha bool) error {
	img, err := texture.Load(src)
	if err != nil {
		return err
	}
	size := n.params.CanvasSize
	if b := img.Bounds(); b.Dx()*2 != size || b.Dy()*2 != size {
		logger.Warn("source is not half the canvas size, tiles will not form a 2x2 grid",
			zap.String("src", src), zap.Int("width", b.Dx()), zap.Int("height", b.Dy()), zap.Int("canvas", size))
	}

	ct := texture.ColorRGB
	if keepAlpha {
		ct = texture.ColorRGBA
		if h, ok := ddsHeader(src); ok && !h.HasAlpha() {
			logger.Debug("DDS source has no alpha channel, alpha starts opaque",
				zap.String("src", src), zap.Stringer("encoding", h.Encoding))
		}
	}
	return texture.Save(dst, texture.Tile(img, size, size, keepAlpha), ct)
}

// DeriveHeight implements Processor.
func (n *Native) DeriveHeight(ctx context.Context, diffuse, dst string) error {
	img, err := texture.Load(diffuse)
	if err != nil {
		return err
	}
	n.checkCanvas(diffuse, img)

	height := texture.DeriveHeight(img, texture.HeightParams{
		BlurSigma: n.params.BlurSigma,
		Gamma:     n.params.Gamma,
	})
	return texture.Save(dst, height, texture.ColorGray)
}

// ComposeDiffuse implements Processor.
func (n *Native) ComposeDiffuse(ctx context.Context, diffuse, normal, height, dst string) error {
	imgs, err := loadAll(diffuse, normal, height)
	if err != nil {
		return err
	}
	out, err := texture.ComposeDiffuse(imgs[0], imgs[1], imgs[2])
	if err != nil {
		return err
	}
	return texture.Save(dst, out, texture.ColorRGBA)
}

// ComposeNormal implements Processor.
func (n *Native) ComposeNormal(ctx context.Context, normal, height, diffuse, dst string) error {
	imgs, err := loadAll(normal, height, diffuse)
	if err != nil {
		return err
	}
	out, err := texture.ComposeNormal(imgs[0], imgs[1], imgs[2], n.params.ShininessScale)
	if err != nil {
		return err
	}
	return texture.Save(dst, out, texture.ColorRGB)
}

// FinalizeHeight implements Processor.
func (n *Native) FinalizeHeight(ctx context.Context, height, dst string) error {
	img, err := texture.Load(height)
	if err != nil {
		return err
	}
	size := n.params.HeightSize
	return texture.Save(dst, texture.ResizeGray(img, size, size), texture.ColorGray)
}

func (n *Native) checkCanvas(path string, img image.Image) {
	size := n.params.CanvasSize
	if b := img.Bounds(); b.Dx() != size || b.Dy() != size {
		logger.Warn("texture does not match the expected canvas size",
			zap.String("file", path), zap.Int("width", b.Dx()), zap.Int("height", b.Dy()), zap.Int("canvas", size))
	}
}

func loadAll(paths ...string) ([]image.Image, error) {
	imgs := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		img, err := texture.Load(p)
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
	}
	return imgs, nil
}

// ddsHeader reads the DDS header of path. ok is false for non-DDS files.
func ddsHeader(path string) (*dds.Header, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	h, err := dds.ReadHeader(f)
	if err != nil {
		return nil, false
	}
	return h, true
}
