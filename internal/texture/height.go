package texture

import (
	"image"

	"github.com/disintegration/gift"
	"github.com/nfnt/resize"
)

// HeightParams controls height map derivation.
type HeightParams struct {
	BlurSigma float64 // Gaussian sigma in pixels
	Gamma     float64 // > 1 brightens midtones
}

// DeriveHeight builds a grayscale height map from a diffuse map:
// grayscale, auto-level, Gaussian blur, then gamma correction.
// The output keeps the input resolution.
func DeriveHeight(diffuse image.Image, p HeightParams) *image.Gray {
	gray := AutoLevel(Luma(diffuse))

	g := gift.New(
		gift.GaussianBlur(float32(p.BlurSigma)),
		gift.Gamma(float32(p.Gamma)),
	)
	out := image.NewGray(g.Bounds(gray.Bounds()))
	g.Draw(out, gray)
	return out
}

// autoLevel stretches the [lo, hi] gray range to the full [0, 1] range.
func autoLevel(lo, hi uint8) gift.Filter {
	base := float32(lo) / 255
	span := float32(hi-lo) / 255
	stretch := func(v float32) float32 {
		v = (v - base) / span
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	return gift.ColorFunc(func(r0, g0, b0, a0 float32) (r, g, b, a float32) {
		return stretch(r0), stretch(g0), stretch(b0), a0
	})
}

// AutoLevel returns a copy of gray with its value range stretched to 0..255.
// Flat images are returned unchanged.
func AutoLevel(gray *image.Gray) *image.Gray {
	lo, hi := grayRange(gray)
	out := image.NewGray(gray.Bounds())
	if hi <= lo {
		copy(out.Pix, gray.Pix)
		return out
	}
	gift.New(autoLevel(lo, hi)).Draw(out, gray)
	return out
}

func grayRange(gray *image.Gray) (lo, hi uint8) {
	b := gray.Bounds()
	lo, hi = 255, 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(b.Min.X, y) : gray.PixOffset(b.Min.X, y)+b.Dx()]
		for _, v := range row {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}

// ResizeGray performs a forced, non aspect preserving resize to width x height.
func ResizeGray(img image.Image, width, height int) *image.Gray {
	gray := ToGray(img)
	if gray.Rect.Dx() == width && gray.Rect.Dy() == height {
		return gray
	}
	return ToGray(resize.Resize(uint(width), uint(height), gray, resize.Lanczos3))
}
