// Package texture provides image decoding and texture processing utilities
// for fillplane conversion.
package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png" // register PNG decoder
	"os"

	xdraw "golang.org/x/image/draw"

	_ "github.com/Faultbox/fillconv/pkg/dds" // register DDS decoder
)

// Errors
var (
	ErrSizeMismatch = errors.New("texture dimensions do not match")
	ErrEmptyImage   = errors.New("image has no pixels")
)

// Load decodes a PNG or DDS file from disk.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decoding %s (%s): %w", path, format, ErrEmptyImage)
	}
	return img, nil
}

// ToNRGBA converts any image to a zero-origin *image.NRGBA.
// Tightly packed NRGBA images are returned unchanged. Non-premultiplied
// sources keep their color under zero alpha.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.NRGBA:
		if src.Rect.Min == (image.Point{}) && src.Stride == 4*src.Rect.Dx() {
			return src
		}
		out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:], src.Pix[i:i+4*b.Dx()])
		}
		return out
	case *image.NRGBA64:
		out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := out.Pix[y*out.Stride : y*out.Stride+4*b.Dx()]
			// Big-endian samples; keep the high byte of each.
			for j := range row {
				row[j] = src.Pix[i+2*j]
			}
		}
		return out
	case *image.Paletted:
		palette := make([]color.NRGBA, len(src.Palette))
		for i, c := range src.Palette {
			palette[i] = nrgbaOf(c)
		}
		out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				idx := int(src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)])
				if idx >= len(palette) {
					continue
				}
				c := palette[idx]
				o := out.PixOffset(x, y)
				out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = c.R, c.G, c.B, c.A
			}
		}
		return out
	}

	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(out, out.Bounds(), img, b.Min, xdraw.Src)
	return out
}

// nrgbaOf converts a palette entry, taking non-premultiplied colors as they are.
func nrgbaOf(c color.Color) color.NRGBA {
	switch v := c.(type) {
	case color.NRGBA:
		return v
	case color.NRGBA64:
		return color.NRGBA{uint8(v.R >> 8), uint8(v.G >> 8), uint8(v.B >> 8), uint8(v.A >> 8)}
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

// Luma returns the Rec. 709 luma of every pixel, ignoring alpha.
// This is the value a multi-channel image contributes when it is
// blended into a single channel.
func Luma(img image.Image) *image.Gray {
	src := ToNRGBA(img)
	b := src.Bounds()
	out := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := src.PixOffset(x, y)
			r, g, bl := float64(src.Pix[i]), float64(src.Pix[i+1]), float64(src.Pix[i+2])
			out.Pix[out.PixOffset(x, y)] = clamp8(0.2126*r + 0.7152*g + 0.0722*bl)
		}
	}
	return out
}

// ToGray returns img as a zero-origin *image.Gray. Gray images pass through;
// color images are reduced to luma.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) && g.Stride == g.Rect.Dx() {
		return g
	}
	if img.ColorModel() == color.GrayModel {
		b := img.Bounds()
		out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Draw(out, out.Bounds(), img, b.Min, xdraw.Src)
		return out
	}
	return Luma(img)
}

func sameSize(imgs ...image.Image) error {
	if len(imgs) == 0 {
		return nil
	}
	want := imgs[0].Bounds().Size()
	for _, img := range imgs[1:] {
		if got := img.Bounds().Size(); got != want {
			return fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, want.X, want.Y, got.X, got.Y)
		}
	}
	return nil
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
