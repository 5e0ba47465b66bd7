package texture

import (
	"image"
)

// Tile fills a width x height canvas by repeating src verbatim from the top-left
// corner. A 512x512 source on a 1024x1024 canvas yields a 2x2 grid of identical
// quadrants; no pixel is interpolated.
//
// With keepAlpha false every output pixel is made opaque.
func Tile(src image.Image, width, height int, keepAlpha bool) *image.NRGBA {
	tile := ToNRGBA(src)
	tw, th := tile.Rect.Dx(), tile.Rect.Dy()

	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcRow := tile.Pix[(y%th)*tile.Stride : (y%th)*tile.Stride+tw*4]
		dstRow := out.Pix[y*out.Stride : y*out.Stride+width*4]
		// Pix copies keep non-premultiplied color exact, even under zero alpha
		for x := 0; x < width; x += tw {
			copy(dstRow[x*4:], srcRow)
		}
	}

	if !keepAlpha {
		for i := 3; i < len(out.Pix); i += 4 {
			out.Pix[i] = 0xFF
		}
	}
	return out
}
