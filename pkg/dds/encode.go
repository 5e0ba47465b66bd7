package dds

import (
	"encoding/binary"
	"image"
	"image/color"
	"io"
)

// Encode writes img as an uncompressed 32-bit A8R8G8B8 DDS with a single mip level.
func Encode(w io.Writer, img image.Image) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	buf := make([]byte, 4+headerSize)
	copy(buf[0:4], magic)
	d := buf[4:]
	le := binary.LittleEndian
	le.PutUint32(d[0:4], headerSize)
	le.PutUint32(d[4:8], 0x1|0x2|0x4|0x8|0x1000) // caps, height, width, pitch, pixelformat
	le.PutUint32(d[8:12], uint32(height))
	le.PutUint32(d[12:16], uint32(width))
	le.PutUint32(d[16:20], uint32(width*4))
	le.PutUint32(d[24:28], 1)

	pf := d[72:104]
	le.PutUint32(pf[0:4], 32)
	le.PutUint32(pf[4:8], pfRGB|pfAlphaPixels)
	le.PutUint32(pf[12:16], 32)
	le.PutUint32(pf[16:20], 0x00FF0000)
	le.PutUint32(pf[20:24], 0x0000FF00)
	le.PutUint32(pf[24:28], 0x000000FF)
	le.PutUint32(pf[28:32], 0xFF000000)
	le.PutUint32(d[104:108], 0x1000) // DDSCAPS_TEXTURE

	if _, err := w.Write(buf); err != nil {
		return err
	}

	row := make([]byte, width*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			i := (x - b.Min.X) * 4
			row[i+0] = c.B
			row[i+1] = c.G
			row[i+2] = c.R
			row[i+3] = c.A
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
