package texture

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zlib"
)

// ColorType is the PNG color type written by Encode. Unlike image/png, which
// picks RGB or RGBA depending on the pixels, the caller decides.
type ColorType uint8

const (
	ColorGray ColorType = 0 // single channel, 8-bit
	ColorRGB  ColorType = 2 // 24-bit truecolor, alpha dropped
	ColorRGBA ColorType = 6 // 32-bit truecolor with alpha
)

func (c ColorType) String() string {
	switch c {
	case ColorGray:
		return "gray"
	case ColorRGB:
		return "rgb"
	case ColorRGBA:
		return "rgba"
	default:
		return fmt.Sprintf("ColorType(%d)", uint8(c))
	}
}

func (c ColorType) channels() int {
	switch c {
	case ColorGray:
		return 1
	case ColorRGB:
		return 3
	default:
		return 4
	}
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Encode writes img as an 8-bit PNG of the given color type. The output is a
// pure function of the pixels, so repeated runs are byte-identical.
func Encode(w io.Writer, img image.Image, ct ColorType) error {
	switch ct {
	case ColorGray, ColorRGB, ColorRGBA:
	default:
		return fmt.Errorf("unsupported PNG color type %d", ct)
	}
	b := img.Bounds()
	if b.Empty() {
		return ErrEmptyImage
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(pngSignature); err != nil {
		return err
	}

	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(b.Dx()))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(b.Dy()))
	ihdr[8] = 8 // bit depth
	ihdr[9] = byte(ct)
	if err := writeChunk(bw, "IHDR", ihdr[:]); err != nil {
		return err
	}

	idat, err := compressRows(img, ct)
	if err != nil {
		return err
	}
	if err := writeChunk(bw, "IDAT", idat); err != nil {
		return err
	}
	if err := writeChunk(bw, "IEND", nil); err != nil {
		return err
	}
	return bw.Flush()
}

// Save encodes img to path, creating the parent directory if needed.
func Save(path string, img image.Image, ct ColorType) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, img, ct); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

func writeChunk(w io.Writer, name string, data []byte) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(data)))
	copy(header[4:8], name)

	crc := crc32.NewIEEE()
	crc.Write(header[4:8])
	crc.Write(data)

	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], crc.Sum32())

	for _, part := range [][]byte{header[:], data, footer[:]} {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}
	return nil
}

// compressRows filters every scanline and deflates the result.
func compressRows(img image.Image, ct ColorType) ([]byte, error) {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	bpp := ct.channels()
	rowLen := width * bpp

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}

	prev := make([]byte, rowLen)
	cur := make([]byte, rowLen)
	var filtered [5][]byte
	for i := range filtered {
		filtered[i] = make([]byte, rowLen+1)
	}

	pack := rowPacker(img, ct)
	for y := 0; y < height; y++ {
		pack(y, cur)
		best := filterRow(cur, prev, bpp, &filtered)
		if _, err := zw.Write(best); err != nil {
			return nil, err
		}
		prev, cur = cur, prev
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// rowPacker returns a function that writes scanline y as raw 8-bit samples.
func rowPacker(img image.Image, ct ColorType) func(y int, dst []byte) {
	if ct == ColorGray {
		gray := ToGray(img)
		return func(y int, dst []byte) {
			copy(dst, gray.Pix[y*gray.Stride:])
		}
	}

	src := ToNRGBA(img)
	width := src.Rect.Dx()
	return func(y int, dst []byte) {
		row := src.Pix[y*src.Stride:]
		if ct == ColorRGBA {
			copy(dst, row[:width*4])
			return
		}
		for x := 0; x < width; x++ {
			copy(dst[x*3:x*3+3], row[x*4:x*4+3])
		}
	}
}

// filterRow applies the five PNG filters and returns the one with the
// smallest sum of absolute values, prefixed with its filter type byte.
func filterRow(cur, prev []byte, bpp int, out *[5][]byte) []byte {
	for f := range out {
		out[f][0] = byte(f)
	}
	none, sub, up, avg, paeth := out[0][1:], out[1][1:], out[2][1:], out[3][1:], out[4][1:]

	for i := range cur {
		var left, upLeft byte
		if i >= bpp {
			left = cur[i-bpp]
			upLeft = prev[i-bpp]
		}
		above := prev[i]

		none[i] = cur[i]
		sub[i] = cur[i] - left
		up[i] = cur[i] - above
		avg[i] = cur[i] - byte((int(left)+int(above))/2)
		paeth[i] = cur[i] - paethPredictor(left, above, upLeft)
	}

	best, bestSum := 0, -1
	for f := range out {
		sum := 0
		for _, v := range out[f][1:] {
			sum += absSigned(v)
		}
		if bestSum < 0 || sum < bestSum {
			best, bestSum = f, sum
		}
	}
	return out[best]
}

func absSigned(v byte) int {
	if v < 128 {
		return int(v)
	}
	return 256 - int(v)
}

func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
