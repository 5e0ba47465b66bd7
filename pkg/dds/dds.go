// Package dds decodes DirectDraw Surface textures into image.Image values.
//
// Only the top mip level of a 2D texture is decoded. Supported encodings:
//   - BC1 (DXT1), BC2 (DXT2/DXT3), BC3 (DXT4/DXT5)
//   - BC4 (ATI1) and BC5 (ATI2) single and dual channel blocks
//   - uncompressed RGB/RGBA/luminance described by bit masks
//   - DX10 extended headers for the formats above and R8G8B8A8/B8G8R8A8
//
// Importing the package registers the format with the image package, so
// image.Decode handles ".dds" files transparently.
package dds

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"math/bits"
)

func init() {
	image.RegisterFormat("dds", "DDS ", Decode, DecodeConfig)
}

// Errors
var (
	ErrInvalidMagic      = errors.New("invalid DDS magic: expected 'DDS '")
	ErrTruncated         = errors.New("truncated DDS data")
	ErrUnsupportedFormat = errors.New("unsupported DDS pixel format")
)

const (
	magic      = "DDS "
	headerSize = 124
	dx10Size   = 20

	// MaxDimension bounds width and height. Fillplane textures are 512 or 1024.
	MaxDimension = 8192
)

// Pixel format flags.
const (
	pfAlphaPixels = 0x1
	pfAlpha       = 0x2
	pfFourCC      = 0x4
	pfRGB         = 0x40
	pfLuminance   = 0x20000
)

// DXGI formats understood in DX10 headers.
const (
	dxgiR8G8B8A8Unorm     = 28
	dxgiR8G8B8A8UnormSRGB = 29
	dxgiBC1Unorm          = 71
	dxgiBC1UnormSRGB      = 72
	dxgiBC2Unorm          = 74
	dxgiBC2UnormSRGB      = 75
	dxgiBC3Unorm          = 77
	dxgiBC3UnormSRGB      = 78
	dxgiBC4Unorm          = 80
	dxgiBC5Unorm          = 83
	dxgiB8G8R8A8Unorm     = 87
	dxgiB8G8R8A8UnormSRGB = 91
)

// Encoding identifies how the top-level surface is stored.
type Encoding int

const (
	EncodingUnknown Encoding = iota
	EncodingBC1
	EncodingBC2
	EncodingBC3
	EncodingBC4
	EncodingBC5
	EncodingRGBA8 // byte order R, G, B, A
	EncodingBGRA8 // byte order B, G, R, A
	EncodingMasked
)

func (e Encoding) String() string {
	switch e {
	case EncodingBC1:
		return "BC1"
	case EncodingBC2:
		return "BC2"
	case EncodingBC3:
		return "BC3"
	case EncodingBC4:
		return "BC4"
	case EncodingBC5:
		return "BC5"
	case EncodingRGBA8:
		return "R8G8B8A8"
	case EncodingBGRA8:
		return "B8G8R8A8"
	case EncodingMasked:
		return "masked"
	default:
		return "unknown"
	}
}

// PixelFormat is the DDS_PIXELFORMAT structure.
type PixelFormat struct {
	Flags       uint32
	FourCC      string
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

// Header is the parsed DDS header plus the optional DX10 extension.
type Header struct {
	Width       int
	Height      int
	MipMapCount uint32
	PixelFormat PixelFormat
	DXGIFormat  uint32 // Zero unless the file carries a DX10 header
	Encoding    Encoding
}

// HasAlpha reports whether the surface can carry a meaningful alpha channel.
func (h *Header) HasAlpha() bool {
	switch h.Encoding {
	case EncodingBC2, EncodingBC3, EncodingRGBA8, EncodingBGRA8:
		return true
	case EncodingBC1:
		// 1-bit punch-through alpha is only decided per block
		return h.PixelFormat.Flags&pfAlphaPixels != 0
	case EncodingMasked:
		return h.PixelFormat.Flags&pfAlphaPixels != 0 && h.PixelFormat.ABitMask != 0
	default:
		return false
	}
}

// ReadHeader parses the magic, header and DX10 extension from r.
func ReadHeader(r io.Reader) (*Header, error) {
	var buf [4 + headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, ErrTruncated
	}
	if string(buf[0:4]) != magic {
		return nil, ErrInvalidMagic
	}

	le := binary.LittleEndian
	d := buf[4:]
	if le.Uint32(d[0:4]) != headerSize {
		return nil, fmt.Errorf("%w: header size %d", ErrUnsupportedFormat, le.Uint32(d[0:4]))
	}

	h := &Header{
		Height:      int(le.Uint32(d[8:12])),
		Width:       int(le.Uint32(d[12:16])),
		MipMapCount: le.Uint32(d[24:28]),
	}
	pf := d[72:104]
	h.PixelFormat = PixelFormat{
		Flags:       le.Uint32(pf[4:8]),
		FourCC:      string(pf[8:12]),
		RGBBitCount: le.Uint32(pf[12:16]),
		RBitMask:    le.Uint32(pf[16:20]),
		GBitMask:    le.Uint32(pf[20:24]),
		BBitMask:    le.Uint32(pf[24:28]),
		ABitMask:    le.Uint32(pf[28:32]),
	}

	if h.Width <= 0 || h.Height <= 0 || h.Width > MaxDimension || h.Height > MaxDimension {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrUnsupportedFormat, h.Width, h.Height)
	}

	if h.PixelFormat.Flags&pfFourCC != 0 && h.PixelFormat.FourCC == "DX10" {
		var ext [dx10Size]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, ErrTruncated
		}
		h.DXGIFormat = le.Uint32(ext[0:4])
	}

	enc, err := encodingOf(h)
	if err != nil {
		return nil, err
	}
	h.Encoding = enc
	return h, nil
}

func encodingOf(h *Header) (Encoding, error) {
	pf := h.PixelFormat
	if h.DXGIFormat != 0 {
		switch h.DXGIFormat {
		case dxgiBC1Unorm, dxgiBC1UnormSRGB:
			return EncodingBC1, nil
		case dxgiBC2Unorm, dxgiBC2UnormSRGB:
			return EncodingBC2, nil
		case dxgiBC3Unorm, dxgiBC3UnormSRGB:
			return EncodingBC3, nil
		case dxgiBC4Unorm:
			return EncodingBC4, nil
		case dxgiBC5Unorm:
			return EncodingBC5, nil
		case dxgiR8G8B8A8Unorm, dxgiR8G8B8A8UnormSRGB:
			return EncodingRGBA8, nil
		case dxgiB8G8R8A8Unorm, dxgiB8G8R8A8UnormSRGB:
			return EncodingBGRA8, nil
		}
		return EncodingUnknown, fmt.Errorf("%w: DXGI format %d", ErrUnsupportedFormat, h.DXGIFormat)
	}

	if pf.Flags&pfFourCC != 0 {
		switch pf.FourCC {
		case "DXT1":
			return EncodingBC1, nil
		case "DXT2", "DXT3":
			return EncodingBC2, nil
		case "DXT4", "DXT5":
			return EncodingBC3, nil
		case "ATI1", "BC4U":
			return EncodingBC4, nil
		case "ATI2", "BC5U":
			return EncodingBC5, nil
		}
		return EncodingUnknown, fmt.Errorf("%w: FourCC %q", ErrUnsupportedFormat, pf.FourCC)
	}

	if pf.Flags&(pfRGB|pfLuminance) != 0 {
		switch pf.RGBBitCount {
		case 8, 16, 24, 32:
			return EncodingMasked, nil
		}
	}
	return EncodingUnknown, fmt.Errorf("%w: flags 0x%x, %d bits", ErrUnsupportedFormat, pf.Flags, pf.RGBBitCount)
}

// DecodeConfig returns the dimensions and color model of a DDS image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      h.Width,
		Height:     h.Height,
	}, nil
}

// Decode reads the top mip level of a DDS texture.
func Decode(r io.Reader) (image.Image, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	// Nothing surface sized is allocated until the bytes arrive.
	size := surfaceSize(h)
	data, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil || len(data) < size {
		return nil, fmt.Errorf("%w: reading %s surface of %d bytes", ErrTruncated, h.Encoding, size)
	}

	img := image.NewNRGBA(image.Rect(0, 0, h.Width, h.Height))
	switch h.Encoding {
	case EncodingBC1:
		decodeBlocks(img, data, 8, decodeBC1Block)
	case EncodingBC2:
		decodeBlocks(img, data, 16, decodeBC2Block)
	case EncodingBC3:
		decodeBlocks(img, data, 16, decodeBC3Block)
	case EncodingBC4:
		decodeBlocks(img, data, 8, decodeBC4Block)
	case EncodingBC5:
		decodeBlocks(img, data, 16, decodeBC5Block)
	case EncodingRGBA8:
		copy(img.Pix, data)
	case EncodingBGRA8:
		for i := 0; i+3 < len(data); i += 4 {
			img.Pix[i+0] = data[i+2]
			img.Pix[i+1] = data[i+1]
			img.Pix[i+2] = data[i+0]
			img.Pix[i+3] = data[i+3]
		}
	case EncodingMasked:
		decodeMasked(img, data, h)
	}
	return img, nil
}

// surfaceSize returns the byte size of the top mip level.
func surfaceSize(h *Header) int {
	bw, bh := (h.Width+3)/4, (h.Height+3)/4
	switch h.Encoding {
	case EncodingBC1, EncodingBC4:
		return bw * bh * 8
	case EncodingBC2, EncodingBC3, EncodingBC5:
		return bw * bh * 16
	case EncodingRGBA8, EncodingBGRA8:
		return h.Width * h.Height * 4
	default:
		pitch := (h.Width*int(h.PixelFormat.RGBBitCount) + 7) / 8
		return pitch * h.Height
	}
}

// blockFunc decodes one 4x4 block into a 64-byte RGBA buffer.
type blockFunc func(block []byte, out *[64]byte)

func decodeBlocks(img *image.NRGBA, data []byte, blockSize int, decode blockFunc) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	bw, bh := (w+3)/4, (h+3)/4

	var px [64]byte
	offset := 0
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			decode(data[offset:offset+blockSize], &px)
			offset += blockSize

			for py := 0; py < 4; py++ {
				y := by*4 + py
				if y >= h {
					break
				}
				for pxi := 0; pxi < 4; pxi++ {
					x := bx*4 + pxi
					if x >= w {
						break
					}
					src := (py*4 + pxi) * 4
					dst := img.PixOffset(x, y)
					copy(img.Pix[dst:dst+4], px[src:src+4])
				}
			}
		}
	}
}

func expand565(c uint16) (r, g, b uint8) {
	r5 := uint8(c >> 11 & 0x1F)
	g6 := uint8(c >> 5 & 0x3F)
	b5 := uint8(c & 0x1F)
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// colorPalette builds the four BC1 colors. With fourColor false and c0 <= c1
// the block uses three colors plus transparent black.
func colorPalette(block []byte, fourColor bool) [4][4]uint8 {
	c0 := binary.LittleEndian.Uint16(block[0:2])
	c1 := binary.LittleEndian.Uint16(block[2:4])
	r0, g0, b0 := expand565(c0)
	r1, g1, b1 := expand565(c1)

	var p [4][4]uint8
	p[0] = [4]uint8{r0, g0, b0, 255}
	p[1] = [4]uint8{r1, g1, b1, 255}
	if fourColor || c0 > c1 {
		p[2] = [4]uint8{lerp(r0, r1, 2, 1), lerp(g0, g1, 2, 1), lerp(b0, b1, 2, 1), 255}
		p[3] = [4]uint8{lerp(r0, r1, 1, 2), lerp(g0, g1, 1, 2), lerp(b0, b1, 1, 2), 255}
	} else {
		p[2] = [4]uint8{lerp(r0, r1, 1, 1), lerp(g0, g1, 1, 1), lerp(b0, b1, 1, 1), 255}
		p[3] = [4]uint8{0, 0, 0, 0}
	}
	return p
}

func lerp(a, b uint8, wa, wb int) uint8 {
	return uint8((int(a)*wa + int(b)*wb) / (wa + wb))
}

func writeColors(block []byte, fourColor bool, out *[64]byte) {
	p := colorPalette(block, fourColor)
	indices := binary.LittleEndian.Uint32(block[4:8])
	for i := 0; i < 16; i++ {
		c := p[indices>>(2*i)&0x3]
		copy(out[i*4:i*4+4], c[:])
	}
}

func decodeBC1Block(block []byte, out *[64]byte) {
	writeColors(block, false, out)
}

func decodeBC2Block(block []byte, out *[64]byte) {
	writeColors(block[8:16], true, out)
	alpha := binary.LittleEndian.Uint64(block[0:8])
	for i := 0; i < 16; i++ {
		a := uint8(alpha >> (4 * i) & 0xF)
		out[i*4+3] = a<<4 | a
	}
}

func decodeBC3Block(block []byte, out *[64]byte) {
	writeColors(block[8:16], true, out)
	var a [16]uint8
	interpolatedChannel(block[0:8], &a)
	for i := 0; i < 16; i++ {
		out[i*4+3] = a[i]
	}
}

func decodeBC4Block(block []byte, out *[64]byte) {
	var v [16]uint8
	interpolatedChannel(block[0:8], &v)
	for i := 0; i < 16; i++ {
		out[i*4+0] = v[i]
		out[i*4+1] = v[i]
		out[i*4+2] = v[i]
		out[i*4+3] = 255
	}
}

// decodeBC5Block decodes a two-channel normal block and rebuilds Z from X and Y.
func decodeBC5Block(block []byte, out *[64]byte) {
	var x, y [16]uint8
	interpolatedChannel(block[0:8], &x)
	interpolatedChannel(block[8:16], &y)
	for i := 0; i < 16; i++ {
		out[i*4+0] = x[i]
		out[i*4+1] = y[i]
		out[i*4+2] = reconstructZ(x[i], y[i])
		out[i*4+3] = 255
	}
}

func reconstructZ(x, y uint8) uint8 {
	nx := float64(x)/127.5 - 1
	ny := float64(y)/127.5 - 1
	nz2 := 1 - nx*nx - ny*ny
	if nz2 <= 0 {
		return 128
	}
	return uint8(math.Sqrt(nz2)*127.5 + 127.5 + 0.5)
}

// interpolatedChannel decodes an 8-byte BC4-style block (also the BC3 alpha block).
func interpolatedChannel(block []byte, out *[16]uint8) {
	v0, v1 := block[0], block[1]
	var p [8]uint8
	p[0], p[1] = v0, v1
	if v0 > v1 {
		for i := 1; i <= 6; i++ {
			p[i+1] = uint8((int(v0)*(7-i) + int(v1)*i) / 7)
		}
	} else {
		for i := 1; i <= 4; i++ {
			p[i+1] = uint8((int(v0)*(5-i) + int(v1)*i) / 5)
		}
		p[6], p[7] = 0, 255
	}

	var idx uint64
	for i := 0; i < 6; i++ {
		idx |= uint64(block[2+i]) << (8 * i)
	}
	for i := 0; i < 16; i++ {
		out[i] = p[idx>>(3*i)&0x7]
	}
}

// decodeMasked handles uncompressed surfaces described by channel bit masks.
func decodeMasked(img *image.NRGBA, data []byte, h *Header) {
	pf := h.PixelFormat
	bpp := int(pf.RGBBitCount) / 8
	pitch := (h.Width*int(pf.RGBBitCount) + 7) / 8
	luminance := pf.Flags&pfLuminance != 0
	hasAlpha := pf.Flags&pfAlphaPixels != 0 && pf.ABitMask != 0

	for y := 0; y < h.Height; y++ {
		row := data[y*pitch:]
		for x := 0; x < h.Width; x++ {
			var v uint32
			for b := 0; b < bpp; b++ {
				v |= uint32(row[x*bpp+b]) << (8 * b)
			}

			i := img.PixOffset(x, y)
			if luminance {
				l := channel(v, pf.RBitMask)
				img.Pix[i+0], img.Pix[i+1], img.Pix[i+2] = l, l, l
			} else {
				img.Pix[i+0] = channel(v, pf.RBitMask)
				img.Pix[i+1] = channel(v, pf.GBitMask)
				img.Pix[i+2] = channel(v, pf.BBitMask)
			}
			img.Pix[i+3] = 255
			if hasAlpha {
				img.Pix[i+3] = channel(v, pf.ABitMask)
			}
		}
	}
}

// channel extracts a masked value and scales it to 8 bits.
func channel(v, mask uint32) uint8 {
	if mask == 0 {
		return 0
	}
	shift := bits.TrailingZeros32(mask)
	width := bits.OnesCount32(mask)
	c := (v & mask) >> shift
	if width == 8 {
		return uint8(c)
	}
	maxVal := uint64(1)<<width - 1
	return uint8((uint64(c)*255 + maxVal/2) / maxVal)
}
