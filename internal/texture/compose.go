package texture

import (
	"image"
)

// Channels holds the four channels of an image as separate gray planes.
type Channels struct {
	R, G, B, A *image.Gray
}

// Separate splits img into its R, G, B and A channels.
// Opaque formats yield an all-255 alpha plane.
func Separate(img image.Image) Channels {
	src := ToNRGBA(img)
	b := src.Bounds()
	ch := Channels{
		R: image.NewGray(b),
		G: image.NewGray(b),
		B: image.NewGray(b),
		A: image.NewGray(b),
	}
	for i, j := 0, 0; i+3 < len(src.Pix); i, j = i+4, j+1 {
		ch.R.Pix[j] = src.Pix[i]
		ch.G.Pix[j] = src.Pix[i+1]
		ch.B.Pix[j] = src.Pix[i+2]
		ch.A.Pix[j] = src.Pix[i+3]
	}
	return ch
}

// Combine merges four equally sized channel planes into one image.
// A nil alpha plane makes the result opaque.
func (c Channels) Combine() (*image.NRGBA, error) {
	planes := []image.Image{c.R, c.G, c.B}
	if c.A != nil {
		planes = append(planes, c.A)
	}
	if err := sameSize(planes...); err != nil {
		return nil, err
	}

	out := image.NewNRGBA(c.R.Bounds())
	for i, j := 0, 0; j < len(c.R.Pix); i, j = i+4, j+1 {
		out.Pix[i] = c.R.Pix[j]
		out.Pix[i+1] = c.G.Pix[j]
		out.Pix[i+2] = c.B.Pix[j]
		out.Pix[i+3] = 0xFF
		if c.A != nil {
			out.Pix[i+3] = c.A.Pix[j]
		}
	}
	return out, nil
}

// Multiply blends two gray planes: out = a*b/255, rounded.
func Multiply(a, b *image.Gray) (*image.Gray, error) {
	if err := sameSize(a, b); err != nil {
		return nil, err
	}
	out := image.NewGray(a.Bounds())
	for i := range a.Pix {
		out.Pix[i] = mul8(a.Pix[i], b.Pix[i])
	}
	return out, nil
}

// Scale multiplies every value by factor, clamping to 0..255.
func Scale(g *image.Gray, factor float64) *image.Gray {
	out := image.NewGray(g.Bounds())
	for i, v := range g.Pix {
		out.Pix[i] = clamp8(float64(v) * factor)
	}
	return out
}

func mul8(a, b uint8) uint8 {
	return uint8((uint32(a)*uint32(b) + 127) / 255)
}

// multiplyChain multiplies base with the luma of each operand in order.
func multiplyChain(base *image.Gray, operands ...image.Image) (*image.Gray, error) {
	out := base
	for _, op := range operands {
		var err error
		out, err = Multiply(out, ToGray(op))
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ComposeDiffuse rewrites the diffuse alpha channel as
// alpha * normal * height. Color channels pass through untouched.
func ComposeDiffuse(diffuse, normal, height image.Image) (*image.NRGBA, error) {
	if err := sameSize(diffuse, normal, height); err != nil {
		return nil, err
	}
	ch := Separate(diffuse)

	alpha, err := multiplyChain(ch.A, normal, height)
	if err != nil {
		return nil, err
	}
	ch.A = alpha
	return ch.Combine()
}

// ComposeNormal rewrites the normal map blue channel as
// blue * diffuse * height * shininess. Red and green pass through and the
// result is opaque. FS25 expects no shininess in the blue channel, so the
// default shininess of 0 clears it.
func ComposeNormal(normal, height, diffuse image.Image, shininess float64) (*image.NRGBA, error) {
	if err := sameSize(normal, height, diffuse); err != nil {
		return nil, err
	}
	ch := Separate(normal)

	blue, err := multiplyChain(ch.B, diffuse, height)
	if err != nil {
		return nil, err
	}
	ch.B = Scale(blue, shininess)
	ch.A = nil
	return ch.Combine()
}
