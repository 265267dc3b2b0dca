// Package imaging provides image decoding and the pixel-plane
// operations used by feature extraction.
package imaging

import (
	"fmt"
	"image"
	"os"

	// Registered decoders for the supported image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// RGB is a packed 8-bit three-channel pixel plane
type RGB struct {
	W, H int
	Pix  []uint8 // len = W*H*3, row-major, R G B per pixel
}

// Gray is an 8-bit single-channel pixel plane
type Gray struct {
	W, H int
	Pix  []uint8 // len = W*H, row-major
}

// Load decodes the image at path and converts it to an RGB plane.
// Images whose longest side exceeds maxDim are downscaled to fit.
func Load(path string, maxDim int) (*RGB, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from collection scanning
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	rgb := FromImage(img)
	if rgb.W == 0 || rgb.H == 0 {
		return nil, fmt.Errorf("image %s has empty bounds", path)
	}

	if maxDim > 0 && (rgb.W > maxDim || rgb.H > maxDim) {
		scale := float64(maxDim) / float64(max(rgb.W, rgb.H))
		w := max(1, int(float64(rgb.W)*scale))
		h := max(1, int(float64(rgb.H)*scale))
		rgb = rgb.Resize(w, h)
	}

	return rgb, nil
}

// ValidateFile reports whether path parses as an image with positive
// dimensions, without decoding pixel data.
func ValidateFile(path string) bool {
	f, err := os.Open(path) // #nosec G304 -- path comes from collection scanning
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return false
	}
	return cfg.Width > 0 && cfg.Height > 0
}

// FromImage converts any image.Image into an RGB plane
func FromImage(img image.Image) *RGB {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := &RGB{W: w, H: h, Pix: make([]uint8, w*h*3)}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			out.Pix[i] = uint8(r >> 8)
			out.Pix[i+1] = uint8(g >> 8)
			out.Pix[i+2] = uint8(b >> 8)
			i += 3
		}
	}
	return out
}

// Resize scales the plane to w×h with bilinear resampling
func (r *RGB) Resize(w, h int) *RGB {
	if w == r.W && h == r.H {
		return r
	}

	src := image.NewRGBA(image.Rect(0, 0, r.W, r.H))
	for i := 0; i < r.W*r.H; i++ {
		src.Pix[i*4] = r.Pix[i*3]
		src.Pix[i*4+1] = r.Pix[i*3+1]
		src.Pix[i*4+2] = r.Pix[i*3+2]
		src.Pix[i*4+3] = 0xff
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := &RGB{W: w, H: h, Pix: make([]uint8, w*h*3)}
	for i := 0; i < w*h; i++ {
		out.Pix[i*3] = dst.Pix[i*4]
		out.Pix[i*3+1] = dst.Pix[i*4+1]
		out.Pix[i*3+2] = dst.Pix[i*4+2]
	}
	return out
}

// Gray converts the RGB plane to grayscale using Rec. 601 luma weights
func (r *RGB) Gray() *Gray {
	out := &Gray{W: r.W, H: r.H, Pix: make([]uint8, r.W*r.H)}
	for i := 0; i < r.W*r.H; i++ {
		rr := float64(r.Pix[i*3])
		gg := float64(r.Pix[i*3+1])
		bb := float64(r.Pix[i*3+2])
		out.Pix[i] = uint8(clamp255(0.299*rr + 0.587*gg + 0.114*bb))
	}
	return out
}

// Resize scales the gray plane to w×h with bilinear resampling
func (g *Gray) Resize(w, h int) *Gray {
	if w == g.W && h == g.H {
		return g
	}

	src := &image.Gray{Pix: g.Pix, Stride: g.W, Rect: image.Rect(0, 0, g.W, g.H)}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	return &Gray{W: w, H: h, Pix: dst.Pix}
}

// Clone returns a deep copy of the gray plane
func (g *Gray) Clone() *Gray {
	pix := make([]uint8, len(g.Pix))
	copy(pix, g.Pix)
	return &Gray{W: g.W, H: g.H, Pix: pix}
}

// Float converts the plane to float64 values in [0,1]
func (g *Gray) Float() []float64 {
	out := make([]float64, len(g.Pix))
	for i, p := range g.Pix {
		out[i] = float64(p) / 255.0
	}
	return out
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
