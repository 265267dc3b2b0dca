package feature

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/yildizm/LogoMatch/internal/imaging"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// texturedGray builds a gray image with enough structure for keypoints
func texturedGray(w, h int) *imaging.Gray {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if (x/8+y/8)%2 == 0 {
				v = 255
			}
			// diagonal ramp breaks up pure checkerboard symmetry
			v = uint8(min(255, int(v)/2+(x+2*y)%128))
			img.Set(x, y, color.Gray{Y: v})
		}
	}
	return imaging.FromImage(img).Gray()
}

func flatGray(w, h int, v uint8) *imaging.Gray {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Gray{Y: v})
		}
	}
	return imaging.FromImage(img).Gray()
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if math.Abs(norm(v)-1) > 1e-6 {
		t.Errorf("norm = %v, want 1", norm(v))
	}

	// zero vector falls back to uniform, still unit length
	z := Normalize(make([]float32, 16))
	if math.Abs(norm(z)-1) > 1e-6 {
		t.Errorf("zero-vector norm = %v, want 1", norm(z))
	}
}

func TestCosine(t *testing.T) {
	a := Normalize([]float32{1, 2, 3})
	if got := Cosine(a, a); math.Abs(got-1) > 1e-6 {
		t.Errorf("self cosine = %v, want 1", got)
	}
	if got := Cosine(a, []float32{1, 2}); got != 0 {
		t.Errorf("mismatched dims cosine = %v, want 0", got)
	}
	b := Normalize([]float32{0, 0, 0, 1})
	c := Normalize([]float32{0, 1, 0, 0})
	if got := Cosine(b, c); math.Abs(got) > 1e-6 {
		t.Errorf("orthogonal cosine = %v, want 0", got)
	}
}

func TestBundleComplete(t *testing.T) {
	b := Bundle{}
	if b.Complete() {
		t.Error("empty bundle reported complete")
	}
	for _, ft := range Types() {
		b[ft] = []float32{1}
	}
	if !b.Complete() {
		t.Error("full bundle reported incomplete")
	}
}

func TestEmbedderDimsAndDeterminism(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 2), G: uint8(y * 3), B: uint8((x + y) % 256), A: 255})
		}
	}
	rgb := imaging.FromImage(img)

	for _, emb := range Embedders() {
		v1 := emb.Embed(rgb)
		if len(v1) != emb.Dim() {
			t.Errorf("%s: len = %d, want %d", emb.Name(), len(v1), emb.Dim())
		}
		if math.Abs(norm(v1)-1) > 1e-5 {
			t.Errorf("%s: norm = %v, want 1", emb.Name(), norm(v1))
		}
		v2 := emb.Embed(rgb)
		for i := range v1 {
			if v1[i] != v2[i] {
				t.Errorf("%s: non-deterministic at %d", emb.Name(), i)
				break
			}
		}
	}
}

func TestEmbeddersOnBlackImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	rgb := imaging.FromImage(img)
	for _, emb := range Embedders() {
		v := emb.Embed(rgb)
		if math.Abs(norm(v)-1) > 1e-5 {
			t.Errorf("%s on black: norm = %v, want 1", emb.Name(), norm(v))
		}
	}
}

func TestDetectOnTexturedImage(t *testing.T) {
	g := texturedGray(200, 200)
	descs := DetectAndDescribe(g, DefaultDetectorParams())
	if len(descs) == 0 {
		t.Fatal("no keypoints on textured image")
	}
	for i, d := range descs {
		if len(d) != DescriptorSize {
			t.Fatalf("descriptor %d has %d dims, want %d", i, len(d), DescriptorSize)
		}
		if math.Abs(norm(d)-1) > 1e-4 {
			t.Fatalf("descriptor %d norm = %v, want 1", i, norm(d))
		}
	}
}

func TestDetectRespectsCap(t *testing.T) {
	g := texturedGray(300, 300)
	params := DefaultDetectorParams()
	params.MaxFeatures = 5
	descs := DetectAndDescribe(g, params)
	if len(descs) > 5 {
		t.Errorf("got %d descriptors, cap is 5", len(descs))
	}
}

func TestLocalDescriptorsFallbackChain(t *testing.T) {
	e := NewExtractor(Options{MaxDescriptors: 100, MaxImageDim: 1024, Workers: 1, BatchSize: 4}, nil, nil)

	cases := []struct {
		name string
		g    *imaging.Gray
	}{
		{"textured", texturedGray(200, 200)},
		{"flat gray", flatGray(64, 64, 128)},
		{"all black", flatGray(64, 64, 0)},
		{"tiny", flatGray(1, 1, 200)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			descs := e.LocalDescriptors(tc.g)
			if len(descs) == 0 {
				t.Fatal("fallback chain produced no descriptors")
			}
			for _, d := range descs {
				if len(d) != DescriptorSize {
					t.Fatalf("descriptor len = %d, want %d", len(d), DescriptorSize)
				}
			}
		})
	}
}

func TestLocalDescriptorsCap(t *testing.T) {
	e := NewExtractor(Options{MaxDescriptors: 10, MaxImageDim: 1024, Workers: 1, BatchSize: 4}, nil, nil)
	descs := e.LocalDescriptors(texturedGray(300, 300))
	if len(descs) > 10 {
		t.Errorf("got %d descriptors, cap is 10", len(descs))
	}
}

// meanEnc is a minimal test encoder: mean of descriptors, normalized
type meanEnc struct{}

func (meanEnc) Dim() int { return DescriptorSize }

func (meanEnc) Encode(descs [][]float32) []float32 {
	out := make([]float32, DescriptorSize)
	for _, d := range descs {
		for i, v := range d {
			out[i] += v
		}
	}
	return Normalize(out)
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 5), B: uint8(x ^ y), A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestExtractSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writePNG(t, good, 80, 80)
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor(Options{MaxDescriptors: 100, MaxImageDim: 512, Workers: 2, BatchSize: 2}, meanEnc{}, nil)
	bundles, err := e.Extract(context.Background(), []string{good, bad})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("got %d bundles, want 1", len(bundles))
	}
	b, ok := bundles[good]
	if !ok {
		t.Fatal("good image missing from results")
	}
	if !b.Complete() {
		t.Error("bundle incomplete")
	}
	for ft, v := range b {
		if math.Abs(norm(v)-1) > 1e-5 {
			t.Errorf("%s: norm = %v, want 1", ft, norm(v))
		}
	}
}

func TestExtractOneMatchesExtract(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.png")
	writePNG(t, path, 96, 64)

	e := NewExtractor(Options{MaxDescriptors: 100, MaxImageDim: 512, Workers: 2, BatchSize: 4}, meanEnc{}, nil)
	one, err := e.ExtractOne(path)
	if err != nil {
		t.Fatalf("ExtractOne: %v", err)
	}
	many, err := e.Extract(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for ft, v := range one {
		other := many[path][ft]
		if len(v) != len(other) {
			t.Fatalf("%s: dim mismatch", ft)
		}
		for i := range v {
			if v[i] != other[i] {
				t.Fatalf("%s: differs at %d", ft, i)
			}
		}
	}
}

func TestExtractOneWithoutEncoder(t *testing.T) {
	e := NewExtractor(Options{MaxImageDim: 512, Workers: 1, BatchSize: 1}, nil, nil)
	if _, err := e.ExtractOne("whatever.png"); err == nil {
		t.Error("expected error without encoder")
	}
}

func TestSampleDescriptors(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.png"} {
		writePNG(t, filepath.Join(dir, name), 120, 120)
	}

	e := NewExtractor(Options{MaxDescriptors: 300, MaxImageDim: 512, Workers: 2, BatchSize: 4}, nil, nil)
	descs, err := e.SampleDescriptors(context.Background(),
		[]string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")}, 20)
	if err != nil {
		t.Fatalf("SampleDescriptors: %v", err)
	}
	if len(descs) == 0 {
		t.Fatal("no descriptors sampled")
	}
	if len(descs) > 40 {
		t.Errorf("got %d descriptors, per-image cap 20 over 2 images allows 40", len(descs))
	}
}
