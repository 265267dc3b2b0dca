package feature

import (
	"math"

	"github.com/yildizm/LogoMatch/internal/imaging"
)

// Embedder produces one fixed-length global embedding per image.
// The three implementations follow distinct architectural families so
// their failure modes stay decorrelated under fusion.
type Embedder interface {
	Name() string
	Dim() int
	Embed(img *imaging.RGB) []float32
}

// Embedders returns the standard embedder set, ordered to match Types()
func Embedders() []Embedder {
	return []Embedder{
		gridEmbedder{},
		gradientEmbedder{},
		pyramidEmbedder{},
	}
}

// gridEmbedder is the wide-linear family: the whole downscaled
// intensity plane flattened into one long mean-centered vector.
type gridEmbedder struct{}

const gridSide = 32

func (gridEmbedder) Name() string { return TypeGrid }
func (gridEmbedder) Dim() int     { return gridSide * gridSide }

func (e gridEmbedder) Embed(img *imaging.RGB) []float32 {
	g := img.Resize(gridSide, gridSide).Gray()

	mean := g.Mean()
	vec := make([]float32, e.Dim())
	for i, p := range g.Pix {
		vec[i] = float32(float64(p) - mean)
	}
	return Normalize(vec)
}

// gradientEmbedder is the dense-connectivity family: orientation
// histograms pooled over two cell densities, both stages concatenated
// so coarse structure stays connected to fine detail.
type gradientEmbedder struct{}

const (
	gradientSide = 128
	gradientBins = 9
)

var gradientGrids = []int{4, 8}

func (gradientEmbedder) Name() string { return TypeGradient }

func (gradientEmbedder) Dim() int {
	dim := 0
	for _, cells := range gradientGrids {
		dim += cells * cells * gradientBins
	}
	return dim
}

func (e gradientEmbedder) Embed(img *imaging.RGB) []float32 {
	g := img.Resize(gradientSide, gradientSide).Gray()

	vec := make([]float32, 0, e.Dim())
	for _, cells := range gradientGrids {
		// per-stage normalization before concatenation
		stage := Normalize(orientationCells(g, cells))
		vec = append(vec, stage...)
	}
	return Normalize(vec)
}

// orientationCells pools gradient orientation histograms over a
// cells×cells grid.
func orientationCells(g *imaging.Gray, cells int) []float32 {
	hist := make([]float32, cells*cells*gradientBins)
	cellW := g.W / cells
	cellH := g.H / cells
	if cellW == 0 || cellH == 0 {
		return hist
	}

	for y := 1; y < g.H-1; y++ {
		cy := min(y/cellH, cells-1)
		for x := 1; x < g.W-1; x++ {
			gx := float64(g.Pix[y*g.W+x+1]) - float64(g.Pix[y*g.W+x-1])
			gy := float64(g.Pix[(y+1)*g.W+x]) - float64(g.Pix[(y-1)*g.W+x])
			mag := math.Hypot(gx, gy)
			if mag == 0 {
				continue
			}

			// unsigned orientation in [0, pi)
			angle := math.Atan2(gy, gx)
			if angle < 0 {
				angle += math.Pi
			}
			bin := int(angle / math.Pi * gradientBins)
			if bin >= gradientBins {
				bin = gradientBins - 1
			}

			cx := min(x/cellW, cells-1)
			hist[(cy*cells+cx)*gradientBins+bin] += float32(mag)
		}
	}
	return hist
}

// pyramidEmbedder is the multi-branch family: parallel color, edge and
// intensity branches computed at several spatial resolutions, then
// concatenated.
type pyramidEmbedder struct{}

const (
	pyramidSide      = 64
	colorBinsPerChan = 4
)

var pyramidLevels = []int{1, 2, 4}

func (pyramidEmbedder) Name() string { return TypePyramid }

func (pyramidEmbedder) Dim() int {
	cells := 0
	for _, side := range pyramidLevels {
		cells += side * side
	}
	colorDim := colorBinsPerChan * colorBinsPerChan * colorBinsPerChan
	// color branch + edge branch (one value per pyramid cell) +
	// intensity branch (mean and stddev per pyramid cell)
	return colorDim + cells + cells*2
}

func (e pyramidEmbedder) Embed(img *imaging.RGB) []float32 {
	small := img.Resize(pyramidSide, pyramidSide)
	g := small.Gray()

	colorBranch := Normalize(colorHistogram(small))
	edgeBranch := Normalize(pyramidCells(g, func(cell *imaging.Gray) []float32 {
		return []float32{float32(cell.EdgeDensity(80))}
	}))
	intensityBranch := Normalize(pyramidCells(g, func(cell *imaging.Gray) []float32 {
		return []float32{float32(cell.Mean() / 255.0), float32(cell.StdDev() / 255.0)}
	}))

	vec := make([]float32, 0, e.Dim())
	vec = append(vec, colorBranch...)
	vec = append(vec, edgeBranch...)
	vec = append(vec, intensityBranch...)
	return Normalize(vec)
}

// colorHistogram builds a joint RGB histogram with colorBinsPerChan
// bins per channel.
func colorHistogram(img *imaging.RGB) []float32 {
	hist := make([]float32, colorBinsPerChan*colorBinsPerChan*colorBinsPerChan)
	for i := 0; i < img.W*img.H; i++ {
		r := int(img.Pix[i*3]) * colorBinsPerChan / 256
		g := int(img.Pix[i*3+1]) * colorBinsPerChan / 256
		b := int(img.Pix[i*3+2]) * colorBinsPerChan / 256
		hist[(r*colorBinsPerChan+g)*colorBinsPerChan+b]++
	}
	return hist
}

// pyramidCells applies fn to every cell of every pyramid level and
// concatenates the results.
func pyramidCells(g *imaging.Gray, fn func(*imaging.Gray) []float32) []float32 {
	var out []float32
	for _, side := range pyramidLevels {
		cellW := g.W / side
		cellH := g.H / side
		for cy := 0; cy < side; cy++ {
			for cx := 0; cx < side; cx++ {
				out = append(out, fn(cropGray(g, cx*cellW, cy*cellH, cellW, cellH))...)
			}
		}
	}
	return out
}

func cropGray(g *imaging.Gray, x0, y0, w, h int) *imaging.Gray {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	out := &imaging.Gray{W: w, H: h, Pix: make([]uint8, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx := min(x0+x, g.W-1)
			sy := min(y0+y, g.H-1)
			out.Pix[y*w+x] = g.Pix[sy*g.W+sx]
		}
	}
	return out
}
