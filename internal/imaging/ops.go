package imaging

import "math"

// Mean returns the average pixel intensity
func (g *Gray) Mean() float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	var sum float64
	for _, p := range g.Pix {
		sum += float64(p)
	}
	return sum / float64(len(g.Pix))
}

// StdDev returns the standard deviation of pixel intensity
func (g *Gray) StdDev() float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	mean := g.Mean()
	var sum float64
	for _, p := range g.Pix {
		d := float64(p) - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(g.Pix)))
}

// Histogram returns intensity counts over the given number of bins
func (g *Gray) Histogram(bins int) []float64 {
	hist := make([]float64, bins)
	if bins <= 0 {
		return hist
	}
	for _, p := range g.Pix {
		bin := int(p) * bins / 256
		if bin >= bins {
			bin = bins - 1
		}
		hist[bin]++
	}
	return hist
}

// EdgeDensity returns the fraction of pixels whose Sobel gradient
// magnitude exceeds the threshold.
func (g *Gray) EdgeDensity(threshold float64) float64 {
	if g.W < 3 || g.H < 3 {
		return 0
	}
	edges := 0
	for y := 1; y < g.H-1; y++ {
		for x := 1; x < g.W-1; x++ {
			gx, gy := g.sobelAt(x, y)
			if math.Hypot(gx, gy) > threshold {
				edges++
			}
		}
	}
	return float64(edges) / float64(g.W*g.H)
}

func (g *Gray) sobelAt(x, y int) (gx, gy float64) {
	p := func(dx, dy int) float64 { return float64(g.Pix[(y+dy)*g.W+(x+dx)]) }
	gx = -p(-1, -1) - 2*p(-1, 0) - p(-1, 1) + p(1, -1) + 2*p(1, 0) + p(1, 1)
	gy = -p(-1, -1) - 2*p(0, -1) - p(1, -1) + p(-1, 1) + 2*p(0, 1) + p(1, 1)
	return gx, gy
}

// Equalize applies global histogram equalization
func (g *Gray) Equalize() *Gray {
	hist := make([]int, 256)
	for _, p := range g.Pix {
		hist[p]++
	}

	lut := equalizationLUT(hist, len(g.Pix))
	out := &Gray{W: g.W, H: g.H, Pix: make([]uint8, len(g.Pix))}
	for i, p := range g.Pix {
		out.Pix[i] = lut[p]
	}
	return out
}

// Gamma applies gamma correction; gamma > 1 brightens dark regions
func (g *Gray) Gamma(gamma float64) *Gray {
	if gamma <= 0 {
		return g.Clone()
	}
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(clamp255(math.Pow(float64(i)/255.0, 1.0/gamma) * 255.0))
	}
	out := &Gray{W: g.W, H: g.H, Pix: make([]uint8, len(g.Pix))}
	for i, p := range g.Pix {
		out.Pix[i] = lut[p]
	}
	return out
}

// CLAHE applies contrast-limited adaptive histogram equalization over a
// tiles×tiles grid. Tile mappings are bilinearly interpolated so tile
// borders stay seam-free.
func (g *Gray) CLAHE(clipLimit float64, tiles int) *Gray {
	if tiles < 1 {
		tiles = 1
	}
	if g.W < tiles || g.H < tiles {
		return g.Equalize()
	}

	tileW := (g.W + tiles - 1) / tiles
	tileH := (g.H + tiles - 1) / tiles

	// Per-tile clipped equalization LUTs
	luts := make([][]uint8, tiles*tiles)
	for ty := 0; ty < tiles; ty++ {
		for tx := 0; tx < tiles; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, g.W), min(y0+tileH, g.H)

			hist := make([]int, 256)
			count := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[g.Pix[y*g.W+x]]++
					count++
				}
			}

			clipHistogram(hist, clipLimit, count)
			luts[ty*tiles+tx] = equalizationLUT(hist, count)
		}
	}

	// Interpolate between the four surrounding tile mappings
	out := &Gray{W: g.W, H: g.H, Pix: make([]uint8, len(g.Pix))}
	for y := 0; y < g.H; y++ {
		cy := (float64(y) - float64(tileH)/2) / float64(tileH)
		ty0, fy := splitCoord(cy, tiles)
		ty1 := min(ty0+1, tiles-1)
		for x := 0; x < g.W; x++ {
			cx := (float64(x) - float64(tileW)/2) / float64(tileW)
			tx0, fx := splitCoord(cx, tiles)
			tx1 := min(tx0+1, tiles-1)

			p := g.Pix[y*g.W+x]
			v00 := float64(luts[ty0*tiles+tx0][p])
			v01 := float64(luts[ty0*tiles+tx1][p])
			v10 := float64(luts[ty1*tiles+tx0][p])
			v11 := float64(luts[ty1*tiles+tx1][p])

			top := v00 + (v01-v00)*fx
			bottom := v10 + (v11-v10)*fx
			out.Pix[y*g.W+x] = uint8(clamp255(top + (bottom-top)*fy))
		}
	}
	return out
}

// GaussianBlur applies a separable Gaussian filter with the given sigma
func (g *Gray) GaussianBlur(sigma float64) *Gray {
	if sigma <= 0 {
		return g.Clone()
	}
	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	// Horizontal pass
	tmp := make([]float64, len(g.Pix))
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				xx := x + k
				if xx < 0 {
					xx = 0
				} else if xx >= g.W {
					xx = g.W - 1
				}
				sum += float64(g.Pix[y*g.W+xx]) * kernel[k+radius]
			}
			tmp[y*g.W+x] = sum
		}
	}

	// Vertical pass
	out := &Gray{W: g.W, H: g.H, Pix: make([]uint8, len(g.Pix))}
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				yy := y + k
				if yy < 0 {
					yy = 0
				} else if yy >= g.H {
					yy = g.H - 1
				}
				sum += tmp[yy*g.W+x] * kernel[k+radius]
			}
			out.Pix[y*g.W+x] = uint8(clamp255(sum))
		}
	}
	return out
}

// gaussianKernel builds a normalized 1D kernel with radius 3*sigma
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// clipHistogram caps bins at clipLimit times the mean bin height and
// redistributes the excess uniformly.
// splitCoord splits a fractional tile coordinate into a base index and
// an interpolation weight, clamped to the tile grid.
func splitCoord(v float64, limit int) (int, float64) {
	if v < 0 {
		return 0, 0
	}
	i := int(v)
	if i >= limit-1 {
		return limit - 1, 0
	}
	return i, v - float64(i)
}

func clipHistogram(hist []int, clipLimit float64, count int) {
	if clipLimit <= 0 || count == 0 {
		return
	}
	limit := int(clipLimit * float64(count) / float64(len(hist)))
	if limit < 1 {
		limit = 1
	}

	excess := 0
	for i, h := range hist {
		if h > limit {
			excess += h - limit
			hist[i] = limit
		}
	}

	share := excess / len(hist)
	rem := excess % len(hist)
	for i := range hist {
		hist[i] += share
		if i < rem {
			hist[i]++
		}
	}
}

// equalizationLUT builds the CDF-based intensity mapping for a histogram
func equalizationLUT(hist []int, count int) []uint8 {
	lut := make([]uint8, 256)
	if count == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	cdf := 0
	for i, h := range hist {
		cdf += h
		lut[i] = uint8(clamp255(float64(cdf) * 255.0 / float64(count)))
	}
	return lut
}
