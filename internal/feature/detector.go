package feature

import (
	"math"
	"sort"

	"github.com/yildizm/LogoMatch/internal/imaging"
)

// DescriptorSize is the length of one keypoint descriptor:
// a 4×4 spatial grid of 8-bin gradient orientation histograms.
const DescriptorSize = 128

const (
	descriptorGrid     = 4
	orientationBins    = 8
	descriptorClip     = 0.2
	orientationHistLen = 36
	minOctaveSize      = 16
	maxOctaves         = 4
)

// DetectorParams tunes the scale-space keypoint detector
type DetectorParams struct {
	MaxFeatures       int     // keep at most this many keypoints, strongest first
	OctaveLayers      int     // intervals per octave
	ContrastThreshold float64 // minimum absolute DoG response, pixel range [0,1]
	EdgeThreshold     float64 // principal curvature ratio limit
	Sigma             float64 // base blur of the first pyramid level
}

// DefaultDetectorParams returns the standard detector configuration
func DefaultDetectorParams() DetectorParams {
	return DetectorParams{
		MaxFeatures:       1000,
		OctaveLayers:      3,
		ContrastThreshold: 0.02,
		EdgeThreshold:     20,
		Sigma:             1.6,
	}
}

// PermissiveDetectorParams loosens thresholds for low-texture images
func PermissiveDetectorParams() DetectorParams {
	p := DefaultDetectorParams()
	p.ContrastThreshold = 0.01
	p.EdgeThreshold = 25
	return p
}

// keypoint is an internal scale-space extremum
type keypoint struct {
	x, y     int // coordinates within its octave
	octave   int
	layer    int
	response float64
	angle    float64
}

// plane is a float64 working image, values in [0,1]
type plane struct {
	w, h int
	pix  []float64
}

// DetectAndDescribe finds scale-space keypoints and returns their
// 128-dimensional gradient descriptors, strongest response first.
// Returns nil when the image yields no keypoints.
func DetectAndDescribe(g *imaging.Gray, params DetectorParams) [][]float32 {
	if g.W < minOctaveSize || g.H < minOctaveSize {
		return nil
	}

	base := toPlane(g)
	var kps []keypoint
	var gaussians [][]plane // per octave, per layer

	octave := 0
	current := base
	for octave < maxOctaves && current.w >= minOctaveSize && current.h >= minOctaveSize {
		levels := buildOctave(current, params)
		gaussians = append(gaussians, levels)
		kps = append(kps, findExtrema(levels, params, octave)...)

		// next octave starts from the level with twice the base sigma
		current = downsample(levels[params.OctaveLayers])
		octave++
	}

	if len(kps) == 0 {
		return nil
	}

	sort.Slice(kps, func(i, j int) bool { return kps[i].response > kps[j].response })
	if params.MaxFeatures > 0 && len(kps) > params.MaxFeatures {
		kps = kps[:params.MaxFeatures]
	}

	descs := make([][]float32, 0, len(kps))
	for i := range kps {
		kp := &kps[i]
		img := &gaussians[kp.octave][kp.layer]
		kp.angle = dominantOrientation(img, kp)
		if d := describe(img, kp); d != nil {
			descs = append(descs, d)
		}
	}

	if len(descs) == 0 {
		return nil
	}
	return descs
}

func toPlane(g *imaging.Gray) plane {
	p := plane{w: g.W, h: g.H, pix: make([]float64, len(g.Pix))}
	for i, v := range g.Pix {
		p.pix[i] = float64(v) / 255.0
	}
	return p
}

func (p plane) at(x, y int) float64 {
	if x < 0 {
		x = 0
	} else if x >= p.w {
		x = p.w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= p.h {
		y = p.h - 1
	}
	return p.pix[y*p.w+x]
}

// buildOctave produces OctaveLayers+3 progressively blurred levels
func buildOctave(base plane, params DetectorParams) []plane {
	n := params.OctaveLayers + 3
	k := math.Pow(2, 1.0/float64(params.OctaveLayers))

	levels := make([]plane, n)
	levels[0] = blurPlane(base, params.Sigma)
	sigmaPrev := params.Sigma
	for i := 1; i < n; i++ {
		sigmaTotal := params.Sigma * math.Pow(k, float64(i))
		// incremental blur: sqrt(total² - prev²)
		sigmaDiff := math.Sqrt(sigmaTotal*sigmaTotal - sigmaPrev*sigmaPrev)
		levels[i] = blurPlane(levels[i-1], sigmaDiff)
		sigmaPrev = sigmaTotal
	}
	return levels
}

// findExtrema locates 26-neighborhood extrema in the difference-of-Gaussian
// stack, filtered by contrast and edge response.
func findExtrema(levels []plane, params DetectorParams, octave int) []keypoint {
	nDoG := len(levels) - 1
	dogs := make([]plane, nDoG)
	for i := 0; i < nDoG; i++ {
		dogs[i] = subtract(levels[i+1], levels[i])
	}

	var kps []keypoint
	w, h := dogs[0].w, dogs[0].h
	edgeLimit := math.Pow(params.EdgeThreshold+1, 2) / params.EdgeThreshold

	for layer := 1; layer < nDoG-1; layer++ {
		d := dogs[layer]
		for y := 1; y < h-1; y++ {
			for x := 1; x < w-1; x++ {
				v := d.pix[y*w+x]
				if math.Abs(v) < params.ContrastThreshold {
					continue
				}
				if !isExtremum(dogs, layer, x, y, v) {
					continue
				}
				if isEdge(d, x, y, edgeLimit) {
					continue
				}
				kps = append(kps, keypoint{
					x:        x,
					y:        y,
					octave:   octave,
					layer:    layer + 1, // gaussian level matching this DoG scale
					response: math.Abs(v),
				})
			}
		}
	}
	return kps
}

func isExtremum(dogs []plane, layer, x, y int, v float64) bool {
	isMax, isMin := v > 0, v < 0
	for dl := -1; dl <= 1; dl++ {
		d := dogs[layer+dl]
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dl == 0 && dx == 0 && dy == 0 {
					continue
				}
				n := d.pix[(y+dy)*d.w+(x+dx)]
				if n >= v {
					isMax = false
				}
				if n <= v {
					isMin = false
				}
				if !isMax && !isMin {
					return false
				}
			}
		}
	}
	return isMax || isMin
}

// isEdge rejects keypoints on straight edges via the principal
// curvature ratio of the local Hessian.
func isEdge(d plane, x, y int, edgeLimit float64) bool {
	c := d.pix[y*d.w+x]
	dxx := d.pix[y*d.w+x+1] + d.pix[y*d.w+x-1] - 2*c
	dyy := d.pix[(y+1)*d.w+x] + d.pix[(y-1)*d.w+x] - 2*c
	dxy := (d.pix[(y+1)*d.w+x+1] - d.pix[(y+1)*d.w+x-1] -
		d.pix[(y-1)*d.w+x+1] + d.pix[(y-1)*d.w+x-1]) / 4

	tr := dxx + dyy
	det := dxx*dyy - dxy*dxy
	if det <= 0 {
		return true
	}
	return tr*tr/det >= edgeLimit
}

// dominantOrientation picks the peak of a magnitude-weighted gradient
// orientation histogram around the keypoint.
func dominantOrientation(img *plane, kp *keypoint) float64 {
	const radius = 8
	var hist [orientationHistLen]float64

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			x, y := kp.x+dx, kp.y+dy
			if x < 1 || x >= img.w-1 || y < 1 || y >= img.h-1 {
				continue
			}
			gx := img.pix[y*img.w+x+1] - img.pix[y*img.w+x-1]
			gy := img.pix[(y+1)*img.w+x] - img.pix[(y-1)*img.w+x]
			mag := math.Hypot(gx, gy)
			angle := math.Atan2(gy, gx) // [-pi, pi]

			weight := math.Exp(-float64(dx*dx+dy*dy) / (2 * radius * radius))
			bin := int((angle + math.Pi) / (2 * math.Pi) * orientationHistLen)
			if bin >= orientationHistLen {
				bin = orientationHistLen - 1
			}
			hist[bin] += mag * weight
		}
	}

	best := 0
	for i := 1; i < orientationHistLen; i++ {
		if hist[i] > hist[best] {
			best = i
		}
	}
	return (float64(best)+0.5)/orientationHistLen*2*math.Pi - math.Pi
}

// describe builds the 4×4×8 gradient histogram descriptor over a 16×16
// patch rotated to the keypoint orientation.
func describe(img *plane, kp *keypoint) []float32 {
	const patch = 16
	const half = patch / 2

	cosA := math.Cos(-kp.angle)
	sinA := math.Sin(-kp.angle)

	var desc [DescriptorSize]float64
	for py := 0; py < patch; py++ {
		for px := 0; px < patch; px++ {
			// offset in rotated patch coordinates
			ox := float64(px - half)
			oy := float64(py - half)
			sx := kp.x + int(math.Round(ox*cosA-oy*sinA))
			sy := kp.y + int(math.Round(ox*sinA+oy*cosA))
			if sx < 1 || sx >= img.w-1 || sy < 1 || sy >= img.h-1 {
				continue
			}

			gx := img.pix[sy*img.w+sx+1] - img.pix[sy*img.w+sx-1]
			gy := img.pix[(sy+1)*img.w+sx] - img.pix[(sy-1)*img.w+sx]
			mag := math.Hypot(gx, gy)
			angle := math.Atan2(gy, gx) - kp.angle

			for angle < -math.Pi {
				angle += 2 * math.Pi
			}
			for angle >= math.Pi {
				angle -= 2 * math.Pi
			}

			cellX := px * descriptorGrid / patch
			cellY := py * descriptorGrid / patch
			bin := int((angle + math.Pi) / (2 * math.Pi) * orientationBins)
			if bin >= orientationBins {
				bin = orientationBins - 1
			}
			desc[(cellY*descriptorGrid+cellX)*orientationBins+bin] += mag
		}
	}

	// normalize, clip dominant bins, renormalize
	var norm float64
	for _, v := range desc {
		norm += v * v
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)

	var norm2 float64
	for i := range desc {
		v := desc[i] / norm
		if v > descriptorClip {
			v = descriptorClip
		}
		desc[i] = v
		norm2 += v * v
	}
	norm2 = math.Sqrt(norm2)

	out := make([]float32, DescriptorSize)
	for i, v := range desc {
		out[i] = float32(v / norm2)
	}
	return out
}

func subtract(a, b plane) plane {
	out := plane{w: a.w, h: a.h, pix: make([]float64, len(a.pix))}
	for i := range a.pix {
		out.pix[i] = a.pix[i] - b.pix[i]
	}
	return out
}

func downsample(p plane) plane {
	w, h := p.w/2, p.h/2
	out := plane{w: w, h: h, pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.pix[y*w+x] = p.pix[(y*2)*p.w+x*2]
		}
	}
	return out
}

// blurPlane applies a separable Gaussian filter
func blurPlane(p plane, sigma float64) plane {
	if sigma <= 0 {
		out := plane{w: p.w, h: p.h, pix: make([]float64, len(p.pix))}
		copy(out.pix, p.pix)
		return out
	}

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

	tmp := plane{w: p.w, h: p.h, pix: make([]float64, len(p.pix))}
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			var s float64
			for k := -radius; k <= radius; k++ {
				s += p.at(x+k, y) * kernel[k+radius]
			}
			tmp.pix[y*p.w+x] = s
		}
	}

	out := plane{w: p.w, h: p.h, pix: make([]float64, len(p.pix))}
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			var s float64
			for k := -radius; k <= radius; k++ {
				s += tmp.at(x, y+k) * kernel[k+radius]
			}
			out.pix[y*p.w+x] = s
		}
	}
	return out
}
