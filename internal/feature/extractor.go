package feature

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yildizm/LogoMatch/internal/imaging"
	"github.com/yildizm/LogoMatch/internal/logger"
)

// PseudoDescriptorBins is the histogram length of the final-fallback
// pseudo-descriptor. It equals DescriptorSize so the encoder never sees
// mixed dimensionality.
const PseudoDescriptorBins = DescriptorSize

// Encoder turns a variable-length descriptor set into one fixed-length
// normalized vector. Implemented by the vocabulary package.
type Encoder interface {
	Encode(descs [][]float32) []float32
	Dim() int
}

// Options configures an Extractor
type Options struct {
	MaxDescriptors int // per-image cap, top-N by response
	MaxImageDim    int // larger images are downscaled on load
	Workers        int // parallel image loading and detection
	BatchSize      int // embedding batch size
}

// Extractor computes complete feature bundles for images
type Extractor struct {
	opts      Options
	embedders []Embedder
	log       *logger.Logger

	mu  sync.RWMutex
	enc Encoder
}

// NewExtractor creates an extractor. The encoder may be nil until a
// vocabulary has been fitted; extraction requires one.
func NewExtractor(opts Options, enc Encoder, log *logger.Logger) *Extractor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if log == nil {
		log = logger.New("extractor", nil)
	}
	return &Extractor{
		opts:      opts,
		embedders: Embedders(),
		log:       log.WithComponent("extractor"),
		enc:       enc,
	}
}

// SetEncoder installs the local-descriptor encoder for this run
func (e *Extractor) SetEncoder(enc Encoder) {
	e.mu.Lock()
	e.enc = enc
	e.mu.Unlock()
}

func (e *Extractor) encoder() Encoder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enc
}

// contentStats summarizes image quality for preprocessing decisions
type contentStats struct {
	mean        float64
	std         float64
	edgeDensity float64
}

func (c contentStats) extremelyDark() bool   { return c.mean < 15 }
func (c contentStats) veryLowContrast() bool { return c.std < 10 }

func analyzeContent(g *imaging.Gray) contentStats {
	return contentStats{
		mean:        g.Mean(),
		std:         g.StdDev(),
		edgeDensity: g.EdgeDensity(100),
	}
}

// preprocess applies contrast enhancement steered by content quality
func preprocess(g *imaging.Gray, stats contentStats) *imaging.Gray {
	if stats.extremelyDark() || stats.veryLowContrast() {
		out := g.CLAHE(4.0, 8)
		if stats.mean < 20 {
			out = out.Equalize()
		}
		if stats.mean < 30 {
			out = out.Gamma(1.5)
		}
		return out
	}
	return g.CLAHE(3.0, 8)
}

// LocalDescriptors extracts keypoint descriptors with the progressive
// fallback chain. Every image yields at least one descriptor: the final
// stage substitutes an intensity-histogram pseudo-descriptor, so a lack
// of texture is never an error.
func (e *Extractor) LocalDescriptors(g *imaging.Gray) [][]float32 {
	stats := analyzeContent(g)
	enhanced := preprocess(g, stats)

	// 1: standard detection on the enhanced plane
	descs := DetectAndDescribe(enhanced, DefaultDetectorParams())

	// 2: more permissive thresholds
	if len(descs) == 0 {
		descs = DetectAndDescribe(enhanced, PermissiveDetectorParams())
	}

	// 3: global equalization
	if len(descs) == 0 {
		descs = DetectAndDescribe(enhanced.Equalize(), DefaultDetectorParams())
	}

	// 4: light blur to suppress noise-only texture
	if len(descs) == 0 {
		descs = DetectAndDescribe(enhanced.GaussianBlur(1.0), DefaultDetectorParams())
	}

	// 5: pseudo-descriptor from the intensity histogram
	if len(descs) == 0 {
		return [][]float32{pseudoDescriptor(g)}
	}

	if e.opts.MaxDescriptors > 0 && len(descs) > e.opts.MaxDescriptors {
		descs = descs[:e.opts.MaxDescriptors] // already ordered by response
	}
	return descs
}

// pseudoDescriptor builds a normalized grayscale intensity histogram
// standing in for keypoint descriptors on textureless images.
func pseudoDescriptor(g *imaging.Gray) []float32 {
	hist := g.Histogram(PseudoDescriptorBins)
	vec := make([]float32, PseudoDescriptorBins)
	var total float64
	for _, h := range hist {
		total += h
	}
	if total == 0 {
		for i := range vec {
			vec[i] = 1.0 / PseudoDescriptorBins
		}
		return vec
	}
	for i, h := range hist {
		vec[i] = float32(h / total)
	}
	return vec
}

// ExtractOne loads a single image and produces its complete bundle.
// Fails only when the image is unusable.
func (e *Extractor) ExtractOne(path string) (Bundle, error) {
	enc := e.encoder()
	if enc == nil {
		return nil, fmt.Errorf("no descriptor encoder configured")
	}

	img, err := imaging.Load(path, e.opts.MaxImageDim)
	if err != nil {
		return nil, fmt.Errorf("unusable image %s: %w", path, err)
	}
	return e.bundleFor(img, enc), nil
}

func (e *Extractor) bundleFor(img *imaging.RGB, enc Encoder) Bundle {
	bundle := make(Bundle, len(e.embedders)+1)

	descs := e.LocalDescriptors(img.Gray())
	bundle[TypeLocal] = enc.Encode(descs)

	for _, emb := range e.embedders {
		bundle[emb.Name()] = emb.Embed(img)
	}
	return bundle
}

// loadedImage pairs a path with its decoded pixels
type loadedImage struct {
	path string
	img  *imaging.RGB
}

// Extract computes bundles for all paths. Images are processed in
// batches: each batch is loaded in parallel, then embedded as one unit.
// Unreadable images are skipped and logged, never fatal.
func (e *Extractor) Extract(ctx context.Context, paths []string) (map[string]Bundle, error) {
	enc := e.encoder()
	if enc == nil {
		return nil, fmt.Errorf("no descriptor encoder configured")
	}

	bundles := make(map[string]Bundle, len(paths))

	for start := 0; start < len(paths); start += e.opts.BatchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := min(start+e.opts.BatchSize, len(paths))
		batch, err := e.loadBatch(ctx, paths[start:end])
		if err != nil {
			return nil, err
		}

		// local descriptors fan out across workers; embeddings run
		// inline over the whole batch
		if err := e.describeBatch(ctx, batch, enc, bundles); err != nil {
			return nil, err
		}
	}

	e.log.Debug("extracted %d/%d bundles", len(bundles), len(paths))
	return bundles, nil
}

func (e *Extractor) loadBatch(ctx context.Context, paths []string) ([]loadedImage, error) {
	loaded := make([]loadedImage, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			img, err := imaging.Load(path, e.opts.MaxImageDim)
			if err != nil {
				e.log.Warn("skipping unusable image %s: %v", path, err)
				return nil
			}
			loaded[i] = loadedImage{path: path, img: img}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	valid := loaded[:0]
	for _, li := range loaded {
		if li.img != nil {
			valid = append(valid, li)
		}
	}
	return valid, nil
}

func (e *Extractor) describeBatch(ctx context.Context, batch []loadedImage, enc Encoder, bundles map[string]Bundle) error {
	locals := make([][]float32, len(batch))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, li := range batch {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			locals[i] = enc.Encode(e.LocalDescriptors(li.img.Gray()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, li := range batch {
		bundle := make(Bundle, len(e.embedders)+1)
		bundle[TypeLocal] = locals[i]
		for _, emb := range e.embedders {
			bundle[emb.Name()] = emb.Embed(li.img)
		}
		bundles[li.path] = bundle
	}
	return nil
}

// SampleDescriptors collects up to perImage raw descriptors from each
// path, pooling them for vocabulary fitting. Unusable images are skipped.
func (e *Extractor) SampleDescriptors(ctx context.Context, paths []string, perImage int) ([][]float32, error) {
	perPath := make([][][]float32, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			img, err := imaging.Load(path, e.opts.MaxImageDim)
			if err != nil {
				return nil
			}
			gray := img.Gray().CLAHE(3.0, 8)

			descs := DetectAndDescribe(gray, DefaultDetectorParams())
			if len(descs) == 0 {
				descs = DetectAndDescribe(gray.Equalize(), DefaultDetectorParams())
			}
			if perImage > 0 && len(descs) > perImage {
				descs = descs[:perImage]
			}
			perPath[i] = descs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pooled [][]float32
	for _, descs := range perPath {
		pooled = append(pooled, descs...)
	}
	return pooled, nil
}
