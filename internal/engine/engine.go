// Package engine orchestrates the visual similarity pipeline: scan,
// extract, build the vocabulary and per-collection indexes, persist
// snapshots, and answer compare and match queries with fused scores.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yildizm/LogoMatch/internal/cachestore"
	"github.com/yildizm/LogoMatch/internal/config"
	"github.com/yildizm/LogoMatch/internal/feature"
	"github.com/yildizm/LogoMatch/internal/index"
	"github.com/yildizm/LogoMatch/internal/logger"
	"github.com/yildizm/LogoMatch/internal/scanner"
	"github.com/yildizm/LogoMatch/internal/vocab"
)

// scoreEpsilon absorbs float32 normalization ulps when comparing fused
// scores against a threshold, so identical images survive a threshold
// of 100 even though their stored inner product is a hair under 1.0.
const scoreEpsilon = 5e-3

// Direction labels on match results
const (
	DirectionForward = "a_to_b"
	DirectionReverse = "b_to_a"
)

// ProgressFunc receives coarse pipeline progress for display
type ProgressFunc func(stage string, done, total int)

// MatchResult is one thresholded pair from a cross-collection match.
// ImageA always belongs to the first folder of the call and ImageB to
// the second, regardless of which side issued the query.
type MatchResult struct {
	ID        string `json:"id"`
	ImageA    string `json:"image_a"`
	ImageB    string `json:"image_b"`
	Score     Score  `json:"score"`
	Direction string `json:"direction"`
}

// FolderStats describes one prepared folder
type FolderStats struct {
	Images       int `json:"images"`
	FeatureTypes int `json:"feature_types"`
	IndexRows    int `json:"index_rows"`
}

// StatsReport summarizes the engine's prepared state
type StatsReport struct {
	Folders       map[string]FolderStats `json:"folders"`
	VocabClusters int                    `json:"vocab_clusters"` // 0 when the mean encoder is active
	Rebuilds      int                    `json:"rebuilds"`
}

// Engine is one similarity engine instance. Prepared state is private
// to the instance; concurrent Prepare calls are serialized internally,
// while Compare, Match and Stats may run concurrently once prepared.
type Engine struct {
	cfg       *config.Config
	log       *logger.Logger
	store     *CollectionStore
	cache     *cachestore.Store
	scan      *scanner.Scanner
	extractor *feature.Extractor
	scorer    *Scorer

	mu         sync.Mutex // serializes Prepare
	vocabK     int
	vocabulary *vocab.Vocabulary // nil when the mean encoder is active
	rebuilds   int
	progress   ProgressFunc
}

// New creates an engine from a validated configuration
func New(cfg *config.Config, log *logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	scorer, err := NewScorer(cfg.Engine.Weights.Map())
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.New("engine", nil)
	}
	log = log.WithComponent("engine")

	workers := cfg.Engine.EffectiveWorkers()
	opts := feature.Options{
		MaxDescriptors: cfg.Engine.MaxDescriptors,
		MaxImageDim:    cfg.Engine.MaxImageDim,
		Workers:        workers,
		BatchSize:      cfg.Engine.BatchSize,
	}

	return &Engine{
		cfg:       cfg,
		log:       log,
		store:     NewCollectionStore(),
		cache:     cachestore.New(cfg.ExpandCacheDir(), log),
		scan:      scanner.New(cfg.Engine.MinFileSize, workers, log),
		extractor: feature.NewExtractor(opts, nil, log),
		scorer:    scorer,
	}, nil
}

// SetProgress installs a progress callback. Pass nil to disable.
func (e *Engine) SetProgress(fn ProgressFunc) { e.progress = fn }

func (e *Engine) report(stage string, done, total int) {
	if e.progress != nil {
		e.progress(stage, done, total)
	}
}

// Store exposes the collection store handle
func (e *Engine) Store() *CollectionStore { return e.store }

// Rebuilds returns how many times Prepare ran the full build pipeline
// instead of adopting a snapshot.
func (e *Engine) Rebuilds() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rebuilds
}

// Prepare indexes the given folders, adopting a cached snapshot when
// the fingerprint matches and rebuilding otherwise. Idempotent and
// safe to call repeatedly.
func (e *Engine) Prepare(ctx context.Context, folders []string, useCache bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(folders) == 0 {
		return fmt.Errorf("no folders to prepare")
	}

	abs := make([]string, len(folders))
	for i, folder := range folders {
		a, err := filepath.Abs(folder)
		if err != nil {
			return unreadable(folder, err)
		}
		abs[i] = a
	}

	useCache = useCache && e.cfg.Cache.Enabled
	var fingerprint string
	if useCache {
		fp, err := cachestore.Fingerprint(abs)
		if err != nil {
			return unreadable(fmt.Sprintf("%v", abs), err)
		}
		fingerprint = fp

		if snap, err := e.cache.Load(fingerprint); err == nil {
			switch err := e.adopt(snap); {
			case err == nil:
				e.log.Info("adopted cached snapshot %s (%d folders)", fingerprint, len(snap.Folders))
				return nil
			case IsKind(err, KindCacheCorrupt):
				// inconsistent snapshot contents count as a miss
				e.log.Warn("discarding corrupt snapshot %s: %v", fingerprint, err)
			default:
				return err
			}
		} else {
			e.log.Debug("cache miss for %s: %v", fingerprint, err)
		}
	}

	if err := e.rebuild(ctx, abs); err != nil {
		return wrapCtx(err)
	}

	if useCache {
		if err := e.cache.Save(e.snapshot(fingerprint)); err != nil {
			// a failed save never fails the preparation itself
			e.log.WarnWithFields("failed to persist snapshot", []logger.Field{logger.Err(err)})
		}
	}
	return nil
}

// adopt installs a snapshot wholesale: vocabulary, indexes and feature
// cache together. A weight set differing from the live configuration
// is a hard error, since scores fused under other weights would be
// silently wrong.
func (e *Engine) adopt(snap *cachestore.Snapshot) error {
	live := e.scorer.Weights()
	if len(snap.Weights) != len(live) {
		return fmt.Errorf("cached snapshot was built with different fusion weights")
	}
	for ft, w := range live {
		if snap.Weights[ft] != w {
			return fmt.Errorf("cached snapshot weight for %s is %v, configuration has %v", ft, snap.Weights[ft], w)
		}
	}

	if snap.VocabK > 0 {
		v, err := vocab.FromCentroids(snap.Centroids)
		if err != nil {
			return cacheCorrupt(err)
		}
		e.extractor.SetEncoder(v)
		e.vocabulary = v
		e.vocabK = v.K()
	} else {
		e.extractor.SetEncoder(vocab.NewMeanEncoder(feature.DescriptorSize))
		e.vocabulary = nil
		e.vocabK = 0
	}

	fresh := NewCollectionStore()
	for folder, fs := range snap.Folders {
		bundles := make(map[string]feature.Bundle, len(fs.Paths))
		for i, path := range fs.Paths {
			b := make(feature.Bundle, len(fs.Vectors))
			for ft, rows := range fs.Vectors {
				if len(rows) != len(fs.Paths) {
					return cacheCorrupt(fmt.Errorf("%s %s has %d rows for %d paths", folder, ft, len(rows), len(fs.Paths)))
				}
				b[ft] = rows[i]
			}
			bundles[path] = b
		}
		coll, err := index.Build(folder, bundles)
		if err != nil {
			return cacheCorrupt(err)
		}
		fresh.Set(folder, coll, bundles)
	}
	e.store = fresh
	return nil
}

// snapshot captures the current prepared state for persistence
func (e *Engine) snapshot(fingerprint string) *cachestore.Snapshot {
	snap := &cachestore.Snapshot{
		Fingerprint: fingerprint,
		VocabK:      e.vocabK,
		Weights:     e.scorer.Weights(),
		Folders:     make(map[string]cachestore.FolderSnapshot),
	}
	if e.vocabulary != nil {
		snap.Centroids = e.vocabulary.Centroids()
	}

	for _, folder := range e.store.Folders() {
		coll, _ := e.store.Get(folder)
		fs := cachestore.FolderSnapshot{
			Paths:   coll.Paths,
			Vectors: make(map[string][][]float32, len(coll.ByFeature)),
		}
		for ft, idx := range coll.ByFeature {
			fs.Vectors[ft] = idx.Vectors()
		}
		snap.Folders[folder] = fs
	}
	return snap
}

// rebuild runs the full pipeline: scan, sample, fit, extract, index
func (e *Engine) rebuild(ctx context.Context, folders []string) error {
	e.rebuilds++
	start := time.Now()
	e.log.Info("building indexes for %d folders", len(folders))

	scanned := make(map[string][]string, len(folders))
	var allPaths []string
	for i, folder := range folders {
		e.report("scanning", i, len(folders))
		paths, err := e.scan.Scan(ctx, folder)
		if err != nil {
			return unreadable(folder, err)
		}
		if len(paths) == 0 {
			e.log.Warn("no usable images in %s", folder)
		}
		scanned[folder] = paths
		allPaths = append(allPaths, paths...)
	}
	e.report("scanning", len(folders), len(folders))

	if len(allPaths) == 0 {
		return fmt.Errorf("no usable images in any folder")
	}

	if err := e.fitVocabulary(ctx, allPaths); err != nil {
		return err
	}

	fresh := NewCollectionStore()
	for i, folder := range folders {
		e.report("extracting", i, len(folders))
		if len(scanned[folder]) == 0 {
			continue
		}
		bundles, err := e.extractor.Extract(ctx, scanned[folder])
		if err != nil {
			return err
		}
		if len(bundles) == 0 {
			e.log.Warn("no feature bundles for %s", folder)
			continue
		}
		coll, err := index.Build(folder, bundles)
		if err != nil {
			return err
		}
		fresh.Set(folder, coll, bundles)
		e.log.Debug("indexed %s: %d images", folder, coll.Len())
	}
	e.report("extracting", len(folders), len(folders))

	if fresh.Len() == 0 {
		return fmt.Errorf("no folder produced an index")
	}
	e.store = fresh
	e.log.InfoWithFields("indexes built", []logger.Field{
		logger.F("folders", fresh.Len()),
		logger.Count(len(allPaths)),
		logger.Duration(time.Since(start).Truncate(time.Millisecond)),
	})
	return nil
}

// fitVocabulary pools descriptor samples across all folders and fits
// the codebook, or downgrades to the mean encoder when the pool is
// too small.
func (e *Engine) fitVocabulary(ctx context.Context, allPaths []string) error {
	sample := allPaths
	if e.cfg.Engine.SampleImages > 0 && len(sample) > e.cfg.Engine.SampleImages {
		sample = sample[:e.cfg.Engine.SampleImages]
	}

	e.report("sampling", 0, len(sample))
	descs, err := e.extractor.SampleDescriptors(ctx, sample, e.cfg.Engine.SampleDescriptors)
	if err != nil {
		return err
	}
	e.report("sampling", len(sample), len(sample))

	if len(descs) < e.cfg.Engine.VocabMinDescriptors {
		e.log.Warn("only %d descriptors sampled, using mean encoding instead of a vocabulary", len(descs))
		e.extractor.SetEncoder(vocab.NewMeanEncoder(feature.DescriptorSize))
		e.vocabulary = nil
		e.vocabK = 0
		return nil
	}

	v, err := vocab.Fit(descs, e.cfg.Engine.VocabClusters, e.log)
	if err != nil {
		return fmt.Errorf("fitting vocabulary: %w", err)
	}
	e.extractor.SetEncoder(v)
	e.vocabulary = v
	e.vocabK = v.K()
	e.log.Info("vocabulary fitted: k=%d from %d descriptors", v.K(), len(descs))
	return nil
}

// Compare scores two images directly. Bundles are taken from the
// prepared cache when available and extracted on demand otherwise, so
// Compare works without any prior Prepare call.
func (e *Engine) Compare(imageA, imageB string) (Score, error) {
	e.ensureEncoder()

	a, err := e.bundleFor(imageA)
	if err != nil {
		return Score{}, err
	}
	b, err := e.bundleFor(imageB)
	if err != nil {
		return Score{}, err
	}
	return e.scorer.ScorePair(a, b), nil
}

// ensureEncoder installs the mean encoder when no vocabulary has been
// fitted, keeping on-demand extraction consistent within the run.
func (e *Engine) ensureEncoder() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store.Len() == 0 && e.vocabK == 0 && e.rebuilds == 0 {
		e.extractor.SetEncoder(vocab.NewMeanEncoder(feature.DescriptorSize))
	}
}

func (e *Engine) bundleFor(path string) (feature.Bundle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, unreadable(path, err)
	}
	if b, ok := e.store.Bundle(abs); ok {
		return b, nil
	}
	if !scanner.SupportedExtension(abs) {
		return nil, unsupported(abs, fmt.Errorf("unrecognized image extension"))
	}
	b, err := e.extractor.ExtractOne(abs)
	if err != nil {
		return nil, unreadable(abs, err)
	}
	return b, nil
}

// Match queries folderA against folderB and returns every pair at or
// above threshold, sorted by fused score descending. Both folders must
// be prepared; anything else is caller misuse.
func (e *Engine) Match(ctx context.Context, folderA, folderB string, threshold float64, reverse bool) ([]MatchResult, error) {
	absA, err := filepath.Abs(folderA)
	if err != nil {
		return nil, unreadable(folderA, err)
	}
	absB, err := filepath.Abs(folderB)
	if err != nil {
		return nil, unreadable(folderB, err)
	}

	collA, ok := e.store.Get(absA)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotPrepared, absA)
	}
	collB, ok := e.store.Get(absB)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotPrepared, absB)
	}

	// the smaller collection queries the larger one's indexes
	query, target := collA, collB
	direction := DirectionForward
	if collB.Len() < collA.Len() {
		query, target = collB, collA
		direction = DirectionReverse
	}

	results, err := e.queryPass(ctx, query, target, direction, threshold)
	if err != nil {
		return nil, wrapCtx(err)
	}

	if reverse {
		opposite := DirectionReverse
		if direction == DirectionReverse {
			opposite = DirectionForward
		}
		more, err := e.queryPass(ctx, target, query, opposite, threshold)
		if err != nil {
			return nil, wrapCtx(err)
		}
		results = append(results, more...)
	}

	results = dedupe(results)
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score.Fused != results[j].Score.Fused {
			return results[i].Score.Fused > results[j].Score.Fused
		}
		if results[i].ImageA != results[j].ImageA {
			return results[i].ImageA < results[j].ImageA
		}
		return results[i].ImageB < results[j].ImageB
	})

	e.log.Debug("match %s vs %s: %d results at threshold %.1f", absA, absB, len(results), threshold)
	return results, nil
}

// queryPass runs one direction of the match: every query image against
// every target index, batched across the worker pool. Result ImageA/B
// are canonicalized so ImageA is always the caller's first folder.
func (e *Engine) queryPass(ctx context.Context, query, target *index.Collection, direction string, threshold float64) ([]MatchResult, error) {
	workers := e.cfg.Engine.EffectiveWorkers()
	batch := (query.Len() + workers - 1) / workers
	if batch < 1 {
		batch = 1
	}

	var mu sync.Mutex
	var results []MatchResult

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < query.Len(); start += batch {
		end := min(start+batch, query.Len())
		g.Go(func() error {
			local, err := e.queryBatch(ctx, query, target, direction, threshold, start, end)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, local...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) queryBatch(ctx context.Context, query, target *index.Collection, direction string, threshold float64, start, end int) ([]MatchResult, error) {
	var results []MatchResult

	for row := start; row < end; row++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// per-target accumulation across feature types
		breakdowns := make([]map[string]float64, target.Len())
		for ft, targetIdx := range target.ByFeature {
			queryIdx, ok := query.ByFeature[ft]
			if !ok {
				continue
			}
			qv := queryIdx.Vectors()[row]
			hits, err := targetIdx.Search(qv, target.Len())
			if err != nil {
				return nil, fmt.Errorf("querying %s index: %w", ft, err)
			}
			for _, hit := range hits {
				if breakdowns[hit.Row] == nil {
					breakdowns[hit.Row] = make(map[string]float64, len(target.ByFeature))
				}
				breakdowns[hit.Row][ft] = similarity(hit.Score)
			}
		}

		for targetRow, breakdown := range breakdowns {
			if breakdown == nil {
				continue
			}
			fused := e.scorer.Fuse(breakdown)
			if fused+scoreEpsilon < threshold {
				continue
			}

			imageA, imageB := query.Paths[row], target.Paths[targetRow]
			if direction == DirectionReverse {
				imageA, imageB = imageB, imageA
			}
			results = append(results, MatchResult{
				ID:        uuid.NewString(),
				ImageA:    imageA,
				ImageB:    imageB,
				Score:     Score{Fused: fused, Breakdown: breakdown},
				Direction: direction,
			})
		}
	}
	return results, nil
}

// dedupe removes pairs already seen. Pairs are directionless: the
// reverse pass's (B,A) duplicates the forward pass's (A,B) since both
// are canonicalized to the same ImageA/ImageB order.
func dedupe(results []MatchResult) []MatchResult {
	seen := make(map[string]bool, len(results))
	out := results[:0]
	for _, r := range results {
		key := r.ImageA + "\x00" + r.ImageB
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// Stats reports prepared-state counts for observability
func (e *Engine) Stats() StatsReport {
	report := StatsReport{
		Folders:       make(map[string]FolderStats),
		VocabClusters: e.vocabK,
		Rebuilds:      e.Rebuilds(),
	}
	for _, folder := range e.store.Folders() {
		coll, _ := e.store.Get(folder)
		rows := 0
		for _, idx := range coll.ByFeature {
			rows += idx.Len()
		}
		report.Folders[folder] = FolderStats{
			Images:       coll.Len(),
			FeatureTypes: len(coll.ByFeature),
			IndexRows:    rows,
		}
	}
	return report
}

// ResetCache removes every snapshot from the cache directory
func (e *Engine) ResetCache() (int, error) {
	return e.cache.Reset()
}

// CacheStats summarizes the on-disk cache
func (e *Engine) CacheStats() (cachestore.Stats, error) {
	return e.cache.Stat()
}
