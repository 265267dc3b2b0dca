// Package scanner discovers valid image files inside a collection folder.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yildizm/LogoMatch/internal/imaging"
	"github.com/yildizm/LogoMatch/internal/logger"
)

// imageExtensions lists the recognized image file extensions
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".webp": true,
	".gif":  true,
}

// systemFiles lists well-known OS metadata files to skip regardless of extension
var systemFiles = map[string]bool{
	".ds_store":    true,
	"thumbs.db":    true,
	"desktop.ini":  true,
	".directory":   true,
	"._.ds_store":  true,
	"._thumbs.db":  true,
	".fseventsd":   true,
	".spotlight-v100": true,
}

// SupportedExtension reports whether a file name carries a recognized
// image extension.
func SupportedExtension(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Scanner validates candidate image files with a bounded worker pool
type Scanner struct {
	minFileSize int64
	workers     int
	log         *logger.Logger
}

// New creates a scanner. minFileSize is in bytes; workers bounds the
// validation pool.
func New(minFileSize int64, workers int, log *logger.Logger) *Scanner {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.New("scanner", nil)
	}
	return &Scanner{
		minFileSize: minFileSize,
		workers:     workers,
		log:         log.WithComponent("scanner"),
	}
}

// Scan returns the sorted paths of all valid images directly inside
// folder. Individual bad files are skipped silently; an unreadable
// folder is an error.
func (s *Scanner) Scan(ctx context.Context, folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder %s: %w", folder, err)
	}

	var (
		mu    sync.Mutex
		valid []string
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			path := filepath.Join(folder, name)
			if !s.validate(path, name) {
				return nil
			}
			mu.Lock()
			valid = append(valid, path)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(valid)
	s.log.Debug("scanned %s: %d candidates, %d valid", folder, len(entries), len(valid))
	return valid, nil
}

// validate runs the full per-file check chain: name filters, extension,
// size, then a decode probe.
func (s *Scanner) validate(path, name string) bool {
	lower := strings.ToLower(name)
	if strings.HasPrefix(name, ".") || systemFiles[lower] {
		return false
	}
	if !imageExtensions[filepath.Ext(lower)] {
		return false
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() < s.minFileSize {
		return false
	}

	if !imaging.ValidateFile(path) {
		s.log.Debug("rejected undecodable file: %s", path)
		return false
	}
	return true
}
