// Package cachestore persists prepared engine state to disk, keyed by
// a fingerprint of the source folders. Snapshots are msgpack-encoded
// and written atomically under an advisory file lock.
package cachestore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/yildizm/LogoMatch/internal/logger"
)

// SnapshotVersion is bumped whenever the on-disk layout changes;
// snapshots with any other version are treated as misses.
const SnapshotVersion = 1

const fingerprintLen = 16

// FolderSnapshot is one collection's persisted state. Vectors rows are
// positionally aligned with Paths, per feature type.
type FolderSnapshot struct {
	Paths   []string               `msgpack:"paths"`
	Vectors map[string][][]float32 `msgpack:"vectors"`
}

// Snapshot is the full persisted form of a prepared engine
type Snapshot struct {
	Version     int                       `msgpack:"version"`
	Fingerprint string                    `msgpack:"fingerprint"`
	CreatedAt   time.Time                 `msgpack:"created_at"`
	VocabK      int                       `msgpack:"vocab_k"` // 0 means the mean encoder was used
	Centroids   [][]float32               `msgpack:"centroids"`
	Weights     map[string]float64        `msgpack:"weights"`
	Folders     map[string]FolderSnapshot `msgpack:"folders"`
}

// Fingerprint derives a stable key from folder paths and their
// modification times. Any change to a folder's contents bumps its
// mtime and therefore the fingerprint.
func Fingerprint(folders []string) (string, error) {
	lines := make([]string, 0, len(folders))
	for _, folder := range folders {
		abs, err := filepath.Abs(folder)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", folder, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", folder, err)
		}
		lines = append(lines, fmt.Sprintf("%s|%d", abs, info.ModTime().UnixNano()))
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])[:fingerprintLen], nil
}

// Store reads and writes snapshots in a cache directory
type Store struct {
	dir string
	log *logger.Logger
}

// New creates a store rooted at dir. The directory is created lazily
// on first save.
func New(dir string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.New("cache", nil)
	}
	return &Store{dir: dir, log: log.WithComponent("cache")}
}

// Dir returns the cache directory
func (s *Store) Dir() string { return s.dir }

func (s *Store) snapshotPath(fingerprint string) string {
	return filepath.Join(s.dir, "logomatch_"+fingerprint+".snapshot")
}

func (s *Store) lockPath(fingerprint string) string {
	return s.snapshotPath(fingerprint) + ".lock"
}

// Load reads the snapshot for a fingerprint. Every failure mode —
// missing file, truncated or corrupt payload, version or fingerprint
// mismatch — returns an error the caller should treat as a cache miss.
func (s *Store) Load(fingerprint string) (*Snapshot, error) {
	path := s.snapshotPath(fingerprint)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", path, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, expected %d", snap.Version, SnapshotVersion)
	}
	if snap.Fingerprint != fingerprint {
		return nil, fmt.Errorf("snapshot fingerprint %s does not match %s", snap.Fingerprint, fingerprint)
	}

	s.log.Debug("loaded snapshot %s (%d folders)", fingerprint, len(snap.Folders))
	return &snap, nil
}

// Save writes a snapshot atomically: marshal, write to a temp file in
// the same directory, rename over the target. An advisory lock keeps
// concurrent processes from interleaving writes.
func (s *Store) Save(snap *Snapshot) error {
	if snap.Fingerprint == "" {
		return fmt.Errorf("snapshot has no fingerprint")
	}
	snap.Version = SnapshotVersion
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	lock := flock.New(s.lockPath(snap.Fingerprint))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquiring cache lock: %w", err)
	}
	defer lock.Unlock()

	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	target := s.snapshotPath(snap.Fingerprint)
	tmp, err := os.CreateTemp(s.dir, "snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	s.log.InfoWithFields("saved snapshot %s", []logger.Field{
		logger.F("bytes", len(data)),
		logger.F("folders", len(snap.Folders)),
	}, snap.Fingerprint)
	return nil
}

// Reset removes every snapshot and lock file in the cache directory.
// Returns the number of snapshots removed.
func (s *Store) Reset() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "logomatch_") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return removed, fmt.Errorf("removing %s: %w", name, err)
		}
		if strings.HasSuffix(name, ".snapshot") {
			removed++
		}
	}
	return removed, nil
}

// Stats describes what is currently on disk
type Stats struct {
	Dir       string
	Snapshots int
	TotalSize int64
}

// Stat summarizes the cache directory contents
func (s *Store) Stat() (Stats, error) {
	stats := Stats{Dir: s.dir}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("reading cache dir: %w", err)
	}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".snapshot") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Snapshots++
		stats.TotalSize += info.Size()
	}
	return stats, nil
}
