package scanner

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 64, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestScanFiltersInvalidFiles(t *testing.T) {
	dir := t.TempDir()

	writePNG(t, filepath.Join(dir, "logo-b.png"), 16, 16)
	writePNG(t, filepath.Join(dir, "logo-a.png"), 16, 16)

	// Hidden file, valid content
	writePNG(t, filepath.Join(dir, ".hidden.png"), 16, 16)
	// Wrong extension
	writePNG(t, filepath.Join(dir, "notes.txt"), 16, 16)
	// Right extension, garbage content
	if err := os.WriteFile(filepath.Join(dir, "corrupt.png"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Below minimum size (empty file)
	if err := os.WriteFile(filepath.Join(dir, "tiny.jpg"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	// System file name
	writePNG(t, filepath.Join(dir, "Thumbs.db"), 16, 16)
	// Subdirectory must be ignored
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	s := New(10, 4, nil)
	got, err := s.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	want := []string{
		filepath.Join(dir, "logo-a.png"),
		filepath.Join(dir, "logo-b.png"),
	}
	if len(got) != len(want) {
		t.Fatalf("Scan() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Scan()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if !sort.StringsAreSorted(got) {
		t.Error("scan results must be sorted")
	}
}

func TestScanUnreadableFolder(t *testing.T) {
	s := New(10, 2, nil)
	got, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for missing folder")
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestScanEmptyFolder(t *testing.T) {
	s := New(10, 2, nil)
	got, err := s.Scan(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results, got %v", got)
	}
}
