package imaging

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// writeFrame encodes a solid frame into dir and returns its path. The
// extension selects the encoder.
func writeFrame(t *testing.T, dir, name string, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	defer f.Close()

	switch filepath.Ext(name) {
	case ".jpg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	return path
}

func TestImageCache_Load(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantW   int
		wantH   int
		wantErr bool
	}{
		{"png frame", writeFrame(t, dir, "a.png", 64, 48, color.White), 64, 48, false},
		{"jpeg frame", writeFrame(t, dir, "b.jpg", 32, 24, color.Black), 32, 24, false},
		{"missing file", filepath.Join(dir, "missing.png"), 0, 0, true},
		{"undecodable file", garbage, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewImageCache()
			img, err := cache.Load(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if cache.Len() != 0 {
					t.Errorf("failed load was cached")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("size: got %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

// A camera reopened over the same frames gets the decoded image back
// instead of reading the file again.
func TestImageCache_ReusesDecodedFrame(t *testing.T) {
	dir := t.TempDir()
	path := writeFrame(t, dir, "frame.png", 16, 16, color.White)

	cache := NewImageCache()
	first, err := cache.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("cached frame should survive file removal: %v", err)
	}
	if first != second {
		t.Error("second Load decoded a new image")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

// Scan and capture sessions may share one cache.
func TestImageCache_ConcurrentLoad(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFrame(t, dir, "one.png", 8, 8, color.White),
		writeFrame(t, dir, "two.png", 8, 8, color.Black),
	}

	cache := NewImageCache()
	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			if _, err := cache.Load(p); err != nil {
				errs <- err
			}
		}(paths[i%len(paths)])
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load: %v", err)
	}
	if cache.Len() != len(paths) {
		t.Errorf("Len: got %d, want %d", cache.Len(), len(paths))
	}
}
