package core

import (
	"image"
	"strings"
	"testing"
)

func TestNewSourceFrame(t *testing.T) {
	f := NewSourceFrame(image.NewRGBA(image.Rect(0, 0, 64, 48)))
	if f.Width != 64 || f.Height != 48 {
		t.Errorf("Size mismatch: got %dx%d, want 64x48", f.Width, f.Height)
	}
	if !f.Ready() {
		t.Error("Frame with pixels should be ready")
	}

	if NewSourceFrame(nil).Ready() {
		t.Error("Nil frame should not be ready")
	}
	if NewSourceFrame(image.NewRGBA(image.Rect(0, 0, 0, 10))).Ready() {
		t.Error("Zero-width frame should not be ready")
	}
}

func TestDataURL(t *testing.T) {
	rec := CaptureRecord{
		FullImage: []byte{0xff, 0xd8, 0xff, 0xe0},
		Thumbnail: []byte("\x89PNG\r\n\x1a\nrest"),
	}

	if got := rec.FullImageDataURL(); !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Errorf("FullImageDataURL prefix mismatch: got %q", got)
	}
	if got := rec.ThumbnailDataURL(); !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("ThumbnailDataURL prefix mismatch: got %q", got)
	}
	if got := (CaptureRecord{}).FullImageDataURL(); got != "" {
		t.Errorf("Empty image should render empty data URL, got %q", got)
	}
}

func TestValidateKey(t *testing.T) {
	valid := []string{"capturedImages", "photo_1700000000000.jpg", "a-b_c"}
	for _, key := range valid {
		if err := ValidateKey(key); err != nil {
			t.Errorf("ValidateKey(%q) failed: %v", key, err)
		}
	}

	invalid := []string{"", ".", "..", "../etc/passwd", "a/b", `..\..\windows`, "/etc/passwd"}
	for _, key := range invalid {
		if err := ValidateKey(key); err == nil {
			t.Errorf("ValidateKey(%q) should fail", key)
		}
	}
}
