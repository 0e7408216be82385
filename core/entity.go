package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"
)

var (
	// ErrNotReady is returned when the live source has no decodable frame yet
	// (zero width or height).
	ErrNotReady = errors.New("camera is not ready")
	// ErrIndexOutOfRange is returned by positional gallery operations.
	ErrIndexOutOfRange = errors.New("capture index out of range")
	// ErrPersistence wraps blob store read/write failures. It is never fatal:
	// the in-memory gallery stays authoritative.
	ErrPersistence = errors.New("capture persistence failed")
	// ErrNotFound is returned by BlobStore.Get for an absent key.
	ErrNotFound = errors.New("blob not found")
	// ErrDuplicateID is returned when a record id is already in the gallery.
	ErrDuplicateID = errors.New("duplicate capture id")
)

type (
	// SourceFrame is a read-only reference to the current live frame.
	SourceFrame struct {
		Image  image.Image
		Width  int
		Height int
	}

	// CaptureRecord is one shot in the gallery. Immutable once created.
	CaptureRecord struct {
		ID        int64  `json:"id"`
		Timestamp string `json:"timestamp"`
		FullImage []byte `json:"fullImage"`
		Thumbnail []byte `json:"thumbnail"`
	}

	// Format names an encoded raster format.
	Format string

	// VideoSource provides the current live frame.
	VideoSource interface {
		CurrentFrame() (SourceFrame, error)
		IntrinsicSize() (width, height int)
	}

	// ImageEncoder turns a composite frame into an encoded blob.
	// Quality is in [0, 1] and ignored by lossless formats.
	ImageEncoder interface {
		Encode(img image.Image, format Format, quality float64) ([]byte, error)
	}

	// BlobStore is the key-value persistence used by the gallery.
	BlobStore interface {
		// Get returns ErrNotFound when the key is absent.
		Get(ctx context.Context, key string) ([]byte, error)
		Set(ctx context.Context, key string, data []byte) error
		Remove(ctx context.Context, key string) error
	}
)

const (
	FormatJPEG Format = "image/jpeg"
	FormatPNG  Format = "image/png"
)

// NewSourceFrame wraps img, taking its dimensions from the image bounds.
// A nil image yields a zero-size frame.
func NewSourceFrame(img image.Image) SourceFrame {
	if img == nil {
		return SourceFrame{}
	}
	b := img.Bounds()
	return SourceFrame{Image: img, Width: b.Dx(), Height: b.Dy()}
}

// Ready reports whether the frame can be composed.
func (f SourceFrame) Ready() bool {
	return f.Image != nil && f.Width > 0 && f.Height > 0
}

// Extension returns the file extension used for downloads.
func (f Format) Extension() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

// FullImageDataURL renders the full image for direct use as an <img> src.
func (r CaptureRecord) FullImageDataURL() string {
	return dataURL(r.FullImage)
}

// ThumbnailDataURL renders the thumbnail for direct use as an <img> src.
func (r CaptureRecord) ThumbnailDataURL() string {
	return dataURL(r.Thumbnail)
}

func dataURL(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return "data:" + string(SniffFormat(data)) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// SniffFormat guesses the encoded format from magic bytes, defaulting to JPEG.
func SniffFormat(data []byte) Format {
	if len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n" {
		return FormatPNG
	}
	return FormatJPEG
}

// ValidateKey rejects blob keys that are empty or could escape a directory
// or bucket prefix.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return fmt.Errorf("invalid blob key %q: must not be empty or a dot directory", key)
	}
	if strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid blob key %q: must not be a path", key)
	}
	return nil
}
