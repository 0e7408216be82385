// Package source provides core.VideoSource implementations: a decoded still
// image and a live source fed with frames pushed by the UI.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/webseed87/camera/core"
	_ "golang.org/x/image/webp"
)

type (
	// Still serves the same decoded image for every frame.
	Still struct {
		path  string
		frame core.SourceFrame
	}

	// Live holds the most recent frame pushed by the capture UI. Until the
	// first frame arrives it reports a zero-size frame.
	Live struct {
		mu    sync.RWMutex
		frame core.SourceFrame
	}
)

// MaxFramePixels bounds the decoded size of a frame, a little above 4K UHD.
const MaxFramePixels = 4096 * 2304

// ErrFrameTooLarge is returned for images whose header declares more than
// MaxFramePixels pixels.
var ErrFrameTooLarge = errors.New("frame too large")

// Decode reads a JPEG, PNG or WebP image. The header is checked against
// MaxFramePixels before any pixel data is allocated.
func Decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxFramePixels {
		return nil, fmt.Errorf("decode %dx%d frame: %w", cfg.Width, cfg.Height, ErrFrameTooLarge)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"format": format,
		"width":  img.Bounds().Dx(),
		"height": img.Bounds().Dy(),
	}).Debug("Decoded frame")
	return img, nil
}

// NewStill decodes the image at path.
func NewStill(path string) (*Still, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open still source %s: %w", path, err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("open still source %s: %w", path, err)
	}
	return &Still{path: path, frame: core.NewSourceFrame(img)}, nil
}

func (s *Still) CurrentFrame() (core.SourceFrame, error) {
	return s.frame, nil
}

func (s *Still) IntrinsicSize() (int, int) {
	return s.frame.Width, s.frame.Height
}

// NewLive returns an empty live source.
func NewLive() *Live {
	return &Live{}
}

// Push replaces the current frame.
func (l *Live) Push(img image.Image) {
	l.mu.Lock()
	l.frame = core.NewSourceFrame(img)
	l.mu.Unlock()
}

// PushEncoded decodes data and replaces the current frame.
func (l *Live) PushEncoded(data []byte) error {
	img, err := Decode(data)
	if err != nil {
		return err
	}
	l.Push(img)
	return nil
}

func (l *Live) CurrentFrame() (core.SourceFrame, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frame, nil
}

func (l *Live) IntrinsicSize() (int, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frame.Width, l.frame.Height
}

// Open sets up the capture source once at startup. An empty primary yields a
// Live source. If primary cannot be opened, fallback is tried, the same way
// the capture page falls back from the rear to the front camera.
func Open(primary, fallback string) (core.VideoSource, error) {
	if primary == "" {
		logrus.Info("No camera source configured, waiting for pushed frames")
		return NewLive(), nil
	}

	still, err := NewStill(primary)
	if err == nil {
		logrus.WithField("source", primary).Info("Camera source opened")
		return still, nil
	}
	if fallback == "" {
		return nil, err
	}

	logrus.WithError(err).WithField("fallback", fallback).Warn("Primary camera source unavailable, trying fallback")
	still, fbErr := NewStill(fallback)
	if fbErr != nil {
		return nil, fmt.Errorf("primary: %v; fallback: %w", err, fbErr)
	}
	logrus.WithField("source", fallback).Info("Fallback camera source opened")
	return still, nil
}
