// Package session ties the live controls, the compositor and the gallery
// together into the capture workflow.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"github.com/webseed87/camera/compositor"
	"github.com/webseed87/camera/core"
	"github.com/webseed87/camera/gallery"
)

const (
	FullQuality      = 0.9
	ThumbnailQuality = 0.7

	// TimestampLayout renders capture times for the gallery.
	TimestampLayout = "2006-01-02 15:04:05"
)

type (
	// State is what the display layer needs to render the live preview.
	State struct {
		Zoom   core.ZoomState   `json:"zoom"`
		Filter core.FilterState `json:"filter"`
		Style  compositor.Style `json:"style"`
	}

	// Listener receives display-layer notifications. Calls happen after the
	// session lock is released.
	Listener interface {
		PreviewChanged(State)
		CapturesChanged([]core.CaptureRecord)
	}

	// Session owns the live zoom and filter state and the capture gallery.
	// All methods are safe for concurrent use; each runs as one atomic event.
	Session struct {
		// ThumbnailWidth is the gallery thumbnail width in pixels.
		ThumbnailWidth int
		// Now is the capture clock.
		Now func() time.Time

		mu         sync.Mutex
		zoom       *core.ZoomController
		filter     *core.FilterState
		pinch      *core.PinchTracker
		taps       core.TapDetector
		compositor *compositor.Compositor
		encoder    core.ImageEncoder
		store      *gallery.Store
		source     core.VideoSource
		lastID     int64
		dirty      bool
		listener   Listener
	}
)

// New creates a session at zoom 1 and default brightness over an already
// initialised gallery.
func New(store *gallery.Store, source core.VideoSource, encoder core.ImageEncoder) *Session {
	s := &Session{
		ThumbnailWidth: compositor.DefaultThumbnailWidth,
		Now:            time.Now,
		zoom:           core.NewZoomController(core.DefaultZoomLevels...),
		filter:         core.NewFilterState(),
		compositor:     compositor.New(),
		encoder:        encoder,
		store:          store,
		source:         source,
	}
	s.pinch = core.NewPinchTracker(s.zoom)
	s.zoom.OnChange(func(core.ZoomState) { s.dirty = true })
	s.filter.OnChange(func(core.FilterState) { s.dirty = true })

	for _, rec := range store.Records() {
		s.lastID = max(s.lastID, rec.ID)
	}
	return s
}

// SetListener registers the display layer.
func (s *Session) SetListener(l Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

// State returns the current preview state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Zoom returns the current zoom state.
func (s *Session) Zoom() core.ZoomState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom.State()
}

// Filter returns the current filter state.
func (s *Session) Filter() core.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.State()
}

func (s *Session) SetZoom(level float64) State {
	return s.control(func() { s.zoom.SetZoom(level) })
}

func (s *Session) StepNext() State {
	return s.control(s.zoom.StepNext)
}

func (s *Session) StepPrevious() State {
	return s.control(s.zoom.StepPrevious)
}

func (s *Session) ApplyPinch(initialDistance, currentDistance, baseZoom float64) State {
	return s.control(func() { s.zoom.ApplyPinch(initialDistance, currentDistance, baseZoom) })
}

func (s *Session) ToggleDoubleTap() State {
	return s.control(s.zoom.ToggleDoubleTap)
}

func (s *Session) ResetZoom() State {
	return s.control(s.zoom.Reset)
}

func (s *Session) AdjustBrightness(delta float64) State {
	return s.control(func() { s.filter.AdjustBrightness(delta) })
}

// PinchStart begins a two-finger gesture.
func (s *Session) PinchStart(a, b core.Point) {
	s.mu.Lock()
	s.pinch.Start(a, b)
	s.mu.Unlock()
}

// PinchMove updates the zoom from the current finger positions.
func (s *Session) PinchMove(a, b core.Point) State {
	return s.control(func() { s.pinch.Move(a, b) })
}

// PinchEnd finishes the gesture.
func (s *Session) PinchEnd() {
	s.mu.Lock()
	s.pinch.End()
	s.mu.Unlock()
}

// Tap feeds a single tap; the second tap of a double tap toggles the zoom.
func (s *Session) Tap(at time.Time) State {
	return s.control(func() {
		if s.taps.Tap(at) {
			s.zoom.ToggleDoubleTap()
		}
	})
}

// CapturePhoto composes frame with the given zoom and filter, encodes the
// full image and a thumbnail and appends the record to the gallery. Compose
// errors (core.ErrNotReady) are returned as is. A failed gallery sync is
// logged; the record is still returned.
func (s *Session) CapturePhoto(ctx context.Context, frame core.SourceFrame, zoom core.ZoomState, filter core.FilterState) (core.CaptureRecord, error) {
	s.mu.Lock()
	rec, err := s.captureLocked(ctx, frame, zoom, filter)
	var records []core.CaptureRecord
	if err == nil {
		records = s.store.Records()
	}
	l := s.listener
	s.mu.Unlock()

	if err == nil && l != nil {
		l.CapturesChanged(records)
	}
	return rec, err
}

// Snap captures the current source frame with the live zoom and filter.
func (s *Session) Snap(ctx context.Context) (core.CaptureRecord, error) {
	s.mu.Lock()
	frame, err := s.source.CurrentFrame()
	zoom, filter := s.zoom.State(), s.filter.State()
	s.mu.Unlock()
	if err != nil {
		return core.CaptureRecord{}, fmt.Errorf("read current frame: %w", err)
	}
	return s.CapturePhoto(ctx, frame, zoom, filter)
}

// Records returns the gallery snapshot, newest last.
func (s *Session) Records() []core.CaptureRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Records()
}

// Record returns the capture at index.
func (s *Session) Record(index int) (core.CaptureRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.At(index)
}

// DeleteAt removes the capture at index. Only core.ErrIndexOutOfRange is
// reported; sync failures are logged.
func (s *Session) DeleteAt(ctx context.Context, index int) error {
	return s.mutateGallery(func() error { return s.store.DeleteAt(ctx, index) })
}

// Clear removes every capture.
func (s *Session) Clear(ctx context.Context) error {
	return s.mutateGallery(func() error { return s.store.Clear(ctx) })
}

func (s *Session) captureLocked(ctx context.Context, frame core.SourceFrame, zoom core.ZoomState, filter core.FilterState) (core.CaptureRecord, error) {
	composite, err := s.compositor.Compose(frame, zoom, filter)
	if err != nil {
		logrus.WithError(err).Warn("Capture skipped")
		return core.CaptureRecord{}, err
	}

	full, err := s.encoder.Encode(composite, core.FormatJPEG, FullQuality)
	if err != nil {
		return core.CaptureRecord{}, fmt.Errorf("encode full image: %w", err)
	}
	thumb, err := s.encoder.Encode(s.compositor.Thumbnail(composite, s.ThumbnailWidth), core.FormatJPEG, ThumbnailQuality)
	if err != nil {
		return core.CaptureRecord{}, fmt.Errorf("encode thumbnail: %w", err)
	}

	now := s.Now()
	rec := core.CaptureRecord{
		ID:        s.nextID(now),
		Timestamp: now.Format(TimestampLayout),
		FullImage: full,
		Thumbnail: thumb,
	}

	if err := s.store.Append(ctx, rec); err != nil {
		if !errors.Is(err, core.ErrPersistence) {
			return core.CaptureRecord{}, err
		}
		logrus.WithError(err).WithField("capture_id", rec.ID).Warn("Capture kept in memory only")
	}

	logrus.WithFields(logrus.Fields{
		"capture_id": rec.ID,
		"zoom":       zoom.Factor,
		"filter":     filter.StyleDescriptor(),
		"bytes":      len(full),
	}).Info("Photo captured")
	return rec, nil
}

// nextID derives a millisecond id from now, bumped past the last issued id so
// ids stay unique when two captures share a millisecond or the clock steps
// back.
func (s *Session) nextID(now time.Time) int64 {
	id := int64(ulid.Timestamp(now))
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *Session) control(fn func()) State {
	s.mu.Lock()
	s.dirty = false
	fn()
	st := s.stateLocked()
	changed, l := s.dirty, s.listener
	s.mu.Unlock()

	if changed && l != nil {
		l.PreviewChanged(st)
	}
	return st
}

func (s *Session) mutateGallery(fn func() error) error {
	s.mu.Lock()
	err := fn()
	if errors.Is(err, core.ErrPersistence) {
		logrus.WithError(err).Warn("Gallery change kept in memory only")
		err = nil
	}
	records := s.store.Records()
	l := s.listener
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if l != nil {
		l.CapturesChanged(records)
	}
	return nil
}

func (s *Session) stateLocked() State {
	zoom, filter := s.zoom.State(), s.filter.State()
	return State{
		Zoom:   zoom,
		Filter: filter,
		Style:  s.compositor.PreviewStyle(zoom, filter),
	}
}
