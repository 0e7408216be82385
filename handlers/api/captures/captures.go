package captures

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
	"github.com/webseed87/camera/core"
)

type (
	// CaptureSummary is one gallery strip entry. It carries the thumbnail only.
	CaptureSummary struct {
		Index     int    `json:"index"`
		ID        int64  `json:"id"`
		Timestamp string `json:"timestamp"`
		Thumbnail string `json:"thumbnail"`
	}

	// CaptureView is the full-size view of one capture.
	CaptureView struct {
		Index     int    `json:"index"`
		ID        int64  `json:"id"`
		Timestamp string `json:"timestamp"`
		Image     string `json:"image"`
		Thumbnail string `json:"thumbnail"`
	}

	ErrorResponse struct {
		Error string `json:"error"`
	}

	Gallery interface {
		Snap(ctx context.Context) (core.CaptureRecord, error)
		Records() []core.CaptureRecord
		Record(index int) (core.CaptureRecord, error)
		DeleteAt(ctx context.Context, index int) error
		Clear(ctx context.Context) error
	}
)

// Summaries maps records to gallery strip entries.
func Summaries(records []core.CaptureRecord) []CaptureSummary {
	out := make([]CaptureSummary, 0, len(records))
	for i, rec := range records {
		out = append(out, summary(i, rec))
	}
	return out
}

// HandleList lists the gallery, oldest first.
func HandleList(g Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, Summaries(g.Records()))
	}
}

// HandleCapture takes a photo of the current frame with the live zoom and
// filter.
func HandleCapture(g Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := g.Snap(r.Context())
		if err != nil {
			renderError(w, r, err)
			return
		}
		index := slices.IndexFunc(g.Records(), func(c core.CaptureRecord) bool { return c.ID == rec.ID })
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, summary(index, rec))
	}
}

// HandleGet returns the full-size capture at {index}.
func HandleGet(g Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, rec, ok := lookup(w, r, g)
		if !ok {
			return
		}
		render.JSON(w, r, CaptureView{
			Index:     index,
			ID:        rec.ID,
			Timestamp: rec.Timestamp,
			Image:     rec.FullImageDataURL(),
			Thumbnail: rec.ThumbnailDataURL(),
		})
	}
}

// HandleDownload serves the full image as an attachment named photo_<id>.
func HandleDownload(g Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, rec, ok := lookup(w, r, g)
		if !ok {
			return
		}
		format := core.SniffFormat(rec.FullImage)
		filename := fmt.Sprintf("photo_%d%s", rec.ID, format.Extension())

		w.Header().Set("Content-Type", string(format))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(rec.FullImage)))
		if _, err := w.Write(rec.FullImage); err != nil {
			logrus.WithField("error", err).Error("Failed to write capture")
		}
	}
}

// HandleDelete removes the capture at {index}.
func HandleDelete(g Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			http.Error(w, "Invalid capture index", http.StatusBadRequest)
			return
		}
		if err := g.DeleteAt(r.Context(), index); err != nil {
			renderError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleClear removes every capture.
func HandleClear(g Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := g.Clear(r.Context()); err != nil {
			renderError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func lookup(w http.ResponseWriter, r *http.Request, g Gallery) (int, core.CaptureRecord, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "Invalid capture index", http.StatusBadRequest)
		return 0, core.CaptureRecord{}, false
	}
	rec, err := g.Record(index)
	if err != nil {
		renderError(w, r, err)
		return 0, core.CaptureRecord{}, false
	}
	return index, rec, true
}

func summary(index int, rec core.CaptureRecord) CaptureSummary {
	return CaptureSummary{
		Index:     index,
		ID:        rec.ID,
		Timestamp: rec.Timestamp,
		Thumbnail: rec.ThumbnailDataURL(),
	}
}

// renderError maps session errors onto user-visible notices.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "Capture failed"
	switch {
	case errors.Is(err, core.ErrNotReady):
		status, msg = http.StatusConflict, "Camera is not ready yet, please try again"
	case errors.Is(err, core.ErrIndexOutOfRange):
		status, msg = http.StatusNotFound, "Capture not found"
	}

	log := logrus.WithField("error", err)
	if status == http.StatusInternalServerError {
		log.Error("Capture request failed")
	} else {
		log.Debug("Capture request rejected")
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg})
}
