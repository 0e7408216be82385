package frames

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
	"github.com/webseed87/camera/core"
	"github.com/webseed87/camera/source"
)

// MaxFrameBytes bounds a pushed frame upload.
const MaxFrameBytes = 32 << 20

type (
	FrameInfo struct {
		Width  int  `json:"width"`
		Height int  `json:"height"`
		Ready  bool `json:"ready"`
	}

	// FrameSink accepts encoded frames from the capture page.
	FrameSink interface {
		PushEncoded(data []byte) error
	}
)

// HandlePushFrame replaces the live frame with the JPEG, PNG or WebP image in
// the request body.
func HandlePushFrame(sink FrameSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxFrameBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "Frame too large", http.StatusRequestEntityTooLarge)
				return
			}
			logrus.WithField("error", err).Error("Failed to read frame")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if err := sink.PushEncoded(body); err != nil {
			if errors.Is(err, source.ErrFrameTooLarge) {
				http.Error(w, "Frame too large", http.StatusRequestEntityTooLarge)
				return
			}
			logrus.WithField("error", err).Debug("Rejected frame")
			http.Error(w, "Unsupported image", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleGetFrame reports the intrinsic size of the current frame.
func HandleGetFrame(src core.VideoSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		width, height := src.IntrinsicSize()
		render.JSON(w, r, FrameInfo{
			Width:  width,
			Height: height,
			Ready:  width > 0 && height > 0,
		})
	}
}
