package controls

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
	"github.com/webseed87/camera/session"
)

type (
	SetZoomRequest struct {
		Factor *float64 `json:"factor"`
	}

	PinchRequest struct {
		InitialDistance float64 `json:"initialDistance"`
		CurrentDistance float64 `json:"currentDistance"`
		BaseZoom        float64 `json:"baseZoom"`
	}

	BrightnessRequest struct {
		Delta *float64 `json:"delta"`
	}

	// Controls is the live zoom and filter surface of a capture session.
	Controls interface {
		State() session.State
		SetZoom(level float64) session.State
		StepNext() session.State
		StepPrevious() session.State
		ApplyPinch(initialDistance, currentDistance, baseZoom float64) session.State
		ToggleDoubleTap() session.State
		ResetZoom() session.State
		AdjustBrightness(delta float64) session.State
	}
)

// HandleGetState returns the zoom and filter state with the preview style.
func HandleGetState(c Controls) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, c.State())
	}
}

// HandleSetZoom sets the zoom factor. Out-of-range values are clamped.
func HandleSetZoom(c Controls) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetZoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Factor == nil || !finite(*req.Factor) {
			logrus.WithField("error", err).Debug("Invalid zoom request")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		render.JSON(w, r, c.SetZoom(*req.Factor))
	}
}

// HandleStep moves one zoom level up (forward) or down.
func HandleStep(c Controls, forward bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if forward {
			render.JSON(w, r, c.StepNext())
			return
		}
		render.JSON(w, r, c.StepPrevious())
	}
}

// HandlePinch applies one pinch update.
func HandlePinch(c Controls) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PinchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithField("error", err).Debug("Invalid pinch request")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.InitialDistance <= 0 || !finite(req.CurrentDistance) || !finite(req.BaseZoom) {
			http.Error(w, "initialDistance must be positive", http.StatusBadRequest)
			return
		}
		render.JSON(w, r, c.ApplyPinch(req.InitialDistance, req.CurrentDistance, req.BaseZoom))
	}
}

func HandleDoubleTap(c Controls) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, c.ToggleDoubleTap())
	}
}

func HandleResetZoom(c Controls) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, c.ResetZoom())
	}
}

// HandleAdjustBrightness adds delta to the brightness. The result is clamped.
func HandleAdjustBrightness(c Controls) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BrightnessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Delta == nil || !finite(*req.Delta) {
			logrus.WithField("error", err).Debug("Invalid brightness request")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		render.JSON(w, r, c.AdjustBrightness(*req.Delta))
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
