package captures

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/webseed87/camera/core"
	"github.com/webseed87/camera/encoder"
	"github.com/webseed87/camera/gallery"
	"github.com/webseed87/camera/session"
	"github.com/webseed87/camera/source"
	"github.com/webseed87/camera/stores/memory"
)

func setupRouter(g Gallery) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/captures", func(r chi.Router) {
		r.Get("/", HandleList(g))
		r.Post("/", HandleCapture(g))
		r.Delete("/", HandleClear(g))
		r.Route("/{index}", func(r chi.Router) {
			r.Get("/", HandleGet(g))
			r.Get("/download", HandleDownload(g))
			r.Delete("/", HandleDelete(g))
		})
	})
	return r
}

func newTestSession(t *testing.T) (*session.Session, *source.Live) {
	t.Helper()
	live := source.NewLive()
	s := session.New(gallery.NewStore(memory.NewStore()), live, encoder.New())
	return s, live
}

func pushFrame(live *source.Live) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	live.Push(img)
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleCapture_Success(t *testing.T) {
	s, live := newTestSession(t)
	pushFrame(live)
	r := setupRouter(s)

	w := serve(r, http.MethodPost, "/captures")
	if w.Code != http.StatusCreated {
		t.Fatalf("Status code mismatch: got %d, want %d, body %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var got CaptureSummary
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Index != 0 || got.ID == 0 {
		t.Errorf("Summary mismatch: got %+v", got)
	}
	if !strings.HasPrefix(got.Thumbnail, "data:image/jpeg;base64,") {
		t.Errorf("Thumbnail should be a JPEG data URL, got %.40q", got.Thumbnail)
	}
}

func TestHandleCapture_NotReady(t *testing.T) {
	s, _ := newTestSession(t)
	r := setupRouter(s)

	w := serve(r, http.MethodPost, "/captures")
	if w.Code != http.StatusConflict {
		t.Fatalf("Status code mismatch: got %d, want %d", w.Code, http.StatusConflict)
	}

	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error == "" {
		t.Error("Expected a user-visible error message")
	}
	if n := len(s.Records()); n != 0 {
		t.Errorf("No capture should be stored, got %d", n)
	}
}

func TestHandleList(t *testing.T) {
	s, live := newTestSession(t)
	pushFrame(live)
	r := setupRouter(s)

	w := serve(r, http.MethodGet, "/captures")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("Empty gallery should list as [], got %s", w.Body.String())
	}

	for i := 0; i < 2; i++ {
		serve(r, http.MethodPost, "/captures")
	}

	w = serve(r, http.MethodGet, "/captures")
	var got []CaptureSummary
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List length mismatch: got %d, want 2", len(got))
	}
	if got[0].Index != 0 || got[1].Index != 1 || got[0].ID >= got[1].ID {
		t.Errorf("List order mismatch: got %+v", got)
	}
}

func TestHandleGet(t *testing.T) {
	s, live := newTestSession(t)
	pushFrame(live)
	r := setupRouter(s)
	serve(r, http.MethodPost, "/captures")

	testCases := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"Found", "/captures/0", http.StatusOK},
		{"OutOfRange", "/captures/1", http.StatusNotFound},
		{"Negative", "/captures/-1", http.StatusNotFound},
		{"NotANumber", "/captures/abc", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, tc.path)
			if w.Code != tc.wantStatus {
				t.Fatalf("Status code mismatch: got %d, want %d", w.Code, tc.wantStatus)
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			var view CaptureView
			if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if !strings.HasPrefix(view.Image, "data:image/jpeg;base64,") {
				t.Errorf("Image should be a JPEG data URL, got %.40q", view.Image)
			}
		})
	}
}

func TestHandleDownload(t *testing.T) {
	s, live := newTestSession(t)
	pushFrame(live)
	r := setupRouter(s)
	serve(r, http.MethodPost, "/captures")
	rec, _ := s.Record(0)

	w := serve(r, http.MethodGet, "/captures/0/download")
	if w.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type mismatch: got %q", ct)
	}
	wantDisposition := `attachment; filename="photo_` + strconv.FormatInt(rec.ID, 10) + `.jpg"`
	if cd := w.Header().Get("Content-Disposition"); cd != wantDisposition {
		t.Errorf("Content-Disposition mismatch: got %q, want %q", cd, wantDisposition)
	}
	if w.Body.Len() != len(rec.FullImage) {
		t.Errorf("Body length mismatch: got %d, want %d", w.Body.Len(), len(rec.FullImage))
	}
}

func TestHandleDeleteAndClear(t *testing.T) {
	s, live := newTestSession(t)
	pushFrame(live)
	r := setupRouter(s)
	for i := 0; i < 3; i++ {
		serve(r, http.MethodPost, "/captures")
	}
	first, _ := s.Record(0)
	third, _ := s.Record(2)

	if w := serve(r, http.MethodDelete, "/captures/3"); w.Code != http.StatusNotFound {
		t.Errorf("Delete out of range status mismatch: got %d, want %d", w.Code, http.StatusNotFound)
	}
	if w := serve(r, http.MethodDelete, "/captures/x"); w.Code != http.StatusBadRequest {
		t.Errorf("Delete bad index status mismatch: got %d, want %d", w.Code, http.StatusBadRequest)
	}
	if w := serve(r, http.MethodDelete, "/captures/1"); w.Code != http.StatusNoContent {
		t.Fatalf("Delete status mismatch: got %d, want %d", w.Code, http.StatusNoContent)
	}

	records := s.Records()
	if len(records) != 2 || records[0].ID != first.ID || records[1].ID != third.ID {
		t.Errorf("Records after delete mismatch: got %d records", len(records))
	}

	if w := serve(r, http.MethodDelete, "/captures"); w.Code != http.StatusNoContent {
		t.Fatalf("Clear status mismatch: got %d, want %d", w.Code, http.StatusNoContent)
	}
	if n := len(s.Records()); n != 0 {
		t.Errorf("Clear left %d records", n)
	}
}

type failingGallery struct {
	Gallery
}

func (failingGallery) Snap(context.Context) (core.CaptureRecord, error) {
	return core.CaptureRecord{}, errors.New("encoder exploded")
}

func TestHandleCapture_InternalError(t *testing.T) {
	w := serve(setupRouter(failingGallery{}), http.MethodPost, "/captures")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code mismatch: got %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
