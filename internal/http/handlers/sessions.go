package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"headshot/internal/domain"
	"headshot/internal/headshot"
)

// maxUploadBytes caps the accepted photo size before the resizer bounds it.
const maxUploadBytes = 20 << 20

type sessionResponse struct {
	ID            string    `json:"id"`
	Phase         string    `json:"phase"`
	OriginalImage string    `json:"original_image,omitempty"`
	ResultImage   string    `json:"result_image,omitempty"`
	Error         string    `json:"error,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toSessionResponse(snap domain.Snapshot) sessionResponse {
	return sessionResponse{
		ID:            snap.ID,
		Phase:         string(snap.Phase),
		OriginalImage: snap.Original.DataURI(),
		ResultImage:   snap.Result.DataURI(),
		Error:         snap.Error,
		UpdatedAt:     snap.UpdatedAt,
	}
}

// SessionCreate starts a fresh idle session.
func (a *App) SessionCreate(w http.ResponseWriter, r *http.Request) {
	sess := a.Sessions.Create()
	a.json(w, http.StatusCreated, toSessionResponse(sess.Snapshot()))
}

// SessionState returns the current snapshot for the presentation layer.
func (a *App) SessionState(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, toSessionResponse(sess.Snapshot()))
}

type uploadRequest struct {
	DataURI string `json:"data_uri"`
}

// SessionUpload loads a user-selected photo into the session, resetting any
// previous result and error. It accepts either a multipart "image" file or a
// JSON body carrying a base64 data URI.
func (a *App) SessionUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}

	img, err := a.readUpload(w, r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "unreadable_file", err.Error())
		return
	}

	if err := sess.SelectImage(img); err != nil {
		if errors.Is(err, domain.ErrGenerateInFlight) {
			a.error(w, http.StatusConflict, "generation_in_flight", "wait for the current generation to finish")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	a.json(w, http.StatusOK, toSessionResponse(sess.Snapshot()))
}

func (a *App) readUpload(w http.ResponseWriter, r *http.Request) (*domain.EncodedImage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req uploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return domain.ParseDataURI(req.DataURI)
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return domain.LoadEncodedImage(file)
}

// SessionGenerate runs one generation attempt synchronously; the response is
// the terminal snapshot. A generate while one is already in flight is a
// no-op returning the current state. Pipeline failures are session state
// (phase=failed), not protocol errors.
func (a *App) SessionGenerate(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}

	snap, err := a.Pipeline.Generate(r.Context(), sess)
	if err != nil {
		if errors.Is(err, domain.ErrNoSourceImage) {
			a.error(w, http.StatusConflict, "no_source_image", "select a photo before generating")
			return
		}
		// Already in flight: report the live state unchanged.
		a.json(w, http.StatusOK, toSessionResponse(snap))
		return
	}
	a.json(w, http.StatusOK, toSessionResponse(snap))
}

// SessionDownload streams the result as a file attachment. The file name is
// derived from the result's MIME type. Without a result the download is a
// no-op (204).
func (a *App) SessionDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}

	result, err := sess.Result()
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	name := headshot.ExportFileName(result.MIME)
	w.Header().Set("Content-Type", result.MIME)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (a *App) session(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	id := chi.URLParam(r, "session_id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "session_id required")
		return nil, false
	}
	sess, err := a.Sessions.Get(id)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "session not found")
		return nil, false
	}
	return sess, true
}
