package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"school_reviews/internal/adapters/carousel"
	"school_reviews/internal/app"
	"school_reviews/internal/domain"
)

// maxImportBytes caps an uploaded export document.
const maxImportBytes = 10 << 20

type Handlers struct {
	WF       *app.Workflow
	Carousel *carousel.Carousel
	// Limiter throttles public submissions; nil disables throttling.
	Limiter *rate.Limiter
}

type problem struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		if s.cors != nil {
			r.Use(s.cors)
			// preflight requests end inside the cors middleware
			r.Options("/v1/reviews", noContent)
			r.Options("/v1/carousel", noContent)
		}
		r.Get("/v1/reviews", h.listApproved)
		r.Post("/v1/reviews", h.submit)
		r.Get("/v1/carousel", h.deck)
	})

	s.mux.Route("/v1/admin", func(r chi.Router) {
		r.Get("/reviews", h.stats)
		r.Delete("/reviews", h.clear)
		r.Get("/reviews/{id}", h.getReview)
		r.Post("/reviews/{id}/approve", h.approve)
		r.Post("/reviews/{id}/reject", h.reject)
		r.Get("/export", h.export)
		r.Post("/import", h.importDoc)
	})
}

func noContent(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemFields(w, status, title, detail, nil)
}

func writeProblemFields(w http.ResponseWriter, status int, title, detail string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	p := problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Errors: fields}
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps workflow errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeProblemFields(w, http.StatusUnprocessableEntity, "Invalid review", "please correct the highlighted fields", verr.Fields)
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid review", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "review not found")
	case errors.Is(err, domain.ErrStorage):
		writeProblem(w, http.StatusServiceUnavailable, "Storage unavailable", "review not persisted, please try again")
	default:
		log.Error().Err(err).Msg("unexpected handler error")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func (h *Handlers) listApproved(w http.ResponseWriter, r *http.Request) {
	out, err := h.WF.ListApproved(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	etag, body := calcETagAndBody(out)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listApproved body")
	}
}

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request) {
	if h.Limiter != nil && !h.Limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "please wait a moment and submit again")
		return
	}
	in, err := decodeSubmit(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	rv, err := h.WF.Submit(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Thank you! Your review has been submitted for approval.",
		"review":  rv,
	})
}

// decodeSubmit accepts the form either as JSON or as a classic form post.
func decodeSubmit(r *http.Request) (app.SubmitInput, error) {
	var in app.SubmitInput
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		dec := json.NewDecoder(io.LimitReader(r.Body, 64<<10))
		if err := dec.Decode(&in); err != nil {
			return in, errors.New("body must be a JSON object")
		}
		return in, nil
	}
	if err := r.ParseForm(); err != nil {
		return in, errors.New("unreadable form body")
	}
	in.FullName = r.PostForm.Get("fullName")
	in.Email = r.PostForm.Get("email")
	in.Relationship = r.PostForm.Get("relationship")
	in.Review = r.PostForm.Get("review")
	return in, nil
}

type carouselResponse struct {
	Slides []carousel.Slide `json:"slides"`
	Active int              `json:"active"`
}

func (h *Handlers) deck(w http.ResponseWriter, r *http.Request) {
	at, step := 0, 0
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"at", &at}, {"step", &step}} {
		if s := q.Get(p.name); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid "+p.name, p.name+" must be an integer")
				return
			}
			*p.dst = n
		}
	}
	slides, active := h.Carousel.Deck(at, step)
	writeJSON(w, http.StatusOK, carouselResponse{Slides: slides, Active: active})
}

func (h *Handlers) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.WF.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func reviewID(r *http.Request) domain.ReviewID {
	return domain.ReviewID(strings.TrimSpace(chi.URLParam(r, "id")))
}

func (h *Handlers) getReview(w http.ResponseWriter, r *http.Request) {
	rv, err := h.WF.GetByID(r.Context(), reviewID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *Handlers) approve(w http.ResponseWriter, r *http.Request) {
	rv, err := h.WF.Approve(r.Context(), reviewID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *Handlers) reject(w http.ResponseWriter, r *http.Request) {
	rv, err := h.WF.Reject(r.Context(), reviewID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *Handlers) export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.WF.Export(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("marshal export failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": app.ExportFilename(doc.ExportDate)}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write export body")
	}
}

func (h *Handlers) importDoc(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "export document is too large")
		return
	}
	st, err := h.WF.Import(r.Context(), raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) clear(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "yes" {
		writeProblem(w, http.StatusBadRequest, "Confirmation required", "pass confirm=yes to delete all review data")
		return
	}
	if err := h.WF.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
