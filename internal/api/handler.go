// internal/api/handler.go
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mediatheque/internal/lifecycle"
	"mediatheque/internal/recordid"
)

type Handler struct {
	service lifecycle.Service
	logger  *slog.Logger
}

func NewHandler(service lifecycle.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts every resource route on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleIndex)

	h.mount(r, "/subscribers", lifecycle.KindSubscriber)
	h.mount(r, "/documents", lifecycle.KindDocument)
	h.mount(r, "/loans", lifecycle.KindLoan)

	// paths used by the existing frontend
	h.mount(r, "/abonnés", lifecycle.KindSubscriber)
	h.mount(r, "/emprunts", lifecycle.KindLoan)

	r.Get("/delete_today", h.HandleDeleteToday)
	r.Delete("/delete_today", h.HandleDeleteToday)
}

func (h *Handler) mount(r chi.Router, prefix string, kind lifecycle.Kind) {
	r.Route(prefix, func(r chi.Router) {
		r.Get("/", h.handleList(kind))
		r.Post("/", h.handleCreate(kind))
		r.Get("/{id}", h.handleGet(kind))
		r.Put("/{id}", h.handleUpdate(kind))
		r.Delete("/{id}", h.handleDelete(kind))
		r.Get("/{id}/history", h.handleHistory(kind))
	})
}

func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Mediatheque API is running"})
}

func (h *Handler) handleList(kind lifecycle.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := h.service.List(r.Context(), kind)
		if err != nil {
			h.writeServiceError(w, r, kind, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func (h *Handler) handleCreate(kind lifecycle.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := decodeObject(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		created, err := h.service.Create(r.Context(), kind, payload)
		if err != nil {
			h.writeServiceError(w, r, kind, err)
			return
		}
		writeJSON(w, http.StatusCreated, messageResponse{
			Message: noun(kind) + " created",
			Data:    created,
		})
	}
}

func (h *Handler) handleGet(kind lifecycle.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := h.service.Get(r.Context(), kind, chi.URLParam(r, "id"))
		if err != nil {
			h.writeServiceError(w, r, kind, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (h *Handler) handleUpdate(kind lifecycle.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := recordid.Parse(id); err != nil {
			h.writeServiceError(w, r, kind, err)
			return
		}
		payload, err := decodeObject(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := h.service.Update(r.Context(), kind, id, payload); err != nil {
			h.writeServiceError(w, r, kind, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: noun(kind) + " updated"})
	}
}

func (h *Handler) handleDelete(kind lifecycle.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.Delete(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
			h.writeServiceError(w, r, kind, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: noun(kind) + " deleted"})
	}
}

func (h *Handler) handleHistory(kind lifecycle.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := h.service.History(r.Context(), kind, chi.URLParam(r, "id"))
		if err != nil {
			h.writeServiceError(w, r, kind, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// HandleDeleteToday runs the return-date cleanup. An empty run answers 404 with
// a zero count; a store failure answers 500 with the underlying message.
func (h *Handler) HandleDeleteToday(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.DeleteExpiredToday(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "expired loan cleanup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to delete expired loans.",
			Details: err.Error(),
		})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, expiryResponse{
			Message:      "No loan found with today's return date.",
			DeletedCount: 0,
		})
		return
	}
	writeJSON(w, http.StatusOK, expiryResponse{
		Message:      fmt.Sprintf("%d loans deleted", n),
		DeletedCount: n,
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, kind lifecycle.Kind, err error) {
	var missing *lifecycle.MissingFieldError
	var invalid *lifecycle.InvalidFieldError

	switch {
	case errors.Is(err, recordid.ErrInvalidFormat):
		writeError(w, http.StatusBadRequest, "Invalid ID format")
	case errors.As(err, &missing):
		writeError(w, http.StatusBadRequest, "Missing required field: "+missing.Field)
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid field %s: %s", invalid.Field, invalid.Reason))
	case errors.Is(err, lifecycle.ErrNoValidFields):
		writeError(w, http.StatusBadRequest, "No valid fields to update")
	case errors.Is(err, lifecycle.ErrNotFound):
		writeError(w, http.StatusNotFound, noun(kind)+" not found")
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "kind", kind, "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func noun(kind lifecycle.Kind) string {
	p, err := lifecycle.PolicyFor(kind)
	if err != nil {
		return "Record"
	}
	return p.Noun
}
