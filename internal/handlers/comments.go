package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/AnshRaj112/plant-journal-backend/internal/repository"
)

type AddCommentRequest struct {
	Text string `json:"text" validate:"notblank"`
}

var commentMessages = map[string]string{
	"text": repository.MsgCommentRequired,
}

// AddComment appends a visitor comment. No authentication required.
func (h *PlantHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req AddCommentRequest
	// An empty body decodes as {}.
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	if err := validateRequest(req, commentMessages); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	plant, err := h.plants.AddComment(ctx, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plant)
}

// DeleteComment removes a comment by id and returns the updated entry.
func (h *PlantHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	plant, err := h.plants.RemoveComment(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "commentId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plant)
}
