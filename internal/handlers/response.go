package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
	"github.com/AnshRaj112/plant-journal-backend/internal/logging"
)

const (
	MsgServerError       = "Server error"
	MsgPlantNotFound     = "Plant not found"
	MsgCommentNotFound   = "Comment not found"
	MsgPlantRemoved      = "Plant removed"
	MsgUnsupportedFormat = "Only JPG, JPEG and PNG images are allowed"
	MsgImageTooLarge     = "Image is too large"
	MsgInvalidDate       = "Invalid date"
	MsgInvalidBody       = "Invalid request body"
	MsgInvalidCreds      = "Invalid credentials"
	MsgLoginRequired     = "Username and password are required"
	MsgUploadInProgress  = "Upload already in progress"
)

// MessageResponse is the body of every error and of plain acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageResponse{Message: msg})
}

// writeError maps a domain error to its status and client message. Details
// of unexpected errors are logged and never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *apperrors.ValidationError
		nerr *apperrors.NotFoundError
		aerr *apperrors.AuthError
		merr *apperrors.MediaError
	)
	switch {
	case errors.As(err, &verr):
		writeMessage(w, http.StatusBadRequest, verr.Message)
	case errors.As(err, &nerr):
		if nerr.Resource == apperrors.ResourceComment {
			writeMessage(w, http.StatusNotFound, MsgCommentNotFound)
			return
		}
		writeMessage(w, http.StatusNotFound, MsgPlantNotFound)
	case errors.As(err, &aerr):
		writeMessage(w, http.StatusUnauthorized, apperrors.AuthMessage(aerr.Kind))
	case errors.As(err, &merr) && merr.Kind == apperrors.MediaUnsupportedFormat:
		logging.Ctx(r.Context()).Info().Err(err).Msg("rejected image upload")
		writeMessage(w, http.StatusBadRequest, MsgUnsupportedFormat)
	case errors.Is(err, apperrors.ErrConflict):
		writeMessage(w, http.StatusConflict, MsgUploadInProgress)
	default:
		ev := logging.Ctx(r.Context()).Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path)
		if errors.Is(err, context.DeadlineExceeded) {
			ev = ev.Bool("timeout", true)
		}
		ev.Msg("request failed")
		writeMessage(w, http.StatusInternalServerError, MsgServerError)
	}
}
