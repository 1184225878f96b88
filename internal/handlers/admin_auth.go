package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
	"github.com/AnshRaj112/plant-journal-backend/internal/auth"
)

// LoginPath is the admin sign-in route.
const LoginPath = "/api/admin/login"

// AdminLoginRequest represents the request to sign in as admin
type AdminLoginRequest struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

var loginMessages = map[string]string{
	"username": MsgLoginRequired,
	"password": MsgLoginRequired,
}

type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc}
}

// AdminLogin exchanges the admin credentials for a bearer token.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	if err := validateRequest(req, loginMessages); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	token, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		var aerr *apperrors.AuthError
		if errors.As(err, &aerr) {
			writeMessage(w, http.StatusUnauthorized, MsgInvalidCreds)
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}
