package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
	"github.com/AnshRaj112/plant-journal-backend/internal/logging"
)

type stubVerifier map[string]error

func (s stubVerifier) Verify(token string) (string, error) {
	if err, ok := s[token]; ok {
		return "", err
	}
	if token == "" {
		return "", &apperrors.AuthError{Kind: apperrors.AuthMissing}
	}
	return "admin-" + token, nil
}

func TestRequireAdmin(t *testing.T) {
	verifier := stubVerifier{"old": &apperrors.AuthError{Kind: apperrors.AuthExpired}}
	var seen string
	h := RequireAdmin(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AdminID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		header string
		status int
		body   string
	}{
		{"", http.StatusUnauthorized, `{"message":"No token, authorization denied"}`},
		{"Token abc", http.StatusUnauthorized, `{"message":"No token, authorization denied"}`},
		{"Bearer old", http.StatusUnauthorized, `{"message":"Token has expired"}`},
		{"Bearer abc", http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/plants", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, tc.status, rec.Code, tc.header)
		if tc.body != "" {
			assert.JSONEq(t, tc.body, rec.Body.String())
		}
	}
	assert.Equal(t, "admin-abc", seen)
}

func TestRequestID(t *testing.T) {
	var fromCtx string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = logging.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, rec.Header().Get(RequestIDHeader), fromCtx)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "client-id", fromCtx)
}

func TestLoginRateLimit_OnlyLoginPath(t *testing.T) {
	h := LoginRateLimit("/api/admin/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 200, 429, 429}, codes)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/plants", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
