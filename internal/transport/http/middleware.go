package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"daily-quiz-service/internal/app"
	"daily-quiz-service/internal/domain"
)

type contextKey struct{}

var userContextKey contextKey

// CurrentUser returns the authenticated user injected by RequireAuth.
func CurrentUser(r *http.Request) (domain.User, bool) {
	user, ok := r.Context().Value(userContextKey).(domain.User)
	return user, ok
}

// RequireAuth verifies the access-token cookie, resolves the user, and makes
// it available to the wrapped handler. Any failure is a terminal 401.
func RequireAuth(auth *app.AuthService, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authTokenCookie)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "invalid auth token")
			return
		}

		user, err := auth.CurrentUser(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid auth token")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps domain errors onto the HTTP contract. Benign
// conflicts (duplicate answer) deliberately share the generic 400 with
// validation failures so callers cannot distinguish a race from a bad payload.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidNonce),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, "invalid signature")
	case errors.Is(err, domain.ErrInvalidAnswerPayload),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrAnswerExists):
		writeError(w, http.StatusBadRequest, "the answer could not be processed")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
