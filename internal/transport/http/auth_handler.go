package http

import (
	"encoding/json"
	"net/http"

	"daily-quiz-service/internal/app"
	"daily-quiz-service/internal/domain"
)

const (
	authTokenCookie    = "auth_token"
	refreshTokenCookie = "refresh_token"
)

// AuthHandler serves the wallet login flow: nonce, login, refresh, logout.
// Tokens travel only in httpOnly cookies; page scripts never see them.
type AuthHandler struct {
	auth   *app.AuthService
	tokens *app.TokenService
	secure bool
}

// NewAuthHandler builds the handler. secure marks cookies Secure and must be
// true whenever TLS is configured.
func NewAuthHandler(auth *app.AuthService, tokens *app.TokenService, secure bool) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, secure: secure}
}

type nonceResponse struct {
	Nonce string `json:"nonce"`
}

type loginRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
	Nonce         string `json:"nonce"`
}

type userResponse struct {
	User domain.User `json:"user"`
}

// Nonce handles GET /auth/nonce.
func (h *AuthHandler) Nonce(w http.ResponseWriter, r *http.Request) {
	nonce, err := h.auth.GenerateNonce(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, nonceResponse{Nonce: nonce})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, pair, err := h.auth.Login(r.Context(), req.WalletAddress, req.Signature, req.Nonce)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// Refresh handles POST /auth/refresh: verifies the refresh cookie and rotates
// both tokens.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, pair, err := h.auth.Refresh(r.Context(), cookie.Value)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// Logout handles POST /auth/logout. Tokens are stateless, so logout is just
// clearing the client's cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *AuthHandler) setTokenCookies(w http.ResponseWriter, pair app.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     authTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(h.tokens.AccessTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(h.tokens.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{authTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
