package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/api/middleware"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// LoginLimiter tracks failed logins per email.
type LoginLimiter interface {
	Locked(key string) bool
	// Fail records a failure and reports whether the key is now locked.
	Fail(key string) bool
	Reset(key string)
}

// TokenRevoker invalidates access tokens before they expire.
type TokenRevoker interface {
	Revoke(jti string, expiresAt time.Time)
}

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	userService      service.UserService
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	limiter          LoginLimiter
	revoker          TokenRevoker
	timeFunc         func() time.Time
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	userService service.UserService,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
	limiter LoginLimiter,
	revoker TokenRevoker,
) *AuthHandler {
	return &AuthHandler{
		userService:      userService,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		limiter:          limiter,
		revoker:          revoker,
		timeFunc:         time.Now,
	}
}

// Register handles the /auth/register endpoint.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.CreateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	resp, err := h.issueTokens(r, user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, resp)
}

// Login handles the /auth/login endpoint. Repeated failures for one email
// lock it out for a while.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	key := strings.ToLower(strings.TrimSpace(req.Email))

	if h.limiter != nil && h.limiter.Locked(key) {
		log.Warn("login rejected: account locked", "email", key)
		shared.RespondWithError(w, r, http.StatusTooManyRequests, "Too many failed login attempts")
		return
	}

	user, err := h.userService.GetUserByEmail(r.Context(), key)
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	hash := ""
	if user != nil {
		hash = user.HashedPassword
	}
	// Unknown emails still pay for a hash comparison.
	if err := h.passwordVerifier.Compare(hash, req.Password); err != nil || user == nil {
		if h.limiter != nil && h.limiter.Fail(key) {
			log.Warn("login failures reached lockout threshold", "email", key)
		}
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if h.limiter != nil {
		h.limiter.Reset(key)
	}

	resp, err := h.issueTokens(r, user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// RefreshToken handles the /auth/refresh endpoint.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp, err := h.issueTokens(r, claims.UserID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Logout revokes the access token the request was authenticated with.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
		return
	}
	if h.revoker != nil && claims.ID != "" {
		h.revoker.Revoke(claims.ID, claims.ExpiresAt)
	}
	logger.FromContextOrDefault(r.Context(), slog.Default()).
		Info("user logged out", "user_id", claims.UserID)
	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

func (h *AuthHandler) issueTokens(r *http.Request, userID uuid.UUID) (AuthResponse, error) {
	access, err := h.jwtService.GenerateToken(r.Context(), userID)
	if err != nil {
		return AuthResponse{}, err
	}
	refresh, err := h.jwtService.GenerateRefreshToken(r.Context(), userID)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{
		UserID:       userID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    h.timeFunc().Add(h.jwtService.AccessTokenLifetime()).UTC().Format(time.RFC3339),
	}, nil
}
