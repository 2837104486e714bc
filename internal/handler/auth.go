package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"postify/internal/httputil"
	"postify/internal/lib/sl"
	"postify/internal/model"
	"postify/internal/transport/http/middleware"
	"postify/internal/username"
)

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	userService  UserService
	authService  AuthService
	secureCookie bool
	log          *slog.Logger
}

// NewAuthHandler wires dependencies for authentication endpoints.
// secureCookie marks the access token cookie Secure outside local runs.
func NewAuthHandler(userService UserService, authService AuthService, secureCookie bool, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		authService:  authService,
		secureCookie: secureCookie,
		log:          log.With(slog.String("component", "auth_handler")),
	}
}

// Register creates an account and signs it in.
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, httputil.MsgInvalidBody)
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrValidation):
			httputil.WriteValidationError(w, err)
		case errors.Is(err, model.ErrUsernameExists):
			httputil.WriteValidationError(w, model.NewValidationError(username.ReasonTaken))
		case errors.Is(err, model.ErrEmailExists):
			httputil.WriteBadRequest(w, "Email is already registered")
		default:
			h.log.Error("register failed", sl.Err(err))
			httputil.WriteInternalError(w)
		}
		return
	}

	h.log.Info("user registered", slog.Int64("user_id", user.ID))
	h.writeSession(w, r, http.StatusCreated, user)
}

// Login handles user login
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, httputil.MsgInvalidBody)
		return
	}

	if req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "Email and password are required")
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "Invalid email or password")
			return
		}
		h.log.Error("login failed", sl.Err(err))
		httputil.WriteInternalError(w)
		return
	}

	h.writeSession(w, r, http.StatusOK, user)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	tokenPair, err := h.authService.GenerateTokenPair(r.Context(), user.ID, r.Header.Get("User-Agent"), middleware.ClientIP(r))
	if err != nil {
		h.log.Error("failed to generate tokens", slog.Int64("user_id", user.ID), sl.Err(err))
		httputil.WriteInternalError(w)
		return
	}

	h.setAccessCookie(w, tokenPair.AccessToken, tokenPair.ExpiresIn)
	httputil.WriteJSON(w, status, model.LoginResponse{
		User:         user,
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	})
}

// Me returns the currently authenticated user
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, httputil.MsgUnauthorized)
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		h.log.Error("failed to get user", slog.Int64("user_id", userID), sl.Err(err))
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]*model.User{"user": user})
}

// Refresh handles token refresh
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, httputil.MsgInvalidBody)
		return
	}

	if req.RefreshToken == "" {
		httputil.WriteBadRequest(w, "Refresh token is required")
		return
	}

	tokenPair, userID, err := h.authService.RefreshTokens(r.Context(), req.RefreshToken, r.Header.Get("User-Agent"), middleware.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRefreshTokenNotFound):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid refresh token")
		case errors.Is(err, model.ErrRefreshTokenExpired):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Refresh token has expired")
		case errors.Is(err, model.ErrRefreshTokenReused):
			h.log.Warn("refresh token reuse detected", slog.String("ip", middleware.ClientIP(r)))
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenReused, "Refresh token reuse detected. Please login again.")
		default:
			h.log.Error("failed to refresh tokens", sl.Err(err))
			httputil.WriteInternalError(w)
		}
		return
	}

	h.log.Debug("tokens refreshed", slog.Int64("user_id", userID))
	h.setAccessCookie(w, tokenPair.AccessToken, tokenPair.ExpiresIn)
	httputil.WriteJSON(w, http.StatusOK, tokenPair)
}

// Logout revokes one refresh token. Unknown tokens still log out.
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, httputil.MsgInvalidBody)
		return
	}

	if req.RefreshToken == "" {
		httputil.WriteBadRequest(w, "Refresh token is required")
		return
	}

	if err := h.authService.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		h.log.Error("failed to logout", sl.Err(err))
		httputil.WriteInternalError(w)
		return
	}

	h.clearAccessCookie(w)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// LogoutAll handles logout from all devices
// POST /auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, httputil.MsgUnauthorized)
		return
	}

	if err := h.authService.RevokeAllUserTokens(r.Context(), userID); err != nil {
		h.log.Error("failed to logout from all devices", slog.Int64("user_id", userID), sl.Err(err))
		httputil.WriteInternalError(w)
		return
	}

	h.clearAccessCookie(w)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out from all devices",
	})
}

func (h *AuthHandler) setAccessCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  time.Now().Add(time.Duration(maxAge) * time.Second),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearAccessCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
