package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/handler/dto"
	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/middleware"
	"github.com/spendlog/spendlog/internal/service"
)

// AuthHandler handles signup, login and the caller's own session.
type AuthHandler struct {
	users   *service.UserService
	tokens  *auth.TokenService
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users *service.UserService, tokens *auth.TokenService, recorder metrics.Recorder, logger *slog.Logger) *AuthHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthHandler{
		users:   users,
		tokens:  tokens,
		metrics: recorder,
		logger:  logger,
	}
}

// Signup handles POST /signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := service.ValidateSignup(req.Username, req.Password, req.PasswordConfirmation); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("user_registered", "user_id", user.ID)
	h.writeSession(w, r, http.StatusCreated, user.ID, user.Username)
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeSession(w, r, http.StatusOK, user.ID, user.Username)
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())

	user, err := h.users.GetUser(r.Context(), identity.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Logout handles POST /logout. The presented token stays rejected until it
// would have expired anyway.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())

	if err := h.tokens.Revoke(r.Context(), identity.TokenID, identity.ExpiresAt); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.IncTokenRevoked()
	h.logger.Info("token_revoked", "user_id", identity.UserID, "token_id", identity.TokenID)
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "token revoked"})
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, userID int64, username string) {
	issued, err := h.tokens.Issue(userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, status, dto.AuthResponse{
		Token: issued.Token,
		User:  dto.UserResponse{ID: userID, Username: username},
	})
}

// handleServiceError maps service errors to HTTP responses.
func (h *AuthHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", err.Error())
	case errors.Is(err, service.ErrPasswordMismatch):
		writeError(w, http.StatusUnprocessableEntity, "PASSWORD_MISMATCH", err.Error())
	case errors.Is(err, service.ErrDuplicateUsername):
		writeError(w, http.StatusConflict, "USERNAME_TAKEN", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		writeNotFound(w)
	default:
		h.logger.Error("internal_error",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		writeInternalError(w)
	}
}
