package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/parakeep/parakeep-server/internal/logger"
	"github.com/parakeep/parakeep-server/internal/model"
)

// AuthService defines registration, login and session operations.
type AuthService interface {
	Register(ctx context.Context, username, password string) (model.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, username string) int
	GetUser(ctx context.Context, username string) (model.User, error)
	TokenTTL() time.Duration
}

// Auth handles HTTP endpoints for authentication and user accounts.
type Auth struct {
	authService    AuthService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, contextManager model.ContextManager, logger *logger.Logger) *Auth {
	return &Auth{
		authService:    authService,
		contextManager: contextManager,
		logger:         logger,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type messageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type userResponse struct {
	Username string `json:"username"`
	Created  string `json:"created"`
}

// Login authenticates a username/password pair and issues a bearer token.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Info("Auth handler: login failed",
			"username", req.Username)
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: login completed",
		"username", req.Username)

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.authService.TokenTTL().Seconds()),
	})
}

// Logout revokes every session of the calling user.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	username, ok := h.contextManager.GetUsernameFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrInvalidToken)
		return
	}

	count := h.authService.Logout(r.Context(), username)

	writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Successfully logged out. %d sessions terminated.", count),
		Success: true,
	})
}

// Register creates a new user account.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Info("Auth handler: registration failed",
			"username", req.Username,
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: user registered",
		"username", user.Username)

	writeJSON(w, http.StatusCreated, messageResponse{
		Message: fmt.Sprintf("User %s registered successfully", user.Username),
		Success: true,
	})
}

// Me returns the calling user's account, without the password hash.
func (h *Auth) Me(w http.ResponseWriter, r *http.Request) {
	username, ok := h.contextManager.GetUsernameFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrInvalidToken)
		return
	}

	user, err := h.authService.GetUser(r.Context(), username)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		Username: user.Username,
		Created:  user.CreatedAt.Format(time.RFC3339),
	})
}
