package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/aryaraj132/yt-downloader/api/dto"
	"github.com/aryaraj132/yt-downloader/api/middleware"
	"github.com/aryaraj132/yt-downloader/api/models"
	"github.com/aryaraj132/yt-downloader/api/repository"
	"github.com/aryaraj132/yt-downloader/api/service"
	"github.com/aryaraj132/yt-downloader/api/token"
)

type Authenticator interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*dto.LoginResponse, error)
	Logout(ctx context.Context, rawToken string, identity *token.Identity) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	PublicToken(ctx context.Context, userID string) (string, error)
}

type AuthHandler struct {
	service Authenticator
	logger  *zap.Logger
}

func NewAuthHandler(service Authenticator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid request body", err, traceID, http.StatusBadRequest)
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleAuthError(w, err, traceID)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]string{"user_id": user.ID})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid request body", err, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleAuthError(w, err, traceID)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	identity := h.requirePrivate(w, r, traceID)
	if identity == nil {
		return
	}

	if err := h.service.Logout(r.Context(), middleware.GetRawToken(r.Context()), identity); err != nil {
		h.respondError(w, "Internal server error", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	identity := h.requirePrivate(w, r, traceID)
	if identity == nil {
		return
	}

	var req dto.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid request body", err, traceID, http.StatusBadRequest)
		return
	}

	if err := h.service.ChangePassword(r.Context(), identity.Owner, req.OldPassword, req.NewPassword); err != nil {
		h.handleAuthError(w, err, traceID)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}

func (h *AuthHandler) PublicToken(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	identity := h.requirePrivate(w, r, traceID)
	if identity == nil {
		return
	}

	signed, err := h.service.PublicToken(r.Context(), identity.Owner)
	if err != nil {
		h.respondError(w, "Internal server error", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.PublicTokenResponse{Token: signed})
}

// requirePrivate rejects the request unless the caller presented a live
// private token. Writes the 401 itself and returns nil on rejection.
func (h *AuthHandler) requirePrivate(w http.ResponseWriter, r *http.Request, traceID string) *token.Identity {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil || identity.Kind != token.KindPrivate {
		h.respondError(w, "Invalid or expired token", token.ErrUnauthorized, traceID, http.StatusUnauthorized)
		return nil
	}
	return identity
}

func (h *AuthHandler) handleAuthError(w http.ResponseWriter, err error, traceID string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		h.respondError(w, "Invalid email or password", err, traceID, http.StatusUnauthorized)
	case errors.Is(err, service.ErrWeakPassword), errors.Is(err, service.ErrInvalidEmail):
		h.respondError(w, err.Error(), err, traceID, http.StatusBadRequest)
	case errors.Is(err, repository.ErrUserExists):
		h.respondError(w, "Email already registered", err, traceID, http.StatusConflict)
	default:
		h.respondError(w, "Internal server error", err, traceID, http.StatusInternalServerError)
	}
}

func (h *AuthHandler) respondError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.String("trace_id", traceID), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *AuthHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
