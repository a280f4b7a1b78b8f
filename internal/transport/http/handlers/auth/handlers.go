package authhandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"perfcycle/internal/domain/auth"
	"perfcycle/internal/transport/http/api"
	"perfcycle/internal/transport/http/middleware"
	"perfcycle/internal/transport/http/shared"
)

const DefaultTokenTTL = 8 * time.Hour

type CredentialStore interface {
	CredentialsByEmail(ctx context.Context, email string) (auth.Credentials, error)
}

type Handler struct {
	Store    CredentialStore
	Secret   string
	TokenTTL time.Duration
	Log      *zap.Logger
}

func NewHandler(store CredentialStore, secret string, ttl time.Duration, log *zap.Logger) *Handler {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Store: store, Secret: secret, TokenTTL: ttl, Log: log}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload loginRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, requestID) {
		return
	}

	creds, err := h.Store.CredentialsByEmail(r.Context(), payload.Email)
	if errors.Is(err, auth.ErrCredentialsNotFound) {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
		return
	}
	if err != nil {
		h.Log.Error("login lookup failed", zap.String("request_id", requestID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", requestID)
		return
	}

	if err := auth.CheckPassword(creds.PasswordHash, payload.Password); err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
		return
	}

	expiresAt := time.Now().Add(h.TokenTTL)
	token, err := auth.GenerateToken(h.Secret, auth.Claims{UserID: creds.UserID, RoleName: creds.Role}, h.TokenTTL)
	if err != nil {
		h.Log.Error("token signing failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", requestID)
		return
	}

	api.Success(w, map[string]any{
		"token":     token,
		"expiresAt": expiresAt.UTC(),
		"user":      map[string]string{"id": creds.UserID, "role": creds.Role},
	}, requestID)
}
