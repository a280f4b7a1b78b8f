package usershandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"perfcycle/internal/domain/audit"
	"perfcycle/internal/domain/auth"
	"perfcycle/internal/domain/users"
	"perfcycle/internal/transport/http/api"
	"perfcycle/internal/transport/http/middleware"
	"perfcycle/internal/transport/http/shared"
)

type UserService interface {
	UpdateUser(ctx context.Context, in users.UpdateInput) (users.UpdateResult, error)
	DeleteUser(ctx context.Context, requester auth.Requester, userID string) (users.DeleteResult, error)
}

type ManagerNotifier interface {
	NotifyManagerChange(ctx context.Context, userID, managerID string) error
}

type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

type Handler struct {
	Service  UserService
	Notifier ManagerNotifier
	Audit    AuditRecorder
	Perms    middleware.PermissionStore
	Log      *zap.Logger
}

func NewHandler(service UserService, perms middleware.PermissionStore, notifier ManagerNotifier, auditor AuditRecorder, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Service: service, Perms: perms, Notifier: notifier, Audit: auditor, Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/users", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermUsersAdmin, h.Perms))
		r.Put("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
	})
}

type updateUserRequest struct {
	ID         string                  `json:"id" validate:"required,uuid"`
	Email      *string                 `json:"email" validate:"omitempty,email,max=320"`
	FirstName  *string                 `json:"firstName" validate:"omitempty,max=100"`
	LastName   *string                 `json:"lastName" validate:"omitempty,max=100"`
	Role       *string                 `json:"role" validate:"omitempty,oneof=EMPLOYEE MANAGER ADMIN"`
	Department *string                 `json:"department" validate:"omitempty,max=100"`
	IsActive   *bool                   `json:"isActive"`
	ManagerID  shared.Nullable[string] `json:"managerId"`
}

func (req updateUserRequest) input() users.UpdateInput {
	in := users.UpdateInput{
		ID:         req.ID,
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       req.Role,
		Department: req.Department,
		IsActive:   req.IsActive,
	}
	if req.ManagerID.Present {
		in.Manager = users.ManagerChange{Set: true, ID: strings.TrimSpace(req.ManagerID.Value)}
	}
	return in
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	var payload updateUserRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	validator := shared.NewValidator()
	validator.Struct(payload)
	if payload.ManagerID.Present && !payload.ManagerID.Null {
		if _, err := uuid.Parse(strings.TrimSpace(payload.ManagerID.Value)); err != nil {
			validator.Add("managerId", "must be a valid uuid or null")
		}
	}
	if validator.Reject(w, requestID) {
		return
	}

	result, err := h.Service.UpdateUser(r.Context(), payload.input())
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}

	h.record(r, audit.Entry{
		ActorID:    user.UserID,
		Action:     audit.ActionUserUpdate,
		EntityType: "employee",
		EntityID:   result.After.ID,
		Before:     result.Before,
		After:      result.After,
	})
	if result.ManagerChanged() {
		h.record(r, audit.Entry{
			ActorID:    user.UserID,
			Action:     audit.ActionManagerReassign,
			EntityType: "employee",
			EntityID:   result.After.ID,
			Before:     map[string]string{"managerId": result.Before.ManagerID},
			After:      map[string]string{"managerId": result.After.ManagerID},
		})
		if h.Notifier != nil {
			if err := h.Notifier.NotifyManagerChange(r.Context(), result.After.ID, result.After.ManagerID); err != nil {
				h.Log.Warn("notify manager change failed", zap.String("user_id", result.After.ID), zap.Error(err))
			}
		}
	}

	api.Success(w, result.After, requestID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("id"))
	if userID == "" {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "id", Reason: "is required"}})
		return
	}

	result, err := h.Service.DeleteUser(r.Context(), user.Requester(), userID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}

	h.record(r, audit.Entry{
		ActorID:    user.UserID,
		Action:     audit.ActionUserDelete,
		EntityType: "employee",
		EntityID:   result.UserID,
		After:      result,
	})
	api.Success(w, result, requestID)
}

func (h *Handler) record(r *http.Request, entry audit.Entry) {
	if h.Audit == nil {
		return
	}
	entry.RequestID = middleware.GetRequestID(r.Context())
	entry.IP = shared.ClientIP(r)
	if err := h.Audit.Record(r.Context(), entry); err != nil {
		h.Log.Warn("audit record failed", zap.String("action", entry.Action), zap.Error(err))
	}
}
