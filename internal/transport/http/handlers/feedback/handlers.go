package feedbackhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"perfcycle/internal/domain/audit"
	"perfcycle/internal/domain/auth"
	"perfcycle/internal/domain/feedback"
	"perfcycle/internal/transport/http/api"
	"perfcycle/internal/transport/http/middleware"
	"perfcycle/internal/transport/http/shared"
)

const idempotencyEndpoint = "feedback.cycles.goal_based"

type CycleService interface {
	CreateGoalBasedCycle(ctx context.Context, requester auth.Requester, in feedback.CreateCycleInput) (feedback.CreateCycleResult, error)
}

type ReviewerNotifier interface {
	NotifyReviewers(ctx context.Context, cycleName string, reviewerIDs []string) error
}

type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

type IdempotencyStore interface {
	Check(ctx context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error)
	Save(ctx context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error
}

type Handler struct {
	Service     CycleService
	Notifier    ReviewerNotifier
	Audit       AuditRecorder
	Idempotency IdempotencyStore
	Perms       middleware.PermissionStore
	Log         *zap.Logger
}

func NewHandler(service CycleService, perms middleware.PermissionStore, notifier ReviewerNotifier, auditor AuditRecorder, idem IdempotencyStore, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Service: service, Perms: perms, Notifier: notifier, Audit: auditor, Idempotency: idem, Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/feedback-cycles", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermFeedbackCyclesCreate, h.Perms)).Post("/goal-based", h.handleCreateGoalBased)
	})
}

type createCycleRequest struct {
	Name                string   `json:"name" validate:"required,max=200"`
	Description         string   `json:"description" validate:"max=2000"`
	Type                string   `json:"type" validate:"required,max=50"`
	StartDate           string   `json:"startDate" validate:"required"`
	EndDate             string   `json:"endDate" validate:"required"`
	CompetencyIDs       []string `json:"competencyIds" validate:"omitempty,dive,uuid"`
	GoalID              string   `json:"goalId" validate:"omitempty,uuid"`
	GoalCategory        string   `json:"goalCategory" validate:"max=100"`
	EmployeeIDs         []string `json:"employeeIds" validate:"omitempty,dive,uuid"`
	IncludeSelf         *bool    `json:"includeSelf"`
	IncludeManager      *bool    `json:"includeManager"`
	IncludePeers        *bool    `json:"includePeers"`
	IncludeSubordinates *bool    `json:"includeSubordinates"`
	MaxPeers            *int     `json:"maxPeers" validate:"omitempty,gte=0"`
}

func (req createCycleRequest) config() feedback.Config {
	cfg := feedback.DefaultConfig()
	if req.IncludeSelf != nil {
		cfg.IncludeSelf = *req.IncludeSelf
	}
	if req.IncludeManager != nil {
		cfg.IncludeManager = *req.IncludeManager
	}
	if req.IncludePeers != nil {
		cfg.IncludePeers = *req.IncludePeers
	}
	if req.IncludeSubordinates != nil {
		cfg.IncludeSubordinates = *req.IncludeSubordinates
	}
	if req.MaxPeers != nil {
		cfg.MaxPeers = *req.MaxPeers
	}
	return cfg
}

type createCycleResponse struct {
	Cycle       feedback.Cycle               `json:"cycle"`
	Summary     feedback.Summary             `json:"summary"`
	Assignments []feedback.Assignment        `json:"assignments"`
	Errors      []feedback.AssignmentFailure `json:"errors"`
}

func newCreateCycleResponse(result feedback.CreateCycleResult) createCycleResponse {
	resp := createCycleResponse{
		Cycle:       result.Cycle,
		Summary:     result.Summary(),
		Assignments: result.FirstAssignments(feedback.ResponseAssignmentLimit),
		Errors:      result.Batch.Failed,
	}
	if resp.Assignments == nil {
		resp.Assignments = []feedback.Assignment{}
	}
	if resp.Errors == nil {
		resp.Errors = []feedback.AssignmentFailure{}
	}
	return resp
}

// handleCreateGoalBased serves POST /feedback-cycles/goal-based. Like every
// route it answers with the standard envelope, so cycle, summary, assignments
// and errors sit under "data" rather than beside "success".
func (h *Handler) handleCreateGoalBased(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get(middleware.IdempotencyHeader))
	requestHash := middleware.RequestHash(raw)
	if idempotencyKey != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.UserID, idempotencyEndpoint, idempotencyKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", requestID)
			return
		}
		if err != nil {
			h.Log.Warn("idempotency check failed", zap.String("request_id", requestID), zap.Error(err))
		}
		if found {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replay", "true")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(stored)
			return
		}
	}

	var payload createCycleRequest
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	validator := shared.NewValidator()
	validator.Struct(payload)
	startDate, _ := validator.Date("startDate", payload.StartDate)
	endDate, _ := validator.Date("endDate", payload.EndDate)
	validator.DateOrder("startDate", startDate, "endDate", endDate)
	if validator.Reject(w, requestID) {
		return
	}

	result, err := h.Service.CreateGoalBasedCycle(r.Context(), user.Requester(), feedback.CreateCycleInput{
		Name:          strings.TrimSpace(payload.Name),
		Description:   strings.TrimSpace(payload.Description),
		Type:          strings.TrimSpace(payload.Type),
		StartDate:     startDate,
		EndDate:       endDate,
		CompetencyIDs: payload.CompetencyIDs,
		Target: feedback.Target{
			EmployeeIDs:  payload.EmployeeIDs,
			GoalID:       payload.GoalID,
			GoalCategory: strings.TrimSpace(payload.GoalCategory),
		},
		Config: payload.config(),
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}

	resp := newCreateCycleResponse(result)
	h.afterCreate(r, user, result, resp.Summary)

	envelope := api.Envelope{Success: true, Data: resp, RequestID: requestID}
	if idempotencyKey != "" && h.Idempotency != nil {
		encoded, err := json.Marshal(envelope)
		if err == nil {
			err = h.Idempotency.Save(r.Context(), user.UserID, idempotencyEndpoint, idempotencyKey, requestHash, encoded)
		}
		if err != nil {
			h.Log.Warn("idempotency save failed", zap.String("request_id", requestID), zap.Error(err))
		}
	}
	api.WriteJSON(w, http.StatusOK, envelope)
}

// afterCreate runs the best-effort side effects of a committed cycle.
func (h *Handler) afterCreate(r *http.Request, user auth.UserContext, result feedback.CreateCycleResult, summary feedback.Summary) {
	requestID := middleware.GetRequestID(r.Context())
	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), audit.Entry{
			ActorID:    user.UserID,
			Action:     audit.ActionCycleCreate,
			EntityType: "feedback_cycle",
			EntityID:   result.Cycle.ID,
			RequestID:  requestID,
			IP:         shared.ClientIP(r),
			After:      map[string]any{"cycle": result.Cycle, "summary": summary},
		}); err != nil {
			h.Log.Warn("audit cycle create failed", zap.String("cycle_id", result.Cycle.ID), zap.Error(err))
		}
	}
	if h.Notifier != nil {
		if err := h.Notifier.NotifyReviewers(r.Context(), result.Cycle.Name, result.Reviewers()); err != nil {
			h.Log.Warn("notify reviewers failed", zap.String("cycle_id", result.Cycle.ID), zap.Error(err))
		}
	}
}
