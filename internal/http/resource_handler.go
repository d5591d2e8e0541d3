package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/club-reservations/internal/application"
	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/scheduler"
)

type resourceService interface {
	CreateResource(ctx context.Context, params application.CreateResourceParams) (persistence.Resource, error)
	DeleteResource(ctx context.Context, clubMemberID, resourceID string) error
	ListResources(ctx context.Context, clubMemberID, clubID string) ([]persistence.Resource, error)
	CreateLock(ctx context.Context, params application.CreateLockParams) (application.LockResult, error)
	DeleteLock(ctx context.Context, clubMemberID, lockID string) error
	ListLocks(ctx context.Context, clubMemberID, resourceID string) ([]persistence.Lock, error)
}

type ResourceHandler struct {
	service   resourceService
	responder responder
	logger    *slog.Logger
}

func NewResourceHandler(service resourceService, logger *slog.Logger) *ResourceHandler {
	base := defaultLogger(logger)
	return &ResourceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ResourceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ResourceHandler", operation, attrs...)
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	caller, _ := ClubMemberIDFromContext(r.Context())
	clubID := r.PathValue("id")

	resources, err := h.service.ListResources(r.Context(), caller, clubID)
	if err != nil {
		h.log(r.Context(), "List", "club_id", clubID).
			InfoContext(r.Context(), "resource listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]resourceDTO, 0, len(resources))
	for _, res := range resources {
		out = append(out, toResourceDTO(res))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResourcesResponse{Resources: out})
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	caller, _ := ClubMemberIDFromContext(r.Context())
	clubID := r.PathValue("id")

	var req resourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode resource request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	res, err := h.service.CreateResource(r.Context(), application.CreateResourceParams{
		ClubMemberID: caller,
		Input:        application.ResourceInput{ClubID: clubID, Name: req.Name},
	})
	if err != nil {
		h.log(r.Context(), "Create", "club_id", clubID).
			InfoContext(r.Context(), "resource creation refused", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, resourceResponse{Resource: toResourceDTO(res)})
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	caller, _ := ClubMemberIDFromContext(r.Context())
	id := r.PathValue("id")

	if err := h.service.DeleteResource(r.Context(), caller, id); err != nil {
		h.log(r.Context(), "Delete", "resource_id", id).
			InfoContext(r.Context(), "resource deletion refused", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ResourceHandler) CreateLock(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	caller, _ := ClubMemberIDFromContext(r.Context())
	resourceID := r.PathValue("id")

	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateLock", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode lock request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.CreateLock(r.Context(), application.CreateLockParams{
		ClubMemberID: caller,
		ResourceID:   resourceID,
		Period:       scheduler.Period{Start: req.Start, End: req.End},
	})
	if err != nil {
		h.log(r.Context(), "CreateLock", "resource_id", resourceID).
			InfoContext(r.Context(), "lock creation refused", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := lockResponse{Lock: toLockDTO(result.Lock), Overlapping: make([]conflictDTO, 0, len(result.Overlapping))}
	for _, c := range result.Overlapping {
		resp.Overlapping = append(resp.Overlapping, conflictDTO{
			Type:   string(c.Type),
			ID:     c.ID,
			Start:  formatTime(c.Period.Start),
			End:    formatTime(c.Period.End),
			Status: c.Status,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, resp)
}

func (h *ResourceHandler) ListLocks(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	caller, _ := ClubMemberIDFromContext(r.Context())
	resourceID := r.PathValue("id")

	locks, err := h.service.ListLocks(r.Context(), caller, resourceID)
	if err != nil {
		h.log(r.Context(), "ListLocks", "resource_id", resourceID).
			InfoContext(r.Context(), "lock listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]lockDTO, 0, len(locks))
	for _, l := range locks {
		out = append(out, toLockDTO(l))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listLocksResponse{Locks: out})
}

func (h *ResourceHandler) DeleteLock(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	caller, _ := ClubMemberIDFromContext(r.Context())
	id := r.PathValue("id")

	if err := h.service.DeleteLock(r.Context(), caller, id); err != nil {
		h.log(r.Context(), "DeleteLock", "lock_id", id).
			InfoContext(r.Context(), "lock deletion refused", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type resourceRequest struct {
	Name string `json:"name"`
}

type resourceResponse struct {
	Resource resourceDTO `json:"resource"`
}

type listResourcesResponse struct {
	Resources []resourceDTO `json:"resources"`
}

type resourceDTO struct {
	ID        string `json:"id"`
	ClubID    string `json:"club_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func toResourceDTO(res persistence.Resource) resourceDTO {
	return resourceDTO{
		ID:        res.ID,
		ClubID:    res.ClubID,
		Name:      res.Name,
		CreatedAt: formatTime(res.CreatedAt),
	}
}

type lockRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type lockResponse struct {
	Lock        lockDTO       `json:"lock"`
	Overlapping []conflictDTO `json:"overlapping_reservations"`
}

type listLocksResponse struct {
	Locks []lockDTO `json:"locks"`
}

type lockDTO struct {
	ID         string `json:"id"`
	ResourceID string `json:"resource_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	CreatedAt  string `json:"created_at"`
}

func toLockDTO(l persistence.Lock) lockDTO {
	return lockDTO{
		ID:         l.ID,
		ResourceID: l.ResourceID,
		Start:      formatTime(l.Period.Start),
		End:        formatTime(l.Period.End),
		CreatedAt:  formatTime(l.CreatedAt),
	}
}
