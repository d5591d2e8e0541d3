package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/club-reservations/internal/application"
	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/reservation"
	"github.com/example/club-reservations/internal/scheduler"
)

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (persistence.Reservation, error)
	GetReservation(ctx context.Context, clubMemberID, reservationID string) (application.ReservationDetails, error)
	ModifyReservation(ctx context.Context, params application.ModifyReservationParams) (persistence.Reservation, error)
	ApproveReservation(ctx context.Context, clubMemberID, reservationID string) (persistence.Reservation, error)
	RejectReservation(ctx context.Context, clubMemberID, reservationID string) (persistence.Reservation, error)
	CancelReservation(ctx context.Context, clubMemberID, reservationID string) (persistence.Reservation, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]persistence.Reservation, error)
	ListConflicts(ctx context.Context, clubMemberID, resourceID string, period scheduler.Period) ([]scheduler.Conflict, error)
}

type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	caller, _ := ClubMemberIDFromContext(r.Context())

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "resource_id", req.ResourceID)

	res, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		ClubMemberID: caller,
		Input:        req.toInput(),
	})
	if err != nil {
		logger.InfoContext(r.Context(), "reservation request refused", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", res.ID).InfoContext(r.Context(), "reservation requested")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Reservation: toReservationDTO(res, nil)})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	caller, _ := ClubMemberIDFromContext(r.Context())
	id := r.PathValue("id")

	details, err := h.service.GetReservation(r.Context(), caller, id)
	if err != nil {
		h.log(r.Context(), "Get", "reservation_id", id).
			InfoContext(r.Context(), "reservation lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(details.Reservation, details.Invitees)})
}

func (h *ReservationHandler) Modify(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	caller, _ := ClubMemberIDFromContext(r.Context())
	id := r.PathValue("id")

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Modify", "reservation_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reservation update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Modify", "reservation_id", id)

	res, err := h.service.ModifyReservation(r.Context(), application.ModifyReservationParams{
		ClubMemberID:  caller,
		ReservationID: id,
		Input:         req.toInput(),
	})
	if err != nil {
		logger.InfoContext(r.Context(), "reservation update refused", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", string(res.Status)).InfoContext(r.Context(), "reservation updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(res, nil)})
}

func (h *ReservationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Approve", func(ctx context.Context, caller, id string) (persistence.Reservation, error) {
		return h.service.ApproveReservation(ctx, caller, id)
	})
}

func (h *ReservationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Reject", func(ctx context.Context, caller, id string) (persistence.Reservation, error) {
		return h.service.RejectReservation(ctx, caller, id)
	})
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Cancel", func(ctx context.Context, caller, id string) (persistence.Reservation, error) {
		return h.service.CancelReservation(ctx, caller, id)
	})
}

func (h *ReservationHandler) transition(w http.ResponseWriter, r *http.Request, operation string, apply func(context.Context, string, string) (persistence.Reservation, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	caller, _ := ClubMemberIDFromContext(r.Context())
	id := r.PathValue("id")
	logger := h.log(r.Context(), operation, "reservation_id", id)

	res, err := apply(r.Context(), caller, id)
	if err != nil {
		logger.InfoContext(r.Context(), "reservation transition refused", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", string(res.Status)).InfoContext(r.Context(), "reservation transitioned")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(res, nil)})
}

func (h *ReservationHandler) ListByResource(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	caller, _ := ClubMemberIDFromContext(r.Context())
	resourceID := r.PathValue("id")
	logger := h.log(r.Context(), "ListByResource", "resource_id", resourceID)

	params, err := parseListQuery(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	params.ClubMemberID = caller
	params.ResourceID = resourceID

	list, err := h.service.ListReservations(r.Context(), params)
	if err != nil {
		logger.InfoContext(r.Context(), "reservation listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]reservationDTO, 0, len(list))
	for _, res := range list {
		out = append(out, toReservationDTO(res, nil))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: out})
}

func (h *ReservationHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	caller, _ := ClubMemberIDFromContext(r.Context())
	resourceID := r.PathValue("id")

	start, errStart := parseTimeParam(r, "start")
	end, errEnd := parseTimeParam(r, "end")
	if errStart != nil || errEnd != nil || start == nil || end == nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTime)
		return
	}

	conflicts, err := h.service.ListConflicts(r.Context(), caller, resourceID, scheduler.Period{Start: *start, End: *end})
	if err != nil {
		h.log(r.Context(), "Conflicts", "resource_id", resourceID).
			InfoContext(r.Context(), "conflict query failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]conflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictDTO{
			Type:   string(c.Type),
			ID:     c.ID,
			Start:  formatTime(c.Period.Start),
			End:    formatTime(c.Period.End),
			Status: c.Status,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictsResponse{Available: len(out) == 0, Conflicts: out})
}

func parseListQuery(r *http.Request) (application.ListReservationsParams, error) {
	q := r.URL.Query()
	var params application.ListReservationsParams

	period, ok := application.ParseListPeriod(strings.ToLower(strings.TrimSpace(q.Get("period"))))
	if !ok {
		return params, errInvalidQuery
	}
	params.Period = period

	reference, err := parseTimeParam(r, "reference")
	if err != nil {
		return params, errInvalidTime
	}
	if reference != nil {
		params.PeriodReference = *reference
	}
	if params.From, err = parseTimeParam(r, "from"); err != nil {
		return params, errInvalidTime
	}
	if params.Until, err = parseTimeParam(r, "until"); err != nil {
		return params, errInvalidTime
	}

	for _, raw := range q["status"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, err := reservation.ParseStatus(part)
			if err != nil {
				return params, errInvalidQuery
			}
			params.Statuses = append(params.Statuses, status)
		}
	}
	return params, nil
}

func parseTimeParam(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type reservationRequest struct {
	ResourceID string    `json:"resource_id"`
	Title      string    `json:"title"`
	Usage      *string   `json:"usage"`
	Sharing    bool      `json:"sharing"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	InviteeIDs []string  `json:"invitee_ids"`
}

func (r reservationRequest) toInput() application.ReservationInput {
	return application.ReservationInput{
		ResourceID: strings.TrimSpace(r.ResourceID),
		Title:      r.Title,
		Usage:      r.Usage,
		Sharing:    r.Sharing,
		Period:     scheduler.Period{Start: r.Start, End: r.End},
		InviteeIDs: r.InviteeIDs,
	}
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type listReservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type reservationDTO struct {
	ID           string   `json:"id"`
	ResourceID   string   `json:"resource_id"`
	ClubMemberID string   `json:"club_member_id"`
	Title        string   `json:"title"`
	Usage        *string  `json:"usage,omitempty"`
	Sharing      bool     `json:"sharing"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Status       string   `json:"status"`
	InviteeIDs   []string `json:"invitee_ids,omitempty"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

func toReservationDTO(res persistence.Reservation, invitees []persistence.ClubMember) reservationDTO {
	dto := reservationDTO{
		ID:           res.ID,
		ResourceID:   res.ResourceID,
		ClubMemberID: res.ClubMemberID,
		Title:        res.Title,
		Usage:        res.Usage,
		Sharing:      res.Sharing,
		Start:        formatTime(res.Period.Start),
		End:          formatTime(res.Period.End),
		Status:       string(res.Status),
		CreatedAt:    formatTime(res.CreatedAt),
		UpdatedAt:    formatTime(res.UpdatedAt),
	}
	for _, m := range invitees {
		dto.InviteeIDs = append(dto.InviteeIDs, m.ID)
	}
	return dto
}

type conflictsResponse struct {
	Available bool          `json:"available"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type conflictDTO struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Status string `json:"status,omitempty"`
}
