package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/club-reservations/internal/application"
	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/reservation"
	"github.com/example/club-reservations/internal/scheduler"
)

var (
	testStart = time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2024, 3, 14, 16, 0, 0, 0, time.UTC)
)

type stubReservationService struct {
	createParams application.CreateReservationParams
	modifyParams application.ModifyReservationParams
	listParams   application.ListReservationsParams
	conflictArgs []string
	conflictSpan scheduler.Period
	transitions  []string

	reservation persistence.Reservation
	details     application.ReservationDetails
	list        []persistence.Reservation
	conflicts   []scheduler.Conflict
	err         error
}

func (s *stubReservationService) CreateReservation(ctx context.Context, params application.CreateReservationParams) (persistence.Reservation, error) {
	s.createParams = params
	return s.reservation, s.err
}

func (s *stubReservationService) GetReservation(ctx context.Context, clubMemberID, reservationID string) (application.ReservationDetails, error) {
	return s.details, s.err
}

func (s *stubReservationService) ModifyReservation(ctx context.Context, params application.ModifyReservationParams) (persistence.Reservation, error) {
	s.modifyParams = params
	return s.reservation, s.err
}

func (s *stubReservationService) ApproveReservation(ctx context.Context, clubMemberID, reservationID string) (persistence.Reservation, error) {
	s.transitions = append(s.transitions, "approve:"+clubMemberID+":"+reservationID)
	return s.reservation, s.err
}

func (s *stubReservationService) RejectReservation(ctx context.Context, clubMemberID, reservationID string) (persistence.Reservation, error) {
	s.transitions = append(s.transitions, "reject:"+clubMemberID+":"+reservationID)
	return s.reservation, s.err
}

func (s *stubReservationService) CancelReservation(ctx context.Context, clubMemberID, reservationID string) (persistence.Reservation, error) {
	s.transitions = append(s.transitions, "cancel:"+clubMemberID+":"+reservationID)
	return s.reservation, s.err
}

func (s *stubReservationService) ListReservations(ctx context.Context, params application.ListReservationsParams) ([]persistence.Reservation, error) {
	s.listParams = params
	return s.list, s.err
}

func (s *stubReservationService) ListConflicts(ctx context.Context, clubMemberID, resourceID string, period scheduler.Period) ([]scheduler.Conflict, error) {
	s.conflictArgs = []string{clubMemberID, resourceID}
	s.conflictSpan = period
	return s.conflicts, s.err
}

type stubResourceService struct {
	createParams application.CreateResourceParams
	lockParams   application.CreateLockParams
	deleted      []string

	resource  persistence.Resource
	resources []persistence.Resource
	lock      application.LockResult
	locks     []persistence.Lock
	err       error
}

func (s *stubResourceService) CreateResource(ctx context.Context, params application.CreateResourceParams) (persistence.Resource, error) {
	s.createParams = params
	return s.resource, s.err
}

func (s *stubResourceService) DeleteResource(ctx context.Context, clubMemberID, resourceID string) error {
	s.deleted = append(s.deleted, "resource:"+resourceID)
	return s.err
}

func (s *stubResourceService) ListResources(ctx context.Context, clubMemberID, clubID string) ([]persistence.Resource, error) {
	return s.resources, s.err
}

func (s *stubResourceService) CreateLock(ctx context.Context, params application.CreateLockParams) (application.LockResult, error) {
	s.lockParams = params
	return s.lock, s.err
}

func (s *stubResourceService) DeleteLock(ctx context.Context, clubMemberID, lockID string) error {
	s.deleted = append(s.deleted, "lock:"+lockID)
	return s.err
}

func (s *stubResourceService) ListLocks(ctx context.Context, clubMemberID, resourceID string) ([]persistence.Lock, error) {
	return s.locks, s.err
}

func newTestRouter(reservations *stubReservationService, resources *stubResourceService) http.Handler {
	cfg := RouterConfig{}
	if reservations != nil {
		cfg.Reservations = NewReservationHandler(reservations, nil)
	}
	if resources != nil {
		cfg.Resources = NewResourceHandler(resources, nil)
	}
	return NewRouter(cfg)
}

func serve(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set(ClubMemberHeader, "member-1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func sampleReservation() persistence.Reservation {
	return persistence.Reservation{
		ID:           "res-1",
		ResourceID:   "court-a",
		ClubMemberID: "member-1",
		Title:        "Practice",
		Period:       scheduler.Period{Start: testStart, End: testEnd},
		Status:       reservation.StatusPending,
		CreatedAt:    testStart.Add(-time.Hour),
		UpdatedAt:    testStart.Add(-time.Hour),
	}
}

func TestReservationHandlerCreate(t *testing.T) {
	t.Parallel()

	t.Run("requests a reservation", func(t *testing.T) {
		t.Parallel()

		svc := &stubReservationService{reservation: sampleReservation()}
		router := newTestRouter(svc, nil)

		rec := serve(t, router, http.MethodPost, "/reservations", `{
			"resource_id": " court-a ",
			"title": "Practice",
			"start": "2024-03-14T23:00:00+09:00",
			"end": "2024-03-15T01:00:00+09:00",
			"invitee_ids": ["member-2"]
		}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if svc.createParams.ClubMemberID != "member-1" {
			t.Fatalf("expected caller from header, got %q", svc.createParams.ClubMemberID)
		}
		in := svc.createParams.Input
		if in.ResourceID != "court-a" || len(in.InviteeIDs) != 1 {
			t.Fatalf("unexpected input %+v", in)
		}
		if !in.Period.Start.Equal(testStart) || !in.Period.End.Equal(testEnd) {
			t.Fatalf("unexpected period %v", in.Period)
		}

		body := decodeBody[reservationResponse](t, rec)
		if body.Reservation.ID != "res-1" || body.Reservation.Status != "PENDING" {
			t.Fatalf("unexpected body %+v", body)
		}
		if body.Reservation.Start != "2024-03-14T14:00:00Z" {
			t.Fatalf("expected UTC RFC 3339 start, got %q", body.Reservation.Start)
		}
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		t.Parallel()

		svc := &stubReservationService{}
		rec := serve(t, newTestRouter(svc, nil), http.MethodPost, "/reservations", `{"start":`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if svc.createParams.ClubMemberID != "" {
			t.Fatalf("service must not be called")
		}
	})

	t.Run("requires the member header", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		newTestRouter(&stubReservationService{}, nil).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestReservationHandlerErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		errorsIn string
	}{
		{name: "slot busy", err: fmt.Errorf("admit: %w", application.ErrMutexContention), status: http.StatusConflict, code: "SLOT_BUSY"},
		{name: "period conflict", err: fmt.Errorf("admit: %w", application.ErrPeriodConflict), status: http.StatusConflict, code: "PERIOD_CONFLICT"},
		{name: "illegal transition", err: application.ErrIllegalTransition, status: http.StatusConflict, code: "ILLEGAL_TRANSITION"},
		{name: "unauthorized", err: application.ErrUnauthorized, status: http.StatusForbidden, code: "AUTH_FORBIDDEN"},
		{name: "not found", err: application.ErrNotFound, status: http.StatusNotFound},
		{name: "invalid period", err: application.ErrInvalidPeriod, status: http.StatusUnprocessableEntity, code: "INVALID_PERIOD"},
		{
			name:     "validation",
			err:      &application.ValidationError{FieldErrors: map[string]string{"title": "title is required"}},
			status:   http.StatusUnprocessableEntity,
			errorsIn: "title",
		},
		{name: "canceled", err: context.Canceled, status: http.StatusServiceUnavailable},
		{name: "storage", err: application.ErrStorageFailure, status: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &stubReservationService{err: tc.err}
			rec := serve(t, newTestRouter(svc, nil), http.MethodPost, "/reservations", `{"resource_id":"court-a","title":"x","start":"2024-03-14T14:00:00Z","end":"2024-03-14T16:00:00Z"}`)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			body := decodeBody[errorResponse](t, rec)
			if body.ErrorCode != tc.code {
				t.Fatalf("expected error_code %q, got %q", tc.code, body.ErrorCode)
			}
			if body.Message == "" {
				t.Fatalf("expected a message")
			}
			if tc.errorsIn != "" {
				if _, ok := body.Errors[tc.errorsIn]; !ok {
					t.Fatalf("expected field error for %s, got %v", tc.errorsIn, body.Errors)
				}
			}
		})
	}
}

func TestReservationHandlerTransitions(t *testing.T) {
	t.Parallel()

	res := sampleReservation()
	res.Status = reservation.StatusConfirmed
	svc := &stubReservationService{reservation: res}
	router := newTestRouter(svc, nil)

	for _, action := range []string{"approve", "reject", "cancel"} {
		rec := serve(t, router, http.MethodPost, "/reservations/res-1/"+action, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", action, rec.Code)
		}
	}

	want := []string{"approve:member-1:res-1", "reject:member-1:res-1", "cancel:member-1:res-1"}
	if strings.Join(svc.transitions, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected transitions %v", svc.transitions)
	}

	rec := serve(t, router, http.MethodGet, "/reservations/res-1/approve", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", rec.Code)
	}
}

func TestReservationHandlerGetAndModify(t *testing.T) {
	t.Parallel()

	svc := &stubReservationService{
		reservation: sampleReservation(),
		details: application.ReservationDetails{
			Reservation: sampleReservation(),
			Invitees:    []persistence.ClubMember{{ID: "member-2"}, {ID: "member-3"}},
		},
	}
	router := newTestRouter(svc, nil)

	rec := serve(t, router, http.MethodGet, "/reservations/res-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody[reservationResponse](t, rec)
	if strings.Join(body.Reservation.InviteeIDs, ",") != "member-2,member-3" {
		t.Fatalf("unexpected invitees %v", body.Reservation.InviteeIDs)
	}

	rec = serve(t, router, http.MethodPut, "/reservations/res-1", `{"title":"Renamed","start":"2024-03-14T14:00:00Z","end":"2024-03-14T16:00:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.modifyParams.ReservationID != "res-1" || svc.modifyParams.Input.Title != "Renamed" {
		t.Fatalf("unexpected modify params %+v", svc.modifyParams)
	}
	if svc.modifyParams.Input.ResourceID != "" {
		t.Fatalf("omitted resource must stay empty, got %q", svc.modifyParams.Input.ResourceID)
	}
}

func TestReservationHandlerListByResource(t *testing.T) {
	t.Parallel()

	t.Run("parses presets and statuses", func(t *testing.T) {
		t.Parallel()

		svc := &stubReservationService{list: []persistence.Reservation{sampleReservation()}}
		rec := serve(t, newTestRouter(svc, nil), http.MethodGet,
			"/resources/court-a/reservations?period=Week&reference=2024-03-14T00:00:00Z&status=pending,confirmed&status=canceled", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		p := svc.listParams
		if p.ResourceID != "court-a" || p.ClubMemberID != "member-1" {
			t.Fatalf("unexpected params %+v", p)
		}
		if p.Period != application.ListPeriodWeek || !p.PeriodReference.Equal(time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected preset %q %v", p.Period, p.PeriodReference)
		}
		want := []reservation.Status{reservation.StatusPending, reservation.StatusConfirmed, reservation.StatusCanceled}
		if len(p.Statuses) != len(want) {
			t.Fatalf("unexpected statuses %v", p.Statuses)
		}
		for i := range want {
			if p.Statuses[i] != want[i] {
				t.Fatalf("unexpected statuses %v", p.Statuses)
			}
		}

		body := decodeBody[listReservationsResponse](t, rec)
		if len(body.Reservations) != 1 {
			t.Fatalf("expected one reservation, got %d", len(body.Reservations))
		}
	})

	t.Run("rejects bad query values", func(t *testing.T) {
		t.Parallel()

		for _, query := range []string{"period=year", "status=unknown", "from=yesterday"} {
			rec := serve(t, newTestRouter(&stubReservationService{}, nil), http.MethodGet, "/resources/court-a/reservations?"+query, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("%s: expected 400, got %d", query, rec.Code)
			}
		}
	})
}

func TestReservationHandlerConflicts(t *testing.T) {
	t.Parallel()

	t.Run("reports availability", func(t *testing.T) {
		t.Parallel()

		svc := &stubReservationService{}
		rec := serve(t, newTestRouter(svc, nil), http.MethodGet,
			"/resources/court-a/conflicts?start=2024-03-14T14:00:00Z&end=2024-03-14T16:00:00Z", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody[conflictsResponse](t, rec)
		if !body.Available || len(body.Conflicts) != 0 {
			t.Fatalf("expected available, got %+v", body)
		}
		if svc.conflictArgs[1] != "court-a" || !svc.conflictSpan.Start.Equal(testStart) {
			t.Fatalf("unexpected query %v %v", svc.conflictArgs, svc.conflictSpan)
		}
	})

	t.Run("lists blocking records", func(t *testing.T) {
		t.Parallel()

		svc := &stubReservationService{conflicts: []scheduler.Conflict{
			{Type: scheduler.ConflictTypeLock, ID: "lock-1", ResourceID: "court-a", Period: scheduler.Period{Start: testStart, End: testEnd}},
			{Type: scheduler.ConflictTypeReservation, ID: "res-9", ResourceID: "court-a", Period: scheduler.Period{Start: testStart, End: testEnd}, Status: "CONFIRMED"},
		}}
		rec := serve(t, newTestRouter(svc, nil), http.MethodGet,
			"/resources/court-a/conflicts?start=2024-03-14T14:00:00Z&end=2024-03-14T16:00:00Z", "")
		body := decodeBody[conflictsResponse](t, rec)
		if body.Available || len(body.Conflicts) != 2 {
			t.Fatalf("unexpected body %+v", body)
		}
		if body.Conflicts[0].Type != "lock" || body.Conflicts[1].Status != "CONFIRMED" {
			t.Fatalf("unexpected conflicts %+v", body.Conflicts)
		}
	})

	t.Run("requires both bounds", func(t *testing.T) {
		t.Parallel()

		rec := serve(t, newTestRouter(&stubReservationService{}, nil), http.MethodGet, "/resources/court-a/conflicts?start=2024-03-14T14:00:00Z", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestResourceHandler(t *testing.T) {
	t.Parallel()

	t.Run("creates and lists resources", func(t *testing.T) {
		t.Parallel()

		svc := &stubResourceService{
			resource:  persistence.Resource{ID: "court-a", ClubID: "club-1", Name: "Court A", CreatedAt: testStart},
			resources: []persistence.Resource{{ID: "court-a", ClubID: "club-1", Name: "Court A"}},
		}
		router := newTestRouter(nil, svc)

		rec := serve(t, router, http.MethodPost, "/clubs/club-1/resources", `{"name":"Court A"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if svc.createParams.Input.ClubID != "club-1" || svc.createParams.Input.Name != "Court A" {
			t.Fatalf("unexpected params %+v", svc.createParams)
		}

		rec = serve(t, router, http.MethodGet, "/clubs/club-1/resources", "")
		body := decodeBody[listResourcesResponse](t, rec)
		if len(body.Resources) != 1 || body.Resources[0].Name != "Court A" {
			t.Fatalf("unexpected resources %+v", body)
		}
	})

	t.Run("creates locks and reports overlaps", func(t *testing.T) {
		t.Parallel()

		svc := &stubResourceService{lock: application.LockResult{
			Lock: persistence.Lock{ID: "lock-1", ResourceID: "court-a", Period: scheduler.Period{Start: testStart, End: testEnd}},
			Overlapping: []scheduler.Conflict{
				{Type: scheduler.ConflictTypeReservation, ID: "res-1", Period: scheduler.Period{Start: testStart, End: testEnd}, Status: "PENDING"},
			},
		}}
		rec := serve(t, newTestRouter(nil, svc), http.MethodPost, "/resources/court-a/locks", `{"start":"2024-03-14T14:00:00Z","end":"2024-03-14T16:00:00Z"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if svc.lockParams.ResourceID != "court-a" || !svc.lockParams.Period.End.Equal(testEnd) {
			t.Fatalf("unexpected params %+v", svc.lockParams)
		}
		body := decodeBody[lockResponse](t, rec)
		if body.Lock.ID != "lock-1" || len(body.Overlapping) != 1 || body.Overlapping[0].ID != "res-1" {
			t.Fatalf("unexpected body %+v", body)
		}
	})

	t.Run("deletes resources and locks", func(t *testing.T) {
		t.Parallel()

		svc := &stubResourceService{}
		router := newTestRouter(nil, svc)
		for _, target := range []string{"/resources/court-a", "/locks/lock-1"} {
			rec := serve(t, router, http.MethodDelete, target, "")
			if rec.Code != http.StatusNoContent {
				t.Fatalf("%s: expected 204, got %d", target, rec.Code)
			}
		}
		if strings.Join(svc.deleted, ",") != "resource:court-a,lock:lock-1" {
			t.Fatalf("unexpected deletions %v", svc.deleted)
		}
	})

	t.Run("maps forbidden", func(t *testing.T) {
		t.Parallel()

		svc := &stubResourceService{err: errors.Join(application.ErrUnauthorized)}
		rec := serve(t, newTestRouter(nil, svc), http.MethodDelete, "/locks/lock-1", "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	healthy := NewRouter(RouterConfig{})
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	failing := NewRouter(RouterConfig{Health: func(context.Context) error { return errors.New("db down") }})
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
