package testfixtures

import (
	"context"
	"testing"

	"github.com/example/club-reservations/internal/application"
	"github.com/example/club-reservations/internal/scheduler"
)

func TestServiceFactoryWiresHarness(t *testing.T) {
	t.Parallel()

	harness := NewSQLiteHarness(t)
	club := SeedClub(t, harness.Store)
	factory := NewServiceFactory()
	svc := factory.NewReservationService(harness, nil)

	start, end := Hours(10, 12)
	res, err := svc.CreateReservation(context.Background(), application.CreateReservationParams{
		ClubMemberID: club.User.ID,
		Input: application.ReservationInput{
			ResourceID: club.Resource.ID,
			Title:      "Practice",
			Period:     scheduler.Period{Start: start, End: end},
		},
	})
	if err != nil {
		t.Fatalf("CreateReservation returned error: %v", err)
	}
	if res.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", res.ID)
	}
	if !res.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), res.CreatedAt)
	}
	if len(factory.Notifications.ByReservation(res.ID)) == 0 {
		t.Fatalf("expected a recorded notification")
	}
}
