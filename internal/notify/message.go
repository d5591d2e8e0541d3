// Package notify composes reservation messages and delivers them to club members.
package notify

import (
	"fmt"
	"time"

	"github.com/example/club-reservations/internal/reservation"
	"github.com/example/club-reservations/internal/scheduler"
)

// Message is a rendered-on-demand notification about one reservation.
type Message struct {
	Template      reservation.Template
	ReservationID string
	ResourceName  string
	Title         string
	Period        scheduler.Period
	Status        reservation.Status
}

type catalogEntry struct {
	subject string
	lead    string
}

var catalog = map[reservation.Template]catalogEntry{
	reservation.TemplateRequested:       {subject: "Reservation requested", lead: "A new reservation is waiting for approval."},
	reservation.TemplateApproved:        {subject: "Reservation approved", lead: "Your reservation has been approved."},
	reservation.TemplateRejected:        {subject: "Reservation rejected", lead: "Your reservation has been rejected."},
	reservation.TemplateCanceled:        {subject: "Reservation canceled", lead: "This reservation has been canceled."},
	reservation.TemplateUpdateRequested: {subject: "Reservation change requested", lead: "A changed reservation is waiting for approval."},
	reservation.TemplateUpdated:         {subject: "Reservation updated", lead: "This reservation has been updated."},
	reservation.TemplateInvited:         {subject: "You are invited", lead: "You have been invited to a reservation."},
	reservation.TemplateStartSoon:       {subject: "Reservation starting soon", lead: "Your reservation starts soon."},
	reservation.TemplateEndSoon:         {subject: "Reservation ending soon", lead: "Your reservation ends soon."},
	reservation.TemplateReturnPending:   {subject: "Please return the resource", lead: "Your reservation has ended. Please return the resource."},
}

// Subject renders the message subject line.
func (m Message) Subject() string {
	entry, ok := catalog[m.Template]
	if !ok {
		return fmt.Sprintf("[%s] %s", m.Template, m.Title)
	}
	return fmt.Sprintf("%s: %s", entry.subject, m.Title)
}

// Body renders a plain-text body with times shown in loc.
func (m Message) Body(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	lead := catalog[m.Template].lead
	const layout = "2006-01-02 15:04 MST"
	return fmt.Sprintf("%s\n\nTitle: %s\nResource: %s\nFrom: %s\nUntil: %s\nStatus: %s\nReservation: %s\n",
		lead,
		m.Title,
		m.ResourceName,
		m.Period.Start.In(loc).Format(layout),
		m.Period.End.In(loc).Format(layout),
		m.Status,
		m.ReservationID,
	)
}
