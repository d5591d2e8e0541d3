// Package http exposes the reservation and resource services over JSON.
//
// Authentication is handled upstream; the acting club member is taken from the
// X-Club-Member-ID header. The router exposes:
//   - POST /reservations, GET /reservations/{id}, PUT /reservations/{id}:
//     request, read and modify reservations using the reservationDTO payload
//     defined in reservation_handler.go.
//   - POST /reservations/{id}/approve, /reject, /cancel: lifecycle transitions.
//   - GET /resources/{id}/reservations?period=day|week|month&reference=&from=&until=&status=
//   - GET /resources/{id}/conflicts?start=&end=: availability query.
//   - GET /clubs/{id}/resources, POST /clubs/{id}/resources, DELETE /resources/{id}.
//   - GET /resources/{id}/locks, POST /resources/{id}/locks, DELETE /locks/{id}.
//   - GET /healthz: unauthenticated readiness check.
//
// Times are RFC 3339. Booking conflicts share one 409 class; error_code tells
// SLOT_BUSY (mutex) apart from PERIOD_CONFLICT (durable check).
package http
