package adapters

import (
	"context"

	"atendimento_backend/internal/attendance/service"

	"github.com/google/uuid"
)

// AttendanceContactChecker adapts the attendance service for use by the calls
// domain. It implements the calls service.ContactChecker interface.
type AttendanceContactChecker struct {
	svc *service.Service
}

// NewAttendanceContactChecker creates a new adapter wrapping the routing engine.
func NewAttendanceContactChecker(svc *service.Service) *AttendanceContactChecker {
	return &AttendanceContactChecker{svc: svc}
}

// Exists verifies the contact is known; the underlying lookup returns a typed
// not-found error that the calls handlers map to 404.
func (a *AttendanceContactChecker) Exists(ctx context.Context, contactID uuid.UUID) error {
	_, err := a.svc.GetContact(ctx, contactID)
	return err
}
