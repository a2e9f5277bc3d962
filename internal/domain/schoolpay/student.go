package schoolpay

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Student is the read model the matcher needs from the student registry.
type Student struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	FullName        string
	AdmissionNumber string
	PaymentCode     string
	IsActive        bool
	CreatedAt       time.Time
}

// StudentRepository looks up active students by stable identifiers.
// Passing uuid.Nil as tenantID searches every tenant and returns the
// earliest-created student. Both methods return shared.ErrNotFound on a miss.
type StudentRepository interface {
	FindActiveByPaymentCode(ctx context.Context, tenantID uuid.UUID, paymentCode string) (*Student, error)
	FindActiveByAdmissionNumber(ctx context.Context, tenantID uuid.UUID, admissionNumber string) (*Student, error)
}
