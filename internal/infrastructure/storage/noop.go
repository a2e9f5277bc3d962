package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	schoolpayapp "github.com/schoolerp/backend/internal/application/schoolpay"
)

// NoopArchive discards responses. It is used when archiving is disabled.
type NoopArchive struct{}

// NewNoopArchive creates a new NoopArchive
func NewNoopArchive() *NoopArchive {
	return &NoopArchive{}
}

var _ schoolpayapp.ResponseArchive = (*NoopArchive)(nil)

// Archive does nothing and returns an empty key
func (NoopArchive) Archive(context.Context, uuid.UUID, uuid.UUID, time.Time, []byte) (string, error) {
	return "", nil
}
