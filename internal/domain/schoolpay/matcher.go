package schoolpay

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/schoolerp/backend/internal/domain/shared"
)

// MatchRule names the identifier that produced a match.
type MatchRule string

const (
	MatchByPaymentCode        MatchRule = "payment_code"
	MatchByRegistrationNumber MatchRule = "registration_number"
)

// MatchKeys are the student identifiers carried by a provider record.
type MatchKeys struct {
	PaymentCode        string
	RegistrationNumber string
}

// Match is a resolved student and the rule that found it.
type Match struct {
	Student *Student
	Rule    MatchRule
}

type matchRule struct {
	name   MatchRule
	key    func(MatchKeys) string
	lookup func(ctx context.Context, tenantID uuid.UUID, value string) (*Student, error)
}

// StudentMatcher tries each identifier rule in order and stops at the first hit.
// Rules whose identifier is absent are skipped. There is no name matching.
type StudentMatcher struct {
	rules []matchRule
}

// NewStudentMatcher creates a matcher that tries payment code, then registration number.
func NewStudentMatcher(students StudentRepository) *StudentMatcher {
	return &StudentMatcher{
		rules: []matchRule{
			{
				name:   MatchByPaymentCode,
				key:    func(k MatchKeys) string { return k.PaymentCode },
				lookup: students.FindActiveByPaymentCode,
			},
			{
				name:   MatchByRegistrationNumber,
				key:    func(k MatchKeys) string { return k.RegistrationNumber },
				lookup: students.FindActiveByAdmissionNumber,
			},
		},
	}
}

// Match resolves keys to an active student in tenantID.
// A miss is (nil, nil). Only lookup failures are errors.
func (m *StudentMatcher) Match(ctx context.Context, tenantID uuid.UUID, keys MatchKeys) (*Match, error) {
	for _, rule := range m.rules {
		value := rule.key(keys)
		if value == "" {
			continue
		}
		student, err := rule.lookup(ctx, tenantID, value)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &Match{Student: student, Rule: rule.name}, nil
	}
	return nil, nil
}

// MatchAnyTenant resolves keys across all tenants. The webhook uses it to
// discover which school a payment belongs to.
func (m *StudentMatcher) MatchAnyTenant(ctx context.Context, keys MatchKeys) (*Match, error) {
	return m.Match(ctx, uuid.Nil, keys)
}
