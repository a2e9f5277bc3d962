package schoolpay

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SyncDateLayout is the provider's date format
const SyncDateLayout = "2006-01-02"

// SyncWindow is either a single day or an inclusive date range.
type SyncWindow struct {
	Date     string
	FromDate string
	ToDate   string
}

// NewSyncWindow validates the request dates. A single date wins when both
// forms are supplied.
func NewSyncWindow(date, fromDate, toDate string) (SyncWindow, error) {
	date = strings.TrimSpace(date)
	fromDate = strings.TrimSpace(fromDate)
	toDate = strings.TrimSpace(toDate)

	if date != "" {
		if _, err := time.Parse(SyncDateLayout, date); err != nil {
			return SyncWindow{}, fmt.Errorf("%w: date %q", ErrInvalidSyncDate, date)
		}
		return SyncWindow{Date: date}, nil
	}

	if fromDate == "" || toDate == "" {
		return SyncWindow{}, ErrSyncDatesRequired
	}
	from, err := time.Parse(SyncDateLayout, fromDate)
	if err != nil {
		return SyncWindow{}, fmt.Errorf("%w: fromDate %q", ErrInvalidSyncDate, fromDate)
	}
	to, err := time.Parse(SyncDateLayout, toDate)
	if err != nil {
		return SyncWindow{}, fmt.Errorf("%w: toDate %q", ErrInvalidSyncDate, toDate)
	}
	if to.Before(from) {
		return SyncWindow{}, fmt.Errorf("%w: toDate before fromDate", ErrInvalidSyncDate)
	}
	return SyncWindow{FromDate: fromDate, ToDate: toDate}, nil
}

// IsRange reports whether the window spans a date range
func (w SyncWindow) IsRange() bool {
	return w.Date == ""
}

// HashDate is the date that goes into the request hash
func (w SyncWindow) HashDate() string {
	if w.IsRange() {
		return w.FromDate
	}
	return w.Date
}

// String returns a log-friendly form
func (w SyncWindow) String() string {
	if w.IsRange() {
		return w.FromDate + ".." + w.ToDate
	}
	return w.Date
}

// ProviderBatch is one provider response: school-fee records followed by
// supplementary-fee records, each tagged, plus the raw body for archiving.
type ProviderBatch struct {
	Records []TaggedRecord
	Body    []byte
}

// Provider fetches transactions from SchoolPay. A non-zero return code is
// reported as a *ProviderError.
type Provider interface {
	FetchTransactions(ctx context.Context, creds Credentials, window SyncWindow) (*ProviderBatch, error)
}
