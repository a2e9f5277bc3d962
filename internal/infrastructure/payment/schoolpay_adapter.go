package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// maxResponseBytes caps a provider response body
const maxResponseBytes = 32 << 20

// SchoolPayAdapter implements schoolpay.Provider against the SchoolPay sync API
type SchoolPayAdapter struct {
	config     *SchoolPayConfig
	httpClient *http.Client
}

// NewSchoolPayAdapter creates a new SchoolPay adapter
func NewSchoolPayAdapter(config *SchoolPayConfig) (*SchoolPayAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SchoolPayAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// WithHTTPClient swaps the HTTP client, for tests and custom transports
func (a *SchoolPayAdapter) WithHTTPClient(client *http.Client) *SchoolPayAdapter {
	a.httpClient = client
	return a
}

// FetchTransactions calls the single-date or range endpoint for window and
// returns school-fee records followed by supplementary-fee records.
func (a *SchoolPayAdapter) FetchTransactions(ctx context.Context, creds schoolpay.Credentials, window schoolpay.SyncWindow) (*schoolpay.ProviderBatch, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "schoolpay_provider", "fetch_transactions",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrSyncWindow, window.String()),
	)
	defer span.End()

	endpoint := a.endpointFor(creds, window)
	body, err := a.doRequest(ctx, endpoint)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	batch, err := decodeSyncResponse(body)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRecordCount, len(batch.Records))
	return batch, nil
}

// endpointFor builds the signed URL. Path segments are escaped individually.
func (a *SchoolPayAdapter) endpointFor(creds schoolpay.Credentials, window schoolpay.SyncWindow) string {
	hash := schoolpay.SyncRequestHash(creds.SchoolCode, window.HashDate(), creds.APISecret)
	code := url.PathEscape(creds.SchoolCode)
	if window.IsRange() {
		return fmt.Sprintf("%s%s/%s/%s/%s/%s", a.config.BaseURL, schoolPayRangePath,
			code, url.PathEscape(window.FromDate), url.PathEscape(window.ToDate), hash)
	}
	return fmt.Sprintf("%s%s/%s/%s/%s", a.config.BaseURL, schoolPaySyncPath,
		code, url.PathEscape(window.Date), hash)
}

func (a *SchoolPayAdapter) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("schoolpay: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schoolpay.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", schoolpay.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", schoolpay.ErrProviderUnavailable, resp.StatusCode)
	}
	return body, nil
}

// decodeSyncResponse turns a provider body into tagged records. A non-zero
// return code fails the whole call.
func decodeSyncResponse(body []byte) (*schoolpay.ProviderBatch, error) {
	var resp schoolPaySyncResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", schoolpay.ErrProviderInvalidResponse, err)
	}
	if resp.ReturnCode != 0 {
		return nil, &schoolpay.ProviderError{ReturnCode: resp.ReturnCode, Message: resp.ReturnMessage}
	}

	records := make([]schoolpay.TaggedRecord, 0, len(resp.Transactions)+len(resp.SupplementaryFeePayments))
	for _, group := range []struct {
		kind schoolpay.TransactionKind
		raw  []json.RawMessage
	}{
		{schoolpay.KindSchoolFees, resp.Transactions},
		{schoolpay.KindOtherFees, resp.SupplementaryFeePayments},
	} {
		for _, raw := range group.raw {
			// A record that is not an object keeps an empty receipt number
			// and is skipped downstream; the rest of the batch still lands.
			var rec schoolpay.PaymentRecord
			_ = json.Unmarshal(raw, &rec)
			rec.Normalize()
			records = append(records, schoolpay.TaggedRecord{Kind: group.kind, Record: rec, Raw: raw})
		}
	}

	return &schoolpay.ProviderBatch{Records: records, Body: body}, nil
}

var _ schoolpay.Provider = (*SchoolPayAdapter)(nil)
