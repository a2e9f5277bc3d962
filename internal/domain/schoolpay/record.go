package schoolpay

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind tags a provider record as a school fee or a supplementary fee.
type TransactionKind string

const (
	KindSchoolFees TransactionKind = "SCHOOL_FEES"
	KindOtherFees  TransactionKind = "OTHER_FEES"
)

// IsValid returns true if the kind is recognised
func (k TransactionKind) IsValid() bool {
	return k == KindSchoolFees || k == KindOtherFees
}

// String returns the string representation
func (k TransactionKind) String() string {
	return string(k)
}

// ParseTransactionKind maps the provider's type field to a kind.
// Unknown or empty values are treated as school fees.
func ParseTransactionKind(s string) TransactionKind {
	k := TransactionKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return KindSchoolFees
	}
	return k
}

// NoteUnreadableAmount is stored on transactions whose amount could not be parsed
const NoteUnreadableAmount = "Payment amount could not be read"

// PaymentRecord is one payment as SchoolPay reports it, on both the webhook
// and the sync API.
type PaymentRecord struct {
	ReceiptNumber               string          `json:"schoolpayReceiptNumber"`
	Amount                      decimal.Decimal `json:"amount"`
	StudentName                 string          `json:"studentName"`
	StudentPaymentCode          string          `json:"studentPaymentCode"`
	StudentRegistrationNumber   string          `json:"studentRegistrationNumber"`
	StudentClass                string          `json:"studentClass"`
	SourcePaymentChannel        string          `json:"sourcePaymentChannel"`
	SettlementBankCode          string          `json:"settlementBankCode"`
	SourceChannelTransactionID  string          `json:"sourceChannelTransactionId"`
	PaymentDateAndTime          string          `json:"paymentDateAndTime"`
	SupplementaryFeeDescription string          `json:"supplementaryFeeDescription,omitempty"`

	// AmountUnreadable is set when the amount was missing or not a number.
	// Amount is zero in that case.
	AmountUnreadable bool `json:"-"`
}

// UnmarshalJSON decodes a provider record without failing on field types.
// Identifiers may arrive as numbers and amounts as grouped strings
// ("50,000", "UGX 50,000"), so every field is read leniently. Only a value
// that is not a JSON object is an error.
func (r *PaymentRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errors.New("payment record is null")
	}

	*r = PaymentRecord{
		ReceiptNumber:               textField(fields["schoolpayReceiptNumber"]),
		StudentName:                 textField(fields["studentName"]),
		StudentPaymentCode:          textField(fields["studentPaymentCode"]),
		StudentRegistrationNumber:   textField(fields["studentRegistrationNumber"]),
		StudentClass:                textField(fields["studentClass"]),
		SourcePaymentChannel:        textField(fields["sourcePaymentChannel"]),
		SettlementBankCode:          textField(fields["settlementBankCode"]),
		SourceChannelTransactionID:  textField(fields["sourceChannelTransactionId"]),
		PaymentDateAndTime:          textField(fields["paymentDateAndTime"]),
		SupplementaryFeeDescription: textField(fields["supplementaryFeeDescription"]),
	}
	amount, ok := ParseAmount(fields["amount"])
	r.Amount = amount
	r.AmountUnreadable = !ok
	return nil
}

// textField renders a scalar JSON value as text. Objects, arrays and null
// read as empty.
func textField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

// ParseAmount reads a provider amount given as a JSON number or string.
// Grouping commas, spaces and a leading UGX are ignored. ok is false when
// nothing usable was sent, and the amount is then zero.
func ParseAmount(raw json.RawMessage) (amount decimal.Decimal, ok bool) {
	text := textField(raw)
	text = strings.TrimSpace(text)
	if len(text) >= 3 && strings.EqualFold(text[:3], "UGX") {
		text = text[3:]
	}
	text = strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(text)
	if text == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Normalize trims identifiers so that matching is not defeated by stray whitespace.
func (r *PaymentRecord) Normalize() {
	r.ReceiptNumber = strings.TrimSpace(r.ReceiptNumber)
	r.StudentPaymentCode = strings.TrimSpace(r.StudentPaymentCode)
	r.StudentRegistrationNumber = strings.TrimSpace(r.StudentRegistrationNumber)
}

// MatchKeys returns the identifiers used for student matching
func (r PaymentRecord) MatchKeys() MatchKeys {
	return MatchKeys{
		PaymentCode:        r.StudentPaymentCode,
		RegistrationNumber: r.StudentRegistrationNumber,
	}
}

// TaggedRecord is a provider record with its kind fixed at ingestion and the
// verbatim JSON it was decoded from.
type TaggedRecord struct {
	Kind   TransactionKind
	Record PaymentRecord
	Raw    json.RawMessage
}

var paymentTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParsePaymentTime parses the provider's local payment timestamp in loc.
// It returns nil when the value is empty or in an unknown format.
func ParsePaymentTime(value string, loc *time.Location) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range paymentTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return &t
		}
	}
	return nil
}
