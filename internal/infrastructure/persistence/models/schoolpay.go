package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SchoolPaySettingsModel is the persistence model for per-tenant SchoolPay settings.
// Booleans carry no gorm default so that an explicit false is written.
type SchoolPaySettingsModel struct {
	BaseModel
	TenantID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_schoolpay_settings_tenant"`
	SchoolCode     string    `gorm:"type:varchar(50);not null"`
	APISecret      string    `gorm:"column:api_secret;type:varchar(255);not null"`
	WebhookEnabled bool      `gorm:"not null"`
	AutoReconcile  bool      `gorm:"not null"`
	LastSyncAt     *time.Time
}

// TableName returns the table name for GORM
func (SchoolPaySettingsModel) TableName() string {
	return "schoolpay_settings"
}

// ToDomain converts the model to a domain Settings
func (m *SchoolPaySettingsModel) ToDomain() *schoolpay.Settings {
	return &schoolpay.Settings{
		BaseEntity:     m.entity(),
		TenantID:       m.TenantID,
		SchoolCode:     m.SchoolCode,
		APISecret:      m.APISecret,
		WebhookEnabled: m.WebhookEnabled,
		AutoReconcile:  m.AutoReconcile,
		LastSyncAt:     m.LastSyncAt,
	}
}

// SchoolPaySettingsModelFromDomain converts domain Settings to a model
func SchoolPaySettingsModelFromDomain(s *schoolpay.Settings) *SchoolPaySettingsModel {
	m := &SchoolPaySettingsModel{
		TenantID:       s.TenantID,
		SchoolCode:     s.SchoolCode,
		APISecret:      s.APISecret,
		WebhookEnabled: s.WebhookEnabled,
		AutoReconcile:  s.AutoReconcile,
		LastSyncAt:     s.LastSyncAt,
	}
	m.setEntity(s.BaseEntity)
	return m
}

// SchoolPayTransactionModel is the ledger row for one provider payment
type SchoolPayTransactionModel struct {
	BaseModel
	TenantID                    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_schoolpay_txn_tenant_receipt,priority:1"`
	ExternalReceiptNumber       string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_schoolpay_txn_tenant_receipt,priority:2"`
	Amount                      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	StudentName                 string          `gorm:"type:varchar(200)"`
	StudentPaymentCode          string          `gorm:"type:varchar(50);index"`
	StudentRegistrationNumber   string          `gorm:"type:varchar(50)"`
	StudentClass                string          `gorm:"type:varchar(100)"`
	PaymentChannel              string          `gorm:"type:varchar(100)"`
	SettlementBank              string          `gorm:"type:varchar(100)"`
	ProviderTransactionID       string          `gorm:"type:varchar(100)"`
	PaymentTimestamp            *time.Time      `gorm:"index"`
	TransactionType             string          `gorm:"type:varchar(20);not null"`
	SupplementaryFeeDescription string          `gorm:"type:varchar(255)"`
	RawPayload                  datatypes.JSON  `gorm:"type:jsonb;not null"`
	Source                      string          `gorm:"type:varchar(20);not null"`
	MatchedStudentID            *uuid.UUID      `gorm:"type:uuid;index"`
	ReconciliationStatus        string          `gorm:"type:varchar(20);not null;index"`
	LinkedFeePaymentID          *uuid.UUID      `gorm:"type:uuid"`
	ReconciledAt                *time.Time
	ReconciliationNotes         string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SchoolPayTransactionModel) TableName() string {
	return "schoolpay_transactions"
}

// ToDomain converts the model to a domain Transaction
func (m *SchoolPayTransactionModel) ToDomain() *schoolpay.Transaction {
	return &schoolpay.Transaction{
		TenantEntity:                m.tenantEntity(m.TenantID),
		ReceiptNumber:               m.ExternalReceiptNumber,
		Amount:                      m.Amount,
		StudentName:                 m.StudentName,
		StudentPaymentCode:          m.StudentPaymentCode,
		StudentRegistrationNumber:   m.StudentRegistrationNumber,
		StudentClass:                m.StudentClass,
		PaymentChannel:              m.PaymentChannel,
		SettlementBank:              m.SettlementBank,
		ProviderTransactionID:       m.ProviderTransactionID,
		PaymentTimestamp:            m.PaymentTimestamp,
		Kind:                        schoolpay.TransactionKind(m.TransactionType),
		SupplementaryFeeDescription: m.SupplementaryFeeDescription,
		RawPayload:                  json.RawMessage(m.RawPayload),
		Source:                      schoolpay.Source(m.Source),
		MatchedStudentID:            m.MatchedStudentID,
		Status:                      schoolpay.ReconciliationStatus(m.ReconciliationStatus),
		LinkedFeePaymentID:          m.LinkedFeePaymentID,
		ReconciledAt:                m.ReconciledAt,
		Notes:                       m.ReconciliationNotes,
	}
}

// SchoolPayTransactionModelFromDomain converts a domain Transaction to a model
func SchoolPayTransactionModelFromDomain(t *schoolpay.Transaction) *SchoolPayTransactionModel {
	m := &SchoolPayTransactionModel{
		TenantID:                    t.TenantID,
		ExternalReceiptNumber:       t.ReceiptNumber,
		Amount:                      t.Amount,
		StudentName:                 t.StudentName,
		StudentPaymentCode:          t.StudentPaymentCode,
		StudentRegistrationNumber:   t.StudentRegistrationNumber,
		StudentClass:                t.StudentClass,
		PaymentChannel:              t.PaymentChannel,
		SettlementBank:              t.SettlementBank,
		ProviderTransactionID:       t.ProviderTransactionID,
		PaymentTimestamp:            t.PaymentTimestamp,
		TransactionType:             string(t.Kind),
		SupplementaryFeeDescription: t.SupplementaryFeeDescription,
		RawPayload:                  datatypes.JSON(t.RawPayload),
		Source:                      string(t.Source),
		MatchedStudentID:            t.MatchedStudentID,
		ReconciliationStatus:        string(t.Status),
		LinkedFeePaymentID:          t.LinkedFeePaymentID,
		ReconciledAt:                t.ReconciledAt,
		ReconciliationNotes:         t.Notes,
	}
	m.setEntity(t.BaseEntity)
	return m
}

// StudentModel is the slice of the student registry the matcher reads
type StudentModel struct {
	TenantModel
	FullName             string `gorm:"type:varchar(200);not null"`
	AdmissionNumber      string `gorm:"type:varchar(50);index"`
	SchoolpayPaymentCode string `gorm:"column:schoolpay_payment_code;type:varchar(50);index"`
	IsActive             bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StudentModel) TableName() string {
	return "students"
}

// ToDomain converts the model to a domain Student
func (m *StudentModel) ToDomain() *schoolpay.Student {
	return &schoolpay.Student{
		ID:              m.ID,
		TenantID:        m.TenantID,
		FullName:        m.FullName,
		AdmissionNumber: m.AdmissionNumber,
		PaymentCode:     m.SchoolpayPaymentCode,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
	}
}

// StudentFeeModel is a student's fee balance row
type StudentFeeModel struct {
	TenantModel
	StudentID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	AmountPaid  decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Balance     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Status      string          `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (StudentFeeModel) TableName() string {
	return "student_fees"
}

// ToDomain converts the model to a domain StudentFee
func (m *StudentFeeModel) ToDomain() *schoolpay.StudentFee {
	return &schoolpay.StudentFee{
		ID:          m.ID,
		TenantID:    m.TenantID,
		StudentID:   m.StudentID,
		TotalAmount: m.TotalAmount,
		AmountPaid:  m.AmountPaid,
		Balance:     m.Balance,
		Status:      schoolpay.FeeStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FeePaymentModel is an internal fee payment row
type FeePaymentModel struct {
	BaseModel
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_fee_payments_tenant_receipt,priority:1"`
	StudentID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	StudentFeeID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	PaymentMethod   string          `gorm:"type:varchar(30);not null"`
	ReferenceNumber string          `gorm:"type:varchar(100)"`
	ReceiptNumber   string          `gorm:"type:varchar(110);not null;uniqueIndex:idx_fee_payments_tenant_receipt,priority:2"`
	Notes           string          `gorm:"type:text"`
	PaidAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FeePaymentModel) TableName() string {
	return "fee_payments"
}

// FeePaymentModelFromDomain converts a domain FeePayment to a model
func FeePaymentModelFromDomain(p *schoolpay.FeePayment) *FeePaymentModel {
	m := &FeePaymentModel{
		TenantID:        p.TenantID,
		StudentID:       p.StudentID,
		StudentFeeID:    p.StudentFeeID,
		Amount:          p.Amount,
		PaymentMethod:   p.PaymentMethod,
		ReferenceNumber: p.ReferenceNumber,
		ReceiptNumber:   p.ReceiptNumber,
		Notes:           p.Notes,
		PaidAt:          p.PaidAt,
	}
	m.setEntity(p.BaseEntity)
	return m
}

// AllModels lists every model, for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&SchoolPaySettingsModel{},
		&SchoolPayTransactionModel{},
		&StudentModel{},
		&StudentFeeModel{},
		&FeePaymentModel{},
	}
}
