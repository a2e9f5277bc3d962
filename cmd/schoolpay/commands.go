package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	appschoolpay "github.com/schoolerp/backend/internal/application/schoolpay"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/infrastructure/auth"
)

var errUsage = errors.New("usage")

type syncOptions struct {
	TenantID uuid.UUID
	Date     string
	From     string
	To       string
}

type configureOptions struct {
	TenantID      uuid.UUID
	SchoolCode    string
	Secret        string
	AutoReconcile bool
	Webhook       bool
}

type tokenOptions struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// uuidFlag parses a required UUID flag value
type uuidFlag struct {
	value *uuid.UUID
}

func (f uuidFlag) String() string {
	if f.value == nil || *f.value == uuid.Nil {
		return ""
	}
	return f.value.String()
}

func (f uuidFlag) Set(s string) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid UUID %q", s)
	}
	*f.value = id
	return nil
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func parseSyncFlags(args []string, out io.Writer) (*syncOptions, error) {
	opts := &syncOptions{}
	fs := newFlagSet("sync", out)
	fs.Var(uuidFlag{&opts.TenantID}, "tenant", "Tenant ID (required)")
	fs.StringVar(&opts.Date, "date", "", "Single day to sync, YYYY-MM-DD")
	fs.StringVar(&opts.From, "from", "", "Range start, YYYY-MM-DD")
	fs.StringVar(&opts.To, "to", "", "Range end, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.TenantID == uuid.Nil {
		return nil, fmt.Errorf("%w: -tenant is required", errUsage)
	}
	return opts, nil
}

func parseConfigureFlags(args []string, out io.Writer) (*configureOptions, error) {
	opts := &configureOptions{}
	fs := newFlagSet("configure", out)
	fs.Var(uuidFlag{&opts.TenantID}, "tenant", "Tenant ID (required)")
	fs.StringVar(&opts.SchoolCode, "school-code", "", "SchoolPay school code (required)")
	fs.StringVar(&opts.Secret, "secret", "", "SchoolPay API secret (required)")
	fs.BoolVar(&opts.AutoReconcile, "auto-reconcile", true, "Reconcile matched payments on ingest")
	fs.BoolVar(&opts.Webhook, "webhook", true, "Accept webhook notifications")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch {
	case opts.TenantID == uuid.Nil:
		return nil, fmt.Errorf("%w: -tenant is required", errUsage)
	case opts.SchoolCode == "" || opts.Secret == "":
		return nil, fmt.Errorf("%w: -school-code and -secret are required", errUsage)
	}
	return opts, nil
}

func parseTokenFlags(args []string, out io.Writer) (*tokenOptions, error) {
	opts := &tokenOptions{}
	fs := newFlagSet("token", out)
	fs.Var(uuidFlag{&opts.TenantID}, "tenant", "Tenant ID (required)")
	fs.Var(uuidFlag{&opts.UserID}, "user", "User ID (required)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.TenantID == uuid.Nil || opts.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: -tenant and -user are required", errUsage)
	}
	return opts, nil
}

type syncer interface {
	Sync(ctx context.Context, req appschoolpay.SyncRequest) (*appschoolpay.SyncResult, error)
}

type configurer interface {
	Configure(ctx context.Context, in appschoolpay.ConfigureInput) (*domain.Settings, error)
}

type tokenIssuer interface {
	GenerateAccessToken(tenantID, userID uuid.UUID) (*auth.AccessToken, error)
}

func runSync(ctx context.Context, s syncer, opts *syncOptions, out io.Writer) error {
	result, err := s.Sync(ctx, appschoolpay.SyncRequest{
		TenantID: opts.TenantID,
		Date:     opts.Date,
		FromDate: opts.From,
		ToDate:   opts.To,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, result.Message)
	fmt.Fprintf(out, "sync_id=%s total=%d inserted=%d skipped=%d auto_reconciled=%d\n",
		result.SyncID, result.Total, result.Inserted, result.Skipped, result.AutoReconciled)
	if result.ArchiveKey != "" {
		fmt.Fprintf(out, "archived to %s\n", result.ArchiveKey)
	}
	return nil
}

func runConfigure(ctx context.Context, c configurer, opts *configureOptions, out io.Writer) error {
	settings, err := c.Configure(ctx, appschoolpay.ConfigureInput{
		TenantID:       opts.TenantID,
		SchoolCode:     opts.SchoolCode,
		APISecret:      opts.Secret,
		WebhookEnabled: opts.Webhook,
		AutoReconcile:  opts.AutoReconcile,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "tenant=%s school_code=%s api_secret=%s webhook=%t auto_reconcile=%t\n",
		settings.TenantID, settings.SchoolCode, settings.MaskedSecret(),
		settings.WebhookEnabled, settings.AutoReconcile)
	return nil
}

func runToken(issuer tokenIssuer, opts *tokenOptions, out io.Writer) error {
	token, err := issuer.GenerateAccessToken(opts.TenantID, opts.UserID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token.Token)
	fmt.Fprintf(out, "expires_at=%s\n", token.ExpiresAt.Format(time.RFC3339))
	return nil
}
