// Command schoolpay is the operator CLI for SchoolPay ingestion. It runs the
// same services as the HTTP server, so a cron entry can trigger syncs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schoolerp/backend/internal/bootstrap"
	"github.com/schoolerp/backend/internal/infrastructure/auth"
	"github.com/schoolerp/backend/internal/infrastructure/config"
	"github.com/schoolerp/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			printUsage()
			os.Exit(2)
		}
		log.Error("Command failed", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, command string, args []string) error {
	switch command {
	case "token":
		opts, err := parseTokenFlags(args, os.Stderr)
		if err != nil {
			return err
		}
		return runToken(auth.NewJWTService(cfg.JWT), opts, os.Stdout)

	case "sync":
		opts, err := parseSyncFlags(args, os.Stderr)
		if err != nil {
			return err
		}
		app, err := bootstrap.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeApp(app)
		return runSync(ctx, app.Sync, opts, os.Stdout)

	case "configure":
		opts, err := parseConfigureFlags(args, os.Stderr)
		if err != nil {
			return err
		}
		app, err := bootstrap.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeApp(app)
		return runConfigure(ctx, app.Settings, opts, os.Stdout)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func closeApp(app *bootstrap.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.Close(ctx)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `SchoolPay operator CLI

Usage:
  schoolpay <command> [flags]

Commands:
  sync       Pull transactions from SchoolPay and ledger new ones
             -tenant <uuid> (-date YYYY-MM-DD | -from YYYY-MM-DD -to YYYY-MM-DD)
  configure  Save a tenant's SchoolPay credentials
             -tenant <uuid> -school-code <code> -secret <secret>
             [-auto-reconcile=true] [-webhook=true]
  token      Issue an access token for the HTTP API
             -tenant <uuid> -user <uuid>

Configuration is read from config.toml and SCHOOLPAY_* environment variables.

Examples:
  # Nightly cron sync of yesterday
  schoolpay sync -tenant 3f1c... -date 2024-03-01

  # Backfill a range
  schoolpay sync -tenant 3f1c... -from 2024-03-01 -to 2024-03-07`)
}
