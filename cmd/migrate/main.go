// Command migrate applies and authors the SQL migrations under ./migrations.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/schoolerp/backend/internal/infrastructure/config"
	"github.com/schoolerp/backend/internal/infrastructure/logger"
	"github.com/schoolerp/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

var errUsage = errors.New("usage")

func main() {
	migrationsPath := flag.String("path", "", "Path to migrations directory (default: ./migrations)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
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

	dir, err := resolveMigrationsPath(*migrationsPath)
	if err != nil {
		log.Fatal("Failed to resolve migrations path", zap.Error(err))
	}
	log.Debug("Migration CLI started", zap.String("command", args[0]), zap.String("migrations_path", dir))

	if err := run(dir, args, log, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			printUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal("Migration command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

// resolveMigrationsPath prefers an explicit path, then ./migrations, then
// the repository layout relative to a built binary in bin/<name>.
func resolveMigrationsPath(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = defaultMigrationsPath
		if _, err := os.Stat(path); err != nil {
			if exe, exeErr := os.Executable(); exeErr == nil {
				candidate := filepath.Join(filepath.Dir(exe), "..", "..", defaultMigrationsPath)
				if _, statErr := os.Stat(candidate); statErr == nil {
					path = candidate
				}
			}
		}
	}
	return filepath.Abs(path)
}

func run(dir string, args []string, log *zap.Logger, out io.Writer) error {
	command, rest := args[0], args[1:]

	// create and list only touch the filesystem
	switch command {
	case "create":
		if len(rest) == 0 {
			return fmt.Errorf("%w: migrate create <name> [description]", errUsage)
		}
		desc := ""
		if len(rest) > 1 {
			desc = rest[1]
		}
		mf, err := migration.CreateMigration(dir, rest[0], desc)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created %s\n  %s\n  %s\n", mf.Version, mf.UpPath, mf.DownPath)
		return nil
	case "list":
		return listMigrations(dir, out)
	}

	step, err := parseStep(command, rest)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, dir, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return step(m, out)
}

type migrationStep func(m *migration.Migrator, out io.Writer) error

// parseStep validates the command and its argument before any database work
func parseStep(command string, rest []string) (migrationStep, error) {
	intArg := func() (int, error) {
		if len(rest) == 0 {
			return 0, fmt.Errorf("%w: migrate %s <n>", errUsage, command)
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", errUsage, rest[0])
		}
		return n, nil
	}

	switch command {
	case "up":
		return func(m *migration.Migrator, _ io.Writer) error { return m.Up() }, nil
	case "down":
		return func(m *migration.Migrator, _ io.Writer) error { return m.Down() }, nil
	case "step":
		n, err := intArg()
		if err != nil {
			return nil, err
		}
		return func(m *migration.Migrator, _ io.Writer) error { return m.Steps(n) }, nil
	case "goto":
		n, err := intArg()
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: version must be positive", errUsage)
		}
		return func(m *migration.Migrator, _ io.Writer) error { return m.GoTo(uint(n)) }, nil
	case "force":
		n, err := intArg()
		if err != nil {
			return nil, err
		}
		return func(m *migration.Migrator, _ io.Writer) error { return m.Force(n) }, nil
	case "version":
		return printVersion, nil
	default:
		return nil, fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printVersion(m *migration.Migrator, out io.Writer) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		fmt.Fprintln(out, "no migrations applied")
		return nil
	}
	fmt.Fprintf(out, "version=%d dirty=%t\n", version, dirty)
	return nil
}

func listMigrations(dir string, out io.Writer) error {
	files, err := migration.ListMigrations(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		suffix := ""
		if !f.HasDown {
			suffix = " (no down)"
		}
		fmt.Fprintf(out, "%06d_%s%s\n", f.Version, f.Name, suffix)
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `SchoolPay database migrations

Usage:
  migrate [-path dir] [-log-level level] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  goto <version>        Migrate to a specific version
  version               Show the applied version
  force <version>       Mark a version as applied without running it
  create <name> [desc]  Write a new up/down file pair
  list                  List migration files

Connection settings come from config.toml and SCHOOLPAY_DATABASE_* variables.

Examples:
  migrate up
  migrate step -1
  migrate create add_sync_runs "Record each provider sync run"`)
}
