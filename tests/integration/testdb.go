// Package integration runs the SchoolPay pipeline against a real PostgreSQL
// started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/schoolerp/backend/internal/infrastructure/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// One migrated container is shared by every NewSharedTestDB caller in the package
var shared struct {
	mu        sync.Mutex
	container testcontainers.Container
	dsn       string
}

// TestDB is a migrated PostgreSQL database plus row helpers for fixtures
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	DSN   string
	t     *testing.T
}

// NewTestDB starts a dedicated container, terminated when t finishes.
// Use it when a test needs a schema nobody else has written to.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	container, dsn := startPostgres(t, "schoolpay_test")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})
	return openTestDB(t, dsn, true)
}

// NewSharedTestDB connects to the package-wide container, starting and
// migrating it on first use. Callers clean up with CleanTables.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	shared.mu.Lock()
	defer shared.mu.Unlock()

	migrate := false
	if shared.container == nil {
		shared.container, shared.dsn = startPostgres(t, "schoolpay_shared_test")
		migrate = true
	}
	return openTestDB(t, shared.dsn, migrate)
}

// CleanupSharedContainer terminates the shared container; TestMain calls it
func CleanupSharedContainer() {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = shared.container.Terminate(ctx)
	shared.container, shared.dsn = nil, ""
}

func startPostgres(t *testing.T, database string) (testcontainers.Container, string) {
	t.Helper()

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase(database),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")
	return container, dsn
}

func openTestDB(t *testing.T, dsn string, migrate bool) *TestDB {
	t.Helper()

	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(level)})
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if migrate {
		applyMigrations(t, dsn)
	}
	return &TestDB{DB: db, SqlDB: sqlDB, DSN: dsn, t: t}
}

// applyMigrations runs the repository migrations on their own connection,
// since closing the migrator closes the connection it was given.
func applyMigrations(t *testing.T, dsn string) {
	t.Helper()

	dir := migrationsDir()
	require.NotEmpty(t, dir, "Could not find migrations directory")

	conn, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	m, err := migration.New(conn, dir, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	defer m.Close()
	require.NoError(t, m.Up(), "Failed to run migrations")
}

// migrationsDir walks up from this file to the repository's migrations/
func migrationsDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	for dir := filepath.Dir(file); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return ""
}

// CleanTables empties every application table, keeping schema_migrations
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	err := tdb.DB.Exec(`DO $$
		DECLARE r RECORD;
		BEGIN
			FOR r IN SELECT tablename FROM pg_tables
				WHERE schemaname = 'public' AND tablename <> 'schema_migrations'
			LOOP
				EXECUTE 'TRUNCATE TABLE ' || quote_ident(r.tablename) || ' CASCADE';
			END LOOP;
		END $$`).Error
	require.NoError(tdb.t, err, "Failed to truncate tables")
}

// CreateTestStudent inserts an active student and returns its ID
func (tdb *TestDB) CreateTestStudent(tenantID uuid.UUID, name, admissionNumber, paymentCode string) uuid.UUID {
	tdb.t.Helper()

	id := uuid.New()
	err := tdb.DB.Exec(`
		INSERT INTO students (id, tenant_id, full_name, admission_number, schoolpay_payment_code, is_active)
		VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), TRUE)
	`, id, tenantID, name, admissionNumber, paymentCode).Error
	require.NoError(tdb.t, err, "Failed to create test student")
	return id
}

// CreateTestFee inserts an unpaid fee for a student and returns its ID
func (tdb *TestDB) CreateTestFee(tenantID, studentID uuid.UUID, total decimal.Decimal) uuid.UUID {
	tdb.t.Helper()

	id := uuid.New()
	err := tdb.DB.Exec(`
		INSERT INTO student_fees (id, tenant_id, student_id, total_amount, amount_paid, balance, status)
		VALUES (?, ?, ?, ?, 0, ?, 'pending')
	`, id, tenantID, studentID, total, total).Error
	require.NoError(tdb.t, err, "Failed to create test fee")
	return id
}

// FeeState reads back a fee's paid amount, balance and status
func (tdb *TestDB) FeeState(feeID uuid.UUID) (paid, balance decimal.Decimal, status string) {
	tdb.t.Helper()

	var row struct {
		AmountPaid decimal.Decimal
		Balance    decimal.Decimal
		Status     string
	}
	err := tdb.DB.Raw(`SELECT amount_paid, balance, status FROM student_fees WHERE id = ?`, feeID).Scan(&row).Error
	require.NoError(tdb.t, err, "Failed to read fee")
	return row.AmountPaid, row.Balance, row.Status
}

// CountRows counts rows in table matching the optional where clause
func (tdb *TestDB) CountRows(table, where string, args ...any) int64 {
	tdb.t.Helper()

	query := tdb.DB.Table(table)
	if where != "" {
		query = query.Where(where, args...)
	}
	var n int64
	require.NoError(tdb.t, query.Count(&n).Error, "Failed to count rows in %s", table)
	return n
}
