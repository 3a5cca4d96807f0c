//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"placeclaim/migrations"
	id "placeclaim/pkg/domain"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container with migrations applied.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("placeclaim_test"),
		postgres.WithUsername("placeclaim"),
		postgres.WithPassword("placeclaim_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	pc := &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}

	if err := pc.runMigrations(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	return pc
}

// runMigrations executes all *.up.sql files from the embedded migrations.FS in order.
func (p *PostgresContainer) runMigrations(ctx context.Context) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := p.DB.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
	}
	return nil
}

// TruncateTables clears all data from the specified tables.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateModuleTables truncates every table owned by the service.
func (p *PostgresContainer) TruncateModuleTables(ctx context.Context) error {
	return p.TruncateTables(ctx,
		"audit_outbox",
		"claim_audit_log",
		"rate_limit_events",
		"verification_attempts",
		"verified_owners",
		"claims",
		"checkins",
		"places",
		"accounts",
	)
}

// CreateTestAccount inserts an account created at the given time and returns its ID.
func (p *PostgresContainer) CreateTestAccount(ctx context.Context, t testing.TB, createdAt time.Time) id.UserID {
	t.Helper()
	userID := id.UserID(uuid.New())
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO accounts (id, email, created_at) VALUES ($1, $2, $3)
	`, uuid.UUID(userID), "owner-"+uuid.NewString()+"@example.com", createdAt)
	if err != nil {
		t.Fatalf("CreateTestAccount: %v", err)
	}
	return userID
}

// CreateTestPlace inserts a place at the given coordinates and returns its ID.
func (p *PostgresContainer) CreateTestPlace(ctx context.Context, t testing.TB, lat, lng float64, region string) id.PlaceID {
	t.Helper()
	placeID := id.PlaceID(uuid.New())
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO places (id, name, latitude, longitude, region) VALUES ($1, $2, $3, $4, $5)
	`, uuid.UUID(placeID), "Test Place "+uuid.NewString(), lat, lng, region)
	if err != nil {
		t.Fatalf("CreateTestPlace: %v", err)
	}
	return placeID
}
