package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/usersync/internal/dbx"
	"github.com/dmitrijs2005/usersync/internal/server/migrations"
	"github.com/dmitrijs2005/usersync/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	migrationsDir = "."
	dialect       = "pgx"
)

// Postgres builds repositories on top of the pgx stdlib driver.
type Postgres struct{}

func NewPostgresRepositoryManager() RepositoryManager {
	return &Postgres{}
}

func (m *Postgres) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// goose entry points, replaced in tests.
var (
	gooseUp = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return goose.UpContext(ctx, db, dir, opts...)
	}
	gooseVersion = goose.GetDBVersionContext
)

// RunMigrations applies the embedded users schema and returns the resulting
// schema version. Migrations that were skipped on an older deployment are
// applied too.
func (m *Postgres) RunMigrations(ctx context.Context, db *sql.DB) (int64, error) {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUp(ctx, db, migrationsDir, goose.WithAllowMissing()); err != nil {
		return 0, fmt.Errorf("migrate users schema: %w", err)
	}
	v, err := gooseVersion(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}
