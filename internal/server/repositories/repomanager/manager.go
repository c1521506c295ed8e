// Package repomanager hands out repositories bound to a backup store handle
// and owns the backup schema.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/usersync/internal/dbx"
	"github.com/dmitrijs2005/usersync/internal/server/repositories/users"
)

// RepositoryManager is the factory the services depend on. Users accepts
// either the pool or an open transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) (int64, error)
	Users(db dbx.DBTX) users.Repository
}
