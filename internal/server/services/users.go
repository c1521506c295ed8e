// Package services contains the sync pipeline's business logic: the single
// user upsert, lookups across the identity provider and the backup store, and
// bulk reconciliation.
package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/usersync/internal/common"
	"github.com/dmitrijs2005/usersync/internal/dbx"
	"github.com/dmitrijs2005/usersync/internal/logging"
	"github.com/dmitrijs2005/usersync/internal/server/backup"
	"github.com/dmitrijs2005/usersync/internal/server/identity"
	"github.com/dmitrijs2005/usersync/internal/server/models"
	"github.com/dmitrijs2005/usersync/internal/server/repositories/repomanager"
)

// Lookup sources.
const (
	FromIdentity = "identity"
	FromBackup   = "backup"
)

// UserRecord is a user as returned by the lookups, tagged with the store that
// answered.
type UserRecord struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Source string `json:"source"`
}

// UserService writes single users to the backup store and resolves users
// from the identity provider with the backup store as fallback.
type UserService struct {
	backup      *backup.Client
	repomanager repomanager.RepositoryManager
	lookup      identity.Lookup
	logger      logging.Logger
}

func NewUserService(client *backup.Client, m repomanager.RepositoryManager, lookup identity.Lookup, logger logging.Logger) *UserService {
	return &UserService{
		backup:      client,
		repomanager: m,
		lookup:      lookup,
		logger:      logger.With("module", "user_service"),
	}
}

// UpsertUser creates or updates the backup row for id. It never returns an
// error: malformed input and store failures are logged and reported as false.
func (s *UserService) UpsertUser(ctx context.Context, id, email string) bool {
	if id == "" || email == "" {
		s.logger.Warn(ctx, "refusing to upsert incomplete user", "id", id, "email", email)
		return false
	}

	err := s.backup.Do(ctx, func(ctx context.Context, db dbx.DBTX) error {
		return s.repomanager.Users(db).Upsert(ctx, id, email)
	})
	if err != nil {
		s.logger.Error(ctx, "failed to upsert user", "id", id, "error", err)
		return false
	}

	s.logger.Debug(ctx, "user upserted", "id", id)
	return true
}

// GetUser resolves id through the identity provider and falls back to the
// backup store when the provider cannot answer.
func (s *UserService) GetUser(ctx context.Context, id string) (*UserRecord, error) {
	if id == "" {
		return nil, common.ErrorValidation
	}
	if s.lookup != nil {
		u, err := s.lookup.GetUser(ctx, id)
		if err == nil {
			return &UserRecord{ID: u.ID, Email: u.Email, Source: FromIdentity}, nil
		}
		s.logger.Warn(ctx, "identity lookup failed, using backup store", "id", id, "error", err)
	}
	return s.fromBackup(ctx, func(ctx context.Context, db dbx.DBTX) (*models.User, error) {
		return s.repomanager.Users(db).GetByID(ctx, id)
	})
}

// FindUserByEmail is GetUser keyed by email.
func (s *UserService) FindUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	if email == "" {
		return nil, common.ErrorValidation
	}
	if s.lookup != nil {
		u, err := s.lookup.GetUserByEmail(ctx, email)
		if err == nil {
			return &UserRecord{ID: u.ID, Email: u.Email, Source: FromIdentity}, nil
		}
		s.logger.Warn(ctx, "identity lookup failed, using backup store", "email", email, "error", err)
	}
	return s.fromBackup(ctx, func(ctx context.Context, db dbx.DBTX) (*models.User, error) {
		return s.repomanager.Users(db).GetByEmail(ctx, email)
	})
}

func (s *UserService) fromBackup(ctx context.Context, get func(context.Context, dbx.DBTX) (*models.User, error)) (*UserRecord, error) {
	var u *models.User
	err := s.backup.Do(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var err error
		u, err = get(ctx, db)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return &UserRecord{ID: u.ID, Email: u.Email, Source: FromBackup}, nil
}
