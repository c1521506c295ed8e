package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/usersync/internal/common"
	"github.com/dmitrijs2005/usersync/internal/server/auth"
	"github.com/dmitrijs2005/usersync/internal/server/config"
	"github.com/dmitrijs2005/usersync/internal/server/repositories/metadata"
)

// writeAdminToken signs an admin token with the configured secret.
func writeAdminToken(w io.Writer, cfg *config.Config, subject string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: token ttl must be positive", common.ErrorValidation)
	}
	if cfg.SecretKey == "" {
		return errors.New("secret key is empty")
	}
	tok, err := auth.GenerateToken(subject, auth.RoleAdmin, []byte(cfg.SecretKey), ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}

// resetCheckpoint removes the last successful sync time stored at path.
func resetCheckpoint(ctx context.Context, path string) error {
	db, err := metadata.Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	return metadata.NewCheckpointStore(metadata.NewSQLiteRepository(db)).Reset(ctx)
}
