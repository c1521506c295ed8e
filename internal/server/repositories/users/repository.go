package users

import (
	"context"

	"github.com/dmitrijs2005/usersync/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, id, email string) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
}
