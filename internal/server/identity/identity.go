// Package identity talks to the external identity provider: it enumerates
// accounts page by page, looks single accounts up and delivers auth state
// change notifications.
package identity

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by the disabled provider.
var ErrNotConfigured = errors.New("identity provider not configured")

// Identity is the minimal user record shared by every store.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Valid reports whether both required fields are present.
func (i Identity) Valid() bool {
	return i.ID != "" && i.Email != ""
}

// Page is one slice of a paginated account listing. An empty NextToken
// means the listing is exhausted.
type Page struct {
	Users     []Identity
	NextToken string
}

// Lister enumerates all accounts of the provider.
type Lister interface {
	ListUsers(ctx context.Context, pageSize int, token string) (*Page, error)
}

// Lookup resolves single accounts. Missing accounts yield common.ErrorNotFound.
type Lookup interface {
	GetUser(ctx context.Context, id string) (*Identity, error)
	GetUserByEmail(ctx context.Context, email string) (*Identity, error)
}

// Provider is implemented by FirebaseProvider and Disabled.
type Provider interface {
	Lister
	Lookup
}

// Disabled is a Provider used when no project is configured.
type Disabled struct{}

func (Disabled) ListUsers(context.Context, int, string) (*Page, error) { return nil, ErrNotConfigured }
func (Disabled) GetUser(context.Context, string) (*Identity, error)    { return nil, ErrNotConfigured }
func (Disabled) GetUserByEmail(context.Context, string) (*Identity, error) {
	return nil, ErrNotConfigured
}
