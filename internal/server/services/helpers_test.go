package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/usersync/internal/logging"
	"github.com/dmitrijs2005/usersync/internal/server/backup"
	"github.com/dmitrijs2005/usersync/internal/server/identity"
	"github.com/dmitrijs2005/usersync/internal/server/repositories/repomanager"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const upsertRe = `^INSERT INTO users \(id, email\) VALUES \(\$1, \$2\) ON CONFLICT \(id\) DO UPDATE SET email = \$2, updated_at = CURRENT_TIMESTAMP$`

func newMock(t *testing.T) (*backup.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	opts := backup.Options{MaxRetries: 0, BackoffStep: time.Millisecond}
	return backup.NewClient(db, opts, logging.Discard()), mock
}

func newUserService(client *backup.Client, lookup identity.Lookup) *UserService {
	return NewUserService(client, repomanager.NewPostgresRepositoryManager(), lookup, logging.Discard())
}

func identities(prefix string, n int) []identity.Identity {
	out := make([]identity.Identity, n)
	for i := range out {
		id := fmt.Sprintf("%s-%d", prefix, i)
		out[i] = identity.Identity{ID: id, Email: id + "@example.com"}
	}
	return out
}

func expectBatch(mock sqlmock.Sqlmock, users []identity.Identity) {
	mock.ExpectBegin()
	for _, u := range users {
		mock.ExpectExec(upsertRe).WithArgs(u.ID, u.Email).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
}

type fakeLookup struct {
	user *identity.Identity
	err  error
}

func (f *fakeLookup) GetUser(context.Context, string) (*identity.Identity, error) {
	return f.user, f.err
}

func (f *fakeLookup) GetUserByEmail(context.Context, string) (*identity.Identity, error) {
	return f.user, f.err
}

type fakeLister struct {
	pages  map[string]*identity.Page
	err    error
	calls  int
	tokens []string
	sizes  []int
}

func (f *fakeLister) ListUsers(_ context.Context, pageSize int, token string) (*identity.Page, error) {
	f.calls++
	f.tokens = append(f.tokens, token)
	f.sizes = append(f.sizes, pageSize)
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.pages[token]
	if !ok {
		return nil, fmt.Errorf("unknown token %q", token)
	}
	return p, nil
}

type fakeProfiles struct {
	out []identity.Identity
	err error
}

func (f *fakeProfiles) ListProfiles(context.Context) ([]identity.Identity, error) {
	return f.out, f.err
}

type fakeSink struct {
	saved []*Report
	err   error
}

func (f *fakeSink) Save(_ context.Context, r *Report) error {
	f.saved = append(f.saved, r)
	return f.err
}

var errConstraint = &pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "duplicate key value"}

var errConnection = &pgconn.PgError{Code: pgerrcode.ConnectionFailure, Message: "connection failure"}
