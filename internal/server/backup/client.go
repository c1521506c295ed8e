// Package backup is the only gateway to the relational backup database.
// Every statement goes through the same retry policy, per-attempt timeout and
// fail-closed behavior.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrijs2005/usersync/internal/common"
	"github.com/dmitrijs2005/usersync/internal/dbx"
	"github.com/dmitrijs2005/usersync/internal/logging"
	"github.com/dmitrijs2005/usersync/internal/server/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// Statement is a parameterized SQL statement with positional arguments.
type Statement struct {
	Query string
	Args  []any
}

// RowSet is a fully materialized query result.
type RowSet struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (r *RowSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Options tunes the retry policy, the per-attempt statement timeout and the
// timeout of the single-shot health check.
type Options struct {
	MaxRetries       int
	BackoffStep      time.Duration
	StatementTimeout time.Duration
	HealthTimeout    time.Duration
}

// DefaultOptions returns 3 retries with 1s, 2s, 3s waits, a 5s statement
// timeout and a 2s health check timeout.
func DefaultOptions() Options {
	return Options{MaxRetries: 3, BackoffStep: time.Second, StatementTimeout: 5 * time.Second, HealthTimeout: 2 * time.Second}
}

// OptionsFromConfig extracts client options from the server config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxRetries:       cfg.RetryMaxRetries,
		BackoffStep:      cfg.RetryBackoffStep,
		StatementTimeout: cfg.PGStatementTimeout,
		HealthTimeout:    cfg.PGConnectTimeout,
	}
}

// Client executes statements against the backup database.
type Client struct {
	db               *sql.DB
	retrier          dbx.Retrier
	statementTimeout time.Duration
	healthTimeout    time.Duration
	logger           logging.Logger
	unavailable      error
}

// DSN builds a postgres:// URL from the discrete connection settings.
func DSN(cfg *config.Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.PGUser, cfg.PGPassword),
		Host:   net.JoinHostPort(cfg.PGHost, strconv.Itoa(cfg.PGPort)),
		Path:   "/" + cfg.PGDatabase,
	}
	if cfg.PGSSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{cfg.PGSSLMode}}.Encode()
	}
	return u.String()
}

// Connect builds the process-wide connection pool. No connection is opened
// until the first statement runs.
func Connect(cfg *config.Config, logger logging.Logger) (*Client, error) {
	connConfig, err := pgx.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("db config error: %w", err)
	}
	connConfig.ConnectTimeout = cfg.PGConnectTimeout
	if cfg.PGStatementTimeout > 0 {
		connConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.PGStatementTimeout.Milliseconds(), 10)
	}

	db := stdlib.OpenDB(*connConfig)
	db.SetMaxOpenConns(cfg.PGMaxConns)
	db.SetMaxIdleConns(cfg.PGMaxConns)
	db.SetConnMaxIdleTime(cfg.PGIdleTimeout)

	return NewClient(db, OptionsFromConfig(cfg), logger), nil
}

// NewClient wraps an already opened pool.
func NewClient(db *sql.DB, opts Options, logger logging.Logger) *Client {
	c := &Client{
		db:               db,
		statementTimeout: opts.StatementTimeout,
		healthTimeout:    opts.HealthTimeout,
		logger:           logger.With("module", "backup_store"),
	}
	c.retrier = dbx.Retrier{
		MaxRetries: uint64(max(opts.MaxRetries, 0)),
		Step:       opts.BackoffStep,
		Retryable:  IsTransient,
		OnRetry: func(ctx context.Context, retry int, wait time.Duration, err error) {
			c.logger.Warn(ctx, "retrying backup store call",
				"retry", retry, "max_retries", opts.MaxRetries, "wait", wait.String(), "error", err)
		},
	}
	return c
}

// Unavailable returns a fail-closed client: every call reports
// common.ErrStoreUnavailable and the health check is false.
func Unavailable(cause error, logger logging.Logger) *Client {
	return &Client{
		logger:      logger.With("module", "backup_store"),
		unavailable: cause,
	}
}

// Available is false for clients built by Unavailable.
func (c *Client) Available() bool {
	return c.unavailable == nil && c.db != nil
}

func (c *Client) unavailableErr() error {
	if c.unavailable == nil {
		return common.ErrStoreUnavailable
	}
	return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, c.unavailable)
}

// DB exposes the pool for migrations.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Do runs fn against the pool, repeating it on transient failures. Each
// attempt gets its own statement timeout.
func (c *Client) Do(ctx context.Context, fn func(ctx context.Context, db dbx.DBTX) error) error {
	if !c.Available() {
		return c.unavailableErr()
	}
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := c.attemptContext(ctx)
		defer cancel()
		return fn(ctx, c.db)
	})
}

// InTx runs fn inside one transaction. Any error rolls the transaction back
// and is returned. A transiently failed transaction is retried from the
// beginning; it was rolled back, so nothing is applied twice.
func (c *Client) InTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if !c.Available() {
		return c.unavailableErr()
	}
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		return dbx.WithTx(ctx, c.db, nil, fn)
	})
}

// Execute runs a single statement and materializes its rows.
func (c *Client) Execute(ctx context.Context, query string, args ...any) (*RowSet, error) {
	var rs *RowSet
	err := c.Do(ctx, func(ctx context.Context, db dbx.DBTX) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		rs, err = scanRowSet(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// ExecuteTransaction applies stmts between BEGIN and COMMIT. The first
// failing statement triggers ROLLBACK and its error is returned.
func (c *Client) ExecuteTransaction(ctx context.Context, stmts ...Statement) error {
	return c.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		for i, st := range stmts {
			if _, err := tx.ExecContext(ctx, st.Query, st.Args...); err != nil {
				return fmt.Errorf("statement %d: %w", i, err)
			}
		}
		return nil
	})
}

// CheckConnection runs a trivial query once, without retry, under the
// connect timeout and reports whether it succeeded.
func (c *Client) CheckConnection(ctx context.Context) bool {
	if !c.Available() {
		return false
	}
	ctx, cancel := c.healthContext(ctx)
	defer cancel()

	var now time.Time
	err := c.db.QueryRowContext(ctx, "SELECT NOW()").Scan(&now)
	if err != nil {
		c.logger.Error(ctx, "backup store health check failed", "error", err)
		return false
	}
	return true
}

// Close releases the pool.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	c.logger.Info(context.Background(), "closing backup store pool")
	return c.db.Close()
}

func (c *Client) healthContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.healthTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.healthTimeout)
}

func (c *Client) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.statementTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.statementTimeout)
}

func scanRowSet(rows *sql.Rows) (*RowSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &RowSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}
