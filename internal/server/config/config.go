// Package config handles configuration for the usersync server and tools,
// including defaults, environment variables (with optional .env file), a JSON
// overlay and command-line flags.
package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/usersync/internal/flagx"
)

// Config holds runtime settings for the sync service.
//
// Fields:
//   - EndpointAddrHTTP / EndpointAddrGRPC: bind addresses of the HTTP API and
//     the gRPC health endpoint.
//   - PG*: backup PostgreSQL connection and pool settings.
//   - RetryMaxRetries / RetryBackoffStep: retry policy for transient store errors.
//   - SyncBatchSize / SyncInterval / SyncCheckInterval / SyncSource: bulk
//     reconciliation knobs; SyncSource is "documents" or "identity".
//   - CheckpointPath: SQLite file holding the local sync checkpoint.
//   - SecretKey: HMAC secret for admin bearer tokens (HS256).
//   - Firebase*: identity provider project and credentials.
//   - Redis*: identity event channel.
//   - Dynamo*: user-profile document table.
//   - S3*: object storage for sync reports; an empty bucket disables archiving.
type Config struct {
	EndpointAddrHTTP string
	EndpointAddrGRPC string

	PGHost             string
	PGPort             int
	PGDatabase         string
	PGUser             string
	PGPassword         string
	PGSSLMode          string
	PGMaxConns         int
	PGIdleTimeout      time.Duration
	PGConnectTimeout   time.Duration
	PGStatementTimeout time.Duration

	RetryMaxRetries  int
	RetryBackoffStep time.Duration

	SyncBatchSize     int
	SyncInterval      time.Duration
	SyncCheckInterval time.Duration
	SyncSource        string
	CheckpointPath    string
	HealthInterval    time.Duration

	SecretKey string

	FirebaseProjectID       string
	FirebaseCredentialsFile string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string

	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string

	LogLevel string
	LogFile  string
}

// LoadDefaults populates Config with development defaults.
// NOTE: credentials below are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":3001"
	c.EndpointAddrGRPC = ":50051"

	c.PGHost = "postgres-db-service"
	c.PGPort = 5432
	c.PGDatabase = "social_network"
	c.PGUser = "postgres"
	c.PGPassword = "password"
	c.PGSSLMode = "disable"
	c.PGMaxConns = 20
	c.PGIdleTimeout = 30 * time.Second
	c.PGConnectTimeout = 2 * time.Second
	c.PGStatementTimeout = 5 * time.Second

	c.RetryMaxRetries = 3
	c.RetryBackoffStep = 1 * time.Second

	c.SyncBatchSize = 100
	c.SyncInterval = 24 * time.Hour
	c.SyncCheckInterval = 1 * time.Minute
	c.SyncSource = "documents"
	c.CheckpointPath = "usersync.db"
	c.HealthInterval = 15 * time.Second

	c.SecretKey = "secretKey"

	c.RedisAddr = "localhost:6379"
	c.RedisChannel = "auth_state_events"

	c.DynamoTable = "userProfiles"
	c.DynamoRegion = "us-east-1"

	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"

	c.LogLevel = "info"
}

// LoadConfig builds a Config from the process arguments. See Load.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load applies defaults, then the environment (and .env), then the JSON file
// named by -c/-config, then command-line flags. Later sources win.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	if err := parseJson(cfg, flagx.ConfigPath(args)); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
