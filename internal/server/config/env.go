package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envFiles lists dotenv files loaded before reading the environment. Missing
// files are ignored; already exported variables win over file values.
var envFiles = []string{".env"}

// parseEnv overlays Config with values from environment variables.
//
// Durations such as PG_IDLE_TIMEOUT accept time.ParseDuration syntax ("30s")
// or a bare integer of milliseconds, matching the original deployment
// manifests. SYNC_INTERVAL_HOURS is a whole number of hours.
func parseEnv(c *Config) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	setString(&c.EndpointAddrHTTP, "HTTP_ADDR")
	setString(&c.EndpointAddrGRPC, "GRPC_ADDR")

	setString(&c.PGHost, "PG_HOST")
	setInt(&c.PGPort, "PG_PORT")
	setString(&c.PGDatabase, "PG_DATABASE")
	setString(&c.PGUser, "PG_USER")
	setString(&c.PGPassword, "PG_PASSWORD")
	setString(&c.PGSSLMode, "PG_SSLMODE")
	setInt(&c.PGMaxConns, "PG_MAX_CONNS")
	setMillis(&c.PGIdleTimeout, "PG_IDLE_TIMEOUT")
	setMillis(&c.PGConnectTimeout, "PG_CONNECT_TIMEOUT")
	setMillis(&c.PGStatementTimeout, "PG_STATEMENT_TIMEOUT")

	setInt(&c.RetryMaxRetries, "PG_MAX_RETRIES")
	setMillis(&c.RetryBackoffStep, "PG_RETRY_STEP")

	setInt(&c.SyncBatchSize, "SYNC_BATCH_SIZE")
	if v, ok := lookupInt("SYNC_INTERVAL_HOURS"); ok {
		c.SyncInterval = time.Duration(v) * time.Hour
	}
	setMillis(&c.SyncCheckInterval, "SYNC_CHECK_INTERVAL")
	setString(&c.SyncSource, "SYNC_SOURCE")
	setString(&c.CheckpointPath, "SYNC_CHECKPOINT_PATH")
	setMillis(&c.HealthInterval, "HEALTH_INTERVAL")

	setString(&c.SecretKey, "ADMIN_SECRET_KEY")

	setString(&c.FirebaseProjectID, "FIREBASE_PROJECT_ID")
	setString(&c.FirebaseCredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")

	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setInt(&c.RedisDB, "REDIS_DB")
	setString(&c.RedisChannel, "REDIS_AUTH_CHANNEL")

	setString(&c.DynamoTable, "PROFILE_TABLE")
	setString(&c.DynamoRegion, "AWS_REGION")
	setString(&c.DynamoEndpoint, "AWS_ENDPOINT")

	setString(&c.S3RootUser, "S3_ROOT_USER")
	setString(&c.S3RootPassword, "S3_ROOT_PASSWORD")
	setString(&c.S3Bucket, "S3_BUCKET")
	setString(&c.S3Region, "S3_REGION")
	setString(&c.S3BaseEndpoint, "S3_BASE_ENDPOINT")

	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFile, "LOG_FILE")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func lookupInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func setInt(dst *int, key string) {
	if n, ok := lookupInt(key); ok {
		*dst = n
	}
}

func setMillis(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Millisecond
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
