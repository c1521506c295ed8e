package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/usersync/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations are timex.Duration so
// both "30s" and integer nanoseconds are accepted. Zero values mean "not set".
type JsonConfig struct {
	EndpointAddrHTTP   string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC   string         `json:"endpoint_addr_grpc"`
	PGHost             string         `json:"pg_host"`
	PGPort             int            `json:"pg_port"`
	PGDatabase         string         `json:"pg_database"`
	PGUser             string         `json:"pg_user"`
	PGPassword         string         `json:"pg_password"`
	PGSSLMode          string         `json:"pg_sslmode"`
	PGMaxConns         int            `json:"pg_max_conns"`
	PGIdleTimeout      timex.Duration `json:"pg_idle_timeout"`
	PGConnectTimeout   timex.Duration `json:"pg_connect_timeout"`
	PGStatementTimeout timex.Duration `json:"pg_statement_timeout"`
	RetryMaxRetries    int            `json:"retry_max_retries"`
	RetryBackoffStep   timex.Duration `json:"retry_backoff_step"`
	SyncBatchSize      int            `json:"sync_batch_size"`
	SyncInterval       timex.Duration `json:"sync_interval"`
	SyncCheckInterval  timex.Duration `json:"sync_check_interval"`
	SyncSource         string         `json:"sync_source"`
	CheckpointPath     string         `json:"checkpoint_path"`
	HealthInterval     timex.Duration `json:"health_interval"`
	SecretKey          string         `json:"secret_key"`
	FirebaseProjectID  string         `json:"firebase_project_id"`
	FirebaseCredFile   string         `json:"firebase_credentials_file"`
	RedisAddr          string         `json:"redis_addr"`
	RedisPassword      string         `json:"redis_password"`
	RedisDB            int            `json:"redis_db"`
	RedisChannel       string         `json:"redis_channel"`
	DynamoTable        string         `json:"dynamo_table"`
	DynamoRegion       string         `json:"dynamo_region"`
	DynamoEndpoint     string         `json:"dynamo_endpoint"`
	S3RootUser         string         `json:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
	LogLevel           string         `json:"log_level"`
	LogFile            string         `json:"log_file"`
}

// parseJson overlays config with the keys present in the JSON file at path.
// An empty path is a no-op.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	str(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	str(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	str(&config.PGHost, c.PGHost)
	num(&config.PGPort, c.PGPort)
	str(&config.PGDatabase, c.PGDatabase)
	str(&config.PGUser, c.PGUser)
	str(&config.PGPassword, c.PGPassword)
	str(&config.PGSSLMode, c.PGSSLMode)
	num(&config.PGMaxConns, c.PGMaxConns)
	dur(&config.PGIdleTimeout, c.PGIdleTimeout)
	dur(&config.PGConnectTimeout, c.PGConnectTimeout)
	dur(&config.PGStatementTimeout, c.PGStatementTimeout)
	num(&config.RetryMaxRetries, c.RetryMaxRetries)
	dur(&config.RetryBackoffStep, c.RetryBackoffStep)
	num(&config.SyncBatchSize, c.SyncBatchSize)
	dur(&config.SyncInterval, c.SyncInterval)
	dur(&config.SyncCheckInterval, c.SyncCheckInterval)
	str(&config.SyncSource, c.SyncSource)
	str(&config.CheckpointPath, c.CheckpointPath)
	dur(&config.HealthInterval, c.HealthInterval)
	str(&config.SecretKey, c.SecretKey)
	str(&config.FirebaseProjectID, c.FirebaseProjectID)
	str(&config.FirebaseCredentialsFile, c.FirebaseCredFile)
	str(&config.RedisAddr, c.RedisAddr)
	str(&config.RedisPassword, c.RedisPassword)
	num(&config.RedisDB, c.RedisDB)
	str(&config.RedisChannel, c.RedisChannel)
	str(&config.DynamoTable, c.DynamoTable)
	str(&config.DynamoRegion, c.DynamoRegion)
	str(&config.DynamoEndpoint, c.DynamoEndpoint)
	str(&config.S3RootUser, c.S3RootUser)
	str(&config.S3RootPassword, c.S3RootPassword)
	str(&config.S3Bucket, c.S3Bucket)
	str(&config.S3Region, c.S3Region)
	str(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	str(&config.LogLevel, c.LogLevel)
	str(&config.LogFile, c.LogFile)
	return nil
}

func str(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func num(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func dur(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
