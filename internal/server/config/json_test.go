package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
	"endpoint_addr_http": "sync.example:8080",
	"pg_host": "pg.example",
	"pg_port": 6432,
	"pg_idle_timeout": "45s",
	"pg_statement_timeout": 3000000000,
	"sync_batch_size": 500,
	"sync_interval": "6h",
	"sync_source": "identity",
	"redis_channel": "auth_events_v2",
	"s3_bucket": "sync-reports"
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usersync.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseJson_OverlaysPresentKeys(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	require.NoError(t, parseJson(c, writeConfig(t, sampleJSON)))

	assert.Equal(t, "sync.example:8080", c.EndpointAddrHTTP)
	assert.Equal(t, "pg.example", c.PGHost)
	assert.Equal(t, 6432, c.PGPort)
	assert.Equal(t, 45*time.Second, c.PGIdleTimeout)
	assert.Equal(t, 3*time.Second, c.PGStatementTimeout)
	assert.Equal(t, 500, c.SyncBatchSize)
	assert.Equal(t, 6*time.Hour, c.SyncInterval)
	assert.Equal(t, "identity", c.SyncSource)
	assert.Equal(t, "auth_events_v2", c.RedisChannel)
	assert.Equal(t, "sync-reports", c.S3Bucket)

	// absent keys keep defaults
	assert.Equal(t, "postgres", c.PGUser)
	assert.Equal(t, 2*time.Second, c.PGConnectTimeout)
	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
}

func TestParseJson_EmptyPathIsNoop(t *testing.T) {
	c := &Config{PGHost: "host", SyncBatchSize: 7}
	require.NoError(t, parseJson(c, ""))
	assert.Equal(t, &Config{PGHost: "host", SyncBatchSize: 7}, c)
}

func TestParseJson_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		err := parseJson(&Config{}, filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorContains(t, err, "read config")
	})
	t.Run("invalid json", func(t *testing.T) {
		err := parseJson(&Config{}, writeConfig(t, `{ this is not json`))
		assert.ErrorContains(t, err, "parse config")
	})
	t.Run("bad duration", func(t *testing.T) {
		err := parseJson(&Config{}, writeConfig(t, `{"sync_interval": "soon"}`))
		assert.Error(t, err)
	})
}

func TestLoad_FlagsBeatJSON(t *testing.T) {
	path := writeConfig(t, sampleJSON)

	c, err := Load([]string{"-config", path, "-H", "pg.flag", "-b", "25"})
	require.NoError(t, err)
	assert.Equal(t, "pg.flag", c.PGHost)
	assert.Equal(t, 25, c.SyncBatchSize)
	assert.Equal(t, 6432, c.PGPort)
}

func TestLoad_PropagatesErrors(t *testing.T) {
	_, err := Load([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	_, err = Load([]string{"-P", "not-a-port"})
	assert.Error(t, err)
}
