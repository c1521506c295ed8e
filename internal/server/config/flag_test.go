package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		initial Config
		want    Config
		wantErr bool
	}{
		{
			name: "all server flags",
			args: []string{
				"-a", "127.0.0.1:8080", "-g", "127.0.0.1:9090", "-s", "secret",
				"-H", "pg", "-P", "6432", "-D", "db", "-U", "user", "-b", "50", "-i", "6", "-l", "debug",
			},
			want: Config{
				EndpointAddrHTTP: "127.0.0.1:8080",
				EndpointAddrGRPC: "127.0.0.1:9090",
				SecretKey:        "secret",
				PGHost:           "pg",
				PGPort:           6432,
				PGDatabase:       "db",
				PGUser:           "user",
				SyncBatchSize:    50,
				SyncInterval:     6 * time.Hour,
				LogLevel:         "debug",
			},
		},
		{
			name:    "interval untouched without -i",
			args:    []string{"-b", "10"},
			initial: Config{SyncInterval: 90 * time.Minute},
			want:    Config{SyncBatchSize: 10, SyncInterval: 90 * time.Minute},
		},
		{
			name:    "foreign flags ignored",
			args:    []string{"-W", "-source", "identity", "-c", "cfg.json", "-H", "pg"},
			initial: Config{PGHost: "old"},
			want:    Config{PGHost: "pg"},
		},
		{
			name:    "bad port",
			args:    []string{"-P", "abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.initial
			err := parseFlags(&c, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.want, c))
		})
	}
}
