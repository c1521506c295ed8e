package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/usersync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3001")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-s string   admin JWT HMAC secret key
//	-H string   PostgreSQL host
//	-P int      PostgreSQL port
//	-D string   PostgreSQL database name
//	-U string   PostgreSQL user
//	-b int      sync batch size
//	-i int      sync interval, hours
//	-l string   log level (debug, info, warn, error)
//
// Flags owned by other components (-c, -W, -source) are filtered out first.
// -i only overrides the interval when given.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-s", "-H", "-P", "-D", "-U", "-b", "-i", "-l"})

	fs := flag.NewFlagSet("usersync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port of the HTTP API")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port of the gRPC health endpoint")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "admin token secret key")

	fs.StringVar(&config.PGHost, "H", config.PGHost, "PostgreSQL host")
	fs.IntVar(&config.PGPort, "P", config.PGPort, "PostgreSQL port")
	fs.StringVar(&config.PGDatabase, "D", config.PGDatabase, "PostgreSQL database")
	fs.StringVar(&config.PGUser, "U", config.PGUser, "PostgreSQL user")

	fs.IntVar(&config.SyncBatchSize, "b", config.SyncBatchSize, "sync batch size")
	syncIntervalHours := fs.Int("i", int(config.SyncInterval.Hours()), "sync interval (in hours)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			config.SyncInterval = time.Duration(*syncIntervalHours) * time.Hour
		}
	})
	return nil
}
