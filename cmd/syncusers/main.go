// Command syncusers copies every identity-provider account (or every profile
// document with -source documents) into the backup database once and prints
// the run report.
//
// Maintenance modes exit without syncing:
//
//	-token <subject>    print an admin bearer token for POST /api/admin/sync
//	-token-ttl 1h       validity of that token
//	-reset-checkpoint   forget the last sync time so the scheduler runs next tick
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/usersync/internal/flagx"
	"github.com/dmitrijs2005/usersync/internal/logging"
	"github.com/dmitrijs2005/usersync/internal/server"
	"github.com/dmitrijs2005/usersync/internal/server/config"
	"github.com/dmitrijs2005/usersync/internal/server/models"
	"golang.org/x/term"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		askPassword bool
		reset       bool
		subject     string
		tokenTTL    = time.Hour
	)
	source := models.SourceIdentity

	fs := flag.NewFlagSet("syncusers", flag.ContinueOnError)
	fs.BoolVar(&askPassword, "W", false, "prompt for the database password")
	fs.StringVar(&source, "source", source, "sync source (identity or documents)")
	fs.StringVar(&subject, "token", "", "print an admin token for this subject and exit")
	fs.DurationVar(&tokenTTL, "token-ttl", tokenTTL, "admin token validity")
	fs.BoolVar(&reset, "reset-checkpoint", false, "delete the local sync checkpoint and exit")
	args := flagx.FilterArgs(os.Args[1:], []string{"-source", "-token", "-token-ttl"}, "-W", "-reset-checkpoint")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	switch {
	case subject != "":
		if err := writeAdminToken(os.Stdout, cfg, subject, tokenTTL); err != nil {
			fmt.Fprintf(os.Stderr, "token: %v\n", err)
			return 1
		}
		return 0
	case reset:
		if err := resetCheckpoint(context.Background(), cfg.CheckpointPath); err != nil {
			fmt.Fprintf(os.Stderr, "reset checkpoint: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "checkpoint cleared in %s\n", cfg.CheckpointPath)
		return 0
	}

	if askPassword {
		fmt.Fprint(os.Stderr, "Password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read password: %v\n", err)
			return 1
		}
		cfg.PGPassword = string(pw)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.New(cfg.LogLevel, cfg.LogFile)

	st, err := server.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "init failed", "error", err)
		return 1
	}
	defer st.Backup.Close()

	rep, err := st.Reconciler.Sync(ctx, source)
	if rep != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rep)
	}
	if err != nil {
		logger.Error(ctx, "sync failed", "error", err)
		return 1
	}
	if !rep.OK() {
		return 1
	}
	return 0
}
