package models

import (
	"time"

	"github.com/dmitrijs2005/usersync/internal/timex"
)

// Reconciliation sources.
const (
	SourceIdentity  = "identity"
	SourceDocuments = "documents"
)

// SyncReport summarizes one bulk reconciliation run. Skipped counts records
// without id or email; Failed counts records the backup store rejected.
type SyncReport struct {
	RunID     string         `json:"run_id"`
	Source    string         `json:"source"`
	StartedAt time.Time      `json:"started_at"`
	Duration  timex.Duration `json:"duration"`
	Listed    int            `json:"listed"`
	Succeeded int            `json:"succeeded"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Pages     int            `json:"pages"`
	Err       string         `json:"error,omitempty"`
}

// OK reports whether the run listed everything and wrote every valid record.
func (r *SyncReport) OK() bool {
	return r.Err == "" && r.Failed == 0
}
