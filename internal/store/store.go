// Package store persists prospects and run summaries between pipeline runs.
package store

import (
	"context"
	"time"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/stats"
)

// LeadFilter narrows ListProspects.
type LeadFilter struct {
	State    string // two-letter code, e.g. "TX"
	HasEmail bool   // only prospects with an email
	Limit    int    // default 100
	Offset   int
}

// Run is one completed pipeline invocation and its counters.
type Run struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Location  string         `json:"location"`
	Counters  stats.Snapshot `json:"counters"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store persists prospects across runs. SaveProspect upserts on clinic_id so
// re-running a search refreshes contact fields instead of duplicating rows.
type Store interface {
	Migrate(ctx context.Context) error
	SaveProspect(ctx context.Context, runID string, p model.Prospect) error
	ListProspects(ctx context.Context, filter LeadFilter) ([]model.Prospect, error)
	SaveRun(ctx context.Context, run Run) error
	Close() error
}
