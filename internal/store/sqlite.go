package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS prospects (
	clinic_id   TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	clinic_name TEXT NOT NULL DEFAULT '',
	owner_name  TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	phone_e164  TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL DEFAULT '',
	postal_code TEXT NOT NULL DEFAULT '',
	country     TEXT NOT NULL DEFAULT '',
	timezone    TEXT NOT NULL DEFAULT '',
	source_url  TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	location   TEXT NOT NULL,
	counters   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_prospects_state ON prospects(state);
CREATE INDEX IF NOT EXISTS idx_prospects_run_id ON prospects(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveProspect upserts by clinic_id. A re-run refreshes every contact field
// and moves the row to the new run.
func (s *SQLiteStore) SaveProspect(ctx context.Context, runID string, p model.Prospect) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prospects (
			clinic_id, run_id, clinic_name, owner_name, phone, phone_e164,
			email, website, address, city, state, postal_code, country,
			timezone, source_url, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(clinic_id) DO UPDATE SET
			run_id = excluded.run_id,
			clinic_name = excluded.clinic_name,
			owner_name = excluded.owner_name,
			phone = excluded.phone,
			phone_e164 = excluded.phone_e164,
			email = excluded.email,
			website = excluded.website,
			address = excluded.address,
			city = excluded.city,
			state = excluded.state,
			postal_code = excluded.postal_code,
			country = excluded.country,
			timezone = excluded.timezone,
			source_url = excluded.source_url,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		p.ClinicID, runID, p.ClinicName, p.OwnerName, p.Phone, p.PhoneE164,
		p.Email, p.Website, p.Address, p.City, p.State, p.PostalCode, p.Country,
		p.Timezone, p.SourceURL, p.NotesText(), now, now,
	)
	return eris.Wrapf(err, "sqlite: save prospect %s", p.ClinicID)
}

func (s *SQLiteStore) ListProspects(ctx context.Context, filter LeadFilter) ([]model.Prospect, error) {
	query := `SELECT clinic_id, clinic_name, owner_name, phone, phone_e164,
		email, website, address, city, state, postal_code, country,
		timezone, source_url, notes FROM prospects WHERE 1=1`
	var args []any

	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, filter.State)
	}
	if filter.HasEmail {
		query += ` AND email != ''`
	}
	query += ` ORDER BY updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list prospects")
	}
	defer rows.Close()

	var prospects []model.Prospect
	for rows.Next() {
		var p model.Prospect
		var notes string
		err := rows.Scan(
			&p.ClinicID, &p.ClinicName, &p.OwnerName, &p.Phone, &p.PhoneE164,
			&p.Email, &p.Website, &p.Address, &p.City, &p.State, &p.PostalCode,
			&p.Country, &p.Timezone, &p.SourceURL, &notes,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prospect")
		}
		if notes != "" {
			p.Notes = []string{notes}
		}
		prospects = append(prospects, p)
	}
	return prospects, eris.Wrap(rows.Err(), "sqlite: list prospects iterate")
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) error {
	countersJSON, err := json.Marshal(run.Counters)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal counters")
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, location, counters, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Location, string(countersJSON), createdAt,
	)
	return eris.Wrapf(err, "sqlite: save run %s", run.ID)
}
