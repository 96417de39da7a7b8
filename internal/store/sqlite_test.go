package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/stats"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleProspect() model.Prospect {
	return model.Prospect{
		ClinicID:   uuid.NewString(),
		ClinicName: "Acme Dental",
		Phone:      "(512) 555-0100",
		PhoneE164:  "+15125550100",
		Email:      "info@acmedental.com",
		Website:    "https://acmedental.com",
		Address:    "100 Main St",
		City:       "Austin",
		State:      "TX",
		PostalCode: "78701",
		Country:    "US",
		Timezone:   "America/Chicago",
		SourceURL:  "https://www.yelp.com/biz/acme-dental",
	}
}

func TestSaveProspect_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := sampleProspect()
	p.AddNote("no phone")

	require.NoError(t, s.SaveProspect(ctx, "run-1", p))

	got, err := s.ListProspects(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p.ClinicID, got[0].ClinicID)
	assert.Equal(t, "Acme Dental", got[0].ClinicName)
	assert.Equal(t, "+15125550100", got[0].PhoneE164)
	assert.Equal(t, "no phone", got[0].NotesText())
}

func TestSaveProspect_UpsertsOnClinicID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := sampleProspect()

	require.NoError(t, s.SaveProspect(ctx, "run-1", p))
	p.Email = "frontdesk@acmedental.com"
	require.NoError(t, s.SaveProspect(ctx, "run-2", p))

	got, err := s.ListProspects(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "frontdesk@acmedental.com", got[0].Email)
}

func TestListProspects_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx := sampleProspect()
	require.NoError(t, s.SaveProspect(ctx, "run-1", tx))

	ny := sampleProspect()
	ny.ClinicName = "Bright Smiles"
	ny.State = "NY"
	ny.Email = ""
	require.NoError(t, s.SaveProspect(ctx, "run-1", ny))

	got, err := s.ListProspects(ctx, LeadFilter{State: "NY"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bright Smiles", got[0].ClinicName)

	got, err = s.ListProspects(ctx, LeadFilter{HasEmail: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme Dental", got[0].ClinicName)

	got, err = s.ListProspects(ctx, LeadFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSaveRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SaveRun(ctx, Run{
		ID:       uuid.NewString(),
		Source:   "yelp",
		Location: "Austin, TX",
		Counters: stats.Snapshot{Scraped: 12, Skipped: 2},
	})
	require.NoError(t, err)
}
