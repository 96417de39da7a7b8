package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/export"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/source"
	"github.com/sells-group/prospect-cli/internal/store"
)

func TestNewSourceRegistry_AllSources(t *testing.T) {
	reg := newSourceRegistry(nil, nil, nil)
	assert.Equal(t, []string{"gmaps", "places", "yellowpages", "yelp"}, reg.List())
}

func streamOf(items ...source.Item) <-chan source.Item {
	ch := make(chan source.Item, len(items))
	for _, item := range items {
		ch <- item
	}
	close(ch)
	return ch
}

func TestConsumeStream_FansOutToSinks(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(ctx))

	var buf bytes.Buffer
	csvOut := export.NewCSVWriter(&buf)

	ch := streamOf(
		source.Item{Prospect: model.Prospect{ClinicID: "id-1", ClinicName: "Acme Dental"}},
		source.Item{Prospect: model.Prospect{ClinicID: "id-2", ClinicName: "Bright Smiles"}},
	)

	count, err := consumeStream(ctx, ch, "run-1", csvOut, st, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.NoError(t, csvOut.Close())

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3) // header + 2 rows

	stored, err := st.ListProspects(ctx, store.LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestConsumeStream_FatalErrorKeepsDeliveredRecords(t *testing.T) {
	var buf bytes.Buffer
	csvOut := export.NewCSVWriter(&buf)

	ch := streamOf(
		source.Item{Prospect: model.Prospect{ClinicID: "id-1"}},
		source.Item{Err: eris.New("api key revoked")},
	)

	count, err := consumeStream(context.Background(), ch, "run-1", csvOut, nil, nil)
	require.Error(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, csvOut.Close())

	records, readErr := csv.NewReader(&buf).ReadAll()
	require.NoError(t, readErr)
	assert.Len(t, records, 2) // header + the record before the failure
}
