package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func TestDispatcher_DeliversProspects(t *testing.T) {
	var mu sync.Mutex
	var received []model.Prospect
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var p model.Prospect
		require.NoError(t, json.Unmarshal(body, &p))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
	}))
	defer srv.Close()

	d := NewDispatcher(context.Background(), srv.URL)
	d.Send(model.Prospect{ClinicID: "id-1", ClinicName: "Acme Dental"})
	d.Send(model.Prospect{ClinicID: "id-2", ClinicName: "Bright Smiles"})
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	names := []string{received[0].ClinicName, received[1].ClinicName}
	assert.ElementsMatch(t, []string{"Acme Dental", "Bright Smiles"}, names)
}

func TestDispatcher_FailuresDoNotBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDispatcher(context.Background(), srv.URL)
	d.Send(model.Prospect{ClinicID: "id-1"})
	d.Wait()
}

func TestDispatcher_UnreachableEndpoint(t *testing.T) {
	d := NewDispatcher(context.Background(), "http://127.0.0.1:1/hook")
	d.Send(model.Prospect{ClinicID: "id-1"})
	d.Wait()
}
