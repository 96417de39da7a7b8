package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func TestCSVWriter_HeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)

	p := model.Prospect{
		ClinicID:   "id-1",
		ClinicName: "Acme Dental",
		Phone:      "(512) 555-0100",
		PhoneE164:  "+15125550100",
		Email:      "info@acmedental.com",
		State:      "TX",
		Country:    "US",
	}
	p.AddNote("captcha-blocked")
	require.NoError(t, w.Write(p))
	require.NoError(t, w.Write(model.Prospect{ClinicID: "id-2"}))
	require.NoError(t, w.Close())

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, model.CSVHeader, records[0])
	assert.Equal(t, "Acme Dental", records[1][1])
	assert.Equal(t, "+15125550100", records[1][4])
	assert.Equal(t, "captcha-blocked", records[1][14])
	assert.Equal(t, "id-2", records[2][0])
}
