package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"sequence", "demand_id", "room_id", "reason"},
		Rows: []map[string]string{
			{"sequence": "1", "demand_id": "d1", "room_id": "A101", "reason": "allocated"},
			{"sequence": "2", "demand_id": "d2", "room_id": "", "reason": "all candidates conflict"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Equal(t, []string{
		"sequence,demand_id,room_id,reason",
		"1,d1,A101,allocated",
		"2,d2,,all candidates conflict",
	}, lines)
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestDatasetSelect(t *testing.T) {
	selected := sampleDataset().Select("room_id", "unknown", "sequence")
	assert.Equal(t, []string{"room_id", "sequence"}, selected.Headers)
	assert.Len(t, selected.Rows, 2)
}

func TestPDFExporterRender(t *testing.T) {
	data := sampleDataset()
	data.Rows[1]["reason"] = strings.Repeat("very long reason ", 20)
	out, err := NewPDFExporter().Render(data, "Allocation decisions")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}
