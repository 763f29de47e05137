package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Headers: []string{"full_name", "email"},
		Rows: []map[string]string{
			{"full_name": "Ana Souza", "email": "ana@parish.org"},
			{"full_name": "João Lima", "email": "joao@parish.org"},
		},
	}

	out, err := exporter.Render(data)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, utf8BOM)))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"full_name", "email"}, records[0])
	assert.Equal(t, []string{"Ana Souza", "ana@parish.org"}, records[1])
}

func TestCSVExporterRenderMissingColumnLeftEmpty(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Headers: []string{"full_name", "phone"},
		Rows:    []map[string]string{{"full_name": "Ana Souza"}},
	}

	out, err := exporter.Render(data)
	require.NoError(t, err)

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, utf8BOM)))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana Souza", ""}, records[1])
}

func TestCSVExporterRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}
