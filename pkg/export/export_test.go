package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Name", "Roll No", "Status"},
		Rows: []map[string]string{
			{"Name": "Ani", "Roll No": "01", "Status": "Present"},
			{"Name": "Budi, Jr.", "Roll No": "02", "Status": "Not Marked"},
		},
	}
}

func TestCSVRender(t *testing.T) {
	out, err := Render(FormatCSV, sampleDataset(), "")
	require.NoError(t, err)
	assert.Equal(t, "Name,Roll No,Status\nAni,01,Present\n\"Budi, Jr.\",02,Not Marked\n", string(out))
}

func TestPDFRender(t *testing.T) {
	out, err := Render(FormatPDF, sampleDataset(), "Attendance 2024-05-02")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := Render(FormatCSV, Dataset{}, "")
	assert.Error(t, err)
	_, err = Render(FormatPDF, Dataset{}, "")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}
