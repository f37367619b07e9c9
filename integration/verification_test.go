//go:build integration

// Package integration contains integration tests for datalens.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
package integration

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAnalyzeVerification runs datalens analyze and checks the summary against the input file.
func TestAnalyzeVerification(t *testing.T) {
	sample := writeSalesCSV(t, 60)

	out, err := runDatalens(t, "analyze", sample, "--output", "json")
	require.NoError(t, err)

	var rec struct {
		Summary struct {
			Rows    int `json:"rows"`
			Columns int `json:"columns"`
		} `json:"summary"`
		Detection struct {
			DateCol string `json:"date_col"`
			Target  string `json:"target"`
		} `json:"detection"`
		Forecast *struct {
			Frequency string `json:"frequency"`
			Horizon   int    `json:"horizon"`
		} `json:"forecast"`
		PreviewRows []map[string]any `json:"preview_rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rec))

	assert.Equal(t, 60, rec.Summary.Rows)
	assert.Equal(t, 3, rec.Summary.Columns)
	assert.Equal(t, "date", rec.Detection.DateCol)
	assert.Equal(t, "sales", rec.Detection.Target)
	require.NotNil(t, rec.Forecast)
	assert.Equal(t, "D", rec.Forecast.Frequency)
	assert.Equal(t, 14, rec.Forecast.Horizon)
	assert.Len(t, rec.PreviewRows, 50)
}

// TestForecastVerification checks that the forecast CSV continues the input dates.
func TestForecastVerification(t *testing.T) {
	sample := writeSalesCSV(t, 60)

	out, err := runDatalens(t, "forecast", sample, "--horizon", "5", "--output", "csv")
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"kind", "date", "y_true", "y_hat"}, rows[0])

	var forecastDates []string
	for _, row := range rows[1:] {
		if row[0] == "forecast" {
			forecastDates = append(forecastDates, row[1])
		}
	}
	assert.Equal(t, []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04", "2024-03-05"}, forecastDates)
}
