package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/datalens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFormatters(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		value     float64
		expected  string
	}{
		{name: "precision 1", precision: 1, value: 3.14159, expected: "3.1"},
		{name: "precision 2", precision: 2, value: 3.14159, expected: "3.14"},
		{name: "negative value", precision: 2, value: -42.567, expected: "-42.57"},
		{name: "whole number", precision: 2, value: 12, expected: "12.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fmtFloat, intFmt := createFormatters(tt.precision)
			assert.Equal(t, tt.expected, fmtFloat(tt.value))
			assert.Equal(t, "%d", intFmt)
		})
	}
}

func TestFmtOptional(t *testing.T) {
	fmtFloat, _ := createFormatters(2)
	assert.Equal(t, "-", fmtOptional(nil, fmtFloat))
	assert.Equal(t, "0.25", fmtOptional(schema.Float64Ptr(0.25), fmtFloat))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, schema.ForecastMetrics{MAE: schema.Float64Ptr(1.5)}))
	assert.Equal(t, "{\n  \"mae\": 1.5,\n  \"rmse\": null,\n  \"mape\": null\n}\n", buf.String())

	err := writeJSON(&buf, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	t.Run("quotes values with commas", func(t *testing.T) {
		var buf bytes.Buffer
		err := writeCSVWithHeader(&buf, []string{"column", "sample"}, func(w *csv.Writer) error {
			return w.Write([]string{"region", "north, south"})
		})
		require.NoError(t, err)
		assert.Equal(t, "column,sample\nregion,\"north, south\"\n", buf.String())
	})

	t.Run("propagates row errors", func(t *testing.T) {
		var buf bytes.Buffer
		err := writeCSVWithHeader(&buf, []string{"col"}, func(*csv.Writer) error {
			return assert.AnError
		})
		assert.Equal(t, assert.AnError, err)
	})
}

func TestWriteWithFile(t *testing.T) {
	t.Run("stdout prints no status", func(t *testing.T) {
		status := captureStderr(t)
		called := false
		require.NoError(t, writeWithFile("", func(io.Writer) error {
			called = true
			return nil
		}, "Results written"))
		assert.True(t, called)
		assert.Empty(t, status.String())
	})

	t.Run("file gets content and status line", func(t *testing.T) {
		status := captureStderr(t)
		path := filepath.Join(t.TempDir(), "out.csv")
		require.NoError(t, writeWithFile(path, func(w io.Writer) error {
			_, err := w.Write([]byte("a,b\n"))
			return err
		}, "Results written"))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "a,b\n", string(content))
		assert.Contains(t, status.String(), "Results written to "+path)
	})

	t.Run("writer error", func(t *testing.T) {
		captureStderr(t)
		path := filepath.Join(t.TempDir(), "out.csv")
		err := writeWithFile(path, func(io.Writer) error { return assert.AnError }, "Results written")
		assert.Equal(t, assert.AnError, err)
	})

	t.Run("invalid path", func(t *testing.T) {
		err := writeWithFile("/nonexistent/path/file.txt", func(io.Writer) error { return nil }, "Results written")
		assert.Error(t, err)
	})
}
