package contract

import (
	"testing"

	"github.com/huangsam/datalens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOptions(t *testing.T) {
	tests := []struct {
		name     string
		input    schema.AnalyzeOptions
		expected schema.AnalyzeOptions
		errMsg   string
	}{
		{
			name:     "empty options are valid",
			input:    schema.AnalyzeOptions{},
			expected: schema.AnalyzeOptions{},
		},
		{
			name:     "frequency is upper-cased and names trimmed",
			input:    schema.AnalyzeOptions{Frequency: " w ", Horizon: 12, Target: " sales ", DateCol: "order_date "},
			expected: schema.AnalyzeOptions{Frequency: schema.Weekly, Horizon: 12, Target: "sales", DateCol: "order_date"},
		},
		{
			name:     "max horizon",
			input:    schema.AnalyzeOptions{Frequency: "M", Horizon: MaxHorizon},
			expected: schema.AnalyzeOptions{Frequency: schema.Monthly, Horizon: MaxHorizon},
		},
		{
			name:   "unknown frequency",
			input:  schema.AnalyzeOptions{Frequency: "q"},
			errMsg: "invalid frequency 'Q'. must be D, W, M",
		},
		{
			name:   "horizon too large",
			input:  schema.AnalyzeOptions{Horizon: 366},
			errMsg: "horizon must be between 0 and 365 (received 366)",
		},
		{
			name:   "negative horizon",
			input:  schema.AnalyzeOptions{Horizon: -1},
			errMsg: "horizon must be between 0 and 365 (received -1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeOptions(tt.input)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.True(t, IsInputError(err))
				assert.Equal(t, tt.errMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
