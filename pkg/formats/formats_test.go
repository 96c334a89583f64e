package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", CSV, false},
		{" JSON ", JSON, false},
		{"Parquet", Parquet, false},
		{"xml", Format("xml"), true},
		{"", Format(""), true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInputOutputSets(t *testing.T) {
	assert.True(t, CSV.IsOutput())
	assert.True(t, Parquet.IsOutput())
	assert.False(t, JSON.IsOutput())
	assert.True(t, JSON.IsInput())
	assert.False(t, Format("xml").IsInput())

	out := Outputs()
	out[0] = "mutated"
	assert.Equal(t, CSV, Outputs()[0])
	assert.Len(t, Inputs(), 3)
}
