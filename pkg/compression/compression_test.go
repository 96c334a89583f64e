package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	original := []byte(strings.Repeat("order_id,product_id\n1,101\n", 200))

	for _, alg := range []Algorithm{None, Gzip, Snappy, LZ4, Zstd} {
		t.Run(string(alg), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, alg, Default)
			require.NoError(t, err)
			_, err = w.Write(original)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := NewReader(bytes.NewReader(buf.Bytes()), alg)
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())

			assert.Equal(t, original, got)
			if alg != None {
				assert.Less(t, buf.Len(), len(original))
			}
		})
	}
}

func TestParse(t *testing.T) {
	a, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, None, a)

	a, err = Parse("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, Zstd, a)

	_, err = Parse("brotli")
	assert.Error(t, err)
}

func TestFromPath(t *testing.T) {
	assert.Equal(t, Gzip, FromPath("data/sales.csv.gz"))
	assert.Equal(t, Zstd, FromPath("products.json.ZST"))
	assert.Equal(t, None, FromPath("region.parquet"))
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewWriter(io.Discard, Algorithm("brotli"), Default)
	assert.Error(t, err)
	_, err = NewReader(strings.NewReader(""), Algorithm("brotli"))
	assert.Error(t, err)
}
