package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogAppendAndRecords(t *testing.T) {
	cat, err := Open(filepath.Join(t.TempDir(), "catalog"))
	require.NoError(t, err)
	defer cat.Close()

	offsets := []int64{0, 131072 + 48, 16}
	lengths := []int{4096, 1024, 5000}
	for i := range offsets {
		seq, err := cat.Append(offsets[i], lengths[i])
		require.NoError(t, err)
		assert.Equal(t, uint64(i), seq)
	}

	records, err := cat.Records()
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, rec := range records {
		assert.Equal(t, uint64(i), rec.Sequence)
		assert.Equal(t, offsets[i], rec.SourceOffset)
		assert.Equal(t, uint32(lengths[i]), rec.RawLength)
	}
}

func TestCatalogRunsAreIsolated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "catalog")

	first, err := Open(dir)
	require.NoError(t, err)
	_, err = first.Append(0, 4096)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// A second run in the same directory gets its own ksuid prefix and
	// sees none of the first run's records.
	second, err := Open(dir)
	require.NoError(t, err)
	defer second.Close()

	assert.NotEqual(t, first.Run(), second.Run())

	records, err := second.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecordRoundTrip(t *testing.T) {
	rec := Record{Sequence: 7, SourceOffset: 1 << 40, RawLength: 4096}

	got, err := decodeRecord(rec.encode())
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = decodeRecord(rec.encode()[:10])
	assert.Error(t, err)
}
