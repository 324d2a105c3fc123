package scanner

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanStrideAndZeroSkip(t *testing.T) {
	buf := make([]byte, 64)
	buf[0] = 0xAA  // window at 0 survives
	buf[50] = 0xBB // window at 48 survives
	// windows at 16 and 32 start with 12 zero bytes and are skipped

	windows := Scan(buf, 1000)
	require.Len(t, windows, 2)

	assert.Equal(t, int64(1000), windows[0].Offset)
	assert.Equal(t, 64, len(windows[0].Data)) // capped by the buffer, not PageSize

	assert.Equal(t, int64(1048), windows[1].Offset)
	assert.Equal(t, 16, len(windows[1].Data))
}

func TestScanZeroWindowsAllSkipped(t *testing.T) {
	buf := make([]byte, 4*ChunkStride)
	assert.Empty(t, Scan(buf, 0))
}

func TestScanShortTailWindowKept(t *testing.T) {
	// A tail window shorter than the zero-prefix length is kept even when
	// it is all zeros: a prefix test against truncated data cannot match.
	buf := make([]byte, 26)
	windows := Scan(buf, 0)

	require.Len(t, windows, 1)
	assert.Equal(t, int64(16), windows[0].Offset)
	assert.Equal(t, 10, len(windows[0].Data))
}

func TestScanWindowsArePrivateCopies(t *testing.T) {
	buf := make([]byte, 32)
	buf[0] = 0x11

	windows := Scan(buf, 0)
	require.Len(t, windows, 1)

	buf[0] = 0x99
	assert.Equal(t, byte(0x11), windows[0].Data[0])
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name string
		size int
		keep bool
	}{
		{name: "below minimum", size: 1000, keep: false},
		{name: "minimum", size: MinPageBytes, keep: true},
		{name: "padded", size: 2000, keep: true},
		{name: "exact", size: PageSize, keep: true},
		{name: "truncated", size: 5000, keep: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := bytes.Repeat([]byte{0xCD}, tc.size)

			page, ok := NormalizePage(data)
			if !tc.keep {
				assert.False(t, ok)
				assert.Nil(t, page)
				return
			}

			require.True(t, ok)
			require.Equal(t, PageSize, len(page))

			kept := tc.size
			if kept > PageSize {
				kept = PageSize
			}
			assert.Equal(t, data[:kept], page[:kept])
			for _, b := range page[kept:] {
				require.Equal(t, byte(0), b)
			}
		})
	}
}
