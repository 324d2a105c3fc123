// Package scanner locates candidate compressed chunks in raw buffers and
// normalizes decode results to fixed-size pages.
package scanner

const (
	// PageSize is the size of one decompressed memory page.
	PageSize = 4096

	// ChunkStride is the alignment granularity of compressed chunk starts.
	// Chunk starts are only heuristically aligned; the stride is unrelated
	// to the page size.
	ChunkStride = 16

	// MinPageBytes is the smallest decode result worth keeping. Shorter
	// results are garbage from windows that never held a compressed page.
	MinPageBytes = 1024

	// zeroPrefixLen is how many leading zero bytes mark a window as empty
	// memory not worth decoding.
	zeroPrefixLen = 12
)

// Window is one candidate compressed chunk: a private copy of up to
// PageSize bytes taken from the scanned buffer, tagged with its absolute
// offset in the source stream.
type Window struct {
	Data   []byte
	Offset int64
}

// Scan slices buf into windows at ChunkStride intervals. base is the
// absolute stream offset of buf[0]. Windows near the end of buf are shorter
// than PageSize and are still returned; windows that begin with
// zeroPrefixLen zero bytes are dropped.
func Scan(buf []byte, base int64) []Window {
	var windows []Window
	for pos := 0; pos < len(buf); pos += ChunkStride {
		end := pos + PageSize
		if end > len(buf) {
			end = len(buf)
		}
		if hasZeroPrefix(buf[pos:end]) {
			continue
		}
		data := make([]byte, end-pos)
		copy(data, buf[pos:end])
		windows = append(windows, Window{Data: data, Offset: base + int64(pos)})
	}
	return windows
}

// hasZeroPrefix reports whether b starts with zeroPrefixLen zero bytes.
// Windows shorter than the prefix are kept, matching a prefix test against
// truncated data.
func hasZeroPrefix(b []byte) bool {
	if len(b) < zeroPrefixLen {
		return false
	}
	for _, c := range b[:zeroPrefixLen] {
		if c != 0 {
			return false
		}
	}
	return true
}

// NormalizePage turns a raw decode result into exactly one page. Results
// shorter than MinPageBytes are discarded, longer results are truncated to
// PageSize (bytes past the page boundary are decode artifacts) and anything
// in between is zero-padded. The returned page is always PageSize bytes.
func NormalizePage(data []byte) ([]byte, bool) {
	switch {
	case len(data) < MinPageBytes:
		return nil, false
	case len(data) > PageSize:
		return data[:PageSize], true
	case len(data) < PageSize:
		page := make([]byte, PageSize)
		copy(page, data)
		return page, true
	default:
		return data, true
	}
}
