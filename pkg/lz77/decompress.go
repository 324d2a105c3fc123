// Package lz77 implements the plain (Huffman-less) LZ77 variant used for
// compressed memory pages.
//
// Wire format: 32-bit little-endian flag words, consumed most-significant
// bit first, interleaved with literal bytes (flag 0) and 16-bit
// little-endian match tokens (flag 1). A token encodes length = token&7 and
// offset = token>>3 + 1. A length field of 7 escapes into a nibble chain:
// two consecutive maxed-out matches share one length-extension byte (the
// first takes the low nibble, the second the high nibble without consuming
// input), a nibble of 15 escapes into one more byte, and that byte being
// 0xFF escapes into a 16-bit length with a floor of 22. There is no end
// marker; input exhaustion at a match flag is the regular end of stream.
//
// Decompress never fails. Compressed chunks are located by a heuristic scan
// over untrusted data, so garbage input is the common case: any malformed,
// truncated or out-of-range condition stops decoding and returns whatever
// output has accumulated. Callers discard uninteresting results by size.
package lz77

import "encoding/binary"

const (
	// minMatch is the floor added to every decoded match length.
	minMatch = 3

	// maxOutputSize rejects obviously invalid write positions (2 GiB).
	maxOutputSize = 2 << 30
)

// Decompress expands one compressed chunk. The result may be empty or
// truncated when src is malformed; it is never an error.
func Decompress(src []byte) []byte {
	var (
		out       []byte
		in        int
		flags     uint32
		flagCount uint
	)

	// Position of a pending length-extension byte, -1 when empty. Local to
	// one call: concurrent decodes must not share nibble state.
	nibblePos := -1

	for {
		if flagCount == 0 {
			if in+4 > len(src) {
				return out
			}
			flags = binary.LittleEndian.Uint32(src[in : in+4])
			in += 4
			flagCount = 32
		}
		flagCount--

		if flags&(1<<flagCount) == 0 {
			// Literal.
			if in >= len(src) || len(out) >= maxOutputSize {
				return out
			}
			out = append(out, src[in])
			in++
			continue
		}

		// Match. Exhausting the input exactly here is the clean end of the
		// stream; running short anywhere below is not.
		if in == len(src) {
			return out
		}
		if in+2 > len(src) {
			return out
		}
		token := binary.LittleEndian.Uint16(src[in : in+2])
		in += 2

		length := int(token & 7)
		offset := int(token>>3) + 1

		if length == 7 {
			if nibblePos < 0 {
				if in >= len(src) {
					return out
				}
				length = int(src[in] & 0x0f)
				nibblePos = in
				in++
			} else {
				// The previous maxed match already read this byte; reuse
				// its high nibble without consuming input.
				length = int(src[nibblePos] >> 4)
				nibblePos = -1
			}

			if length == 15 {
				if in >= len(src) {
					return out
				}
				next := src[in]
				in++
				if next == 0xff {
					if in+2 > len(src) {
						return out
					}
					full := binary.LittleEndian.Uint16(src[in : in+2])
					in += 2
					if full < 15+7 {
						return out
					}
					length = int(full) - (15 + 7)
				} else {
					length = int(next)
				}
				length += 15
			}
			length += 7
		}
		length += minMatch

		// Copy byte by byte: an overlapping reference (offset < length)
		// must see bytes written earlier in the same match (RLE-style
		// runs), and a partial copy before a stop condition is kept.
		for i := 0; i < length; i++ {
			from := len(out) - offset
			if from < 0 || len(out) >= maxOutputSize {
				return out
			}
			out = append(out, out[from])
		}
	}
}
