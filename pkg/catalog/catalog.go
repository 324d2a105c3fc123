// Package catalog persists provenance records for recovered pages, so a
// page in the output stream can be traced back to the image offset of the
// compressed chunk that produced it even though pages within one buffer are
// emitted in completion order.
package catalog

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
)

// Record describes one emitted page.
// Format: [Sequence(8 LE)][SourceOffset(8 LE)][RawLength(4 LE)]
type Record struct {
	Sequence     uint64 // emission order within the run
	SourceOffset int64  // stream offset of the window that produced the page
	RawLength    uint32 // decoded length before truncation or padding
}

const recordSize = 20

// Catalog is a pebble-backed index of Records. Keys are the per-run ksuid
// followed by a big-endian sequence number, so several runs can share one
// directory and iterate in emission order.
type Catalog struct {
	db  *pebble.DB
	run ksuid.KSUID
	seq uint64
}

// Open opens (or creates) a catalog directory and starts a new run.
func Open(path string) (*Catalog, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return &Catalog{db: db, run: ksuid.New()}, nil
}

// Run returns the identifier of this scan run.
func (c *Catalog) Run() ksuid.KSUID { return c.run }

// Append records one emitted page and returns its sequence number.
func (c *Catalog) Append(sourceOffset int64, rawLength int) (uint64, error) {
	seq := c.seq
	c.seq++

	rec := Record{
		Sequence:     seq,
		SourceOffset: sourceOffset,
		RawLength:    uint32(rawLength),
	}
	if err := c.db.Set(c.key(seq), rec.encode(), pebble.NoSync); err != nil {
		return 0, fmt.Errorf("append catalog record: %w", err)
	}
	return seq, nil
}

// Records returns every record written under this run, in sequence order.
func (c *Catalog) Records() ([]Record, error) {
	prefix := c.run.Bytes()
	iter, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	defer iter.Close()

	var records []Record
	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return records, nil
}

// Close flushes and closes the underlying store.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) key(seq uint64) []byte {
	run := c.run.Bytes()
	key := make([]byte, len(run)+8)
	copy(key, run)
	binary.BigEndian.PutUint64(key[len(run):], seq)
	return key
}

// keyUpperBound returns the smallest key greater than every key with the
// given prefix, for use as an exclusive iterator bound.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (r Record) encode() []byte {
	buf := make([]byte, recordSize)
	binary.LittleEndian.PutUint64(buf[0:], r.Sequence)
	binary.LittleEndian.PutUint64(buf[8:], uint64(r.SourceOffset))
	binary.LittleEndian.PutUint32(buf[16:], r.RawLength)
	return buf
}

func decodeRecord(data []byte) (Record, error) {
	if len(data) < recordSize {
		return Record{}, fmt.Errorf("catalog record too short: %d bytes", len(data))
	}
	return Record{
		Sequence:     binary.LittleEndian.Uint64(data[0:8]),
		SourceOffset: int64(binary.LittleEndian.Uint64(data[8:16])),
		RawLength:    binary.LittleEndian.Uint32(data[16:20]),
	}, nil
}
