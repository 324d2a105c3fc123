// Package carve drives the scan-and-decompress pipeline over a raw input
// stream: buffered reads, stride scanning, parallel decoding and page
// normalization, strictly ordered across buffers.
//
// Two coverage gaps are inherent to the heuristic scan and are kept on
// purpose. Consecutive read buffers are not overlapped, so a compressed
// chunk whose start lies within the last 4095 bytes of a buffer is
// truncated and lost. And within one buffer, pages are emitted in decode
// completion order, not in the offset order of the windows that produced
// them; the optional catalog records provenance for that reason.
package carve

import (
	"fmt"
	"io"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/msuhanov/winmem-decompress/pkg/catalog"
	"github.com/msuhanov/winmem-decompress/pkg/dispatch"
	"github.com/msuhanov/winmem-decompress/pkg/lz77"
	"github.com/msuhanov/winmem-decompress/pkg/scanner"
)

// BufferPages is the number of pages read from the source per cycle.
const BufferPages = 32

// Options configure a Carver. Zero values select the defaults.
type Options struct {
	// Workers is the size of the decode pool.
	Workers int

	// BatchSize is the number of windows handed to the pool at a time.
	BatchSize int

	// DedupeCache enables an LRU of decode results keyed by window content
	// when > 0. Memory images repeat whole pages, and a duplicate window is
	// served from the cache instead of re-entering the pool.
	DedupeCache int

	// Catalog, when non-nil, receives a provenance record per emitted page.
	Catalog *catalog.Catalog

	// Metrics, when non-nil, receives pipeline counters.
	Metrics *Metrics
}

// Stats is a point-in-time snapshot of pipeline progress.
type Stats struct {
	BuffersRead    uint64 `json:"buffers_read"`
	BytesRead      uint64 `json:"bytes_read"`
	WindowsScanned uint64 `json:"windows_scanned"`
	WindowsSkipped uint64 `json:"windows_skipped"`
	PagesEmitted   uint64 `json:"pages_emitted"`
	PagesDiscarded uint64 `json:"pages_discarded"`
	DedupeHits     uint64 `json:"dedupe_hits"`
}

// Carver owns the process-wide decode pool. Create one before the first
// buffer is read and Close it once the input is exhausted.
type Carver struct {
	opts  Options
	pool  *dispatch.Pool
	cache *lru.Cache[string, []byte]

	buffersRead    atomic.Uint64
	bytesRead      atomic.Uint64
	windowsScanned atomic.Uint64
	windowsSkipped atomic.Uint64
	pagesEmitted   atomic.Uint64
	pagesDiscarded atomic.Uint64
	dedupeHits     atomic.Uint64
}

// New starts the decode pool and, when configured, the dedupe cache.
func New(opts Options) (*Carver, error) {
	c := &Carver{opts: opts}
	if opts.DedupeCache > 0 {
		cache, err := lru.New[string, []byte](opts.DedupeCache)
		if err != nil {
			return nil, fmt.Errorf("create dedupe cache: %w", err)
		}
		c.cache = cache
	}
	c.pool = dispatch.NewPool(opts.Workers, lz77.Decompress)
	return c, nil
}

// Run scans r to exhaustion and writes every recovered page to w, buffer by
// buffer. It stops after the first short read, having processed the final
// partial buffer. Only sink and catalog failures are errors; malformed
// compressed data never is.
func (c *Carver) Run(r io.Reader, w io.Writer) (Stats, error) {
	buf := make([]byte, BufferPages*scanner.PageSize)
	var base int64

	for {
		n, err := io.ReadFull(r, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return c.Snapshot(), fmt.Errorf("read input: %w", err)
		}
		if n > 0 {
			if err := c.processBuffer(buf[:n], base, w); err != nil {
				return c.Snapshot(), err
			}
			base += int64(n)
		}
		if n < len(buf) {
			return c.Snapshot(), nil
		}
	}
}

// Snapshot returns the current pipeline counters.
func (c *Carver) Snapshot() Stats {
	return Stats{
		BuffersRead:    c.buffersRead.Load(),
		BytesRead:      c.bytesRead.Load(),
		WindowsScanned: c.windowsScanned.Load(),
		WindowsSkipped: c.windowsSkipped.Load(),
		PagesEmitted:   c.pagesEmitted.Load(),
		PagesDiscarded: c.pagesDiscarded.Load(),
		DedupeHits:     c.dedupeHits.Load(),
	}
}

// Close drains and stops the decode pool.
func (c *Carver) Close() {
	c.pool.Close()
}

// processBuffer runs one full scan-decode-emit cycle and drains the pool
// before returning, so buffer N is fully emitted before buffer N+1 is read.
func (c *Carver) processBuffer(buf []byte, base int64, w io.Writer) error {
	c.buffersRead.Add(1)
	c.bytesRead.Add(uint64(len(buf)))
	c.opts.Metrics.recordBuffer(len(buf))

	windows := scanner.Scan(buf, base)
	strides := (len(buf) + scanner.ChunkStride - 1) / scanner.ChunkStride
	c.windowsScanned.Add(uint64(len(windows)))
	c.windowsSkipped.Add(uint64(strides - len(windows)))
	c.opts.Metrics.recordScan(len(windows), strides-len(windows))

	tasks := make([]dispatch.Task, 0, len(windows))
	var cached []dispatch.Result
	for _, win := range windows {
		if c.cache != nil {
			if data, ok := c.cache.Get(string(win.Data)); ok {
				c.dedupeHits.Add(1)
				c.opts.Metrics.recordDedupeHit()
				cached = append(cached, dispatch.Result{
					Task: dispatch.Task{Window: win.Data, Offset: win.Offset},
					Data: data,
				})
				continue
			}
		}
		tasks = append(tasks, dispatch.Task{Window: win.Data, Offset: win.Offset})
	}

	for res := range c.pool.Map(tasks, c.opts.BatchSize) {
		if c.cache != nil {
			c.cache.Add(string(res.Window), res.Data)
		}
		if err := c.emit(res, w); err != nil {
			return err
		}
	}
	for _, res := range cached {
		if err := c.emit(res, w); err != nil {
			return err
		}
	}
	return nil
}

func (c *Carver) emit(res dispatch.Result, w io.Writer) error {
	c.opts.Metrics.recordDecode(len(res.Data))

	page, ok := scanner.NormalizePage(res.Data)
	if !ok {
		c.pagesDiscarded.Add(1)
		c.opts.Metrics.recordPage(false)
		return nil
	}

	if c.opts.Catalog != nil {
		if _, err := c.opts.Catalog.Append(res.Offset, len(res.Data)); err != nil {
			return err
		}
	}
	if _, err := w.Write(page); err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	c.pagesEmitted.Add(1)
	c.opts.Metrics.recordPage(true)
	return nil
}
