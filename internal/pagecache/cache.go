package pagecache

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/ledgercol/internal/mmap"
	"github.com/hupe1980/ledgercol/resource"
)

// DefaultPageTarget is the minimum page size used when Config.PageBytes is zero.
const DefaultPageTarget = 64 * 1024

var (
	// ErrWindowTooSmall is returned when the window ceiling cannot hold one page.
	ErrWindowTooSmall = errors.New("pagecache: window smaller than one page")
	// ErrClosed is returned by reads after Close.
	ErrClosed = errors.New("pagecache: closed")
)

// Source is the file a cache maps pages of.
type Source interface {
	io.ReaderAt
	Fd() uintptr
}

// Config configures a Cache.
type Config struct {
	// RecordWidth is the fixed byte width of one record. Required.
	RecordWidth int
	// PageBytes is the requested page size. It is rounded up to a multiple of
	// both the OS page size and RecordWidth. Zero selects DefaultPageTarget.
	PageBytes int
	// WindowBytes is the ceiling of mapped bytes for this cache.
	WindowBytes int64
	// Resources is charged for every mapped page. Optional.
	Resources *resource.Controller
	// Advice is passed to madvise for every new mapping.
	Advice mmap.AccessPattern
	// OnMap is called with the byte size of every new mapping. Optional.
	OnMap func(bytes int)
}

// Stats are cumulative cache counters.
type Stats struct {
	Maps      int64
	Unmaps    int64
	Hits      int64
	Fallbacks int64
	Resident  int
}

// Cache is a sliding window of mapped pages over one file.
type Cache struct {
	src       Source
	width     int
	pageBytes int
	perPage   uint64
	window    int64
	res       *resource.Controller
	advice    mmap.AccessPattern
	onMap     func(int)

	slots []atomic.Pointer[slot]
	mu    sync.Mutex // serializes slot replacement and window movement
	high  atomic.Int64

	closed atomic.Bool

	maps, unmaps, hits, fallbacks atomic.Int64
}

// PageBytes returns the smallest multiple of lcm(OS page size, width) that is
// at least target bytes.
func PageBytes(width, target int) int {
	base := lcm(mmap.PageSize(), width)
	if target <= base {
		return base
	}
	return (target + base - 1) / base * base
}

// New creates a cache over src.
func New(src Source, cfg Config) (*Cache, error) {
	if cfg.RecordWidth <= 0 {
		return nil, fmt.Errorf("pagecache: invalid record width %d", cfg.RecordWidth)
	}
	target := cfg.PageBytes
	if target <= 0 {
		target = DefaultPageTarget
	}
	pb := PageBytes(cfg.RecordWidth, target)
	if cfg.WindowBytes < int64(pb) {
		return nil, fmt.Errorf("%w: window %d bytes, page %d bytes", ErrWindowTooSmall, cfg.WindowBytes, pb)
	}
	window := cfg.WindowBytes / int64(pb)

	c := &Cache{
		src:       src,
		width:     cfg.RecordWidth,
		pageBytes: pb,
		perPage:   uint64(pb / cfg.RecordWidth),
		window:    window,
		res:       cfg.Resources,
		advice:    cfg.Advice,
		onMap:     cfg.OnMap,
		slots:     make([]atomic.Pointer[slot], window),
	}
	c.high.Store(-1)
	return c, nil
}

// PageBytes returns the byte size of one page.
func (c *Cache) PageBytes() int { return c.pageBytes }

// RecordsPerPage returns the number of records in one page.
func (c *Cache) RecordsPerPage() uint64 { return c.perPage }

// Window returns the maximum number of resident pages.
func (c *Cache) Window() int64 { return c.window }

// PageOf returns the page holding record index.
func (c *Cache) PageOf(index uint64) int64 { return int64(index / c.perPage) }

// Read copies record index into dst (len(dst) must equal the record width).
// diskLen is the current on-disk record count and index must be below it.
func (c *Cache) Read(index, diskLen uint64, dst []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	p := c.PageOf(index)
	if pg := c.acquire(p, diskLen); pg != nil {
		defer pg.release()
		off := int((index - uint64(p)*c.perPage) * uint64(c.width))
		copy(dst, pg.m.Bytes()[off:off+c.width])
		return nil
	}
	return c.readDirect(dst, int64(index)*int64(c.width))
}

// Scan calls fn for every record in [from, to) in order, stopping early when
// fn returns false. rec is only valid during the call. It reports whether the
// scan ran to completion. to must not exceed diskLen.
func (c *Cache) Scan(from, to, diskLen uint64, fn func(index uint64, rec []byte) bool) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}
	var buf []byte
	for from < to {
		p := c.PageOf(from)
		pageStart := uint64(p) * c.perPage
		end := min(pageStart+c.perPage, to)

		var data []byte
		var pg *page
		if pg = c.acquire(p, diskLen); pg != nil {
			data = pg.m.Bytes()[(from-pageStart)*uint64(c.width) : (end-pageStart)*uint64(c.width)]
		} else {
			n := int(end-from) * c.width
			if cap(buf) < n {
				buf = make([]byte, c.pageBytes)
			}
			data = buf[:n]
			if err := c.readDirect(data, int64(from)*int64(c.width)); err != nil {
				return false, err
			}
		}

		cont := true
		for i := from; i < end && cont; i++ {
			off := (i - from) * uint64(c.width)
			cont = fn(i, data[off:off+uint64(c.width)])
		}
		if pg != nil {
			pg.release()
		}
		if !cont {
			return false, nil
		}
		from = end
	}
	return true, nil
}

func (c *Cache) readDirect(dst []byte, off int64) error {
	c.fallbacks.Add(1)
	n, err := c.src.ReadAt(dst, off)
	if n == len(dst) {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// acquire returns a referenced mapping of page p, or nil if the caller must
// read directly.
func (c *Cache) acquire(p int64, diskLen uint64) *page {
	if uint64(p+1)*c.perPage > diskLen {
		return nil
	}
	idx := p % c.window

	if s := c.slots[idx].Load(); s != nil && s.index == p {
		if pg, err := s.load(); err == nil && pg != nil && pg.acquire() {
			c.hits.Add(1)
			return pg
		}
	}

	c.mu.Lock()
	if p > c.high.Load() {
		c.slideLocked(p)
	}
	if p <= c.high.Load()-c.window {
		c.mu.Unlock()
		return nil
	}
	s := c.slots[idx].Load()
	if s == nil || s.index != p || s.evicted.Load() {
		if s != nil {
			s.evict()
		}
		s = newSlot(p, c.mapPage)
		c.slots[idx].Store(s)
	}
	c.mu.Unlock()

	pg, err := s.load()
	if err != nil || pg == nil {
		// Let a later read retry this page.
		c.mu.Lock()
		if c.slots[idx].Load() == s {
			c.slots[idx].Store(nil)
		}
		c.mu.Unlock()
		return nil
	}
	if !pg.acquire() {
		return nil
	}
	return pg
}

// slideLocked moves the window so that p is its highest page and evicts
// slots that fell out of it.
func (c *Cache) slideLocked(p int64) {
	c.high.Store(p)
	low := p - c.window
	for i := range c.slots {
		if s := c.slots[i].Load(); s != nil && s.index <= low {
			s.evict()
			c.slots[i].Store(nil)
		}
	}
}

func (c *Cache) mapPage(p int64) (*page, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	size := int64(c.pageBytes)
	if !c.res.TryAcquireMemory(size) {
		return nil, nil
	}
	m, err := mmap.MapRange(c.src, p*size, c.pageBytes)
	if err != nil {
		c.res.ReleaseMemory(size)
		return nil, err
	}
	_ = m.Advise(c.advice)
	c.maps.Add(1)
	if c.onMap != nil {
		c.onMap(c.pageBytes)
	}

	pg := &page{m: m}
	pg.refs.Store(1)
	pg.onFinal = func() {
		c.unmaps.Add(1)
		c.res.ReleaseMemory(size)
	}
	return pg, nil
}

// Invalidate evicts every resident page at or beyond fromPage.
func (c *Cache) Invalidate(fromPage int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if s := c.slots[i].Load(); s != nil && s.index >= fromPage {
			s.evict()
			c.slots[i].Store(nil)
		}
	}
	if c.high.Load() >= fromPage {
		c.high.Store(fromPage - 1)
	}
}

// Resident returns the number of slots currently holding a page.
func (c *Cache) Resident() int {
	n := 0
	for i := range c.slots {
		if s := c.slots[i].Load(); s != nil && s.cur.Load() != nil {
			n++
		}
	}
	return n
}

// Stats returns cumulative counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Maps:      c.maps.Load(),
		Unmaps:    c.unmaps.Load(),
		Hits:      c.hits.Load(),
		Fallbacks: c.fallbacks.Load(),
		Resident:  c.Resident(),
	}
}

// Close evicts all pages. Mappings still referenced by readers are unmapped
// when they are released.
func (c *Cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.Invalidate(0)
	return nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}
