package pagecache

import (
	"sync"
	"sync/atomic"

	"github.com/hupe1980/ledgercol/internal/mmap"
)

// page is one mapped page. refs starts at one for the cache's own reference.
type page struct {
	m       *mmap.Mapping
	refs    atomic.Int64
	onFinal func()
}

func (p *page) acquire() bool {
	for {
		r := p.refs.Load()
		if r <= 0 {
			return false
		}
		if p.refs.CompareAndSwap(r, r+1) {
			return true
		}
	}
}

func (p *page) release() {
	if p.refs.Add(-1) == 0 {
		_ = p.m.Close()
		if p.onFinal != nil {
			p.onFinal()
		}
	}
}

// slot binds one page index to its mapping. load runs the mapping at most once.
type slot struct {
	index   int64
	load    func() (*page, error)
	cur     atomic.Pointer[page]
	evicted atomic.Bool
}

func newSlot(index int64, mapper func(int64) (*page, error)) *slot {
	s := &slot{index: index}
	s.load = sync.OnceValues(func() (*page, error) {
		pg, err := mapper(index)
		if err != nil || pg == nil {
			return nil, err
		}
		s.cur.Store(pg)
		// Lost the race with evict: whoever clears cur drops the cache reference.
		if s.evicted.Load() && s.cur.CompareAndSwap(pg, nil) {
			pg.release()
		}
		return pg, nil
	})
	return s
}

// evict drops the cache reference without forcing a mapping.
func (s *slot) evict() {
	s.evicted.Store(true)
	if pg := s.cur.Swap(nil); pg != nil {
		pg.release()
	}
}
