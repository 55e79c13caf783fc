package ledgercol

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/ledgercol/exit"
)

// member is the type-erased view of a Column held by its Group.
type member interface {
	Name() string
	Flush(ctx context.Context) error
	Close() error
	flush(ctx context.Context) error
	exitGuard() *exit.Guard
	preallocate(n int64) error
	releasePreallocated() error
}

// Group is a directory holding one subdirectory per column. Columns
// imported through it are tracked as live until closed.
type Group struct {
	dir  string
	opts []Option
	o    options

	mu      sync.Mutex
	members map[string]member // nil value while an import is in progress
	minLen  int64
	closed  bool
}

// OpenGroup creates or opens the group directory dir. Options become the
// defaults of every column imported through the group.
func OpenGroup(dir string, opts ...Option) (*Group, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ledgercol: open group %s: %w", dir, err)
	}
	return &Group{
		dir:     dir,
		opts:    slices.Clone(opts),
		o:       o,
		members: make(map[string]member),
	}, nil
}

// Dir returns the group directory.
func (g *Group) Dir() string { return g.dir }

// Logger returns the group logger.
func (g *Group) Logger() *Logger { return g.o.logger }

func (g *Group) columnOptions(extra []Option) options {
	o := defaultOptions()
	for _, opt := range g.opts {
		opt(&o)
	}
	for _, opt := range extra {
		opt(&o)
	}
	return o
}

func (g *Group) reserve(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return fmt.Errorf("ledgercol: import %s: %w", name, ErrClosed)
	}
	if _, ok := g.members[name]; ok {
		return fmt.Errorf("ledgercol: import %s: %w", name, ErrAlreadyOpen)
	}
	g.members[name] = nil
	return nil
}

func (g *Group) register(name string, m member) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[name] = m
}

func (g *Group) release(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.members, name)
}

func (g *Group) minimumLength() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.minLen
}

func (g *Group) live() []member {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]member, 0, len(g.members))
	for _, m := range g.members {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Columns returns the names of the open columns, sorted.
func (g *Group) Columns() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.members))
	for name := range g.members {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SetMinimumLength reserves disk blocks so that every column's data file can
// grow to n bytes without further allocation. File sizes do not change.
// Columns imported later are reserved too. On platforms without block
// reservation this only records n.
func (g *Group) SetMinimumLength(n int64) error {
	g.mu.Lock()
	g.minLen = n
	g.mu.Unlock()

	var errs []error
	for _, m := range g.live() {
		if err := m.preallocate(n); err != nil {
			errs = append(errs, columnError("preallocate", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// StaleRegions lists subdirectories that belong to no open column.
func (g *Group) StaleRegions() ([]string, error) {
	entries, err := g.o.fs.ReadDir(g.dir)
	if err != nil {
		return nil, err
	}
	open := g.Columns()
	var stale []string
	for _, e := range entries {
		if e.IsDir() && !slices.Contains(open, e.Name()) {
			stale = append(stale, e.Name())
		}
	}
	return stale, nil
}

// RetainRegions deletes every subdirectory not named in live. Open columns
// are always retained. It returns the removed names.
func (g *Group) RetainRegions(live []string) ([]string, error) {
	stale, err := g.StaleRegions()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, name := range stale {
		if slices.Contains(live, name) {
			continue
		}
		if err := g.o.fs.RemoveAll(filepath.Join(g.dir, name)); err != nil {
			return removed, fmt.Errorf("ledgercol: remove region %s: %w", name, err)
		}
		g.o.logger.Info("removed stale region", "group", g.dir, "region", name)
		removed = append(removed, name)
	}
	return removed, nil
}

// Compact deletes every subdirectory that belongs to no open column and
// releases blocks reserved by SetMinimumLength past the end of each data file.
func (g *Group) Compact() error {
	if _, err := g.RetainRegions(nil); err != nil {
		return err
	}
	g.mu.Lock()
	g.minLen = 0
	g.mu.Unlock()

	var errs []error
	for _, m := range g.live() {
		if err := m.releasePreallocated(); err != nil {
			errs = append(errs, columnError("compact", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// FlushAll flushes every open column. Columns are flushed concurrently,
// bounded by the resource controller's background worker count.
//
// The exit guards of the group and of every column are entered once for the
// whole call, so an Exit either refuses the checkpoint before any column is
// written or waits until every column is flushed.
func (g *Group) FlushAll(ctx context.Context) error {
	members := g.live()
	slices.SortFunc(members, func(a, b member) int { return strings.Compare(a.Name(), b.Name()) })

	guards := []*exit.Guard{g.o.guard}
	for _, m := range members {
		if mg := m.exitGuard(); !slices.Contains(guards, mg) {
			guards = append(guards, mg)
		}
	}
	for i, gd := range guards {
		if err := gd.Enter(); err != nil {
			for _, entered := range guards[:i] {
				entered.Leave()
			}
			return fmt.Errorf("ledgercol: flush group %s: %w", g.dir, translateError(err))
		}
	}
	defer func() {
		for _, gd := range guards {
			gd.Leave()
		}
	}()

	rc := g.o.resources
	eg, ctx := errgroup.WithContext(ctx)
	for _, m := range members {
		eg.Go(func() error {
			if err := rc.AcquireBackground(ctx); err != nil {
				return err
			}
			defer rc.ReleaseBackground()
			return m.flush(ctx)
		})
	}
	return eg.Wait()
}

// Close closes every open column without flushing. Later imports fail.
func (g *Group) Close() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	var errs []error
	for _, m := range g.live() {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
