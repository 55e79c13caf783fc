package ledgercol

import (
	"context"
	"io"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/ledgercol/internal/conv"
)

// Flush appends the buffered values to the data file in one write and
// clears the buffer. It is refused with ErrExiting once the exit guard
// requested shutdown. A failed flush leaves the column unusable for writing;
// callers should treat it as fatal for the column.
func (c *Column[T]) Flush(ctx context.Context) error {
	if c.closed.Load() {
		return columnError("flush", c.name, ErrClosed)
	}
	if err := c.opts.guard.Enter(); err != nil {
		return columnError("flush", c.name, err)
	}
	defer c.opts.guard.Leave()
	return c.flush(ctx)
}

// flush is Flush for a caller that already entered the exit guard.
func (c *Column[T]) flush(ctx context.Context) error {
	if c.closed.Load() {
		return columnError("flush", c.name, ErrClosed)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	pending := c.buf[:len(c.buf):len(c.buf)]
	d := c.diskLen.Load()
	c.mu.RUnlock()
	if len(pending) == 0 {
		return nil
	}

	start := time.Now()
	block, err := c.encode(ctx, pending)
	if err == nil {
		err = c.writeBlock(ctx, block, d)
	}
	if err == nil {
		c.mu.Lock()
		c.diskLen.Store(d + uint64(len(pending)))
		if rest := len(c.buf) - len(pending); rest > 0 {
			c.buf = append([]T(nil), c.buf[len(pending):]...)
		} else {
			clear(c.buf)
			c.buf = c.buf[:0]
		}
		c.mu.Unlock()
	}

	elapsed := time.Since(start)
	c.opts.metricsCollector.RecordFlush(c.name, len(pending), len(block), elapsed, err)
	c.log.LogFlush(ctx, len(pending), len(block), elapsed, err)
	return columnError("flush", c.name, err)
}

// encode serializes vals into one block. Large buffers are split into
// chunks encoded concurrently into disjoint ranges of the block.
func (c *Column[T]) encode(ctx context.Context, vals []T) ([]byte, error) {
	w := c.width
	block := make([]byte, len(vals)*w)

	chunk := c.opts.parallelEncodeThreshold
	if chunk <= 0 || len(vals) <= chunk {
		for i, v := range vals {
			c.codec.Encode(block[i*w:(i+1)*w], v)
		}
		return block, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for lo := 0; lo < len(vals); lo += chunk {
		hi := min(lo+chunk, len(vals))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				c.codec.Encode(block[i*w:(i+1)*w], vals[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return block, nil
}

func (c *Column[T]) writeBlock(ctx context.Context, block []byte, diskLen uint64) error {
	off, err := conv.Offset(diskLen, c.width)
	if err != nil {
		return err
	}
	if err := c.opts.resources.AcquireIO(ctx, len(block)); err != nil {
		return err
	}

	n, err := c.file.WriteAt(block, off)
	if err == nil && n != len(block) {
		err = io.ErrShortWrite
	}
	if err == nil && c.opts.syncOnFlush {
		err = c.file.Sync()
	}
	if err != nil {
		// Drop whatever part of the block reached the file so a reopen does
		// not pick it up as records.
		_ = c.file.Truncate(off)
		return err
	}
	return nil
}

// TruncateIfNeeded shrinks the column to i records and returns the value
// previously stored at i. It is a no-op reporting false if i >= Len().
// Truncating into the flushed region shrinks the data file and drops every
// buffered value. Refused with ErrExiting once shutdown was requested.
func (c *Column[T]) TruncateIfNeeded(i Index) (T, bool, error) {
	var zero T
	if c.closed.Load() {
		return zero, false, columnError("truncate", c.name, ErrClosed)
	}
	if err := c.opts.guard.Enter(); err != nil {
		return zero, false, columnError("truncate", c.name, err)
	}
	defer c.opts.guard.Leave()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	k := uint64(i)
	d := c.diskLen.Load()
	n := d + uint64(len(c.buf))
	if k >= n {
		return zero, false, nil
	}

	prev, _, err := c.valueLocked(k)
	if err == nil {
		err = c.shrinkLocked(k)
	}

	c.opts.metricsCollector.RecordTruncate(c.name, int(n-k), err)
	c.log.LogTruncate(context.Background(), int(n), int(k), err)
	if err != nil {
		return zero, false, columnError("truncate", c.name, err)
	}
	return prev, true, nil
}

// shrinkLocked cuts the column to k records. The caller holds writeMu and mu.
func (c *Column[T]) shrinkLocked(k uint64) error {
	d := c.diskLen.Load()
	if k >= d {
		tail := c.buf[k-d:]
		clear(tail)
		c.buf = c.buf[:k-d]
		return nil
	}

	off, err := conv.Offset(k, c.width)
	if err != nil {
		return err
	}
	// No reader can hold a page while mu is held exclusively.
	c.reader.invalidate(k)
	if err := c.file.Truncate(off); err != nil {
		return err
	}
	c.diskLen.Store(k)
	clear(c.buf)
	c.buf = c.buf[:0]
	return nil
}

// Reset drops every record, flushed or buffered. The version file is kept.
func (c *Column[T]) Reset(ctx context.Context) error {
	if c.closed.Load() {
		return columnError("reset", c.name, ErrClosed)
	}
	if err := c.opts.guard.Enter(); err != nil {
		return columnError("reset", c.name, err)
	}
	defer c.opts.guard.Leave()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := int(c.diskLen.Load()) + len(c.buf)
	c.reader.invalidate(0)
	if err := c.file.Truncate(0); err != nil {
		return columnError("reset", c.name, err)
	}
	c.diskLen.Store(0)
	clear(c.buf)
	c.buf = c.buf[:0]

	c.log.LogReset(ctx, "requested", dropped)
	return nil
}
