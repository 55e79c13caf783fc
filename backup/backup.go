package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/ledgercol"
	"github.com/hupe1980/ledgercol/blobstore"
	"github.com/hupe1980/ledgercol/internal/hash"
	ifs "github.com/hupe1980/ledgercol/internal/fs"
	"github.com/hupe1980/ledgercol/resource"
)

// DefaultChunkSize is the uncompressed size of a data chunk.
const DefaultChunkSize = 4 << 20

// sideFiles are stored verbatim in the manifest.
var sideFiles = []string{"version", "computed_version"}

// ErrCorrupt is returned by Restore when a chunk fails verification.
var ErrCorrupt = errors.New("backup: corrupt chunk")

// Options configures Snapshot and Restore.
type Options struct {
	// ChunkSize is the uncompressed chunk size. Changing it between snapshots
	// uploads every chunk again. Default: DefaultChunkSize.
	ChunkSize int
	// Compression is applied to new chunks. Default: CompressionZSTD.
	Compression Compression
	// Resources bounds concurrent uploads and the read/write rate. Optional.
	Resources *resource.Controller
	// Logger receives progress. Default: ledgercol.NoopLogger().
	Logger *ledgercol.Logger
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Logger == nil {
		o.Logger = ledgercol.NoopLogger()
	}
	return o
}

// Report summarizes a Snapshot or Restore.
type Report struct {
	Columns  []string
	Uploaded int
	Skipped  int
	Deleted  int
	Restored int
	Bytes    int64
}

func (r *Report) add(o *Report) {
	r.Columns = append(r.Columns, o.Columns...)
	r.Uploaded += o.Uploaded
	r.Skipped += o.Skipped
	r.Deleted += o.Deleted
	r.Restored += o.Restored
	r.Bytes += o.Bytes
}

// Snapshot flushes every open column of g and copies it to store.
func Snapshot(ctx context.Context, g *ledgercol.Group, store blobstore.BlobStore, opts Options) (*Report, error) {
	if err := g.FlushAll(ctx); err != nil {
		return nil, err
	}
	cols := g.Columns()
	if len(cols) == 0 {
		return &Report{}, nil
	}
	return SnapshotDir(ctx, g.Dir(), store, opts, cols...)
}

// SnapshotDir copies the named column directories below dir to store. With
// no names, every subdirectory holding a data file is copied.
func SnapshotDir(ctx context.Context, dir string, store blobstore.BlobStore, opts Options, columns ...string) (*Report, error) {
	o := opts.withDefaults()
	if len(columns) == 0 {
		var err error
		if columns, err = ColumnDirs(dir); err != nil {
			return nil, err
		}
	}

	total := &Report{}
	for _, name := range columns {
		rep, err := snapshotColumn(ctx, dir, name, store, o)
		if err != nil {
			return total, fmt.Errorf("backup: snapshot %s: %w", name, err)
		}
		o.Logger.InfoContext(ctx, "column snapshot",
			"column", name,
			"uploaded", rep.Uploaded,
			"skipped", rep.Skipped,
			"deleted", rep.Deleted,
			"bytes", rep.Bytes,
		)
		total.add(rep)
	}
	return total, nil
}

// ColumnDirs lists the subdirectories of dir that hold a data file.
func ColumnDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, e.Name(), "vec")); err == nil {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func loadManifest(ctx context.Context, store blobstore.BlobStore, column string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, store, path.Join(column, manifestName))
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeManifest(data)
}

func snapshotColumn(ctx context.Context, dir, name string, store blobstore.BlobStore, o Options) (*Report, error) {
	rep := &Report{Columns: []string{name}}
	colDir := filepath.Join(dir, name)

	prev, err := loadManifest(ctx, store, name)
	if err != nil {
		return nil, err
	}
	reusable := prev != nil && prev.ChunkSize == o.ChunkSize && prev.Compression == o.Compression &&
		len(prev.Generations) == len(prev.Checksums)

	f, err := os.Open(filepath.Join(colDir, "vec"))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Column:      name,
		Length:      info.Size(),
		ChunkSize:   o.ChunkSize,
		Compression: o.Compression,
		Generation:  1,
		Files:       make(map[string][]byte),
		Created:     time.Now().UTC(),
		chunks:      roaring.New(),
	}
	if prev != nil {
		m.Generation = prev.Generation + 1
	}
	n := m.NumChunks()
	m.Checksums = make([]uint32, n)
	m.Generations = make([]uint64, n)

	var mu sync.Mutex
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.Resources.Workers())
	r := resource.NewRateLimitedReader(egctx, io.NewSectionReader(f, 0, m.Length), o.Resources)

	for id := range n {
		buf := make([]byte, min(int64(o.ChunkSize), m.Length-int64(id)*int64(o.ChunkSize)))
		if _, err := io.ReadFull(r, buf); err != nil {
			if werr := eg.Wait(); werr != nil {
				return nil, werr
			}
			return nil, err
		}
		sum := hash.CRC32C(buf)
		m.Checksums[id] = sum

		if reusable && id < len(prev.Checksums) && prev.Checksums[id] == sum && prev.Chunks().Contains(uint32(id)) {
			m.Generations[id] = prev.Generations[id]
			mu.Lock()
			m.Chunks().Add(uint32(id))
			rep.Skipped++
			mu.Unlock()
			continue
		}

		m.Generations[id] = m.Generation
		eg.Go(func() error {
			if err := o.Resources.AcquireBackground(egctx); err != nil {
				return err
			}
			defer o.Resources.ReleaseBackground()

			data := compressChunk(buf, o.Compression)
			if err := upload(egctx, store, m.chunkName(id), data); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			m.Chunks().Add(uint32(id))
			rep.Uploaded++
			rep.Bytes += int64(len(data))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, side := range sideFiles {
		data, err := os.ReadFile(filepath.Join(colDir, side))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m.Files[side] = data
	}

	data, err := encodeManifest(m)
	if err != nil {
		return nil, err
	}
	if err := store.Put(ctx, path.Join(name, manifestName), data); err != nil {
		return nil, err
	}

	deleted, err := sweep(ctx, store, m)
	rep.Deleted = deleted
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// upload streams data into a new blob and aborts it on a failed write.
func upload(ctx context.Context, store blobstore.BlobStore, name string, data []byte) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Close()
}

// sweep deletes the chunks of m's column that m does not refer to: chunks
// replaced or cut off by this snapshot and leftovers of failed ones. It runs
// only after m is stored.
func sweep(ctx context.Context, store blobstore.BlobStore, m *Manifest) (int, error) {
	names, err := store.List(ctx, path.Join(m.Column, chunkDir)+"/")
	if err != nil {
		return 0, err
	}
	keep := m.referenced()
	deleted := 0
	for _, name := range names {
		if _, ok := keep[name]; ok {
			continue
		}
		if err := store.Delete(ctx, name); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// Manifests returns the manifest of every column in store, sorted by column.
func Manifests(ctx context.Context, store blobstore.BlobStore) ([]*Manifest, error) {
	names, err := store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var out []*Manifest
	for _, n := range names {
		col, file, ok := strings.Cut(n, "/")
		if !ok || file != manifestName {
			continue
		}
		m, err := loadManifest(ctx, store, col)
		if err != nil {
			return nil, err
		}
		if m != nil {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b *Manifest) int { return strings.Compare(a.Column, b.Column) })
	return out, nil
}

// Restore rebuilds column directories below dir from store. With no names,
// every column with a manifest is restored. Existing files of a restored
// column are replaced. The columns must not be open.
func Restore(ctx context.Context, store blobstore.BlobStore, dir string, opts Options, columns ...string) (*Report, error) {
	o := opts.withDefaults()

	var manifests []*Manifest
	if len(columns) == 0 {
		var err error
		if manifests, err = Manifests(ctx, store); err != nil {
			return nil, err
		}
	} else {
		for _, name := range columns {
			m, err := loadManifest(ctx, store, name)
			if err != nil {
				return nil, err
			}
			if m == nil {
				return nil, fmt.Errorf("backup: restore %s: %w", name, blobstore.ErrNotFound)
			}
			manifests = append(manifests, m)
		}
	}

	total := &Report{}
	for _, m := range manifests {
		rep, err := restoreColumn(ctx, store, dir, m, o)
		if err != nil {
			return total, fmt.Errorf("backup: restore %s: %w", m.Column, err)
		}
		o.Logger.InfoContext(ctx, "column restored",
			"column", m.Column,
			"chunks", rep.Restored,
			"bytes", rep.Bytes,
		)
		total.add(rep)
	}
	return total, nil
}

func restoreColumn(ctx context.Context, store blobstore.BlobStore, dir string, m *Manifest, o Options) (*Report, error) {
	if !m.Complete() {
		return nil, fmt.Errorf("%w: manifest of %s is incomplete", ErrCorrupt, m.Column)
	}
	rep := &Report{Columns: []string{m.Column}}
	colDir := filepath.Join(dir, m.Column)
	if err := ifs.Default.MkdirAll(colDir, 0o755); err != nil {
		return nil, err
	}

	tmp := filepath.Join(colDir, "vec.tmp")
	f, err := ifs.Default.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	w := resource.NewRateLimitedWriter(ctx, f, o.Resources)

	err = func() error {
		for id := range m.NumChunks() {
			name := m.chunkName(id)
			raw, err := blobstore.ReadAll(ctx, store, name)
			if err != nil {
				return err
			}
			data, err := decompressChunk(raw, m.Compression)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
			}
			if err := hash.Verify(name, data, m.Checksums[id]); err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			if _, err := w.Write(data); err != nil {
				return err
			}
			rep.Restored++
			rep.Bytes += int64(len(data))
		}
		if rep.Bytes != m.Length {
			return fmt.Errorf("%w: restored %d bytes, manifest says %d", ErrCorrupt, rep.Bytes, m.Length)
		}
		return f.Sync()
	}()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = ifs.Default.Remove(tmp)
		return nil, err
	}

	for _, side := range sideFiles {
		p := filepath.Join(colDir, side)
		if data, ok := m.Files[side]; ok {
			if err := ifs.WriteFile(ifs.Default, p, data, 0o644); err != nil {
				return nil, err
			}
		} else if err := ifs.Default.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if err := ifs.Default.Rename(tmp, filepath.Join(colDir, "vec")); err != nil {
		return nil, err
	}
	return rep, nil
}
