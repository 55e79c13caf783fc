package backup

import (
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/ledgercol/codec"
)

const (
	manifestName = "manifest.json"
	chunkDir     = "vec"
)

// Manifest describes the stored copy of one column.
type Manifest struct {
	Column      string      `json:"column"`
	Length      int64       `json:"length"`
	ChunkSize   int         `json:"chunk_size"`
	Compression Compression `json:"compression"`
	// Generation counts the snapshots of this column. Chunks uploaded by a
	// snapshot are named after its generation, so they never replace a
	// chunk an earlier manifest still refers to.
	Generation uint64 `json:"generation"`
	// Checksums holds the CRC32C of each uncompressed chunk.
	Checksums []uint32 `json:"checksums"`
	// Generations holds the generation that stored each chunk.
	Generations []uint64 `json:"generations"`
	// Files holds the side files stored next to the data, e.g. "version".
	Files   map[string][]byte `json:"files"`
	Created time.Time         `json:"created"`

	// ChunkSet is the serialized bitmap of stored chunk ids.
	ChunkSet []byte `json:"chunks"`

	chunks *roaring.Bitmap
}

// Chunks returns the ids of the stored chunks.
func (m *Manifest) Chunks() *roaring.Bitmap {
	if m.chunks == nil {
		m.chunks = roaring.New()
	}
	return m.chunks
}

// NumChunks is the number of chunks Length spans.
func (m *Manifest) NumChunks() int {
	if m.ChunkSize <= 0 {
		return 0
	}
	return int((m.Length + int64(m.ChunkSize) - 1) / int64(m.ChunkSize))
}

// Complete reports whether every chunk of Length is stored.
func (m *Manifest) Complete() bool {
	n := m.NumChunks()
	if len(m.Checksums) != n || len(m.Generations) != n {
		return false
	}
	return int(m.Chunks().GetCardinality()) == n && (n == 0 || m.Chunks().Maximum() == uint32(n-1))
}

func encodeManifest(m *Manifest) ([]byte, error) {
	set, err := m.Chunks().ToBytes()
	if err != nil {
		return nil, err
	}
	m.ChunkSet = set
	return codec.DefaultDocument.Marshal(m)
}

func decodeManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := codec.DefaultDocument.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("backup: decode manifest: %w", err)
	}
	m.chunks = roaring.New()
	if len(m.ChunkSet) > 0 {
		if err := m.chunks.UnmarshalBinary(m.ChunkSet); err != nil {
			return nil, fmt.Errorf("backup: decode chunk set: %w", err)
		}
	}
	return m, nil
}

func chunkName(column string, id int, gen uint64) string {
	return fmt.Sprintf("%s/%s/%08d-%06d", column, chunkDir, id, gen)
}

// chunkName returns the blob name of chunk id.
func (m *Manifest) chunkName(id int) string {
	return chunkName(m.Column, id, m.Generations[id])
}

// referenced returns the blob names of all chunks m refers to.
func (m *Manifest) referenced() map[string]struct{} {
	out := make(map[string]struct{}, len(m.Generations))
	it := m.Chunks().Iterator()
	for it.HasNext() {
		if id := int(it.Next()); id < len(m.Generations) {
			out[m.chunkName(id)] = struct{}{}
		}
	}
	return out
}
