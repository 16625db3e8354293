package storage

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// ChunkID addresses one chunk of one version of one file.
type ChunkID struct {
	File    string
	Version uint64
	Seq     int
}

func (id ChunkID) String() string {
	return fmt.Sprintf("%s@%d#%d", id.File, id.Version, id.Seq)
}

type chunk struct {
	data       []byte
	size       int // logical length
	digest     [32]byte
	compressed bool
}

type versionKey struct {
	file    string
	version uint64
}

// ChunkStore holds raw byte chunks. It knows nothing about metadata or
// quotas; callers account for the bytes it reports.
type ChunkStore struct {
	chunkSize int
	chunks    map[versionKey][]chunk
	bytes     int64

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewChunkStore creates a store that splits content into spans of at most
// chunkSize bytes. With compress set, chunks are held zstd-compressed.
func NewChunkStore(chunkSize int, compress bool) (*ChunkStore, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	cs := &ChunkStore{
		chunkSize: chunkSize,
		chunks:    make(map[versionKey][]chunk),
	}
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		cs.enc, cs.dec = enc, dec
	}
	return cs, nil
}

// ChunkSize returns the configured maximum span.
func (cs *ChunkStore) ChunkSize() int { return cs.chunkSize }

// Bytes returns the logical bytes currently held.
func (cs *ChunkStore) Bytes() int64 { return cs.bytes }

// Split cuts content into consecutive spans of at most size bytes. The
// spans alias content.
func Split(content []byte, size int) [][]byte {
	if len(content) == 0 {
		return nil
	}
	spans := make([][]byte, 0, (len(content)+size-1)/size)
	for start := 0; start < len(content); start += size {
		end := min(start+size, len(content))
		spans = append(spans, content[start:end])
	}
	return spans
}

// Write stores content as the chunks of (file, version). Writing an
// existing pair is an error; versions are immutable.
func (cs *ChunkStore) Write(file string, version uint64, content []byte) ([]ChunkID, error) {
	key := versionKey{file, version}
	if _, ok := cs.chunks[key]; ok {
		return nil, fmt.Errorf("chunks for %s@%d already exist", file, version)
	}
	spans := Split(content, cs.chunkSize)
	stored := make([]chunk, 0, len(spans))
	ids := make([]ChunkID, 0, len(spans))
	for i, span := range spans {
		c := chunk{size: len(span), digest: blake3.Sum256(span)}
		if cs.enc != nil {
			c.data = cs.enc.EncodeAll(span, nil)
			c.compressed = true
		} else {
			c.data = bytes.Clone(span)
		}
		stored = append(stored, c)
		ids = append(ids, ChunkID{File: file, Version: version, Seq: i})
	}
	cs.chunks[key] = stored
	cs.bytes += int64(len(content))
	return ids, nil
}

// Has reports whether chunks exist for (file, version). A zero-length
// version is present with no chunks.
func (cs *ChunkStore) Has(file string, version uint64) bool {
	_, ok := cs.chunks[versionKey{file, version}]
	return ok
}

// Read reassembles (file, version) in sequence order, verifying each
// chunk's digest.
func (cs *ChunkStore) Read(file string, version uint64) ([]byte, error) {
	stored, ok := cs.chunks[versionKey{file, version}]
	if !ok {
		return nil, fmt.Errorf("no chunks for %s@%d", file, version)
	}
	var total int
	for _, c := range stored {
		total += c.size
	}
	out := make([]byte, 0, total)
	for i, c := range stored {
		data, err := cs.open(c)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", ChunkID{file, version, i}, err)
		}
		out = append(out, data...)
	}
	return out, nil
}

// ReadChunk returns a single chunk, for chunk-level access.
func (cs *ChunkStore) ReadChunk(id ChunkID) ([]byte, error) {
	stored, ok := cs.chunks[versionKey{id.File, id.Version}]
	if !ok || id.Seq < 0 || id.Seq >= len(stored) {
		return nil, fmt.Errorf("no chunk %s", id)
	}
	data, err := cs.open(stored[id.Seq])
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", id, err)
	}
	return data, nil
}

func (cs *ChunkStore) open(c chunk) ([]byte, error) {
	data := c.data
	if c.compressed {
		var err error
		data, err = cs.dec.DecodeAll(c.data, make([]byte, 0, c.size))
		if err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
	}
	if len(data) != c.size || blake3.Sum256(data) != c.digest {
		return nil, fmt.Errorf("digest mismatch")
	}
	if !c.compressed {
		data = bytes.Clone(data)
	}
	return data, nil
}

// Release frees every chunk of (file, version) and returns the logical
// bytes freed. Releasing an unknown pair frees nothing.
func (cs *ChunkStore) Release(file string, version uint64) int64 {
	key := versionKey{file, version}
	stored, ok := cs.chunks[key]
	if !ok {
		return 0
	}
	var freed int64
	for _, c := range stored {
		freed += int64(c.size)
	}
	delete(cs.chunks, key)
	cs.bytes -= freed
	return freed
}

// VersionBytes returns the logical size of (file, version), or -1.
func (cs *ChunkStore) VersionBytes(file string, version uint64) int64 {
	stored, ok := cs.chunks[versionKey{file, version}]
	if !ok {
		return -1
	}
	var n int64
	for _, c := range stored {
		n += int64(c.size)
	}
	return n
}

// Versions lists the versions of file that still hold chunks, ascending.
func (cs *ChunkStore) Versions(file string) []uint64 {
	var out []uint64
	for k := range cs.chunks {
		if k.file == file {
			out = append(out, k.version)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
