package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	assert.Nil(t, Split(nil, 4))

	spans := Split([]byte("abcdefghij"), 4)
	assert.Equal(t, [][]byte{[]byte("abcd"), []byte("efgh"), []byte("ij")}, spans)

	spans = Split([]byte("abcd"), 4)
	assert.Len(t, spans, 1)
}

func TestNewChunkStoreRejectsBadSize(t *testing.T) {
	_, err := NewChunkStore(0, false)
	assert.Error(t, err)
}

func TestChunkStoreWriteRead(t *testing.T) {
	for _, compress := range []bool{false, true} {
		cs, err := NewChunkStore(3, compress)
		require.NoError(t, err)

		ids, err := cs.Write("f", 1, []byte("abcdefg"))
		require.NoError(t, err)
		assert.Equal(t, []ChunkID{{"f", 1, 0}, {"f", 1, 1}, {"f", 1, 2}}, ids)
		assert.Equal(t, int64(7), cs.Bytes())

		got, err := cs.Read("f", 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("abcdefg"), got)

		c, err := cs.ReadChunk(ChunkID{"f", 1, 2})
		require.NoError(t, err)
		assert.Equal(t, []byte("g"), c)

		_, err = cs.ReadChunk(ChunkID{"f", 1, 3})
		assert.Error(t, err)
	}
}

func TestChunkStoreWriteIsImmutable(t *testing.T) {
	cs, err := NewChunkStore(4, false)
	require.NoError(t, err)

	content := []byte("data")
	_, err = cs.Write("f", 1, content)
	require.NoError(t, err)
	content[0] = 'X'

	got, err := cs.Read("f", 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)

	_, err = cs.Write("f", 1, []byte("other"))
	assert.Error(t, err)
	assert.Equal(t, int64(4), cs.Bytes())
}

func TestChunkStoreEmptyVersion(t *testing.T) {
	cs, err := NewChunkStore(4, false)
	require.NoError(t, err)

	ids, err := cs.Write("f", 1, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.True(t, cs.Has("f", 1))
	assert.Equal(t, int64(0), cs.VersionBytes("f", 1))

	got, err := cs.Read("f", 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChunkStoreRelease(t *testing.T) {
	cs, err := NewChunkStore(2, false)
	require.NoError(t, err)

	_, err = cs.Write("f", 1, []byte("abc"))
	require.NoError(t, err)
	_, err = cs.Write("f", 2, []byte("abcde"))
	require.NoError(t, err)
	_, err = cs.Write("g", 1, []byte("z"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, cs.Versions("f"))

	assert.Equal(t, int64(3), cs.Release("f", 1))
	assert.Equal(t, int64(0), cs.Release("f", 1))
	assert.Equal(t, int64(6), cs.Bytes())
	assert.Equal(t, int64(-1), cs.VersionBytes("f", 1))
	assert.False(t, cs.Has("f", 1))

	_, err = cs.Read("f", 1)
	assert.Error(t, err)
}

func TestChunkStoreDetectsCorruption(t *testing.T) {
	cs, err := NewChunkStore(4, true)
	require.NoError(t, err)

	_, err = cs.Write("f", 1, bytes.Repeat([]byte("a"), 10))
	require.NoError(t, err)

	stored := cs.chunks[versionKey{"f", 1}]
	stored[0].digest[0] ^= 1

	_, err = cs.Read("f", 1)
	assert.ErrorContains(t, err, "digest mismatch")
}
