package storage

import (
	"bytes"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickClock returns a clock that advances one second per call.
func tickClock() func() time.Time {
	t := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Now == nil {
		cfg.Now = tickClock()
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func names(views []FileView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Metadata.Name
	}
	return out
}

func tagsPtr(tags ...string) *[]string { return &tags }

func TestExampleScenario(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, err := e.UploadFile("a.txt", []byte("hello"), "text/plain", []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), e.StorageAnalytics().Used)

	_, err = e.UploadFile("a.txt", []byte("again"), "text/plain", nil)
	assert.ErrorIs(t, err, ErrFileAlreadyExists)

	_, err = e.CreateFileVersion("a.txt", []byte("goodbye"))
	require.NoError(t, err)
	view, err := e.DownloadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("goodbye"), view.Content)
	assert.Len(t, view.Metadata.VersionHistory, 2)

	require.NoError(t, e.DeleteFile("a.txt"))
	assert.Equal(t, uint64(0), e.StorageAnalytics().Used)
	require.NoError(t, e.Verify())
}

func TestUploadUniqueness(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, err := e.UploadFile("f", []byte("1"), "bin", nil)
	require.NoError(t, err)
	for range 3 {
		_, err = e.UploadFile("f", []byte("2"), "bin", nil)
		assert.ErrorIs(t, err, ErrFileAlreadyExists)
	}
	require.NoError(t, e.DeleteFile("f"))
	_, err = e.UploadFile("f", []byte("3"), "bin", nil)
	require.NoError(t, err)

	view, err := e.DownloadFile("f")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), view.Content)
	assert.Equal(t, []uint64{1}, view.Metadata.VersionHistory)
}

func TestUploadRoundTrip(t *testing.T) {
	e := newTestEngine(t, Config{})

	sizes := []int{0, 1, ChunkSize - 1, ChunkSize, ChunkSize + 1, 3*ChunkSize + 17}
	for _, n := range sizes {
		content := bytes.Repeat([]byte{byte(n % 251)}, n)
		for i := range content {
			content[i] ^= byte(i)
		}
		name := "blob-" + strconv.Itoa(n)
		_, err := e.UploadFile(name, content, "application/octet-stream", nil)
		require.NoError(t, err)

		view, err := e.DownloadFile(name)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(content, view.Content), "size %d", n)
		assert.Equal(t, int64(n), view.Metadata.Size)
	}
	require.NoError(t, e.Verify())
}

func TestUploadMetadata(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, err := e.UploadFile("doc", []byte("abc"), "text/plain", []string{"b", "a", "b"}, WithEncrypted(true))
	require.NoError(t, err)
	view, err := e.DownloadFile("doc")
	require.NoError(t, err)

	m := view.Metadata
	assert.Equal(t, "doc", m.Name)
	assert.Equal(t, "text/plain", m.FileType)
	assert.Equal(t, []string{"a", "b"}, m.Tags)
	assert.True(t, m.IsEncrypted)
	assert.Equal(t, m.UploadTimestamp, m.LastModified)
	assert.Equal(t, uint64(1), m.CurrentVersion)
}

func TestCapacityBoundary(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, err := e.UploadFile("big", make([]byte, MaxFileSize+1), "bin", nil)
	assert.ErrorIs(t, err, ErrStorageLimit)
	assert.Equal(t, uint64(0), e.StorageAnalytics().Used)

	_, err = e.UploadFile("big", make([]byte, MaxFileSize), "bin", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(MaxFileSize), e.StorageAnalytics().Used)

	_, err = e.CreateFileVersion("big", make([]byte, MaxFileSize+1))
	assert.ErrorIs(t, err, ErrStorageLimit)
	require.NoError(t, e.Verify())
}

func TestGlobalCapacity(t *testing.T) {
	e := newTestEngine(t, Config{capacity: 100, maxFileSize: 60, chunkSize: 16})

	_, err := e.UploadFile("a", make([]byte, 60), "bin", []string{"t"})
	require.NoError(t, err)
	_, err = e.UploadFile("b", make([]byte, 41), "bin", []string{"t"})
	assert.ErrorIs(t, err, ErrStorageLimit)

	// Nothing from the failed upload is observable.
	_, err = e.DownloadFile("b")
	assert.ErrorIs(t, err, ErrFileNotFound)
	views, err := e.SearchByTags([]string{"t"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names(views))
	assert.Equal(t, Analytics{Used: 60, Capacity: 100, Count: 1}, e.StorageAnalytics())

	_, err = e.UploadFile("b", make([]byte, 40), "bin", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), e.StorageAnalytics().Used)
	require.NoError(t, e.Verify())
}

func TestCreateVersionLatestOnly(t *testing.T) {
	e := newTestEngine(t, Config{capacity: 100, maxFileSize: 60, chunkSize: 16})

	_, err := e.UploadFile("a", make([]byte, 60), "bin", nil)
	require.NoError(t, err)
	_, err = e.UploadFile("b", make([]byte, 30), "bin", nil)
	require.NoError(t, err)

	// Replacing 60 bytes with 60 fits because the old version is released.
	_, err = e.CreateFileVersion("a", bytes.Repeat([]byte("z"), 60))
	require.NoError(t, err)
	assert.Equal(t, uint64(90), e.StorageAnalytics().Used)

	// Growing b by 11 bytes would need 101.
	_, err = e.CreateFileVersion("b", make([]byte, 41))
	assert.ErrorIs(t, err, ErrStorageLimit)

	view, err := e.DownloadFile("b")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, view.Metadata.VersionHistory)
	assert.Equal(t, int64(30), view.Metadata.Size)

	_, err = e.DownloadVersion("a", 1)
	assert.ErrorIs(t, err, ErrFileNotFound)
	require.NoError(t, e.Verify())
}

func TestCreateVersionRetainAll(t *testing.T) {
	e := newTestEngine(t, Config{Retention: RetainAll, capacity: 100, maxFileSize: 100, chunkSize: 16})

	_, err := e.UploadFile("a", []byte("one"), "text/plain", nil)
	require.NoError(t, err)
	_, err = e.CreateFileVersion("a", []byte("two!"))
	require.NoError(t, err)
	_, err = e.CreateFileVersion("a", []byte("three"))
	require.NoError(t, err)
	assert.Equal(t, uint64(12), e.StorageAnalytics().Used)

	old, err := e.DownloadVersion("a", 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), old.Content)
	assert.Equal(t, int64(3), old.Metadata.Size)

	cur, err := e.DownloadFile("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("three"), cur.Content)
	assert.Equal(t, []uint64{1, 2, 3}, cur.Metadata.VersionHistory)

	_, err = e.DownloadVersion("a", 9)
	assert.ErrorIs(t, err, ErrFileNotFound)

	// Every retained version counts toward the cap.
	_, err = e.CreateFileVersion("a", make([]byte, 89))
	assert.ErrorIs(t, err, ErrStorageLimit)

	require.NoError(t, e.DeleteFile("a"))
	assert.Equal(t, uint64(0), e.StorageAnalytics().Used)
	require.NoError(t, e.Verify())
}

func TestCreateVersionKeepTwo(t *testing.T) {
	e := newTestEngine(t, Config{Retention: RetentionPolicy{Keep: 2}})

	_, err := e.UploadFile("a", []byte("v1"), "text/plain", nil)
	require.NoError(t, err)
	_, err = e.CreateFileVersion("a", []byte("v2."))
	require.NoError(t, err)
	_, err = e.CreateFileVersion("a", []byte("v3.."))
	require.NoError(t, err)

	assert.Equal(t, uint64(7), e.StorageAnalytics().Used)
	_, err = e.DownloadVersion("a", 1)
	assert.ErrorIs(t, err, ErrFileNotFound)
	v2, err := e.DownloadVersion("a", 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2."), v2.Content)

	versions, err := e.FileVersions("a")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.False(t, versions[0].Retained)
	assert.True(t, versions[1].Retained)
	assert.True(t, versions[2].Retained)
	require.NoError(t, e.Verify())
}

func TestVersioningUpdatesMetadata(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, err := e.UploadFile("f", []byte("first"), "text/plain", nil)
	require.NoError(t, err)
	before, err := e.DownloadFile("f")
	require.NoError(t, err)

	_, err = e.CreateFileVersion("f", []byte("second content"))
	require.NoError(t, err)
	after, err := e.DownloadFile("f")
	require.NoError(t, err)

	assert.Equal(t, []byte("second content"), after.Content)
	assert.Equal(t, append(before.Metadata.VersionHistory, 2), after.Metadata.VersionHistory)
	assert.Equal(t, uint64(2), after.Metadata.CurrentVersion)
	assert.Equal(t, int64(14), after.Metadata.Size)
	assert.Equal(t, before.Metadata.UploadTimestamp, after.Metadata.UploadTimestamp)
	assert.True(t, after.Metadata.LastModified.After(before.Metadata.LastModified))
}

func TestTagConsistency(t *testing.T) {
	e := newTestEngine(t, Config{})
	_, err := e.UploadFile("f", []byte("x"), "text/plain", nil)
	require.NoError(t, err)

	_, err = e.UpdateFileMetadata("f", tagsPtr("a", "b"))
	require.NoError(t, err)
	views, err := e.SearchByTags([]string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"f"}, names(views))
	views, err = e.SearchByTags([]string{"z"})
	require.NoError(t, err)
	assert.Empty(t, views)

	_, err = e.UpdateFileMetadata("f", tagsPtr("b"))
	require.NoError(t, err)
	views, err = e.SearchByTags([]string{"a"})
	require.NoError(t, err)
	assert.Empty(t, views)
	views, err = e.SearchByTags([]string{"b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"f"}, names(views))
	require.NoError(t, e.Verify())
}

func TestUpdateMetadataWithoutTags(t *testing.T) {
	e := newTestEngine(t, Config{})
	_, err := e.UploadFile("f", []byte("x"), "text/plain", []string{"keep"})
	require.NoError(t, err)
	before, err := e.DownloadFile("f")
	require.NoError(t, err)

	_, err = e.UpdateFileMetadata("f", nil)
	require.NoError(t, err)
	after, err := e.DownloadFile("f")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, after.Metadata.Tags)
	assert.True(t, after.Metadata.LastModified.After(before.Metadata.LastModified))

	_, err = e.UpdateFileMetadata("f", tagsPtr())
	require.NoError(t, err)
	views, err := e.SearchByTags([]string{"keep"})
	require.NoError(t, err)
	assert.Empty(t, views)

	_, err = e.UpdateFileMetadata("missing", nil)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestSearchOrderAndModes(t *testing.T) {
	e := newTestEngine(t, Config{})
	_, err := e.UploadFile("c", []byte("3"), "t", []string{"red", "big"})
	require.NoError(t, err)
	_, err = e.UploadFile("a", []byte("1"), "t", []string{"red"})
	require.NoError(t, err)
	_, err = e.UploadFile("b", []byte("2"), "t", []string{"big"})
	require.NoError(t, err)

	anyMatch, err := e.SearchByTags([]string{"big", "red"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, names(anyMatch))

	all, err := e.SearchByAllTags([]string{"big", "red"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, names(all))

	none, err := e.SearchByTags(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteReleasesQuota(t *testing.T) {
	e := newTestEngine(t, Config{})
	_, err := e.UploadFile("keep", make([]byte, 1000), "bin", nil)
	require.NoError(t, err)
	_, err = e.UploadFile("drop", make([]byte, ChunkSize+5), "bin", []string{"t"})
	require.NoError(t, err)
	before := e.StorageAnalytics()

	require.NoError(t, e.DeleteFile("drop"))
	after := e.StorageAnalytics()
	assert.Equal(t, before.Used-uint64(ChunkSize+5), after.Used)
	assert.Equal(t, uint64(1), after.Count)
	assert.Empty(t, e.TagCounts())

	assert.ErrorIs(t, e.DeleteFile("drop"), ErrFileNotFound)
}

func TestQuotaConservation(t *testing.T) {
	e := newTestEngine(t, Config{chunkSize: 8})
	sum := func() uint64 {
		var n uint64
		for _, m := range e.ListFiles() {
			n += uint64(m.Size)
		}
		return n
	}

	steps := []func(){
		func() { _, _ = e.UploadFile("a", make([]byte, 20), "bin", nil) },
		func() { _, _ = e.UploadFile("b", make([]byte, 3), "bin", []string{"x"}) },
		func() { _, _ = e.CreateFileVersion("a", make([]byte, 9)) },
		func() { _, _ = e.UploadFile("a", make([]byte, 1), "bin", nil) },
		func() { _, _ = e.UpdateFileMetadata("b", tagsPtr("y")) },
		func() { _, _ = e.CreateFileVersion("b", make([]byte, 33)) },
		func() { _ = e.DeleteFile("a") },
		func() { _, _ = e.CreateFileVersion("a", make([]byte, 1)) },
	}
	for i, step := range steps {
		step()
		assert.Equal(t, sum(), e.StorageAnalytics().Used, "after step %d", i)
		require.NoError(t, e.Verify(), "after step %d", i)
	}
}

func TestValidation(t *testing.T) {
	e := newTestEngine(t, Config{})

	tests := []struct {
		name     string
		file     string
		fileType string
		tags     []string
		want     error
	}{
		{"empty name", "", "text/plain", nil, ErrInvalidOperation},
		{"control char name", "a\x00b", "text/plain", nil, ErrInvalidOperation},
		{"empty type", "f", "", nil, ErrInvalidFileType},
		{"blank type", "f", "   ", nil, ErrInvalidFileType},
		{"empty tag", "f", "text/plain", []string{"ok", ""}, ErrInvalidOperation},
		{"newline tag", "f", "text/plain", []string{"a\nb"}, ErrInvalidOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.UploadFile(tt.file, []byte("x"), tt.fileType, tt.tags)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, uint64(0), e.StorageAnalytics().Count)

	_, err := e.DownloadFile("")
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = e.UpdateFileMetadata("f", tagsPtr(""))
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestNotFound(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, err := e.DownloadFile("nope")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, e.DeleteFile("nope"), ErrFileNotFound)
	_, err = e.CreateFileVersion("nope", []byte("x"))
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = e.FileVersions("nope")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, KindFileNotFound, KindOf(err))
	_, err = e.Stat("nope")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestStatReturnsCopy(t *testing.T) {
	e := newTestEngine(t, Config{})
	_, err := e.UploadFile("s", []byte("abc"), "bin", []string{"t"})
	require.NoError(t, err)

	meta, err := e.Stat("s")
	require.NoError(t, err)
	assert.Equal(t, int64(3), meta.Size)
	meta.Tags[0] = "changed"

	again, err := e.Stat("s")
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, again.Tags)
}

func TestFileTypeDistribution(t *testing.T) {
	e := newTestEngine(t, Config{})
	_, err := e.UploadFile("a", nil, "text/plain", nil)
	require.NoError(t, err)
	_, err = e.UploadFile("b", nil, "text/plain", nil)
	require.NoError(t, err)
	_, err = e.UploadFile("c", nil, "image/png", nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]uint64{"text/plain": 2, "image/png": 1}, e.FileTypeDistribution())

	require.NoError(t, e.DeleteFile("c"))
	assert.Equal(t, map[string]uint64{"text/plain": 2}, e.FileTypeDistribution())
}

func TestCorruptChunkIsSystemError(t *testing.T) {
	e := newTestEngine(t, Config{chunkSize: 4})
	_, err := e.UploadFile("f", []byte("abcdefgh"), "text/plain", nil)
	require.NoError(t, err)

	stored := e.chunks.chunks[versionKey{"f", 1}]
	stored[1].data[0] ^= 0xff

	_, err = e.DownloadFile("f")
	assert.ErrorIs(t, err, ErrSystem)
}

func TestCompressedEngine(t *testing.T) {
	e := newTestEngine(t, Config{Compress: true, chunkSize: 64})
	content := bytes.Repeat([]byte("compressible "), 100)

	_, err := e.UploadFile("f", content, "text/plain", nil)
	require.NoError(t, err)
	view, err := e.DownloadFile("f")
	require.NoError(t, err)
	assert.Equal(t, content, view.Content)
	assert.Equal(t, uint64(len(content)), e.StorageAnalytics().Used)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingObserver) Committed(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestObserverEvents(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(t, Config{Observer: obs})

	content := []byte("data")
	_, err := e.UploadFile("f", content, "text/plain", nil)
	require.NoError(t, err)
	content[0] = 'X' // the event must not alias caller memory
	_, err = e.UpdateFileMetadata("f", tagsPtr("t"))
	require.NoError(t, err)
	_, err = e.CreateFileVersion("f", []byte("more"))
	require.NoError(t, err)
	require.NoError(t, e.DeleteFile("f"))
	assert.Error(t, e.DeleteFile("f"))

	require.Len(t, obs.events, 4)
	assert.Equal(t, EventUploaded, obs.events[0].Kind)
	assert.Equal(t, []byte("data"), obs.events[0].Content)
	assert.Equal(t, EventTagsUpdated, obs.events[1].Kind)
	assert.Equal(t, []string{"t"}, obs.events[1].Metadata.Tags)
	assert.Equal(t, EventVersionCreated, obs.events[2].Kind)
	assert.Equal(t, uint64(2), obs.events[2].Metadata.CurrentVersion)
	assert.Equal(t, EventDeleted, obs.events[3].Kind)
	assert.Nil(t, obs.events[3].Content)
	for i, ev := range obs.events {
		assert.Equal(t, uint64(i+1), ev.Seq)
	}
}

func TestObserverOrderUnderContention(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(t, Config{Observer: obs, Now: func() time.Time { return time.Unix(0, 0) }})

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 2000 {
				_, _ = e.UploadFile("x", []byte("payload"), "bin", nil)
				_ = e.DeleteFile("x")
			}
		}()
	}
	wg.Wait()

	require.NotEmpty(t, obs.events)
	_, err := e.Stat("x")
	exists := err == nil
	for i, ev := range obs.events {
		require.Equal(t, uint64(i+1), ev.Seq)
		want := EventUploaded
		if i%2 == 1 {
			want = EventDeleted
		}
		require.Equal(t, want, ev.Kind, "event %d", i)
	}
	assert.Equal(t, exists, obs.events[len(obs.events)-1].Kind == EventUploaded)
}

func TestMutationsReturnCommittedMetadata(t *testing.T) {
	e := newTestEngine(t, Config{})

	up, err := e.UploadFile("f", []byte("abc"), "text/plain", []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, "f", up.Name)
	assert.Equal(t, int64(3), up.Size)
	assert.Equal(t, uint64(1), up.CurrentVersion)
	assert.Equal(t, []string{"a", "b"}, up.Tags)

	tagged, err := e.UpdateFileMetadata("f", tagsPtr("c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, tagged.Tags)
	assert.True(t, tagged.LastModified.After(up.LastModified))

	v2, err := e.CreateFileVersion("f", []byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v2.CurrentVersion)
	assert.Equal(t, int64(6), v2.Size)
	assert.Equal(t, []string{"c"}, v2.Tags)

	// The returned copy is detached from the engine.
	v2.Tags[0] = "mutated"
	stat, err := e.Stat("f")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, stat.Tags)

	_, err = e.UploadFile("f", nil, "text/plain", nil)
	require.ErrorIs(t, err, ErrFileAlreadyExists)
}

func TestConcurrentOperations(t *testing.T) {
	e := newTestEngine(t, Config{chunkSize: 16, Now: func() time.Time { return time.Unix(0, 0) }})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i))
			for j := range 20 {
				_, _ = e.UploadFile(name, make([]byte, j), "bin", []string{"t"})
				_, _ = e.CreateFileVersion(name, make([]byte, j*3))
				_, _ = e.SearchByTags([]string{"t"})
				_ = e.StorageAnalytics()
				if j%3 == 0 {
					_ = e.DeleteFile(name)
				}
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, e.Verify())
}
