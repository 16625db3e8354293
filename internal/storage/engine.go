// Package storage implements the chunkvault storage engine: chunked,
// versioned, quota-bounded file storage with a tag index.
//
// The Engine owns every component and serializes all operations through a
// single critical section. A mutating operation either applies completely
// or returns an *Error having changed nothing.
package storage

import (
	"bytes"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

// Fixed limits.
const (
	ChunkSize   = 1 << 20  // 1 MiB
	MaxFileSize = 10 << 20 // 10 MiB per file
	Capacity    = 1 << 30  // 1 GiB across all retained versions

	maxNameLen     = 1024
	maxFileTypeLen = 255
	maxTagLen      = 255
)

// EventKind names a committed mutation.
type EventKind string

const (
	EventUploaded       EventKind = "uploaded"
	EventDeleted        EventKind = "deleted"
	EventTagsUpdated    EventKind = "tags_updated"
	EventVersionCreated EventKind = "version_created"
)

// Event describes a committed mutation. Content holds the current version's
// bytes for uploads and new versions and is nil otherwise. Seq numbers the
// engine's commits from 1 without gaps.
type Event struct {
	Seq      uint64
	Kind     EventKind
	Name     string
	Metadata FileMetadata
	Content  []byte
	At       time.Time
}

// Observer is notified after each successful mutation, outside the
// engine's critical section, in commit order per engine. Committed calls
// never overlap.
type Observer interface {
	Committed(Event)
}

// Config configures an Engine.
type Config struct {
	Retention RetentionPolicy
	Compress  bool

	Logger   *slog.Logger
	Metrics  *Metrics
	Observer Observer
	Now      func() time.Time

	// Smaller limits for tests. Zero takes the fixed constants.
	chunkSize   int
	maxFileSize int64
	capacity    int64
}

// Engine is the storage facade.
type Engine struct {
	mu        sync.RWMutex
	commitSeq uint64 // guarded by mu

	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	delivered  uint64 // guarded by notifyMu

	registry *FileRegistry
	chunks   *ChunkStore
	quota    *QuotaTracker
	versions *VersionManager
	tags     *TagIndex

	logger   *slog.Logger
	metrics  *Metrics
	observer Observer
	now      func() time.Time
}

// New creates an empty engine.
func New(cfg Config) (*Engine, error) {
	if cfg.chunkSize == 0 {
		cfg.chunkSize = ChunkSize
	}
	if cfg.maxFileSize == 0 {
		cfg.maxFileSize = MaxFileSize
	}
	if cfg.capacity == 0 {
		cfg.capacity = Capacity
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	chunks, err := NewChunkStore(cfg.chunkSize, cfg.Compress)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		chunks:   chunks,
		quota:    NewQuotaTracker(cfg.capacity, cfg.maxFileSize),
		versions: NewVersionManager(cfg.Retention),
		tags:     NewTagIndex(),
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		observer: cfg.Observer,
		now:      cfg.Now,
	}
	e.notifyCond = sync.NewCond(&e.notifyMu)
	e.registry = NewFileRegistry(e.chunks, e.quota, e.versions, e.tags)
	e.metrics.updateState(0, cfg.capacity, 0, 0)
	return e, nil
}

// RetentionKeep reports how many versions per file keep their content.
func (e *Engine) RetentionKeep() int { return e.versions.Policy().Keep }

// UploadOption adjusts an upload.
type UploadOption func(*uploadOptions)

type uploadOptions struct {
	encrypted bool
}

// WithEncrypted records that the caller encrypted the content. The engine
// does not inspect or enforce it.
func WithEncrypted(encrypted bool) UploadOption {
	return func(o *uploadOptions) { o.encrypted = encrypted }
}

// UploadFile stores a new file as version 1 and returns its committed
// metadata.
func (e *Engine) UploadFile(name string, content []byte, fileType string, tags []string, opts ...UploadOption) (_ FileMetadata, err error) {
	const op = "upload"
	start := time.Now()
	defer func() { e.finish(op, name, start, err) }()

	var o uploadOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateName(op, name); err != nil {
		return FileMetadata{}, err
	}
	if err := validateFileType(op, name, fileType); err != nil {
		return FileMetadata{}, err
	}
	normalized, err := normalizeTags(op, name, tags)
	if err != nil {
		return FileMetadata{}, err
	}

	e.mu.Lock()
	now := e.now()
	if err := e.registry.Upload(name, content, fileType, normalized, o.encrypted, now); err != nil {
		e.mu.Unlock()
		return FileMetadata{}, err
	}
	ev := e.eventLocked(EventUploaded, name, content, now)
	e.mu.Unlock()

	e.metrics.recordUpload(len(content))
	e.notify(ev)
	return ev.Metadata.Clone(), nil
}

// DeleteFile removes a file with all of its versions and tag links.
func (e *Engine) DeleteFile(name string) (err error) {
	const op = "delete"
	start := time.Now()
	defer func() { e.finish(op, name, start, err) }()

	if err := validateName(op, name); err != nil {
		return err
	}

	e.mu.Lock()
	meta, ok := e.registry.files[name]
	if !ok {
		e.mu.Unlock()
		return newError(KindFileNotFound, op, name, "")
	}
	snapshot := meta.Clone()
	freed, err := e.registry.Delete(name)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.updateGaugesLocked()
	e.commitSeq++
	ev := Event{Seq: e.commitSeq, Kind: EventDeleted, Name: name, Metadata: snapshot, At: e.now()}
	e.mu.Unlock()

	e.logger.Debug("released file", slog.String("file", name), slog.Int64("bytes", freed))
	e.notify(ev)
	return nil
}

// UpdateFileMetadata replaces the tag set wholesale when newTags is
// non-nil and always refreshes last_modified. It returns the committed
// metadata.
func (e *Engine) UpdateFileMetadata(name string, newTags *[]string) (_ FileMetadata, err error) {
	const op = "update_metadata"
	start := time.Now()
	defer func() { e.finish(op, name, start, err) }()

	if err := validateName(op, name); err != nil {
		return FileMetadata{}, err
	}
	var normalized *[]string
	if newTags != nil {
		tags, err := normalizeTags(op, name, *newTags)
		if err != nil {
			return FileMetadata{}, err
		}
		normalized = &tags
	}

	e.mu.Lock()
	now := e.now()
	if err := e.registry.UpdateMetadata(name, normalized, now); err != nil {
		e.mu.Unlock()
		return FileMetadata{}, err
	}
	ev := e.eventLocked(EventTagsUpdated, name, nil, now)
	e.mu.Unlock()

	e.notify(ev)
	return ev.Metadata.Clone(), nil
}

// CreateFileVersion makes content the new current version of name and
// returns the committed metadata.
func (e *Engine) CreateFileVersion(name string, content []byte) (_ FileMetadata, err error) {
	const op = "create_version"
	start := time.Now()
	defer func() { e.finish(op, name, start, err) }()

	if err := validateName(op, name); err != nil {
		return FileMetadata{}, err
	}

	e.mu.Lock()
	now := e.now()
	v, err := e.registry.CreateVersion(name, content, now)
	if err != nil {
		e.mu.Unlock()
		return FileMetadata{}, err
	}
	ev := e.eventLocked(EventVersionCreated, name, content, now)
	e.mu.Unlock()

	e.logger.Debug("created version", slog.String("file", name), slog.Uint64("version", v.ID), slog.Int64("size", v.Size))
	e.metrics.recordUpload(len(content))
	e.notify(ev)
	return ev.Metadata.Clone(), nil
}

// DownloadFile returns the metadata and current content of name.
func (e *Engine) DownloadFile(name string) (view FileView, err error) {
	const op = "download"
	start := time.Now()
	defer func() { e.finish(op, name, start, err) }()

	if err := validateName(op, name); err != nil {
		return FileView{}, err
	}
	e.mu.RLock()
	view, err = e.registry.Get(name)
	e.mu.RUnlock()
	if err != nil {
		return FileView{}, err
	}
	e.metrics.recordDownload(len(view.Content))
	return view, nil
}

// DownloadVersion returns a retained older version of name. It fails with
// FileNotFound when that version's content was discarded by retention.
func (e *Engine) DownloadVersion(name string, version uint64) (view FileView, err error) {
	const op = "download_version"
	start := time.Now()
	defer func() { e.finish(op, name, start, err) }()

	if err := validateName(op, name); err != nil {
		return FileView{}, err
	}
	e.mu.RLock()
	view, err = e.registry.GetVersion(name, version)
	e.mu.RUnlock()
	if err != nil {
		return FileView{}, err
	}
	e.metrics.recordDownload(len(view.Content))
	return view, nil
}

// FileVersions returns the version records of name, oldest first.
func (e *Engine) FileVersions(name string) ([]Version, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, ok := e.registry.files[name]; !ok {
		return nil, newError(KindFileNotFound, "versions", name, "")
	}
	return e.versions.Versions(name), nil
}

// Stat returns the metadata of name without reading its content.
func (e *Engine) Stat(name string) (FileMetadata, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	meta, ok := e.registry.files[name]
	if !ok {
		return FileMetadata{}, newError(KindFileNotFound, "stat", name, "")
	}
	return meta.Clone(), nil
}

// SearchByTags returns every file carrying at least one of tags, in upload
// order.
func (e *Engine) SearchByTags(tags []string) ([]FileView, error) {
	return e.search("search", tags, e.tags.Search)
}

// SearchByAllTags returns every file carrying all of tags, in upload order.
func (e *Engine) SearchByAllTags(tags []string) ([]FileView, error) {
	return e.search("search_all", tags, e.tags.SearchAll)
}

func (e *Engine) search(op string, tags []string, match func([]string) []string) (views []FileView, err error) {
	start := time.Now()
	defer func() { e.finish(op, "", start, err) }()

	e.mu.RLock()
	views, err = e.registry.Views(match(tags))
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		e.metrics.recordDownload(len(v.Content))
	}
	return views, nil
}

// ListFiles returns every file's metadata in upload order.
func (e *Engine) ListFiles() []FileMetadata {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.List()
}

// Analytics is the result of StorageAnalytics.
type Analytics struct {
	Used     uint64 `json:"used"`
	Capacity uint64 `json:"capacity"`
	Count    uint64 `json:"count"`
}

// StorageAnalytics reports bytes used, the global capacity and the file
// count.
func (e *Engine) StorageAnalytics() Analytics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Analytics{
		Used:     uint64(e.quota.Used()),
		Capacity: uint64(e.quota.Capacity()),
		Count:    uint64(e.registry.Len()),
	}
}

// FileTypeDistribution counts files per file type.
func (e *Engine) FileTypeDistribution() map[string]uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.TypeDistribution()
}

// TagCounts returns the number of files per tag.
func (e *Engine) TagCounts() map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tags.Counts()
}

// QuotaStats returns the quota tracker's view.
func (e *Engine) QuotaStats() QuotaStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.quota.Stats()
}

// Verify checks the cross-component invariants. A failure is a bug and is
// reported as SystemError.
func (e *Engine) Verify() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.registry.Check(); err != nil {
		return &Error{Kind: KindSystemError, Op: "verify", Err: err}
	}
	return nil
}

func (e *Engine) eventLocked(kind EventKind, name string, content []byte, at time.Time) Event {
	e.updateGaugesLocked()
	e.commitSeq++
	return Event{
		Seq:      e.commitSeq,
		Kind:     kind,
		Name:     name,
		Metadata: e.registry.files[name].Clone(),
		Content:  bytes.Clone(content),
		At:       at,
	}
}

func (e *Engine) updateGaugesLocked() {
	e.metrics.updateState(e.quota.Used(), e.quota.Capacity(), e.registry.Len(), e.versions.RetainedCount())
}

// notify delivers ev to the observer once every earlier commit has been
// delivered. Writers release mu before notifying, so they can arrive here
// out of commit order.
func (e *Engine) notify(ev Event) {
	if e.observer == nil {
		return
	}
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	for e.delivered+1 != ev.Seq {
		e.notifyCond.Wait()
	}
	defer func() {
		e.delivered = ev.Seq
		e.notifyCond.Broadcast()
	}()
	e.observer.Committed(ev)
}

func (e *Engine) finish(op, name string, start time.Time, err error) {
	e.metrics.recordOperation(op, err, time.Since(start).Seconds())
	if err == nil {
		return
	}
	attrs := []any{
		slog.String("operation", op),
		slog.String("kind", KindOf(err).String()),
		slog.String("error", err.Error()),
	}
	if name != "" {
		attrs = append(attrs, slog.String("file", name))
	}
	if KindOf(err) == KindSystemError {
		e.logger.Error("storage invariant violated", attrs...)
		return
	}
	e.logger.Info("operation rejected", attrs...)
}

func validateName(op, name string) error {
	switch {
	case name == "":
		return newError(KindInvalidOperation, op, "", "empty file name")
	case len(name) > maxNameLen:
		return newError(KindInvalidOperation, op, "", "file name longer than %d bytes", maxNameLen)
	case !utf8.ValidString(name):
		return newError(KindInvalidOperation, op, "", "file name is not valid UTF-8")
	case strings.IndexFunc(name, unicode.IsControl) >= 0:
		return newError(KindInvalidOperation, op, name, "file name contains control characters")
	}
	return nil
}

func validateFileType(op, name, fileType string) error {
	switch {
	case strings.TrimSpace(fileType) == "":
		return newError(KindInvalidFileType, op, name, "empty file type")
	case len(fileType) > maxFileTypeLen:
		return newError(KindInvalidFileType, op, name, "file type longer than %d bytes", maxFileTypeLen)
	case !utf8.ValidString(fileType) || strings.IndexFunc(fileType, unicode.IsControl) >= 0:
		return newError(KindInvalidFileType, op, name, "file type %q is malformed", fileType)
	}
	return nil
}

// normalizeTags rejects malformed tags and returns the set sorted with
// duplicates removed.
func normalizeTags(op, name string, tags []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		switch {
		case strings.TrimSpace(tag) == "":
			return nil, newError(KindInvalidOperation, op, name, "empty tag")
		case len(tag) > maxTagLen:
			return nil, newError(KindInvalidOperation, op, name, "tag longer than %d bytes", maxTagLen)
		case !utf8.ValidString(tag) || strings.IndexFunc(tag, unicode.IsControl) >= 0:
			return nil, newError(KindInvalidOperation, op, name, "tag %q is malformed", tag)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	slices.Sort(out)
	return out, nil
}
