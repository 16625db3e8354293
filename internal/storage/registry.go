package storage

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// FileMetadata is the registry record for one file.
type FileMetadata struct {
	Name            string    `json:"name"`
	Size            int64     `json:"size"`
	FileType        string    `json:"file_type"`
	Tags            []string  `json:"tags"`
	VersionHistory  []uint64  `json:"version_history"`
	CurrentVersion  uint64    `json:"current_version"`
	IsEncrypted     bool      `json:"is_encrypted"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
	LastModified    time.Time `json:"last_modified"`

	seq uint64 // creation order
}

// Clone returns a deep copy safe to hand to callers.
func (m *FileMetadata) Clone() FileMetadata {
	c := *m
	c.Tags = slices.Clone(m.Tags)
	c.VersionHistory = slices.Clone(m.VersionHistory)
	return c
}

// FileView is a file's metadata together with its reassembled content.
type FileView struct {
	Metadata FileMetadata `json:"metadata"`
	Content  []byte       `json:"content"`
}

// FileRegistry owns the metadata records and composes the chunk store,
// quota tracker, version manager and tag index for every mutation. Each
// mutation validates and admits before changing any component, so a
// returned error means nothing was applied.
type FileRegistry struct {
	files    map[string]*FileMetadata
	nextSeq  uint64
	chunks   *ChunkStore
	quota    *QuotaTracker
	versions *VersionManager
	tags     *TagIndex
}

// NewFileRegistry wires a registry over the given components.
func NewFileRegistry(chunks *ChunkStore, quota *QuotaTracker, versions *VersionManager, tags *TagIndex) *FileRegistry {
	return &FileRegistry{
		files:    make(map[string]*FileMetadata),
		chunks:   chunks,
		quota:    quota,
		versions: versions,
		tags:     tags,
	}
}

// Len returns the number of registered files.
func (r *FileRegistry) Len() int { return len(r.files) }

// Upload registers a new file. tags must already be normalized.
func (r *FileRegistry) Upload(name string, content []byte, fileType string, tags []string, encrypted bool, now time.Time) error {
	const op = "upload"
	if _, exists := r.files[name]; exists {
		return newError(KindFileAlreadyExists, op, name, "")
	}
	size := int64(len(content))
	if err := r.quota.CheckFileSize(size); err != nil {
		return &Error{Kind: KindStorageLimit, Op: op, Name: name, Err: err}
	}
	if !r.quota.CanReserve(size) {
		return newError(KindStorageLimit, op, name, "%d bytes exceeds remaining capacity of %d", size, r.quota.Available())
	}

	id := r.versions.Next(name)
	if id != 1 {
		return newError(KindSystemError, op, name, "stale version track, next id %d", id)
	}
	if _, err := r.chunks.Write(name, id, content); err != nil {
		return &Error{Kind: KindSystemError, Op: op, Name: name, Err: err}
	}
	if err := r.quota.Reserve(size); err != nil {
		r.chunks.Release(name, id)
		return &Error{Kind: KindSystemError, Op: op, Name: name, Err: err}
	}
	v := r.versions.Append(name, size, now, nil)
	r.tags.Add(name, tags)

	r.nextSeq++
	r.files[name] = &FileMetadata{
		Name:            name,
		Size:            size,
		FileType:        fileType,
		Tags:            slices.Clone(tags),
		VersionHistory:  []uint64{v.ID},
		CurrentVersion:  v.ID,
		IsEncrypted:     encrypted,
		UploadTimestamp: now,
		LastModified:    now,
		seq:             r.nextSeq,
	}
	return nil
}

// Delete removes a file, every retained version's chunks and its tag
// links, and returns the bytes credited back to the quota.
func (r *FileRegistry) Delete(name string) (int64, error) {
	meta, ok := r.files[name]
	if !ok {
		return 0, newError(KindFileNotFound, "delete", name, "")
	}
	var freed int64
	for _, id := range r.versions.Drop(name) {
		freed += r.chunks.Release(name, id)
	}
	r.quota.Release(freed)
	r.tags.Remove(name, meta.Tags)
	delete(r.files, name)
	return freed, nil
}

// UpdateMetadata replaces the tag set when newTags is non-nil and always
// refreshes last_modified. *newTags must already be normalized.
func (r *FileRegistry) UpdateMetadata(name string, newTags *[]string, now time.Time) error {
	meta, ok := r.files[name]
	if !ok {
		return newError(KindFileNotFound, "update_metadata", name, "")
	}
	if newTags != nil {
		r.tags.Replace(name, meta.Tags, *newTags)
		meta.Tags = slices.Clone(*newTags)
	}
	meta.LastModified = now
	return nil
}

// CreateVersion stores content as a new current version of name. Versions
// that fall out of the retention window are released in the same step, and
// their bytes count toward admission.
func (r *FileRegistry) CreateVersion(name string, content []byte, now time.Time) (Version, error) {
	const op = "create_version"
	meta, ok := r.files[name]
	if !ok {
		return Version{}, newError(KindFileNotFound, op, name, "")
	}
	size := int64(len(content))
	if err := r.quota.CheckFileSize(size); err != nil {
		return Version{}, &Error{Kind: KindStorageLimit, Op: op, Name: name, Err: err}
	}

	pruned := r.versions.Plan(name)
	var freed int64
	for _, id := range pruned {
		n := r.chunks.VersionBytes(name, id)
		if n < 0 {
			return Version{}, newError(KindSystemError, op, name, "retained version %d has no chunks", id)
		}
		freed += n
	}
	if !r.quota.CanSwap(freed, size) {
		return Version{}, newError(KindStorageLimit, op, name,
			"%d bytes exceeds remaining capacity of %d", size, r.quota.Available()+freed)
	}

	id := r.versions.Next(name)
	if _, err := r.chunks.Write(name, id, content); err != nil {
		return Version{}, &Error{Kind: KindSystemError, Op: op, Name: name, Err: err}
	}
	if err := r.quota.Swap(freed, size); err != nil {
		r.chunks.Release(name, id)
		return Version{}, &Error{Kind: KindSystemError, Op: op, Name: name, Err: err}
	}
	for _, old := range pruned {
		r.chunks.Release(name, old)
	}
	v := r.versions.Append(name, size, now, pruned)

	meta.VersionHistory = append(meta.VersionHistory, v.ID)
	meta.CurrentVersion = v.ID
	meta.Size = size
	meta.LastModified = now
	return v, nil
}

// Get returns the metadata and current content of name.
func (r *FileRegistry) Get(name string) (FileView, error) {
	meta, ok := r.files[name]
	if !ok {
		return FileView{}, newError(KindFileNotFound, "get", name, "")
	}
	return r.view(meta)
}

// GetVersion returns the content of a retained version of name.
func (r *FileRegistry) GetVersion(name string, id uint64) (FileView, error) {
	const op = "get_version"
	meta, ok := r.files[name]
	if !ok {
		return FileView{}, newError(KindFileNotFound, op, name, "")
	}
	v, ok := r.versions.Get(name, id)
	if !ok {
		return FileView{}, newError(KindFileNotFound, op, name, "no version %d", id)
	}
	if !v.Retained {
		return FileView{}, newError(KindFileNotFound, op, name, "content of version %d is not retained", id)
	}
	content, err := r.chunks.Read(name, id)
	if err != nil {
		return FileView{}, &Error{Kind: KindSystemError, Op: op, Name: name, Err: err}
	}
	view := meta.Clone()
	view.Size = v.Size
	return FileView{Metadata: view, Content: content}, nil
}

func (r *FileRegistry) view(meta *FileMetadata) (FileView, error) {
	content, err := r.chunks.Read(meta.Name, meta.CurrentVersion)
	if err != nil {
		return FileView{}, &Error{Kind: KindSystemError, Op: "get", Name: meta.Name, Err: err}
	}
	if int64(len(content)) != meta.Size {
		return FileView{}, newError(KindSystemError, "get", meta.Name,
			"content is %d bytes, metadata says %d", len(content), meta.Size)
	}
	return FileView{Metadata: meta.Clone(), Content: content}, nil
}

// Views returns the views of the named files in creation order. Unknown
// names are skipped.
func (r *FileRegistry) Views(names []string) ([]FileView, error) {
	metas := make([]*FileMetadata, 0, len(names))
	for _, name := range names {
		if meta, ok := r.files[name]; ok {
			metas = append(metas, meta)
		}
	}
	sortBySeq(metas)
	out := make([]FileView, 0, len(metas))
	for _, meta := range metas {
		v, err := r.view(meta)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// List returns every metadata record in creation order.
func (r *FileRegistry) List() []FileMetadata {
	metas := make([]*FileMetadata, 0, len(r.files))
	for _, meta := range r.files {
		metas = append(metas, meta)
	}
	sortBySeq(metas)
	out := make([]FileMetadata, len(metas))
	for i, meta := range metas {
		out[i] = meta.Clone()
	}
	return out
}

// TypeDistribution counts files per file type.
func (r *FileRegistry) TypeDistribution() map[string]uint64 {
	out := make(map[string]uint64)
	for _, meta := range r.files {
		out[meta.FileType]++
	}
	return out
}

// Check verifies the cross-component invariants and returns the first
// violation found.
func (r *FileRegistry) Check() error {
	if used, held := r.quota.Used(), r.chunks.Bytes(); used != held {
		return fmt.Errorf("quota says %d bytes used, chunk store holds %d", used, held)
	}
	for name, meta := range r.files {
		if n := r.chunks.VersionBytes(name, meta.CurrentVersion); n != meta.Size {
			return fmt.Errorf("%s: size %d, current version holds %d", name, meta.Size, n)
		}
		if !slices.Equal(meta.VersionHistory, r.versions.History(name)) {
			return fmt.Errorf("%s: version history diverged", name)
		}
		for _, tag := range meta.Tags {
			if !r.tags.Has(tag, name) {
				return fmt.Errorf("%s: tag %q missing from index", name, tag)
			}
		}
	}
	for _, tag := range r.tags.Tags() {
		for _, name := range r.tags.Search([]string{tag}) {
			meta, ok := r.files[name]
			if !ok || !slices.Contains(meta.Tags, tag) {
				return fmt.Errorf("index links %q to %s, which does not carry it", tag, name)
			}
		}
	}
	return nil
}

func sortBySeq(metas []*FileMetadata) {
	sort.Slice(metas, func(i, j int) bool { return metas[i].seq < metas[j].seq })
}
