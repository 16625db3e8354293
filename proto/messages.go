package proto

import "time"

// FileMetadata mirrors storage.FileMetadata on the wire.
type FileMetadata struct {
	Name            string    `cbor:"name" json:"name"`
	Size            int64     `cbor:"size" json:"size"`
	FileType        string    `cbor:"file_type" json:"file_type"`
	Tags            []string  `cbor:"tags" json:"tags"`
	VersionHistory  []uint64  `cbor:"version_history" json:"version_history"`
	CurrentVersion  uint64    `cbor:"current_version" json:"current_version"`
	IsEncrypted     bool      `cbor:"is_encrypted" json:"is_encrypted"`
	UploadTimestamp time.Time `cbor:"upload_timestamp" json:"upload_timestamp"`
	LastModified    time.Time `cbor:"last_modified" json:"last_modified"`
}

// File is a metadata snapshot plus content.
type File struct {
	Metadata *FileMetadata `cbor:"metadata" json:"metadata"`
	Content  []byte        `cbor:"content,omitempty" json:"content,omitempty"`
}

// VersionInfo describes one entry of a file's version history.
type VersionInfo struct {
	ID        uint64    `cbor:"id" json:"id"`
	CreatedAt time.Time `cbor:"created_at" json:"created_at"`
	Size      int64     `cbor:"size" json:"size"`
	Retained  bool      `cbor:"retained" json:"retained"`
}

type UploadFileRequest struct {
	Name      string   `cbor:"name"`
	Content   []byte   `cbor:"content"`
	FileType  string   `cbor:"file_type"`
	Tags      []string `cbor:"tags"`
	Encrypted bool     `cbor:"encrypted"`
}

type UploadFileResponse struct {
	Metadata *FileMetadata `cbor:"metadata"`
}

// DownloadFileRequest fetches the current version when Version is 0.
type DownloadFileRequest struct {
	Name    string `cbor:"name"`
	Version uint64 `cbor:"version,omitempty"`
}

type DownloadFileResponse struct {
	File *File `cbor:"file"`
}

type DeleteFileRequest struct {
	Name string `cbor:"name"`
}

type DeleteFileResponse struct {
	Name string `cbor:"name"`
}

// UpdateFileMetadataRequest replaces the tag set. A nil Tags leaves the
// tags unchanged and only refreshes the modification time.
type UpdateFileMetadataRequest struct {
	Name string    `cbor:"name"`
	Tags *[]string `cbor:"tags"`
}

type UpdateFileMetadataResponse struct {
	Metadata *FileMetadata `cbor:"metadata"`
}

type CreateFileVersionRequest struct {
	Name    string `cbor:"name"`
	Content []byte `cbor:"content"`
}

type CreateFileVersionResponse struct {
	Metadata *FileMetadata `cbor:"metadata"`
}

// StatFileRequest asks for a file's metadata without its content.
type StatFileRequest struct {
	Name string `cbor:"name"`
}

type StatFileResponse struct {
	Metadata *FileMetadata `cbor:"metadata"`
}

type ListVersionsRequest struct {
	Name string `cbor:"name"`
}

type ListVersionsResponse struct {
	Versions []*VersionInfo `cbor:"versions"`
}

// SearchByTagsRequest matches files carrying any of Tags, or all of them
// when MatchAll is set. Content is omitted unless IncludeContent is set.
type SearchByTagsRequest struct {
	Tags           []string `cbor:"tags"`
	MatchAll       bool     `cbor:"match_all"`
	IncludeContent bool     `cbor:"include_content"`
}

type SearchByTagsResponse struct {
	Files []*File `cbor:"files"`
}

type ListFilesRequest struct{}

type ListFilesResponse struct {
	Files []*FileMetadata `cbor:"files"`
}

type StorageAnalyticsRequest struct{}

// StorageAnalyticsResponse reports usage. Used, Capacity and Count are the
// analytics triple; the rest is quota detail.
type StorageAnalyticsResponse struct {
	Used          uint64 `cbor:"used" json:"used"`
	Capacity      uint64 `cbor:"capacity" json:"capacity"`
	Count         uint64 `cbor:"count" json:"count"`
	Available     uint64 `cbor:"available" json:"available"`
	PerFileMax    uint64 `cbor:"per_file_max" json:"per_file_max"`
	RetentionKeep int    `cbor:"retention_keep" json:"retention_keep"`
}

type FileTypeDistributionRequest struct{}

type FileTypeDistributionResponse struct {
	Counts map[string]uint64 `cbor:"counts" json:"counts"`
}
