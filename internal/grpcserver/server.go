// Package grpcserver implements the chunkvault gRPC service over a
// storage.Engine.
package grpcserver

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mtiwari1/chunkvault/internal/storage"
	pb "github.com/mtiwari1/chunkvault/proto"
)

// Server implements the StorageServiceServer gRPC interface.
// Dependencies are injected via the constructor; no global state.
type Server struct {
	engine *storage.Engine
	logger *slog.Logger
}

// NewServer creates a gRPC service backed by engine.
func NewServer(engine *storage.Engine, logger *slog.Logger) *Server {
	return &Server{engine: engine, logger: logger}
}

// UploadFile stores a new file and returns its metadata.
func (s *Server) UploadFile(ctx context.Context, req *pb.UploadFileRequest) (*pb.UploadFileResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	meta, err := s.engine.UploadFile(req.Name, req.Content, req.FileType, req.Tags, storage.WithEncrypted(req.Encrypted))
	if err != nil {
		return nil, mapStorageError(err)
	}
	return &pb.UploadFileResponse{Metadata: toMetadata(meta)}, nil
}

// DownloadFile returns the current version, or a retained older one when
// req.Version is set.
func (s *Server) DownloadFile(ctx context.Context, req *pb.DownloadFileRequest) (*pb.DownloadFileResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	var (
		view storage.FileView
		err  error
	)
	if req.Version == 0 {
		view, err = s.engine.DownloadFile(req.Name)
	} else {
		view, err = s.engine.DownloadVersion(req.Name, req.Version)
	}
	if err != nil {
		return nil, mapStorageError(err)
	}
	return &pb.DownloadFileResponse{File: toFile(view, true)}, nil
}

// StatFile returns a file's metadata without reading its content.
func (s *Server) StatFile(ctx context.Context, req *pb.StatFileRequest) (*pb.StatFileResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	meta, err := s.engine.Stat(req.Name)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return &pb.StatFileResponse{Metadata: toMetadata(meta)}, nil
}

// DeleteFile removes a file and all of its versions.
func (s *Server) DeleteFile(ctx context.Context, req *pb.DeleteFileRequest) (*pb.DeleteFileResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	if err := s.engine.DeleteFile(req.Name); err != nil {
		return nil, mapStorageError(err)
	}
	return &pb.DeleteFileResponse{Name: req.Name}, nil
}

// UpdateFileMetadata replaces the tag set of a file.
func (s *Server) UpdateFileMetadata(ctx context.Context, req *pb.UpdateFileMetadataRequest) (*pb.UpdateFileMetadataResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	meta, err := s.engine.UpdateFileMetadata(req.Name, req.Tags)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return &pb.UpdateFileMetadataResponse{Metadata: toMetadata(meta)}, nil
}

// CreateFileVersion appends a new version with the given content.
func (s *Server) CreateFileVersion(ctx context.Context, req *pb.CreateFileVersionRequest) (*pb.CreateFileVersionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	meta, err := s.engine.CreateFileVersion(req.Name, req.Content)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return &pb.CreateFileVersionResponse{Metadata: toMetadata(meta)}, nil
}

// ListVersions returns the version history of a file, oldest first.
func (s *Server) ListVersions(ctx context.Context, req *pb.ListVersionsRequest) (*pb.ListVersionsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	versions, err := s.engine.FileVersions(req.Name)
	if err != nil {
		return nil, mapStorageError(err)
	}
	out := make([]*pb.VersionInfo, len(versions))
	for i, v := range versions {
		out[i] = &pb.VersionInfo{ID: v.ID, CreatedAt: v.CreatedAt, Size: v.Size, Retained: v.Retained}
	}
	return &pb.ListVersionsResponse{Versions: out}, nil
}

// SearchByTags returns matching files in upload order.
func (s *Server) SearchByTags(ctx context.Context, req *pb.SearchByTagsRequest) (*pb.SearchByTagsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	search := s.engine.SearchByTags
	if req.MatchAll {
		search = s.engine.SearchByAllTags
	}
	views, err := search(req.Tags)
	if err != nil {
		return nil, mapStorageError(err)
	}
	files := make([]*pb.File, len(views))
	for i, v := range views {
		files[i] = toFile(v, req.IncludeContent)
	}
	return &pb.SearchByTagsResponse{Files: files}, nil
}

// ListFiles returns the metadata of every file in upload order.
func (s *Server) ListFiles(ctx context.Context, _ *pb.ListFilesRequest) (*pb.ListFilesResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	metas := s.engine.ListFiles()
	out := make([]*pb.FileMetadata, len(metas))
	for i := range metas {
		out[i] = toMetadata(metas[i])
	}
	return &pb.ListFilesResponse{Files: out}, nil
}

// StorageAnalytics reports usage and quota.
func (s *Server) StorageAnalytics(ctx context.Context, _ *pb.StorageAnalyticsRequest) (*pb.StorageAnalyticsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	a := s.engine.StorageAnalytics()
	q := s.engine.QuotaStats()
	return &pb.StorageAnalyticsResponse{
		Used:          a.Used,
		Capacity:      a.Capacity,
		Count:         a.Count,
		Available:     uint64(q.AvailableBytes),
		PerFileMax:    uint64(q.PerFileMax),
		RetentionKeep: s.engine.RetentionKeep(),
	}, nil
}

// FileTypeDistribution counts files per declared type.
func (s *Server) FileTypeDistribution(ctx context.Context, _ *pb.FileTypeDistributionRequest) (*pb.FileTypeDistributionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	return &pb.FileTypeDistributionResponse{Counts: s.engine.FileTypeDistribution()}, nil
}

func toMetadata(m storage.FileMetadata) *pb.FileMetadata {
	return &pb.FileMetadata{
		Name:            m.Name,
		Size:            m.Size,
		FileType:        m.FileType,
		Tags:            m.Tags,
		VersionHistory:  m.VersionHistory,
		CurrentVersion:  m.CurrentVersion,
		IsEncrypted:     m.IsEncrypted,
		UploadTimestamp: m.UploadTimestamp,
		LastModified:    m.LastModified,
	}
}

func toFile(v storage.FileView, withContent bool) *pb.File {
	f := &pb.File{Metadata: toMetadata(v.Metadata)}
	if withContent {
		f.Content = v.Content
	}
	return f
}

// Compile-time interface check.
var _ pb.StorageServiceServer = (*Server)(nil)

// codeFor maps a storage error kind to a gRPC status code.
func codeFor(kind storage.Kind) codes.Code {
	switch kind {
	case storage.KindFileNotFound:
		return codes.NotFound
	case storage.KindFileAlreadyExists:
		return codes.AlreadyExists
	case storage.KindInvalidOperation, storage.KindInvalidFileType:
		return codes.InvalidArgument
	case storage.KindStorageLimit:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}
