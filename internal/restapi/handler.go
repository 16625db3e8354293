// Package restapi implements the REST gateway over the chunkvault gRPC
// service.
package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mtiwari1/chunkvault/internal/grpcserver"
	"github.com/mtiwari1/chunkvault/internal/repository"
	pb "github.com/mtiwari1/chunkvault/proto"
)

// DefaultMaxBodyBytes bounds a request body: a 10 MiB file plus multipart
// framing.
const DefaultMaxBodyBytes = 11 << 20

// Handler holds dependencies for REST endpoints.
type Handler struct {
	svc      pb.StorageServiceServer
	repo     repository.Repository
	gatherer prometheus.Gatherer
	maxBody  int64
	logger   *slog.Logger
}

// NewHandler creates a REST handler calling svc in-process. repo serves the
// catalog routes and health check; gatherer backs /metrics and defaults to
// the Prometheus default registry.
func NewHandler(
	svc pb.StorageServiceServer,
	repo repository.Repository,
	gatherer prometheus.Gatherer,
	maxBody int64,
	logger *slog.Logger,
) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Handler{
		svc:      svc,
		repo:     repo,
		gatherer: gatherer,
		maxBody:  maxBody,
		logger:   logger,
	}
}

// RegisterRoutes attaches all REST routes to the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /files", h.uploadFile)
	mux.HandleFunc("GET /files", h.listFiles)
	mux.HandleFunc("GET /files/{name}", h.downloadFile)
	mux.HandleFunc("GET /files/{name}/metadata", h.fileMetadata)
	mux.HandleFunc("DELETE /files/{name}", h.deleteFile)
	mux.HandleFunc("PUT /files/{name}/tags", h.updateTags)
	mux.HandleFunc("GET /files/{name}/versions", h.listVersions)
	mux.HandleFunc("POST /files/{name}/versions", h.createVersion)
	mux.HandleFunc("GET /files/{name}/versions/{version}", h.downloadVersion)
	mux.HandleFunc("GET /search", h.search)
	mux.HandleFunc("GET /analytics", h.analytics)
	mux.HandleFunc("GET /analytics/types", h.typeDistribution)
	mux.HandleFunc("GET /catalog", h.listCatalog)
	mux.HandleFunc("GET /catalog/{name}", h.catalogRecord)
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}

// requestLogger tags the request with an id, reusing X-Request-ID when the
// caller sent one, and echoes it back.
func (h *Handler) requestLogger(w http.ResponseWriter, r *http.Request) *slog.Logger {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set("X-Request-ID", requestID)
	return h.logger.With(slog.String("request_id", requestID))
}

// ---------- POST /files ----------

func (h *Handler) uploadFile(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	content, filename, partType, err := readFormFile(r)
	if err != nil {
		logger.Warn("form file error", slog.String("error", err.Error()))
		writeBodyError(w, err)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = filename
	}
	fileType := r.FormValue("type")
	if fileType == "" {
		fileType = partType
	}
	encrypted, _ := strconv.ParseBool(r.FormValue("encrypted"))

	logger.Info("upload request received",
		slog.String("file", name),
		slog.Int("size", len(content)),
	)

	resp, err := h.svc.UploadFile(r.Context(), &pb.UploadFileRequest{
		Name:      name,
		Content:   content,
		FileType:  fileType,
		Tags:      parseTags(r.Form["tags"]),
		Encrypted: encrypted,
	})
	if err != nil {
		h.writeRPCError(w, logger, "upload", err)
		return
	}

	w.Header().Set("Location", "/files/"+url.PathEscape(name))
	writeJSON(w, http.StatusCreated, resp.Metadata)
}

// ---------- GET /files ----------

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)

	resp, err := h.svc.ListFiles(r.Context(), &pb.ListFilesRequest{})
	if err != nil {
		h.writeRPCError(w, logger, "list", err)
		return
	}
	files := resp.Files
	if files == nil {
		files = []*pb.FileMetadata{}
	}
	writeJSON(w, http.StatusOK, files)
}

// ---------- GET /files/{name} ----------

func (h *Handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)
	h.serveContent(w, r, logger, &pb.DownloadFileRequest{Name: r.PathValue("name")})
}

// ---------- GET /files/{name}/versions/{version} ----------

func (h *Handler) downloadVersion(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)

	version, err := strconv.ParseUint(r.PathValue("version"), 10, 64)
	if err != nil || version == 0 {
		http.Error(w, "version must be a positive integer", http.StatusBadRequest)
		return
	}
	h.serveContent(w, r, logger, &pb.DownloadFileRequest{Name: r.PathValue("name"), Version: version})
}

func (h *Handler) serveContent(w http.ResponseWriter, r *http.Request, logger *slog.Logger, req *pb.DownloadFileRequest) {
	resp, err := h.svc.DownloadFile(r.Context(), req)
	if err != nil {
		h.writeRPCError(w, logger, "download", err)
		return
	}
	meta := resp.File.Metadata

	w.Header().Set("Content-Type", contentType(meta.FileType))
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.File.Content)))
	version := req.Version
	if version == 0 {
		version = meta.CurrentVersion
	}
	w.Header().Set("X-File-Version", strconv.FormatUint(version, 10))
	w.Header().Set("Last-Modified", meta.LastModified.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.File.Content); err != nil {
		logger.Warn("write response", slog.String("error", err.Error()))
	}
}

// ---------- GET /files/{name}/metadata ----------

func (h *Handler) fileMetadata(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)

	resp, err := h.svc.StatFile(r.Context(), &pb.StatFileRequest{Name: r.PathValue("name")})
	if err != nil {
		h.writeRPCError(w, logger, "metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Metadata)
}

// ---------- DELETE /files/{name} ----------

func (h *Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)
	name := r.PathValue("name")

	if _, err := h.svc.DeleteFile(r.Context(), &pb.DeleteFileRequest{Name: name}); err != nil {
		h.writeRPCError(w, logger, "delete", err)
		return
	}
	logger.Info("file deleted", slog.String("file", name))
	w.WriteHeader(http.StatusNoContent)
}

// ---------- PUT /files/{name}/tags ----------

type tagsBody struct {
	Tags *[]string `json:"tags"`
}

func (h *Handler) updateTags(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var body tagsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeBodyError(w, fmt.Errorf("decode tags: %w", err))
		return
	}

	resp, err := h.svc.UpdateFileMetadata(r.Context(), &pb.UpdateFileMetadataRequest{
		Name: r.PathValue("name"),
		Tags: body.Tags,
	})
	if err != nil {
		h.writeRPCError(w, logger, "update tags", err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Metadata)
}

// ---------- GET /files/{name}/versions ----------

func (h *Handler) listVersions(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)

	resp, err := h.svc.ListVersions(r.Context(), &pb.ListVersionsRequest{Name: r.PathValue("name")})
	if err != nil {
		h.writeRPCError(w, logger, "versions", err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Versions)
}

// ---------- POST /files/{name}/versions ----------

func (h *Handler) createVersion(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)
	name := r.PathValue("name")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	content, _, _, err := readFormFile(r)
	if err != nil {
		logger.Warn("form file error", slog.String("error", err.Error()))
		writeBodyError(w, err)
		return
	}

	resp, err := h.svc.CreateFileVersion(r.Context(), &pb.CreateFileVersionRequest{Name: name, Content: content})
	if err != nil {
		h.writeRPCError(w, logger, "create version", err)
		return
	}
	logger.Info("version created",
		slog.String("file", name),
		slog.Uint64("version", resp.Metadata.CurrentVersion),
	)
	writeJSON(w, http.StatusCreated, resp.Metadata)
}

// ---------- GET /search ----------

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)
	q := r.URL.Query()

	var matchAll bool
	switch q.Get("match") {
	case "", "any":
	case "all":
		matchAll = true
	default:
		http.Error(w, `match must be "any" or "all"`, http.StatusBadRequest)
		return
	}
	withContent, _ := strconv.ParseBool(q.Get("content"))

	resp, err := h.svc.SearchByTags(r.Context(), &pb.SearchByTagsRequest{
		Tags:           parseTags(q["tag"]),
		MatchAll:       matchAll,
		IncludeContent: withContent,
	})
	if err != nil {
		h.writeRPCError(w, logger, "search", err)
		return
	}
	files := resp.Files
	if files == nil {
		files = []*pb.File{}
	}
	writeJSON(w, http.StatusOK, files)
}

// ---------- GET /analytics ----------

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)

	resp, err := h.svc.StorageAnalytics(r.Context(), &pb.StorageAnalyticsRequest{})
	if err != nil {
		h.writeRPCError(w, logger, "analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---------- GET /analytics/types ----------

func (h *Handler) typeDistribution(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)

	resp, err := h.svc.FileTypeDistribution(r.Context(), &pb.FileTypeDistributionRequest{})
	if err != nil {
		h.writeRPCError(w, logger, "type distribution", err)
		return
	}
	counts := resp.Counts
	if counts == nil {
		counts = map[string]uint64{}
	}
	writeJSON(w, http.StatusOK, counts)
}

// ---------- GET /catalog ----------

func (h *Handler) listCatalog(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)

	records, err := h.repo.ListAll(r.Context())
	if err != nil {
		logger.Error("list catalog", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	result := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		result = append(result, catalogJSON(rec))
	}
	writeJSON(w, http.StatusOK, result)
}

// ---------- GET /catalog/{name} ----------

func (h *Handler) catalogRecord(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(w, r)
	name := r.PathValue("name")

	rec, err := h.repo.GetByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "catalog record not found", http.StatusNotFound)
			return
		}
		logger.Error("get catalog record", slog.String("file", name), slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, catalogJSON(rec))
}

func catalogJSON(rec *repository.CatalogRecord) map[string]interface{} {
	return map[string]interface{}{
		"name":        rec.Name,
		"file_type":   rec.FileType,
		"size":        rec.Size,
		"version":     rec.Version,
		"hash":        rec.Hash,
		"mime_type":   rec.MimeType,
		"tags":        rec.Tags,
		"encrypted":   rec.Encrypted,
		"uploaded_at": rec.UploadedAt,
		"modified_at": rec.ModifiedAt,
		"metadata":    rec.Metadata,
	}
}

// ---------- GET /healthz ----------

// healthz verifies the catalog store is reachable and the engine answers.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	result := map[string]string{"status": "ok"}
	httpStatus := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		result["status"] = "degraded"
		result["catalog"] = "unreachable: " + err.Error()
		httpStatus = http.StatusServiceUnavailable
	} else {
		result["catalog"] = "connected"
	}

	if _, err := h.svc.StorageAnalytics(ctx, &pb.StorageAnalyticsRequest{}); err != nil {
		result["status"] = "degraded"
		result["engine"] = err.Error()
		httpStatus = http.StatusServiceUnavailable
	} else {
		result["engine"] = "ok"
	}

	writeJSON(w, httpStatus, result)
}

// ---------- helpers ----------

// readFormFile reads the "file" part of a multipart request into memory.
func readFormFile(r *http.Request) (content []byte, filename, partType string, err error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", "", err
	}
	defer file.Close()

	content, err = io.ReadAll(file)
	if err != nil {
		return nil, "", "", err
	}
	return content, header.Filename, header.Header.Get("Content-Type"), nil
}

// parseTags accepts repeated values and comma-separated lists.
func parseTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// contentType uses the declared file type when it is a valid media type.
func contentType(fileType string) string {
	if _, _, err := mime.ParseMediaType(fileType); err == nil {
		return fileType
	}
	return "application/octet-stream"
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeBodyError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
}

// writeRPCError maps a service error to an HTTP response. The storage kind,
// when known, is exposed in X-Error-Kind.
func (h *Handler) writeRPCError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	code := grpcToHTTPStatus(err)
	if code >= http.StatusInternalServerError {
		logger.Error(op+" failed", slog.String("error", err.Error()))
	} else {
		logger.Info(op+" rejected", slog.String("error", err.Error()))
	}
	if kind, ok := grpcserver.KindFromError(err); ok {
		w.Header().Set("X-Error-Kind", kind.String())
	}
	http.Error(w, status.Convert(err).Message(), code)
}

// grpcToHTTPStatus maps gRPC status codes to HTTP status codes.
func grpcToHTTPStatus(err error) int {
	st, ok := status.FromError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch st.Code() {
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.ResourceExhausted:
		return http.StatusInsufficientStorage
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Canceled:
		return http.StatusRequestTimeout
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
