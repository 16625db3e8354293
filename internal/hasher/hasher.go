// Package hasher derives content metadata (SHA256, MIME type, text and
// image statistics) from an in-memory blob.
package hasher

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// Metadata holds computed content metadata.
type Metadata struct {
	Hash      string         // hex-encoded SHA256
	Size      int64          // content size in bytes
	Extension string         // extension of the file name, if any
	MimeType  string         // sniffed MIME type
	Extra     map[string]any // rich metadata (width, height, lines, words)
}

// ComputeMetadata hashes content and sniffs its type. declaredType is the
// caller-supplied file type; it is recorded and compared to the sniffed
// type but never rejected.
func ComputeMetadata(name, declaredType string, content []byte) (*Metadata, error) {
	sum := sha256.Sum256(content)

	head := content
	if len(head) > 512 {
		head = head[:512]
	}
	mimeType := http.DetectContentType(head)

	extra := map[string]any{
		"mime_type": mimeType,
	}
	if declaredType != "" {
		extra["declared_type"] = declaredType
		extra["type_matches"] = sameMediaType(declaredType, mimeType)
	}

	// Content-specific analysis.
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		if img, err := analyzeImage(content); err == nil {
			for k, v := range img {
				extra[k] = v
			}
		}
	case strings.HasPrefix(mimeType, "text/"):
		txt, err := analyzeText(content)
		if err != nil {
			return nil, fmt.Errorf("hasher: analyze text: %w", err)
		}
		for k, v := range txt {
			extra[k] = v
		}
	}

	return &Metadata{
		Hash:      hex.EncodeToString(sum[:]),
		Size:      int64(len(content)),
		Extension: filepath.Ext(name),
		MimeType:  mimeType,
		Extra:     extra,
	}, nil
}

// sameMediaType compares the type/subtype of two MIME strings, ignoring
// parameters such as charset.
func sameMediaType(a, b string) bool {
	ma, _, errA := mime.ParseMediaType(a)
	mb, _, errB := mime.ParseMediaType(b)
	if errA != nil || errB != nil {
		return false
	}
	return ma == mb
}

func analyzeImage(content []byte) (map[string]any, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"width":        cfg.Width,
		"height":       cfg.Height,
		"image_format": format,
	}, nil
}

func analyzeText(content []byte) (map[string]any, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), len(content)+1)
	lines := 0
	words := 0
	for scanner.Scan() {
		lines++
		words += len(bytes.Fields(scanner.Bytes()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return map[string]any{
		"lines": lines,
		"words": words,
	}, nil
}
