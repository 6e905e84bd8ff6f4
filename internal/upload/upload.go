// Package upload stores files posted to the upload endpoints and serves
// them back by key.
package upload

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/field"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
)

// DefaultMaxBytes is the upload size limit when none is configured.
const DefaultMaxBytes = 12 << 20

// File is a stored blob with its metadata.
type File struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Backend persists blobs by key.
type Backend interface {
	Name() string
	Put(ctx context.Context, key string, f *File) error
	Get(ctx context.Context, key string) (*File, error)
	Delete(ctx context.Context, key string) error
}

// Service validates uploads and hands them to a backend.
type Service struct {
	backend  Backend
	maxBytes int64
	baseURL  string
	now      func() time.Time
}

// New returns a Service. baseURL prefixes the returned /files/ URLs and
// may be empty for host-relative URLs.
func New(b Backend, maxBytes int64, baseURL string) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{backend: b, maxBytes: maxBytes, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

func (s *Service) MaxBytes() int64 { return s.maxBytes }

func (s *Service) Backend() string { return s.backend.Name() }

// Save reads r, checks its size and type for the endpoint and stores it.
// Media uploads must be images or videos.
func (s *Service) Save(ctx context.Context, endpoint field.Endpoint, fileName, contentType string, r io.Reader) (models.Blob, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return models.Blob{}, errs.Upload("file", fmt.Errorf("read upload: %w", err))
	}
	if len(data) == 0 {
		return models.Blob{}, errs.BadRequest("file data is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return models.Blob{}, errs.BadRequest("file exceeds %d bytes", s.maxBytes)
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = detectContentType(fileName, data)
	}
	if endpoint == field.EndpointMedia && !isMedia(contentType) {
		return models.Blob{}, errs.BadRequest("media uploads must be images or videos, got %s", contentType)
	}

	name := safeName(fileName)
	key := uuid.New().String() + "_" + name
	f := &File{Data: data, ContentType: contentType, FileName: name}
	if err := s.backend.Put(ctx, key, f); err != nil {
		return models.Blob{}, errs.Upload("file", err)
	}
	log.Printf("Upload: stored %s (%d bytes, %s) in %s", key, len(data), contentType, s.backend.Name())
	return models.Blob{
		Key:         key,
		FileName:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   s.now().UTC().Format(time.RFC3339),
	}, nil
}

// URL is the public address of key.
func (s *Service) URL(key string) string {
	return s.baseURL + "/files/" + key
}

// Upload implements field.Uploader for in-process callers.
func (s *Service) Upload(ctx context.Context, endpoint field.Endpoint, fileName string, r io.Reader) (string, error) {
	blob, err := s.Save(ctx, endpoint, fileName, "", r)
	if err != nil {
		return "", err
	}
	return s.URL(blob.Key), nil
}

// Open returns the blob stored under key.
func (s *Service) Open(ctx context.Context, key string) (*File, error) {
	if !ValidKey(key) {
		return nil, errs.NotFound("file %q not found", key)
	}
	return s.backend.Get(ctx, key)
}

// Delete removes key.
func (s *Service) Delete(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return errs.NotFound("file %q not found", key)
	}
	return s.backend.Delete(ctx, key)
}

var (
	keyPattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// ValidKey reports whether key could have been produced by Save.
func ValidKey(key string) bool {
	return len(key) <= 255 && keyPattern.MatchString(key) && !strings.Contains(key, "..")
}

func safeName(fileName string) string {
	name := filepath.Base(strings.ReplaceAll(fileName, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	if name == "" {
		name = "file"
	}
	if len(name) > 100 {
		ext := filepath.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:100-len(ext)] + ext
	}
	return name
}

func isMedia(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = contentType
	}
	return strings.HasPrefix(mt, "image/") || strings.HasPrefix(mt, "video/")
}

// inlineTypes render in a browser without running script.
var inlineTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
	"image/bmp":       true,
	"image/avif":      true,
	"application/pdf": true,
}

// Inline reports whether a blob of contentType may be displayed in place.
// Everything else, SVG and HTML included, is served as a download.
func Inline(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return inlineTypes[mt] || strings.HasPrefix(mt, "video/")
}

// Disposition is the Content-Disposition header value for f.
func (f *File) Disposition() string {
	kind := "attachment"
	if Inline(f.ContentType) {
		kind = "inline"
	}
	if v := mime.FormatMediaType(kind, map[string]string{"filename": f.FileName}); v != "" {
		return v
	}
	return kind
}

var extTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv",
	".txt":  "text/plain",
	".json": "application/json",
	".zip":  "application/zip",
}

func detectContentType(fileName string, data []byte) string {
	if ct, ok := extTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return ct
	}
	return http.DetectContentType(data)
}
