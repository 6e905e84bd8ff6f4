package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/field"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/oxidb"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/oxidb/oxidbtest"
)

var pngHeader = "\x89PNG\r\n\x1a\n0000"

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	disk, err := NewDisk(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatal(err)
	}
	srv := oxidbtest.NewServer(t)
	pool, err := oxidb.NewPool(srv.Host(), srv.Port(), 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	bucket, err := NewBucket(context.Background(), pool, "portal_files")
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Backend{"disk": disk, "oxidb": bucket}
}

func TestSaveAndOpen(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(b, 0, "https://cdn.example.com/")
			blob, err := s.Save(ctx, field.EndpointMedia, "../My Logo.png", "", strings.NewReader(pngHeader))
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if !strings.HasSuffix(blob.Key, "_My_Logo.png") || !ValidKey(blob.Key) {
				t.Fatalf("key = %q", blob.Key)
			}
			if blob.ContentType != "image/png" || blob.Size != int64(len(pngHeader)) {
				t.Fatalf("blob = %+v", blob)
			}
			if got := s.URL(blob.Key); got != "https://cdn.example.com/files/"+blob.Key {
				t.Fatalf("url = %s", got)
			}

			f, err := s.Open(ctx, blob.Key)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if string(f.Data) != pngHeader || f.ContentType != "image/png" || f.FileName != "My_Logo.png" {
				t.Fatalf("file = %+v", f)
			}

			if err := s.Delete(ctx, blob.Key); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := s.Open(ctx, blob.Key); !errors.Is(err, errs.ErrNotFound) {
				t.Fatalf("open after delete: %v", err)
			}
		})
	}
}

func TestSaveRejects(t *testing.T) {
	disk, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := New(disk, 8, "")
	ctx := context.Background()

	if _, err := s.Save(ctx, field.EndpointFile, "a.txt", "", strings.NewReader("")); errs.KindOf(err) != errs.KindBadRequest {
		t.Fatalf("empty: %v", err)
	}
	if _, err := s.Save(ctx, field.EndpointFile, "a.txt", "", strings.NewReader("123456789")); errs.KindOf(err) != errs.KindBadRequest {
		t.Fatalf("too large: %v", err)
	}
	if _, err := s.Save(ctx, field.EndpointMedia, "a.pdf", "application/pdf", strings.NewReader("%PDF")); errs.KindOf(err) != errs.KindBadRequest {
		t.Fatalf("pdf on media endpoint: %v", err)
	}
	blob, err := s.Save(ctx, field.EndpointFile, "a.pdf", "application/pdf", strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("pdf on file endpoint: %v", err)
	}
	if s.URL(blob.Key) != "/files/"+blob.Key {
		t.Fatalf("relative url = %s", s.URL(blob.Key))
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "secret"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	disk, _ := NewDisk(filepath.Join(dir, "files"))
	s := New(disk, 0, "")
	for _, key := range []string{"../secret", "..", "a/b", ".hidden", ""} {
		if _, err := s.Open(context.Background(), key); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("Open(%q) err = %v", key, err)
		}
	}
}

func TestUploaderInterface(t *testing.T) {
	disk, _ := NewDisk(t.TempDir())
	var u field.Uploader = New(disk, 0, "")
	url, err := u.Upload(context.Background(), field.EndpointFile, "notes.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(url, "/files/") || !strings.HasSuffix(url, "_notes.txt") {
		t.Fatalf("url = %s", url)
	}
}

func TestBackendFailureIsUploadError(t *testing.T) {
	srv := oxidbtest.NewServer(t)
	pool, err := oxidb.NewPool(srv.Host(), srv.Port(), 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	bucket, err := NewBucket(context.Background(), pool, "b")
	if err != nil {
		t.Fatal(err)
	}
	srv.SetFail("disk full")
	_, err = New(bucket, 0, "").Save(context.Background(), field.EndpointFile, "a.txt", "", strings.NewReader("x"))
	if !errors.Is(err, errs.ErrUpload) {
		t.Fatalf("err = %v", err)
	}
}

func TestInline(t *testing.T) {
	tests := map[string]bool{
		"image/png":                true,
		"image/jpeg":               true,
		"video/mp4":                true,
		"application/pdf":          true,
		"image/svg+xml":            false,
		"text/html; charset=utf-8": false,
		"text/plain":               false,
		"application/json":         false,
		"":                         false,
	}
	for ct, want := range tests {
		if got := Inline(ct); got != want {
			t.Errorf("Inline(%q) = %v, want %v", ct, got, want)
		}
	}

	f := &File{ContentType: "text/html", FileName: "x.html"}
	if got := f.Disposition(); got != `attachment; filename=x.html` {
		t.Fatalf("Disposition = %q", got)
	}
}
