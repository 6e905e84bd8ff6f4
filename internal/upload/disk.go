package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
)

// Disk stores blobs as files under a directory, each with a JSON sidecar
// holding its metadata.
type Disk struct {
	dir string
}

type diskMeta struct {
	ContentType string `json:"contentType"`
	FileName    string `json:"fileName"`
}

// NewDisk creates dir if needed.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload dir %s: %w", dir, err)
	}
	return &Disk{dir: dir}, nil
}

func (d *Disk) Name() string { return "disk" }

func (d *Disk) paths(key string) (data, meta string) {
	data = filepath.Join(d.dir, key)
	return data, data + ".meta.json"
}

func (d *Disk) Put(ctx context.Context, key string, f *File) error {
	dataPath, metaPath := d.paths(key)
	meta, err := json.Marshal(diskMeta{ContentType: f.ContentType, FileName: f.FileName})
	if err != nil {
		return err
	}
	if err := os.WriteFile(dataPath, f.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		os.Remove(dataPath)
		return fmt.Errorf("write %s metadata: %w", key, err)
	}
	return nil
}

func (d *Disk) Get(ctx context.Context, key string) (*File, error) {
	dataPath, metaPath := d.paths(key)
	data, err := os.ReadFile(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.NotFound("file %q not found", key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	f := &File{Data: data, ContentType: "application/octet-stream", FileName: key}
	if raw, err := os.ReadFile(metaPath); err == nil {
		var m diskMeta
		if json.Unmarshal(raw, &m) == nil {
			f.ContentType, f.FileName = m.ContentType, m.FileName
		}
	}
	return f, nil
}

func (d *Disk) Delete(ctx context.Context, key string) error {
	dataPath, metaPath := d.paths(key)
	if err := os.Remove(dataPath); errors.Is(err, fs.ErrNotExist) {
		return errs.NotFound("file %q not found", key)
	} else if err != nil {
		return err
	}
	os.Remove(metaPath)
	return nil
}
