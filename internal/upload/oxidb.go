package upload

import (
	"context"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/oxidb"
)

// Bucket stores blobs in an oxidb object bucket.
type Bucket struct {
	pool   *oxidb.Pool
	bucket string
}

// NewBucket ensures bucket exists.
func NewBucket(ctx context.Context, pool *oxidb.Pool, bucket string) (*Bucket, error) {
	err := pool.Do(func(c *oxidb.Client) error {
		return c.CreateBucket(ctx, bucket)
	})
	if err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", bucket, err)
	}
	return &Bucket{pool: pool, bucket: bucket}, nil
}

func (b *Bucket) Name() string { return "oxidb" }

func (b *Bucket) Put(ctx context.Context, key string, f *File) error {
	return b.pool.Do(func(c *oxidb.Client) error {
		return c.PutObject(ctx, b.bucket, key, oxidb.Object{
			Data:        f.Data,
			ContentType: f.ContentType,
			Metadata:    map[string]string{"filename": f.FileName, "content_type": f.ContentType},
		})
	})
}

func (b *Bucket) Get(ctx context.Context, key string) (*File, error) {
	var obj *oxidb.Object
	err := b.pool.Do(func(c *oxidb.Client) error {
		var err error
		obj, err = c.GetObject(ctx, b.bucket, key)
		return err
	})
	if oxidb.IsNotFound(err) {
		return nil, errs.NotFound("file %q not found", key)
	}
	if err != nil {
		return nil, err
	}
	name := obj.Metadata["filename"]
	if name == "" {
		name = key
	}
	return &File{Data: obj.Data, ContentType: obj.ContentType, FileName: name}, nil
}

func (b *Bucket) Delete(ctx context.Context, key string) error {
	err := b.pool.Do(func(c *oxidb.Client) error {
		return c.DeleteObject(ctx, b.bucket, key)
	})
	if oxidb.IsNotFound(err) {
		return errs.NotFound("file %q not found", key)
	}
	return err
}
