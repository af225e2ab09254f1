package storage

import (
	"context"
	"mime"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
)

// GCS uploads files into a Google Cloud Storage bucket.
// Credentials are taken from the environment (GOOGLE_APPLICATION_CREDENTIALS).
type GCS struct {
	bucket *storage.BucketHandle
	client *storage.Client
	name   string
	prefix string
}

func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCS{
		bucket: client.Bucket(bucket),
		client: client,
		name:   bucket,
		prefix: prefix,
	}, nil
}

func (g *GCS) Save(ctx context.Context, name string, data []byte) error {
	wc := g.bucket.Object(path.Join(g.prefix, name)).NewWriter(ctx)
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		wc.ContentType = ct
	}
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

func (g *GCS) Close() error   { return g.client.Close() }
func (g *GCS) String() string { return "gcs:" + g.name + "/" + g.prefix }
