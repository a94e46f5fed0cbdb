package supabase

import (
	"context"
	"io"

	storage_go "github.com/supabase-community/storage-go"

	"organizer/internal/store"
)

// Blobs implements store.Blobs over the hosted object storage.
type Blobs struct {
	client *storage_go.Client
}

func NewBlobs(client *storage_go.Client) *Blobs {
	return &Blobs{client: client}
}

func (b *Blobs) Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &store.Error{Kind: store.KindUnavailable, Op: "upload", Table: bucket, Err: err}
	}
	upsert := true
	_, err := b.client.UploadFile(bucket, path, data, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", classify("upload", bucket, err)
	}
	return b.client.GetPublicUrl(bucket, path).SignedURL, nil
}

func (b *Blobs) Remove(ctx context.Context, bucket string, paths []string) error {
	if err := ctx.Err(); err != nil {
		return &store.Error{Kind: store.KindUnavailable, Op: "remove", Table: bucket, Err: err}
	}
	if _, err := b.client.RemoveFile(bucket, paths); err != nil {
		return classify("remove", bucket, err)
	}
	return nil
}
