package service

import (
	"bytes"
	"context"

	"github.com/google/uuid"

	"organizer/internal/models"
	"organizer/internal/store"
)

type Memories struct {
	*Resource[models.Memory, *models.Memory]
	blobs store.Blobs
}

func NewMemories(backend store.Backend, blobs store.Blobs) *Memories {
	return &Memories{
		Resource: NewResource[models.Memory](backend, store.TableMemories, "date"),
		blobs:    blobs,
	}
}

// AddImage uploads a photo to the memory-images bucket and appends its URL.
func (s *Memories) AddImage(ctx context.Context, actor Actor, id uuid.UUID, data []byte) (models.Memory, error) {
	image, err := SniffImage(data)
	if err != nil {
		return models.Memory{}, err
	}
	memory, err := s.Get(ctx, actor, id)
	if err != nil {
		return models.Memory{}, err
	}
	url, err := s.blobs.Upload(ctx, store.BucketMemoryImages, objectPath(id, image.Extension), bytes.NewReader(image.Data), image.ContentType)
	if err != nil {
		return models.Memory{}, err
	}
	return s.Patch(ctx, actor, id, map[string]any{"image_urls": append(memory.ImageURLs, url)})
}
