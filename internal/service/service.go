// Package service holds the per-feature business operations. Services read
// and write through store tables; every write goes through the backend the
// server wires in, which publishes realtime change events.
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"organizer/internal/store"
)

var (
	ErrNoCouple      = errors.New("join or create a couple first")
	ErrCoupleFull    = errors.New("this couple already has two members")
	ErrAIDisabled    = errors.New("AI features are not configured")
	ErrNotAnImage    = errors.New("only image uploads are accepted")
	ErrImageTooLarge = errors.New("image is larger than 10 MB")
)

// MaxImageBytes caps uploads to the storage buckets.
const MaxImageBytes = 10 << 20

// Actor is the authenticated caller resolved to a couple.
type Actor struct {
	UserID   uuid.UUID
	CoupleID uuid.UUID
	Name     string
}

var validate = validator.New()

// Validate checks struct tags and reports failures as invalid input.
func Validate(table string, v any) error {
	if err := validate.Struct(v); err != nil {
		return &store.Error{Kind: store.KindInvalidInput, Op: "validate", Table: table, Message: err.Error(), Err: err}
	}
	return nil
}

// Image is a sniffed upload.
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// SniffImage detects the content type from the bytes themselves; the
// client-supplied type is ignored.
func SniffImage(data []byte) (Image, error) {
	if len(data) > MaxImageBytes {
		return Image{}, ErrImageTooLarge
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return Image{}, fmt.Errorf("%w: got %s", ErrNotAnImage, mtype.String())
	}
	return Image{Data: data, ContentType: mtype.String(), Extension: mtype.Extension()}, nil
}

// objectPath names an upload under the row it belongs to. A fresh name per
// upload keeps CDN caches from serving the previous image.
func objectPath(owner uuid.UUID, ext string) string {
	return fmt.Sprintf("%s/%d-%s%s", owner, time.Now().Unix(), uuid.NewString()[:8], ext)
}
