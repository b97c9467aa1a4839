// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"log"

	"imgpress/internal/blob"
	"imgpress/internal/derive"
	"imgpress/internal/meta"
	"imgpress/internal/models"
)

// BlobStore is the slice of blob.Store the pipeline needs.
type BlobStore interface {
	Write(bucket string, data []byte, displayName string) (string, error)
	Read(bucket, key string) ([]byte, error)
	Delete(bucket, key string)
}

// Catalog is the slice of storage.Storage the pipeline needs.
type Catalog interface {
	CreateImage(ctx context.Context, img *models.Image) error
	ListImages(ctx context.Context) ([]models.Image, error)
}

// Publisher receives one message per committed ingest. May be nil.
type Publisher interface {
	Publish(ctx context.Context, event models.IngestEvent) error
}

// allowedTypes is the declared-type allow-list. The check runs against the
// client-supplied label, not the sniffed type; a spoofed label passes here and
// is caught only in the sense that the sniffed type is what gets recorded.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Pipeline drives one upload through validate, store, extract, derive, store,
// record. Each step runs at most once; the first failure is terminal for the
// request. Blobs written by a run that fails before catalog commit are removed
// best-effort on the way out.
type Pipeline struct {
	blobs    BlobStore
	catalog  Catalog
	events   Publisher
	maxBytes int64
}

func New(blobs BlobStore, catalog Catalog, events Publisher, maxBytes int64) *Pipeline {
	if maxBytes <= 0 {
		maxBytes = models.DefaultMaxUploadBytes
	}
	return &Pipeline{blobs: blobs, catalog: catalog, events: events, maxBytes: maxBytes}
}

// Ingest runs the full pipeline and returns the committed catalog record.
// The size ceiling is inclusive: a payload at exactly maxBytes is rejected.
func (p *Pipeline) Ingest(ctx context.Context, up models.Upload) (*models.Image, error) {
	const op = "pipeline.Ingest"

	if int64(len(up.Data)) >= p.maxBytes {
		return nil, fmt.Errorf("%s: %w: payload of %d bytes reaches the %d byte limit",
			op, models.ErrValidation, len(up.Data), p.maxBytes)
	}
	if !allowedTypes[up.DeclaredType] {
		return nil, fmt.Errorf("%s: %w: declared type %q is not allowed (want JPEG, PNG, GIF or WebP)",
			op, models.ErrValidation, up.DeclaredType)
	}

	originalKey, err := p.blobs.Write(blob.BucketOriginal, up.Data, up.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	md := meta.Extract(up.Data)

	compressed, err := derive.Compress(up.Data)
	if err != nil {
		p.blobs.Delete(blob.BucketOriginal, originalKey)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	compressedKey, err := p.blobs.Write(blob.BucketCompressed, compressed, up.DisplayName)
	if err != nil {
		p.blobs.Delete(blob.BucketOriginal, originalKey)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	img := &models.Image{
		Filename:       up.DisplayName,
		OriginalKey:    originalKey,
		CompressedKey:  compressedKey,
		OriginalSize:   md.SizeBytes,
		CompressedSize: int64(len(compressed)),
		Width:          md.Width,
		Height:         md.Height,
		MediaType:      md.MediaType,
	}
	if err := p.catalog.CreateImage(ctx, img); err != nil {
		p.blobs.Delete(blob.BucketOriginal, originalKey)
		p.blobs.Delete(blob.BucketCompressed, compressedKey)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p.publish(ctx, img)
	return img, nil
}

// List returns all catalog records, newest first.
func (p *Pipeline) List(ctx context.Context) ([]models.Image, error) {
	return p.catalog.ListImages(ctx)
}

// CompressResult is what the derive-and-discard entry point hands back.
type CompressResult struct {
	OriginalSize   int64
	CompressedSize int64
	Ratio          string
	Data           []byte
}

// CompressOnly derives a compressed variant without touching the catalog. Both
// temporary blobs are removed on every exit path; removal is best-effort and
// never affects the outcome.
func (p *Pipeline) CompressOnly(ctx context.Context, up models.Upload) (*CompressResult, error) {
	const op = "pipeline.CompressOnly"

	md := meta.Extract(up.Data)

	originalKey, err := p.blobs.Write(blob.BucketOriginal, up.Data, "temp-"+up.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer p.blobs.Delete(blob.BucketOriginal, originalKey)

	compressed, err := derive.Compress(up.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	compressedKey, err := p.blobs.Write(blob.BucketCompressed, compressed, "temp-"+up.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer p.blobs.Delete(blob.BucketCompressed, compressedKey)

	return &CompressResult{
		OriginalSize:   md.SizeBytes,
		CompressedSize: int64(len(compressed)),
		Ratio:          fmt.Sprintf("%.2f", float64(len(compressed))/float64(md.SizeBytes)),
		Data:           compressed,
	}, nil
}

// publish emits the ingest event after catalog commit. Failures are logged
// only: the record is already durable and the upload has succeeded.
func (p *Pipeline) publish(ctx context.Context, img *models.Image) {
	if p.events == nil {
		return
	}
	event := models.IngestEvent{
		ID:             img.ID.String(),
		OriginalKey:    img.OriginalKey,
		CompressedKey:  img.CompressedKey,
		OriginalSize:   img.OriginalSize,
		CompressedSize: img.CompressedSize,
		MediaType:      img.MediaType,
	}
	if err := p.events.Publish(ctx, event); err != nil {
		log.Printf("pipeline: failed to publish ingest event for %s: %v", event.ID, err)
	}
}
