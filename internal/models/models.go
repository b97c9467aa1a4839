// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Image is one catalog row: an ingested original plus its compressed variant.
// Rows are immutable after creation.
type Image struct {
	ID             uuid.UUID `db:"id"`
	Filename       string    `db:"filename"`
	OriginalKey    string    `db:"original_key"`
	CompressedKey  string    `db:"compressed_key"`
	OriginalSize   int64     `db:"original_size"`
	CompressedSize int64     `db:"compressed_size"`
	Width          int       `db:"width"`
	Height         int       `db:"height"`
	MediaType      string    `db:"media_type"`
	CreatedAt      time.Time `db:"created_at"`
}

// Metadata describes a raw payload as sniffed from its bytes.
type Metadata struct {
	MediaType string
	Width     int
	Height    int
	SizeBytes int64
}

// Upload is one accepted request payload plus what the client declared about it.
type Upload struct {
	Data         []byte
	DisplayName  string
	DeclaredType string
}

// IngestEvent is published to the broker after a catalog commit.
type IngestEvent struct {
	ID             string `json:"id"`
	OriginalKey    string `json:"original_key"`
	CompressedKey  string `json:"compressed_key"`
	OriginalSize   int64  `json:"original_size"`
	CompressedSize int64  `json:"compressed_size"`
	MediaType      string `json:"media_type"`
}
