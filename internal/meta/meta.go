// internal/meta/meta.go
package meta

import (
	"bytes"
	"image"
	"net/http"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"imgpress/internal/models"
)

// UnknownMediaType is reported when the payload does not sniff as any
// recognized image container.
const UnknownMediaType = "application/octet-stream"

// Extract sniffs media type and dimensions from raw bytes. It never fails:
// undecodable input degrades to zero dimensions and UnknownMediaType so the
// pipeline can always record something. The media type comes from magic-byte
// inspection, not from whatever the client declared.
func Extract(data []byte) models.Metadata {
	m := models.Metadata{
		MediaType: UnknownMediaType,
		SizeBytes: int64(len(data)),
	}

	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		m.MediaType = sniffed
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		m.Width = cfg.Width
		m.Height = cfg.Height
	}
	return m
}
