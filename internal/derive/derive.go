// internal/derive/derive.go
package derive

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"

	"imgpress/internal/models"
)

// Quality is the fixed re-encode quality factor.
const Quality = 70

// Compress re-encodes the input as JPEG at the fixed quality. The output is
// always JPEG regardless of the input container (a PNG or GIF comes out
// lossy-encoded) — callers must not assume the derived media type matches the
// original. Returns ErrDerivation when the input cannot be decoded at all.
func Compress(data []byte) ([]byte, error) {
	const op = "derive.Compress"

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrDerivation, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(Quality)); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrDerivation, err)
	}
	return buf.Bytes(), nil
}
