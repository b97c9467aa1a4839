// internal/blob/blob.go
package blob

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"imgpress/internal/models"
)

// Buckets the store knows about. Originals and compressed variants live in
// separate directories so they can be served under distinct path prefixes.
const (
	BucketOriginal   = "original"
	BucketCompressed = "compressed"
)

// Store persists raw payloads on the local filesystem under
// <root>/<bucket>/<key>.
type Store struct {
	root string
}

// New returns a Store rooted at dir. Bucket directories are provisioned once
// here, at process start, so per-request calls never touch directory state.
func New(dir string) (*Store, error) {
	const op = "blob.New"

	for _, bucket := range []string{BucketOriginal, BucketCompressed} {
		if err := os.MkdirAll(filepath.Join(dir, bucket), 0755); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, models.ErrStorage, err)
		}
	}
	return &Store{root: dir}, nil
}

// Write stores data under a fresh key derived from displayName. The key
// prefixes the name with an ingest-time millisecond stamp and a random token,
// so concurrent writes of identically named files never collide.
func (s *Store) Write(bucket string, data []byte, displayName string) (string, error) {
	const op = "blob.Write"

	key := fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.NewString()[:8], sanitize(displayName))
	path := filepath.Join(s.root, bucket, key)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, models.ErrStorage, err)
	}
	return key, nil
}

func (s *Store) Read(bucket, key string) ([]byte, error) {
	const op = "blob.Read"

	data, err := os.ReadFile(filepath.Join(s.root, bucket, filepath.Base(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w: %s/%s", op, models.ErrNotFound, bucket, key)
		}
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrStorage, err)
	}
	return data, nil
}

// Delete removes a blob. It is best-effort: failures are logged and swallowed,
// matching the cleanup contract — callers must never fail an operation because
// a discard did not stick.
func (s *Store) Delete(bucket, key string) {
	if key == "" {
		return
	}
	if err := os.Remove(filepath.Join(s.root, bucket, filepath.Base(key))); err != nil && !os.IsNotExist(err) {
		log.Printf("blob.Delete: failed to remove %s/%s: %v", bucket, key, err)
	}
}

// Dir returns the directory backing a bucket, for static file serving.
func (s *Store) Dir(bucket string) string {
	return filepath.Join(s.root, bucket)
}

// sanitize strips any path components from a client-supplied name. The name is
// display metadata only; it must never steer where the blob lands.
func sanitize(name string) string {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "unknown"
	}
	return base
}
