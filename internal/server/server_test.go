package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"imgpress/internal/models"
	"imgpress/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockIngestor struct {
	ingestFunc       func(ctx context.Context, up models.Upload) (*models.Image, error)
	listFunc         func(ctx context.Context) ([]models.Image, error)
	compressOnlyFunc func(ctx context.Context, up models.Upload) (*pipeline.CompressResult, error)
}

func (m *mockIngestor) Ingest(ctx context.Context, up models.Upload) (*models.Image, error) {
	if m.ingestFunc != nil {
		return m.ingestFunc(ctx, up)
	}
	return &models.Image{
		ID:             uuid.New(),
		Filename:       up.DisplayName,
		OriginalKey:    "123-abc-" + up.DisplayName,
		CompressedKey:  "123-def-" + up.DisplayName,
		OriginalSize:   int64(len(up.Data)),
		CompressedSize: 10,
		Width:          4,
		Height:         4,
		MediaType:      "image/png",
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (m *mockIngestor) List(ctx context.Context) ([]models.Image, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockIngestor) CompressOnly(ctx context.Context, up models.Upload) (*pipeline.CompressResult, error) {
	if m.compressOnlyFunc != nil {
		return m.compressOnlyFunc(ctx, up)
	}
	return &pipeline.CompressResult{
		OriginalSize:   int64(len(up.Data)),
		CompressedSize: 3,
		Ratio:          "0.50",
		Data:           []byte("jpg"),
	}, nil
}

func newTestServer(ingest Ingestor, t *testing.T) *Server {
	cfg := &models.Config{ServerAddr: ":0", StoragePath: t.TempDir()}
	return NewServer(cfg, ingest)
}

// multipartBody builds a form with the given files under the "image" field.
func multipartBody(t *testing.T, files ...[]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for i, data := range files {
		part, err := w.CreateFormFile("image", fmt.Sprintf("test-%d.png", i))
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func TestUploadSuccess(t *testing.T) {
	srv := newTestServer(&mockIngestor{}, t)

	body, contentType := multipartBody(t, []byte("fake png data"))
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
	}

	var resp struct {
		ID            string `json:"id"`
		OriginalURL   string `json:"originalUrl"`
		CompressedURL string `json:"compressedUrl"`
		Filename      string `json:"filename"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" {
		t.Error("expected non-empty id")
	}
	if want := "/files/original/123-abc-test-0.png"; resp.OriginalURL != want {
		t.Errorf("originalUrl = %q, want %q", resp.OriginalURL, want)
	}
	if want := "/files/compressed/123-def-test-0.png"; resp.CompressedURL != want {
		t.Errorf("compressedUrl = %q, want %q", resp.CompressedURL, want)
	}
}

func TestUploadNoFile(t *testing.T) {
	srv := newTestServer(&mockIngestor{}, t)

	body, contentType := multipartBody(t)
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUploadRejectsMultipleFiles(t *testing.T) {
	srv := newTestServer(&mockIngestor{}, t)

	body, contentType := multipartBody(t, []byte("one"), []byte("two"))
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUploadErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("too big: %w", models.ErrValidation), http.StatusBadRequest},
		{"derivation", fmt.Errorf("bad bytes: %w", models.ErrDerivation), http.StatusInternalServerError},
		{"storage", fmt.Errorf("disk: %w", models.ErrStorage), http.StatusInternalServerError},
		{"persistence", fmt.Errorf("db: %w", models.ErrPersistence), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&mockIngestor{
				ingestFunc: func(ctx context.Context, up models.Upload) (*models.Image, error) {
					return nil, tc.err
				},
			}, t)

			body, contentType := multipartBody(t, []byte("data"))
			req := httptest.NewRequest("POST", "/upload", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()

			srv.router.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestUploadCeilingEnforcedBeforeRead(t *testing.T) {
	ingestCalled := false
	ingest := &mockIngestor{
		ingestFunc: func(ctx context.Context, up models.Upload) (*models.Image, error) {
			ingestCalled = true
			return nil, fmt.Errorf("unexpected: %w", models.ErrValidation)
		},
	}
	cfg := &models.Config{ServerAddr: ":0", StoragePath: t.TempDir(), MaxUploadBytes: 100}
	srv := NewServer(cfg, ingest)

	// At the ceiling and above it: both rejected at the transport, before the
	// payload is handed to the pipeline.
	for _, size := range []int{100, 200} {
		body, contentType := multipartBody(t, bytes.Repeat([]byte("x"), size))
		req := httptest.NewRequest("POST", "/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		srv.router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("size %d: status = %d, want 400", size, w.Code)
		}
	}
	if ingestCalled {
		t.Error("pipeline invoked for an over-ceiling upload")
	}
}

func TestUploadUnderCeilingAccepted(t *testing.T) {
	cfg := &models.Config{ServerAddr: ":0", StoragePath: t.TempDir(), MaxUploadBytes: 100}
	srv := NewServer(cfg, &mockIngestor{})

	body, contentType := multipartBody(t, bytes.Repeat([]byte("x"), 99))
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: %s", w.Code, w.Body)
	}
}

func TestListImages(t *testing.T) {
	now := time.Now().UTC()
	srv := newTestServer(&mockIngestor{
		listFunc: func(ctx context.Context) ([]models.Image, error) {
			return []models.Image{
				{ID: uuid.New(), Filename: "newer.png", OriginalKey: "2-b-newer.png", CompressedKey: "2-c-newer.png", CreatedAt: now},
				{ID: uuid.New(), Filename: "older.png", OriginalKey: "1-a-older.png", CompressedKey: "1-c-older.png", CreatedAt: now.Add(-time.Hour)},
			}, nil
		},
	}, t)

	req := httptest.NewRequest("GET", "/images", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Images []struct {
			Filename    string `json:"filename"`
			OriginalURL string `json:"originalUrl"`
		} `json:"images"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Images) != 2 {
		t.Fatalf("got %d images, want 2", len(resp.Images))
	}
	if resp.Images[0].Filename != "newer.png" {
		t.Errorf("first image = %s, want newer.png (pipeline order preserved)", resp.Images[0].Filename)
	}
	if resp.Images[0].OriginalURL != "/files/original/2-b-newer.png" {
		t.Errorf("unexpected originalUrl %q", resp.Images[0].OriginalURL)
	}
}

func TestListImagesEmpty(t *testing.T) {
	srv := newTestServer(&mockIngestor{}, t)

	req := httptest.NewRequest("GET", "/images", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	// An empty catalog serializes as an empty array, not null.
	if !bytes.Contains(w.Body.Bytes(), []byte(`"images":[]`)) {
		t.Errorf("expected empty images array, got %s", w.Body)
	}
}

func TestCompressInline(t *testing.T) {
	srv := newTestServer(&mockIngestor{}, t)

	body, contentType := multipartBody(t, []byte("pngpng"))
	req := httptest.NewRequest("POST", "/compress", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
	}

	var resp struct {
		Success          bool   `json:"success"`
		OriginalSize     int64  `json:"originalSize"`
		CompressedSize   int64  `json:"compressedSize"`
		CompressionRatio string `json:"compressionRatio"`
		Buffer           string `json:"buffer"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.CompressionRatio != "0.50" {
		t.Errorf("ratio = %q, want 0.50", resp.CompressionRatio)
	}
	decoded, err := base64.StdEncoding.DecodeString(resp.Buffer)
	if err != nil {
		t.Fatalf("buffer is not valid base64: %v", err)
	}
	if string(decoded) != "jpg" {
		t.Errorf("buffer decodes to %q, want %q", decoded, "jpg")
	}
}
