package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"imgpress/internal/blob"
	"imgpress/internal/models"
	"imgpress/internal/pipeline"
)

// Ingestor is what the handlers need from the pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, up models.Upload) (*models.Image, error)
	List(ctx context.Context) ([]models.Image, error)
	CompressOnly(ctx context.Context, up models.Upload) (*pipeline.CompressResult, error)
}

type Server struct {
	cfg    *models.Config
	router *gin.Engine
	ingest Ingestor
}

func NewServer(cfg *models.Config, ingest Ingestor) *Server {
	r := gin.Default()
	r.Static("/web", "./web")
	r.Static("/files/original", filepath.Join(cfg.StoragePath, blob.BucketOriginal))
	r.Static("/files/compressed", filepath.Join(cfg.StoragePath, blob.BucketCompressed))

	s := &Server{cfg: cfg, router: r, ingest: ingest}

	r.POST("/upload", s.handleUpload)
	r.GET("/images", s.handleListImages)
	r.POST("/compress", s.handleCompress)
	r.GET("/", func(c *gin.Context) {
		c.File("./web/index.html")
	})

	return s
}

func (s *Server) Start() error {
	return s.router.Run(s.cfg.ServerAddr)
}

func (s *Server) Stop() {
	// No shutdown needed for gin
}

// imageResponse is the wire projection of a catalog record, with both blob
// keys resolved to fetchable paths.
type imageResponse struct {
	ID             string    `json:"id"`
	OriginalURL    string    `json:"originalUrl"`
	CompressedURL  string    `json:"compressedUrl"`
	OriginalSize   int64     `json:"originalSize"`
	CompressedSize int64     `json:"compressedSize"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	MimeType       string    `json:"mimeType"`
	Filename       string    `json:"filename"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toResponse(img models.Image) imageResponse {
	return imageResponse{
		ID:             img.ID.String(),
		OriginalURL:    "/files/original/" + img.OriginalKey,
		CompressedURL:  "/files/compressed/" + img.CompressedKey,
		OriginalSize:   img.OriginalSize,
		CompressedSize: img.CompressedSize,
		Width:          img.Width,
		Height:         img.Height,
		MimeType:       img.MediaType,
		Filename:       img.Filename,
		CreatedAt:      img.CreatedAt,
	}
}

func (s *Server) handleUpload(c *gin.Context) {
	const op = "server.handleUpload"

	up, ok := s.acceptUpload(c, s.maxUploadBytes())
	if !ok {
		return
	}

	img, err := s.ingest.Ingest(c.Request.Context(), up)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.JSON(http.StatusOK, toResponse(*img))
}

func (s *Server) handleListImages(c *gin.Context) {
	const op = "server.handleListImages"

	images, err := s.ingest.List(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	out := make([]imageResponse, 0, len(images))
	for _, img := range images {
		out = append(out, toResponse(img))
	}
	c.JSON(http.StatusOK, gin.H{"images": out})
}

func (s *Server) handleCompress(c *gin.Context) {
	const op = "server.handleCompress"

	up, ok := s.acceptUpload(c, 0)
	if !ok {
		return
	}

	res, err := s.ingest.CompressOnly(c.Request.Context(), up)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"originalSize":     res.OriginalSize,
		"compressedSize":   res.CompressedSize,
		"compressionRatio": res.Ratio,
		"buffer":           base64.StdEncoding.EncodeToString(res.Data),
	})
}

// formSlack is extra room on top of the payload ceiling for multipart framing
// and non-file fields when bounding the request body.
const formSlack = 1 << 20

func (s *Server) maxUploadBytes() int64 {
	if s.cfg.MaxUploadBytes > 0 {
		return s.cfg.MaxUploadBytes
	}
	return models.DefaultMaxUploadBytes
}

// acceptUpload normalizes the multipart form to exactly one "image" file.
// Zero files and more than one file are both rejected, so a client sending an
// array gets a deterministic answer instead of a silently dropped tail.
// A positive maxBytes bounds the body at parse time and rejects a file at or
// above the ceiling before a single payload byte is read into memory.
func (s *Server) acceptUpload(c *gin.Context, maxBytes int64) (models.Upload, bool) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+formSlack)
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.Upload{}, false
	}

	files := form.File["image"]
	switch {
	case len(files) == 0:
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image uploaded"})
		return models.Upload{}, false
	case len(files) > 1:
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one image per request"})
		return models.Upload{}, false
	}

	header := files[0]
	if maxBytes > 0 && header.Size >= maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("%v: payload of %d bytes reaches the %d byte limit",
				models.ErrValidation, header.Size, maxBytes),
		})
		return models.Upload{}, false
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return models.Upload{}, false
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return models.Upload{}, false
	}

	return models.Upload{
		Data:         data,
		DisplayName:  header.Filename,
		DeclaredType: header.Header.Get("Content-Type"),
	}, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
