package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plsfixthx/annotator/internal/config"
	"github.com/plsfixthx/annotator/internal/models"
	"github.com/plsfixthx/annotator/pkg/validation"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrNotAnImage       = errors.New("not an image")
	ErrUnsupportedImage = errors.New("unsupported image format")
	ErrImageTooLarge    = errors.New("image too large")
	ErrCorruptImage     = errors.New("image data is corrupt")
)

const maxConcurrentDecodes = 3

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageService validates uploaded or pasted screenshots and reads their
// natural dimensions.
type ImageService struct {
	maxSize   int64
	maxPixels int
	now       func() time.Time
}

func NewImageService(cfg *config.Config) *ImageService {
	return &ImageService{maxSize: cfg.UploadMaxImageSize, maxPixels: cfg.UploadMaxPixels, now: time.Now}
}

// Decode validates data and returns an image ready for a store. Nothing is
// kept when validation fails.
func (s *ImageService) Decode(filename string, data []byte) (*models.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrImageTooLarge, len(data), s.maxSize)
	}

	// Validate MIME type using content detection, never the file name
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotAnImage, mimeType)
	}
	ext, ok := allowedImageTypes[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: zero dimensions", ErrCorruptImage)
	}
	// Checked before the full decode, which allocates every pixel.
	if s.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(s.maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d pixels (max: %d)", ErrImageTooLarge, cfg.Width, cfg.Height, s.maxPixels)
	}
	// A valid header can still hide truncated pixel data.
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}

	name := validation.SanitizeFilename(filename)
	if name == "" {
		name = "screenshot-" + s.now().Format("20060102-150405") + ext
	}
	return &models.Image{
		ID:            uuid.New(),
		Filename:      name,
		MimeType:      mimeType,
		Data:          data,
		NaturalWidth:  cfg.Width,
		NaturalHeight: cfg.Height,
		SizeBytes:     int64(len(data)),
		CreatedAt:     s.now(),
	}, nil
}

// Ingest decodes data and adds it to store.
func (s *ImageService) Ingest(store *AnnotationStore, filename string, data []byte) (*models.Image, error) {
	img, err := s.Decode(filename, data)
	if err != nil {
		return nil, err
	}
	if err := store.AddImage(img); err != nil {
		return nil, err
	}
	return img, nil
}

// UploadFile is one file of a multi-file upload.
type UploadFile struct {
	Filename string
	Data     []byte
	Err      error // set when the file could not be read
}

// UploadResult reports the outcome for one file.
type UploadResult struct {
	Filename string        `json:"filename"`
	Image    *models.Image `json:"image,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// IngestAll adds each file independently; one bad file does not stop the
// others. Files are decoded concurrently but added in upload order.
func (s *ImageService) IngestAll(store *AnnotationStore, files []UploadFile) ([]UploadResult, int) {
	results := make([]UploadResult, len(files))
	decoded := make([]*models.Image, len(files))

	// Simple semaphore for concurrency limiting
	sem := make(chan struct{}, maxConcurrentDecodes)
	done := make(chan int, len(files))
	for i := range files {
		go func(idx int) {
			sem <- struct{}{} // acquire
			defer func() { <-sem; done <- idx }()
			if err := files[idx].Err; err != nil {
				results[idx].Error = err.Error()
				return
			}
			img, err := s.Decode(files[idx].Filename, files[idx].Data)
			if err != nil {
				results[idx].Error = err.Error()
				return
			}
			decoded[idx] = img
		}(i)
	}
	for range files {
		<-done
	}

	added := 0
	for i, img := range decoded {
		results[i].Filename = files[i].Filename
		if img == nil {
			continue
		}
		if err := store.AddImage(img); err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Image = img
		added++
	}
	return results, added
}
