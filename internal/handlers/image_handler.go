package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plsfixthx/annotator/internal/config"
	"github.com/plsfixthx/annotator/internal/services"
)

type ImageHandler struct {
	sessions *services.SessionService
	images   *services.ImageService
	cfg      *config.Config
}

func NewImageHandler(sessions *services.SessionService, images *services.ImageService, cfg *config.Config) *ImageHandler {
	return &ImageHandler{sessions: sessions, images: images, cfg: cfg}
}

// UploadImages adds one or more screenshots
// POST /sessions/:id/images
// Multipart form: file (single) or files[] (multiple)
func (h *ImageHandler) UploadImages(c *gin.Context) {
	sess, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	// Parse multipart form; files beyond memory spill to disk
	maxMemory := int64(32 * 1024 * 1024)
	if err := c.Request.ParseMultipartForm(maxMemory); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse multipart form"})
		return
	}
	form := c.Request.MultipartForm
	headers := append(form.File["file"], form.File["files[]"]...)
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file or files[] is required"})
		return
	}
	if h.cfg.UploadMaxFiles > 0 && len(headers) > h.cfg.UploadMaxFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many files", "max_files": h.cfg.UploadMaxFiles})
		return
	}

	files := make([]services.UploadFile, len(headers))
	for i, fh := range headers {
		data, err := h.readPart(fh)
		files[i] = services.UploadFile{Filename: fh.Filename, Data: data, Err: err}
	}

	results, added := h.images.IngestAll(sess.Store, files)
	status := http.StatusCreated
	if added == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{
		"total":   len(files),
		"success": added,
		"failed":  len(files) - added,
		"results": results,
	})
}

func (h *ImageHandler) readPart(fh *multipart.FileHeader) ([]byte, error) {
	if h.cfg.UploadMaxImageSize > 0 && fh.Size > h.cfg.UploadMaxImageSize {
		return nil, services.ErrImageTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// PasteImage adds a screenshot from a raw request body, as sent by a
// clipboard paste
// POST /sessions/:id/images/paste
func (h *ImageHandler) PasteImage(c *gin.Context) {
	sess, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	body := c.Request.Body
	if h.cfg.UploadMaxImageSize > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.cfg.UploadMaxImageSize)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, services.ErrImageTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	img, err := h.images.Ingest(sess.Store, c.Query("filename"), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, img)
}

// DeleteImage removes an image and all of its annotations
// DELETE /sessions/:id/images/:imageId
func (h *ImageHandler) DeleteImage(c *gin.Context) {
	sess, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	imageID, ok := paramUUID(c, "imageId")
	if !ok {
		return
	}
	if err := sess.RemoveImage(imageID); err != nil {
		respondError(c, err)
		return
	}
	images, annotations := sess.Store.Count()
	c.JSON(http.StatusOK, gin.H{"image_count": images, "annotation_count": annotations})
}

// GetImageFile returns the original image bytes
// GET /sessions/:id/images/:imageId/file
func (h *ImageHandler) GetImageFile(c *gin.Context) {
	sess, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	imageID, ok := paramUUID(c, "imageId")
	if !ok {
		return
	}
	img, found := sess.Store.Image(imageID)
	if !found {
		respondError(c, services.ErrImageNotFound)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, img.MimeType, img.Data)
}
