package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/plsfixthx/annotator/internal/config"
	"github.com/plsfixthx/annotator/internal/export"
	"github.com/plsfixthx/annotator/internal/services"
)

type ExportHandler struct {
	sessions *services.SessionService
	exports  *services.ExportService
	shares   *services.ShareService
	cfg      *config.Config
}

func NewExportHandler(sessions *services.SessionService, exports *services.ExportService, shares *services.ShareService, cfg *config.Config) *ExportHandler {
	return &ExportHandler{sessions: sessions, exports: exports, shares: shares, cfg: cfg}
}

// exportRequest reads format, name and page from the query string.
func exportRequest(c *gin.Context, defaultFormat string) (export.Format, string, services.ExportOptions, error) {
	format, err := export.ParseFormat(c.DefaultQuery("format", defaultFormat))
	if err != nil {
		return "", "", services.ExportOptions{}, err
	}
	var opts services.ExportOptions
	if p := c.Query("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			return "", "", opts, services.ErrPageOutOfRange
		}
		opts.Page = page
	}
	return format, c.Query("name"), opts, nil
}

// render runs an export, writing the error response itself. It reports
// false when the handler should stop.
func (h *ExportHandler) render(c *gin.Context, sess *services.Session, format export.Format, name string, opts services.ExportOptions) ([]export.File, bool) {
	files, err := h.exports.Export(c.Request.Context(), sess.Store, format, name, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// The client went away; there is nobody to answer.
			c.Abort()
			return nil, false
		}
		respondError(c, err)
		return nil, false
	}
	return files, true
}

// single collapses multi-page PNG output into a zip.
func single(files []export.File, name string) (export.File, error) {
	if len(files) == 1 {
		return files[0], nil
	}
	return services.Bundle(files, name)
}

// Export downloads the session as png, pdf or html
// GET /sessions/:id/export?format=pdf&name=report&page=2
func (h *ExportHandler) Export(c *gin.Context) {
	sess, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	format, name, opts, err := exportRequest(c, string(export.FormatPDF))
	if err != nil {
		respondError(c, err)
		return
	}
	files, ok := h.render(c, sess, format, name, opts)
	if !ok {
		return
	}
	f, err := single(files, name)
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, f, false)
}

// Clipboard returns the flattened PNG of one image for the clipboard
// GET /sessions/:id/images/:imageId/clipboard
func (h *ExportHandler) Clipboard(c *gin.Context) {
	sess, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	imageID, ok := paramUUID(c, "imageId")
	if !ok {
		return
	}
	f, err := h.exports.Clipboard(c.Request.Context(), sess.Store, imageID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.Abort()
			return
		}
		respondError(c, err)
		return
	}
	sendFile(c, f, true)
}

// Share publishes an export and returns its link. When sharing is not
// possible the export is downloaded instead.
// POST /sessions/:id/share?format=pdf&name=report
func (h *ExportHandler) Share(c *gin.Context) {
	sess, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	format, name, opts, err := exportRequest(c, string(export.FormatPDF))
	if err != nil {
		respondError(c, err)
		return
	}
	files, ok := h.render(c, sess, format, name, opts)
	if !ok {
		return
	}
	f, err := single(files, name)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if h.cfg.ShareTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.ShareTimeout)
		defer cancel()
	}
	shared, err := h.shares.Share(ctx, f)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, shared)
	case errors.Is(err, services.ErrShareCancelled):
		c.Status(http.StatusNoContent)
	case errors.Is(err, services.ErrShareUnsupported), errors.Is(err, context.DeadlineExceeded):
		log.Printf("[share] falling back to download for %s: %v", f.Name, err)
		c.Header("X-Share-Fallback", "download")
		sendFile(c, f, false)
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "fallback": "download"})
	}
}

// SharedFile serves a file published to the local share target
// GET /shared/*key
func (h *ExportHandler) SharedFile(c *gin.Context) {
	local := h.shares.Local()
	if local == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	if err := local.ServeFile(c.Writer, c.Request, key); err != nil {
		respondError(c, err)
	}
}
