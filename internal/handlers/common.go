package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/plsfixthx/annotator/internal/export"
	"github.com/plsfixthx/annotator/internal/interaction"
	"github.com/plsfixthx/annotator/internal/services"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrImageNotFound),
		errors.Is(err, services.ErrAnnotationNotFound),
		errors.Is(err, services.ErrSharedFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrImageTooLarge),
		errors.Is(err, export.ErrCanvasTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrEmptyImage),
		errors.Is(err, services.ErrNotAnImage),
		errors.Is(err, services.ErrCorruptImage),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, services.ErrPageOutOfRange),
		errors.Is(err, interaction.ErrUnknownEvent):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, services.ErrNothingToExport),
		errors.Is(err, interaction.ErrNoView):
		return http.StatusConflict
	case errors.Is(err, services.ErrShareUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, services.ErrShareLinkInvalid):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// loadSession resolves the :id parameter.
func loadSession(c *gin.Context, sessions *services.SessionService) (*services.Session, bool) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return nil, false
	}
	sess, err := sessions.Get(id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return sess, true
}

// sendFile writes a generated file as an attachment.
func sendFile(c *gin.Context, f export.File, inline bool) {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	c.Header("Content-Disposition", disposition+`; filename="`+f.Name+`"`)
	c.Data(http.StatusOK, f.ContentType, f.Data)
}
