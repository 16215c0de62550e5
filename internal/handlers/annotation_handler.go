package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/plsfixthx/annotator/internal/services"
	"github.com/plsfixthx/annotator/pkg/validation"
)

type AnnotationHandler struct {
	sessions *services.SessionService
}

func NewAnnotationHandler(sessions *services.SessionService) *AnnotationHandler {
	return &AnnotationHandler{sessions: sessions}
}

type createAnnotationRequest struct {
	X    *float64 `json:"x" binding:"required"`
	Y    *float64 `json:"y" binding:"required"`
	Note string   `json:"note"`
}

// CreateAnnotation adds a note at natural image coordinates. Blank notes
// are discarded without error.
// POST /sessions/:id/images/:imageId/annotations
func (h *AnnotationHandler) CreateAnnotation(c *gin.Context) {
	sess, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	imageID, ok := paramUUID(c, "imageId")
	if !ok {
		return
	}
	var req createAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, created, err := sess.Store.Create(imageID, *req.X, *req.Y, validation.SanitizeNote(req.Note))
	if err != nil {
		respondError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"created": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": true, "annotation": a})
}

type updateAnnotationRequest struct {
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
	Note *string  `json:"note"`
}

// UpdateAnnotation moves an annotation and/or edits its note
// PATCH /sessions/:id/annotations/:annotationId
func (h *AnnotationHandler) UpdateAnnotation(c *gin.Context) {
	sess, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "annotationId")
	if !ok {
		return
	}
	var req updateAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (req.X == nil) != (req.Y == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "x and y must be given together"})
		return
	}
	if req.X != nil {
		if err := sess.Store.Move(id, *req.X, *req.Y); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.Note != nil {
		if err := sess.Store.UpdateNote(id, validation.SanitizeNote(*req.Note)); err != nil {
			respondError(c, err)
			return
		}
	}
	h.respondAnnotation(c, sess, id)
}

// ToggleAnnotation flips the completed flag
// POST /sessions/:id/annotations/:annotationId/toggle
func (h *AnnotationHandler) ToggleAnnotation(c *gin.Context) {
	sess, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "annotationId")
	if !ok {
		return
	}
	if err := sess.Store.ToggleCompleted(id); err != nil {
		respondError(c, err)
		return
	}
	h.respondAnnotation(c, sess, id)
}

// DeleteAnnotation removes an annotation
// DELETE /sessions/:id/annotations/:annotationId
func (h *AnnotationHandler) DeleteAnnotation(c *gin.Context) {
	sess, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "annotationId")
	if !ok {
		return
	}
	if err := sess.Store.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AnnotationHandler) respondAnnotation(c *gin.Context, sess *services.Session, id uuid.UUID) {
	a, found := sess.Store.Lookup(id)
	if !found {
		respondError(c, services.ErrAnnotationNotFound)
		return
	}
	c.JSON(http.StatusOK, a)
}
