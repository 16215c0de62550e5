package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plsfixthx/annotator/internal/interaction"
	"github.com/plsfixthx/annotator/internal/models"
	"github.com/plsfixthx/annotator/internal/services"
	"github.com/plsfixthx/annotator/pkg/validation"
)

type SessionHandler struct {
	sessions *services.SessionService
}

func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// CreateSession starts an empty annotation session
// POST /sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	sess := h.sessions.Create()
	c.JSON(http.StatusCreated, sess.Summary())
}

// GetSession returns images, annotations and editor state
// GET /sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Summary())
}

// DeleteSession discards a session and everything in it
// DELETE /sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.sessions.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type eventsRequest struct {
	Events []interaction.Event `json:"events" binding:"required"`
}

// HandleEvents feeds editor input events to the session's controller in
// order. Processing stops at the first failing event.
// POST /sessions/:id/events
func (h *SessionHandler) HandleEvents(c *gin.Context) {
	sess, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	var req eventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	created := []models.Annotation{}
	for i, ev := range req.Events {
		ev.Text = validation.SanitizeNote(ev.Text)
		a, err := sess.HandleEvent(ev, now)
		if err != nil {
			c.JSON(statusFor(err), gin.H{
				"error":       err.Error(),
				"event_index": i,
				"created":     created,
				"interaction": sess.Controller.Snapshot(),
			})
			return
		}
		if a != nil {
			created = append(created, *a)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"created":     created,
		"interaction": sess.Controller.Snapshot(),
	})
}
