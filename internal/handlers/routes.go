package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plsfixthx/annotator/internal/config"
	"github.com/plsfixthx/annotator/internal/services"
)

// Services bundles what the HTTP layer needs.
type Services struct {
	Sessions *services.SessionService
	Images   *services.ImageService
	Exports  *services.ExportService
	Shares   *services.ShareService
}

// Register mounts every route on router. uploadLimit guards the endpoints
// that add screenshots.
func Register(router *gin.Engine, cfg *config.Config, svc Services, uploadLimit gin.HandlerFunc) {
	sessionHandler := NewSessionHandler(svc.Sessions)
	imageHandler := NewImageHandler(svc.Sessions, svc.Images, cfg)
	annotationHandler := NewAnnotationHandler(svc.Sessions)
	exportHandler := NewExportHandler(svc.Sessions, svc.Exports, svc.Shares, cfg)

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "sessions": svc.Sessions.Len()})
	}
	router.GET("/health", health)
	router.GET("/shared/*key", exportHandler.SharedFile)

	api := router.Group("/api/v1")
	{
		api.GET("/health", health)

		api.POST("/sessions", sessionHandler.CreateSession)
		api.GET("/sessions/:id", sessionHandler.GetSession)
		api.DELETE("/sessions/:id", sessionHandler.DeleteSession)
		api.POST("/sessions/:id/events", sessionHandler.HandleEvents)

		uploads := api.Group("/sessions/:id/images")
		if uploadLimit != nil {
			uploads.Use(uploadLimit)
		}
		uploads.POST("", imageHandler.UploadImages)
		uploads.POST("/paste", imageHandler.PasteImage)

		api.DELETE("/sessions/:id/images/:imageId", imageHandler.DeleteImage)
		api.GET("/sessions/:id/images/:imageId/file", imageHandler.GetImageFile)
		api.GET("/sessions/:id/images/:imageId/clipboard", exportHandler.Clipboard)
		api.POST("/sessions/:id/images/:imageId/annotations", annotationHandler.CreateAnnotation)

		api.PATCH("/sessions/:id/annotations/:annotationId", annotationHandler.UpdateAnnotation)
		api.POST("/sessions/:id/annotations/:annotationId/toggle", annotationHandler.ToggleAnnotation)
		api.DELETE("/sessions/:id/annotations/:annotationId", annotationHandler.DeleteAnnotation)

		api.GET("/sessions/:id/export", exportHandler.Export)
		api.POST("/sessions/:id/share", exportHandler.Share)
	}
}
