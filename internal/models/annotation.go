package models

import (
	"time"

	"github.com/google/uuid"
)

// Annotation is a numbered pin on an image. X and Y are natural-image pixels.
type Annotation struct {
	ID        uuid.UUID `json:"id"`
	ImageID   uuid.UUID `json:"image_id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Note      string    `json:"note"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is an export snapshot of one image and its annotations in
// insertion order.
type Page struct {
	Image       Image
	Annotations []Annotation
}
