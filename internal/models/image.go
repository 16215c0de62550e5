package models

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// Image is an uploaded or pasted screenshot held in a session.
// NaturalWidth and NaturalHeight are the coordinate space for every
// annotation placed on it.
type Image struct {
	ID            uuid.UUID `json:"id"`
	Filename      string    `json:"filename"`
	MimeType      string    `json:"mime_type"`
	Data          []byte    `json:"-"`
	NaturalWidth  int       `json:"natural_width"`
	NaturalHeight int       `json:"natural_height"`
	SizeBytes     int64     `json:"size_bytes"`
	CreatedAt     time.Time `json:"created_at"`
}

// DataURI returns the image inlined as a data: URI.
func (i *Image) DataURI() string {
	return "data:" + i.MimeType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Loaded reports whether natural dimensions are known.
func (i *Image) Loaded() bool {
	return i.NaturalWidth > 0 && i.NaturalHeight > 0
}
