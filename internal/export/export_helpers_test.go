package export

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/plsfixthx/annotator/internal/models"
)

var gray = color.RGBA{200, 200, 200, 255}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(gray), image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

type note struct {
	x, y float64
	text string
	done bool
}

func testPage(t *testing.T, name string, w, h int, notes ...note) models.Page {
	t.Helper()
	img := models.Image{
		ID:            uuid.New(),
		Filename:      name,
		MimeType:      "image/png",
		Data:          pngBytes(t, w, h),
		NaturalWidth:  w,
		NaturalHeight: h,
		CreatedAt:     time.Now(),
	}
	img.SizeBytes = int64(len(img.Data))
	page := models.Page{Image: img}
	for _, n := range notes {
		page.Annotations = append(page.Annotations, models.Annotation{
			ID:        uuid.New(),
			ImageID:   img.ID,
			X:         n.x,
			Y:         n.y,
			Note:      n.text,
			Completed: n.done,
		})
	}
	return page
}

func closeTo(a, b color.RGBA, tol int) bool {
	d := func(x, y uint8) bool {
		v := int(x) - int(y)
		return v <= tol && v >= -tol
	}
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B)
}
