package export

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/plsfixthx/annotator/internal/models"
)

func TestRasterRenderDimensions(t *testing.T) {
	st := DefaultStyle()
	e := NewRasterExporter(st, 1, 1)

	page := testPage(t, "a.png", 800, 600, note{100, 100, "Fix the button", false})
	img, err := e.Render(context.Background(), page)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b := img.Bounds()
	if want := 800 + 2*int(st.Margin); b.Dx() != want {
		t.Errorf("width = %d, want %d", b.Dx(), want)
	}
	if b.Dy() <= 600+2*int(st.Margin) {
		t.Errorf("height = %d, want room for the legend below the image", b.Dy())
	}

	// Narrow images still get a legend of readable width.
	small, err := e.Render(context.Background(), testPage(t, "b.png", 100, 50))
	if err != nil {
		t.Fatalf("Render small: %v", err)
	}
	if want := int(st.MinLegendWidth + 2*st.Margin); small.Bounds().Dx() != want {
		t.Errorf("small width = %d, want %d", small.Bounds().Dx(), want)
	}
}

func TestRasterScale(t *testing.T) {
	page := testPage(t, "a.png", 400, 300)
	one, err := NewRasterExporter(DefaultStyle(), 1, 1).Render(context.Background(), page)
	if err != nil {
		t.Fatal(err)
	}
	two, err := NewRasterExporter(DefaultStyle(), 2, 1).Render(context.Background(), page)
	if err != nil {
		t.Fatal(err)
	}
	if two.Bounds().Dx() != 2*one.Bounds().Dx() {
		t.Errorf("2x width = %d, want %d", two.Bounds().Dx(), 2*one.Bounds().Dx())
	}
}

func TestRasterMarkerColors(t *testing.T) {
	st := DefaultStyle()
	e := NewRasterExporter(st, 1, 1)
	page := testPage(t, "a.png", 800, 600,
		note{100, 100, "open", false},
		note{400, 300, "done", true},
	)
	img, err := e.Render(context.Background(), page)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	// Sample above the centre, clear of the glyph and inside the ring.
	sample := func(x, y float64) color.RGBA {
		cx := int(st.Margin + x)
		cy := int(st.Margin + y - 0.6*st.MarkerRadius)
		return img.RGBAAt(cx, cy)
	}
	if got := sample(100, 100); !closeTo(got, st.OpenColor, 8) {
		t.Errorf("open marker pixel = %v, want ~%v", got, st.OpenColor)
	}
	if got := sample(400, 300); !closeTo(got, st.CompletedColor, 8) {
		t.Errorf("completed marker pixel = %v, want ~%v", got, st.CompletedColor)
	}
	// Away from markers the screenshot shows through.
	if got := img.RGBAAt(int(st.Margin)+600, int(st.Margin)+100); !closeTo(got, gray, 2) {
		t.Errorf("image pixel = %v, want ~%v", got, gray)
	}
}

func TestRasterExportOrderAndNames(t *testing.T) {
	e := NewRasterExporter(DefaultStyle(), 1, 3)
	pages := []models.Page{
		testPage(t, "a.png", 500, 100),
		testPage(t, "b.png", 600, 100),
		testPage(t, "c.png", 700, 100),
	}
	files, err := e.Export(context.Background(), pages, "review")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("files = %d, want 3", len(files))
	}
	for i, f := range files {
		if want := []string{"review-1.png", "review-2.png", "review-3.png"}[i]; f.Name != want {
			t.Errorf("file %d name = %q, want %q", i, f.Name, want)
		}
		cfg, err := png.DecodeConfig(bytes.NewReader(f.Data))
		if err != nil {
			t.Fatalf("decode file %d: %v", i, err)
		}
		if want := 500 + 100*i + 48; cfg.Width != want {
			t.Errorf("file %d width = %d, want %d", i, cfg.Width, want)
		}
	}

	single, err := e.Export(context.Background(), pages[:1], "review")
	if err != nil || len(single) != 1 || single[0].Name != "review.png" {
		t.Errorf("single page export = %v, %v", single, err)
	}
}

func TestRasterExportAllOrNothing(t *testing.T) {
	e := NewRasterExporter(DefaultStyle(), 1, 2)
	bad := testPage(t, "bad.png", 200, 100)
	bad.Image.Data = []byte("not an image")
	pages := []models.Page{testPage(t, "a.png", 200, 100), bad, testPage(t, "c.png", 200, 100)}

	files, err := e.Export(context.Background(), pages, "x")
	if err == nil {
		t.Fatal("Export with a corrupt page succeeded")
	}
	if files != nil {
		t.Errorf("Export returned %d files on failure", len(files))
	}
	if !strings.Contains(err.Error(), "page 2") {
		t.Errorf("err = %v, want it to name page 2", err)
	}
}

func TestRasterExportEmpty(t *testing.T) {
	if _, err := NewRasterExporter(DefaultStyle(), 1, 1).Export(context.Background(), nil, "x"); err != ErrNoPages {
		t.Errorf("Export(nil) err = %v, want ErrNoPages", err)
	}
}

func TestRasterRefusesOversizedCanvas(t *testing.T) {
	e := NewRasterExporter(DefaultStyle(), 2, 1)
	page := testPage(t, "huge.png", 10, 10)
	page.Image.NaturalWidth, page.Image.NaturalHeight = 20000, 20000

	if _, err := e.Render(context.Background(), page); !errors.Is(err, ErrCanvasTooLarge) {
		t.Fatalf("Render err = %v, want ErrCanvasTooLarge", err)
	}

	e.MaxPixels = 1000
	if _, err := e.Render(context.Background(), testPage(t, "small.png", 200, 100)); !errors.Is(err, ErrCanvasTooLarge) {
		t.Errorf("Render with a 1000 pixel limit err = %v, want ErrCanvasTooLarge", err)
	}
	e.MaxPixels = 0
	if _, err := e.Render(context.Background(), testPage(t, "small.png", 200, 100)); err != nil {
		t.Errorf("Render without a limit: %v", err)
	}
}
