package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/plsfixthx/annotator/internal/export"
)

func newTestExportService() *ExportService {
	return NewExportServiceWithStyle(export.DefaultStyle(), 1, 2)
}

func TestExportEmptySession(t *testing.T) {
	s := newTestExportService()
	for _, f := range []export.Format{export.FormatPNG, export.FormatPDF, export.FormatHTML} {
		if _, err := s.Export(context.Background(), NewAnnotationStore(), f, "x", ExportOptions{}); !errors.Is(err, ErrNothingToExport) {
			t.Errorf("%s export of empty session err = %v, want ErrNothingToExport", f, err)
		}
	}
}

// One 800x600 image with a note near the top left and one near the bottom
// right, the second one completed.
func TestExportScenario(t *testing.T) {
	store := NewAnnotationStore()
	img, err := newTestImageService(0).Ingest(store, "page.png", encodePNG(t, 800, 600))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Create(img.ID, 100, 100, "Fix the button"); err != nil {
		t.Fatal(err)
	}
	second, _, err := store.Create(img.ID, 700, 500, "Wrong colour")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.ToggleCompleted(second.ID); err != nil {
		t.Fatal(err)
	}

	s := newTestExportService()
	ctx := context.Background()

	html, err := s.Export(ctx, store, export.FormatHTML, "review", ExportOptions{})
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	doc := string(html[0].Data)
	for _, want := range []string{"left: 12.50%; top: 16.67%;", "left: 87.50%; top: 83.33%;", "Fix the button", "Wrong colour"} {
		if !strings.Contains(doc, want) {
			t.Errorf("html missing %q", want)
		}
	}

	pdf, err := s.Export(ctx, store, export.FormatPDF, "review", ExportOptions{})
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if len(pdf) != 1 || pdf[0].Name != "review.pdf" || !bytes.HasPrefix(pdf[0].Data, []byte("%PDF")) {
		t.Errorf("pdf = %d files, first %q", len(pdf), pdf[0].Name)
	}

	png, err := s.Export(ctx, store, export.FormatPNG, "review", ExportOptions{})
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if len(png) != 1 || png[0].Name != "review.png" {
		t.Errorf("png files = %v", names(png))
	}
}

// Annotating the last image first must not reorder the document.
func TestDocumentFollowsImageOrder(t *testing.T) {
	store := NewAnnotationStore()
	images := newTestImageService(0)
	var ids []uuid.UUID
	for _, name := range []string{"A.png", "B.png", "C.png"} {
		img, err := images.Ingest(store, name, encodePNG(t, 400, 300))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, img.ID)
	}
	for _, step := range []struct {
		image int
		note  string
	}{{2, "on C"}, {0, "on A"}, {2, "second on C"}} {
		if _, _, err := store.Create(ids[step.image], 50, 50, step.note); err != nil {
			t.Fatal(err)
		}
	}

	pages := store.Snapshot()
	var order []string
	for _, p := range pages {
		order = append(order, p.Image.Filename)
	}
	if diff := cmp.Diff([]string{"A.png", "B.png", "C.png"}, order); diff != "" {
		t.Fatalf("snapshot order mismatch (-want +got):\n%s", diff)
	}

	plan, err := export.NewDocumentExporter(export.DefaultStyle()).Plan(context.Background(), pages)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for i, img := range plan.Images {
		if img.Source != i {
			t.Errorf("image %d placed from source %d", i, img.Source)
		}
		if i > 0 && img.DocPage <= plan.Images[i-1].DocPage {
			t.Errorf("image %d on sheet %d, not after sheet %d", i, img.DocPage, plan.Images[i-1].DocPage)
		}
	}
	type entry struct{ Source, Number int }
	var got []entry
	for _, e := range plan.Entries {
		got = append(got, entry{e.Source, e.Number})
	}
	want := []entry{{0, 1}, {2, 1}, {2, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("legend entries mismatch (-want +got):\n%s", diff)
	}
}

func TestExportPNGPageSelection(t *testing.T) {
	store := NewAnnotationStore()
	is := newTestImageService(0)
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		if _, err := is.Ingest(store, name, encodePNG(t, 40, 30)); err != nil {
			t.Fatal(err)
		}
	}
	s := newTestExportService()

	all, err := s.Export(context.Background(), store, export.FormatPNG, "shots", ExportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"shots-1.png", "shots-2.png", "shots-3.png"}, names(all)); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}

	one, err := s.Export(context.Background(), store, export.FormatPNG, "shots", ExportOptions{Page: 2})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"shots-2.png"}, names(one)); diff != "" {
		t.Errorf("page 2 names (-want +got):\n%s", diff)
	}

	if _, err := s.Export(context.Background(), store, export.FormatPNG, "shots", ExportOptions{Page: 4}); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("page 4 err = %v, want ErrPageOutOfRange", err)
	}

	bundle, err := Bundle(all, "shots")
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(bundle.Data), int64(len(bundle.Data)))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	var inZip []string
	for _, f := range zr.File {
		inZip = append(inZip, f.Name)
	}
	if diff := cmp.Diff(names(all), inZip); diff != "" {
		t.Errorf("zip entries (-want +got):\n%s", diff)
	}
	if bundle.Name != "shots.zip" {
		t.Errorf("bundle name = %q", bundle.Name)
	}
}

func TestClipboard(t *testing.T) {
	store := NewAnnotationStore()
	img, err := newTestImageService(0).Ingest(store, "shot.png", encodePNG(t, 40, 30))
	if err != nil {
		t.Fatal(err)
	}
	f, err := newTestExportService().Clipboard(context.Background(), store, img.ID)
	if err != nil {
		t.Fatalf("Clipboard: %v", err)
	}
	if f.Name != "shot.png" || f.ContentType != "image/png" {
		t.Errorf("clipboard file = %q %q", f.Name, f.ContentType)
	}
	if _, err := newTestExportService().Clipboard(context.Background(), store, uuid.New()); !errors.Is(err, ErrImageNotFound) {
		t.Errorf("unknown image err = %v", err)
	}
}

func names(files []export.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}
