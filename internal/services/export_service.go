package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/plsfixthx/annotator/internal/config"
	"github.com/plsfixthx/annotator/internal/export"
	"github.com/plsfixthx/annotator/internal/models"
)

var (
	// ErrNothingToExport is returned for a session without images; clients
	// disable their export actions in that state.
	ErrNothingToExport = errors.New("nothing to export")
	ErrPageOutOfRange  = errors.New("page out of range")
)

// ExportOptions narrows an export.
type ExportOptions struct {
	// Page selects a single 1-based page for PNG exports; 0 exports all.
	Page int
}

// ExportService produces the three export formats from a session snapshot.
type ExportService struct {
	raster      *export.RasterExporter
	document    *export.DocumentExporter
	interactive *export.InteractiveExporter
}

func NewExportService(cfg *config.Config) *ExportService {
	s := NewExportServiceWithStyle(StyleFromConfig(cfg), cfg.ExportScale, cfg.ExportWorkers)
	s.raster.MaxPixels = cfg.ExportMaxPixels
	return s
}

func NewExportServiceWithStyle(style export.Style, scale float64, workers int) *ExportService {
	return &ExportService{
		raster:      export.NewRasterExporter(style, scale, workers),
		document:    export.NewDocumentExporter(style),
		interactive: export.NewInteractiveExporter(style),
	}
}

// StyleFromConfig applies the configured title and watermark to the
// default style.
func StyleFromConfig(cfg *config.Config) export.Style {
	st := export.DefaultStyle()
	if cfg.ExportTitle != "" {
		st.Title = cfg.ExportTitle
	}
	st.Watermark = cfg.ExportWatermark
	return st
}

// Export renders the store's current content. The snapshot is taken once,
// so edits made while rendering do not tear the output.
func (s *ExportService) Export(ctx context.Context, store *AnnotationStore, format export.Format, base string, opts ExportOptions) ([]export.File, error) {
	pages := store.Snapshot()
	return s.ExportPages(ctx, pages, format, base, opts)
}

// ExportPages renders pages in the given format.
func (s *ExportService) ExportPages(ctx context.Context, pages []models.Page, format export.Format, base string, opts ExportOptions) ([]export.File, error) {
	if len(pages) == 0 {
		return nil, ErrNothingToExport
	}
	start := time.Now()
	var (
		files []export.File
		err   error
	)
	switch format {
	case export.FormatPNG:
		files, err = s.exportPNG(ctx, pages, base, opts.Page)
	case export.FormatPDF:
		var f export.File
		f, err = s.document.Export(ctx, pages, base)
		files = []export.File{f}
	case export.FormatHTML:
		var f export.File
		f, err = s.interactive.Export(ctx, pages, base)
		files = []export.File{f}
	default:
		return nil, fmt.Errorf("%w: %q", export.ErrUnknownFormat, format)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("[export] %s export cancelled", format)
		} else {
			log.Printf("[export] %s export failed: %v", format, err)
		}
		return nil, err
	}
	log.Printf("[export] %s: %d page(s) in %s", format, len(pages), time.Since(start).Round(time.Millisecond))
	return files, nil
}

func (s *ExportService) exportPNG(ctx context.Context, pages []models.Page, base string, page int) ([]export.File, error) {
	if page == 0 {
		return s.raster.Export(ctx, pages, base)
	}
	if page < 1 || page > len(pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, len(pages))
	}
	data, err := s.raster.RenderPNG(ctx, pages[page-1])
	if err != nil {
		return nil, err
	}
	return []export.File{{
		Name:        export.FileName(base, "png", page, len(pages)),
		ContentType: export.FormatPNG.ContentType(),
		Data:        data,
	}}, nil
}

// Clipboard renders the flattened PNG of one image for copying.
func (s *ExportService) Clipboard(ctx context.Context, store *AnnotationStore, imageID uuid.UUID) (export.File, error) {
	for i, page := range store.Snapshot() {
		if page.Image.ID != imageID {
			continue
		}
		data, err := s.raster.RenderPNG(ctx, page)
		if err != nil {
			return export.File{}, err
		}
		log.Printf("[export] clipboard image %d rendered", i+1)
		return export.File{
			Name:        export.FileName(page.Image.Filename, "png", 1, 1),
			ContentType: export.FormatPNG.ContentType(),
			Data:        data,
		}, nil
	}
	return export.File{}, ErrImageNotFound
}

// Bundle packs several export files into a single zip archive.
func Bundle(files []export.File, base string) (export.File, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return export.File{}, fmt.Errorf("zip %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return export.File{}, fmt.Errorf("zip %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return export.File{}, fmt.Errorf("zip: %w", err)
	}
	return export.File{
		Name:        export.FileName(base, "zip", 1, 1),
		ContentType: "application/zip",
		Data:        buf.Bytes(),
	}, nil
}
