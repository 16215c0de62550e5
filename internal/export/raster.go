package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	"github.com/plsfixthx/annotator/internal/models"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	_ "golang.org/x/image/webp"
)

// RasterExporter flattens each page into a PNG: the image with burned-in
// markers, followed by the legend.
type RasterExporter struct {
	Style Style
	// Scale is the device pixel ratio of the output.
	Scale float64
	// Workers bounds how many pages render at once.
	Workers int
	// MaxPixels bounds the canvas size in output pixels; 0 means no limit.
	MaxPixels int
}

// DefaultMaxPixels keeps one canvas around 600 MB of RGBA.
const DefaultMaxPixels = 150_000_000

var ErrCanvasTooLarge = errors.New("export canvas too large")

func NewRasterExporter(style Style, scale float64, workers int) *RasterExporter {
	if scale <= 0 {
		scale = 2
	}
	if workers <= 0 {
		workers = 1
	}
	return &RasterExporter{Style: style, Scale: scale, Workers: workers, MaxPixels: DefaultMaxPixels}
}

// rasterLayout is the measured layout of one page in display pixels.
type rasterLayout struct {
	width, height  float64
	contentWidth   float64
	imageTop       float64
	legendTop      float64
	textIndent     float64
	entries        []LegendEntry
	lines          [][]string
	boxHeights     []float64
	titleHeight    float64
	headerHeight   float64
	lineHeight     float64
	footerBaseline float64
}

func (e *RasterExporter) layout(page models.Page, faces *faceSet) rasterLayout {
	st := e.Style
	s := e.Scale
	measure := func(text string) float64 {
		return float64(font.MeasureString(faces.text, text)) / 64 / s
	}

	l := rasterLayout{
		contentWidth: math.Max(float64(page.Image.NaturalWidth), st.MinLegendWidth),
		imageTop:     st.Margin,
		textIndent:   2*st.MarkerRadius + st.BoxPadding,
		entries:      Legend(page),
		titleHeight:  st.TitleSize * st.LineHeight,
		headerHeight: st.HeaderSize * st.LineHeight,
		lineHeight:   st.FontSize * st.LineHeight,
	}
	l.width = l.contentWidth + 2*st.Margin
	l.legendTop = l.imageTop + float64(page.Image.NaturalHeight) + st.SectionGap

	textWidth := l.contentWidth - l.textIndent - 2*st.BoxPadding
	y := l.legendTop + l.titleHeight
	for i, entry := range l.entries {
		lines := Wrap(entry.Note, textWidth, measure)
		h := 2*st.BoxPadding + l.headerHeight + float64(len(lines))*l.lineHeight
		h = math.Max(h, 2*st.BoxPadding+2*st.MarkerRadius)
		l.lines = append(l.lines, lines)
		l.boxHeights = append(l.boxHeights, h)
		y += h
		if i < len(l.entries)-1 {
			y += st.BoxGap
		}
	}
	if st.Watermark != "" {
		y += st.SectionGap
		l.footerBaseline = y + st.FontSize
		y += l.lineHeight
	}
	l.height = y + st.Margin
	return l
}

// Render draws one page. It fails if the image data cannot be decoded.
func (e *RasterExporter) Render(ctx context.Context, page models.Page) (*image.RGBA, error) {
	if !page.Image.Loaded() {
		return nil, fmt.Errorf("render %s: image has no natural dimensions", page.Image.ID)
	}
	faces, err := newFaceSet(e.Style, e.Scale)
	if err != nil {
		return nil, err
	}
	defer faces.Close()

	st := e.Style
	s := e.Scale
	px := func(v float64) int { return int(math.Round(v * s)) }
	l := e.layout(page, faces)

	// The canvas is at least as large as the decoded source, so one check
	// covers both allocations.
	if w, h := int64(px(l.width)), int64(px(l.height)); e.MaxPixels > 0 && w*h > int64(e.MaxPixels) {
		return nil, fmt.Errorf("%w: %s needs %dx%d pixels (max: %d)", ErrCanvasTooLarge, page.Image.Filename, w, h, e.MaxPixels)
	}
	src, _, err := image.Decode(bytes.NewReader(page.Image.Data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", page.Image.Filename, err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, px(l.width), px(l.height)))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(st.Background), image.Point{}, draw.Src)

	natW := float64(page.Image.NaturalWidth)
	natH := float64(page.Image.NaturalHeight)
	imgRect := image.Rect(px(st.Margin), px(l.imageTop), px(st.Margin+natW), px(l.imageTop+natH))
	if imgRect.Dx() == src.Bounds().Dx() && imgRect.Dy() == src.Bounds().Dy() {
		draw.Draw(canvas, imgRect, src, src.Bounds().Min, draw.Over)
	} else {
		xdraw.CatmullRom.Scale(canvas, imgRect, src, src.Bounds(), xdraw.Over, nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, entry := range l.entries {
		cx := st.Margin + entry.XPct/100*natW
		cy := l.imageTop + entry.YPct/100*natH
		drawMarker(canvas, cx*s, cy*s, st.MarkerRadius*s, st.MarkerRing*s,
			st.MarkerColor(entry.Completed), st.GlyphColor, faces.glyph, entry.Glyph(), entry.Completed)
	}

	title := "Notes"
	if len(l.entries) == 0 {
		title = "No notes"
	}
	drawText(canvas, faces.title, st.TextColor, st.Margin*s, (l.legendTop+st.TitleSize)*s, title)

	y := l.legendTop + l.titleHeight
	for i, entry := range l.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := l.boxHeights[i]
		box := image.Rect(px(st.Margin), px(y), px(st.Margin+l.contentWidth), px(y+h))
		fillRect(canvas, box, st.BoxFill)
		strokeRect(canvas, box, px(1), st.BoxBorder)

		bx := st.Margin + st.BoxPadding + st.MarkerRadius
		by := y + st.BoxPadding + st.MarkerRadius
		drawMarker(canvas, bx*s, by*s, st.MarkerRadius*s, st.MarkerRing*s,
			st.MarkerColor(entry.Completed), st.GlyphColor, faces.glyph, entry.Glyph(), entry.Completed)

		tx := st.Margin + st.BoxPadding + l.textIndent
		ty := y + st.BoxPadding + st.HeaderSize
		headerColor := st.MarkerColor(entry.Completed)
		drawText(canvas, faces.header, headerColor, tx*s, ty*s, entry.Header())
		ty = y + st.BoxPadding + l.headerHeight
		for _, line := range l.lines[i] {
			drawText(canvas, faces.text, st.TextColor, tx*s, (ty+st.FontSize)*s, line)
			ty += l.lineHeight
		}
		y += h + st.BoxGap
	}

	if st.Watermark != "" {
		w := float64(font.MeasureString(faces.small, st.Watermark)) / 64
		drawText(canvas, faces.small, st.MutedColor, (st.Margin+l.contentWidth)*s-w, l.footerBaseline*s, st.Watermark)
	}
	return canvas, nil
}

// RenderPNG renders one page and encodes it.
func (e *RasterExporter) RenderPNG(ctx context.Context, page models.Page) ([]byte, error) {
	img, err := e.Render(ctx, page)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Export renders one PNG per page. Pages render concurrently up to Workers
// but files are returned in page order, and nothing is returned unless every
// page succeeded.
func (e *RasterExporter) Export(ctx context.Context, pages []models.Page, base string) ([]File, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	results := make([]result, len(pages))

	sem := make(chan struct{}, e.Workers)
	done := make(chan int, len(pages))
	for i := range pages {
		go func(idx int) {
			defer func() { done <- idx }()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[idx] = result{err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			data, err := e.RenderPNG(ctx, pages[idx])
			if err != nil {
				cancel()
			}
			results[idx] = result{data: data, err: err}
		}(i)
	}
	for range pages {
		<-done
	}

	// Report the page that failed, not the siblings it cancelled.
	var firstErr error
	for i, r := range results {
		if r.err != nil && (firstErr == nil || errors.Is(firstErr, context.Canceled)) {
			firstErr = fmt.Errorf("page %d: %w", i+1, r.err)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	files := make([]File, len(pages))
	for i, r := range results {
		files[i] = File{
			Name:        FileName(base, "png", i+1, len(pages)),
			ContentType: FormatPNG.ContentType(),
			Data:        r.data,
		}
	}
	return files, nil
}
