package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/plsfixthx/annotator/internal/geometry"
	"github.com/plsfixthx/annotator/internal/models"
)

const (
	pxToMM = 25.4 / 96
	pxToPt = 0.75
	ptToMM = 25.4 / 72
)

// DocumentExporter lays every page out on A4 sheets: the image at the top,
// scaled to fit, followed by the legend. Legend entries that do not fit on
// the current sheet move to a new one; images are never split.
type DocumentExporter struct {
	Style Style
	// MaxImageHeightRatio bounds the image height as a fraction of the sheet.
	MaxImageHeightRatio float64
	// Compress toggles stream compression in the output.
	Compress bool
}

func NewDocumentExporter(style Style) *DocumentExporter {
	return &DocumentExporter{Style: style, MaxImageHeightRatio: 0.6, Compress: true}
}

// PlacedImage records where an image landed.
type PlacedImage struct {
	Source  int // index into the exported pages
	DocPage int // 1-based sheet number
	X, Y    float64
	W, H    float64
	Markers []PlacedMarker
	// LegendSheet and LegendY locate the legend title.
	LegendSheet int
	LegendY     float64
}

// PlacedMarker is a marker centre in sheet millimetres.
type PlacedMarker struct {
	Number int
	X, Y   float64
}

// PlacedEntry records where a legend box landed.
type PlacedEntry struct {
	Source    int
	Number    int
	DocPage   int
	Y, H      float64
	Lines     int
	Continued bool
}

// DocumentPlan is the layout of a rendered document.
type DocumentPlan struct {
	Sheets         int
	PageW, PageH   float64 // sheet size in mm as reported by the writer
	Margin, Bottom float64 // content edge and lowest y a legend box may reach
	Images         []PlacedImage
	Entries        []PlacedEntry
}

// docMetrics are the style values converted to sheet units.
type docMetrics struct {
	margin, gap, pad, boxGap float64
	radius, ring             float64
	textPt, headerPt         float64
	titlePt, glyphPt         float64
	lineH, headerH, titleH   float64
	footerH                  float64
}

func (e *DocumentExporter) metrics() docMetrics {
	st := e.Style
	m := docMetrics{
		margin:   15,
		gap:      st.SectionGap * pxToMM,
		pad:      st.BoxPadding * pxToMM,
		boxGap:   st.BoxGap * pxToMM,
		radius:   st.MarkerRadius * pxToMM,
		ring:     st.MarkerRing * pxToMM,
		textPt:   st.FontSize * pxToPt,
		headerPt: st.HeaderSize * pxToPt,
		titlePt:  st.TitleSize * pxToPt,
		glyphPt:  st.MarkerRadius * pxToPt,
	}
	m.lineH = m.textPt * ptToMM * st.LineHeight
	m.headerH = m.headerPt * ptToMM * st.LineHeight
	m.titleH = m.titlePt * ptToMM * st.LineHeight
	m.footerH = 8
	return m
}

// Export renders all pages into one PDF named base.pdf.
func (e *DocumentExporter) Export(ctx context.Context, pages []models.Page, base string) (File, error) {
	data, _, err := e.render(ctx, pages)
	if err != nil {
		return File{}, err
	}
	return File{Name: FileName(base, "pdf", 1, 1), ContentType: FormatPDF.ContentType(), Data: data}, nil
}

// Plan renders the document and returns its layout.
func (e *DocumentExporter) Plan(ctx context.Context, pages []models.Page) (DocumentPlan, error) {
	_, plan, err := e.render(ctx, pages)
	return plan, err
}

func (e *DocumentExporter) render(ctx context.Context, pages []models.Page) ([]byte, DocumentPlan, error) {
	var plan DocumentPlan
	if len(pages) == 0 {
		return nil, plan, ErrNoPages
	}
	st := e.Style
	m := e.metrics()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(e.Compress)
	pdf.SetAutoPageBreak(false, m.margin)
	pdf.SetMargins(m.margin, m.margin, m.margin)
	pdf.SetTitle(st.Title+" annotations", true)
	pdf.SetCreator(st.Title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	contentW := pageW - 2*m.margin
	bottom := pageH - m.margin - m.footerH
	plan.PageW, plan.PageH = pageW, pageH
	plan.Margin, plan.Bottom = m.margin, bottom
	// The legend title never sits alone at the foot of a sheet.
	minEntryH := 2*m.pad + math.Max(m.headerH+m.lineH, 2*m.radius)

	pdf.SetFooterFunc(func() {
		pdf.SetFont("Helvetica", "", m.textPt-2)
		setText(pdf, st.MutedColor)
		pdf.Text(m.margin, pageH-m.margin, tr(fmt.Sprintf("Page %d", pdf.PageNo())))
		if st.Watermark != "" {
			w := tr(st.Watermark)
			pdf.Text(pageW-m.margin-pdf.GetStringWidth(w), pageH-m.margin, w)
		}
	})

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, plan, err
		}
		pdf.AddPage()
		y := m.margin

		pdf.SetFont("Helvetica", "B", m.titlePt)
		setText(pdf, st.TextColor)
		heading := fmt.Sprintf("%s  -  %d / %d", st.Title, i+1, len(pages))
		if page.Image.Filename != "" {
			heading += "  -  " + page.Image.Filename
		}
		pdf.Text(m.margin, y+m.titlePt*ptToMM, tr(heading))
		y += m.titleH + m.gap/2

		placed, err := e.placeImage(pdf, page, i, contentW, pageH, y, m)
		if err != nil {
			return nil, plan, err
		}
		placed.DocPage = pdf.PageNo()
		plan.Images = append(plan.Images, placed)
		y += placed.H + m.gap

		entries := Legend(page)
		pdf.SetFont("Helvetica", "B", m.titlePt)
		setText(pdf, st.TextColor)
		title := "Notes"
		if len(entries) == 0 {
			title = "No notes"
		}
		need := m.titleH
		if len(entries) > 0 {
			need += minEntryH
		}
		if y+need > bottom {
			pdf.AddPage()
			y = m.margin
		}
		pdf.Text(m.margin, y+m.titlePt*ptToMM, title)
		plan.Images[len(plan.Images)-1].LegendSheet = pdf.PageNo()
		plan.Images[len(plan.Images)-1].LegendY = y
		y += m.titleH

		textIndent := 2*m.radius + m.pad
		textW := contentW - textIndent - 2*m.pad
		pdf.SetFont("Helvetica", "", m.textPt)
		measure := func(s string) float64 { return pdf.GetStringWidth(tr(s)) }

		for _, entry := range entries {
			lines := Wrap(entry.Note, textW, measure)
			continued := false
			for len(lines) > 0 {
				avail := bottom - y - 2*m.pad - m.headerH
				fit := int(math.Floor(avail/m.lineH + 1e-9))
				whole := len(lines)
				boxH := 2*m.pad + m.headerH + float64(whole)*m.lineH
				if y+boxH > bottom {
					// Move the entry to a fresh sheet unless it already starts
					// one, in which case split it across sheets.
					if y > m.margin+1e-9 {
						pdf.AddPage()
						y = m.margin
						continue
					}
					whole = fit
					if whole < 1 {
						whole = 1
					}
					boxH = 2*m.pad + m.headerH + float64(whole)*m.lineH
				}
				boxH = math.Max(boxH, 2*m.pad+2*m.radius)
				e.drawEntry(pdf, tr, entry, lines[:whole], continued, m.margin, y, contentW, boxH, m)
				plan.Entries = append(plan.Entries, PlacedEntry{
					Source:    i,
					Number:    entry.Number,
					DocPage:   pdf.PageNo(),
					Y:         y,
					H:         boxH,
					Lines:     whole,
					Continued: continued,
				})
				lines = lines[whole:]
				continued = true
				y += boxH + m.boxGap
				if len(lines) > 0 {
					pdf.AddPage()
					y = m.margin
				}
			}
		}
		if pdf.Err() {
			return nil, plan, fmt.Errorf("layout page %d: %w", i+1, pdf.Error())
		}
	}
	plan.Sheets = pdf.PageNo()

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, plan, fmt.Errorf("assemble pdf: %w", err)
	}
	return out.Bytes(), plan, nil
}

func (e *DocumentExporter) placeImage(pdf *gofpdf.Fpdf, page models.Page, idx int, contentW, pageH, y float64, m docMetrics) (PlacedImage, error) {
	st := e.Style
	data, imgType, err := pdfImageData(page.Image)
	if err != nil {
		return PlacedImage{}, fmt.Errorf("page %d: %w", idx+1, err)
	}
	name := page.Image.ID.String()
	opt := gofpdf.ImageOptions{ImageType: imgType}
	pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(data))
	if pdf.Err() {
		return PlacedImage{}, fmt.Errorf("page %d: embed image: %w", idx+1, pdf.Error())
	}

	natW := float64(page.Image.NaturalWidth) * pxToMM
	natH := float64(page.Image.NaturalHeight) * pxToMM
	maxH := pageH * e.MaxImageHeightRatio
	w, h := natW, natH
	if w > contentW || h > maxH {
		w, h = geometry.FitWithin(natW, natH, contentW, maxH)
	}
	x := m.margin + (contentW-w)/2
	pdf.ImageOptions(name, x, y, w, h, false, opt, 0, "")

	placed := PlacedImage{Source: idx, X: x, Y: y, W: w, H: h}
	for _, entry := range Legend(page) {
		cx := x + entry.XPct/100*w
		cy := y + entry.YPct/100*h
		drawPDFMarker(pdf, st, m, cx, cy, entry)
		placed.Markers = append(placed.Markers, PlacedMarker{Number: entry.Number, X: cx, Y: cy})
	}
	return placed, nil
}

func (e *DocumentExporter) drawEntry(pdf *gofpdf.Fpdf, tr func(string) string, entry LegendEntry, lines []string, continued bool, x, y, w, h float64, m docMetrics) {
	st := e.Style
	setFill(pdf, st.BoxFill)
	setDraw(pdf, st.BoxBorder)
	pdf.SetLineWidth(0.2)
	pdf.Rect(x, y, w, h, "FD")

	drawPDFMarker(pdf, st, m, x+m.pad+m.radius, y+m.pad+m.radius, entry)

	tx := x + m.pad + 2*m.radius + m.pad
	header := entry.Header()
	if continued {
		header += " (continued)"
	}
	pdf.SetFont("Helvetica", "B", m.headerPt)
	setText(pdf, st.MarkerColor(entry.Completed))
	pdf.Text(tx, y+m.pad+m.headerPt*ptToMM*0.8, tr(header))

	pdf.SetFont("Helvetica", "", m.textPt)
	setText(pdf, st.TextColor)
	ty := y + m.pad + m.headerH
	for _, line := range lines {
		pdf.Text(tx, ty+m.textPt*ptToMM*0.8, tr(line))
		ty += m.lineH
	}
}

func drawPDFMarker(pdf *gofpdf.Fpdf, st Style, m docMetrics, cx, cy float64, entry LegendEntry) {
	setFill(pdf, st.MarkerColor(entry.Completed))
	setDraw(pdf, st.GlyphColor)
	pdf.SetLineWidth(m.ring)
	pdf.Circle(cx, cy, m.radius-m.ring/2, "FD")

	if entry.Completed {
		pts := checkmark(cx, cy, m.radius)
		pdf.SetLineWidth(m.radius * 0.18)
		pdf.SetLineCapStyle("round")
		pdf.SetLineJoinStyle("round")
		for i := 0; i+1 < len(pts); i++ {
			pdf.Line(pts[i].x, pts[i].y, pts[i+1].x, pts[i+1].y)
		}
		pdf.SetLineCapStyle("butt")
		pdf.SetLineJoinStyle("miter")
		return
	}
	pdf.SetFont("Helvetica", "B", m.glyphPt)
	setText(pdf, st.GlyphColor)
	label := entry.Glyph()
	capHeight := m.glyphPt * ptToMM * 0.72
	pdf.Text(cx-pdf.GetStringWidth(label)/2, cy+capHeight/2, label)
}

// pdfImageData returns bytes gofpdf can embed. Formats it cannot read,
// including 16-bit and interlaced PNGs, are transcoded to 8-bit PNG.
func pdfImageData(img models.Image) ([]byte, string, error) {
	switch strings.ToLower(img.MimeType) {
	case "image/png":
		if pngEmbeddable(img.Data) {
			return img.Data, "PNG", nil
		}
	case "image/jpeg", "image/jpg":
		return img.Data, "JPG", nil
	case "image/gif":
		return img.Data, "GIF", nil
	}
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", img.Filename, err)
	}
	// Redraw into 8 bits per channel; encoding a 16-bit image as is would
	// produce another 16-bit PNG.
	flat := image.NewNRGBA(decoded.Bounds())
	draw.Draw(flat, flat.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return nil, "", fmt.Errorf("transcode %s: %w", img.Filename, err)
	}
	return buf.Bytes(), "PNG", nil
}

// pngEmbeddable reports whether gofpdf can read the PNG as is: at most 8
// bits per channel and no interlacing. The IHDR chunk always comes first.
func pngEmbeddable(data []byte) bool {
	const (
		bitDepthOffset  = 24
		interlaceOffset = 28
	)
	if len(data) <= interlaceOffset || string(data[12:16]) != "IHDR" {
		return true // let the embedder report malformed data
	}
	return data[bitDepthOffset] <= 8 && data[interlaceOffset] == 0
}
