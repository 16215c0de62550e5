// Package export renders annotation sessions as flattened PNG pages, a
// paginated PDF document or a standalone interactive HTML file. All three
// share the styling and legend layout defined here.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"regexp"
	"strings"

	"github.com/plsfixthx/annotator/internal/geometry"
	"github.com/plsfixthx/annotator/internal/models"
)

var (
	ErrNoPages       = errors.New("nothing to export")
	ErrUnknownFormat = errors.New("unknown export format")
)

// Format of an export.
type Format string

const (
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPNG, FormatPDF, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// File is a finished export artifact.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Style holds the visual constants shared by every exporter. Sizes are in
// display pixels; the PDF exporter converts them to millimetres.
type Style struct {
	Title string

	OpenColor      color.RGBA
	CompletedColor color.RGBA
	GlyphColor     color.RGBA
	TextColor      color.RGBA
	MutedColor     color.RGBA
	BoxFill        color.RGBA
	BoxBorder      color.RGBA
	Background     color.RGBA

	MarkerRadius   float64
	MarkerRing     float64
	Margin         float64
	MinLegendWidth float64
	SectionGap     float64
	BoxPadding     float64
	BoxGap         float64
	FontSize       float64
	HeaderSize     float64
	TitleSize      float64
	LineHeight     float64

	// Watermark, when set, is printed in the footer of every page.
	Watermark string
}

func DefaultStyle() Style {
	return Style{
		Title:          "PLSFIX-THX",
		OpenColor:      color.RGBA{0x3b, 0x82, 0xf6, 0xff},
		CompletedColor: color.RGBA{0x22, 0xc5, 0x5e, 0xff},
		GlyphColor:     color.RGBA{0xff, 0xff, 0xff, 0xff},
		TextColor:      color.RGBA{0x1e, 0x29, 0x3b, 0xff},
		MutedColor:     color.RGBA{0x64, 0x74, 0x8b, 0xff},
		BoxFill:        color.RGBA{0xf1, 0xf5, 0xf9, 0xff},
		BoxBorder:      color.RGBA{0xcb, 0xd5, 0xe1, 0xff},
		Background:     color.RGBA{0xff, 0xff, 0xff, 0xff},
		MarkerRadius:   12,
		MarkerRing:     2,
		Margin:         24,
		MinLegendWidth: 480,
		SectionGap:     20,
		BoxPadding:     10,
		BoxGap:         8,
		FontSize:       14,
		HeaderSize:     13,
		TitleSize:      18,
		LineHeight:     1.4,
	}
}

// MarkerColor returns the fill for an annotation marker.
func (s Style) MarkerColor(completed bool) color.RGBA {
	if completed {
		return s.CompletedColor
	}
	return s.OpenColor
}

// Hex formats c as a CSS colour.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// LegendEntry is one line item of the legend below an image.
type LegendEntry struct {
	Number    int
	Completed bool
	Status    string
	Note      string
	// XPct and YPct place the marker relative to the image.
	XPct, YPct float64
}

// Header is the bold first line of a legend box.
func (e LegendEntry) Header() string {
	return fmt.Sprintf("#%d  %s", e.Number, e.Status)
}

// Glyph is the text drawn inside a marker; completed markers draw a
// checkmark instead.
func (e LegendEntry) Glyph() string {
	return fmt.Sprintf("%d", e.Number)
}

// Legend numbers the annotations of a page by insertion order. Numbers do
// not depend on position, so every export of the same session agrees.
func Legend(page models.Page) []LegendEntry {
	entries := make([]LegendEntry, len(page.Annotations))
	for i, a := range page.Annotations {
		status := "Open"
		if a.Completed {
			status = "Completed"
		}
		xPct, yPct := percentOf(a, page.Image)
		entries[i] = LegendEntry{
			Number:    i + 1,
			Completed: a.Completed,
			Status:    status,
			Note:      a.Note,
			XPct:      xPct,
			YPct:      yPct,
		}
	}
	return entries
}

// Wrap breaks text into lines no wider than maxWidth using greedy word
// wrapping. Explicit newlines start a new line; a single word wider than
// maxWidth is split by runes.
func Wrap(text string, maxWidth float64, measure func(string) float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, w := range words {
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if measure(candidate) <= maxWidth {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			for _, chunk := range splitWord(w, maxWidth, measure) {
				if line != "" {
					lines = append(lines, line)
				}
				line = chunk
			}
		}
		lines = append(lines, line)
	}
	// Trailing blank lines add nothing but height.
	for len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func splitWord(w string, maxWidth float64, measure func(string) float64) []string {
	if measure(w) <= maxWidth {
		return []string{w}
	}
	var out []string
	cur := []rune{}
	for _, r := range w {
		next := append(cur, r)
		if len(cur) > 0 && measure(string(next)) > maxWidth {
			out = append(out, string(cur))
			next = []rune{r}
		}
		cur = next
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)

// FileName builds the download name for page (1-based) of total pages. The
// page suffix is only added when there is more than one page.
func FileName(base string, ext string, page, total int) string {
	base = strings.TrimSpace(unsafeName.ReplaceAllString(base, "_"))
	base = strings.TrimSuffix(base, "."+ext)
	if base == "" || strings.Trim(base, ".") == "" {
		base = "annotation-export"
	}
	if total > 1 {
		return fmt.Sprintf("%s-%d.%s", base, page, ext)
	}
	return base + "." + ext
}

func percentOf(a models.Annotation, img models.Image) (float64, float64) {
	return geometry.ToPercent(a.X, a.Y, img.NaturalWidth, img.NaturalHeight)
}
