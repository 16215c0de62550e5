package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/plsfixthx/annotator/internal/models"
)

// InteractiveExporter writes a single self-contained HTML file. Images are
// embedded as data URIs and markers are positioned in percentages, so the
// page scales with the viewer's window. Clicking a marker opens its note;
// completion can be toggled locally without affecting the session.
type InteractiveExporter struct {
	Style Style
}

func NewInteractiveExporter(style Style) *InteractiveExporter {
	return &InteractiveExporter{Style: style}
}

type htmlMarker struct {
	LegendEntry
	ID string
}

type htmlPage struct {
	Index    int
	Filename string
	Source   template.URL
	Width    int
	Height   int
	Markers  []htmlMarker
}

type htmlDoc struct {
	Title     string
	Pages     []htmlPage
	Open      string
	Completed string
	Glyph     string
	Text      string
	Muted     string
	BoxFill   string
	BoxBorder string
	Radius    float64
	Ring      float64
	Watermark string
}

// Export renders all pages into base.html.
func (e *InteractiveExporter) Export(ctx context.Context, pages []models.Page, base string) (File, error) {
	if len(pages) == 0 {
		return File{}, ErrNoPages
	}
	st := e.Style
	doc := htmlDoc{
		Title:     st.Title,
		Open:      Hex(st.OpenColor),
		Completed: Hex(st.CompletedColor),
		Glyph:     Hex(st.GlyphColor),
		Text:      Hex(st.TextColor),
		Muted:     Hex(st.MutedColor),
		BoxFill:   Hex(st.BoxFill),
		BoxBorder: Hex(st.BoxBorder),
		Radius:    st.MarkerRadius,
		Ring:      st.MarkerRing,
		Watermark: st.Watermark,
	}
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return File{}, err
		}
		hp := htmlPage{
			Index:    i + 1,
			Filename: page.Image.Filename,
			// Data URIs are produced by us from validated image bytes.
			Source: template.URL(page.Image.DataURI()),
			Width:  page.Image.NaturalWidth,
			Height: page.Image.NaturalHeight,
		}
		for _, entry := range Legend(page) {
			hp.Markers = append(hp.Markers, htmlMarker{
				LegendEntry: entry,
				ID:          fmt.Sprintf("p%d-m%d", i+1, entry.Number),
			})
		}
		doc.Pages = append(doc.Pages, hp)
	}

	var buf bytes.Buffer
	if err := interactiveTemplate.Execute(&buf, doc); err != nil {
		return File{}, fmt.Errorf("render html: %w", err)
	}
	return File{Name: FileName(base, "html", 1, 1), ContentType: FormatHTML.ContentType(), Data: buf.Bytes()}, nil
}

var interactiveTemplate = template.Must(template.New("interactive").Funcs(template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
	"px":  func(v float64) string { return fmt.Sprintf("%gpx", v) },
}).Parse(interactiveHTML))

const interactiveHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} annotations</title>
<style>
  body { margin: 0; padding: 24px; background: #f8fafc; color: {{.Text}}; font-family: system-ui, -apple-system, "Segoe UI", sans-serif; }
  h1 { font-size: 20px; margin: 0 0 16px; }
  .page { background: #fff; border: 1px solid {{.BoxBorder}}; border-radius: 8px; padding: 16px; margin: 0 auto 24px; max-width: 1200px; }
  .page h2 { font-size: 14px; color: {{.Muted}}; margin: 0 0 12px; font-weight: 500; }
  .stage { position: relative; display: inline-block; max-width: 100%; line-height: 0; }
  .stage img { max-width: 100%; height: auto; display: block; }
  .marker { position: absolute; transform: translate(-50%, -50%); width: calc(2 * {{px .Radius}}); height: calc(2 * {{px .Radius}}); border-radius: 50%; border: {{px .Ring}} solid {{.Glyph}}; box-sizing: border-box; background: {{.Open}}; color: {{.Glyph}}; font: 600 12px/1 system-ui, sans-serif; display: flex; align-items: center; justify-content: center; cursor: pointer; padding: 0; box-shadow: 0 1px 3px rgba(0,0,0,.35); }
  .marker.completed { background: {{.Completed}}; }
  .marker .check { display: none; }
  .marker.completed .check { display: inline; }
  .marker.completed .num { display: none; }
  .popup { display: none; position: absolute; z-index: 10; transform: translate(-50%, 16px); min-width: 200px; max-width: 320px; background: #fff; color: {{.Text}}; border: 1px solid {{.BoxBorder}}; border-radius: 6px; padding: 10px 12px; box-shadow: 0 4px 16px rgba(0,0,0,.15); line-height: 1.4; font-size: 14px; }
  .popup.open { display: block; }
  .popup .status { font-weight: 600; font-size: 13px; color: {{.Open}}; margin-bottom: 4px; }
  .popup.completed .status { color: {{.Completed}}; }
  .popup .note { white-space: pre-wrap; word-break: break-word; margin-bottom: 8px; }
  .popup button { font: inherit; font-size: 13px; border: 1px solid {{.BoxBorder}}; background: {{.BoxFill}}; border-radius: 4px; padding: 4px 10px; cursor: pointer; }
  .empty { color: {{.Muted}}; font-size: 13px; margin-top: 8px; }
  footer { text-align: center; color: {{.Muted}}; font-size: 12px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Pages}}
<section class="page" data-page="{{.Index}}">
  <h2>Image {{.Index}}{{if .Filename}} &middot; {{.Filename}}{{end}}</h2>
  <div class="stage">
    <img src="{{.Source}}" width="{{.Width}}" height="{{.Height}}" alt="Screenshot {{.Index}}">
    {{range .Markers}}
    <button type="button" class="marker{{if .Completed}} completed{{end}}" data-target="{{.ID}}" style="left: {{pct .XPct}}; top: {{pct .YPct}};" aria-label="Annotation {{.Number}}"><span class="num">{{.Number}}</span><span class="check">&#10003;</span></button>
    <div class="popup{{if .Completed}} completed{{end}}" id="{{.ID}}" role="dialog" style="left: {{pct .XPct}}; top: {{pct .YPct}};">
      <div class="status">#{{.Number}} <span class="label">{{.Status}}</span></div>
      <div class="note">{{.Note}}</div>
      <button type="button" class="toggle">{{if .Completed}}Mark as open{{else}}Mark as completed{{end}}</button>
    </div>
    {{end}}
  </div>
  {{if not .Markers}}<p class="empty">No notes</p>{{end}}
</section>
{{end}}
{{if .Watermark}}<footer>{{.Watermark}}</footer>{{end}}
<script>
(function () {
  var open = null;
  function close() {
    if (open) { open.classList.remove("open"); open = null; }
  }
  document.addEventListener("click", function (ev) {
    var marker = ev.target.closest(".marker");
    if (marker) {
      var popup = document.getElementById(marker.getAttribute("data-target"));
      var wasOpen = popup === open;
      close();
      if (!wasOpen) { popup.classList.add("open"); open = popup; }
      ev.stopPropagation();
      return;
    }
    var toggle = ev.target.closest(".popup .toggle");
    if (toggle) {
      var p = toggle.closest(".popup");
      var done = !p.classList.contains("completed");
      p.classList.toggle("completed", done);
      document.querySelector('[data-target="' + p.id + '"]').classList.toggle("completed", done);
      p.querySelector(".label").textContent = done ? "Completed" : "Open";
      toggle.textContent = done ? "Mark as open" : "Mark as completed";
      return;
    }
    if (!ev.target.closest(".popup")) { close(); }
  });
  document.addEventListener("keydown", function (ev) {
    if (ev.key === "Escape") { close(); }
  });
})();
</script>
</body>
</html>
`
