package export

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const circleSegments = 64

type pt struct{ x, y float64 }

// fillPolygon draws an anti-aliased filled polygon.
func fillPolygon(dst draw.Image, pts []pt, c color.Color) {
	if len(pts) < 3 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	r := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY))).
		Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	ox, oy := float32(r.Min.X), float32(r.Min.Y)
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	z.MoveTo(float32(pts[0].x)-ox, float32(pts[0].y)-oy)
	for _, p := range pts[1:] {
		z.LineTo(float32(p.x)-ox, float32(p.y)-oy)
	}
	z.ClosePath()
	z.Draw(dst, r, image.NewUniform(c), image.Point{})
}

func fillCircle(dst draw.Image, cx, cy, r float64, c color.Color) {
	pts := make([]pt, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = pt{cx + r*math.Cos(a), cy + r*math.Sin(a)}
	}
	fillPolygon(dst, pts, c)
}

// strokeLine draws a line segment of the given width with round caps.
func strokeLine(dst draw.Image, a, b pt, width float64, c color.Color) {
	dx, dy := b.x-a.x, b.y-a.y
	l := math.Hypot(dx, dy)
	if l == 0 {
		fillCircle(dst, a.x, a.y, width/2, c)
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	fillPolygon(dst, []pt{
		{a.x + nx, a.y + ny},
		{b.x + nx, b.y + ny},
		{b.x - nx, b.y - ny},
		{a.x - nx, a.y - ny},
	}, c)
	fillCircle(dst, a.x, a.y, width/2, c)
	fillCircle(dst, b.x, b.y, width/2, c)
}

// fillRect fills r with c, blending over the existing pixels.
func fillRect(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// strokeRect draws a border of width w inside r.
func strokeRect(dst draw.Image, r image.Rectangle, w int, c color.Color) {
	if w <= 0 {
		w = 1
	}
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w), c)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y), c)
}

// checkmark returns the polyline of a checkmark centred in a circle of
// radius r.
func checkmark(cx, cy, r float64) []pt {
	return []pt{
		{cx - 0.42*r, cy + 0.02*r},
		{cx - 0.12*r, cy + 0.32*r},
		{cx + 0.45*r, cy - 0.30*r},
	}
}

// drawMarker paints a numbered or checked pin centred at (cx, cy). All
// values are device pixels.
func drawMarker(dst draw.Image, cx, cy, r, ring float64, fill, glyphColor color.Color, face font.Face, label string, done bool) {
	fillCircle(dst, cx, cy, r, glyphColor)
	fillCircle(dst, cx, cy, r-ring, fill)
	if done {
		pts := checkmark(cx, cy, r)
		for i := 0; i+1 < len(pts); i++ {
			strokeLine(dst, pts[i], pts[i+1], r*0.18, glyphColor)
		}
		return
	}
	w := font.MeasureString(face, label)
	m := face.Metrics()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(glyphColor),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(int(math.Round(cx))) - w/2, Y: fixed.I(int(math.Round(cy))) + m.CapHeight/2},
	}
	d.DrawString(label)
}

// drawText writes s with its baseline at (x, y).
func drawText(dst draw.Image, face font.Face, c color.Color, x, y float64, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(int(math.Round(x)), int(math.Round(y))),
	}
	d.DrawString(s)
}
