// Package geometry converts between viewport, percentage and natural-image
// coordinates. Annotations are always stored in natural pixels; everything
// rendered on screen or in an export is derived from them here.
package geometry

import "math"

// Fit describes how an image is painted inside its element box.
type Fit int

const (
	// FitFill stretches the image over the whole element box.
	FitFill Fit = iota
	// FitContain letterboxes the image like CSS object-fit: contain.
	FitContain
)

// ParseFit maps the CSS keyword to a Fit. Unknown values fall back to FitFill.
func ParseFit(s string) Fit {
	if s == "contain" {
		return FitContain
	}
	return FitFill
}

// Rect is a rendered element box in viewport pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the box cannot be mapped against.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ContentBox returns the region of box in which image pixels are painted.
func ContentBox(box Rect, fit Fit, naturalWidth, naturalHeight int) Rect {
	if fit != FitContain || naturalWidth <= 0 || naturalHeight <= 0 || box.Empty() {
		return box
	}
	scale := math.Min(box.Width/float64(naturalWidth), box.Height/float64(naturalHeight))
	w := float64(naturalWidth) * scale
	h := float64(naturalHeight) * scale
	return Rect{
		Left:   box.Left + (box.Width-w)/2,
		Top:    box.Top + (box.Height-h)/2,
		Width:  w,
		Height: h,
	}
}

// ToNatural maps a pointer position to natural-image pixels, clamped to the
// image bounds.
func ToNatural(clientX, clientY float64, box Rect, fit Fit, naturalWidth, naturalHeight int) (float64, float64) {
	if naturalWidth <= 0 || naturalHeight <= 0 || box.Empty() {
		return 0, 0
	}
	c := ContentBox(box, fit, naturalWidth, naturalHeight)
	x := (clientX - c.Left) / c.Width * float64(naturalWidth)
	y := (clientY - c.Top) / c.Height * float64(naturalHeight)
	return Clamp(x, 0, float64(naturalWidth)), Clamp(y, 0, float64(naturalHeight))
}

// ToScreen maps natural-image pixels back to viewport coordinates.
func ToScreen(x, y float64, box Rect, fit Fit, naturalWidth, naturalHeight int) (float64, float64) {
	if naturalWidth <= 0 || naturalHeight <= 0 || box.Empty() {
		return box.Left, box.Top
	}
	c := ContentBox(box, fit, naturalWidth, naturalHeight)
	return c.Left + x/float64(naturalWidth)*c.Width, c.Top + y/float64(naturalHeight)*c.Height
}

// ToPercent expresses a natural position as a percentage of the image size.
// Unknown dimensions yield (0, 0).
func ToPercent(x, y float64, naturalWidth, naturalHeight int) (float64, float64) {
	if naturalWidth <= 0 || naturalHeight <= 0 {
		return 0, 0
	}
	return 100 * x / float64(naturalWidth), 100 * y / float64(naturalHeight)
}

// FromPercent is the inverse of ToPercent.
func FromPercent(xPct, yPct float64, naturalWidth, naturalHeight int) (float64, float64) {
	if naturalWidth <= 0 || naturalHeight <= 0 {
		return 0, 0
	}
	x := xPct / 100 * float64(naturalWidth)
	y := yPct / 100 * float64(naturalHeight)
	return Clamp(x, 0, float64(naturalWidth)), Clamp(y, 0, float64(naturalHeight))
}

// Point is a natural-pixel position used for hit testing.
type Point struct {
	X, Y float64
}

// HitTest returns the index of the marker under the pointer, or -1. Markers
// are drawn in slice order, so the last match is the one on top.
func HitTest(points []Point, clientX, clientY float64, box Rect, fit Fit, naturalWidth, naturalHeight int, radius float64) int {
	hit := -1
	for i, p := range points {
		sx, sy := ToScreen(p.X, p.Y, box, fit, naturalWidth, naturalHeight)
		if Distance(sx, sy, clientX, clientY) <= radius {
			hit = i
		}
	}
	return hit
}

// Distance is the euclidean distance between two points.
func Distance(ax, ay, bx, by float64) float64 {
	return math.Hypot(bx-ax, by-ay)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FitWithin scales (w, h) down or up to fit inside (maxW, maxH) keeping the
// aspect ratio.
func FitWithin(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := math.Min(maxW/w, maxH/h)
	return w * scale, h * scale
}
