package geometry

import (
	"math"
	"testing"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestToPercent(t *testing.T) {
	tests := []struct {
		x, y         float64
		w, h         int
		wantX, wantY float64
	}{
		{100, 100, 800, 600, 12.5, 16.6667},
		{700, 500, 800, 600, 87.5, 83.3333},
		{0, 0, 800, 600, 0, 0},
		{800, 600, 800, 600, 100, 100},
		{10, 10, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		gx, gy := ToPercent(tt.x, tt.y, tt.w, tt.h)
		if !almostEqual(gx, tt.wantX, 0.001) || !almostEqual(gy, tt.wantY, 0.001) {
			t.Errorf("ToPercent(%v, %v, %d, %d) = (%v, %v), want ~(%v, %v)",
				tt.x, tt.y, tt.w, tt.h, gx, gy, tt.wantX, tt.wantY)
		}
	}
}

func TestToNaturalClamps(t *testing.T) {
	box := Rect{Left: 50, Top: 20, Width: 400, Height: 300}
	tests := []struct {
		cx, cy       float64
		wantX, wantY float64
	}{
		{0, 0, 0, 0},
		{1000, 1000, 800, 600},
		{50, 20, 0, 0},
		{450, 320, 800, 600},
		{250, 170, 400, 300},
		{-30, 170, 0, 300},
	}
	for _, tt := range tests {
		x, y := ToNatural(tt.cx, tt.cy, box, FitFill, 800, 600)
		if !almostEqual(x, tt.wantX, 1e-9) || !almostEqual(y, tt.wantY, 1e-9) {
			t.Errorf("ToNatural(%v, %v) = (%v, %v), want (%v, %v)", tt.cx, tt.cy, x, y, tt.wantX, tt.wantY)
		}
		if x < 0 || x > 800 || y < 0 || y > 600 {
			t.Errorf("ToNatural(%v, %v) out of bounds: (%v, %v)", tt.cx, tt.cy, x, y)
		}
	}
}

func TestToNaturalUnloadedImage(t *testing.T) {
	x, y := ToNatural(10, 10, Rect{Width: 100, Height: 100}, FitFill, 0, 0)
	if x != 0 || y != 0 {
		t.Errorf("ToNatural with zero natural size = (%v, %v), want (0, 0)", x, y)
	}
	x, y = ToNatural(10, 10, Rect{}, FitFill, 800, 600)
	if x != 0 || y != 0 {
		t.Errorf("ToNatural with empty box = (%v, %v), want (0, 0)", x, y)
	}
}

func TestContentBoxLetterbox(t *testing.T) {
	// 800x600 image in a 400x400 element: painted 400x300, 50px bars top and bottom.
	c := ContentBox(Rect{Left: 10, Top: 10, Width: 400, Height: 400}, FitContain, 800, 600)
	want := Rect{Left: 10, Top: 60, Width: 400, Height: 300}
	if c != want {
		t.Errorf("ContentBox = %+v, want %+v", c, want)
	}

	// Pillarbox: tall image in a wide element.
	c = ContentBox(Rect{Width: 400, Height: 200}, FitContain, 100, 200)
	want = Rect{Left: 150, Top: 0, Width: 100, Height: 200}
	if c != want {
		t.Errorf("ContentBox = %+v, want %+v", c, want)
	}

	if got := ContentBox(Rect{Width: 400, Height: 400}, FitFill, 800, 600); got != (Rect{Width: 400, Height: 400}) {
		t.Errorf("FitFill ContentBox = %+v, want element box", got)
	}
}

func TestToNaturalLetterboxBars(t *testing.T) {
	box := Rect{Width: 400, Height: 400}
	// A click on the top bar maps to the top edge of the image, not inside it.
	x, y := ToNatural(200, 20, box, FitContain, 800, 600)
	if !almostEqual(x, 400, 1e-9) || y != 0 {
		t.Errorf("click on letterbox bar = (%v, %v), want (400, 0)", x, y)
	}
	x, y = ToNatural(200, 200, box, FitContain, 800, 600)
	if !almostEqual(x, 400, 1e-9) || !almostEqual(y, 300, 1e-9) {
		t.Errorf("centre click = (%v, %v), want (400, 300)", x, y)
	}
}

func TestRoundTrip(t *testing.T) {
	boxes := []struct {
		box Rect
		fit Fit
	}{
		{Rect{Left: 13, Top: 7, Width: 333, Height: 250}, FitFill},
		{Rect{Left: 0, Top: 0, Width: 1600, Height: 1200}, FitFill},
		{Rect{Left: 40, Top: 90, Width: 500, Height: 500}, FitContain},
		{Rect{Left: 0, Top: 0, Width: 123.4, Height: 987.6}, FitContain},
	}
	const w, h = 800, 600
	for _, b := range boxes {
		for x := 0.0; x <= w; x += 37.5 {
			for y := 0.0; y <= h; y += 41.25 {
				px, py := ToPercent(x, y, w, h)
				nx, ny := FromPercent(px, py, w, h)
				if !almostEqual(nx, x, 1e-6) || !almostEqual(ny, y, 1e-6) {
					t.Fatalf("percent round trip (%v, %v) -> (%v, %v)", x, y, nx, ny)
				}
				sx, sy := ToScreen(x, y, b.box, b.fit, w, h)
				rx, ry := ToNatural(sx, sy, b.box, b.fit, w, h)
				if !almostEqual(rx, x, 1e-6) || !almostEqual(ry, y, 1e-6) {
					t.Fatalf("screen round trip %+v (%v, %v) -> (%v, %v)", b.box, x, y, rx, ry)
				}
			}
		}
	}
}

func TestHitTestPrefersTopMost(t *testing.T) {
	box := Rect{Width: 800, Height: 600}
	points := []Point{{100, 100}, {105, 100}, {700, 500}}
	if got := HitTest(points, 103, 100, box, FitFill, 800, 600, 12); got != 1 {
		t.Errorf("HitTest overlap = %d, want 1", got)
	}
	if got := HitTest(points, 700, 510, box, FitFill, 800, 600, 12); got != 2 {
		t.Errorf("HitTest = %d, want 2", got)
	}
	if got := HitTest(points, 400, 300, box, FitFill, 800, 600, 12); got != -1 {
		t.Errorf("HitTest miss = %d, want -1", got)
	}
}

func TestFitWithin(t *testing.T) {
	w, h := FitWithin(800, 600, 180, 160)
	if !almostEqual(w, 180, 1e-9) || !almostEqual(h, 135, 1e-9) {
		t.Errorf("FitWithin = (%v, %v), want (180, 135)", w, h)
	}
	if w > 180+1e-9 || h > 160+1e-9 {
		t.Errorf("FitWithin exceeded bounds: (%v, %v)", w, h)
	}
	if !almostEqual(w/h, 800.0/600.0, 1e-9) {
		t.Errorf("FitWithin changed aspect ratio: %v", w/h)
	}
}
