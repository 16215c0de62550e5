package interaction

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/plsfixthx/annotator/internal/geometry"
	"github.com/plsfixthx/annotator/internal/models"
)

// memStore is a minimal in-memory Store.
type memStore struct {
	img  *models.Image
	list []models.Annotation
}

func newMemStore() *memStore {
	return &memStore{img: &models.Image{ID: uuid.New(), NaturalWidth: 800, NaturalHeight: 600}}
}

func (m *memStore) Image(id uuid.UUID) (*models.Image, bool) {
	if id != m.img.ID {
		return nil, false
	}
	return m.img, true
}

func (m *memStore) ListFor(uuid.UUID) []models.Annotation {
	return append([]models.Annotation(nil), m.list...)
}

func (m *memStore) Create(imageID uuid.UUID, x, y float64, note string) (*models.Annotation, bool, error) {
	if strings.TrimSpace(note) == "" {
		return nil, false, nil
	}
	a := models.Annotation{ID: uuid.New(), ImageID: imageID, X: x, Y: y, Note: note}
	m.list = append(m.list, a)
	return &a, true, nil
}

func (m *memStore) find(id uuid.UUID) *models.Annotation {
	for i := range m.list {
		if m.list[i].ID == id {
			return &m.list[i]
		}
	}
	return nil
}

func (m *memStore) Move(id uuid.UUID, x, y float64) error {
	a := m.find(id)
	a.X, a.Y = x, y
	return nil
}

func (m *memStore) ToggleCompleted(id uuid.UUID) error {
	a := m.find(id)
	a.Completed = !a.Completed
	return nil
}

func (m *memStore) Delete(id uuid.UUID) error {
	for i := range m.list {
		if m.list[i].ID == id {
			m.list = append(m.list[:i], m.list[i+1:]...)
			return nil
		}
	}
	return nil
}

// The view shows the 800x600 image at half size, offset by (100, 50).
func setup(t *testing.T) (*Controller, *memStore, func()) {
	t.Helper()
	s := newMemStore()
	c := NewController(s, DefaultTuning())
	release := c.Bind(ViewState{
		ImageID: s.img.ID,
		Box:     geometry.Rect{Left: 100, Top: 50, Width: 400, Height: 300},
	})
	return c, s, release
}

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func ms(n int) time.Time { return t0.Add(time.Duration(n) * time.Millisecond) }

func TestDoubleClickCreatesInNaturalPixels(t *testing.T) {
	c, s, release := setup(t)
	defer release()

	if err := c.DoubleClick(Point{150, 100}); err != nil {
		t.Fatal(err)
	}
	if c.State() != Creating {
		t.Fatalf("state = %v, want creating", c.State())
	}
	a, err := c.Submit("fix header")
	if err != nil || a == nil {
		t.Fatalf("Submit = (%v, %v)", a, err)
	}
	if a.X != 100 || a.Y != 100 {
		t.Errorf("stored position = (%v, %v), want natural (100, 100)", a.X, a.Y)
	}
	if c.State() != Idle {
		t.Errorf("state after submit = %v, want idle", c.State())
	}
	if len(s.list) != 1 {
		t.Errorf("store has %d annotations, want 1", len(s.list))
	}
}

func TestSubmitBlankDiscardsDraft(t *testing.T) {
	c, s, release := setup(t)
	defer release()
	_ = c.DoubleClick(Point{150, 100})
	a, err := c.Submit("   ")
	if a != nil || err != nil {
		t.Errorf("Submit(blank) = (%v, %v)", a, err)
	}
	if len(s.list) != 0 || c.State() != Idle {
		t.Errorf("blank submit left %d annotations, state %v", len(s.list), c.State())
	}
}

func TestCancelPaths(t *testing.T) {
	cases := map[string]func(c *Controller){
		"cancel":        func(c *Controller) { c.Cancel() },
		"escape":        func(c *Controller) { c.Escape() },
		"click outside": func(c *Controller) { c.ClickOutside() },
		"press outside": func(c *Controller) { _ = c.PointerDown(Point{400, 300}, t0) },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			c, s, release := setup(t)
			defer release()
			_ = c.DoubleClick(Point{150, 100})
			c.SetDraftText("draft")
			fn(c)
			if c.State() != Idle {
				t.Errorf("state = %v, want idle", c.State())
			}
			if c.Snapshot().Draft != nil {
				t.Error("draft survived cancel")
			}
			if len(s.list) != 0 {
				t.Error("cancel created an annotation")
			}
		})
	}
}

func TestClickOnMarkerTogglesPopup(t *testing.T) {
	c, s, release := setup(t)
	defer release()
	a, _, _ := s.Create(s.img.ID, 100, 100, "note") // screen (150, 100)

	_ = c.PointerDown(Point{152, 101}, ms(0))
	if c.State() != Dragging {
		t.Fatalf("state after press = %v, want dragging", c.State())
	}
	_ = c.PointerUp(Point{152, 101}, ms(80))
	snap := c.Snapshot()
	if c.State() != Selected || snap.Active == nil || *snap.Active != a.ID {
		t.Fatalf("after click: %+v, want selected %v", snap, a.ID)
	}
	if s.list[0].X != 100 || s.list[0].Y != 100 {
		t.Error("a click moved the marker")
	}

	// Clicking the selected marker again closes the popup.
	_ = c.PointerDown(Point{150, 100}, ms(500))
	_ = c.PointerUp(Point{150, 100}, ms(550))
	if c.State() != Idle {
		t.Errorf("second click state = %v, want idle", c.State())
	}

	_ = c.PointerDown(Point{150, 100}, ms(900))
	_ = c.PointerUp(Point{150, 100}, ms(950))
	c.Escape()
	if c.State() != Idle {
		t.Errorf("escape state = %v, want idle", c.State())
	}
}

func TestDragMovesMarker(t *testing.T) {
	c, s, release := setup(t)
	defer release()
	s.Create(s.img.ID, 100, 100, "note")

	_ = c.PointerDown(Point{150, 100}, ms(0))
	_ = c.PointerMove(Point{151, 101}) // below threshold
	if s.list[0].X != 100 {
		t.Fatal("marker moved before the drag threshold")
	}
	_ = c.PointerMove(Point{300, 200})
	_ = c.PointerMove(Point{900, -40}) // outside the image
	if s.list[0].X != 800 || s.list[0].Y != 0 {
		t.Errorf("dragged outside = (%v, %v), want clamped (800, 0)", s.list[0].X, s.list[0].Y)
	}
	_ = c.PointerMove(Point{350, 250})
	_ = c.PointerUp(Point{350, 250}, ms(400))
	if s.list[0].X != 500 || s.list[0].Y != 400 {
		t.Errorf("final position = (%v, %v), want (500, 400)", s.list[0].X, s.list[0].Y)
	}
	if c.State() != Idle {
		t.Errorf("state after drag = %v, want idle (drag must not open popup)", c.State())
	}
}

func TestDragAndSelectionAreExclusive(t *testing.T) {
	c, s, release := setup(t)
	defer release()
	a, _, _ := s.Create(s.img.ID, 100, 100, "a")
	s.Create(s.img.ID, 600, 400, "b") // screen (400, 250)

	_ = c.PointerDown(Point{150, 100}, ms(0))
	_ = c.PointerUp(Point{150, 100}, ms(10))
	_ = c.PointerDown(Point{400, 250}, ms(100))
	snap := c.Snapshot()
	if snap.Active != nil || snap.Dragged == nil {
		t.Errorf("snapshot = %+v, want only dragged set", snap)
	}
	if *snap.Dragged == a.ID {
		t.Error("dragging the wrong marker")
	}
}

func TestDoubleTapCreates(t *testing.T) {
	c, _, release := setup(t)
	defer release()

	_ = c.TouchStart(Point{200, 200}, ms(0))
	_ = c.TouchEnd(Point{200, 200}, ms(60))
	if c.State() != Idle {
		t.Fatalf("single tap state = %v", c.State())
	}
	_ = c.TouchStart(Point{205, 203}, ms(200))
	_ = c.TouchEnd(Point{205, 203}, ms(250))
	if c.State() != Creating {
		t.Fatalf("double tap state = %v, want creating", c.State())
	}
}

func TestSlowSecondTapIsNotDoubleTap(t *testing.T) {
	c, _, release := setup(t)
	defer release()
	_ = c.TouchStart(Point{200, 200}, ms(0))
	_ = c.TouchEnd(Point{200, 200}, ms(50))
	_ = c.TouchStart(Point{200, 200}, ms(600))
	_ = c.TouchEnd(Point{200, 200}, ms(650))
	if c.State() != Idle {
		t.Errorf("state = %v, want idle", c.State())
	}

	// Far apart taps within the window do not count either.
	_ = c.TouchStart(Point{120, 60}, ms(700))
	_ = c.TouchEnd(Point{120, 60}, ms(720))
	if c.State() != Idle {
		t.Errorf("state = %v, want idle", c.State())
	}
}

func TestTouchTapVersusDrag(t *testing.T) {
	c, s, release := setup(t)
	defer release()
	s.Create(s.img.ID, 100, 100, "note")

	// A small wobble is still a tap and opens the popup.
	_ = c.TouchStart(Point{150, 100}, ms(0))
	_ = c.TouchMove(Point{154, 103})
	_ = c.TouchEnd(Point{154, 103}, ms(120))
	if c.State() != Selected {
		t.Fatalf("tap state = %v, want selected", c.State())
	}
	if s.list[0].X != 100 {
		t.Error("tap moved the marker")
	}

	// Moving past the threshold is a drag and does not open the popup.
	_ = c.TouchStart(Point{150, 100}, ms(1000))
	_ = c.TouchMove(Point{250, 150})
	_ = c.TouchEnd(Point{250, 150}, ms(1200))
	if c.State() != Idle {
		t.Errorf("drag state = %v, want idle", c.State())
	}
	if s.list[0].X != 300 || s.list[0].Y != 200 {
		t.Errorf("touch drag position = (%v, %v), want (300, 200)", s.list[0].X, s.list[0].Y)
	}
}

func TestDeleteSelectedClearsSelection(t *testing.T) {
	c, s, release := setup(t)
	defer release()
	s.Create(s.img.ID, 100, 100, "note")
	_ = c.PointerDown(Point{150, 100}, ms(0))
	_ = c.PointerUp(Point{150, 100}, ms(10))
	if err := c.ToggleSelected(); err != nil {
		t.Fatal(err)
	}
	if !s.list[0].Completed {
		t.Error("ToggleSelected did not complete the annotation")
	}
	if err := c.DeleteSelected(); err != nil {
		t.Fatal(err)
	}
	if len(s.list) != 0 || c.State() != Idle {
		t.Errorf("after delete: %d annotations, state %v", len(s.list), c.State())
	}
}

func TestReleaseResetsAndUnbinds(t *testing.T) {
	c, _, release := setup(t)
	_ = c.DoubleClick(Point{150, 100})
	release()
	release()
	if c.State() != Idle {
		t.Errorf("state after release = %v", c.State())
	}
	if err := c.DoubleClick(Point{150, 100}); err != ErrNoView {
		t.Errorf("DoubleClick without view err = %v, want ErrNoView", err)
	}
}

func TestStaleReleaseKeepsNewView(t *testing.T) {
	c, s, release := setup(t)
	release2 := c.Bind(ViewState{ImageID: s.img.ID, Box: geometry.Rect{Width: 800, Height: 600}})
	defer release2()
	release()
	if !c.Snapshot().ViewOpen {
		t.Error("releasing a replaced view unbound the current one")
	}
}

func TestLetterboxedView(t *testing.T) {
	s := newMemStore()
	c := NewController(s, DefaultTuning())
	defer c.Bind(ViewState{ImageID: s.img.ID, Box: geometry.Rect{Width: 400, Height: 400}, Fit: geometry.FitContain})()

	_ = c.DoubleClick(Point{200, 200})
	a, _ := c.Submit("centre")
	if a.X != 400 || a.Y != 300 {
		t.Errorf("letterboxed centre = (%v, %v), want (400, 300)", a.X, a.Y)
	}
}
