// Package interaction implements the pointer and touch state machine that
// turns raw input events into annotation store mutations.
package interaction

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plsfixthx/annotator/internal/geometry"
	"github.com/plsfixthx/annotator/internal/models"
)

// State of the controller.
type State int

const (
	Idle State = iota
	Creating
	Dragging
	Selected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Creating:
		return "creating"
	case Dragging:
		return "dragging"
	case Selected:
		return "selected"
	}
	return "unknown"
}

var ErrNoView = errors.New("no view bound")

// Store is the subset of the annotation store the controller drives.
type Store interface {
	Image(id uuid.UUID) (*models.Image, bool)
	ListFor(imageID uuid.UUID) []models.Annotation
	Create(imageID uuid.UUID, x, y float64, note string) (*models.Annotation, bool, error)
	Move(annotationID uuid.UUID, x, y float64) error
	ToggleCompleted(annotationID uuid.UUID) error
	Delete(annotationID uuid.UUID) error
}

// Point is a viewport position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ViewState describes the currently displayed image. It replaces ambient
// globals such as a module-level "is mobile" flag.
type ViewState struct {
	ImageID uuid.UUID
	Box     geometry.Rect
	Fit     geometry.Fit
	Touch   bool
}

// Draft is an uncommitted annotation while the note input is open.
type Draft struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

// Snapshot is the externally visible controller state.
type Snapshot struct {
	State    string     `json:"state"`
	ImageID  uuid.UUID  `json:"image_id"`
	Active   *uuid.UUID `json:"active,omitempty"`
	Dragged  *uuid.UUID `json:"dragged,omitempty"`
	Draft    *Draft     `json:"draft,omitempty"`
	Touch    bool       `json:"touch"`
	ViewOpen bool       `json:"view_open"`
}

type press struct {
	id          uuid.UUID
	start       Point
	at          time.Time
	moved       bool
	wasSelected bool
	touch       bool
}

type tap struct {
	p  Point
	at time.Time
}

// Controller holds transient interaction state only; annotation data lives
// in the Store.
type Controller struct {
	mu     sync.Mutex
	store  Store
	tuning Tuning

	view     *ViewState
	viewSeq  int
	state    State
	active   uuid.UUID
	dragged  uuid.UUID
	draft    Draft
	press    *press
	touchTap *tap // last touch tap on the image, for double-tap detection
}

func NewController(store Store, tuning Tuning) *Controller {
	return &Controller{store: store, tuning: tuning}
}

// Bind makes view the active view. The returned release func resets all
// transient state; callers defer it so it runs on every exit path. Releasing
// a view that has since been replaced is a no-op.
func (c *Controller) Bind(view ViewState) (release func()) {
	c.mu.Lock()
	c.resetLocked()
	v := view
	c.view = &v
	c.viewSeq++
	seq := c.viewSeq
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.viewSeq != seq {
				return
			}
			c.resetLocked()
			c.view = nil
		})
	}
}

// UpdateBox records a new rendered box for the bound view, e.g. after a
// resize. Stored positions are unaffected.
func (c *Controller) UpdateBox(box geometry.Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view != nil {
		c.view.Box = box
	}
}

func (c *Controller) resetLocked() {
	c.state = Idle
	c.active = uuid.Nil
	c.dragged = uuid.Nil
	c.draft = Draft{}
	c.press = nil
	c.touchTap = nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{State: c.state.String(), ViewOpen: c.view != nil}
	if c.view != nil {
		s.ImageID = c.view.ImageID
		s.Touch = c.view.Touch
	}
	if c.state == Selected {
		id := c.active
		s.Active = &id
	}
	if c.state == Dragging {
		id := c.dragged
		s.Dragged = &id
	}
	if c.state == Creating {
		d := c.draft
		s.Draft = &d
	}
	return s
}

// Forget drops any reference to a removed annotation.
func (c *Controller) Forget(annotationID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == annotationID || c.dragged == annotationID {
		c.state = Idle
		c.active = uuid.Nil
		c.dragged = uuid.Nil
		c.press = nil
	}
}

// image returns the bound image; the view must be set.
func (c *Controller) image() (*models.Image, bool) {
	if c.view == nil {
		return nil, false
	}
	img, ok := c.store.Image(c.view.ImageID)
	if !ok || !img.Loaded() {
		return nil, false
	}
	return img, true
}

func (c *Controller) toNatural(img *models.Image, p Point) (float64, float64) {
	return geometry.ToNatural(p.X, p.Y, c.view.Box, c.view.Fit, img.NaturalWidth, img.NaturalHeight)
}

// markerAt returns the id of the marker under p.
func (c *Controller) markerAt(img *models.Image, p Point) (uuid.UUID, bool) {
	list := c.store.ListFor(img.ID)
	pts := make([]geometry.Point, len(list))
	for i, a := range list {
		pts[i] = geometry.Point{X: a.X, Y: a.Y}
	}
	i := geometry.HitTest(pts, p.X, p.Y, c.view.Box, c.view.Fit, img.NaturalWidth, img.NaturalHeight, c.tuning.MarkerRadius)
	if i < 0 {
		return uuid.Nil, false
	}
	return list[i].ID, true
}

// beginCreate opens the note input at p. Only valid from Idle or Selected;
// a double click always lands on an Idle or Selected controller because the
// first click of the pair closes any other popup.
func (c *Controller) beginCreate(img *models.Image, p Point) {
	x, y := c.toNatural(img, p)
	c.state = Creating
	c.active = uuid.Nil
	c.draft = Draft{X: x, Y: y}
}

// DoubleClick opens the note input at the clicked image position. Double
// clicks on a marker are ignored.
func (c *Controller) DoubleClick(p Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.image()
	if !ok {
		return ErrNoView
	}
	if c.state == Dragging || c.state == Creating {
		return nil
	}
	if _, onMarker := c.markerAt(img, p); onMarker {
		return nil
	}
	c.beginCreate(img, p)
	return nil
}

// SetDraftText updates the text of the open note input.
func (c *Controller) SetDraftText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Creating {
		c.draft.Text = text
	}
}

// Submit commits the draft with text, or with the draft text set through
// SetDraftText when text is empty. Blank text discards the draft. The
// created annotation is returned when one was added.
func (c *Controller) Submit(text string) (*models.Annotation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Creating {
		return nil, nil
	}
	d := c.draft
	if text == "" {
		text = d.Text
	}
	imageID := c.view.ImageID
	c.state = Idle
	c.draft = Draft{}
	a, created, err := c.store.Create(imageID, d.X, d.Y, text)
	if err != nil || !created {
		return nil, err
	}
	return a, nil
}

// Cancel discards an open draft.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Creating {
		c.state = Idle
		c.draft = Draft{}
	}
}

// Escape closes the draft input or the detail popup.
func (c *Controller) Escape() {
	c.ClickOutside()
}

// ClickOutside closes the draft input or the detail popup.
func (c *Controller) ClickOutside() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Creating:
		c.state = Idle
		c.draft = Draft{}
	case Selected:
		c.state = Idle
		c.active = uuid.Nil
	}
}

// PointerDown starts a potential drag on a marker. A press elsewhere acts as
// a click outside any open popup.
func (c *Controller) PointerDown(p Point, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pressLocked(p, at, false)
}

func (c *Controller) pressLocked(p Point, at time.Time, touch bool) error {
	img, ok := c.image()
	if !ok {
		return ErrNoView
	}
	id, onMarker := c.markerAt(img, p)
	if !onMarker {
		switch c.state {
		case Creating:
			c.state = Idle
			c.draft = Draft{}
		case Selected:
			c.state = Idle
			c.active = uuid.Nil
		}
		c.press = nil
		return nil
	}
	if c.state == Creating {
		c.draft = Draft{}
	}
	wasSelected := c.state == Selected && c.active == id
	c.state = Dragging
	c.dragged = id
	c.active = uuid.Nil
	c.press = &press{id: id, start: p, at: at, wasSelected: wasSelected, touch: touch}
	return nil
}

// PointerMove repositions the dragged marker once the press has travelled
// past the drag threshold.
func (c *Controller) PointerMove(p Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	threshold := c.tuning.DragThreshold
	if c.press != nil && c.press.touch {
		threshold = c.tuning.TapMoveThreshold
	}
	return c.moveLocked(p, threshold)
}

func (c *Controller) moveLocked(p Point, threshold float64) error {
	if c.state != Dragging || c.press == nil {
		return nil
	}
	img, ok := c.image()
	if !ok {
		return ErrNoView
	}
	if !c.press.moved && geometry.Distance(c.press.start.X, c.press.start.Y, p.X, p.Y) <= threshold {
		return nil
	}
	c.press.moved = true
	x, y := c.toNatural(img, p)
	return c.store.Move(c.dragged, x, y)
}

// PointerUp ends a drag. A press that never moved is a click on the marker
// and toggles its detail popup.
func (c *Controller) PointerUp(p Point, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
	return nil
}

func (c *Controller) releaseLocked() {
	if c.state != Dragging || c.press == nil {
		return
	}
	pr := c.press
	c.press = nil
	c.dragged = uuid.Nil
	if pr.moved || pr.wasSelected {
		c.state = Idle
		return
	}
	c.state = Selected
	c.active = pr.id
}

// TouchStart begins a touch on the image or a marker.
func (c *Controller) TouchStart(p Point, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.image()
	if !ok {
		return ErrNoView
	}
	if _, onMarker := c.markerAt(img, p); onMarker {
		return c.pressLocked(p, at, true)
	}
	c.press = &press{start: p, at: at, touch: true}
	return nil
}

// TouchMove drags a touched marker once movement exceeds the tap threshold.
func (c *Controller) TouchMove(p Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.press == nil {
		return nil
	}
	if c.state != Dragging {
		if geometry.Distance(c.press.start.X, c.press.start.Y, p.X, p.Y) > c.tuning.TapMoveThreshold {
			c.press.moved = true
		}
		return nil
	}
	return c.moveLocked(p, c.tuning.TapMoveThreshold)
}

// TouchEnd finishes a touch. Short, stationary touches are taps: on a marker
// a tap toggles its popup, on the image two taps close in time and space
// open the note input like a double click.
func (c *Controller) TouchEnd(p Point, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pr := c.press
	if pr == nil {
		return nil
	}
	isTap := !pr.moved &&
		geometry.Distance(pr.start.X, pr.start.Y, p.X, p.Y) <= c.tuning.TapMoveThreshold &&
		at.Sub(pr.at) <= c.tuning.TapMaxDuration

	if c.state == Dragging {
		if !isTap {
			pr.moved = true
		}
		c.releaseLocked()
		c.touchTap = nil
		return nil
	}
	c.press = nil
	if !isTap {
		c.touchTap = nil
		return nil
	}

	img, ok := c.image()
	if !ok {
		return ErrNoView
	}
	prev := c.touchTap
	if prev != nil && at.Sub(prev.at) <= c.tuning.DoubleTapWindow &&
		geometry.Distance(prev.p.X, prev.p.Y, p.X, p.Y) <= c.tuning.DoubleTapRadius {
		c.touchTap = nil
		if c.state == Idle || c.state == Selected {
			c.beginCreate(img, p)
		}
		return nil
	}
	c.touchTap = &tap{p: p, at: at}
	switch c.state {
	case Selected:
		c.state = Idle
		c.active = uuid.Nil
	case Creating:
		c.state = Idle
		c.draft = Draft{}
	}
	return nil
}

// ToggleSelected flips the completed flag of the annotation whose popup is
// open.
func (c *Controller) ToggleSelected() error {
	c.mu.Lock()
	id, ok := c.active, c.state == Selected
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.store.ToggleCompleted(id)
}

// DeleteSelected removes the annotation whose popup is open. The store's
// removal callback clears the selection.
func (c *Controller) DeleteSelected() error {
	c.mu.Lock()
	id, ok := c.active, c.state == Selected
	c.mu.Unlock()
	if !ok {
		return nil
	}
	err := c.store.Delete(id)
	c.Forget(id)
	return err
}
