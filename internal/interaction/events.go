package interaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/plsfixthx/annotator/internal/geometry"
	"github.com/plsfixthx/annotator/internal/models"
)

var ErrUnknownEvent = errors.New("unknown event")

// EventType names an input event delivered by a client.
type EventType string

const (
	EventBind         EventType = "bind"
	EventRelease      EventType = "release"
	EventResize       EventType = "resize"
	EventDoubleClick  EventType = "double_click"
	EventPointerDown  EventType = "pointer_down"
	EventPointerMove  EventType = "pointer_move"
	EventPointerUp    EventType = "pointer_up"
	EventTouchStart   EventType = "touch_start"
	EventTouchMove    EventType = "touch_move"
	EventTouchEnd     EventType = "touch_end"
	EventDraft        EventType = "draft"
	EventSubmit       EventType = "submit"
	EventCancel       EventType = "cancel"
	EventEscape       EventType = "escape"
	EventClickOutside EventType = "click_outside"
	EventToggle       EventType = "toggle"
	EventDelete       EventType = "delete"
)

// Event is one client input. Timestamps are client milliseconds so tap
// timing is measured where the input happened; a zero timestamp means now.
type Event struct {
	Type    EventType     `json:"type"`
	X       float64       `json:"x"`
	Y       float64       `json:"y"`
	AtMS    int64         `json:"at_ms,omitempty"`
	Text    string        `json:"text,omitempty"`
	ImageID uuid.UUID     `json:"image_id,omitempty"`
	Box     geometry.Rect `json:"box,omitempty"`
	Fit     string        `json:"fit,omitempty"`
	Touch   bool          `json:"touch,omitempty"`
}

func (e Event) point() Point { return Point{X: e.X, Y: e.Y} }

func (e Event) time(now time.Time) time.Time {
	if e.AtMS > 0 {
		return time.UnixMilli(e.AtMS)
	}
	return now
}

// View returns the view described by a bind event.
func (e Event) View() ViewState {
	return ViewState{ImageID: e.ImageID, Box: e.Box, Fit: geometry.ParseFit(e.Fit), Touch: e.Touch}
}

// Apply dispatches every event except bind and release, which need the
// caller to own the release func. A created annotation is returned for
// submit events that added one.
func (c *Controller) Apply(ev Event, now time.Time) (*models.Annotation, error) {
	switch ev.Type {
	case EventResize:
		c.UpdateBox(ev.Box)
	case EventDoubleClick:
		return nil, c.DoubleClick(ev.point())
	case EventPointerDown:
		return nil, c.PointerDown(ev.point(), ev.time(now))
	case EventPointerMove:
		return nil, c.PointerMove(ev.point())
	case EventPointerUp:
		return nil, c.PointerUp(ev.point(), ev.time(now))
	case EventTouchStart:
		return nil, c.TouchStart(ev.point(), ev.time(now))
	case EventTouchMove:
		return nil, c.TouchMove(ev.point())
	case EventTouchEnd:
		return nil, c.TouchEnd(ev.point(), ev.time(now))
	case EventDraft:
		c.SetDraftText(ev.Text)
	case EventSubmit:
		return c.Submit(ev.Text)
	case EventCancel:
		c.Cancel()
	case EventEscape:
		c.Escape()
	case EventClickOutside:
		c.ClickOutside()
	case EventToggle:
		return nil, c.ToggleSelected()
	case EventDelete:
		return nil, c.DeleteSelected()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	return nil, nil
}
