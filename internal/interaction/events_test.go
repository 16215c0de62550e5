package interaction

import (
	"errors"
	"testing"

	"github.com/plsfixthx/annotator/internal/geometry"
)

func TestApplyDispatches(t *testing.T) {
	c, s, release := setup(t)
	defer release()

	steps := []Event{
		{Type: EventDoubleClick, X: 150, Y: 100},
		{Type: EventDraft, Text: "typing"},
		{Type: EventSubmit, Text: "fix header"},
	}
	var created int
	for _, ev := range steps {
		a, err := c.Apply(ev, t0)
		if err != nil {
			t.Fatalf("Apply(%s): %v", ev.Type, err)
		}
		if a != nil {
			created++
		}
	}
	if created != 1 || len(s.list) != 1 {
		t.Fatalf("created %d, store has %d, want 1", created, len(s.list))
	}
}

func TestApplySubmitUsesDraftText(t *testing.T) {
	c, s, release := setup(t)
	defer release()

	for _, ev := range []Event{
		{Type: EventDoubleClick, X: 150, Y: 100},
		{Type: EventDraft, Text: "fix header"},
		{Type: EventSubmit},
	} {
		if _, err := c.Apply(ev, t0); err != nil {
			t.Fatalf("Apply(%s): %v", ev.Type, err)
		}
	}
	if c.State() != Idle {
		t.Errorf("state = %v after submit, want idle", c.State())
	}
	if len(s.list) != 1 || s.list[0].Note != "fix header" {
		t.Fatalf("store = %+v, want one note %q", s.list, "fix header")
	}

	// Explicit text wins over the draft.
	for _, ev := range []Event{
		{Type: EventDoubleClick, X: 300, Y: 200},
		{Type: EventDraft, Text: "draft"},
		{Type: EventSubmit, Text: "final"},
	} {
		if _, err := c.Apply(ev, t0); err != nil {
			t.Fatalf("Apply(%s): %v", ev.Type, err)
		}
	}
	if len(s.list) != 2 || s.list[1].Note != "final" {
		t.Errorf("second note = %+v, want %q", s.list, "final")
	}
}

func TestApplyTouchUsesClientTime(t *testing.T) {
	c, s, release := setup(t)
	defer release()

	at := t0.UnixMilli()
	for _, ev := range []Event{
		{Type: EventTouchStart, X: 200, Y: 200, AtMS: at},
		{Type: EventTouchEnd, X: 200, Y: 200, AtMS: at + 80},
		{Type: EventTouchStart, X: 202, Y: 201, AtMS: at + 200},
		{Type: EventTouchEnd, X: 202, Y: 201, AtMS: at + 260},
	} {
		if _, err := c.Apply(ev, t0.Add(5000)); err != nil {
			t.Fatalf("Apply(%s): %v", ev.Type, err)
		}
	}
	if c.State() != Creating {
		t.Fatalf("state = %v after double tap, want creating", c.State())
	}
	if len(s.list) != 0 {
		t.Errorf("double tap stored %d annotations before submit", len(s.list))
	}
}

func TestApplyUnknown(t *testing.T) {
	c, _, release := setup(t)
	defer release()
	if _, err := c.Apply(Event{Type: "wiggle"}, t0); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("err = %v, want ErrUnknownEvent", err)
	}
}

func TestEventView(t *testing.T) {
	ev := Event{Type: EventBind, Fit: "contain", Touch: true}
	v := ev.View()
	if !v.Touch || v.Fit != geometry.FitContain {
		t.Errorf("View() = %+v", v)
	}
}
