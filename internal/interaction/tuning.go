package interaction

import "time"

// Default tuning for pointer and touch heuristics. These are UX constants,
// not correctness constraints.
const (
	DefaultMarkerRadius     = 12.0 // px, half of the 24px marker button
	DefaultDragThreshold    = 3.0  // px a mouse press must travel to become a drag
	DefaultTapMoveThreshold = 10.0 // px a touch may travel and still count as a tap
	DefaultTapMaxDuration   = 300 * time.Millisecond
	DefaultDoubleTapWindow  = 300 * time.Millisecond
	DefaultDoubleTapRadius  = 30.0 // px between the two taps of a double tap
)

// Tuning collects the interaction thresholds.
type Tuning struct {
	MarkerRadius     float64
	DragThreshold    float64
	TapMoveThreshold float64
	TapMaxDuration   time.Duration
	DoubleTapWindow  time.Duration
	DoubleTapRadius  float64
}

func DefaultTuning() Tuning {
	return Tuning{
		MarkerRadius:     DefaultMarkerRadius,
		DragThreshold:    DefaultDragThreshold,
		TapMoveThreshold: DefaultTapMoveThreshold,
		TapMaxDuration:   DefaultTapMaxDuration,
		DoubleTapWindow:  DefaultDoubleTapWindow,
		DoubleTapRadius:  DefaultDoubleTapRadius,
	}
}
