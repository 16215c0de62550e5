package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plsfixthx/annotator/internal/config"
	"github.com/plsfixthx/annotator/internal/interaction"
	"github.com/plsfixthx/annotator/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is one annotation workspace: its images, annotations and the
// interaction state of the client editing it.
type Session struct {
	ID         uuid.UUID
	Store      *AnnotationStore
	Controller *interaction.Controller
	CreatedAt  time.Time

	mu       sync.Mutex
	lastSeen time.Time
	release  func()
}

// SessionSummary is the JSON view of a session.
type SessionSummary struct {
	ID          uuid.UUID            `json:"id"`
	CreatedAt   time.Time            `json:"created_at"`
	LastSeen    time.Time            `json:"last_seen"`
	Images      int                  `json:"image_count"`
	Annotations int                  `json:"annotation_count"`
	Pages       []models.Page        `json:"pages"`
	Interaction interaction.Snapshot `json:"interaction"`
}

func newSession(tuning interaction.Tuning, now time.Time) *Session {
	store := NewAnnotationStore()
	ctrl := interaction.NewController(store, tuning)
	// Selections must not outlive the annotation they point at.
	store.OnRemove(ctrl.Forget)
	return &Session{
		ID:         uuid.New(),
		Store:      store,
		Controller: ctrl,
		CreatedAt:  now,
		lastSeen:   now,
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// BindView shows a new image (or the same image at a new box) in the
// session's editor, dropping any transient state of the previous view.
func (s *Session) BindView(view interaction.ViewState) error {
	if _, ok := s.Store.Image(view.ImageID); !ok {
		return ErrImageNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release != nil {
		s.release()
	}
	s.release = s.Controller.Bind(view)
	return nil
}

// ReleaseView closes the editor view.
func (s *Session) ReleaseView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

// HandleEvent applies one client input event.
func (s *Session) HandleEvent(ev interaction.Event, now time.Time) (*models.Annotation, error) {
	switch ev.Type {
	case interaction.EventBind:
		return nil, s.BindView(ev.View())
	case interaction.EventRelease:
		s.ReleaseView()
		return nil, nil
	}
	return s.Controller.Apply(ev, now)
}

// RemoveImage deletes an image and its annotations. The view is released
// when it showed that image.
func (s *Session) RemoveImage(imageID uuid.UUID) error {
	if err := s.Store.DeleteImage(imageID); err != nil {
		return err
	}
	if snap := s.Controller.Snapshot(); snap.ViewOpen && snap.ImageID == imageID {
		s.ReleaseView()
	}
	return nil
}

func (s *Session) Summary() SessionSummary {
	images, annotations := s.Store.Count()
	return SessionSummary{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		LastSeen:    s.LastSeen(),
		Images:      images,
		Annotations: annotations,
		Pages:       s.Store.Snapshot(),
		Interaction: s.Controller.Snapshot(),
	}
}

// SessionService keeps sessions in memory. Sessions idle for longer than
// the TTL are removed by CleanupIdle.
type SessionService struct {
	sessions map[uuid.UUID]*Session
	mu       sync.RWMutex
	tuning   interaction.Tuning
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionService(cfg *config.Config) *SessionService {
	return &SessionService{
		sessions: make(map[uuid.UUID]*Session),
		tuning:   TuningFromConfig(cfg),
		ttl:      cfg.SessionIdleTTL,
		now:      time.Now,
	}
}

// TuningFromConfig overrides the default interaction thresholds with any
// configured values.
func TuningFromConfig(cfg *config.Config) interaction.Tuning {
	t := interaction.DefaultTuning()
	if cfg.MarkerRadius > 0 {
		t.MarkerRadius = cfg.MarkerRadius
	}
	if cfg.DragThreshold > 0 {
		t.DragThreshold = cfg.DragThreshold
	}
	if cfg.TapMoveThreshold > 0 {
		t.TapMoveThreshold = cfg.TapMoveThreshold
	}
	if cfg.TapMaxDuration > 0 {
		t.TapMaxDuration = cfg.TapMaxDuration
	}
	if cfg.DoubleTapWindow > 0 {
		t.DoubleTapWindow = cfg.DoubleTapWindow
	}
	if cfg.DoubleTapRadius > 0 {
		t.DoubleTapRadius = cfg.DoubleTapRadius
	}
	return t
}

func (s *SessionService) Create() *Session {
	sess := newSession(s.tuning, s.now())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess
}

// Get returns the session and marks it as used.
func (s *SessionService) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	sess, exists := s.sessions[id]
	s.mu.RUnlock()
	if !exists {
		return nil, ErrSessionNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

func (s *SessionService) Delete(id uuid.UUID) error {
	s.mu.Lock()
	sess, exists := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !exists {
		return ErrSessionNotFound
	}
	sess.ReleaseView()
	return nil
}

func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartSweeper runs CleanupIdle every interval until ctx ends. It reports
// false and starts nothing when interval is not positive.
func (s *SessionService) StartSweeper(ctx context.Context, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if expired := s.CleanupIdle(); expired > 0 {
					log.Printf("[session] cleanup: removed %d idle sessions", expired)
				}
			}
		}
	}()
	return true
}

// CleanupIdle removes sessions not used within the TTL and returns how many
// were removed.
func (s *SessionService) CleanupIdle() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	var expired []*Session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.ReleaseView()
		log.Printf("[session] expired %s after %s idle", sess.ID, s.ttl)
	}
	return len(expired)
}
