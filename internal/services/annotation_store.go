package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plsfixthx/annotator/internal/geometry"
	"github.com/plsfixthx/annotator/internal/models"
)

var (
	ErrImageNotFound      = errors.New("image not found")
	ErrAnnotationNotFound = errors.New("annotation not found")
)

// AnnotationStore holds the images of one session and their annotations in
// insertion order. Every mutation touches a single record under the lock, so
// a failed call never leaves the store partially updated.
type AnnotationStore struct {
	mu          sync.RWMutex
	images      []*models.Image
	annotations map[uuid.UUID][]models.Annotation
	owner       map[uuid.UUID]uuid.UUID // annotation id -> image id
	onRemove    []func(annotationID uuid.UUID)
	now         func() time.Time
}

func NewAnnotationStore() *AnnotationStore {
	return &AnnotationStore{
		annotations: make(map[uuid.UUID][]models.Annotation),
		owner:       make(map[uuid.UUID]uuid.UUID),
		now:         time.Now,
	}
}

// OnRemove registers a callback invoked after an annotation is deleted,
// directly or through its image.
func (s *AnnotationStore) OnRemove(fn func(annotationID uuid.UUID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemove = append(s.onRemove, fn)
}

// AddImage appends an image. Its natural dimensions must already be known.
func (s *AnnotationStore) AddImage(img *models.Image) error {
	if !img.Loaded() {
		return fmt.Errorf("image %s has no natural dimensions", img.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if img.ID == uuid.Nil {
		img.ID = uuid.New()
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = s.now()
	}
	s.images = append(s.images, img)
	s.annotations[img.ID] = []models.Annotation{}
	return nil
}

// Images returns the images in insertion order.
func (s *AnnotationStore) Images() []*models.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Image, len(s.images))
	copy(out, s.images)
	return out
}

func (s *AnnotationStore) Image(id uuid.UUID) (*models.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img := s.findImage(id)
	return img, img != nil
}

func (s *AnnotationStore) findImage(id uuid.UUID) *models.Image {
	for _, img := range s.images {
		if img.ID == id {
			return img
		}
	}
	return nil
}

// Create appends a new annotation. A note that is empty after trimming is
// discarded: the call returns (nil, false, nil).
func (s *AnnotationStore) Create(imageID uuid.UUID, x, y float64, note string) (*models.Annotation, bool, error) {
	if strings.TrimSpace(note) == "" {
		return nil, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	img := s.findImage(imageID)
	if img == nil {
		return nil, false, fmt.Errorf("create annotation: %w", ErrImageNotFound)
	}
	a := models.Annotation{
		ID:        uuid.New(),
		ImageID:   imageID,
		X:         geometry.Clamp(x, 0, float64(img.NaturalWidth)),
		Y:         geometry.Clamp(y, 0, float64(img.NaturalHeight)),
		Note:      note,
		CreatedAt: s.now(),
	}
	s.annotations[imageID] = append(s.annotations[imageID], a)
	s.owner[a.ID] = imageID
	return &a, true, nil
}

// Move overwrites the position of an annotation.
func (s *AnnotationStore) Move(annotationID uuid.UUID, x, y float64) error {
	return s.update(annotationID, func(img *models.Image, a *models.Annotation) {
		a.X = geometry.Clamp(x, 0, float64(img.NaturalWidth))
		a.Y = geometry.Clamp(y, 0, float64(img.NaturalHeight))
	})
}

// ToggleCompleted flips the completed flag.
func (s *AnnotationStore) ToggleCompleted(annotationID uuid.UUID) error {
	return s.update(annotationID, func(_ *models.Image, a *models.Annotation) {
		a.Completed = !a.Completed
	})
}

// UpdateNote replaces the note text. Blank text is ignored.
func (s *AnnotationStore) UpdateNote(annotationID uuid.UUID, note string) error {
	if strings.TrimSpace(note) == "" {
		return nil
	}
	return s.update(annotationID, func(_ *models.Image, a *models.Annotation) {
		a.Note = note
	})
}

func (s *AnnotationStore) update(annotationID uuid.UUID, fn func(*models.Image, *models.Annotation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	imageID, ok := s.owner[annotationID]
	if !ok {
		return ErrAnnotationNotFound
	}
	list := s.annotations[imageID]
	for i := range list {
		if list[i].ID == annotationID {
			fn(s.findImage(imageID), &list[i])
			return nil
		}
	}
	return ErrAnnotationNotFound
}

// Lookup returns a copy of one annotation.
func (s *AnnotationStore) Lookup(annotationID uuid.UUID) (models.Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	imageID, ok := s.owner[annotationID]
	if !ok {
		return models.Annotation{}, false
	}
	for _, a := range s.annotations[imageID] {
		if a.ID == annotationID {
			return a, true
		}
	}
	return models.Annotation{}, false
}

// Delete removes one annotation.
func (s *AnnotationStore) Delete(annotationID uuid.UUID) error {
	s.mu.Lock()
	imageID, ok := s.owner[annotationID]
	if !ok {
		s.mu.Unlock()
		return ErrAnnotationNotFound
	}
	list := s.annotations[imageID]
	for i := range list {
		if list[i].ID == annotationID {
			s.annotations[imageID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	delete(s.owner, annotationID)
	listeners := s.onRemove
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(annotationID)
	}
	return nil
}

// DeleteImage removes an image together with all of its annotations.
func (s *AnnotationStore) DeleteImage(imageID uuid.UUID) error {
	s.mu.Lock()
	idx := -1
	for i, img := range s.images {
		if img.ID == imageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrImageNotFound
	}
	removed := s.annotations[imageID]
	s.images = append(s.images[:idx:idx], s.images[idx+1:]...)
	delete(s.annotations, imageID)
	for _, a := range removed {
		delete(s.owner, a.ID)
	}
	listeners := s.onRemove
	s.mu.Unlock()

	for _, a := range removed {
		for _, fn := range listeners {
			fn(a.ID)
		}
	}
	return nil
}

// ListFor returns the annotations of an image in insertion order. Unknown
// images yield an empty slice.
func (s *AnnotationStore) ListFor(imageID uuid.UUID) []models.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.annotations[imageID]
	out := make([]models.Annotation, len(list))
	copy(out, list)
	return out
}

// Count returns the number of images and annotations held.
func (s *AnnotationStore) Count() (images, annotations int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images), len(s.owner)
}

// Snapshot copies the session into export pages in image insertion order.
// Exporters work on the snapshot only.
func (s *AnnotationStore) Snapshot() []models.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages := make([]models.Page, 0, len(s.images))
	for _, img := range s.images {
		list := s.annotations[img.ID]
		anns := make([]models.Annotation, len(list))
		copy(anns, list)
		pages = append(pages, models.Page{Image: *img, Annotations: anns})
	}
	return pages
}
