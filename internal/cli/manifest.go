package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/plsfixthx/annotator/internal/geometry"
	"github.com/plsfixthx/annotator/internal/services"
	"gopkg.in/yaml.v3"
)

// Manifest describes a session on disk: screenshots and their notes.
type Manifest struct {
	Name   string          `yaml:"name"`
	Images []ManifestImage `yaml:"images"`

	dir string
}

type ManifestImage struct {
	Path        string               `yaml:"path"`
	Annotations []ManifestAnnotation `yaml:"annotations"`
}

// ManifestAnnotation is placed either in natural pixels (x, y) or in
// percentages of the image (x_pct, y_pct).
type ManifestAnnotation struct {
	X         *float64 `yaml:"x"`
	Y         *float64 `yaml:"y"`
	XPct      *float64 `yaml:"x_pct"`
	YPct      *float64 `yaml:"y_pct"`
	Note      string   `yaml:"note"`
	Completed bool     `yaml:"completed"`
}

// LoadManifest reads a YAML manifest. Image paths are relative to it.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Images) == 0 {
		return nil, errors.New("manifest lists no images")
	}
	m.dir = filepath.Dir(path)
	return &m, nil
}

func (a ManifestAnnotation) position(w, h int) (float64, float64, error) {
	switch {
	case a.X != nil && a.Y != nil:
		return *a.X, *a.Y, nil
	case a.XPct != nil && a.YPct != nil:
		x, y := geometry.FromPercent(*a.XPct, *a.YPct, w, h)
		return x, y, nil
	}
	return 0, 0, errors.New("needs x and y or x_pct and y_pct")
}

// Populate ingests the manifest's images into store and places their
// annotations. Blank notes are skipped like in the editor.
func (m *Manifest) Populate(images *services.ImageService, store *services.AnnotationStore) error {
	for i, mi := range m.Images {
		path := mi.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("image %d: %w", i+1, err)
		}
		img, err := images.Ingest(store, filepath.Base(path), data)
		if err != nil {
			return fmt.Errorf("image %d (%s): %w", i+1, mi.Path, err)
		}
		for j, ma := range mi.Annotations {
			x, y, err := ma.position(img.NaturalWidth, img.NaturalHeight)
			if err != nil {
				return fmt.Errorf("image %d annotation %d: %w", i+1, j+1, err)
			}
			a, created, err := store.Create(img.ID, x, y, ma.Note)
			if err != nil {
				return fmt.Errorf("image %d annotation %d: %w", i+1, j+1, err)
			}
			if created && ma.Completed {
				if err := store.ToggleCompleted(a.ID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
