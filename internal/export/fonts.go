package export

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	fontsOnce   sync.Once
	regularFont *opentype.Font
	boldFont    *opentype.Font
	fontsErr    error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		regularFont, fontsErr = opentype.Parse(goregular.TTF)
		if fontsErr != nil {
			fontsErr = fmt.Errorf("parse regular font: %w", fontsErr)
			return
		}
		boldFont, fontsErr = opentype.Parse(gobold.TTF)
		if fontsErr != nil {
			fontsErr = fmt.Errorf("parse bold font: %w", fontsErr)
		}
	})
	return fontsErr
}

// faceSet holds the faces of one render. opentype faces are not safe for
// concurrent use, so every render builds its own.
type faceSet struct {
	text   font.Face
	header font.Face
	title  font.Face
	glyph  font.Face
	small  font.Face
}

func newFaceSet(st Style, scale float64) (*faceSet, error) {
	if err := loadFonts(); err != nil {
		return nil, err
	}
	mk := func(f *opentype.Font, size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{Size: size * scale, DPI: 72, Hinting: font.HintingFull})
	}
	fs := &faceSet{}
	specs := []struct {
		dst  *font.Face
		f    *opentype.Font
		size float64
	}{
		{&fs.text, regularFont, st.FontSize},
		{&fs.header, boldFont, st.HeaderSize},
		{&fs.title, boldFont, st.TitleSize},
		{&fs.glyph, boldFont, st.MarkerRadius},
		{&fs.small, regularFont, st.FontSize - 2},
	}
	for _, sp := range specs {
		face, err := mk(sp.f, sp.size)
		if err != nil {
			fs.Close()
			return nil, fmt.Errorf("font face: %w", err)
		}
		*sp.dst = face
	}
	return fs, nil
}

func (fs *faceSet) Close() {
	for _, f := range []font.Face{fs.text, fs.header, fs.title, fs.glyph, fs.small} {
		if f != nil {
			f.Close()
		}
	}
}
