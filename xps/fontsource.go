package xps

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

// ErrFontNotFound is returned by font sources that have no face for a request.
var ErrFontNotFound = errors.New("font not found")

// FontSource supplies the TrueType data of a typeface.
type FontSource interface {
	Font(family string, bold, italic bool) ([]byte, error)
}

// FontSourceFunc adapts a function to FontSource.
type FontSourceFunc func(family string, bold, italic bool) ([]byte, error)

func (f FontSourceFunc) Font(family string, bold, italic bool) ([]byte, error) {
	return f(family, bold, italic)
}

// GoFonts serves the Go font family for every request: Go Mono for monospaced
// family names, Go otherwise. It never fails.
var GoFonts FontSource = FontSourceFunc(goFont)

func goFont(family string, bold, italic bool) ([]byte, error) {
	f := strings.ToLower(family)
	mono := strings.Contains(f, "mono") || strings.Contains(f, "courier")
	switch {
	case mono && bold && italic:
		return gomonobolditalic.TTF, nil
	case mono && bold:
		return gomonobold.TTF, nil
	case mono && italic:
		return gomonoitalic.TTF, nil
	case mono:
		return gomono.TTF, nil
	case bold && italic:
		return gobolditalic.TTF, nil
	case bold:
		return gobold.TTF, nil
	case italic:
		return goitalic.TTF, nil
	}
	return goregular.TTF, nil
}

// MapFontSource serves fonts registered with Add.
type MapFontSource struct {
	fonts map[typefaceKey][]byte
}

func NewMapFontSource() *MapFontSource {
	return &MapFontSource{fonts: map[typefaceKey][]byte{}}
}

func (m *MapFontSource) Add(family string, bold, italic bool, data []byte) {
	m.fonts[typefaceKey{Family: strings.ToLower(family), Bold: bold, Italic: italic}] = data
}

func (m *MapFontSource) Font(family string, bold, italic bool) ([]byte, error) {
	if b, ok := m.fonts[typefaceKey{Family: strings.ToLower(family), Bold: bold, Italic: italic}]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrFontNotFound, typefaceKey{family, bold, italic})
}

// Len returns the number of registered faces.
func (m *MapFontSource) Len() int {
	return len(m.fonts)
}

// FallbackFontSource asks each source in turn and returns the first hit.
type FallbackFontSource []FontSource

func (s FallbackFontSource) Font(family string, bold, italic bool) ([]byte, error) {
	for _, src := range s {
		b, err := src.Font(family, bold, italic)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrFontNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFontNotFound, typefaceKey{family, bold, italic})
}

// NewDirFontSource indexes the .ttf and .otf files below dir by the family and
// style recorded in their name tables.
func NewDirFontSource(dir string) (*MapFontSource, error) {
	m := NewMapFontSource()
	var buf sfnt.Buffer
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		if d.IsDir() || (ext != ".ttf" && ext != ".otf") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		f, err := sfnt.Parse(data)
		if err != nil {
			// not a usable font, skip
			return nil
		}
		family, err := f.Name(&buf, sfnt.NameIDFamily)
		if err != nil || family == "" {
			return nil
		}
		style, _ := f.Name(&buf, sfnt.NameIDSubfamily)
		style = strings.ToLower(style)
		bold := strings.Contains(style, "bold")
		italic := strings.Contains(style, "italic") || strings.Contains(style, "oblique")
		m.Add(family, bold, italic, data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan font directory %s: %w", dir, err)
	}
	return m, nil
}
