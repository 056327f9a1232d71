package main

import (
	"fmt"
	"strings"

	"github.com/adnsv/go-xps/xps"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// layouter places plain text into words using the advances of the fonts the
// exporter will embed. It handles one line per paragraph and no wrapping.
type layouter struct {
	src   xps.FontSource
	fonts map[fontKey]*sfnt.Font
	buf   sfnt.Buffer
}

type fontKey struct {
	family       string
	bold, italic bool
}

func newLayouter(src xps.FontSource) *layouter {
	return &layouter{src: src, fonts: map[fontKey]*sfnt.Font{}}
}

func withDefaults(t xps.Typeface) xps.Typeface {
	if t.Family == "" {
		t.Family = xps.DefaultTypeface.Family
	}
	if t.Size == 0 {
		t.Size = xps.DefaultTypeface.Size
	}
	return t
}

func (l *layouter) face(t xps.Typeface) (*sfnt.Font, error) {
	k := fontKey{strings.ToLower(t.Family), t.Bold, t.Italic}
	if f, ok := l.fonts[k]; ok {
		return f, nil
	}
	data, err := l.src.Font(t.Family, t.Bold, t.Italic)
	if err != nil {
		return nil, fmt.Errorf("font %q: %w", t.Family, err)
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("font %q: %w", t.Family, err)
	}
	l.fonts[k] = f
	return f, nil
}

func ppem(t xps.Typeface) fixed.Int26_6 {
	return fixed.Int26_6(t.Size * xps.FontMultiplier * 64)
}

// advance returns the width of s in page units.
func (l *layouter) advance(f *sfnt.Font, size fixed.Int26_6, s string) float64 {
	var w fixed.Int26_6
	for _, r := range s {
		gid, err := f.GlyphIndex(&l.buf, r)
		if err != nil {
			continue
		}
		a, err := f.GlyphAdvance(&l.buf, gid, size, font.HintingNone)
		if err != nil {
			continue
		}
		w += a
	}
	return float64(w) / 64
}

// lineHeight returns the distance between consecutive lines in page units.
func (l *layouter) lineHeight(t xps.Typeface) (float64, error) {
	t = withDefaults(t)
	f, err := l.face(t)
	if err != nil {
		return 0, err
	}
	m, err := f.Metrics(&l.buf, ppem(t), font.HintingNone)
	if err != nil {
		return 0, fmt.Errorf("font %q: %w", t.Family, err)
	}
	return float64(m.Height) / 64, nil
}

// Layout splits text into one paragraph per input line and positions the
// words of each line within a box of the given width.
func (l *layouter) Layout(t xps.Typeface, text string, width float64, align xps.HorzAlign) ([]xps.Paragraph, error) {
	t = withDefaults(t)
	f, err := l.face(t)
	if err != nil {
		return nil, err
	}
	lh, err := l.lineHeight(t)
	if err != nil {
		return nil, err
	}
	size := ppem(t)
	space := l.advance(f, size, " ")

	var paras []xps.Paragraph
	for i, src := range strings.Split(text, "\n") {
		var line xps.Line
		x := 0.0
		for _, w := range strings.Fields(src) {
			adv := l.advance(f, size, w)
			line.Words = append(line.Words, xps.Word{
				Text:  w,
				Left:  x,
				Top:   float64(i) * lh,
				Width: adv,
			})
			x += adv + space
		}

		if n := len(line.Words); n > 0 {
			used := line.Words[n-1].Left + line.Words[n-1].Width
			var shift float64
			switch align {
			case xps.HorzAlignCenter:
				shift = (width - used) / 2
			case xps.HorzAlignRight:
				shift = width - used
			}
			for j := range line.Words {
				line.Words[j].Left += shift
			}
		}
		paras = append(paras, xps.Paragraph{Lines: []xps.Line{line}})
	}
	return paras, nil
}
