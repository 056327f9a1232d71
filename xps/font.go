package xps

// Typeface describes the font of a text run as measured by the layout engine.
// Only Family, Bold and Italic identify an embedded typeface; the remaining
// fields are metrics and decorations of the individual run.
type Typeface struct {
	Family    string  // Font family name
	Size      float64 // Font size in points
	Bold      bool    // Bold face
	Italic    bool    // Italic face
	Underline bool    // Underline decoration
	Strikeout bool    // Strikeout decoration

	// Height is the line height in page units. When 0 it is derived from the
	// font's own metrics.
	Height float64
}

// DefaultTypeface is used for text objects that do not name a family.
var DefaultTypeface = Typeface{Family: "Arial", Size: 10}

// IsDefault returns true if the typeface has no custom properties set.
func (t *Typeface) IsDefault() bool {
	return t.Family == "" && t.Size == 0 && !t.Bold && !t.Italic &&
		!t.Underline && !t.Strikeout && t.Height == 0
}

func (t Typeface) orDefault() Typeface {
	if t.Family == "" {
		t.Family = DefaultTypeface.Family
	}
	if t.Size == 0 {
		t.Size = DefaultTypeface.Size
	}
	return t
}

func (t Typeface) key() typefaceKey {
	return typefaceKey{Family: t.Family, Bold: t.Bold, Italic: t.Italic}
}

// typefaceKey identifies one embedded typeface resource.
type typefaceKey struct {
	Family string
	Bold   bool
	Italic bool
}

func (k typefaceKey) String() string {
	s := k.Family
	switch {
	case k.Bold && k.Italic:
		s += " bold italic"
	case k.Bold:
		s += " bold"
	case k.Italic:
		s += " italic"
	}
	return s
}

// hashKey encodes k without ambiguity: the family bytes, a NUL, then one byte
// each for bold and italic.
func (k typefaceKey) hashKey() []byte {
	b := make([]byte, 0, len(k.Family)+3)
	b = append(b, k.Family...)
	b = append(b, 0)
	for _, on := range []bool{k.Bold, k.Italic} {
		if on {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	}
	return b
}
