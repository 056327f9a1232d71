package xps

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/bits-and-blooms/bitset"
	"github.com/google/uuid"
	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/adnsv/go-xps/ttf"
)

const relRequiredResource = "http://schemas.microsoft.com/xps/2005/06/required-resource"

// fontTracer writes to trace with key 'xps.fonts'
func fontTracer() tracing.Trace {
	return tracing.Select("xps.fonts")
}

// FontResource is one embedded typeface: a (family, bold, italic) combination
// together with the characters drawn with it so far.
type FontResource struct {
	key     typefaceKey
	current Typeface // descriptor of the latest request
	guid    uuid.UUID
	path    string

	data   []byte
	face   *sfnt.Font
	subset bool

	used  bitset.BitSet   // characters registered so far
	slots map[rune]uint16 // character to 1-based slot
	order []ttf.Slot      // slot n is order[n-1]
}

// Path returns the package part name of the obfuscated font.
func (r *FontResource) Path() string { return r.path }

// Typeface returns the descriptor of the latest request for this resource.
func (r *FontResource) Typeface() Typeface { return r.current }

// Characters returns the registered characters in ascending order.
func (r *FontResource) Characters() []rune {
	out := make([]rune, 0, r.used.Count())
	for i, ok := r.used.NextSet(0); ok; i, ok = r.used.NextSet(i + 1) {
		out = append(out, rune(i))
	}
	return out
}

// TypefaceRegistry deduplicates typefaces by family and style and remaps the
// characters of each into a compact glyph space.
type TypefaceRegistry struct {
	source    FontSource
	fullFonts bool

	fonts map[typefaceKey]*FontResource
	list  []*FontResource // in order of first resolution
	buf   sfnt.Buffer
}

func NewTypefaceRegistry(src FontSource, fullFonts bool) *TypefaceRegistry {
	if src == nil {
		src = GoFonts
	}
	return &TypefaceRegistry{
		source:    src,
		fullFonts: fullFonts,
		fonts:     map[typefaceKey]*FontResource{},
	}
}

// Len returns the number of distinct typefaces resolved so far.
func (tr *TypefaceRegistry) Len() int {
	return len(tr.list)
}

// Resolve returns the resource for t, creating it on first use. A repeated
// request replaces the resource's current descriptor.
func (tr *TypefaceRegistry) Resolve(t Typeface) (*FontResource, bool, error) {
	t = t.orDefault()
	k := t.key()
	if res, ok := tr.fonts[k]; ok {
		res.current = t
		return res, false, nil
	}

	data, err := tr.source.Font(t.Family, t.Bold, t.Italic)
	if err != nil {
		return nil, false, fmt.Errorf("resolve typeface %s: %w", k, err)
	}
	face, err := sfnt.Parse(data)
	if err != nil {
		return nil, false, fmt.Errorf("parse typeface %s: %w", k, err)
	}

	guid := BlobHash(k.hashKey())
	res := &FontResource{
		key:     k,
		current: t,
		guid:    guid,
		path:    "/Resources/" + strings.ToUpper(guid.String()) + ".odttf",
		data:    data,
		face:    face,
		subset:  !tr.fullFonts && ttf.HasOutlines(data),
		slots:   map[rune]uint16{},
	}
	tr.fonts[k] = res
	tr.list = append(tr.list, res)
	fontTracer().Debugf("typeface %s resolved as %s, subset=%v", k, res.path, res.subset)
	return res, true, nil
}

// RegisterCharacters adds the characters of text to the resource and returns
// their slots in drawing order. Registering the same text again yields the
// same slots. Right-to-left text is returned reversed.
func (tr *TypefaceRegistry) RegisterCharacters(res *FontResource, text string, rtl bool) []uint16 {
	out := make([]uint16, 0, len(text))
	for _, ch := range text {
		if !res.used.Test(uint(ch)) {
			gid, err := res.face.GlyphIndex(&tr.buf, ch)
			if err != nil {
				gid = 0
			}
			res.used.Set(uint(ch))
			res.order = append(res.order, ttf.Slot{Char: ch, Glyph: uint16(gid)})
			res.slots[ch] = uint16(len(res.order))
		}
		out = append(out, res.slots[ch])
	}
	if rtl {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// GlyphIndexes formats slots as the Indices attribute of a glyph run. Fonts
// embedded whole are addressed by their own glyph ids.
func (tr *TypefaceRegistry) GlyphIndexes(res *FontResource, slots []uint16) string {
	var sb strings.Builder
	for i, s := range slots {
		if i > 0 {
			sb.WriteByte(';')
		}
		id := s
		if !res.subset && s > 0 && int(s) <= len(res.order) {
			id = res.order[s-1].Glyph
		}
		sb.WriteString(strconv.Itoa(int(id)))
	}
	return sb.String()
}

// LineHeight returns the line spacing of the resource's current descriptor in
// page units.
func (tr *TypefaceRegistry) LineHeight(res *FontResource) float64 {
	return tr.lineHeight(res, res.current)
}

func (tr *TypefaceRegistry) lineHeight(res *FontResource, t Typeface) float64 {
	if t.Height > 0 {
		return t.Height
	}
	ppem := t.Size * 96 / 72
	m, err := res.face.Metrics(&tr.buf, fixed.Int26_6(ppem*64), font.HintingNone)
	if err != nil {
		return ppem
	}
	return float64(m.Height) / 64
}

// ExportAll writes every typeface with at least one registered character into
// the package as an obfuscated font part.
func (tr *TypefaceRegistry) ExportAll(p *Package) error {
	for _, res := range tr.list {
		if len(res.order) == 0 {
			continue
		}
		var blob []byte
		if res.subset {
			b, err := ttf.Subset(res.data, res.order)
			if err != nil {
				return fmt.Errorf("subset typeface %s: %w", res.key, err)
			}
			blob = b
		} else {
			blob = append([]byte(nil), res.data...)
		}
		Obfuscate(blob, res.guid)
		if err := p.addTypeface(res.path, blob); err != nil {
			return err
		}
		fontTracer().Debugf("typeface %s embedded: %d glyphs, %d bytes", res.key, len(res.order), len(blob))
	}
	return nil
}

// isBlank reports whether text has nothing to draw.
func isBlank(text string) bool {
	for _, ch := range text {
		if !unicode.IsSpace(ch) {
			return false
		}
	}
	return true
}
