// Package ttf builds TrueType subsets for embedding into fixed page documents.
package ttf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"slices"

	"github.com/bits-and-blooms/bitset"
)

type tag uint32

func (t tag) String() string {
	buf := [4]byte{}
	binary.BigEndian.PutUint32(buf[:], uint32(t))
	return string(buf[:])
}

const (
	tagCmap tag = 0x636d6170 // 'cmap'
	tagCvt  tag = 0x63767420 // 'cvt '
	tagFpgm tag = 0x6670676d // 'fpgm'
	tagGasp tag = 0x67617370 // 'gasp'
	tagGlyf tag = 0x676c7966 // 'glyf'
	tagHead tag = 0x68656164 // 'head'
	tagHhea tag = 0x68686561 // 'hhea'
	tagHmtx tag = 0x686d7478 // 'hmtx'
	tagLoca tag = 0x6c6f6361 // 'loca'
	tagMaxp tag = 0x6d617870 // 'maxp'
	tagName tag = 0x6e616d65 // 'name'
	tagOs2  tag = 0x4f532f32 // 'OS/2'
	tagPost tag = 0x706f7374 // 'post'
	tagPrep tag = 0x70726570 // 'prep'
)

// Tables copied into a subset unchanged.
var copiedTables = []tag{tagCvt, tagFpgm, tagGasp, tagName, tagOs2, tagPrep}

var (
	ErrNotTrueType  = errors.New("not a TrueType outline font")
	ErrMissingTable = errors.New("missing required table")
	ErrMalformed    = errors.New("malformed font data")
)

// Composite glyph component flags.
const (
	flagArg1And2AreWords   = 0x0001
	flagWeHaveAScale       = 0x0008
	flagMoreComponents     = 0x0020
	flagWeHaveAnXAndYScale = 0x0040
	flagWeHaveATwoByTwo    = 0x0080
)

// Slot maps a character to the source glyph that renders it. The glyph of the
// i-th slot becomes glyph i+1 of the subset; glyph 0 stays .notdef.
type Slot struct {
	Char  rune
	Glyph uint16
}

type Table struct {
	Ptr uint32
	Len uint32
}

func (t Table) lenPadded() uint32 {
	return (t.Len + 3) &^ 3
}

type font struct {
	buf    []byte
	tables map[tag]Table

	glyphCount  uint16
	metricCount uint16
	locaFormat  int16
}

func (f *font) table(t tag) []byte {
	tb, ok := f.tables[t]
	if !ok {
		return nil
	}
	return f.buf[tb.Ptr : tb.Ptr+tb.Len]
}

// https://developer.apple.com/fonts/TrueType-Reference-Manual/RM06/Chap6.html
func parse(src []byte) (*font, error) {
	if len(src) < 12 {
		return nil, ErrMalformed
	}
	switch binary.BigEndian.Uint32(src) {
	case 0x7472_7565: // 'true'
	case 0x0001_0000:
	default:
		return nil, ErrNotTrueType
	}

	f := &font{buf: src, tables: map[tag]Table{}}
	count := int(binary.BigEndian.Uint16(src[4:]))
	if len(src) < 12+16*count {
		return nil, ErrMalformed
	}
	for i := 0; i < count; i++ {
		rec := src[12+16*i:]
		t := tag(binary.BigEndian.Uint32(rec))
		tb := Table{
			Ptr: binary.BigEndian.Uint32(rec[8:]),
			Len: binary.BigEndian.Uint32(rec[12:]),
		}
		if uint64(tb.Ptr)+uint64(tb.Len) > uint64(len(src)) {
			return nil, fmt.Errorf("%w: table %s out of bounds", ErrMalformed, t)
		}
		f.tables[t] = tb
	}

	for _, t := range []tag{tagHead, tagHhea, tagMaxp, tagHmtx, tagLoca, tagGlyf} {
		if _, ok := f.tables[t]; !ok {
			if t == tagGlyf || t == tagLoca {
				return nil, ErrNotTrueType
			}
			return nil, fmt.Errorf("%w: %s", ErrMissingTable, t)
		}
	}

	head, hhea, maxp := f.table(tagHead), f.table(tagHhea), f.table(tagMaxp)
	if len(head) < 54 || len(hhea) < 36 || len(maxp) < 6 {
		return nil, ErrMalformed
	}
	f.locaFormat = int16(binary.BigEndian.Uint16(head[50:]))
	f.metricCount = binary.BigEndian.Uint16(hhea[34:])
	f.glyphCount = binary.BigEndian.Uint16(maxp[4:])
	if f.metricCount == 0 || f.metricCount > f.glyphCount {
		return nil, fmt.Errorf("%w: bad metric count", ErrMalformed)
	}
	return f, nil
}

// HasOutlines reports whether src is a TrueType font with glyf outlines that
// Subset can process.
func HasOutlines(src []byte) bool {
	_, err := parse(src)
	return err == nil
}

func (f *font) glyph(gid uint16) []byte {
	if gid >= f.glyphCount {
		return nil
	}
	loca := f.table(tagLoca)
	var start, end uint32
	if f.locaFormat == 0 {
		if len(loca) < 2*int(gid)+4 {
			return nil
		}
		start = uint32(binary.BigEndian.Uint16(loca[2*uint32(gid):])) * 2
		end = uint32(binary.BigEndian.Uint16(loca[2*uint32(gid)+2:])) * 2
	} else {
		if len(loca) < 4*int(gid)+8 {
			return nil
		}
		start = binary.BigEndian.Uint32(loca[4*uint32(gid):])
		end = binary.BigEndian.Uint32(loca[4*uint32(gid)+4:])
	}
	glyf := f.table(tagGlyf)
	if end < start || end > uint32(len(glyf)) {
		return nil
	}
	return glyf[start:end]
}

func (f *font) metrics(gid uint16) (advance, lsb uint16) {
	hmtx := f.table(tagHmtx)
	n := f.metricCount
	if gid < n {
		if len(hmtx) >= 4*int(gid)+4 {
			return binary.BigEndian.Uint16(hmtx[4*uint32(gid):]), binary.BigEndian.Uint16(hmtx[4*uint32(gid)+2:])
		}
		return 0, 0
	}
	if len(hmtx) >= 4*int(n) {
		advance = binary.BigEndian.Uint16(hmtx[4*uint32(n-1):])
	}
	off := 4*uint32(n) + 2*uint32(gid-n)
	if uint32(len(hmtx)) >= off+2 {
		lsb = binary.BigEndian.Uint16(hmtx[off:])
	}
	return
}

// components calls fn with the offset of every component glyph id inside a
// composite glyph. Simple glyphs have no components.
func components(g []byte, fn func(off int)) {
	if len(g) < 10 || int16(binary.BigEndian.Uint16(g)) >= 0 {
		return
	}
	pos := 10
	for pos+4 <= len(g) {
		flags := binary.BigEndian.Uint16(g[pos:])
		fn(pos + 2)
		pos += 4
		if flags&flagArg1And2AreWords != 0 {
			pos += 4
		} else {
			pos += 2
		}
		switch {
		case flags&flagWeHaveAScale != 0:
			pos += 2
		case flags&flagWeHaveAnXAndYScale != 0:
			pos += 4
		case flags&flagWeHaveATwoByTwo != 0:
			pos += 8
		}
		if flags&flagMoreComponents == 0 {
			break
		}
	}
}

// Subset returns a TrueType font holding .notdef, one glyph per slot in slot
// order and any components those glyphs reference. Its cmap maps the slot
// characters of the Basic Multilingual Plane to their new glyph ids.
func Subset(src []byte, slots []Slot) ([]byte, error) {
	f, err := parse(src)
	if err != nil {
		return nil, err
	}

	glyphs := make([]uint16, 0, len(slots)+1)
	glyphs = append(glyphs, 0)
	for _, s := range slots {
		glyphs = append(glyphs, s.Glyph)
	}

	// first new id of every source glyph, used to remap components
	first := map[uint16]uint16{}
	var seen bitset.BitSet
	for i, g := range glyphs {
		if !seen.Test(uint(g)) {
			seen.Set(uint(g))
			first[g] = uint16(i)
		}
	}
	for i := 0; i < len(glyphs); i++ {
		data := f.glyph(glyphs[i])
		components(data, func(off int) {
			c := binary.BigEndian.Uint16(data[off:])
			if !seen.Test(uint(c)) {
				seen.Set(uint(c))
				first[c] = uint16(len(glyphs))
				glyphs = append(glyphs, c)
			}
		})
	}
	if len(glyphs) > 0xffff {
		return nil, fmt.Errorf("%w: too many glyphs", ErrMalformed)
	}

	out := map[tag][]byte{}

	// glyf + loca (long offsets)
	var glyf []byte
	loca := make([]byte, 4*(len(glyphs)+1))
	for i, g := range glyphs {
		binary.BigEndian.PutUint32(loca[4*i:], uint32(len(glyf)))
		start := len(glyf)
		glyf = append(glyf, f.glyph(g)...)
		data := glyf[start:]
		components(data, func(off int) {
			c := binary.BigEndian.Uint16(data[off:])
			binary.BigEndian.PutUint16(data[off:], first[c])
		})
		for len(glyf)%4 != 0 {
			glyf = append(glyf, 0)
		}
	}
	binary.BigEndian.PutUint32(loca[4*len(glyphs):], uint32(len(glyf)))
	out[tagGlyf] = glyf
	out[tagLoca] = loca

	// hmtx: one full metric per glyph
	hmtx := make([]byte, 4*len(glyphs))
	for i, g := range glyphs {
		adv, lsb := f.metrics(g)
		binary.BigEndian.PutUint16(hmtx[4*i:], adv)
		binary.BigEndian.PutUint16(hmtx[4*i+2:], lsb)
	}
	out[tagHmtx] = hmtx

	head := slices.Clone(f.table(tagHead))
	binary.BigEndian.PutUint32(head[8:], 0) // checkSumAdjustment
	binary.BigEndian.PutUint16(head[50:], 1)
	out[tagHead] = head

	hhea := slices.Clone(f.table(tagHhea))
	binary.BigEndian.PutUint16(hhea[34:], uint16(len(glyphs)))
	out[tagHhea] = hhea

	maxp := slices.Clone(f.table(tagMaxp))
	binary.BigEndian.PutUint16(maxp[4:], uint16(len(glyphs)))
	out[tagMaxp] = maxp

	out[tagPost] = genPost(f.table(tagPost))
	out[tagCmap] = genCmap(slots)

	for _, t := range copiedTables {
		if b := f.table(t); b != nil {
			out[t] = b
		}
	}

	return assemble(out), nil
}

// https://developer.apple.com/fonts/TrueType-Reference-Manual/RM06/Chap6post.html
func genPost(src []byte) []byte {
	post := make([]byte, 32)
	binary.BigEndian.PutUint32(post, 0x00030000) // Format 3.0
	if len(src) >= 16 {
		// italicAngle, underlinePosition, underlineThickness, isFixedPitch
		copy(post[4:16], src[4:16])
	}
	return post
}

type cmapSegment struct {
	start, end uint16
	delta      uint16 // modulo 0x10000
}

// genCmap writes a format 4 subtable referenced from both the Unicode and the
// Windows Unicode BMP encoding records.
// https://developer.apple.com/fonts/TrueType-Reference-Manual/RM06/Chap6cmap.html
func genCmap(slots []Slot) []byte {
	var chars bitset.BitSet
	ids := map[uint16]uint16{}
	for i, s := range slots {
		if s.Char < 0 || s.Char >= 0xffff {
			continue
		}
		c := uint16(s.Char)
		if !chars.Test(uint(c)) {
			chars.Set(uint(c))
			ids[c] = uint16(i + 1)
		}
	}

	var segs []cmapSegment
	for c, ok := chars.NextSet(0); ok; c, ok = chars.NextSet(c + 1) {
		char := uint16(c)
		id := ids[char]
		if n := len(segs); n > 0 {
			last := &segs[n-1]
			if char == last.end+1 && id == last.end+1+last.delta {
				last.end = char
				continue
			}
		}
		segs = append(segs, cmapSegment{start: char, end: char, delta: id - char})
	}
	segs = append(segs, cmapSegment{start: 0xffff, end: 0xffff, delta: 1})

	segCount := len(segs)
	entrySelector := bits.Len(uint(segCount)) - 1
	searchRange := 2 << entrySelector

	sub := make([]byte, 16+8*segCount)
	binary.BigEndian.PutUint16(sub[0:], 4)
	binary.BigEndian.PutUint16(sub[2:], uint16(len(sub)))
	binary.BigEndian.PutUint16(sub[4:], 0) // language
	binary.BigEndian.PutUint16(sub[6:], uint16(2*segCount))
	binary.BigEndian.PutUint16(sub[8:], uint16(searchRange))
	binary.BigEndian.PutUint16(sub[10:], uint16(entrySelector))
	binary.BigEndian.PutUint16(sub[12:], uint16(2*segCount-searchRange))
	ends := sub[14:]
	starts := sub[16+2*segCount:]
	deltas := starts[2*segCount:]
	// idRangeOffset stays zero
	for i, s := range segs {
		binary.BigEndian.PutUint16(ends[2*i:], s.end)
		binary.BigEndian.PutUint16(starts[2*i:], s.start)
		binary.BigEndian.PutUint16(deltas[2*i:], s.delta)
	}

	const headerLen = 4 + 2*8
	cmap := make([]byte, headerLen, headerLen+len(sub))
	binary.BigEndian.PutUint16(cmap[2:], 2) // numTables
	binary.BigEndian.PutUint16(cmap[4:], 0) // Unicode
	binary.BigEndian.PutUint16(cmap[6:], 3) // BMP
	binary.BigEndian.PutUint32(cmap[8:], headerLen)
	binary.BigEndian.PutUint16(cmap[12:], 3) // Windows
	binary.BigEndian.PutUint16(cmap[14:], 1) // Unicode BMP
	binary.BigEndian.PutUint32(cmap[16:], headerLen)
	return append(cmap, sub...)
}

func checksum(b []byte) uint32 {
	var sum uint32
	for i := 0; i < len(b); i += 4 {
		var word [4]byte
		copy(word[:], b[i:])
		sum += binary.BigEndian.Uint32(word[:])
	}
	return sum
}

// assemble lays out the tables behind a sorted table directory and fixes up
// the head checksum adjustment.
func assemble(tables map[tag][]byte) []byte {
	tags := make([]tag, 0, len(tables))
	for t := range tables {
		tags = append(tags, t)
	}
	slices.Sort(tags)

	n := len(tags)
	entrySelector := bits.Len(uint(n)) - 1
	searchRange := 16 << entrySelector

	size := 12 + 16*n
	for _, t := range tags {
		size += int(Table{Len: uint32(len(tables[t]))}.lenPadded())
	}
	out := make([]byte, 12+16*n, size)
	binary.BigEndian.PutUint32(out[0:], 0x0001_0000)
	binary.BigEndian.PutUint16(out[4:], uint16(n))
	binary.BigEndian.PutUint16(out[6:], uint16(searchRange))
	binary.BigEndian.PutUint16(out[8:], uint16(entrySelector))
	binary.BigEndian.PutUint16(out[10:], uint16(16*n-searchRange))

	var headPtr uint32
	for i, t := range tags {
		data := tables[t]
		ptr := uint32(len(out))
		if t == tagHead {
			headPtr = ptr
		}
		out = append(out, data...)
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
		rec := out[12+16*i:]
		binary.BigEndian.PutUint32(rec[0:], uint32(t))
		binary.BigEndian.PutUint32(rec[4:], checksum(data))
		binary.BigEndian.PutUint32(rec[8:], ptr)
		binary.BigEndian.PutUint32(rec[12:], uint32(len(data)))
	}

	binary.BigEndian.PutUint32(out[headPtr+8:], 0xb1b0afba-checksum(out))
	return out
}
