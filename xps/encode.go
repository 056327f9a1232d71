package xps

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Unit multipliers of the fixed page coordinate space.
const (
	// MetricMultiplier converts page millimetres into page units (1/96 inch).
	MetricMultiplier = 3.776

	// FontMultiplier converts a point size into a glyph em size in page units.
	FontMultiplier = 1.32805
)

// Float formats v using the invariant culture: '.' as the decimal separator,
// no grouping and no exponent. Values are rounded to float32 precision first so
// that accumulated float64 noise never leaks into the markup.
func Float(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	s := strconv.FormatFloat(float64(float32(v)), 'f', -1, 32)
	if s == "-0" {
		return "0"
	}
	return s
}

// Point formats a coordinate pair as "x,y".
func Point(x, y float64) string {
	return Float(x) + "," + Float(y)
}

// AlphaColor formats c as #aarrggbb.
func AlphaColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.A, c.R, c.G, c.B)
}

// RGBColor formats c as #rrggbb, dropping the alpha channel.
func RGBColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// DashArray returns the StrokeDashArray value for s, or "" for solid strokes.
func DashArray(s LineStyle) string {
	switch s {
	case LineStyleDot:
		return "1.0 1.0"
	case LineStyleDash:
		return "2.75 1.0"
	case LineStyleDashDot:
		return "2.75 1.0 1.0 1.0"
	case LineStyleDashDotDot:
		return "2.75 1.0 1.0 1.0 1.0 1.0"
	}
	return ""
}

// pathData builds abbreviated path geometry ("M x,y L x,y H x V y A ... z").
type pathData struct {
	sb strings.Builder
}

func (p *pathData) op(s string) *pathData {
	if p.sb.Len() > 0 {
		p.sb.WriteByte(' ')
	}
	p.sb.WriteString(s)
	return p
}

// FillRule prefixes the geometry with the nonzero fill rule marker.
func (p *pathData) FillRule() *pathData {
	return p.op("F1")
}

func (p *pathData) MoveTo(x, y float64) *pathData {
	return p.op("M " + Point(x, y))
}

// LineTo starts a polyline segment through all given points.
func (p *pathData) LineTo(pts ...float64) *pathData {
	p.op("L")
	for i := 0; i+1 < len(pts); i += 2 {
		p.op(Point(pts[i], pts[i+1]))
	}
	return p
}

func (p *pathData) H(x float64) *pathData {
	return p.op("H " + Float(x))
}

func (p *pathData) V(y float64) *pathData {
	return p.op("V " + Float(y))
}

func (p *pathData) Arc(rx, ry float64, large, sweep bool, x, y float64) *pathData {
	return p.op(fmt.Sprintf("A %s 0 %d %d %s", Point(rx, ry), b2i(large), b2i(sweep), Point(x, y)))
}

func (p *pathData) Close() *pathData {
	return p.op("z")
}

func (p *pathData) String() string {
	return p.sb.String()
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
