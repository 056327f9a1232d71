package xps

import (
	"image/color"
	"math"
	"strings"
)

// glyphRun is one styled piece of text ready to be placed on a page. Left and
// Top are absolute page coordinates of the run box.
type glyphRun struct {
	text  string
	font  *FontResource
	face  Typeface // metrics and decorations of this run
	color color.NRGBA
	fill  Fill     // LinearGradientFill switches to a gradient brush

	left, top, width float64
	rtl              bool

	angle float64 // degrees
	ratio float64 // horizontal scale
	// centre of the transform when ratio is 1; otherwise the run box centre
	// is used
	cx, cy float64
}

// renderTransform formats the affine matrix rotating by angle degrees around
// (cx, cy) and scaling horizontally by ratio.
func renderTransform(angle, ratio, cx, cy float64) string {
	a := angle * math.Pi / 180
	c := math.Round(math.Cos(a)*1e5) / 1e5
	s := math.Round(math.Sin(a)*1e5) / 1e5
	return strings.Join([]string{
		Float(c * ratio), Float(s), Float(-s), Float(c), Float(cx), Float(cy),
	}, ",")
}

// unicodeString escapes the leading brace that would otherwise start a
// markup extension.
func unicodeString(s string) string {
	if strings.HasPrefix(s, "{") {
		return "{}" + s
	}
	return s
}

func (pw *pageWriter) emitGlyphs(g glyphRun) {
	if isBlank(g.text) {
		return
	}
	fonts := pw.s.fonts
	slots := fonts.RegisterCharacters(g.font, g.text, g.rtl)
	pw.require(g.font.Path())
	t := g.face
	em := t.Size * FontMultiplier

	left, top := g.left, g.top
	transform := ""
	if g.angle != 0 || g.ratio != 1 {
		cx, cy := g.cx, g.cy
		if g.ratio != 1 {
			cx = g.left + g.width/2
			cy = g.top + fonts.lineHeight(g.font, t)/2
		}
		transform = renderTransform(g.angle, g.ratio, cx, cy)
		left -= cx
		top -= cy
	}

	x := pw.x
	gradient, isGradient := g.fill.(LinearGradientFill)

	x.OTag("+Glyphs")
	if !isGradient {
		x.Attr("Fill", AlphaColor(g.color))
	}
	x.Attr("FontUri", g.font.Path())
	x.Attr("FontRenderingEmSize", Float(em))
	x.Attr("StyleSimulations", "None")
	x.Attr("OriginX", Float(left))
	x.Attr("OriginY", Float(top+em))
	x.Attr("Indices", fonts.GlyphIndexes(g.font, slots))
	if pw.s.opts.HumanReadable {
		x.Attr("UnicodeString", unicodeString(g.text))
	}
	if transform != "" {
		x.Attr("RenderTransform", transform)
	}
	if isGradient {
		x.OTag("+Glyphs.Fill")
		pw.gradientBrush(gradient, top, top+em)
		x.CTag()
	}
	x.CTag()

	if t.Underline {
		y := top + (t.Size+2)*FontMultiplier
		pw.decoration(left, y, g.width, g.color, t.Size/16, transform)
	}
	if t.Strikeout {
		y := top + (fonts.lineHeight(g.font, t)/2)*FontMultiplier
		pw.decoration(left, y, g.width, g.color, t.Size/32, transform)
	}
}

func (pw *pageWriter) decoration(left, y, width float64, c color.NRGBA, thickness float64, transform string) {
	p := &pathData{}
	p.MoveTo(left, y).LineTo(left+width, y)

	x := pw.x
	x.OTag("+Path")
	x.Attr("Data", p.String())
	x.Attr("Stroke", AlphaColor(c))
	x.Attr("StrokeThickness", Float(thickness))
	if transform != "" {
		x.Attr("RenderTransform", transform)
	}
	x.CTag()
}

// gradientBrush writes a vertical absolute gradient from top to bottom. The
// end color is the first stop.
func (pw *pageWriter) gradientBrush(f LinearGradientFill, top, bottom float64) {
	x := pw.x
	x.OTag("+LinearGradientBrush")
	x.Attr("MappingMode", "Absolute")
	x.Attr("StartPoint", Point(0, top))
	x.Attr("EndPoint", Point(0, bottom))
	x.OTag("+LinearGradientBrush.GradientStops")
	x.OTag("+GradientStop").Attr("Color", RGBColor(f.EndColor)).Attr("Offset", "0").CTag()
	x.OTag("+GradientStop").Attr("Color", RGBColor(f.StartColor)).Attr("Offset", "1").CTag()
	x.CTag()
	x.CTag()
}
