package xps

import (
	"bytes"
	"errors"
	"math"
	"strconv"

	"github.com/adnsv/srw/xml"
)

// nudgeFactor shifts glyph runs horizontally by this fraction of the line
// height to line up with the layout engine's character positions.
const nudgeFactor = 0.1

// checkBoxUnit is the width of a 5 mm check box in page units.
const checkBoxUnit = 3.78 * 5

// pageWriter serializes one fixed page. It visits every object of the page
// in order and writes the page markup into an in-memory buffer.
type pageWriter struct {
	s      *Session
	page   *Page
	number int // 1-based
	path   string

	mx, my        float64 // margins in page units
	width, height float64

	bb   bytes.Buffer
	x    *xml.Writer
	rels []string // required resources in order of first use
}

func newPageWriter(s *Session, page *Page, number int) *pageWriter {
	pw := &pageWriter{
		s:      s,
		page:   page,
		number: number,
		path:   pagePathPrefix + strconv.Itoa(number) + ".fpage",
		mx:     page.LeftMargin * MetricMultiplier,
		my:     page.TopMargin * MetricMultiplier,
	}
	pw.width, pw.height = page.Size()
	pw.x = xml.NewWriter(&pw.bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	return pw
}

func (pw *pageWriter) begin() error {
	x := pw.x
	x.XmlStandaloneDecl()
	x.OTag("FixedPage")
	x.Attr("xmlns", nsXPS)
	x.Attr("Width", Float(pw.width))
	x.Attr("Height", Float(pw.height))
	x.Attr("xml:lang", "und")

	wm := &pw.page.Watermark
	if wm.Enabled && !wm.ShowImageOnTop {
		if err := pw.imageWatermark(); err != nil {
			return err
		}
	}
	if wm.Enabled && !wm.ShowTextOnTop {
		if err := pw.textWatermark(); err != nil {
			return err
		}
	}
	return nil
}

// end closes the page and registers it with the package.
func (pw *pageWriter) end() error {
	wm := &pw.page.Watermark
	if wm.Enabled && wm.ShowImageOnTop {
		if err := pw.imageWatermark(); err != nil {
			return err
		}
	}
	if wm.Enabled && wm.ShowTextOnTop {
		if err := pw.textWatermark(); err != nil {
			return err
		}
	}
	pw.x.CTag() // FixedPage

	pkg := pw.s.pkg
	if err := pkg.AddPart(pw.path, pw.bb.Bytes(), ""); err != nil {
		return err
	}
	pkg.AddPage(pw.path, pw.width, pw.height)
	for _, target := range pw.rels {
		pkg.AddRelationship(pw.path, relRequiredResource, target)
	}
	return nil
}

// require records a resource the page depends on.
func (pw *pageWriter) require(target string) {
	for _, t := range pw.rels {
		if t == target {
			return
		}
	}
	pw.rels = append(pw.rels, target)
}

// object serializes o and attributes failures to it.
func (pw *pageWriter) object(o Object) error {
	if o == nil {
		return nil
	}
	err := o.accept(pw)
	if err == nil {
		return nil
	}
	var ee *ExportError
	if errors.As(err, &ee) {
		return err
	}
	return &ExportError{Page: pw.number, Object: o.component().Name, Err: err}
}

// box returns the absolute page rectangle of c.
func (pw *pageWriter) box(c *Component) Rect {
	return Rect{Left: pw.mx + c.Left, Top: pw.my + c.Top, Width: c.Width, Height: c.Height}
}

func (pw *pageWriter) visitBand(b *Band) error {
	if b.hasBorder() {
		pw.drawBorder(&b.Component)
	}
	if b.hasFill() {
		pw.fillRect(&b.Component)
	}
	for _, o := range b.Objects {
		if err := pw.object(o); err != nil {
			return err
		}
	}
	return nil
}

func (pw *pageWriter) visitText(t *TextObject) error {
	if t.Outline && t.Raster != nil {
		return pw.picture(&t.Component, CategoryFallback, t.Raster)
	}
	return pw.text(t)
}

func (pw *pageWriter) text(t *TextObject) error {
	pw.fillRect(&t.Component)
	pw.drawShadow(&t.Component)
	pw.drawBorder(&t.Component)

	fonts := pw.s.fonts
	face := t.Font.orDefault()
	res, _, err := fonts.Resolve(face)
	if err != nil {
		return err
	}

	b := pw.box(&t.Component)
	left := b.Left + t.Padding.Left
	top := b.Top + t.Padding.Top

	nudge := fonts.lineHeight(res, face) * nudgeFactor
	if t.RightToLeft {
		nudge = -nudge
	}
	if t.HorzAlign == HorzAlignCenter {
		nudge = 0
	}

	run := glyphRun{
		rtl:   t.RightToLeft,
		fill:  t.TextFill,
		angle: t.Angle,
		ratio: t.widthRatio(),
		cx:    b.Left + b.Width/2,
		cy:    b.Top + b.Height/2,
	}

	for _, para := range t.Paragraphs {
		for _, line := range para.Lines {
			for _, w := range line.Words {
				if len(w.Runs) == 0 {
					g := run
					g.text, g.font, g.face, g.color = w.Text, res, face, t.TextColor
					g.left, g.top, g.width = left+nudge+w.Left, top+w.Top, w.Width
					pw.emitGlyphs(g)
					continue
				}
				for _, r := range w.Runs {
					rface := face
					if r.Font != nil {
						rface = r.Font.orDefault()
					}
					rres, _, err := fonts.Resolve(rface)
					if err != nil {
						return err
					}
					g := run
					g.text, g.font, g.face, g.color = r.Text, rres, rface, t.TextColor
					if r.Color != nil {
						g.color = *r.Color
					}
					g.left, g.top, g.width = left+nudge+r.Left, top+r.Top, r.Width
					pw.emitGlyphs(g)
				}
			}
		}
	}
	return nil
}

func (pw *pageWriter) visitTable(t *TableObject) error {
	for j := range t.Columns {
		for i := range t.Rows {
			c := t.Cell(j, i)
			if c == nil || t.IsInsideSpan(j, i) {
				continue
			}
			cb := t.cellBounds(j, i)
			cell := c.TextObject
			cell.SetBounds(Rect{
				Left:   t.Left + cb.Left,
				Top:    t.Top + cb.Top,
				Width:  cb.Width,
				Height: cb.Height,
			})
			if err := pw.text(&cell); err != nil {
				return err
			}
		}
	}

	frame := t.Component
	frame.Width, frame.Height = t.size()
	pw.drawBorder(&frame)
	return nil
}

func (pw *pageWriter) visitLine(l *LineObject) error {
	b := pw.box(&l.Component)
	p := &pathData{}
	p.MoveTo(b.Left, b.Top).LineTo(b.Right(), b.Bottom())

	pw.x.OTag("+Path").Attr("Data", p.String())
	pw.stroke(l.Stroke)
	pw.x.CTag()
	return nil
}

func (pw *pageWriter) visitShape(s *ShapeObject) error {
	d, err := ShapePath(s.Shape, pw.box(&s.Component), s.Stroke.Width, s.Curve)
	if err != nil {
		return err
	}
	x := pw.x
	x.OTag("+Path").Attr("Data", d)
	if f, ok := s.Fill.(SolidFill); ok && f.Color.A != 0 {
		x.Attr("Fill", AlphaColor(f.Color))
	}
	pw.stroke(s.Stroke)
	x.CTag()
	return nil
}

func (pw *pageWriter) visitCheckBox(cb *CheckBoxObject) error {
	if cb.HideIfUnchecked && !cb.Checked {
		return nil
	}
	pw.fillRect(&cb.Component)
	pw.drawBorder(&cb.Component)
	if !cb.Checked && cb.UncheckedSymbol == UncheckedSymbolNone {
		return nil
	}

	r := pw.box(&cb.Component)
	k := 4 * cb.Width / checkBoxUnit
	r = Rect{Left: r.Left + k, Top: r.Top + k, Width: r.Width - 2*k, Height: r.Height - 2*k}
	l, t, rt, b := r.Left, r.Top, r.Right(), r.Bottom()
	midX, midY := l+r.Width/2, t+r.Height/2

	p := &pathData{}
	if cb.Checked {
		switch cb.CheckedSymbol {
		case CheckedSymbolCheck:
			p.MoveTo(l, t+r.Height/10*5).LineTo(l+r.Width/10*4, b-r.Height/10, rt, t+r.Height/10)
		case CheckedSymbolCross:
			p.MoveTo(l, t).LineTo(rt, b).MoveTo(l, b).LineTo(rt, t)
		case CheckedSymbolPlus:
			p.MoveTo(l, midY).LineTo(rt, midY).MoveTo(midX, t).LineTo(midX, b)
		case CheckedSymbolFill:
			p.MoveTo(l, t).LineTo(rt, t, rt, b, l, b).Close()
		}
	} else {
		switch cb.UncheckedSymbol {
		case UncheckedSymbolCross:
			p.MoveTo(l, t).LineTo(rt, b).MoveTo(l, b).LineTo(rt, t)
		case UncheckedSymbolMinus:
			p.MoveTo(l, midY).LineTo(rt, midY)
		}
	}

	x := pw.x
	x.OTag("+Path")
	x.Attr("Data", p.String())
	x.Attr("Stroke", AlphaColor(cb.CheckColor))
	x.Attr("StrokeThickness", Float(cb.Border.lineWidth()*1.5))
	if cb.Checked && cb.CheckedSymbol == CheckedSymbolFill {
		x.OTag("+Path.Fill")
		x.OTag("SolidColorBrush").Attr("Color", RGBColor(cb.CheckColor)).CTag()
		x.CTag()
	}
	x.CTag()
	return nil
}

func (pw *pageWriter) visitPicture(p *PictureObject) error {
	if p.Image == nil {
		tracer().Debugf("skip picture %q without image", p.Name)
		return nil
	}
	return pw.picture(&p.Component, CategoryImages, drawPicture(p.Image, p.SizeMode, p.Tile))
}

func (pw *pageWriter) visitChart(o *ChartObject) error {
	return pw.opaque(&o.Component, CategoryCharts, o.Raster)
}

func (pw *pageWriter) visitBarcode(o *BarcodeObject) error {
	return pw.opaque(&o.Component, CategoryBarcodes, o.Raster)
}

func (pw *pageWriter) visitZipCode(o *ZipCodeObject) error {
	return pw.opaque(&o.Component, CategoryZipCodes, o.Raster)
}

func (pw *pageWriter) visitRichText(o *RichTextObject) error {
	return pw.opaque(&o.Component, CategoryRichText, o.Raster)
}

func (pw *pageWriter) visitCustom(o *CustomObject) error {
	return pw.opaque(&o.Component, CategoryFallback, o.Raster)
}

func (pw *pageWriter) opaque(c *Component, category string, fn RasterFunc) error {
	if fn == nil {
		tracer().Debugf("skip object %q without raster (%s)", c.Name, category)
		return nil
	}
	return pw.picture(c, category, fn)
}

// picture embeds the raster of c and fills the object's box with it.
func (pw *pageWriter) picture(c *Component, category string, fn RasterFunc) error {
	name, added, err := pw.s.embed(c, category, fn)
	if err != nil || !added {
		return err
	}
	pw.require(name)

	b := pw.box(c)
	p := &pathData{}
	p.MoveTo(b.Left, b.Top).LineTo(b.Right(), b.Top, b.Right(), b.Bottom(), b.Left, b.Bottom()).Close()

	x := pw.x
	x.OTag("+Path").Attr("Data", p.String())
	x.OTag("+Path.Fill")
	x.OTag("+ImageBrush")
	x.Attr("TileMode", "None")
	x.Attr("ViewboxUnits", "Absolute")
	x.Attr("ViewportUnits", "Absolute")
	x.Attr("ImageSource", name)
	x.Attr("Viewbox", "0,0,"+Point(c.Width, c.Height))
	x.Attr("Viewport", Point(b.Left, b.Top)+","+Point(c.Width, c.Height))
	x.CTag()
	x.CTag()
	x.CTag()

	pw.drawBorder(c)
	return nil
}

// fillRect paints the background of c.
func (pw *pageWriter) fillRect(c *Component) {
	b := pw.box(c)
	l, t, r, bt := b.Left, b.Top, b.Right(), b.Bottom()
	x := pw.x

	switch f := c.Fill.(type) {
	case SolidFill:
		if f.Color.A == 0 {
			return
		}
		p := &pathData{}
		p.FillRule().MoveTo(l, t).H(r).V(bt).H(l).Close()
		x.OTag("+Path").Attr("Data", p.String()).Attr("Fill", AlphaColor(f.Color)).CTag()

	case GlassFill:
		upper := &pathData{}
		upper.FillRule().MoveTo(l, t).H(r).V(bt - b.Height/2).H(l).Close()
		x.OTag("+Path").Attr("Data", upper.String()).
			Attr("Opacity", Float(1-f.Blend)).
			Attr("Fill", AlphaColor(f.Color)).CTag()

		lower := &pathData{}
		lower.FillRule().MoveTo(l, t+b.Height/2).H(r).V(bt).H(l).Close()
		x.OTag("+Path").Attr("Data", lower.String()).Attr("Fill", AlphaColor(f.Color)).CTag()

	case LinearGradientFill:
		x.OTag("+Path")
		x.OTag("+Path.Fill")
		pw.gradientBrush(f, t, bt)
		x.CTag()
		x.OTag("+Path.Data")
		x.OTag("+PathGeometry")
		x.OTag("+PathFigure").Attr("StartPoint", Point(l, t))
		x.OTag("+PolyLineSegment").Attr("Points", Point(r, t)+" "+Point(r, bt)+" "+Point(l, bt)).CTag()
		x.CTag() // PathFigure
		x.CTag() // PathGeometry
		x.CTag() // Path.Data
		x.CTag() // Path
	}
}

// stroke writes the stroke attributes of the current path.
func (pw *pageWriter) stroke(l BorderLine) {
	pw.x.Attr("Stroke", AlphaColor(l.Color))
	if d := DashArray(l.Style); d != "" {
		pw.x.Attr("StrokeDashArray", d)
	}
	pw.x.Attr("StrokeThickness", Float(l.Width))
}

func (pw *pageWriter) strokedPath(d string, l BorderLine) {
	pw.x.OTag("+Path").Attr("Data", d)
	pw.stroke(l)
	pw.x.CTag()
}

// drawBorder strokes the active sides of the border of c. Four identical
// sides become a single closed rectangle.
func (pw *pageWriter) drawBorder(c *Component) {
	bd := &c.Border
	if bd.Lines == BorderNone {
		return
	}
	b := pw.box(c)
	l, t, r, bt := b.Left, b.Top, b.Right(), b.Bottom()

	if bd.uniform() {
		p := &pathData{}
		p.MoveTo(l, t).H(r).V(bt).H(l).Close()
		pw.strokedPath(p.String(), bd.Bottom)
		return
	}
	if bd.Lines&BorderLeft != 0 {
		pw.strokedPath((&pathData{}).MoveTo(l, t).V(bt).String(), bd.Left)
	}
	if bd.Lines&BorderBottom != 0 {
		pw.strokedPath((&pathData{}).MoveTo(l, bt).H(r).String(), bd.Bottom)
	}
	if bd.Lines&BorderRight != 0 {
		pw.strokedPath((&pathData{}).MoveTo(r, t).V(bt).String(), bd.Right)
	}
	if bd.Lines&BorderTop != 0 {
		pw.strokedPath((&pathData{}).MoveTo(l, t).H(r).String(), bd.Top)
	}
}

// drawShadow fills an L-shaped band right of and below c.
func (pw *pageWriter) drawShadow(c *Component) {
	if !c.Border.Shadow {
		return
	}
	sz := c.Border.ShadowWidth
	x := pw.mx + c.Left + c.Width
	y := pw.my + c.Top

	p := &pathData{}
	p.FillRule().MoveTo(x, y+sz).
		H(x + sz).V(y + sz + c.Height).
		H(x + sz - c.Width).V(y + c.Height).
		H(x).Close()
	pw.x.OTag("+Path").Attr("Data", p.String()).Attr("Fill", AlphaColor(c.Border.ShadowColor)).CTag()
}

// displayRect covers the whole sheet in coordinates relative to the
// printable area.
func (pw *pageWriter) displayRect() Rect {
	return Rect{Left: -pw.mx, Top: -pw.my, Width: pw.width, Height: pw.height}
}

func (pw *pageWriter) textWatermark() error {
	wm := &pw.page.Watermark
	if wm.Text == nil || len(wm.Text.Paragraphs) == 0 {
		tracer().Debugf("page %d: skip empty text watermark", pw.number)
		return nil
	}
	r := pw.displayRect()
	obj := *wm.Text
	obj.SetBounds(r)
	obj.Angle = watermarkAngle(wm.TextRotation, r.Width, r.Height)
	return pw.object(&obj)
}

func (pw *pageWriter) imageWatermark() error {
	wm := &pw.page.Watermark
	if wm.Image == nil {
		tracer().Debugf("page %d: skip watermark without image", pw.number)
		return nil
	}
	mode, tile := watermarkSizeMode(wm.ImageSize)
	c := Component{Name: "Watermark"}
	c.SetBounds(pw.displayRect())
	return pw.picture(&c, CategoryWatermarks, drawPicture(wm.Image, mode, tile))
}

// watermarkAngle returns the text rotation in degrees. Diagonals follow the
// sheet diagonal, rounded toward zero.
func watermarkAngle(rot WatermarkTextRotation, width, height float64) float64 {
	switch rot {
	case WatermarkVertical:
		return 270
	case WatermarkForwardDiagonal, WatermarkBackwardDiagonal:
		if width <= 0 {
			return 0
		}
		theta := float64(int(math.Atan(height/width) * 180 / math.Pi))
		if rot == WatermarkBackwardDiagonal {
			return 360 - theta
		}
		return theta
	}
	return 0
}
