package xps

import (
	"image"
	"image/color"
	"image/draw"
)

// Rect is an axis aligned box in page units.
type Rect struct {
	Left, Top, Width, Height float64
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Padding is the inner spacing between an object's box and its text.
type Padding struct {
	Left, Top, Right, Bottom float64
}

func (p Padding) Horizontal() float64 { return p.Left + p.Right }
func (p Padding) Vertical() float64   { return p.Top + p.Bottom }

// Fill is one of SolidFill, LinearGradientFill or GlassFill. A nil Fill draws
// nothing.
type Fill interface {
	isFill()
}

type SolidFill struct {
	Color color.NRGBA
}

// LinearGradientFill is a vertical two stop gradient.
type LinearGradientFill struct {
	StartColor color.NRGBA
	EndColor   color.NRGBA
}

// GlassFill is a two-tone fill: the upper half is blended by Blend (0..1).
type GlassFill struct {
	Color color.NRGBA
	Blend float64
}

func (SolidFill) isFill()          {}
func (LinearGradientFill) isFill() {}
func (GlassFill) isFill()          {}

// LineStyle is the dash pattern of a stroke.
type LineStyle int

const (
	LineStyleSolid LineStyle = iota
	LineStyleDash
	LineStyleDot
	LineStyleDashDot
	LineStyleDashDotDot
	LineStyleDouble
)

// BorderLines selects the active sides of a border.
type BorderLines uint8

const (
	BorderNone   BorderLines = 0
	BorderLeft   BorderLines = 1 << 0
	BorderRight  BorderLines = 1 << 1
	BorderTop    BorderLines = 1 << 2
	BorderBottom BorderLines = 1 << 3
	BorderAll                = BorderLeft | BorderRight | BorderTop | BorderBottom
)

// BorderLine is the stroke of one border side.
type BorderLine struct {
	Color color.NRGBA
	Style LineStyle
	Width float64
}

type Border struct {
	Lines  BorderLines
	Left   BorderLine
	Top    BorderLine
	Right  BorderLine
	Bottom BorderLine

	Shadow      bool
	ShadowWidth float64
	ShadowColor color.NRGBA
}

// UniformBorder returns a border with the same stroke on every active side.
func UniformBorder(lines BorderLines, l BorderLine) Border {
	return Border{Lines: lines, Left: l, Top: l, Right: l, Bottom: l}
}

// uniform reports whether all four sides are active and share color, style
// and width.
func (b *Border) uniform() bool {
	return b.Lines == BorderAll &&
		b.Bottom == b.Left && b.Bottom == b.Top && b.Bottom == b.Right
}

// lineWidth returns the width of the first active side, or 1.
func (b *Border) lineWidth() float64 {
	for _, side := range []struct {
		on bool
		l  BorderLine
	}{
		{b.Lines&BorderLeft != 0, b.Left},
		{b.Lines&BorderTop != 0, b.Top},
		{b.Lines&BorderRight != 0, b.Right},
		{b.Lines&BorderBottom != 0, b.Bottom},
	} {
		if side.on && side.l.Width > 0 {
			return side.l.Width
		}
	}
	return 1
}

// Component holds the properties shared by all report objects. Left and Top
// are absolute pixel positions relative to the page's printable area.
type Component struct {
	Name   string
	Left   float64
	Top    float64
	Width  float64
	Height float64
	Fill   Fill
	Border Border
}

func (c *Component) component() *Component { return c }

func (c *Component) Bounds() Rect {
	return Rect{Left: c.Left, Top: c.Top, Width: c.Width, Height: c.Height}
}

func (c *Component) SetBounds(r Rect) {
	c.Left, c.Top, c.Width, c.Height = r.Left, r.Top, r.Width, r.Height
}

// Object is a visual report object. The set of implementations is closed;
// hosts with components this package does not know use CustomObject.
type Object interface {
	component() *Component
	accept(v objectVisitor) error
}

// objectVisitor has one method per object kind. Adding a kind means adding a
// method here, which fails to compile until every visitor handles it.
type objectVisitor interface {
	visitBand(*Band) error
	visitText(*TextObject) error
	visitTable(*TableObject) error
	visitLine(*LineObject) error
	visitShape(*ShapeObject) error
	visitCheckBox(*CheckBoxObject) error
	visitPicture(*PictureObject) error
	visitChart(*ChartObject) error
	visitBarcode(*BarcodeObject) error
	visitZipCode(*ZipCodeObject) error
	visitRichText(*RichTextObject) error
	visitCustom(*CustomObject) error
}

// RasterFunc draws a component into dst, whose bounds start at (0,0) and
// match the component's rounded size.
type RasterFunc func(dst draw.Image) error

// Band is a report band together with the objects it contains, flattened in
// tree order. Bands may also appear as objects of another band.
type Band struct {
	Component
	Objects []Object
}

func (b *Band) hasFill() bool {
	return b.Fill != nil
}

func (b *Band) hasBorder() bool {
	return b.Border.Lines != BorderNone
}

// HorzAlign is the horizontal text alignment.
type HorzAlign int

const (
	HorzAlignLeft HorzAlign = iota
	HorzAlignCenter
	HorzAlignRight
	HorzAlignJustify
)

// Run is a fragment of a word with its own style overrides.
type Run struct {
	Text  string
	Left  float64
	Top   float64
	Width float64
	Font  *Typeface   // nil uses the object font
	Color *color.NRGBA // nil uses the object text color
}

// Word is a positioned piece of text. Positions are relative to the text box
// (object bounds minus padding). A word with Runs is emitted run by run.
type Word struct {
	Text  string
	Left  float64
	Top   float64
	Width float64
	Runs  []Run
}

type Line struct {
	Words []Word
}

type Paragraph struct {
	Lines []Line
}

// TextObject is a text box whose content was laid out by the host.
type TextObject struct {
	Component
	Font        Typeface
	TextColor   color.NRGBA
	TextFill    Fill // SolidFill or LinearGradientFill, nil means TextColor
	Padding     Padding
	HorzAlign   HorzAlign
	Angle       float64 // degrees
	WidthRatio  float64 // 0 means 1
	RightToLeft bool
	Outline     bool
	Paragraphs  []Paragraph

	// Raster renders outlined text, which has no glyph run equivalent.
	Raster RasterFunc
}

func (t *TextObject) widthRatio() float64 {
	if t.WidthRatio == 0 {
		return 1
	}
	return t.WidthRatio
}

// LineObject is a straight line from the top-left to the bottom-right corner
// of its box.
type LineObject struct {
	Component
	Stroke BorderLine
}

// ShapeKind selects the outline generated for a ShapeObject.
type ShapeKind int

const (
	ShapeRectangle ShapeKind = iota
	ShapeRoundRectangle
	ShapeEllipse
	ShapeTriangle
	ShapeDiamond
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeRectangle:
		return "rectangle"
	case ShapeRoundRectangle:
		return "round-rectangle"
	case ShapeEllipse:
		return "ellipse"
	case ShapeTriangle:
		return "triangle"
	case ShapeDiamond:
		return "diamond"
	}
	return "unknown"
}

type ShapeObject struct {
	Component
	Shape  ShapeKind
	Curve  float64 // corner radius of round rectangles, 0 = automatic
	Stroke BorderLine
}

type CheckedSymbol int

const (
	CheckedSymbolCheck CheckedSymbol = iota
	CheckedSymbolCross
	CheckedSymbolPlus
	CheckedSymbolFill
)

type UncheckedSymbol int

const (
	UncheckedSymbolNone UncheckedSymbol = iota
	UncheckedSymbolCross
	UncheckedSymbolMinus
)

type CheckBoxObject struct {
	Component
	Checked         bool
	CheckedSymbol   CheckedSymbol
	UncheckedSymbol UncheckedSymbol
	CheckColor      color.NRGBA
	HideIfUnchecked bool
}

// SizeMode controls how a picture is placed into its box.
type SizeMode int

const (
	SizeModeNormal SizeMode = iota
	SizeModeCenter
	SizeModeStretch
	SizeModeZoom
	SizeModeAutoSize
)

type PictureObject struct {
	Component
	Image    image.Image
	SizeMode SizeMode
	Tile     bool
}

// Opaque components: the host renders them, the exporter embeds the raster.
type (
	ChartObject struct {
		Component
		Raster RasterFunc
	}
	BarcodeObject struct {
		Component
		Raster RasterFunc
	}
	ZipCodeObject struct {
		Component
		Raster RasterFunc
	}
	RichTextObject struct {
		Component
		Raster RasterFunc
	}
	CustomObject struct {
		Component
		Raster RasterFunc
	}
)

func (o *Band) accept(v objectVisitor) error           { return v.visitBand(o) }
func (o *TextObject) accept(v objectVisitor) error     { return v.visitText(o) }
func (o *TableObject) accept(v objectVisitor) error    { return v.visitTable(o) }
func (o *LineObject) accept(v objectVisitor) error     { return v.visitLine(o) }
func (o *ShapeObject) accept(v objectVisitor) error    { return v.visitShape(o) }
func (o *CheckBoxObject) accept(v objectVisitor) error { return v.visitCheckBox(o) }
func (o *PictureObject) accept(v objectVisitor) error  { return v.visitPicture(o) }
func (o *ChartObject) accept(v objectVisitor) error    { return v.visitChart(o) }
func (o *BarcodeObject) accept(v objectVisitor) error  { return v.visitBarcode(o) }
func (o *ZipCodeObject) accept(v objectVisitor) error  { return v.visitZipCode(o) }
func (o *RichTextObject) accept(v objectVisitor) error { return v.visitRichText(o) }
func (o *CustomObject) accept(v objectVisitor) error   { return v.visitCustom(o) }

type WatermarkImageSize int

const (
	WatermarkImageNormal WatermarkImageSize = iota
	WatermarkImageCenter
	WatermarkImageStretch
	WatermarkImageZoom
	WatermarkImageTile
)

type WatermarkTextRotation int

const (
	WatermarkHorizontal WatermarkTextRotation = iota
	WatermarkVertical
	WatermarkForwardDiagonal
	WatermarkBackwardDiagonal
)

// Watermark decorates a whole page with text and/or an image, either beneath
// or above the page content.
type Watermark struct {
	Enabled        bool
	Text           *TextObject
	Image          image.Image
	ImageSize      WatermarkImageSize
	TextRotation   WatermarkTextRotation
	ShowTextOnTop  bool
	ShowImageOnTop bool
}

// Page is one laid out report page. Sizes and margins are in millimetres.
type Page struct {
	PaperWidth   float64
	PaperHeight  float64
	LeftMargin   float64
	TopMargin    float64
	RightMargin  float64
	BottomMargin float64
	Watermark    Watermark

	// Bands is consumed by Exporter.Export; hosts driving a Session directly
	// pass bands through ExportBand instead.
	Bands []*Band
}

// Size returns the page size in page units.
func (p *Page) Size() (width, height float64) {
	return p.PaperWidth * MetricMultiplier, p.PaperHeight * MetricMultiplier
}
