package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adnsv/go-xps/xps"
	"golang.org/x/image/draw"
	"gopkg.in/yaml.v3"
)

// reportDoc is a laid out report described in YAML (or JSON). Sizes of pages
// and margins are millimetres; boxes of bands and objects are page units.
type reportDoc struct {
	Title       string    `yaml:"title"`
	Subject     string    `yaml:"subject"`
	Creator     string    `yaml:"creator"`
	Keywords    string    `yaml:"keywords"`
	Description string    `yaml:"description"`
	Pages       []pageDoc `yaml:"pages"`
}

type pageDoc struct {
	Width     float64       `yaml:"width"`
	Height    float64       `yaml:"height"`
	Margins   marginsDoc    `yaml:"margins"`
	Watermark *watermarkDoc `yaml:"watermark"`
	Bands     []bandDoc     `yaml:"bands"`
}

type marginsDoc struct {
	Left   float64 `yaml:"left"`
	Top    float64 `yaml:"top"`
	Right  float64 `yaml:"right"`
	Bottom float64 `yaml:"bottom"`
}

type boxDoc struct {
	Name   string     `yaml:"name"`
	Left   float64    `yaml:"left"`
	Top    float64    `yaml:"top"`
	Width  float64    `yaml:"width"`
	Height float64    `yaml:"height"`
	Fill   *fillDoc   `yaml:"fill"`
	Border *borderDoc `yaml:"border"`
}

type bandDoc struct {
	boxDoc  `yaml:",inline"`
	Objects []objectDoc `yaml:"objects"`
}

type objectDoc struct {
	boxDoc `yaml:",inline"`
	Type   string `yaml:"type"`

	textDoc `yaml:",inline"`

	Shape  string   `yaml:"shape"`
	Curve  float64  `yaml:"curve"`
	Stroke *lineDoc `yaml:"stroke"`

	Checked       bool   `yaml:"checked"`
	Symbol        string `yaml:"symbol"`
	Unchecked     string `yaml:"unchecked"`
	HideUnchecked bool   `yaml:"hide-unchecked"`

	File     string `yaml:"file"`
	SizeMode string `yaml:"size-mode"`
	Tile     bool   `yaml:"tile"`

	Columns []float64 `yaml:"columns"`
	Rows    []rowDoc  `yaml:"rows"`
}

// textDoc holds the text properties shared by text objects and table cells.
type textDoc struct {
	Text       string      `yaml:"text"`
	Font       fontDoc     `yaml:"font"`
	Color      string      `yaml:"color"`
	TextFill   *fillDoc    `yaml:"text-fill"`
	Align      string      `yaml:"align"`
	Angle      float64     `yaml:"angle"`
	WidthRatio float64     `yaml:"width-ratio"`
	RTL        bool        `yaml:"rtl"`
	Padding    *marginsDoc `yaml:"padding"`
}

type rowDoc struct {
	Height float64   `yaml:"height"`
	Cells  []cellDoc `yaml:"cells"`
}

type cellDoc struct {
	textDoc `yaml:",inline"`
	ColSpan int        `yaml:"colspan"`
	RowSpan int        `yaml:"rowspan"`
	Fill    *fillDoc   `yaml:"fill"`
	Border  *borderDoc `yaml:"border"`
}

type fontDoc struct {
	Family    string  `yaml:"family"`
	Size      float64 `yaml:"size"`
	Bold      bool    `yaml:"bold"`
	Italic    bool    `yaml:"italic"`
	Underline bool    `yaml:"underline"`
	Strikeout bool    `yaml:"strikeout"`
}

type fillDoc struct {
	Type     string  `yaml:"type"` // solid, gradient or glass
	Color    string  `yaml:"color"`
	EndColor string  `yaml:"end-color"`
	Blend    float64 `yaml:"blend"`
}

type lineDoc struct {
	Color string  `yaml:"color"`
	Width float64 `yaml:"width"`
	Style string  `yaml:"style"`
}

type borderDoc struct {
	Lines   []string `yaml:"lines"`
	lineDoc `yaml:",inline"`

	Shadow      bool    `yaml:"shadow"`
	ShadowWidth float64 `yaml:"shadow-width"`
	ShadowColor string  `yaml:"shadow-color"`
}

type watermarkDoc struct {
	Text       string  `yaml:"text"`
	Font       fontDoc `yaml:"font"`
	Color      string  `yaml:"color"`
	Rotation   string  `yaml:"rotation"`
	Image      string  `yaml:"image"`
	ImageSize  string  `yaml:"image-size"`
	TextOnTop  bool    `yaml:"text-on-top"`
	ImageOnTop bool    `yaml:"image-on-top"`
}

// loadReport reads a report document. Unknown fields are rejected.
func loadReport(name string) (*reportDoc, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	doc := &reportDoc{}
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return doc, nil
}

func (d *reportDoc) properties() xps.DocumentProperties {
	return xps.DocumentProperties{
		Title:       d.Title,
		Subject:     d.Subject,
		Creator:     d.Creator,
		Keywords:    d.Keywords,
		Description: d.Description,
	}
}

var (
	alignNames = map[string]xps.HorzAlign{
		"left":    xps.HorzAlignLeft,
		"center":  xps.HorzAlignCenter,
		"right":   xps.HorzAlignRight,
		"justify": xps.HorzAlignJustify,
	}
	lineStyleNames = map[string]xps.LineStyle{
		"solid":      xps.LineStyleSolid,
		"dash":       xps.LineStyleDash,
		"dot":        xps.LineStyleDot,
		"dashdot":    xps.LineStyleDashDot,
		"dashdotdot": xps.LineStyleDashDotDot,
		"double":     xps.LineStyleDouble,
	}
	borderLineNames = map[string]xps.BorderLines{
		"left":   xps.BorderLeft,
		"right":  xps.BorderRight,
		"top":    xps.BorderTop,
		"bottom": xps.BorderBottom,
		"all":    xps.BorderAll,
	}
	shapeNames = map[string]xps.ShapeKind{
		"rectangle":       xps.ShapeRectangle,
		"round-rectangle": xps.ShapeRoundRectangle,
		"ellipse":         xps.ShapeEllipse,
		"triangle":        xps.ShapeTriangle,
		"diamond":         xps.ShapeDiamond,
	}
	checkedNames = map[string]xps.CheckedSymbol{
		"check": xps.CheckedSymbolCheck,
		"cross": xps.CheckedSymbolCross,
		"plus":  xps.CheckedSymbolPlus,
		"fill":  xps.CheckedSymbolFill,
	}
	uncheckedNames = map[string]xps.UncheckedSymbol{
		"none":  xps.UncheckedSymbolNone,
		"cross": xps.UncheckedSymbolCross,
		"minus": xps.UncheckedSymbolMinus,
	}
	sizeModeNames = map[string]xps.SizeMode{
		"normal":    xps.SizeModeNormal,
		"center":    xps.SizeModeCenter,
		"stretch":   xps.SizeModeStretch,
		"zoom":      xps.SizeModeZoom,
		"auto-size": xps.SizeModeAutoSize,
	}
	rotationNames = map[string]xps.WatermarkTextRotation{
		"horizontal":        xps.WatermarkHorizontal,
		"vertical":          xps.WatermarkVertical,
		"forward-diagonal":  xps.WatermarkForwardDiagonal,
		"backward-diagonal": xps.WatermarkBackwardDiagonal,
	}
	imageSizeNames = map[string]xps.WatermarkImageSize{
		"normal":  xps.WatermarkImageNormal,
		"center":  xps.WatermarkImageCenter,
		"stretch": xps.WatermarkImageStretch,
		"zoom":    xps.WatermarkImageZoom,
		"tile":    xps.WatermarkImageTile,
	}
)

// lookup resolves a named enumeration value; an empty name yields def.
func lookup[T any](what string, names map[string]T, name string, def T) (T, error) {
	if name == "" {
		return def, nil
	}
	v, ok := names[strings.ToLower(name)]
	if !ok {
		return def, fmt.Errorf("unknown %s %q", what, name)
	}
	return v, nil
}

// parseColor accepts #rrggbb and #aarrggbb. An empty string yields def.
func parseColor(s string, def color.NRGBA) (color.NRGBA, error) {
	if s == "" {
		return def, nil
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || (len(hex) != 6 && len(hex) != 8) {
		return def, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return def, fmt.Errorf("invalid color %q", s)
	}
	c := color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}
	if len(hex) == 8 {
		c.A = uint8(v >> 24)
	}
	return c, nil
}

var black = color.NRGBA{A: 0xff}

// builder converts a report document into exporter pages.
type builder struct {
	layout *layouter
	dir    string // base for relative image paths
	images map[string]image.Image
}

func newBuilder(l *layouter, dir string) *builder {
	return &builder{layout: l, dir: dir, images: map[string]image.Image{}}
}

// build returns the pages of d, loading images relative to dir.
func (d *reportDoc) build(l *layouter, dir string) ([]*xps.Page, error) {
	b := newBuilder(l, dir)
	pages := make([]*xps.Page, 0, len(d.Pages))
	for i := range d.Pages {
		p, err := b.page(&d.Pages[i])
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

func (b *builder) image(name string) (image.Image, error) {
	if name == "" {
		return nil, errors.New("missing image file")
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(b.dir, name)
	}
	if img, ok := b.images[name]; ok {
		return img, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	b.images[name] = img
	return img, nil
}

func (b *builder) page(pd *pageDoc) (*xps.Page, error) {
	p := &xps.Page{
		PaperWidth:   pd.Width,
		PaperHeight:  pd.Height,
		LeftMargin:   pd.Margins.Left,
		TopMargin:    pd.Margins.Top,
		RightMargin:  pd.Margins.Right,
		BottomMargin: pd.Margins.Bottom,
	}
	if p.PaperWidth == 0 {
		p.PaperWidth = 210
	}
	if p.PaperHeight == 0 {
		p.PaperHeight = 297
	}
	if pd.Watermark != nil {
		wm, err := b.watermark(pd.Watermark, p)
		if err != nil {
			return nil, fmt.Errorf("watermark: %w", err)
		}
		p.Watermark = wm
	}
	for i := range pd.Bands {
		band, err := b.band(&pd.Bands[i])
		if err != nil {
			return nil, fmt.Errorf("band %q: %w", pd.Bands[i].Name, err)
		}
		p.Bands = append(p.Bands, band)
	}
	return p, nil
}

func (b *builder) watermark(wd *watermarkDoc, p *xps.Page) (xps.Watermark, error) {
	wm := xps.Watermark{
		Enabled:        true,
		ShowTextOnTop:  wd.TextOnTop,
		ShowImageOnTop: wd.ImageOnTop,
	}
	var err error
	if wm.TextRotation, err = lookup("rotation", rotationNames, wd.Rotation, xps.WatermarkForwardDiagonal); err != nil {
		return wm, err
	}
	if wm.ImageSize, err = lookup("image size", imageSizeNames, wd.ImageSize, xps.WatermarkImageNormal); err != nil {
		return wm, err
	}
	if wd.Image != "" {
		if wm.Image, err = b.image(wd.Image); err != nil {
			return wm, err
		}
	}
	if wd.Text == "" {
		return wm, nil
	}

	t := &xps.TextObject{
		Component: xps.Component{Name: "Watermark"},
		Font:      withDefaults(wd.Font.typeface()),
		HorzAlign: xps.HorzAlignCenter,
	}
	if t.TextColor, err = parseColor(wd.Color, color.NRGBA{R: 0xa9, G: 0xa9, B: 0xa9, A: 0x40}); err != nil {
		return wm, err
	}
	w, h := p.Size()
	if t.Paragraphs, err = b.layout.Layout(t.Font, wd.Text, w, xps.HorzAlignCenter); err != nil {
		return wm, err
	}
	lh, err := b.layout.lineHeight(t.Font)
	if err != nil {
		return wm, err
	}
	t.Padding.Top = (h - lh*float64(len(t.Paragraphs))) / 2
	wm.Text = t
	return wm, nil
}

func (f fontDoc) typeface() xps.Typeface {
	return xps.Typeface{
		Family:    f.Family,
		Size:      f.Size,
		Bold:      f.Bold,
		Italic:    f.Italic,
		Underline: f.Underline,
		Strikeout: f.Strikeout,
	}
}

func (b *builder) component(bd *boxDoc) (xps.Component, error) {
	c := xps.Component{
		Name:   bd.Name,
		Left:   bd.Left,
		Top:    bd.Top,
		Width:  bd.Width,
		Height: bd.Height,
	}
	var err error
	if c.Fill, err = bd.Fill.fill(); err != nil {
		return c, err
	}
	if c.Border, err = bd.Border.border(); err != nil {
		return c, err
	}
	return c, nil
}

func (fd *fillDoc) fill() (xps.Fill, error) {
	if fd == nil {
		return nil, nil
	}
	c, err := parseColor(fd.Color, black)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(fd.Type) {
	case "", "solid":
		return xps.SolidFill{Color: c}, nil
	case "glass":
		return xps.GlassFill{Color: c, Blend: fd.Blend}, nil
	case "gradient":
		end, err := parseColor(fd.EndColor, c)
		if err != nil {
			return nil, err
		}
		return xps.LinearGradientFill{StartColor: c, EndColor: end}, nil
	}
	return nil, fmt.Errorf("unknown fill type %q", fd.Type)
}

func (ld *lineDoc) line() (xps.BorderLine, error) {
	l := xps.BorderLine{Color: black, Width: 1}
	if ld == nil {
		return l, nil
	}
	var err error
	if l.Color, err = parseColor(ld.Color, black); err != nil {
		return l, err
	}
	if l.Style, err = lookup("line style", lineStyleNames, ld.Style, xps.LineStyleSolid); err != nil {
		return l, err
	}
	if ld.Width > 0 {
		l.Width = ld.Width
	}
	return l, nil
}

func (bd *borderDoc) border() (xps.Border, error) {
	if bd == nil {
		return xps.Border{}, nil
	}
	line, err := bd.line()
	if err != nil {
		return xps.Border{}, err
	}
	var lines xps.BorderLines
	for _, name := range bd.Lines {
		v, err := lookup("border line", borderLineNames, name, xps.BorderNone)
		if err != nil {
			return xps.Border{}, err
		}
		lines |= v
	}
	if bd.Lines == nil {
		lines = xps.BorderAll
	}
	border := xps.UniformBorder(lines, line)
	if bd.Shadow {
		border.Shadow = true
		border.ShadowWidth = bd.ShadowWidth
		if border.ShadowWidth == 0 {
			border.ShadowWidth = 4
		}
		if border.ShadowColor, err = parseColor(bd.ShadowColor, black); err != nil {
			return xps.Border{}, err
		}
	}
	return border, nil
}

func (b *builder) band(bd *bandDoc) (*xps.Band, error) {
	c, err := b.component(&bd.boxDoc)
	if err != nil {
		return nil, err
	}
	band := &xps.Band{Component: c}
	for i := range bd.Objects {
		od := &bd.Objects[i]
		o, err := b.object(od)
		if err != nil {
			return nil, fmt.Errorf("object %d %q: %w", i+1, od.Name, err)
		}
		band.Objects = append(band.Objects, o)
	}
	return band, nil
}

// text fills the text properties of t from td and lays out its words.
func (b *builder) text(t *xps.TextObject, td *textDoc) error {
	t.Font = td.Font.typeface()
	t.Angle = td.Angle
	t.WidthRatio = td.WidthRatio
	t.RightToLeft = td.RTL
	if td.Padding != nil {
		t.Padding = xps.Padding{
			Left:   td.Padding.Left,
			Top:    td.Padding.Top,
			Right:  td.Padding.Right,
			Bottom: td.Padding.Bottom,
		}
	}
	var err error
	if t.TextColor, err = parseColor(td.Color, black); err != nil {
		return err
	}
	if t.TextFill, err = td.TextFill.fill(); err != nil {
		return err
	}
	if t.HorzAlign, err = lookup("alignment", alignNames, td.Align, xps.HorzAlignLeft); err != nil {
		return err
	}
	if td.Text == "" {
		return nil
	}
	width := t.Width - t.Padding.Horizontal()
	t.Paragraphs, err = b.layout.Layout(t.Font, td.Text, width, t.HorzAlign)
	return err
}

func (b *builder) object(od *objectDoc) (xps.Object, error) {
	c, err := b.component(&od.boxDoc)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(od.Type) {
	case "text", "":
		t := &xps.TextObject{Component: c}
		if err := b.text(t, &od.textDoc); err != nil {
			return nil, err
		}
		return t, nil

	case "line":
		l := &xps.LineObject{Component: c}
		l.Stroke, err = od.Stroke.line()
		return l, err

	case "shape":
		s := &xps.ShapeObject{Component: c, Curve: od.Curve}
		if s.Shape, err = lookup("shape", shapeNames, od.Shape, xps.ShapeRectangle); err != nil {
			return nil, err
		}
		s.Stroke, err = od.Stroke.line()
		return s, err

	case "checkbox":
		cb := &xps.CheckBoxObject{
			Component:       c,
			Checked:         od.Checked,
			HideIfUnchecked: od.HideUnchecked,
		}
		if cb.CheckedSymbol, err = lookup("symbol", checkedNames, od.Symbol, xps.CheckedSymbolCheck); err != nil {
			return nil, err
		}
		if cb.UncheckedSymbol, err = lookup("symbol", uncheckedNames, od.Unchecked, xps.UncheckedSymbolNone); err != nil {
			return nil, err
		}
		cb.CheckColor, err = parseColor(od.Color, black)
		return cb, err

	case "picture":
		p := &xps.PictureObject{Component: c, Tile: od.Tile}
		if p.SizeMode, err = lookup("size mode", sizeModeNames, od.SizeMode, xps.SizeModeNormal); err != nil {
			return nil, err
		}
		p.Image, err = b.image(od.File)
		return p, err

	case "chart", "barcode", "zipcode", "richtext", "custom":
		fn, err := b.raster(od.File)
		if err != nil {
			return nil, err
		}
		return opaqueObject(strings.ToLower(od.Type), c, fn), nil

	case "table":
		return b.table(c, od)
	}
	return nil, fmt.Errorf("unknown object type %q", od.Type)
}

// raster returns a callback scaling a pre-rendered image file into the
// component's bitmap.
func (b *builder) raster(name string) (xps.RasterFunc, error) {
	img, err := b.image(name)
	if err != nil {
		return nil, err
	}
	return func(dst draw.Image) error {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
		return nil
	}, nil
}

func opaqueObject(kind string, c xps.Component, fn xps.RasterFunc) xps.Object {
	switch kind {
	case "chart":
		return &xps.ChartObject{Component: c, Raster: fn}
	case "barcode":
		return &xps.BarcodeObject{Component: c, Raster: fn}
	case "zipcode":
		return &xps.ZipCodeObject{Component: c, Raster: fn}
	case "richtext":
		return &xps.RichTextObject{Component: c, Raster: fn}
	}
	return &xps.CustomObject{Component: c, Raster: fn}
}

func (b *builder) table(c xps.Component, od *objectDoc) (*xps.TableObject, error) {
	t := &xps.TableObject{Component: c}
	for _, w := range od.Columns {
		t.AddColumn(w)
	}
	for i := range od.Rows {
		rd := &od.Rows[i]
		row := t.AddRow(rd.Height)
		for j := range rd.Cells {
			cd := &rd.Cells[j]
			cell := row.AddCell()
			cell.ColSpan = cd.ColSpan
			cell.RowSpan = cd.RowSpan

			// cell boxes are placed by the table; the size is needed for layout
			cell.Width = spanned(od.Columns, j, cd.ColSpan)
			cell.Height = spanned(rowHeights(od.Rows), i, cd.RowSpan)
			var err error
			if cell.Fill, err = cd.Fill.fill(); err != nil {
				return nil, fmt.Errorf("cell %d,%d: %w", j, i, err)
			}
			if cell.Border, err = cd.Border.border(); err != nil {
				return nil, fmt.Errorf("cell %d,%d: %w", j, i, err)
			}
			if err := b.text(&cell.TextObject, &cd.textDoc); err != nil {
				return nil, fmt.Errorf("cell %d,%d: %w", j, i, err)
			}
		}
	}
	return t, nil
}

func rowHeights(rows []rowDoc) []float64 {
	hs := make([]float64, len(rows))
	for i, r := range rows {
		hs[i] = r.Height
	}
	return hs
}

// spanned sums sizes[from:from+n], treating n < 1 as 1.
func spanned(sizes []float64, from, n int) float64 {
	n = max(n, 1)
	var s float64
	for i := from; i < from+n && i < len(sizes); i++ {
		s += sizes[i]
	}
	return s
}
