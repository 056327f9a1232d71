package xps

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	black = color.NRGBA{A: 0xff}
	red   = color.NRGBA{R: 0xff, A: 0xff}
	blue  = color.NRGBA{B: 0xff, A: 0xff}
)

const firstPage = "Documents/1/Pages/1.fpage"

func render(t *testing.T, opts []Option, pages ...*Page) map[string][]byte {
	t.Helper()
	var buf bytes.Buffer
	e := New(opts...)
	require.NoError(t, e.Export(&buf, pages...))
	return unzip(t, buf.Bytes())
}

func unzip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	files := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = b
	}
	return files
}

func a4(bands ...*Band) *Page {
	return &Page{
		PaperWidth:   210,
		PaperHeight:  297,
		LeftMargin:   10,
		TopMargin:    10,
		RightMargin:  10,
		BottomMargin: 10,
		Bands:        bands,
	}
}

func band(objs ...Object) *Band {
	return &Band{
		Component: Component{Name: "Data1", Width: 718, Height: 200},
		Objects:   objs,
	}
}

func textObject(name string, left, top float64, words ...string) *TextObject {
	var line Line
	x := 0.0
	for _, w := range words {
		line.Words = append(line.Words, Word{Text: w, Left: x, Width: 30})
		x += 35
	}
	return &TextObject{
		Component:  Component{Name: name, Left: left, Top: top, Width: 200, Height: 20},
		Font:       Typeface{Family: "Arial", Size: 10},
		TextColor:  black,
		Paragraphs: []Paragraph{{Lines: []Line{line}}},
	}
}

func pageElements(t *testing.T, files map[string][]byte) []element {
	t.Helper()
	data, ok := files[firstPage]
	require.True(t, ok, "page part missing")
	return parseElements(t, data)
}

func strokedPaths(els []element) []element {
	var out []element
	for _, e := range filterElements(els, "Path") {
		if _, ok := e.Attrs["Stroke"]; ok {
			out = append(out, e)
		}
	}
	return out
}

func filesWithPrefix(files map[string][]byte, prefix string) []string {
	var out []string
	for name := range files {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

func TestExportHello(t *testing.T) {
	files := render(t, nil, a4(band(textObject("Text1", 0, 0, "Hello"))))

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"FixedDocSeq.fdseq",
		"Documents/1/FixedDocument.fdoc",
		"docProps/core.xml",
		firstPage,
		"Documents/1/Pages/_rels/1.fpage.rels",
	} {
		require.Contains(t, files, name)
	}

	els := pageElements(t, files)
	page := els[0]
	require.Equal(t, "FixedPage", page.Name)
	require.Equal(t, "792.96", page.Attrs["Width"])
	require.Equal(t, "und", page.Attrs["lang"])

	glyphs := filterElements(els, "Glyphs")
	require.Len(t, glyphs, 1)
	g := glyphs[0]
	require.NotContains(t, g.Attrs, "UnicodeString")
	require.NotContains(t, g.Attrs, "RenderTransform")
	require.Equal(t, "1;2;3;3;4", g.Attrs["Indices"])
	require.Equal(t, "#ff000000", g.Attrs["Fill"])
	require.Equal(t, "13.2805", g.Attrs["FontRenderingEmSize"])
	require.Equal(t, "None", g.Attrs["StyleSimulations"])
	require.Equal(t, "51.0405", g.Attrs["OriginY"])

	fonts := filesWithPrefix(files, "Resources/")
	require.Len(t, fonts, 1)
	require.Equal(t, "/"+fonts[0], g.Attrs["FontUri"])

	rels := filterElements(parseElements(t, files["Documents/1/Pages/_rels/1.fpage.rels"]), "Relationship")
	require.Len(t, rels, 1)
	require.Equal(t, g.Attrs["FontUri"], rels[0].Attrs["Target"])
	require.Equal(t, relRequiredResource, rels[0].Attrs["Type"])
}

func TestExportHumanReadable(t *testing.T) {
	files := render(t, []Option{WithHumanReadable(true)},
		a4(band(textObject("Text1", 0, 0, "ab", "{x}"))))
	glyphs := filterElements(pageElements(t, files), "Glyphs")
	require.Len(t, glyphs, 2)
	require.Equal(t, "ab", glyphs[0].Attrs["UnicodeString"])
	require.Equal(t, "{}{x}", glyphs[1].Attrs["UnicodeString"])
}

func TestExportSkipsBlankWords(t *testing.T) {
	files := render(t, nil, a4(band(textObject("Text1", 0, 0, " ", "\t"))))
	require.Empty(t, filterElements(pageElements(t, files), "Glyphs"))
	require.Empty(t, filesWithPrefix(files, "Resources/"))
	require.NotContains(t, files, "Documents/1/Pages/_rels/1.fpage.rels")
}

func TestExportDeduplicatesTypefaces(t *testing.T) {
	a := textObject("A", 0, 0, "one")
	b := textObject("B", 0, 30, "two")
	b.Font.Size = 16
	c := textObject("C", 0, 60, "three")
	c.Font.Bold = true

	files := render(t, nil, a4(band(a, b, c)), a4(band(textObject("D", 0, 0, "four"))))
	require.Len(t, filesWithPrefix(files, "Resources/"), 2)

	g := filterElements(pageElements(t, files), "Glyphs")
	require.Len(t, g, 3)
	require.Equal(t, g[0].Attrs["FontUri"], g[1].Attrs["FontUri"])
	require.NotEqual(t, g[0].Attrs["FontUri"], g[2].Attrs["FontUri"])
	require.Equal(t, "21.2488", g[1].Attrs["FontRenderingEmSize"])
}

func TestExportRuns(t *testing.T) {
	bold := Typeface{Family: "Arial", Size: 10, Bold: true}
	obj := textObject("Rich", 0, 0)
	obj.Paragraphs[0].Lines[0].Words = []Word{{
		Text: "ab",
		Runs: []Run{
			{Text: "a", Left: 0, Width: 6},
			{Text: "b", Left: 6, Width: 6, Font: &bold, Color: &red},
		},
	}}
	files := render(t, nil, a4(band(obj)))

	g := filterElements(pageElements(t, files), "Glyphs")
	require.Len(t, g, 2)
	require.Equal(t, "#ff000000", g[0].Attrs["Fill"])
	require.Equal(t, "#ffff0000", g[1].Attrs["Fill"])
	require.NotEqual(t, g[0].Attrs["FontUri"], g[1].Attrs["FontUri"])
	require.Len(t, filesWithPrefix(files, "Resources/"), 2)
}

func TestExportRotatedText(t *testing.T) {
	obj := textObject("Rotated", 0, 0, "up")
	obj.Angle = 90
	files := render(t, nil, a4(band(obj)))

	g := filterElements(pageElements(t, files), "Glyphs")
	require.Len(t, g, 1)
	// centre of the object: margin + width/2, margin + height/2
	require.Equal(t, "0,1,-1,0,137.76,47.76", g[0].Attrs["RenderTransform"])
}

func TestExportScaledText(t *testing.T) {
	obj := textObject("Narrow", 0, 0, "wide")
	obj.WidthRatio = 0.5
	files := render(t, nil, a4(band(obj)))

	g := filterElements(pageElements(t, files), "Glyphs")
	require.Len(t, g, 1)
	require.True(t, strings.HasPrefix(g[0].Attrs["RenderTransform"], "0.5,0,0,1,"))
}

func TestExportTextDecorations(t *testing.T) {
	obj := textObject("Deco", 0, 0, "line")
	obj.Font.Underline = true
	obj.Font.Strikeout = true
	files := render(t, nil, a4(band(obj)))

	paths := strokedPaths(pageElements(t, files))
	require.Len(t, paths, 2)
	require.Equal(t, "0.625", paths[0].Attrs["StrokeThickness"])
	require.Equal(t, "0.3125", paths[1].Attrs["StrokeThickness"])
}

func TestExportGradientText(t *testing.T) {
	obj := textObject("Fancy", 0, 0, "grad")
	obj.TextFill = LinearGradientFill{StartColor: red, EndColor: blue}
	files := render(t, nil, a4(band(obj)))

	els := pageElements(t, files)
	g := filterElements(els, "Glyphs")
	require.Len(t, g, 1)
	require.NotContains(t, g[0].Attrs, "Fill")

	stops := filterElements(els, "GradientStop")
	require.Len(t, stops, 2)
	require.Equal(t, "#0000ff", stops[0].Attrs["Color"])
	require.Equal(t, "0", stops[0].Attrs["Offset"])
	require.Equal(t, "#ff0000", stops[1].Attrs["Color"])
}

func TestExportBorderMerge(t *testing.T) {
	line := BorderLine{Color: black, Width: 1}

	b := band()
	b.Width, b.Height = 100, 50
	b.Border = UniformBorder(BorderAll, line)
	paths := strokedPaths(pageElements(t, render(t, nil, a4(b))))
	require.Len(t, paths, 1)
	require.Equal(t, "M 37.76,37.76 H 137.76 V 87.76 H 37.76 z", paths[0].Attrs["Data"])
	require.Equal(t, "#ff000000", paths[0].Attrs["Stroke"])
	require.Equal(t, "1", paths[0].Attrs["StrokeThickness"])

	b.Border.Right.Width = 2
	paths = strokedPaths(pageElements(t, render(t, nil, a4(b))))
	require.Len(t, paths, 4)
	// left, bottom, right, top
	require.Equal(t, "M 37.76,37.76 V 87.76", paths[0].Attrs["Data"])
	require.Equal(t, "M 37.76,87.76 H 137.76", paths[1].Attrs["Data"])
	require.Equal(t, "M 137.76,37.76 V 87.76", paths[2].Attrs["Data"])
	require.Equal(t, "2", paths[2].Attrs["StrokeThickness"])
	require.Equal(t, "M 37.76,37.76 H 137.76", paths[3].Attrs["Data"])

	b.Border = UniformBorder(BorderLeft|BorderTop, BorderLine{Color: red, Style: LineStyleDash, Width: 1})
	paths = strokedPaths(pageElements(t, render(t, nil, a4(b))))
	require.Len(t, paths, 2)
	require.Equal(t, "2.75 1.0", paths[0].Attrs["StrokeDashArray"])
}

func TestExportFills(t *testing.T) {
	b := band()
	b.Width, b.Height = 100, 50
	b.Fill = SolidFill{Color: color.NRGBA{R: 1}}
	require.Empty(t, filterElements(pageElements(t, render(t, nil, a4(b))), "Path"))

	b.Fill = SolidFill{Color: red}
	paths := filterElements(pageElements(t, render(t, nil, a4(b))), "Path")
	require.Len(t, paths, 1)
	require.Equal(t, "F1 M 37.76,37.76 H 137.76 V 87.76 H 37.76 z", paths[0].Attrs["Data"])
	require.Equal(t, "#ffff0000", paths[0].Attrs["Fill"])

	b.Fill = GlassFill{Color: red, Blend: 0.25}
	paths = filterElements(pageElements(t, render(t, nil, a4(b))), "Path")
	require.Len(t, paths, 2)
	require.Equal(t, "0.75", paths[0].Attrs["Opacity"])
	require.Equal(t, "F1 M 37.76,62.76 H 137.76 V 87.76 H 37.76 z", paths[1].Attrs["Data"])

	b.Fill = LinearGradientFill{StartColor: red, EndColor: blue}
	els := pageElements(t, render(t, nil, a4(b)))
	require.Len(t, filterElements(els, "GradientStop"), 2)
	seg := filterElements(els, "PolyLineSegment")
	require.Len(t, seg, 1)
	require.Equal(t, "137.76,37.76 137.76,87.76 37.76,87.76", seg[0].Attrs["Points"])
}

func TestExportShadow(t *testing.T) {
	obj := textObject("Shadowed", 0, 0)
	obj.Width, obj.Height = 100, 50
	obj.Border.Shadow = true
	obj.Border.ShadowWidth = 4
	obj.Border.ShadowColor = black
	paths := filterElements(pageElements(t, render(t, nil, a4(band(obj)))), "Path")
	require.Len(t, paths, 1)
	require.Equal(t,
		"F1 M 137.76,41.76 H 141.76 V 91.76 H 41.76 V 87.76 H 137.76 z",
		paths[0].Attrs["Data"])
}

func TestExportTableSpans(t *testing.T) {
	tb := &TableObject{Component: Component{Name: "Table1"}}
	tb.AddColumn(50)
	tb.AddColumn(60)
	for _, texts := range [][]string{{"A", "B"}, {"C", "D"}} {
		row := tb.AddRow(20)
		for _, s := range texts {
			c := row.AddCell()
			c.Font = Typeface{Family: "Arial", Size: 10}
			c.TextColor = black
			c.Paragraphs = []Paragraph{{Lines: []Line{{Words: []Word{{Text: s, Width: 10}}}}}}
		}
	}
	tb.Cell(0, 0).ColSpan = 2
	tb.Border = UniformBorder(BorderAll, BorderLine{Color: black, Width: 1})

	col, row := tb.Cell(1, 1).Position()
	require.Equal(t, 1, col)
	require.Equal(t, 1, row)
	require.True(t, tb.IsInsideSpan(1, 0))
	require.False(t, tb.IsInsideSpan(1, 1))

	els := pageElements(t, render(t, []Option{WithHumanReadable(true)}, a4(band(tb))))
	g := filterElements(els, "Glyphs")
	require.Len(t, g, 3)
	var texts []string
	for _, e := range g {
		texts = append(texts, e.Attrs["UnicodeString"])
	}
	require.Equal(t, []string{"A", "C", "D"}, texts)

	paths := strokedPaths(els)
	require.Len(t, paths, 1)
	require.Equal(t, "M 37.76,37.76 H 147.76 V 77.76 H 37.76 z", paths[0].Attrs["Data"])
}

func solidRaster(c color.Color) RasterFunc {
	return func(dst draw.Image) error {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
		return nil
	}
}

func TestExportPictures(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	empty := &PictureObject{Component: Component{Name: "Empty", Width: 0, Height: 30}, Image: img}
	noImage := &PictureObject{Component: Component{Name: "NoImage", Width: 30, Height: 30}}
	logo := &PictureObject{
		Component: Component{Name: "Logo", Left: 10, Top: 10, Width: 40.4, Height: 20.6},
		Image:     img,
		SizeMode:  SizeModeStretch,
	}

	files := render(t, nil, a4(band(empty, noImage, logo)))
	require.Equal(t, []string{"Resources/Images/Logo.1.png"}, filesWithPrefix(files, "Resources/Images/"))

	decoded, err := png.Decode(bytes.NewReader(files["Resources/Images/Logo.1.png"]))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 40, 21), decoded.Bounds())

	els := pageElements(t, files)
	brushes := filterElements(els, "ImageBrush")
	require.Len(t, brushes, 1)
	require.Equal(t, "/Resources/Images/Logo.1.png", brushes[0].Attrs["ImageSource"])
	require.Equal(t, "0,0,40.4,20.6", brushes[0].Attrs["Viewbox"])
	require.Equal(t, "47.76,47.76,40.4,20.6", brushes[0].Attrs["Viewport"])
	require.Equal(t, "None", brushes[0].Attrs["TileMode"])

	rels := filterElements(parseElements(t, files["Documents/1/Pages/_rels/1.fpage.rels"]), "Relationship")
	require.Len(t, rels, 1)
	require.Equal(t, "/Resources/Images/Logo.1.png", rels[0].Attrs["Target"])
}

func TestExportOpaqueObjects(t *testing.T) {
	chart := &ChartObject{Component: Component{Name: "Sales chart", Width: 30, Height: 20}, Raster: solidRaster(red)}
	code := &BarcodeObject{Component: Component{Name: "Code", Width: 30, Height: 20}, Raster: solidRaster(black)}
	zc := &ZipCodeObject{Component: Component{Width: 30, Height: 20}, Raster: solidRaster(black)}
	rich := &RichTextObject{Component: Component{Name: "Rich", Width: 30, Height: 20}}
	custom := &CustomObject{Component: Component{Name: "Gauge", Width: 30, Height: 20}, Raster: solidRaster(blue)}

	files := render(t, nil, a4(band(chart, code, zc, rich, custom)))
	require.Contains(t, files, "Resources/Charts/Sales_chart.1.png")
	require.Contains(t, files, "Resources/Barcodes/Code.2.png")
	require.Contains(t, files, "Resources/ZipCodes/ZipCodes.3.png")
	require.Contains(t, files, "Resources/Fallback/Gauge.4.png")
	require.Empty(t, filesWithPrefix(files, "Resources/RichText/"))

	decoded, err := png.Decode(bytes.NewReader(files["Resources/Charts/Sales_chart.1.png"]))
	require.NoError(t, err)
	r, _, _, a := decoded.At(5, 5).RGBA()
	require.Equal(t, uint32(0xffff), r)
	require.Equal(t, uint32(0xffff), a)
}

func TestExportOutlinedText(t *testing.T) {
	obj := textObject("Outlined", 0, 0, "hollow")
	obj.Outline = true
	obj.Raster = solidRaster(red)
	files := render(t, nil, a4(band(obj)))
	require.Contains(t, files, "Resources/Fallback/Outlined.1.png")
	require.Empty(t, filterElements(pageElements(t, files), "Glyphs"))

	// without a raster callback outlined text falls back to glyphs
	obj.Raster = nil
	files = render(t, nil, a4(band(obj)))
	require.Len(t, filterElements(pageElements(t, files), "Glyphs"), 1)
}

func TestExportCheckBox(t *testing.T) {
	cb := &CheckBoxObject{
		Component:     Component{Name: "Check", Width: 18.9, Height: 18.9},
		Checked:       true,
		CheckedSymbol: CheckedSymbolFill,
		CheckColor:    red,
	}
	cb.Border = UniformBorder(BorderAll, BorderLine{Color: black, Width: 2})
	els := pageElements(t, render(t, nil, a4(band(cb))))
	paths := strokedPaths(els)
	require.Len(t, paths, 2)
	require.Equal(t, "#ffff0000", paths[1].Attrs["Stroke"])
	require.Equal(t, "3", paths[1].Attrs["StrokeThickness"])
	require.Equal(t, "M 41.76,41.76 L 52.66,41.76 52.66,52.66 41.76,52.66 z", paths[1].Attrs["Data"])
	brush := filterElements(els, "SolidColorBrush")
	require.Len(t, brush, 1)
	require.Equal(t, "#ff0000", brush[0].Attrs["Color"])

	cb.Checked = false
	cb.UncheckedSymbol = UncheckedSymbolNone
	require.Len(t, strokedPaths(pageElements(t, render(t, nil, a4(band(cb))))), 1)

	cb.UncheckedSymbol = UncheckedSymbolMinus
	paths = strokedPaths(pageElements(t, render(t, nil, a4(band(cb)))))
	require.Len(t, paths, 2)
	require.Equal(t, "M 41.76,47.21 L 52.66,47.21", paths[1].Attrs["Data"])

	cb.HideIfUnchecked = true
	require.Empty(t, filterElements(pageElements(t, render(t, nil, a4(band(cb)))), "Path"))
}

func TestExportLineAndShape(t *testing.T) {
	line := &LineObject{
		Component: Component{Name: "Line", Width: 100, Height: 0},
		Stroke:    BorderLine{Color: black, Width: 0.5, Style: LineStyleDot},
	}
	shape := &ShapeObject{
		Component: Component{Name: "Box", Width: 10, Height: 10, Fill: SolidFill{Color: blue}},
		Shape:     ShapeRectangle,
		Stroke:    BorderLine{Color: red, Width: 2},
	}
	paths := strokedPaths(pageElements(t, render(t, nil, a4(band(line, shape)))))
	require.Len(t, paths, 2)
	require.Equal(t, "M 37.76,37.76 L 137.76,37.76", paths[0].Attrs["Data"])
	require.Equal(t, "1.0 1.0", paths[0].Attrs["StrokeDashArray"])
	require.Equal(t, "M 38.76,38.76 L 46.76,38.76 46.76,46.76 38.76,46.76 z", paths[1].Attrs["Data"])
	require.Equal(t, "#ff0000ff", paths[1].Attrs["Fill"])
}

func TestExportWatermark(t *testing.T) {
	mark := textObject("Mark", 0, 0, "DRAFT")
	pg := a4(band(textObject("Body", 0, 0, "content")))
	pg.Watermark = Watermark{
		Enabled:        true,
		Text:           mark,
		TextRotation:   WatermarkForwardDiagonal,
		Image:          image.NewNRGBA(image.Rect(0, 0, 8, 8)),
		ImageSize:      WatermarkImageTile,
		ShowImageOnTop: true,
	}
	files := render(t, []Option{WithHumanReadable(true)}, pg)
	require.Contains(t, files, "Resources/Watermarks/Watermark.1.png")

	els := pageElements(t, files)
	var order []string
	for _, e := range els {
		switch e.Name {
		case "Glyphs":
			order = append(order, e.Attrs["UnicodeString"])
		case "ImageBrush":
			order = append(order, "image")
			require.Equal(t, "0,0,792.96,1121.472", e.Attrs["Viewport"])
		}
	}
	require.Equal(t, []string{"DRAFT", "content", "image"}, order)

	g := filterElements(els, "Glyphs")
	require.True(t, strings.HasPrefix(g[0].Attrs["RenderTransform"], "0.58779,0.80902,"))
	require.Zero(t, mark.Angle, "the watermark text object is not modified")
}

func TestExportWatermarkMissingParts(t *testing.T) {
	pg := a4()
	pg.Watermark = Watermark{Enabled: true, TextRotation: WatermarkVertical}
	files := render(t, nil, pg)
	els := pageElements(t, files)
	require.Len(t, els, 1, "only the page element is written")
}

func TestWatermarkAngle(t *testing.T) {
	require.Equal(t, 0.0, watermarkAngle(WatermarkHorizontal, 100, 100))
	require.Equal(t, 270.0, watermarkAngle(WatermarkVertical, 100, 100))
	require.Equal(t, 54.0, watermarkAngle(WatermarkForwardDiagonal, 210, 297))
	require.Equal(t, 306.0, watermarkAngle(WatermarkBackwardDiagonal, 210, 297))
	require.Equal(t, 35.0, watermarkAngle(WatermarkForwardDiagonal, 297, 210))
	require.Equal(t, 0.0, watermarkAngle(WatermarkForwardDiagonal, 0, 210))
}

func TestExportMultiplePages(t *testing.T) {
	files := render(t, nil,
		a4(band(textObject("A", 0, 0, "one"))),
		a4(band(textObject("B", 0, 0, "two"))))
	require.Contains(t, files, "Documents/1/Pages/2.fpage")
	require.Contains(t, files, "Documents/1/Pages/_rels/2.fpage.rels")
	pages := filterElements(parseElements(t, files["Documents/1/FixedDocument.fdoc"]), "PageContent")
	require.Len(t, pages, 2)
	require.Equal(t, "/Documents/1/Pages/2.fpage", pages[1].Attrs["Source"])
}

func TestExportErrorsCarryObject(t *testing.T) {
	bad := &ShapeObject{Component: Component{Name: "Blob", Width: 10, Height: 10}, Shape: ShapeKind(42)}
	var buf bytes.Buffer
	err := New().Export(&buf, a4(), a4(band(bad)))
	require.ErrorIs(t, err, ErrUnsupportedShape)

	var ee *ExportError
	require.True(t, errors.As(err, &ee))
	require.Equal(t, 2, ee.Page)
	require.Equal(t, "Blob", ee.Object)
	require.Zero(t, buf.Len(), "nothing is written on failure")

	boom := errors.New("boom")
	chart := &ChartObject{
		Component: Component{Name: "Chart", Width: 10, Height: 10},
		Raster:    func(draw.Image) error { return boom },
	}
	err = New().Export(&buf, a4(band(chart)))
	require.ErrorIs(t, err, boom)
}

func TestSessionMisuse(t *testing.T) {
	s := New().NewSession()
	require.ErrorIs(t, s.ExportBand(band()), ErrNoPage)
	require.ErrorIs(t, s.EndPage(), ErrNoPage)

	require.NoError(t, s.BeginPage(a4()))
	require.ErrorIs(t, s.BeginPage(a4()), ErrPageOpen)
	require.NoError(t, s.ExportBand(nil))
	require.ErrorIs(t, s.Finish(io.Discard), ErrPageOpen)
	require.NoError(t, s.EndPage())

	require.NoError(t, s.Finish(io.Discard))
	require.ErrorIs(t, s.Finish(io.Discard), ErrFinished)
	require.ErrorIs(t, s.BeginPage(a4()), ErrFinished)
	require.Equal(t, 1, s.Package().PageCount())
}

func TestSessionFinishTo(t *testing.T) {
	s := New().NewSession()
	require.NoError(t, s.BeginPage(a4()))
	require.NoError(t, s.ExportBand(band(textObject("T", 0, 0, "dir"))))
	require.NoError(t, s.EndPage())

	dir := t.TempDir()
	require.NoError(t, s.FinishTo(NewDirStorage(dir)))
	_, err := os.Stat(filepath.Join(dir, "Documents", "1", "Pages", "1.fpage"))
	require.NoError(t, err)
	require.Equal(t, 1, s.Fonts().Len())
}

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "report.xps")
	e := New(WithProperties(DocumentProperties{Title: "Report"}))
	require.NoError(t, e.SaveFile(name, a4(band(textObject("T", 0, 0, "saved")))))

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	files := unzip(t, data)
	require.Contains(t, files, firstPage)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	bad := &ShapeObject{Component: Component{Width: 10, Height: 10}, Shape: ShapeKind(7)}
	other := filepath.Join(dir, "broken.xps")
	require.ErrorIs(t, e.SaveFile(other, a4(band(bad))), ErrUnsupportedShape)
	_, err = os.Stat(other)
	require.True(t, os.IsNotExist(err))
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file is removed")
}

func TestFailedBeginPageKeepsNumbering(t *testing.T) {
	s := New(WithStrictParts(true)).NewSession()
	require.NoError(t, s.Package().AddPart("/Resources/Watermarks/Watermark.1.png", nil, ""))

	marked := a4()
	marked.Watermark = Watermark{Enabled: true, Image: image.NewNRGBA(image.Rect(0, 0, 8, 8))}
	require.ErrorIs(t, s.BeginPage(marked), ErrDuplicatePart)

	require.NoError(t, s.BeginPage(a4()))
	require.NoError(t, s.EndPage())

	var st memStorage
	require.NoError(t, s.FinishTo(&st))
	require.Contains(t, st.blobs, "/Documents/1/Pages/1.fpage")
	require.NotContains(t, st.blobs, "/Documents/1/Pages/2.fpage")
	refs := filterElements(parseElements(t, st.blobs["/Documents/1/FixedDocument.fdoc"]), "PageContent")
	require.Len(t, refs, 1)
	require.Equal(t, "/Documents/1/Pages/1.fpage", refs[0].Attrs["Source"])
}

func TestStyleWordsInFamilyNamesKeepTypefacesApart(t *testing.T) {
	named := textObject("Named", 0, 0, "one")
	named.Font = Typeface{Family: "Go bold", Size: 10}
	styled := textObject("Styled", 0, 30, "two")
	styled.Font = Typeface{Family: "Go", Size: 10, Bold: true}

	var buf bytes.Buffer
	require.NoError(t, New().Export(&buf, a4(band(named, styled))))
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, f := range zr.File {
		require.False(t, seen[f.Name], f.Name)
		seen[f.Name] = true
	}

	files := unzip(t, buf.Bytes())
	require.Len(t, filesWithPrefix(files, "Resources/"), 2)
	uris := map[string]bool{}
	for _, g := range filterElements(pageElements(t, files), "Glyphs") {
		uris[g.Attrs["FontUri"]] = true
	}
	require.Len(t, uris, 2)
}

func TestStrictPartsOption(t *testing.T) {
	s := New(WithStrictParts(true)).NewSession()
	require.NoError(t, s.Package().AddPart("/Documents/1/Pages/1.fpage", nil, ""))
	require.NoError(t, s.BeginPage(a4()))
	require.ErrorIs(t, s.EndPage(), ErrDuplicatePart)
}
