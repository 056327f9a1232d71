package xps

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// Resource categories of embedded rasters.
const (
	CategoryImages     = "Images"
	CategoryCharts     = "Charts"
	CategoryBarcodes   = "Barcodes"
	CategoryZipCodes   = "ZipCodes"
	CategoryRichText   = "RichText"
	CategoryWatermarks = "Watermarks"
	CategoryFallback   = "Fallback"
)

// embed rasterizes c with fn into a transparent bitmap of the component's
// rounded size and stores it as a PNG part. Components without area produce
// nothing and report false.
func (s *Session) embed(c *Component, category string, fn RasterFunc) (string, bool, error) {
	if c.Width <= 0 || c.Height <= 0 {
		tracer().Debugf("skip empty raster of %q (%s)", c.Name, category)
		return "", false, nil
	}
	w := max(int(math.Round(c.Width)), 1)
	h := max(int(math.Round(c.Height)), 1)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	if err := fn(img); err != nil {
		return "", false, fmt.Errorf("render %s: %w", category, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", false, fmt.Errorf("encode %s: %w", category, err)
	}

	s.pictures++
	name := fmt.Sprintf("/Resources/%s/%s.%d.png", category,
		cleanPartSegment(c.Name, category), s.pictures)
	if err := s.pkg.AddPart(name, buf.Bytes(), ""); err != nil {
		return "", false, err
	}
	tracer().Debugf("raster of %q embedded as %s, %dx%d", c.Name, name, w, h)
	return name, true, nil
}

// drawPicture returns a raster callback placing src into the destination
// according to mode.
func drawPicture(src image.Image, mode SizeMode, tile bool) RasterFunc {
	return func(dst draw.Image) error {
		db := dst.Bounds()
		sb := src.Bounds()
		sw, sh := sb.Dx(), sb.Dy()
		if sw == 0 || sh == 0 {
			return nil
		}

		if tile {
			for y := db.Min.Y; y < db.Max.Y; y += sh {
				for x := db.Min.X; x < db.Max.X; x += sw {
					r := image.Rect(x, y, x+sw, y+sh).Intersect(db)
					draw.Draw(dst, r, src, sb.Min, draw.Over)
				}
			}
			return nil
		}

		switch mode {
		case SizeModeStretch:
			draw.CatmullRom.Scale(dst, db, src, sb, draw.Over, nil)

		case SizeModeZoom:
			k := math.Min(float64(db.Dx())/float64(sw), float64(db.Dy())/float64(sh))
			w := int(math.Round(float64(sw) * k))
			h := int(math.Round(float64(sh) * k))
			r := image.Rect(0, 0, w, h).Add(db.Min).Add(image.Pt((db.Dx()-w)/2, (db.Dy()-h)/2))
			draw.CatmullRom.Scale(dst, r, src, sb, draw.Over, nil)

		case SizeModeCenter:
			off := image.Pt((db.Dx()-sw)/2, (db.Dy()-sh)/2)
			r := image.Rect(0, 0, sw, sh).Add(db.Min).Add(off)
			draw.Draw(dst, r, src, sb.Min, draw.Over)

		default:
			draw.Draw(dst, db, src, sb.Min, draw.Over)
		}
		return nil
	}
}

// watermarkSizeMode maps a watermark image size onto picture placement.
func watermarkSizeMode(ws WatermarkImageSize) (SizeMode, bool) {
	switch ws {
	case WatermarkImageStretch:
		return SizeModeStretch, false
	case WatermarkImageZoom:
		return SizeModeZoom, false
	case WatermarkImageCenter:
		return SizeModeCenter, false
	case WatermarkImageTile:
		return SizeModeNormal, true
	}
	return SizeModeNormal, false
}
