package xps

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedShape is returned for shape kinds without a path generator.
var ErrUnsupportedShape = errors.New("unsupported shape kind")

// ShapePath returns the closed path geometry of a shape drawn inside box with
// a stroke of borderWidth. The outline runs along the box inset by half the
// stroke width on every side.
func ShapePath(kind ShapeKind, box Rect, borderWidth, curve float64) (string, error) {
	x := box.Left + borderWidth/2
	y := box.Top + borderWidth/2
	dx := box.Width - borderWidth
	dy := box.Height - borderWidth
	x1 := x + dx
	y1 := y + dy

	p := &pathData{}
	switch kind {
	case ShapeRectangle:
		p.MoveTo(x, y).LineTo(x1, y, x1, y1, x, y1)

	case ShapeDiamond:
		p.MoveTo(x+dx/2, y).LineTo(x1, y+dy/2, x+dx/2, y1, x, y+dy/2)

	case ShapeEllipse:
		cx := x + dx/2
		// the end point is nudged so the arc covers a full revolution
		p.MoveTo(cx, y).Arc(dx/2, dy/2, true, false, cx+0.1, y)

	case ShapeTriangle:
		p.MoveTo(x1, y1).LineTo(x, y1, x+dx/2, y)

	case ShapeRoundRectangle:
		r := math.Min(dx, dy)
		if curve > 0 {
			r = math.Min(curve, r/2)
		} else {
			r = r / 4
		}
		p.MoveTo(x+r, y).
			LineTo(x1-r, y).Arc(r, r, false, true, x1, y+r).
			LineTo(x1, y1-r).Arc(r, r, false, true, x1-r, y1).
			LineTo(x+r, y1).Arc(r, r, false, true, x, y1-r).
			LineTo(x, y+r).Arc(r, r, false, true, x+r, y)

	default:
		return "", fmt.Errorf("%w: %d", ErrUnsupportedShape, int(kind))
	}

	return p.Close().String(), nil
}
