package xps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShapePath(t *testing.T) {
	square := Rect{Width: 10, Height: 10}
	for _, tc := range []struct {
		kind  ShapeKind
		box   Rect
		bw    float64
		curve float64
		want  string
	}{
		{ShapeRectangle, Rect{Width: 10, Height: 20}, 2, 0, "M 1,1 L 9,1 9,19 1,19 z"},
		{ShapeRectangle, Rect{Left: 5, Top: 5, Width: 10, Height: 10}, 0, 0, "M 5,5 L 15,5 15,15 5,15 z"},
		{ShapeDiamond, square, 0, 0, "M 5,0 L 10,5 5,10 0,5 z"},
		{ShapeEllipse, square, 0, 0, "M 5,0 A 5,5 0 1 0 5.1,0 z"},
		{ShapeTriangle, square, 0, 0, "M 10,10 L 0,10 5,0 z"},
		{ShapeRoundRectangle, Rect{Width: 20, Height: 40}, 0, 0,
			"M 5,0 L 15,0 A 5,5 0 0 1 20,5 L 20,35 A 5,5 0 0 1 15,40 L 5,40 A 5,5 0 0 1 0,35 L 0,5 A 5,5 0 0 1 5,0 z"},
		{ShapeRoundRectangle, Rect{Width: 20, Height: 40}, 0, 2,
			"M 2,0 L 18,0 A 2,2 0 0 1 20,2 L 20,38 A 2,2 0 0 1 18,40 L 2,40 A 2,2 0 0 1 0,38 L 0,2 A 2,2 0 0 1 2,0 z"},
		{ShapeRoundRectangle, Rect{Width: 20, Height: 40}, 0, 100,
			"M 10,0 L 10,0 A 10,10 0 0 1 20,10 L 20,30 A 10,10 0 0 1 10,40 L 10,40 A 10,10 0 0 1 0,30 L 0,10 A 10,10 0 0 1 10,0 z"},
	} {
		got, err := ShapePath(tc.kind, tc.box, tc.bw, tc.curve)
		require.NoError(t, err, tc.kind.String())
		require.Equal(t, tc.want, got, tc.kind.String())
	}
}

func TestShapePathUnsupported(t *testing.T) {
	_, err := ShapePath(ShapeKind(42), Rect{Width: 10, Height: 10}, 1, 0)
	require.ErrorIs(t, err, ErrUnsupportedShape)
	require.Equal(t, "unknown", ShapeKind(42).String())
}
