package geometry

import (
	"fmt"
	"math"
)

// Point is a position in normalized frame coordinates ([0,1] on both axes).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// InFrame reports whether p lies inside the unit square.
func (p Point) InFrame() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

// Box is a detection bounding box (x1,y1) top-left, (x2,y2) bottom-right.
// Boxes handed to the tracking controller are normalized to [0,1].
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the midpoint of the box.
func (b Box) Center() Point {
	return Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Validate checks that b is a well-formed normalized box.
func (b Box) Validate() error {
	for _, v := range []float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("box coordinates must be finite, got %+v", b)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("box coordinates must be normalized to [0,1], got %+v", b)
		}
	}
	if b.X1 >= b.X2 || b.Y1 >= b.Y2 {
		return fmt.Errorf("box must satisfy x1<x2 and y1<y2, got %+v", b)
	}
	return nil
}

// Normalize converts a box in pixels to frame ratios.
func Normalize(px Box, width, height int) (Box, error) {
	if width <= 0 || height <= 0 {
		return Box{}, fmt.Errorf("frame size must be positive, got %dx%d", width, height)
	}
	w, h := float64(width), float64(height)
	return Box{
		X1: px.X1 / w,
		Y1: px.Y1 / h,
		X2: px.X2 / w,
		Y2: px.Y2 / h,
	}, nil
}

// FromSlice builds a box from the [x1, y1, x2, y2] wire form.
func FromSlice(v []float64) (Box, error) {
	if len(v) != 4 {
		return Box{}, fmt.Errorf("box needs 4 coordinates, got %d", len(v))
	}
	return Box{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}
