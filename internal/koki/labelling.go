package koki

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"
)

// GridWidth is the number of cells along each side of a marker grid.
const GridWidth = 10

// ErrGridIndex is returned when a grid coordinate is outside 0..GridWidth-1.
var ErrGridIndex = errors.New("grid index out of range")

// ClipRegion is the bounding box and pixel mass of one connected component.
type ClipRegion struct { // size 20
	Mass int32    // offset 0, size 4
	Min  Point2Di // offset 4, size 8
	Max  Point2Di // offset 12, size 8
}

// Valid reports whether a non-empty region has min <= max on both axes.
func (c ClipRegion) Valid() bool {
	if c.Mass <= 0 {
		return true
	}
	return c.Min.X <= c.Max.X && c.Min.Y <= c.Max.Y
}

func (c ClipRegion) String() string {
	return fmt.Sprintf("ClipRegion (mass=%d, min = %s, max = %s)", c.Mass, c.Min, c.Max)
}

// Cell accumulates the pixels sampled into one grid square.
type Cell struct { // size 12
	NumPixels int32 // offset 0, size 4
	Sum       int32 // offset 4, size 4
	Val       int32 // offset 8, size 4
}

func (c Cell) String() string {
	return fmt.Sprintf("Cell (num_pixels=%d, sum=%d, val=%d)", c.NumPixels, c.Sum, c.Val)
}

// Grid is the sampling grid read from inside a marker's border.
type Grid [GridWidth][GridWidth]Cell // size 1200

// At returns the cell at row, col.
func (g *Grid) At(row, col int) (Cell, error) {
	if err := checkGridIndex(row, col); err != nil {
		return Cell{}, err
	}
	return g[row][col], nil
}

// Set stores c at row, col.
func (g *Grid) Set(row, col int, c Cell) error {
	if err := checkGridIndex(row, col); err != nil {
		return err
	}
	g[row][col] = c
	return nil
}

func checkGridIndex(row, col int) error {
	if row < 0 || row >= GridWidth || col < 0 || col >= GridWidth {
		return fmt.Errorf("%w: (%d, %d)", ErrGridIndex, row, col)
	}
	return nil
}

func (g Grid) String() string {
	var b strings.Builder
	b.WriteString("Grid:\n[")
	for i := range g {
		if i > 0 {
			b.WriteString(",\n ")
		}
		b.WriteString("[")
		for j, c := range g[i] {
			if j > 0 {
				b.WriteString(",\t")
			}
			fmt.Fprintf(&b, "(%d, %d, %d)", c.NumPixels, c.Sum, c.Val)
		}
		b.WriteString("]")
	}
	b.WriteString("]")
	return b.String()
}

// LabelledImage is the connected-component labelling of a thresholded frame.
// All referenced memory belongs to libkoki.
//
// Offsets are for 64-bit targets.
type LabelledImage struct { // size 32
	Aliases *GArray // offset 0, size 8
	Clips   *GArray // offset 8, size 8
	Data    *Uint16 // offset 16, size 8
	H       Uint16  // offset 24, size 2
	W       Uint16  // offset 26, size 2
}

// AliasView returns the label aliasing table.
func (l *LabelledImage) AliasView() ArrayView[Uint16] {
	return NewArrayView[Uint16](l.Aliases)
}

// ClipView returns the per-label clip regions.
func (l *LabelledImage) ClipView() ArrayView[ClipRegion] {
	return NewArrayView[ClipRegion](l.Clips)
}

// Label returns the label assigned to pixel x, y.
func (l *LabelledImage) Label(x, y int) (Uint16, error) {
	if l.Data == nil {
		return 0, fmt.Errorf("%w: labelled image has no data", ErrIndexRange)
	}
	if x < 0 || y < 0 || x >= int(l.W) || y >= int(l.H) {
		return 0, fmt.Errorf("%w: pixel (%d, %d) outside %dx%d", ErrIndexRange, x, y, l.W, l.H)
	}
	return ViewOf[Uint16](unsafe.Pointer(l.Data), int(l.W)*int(l.H)).At(y*int(l.W) + x)
}

func (l *LabelledImage) String() string {
	return fmt.Sprintf("LabelledImage (aliases = %p, clips = %p, data = %p, w=%s, h=%s)",
		l.Aliases, l.Clips, l.Data, l.W, l.H)
}
