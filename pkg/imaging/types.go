package imaging

import (
	"gonum.org/v1/gonum/floats"
)

// Volume represents a 3D microscopy scan as a contiguous stack of 2D planes.
// Voxel intensities are stored as float32, the working precision for the
// whole run; the cast from the source bit depth happens once, at load time.
type Volume struct {
	// Data is the voxel data as a 1D array in plane-major (z, y, x) order
	Data []float32

	// Width is the number of columns in each plane
	Width int

	// Height is the number of rows in each plane
	Height int

	// Depth is the number of planes in the stack
	Depth int
}

// NewVolume allocates a zeroed volume with the given dimensions.
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:   make([]float32, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// At returns the intensity at plane z, row y, column x.
func (v *Volume) At(z, y, x int) float32 {
	return v.Data[(z*v.Height+y)*v.Width+x]
}

// Set stores an intensity at plane z, row y, column x.
func (v *Volume) Set(z, y, x int, val float32) {
	v.Data[(z*v.Height+y)*v.Width+x] = val
}

// MaxProjection collapses the stack along z by taking the per-pixel maximum,
// producing the 2D image the rest of the pipeline operates on. An empty stack
// projects to an all-zero grid.
func (v *Volume) MaxProjection() *Grid {
	proj := NewGrid(v.Width, v.Height)
	if v.Depth == 0 {
		return proj
	}
	area := v.Width * v.Height
	for i := 0; i < area; i++ {
		proj.Data[i] = float64(v.Data[i])
	}
	for z := 1; z < v.Depth; z++ {
		plane := v.Data[z*area : (z+1)*area]
		for i, val := range plane {
			if f := float64(val); f > proj.Data[i] {
				proj.Data[i] = f
			}
		}
	}
	return proj
}

// Grid is a single-channel 2D raster of float64 intensities. It carries the
// maximum projection, the preprocessed image and the collaborator's
// visualization output (visualizations are unit-range, [0, 1]).
type Grid struct {
	// Data is the pixel data as a 1D array in row-major order
	Data []float64

	// Width and Height are the raster dimensions in pixels
	Width, Height int
}

// NewGrid allocates a zeroed grid with the given dimensions.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Data:   make([]float64, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the intensity at row y, column x.
func (g *Grid) At(y, x int) float64 {
	return g.Data[y*g.Width+x]
}

// Set stores an intensity at row y, column x.
func (g *Grid) Set(y, x int, val float64) {
	g.Data[y*g.Width+x] = val
}

// Max returns the largest intensity in the grid, or 0 for an empty grid.
func (g *Grid) Max() float64 {
	if len(g.Data) == 0 {
		return 0
	}
	return floats.Max(g.Data)
}

// Mask is a binary 2D raster: 0 is background, 1 is foreground. Segmentation,
// skeleton, edge and branchpoint images are all masks.
type Mask struct {
	// Data is the mask data as a 1D array in row-major order
	Data []uint8

	// Width and Height are the raster dimensions in pixels
	Width, Height int
}

// NewMask allocates a zeroed mask with the given dimensions.
func NewMask(width, height int) *Mask {
	return &Mask{
		Data:   make([]uint8, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the mask value at row y, column x.
func (m *Mask) At(y, x int) uint8 {
	return m.Data[y*m.Width+x]
}

// Set stores a mask value at row y, column x.
func (m *Mask) Set(y, x int, val uint8) {
	m.Data[y*m.Width+x] = val
}

// CountNonZero returns the number of foreground pixels.
func (m *Mask) CountNonZero() int {
	n := 0
	for _, v := range m.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

// LabelMap is a 2D raster of connected-component labels. Zero is background;
// positive values identify vessel segments.
type LabelMap struct {
	// Data is the label data as a 1D array in row-major order
	Data []int32

	// Width and Height are the raster dimensions in pixels
	Width, Height int
}

// NewLabelMap allocates a zeroed label map with the given dimensions.
func NewLabelMap(width, height int) *LabelMap {
	return &LabelMap{
		Data:   make([]int32, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the label at row y, column x.
func (l *LabelMap) At(y, x int) int32 {
	return l.Data[y*l.Width+x]
}

// Set stores a label at row y, column x.
func (l *LabelMap) Set(y, x int, label int32) {
	l.Data[y*l.Width+x] = label
}

// CountLabel returns the number of pixels carrying the given label. The pixel
// count of a segment's label is its length in pixels.
func (l *LabelMap) CountLabel(id int) int {
	n := 0
	want := int32(id)
	for _, v := range l.Data {
		if v == want {
			n++
		}
	}
	return n
}
