package opencv

import (
	"gocv.io/x/gocv"

	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/imaging"
)

// gridToMat copies a grid into a 32-bit float Mat.
func gridToMat(g *imaging.Grid) gocv.Mat {
	mat := gocv.NewMatWithSize(g.Height, g.Width, gocv.MatTypeCV32F)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			mat.SetFloatAt(y, x, float32(g.At(y, x)))
		}
	}
	return mat
}

// matToGrid copies a 32-bit float Mat back into a grid.
func matToGrid(mat gocv.Mat) *imaging.Grid {
	g := imaging.NewGrid(mat.Cols(), mat.Rows())
	for y := 0; y < mat.Rows(); y++ {
		for x := 0; x < mat.Cols(); x++ {
			g.Set(y, x, float64(mat.GetFloatAt(y, x)))
		}
	}
	return g
}

// maskToMat copies a binary mask into an 8-bit Mat using the OpenCV 0/255
// convention.
func maskToMat(m *imaging.Mask) gocv.Mat {
	mat := gocv.NewMatWithSize(m.Height, m.Width, gocv.MatTypeCV8U)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(y, x) != 0 {
				mat.SetUCharAt(y, x, 255)
			}
		}
	}
	return mat
}

// matToMask folds any nonzero 8-bit Mat value into mask foreground.
func matToMask(mat gocv.Mat) *imaging.Mask {
	m := imaging.NewMask(mat.Cols(), mat.Rows())
	for y := 0; y < mat.Rows(); y++ {
		for x := 0; x < mat.Cols(); x++ {
			if mat.GetUCharAt(y, x) != 0 {
				m.Set(y, x, 1)
			}
		}
	}
	return m
}

// matToLabelMap copies a 32-bit signed label Mat into a label map.
func matToLabelMap(mat gocv.Mat) *imaging.LabelMap {
	l := imaging.NewLabelMap(mat.Cols(), mat.Rows())
	for y := 0; y < mat.Rows(); y++ {
		for x := 0; x < mat.Cols(); x++ {
			l.Set(y, x, mat.GetIntAt(y, x))
		}
	}
	return l
}
