package opencv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/imaging"
)

// Skeletonize thins the segmentation to single-pixel-wide centerlines, then
// splits the result into edge pixels and branchpoint pixels. A branchpoint is
// a skeleton pixel with three or more skeleton neighbors; removing them cuts
// the network into the individually measurable segments.
func (t *Toolkit) Skeletonize(seg *imaging.Mask) (*imaging.Mask, *imaging.Mask, *imaging.Mask, error) {
	if seg.Width == 0 || seg.Height == 0 {
		return nil, nil, nil, fmt.Errorf("cannot skeletonize an empty mask")
	}

	src := maskToMat(seg)
	defer src.Close()
	skelMat := skeletonOf(src)
	defer skelMat.Close()

	skeleton := matToMask(skelMat)
	edges, branchpoints := splitBranchpoints(skeleton)
	return skeleton, edges, branchpoints, nil
}

// LabelComponents assigns a distinct positive label to every connected
// component of the edge mask. OpenCV numbers components in scan order, so
// labels are deterministic for a given mask.
func (t *Toolkit) LabelComponents(edges *imaging.Mask) (*imaging.LabelMap, error) {
	if edges.Width == 0 || edges.Height == 0 {
		return nil, fmt.Errorf("cannot label an empty mask")
	}

	src := maskToMat(edges)
	defer src.Close()
	labels := gocv.NewMat()
	defer labels.Close()
	gocv.ConnectedComponents(src, &labels)
	return matToLabelMap(labels), nil
}

// skeletonOf reduces a 0/255 mask to single-pixel-wide lines by iterative
// morphological erosion. Each pass peels one layer and keeps the pixels the
// opening would have lost. The loop ends when the eroded image is empty or
// when a pass stops shrinking it: erosion reads pixels outside the image as
// foreground, so an all-foreground mask erodes to itself and would never
// empty.
func skeletonOf(mask gocv.Mat) gocv.Mat {
	skeleton := gocv.NewMatWithSize(mask.Rows(), mask.Cols(), gocv.MatTypeCV8U)
	work := mask.Clone()
	defer work.Close()

	eroded := gocv.NewMat()
	defer eroded.Close()

	element := gocv.GetStructuringElement(gocv.MorphCross, image.Point{3, 3})
	defer element.Close()

	for {
		gocv.Erode(work, &eroded, element)

		dilated := gocv.NewMat()
		gocv.Dilate(eroded, &dilated, element)

		diff := gocv.NewMat()
		gocv.Subtract(work, dilated, &diff)
		dilated.Close()

		gocv.BitwiseOr(skeleton, diff, &skeleton)
		diff.Close()

		// Erosion never adds pixels, so an unchanged count is a
		// stalled pass, not progress toward empty.
		remaining := gocv.CountNonZero(eroded)
		if remaining == 0 || remaining == gocv.CountNonZero(work) {
			break
		}

		eroded.CopyTo(&work)
	}

	return skeleton
}

// splitBranchpoints classifies skeleton pixels by 8-connected neighbor count:
// three or more skeleton neighbors make a branchpoint, everything else is an
// edge pixel.
func splitBranchpoints(skeleton *imaging.Mask) (edges, branchpoints *imaging.Mask) {
	edges = imaging.NewMask(skeleton.Width, skeleton.Height)
	branchpoints = imaging.NewMask(skeleton.Width, skeleton.Height)
	for y := 0; y < skeleton.Height; y++ {
		for x := 0; x < skeleton.Width; x++ {
			if skeleton.At(y, x) == 0 {
				continue
			}
			if skeletonNeighbors(skeleton, y, x) >= 3 {
				branchpoints.Set(y, x, 1)
			} else {
				edges.Set(y, x, 1)
			}
		}
	}
	return edges, branchpoints
}

// skeletonNeighbors counts foreground pixels in the 8-neighborhood of (y, x).
func skeletonNeighbors(m *imaging.Mask, y, x int) int {
	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dy == 0 && dx == 0 {
				continue
			}
			ny, nx := y+dy, x+dx
			if ny < 0 || ny >= m.Height || nx < 0 || nx >= m.Width {
				continue
			}
			if m.At(ny, nx) != 0 {
				n++
			}
		}
	}
	return n
}
