package opencv

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"

	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/imaging"
)

// MeasureDiameters estimates per-segment mean diameters from the distance
// transform of the segmentation. On a centerline pixel the distance to the
// nearest background pixel is the local vessel radius, so twice that value is
// the local width; averaging over a segment's labeled pixels gives its mean
// diameter. The visualization is the preprocessed image with every measured
// centerline painted white.
func (t *Toolkit) MeasureDiameters(pre *imaging.Grid, seg *imaging.Mask, labels *imaging.LabelMap) (*imaging.Grid, []imaging.SegmentDiameter, error) {
	if seg.Width != labels.Width || seg.Height != labels.Height {
		return nil, nil, fmt.Errorf("segmentation %dx%d and labels %dx%d disagree",
			seg.Width, seg.Height, labels.Width, labels.Height)
	}

	mask := maskToMat(seg)
	defer mask.Close()
	dist := gocv.NewMat()
	defer dist.Close()
	distLabels := gocv.NewMat()
	defer distLabels.Close()
	gocv.DistanceTransform(mask, &dist, &distLabels, gocv.DistL2, gocv.DistanceMask5, gocv.DistanceLabelCComp)

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for y := 0; y < labels.Height; y++ {
		for x := 0; x < labels.Width; x++ {
			id := int(labels.At(y, x))
			if id == 0 {
				continue
			}
			sums[id] += 2 * float64(dist.GetFloatAt(y, x))
			counts[id]++
		}
	}

	ids := make([]int, 0, len(sums))
	for id := range sums {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	diameters := make([]imaging.SegmentDiameter, 0, len(ids))
	for _, id := range ids {
		diameters = append(diameters, imaging.SegmentDiameter{
			SegmentID:  id,
			DiameterPx: sums[id] / float64(counts[id]),
		})
	}

	return overlayCenterlines(pre, labels), diameters, nil
}

// NetworkLength totals the skeleton edge pixels.
func (t *Toolkit) NetworkLength(edges *imaging.Mask) (int, error) {
	return edges.CountNonZero(), nil
}

// VesselDensity tiles the segmentation and reports the per-tile foreground
// ratio map along with the overall foreground ratio. Border tiles may be
// smaller than the nominal tile size; their ratio uses their true area.
func (t *Toolkit) VesselDensity(img *imaging.Grid, seg *imaging.Mask, tileHeight, tileWidth int) (*imaging.Grid, float64, error) {
	if tileHeight <= 0 || tileWidth <= 0 {
		return nil, 0, fmt.Errorf("invalid tile size %dx%d", tileHeight, tileWidth)
	}
	if seg.Width == 0 || seg.Height == 0 {
		return nil, 0, fmt.Errorf("cannot compute density of an empty mask")
	}

	tilesY := (seg.Height + tileHeight - 1) / tileHeight
	tilesX := (seg.Width + tileWidth - 1) / tileWidth
	tiles := imaging.NewGrid(tilesX, tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			y0, x0 := ty*tileHeight, tx*tileWidth
			y1 := min(y0+tileHeight, seg.Height)
			x1 := min(x0+tileWidth, seg.Width)
			fg := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					if seg.At(y, x) != 0 {
						fg++
					}
				}
			}
			tiles.Set(ty, tx, float64(fg)/float64((y1-y0)*(x1-x0)))
		}
	}

	ratio := float64(seg.CountNonZero()) / float64(seg.Width*seg.Height)
	return tiles, ratio, nil
}

// BranchpointDensity skeletonizes the segmentation and reports branchpoints
// per pixel of image area along with the raw count. The skeleton is rebuilt
// here so the measurement depends only on the mask it is given.
func (t *Toolkit) BranchpointDensity(seg *imaging.Mask) (float64, int, error) {
	if seg.Width == 0 || seg.Height == 0 {
		return 0, 0, fmt.Errorf("cannot compute density of an empty mask")
	}

	src := maskToMat(seg)
	defer src.Close()
	skelMat := skeletonOf(src)
	defer skelMat.Close()

	_, branchpoints := splitBranchpoints(matToMask(skelMat))
	count := branchpoints.CountNonZero()
	density := float64(count) / float64(seg.Width*seg.Height)
	return density, count, nil
}

// overlayCenterlines copies the unit-range background and paints every
// labeled centerline pixel white.
func overlayCenterlines(pre *imaging.Grid, labels *imaging.LabelMap) *imaging.Grid {
	viz := imaging.NewGrid(pre.Width, pre.Height)
	copy(viz.Data, pre.Data)
	for y := 0; y < labels.Height && y < viz.Height; y++ {
		for x := 0; x < labels.Width && x < viz.Width; x++ {
			if labels.At(y, x) != 0 {
				viz.Set(y, x, 1)
			}
		}
	}
	return viz
}
