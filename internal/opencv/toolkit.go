// Package opencv backs the imaging toolkit with OpenCV through the gocv
// bindings. The pipeline only sees the imaging.Toolkit interface; everything
// Mat-shaped stays inside this package, and every operation copies its result
// out before the Mats are closed.
package opencv

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"

	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/imaging"
)

// dogRatio is the sigma ratio between the two Gaussians of a
// difference-of-Gaussians band. 1.6 approximates the Laplacian of Gaussian.
const dogRatio = 1.6

// supportedFilters are the vesselness filter names the backend accepts. All
// of them currently share the multi-scale difference-of-Gaussians ridge
// response; the name is validated, not dispatched.
var supportedFilters = map[string]bool{
	"frangi":    true,
	"meijering": true,
	"sato":      true,
	"jerman":    true,
}

// Options configures the toolkit.
type Options struct {
	// Channel is the color channel extracted from multi-channel slices:
	// 0 red, 1 green, 2 blue
	Channel int

	// MetadataFile is the name of the calibration sidecar looked up next
	// to the slice images
	MetadataFile string
}

// Toolkit implements imaging.Toolkit on OpenCV.
type Toolkit struct {
	opts Options
}

// New creates a toolkit with the given options.
func New(opts Options) *Toolkit {
	if opts.MetadataFile == "" {
		opts.MetadataFile = "metadata.yaml"
	}
	return &Toolkit{opts: opts}
}

var _ imaging.Toolkit = (*Toolkit)(nil)

// PreprocessForSegmentation smooths the projection with a Gaussian kernel and
// stretches the result to unit range.
func (t *Toolkit) PreprocessForSegmentation(img *imaging.Grid) (*imaging.Grid, error) {
	if img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("cannot preprocess an empty image")
	}

	src := gridToMat(img)
	defer src.Close()
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(src, &blurred, image.Point{5, 5}, 0, 0, gocv.BorderDefault)

	out := matToGrid(blurred)
	stretchToUnit(out)
	return out, nil
}

// Segment binarizes the vesselness response of the preprocessed image and
// cleans the mask with morphology and a minimum component size filter.
func (t *Toolkit) Segment(img *imaging.Grid, params imaging.SegmentationParams) (*imaging.Mask, error) {
	if img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("cannot segment an empty image")
	}
	if !supportedFilters[params.Filter] {
		return nil, fmt.Errorf("unsupported vesselness filter %q", params.Filter)
	}
	scales := params.Sigma1.Values()
	if params.MultiScale {
		scales = append(scales, params.Sigma2.Values()...)
	}
	if len(scales) == 0 {
		return nil, fmt.Errorf("no filter scales configured")
	}

	work := gridToMat(img)
	if params.Preprocess {
		smoothed := gocv.NewMat()
		gocv.GaussianBlur(work, &smoothed, image.Point{5, 5}, 0, 0, gocv.BorderDefault)
		work.Close()
		work = smoothed
	}
	defer work.Close()

	// Per-pixel maximum over all scale bands. The accumulator starts at
	// zero, which also clips negative band responses (dark ridges).
	resp := gocv.NewMatWithSize(img.Height, img.Width, gocv.MatTypeCV32F)
	defer resp.Close()
	for _, sigma := range scales {
		band := dogBand(work, sigma)
		gocv.Max(resp, band, &resp)
		band.Close()
	}

	minv, maxv, _, _ := gocv.MinMaxLoc(resp)
	if maxv <= minv {
		return imaging.NewMask(img.Width, img.Height), nil
	}
	cutoff := float64(minv) + (float64(maxv)-float64(minv))*params.Threshold/100

	binf := gocv.NewMat()
	defer binf.Close()
	gocv.Threshold(resp, &binf, float32(cutoff), 255, gocv.ThresholdBinary)

	bin := gocv.NewMatWithSize(img.Height, img.Width, gocv.MatTypeCV8U)
	defer bin.Close()
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if binf.GetFloatAt(y, x) != 0 {
				bin.SetUCharAt(y, x, 255)
			}
		}
	}

	if params.HoleSize > 0 {
		k := oddKernel(params.HoleSize)
		kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{k, k})
		gocv.MorphologyEx(bin, &bin, gocv.MorphClose, kernel)
		kernel.Close()
	}
	speck := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{3, 3})
	gocv.MorphologyEx(bin, &bin, gocv.MorphOpen, speck)
	speck.Close()

	return filterSmallComponents(bin, params.MinObjectSize), nil
}

// dogBand computes one difference-of-Gaussians band of src at the given
// scale. The caller owns the returned Mat.
func dogBand(src gocv.Mat, sigma float64) gocv.Mat {
	narrow := gocv.NewMat()
	defer narrow.Close()
	wide := gocv.NewMat()
	defer wide.Close()
	gocv.GaussianBlur(src, &narrow, image.Point{}, sigma, sigma, gocv.BorderDefault)
	gocv.GaussianBlur(src, &wide, image.Point{}, sigma*dogRatio, sigma*dogRatio, gocv.BorderDefault)
	band := gocv.NewMat()
	gocv.Subtract(narrow, wide, &band)
	return band
}

// filterSmallComponents drops connected components smaller than minSize
// pixels and returns the survivors as a mask.
func filterSmallComponents(bin gocv.Mat, minSize int) *imaging.Mask {
	mask := imaging.NewMask(bin.Cols(), bin.Rows())
	labels := gocv.NewMat()
	defer labels.Close()
	n := gocv.ConnectedComponents(bin, &labels)
	counts := make([]int, n)
	for y := 0; y < bin.Rows(); y++ {
		for x := 0; x < bin.Cols(); x++ {
			counts[int(labels.GetIntAt(y, x))]++
		}
	}
	for y := 0; y < bin.Rows(); y++ {
		for x := 0; x < bin.Cols(); x++ {
			lbl := int(labels.GetIntAt(y, x))
			if lbl != 0 && counts[lbl] >= minSize {
				mask.Set(y, x, 1)
			}
		}
	}
	return mask
}

// oddKernel sizes a structuring element so its footprint covers holes of the
// given pixel area. Kernel sides must be odd and at least 3.
func oddKernel(area int) int {
	k := int(math.Round(math.Sqrt(float64(area))))
	if k < 3 {
		k = 3
	}
	if k%2 == 0 {
		k++
	}
	return k
}

// stretchToUnit rescales a grid to [0, 1] in place. A flat grid becomes all
// zero.
func stretchToUnit(g *imaging.Grid) {
	if len(g.Data) == 0 {
		return
	}
	minv := floats.Min(g.Data)
	maxv := floats.Max(g.Data)
	span := maxv - minv
	if span <= 0 {
		for i := range g.Data {
			g.Data[i] = 0
		}
		return
	}
	for i := range g.Data {
		g.Data[i] = (g.Data[i] - minv) / span
	}
}
