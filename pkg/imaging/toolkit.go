package imaging

// SegmentDiameter pairs a labeled vessel segment with its mean diameter in
// pixels. The order of a measurement's diameters is meaningful and is
// preserved all the way into the exported tables.
type SegmentDiameter struct {
	// SegmentID is the connected-component label of the segment
	SegmentID int

	// DiameterPx is the mean diameter of the segment in pixels
	DiameterPx float64
}

// ScaleRange enumerates vesselness filter scales as a half-open arithmetic
// range: Start is included, Stop is not. ScaleRange{1, 8, 1} yields
// 1, 2, ..., 7.
type ScaleRange struct {
	Start, Stop, Step float64
}

// Values expands the range into its ordered scale values. A non-positive
// step yields nil.
func (r ScaleRange) Values() []float64 {
	if r.Step <= 0 {
		return nil
	}
	var vals []float64
	for v := r.Start; v < r.Stop; v += r.Step {
		vals = append(vals, v)
	}
	return vals
}

// SegmentationParams controls the vessel segmentation stage. The zero value
// is not useful; start from DefaultSegmentationParams.
type SegmentationParams struct {
	// Filter names the vesselness filter, e.g. "frangi"
	Filter string

	// Sigma1 is the primary scale range for small vessels
	Sigma1 ScaleRange

	// Sigma2 is the secondary scale range for large vessels,
	// used when MultiScale is set
	Sigma2 ScaleRange

	// HoleSize is the largest background hole (in pixels) filled
	// inside segmented vessels
	HoleSize int

	// MinObjectSize removes connected foreground components smaller
	// than this many pixels
	MinObjectSize int

	// Threshold is the binarization cutoff as a percentage (0-100)
	// of the maximum filter response
	Threshold float64

	// Preprocess enables smoothing and contrast stretching before filtering
	Preprocess bool

	// MultiScale adds the Sigma2 response on top of the Sigma1 response
	MultiScale bool
}

// DefaultSegmentationParams returns the segmentation settings used for the
// reference fluorescence datasets.
func DefaultSegmentationParams() SegmentationParams {
	return SegmentationParams{
		Filter:        "frangi",
		Sigma1:        ScaleRange{Start: 1, Stop: 8, Step: 1},
		Sigma2:        ScaleRange{Start: 10, Stop: 20, Step: 5},
		HoleSize:      50,
		MinObjectSize: 500,
		Threshold:     60,
		Preprocess:    true,
		MultiScale:    true,
	}
}

// Toolkit is the image-processing collaborator the pipeline drives. The
// pipeline owns sequencing, calibration and reporting; everything that looks
// at pixels to produce structure goes through this interface. Implementations
// must not retain or mutate their inputs.
//
// All operations are synchronous and single-shot; implementations report
// failures through the error return rather than panicking.
type Toolkit interface {
	// LoadVolume reads a volumetric scan from path and returns the stack
	// together with whatever calibration metadata the source carries. The
	// metadata is opaque at this boundary; the calibration resolver gives
	// it meaning.
	LoadVolume(path string) (*Volume, interface{}, error)

	// PreprocessForSegmentation prepares a projection for vesselness
	// filtering (denoising, contrast stretching).
	PreprocessForSegmentation(img *Grid) (*Grid, error)

	// Segment produces a binary vessel mask from a preprocessed image.
	Segment(img *Grid, params SegmentationParams) (*Mask, error)

	// Skeletonize thins a vessel mask to single-pixel width and splits the
	// result into the full skeleton, the edge pixels (skeleton minus
	// branchpoints) and the branchpoint pixels.
	Skeletonize(seg *Mask) (skeleton, edges, branchpoints *Mask, err error)

	// LabelComponents assigns a distinct positive label to each connected
	// component of the edge mask. Each label is one vessel segment.
	LabelComponents(edges *Mask) (*LabelMap, error)

	// MeasureDiameters estimates the mean diameter of every labeled
	// segment, in pixels, and renders a unit-range overlay visualization
	// of the measured segments.
	MeasureDiameters(pre *Grid, seg *Mask, labels *LabelMap) (viz *Grid, diameters []SegmentDiameter, err error)

	// NetworkLength totals the skeleton edge pixels, the pixel-domain
	// length of the vessel network.
	NetworkLength(edges *Mask) (int, error)

	// VesselDensity tiles the image and returns the per-tile foreground
	// ratio map along with the overall foreground ratio.
	VesselDensity(img *Grid, seg *Mask, tileHeight, tileWidth int) (tiles *Grid, ratio float64, err error)

	// BranchpointDensity returns the branchpoint rate per pixel of mask
	// area along with the raw branchpoint count.
	BranchpointDensity(seg *Mask) (density float64, count int, err error)
}
