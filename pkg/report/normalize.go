package report

import (
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/calibration"
)

// VesselSegment is one labeled skeleton segment in pixel units: its
// connected-component identifier, its mean diameter, and its length as the
// number of pixels carrying its label.
type VesselSegment struct {
	SegmentID  int
	DiameterPx float64
	LengthPx   int
}

// PixelMetrics collects the pixel-domain measurements of one run, exactly as
// the measurement calls produced them. Segment order is meaningful and flows
// unchanged into the per-segment table.
type PixelMetrics struct {
	// NetworkLengthPx is the total skeleton edge pixel count
	NetworkLengthPx int

	// VesselDensity is the segmented foreground ratio, already unitless
	VesselDensity float64

	// BranchpointDensity is the branchpoint rate per unit of mask area,
	// already normalized
	BranchpointDensity float64

	// Segments holds the measured segments in measurement order
	Segments []VesselSegment

	// ImageWidth and ImageHeight are the projection dimensions in pixels
	ImageWidth  int
	ImageHeight int
}

// SegmentRecord is one calibrated per-segment table row.
type SegmentRecord struct {
	// VesselID is the 1-based position of the segment in measurement order
	VesselID int

	// SegmentID is the connected-component label of the segment
	SegmentID int

	LengthPx     int
	LengthPhys   float64
	DiameterPx   float64
	DiameterPhys float64
}

// Normalized is a finished report: headline statistics in both unit domains,
// the summary table rows in their fixed export order, and the calibrated
// per-segment records.
type Normalized struct {
	// MeanPixelSize is the isotropic pixel-to-physical conversion factor
	MeanPixelSize float64

	// Unit is the physical unit label the factor converts into
	Unit string

	MeanDiameterPx    float64
	StdDiameterPx     float64
	MeanDiameterPhys  float64
	StdDiameterPhys   float64
	NetworkLengthPhys float64

	// Rows is the summary table in export order
	Rows []Row

	// Segments are the per-segment records in measurement order
	Segments []SegmentRecord
}

// Normalize converts pixel-domain measurements into a calibrated report.
// Every length-like quantity multiplies by the calibration's mean pixel
// size; density and ratio metrics pass through unconverted. Zero measured
// segments yield 0.0 diameter statistics, never NaN.
func Normalize(m PixelMetrics, cal calibration.Calibration) *Normalized {
	mps := cal.MeanPixelSize()

	diams := make([]float64, len(m.Segments))
	for i, s := range m.Segments {
		diams[i] = s.DiameterPx
	}

	meanPx, stdPx := 0.0, 0.0
	if len(diams) > 0 {
		meanPx = stat.Mean(diams, nil)
		// Population standard deviation, divisor N. A single segment
		// reports spread 0, not NaN.
		stdPx = stat.PopStdDev(diams, nil)
	}

	n := &Normalized{
		MeanPixelSize:     mps,
		Unit:              cal.Unit,
		MeanDiameterPx:    meanPx,
		StdDiameterPx:     stdPx,
		MeanDiameterPhys:  meanPx * mps,
		StdDiameterPhys:   stdPx * mps,
		NetworkLengthPhys: float64(m.NetworkLengthPx) * mps,
	}

	n.Segments = make([]SegmentRecord, 0, len(m.Segments))
	for i, s := range m.Segments {
		n.Segments = append(n.Segments, SegmentRecord{
			VesselID:     i + 1,
			SegmentID:    s.SegmentID,
			LengthPx:     s.LengthPx,
			LengthPhys:   float64(s.LengthPx) * mps,
			DiameterPx:   s.DiameterPx,
			DiameterPhys: s.DiameterPx * mps,
		})
	}

	n.Rows = summaryRows(m, n)
	return n
}

// summaryRows renders the summary table in its fixed row order. Image
// dimensions are reported as raw integers; every other value goes through
// the significant-digit formatter.
func summaryRows(m PixelMetrics, n *Normalized) []Row {
	sig := DefaultSigDigits
	return []Row{
		{"Total Network Length (skeleton pixels)", FormatSig(float64(m.NetworkLengthPx), sig), "pixels"},
		{"Total Network Length (physical)", FormatSig(n.NetworkLengthPhys, sig), n.Unit + "/px * pixels"},
		{"Vessel Density", FormatSig(m.VesselDensity, sig), "ratio"},
		{"Branchpoint Density", FormatSig(m.BranchpointDensity, sig), "per unit area"},
		{"Mean Diameter (pixels)", FormatSig(n.MeanDiameterPx, sig), "pixels"},
		{"Mean Diameter (" + n.Unit + ")", FormatSig(n.MeanDiameterPhys, sig), n.Unit},
		{"Std Diameter (pixels)", FormatSig(n.StdDiameterPx, sig), "pixels"},
		{"Std Diameter (" + n.Unit + ")", FormatSig(n.StdDiameterPhys, sig), n.Unit},
		{"Number of Vessels (counted segments)", FormatSig(float64(len(m.Segments)), sig), "count"},
		{"Image Width", strconv.Itoa(m.ImageWidth), "pixels"},
		{"Image Height", strconv.Itoa(m.ImageHeight), "pixels"},
	}
}
