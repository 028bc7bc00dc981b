// Package export renders and commits the fixed artifact set of a pipeline
// run: four grayscale PNG images and two CSV tables with pinned file names.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"

	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/imaging"
	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/report"
)

// Fixed artifact names. Downstream analysis notebooks key on these exact
// strings, so they are not configurable.
const (
	ProjectionPNG    = "original_projection_fixed_test3.png"
	SegmentationPNG  = "vessel_segmentation18000_fixed_test3.png"
	SkeletonPNG      = "vessel_skeleton18000_fixed_test3.png"
	OverlayPNG       = "vessel_segmentation_overlay_test2.png"
	MetricsCSV       = "vessel_metrics2.csv"
	SegmentsCSV      = "individual_vessels2.csv"
	IncompleteMarker = "INCOMPLETE"
)

// EncodeProjectionPNG renders a raw-intensity projection as an 8-bit
// grayscale PNG, normalized by the projection maximum. An all-zero
// projection encodes as all black.
func EncodeProjectionPNG(g *imaging.Grid) ([]byte, error) {
	maxv := g.Max()
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	if maxv > 0 {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				img.SetGray(x, y, color.Gray{Y: grayLevel(g.At(y, x) / maxv * 255.0)})
			}
		}
	}
	return encodePNG(img)
}

// EncodeMaskPNG renders a binary mask as an 8-bit grayscale PNG with
// foreground at 255.
func EncodeMaskPNG(m *imaging.Mask) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(y, x) != 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return encodePNG(img)
}

// EncodeUnitGridPNG renders a unit-range visualization grid as an 8-bit
// grayscale PNG, scaling intensities by 255. Values outside [0, 1] clamp to
// the displayable range.
func EncodeUnitGridPNG(g *imaging.Grid) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			img.SetGray(x, y, color.Gray{Y: grayLevel(g.At(y, x) * 255.0)})
		}
	}
	return encodePNG(img)
}

// EncodeSummaryCSV renders the summary metrics table.
func EncodeSummaryCSV(rows []report.Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Metric", "Value", "Unit"}); err != nil {
		return nil, fmt.Errorf("failed to write metrics header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write([]string{row.Metric, row.Value, row.Unit}); err != nil {
			return nil, fmt.Errorf("failed to write metrics row %q: %w", row.Metric, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush metrics table: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeSegmentsCSV renders the per-segment table. The unit label is
// interpolated into the physical column headers; record order is kept as
// given. With no records the table is header-only.
func EncodeSegmentsCSV(records []report.SegmentRecord, unit string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"Vessel_ID",
		"Segment_ID",
		"Length_pixels",
		"Length_" + unit,
		"Mean_Diameter_pixels",
		"Mean_Diameter_" + unit,
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write segment header: %w", err)
	}

	sig := report.DefaultSigDigits
	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.VesselID),
			strconv.Itoa(rec.SegmentID),
			report.FormatSig(float64(rec.LengthPx), sig),
			report.FormatSig(rec.LengthPhys, sig),
			report.FormatSig(rec.DiameterPx, sig),
			report.FormatSig(rec.DiameterPhys, sig),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write segment %d: %w", rec.SegmentID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush segment table: %w", err)
	}
	return buf.Bytes(), nil
}

// grayLevel converts a scaled intensity to an 8-bit gray value, clamping
// out-of-range inputs so encoding stays deterministic.
func grayLevel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
