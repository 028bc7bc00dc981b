package export

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/imaging"
	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/report"
)

// decodeGray decodes PNG bytes back into a grayscale image for inspection
func decodeGray(t *testing.T, data []byte) *image.Gray {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode png: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("Expected 8-bit grayscale image, got %T", img)
	}
	return gray
}

// TestEncodeProjectionPNG verifies max-normalized 8-bit scaling
func TestEncodeProjectionPNG(t *testing.T) {
	g := imaging.NewGrid(2, 1)
	g.Set(0, 0, 2000)
	g.Set(0, 1, 1000)

	data, err := EncodeProjectionPNG(g)
	if err != nil {
		t.Fatalf("Failed to encode projection: %v", err)
	}

	img := decodeGray(t, data)
	if got := img.GrayAt(0, 0).Y; got != 255 {
		t.Errorf("Expected maximum pixel at 255, got %d", got)
	}
	if got := img.GrayAt(1, 0).Y; got != 127 {
		t.Errorf("Expected half intensity at 127, got %d", got)
	}
}

// TestEncodeProjectionPNGZeroMax verifies that an all-zero projection
// encodes as all black instead of dividing by zero
func TestEncodeProjectionPNGZeroMax(t *testing.T) {
	g := imaging.NewGrid(3, 3)

	data, err := EncodeProjectionPNG(g)
	if err != nil {
		t.Fatalf("Failed to encode projection: %v", err)
	}

	img := decodeGray(t, data)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if got := img.GrayAt(x, y).Y; got != 0 {
				t.Errorf("Expected black pixel at (%d,%d), got %d", x, y, got)
			}
		}
	}
}

// TestEncodeMaskPNG verifies the 0/255 convention
func TestEncodeMaskPNG(t *testing.T) {
	m := imaging.NewMask(2, 2)
	m.Set(0, 1, 1)
	m.Set(1, 0, 1)

	data, err := EncodeMaskPNG(m)
	if err != nil {
		t.Fatalf("Failed to encode mask: %v", err)
	}

	img := decodeGray(t, data)
	expected := [2][2]uint8{{0, 255}, {255, 0}}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := img.GrayAt(x, y).Y; got != expected[y][x] {
				t.Errorf("Expected %d at (%d,%d), got %d", expected[y][x], x, y, got)
			}
		}
	}
}

// TestEncodeUnitGridPNG verifies unit-range scaling and clamping
func TestEncodeUnitGridPNG(t *testing.T) {
	g := imaging.NewGrid(4, 1)
	g.Set(0, 0, 1.0)
	g.Set(0, 1, 0.5)
	g.Set(0, 2, 1.7)
	g.Set(0, 3, -0.2)

	data, err := EncodeUnitGridPNG(g)
	if err != nil {
		t.Fatalf("Failed to encode visualization: %v", err)
	}

	img := decodeGray(t, data)
	expected := []uint8{255, 127, 255, 0}
	for x, want := range expected {
		if got := img.GrayAt(x, 0).Y; got != want {
			t.Errorf("Expected %d at column %d, got %d", want, x, got)
		}
	}
}

// TestEncodeSummaryCSV verifies header and row rendering
func TestEncodeSummaryCSV(t *testing.T) {
	rows := []report.Row{
		{Metric: "Vessel Density", Value: "0.18", Unit: "ratio"},
		{Metric: "Image Width", Value: "512", Unit: "pixels"},
	}

	data, err := EncodeSummaryCSV(rows)
	if err != nil {
		t.Fatalf("Failed to encode summary: %v", err)
	}

	expected := "Metric,Value,Unit\nVessel Density,0.18,ratio\nImage Width,512,pixels\n"
	if string(data) != expected {
		t.Errorf("Expected summary CSV %q, got %q", expected, string(data))
	}
}

// TestEncodeSegmentsCSV verifies unit-labeled headers and formatted cells
func TestEncodeSegmentsCSV(t *testing.T) {
	records := []report.SegmentRecord{
		{VesselID: 1, SegmentID: 2, LengthPx: 50, LengthPhys: 25.0, DiameterPx: 6.0, DiameterPhys: 3.0},
	}

	data, err := EncodeSegmentsCSV(records, "micrometers")
	if err != nil {
		t.Fatalf("Failed to encode segments: %v", err)
	}

	expected := "Vessel_ID,Segment_ID,Length_pixels,Length_micrometers,Mean_Diameter_pixels,Mean_Diameter_micrometers\n" +
		"1,2,50,25,6,3\n"
	if string(data) != expected {
		t.Errorf("Expected segments CSV %q, got %q", expected, string(data))
	}
}

// TestEncodeSegmentsCSVEmpty verifies the header-only table for zero
// detected segments
func TestEncodeSegmentsCSVEmpty(t *testing.T) {
	data, err := EncodeSegmentsCSV(nil, "pixels")
	if err != nil {
		t.Fatalf("Failed to encode empty segments: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected header-only table, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Vessel_ID,Segment_ID") {
		t.Errorf("Expected header line, got %q", lines[0])
	}
}

// TestEncodeDeterministic verifies identical bytes for identical inputs
func TestEncodeDeterministic(t *testing.T) {
	g := imaging.NewGrid(8, 8)
	for i := range g.Data {
		g.Data[i] = float64(i % 5)
	}

	first, err := EncodeProjectionPNG(g)
	if err != nil {
		t.Fatalf("Failed to encode projection: %v", err)
	}
	second, err := EncodeProjectionPNG(g)
	if err != nil {
		t.Fatalf("Failed to encode projection: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Expected identical bytes for identical projections")
	}
}

// TestBundleCommit verifies that staged artifacts land on disk in full
func TestBundleCommit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	b := NewBundle()
	b.Add(ProjectionPNG, []byte("projection"))
	b.Add(MetricsCSV, []byte("metrics"))

	if err := b.Commit(dir); err != nil {
		t.Fatalf("Failed to commit bundle: %v", err)
	}

	for name, want := range map[string]string{ProjectionPNG: "projection", MetricsCSV: "metrics"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("Failed to read committed artifact %s: %v", name, err)
		}
		if string(data) != want {
			t.Errorf("Expected %s to hold %q, got %q", name, want, string(data))
		}
	}

	// A clean commit leaves no quarantine marker behind.
	if _, err := os.Stat(filepath.Join(dir, IncompleteMarker)); !os.IsNotExist(err) {
		t.Error("Expected no quarantine marker after a clean commit")
	}
}

// TestBundleStagingOrder verifies that names report in staging order
func TestBundleStagingOrder(t *testing.T) {
	b := NewBundle()
	b.Add(ProjectionPNG, nil)
	b.Add(SegmentationPNG, nil)
	b.Add(SkeletonPNG, nil)

	names := b.Names()
	expected := []string{ProjectionPNG, SegmentationPNG, SkeletonPNG}
	for i, want := range expected {
		if names[i] != want {
			t.Errorf("Expected %s at position %d, got %s", want, i, names[i])
		}
	}
	if b.Len() != 3 {
		t.Errorf("Expected 3 staged artifacts, got %d", b.Len())
	}
}

// TestBundleCommitQuarantined verifies that partial results are written and
// explicitly marked
func TestBundleCommitQuarantined(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	b := NewBundle()
	b.Add(ProjectionPNG, []byte("partial projection"))

	cause := os.ErrClosed
	if err := b.CommitQuarantined(dir, "Segment", cause); err != nil {
		t.Fatalf("Failed to quarantine bundle: %v", err)
	}

	// The staged artifact is still written for inspection.
	if _, err := os.Stat(filepath.Join(dir, ProjectionPNG)); err != nil {
		t.Errorf("Expected partial artifact on disk: %v", err)
	}

	marker, err := os.ReadFile(filepath.Join(dir, IncompleteMarker))
	if err != nil {
		t.Fatalf("Failed to read quarantine marker: %v", err)
	}
	text := string(marker)
	if !strings.Contains(text, "Segment") {
		t.Errorf("Expected marker to name the failed stage, got %q", text)
	}
	if !strings.Contains(text, cause.Error()) {
		t.Errorf("Expected marker to carry the cause, got %q", text)
	}
}
