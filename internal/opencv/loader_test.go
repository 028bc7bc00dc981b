package opencv

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/calibration"
)

// writeSlicePNG writes a w x h PNG filled with a single color.
func writeSlicePNG(t *testing.T, path string, w, h int, fill color.NRGBA) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
}

// chanValue is the 16-bit intensity RGBA() reports for an 8-bit channel value.
func chanValue(v uint8) float32 {
	return float32(uint32(v) * 257)
}

func TestExtractNumber(t *testing.T) {
	testCases := []struct {
		name     string
		filename string
		expected int
	}{
		{"SimpleIndex", "slice_10.png", 10},
		{"LeadingZeros", "slice_007.png", 7},
		{"NoDigits", "projection.png", 0},
		{"SplitDigits", "a1b2.tif", 12},
		{"FullPath", "/data/stack/slice_3.png", 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractNumber(tc.filename); got != tc.expected {
				t.Errorf("Expected %d for %s, got %d", tc.expected, tc.filename, got)
			}
		})
	}
}

func TestLoadVolumeOrdersSlicesNumerically(t *testing.T) {
	dir := t.TempDir()

	// Created out of order on purpose. Lexical order would give 1, 10, 2.
	writeSlicePNG(t, filepath.Join(dir, "slice_10.png"), 2, 2, color.NRGBA{G: 200, A: 255})
	writeSlicePNG(t, filepath.Join(dir, "slice_1.png"), 2, 2, color.NRGBA{G: 100, A: 255})
	writeSlicePNG(t, filepath.Join(dir, "slice_2.png"), 2, 2, color.NRGBA{G: 150, A: 255})

	tk := New(Options{Channel: 1})
	volume, _, err := tk.LoadVolume(dir)
	if err != nil {
		t.Fatalf("Failed to load volume: %v", err)
	}

	if volume.Width != 2 || volume.Height != 2 || volume.Depth != 3 {
		t.Fatalf("Expected 2x2x3 volume, got %dx%dx%d", volume.Width, volume.Height, volume.Depth)
	}

	expected := []float32{chanValue(100), chanValue(150), chanValue(200)}
	for z, want := range expected {
		if got := volume.At(z, 0, 0); got != want {
			t.Errorf("Expected intensity %v at plane %d, got %v", want, z, got)
		}
	}
}

func TestLoadVolumeChannelSelection(t *testing.T) {
	dir := t.TempDir()
	writeSlicePNG(t, filepath.Join(dir, "slice_1.png"), 2, 2, color.NRGBA{R: 10, G: 200, B: 30, A: 255})

	testCases := []struct {
		name     string
		channel  int
		expected float32
	}{
		{"Red", 0, chanValue(10)},
		{"Green", 1, chanValue(200)},
		{"Blue", 2, chanValue(30)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tk := New(Options{Channel: tc.channel})
			volume, _, err := tk.LoadVolume(dir)
			if err != nil {
				t.Fatalf("Failed to load volume: %v", err)
			}
			if got := volume.At(0, 1, 1); got != tc.expected {
				t.Errorf("Expected intensity %v on channel %d, got %v", tc.expected, tc.channel, got)
			}
		})
	}
}

func TestLoadVolumeRejectsBadChannel(t *testing.T) {
	dir := t.TempDir()
	writeSlicePNG(t, filepath.Join(dir, "slice_1.png"), 2, 2, color.NRGBA{A: 255})

	tk := New(Options{Channel: 3})
	if _, _, err := tk.LoadVolume(dir); err == nil {
		t.Error("Expected an error for channel 3, got nil")
	}
}

func TestLoadVolumeSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "projection.png")
	writeSlicePNG(t, path, 3, 2, color.NRGBA{G: 50, A: 255})

	tk := New(Options{Channel: 1})
	volume, _, err := tk.LoadVolume(path)
	if err != nil {
		t.Fatalf("Failed to load single-file volume: %v", err)
	}
	if volume.Width != 3 || volume.Height != 2 || volume.Depth != 1 {
		t.Errorf("Expected 3x2x1 volume, got %dx%dx%d", volume.Width, volume.Height, volume.Depth)
	}
}

func TestLoadVolumeMismatchedDimensions(t *testing.T) {
	dir := t.TempDir()
	writeSlicePNG(t, filepath.Join(dir, "slice_1.png"), 2, 2, color.NRGBA{A: 255})
	writeSlicePNG(t, filepath.Join(dir, "slice_2.png"), 3, 2, color.NRGBA{A: 255})

	tk := New(Options{})
	if _, _, err := tk.LoadVolume(dir); err == nil {
		t.Error("Expected an error for mismatched slice dimensions, got nil")
	}
}

func TestLoadVolumeEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a slice"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	tk := New(Options{})
	if _, _, err := tk.LoadVolume(dir); err == nil {
		t.Error("Expected an error for a directory without slices, got nil")
	}
}

func TestLoadVolumeReadsMappingSidecar(t *testing.T) {
	dir := t.TempDir()
	writeSlicePNG(t, filepath.Join(dir, "slice_1.png"), 2, 2, color.NRGBA{A: 255})

	sidecar := "PhysicalSizeY: 0.65\nPhysicalSizeX: 0.65\nSignificantBits: 16\n"
	if err := os.WriteFile(filepath.Join(dir, "metadata.yaml"), []byte(sidecar), 0644); err != nil {
		t.Fatalf("Failed to write sidecar: %v", err)
	}

	tk := New(Options{})
	_, meta, err := tk.LoadVolume(dir)
	if err != nil {
		t.Fatalf("Failed to load volume: %v", err)
	}

	mapping, ok := meta.(calibration.StructuredMapping)
	if !ok {
		t.Fatalf("Expected a StructuredMapping, got %T", meta)
	}
	keys := make([]string, len(mapping.Entries))
	for i, e := range mapping.Entries {
		keys[i] = e.Key
	}
	expected := []string{"PhysicalSizeY", "PhysicalSizeX", "SignificantBits"}
	for i, want := range expected {
		if keys[i] != want {
			t.Fatalf("Expected key %q at position %d, got %v", want, i, keys)
		}
	}

	cal := calibration.Resolve(meta)
	if cal.PxY != 0.65 || cal.PxX != 0.65 || cal.Unit != calibration.UnitMicrometers {
		t.Errorf("Expected 0.65 micrometer calibration, got %+v", cal)
	}
}

func TestLoadVolumeReadsSequenceSidecar(t *testing.T) {
	dir := t.TempDir()
	writeSlicePNG(t, filepath.Join(dir, "slice_1.png"), 2, 2, color.NRGBA{A: 255})

	if err := os.WriteFile(filepath.Join(dir, "metadata.yaml"), []byte("[2.0, 0.5, 0.5]\n"), 0644); err != nil {
		t.Fatalf("Failed to write sidecar: %v", err)
	}

	tk := New(Options{})
	_, meta, err := tk.LoadVolume(dir)
	if err != nil {
		t.Fatalf("Failed to load volume: %v", err)
	}

	seq, ok := meta.(calibration.OrderedSequence)
	if !ok {
		t.Fatalf("Expected an OrderedSequence, got %T", meta)
	}
	if len(seq.Values) != 3 {
		t.Fatalf("Expected 3 sequence values, got %d", len(seq.Values))
	}

	cal := calibration.Resolve(meta)
	if cal.PxY != 0.5 || cal.PxX != 0.5 || cal.Unit != calibration.UnitMicrometers {
		t.Errorf("Expected 0.5 micrometer calibration, got %+v", cal)
	}
}

func TestLoadVolumeSidecarFallbacks(t *testing.T) {
	testCases := []struct {
		name    string
		sidecar string
		write   bool
	}{
		{"Missing", "", false},
		{"Scalar", "0.65\n", true},
		{"Malformed", "a: [unclosed\n", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSlicePNG(t, filepath.Join(dir, "slice_1.png"), 2, 2, color.NRGBA{A: 255})
			if tc.write {
				if err := os.WriteFile(filepath.Join(dir, "metadata.yaml"), []byte(tc.sidecar), 0644); err != nil {
					t.Fatalf("Failed to write sidecar: %v", err)
				}
			}

			tk := New(Options{})
			_, meta, err := tk.LoadVolume(dir)
			if err != nil {
				t.Fatalf("Failed to load volume: %v", err)
			}
			if meta != nil {
				t.Errorf("Expected nil metadata, got %T", meta)
			}

			cal := calibration.Resolve(meta)
			if cal.PxY != 1 || cal.PxX != 1 || cal.Unit != calibration.UnitPixels {
				t.Errorf("Expected pixel-unit default calibration, got %+v", cal)
			}
		})
	}
}

func TestLoadVolumeCustomMetadataFile(t *testing.T) {
	dir := t.TempDir()
	writeSlicePNG(t, filepath.Join(dir, "slice_1.png"), 2, 2, color.NRGBA{A: 255})

	if err := os.WriteFile(filepath.Join(dir, "scan.yaml"), []byte("spacing_y: 0.3\nspacing_x: 0.4\n"), 0644); err != nil {
		t.Fatalf("Failed to write sidecar: %v", err)
	}

	tk := New(Options{MetadataFile: "scan.yaml"})
	_, meta, err := tk.LoadVolume(dir)
	if err != nil {
		t.Fatalf("Failed to load volume: %v", err)
	}

	cal := calibration.Resolve(meta)
	if cal.PxY != 0.3 || cal.PxX != 0.4 {
		t.Errorf("Expected calibration 0.3/0.4, got %+v", cal)
	}
}
