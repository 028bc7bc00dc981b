package opencv

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/tiff"
	"gopkg.in/yaml.v3"

	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/calibration"
	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/imaging"
)

// sliceExtensions are the image formats accepted as stack slices.
var sliceExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

// LoadVolume reads a volumetric scan. A directory is treated as an ordered
// stack of slice images, sorted by the number embedded in each filename so
// slice_2 comes before slice_10; a single image file is a one-plane stack.
// Calibration metadata comes from the sidecar file next to the slices and is
// returned as-is for the calibration resolver to interpret.
func (t *Toolkit) LoadVolume(path string) (*imaging.Volume, interface{}, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat input path: %w", err)
	}

	dir := path
	var files []string
	if info.IsDir() {
		files, err = listSliceFiles(path)
		if err != nil {
			return nil, nil, err
		}
		if len(files) == 0 {
			return nil, nil, fmt.Errorf("no slice images found in %s", path)
		}
	} else {
		dir = filepath.Dir(path)
		files = []string{path}
	}

	volume, err := t.readStack(files)
	if err != nil {
		return nil, nil, err
	}

	meta := readSidecar(filepath.Join(dir, t.opts.MetadataFile))
	return volume, meta, nil
}

// listSliceFiles returns the slice images in dir in stack order. Ordering is
// by the number embedded in each filename; files with equal numbers keep
// lexical order among themselves.
func listSliceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if sliceExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		ni, nj := extractNumber(files[i]), extractNumber(files[j])
		if ni != nj {
			return ni < nj
		}
		return files[i] < files[j]
	})
	return files, nil
}

// extractNumber extracts the numeric part of a filename, concatenating all
// digit runs. Filenames without digits sort as 0.
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}

// readStack decodes every slice, checks dimensional consistency and extracts
// the configured color channel. Intensities keep their 16-bit range; the
// segmentation preprocessing normalizes later.
func (t *Toolkit) readStack(files []string) (*imaging.Volume, error) {
	if t.opts.Channel < 0 || t.opts.Channel > 2 {
		return nil, fmt.Errorf("unsupported channel %d: want 0 (red), 1 (green) or 2 (blue)", t.opts.Channel)
	}

	var volume *imaging.Volume
	for z, file := range files {
		img, err := decodeImage(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load slice %s: %w", filepath.Base(file), err)
		}

		bounds := img.Bounds()
		w, h := bounds.Dx(), bounds.Dy()
		if volume == nil {
			volume = imaging.NewVolume(w, h, len(files))
		} else if w != volume.Width || h != volume.Height {
			return nil, fmt.Errorf("slice %s is %dx%d, want %dx%d",
				filepath.Base(file), w, h, volume.Width, volume.Height)
		}

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				var v uint32
				switch t.opts.Channel {
				case 0:
					v = r
				case 1:
					v = g
				default:
					v = b
				}
				volume.Set(z, y, x, float32(v))
			}
		}
	}
	return volume, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// readSidecar parses the calibration sidecar, preserving the document order
// of mapping keys and sequence elements. Order matters: the calibration
// resolver scans entries first to last. A missing or unreadable sidecar
// yields nil, which resolves to pixel units downstream.
func readSidecar(path string) interface{} {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		fmt.Printf("Warning: Failed to parse metadata file %s: %v\n", path, err)
		return nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	return nodeToVariant(doc.Content[0])
}

// nodeToVariant lowers a YAML node into the metadata shapes the calibration
// resolver reads. Scalars and other shapes carry no usable spacing, so they
// map to nil.
func nodeToVariant(node *yaml.Node) interface{} {
	switch node.Kind {
	case yaml.MappingNode:
		var mapping calibration.StructuredMapping
		for i := 0; i+1 < len(node.Content); i += 2 {
			var value interface{}
			if err := node.Content[i+1].Decode(&value); err != nil {
				continue
			}
			mapping.Entries = append(mapping.Entries, calibration.Entry{
				Key:   node.Content[i].Value,
				Value: value,
			})
		}
		return mapping
	case yaml.SequenceNode:
		var seq calibration.OrderedSequence
		for _, item := range node.Content {
			var value interface{}
			if err := item.Decode(&value); err != nil {
				continue
			}
			seq.Values = append(seq.Values, value)
		}
		return seq
	default:
		return nil
	}
}
