// Package pipeline sequences the end-to-end vessel morphometry run: load,
// project, segment, skeletonize, measure, normalize, export. Control flow is
// a single linear pass; every stage performs one delegated call and advances
// unconditionally on success.
package pipeline

import (
	"fmt"
	"runtime/debug"

	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/calibration"
	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/export"
	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/imaging"
	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/report"
)

// Stage names, in run order. Failures carry the stage they happened in, both
// in the returned error and in the quarantine marker.
const (
	StageLoad          = "Load"
	StageProject       = "Project"
	StagePreprocessSeg = "PreprocessSeg"
	StageSegment       = "Segment"
	StageSkeletonize   = "Skeletonize"
	StageLabel         = "Label"
	StageMeasure       = "Measure"
	StageNormalize     = "Normalize"
	StageExport        = "Export"
)

// DefaultTileSize is the vessel density tiling used when none is configured.
const DefaultTileSize = 16

// Params holds the pipeline configuration for one run.
type Params struct {
	// InputPath locates the volumetric scan; its interpretation belongs
	// to the toolkit's loader
	InputPath string

	// OutputDir is the directory artifacts are committed to
	OutputDir string

	// Segmentation controls the vessel segmentation stage
	Segmentation imaging.SegmentationParams

	// TileHeight and TileWidth define the vessel density tiling
	TileHeight int
	TileWidth  int
}

// Result carries the outputs of a successful run for the caller to print or
// inspect. Artifacts are already on disk by the time a Result exists.
type Result struct {
	// Calibration is the resolved pixel calibration used throughout
	Calibration calibration.Calibration

	// Metrics is the calibrated report
	Metrics *report.Normalized

	// ImageWidth and ImageHeight are the projection dimensions
	ImageWidth  int
	ImageHeight int

	// PlaneCount is the number of z planes in the loaded stack
	PlaneCount int

	// Artifacts lists the committed artifact names in write order
	Artifacts []string
}

// Pipeline runs the vessel morphometry sequence over an image-processing
// toolkit. A Pipeline value is good for one Run.
type Pipeline struct {
	// params stores the run configuration
	params *Params

	// toolkit is the image-processing collaborator
	toolkit imaging.Toolkit

	// bundle accumulates artifacts until commit
	bundle *export.Bundle

	// stage tracks the current stage for error context
	stage string
}

// New creates a pipeline with the provided parameters and toolkit. A
// non-positive tile size falls back to the default tiling.
func New(params *Params, toolkit imaging.Toolkit) *Pipeline {
	if params.TileHeight <= 0 {
		params.TileHeight = DefaultTileSize
	}
	if params.TileWidth <= 0 {
		params.TileWidth = DefaultTileSize
	}
	return &Pipeline{
		params:  params,
		toolkit: toolkit,
	}
}

// Run executes the full pipeline and commits the artifact bundle on success.
//
// Run is the single error boundary: any stage error or panic surfaces here
// with its stage name (panics additionally carry the call stack), and
// whatever artifacts were staged before the failure are committed to a
// quarantined output directory marked INCOMPLETE.
func (p *Pipeline) Run() (result *Result, err error) {
	p.bundle = export.NewBundle()
	p.stage = StageLoad

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during %s stage: %v\n%s", p.stage, r, debug.Stack())
		}
		if err != nil {
			result = nil
			if p.bundle.Len() == 0 {
				return
			}
			if qErr := p.bundle.CommitQuarantined(p.params.OutputDir, p.stage, err); qErr != nil {
				fmt.Printf("Warning: Failed to quarantine partial artifacts: %v\n", qErr)
			} else {
				fmt.Printf("Partial artifacts quarantined in %s\n", p.params.OutputDir)
			}
		}
	}()

	return p.run()
}

// run is the pipeline body; every stage either advances or returns a wrapped
// error to the boundary in Run.
func (p *Pipeline) run() (*Result, error) {
	// Step 1: Load the volumetric scan
	p.stage = StageLoad
	fmt.Println("Step 1: Loading volumetric scan...")
	vol, meta, err := p.toolkit.LoadVolume(p.params.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load volume: %w", err)
	}
	fmt.Printf("Loaded volume %dx%d with %d planes\n", vol.Width, vol.Height, vol.Depth)

	// The calibration is resolved exactly once per run, from whatever
	// metadata shape the loader produced.
	cal := calibration.Resolve(meta)
	fmt.Printf("Interpreted pixel size: y=%g %s/px, x=%g %s/px\n", cal.PxY, cal.Unit, cal.PxX, cal.Unit)

	// Step 2: Collapse the stack to a 2D projection
	p.stage = StageProject
	fmt.Println("Step 2: Creating maximum intensity projection...")
	proj := vol.MaxProjection()
	projPNG, err := export.EncodeProjectionPNG(proj)
	if err != nil {
		return nil, fmt.Errorf("failed to render projection image: %w", err)
	}
	p.bundle.Add(export.ProjectionPNG, projPNG)

	// Step 3: Preprocess the projection
	p.stage = StagePreprocessSeg
	fmt.Println("Step 3: Preprocessing for segmentation...")
	pre, err := p.toolkit.PreprocessForSegmentation(proj)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess projection: %w", err)
	}

	// Step 4: Segment vessels
	p.stage = StageSegment
	fmt.Println("Step 4: Segmenting vessels...")
	seg, err := p.toolkit.Segment(pre, p.params.Segmentation)
	if err != nil {
		return nil, fmt.Errorf("failed to segment vessels: %w", err)
	}
	segPNG, err := export.EncodeMaskPNG(seg)
	if err != nil {
		return nil, fmt.Errorf("failed to render segmentation image: %w", err)
	}
	p.bundle.Add(export.SegmentationPNG, segPNG)

	// Step 5: Skeletonize the segmentation
	p.stage = StageSkeletonize
	fmt.Println("Step 5: Skeletonizing vessels...")
	skel, edges, _, err := p.toolkit.Skeletonize(seg)
	if err != nil {
		return nil, fmt.Errorf("failed to skeletonize vessels: %w", err)
	}
	skelPNG, err := export.EncodeMaskPNG(skel)
	if err != nil {
		return nil, fmt.Errorf("failed to render skeleton image: %w", err)
	}
	p.bundle.Add(export.SkeletonPNG, skelPNG)

	// Step 6: Label vessel segments
	p.stage = StageLabel
	fmt.Println("Step 6: Labeling vessel segments...")
	labels, err := p.toolkit.LabelComponents(edges)
	if err != nil {
		return nil, fmt.Errorf("failed to label segments: %w", err)
	}

	// Step 7: Measure morphometrics
	p.stage = StageMeasure
	fmt.Println("Step 7: Measuring vessel morphometrics...")
	viz, diameters, err := p.toolkit.MeasureDiameters(pre, seg, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to measure diameters: %w", err)
	}
	netLength, err := p.toolkit.NetworkLength(edges)
	if err != nil {
		return nil, fmt.Errorf("failed to measure network length: %w", err)
	}
	_, density, err := p.toolkit.VesselDensity(pre, seg, p.params.TileHeight, p.params.TileWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to measure vessel density: %w", err)
	}
	bpDensity, _, err := p.toolkit.BranchpointDensity(seg)
	if err != nil {
		return nil, fmt.Errorf("failed to measure branchpoint density: %w", err)
	}
	vizPNG, err := export.EncodeUnitGridPNG(viz)
	if err != nil {
		return nil, fmt.Errorf("failed to render overlay image: %w", err)
	}
	p.bundle.Add(export.OverlayPNG, vizPNG)

	// Segment lengths come from the label map: a segment is as long as
	// its label has pixels. Order follows the measurement call.
	segments := make([]report.VesselSegment, 0, len(diameters))
	for _, d := range diameters {
		segments = append(segments, report.VesselSegment{
			SegmentID:  d.SegmentID,
			DiameterPx: d.DiameterPx,
			LengthPx:   labels.CountLabel(d.SegmentID),
		})
	}
	fmt.Printf("Measured %d vessel segments\n", len(segments))

	// Step 8: Normalize to physical units
	p.stage = StageNormalize
	fmt.Println("Step 8: Normalizing metrics to physical units...")
	metrics := report.Normalize(report.PixelMetrics{
		NetworkLengthPx:    netLength,
		VesselDensity:      density,
		BranchpointDensity: bpDensity,
		Segments:           segments,
		ImageWidth:         proj.Width,
		ImageHeight:        proj.Height,
	}, cal)

	// Step 9: Export artifacts
	p.stage = StageExport
	fmt.Println("Step 9: Exporting artifacts...")
	summaryCSV, err := export.EncodeSummaryCSV(metrics.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to render metrics table: %w", err)
	}
	p.bundle.Add(export.MetricsCSV, summaryCSV)

	segmentsCSV, err := export.EncodeSegmentsCSV(metrics.Segments, metrics.Unit)
	if err != nil {
		return nil, fmt.Errorf("failed to render segment table: %w", err)
	}
	p.bundle.Add(export.SegmentsCSV, segmentsCSV)

	if err := p.bundle.Commit(p.params.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to commit artifacts: %w", err)
	}
	fmt.Printf("Committed %d artifacts to %s\n", p.bundle.Len(), p.params.OutputDir)

	return &Result{
		Calibration: cal,
		Metrics:     metrics,
		ImageWidth:  proj.Width,
		ImageHeight: proj.Height,
		PlaneCount:  vol.Depth,
		Artifacts:   p.bundle.Names(),
	}, nil
}
