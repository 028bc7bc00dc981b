package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/internal/opencv"
	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/config"
	"github.com/ZainMirza-2004/Vessel-Segmetation-Pipeline/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "Directory of microscopy slice images or a single projection image")
	outputDir := flag.String("output", "", "Output directory for analysis artifacts (default: from configuration)")
	configPath := flag.String("config", "", "YAML configuration file")
	channel := flag.Int("channel", -1, "Color channel to analyze: 0=red, 1=green, 2=blue (default: from configuration)")
	writeConfig := flag.String("write-config", "", "Write the default configuration to the given path and exit")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			log.Fatalf("Failed to write configuration file: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *writeConfig)
		return
	}

	// Validate inputs
	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *channel >= 0 {
		cfg.Input.Channel = *channel
	}

	fmt.Println("================================")
	fmt.Println("VESSEL MICROSCOPY MORPHOMETRICS PIPELINE")
	fmt.Println("Quantitative vascular network analysis from fluorescence image stacks")
	fmt.Println("================================")

	if cfg.Output.Verbose {
		fmt.Printf("Configuration: filter=%s threshold=%.0f%% channel=%d tiles=%dx%d\n",
			cfg.Segmentation.Filter, cfg.Segmentation.Threshold, cfg.Input.Channel,
			cfg.Density.TileHeight, cfg.Density.TileWidth)
	}

	toolkit := opencv.New(opencv.Options{
		Channel:      cfg.Input.Channel,
		MetadataFile: cfg.Input.MetadataFile,
	})

	params := &pipeline.Params{
		InputPath:    *inputPath,
		OutputDir:    cfg.Output.Dir,
		Segmentation: cfg.SegmentationParams(),
		TileHeight:   cfg.Density.TileHeight,
		TileWidth:    cfg.Density.TileWidth,
	}

	// Run the analysis pipeline
	fmt.Println("Starting vessel analysis...")
	startTime := time.Now()
	result, err := pipeline.New(params, toolkit).Run()
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nAnalysis completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Results saved to: %s\n\n", cfg.Output.Dir)

	fmt.Printf("Morphometric Summary:\n")
	fmt.Printf("=====================\n")
	fmt.Printf("Pixel size: y=%g %s/px, x=%g %s/px\n",
		result.Calibration.PxY, result.Calibration.Unit,
		result.Calibration.PxX, result.Calibration.Unit)
	for _, row := range result.Metrics.Rows {
		fmt.Printf("%s: %s %s\n", row.Metric, row.Value, row.Unit)
	}

	fmt.Printf("\nProcessed %d planes at %dx%d pixels\n",
		result.PlaneCount, result.ImageWidth, result.ImageHeight)
	fmt.Printf("Measured %d vessel segments\n", len(result.Metrics.Segments))
	fmt.Printf("Wrote %d artifacts\n", len(result.Artifacts))
}
