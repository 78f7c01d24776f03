package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"roi2bb/pkg/config"
	"roi2bb/pkg/converter"
	"roi2bb/pkg/transform"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "roi2bb",
		Usage:     "Convert markup ROI annotations to YOLO format bounding boxes",
		ArgsUsage: "<image> <annotation-folder> <output-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "roi2bb.yaml", Usage: "YAML configuration file (defaults are used if it does not exist)"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "coordinate mode: 3d-center-size, 2d-corner or 2d-projection"},
			&cli.StringFlag{Name: "labels", Usage: "class label strategy: dynamic or static"},
			&cli.IntFlag{Name: "index-base", Usage: "first class index of the dynamic strategy (0 or 1)"},
			&cli.IntFlag{Name: "precision", Usage: "decimals per coordinate"},
			&cli.StringFlag{Name: "classes-out", Usage: "write class names, one per line in index order, to this file"},
			&cli.StringFlag{Name: "format", Usage: "force the image metadata format: nifti, dicom, mha, raster or sidecar"},
			&cli.BoolFlag{Name: "continue-on-error", Usage: "skip annotation files that fail instead of aborting"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Action: convertAction,
		Commands: []*cli.Command{
			{
				Name:      "init-config",
				Usage:     "write the default configuration file",
				ArgsUsage: "<path>",
				Action:    initConfigAction,
			},
		},
	}
}

// convertAction runs one conversion batch
func convertAction(c *cli.Context) error {
	if c.NArg() != 3 {
		cli.ShowAppHelp(c)
		return fmt.Errorf("expected 3 arguments, got %d", c.NArg())
	}
	imagePath, annotationDir, outputFile := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(cfg.Output.Verbose)

	params, err := converter.ParamsFromConfig(cfg)
	if err != nil {
		return err
	}
	params.ImagePath = imagePath
	params.AnnotationDir = annotationDir
	params.OutputFile = outputFile

	conv := converter.NewConverter(params)
	startTime := time.Now()
	if err := conv.Process(); err != nil {
		if params.ContinueOnError && len(conv.Failures()) > 0 {
			printSummary(conv.Summary(), params.Mode)
		}
		return fmt.Errorf("conversion failed: %w", err)
	}

	fmt.Printf("Converted ROIs from %s and saved YOLO format output to %s\n", annotationDir, outputFile)
	fmt.Printf("Completed in %.2f seconds\n\n", time.Since(startTime).Seconds())
	printSummary(conv.Summary(), params.Mode)
	return nil
}

// applyFlags overrides configuration values with explicitly set flags
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("mode") {
		cfg.Processing.Mode = c.String("mode")
	}
	if c.IsSet("continue-on-error") {
		cfg.Processing.ContinueOnError = c.Bool("continue-on-error")
	}
	if c.IsSet("labels") {
		cfg.Labels.Strategy = c.String("labels")
	}
	if c.IsSet("index-base") {
		cfg.Labels.IndexBase = c.Int("index-base")
	}
	if c.IsSet("precision") {
		cfg.Output.Precision = c.Int("precision")
	}
	if c.IsSet("classes-out") {
		cfg.Output.ClassNamesFile = c.String("classes-out")
	}
	if c.IsSet("format") {
		cfg.Image.Format = c.String("format")
	}
	if c.IsSet("verbose") {
		cfg.Output.Verbose = c.Bool("verbose")
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func printSummary(s converter.Summary, mode transform.Mode) {
	extent := "volume"
	if mode.Dims() == 2 {
		extent = "area"
	}

	fmt.Printf("Batch Summary:\n")
	fmt.Printf("==============\n")
	fmt.Printf("Annotation files converted: %d\n", s.FilesProcessed)
	fmt.Printf("Annotation files failed: %d\n", s.FilesFailed)
	fmt.Printf("ROIs written: %d\n", s.ROIsWritten)
	fmt.Printf("ROIs extending outside the image: %d\n", s.OutOfBounds)

	if len(s.Classes) == 0 {
		return
	}
	fmt.Printf("\n%-6s %-24s %-6s %-14s %-14s\n", "Index", "Class", "ROIs", "Mean "+extent, "Std "+extent)
	for _, cs := range s.Classes {
		fmt.Printf("%-6d %-24s %-6d %-14.6f %-14.6f\n", cs.Index, cs.Label, cs.Count, cs.MeanExtent, cs.StdExtent)
	}
}

// initConfigAction writes the default configuration file
func initConfigAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = "roi2bb.yaml"
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	fmt.Printf("Default configuration written to %s\n", path)
	return nil
}
