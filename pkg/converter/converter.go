// Package converter runs the batch conversion of one image's annotation
// files into a single YOLO-style bounding box text file.
//
// The batch is sequential: metadata is loaded once, the annotation folder is
// listed and sorted, the class resolver is built once over the full file
// list, every file is converted in order, and the output is written in a
// single atomic step at the end. Concurrent runs against the same output
// path are not coordinated; the last rename wins.
package converter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"roi2bb/internal/models"
	"roi2bb/pkg/config"
	"roi2bb/pkg/imagemeta"
	"roi2bb/pkg/labels"
	"roi2bb/pkg/transform"
)

// Params holds the conversion parameters
type Params struct {
	// ImagePath is the image whose geometry the annotations refer to
	ImagePath string

	// ImageFormat forces a metadata provider; empty means detect from the extension
	ImageFormat string

	// Metadata, when set, is used instead of loading ImagePath
	Metadata *models.ImageMetadata

	// AnnotationDir holds the JSON annotation files (not searched recursively)
	AnnotationDir string

	// OutputFile is overwritten with one line per ROI
	OutputFile string

	// Mode selects the coordinate transform and the annotation schema
	Mode transform.Mode

	// LabelStrategy is config.StrategyDynamic or config.StrategyStatic
	LabelStrategy string

	// IndexBase is the first index of the dynamic strategy
	IndexBase int

	// StaticClasses is the table used by the static strategy
	StaticClasses map[string]int

	// Precision is the number of decimals per coordinate
	Precision int

	// ContinueOnError converts the remaining files after a failure and
	// writes whatever succeeded. Process still returns the joined errors.
	ContinueOnError bool

	// ClassNamesFile optionally receives the class names in index order
	ClassNamesFile string
}

// ParamsFromConfig fills conversion parameters from a loaded configuration
func ParamsFromConfig(cfg *config.Config) (*Params, error) {
	mode, err := transform.ParseMode(cfg.Processing.Mode)
	if err != nil {
		return nil, models.NewError(models.ErrConfiguration, "parse mode", "", err)
	}
	return &Params{
		ImageFormat:     cfg.Image.Format,
		Mode:            mode,
		LabelStrategy:   cfg.Labels.Strategy,
		IndexBase:       cfg.Labels.IndexBase,
		StaticClasses:   cfg.Labels.Classes,
		Precision:       cfg.Output.Precision,
		ContinueOnError: cfg.Processing.ContinueOnError,
		ClassNamesFile:  cfg.Output.ClassNamesFile,
	}, nil
}

// FileError records a failed annotation file in best-effort mode
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Converter runs one batch
type Converter struct {
	params *Params

	meta     *models.ImageMetadata
	strategy transform.Strategy
	resolver labels.Resolver

	// files are the annotation file names, sorted
	files []string

	// records are the converted boxes in output order
	records []models.OutputRecord

	// failures collects per-file errors when ContinueOnError is set
	failures []FileError

	summary Summary
}

// NewConverter creates a new converter instance with the provided parameters
func NewConverter(params *Params) *Converter {
	return &Converter{
		params:  params,
		records: make([]models.OutputRecord, 0),
	}
}

// Process runs the complete conversion pipeline
func (c *Converter) Process() error {
	// Step 1: Load image geometry
	slog.Info("Step 1: Loading image metadata", "image", c.params.ImagePath)
	if err := c.loadMetadata(); err != nil {
		return err
	}

	strategy, err := transform.New(c.params.Mode, c.meta)
	if err != nil {
		return err
	}
	c.strategy = strategy

	// Step 2: List annotation files
	slog.Info("Step 2: Listing annotation files", "dir", c.params.AnnotationDir)
	if err := c.listAnnotations(); err != nil {
		return err
	}

	// Step 3: Build the class resolver once over the whole batch
	slog.Info("Step 3: Building class mapping", "strategy", c.params.LabelStrategy, "files", len(c.files))
	if err := c.buildResolver(); err != nil {
		return err
	}

	// Step 4: Convert every file
	slog.Info("Step 4: Converting annotations", "mode", c.params.Mode.String())
	for _, name := range c.files {
		path := filepath.Join(c.params.AnnotationDir, name)
		records, err := c.convertFile(path)
		if err != nil {
			if !c.params.ContinueOnError {
				return err
			}
			slog.Error("Skipping annotation file", "file", path, "error", err)
			c.failures = append(c.failures, FileError{File: path, Err: err})
			continue
		}
		c.records = append(c.records, records...)
	}

	// Step 5: Write output
	slog.Info("Step 5: Writing output", "output", c.params.OutputFile, "rois", len(c.records))
	if err := writeFileAtomic(c.params.OutputFile, []byte(FormatLines(c.records, c.params.Precision))); err != nil {
		return err
	}
	if c.params.ClassNamesFile != "" {
		names := strings.Join(c.resolver.Names(), "\n") + "\n"
		if err := writeFileAtomic(c.params.ClassNamesFile, []byte(names)); err != nil {
			return err
		}
	}

	c.summary = summarize(c.records, len(c.files), len(c.failures))

	if len(c.failures) > 0 {
		errs := make([]error, len(c.failures))
		for i, f := range c.failures {
			errs[i] = f
		}
		return fmt.Errorf("%d of %d annotation files failed: %w", len(c.failures), len(c.files), errors.Join(errs...))
	}
	return nil
}

// loadMetadata reads the image geometry unless it was supplied
func (c *Converter) loadMetadata() error {
	if c.params.Metadata != nil {
		c.meta = c.params.Metadata
		return nil
	}
	meta, err := imagemeta.LoadFormat(c.params.ImagePath, c.params.ImageFormat)
	if err != nil {
		return err
	}
	c.meta = meta
	return nil
}

// listAnnotations collects *.json files in the annotation folder and sorts
// them by name so output order is reproducible
func (c *Converter) listAnnotations() error {
	entries, err := os.ReadDir(c.params.AnnotationDir)
	if err != nil {
		return models.NewError(models.ErrIO, "read annotation folder", c.params.AnnotationDir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) == ".json" {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return models.Errorf(models.ErrIO, "read annotation folder", c.params.AnnotationDir, "no JSON annotation files found")
	}

	sort.Strings(files)
	c.files = files
	return nil
}

// buildResolver selects the class resolution strategy
func (c *Converter) buildResolver() error {
	switch c.params.LabelStrategy {
	case config.StrategyStatic:
		m, err := labels.NewStaticMapping(c.params.StaticClasses)
		if err != nil {
			return models.NewError(models.ErrConfiguration, "build static mapping", "", err)
		}
		c.resolver = m
	case config.StrategyDynamic, "":
		c.resolver = labels.BuildMapping(c.files, c.params.IndexBase)
	default:
		return models.Errorf(models.ErrConfiguration, "build mapping", "", "unknown label strategy %q", c.params.LabelStrategy)
	}

	for i, name := range c.resolver.Names() {
		slog.Debug("Class", "position", i, "name", name, "index", c.resolver.Index(name))
	}
	return nil
}

// Records returns the converted boxes in output order
func (c *Converter) Records() []models.OutputRecord {
	return c.records
}

// Failures returns the per-file errors collected in best-effort mode
func (c *Converter) Failures() []FileError {
	return c.failures
}

// Resolver returns the class resolver used by the last run
func (c *Converter) Resolver() labels.Resolver {
	return c.resolver
}

// Summary returns the statistics of the last successful write
func (c *Converter) Summary() Summary {
	return c.summary
}
