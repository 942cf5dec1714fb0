// Package imagelabeler batch-labels a folder of images with a computer
// vision service and writes the results to a single JSON report.
//
// Basic usage:
//
//	cfg := config.Default()
//	cfg.InputFolder = "./wallpapers"
//	cfg.Selection.Files = []string{"GN BLOOM 82090-4.jpg"}
//
//	labeler, err := rekognition.NewFromEnv(ctx, "")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	il, err := imagelabeler.New(cfg, labeler)
//	if err != nil {
//		log.Fatal(err)
//	}
//	summary, err := il.Run(ctx)
//
// A run has three stages:
//
//  1. Selection (pkg/selection): an explicit list of filenames, or a random
//     sample of the images in the input folder.
//  2. Pipeline (pkg/pipeline): for each file, check it exists, shrink it
//     under the payload limit if needed (pkg/processing), submit it to the
//     labeling backend (pkg/client), and remove any temporary copy.
//  3. Report (pkg/report): one JSON entry per selected file, in order.
//
// Backends: Amazon Rekognition (pkg/rekognition), Ollama (pkg/ollama) and
// llama.cpp (pkg/llamacpp), the latter two through pkg/detection.
package imagelabeler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/menta2k/image-labeler/internal/config"
	"github.com/menta2k/image-labeler/pkg/client"
	"github.com/menta2k/image-labeler/pkg/pipeline"
	"github.com/menta2k/image-labeler/pkg/processing"
	"github.com/menta2k/image-labeler/pkg/report"
	"github.com/menta2k/image-labeler/pkg/selection"
	"github.com/menta2k/image-labeler/pkg/types"
)

// Version of the image labeler library
const Version = "1.0.0"

// ImageLabeler ties selection, the pipeline, and the report together
type ImageLabeler struct {
	config   *config.Config
	selector *selection.Selector
	pipeline *pipeline.Pipeline
}

// New creates an ImageLabeler for cfg that submits images to labeler.
// A configured seed makes random selection reproducible.
func New(cfg *config.Config, labeler client.Labeler) (*ImageLabeler, error) {
	selector := selection.New()
	if cfg.Selection.Seed != nil {
		selector = selection.NewWithSeed(*cfg.Selection.Seed)
	}
	return NewWithSelector(cfg, labeler, selector)
}

// NewWithSelector is New with a caller-supplied selector
func NewWithSelector(cfg *config.Config, labeler client.Labeler, selector *selection.Selector) (*ImageLabeler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	limits := processing.Limits{
		MaxBytes:     cfg.Compliance.MaxBytes(),
		MaxDimension: cfg.Compliance.MaxDimension,
		Quality:      cfg.Compliance.Quality,
	}
	detect := types.DetectOptions{
		MaxLabels:       cfg.Labeling.LabelCap,
		ImageProperties: cfg.Labeling.ImageProperties,
	}

	return &ImageLabeler{
		config:   cfg,
		selector: selector,
		pipeline: pipeline.New(labeler, processing.NewProcessor(limits), detect),
	}, nil
}

// Select returns the filenames this run will process and whether they
// still need an existence check.
func (il *ImageLabeler) Select() ([]string, bool, error) {
	mode, err := selection.ParseMode(il.config.Selection.Mode)
	if err != nil {
		return nil, false, err
	}

	if mode == selection.ModeExplicit {
		return il.selector.Explicit(il.config.Selection.Files), true, nil
	}

	names, err := il.selector.Sample(il.config.InputFolder, il.config.Selection.SampleFraction)
	if err != nil {
		return nil, false, err
	}
	return names, false, nil
}

// Run selects images, labels them, and writes the report. Only selection
// and report write failures abort the run; per-image failures end up in
// the report.
func (il *ImageLabeler) Run(ctx context.Context) (*pipeline.Summary, error) {
	names, verify, err := il.Select()
	if err != nil {
		return nil, fmt.Errorf("selection failed: %w", err)
	}

	log.Info().
		Str("input", il.config.InputFolder).
		Str("mode", il.config.Selection.Mode).
		Int("files", len(names)).
		Msg("Starting labeling run")

	summary, err := il.pipeline.Run(ctx, il.config.InputFolder, names, verify)
	if err != nil {
		return summary, err
	}

	log.Info().Int("api_calls", summary.APICalls).Msgf("Total API calls made: %d", summary.APICalls)

	if err := report.Write(il.config.OutputFile, summary.Records); err != nil {
		return summary, err
	}

	log.Info().
		Int("processed", summary.Processed()).
		Int("labeled", summary.Labeled).
		Int("failed", summary.Failed).
		Int("not_found", summary.NotFound).
		Int("skipped", summary.Skipped).
		Str("output", il.config.OutputFile).
		Msg("Processing complete")
	return summary, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
