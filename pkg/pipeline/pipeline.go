package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/menta2k/image-labeler/internal/utils"
	"github.com/menta2k/image-labeler/pkg/client"
	"github.com/menta2k/image-labeler/pkg/processing"
	"github.com/menta2k/image-labeler/pkg/types"
)

// NotFoundMessage is the error text recorded for missing input files
const NotFoundMessage = "File not found"

// Summary is the ordered outcome of a run plus its counters
type Summary struct {
	Records  []types.Record
	APICalls int
	Labeled  int
	NotFound int
	Failed   int
	Skipped  int
}

// Processed returns the number of filenames handled so far
func (s *Summary) Processed() int {
	return len(s.Records)
}

func (s *Summary) add(rec types.Record, called bool) {
	s.Records = append(s.Records, rec)
	if called {
		s.APICalls++
	}
	switch rec.Status {
	case types.StatusLabeled:
		s.Labeled++
	case types.StatusNotFound:
		s.NotFound++
	case types.StatusFailed:
		s.Failed++
	case types.StatusSkipped:
		s.Skipped++
	}
}

// Pipeline checks, shrinks, and submits images one at a time
type Pipeline struct {
	labeler   client.Labeler
	processor *processing.Processor
	detect    types.DetectOptions
}

// New creates a pipeline submitting to labeler
func New(labeler client.Labeler, processor *processing.Processor, detect types.DetectOptions) *Pipeline {
	return &Pipeline{
		labeler:   labeler,
		processor: processor,
		detect:    detect,
	}
}

// Run processes names, resolved against dir, strictly in order and returns
// exactly one record per name. verifyExists turns on the existence check
// used for explicit file lists. If ctx is cancelled between images the
// records gathered so far are returned together with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, dir string, names []string, verifyExists bool) (*Summary, error) {
	summary := &Summary{Records: make([]types.Record, 0, len(names))}

	for idx, name := range names {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		ref := types.ImageRef{Name: name, Path: filepath.Join(dir, name)}
		rec, called := p.process(ctx, ref, verifyExists, idx+1, len(names))
		summary.add(rec, called)
	}

	return summary, nil
}

// process runs CheckExists, Resize, Submit, and Cleanup for one image.
// called reports whether the labeling backend was invoked.
func (p *Pipeline) process(ctx context.Context, ref types.ImageRef, verifyExists bool, idx, total int) (rec types.Record, called bool) {
	rec = types.Record{FileName: ref.Name}

	if verifyExists && !utils.FileExists(ref.Path) {
		log.Warn().Str("file", ref.Name).Msg("File not found")
		rec.Status = types.StatusNotFound
		rec.Error = NotFoundMessage
		rec.Err = types.ErrNotFound
		return rec, false
	}

	outcome, err := p.processor.EnsureCompliant(ref.Path)
	if err != nil {
		log.Warn().Err(err).Str("file", ref.Name).Msg("Skipping image, could not bring it under the size limit")
		rec.Status = types.StatusSkipped
		rec.Error = err.Error()
		rec.Err = err
		return rec, false
	}
	defer func() {
		if err := outcome.Release(); err != nil {
			log.Warn().Err(err).Str("path", outcome.Path).Msg("Failed to remove temporary image")
		}
	}()

	log.Info().
		Str("file", ref.Name).
		Bool("resized", outcome.Temporary).
		Msgf("Processing image %d/%d", idx, total)

	data, err := os.ReadFile(outcome.Path)
	if err != nil {
		rec.Status = types.StatusFailed
		rec.Error = err.Error()
		rec.Err = err
		return rec, false
	}

	det, err := p.labeler.DetectLabels(ctx, data, p.detect)
	if err != nil {
		log.Error().Err(err).Str("file", ref.Name).Msg("Labeling failed")
		rec.Status = types.StatusFailed
		rec.Error = err.Error()
		rec.Err = fmt.Errorf("%w: %w", types.ErrSubmission, err)
		return rec, true
	}

	rec.Status = types.StatusLabeled
	rec.Labels = det.Labels
	if rec.Labels == nil {
		rec.Labels = []types.Label{}
	}
	if p.detect.ImageProperties {
		rec.Properties = normalizeProperties(det.Properties)
		if e := log.Debug(); e.Enabled() {
			raw, _ := json.Marshal(det.Properties)
			e.Str("file", ref.Name).RawJSON("image_properties", raw).Msg("Image properties")
		}
	}
	return rec, true
}

// normalizeProperties substitutes empty defaults for missing properties
func normalizeProperties(props *types.ImageProperties) *types.ImageProperties {
	out := &types.ImageProperties{
		DominantColors: []types.DominantColor{},
		Quality:        map[string]any{},
	}
	if props == nil {
		return out
	}
	if props.DominantColors != nil {
		out.DominantColors = props.DominantColors
	}
	if props.Quality != nil {
		out.Quality = props.Quality
	}
	return out
}
