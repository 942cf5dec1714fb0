// Package report renders pipeline records into the JSON report format.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/menta2k/image-labeler/internal/utils"
	"github.com/menta2k/image-labeler/pkg/types"
)

// NotAvailable replaces any dominant color field the backend left out
const NotAvailable = "N/A"

// Label is a label as it appears in the report
type Label struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// Color is a dominant color as it appears in the report. Percentage holds
// either a number or NotAvailable.
type Color struct {
	HexCode         string `json:"HexCode"`
	RGB             string `json:"RGB"`
	Percentage      any    `json:"Percentage"`
	CSSColor        string `json:"CSSColor"`
	SimplifiedColor string `json:"SimplifiedColor"`
}

// Entry is one element of the report array
type Entry struct {
	FileName       string
	Labeled        bool
	Labels         []Label
	HasProperties  bool
	DominantColors []Color
	QualityMetrics map[string]any
	Error          string
}

type errorEntry struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

type labelEntry struct {
	FileName string  `json:"file_name"`
	Labels   []Label `json:"labels"`
}

type propertiesEntry struct {
	FileName       string         `json:"file_name"`
	Labels         []Label        `json:"labels"`
	DominantColors []Color        `json:"dominant_colors"`
	QualityMetrics map[string]any `json:"quality_metrics"`
}

// NewEntry converts a record into its report form
func NewEntry(r types.Record) Entry {
	e := Entry{FileName: r.FileName}
	if r.Status != types.StatusLabeled {
		e.Error = r.Error
		return e
	}

	e.Labeled = true
	e.Labels = make([]Label, 0, len(r.Labels))
	for _, l := range r.Labels {
		e.Labels = append(e.Labels, Label{Description: l.Name, Score: l.Confidence})
	}

	if r.Properties != nil {
		e.HasProperties = true
		e.DominantColors = make([]Color, 0, len(r.Properties.DominantColors))
		for _, c := range r.Properties.DominantColors {
			e.DominantColors = append(e.DominantColors, newColor(c))
		}
		e.QualityMetrics = r.Properties.Quality
		if e.QualityMetrics == nil {
			e.QualityMetrics = map[string]any{}
		}
	}
	return e
}

// MarshalJSON renders {file_name, error} for failures and
// {file_name, labels[, dominant_colors, quality_metrics]} otherwise.
func (e Entry) MarshalJSON() ([]byte, error) {
	switch {
	case !e.Labeled:
		return json.Marshal(errorEntry{FileName: e.FileName, Error: e.Error})
	case e.HasProperties:
		return json.Marshal(propertiesEntry{
			FileName:       e.FileName,
			Labels:         e.Labels,
			DominantColors: e.DominantColors,
			QualityMetrics: e.QualityMetrics,
		})
	default:
		return json.Marshal(labelEntry{FileName: e.FileName, Labels: e.Labels})
	}
}

func newColor(c types.DominantColor) Color {
	var percentage any = NotAvailable
	if c.PixelPercent != nil {
		percentage = *c.PixelPercent
	}
	return Color{
		HexCode:         strOrNA(c.HexCode),
		RGB:             fmt.Sprintf("(%s, %s, %s)", intOrNA(c.Red), intOrNA(c.Green), intOrNA(c.Blue)),
		Percentage:      percentage,
		CSSColor:        strOrNA(c.CSSColor),
		SimplifiedColor: strOrNA(c.SimplifiedColor),
	}
}

func strOrNA(s *string) string {
	if s == nil {
		return NotAvailable
	}
	return *s
}

func intOrNA(i *int) string {
	if i == nil {
		return NotAvailable
	}
	return fmt.Sprint(*i)
}

// Write serializes records as an indented JSON array to path, creating
// parent directories as needed. Errors wrap types.ErrIO.
func Write(path string, records []types.Record) error {
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, NewEntry(r))
	}

	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal report: %v", types.ErrIO, err)
	}

	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: failed to create report directory: %v", types.ErrIO, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: failed to write report: %v", types.ErrIO, err)
	}
	return nil
}
