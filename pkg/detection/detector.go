package detection

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/menta2k/image-labeler/pkg/client"
	"github.com/menta2k/image-labeler/pkg/types"
)

// DefaultPrompt asks the model for labels only. %d is the label cap.
const DefaultPrompt = `You are an image labeling service.

Return JSON only:
{
  "labels": [{"name": "string", "confidence": 0.0}]
}

HARD RULES
- Return at most %d labels, most confident first.
- confidence is a percentage in [0,100].
- Names are short nouns or noun phrases, no duplicates.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// PropertiesPrompt additionally asks for dominant colors. %d is the label cap.
const PropertiesPrompt = `You are an image labeling service.

Return JSON only:
{
  "labels": [{"name": "string", "confidence": 0.0}],
  "dominant_colors": [
    {"hex_code": "#RRGGBB", "red": 0, "green": 0, "blue": 0,
     "pixel_percent": 0.0, "css_color": "string", "simplified_color": "string"}
  ]
}

HARD RULES
- Return at most %d labels, most confident first.
- confidence and pixel_percent are percentages in [0,100].
- Up to 5 dominant colors; omit any field you cannot estimate.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// Detector labels images by prompting a chat-style vision model
type Detector struct {
	client client.VisionClient
	model  string
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient, model string) *Detector {
	return &Detector{client: client, model: model}
}

type modelReply struct {
	Labels         []types.Label         `json:"labels"`
	DominantColors []types.DominantColor `json:"dominant_colors"`
}

// DetectLabels implements client.Labeler
func (d *Detector) DetectLabels(ctx context.Context, image []byte, opts types.DetectOptions) (*types.Detection, error) {
	prompt := DefaultPrompt
	if opts.ImageProperties {
		prompt = PropertiesPrompt
	}

	raw, err := d.client.Query(ctx, d.model, fmt.Sprintf(prompt, opts.MaxLabels), image)
	if err != nil {
		return nil, err
	}

	reply, err := parseReply(raw)
	if err != nil {
		return nil, err
	}

	det := &types.Detection{Labels: normalizeLabels(reply.Labels, opts.MaxLabels)}
	if opts.ImageProperties && len(reply.DominantColors) > 0 {
		det.Properties = &types.ImageProperties{
			DominantColors: reply.DominantColors,
			Quality:        map[string]any{},
		}
	}
	return det, nil
}

// parseReply decodes the model's JSON reply, tolerating fences and comments
func parseReply(raw string) (*modelReply, error) {
	cleaned := sanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, fmt.Errorf("model returned non-JSON response: %.80q", raw)
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	return &reply, nil
}

// sanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

// normalizeLabels drops unnamed labels and caps the list, keeping model order
func normalizeLabels(labels []types.Label, limit int) []types.Label {
	out := make([]types.Label, 0, len(labels))
	for _, l := range labels {
		l.Name = strings.TrimSpace(l.Name)
		if l.Name == "" {
			continue
		}
		out = append(out, l)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
