package detection

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/menta2k/image-labeler/pkg/types"
)

type stubVision struct {
	reply  string
	err    error
	prompt string
	model  string
}

func (s *stubVision) Query(ctx context.Context, model, prompt string, image []byte) (string, error) {
	s.model = model
	s.prompt = prompt
	return s.reply, s.err
}

func TestDetectLabels(t *testing.T) {
	stub := &stubVision{reply: "```json\n{\"labels\":[{\"name\":\"Flower\",\"confidence\":97.5},{\"name\":\" \",\"confidence\":50},{\"name\":\"Plant\",\"confidence\":90},],}\n```"}
	d := NewDetector(stub, "llava")

	det, err := d.DetectLabels(context.Background(), []byte("img"), types.DetectOptions{MaxLabels: 10})
	if err != nil {
		t.Fatalf("DetectLabels failed: %v", err)
	}

	if stub.model != "llava" {
		t.Errorf("Expected model llava, got %s", stub.model)
	}
	if !strings.Contains(stub.prompt, "at most 10 labels") {
		t.Errorf("Expected label cap in prompt, got %q", stub.prompt)
	}

	if len(det.Labels) != 2 {
		t.Fatalf("Expected 2 labels, got %d: %+v", len(det.Labels), det.Labels)
	}
	if det.Labels[0].Name != "Flower" || det.Labels[0].Confidence != 97.5 {
		t.Errorf("Unexpected first label: %+v", det.Labels[0])
	}
	if det.Properties != nil {
		t.Error("Expected no properties when not requested")
	}
}

func TestDetectLabelsWithProperties(t *testing.T) {
	stub := &stubVision{reply: `{"labels":[{"name":"Car","confidence":88}],"dominant_colors":[{"hex_code":"#ff0000","pixel_percent":40.5}]}`}
	d := NewDetector(stub, "llava")

	det, err := d.DetectLabels(context.Background(), nil, types.DetectOptions{MaxLabels: 5, ImageProperties: true})
	if err != nil {
		t.Fatalf("DetectLabels failed: %v", err)
	}
	if !strings.Contains(stub.prompt, "dominant_colors") {
		t.Error("Expected properties prompt")
	}
	if det.Properties == nil || len(det.Properties.DominantColors) != 1 {
		t.Fatalf("Expected one dominant color, got %+v", det.Properties)
	}
	c := det.Properties.DominantColors[0]
	if c.HexCode == nil || *c.HexCode != "#ff0000" {
		t.Errorf("Unexpected hex code: %v", c.HexCode)
	}
	if c.Red != nil || c.CSSColor != nil {
		t.Error("Expected missing fields to stay nil")
	}
}

func TestDetectLabelsCap(t *testing.T) {
	stub := &stubVision{reply: `{"labels":[{"name":"a"},{"name":"b"},{"name":"c"}]}`}
	det, err := NewDetector(stub, "m").DetectLabels(context.Background(), nil, types.DetectOptions{MaxLabels: 2})
	if err != nil {
		t.Fatalf("DetectLabels failed: %v", err)
	}
	if len(det.Labels) != 2 || det.Labels[1].Name != "b" {
		t.Errorf("Expected first two labels, got %+v", det.Labels)
	}
}

func TestDetectLabelsErrors(t *testing.T) {
	tests := []struct {
		name string
		stub *stubVision
	}{
		{"client error", &stubVision{err: errors.New("rate limited")}},
		{"non json", &stubVision{reply: "I see a flower"}},
		{"broken json", &stubVision{reply: `{"labels": [}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDetector(tt.stub, "m").DetectLabels(context.Background(), nil, types.DetectOptions{MaxLabels: 3})
			if err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestSanitizeModelJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"Sure! {\"a\":[1,2,],} hope that helps", `{"a":[1,2]}`},
		{"{\n// comment\n\"a\":1 /* note */}", "{\n\n\"a\":1 }"},
	}

	for _, tt := range tests {
		if got := sanitizeModelJSON(tt.in); got != tt.want {
			t.Errorf("sanitizeModelJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
