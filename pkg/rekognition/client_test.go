package rekognition

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rektypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/menta2k/image-labeler/pkg/types"
)

type fakeAPI struct {
	input *rekognition.DetectLabelsInput
	out   *rekognition.DetectLabelsOutput
	err   error
}

func (f *fakeAPI) DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
	f.input = params
	return f.out, f.err
}

func TestDetectLabelsRequest(t *testing.T) {
	api := &fakeAPI{out: &rekognition.DetectLabelsOutput{}}
	c := New(api)

	img := []byte("jpeg-bytes")
	if _, err := c.DetectLabels(context.Background(), img, types.DetectOptions{MaxLabels: 10, ImageProperties: true}); err != nil {
		t.Fatalf("DetectLabels failed: %v", err)
	}

	if string(api.input.Image.Bytes) != "jpeg-bytes" {
		t.Error("Image bytes were not passed through")
	}
	if aws.ToInt32(api.input.MaxLabels) != 10 {
		t.Errorf("Expected MaxLabels 10, got %d", aws.ToInt32(api.input.MaxLabels))
	}
	if len(api.input.Features) != 2 || api.input.Features[1] != rektypes.DetectLabelsFeatureNameImageProperties {
		t.Errorf("Expected general labels and image properties, got %v", api.input.Features)
	}

	if _, err := c.DetectLabels(context.Background(), img, types.DetectOptions{}); err != nil {
		t.Fatalf("DetectLabels failed: %v", err)
	}
	if api.input.MaxLabels != nil {
		t.Error("Expected MaxLabels to be unset when cap is zero")
	}
	if len(api.input.Features) != 1 {
		t.Errorf("Expected general labels only, got %v", api.input.Features)
	}
}

func TestDetectLabelsResponse(t *testing.T) {
	api := &fakeAPI{out: &rekognition.DetectLabelsOutput{
		Labels: []rektypes.Label{
			{Name: aws.String("Flower"), Confidence: aws.Float32(99.5)},
			{Name: aws.String("Plant"), Confidence: aws.Float32(98)},
		},
		ImageProperties: &rektypes.DetectLabelsImageProperties{
			DominantColors: []rektypes.DominantColor{
				{
					HexCode:      aws.String("#ff0000"),
					Red:          aws.Int32(255),
					Green:        aws.Int32(0),
					Blue:         aws.Int32(0),
					PixelPercent: aws.Float32(42.5),
					CSSColor:     aws.String("red"),
				},
			},
			Quality: &rektypes.DetectLabelsImageQuality{
				Brightness: aws.Float32(80),
				Sharpness:  aws.Float32(90),
			},
		},
	}}

	det, err := New(api).DetectLabels(context.Background(), nil, types.DetectOptions{MaxLabels: 10, ImageProperties: true})
	if err != nil {
		t.Fatalf("DetectLabels failed: %v", err)
	}

	if len(det.Labels) != 2 || det.Labels[0].Name != "Flower" || det.Labels[0].Confidence != 99.5 {
		t.Errorf("Unexpected labels: %+v", det.Labels)
	}

	if det.Properties == nil || len(det.Properties.DominantColors) != 1 {
		t.Fatalf("Expected one dominant color, got %+v", det.Properties)
	}
	dc := det.Properties.DominantColors[0]
	if *dc.Red != 255 || *dc.Green != 0 || *dc.PixelPercent != 42.5 {
		t.Errorf("Unexpected color values: %+v", dc)
	}
	if dc.SimplifiedColor != nil {
		t.Error("Expected missing SimplifiedColor to stay nil")
	}

	q := det.Properties.Quality
	if q["Brightness"] != 80.0 || q["Sharpness"] != 90.0 {
		t.Errorf("Unexpected quality: %v", q)
	}
	if _, ok := q["Contrast"]; ok {
		t.Error("Expected missing Contrast to be absent")
	}
}

func TestDetectLabelsKeepsServiceDecimals(t *testing.T) {
	api := &fakeAPI{out: &rekognition.DetectLabelsOutput{
		Labels: []rektypes.Label{{Name: aws.String("Car"), Confidence: aws.Float32(99.87654)}},
		ImageProperties: &rektypes.DetectLabelsImageProperties{
			DominantColors: []rektypes.DominantColor{{PixelPercent: aws.Float32(12.34)}},
			Quality:        &rektypes.DetectLabelsImageQuality{Contrast: aws.Float32(71.3)},
		},
	}}

	det, err := New(api).DetectLabels(context.Background(), nil, types.DetectOptions{ImageProperties: true})
	if err != nil {
		t.Fatalf("DetectLabels failed: %v", err)
	}

	raw, err := json.Marshal(det.Labels)
	if err != nil {
		t.Fatal(err)
	}
	if want := `[{"name":"Car","confidence":99.87654}]`; string(raw) != want {
		t.Errorf("Labels marshalled as %s, want %s", raw, want)
	}
	if got := *det.Properties.DominantColors[0].PixelPercent; got != 12.34 {
		t.Errorf("PixelPercent = %v, want 12.34", got)
	}
	if got := det.Properties.Quality["Contrast"]; got != 71.3 {
		t.Errorf("Contrast = %v, want 71.3", got)
	}
}

func TestDetectLabelsNoProperties(t *testing.T) {
	api := &fakeAPI{out: &rekognition.DetectLabelsOutput{
		Labels: []rektypes.Label{{Name: aws.String("Car")}},
	}}

	det, err := New(api).DetectLabels(context.Background(), nil, types.DetectOptions{ImageProperties: true})
	if err != nil {
		t.Fatalf("DetectLabels failed: %v", err)
	}
	if det.Properties != nil {
		t.Error("Expected nil properties when the response has none")
	}
	if det.Labels[0].Confidence != 0 {
		t.Errorf("Expected zero confidence for missing value, got %f", det.Labels[0].Confidence)
	}
}

func TestDetectLabelsError(t *testing.T) {
	api := &fakeAPI{err: errors.New("ProvisionedThroughputExceededException: rate exceeded")}
	if _, err := New(api).DetectLabels(context.Background(), nil, types.DetectOptions{}); err == nil {
		t.Error("Expected error to be returned")
	}
}
