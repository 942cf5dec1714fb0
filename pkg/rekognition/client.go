package rekognition

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rektypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/menta2k/image-labeler/pkg/types"
)

// DetectLabelsAPI is the subset of the Rekognition client used here
type DetectLabelsAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// Client labels images with Amazon Rekognition DetectLabels
type Client struct {
	api DetectLabelsAPI
}

// New wraps an existing Rekognition API client
func New(api DetectLabelsAPI) *Client {
	return &Client{api: api}
}

// NewFromEnv loads the default AWS configuration (environment, shared
// config, instance role) and builds a client. An empty region keeps
// whatever the default chain resolves.
func NewFromEnv(ctx context.Context, region string) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return New(rekognition.NewFromConfig(cfg)), nil
}

// DetectLabels implements client.Labeler
func (c *Client) DetectLabels(ctx context.Context, image []byte, opts types.DetectOptions) (*types.Detection, error) {
	features := []rektypes.DetectLabelsFeatureName{rektypes.DetectLabelsFeatureNameGeneralLabels}
	if opts.ImageProperties {
		features = append(features, rektypes.DetectLabelsFeatureNameImageProperties)
	}

	input := &rekognition.DetectLabelsInput{
		Image:    &rektypes.Image{Bytes: image},
		Features: features,
	}
	if opts.MaxLabels > 0 {
		input.MaxLabels = aws.Int32(int32(opts.MaxLabels))
	}

	out, err := c.api.DetectLabels(ctx, input)
	if err != nil {
		return nil, err
	}

	return toDetection(out), nil
}

func toDetection(out *rekognition.DetectLabelsOutput) *types.Detection {
	det := &types.Detection{Labels: make([]types.Label, 0, len(out.Labels))}
	for _, l := range out.Labels {
		det.Labels = append(det.Labels, types.Label{
			Name:       aws.ToString(l.Name),
			Confidence: decimal(aws.ToFloat32(l.Confidence)),
		})
	}

	if p := out.ImageProperties; p != nil {
		props := &types.ImageProperties{
			DominantColors: make([]types.DominantColor, 0, len(p.DominantColors)),
			Quality:        map[string]any{},
		}
		for _, dc := range p.DominantColors {
			props.DominantColors = append(props.DominantColors, toDominantColor(dc))
		}
		if q := p.Quality; q != nil {
			putFloat(props.Quality, "Brightness", q.Brightness)
			putFloat(props.Quality, "Sharpness", q.Sharpness)
			putFloat(props.Quality, "Contrast", q.Contrast)
		}
		det.Properties = props
	}

	return det
}

func toDominantColor(dc rektypes.DominantColor) types.DominantColor {
	return types.DominantColor{
		HexCode:         dc.HexCode,
		Red:             int32Ptr(dc.Red),
		Green:           int32Ptr(dc.Green),
		Blue:            int32Ptr(dc.Blue),
		PixelPercent:    float32Ptr(dc.PixelPercent),
		CSSColor:        dc.CSSColor,
		SimplifiedColor: dc.SimplifiedColor,
	}
}

func int32Ptr(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

func float32Ptr(v *float32) *float64 {
	if v == nil {
		return nil
	}
	f := decimal(*v)
	return &f
}

func putFloat(m map[string]any, key string, v *float32) {
	if v != nil {
		m[key] = decimal(*v)
	}
}

// decimal widens v to the float64 closest to its shortest decimal form,
// so 99.87654 stays 99.87654 instead of 99.87654113769531.
func decimal(v float32) float64 {
	f, err := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
	if err != nil {
		return float64(v)
	}
	return f
}
