package client

import (
	"context"

	"github.com/menta2k/image-labeler/pkg/types"
)

// Labeler is the labeling capability the pipeline submits images to.
type Labeler interface {
	DetectLabels(ctx context.Context, image []byte, opts types.DetectOptions) (*types.Detection, error)
}

// VisionClient is a chat-style vision model that answers a prompt about an image.
type VisionClient interface {
	Query(ctx context.Context, model, prompt string, image []byte) (string, error)
}
