package types

// Label is a single label returned by a labeling backend
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// DominantColor describes one dominant color of an image. Every field is
// optional because backends may leave any of them out.
type DominantColor struct {
	HexCode         *string  `json:"hex_code,omitempty"`
	Red             *int     `json:"red,omitempty"`
	Green           *int     `json:"green,omitempty"`
	Blue            *int     `json:"blue,omitempty"`
	PixelPercent    *float64 `json:"pixel_percent,omitempty"`
	CSSColor        *string  `json:"css_color,omitempty"`
	SimplifiedColor *string  `json:"simplified_color,omitempty"`
}

// ImageProperties holds the extended properties of an image
type ImageProperties struct {
	DominantColors []DominantColor `json:"dominant_colors"`
	// Quality is passed through from the backend as-is.
	Quality map[string]any `json:"quality"`
}

// Detection is the normalized response of a labeling backend.
// Properties is nil when the backend returned no image properties.
type Detection struct {
	Labels     []Label          `json:"labels"`
	Properties *ImageProperties `json:"properties,omitempty"`
}

// DetectOptions configures a single labeling request
type DetectOptions struct {
	MaxLabels       int
	ImageProperties bool
}

// Status is the outcome of processing one image
type Status string

const (
	StatusLabeled  Status = "labeled"
	StatusNotFound Status = "not_found"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
)

// Record is the outcome entry for one input filename.
//
// Labels and Properties are set only for StatusLabeled. Properties is
// non-nil whenever image properties were requested, even if the backend
// returned none. Error is set for every other status.
type Record struct {
	FileName   string
	Status     Status
	Labels     []Label
	Properties *ImageProperties
	Error      string
	// Err is the typed cause behind Error, matchable with errors.Is
	Err error
}

// ImageRef is a filename together with its resolved path
type ImageRef struct {
	Name string
	Path string
}
