package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	imagelabeler "github.com/menta2k/image-labeler"
	"github.com/menta2k/image-labeler/internal/config"
	"github.com/menta2k/image-labeler/internal/logging"
	"github.com/menta2k/image-labeler/internal/utils"
	"github.com/menta2k/image-labeler/pkg/client"
	"github.com/menta2k/image-labeler/pkg/detection"
	"github.com/menta2k/image-labeler/pkg/llamacpp"
	"github.com/menta2k/image-labeler/pkg/ollama"
	"github.com/menta2k/image-labeler/pkg/rekognition"
)

// CLI flags
var (
	configFlag     string
	envFileFlag    string
	inputFlag      string
	outputFlag     string
	modeFlag       string
	fractionFlag   float64
	seedFlag       uint64
	maxSizeFlag    float64
	maxDimFlag     int
	qualityFlag    int
	labelCapFlag   int
	propertiesFlag bool
	backendFlag    string
	modelFlag      string
	urlFlag        string
	regionFlag     string
)

// rootCmd is the main Cobra command for the image-labeler CLI.
var rootCmd = &cobra.Command{
	Use:   "image-labeler [files...]",
	Short: "Label a folder of images with Amazon Rekognition or a local vision model",
	Long: `Image Labeler sends images from a folder to a labeling service and writes the
labels, confidence scores, dominant colors, and quality metrics of every image
to a single JSON report.

Images larger than the payload limit are downscaled and re-encoded as JPEG
before submission. Files named on the command line are processed in order;
with --mode random a fraction of the folder is sampled instead.

AWS credentials and region are read from the environment or a .env file.

Examples:
  image-labeler -i ./wallpapers "GN BLOOM 82090-4.jpg" "HERA6 6089-2.jpg"
  image-labeler -i ./wallpapers --mode random --fraction 0.5 --seed 7
  image-labeler -c config.json --backend ollama --model llava
  image-labeler init-config ./config.json`,
	RunE: runMain,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetConfigPath()
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.Default().SaveToFile(path); err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(imagelabeler.GetVersion())
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&configFlag, "config", "c", "", "JSON configuration file (default: ~/.config/image-labeler/config.json if present)")
	f.StringVar(&envFileFlag, "env-file", ".env", "Environment file to load before running")
	f.StringVarP(&inputFlag, "input", "i", "", "Folder containing the images")
	f.StringVarP(&outputFlag, "output", "o", "", "Report file to write")
	f.StringVar(&modeFlag, "mode", "", "Selection mode: explicit or random")
	f.Float64Var(&fractionFlag, "fraction", 0.5, "Fraction of the folder to sample in random mode")
	f.Uint64Var(&seedFlag, "seed", 0, "Seed for random sampling (unset = different sample each run)")
	f.Float64Var(&maxSizeFlag, "max-size-mb", 5, "Maximum image payload size in MB")
	f.IntVar(&maxDimFlag, "max-dimension", 2000, "Longest side of a resized image in pixels")
	f.IntVar(&qualityFlag, "quality", 85, "JPEG quality for resized images (1-100)")
	f.IntVar(&labelCapFlag, "label-cap", 10, "Maximum labels per image")
	f.BoolVar(&propertiesFlag, "properties", true, "Request dominant colors and quality metrics")
	f.StringVarP(&backendFlag, "backend", "b", "", "Labeling backend: rekognition, ollama or llamacpp")
	f.StringVarP(&modelFlag, "model", "m", "", "Model name for the ollama and llamacpp backends")
	f.StringVar(&urlFlag, "url", "", "Server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	f.StringVar(&regionFlag, "region", "", "AWS region for the rekognition backend")

	rootCmd.SilenceUsage = true
	rootCmd.AddCommand(initConfigCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) error {
	envErr := godotenv.Load(envFileFlag)

	logging.Init()
	logging.WithRunID(uuid.NewString())
	if envErr != nil {
		log.Debug().Str("path", envFileFlag).Msg("No .env file found, using system environment variables")
	}

	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	labeler, err := newLabeler(ctx, cfg.Labeling)
	if err != nil {
		return err
	}

	il, err := imagelabeler.New(cfg, labeler)
	if err != nil {
		return err
	}

	summary, err := il.Run(ctx)
	if summary != nil {
		fmt.Printf("Processed %d images: %d labeled, %d failed, %d not found, %d skipped\n",
			summary.Processed(), summary.Labeled, summary.Failed, summary.NotFound, summary.Skipped)
		fmt.Printf("Total API calls made: %d\n", summary.APICalls)
	}
	if errors.Is(err, context.Canceled) {
		log.Warn().Msg("Interrupted, no report written")
	}
	if err != nil {
		return err
	}

	fmt.Printf("Results saved to %s\n", cfg.OutputFile)
	return nil
}

// loadConfig reads the config file, then applies flags the user set and
// positional file names.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.Default()

	path := configFlag
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		log.Debug().Str("path", path).Msg("Loaded configuration")
	}

	f := cmd.Flags()
	if f.Changed("input") {
		cfg.InputFolder = inputFlag
	}
	if f.Changed("output") {
		cfg.OutputFile = outputFlag
	}
	if f.Changed("mode") {
		cfg.Selection.Mode = modeFlag
	}
	if f.Changed("fraction") {
		cfg.Selection.SampleFraction = fractionFlag
	}
	if f.Changed("seed") {
		seed := seedFlag
		cfg.Selection.Seed = &seed
	}
	if f.Changed("max-size-mb") {
		cfg.Compliance.MaxSizeMB = maxSizeFlag
	}
	if f.Changed("max-dimension") {
		cfg.Compliance.MaxDimension = maxDimFlag
	}
	if f.Changed("quality") {
		cfg.Compliance.Quality = qualityFlag
	}
	if f.Changed("label-cap") {
		cfg.Labeling.LabelCap = labelCapFlag
	}
	if f.Changed("properties") {
		cfg.Labeling.ImageProperties = propertiesFlag
	}
	if f.Changed("backend") {
		cfg.Labeling.Backend = backendFlag
	}
	if f.Changed("model") {
		cfg.Labeling.Model = modelFlag
	}
	if f.Changed("url") {
		cfg.Labeling.URL = urlFlag
	}
	if f.Changed("region") {
		cfg.Labeling.Region = regionFlag
	}

	if len(args) > 0 {
		cfg.Selection.Mode = "explicit"
		cfg.Selection.Files = args
	}

	if !utils.DirExists(cfg.InputFolder) {
		return nil, fmt.Errorf("input folder not found: %s", cfg.InputFolder)
	}
	return cfg, cfg.Validate()
}

// newLabeler builds the configured labeling backend
func newLabeler(ctx context.Context, cfg config.LabelingConfig) (client.Labeler, error) {
	switch cfg.Backend {
	case config.BackendRekognition:
		c, err := rekognition.NewFromEnv(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
		log.Info().Str("backend", cfg.Backend).Str("region", cfg.Region).Msg("Amazon Rekognition client initialized")
		return c, nil
	case config.BackendOllama:
		url := cfg.URL
		if url == "" {
			url = utils.EnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		}
		c, err := ollama.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		log.Info().Str("backend", cfg.Backend).Str("url", url).Str("model", cfg.Model).Msg("Ollama client initialized")
		return detection.NewDetector(c, cfg.Model), nil
	case config.BackendLlamaCpp:
		c, err := llamacpp.NewClient(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		log.Info().Str("backend", cfg.Backend).Str("url", cfg.URL).Str("model", cfg.Model).Msg("llama.cpp client initialized")
		return detection.NewDetector(c, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use rekognition, ollama or llamacpp)", cfg.Backend)
	}
}
