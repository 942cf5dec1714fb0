package selection

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/menta2k/image-labeler/internal/utils"
	"github.com/menta2k/image-labeler/pkg/processing"
)

// Mode selects how the working set of images is chosen
type Mode string

const (
	ModeExplicit Mode = "explicit"
	ModeRandom   Mode = "random"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeExplicit, ModeRandom:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown selection mode %q (use %q or %q)", s, ModeExplicit, ModeRandom)
	}
}

// Selector decides which filenames a run processes
type Selector struct {
	rng *rand.Rand
}

// New creates a selector with an unseeded random source
func New() *Selector {
	seed := uint64(time.Now().UnixNano())
	return NewWithSeed(seed)
}

// NewWithSeed creates a selector whose samples are reproducible
func NewWithSeed(seed uint64) *Selector {
	return &Selector{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewWithRand creates a selector that draws from r
func NewWithRand(r *rand.Rand) *Selector {
	return &Selector{rng: r}
}

// Explicit returns the given filenames verbatim, in order
func (s *Selector) Explicit(files []string) []string {
	out := make([]string, len(files))
	copy(out, files)
	return out
}

// Sample lists the image files directly inside dir and returns a uniform
// random subset of floor(fraction * count) distinct names. Resized copies
// left behind by an interrupted run are not candidates.
func (s *Selector) Sample(dir string, fraction float64) ([]string, error) {
	if fraction < 0 || fraction > 1 || math.IsNaN(fraction) {
		return nil, fmt.Errorf("sample fraction must be between 0 and 1, got %v", fraction)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !utils.IsImageFile(e.Name()) {
			continue
		}
		if strings.HasPrefix(e.Name(), processing.TempPrefix) {
			log.Debug().Str("file", e.Name()).Msg("Ignoring leftover resized copy")
			continue
		}
		names = append(names, e.Name())
	}

	n := int(math.Floor(fraction * float64(len(names))))
	s.rng.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})

	log.Debug().
		Str("dir", dir).
		Int("available", len(names)).
		Int("selected", n).
		Msg("Sampled images")
	return names[:n], nil
}
