package analysis

import (
	"regexp"
	"strings"

	"github.com/montanaflynn/stats"
)

// TextFeatureScorer estimates how likely a text is to be machine-generated,
// as an integer score in [0, 100]. Implementations must be deterministic.
type TextFeatureScorer interface {
	Name() string
	Estimate(text string) int
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// HeuristicConfig parameterises SentenceUniformity.
type HeuristicConfig struct {
	MinSentences      int     // below this the text carries too little signal
	InsufficientScore int     // returned when there are fewer than MinSentences
	VarianceWeight    float64 // score = 100 - variance*VarianceWeight
	Floor             float64
	Ceiling           float64
}

func DefaultHeuristicConfig() HeuristicConfig {
	return HeuristicConfig{
		MinSentences:      3,
		InsufficientScore: 10,
		VarianceWeight:    2,
		Floor:             5,
		Ceiling:           95,
	}
}

// SentenceUniformity scores a text by how uniform its sentence lengths are.
// Identical lengths look machine-like, widely varying lengths look human.
// It is a single-feature heuristic and only annotates content.
type SentenceUniformity struct {
	cfg HeuristicConfig
}

func NewSentenceUniformity(cfg HeuristicConfig) *SentenceUniformity {
	return &SentenceUniformity{cfg: cfg}
}

func (h *SentenceUniformity) Name() string { return "sentence-uniformity" }

func (h *SentenceUniformity) Estimate(text string) int {
	sentences := Sentences(text)
	if len(sentences) < h.cfg.MinSentences || len(sentences) == 0 {
		return h.cfg.InsufficientScore
	}

	lengths := make([]float64, len(sentences))
	for i, s := range sentences {
		lengths[i] = float64(len(strings.Fields(s)))
	}
	variance, err := stats.PopulationVariance(lengths)
	if err != nil {
		return h.cfg.InsufficientScore
	}

	score := 100 - variance*h.cfg.VarianceWeight
	if score < 0 {
		score = 0
	}
	score = min(h.cfg.Ceiling, max(h.cfg.Floor, score))
	return int(score)
}

// Sentences splits text on runs of sentence-terminal punctuation and drops
// blank fragments.
func Sentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
