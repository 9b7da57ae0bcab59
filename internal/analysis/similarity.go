package analysis

import (
	"errors"
	"math"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// ErrEmptyText is returned when a scorer is given blank input it cannot analyse.
var ErrEmptyText = errors.New("text is empty")

// tokenPattern matches runs of two or more word characters (letters, digits, underscore).
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// SimilarityConfig controls the TF-IDF weighting used by SimilarityScorer.
type SimilarityConfig struct {
	// SmoothIDF adds one to document frequencies as if an extra document
	// contained every term once: idf = ln((1+n)/(1+df)) + 1.
	SmoothIDF bool
	// SublinearTF replaces raw counts with 1 + ln(tf).
	SublinearTF bool
	// Workers bounds the number of corpus comparisons run in parallel.
	// Zero means GOMAXPROCS.
	Workers int
}

// DefaultSimilarityConfig returns the weighting used for ingestion screening.
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{SmoothIDF: true}
}

// Match is the nearest corpus entry for a candidate text.
type Match struct {
	// Index into the corpus, -1 when the corpus was empty.
	Index int
	// Score is the cosine similarity as a percentage in [0, 100].
	Score float64
}

// SimilarityScorer computes how close a candidate text is to the closest
// entry of a reference corpus. It holds no state between calls and is safe
// for concurrent use.
type SimilarityScorer struct {
	cfg SimilarityConfig
}

func NewSimilarityScorer(cfg SimilarityConfig) *SimilarityScorer {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &SimilarityScorer{cfg: cfg}
}

// Score returns the maximum similarity percentage between candidate and any
// corpus entry, rounded to two decimals. An empty corpus scores 0.
func (s *SimilarityScorer) Score(candidate string, corpus []string) (float64, error) {
	m, err := s.Nearest(candidate, corpus)
	if err != nil {
		return 0, err
	}
	return m.Score, nil
}

// Nearest returns the corpus entry most similar to candidate. Ties resolve to
// the lowest index, the score itself does not depend on corpus order.
func (s *SimilarityScorer) Nearest(candidate string, corpus []string) (Match, error) {
	if strings.TrimSpace(candidate) == "" {
		return Match{Index: -1}, ErrEmptyText
	}
	if len(corpus) == 0 {
		return Match{Index: -1}, nil
	}

	docs := make([][]string, 0, len(corpus)+1)
	docs = append(docs, Tokenize(candidate))
	for _, text := range corpus {
		docs = append(docs, Tokenize(text))
	}
	vectors := s.vectorize(docs)
	if vectors == nil {
		// nothing tokenizable anywhere
		return Match{Index: 0}, nil
	}

	sims := make([]float64, len(corpus))
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i := range corpus {
		g.Go(func() error {
			sims[i] = cosine(vectors[0], vectors[i+1])
			return nil
		})
	}
	_ = g.Wait()

	best := Match{Index: 0, Score: sims[0]}
	for i, v := range sims[1:] {
		if v > best.Score {
			best = Match{Index: i + 1, Score: v}
		}
	}
	best.Score = toPercent(best.Score)
	return best, nil
}

// Tokenize lowercases text and splits it into word tokens of length >= 2.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// vectorize builds L2-normalised TF-IDF vectors over the shared vocabulary of
// docs. It returns nil when the vocabulary is empty.
func (s *SimilarityScorer) vectorize(docs [][]string) [][]float64 {
	vocab := map[string]int{}
	df := []float64{}
	for _, tokens := range docs {
		seen := map[string]bool{}
		for _, tok := range tokens {
			idx, ok := vocab[tok]
			if !ok {
				idx = len(vocab)
				vocab[tok] = idx
				df = append(df, 0)
			}
			if !seen[tok] {
				seen[tok] = true
				df[idx]++
			}
		}
	}
	if len(vocab) == 0 {
		return nil
	}

	n := float64(len(docs))
	idf := make([]float64, len(df))
	for i, d := range df {
		if s.cfg.SmoothIDF {
			idf[i] = math.Log((1+n)/(1+d)) + 1
		} else {
			idf[i] = math.Log(n/d) + 1
		}
	}

	vectors := make([][]float64, len(docs))
	for i, tokens := range docs {
		v := make([]float64, len(vocab))
		for _, tok := range tokens {
			v[vocab[tok]]++
		}
		if s.cfg.SublinearTF {
			for j, tf := range v {
				if tf > 0 {
					v[j] = 1 + math.Log(tf)
				}
			}
		}
		floats.Mul(v, idf)
		if norm := floats.Norm(v, 2); norm > 0 {
			floats.Scale(1/norm, v)
		}
		vectors[i] = v
	}
	return vectors
}

// cosine expects L2-normalised vectors; zero vectors have similarity 0.
func cosine(a, b []float64) float64 {
	d := floats.Dot(a, b)
	if math.IsNaN(d) || d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

// toPercent scales a [0,1] similarity to a percentage rounded half-to-even at
// two decimals.
func toPercent(sim float64) float64 {
	return roundHalfEven(sim*100, 2)
}

func roundHalfEven(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.RoundToEven(v*p) / p
}
