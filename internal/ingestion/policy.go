// Package ingestion decides whether submitted content may be published, based
// on how closely it duplicates the existing corpus.
package ingestion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/secureblog/secureblog/backend/go-services/internal/analysis"
)

var (
	ErrRejected     = errors.New("content rejected as duplicative")
	ErrInvalidInput = errors.New("candidate content is empty")
)

// SimilarityScorer is satisfied by *analysis.SimilarityScorer.
type SimilarityScorer interface {
	Nearest(candidate string, corpus []string) (analysis.Match, error)
}

// Config holds the acceptance policy.
type Config struct {
	// RejectThreshold is a percentage; scores strictly above it are rejected.
	RejectThreshold float64
	// ScoreEdits enables screening of edited content, not only new documents.
	ScoreEdits bool
}

func DefaultConfig() Config {
	return Config{RejectThreshold: 30.0}
}

type Outcome string

const (
	OutcomeAccepted   Outcome = "accepted"
	OutcomeRejected   Outcome = "rejected"
	OutcomeUnscreened Outcome = "unscreened"
)

// Decision is the result of screening one candidate.
type Decision struct {
	Outcome           Outcome
	Similarity        float64
	MachineLikelihood int
	// NearestIndex is the corpus position of the closest match, -1 if none.
	NearestIndex int
}

func (d Decision) Accepted() bool { return d.Outcome != OutcomeRejected }

// Err returns a *RejectedError for rejected decisions and nil otherwise.
func (d Decision) Err() error {
	if d.Outcome != OutcomeRejected {
		return nil
	}
	return &RejectedError{Similarity: d.Similarity}
}

// RejectedError carries the similarity score that caused a rejection.
type RejectedError struct {
	Similarity float64
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("similarity %.2f%% exceeds acceptance threshold", e.Similarity)
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

// Policy orchestrates the similarity gate and the machine-likelihood annotation.
type Policy struct {
	cfg        Config
	similarity SimilarityScorer
	features   analysis.TextFeatureScorer
}

func NewPolicy(cfg Config, similarity SimilarityScorer, features analysis.TextFeatureScorer) *Policy {
	return &Policy{cfg: cfg, similarity: similarity, features: features}
}

func (p *Policy) Config() Config { return p.cfg }

// Submit screens candidate against corpus. A rejection is reported through
// the Decision, not as an error; errors mean the candidate could not be scored.
func (p *Policy) Submit(candidate string, corpus []string) (Decision, error) {
	if strings.TrimSpace(candidate) == "" {
		return Decision{NearestIndex: -1}, ErrInvalidInput
	}
	m, err := p.similarity.Nearest(candidate, corpus)
	if err != nil {
		return Decision{NearestIndex: -1}, fmt.Errorf("similarity: %w", err)
	}
	d := Decision{Similarity: m.Score, NearestIndex: m.Index}
	if m.Score > p.cfg.RejectThreshold {
		d.Outcome = OutcomeRejected
		return d, nil
	}
	d.Outcome = OutcomeAccepted
	d.MachineLikelihood = p.features.Estimate(candidate)
	return d, nil
}

// ScreenEdit applies Submit to edited content when edit screening is enabled.
// Otherwise it returns an unscreened decision without scoring.
func (p *Policy) ScreenEdit(candidate string, corpus []string) (Decision, error) {
	if !p.cfg.ScoreEdits {
		if strings.TrimSpace(candidate) == "" {
			return Decision{NearestIndex: -1}, ErrInvalidInput
		}
		return Decision{Outcome: OutcomeUnscreened, NearestIndex: -1}, nil
	}
	return p.Submit(candidate, corpus)
}
