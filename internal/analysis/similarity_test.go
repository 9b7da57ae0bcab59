package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_EmptyCorpus(t *testing.T) {
	s := NewSimilarityScorer(DefaultSimilarityConfig())
	for _, text := range []string{"anything at all", "x", "The cat sat on the mat."} {
		got, err := s.Score(text, nil)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)
	}
}

func TestScore_SelfSimilarity(t *testing.T) {
	s := NewSimilarityScorer(DefaultSimilarityConfig())
	text := "The quick brown fox jumps over the lazy dog. It was not amused."
	got, err := s.Score(text, []string{text})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, got, 0.01)
}

func TestScore_EmptyCandidate(t *testing.T) {
	s := NewSimilarityScorer(DefaultSimilarityConfig())
	_, err := s.Score("   \n\t", []string{"some text"})
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestScore_Bounded(t *testing.T) {
	s := NewSimilarityScorer(DefaultSimilarityConfig())
	corpus := []string{
		"Go is an open source programming language.",
		"Bread needs flour, water, salt and time.",
		"!!! ...",
		"programming language design is hard",
	}
	for _, candidate := range []string{"Go programming", "flour water", "zzz qqq", "a b c"} {
		got, err := s.Score(candidate, corpus)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
	}
}

func TestScore_DisjointVocabularyIsZero(t *testing.T) {
	s := NewSimilarityScorer(DefaultSimilarityConfig())
	got, err := s.Score("alpha beta gamma", []string{"delta epsilon zeta"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestScore_OrderIndependent(t *testing.T) {
	s := NewSimilarityScorer(DefaultSimilarityConfig())
	candidate := "storage engines write ahead logs for durability"
	corpus := []string{
		"a recipe for sourdough bread",
		"write ahead logs give storage engines durability",
		"notes on mountain hiking",
	}
	reversed := []string{corpus[2], corpus[1], corpus[0]}

	a, err := s.Nearest(candidate, corpus)
	require.NoError(t, err)
	b, err := s.Nearest(candidate, reversed)
	require.NoError(t, err)
	assert.Equal(t, a.Score, b.Score)
	assert.Equal(t, 1, a.Index)
	assert.Equal(t, 1, b.Index)
}

func TestNearest_PicksMaximumNotAverage(t *testing.T) {
	s := NewSimilarityScorer(DefaultSimilarityConfig())
	dup := "distributed consensus requires a quorum of replicas"
	corpus := []string{
		"gardening tips for spring",
		"how to paint a fence",
		"birds of the northern hemisphere",
		dup,
	}
	m, err := s.Nearest(dup, corpus)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Index)
	assert.InDelta(t, 100.0, m.Score, 0.01)
}

func TestNearest_EmptyCorpusIndex(t *testing.T) {
	s := NewSimilarityScorer(DefaultSimilarityConfig())
	m, err := s.Nearest("hello there", []string{})
	require.NoError(t, err)
	assert.Equal(t, -1, m.Index)
	assert.Equal(t, 0.0, m.Score)
}

func TestNearest_Untokenizable(t *testing.T) {
	s := NewSimilarityScorer(DefaultSimilarityConfig())
	m, err := s.Nearest("a !", []string{"? b", "."})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Score)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"the", "cat", "sat", "on", "the", "mat"}, Tokenize("The cat sat on the mat."))
	assert.Equal(t, []string{"héllo", "wörld", "x_1"}, Tokenize("Héllo, Wörld! a x_1"))
	assert.Empty(t, Tokenize("a b c ."))
}

func TestRoundHalfEven(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.125, 0.12}, // exact tie rounds to even
		{0.375, 0.38},
		{2.5, 2.5},
		{99.999, 100.0},
		{33.333333, 33.33},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, roundHalfEven(c.in, 2), "round(%v)", c.in)
	}
}

func TestSublinearTFChangesWeighting(t *testing.T) {
	candidate := "cache cache cache cache eviction"
	corpus := []string{"cache eviction policy"}

	raw, err := NewSimilarityScorer(SimilarityConfig{SmoothIDF: true}).Score(candidate, corpus)
	require.NoError(t, err)
	sub, err := NewSimilarityScorer(SimilarityConfig{SmoothIDF: true, SublinearTF: true}).Score(candidate, corpus)
	require.NoError(t, err)
	assert.NotEqual(t, raw, sub)
}

func TestScore_UnsmoothedIDF(t *testing.T) {
	s := NewSimilarityScorer(SimilarityConfig{SmoothIDF: false, Workers: 1})
	text := "replication lag between primary and replica"
	got, err := s.Score(text, []string{text, "unrelated words entirely"})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, got, 0.01)
}
