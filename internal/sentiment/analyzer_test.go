package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

func TestScoreEmptyText(t *testing.T) {
	a := NewAnalyzer()

	for _, text := range []string{"", "   ", "\n\t", "!!! ..."} {
		scores, err := a.Score(text)
		require.NoError(t, err)
		assert.Equal(t, models.SentimentScores{Neutral: 1}, scores)
	}
}

func TestScorePositiveText(t *testing.T) {
	a := NewAnalyzer()

	scores, err := a.Score("AAPL is great, very bullish, huge gains coming")
	require.NoError(t, err)
	assert.Greater(t, scores.Compound, 0.0)
	assert.Greater(t, scores.Positive, scores.Negative)
}

func TestScoreNegativeText(t *testing.T) {
	a := NewAnalyzer()

	scores, err := a.Score("this stock is terrible, expecting a crash and huge losses")
	require.NoError(t, err)
	assert.Less(t, scores.Compound, 0.0)
	assert.Greater(t, scores.Negative, scores.Positive)
}

func TestScoreNegationFlipsValence(t *testing.T) {
	a := NewAnalyzer()

	plain, err := a.Score("this is good")
	require.NoError(t, err)
	negated, err := a.Score("this is not good")
	require.NoError(t, err)

	assert.Greater(t, plain.Compound, 0.0)
	assert.Less(t, negated.Compound, 0.0)
}

func TestScoreBoosterScalesValence(t *testing.T) {
	a := NewAnalyzer()

	plain, err := a.Score("the outlook is good")
	require.NoError(t, err)
	boosted, err := a.Score("the outlook is extremely good")
	require.NoError(t, err)
	dampened, err := a.Score("the outlook is slightly good")
	require.NoError(t, err)

	assert.Greater(t, boosted.Compound, plain.Compound)
	assert.Less(t, dampened.Compound, plain.Compound)
	assert.Greater(t, dampened.Compound, 0.0)
}

func TestScoreTradingSlang(t *testing.T) {
	a := NewAnalyzer()

	bull, err := a.Score("GME to the moon, tendies incoming")
	require.NoError(t, err)
	assert.Greater(t, bull.Compound, 0.0)

	bear, err := a.Score("total dump, bagholders everywhere, it keeps tanking")
	require.NoError(t, err)
	assert.Less(t, bear.Compound, 0.0)
}

func TestScoreCompoundIsBounded(t *testing.T) {
	a := NewAnalyzer()

	texts := []string{
		"great great great great great great great great great great",
		"crash crash crash crash crash crash crash crash crash crash",
		"neutral words about the weather on a tuesday",
	}
	for _, text := range texts {
		scores, err := a.Score(text)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, scores.Compound, -1.0)
		assert.LessOrEqual(t, scores.Compound, 1.0)
	}
}

func TestScoreProportionsSumToOne(t *testing.T) {
	a := NewAnalyzer()

	scores, err := a.Score("good earnings but risky guidance and some plain words")
	require.NoError(t, err)
	sum := scores.Positive + scores.Negative + scores.Neutral
	assert.InDelta(t, 1.0, sum, 0.001)
}

func TestScoreIsDeterministic(t *testing.T) {
	a := NewAnalyzer()
	text := "very bullish on AAPL but not without risk"

	first, err := a.Score(text)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := a.Score(text)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 0.0, normalize(0))
	assert.InDelta(t, 0.25, normalize(1), 0.01)
	assert.Greater(t, normalize(10), normalize(5))
	assert.InDelta(t, -normalize(3), normalize(-3), 1e-12)
	assert.Less(t, normalize(1000), 1.0)
	assert.Greater(t, normalize(-1000), -1.0)
}
