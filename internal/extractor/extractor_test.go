package extractor

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

// stubScorer returns fixed scores, or an error when set.
type stubScorer struct {
	scores models.SentimentScores
	err    error
}

func (s stubScorer) Score(string) (models.SentimentScores, error) {
	if s.err != nil {
		return models.SentimentScores{}, s.err
	}
	return s.scores, nil
}

func testExtractor(t *testing.T) *Extractor {
	t.Helper()
	return New(stubScorer{scores: models.SentimentScores{Compound: 0.5, Neutral: 1}}, Options{
		Tickers:          []string{"AAPL", "TSLA", "GME", "A", "ALL"},
		AmbiguousTickers: []string{"A", "ALL"},
	})
}

func msg(title, content string) models.RawMessage {
	return models.RawMessage{
		MessageID:   "t3_abc123",
		Title:       title,
		Content:     content,
		Author:      "dip_buyer",
		CreatedAt:   time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Subreddit:   "wallstreetbets",
		URL:         "https://reddit.com/r/wallstreetbets/comments/abc123",
		Score:       42,
		MessageType: models.MessageTypePost,
	}
}

func TestExtractSkipsDeletedAndEmpty(t *testing.T) {
	e := testExtractor(t)

	cases := []struct {
		name    string
		title   string
		content string
	}{
		{"deleted content", "AAPL to the moon", "[deleted]"},
		{"removed content", "AAPL to the moon", "[removed]"},
		{"nothing to analyze", "", ""},
		{"whitespace only", "  ", "\n\t"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mentions, err := e.Extract(msg(tc.title, tc.content))
			require.NoError(t, err)
			assert.Empty(t, mentions)
		})
	}
}

func TestExtractTitleOnlyPost(t *testing.T) {
	e := testExtractor(t)

	mentions, err := e.Extract(msg("AAPL earnings beat expectations", ""))
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, "AAPL", mentions[0].Ticker)
}

func TestExtractOnePerTicker(t *testing.T) {
	e := testExtractor(t)

	mentions, err := e.Extract(msg("", "AAPL and TSLA both ripped today. AAPL again."))
	require.NoError(t, err)
	require.Len(t, mentions, 2)
	assert.Equal(t, "AAPL", mentions[0].Ticker)
	assert.Equal(t, "TSLA", mentions[1].Ticker)
}

func TestExtractIgnoresUnknownTickers(t *testing.T) {
	e := testExtractor(t)

	mentions, err := e.Extract(msg("", "XYZ is mooning but $FAKE is a scam"))
	require.NoError(t, err)
	assert.Empty(t, mentions)
}

func TestExtractAmbiguousTickers(t *testing.T) {
	e := testExtractor(t)

	// "A" and "ALL" read as English words; bare occurrences must not match.
	mentions, err := e.Extract(msg("", "ALL of this is A big deal"))
	require.NoError(t, err)
	assert.Empty(t, mentions)

	// With a $ prefix they are unambiguous.
	mentions, err = e.Extract(msg("", "loading up on $ALL before earnings"))
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, "ALL", mentions[0].Ticker)
}

func TestExtractDollarPrefixIsCaseInsensitive(t *testing.T) {
	e := testExtractor(t)

	mentions, err := e.Extract(msg("", "$gme is squeezing again"))
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, "GME", mentions[0].Ticker)
}

func TestExtractBareMatchRequiresUppercase(t *testing.T) {
	e := testExtractor(t)

	mentions, err := e.Extract(msg("", "bought some tsla yesterday"))
	require.NoError(t, err)
	assert.Empty(t, mentions)
}

func TestExtractPropagatesMessageFields(t *testing.T) {
	e := testExtractor(t)
	in := msg("", "TSLA calls printing")

	mentions, err := e.Extract(in)
	require.NoError(t, err)
	require.Len(t, mentions, 1)

	m := mentions[0]
	assert.Equal(t, in.MessageID, m.MessageID)
	assert.Equal(t, in.Author, m.Author)
	assert.Equal(t, in.CreatedAt, m.CreatedAt)
	assert.Equal(t, in.Subreddit, m.Subreddit)
	assert.Equal(t, in.URL, m.URL)
	assert.Equal(t, in.Score, m.Score)
	assert.Equal(t, in.MessageType, m.MessageType)
	assert.InDelta(t, 0.5, m.SentimentCompound, 1e-9)
	assert.NotEmpty(t, m.Context)
	assert.False(t, m.ETLTimestamp.IsZero())
	assert.True(t, m.HasSignal(models.SignalBuy))
	assert.True(t, m.HasSignal(models.SignalOptions))
	assert.False(t, m.HasSignal(models.SignalSell))
}

func TestExtractPriceTargets(t *testing.T) {
	e := testExtractor(t)

	cases := []struct {
		name string
		text string
		want []float64
	}{
		{"price target phrase", "analyst raised AAPL price target $210", []float64{210}},
		{"PT shorthand", "my AAPL PT $195.50", []float64{195.50}},
		{"to-dollar phrase", "TSLA to $420 by Friday", []float64{420}},
		{"no target", "AAPL looks strong here", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mentions, err := e.Extract(msg("", tc.text))
			require.NoError(t, err)
			require.Len(t, mentions, 1)
			assert.Equal(t, tc.want, mentions[0].PriceTargets)
		})
	}
}

func TestExtractContextSurvivesMultibyteText(t *testing.T) {
	e := testExtractor(t)

	// 4-byte runes on both sides of the ticker put the byte-offset window
	// edges and the snippet cap inside a rune.
	rockets := strings.Repeat("\U0001F680", 80)
	mentions, err := e.Extract(msg("", rockets+" AAPL is great "+rockets))
	require.NoError(t, err)
	require.Len(t, mentions, 1)

	m := mentions[0]
	assert.True(t, utf8.ValidString(m.Context), "context must stay valid UTF-8")
	assert.Contains(t, m.Context, "AAPL")
	assert.LessOrEqual(t, len(m.Context), 200)
}

func TestExtractIsDeterministic(t *testing.T) {
	e := testExtractor(t)
	in := msg("", "AAPL price target $210, buying calls")

	first, err := e.Extract(in)
	require.NoError(t, err)
	second, err := e.Extract(in)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	first[0].ETLTimestamp = second[0].ETLTimestamp
	assert.Equal(t, first[0], second[0])
}

func TestExtractScorerFailureFailsMessage(t *testing.T) {
	e := New(stubScorer{err: errors.New("lexicon unavailable")}, Options{
		Tickers: []string{"AAPL"},
	})

	mentions, err := e.Extract(msg("", "AAPL is unstoppable"))
	assert.Error(t, err)
	assert.Nil(t, mentions)
}

func TestExtractBatchSkipsFailedMessages(t *testing.T) {
	calls := 0
	scorer := scorerFunc(func(string) (models.SentimentScores, error) {
		calls++
		if calls == 1 {
			return models.SentimentScores{}, errors.New("boom")
		}
		return models.SentimentScores{Compound: 0.2, Neutral: 1}, nil
	})
	e := New(scorer, Options{Tickers: []string{"AAPL", "TSLA"}})

	bad := msg("", "AAPL tanking")
	bad.MessageID = "t3_bad"
	good := msg("", "TSLA holding support")
	good.MessageID = "t3_good"

	mentions, errCount := e.ExtractBatch([]models.RawMessage{bad, good})
	assert.Equal(t, 1, errCount)
	require.Len(t, mentions, 1)
	assert.Equal(t, "t3_good", mentions[0].MessageID)
}

type scorerFunc func(string) (models.SentimentScores, error)

func (f scorerFunc) Score(text string) (models.SentimentScores, error) { return f(text) }

func TestConfidenceScore(t *testing.T) {
	// Zero-score message: only sentiment strength contributes.
	assert.InDelta(t, 0.35, ConfidenceScore(0.5, 0), 1e-9)
	assert.InDelta(t, 0.35, ConfidenceScore(-0.5, 0), 1e-9)

	// Monotone in |compound| for a fixed score.
	assert.Less(t, ConfidenceScore(0.2, 50), ConfidenceScore(0.8, 50))

	// Monotone in score for a fixed compound.
	assert.LessOrEqual(t, ConfidenceScore(0.5, 1), ConfidenceScore(0.5, 1000))

	// Bounded in [0, 1] even for extreme inputs.
	assert.Equal(t, 1.0, ConfidenceScore(1.0, 10_000_000))
	assert.Equal(t, 0.0, ConfidenceScore(0, 0))

	for _, c := range []float64{-1, -0.5, 0, 0.33, 1} {
		for _, s := range []int{0, 1, 100, 100000} {
			v := ConfidenceScore(c, s)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}
