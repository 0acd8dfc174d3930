package sentiment

import (
	"math"
	"strings"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

// Scorer scores a piece of text. Implementations must be deterministic:
// identical input text always produces identical scores.
type Scorer interface {
	Score(text string) (models.SentimentScores, error)
}

// Analyzer is a lexicon-based sentiment scorer tuned for trading chatter.
// It is a pure function over its input and carries no state between calls.
type Analyzer struct {
	lexicon  map[string]float64
	negators map[string]bool
	boosters map[string]float64
}

// NewAnalyzer creates a new lexicon analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		lexicon:  valenceLexicon,
		negators: negatorWords,
		boosters: boosterWords,
	}
}

// Score analyzes the sentiment of text. The compound score is in [-1, 1];
// positive/negative/neutral are proportions in [0, 1] that sum to ~1.
func (a *Analyzer) Score(text string) (models.SentimentScores, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return models.SentimentScores{Neutral: 1}, nil
	}

	var total float64
	var posSum, negSum float64
	neutralCount := 0

	for i, tok := range tokens {
		valence, ok := a.lexicon[tok]
		if !ok {
			neutralCount++
			continue
		}

		// Scale by a preceding booster and flip on a preceding negator,
		// looking back up to two tokens.
		for j := i - 1; j >= 0 && j >= i-2; j-- {
			if factor, ok := a.boosters[tokens[j]]; ok {
				valence *= factor
			}
			if a.negators[tokens[j]] {
				valence = -valence
			}
		}

		total += valence
		if valence > 0 {
			posSum += valence
		} else {
			negSum += -valence
		}
	}

	compound := normalize(total)

	// Proportions follow the same shape VADER reports: share of scored
	// weight on each side, with unscored tokens counted as neutral.
	weight := posSum + negSum + float64(neutralCount)
	scores := models.SentimentScores{Compound: round4(compound)}
	if weight > 0 {
		scores.Positive = round4(posSum / weight)
		scores.Negative = round4(negSum / weight)
		scores.Neutral = round4(float64(neutralCount) / weight)
	} else {
		scores.Neutral = 1
	}

	return scores, nil
}

// normalize maps an unbounded valence sum into [-1, 1].
func normalize(x float64) float64 {
	return x / math.Sqrt(x*x+15)
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

func tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		case r == '\'':
			return false
		}
		return true
	})
}
