package extractor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
	"github.com/stockpulse/stock-mentions-etl/internal/sentiment"
)

const (
	// contextWindow is the number of characters kept on each side of a
	// ticker occurrence when building the mention context.
	contextWindow = 150

	// contextLimit caps the stored context snippet.
	contextLimit = 200
)

// deletedSentinels are content values Reddit substitutes for removed posts.
var deletedSentinels = map[string]bool{
	"[deleted]": true,
	"[removed]": true,
}

var (
	bareTickerPattern   = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
	dollarTickerPattern = regexp.MustCompile(`\$([A-Za-z]{1,5})\b`)
)

// Extractor scans raw messages for ticker mentions and annotates each with
// sentiment, signal tags, price targets, and a confidence score. It has no
// side effects; identical inputs produce identical mentions.
type Extractor struct {
	scorer    sentiment.Scorer
	universe  map[string]bool
	ambiguous map[string]bool
}

// Options configures an Extractor.
type Options struct {
	// Tickers is the symbol universe to match against.
	Tickers []string

	// AmbiguousTickers are symbols that collide with common English words;
	// they only match with a $ prefix.
	AmbiguousTickers []string
}

// New creates an Extractor over the given ticker universe.
func New(scorer sentiment.Scorer, opts Options) *Extractor {
	universe := make(map[string]bool, len(opts.Tickers))
	for _, t := range opts.Tickers {
		universe[strings.ToUpper(t)] = true
	}

	ambiguous := make(map[string]bool, len(opts.AmbiguousTickers))
	for _, t := range opts.AmbiguousTickers {
		ambiguous[strings.ToUpper(t)] = true
	}

	return &Extractor{
		scorer:    scorer,
		universe:  universe,
		ambiguous: ambiguous,
	}
}

// Extract returns one StockMention per ticker mentioned in the message.
// Empty and deleted content yields no mentions and no error. A scorer
// failure fails the whole message.
func (e *Extractor) Extract(msg models.RawMessage) ([]models.StockMention, error) {
	text := messageText(msg)
	if text == "" {
		return nil, nil
	}

	tickers := e.findTickers(text)
	if len(tickers) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	mentions := make([]models.StockMention, 0, len(tickers))

	for _, ticker := range tickers {
		context := extractContext(text, ticker)
		scoreText := context
		if scoreText == "" {
			scoreText = text
		}

		scores, err := e.scorer.Score(scoreText)
		if err != nil {
			return nil, fmt.Errorf("scoring %s in message %s: %w", ticker, msg.MessageID, err)
		}

		mentions = append(mentions, models.StockMention{
			MessageID:         msg.MessageID,
			Ticker:            ticker,
			Author:            msg.Author,
			CreatedAt:         msg.CreatedAt,
			Subreddit:         msg.Subreddit,
			URL:               msg.URL,
			Score:             msg.Score,
			MessageType:       msg.MessageType,
			SentimentCompound: scores.Compound,
			SentimentPositive: scores.Positive,
			SentimentNegative: scores.Negative,
			SentimentNeutral:  scores.Neutral,
			Signals:           detectSignals(scoreText, ticker),
			PriceTargets:      extractPriceTargets(scoreText, ticker),
			Context:           truncate(context, contextLimit),
			Confidence:        ConfidenceScore(scores.Compound, msg.Score),
			ETLTimestamp:      now,
		})
	}

	return mentions, nil
}

// ExtractBatch extracts mentions from a batch of messages. Per-message
// failures are logged and skipped; the returned count reports them.
func (e *Extractor) ExtractBatch(msgs []models.RawMessage) ([]models.StockMention, int) {
	var all []models.StockMention
	errCount := 0

	for _, msg := range msgs {
		mentions, err := e.Extract(msg)
		if err != nil {
			logrus.Errorf("Extraction failed for message %s: %v", msg.MessageID, err)
			errCount++
			continue
		}
		all = append(all, mentions...)
	}

	return all, errCount
}

// ConfidenceScore blends sentiment strength with a log-scaled message score
// into a [0, 1] value. It is monotone in |compound| and in score, and
// deterministic; the 0.7/0.3 blend weights sentiment strength over
// popularity.
func ConfidenceScore(compound float64, score int) float64 {
	strength := math.Abs(compound)

	scoreFactor := 0.0
	if score != 0 {
		scoreFactor = math.Min(1.0, math.Log(math.Abs(float64(score))+1)/10)
	}

	confidence := 0.7*strength + 0.3*scoreFactor
	return math.Round(confidence*100) / 100
}

// messageText combines title and content, returning "" for messages with
// nothing to analyze.
func messageText(msg models.RawMessage) string {
	content := strings.TrimSpace(msg.Content)
	if deletedSentinels[content] {
		return ""
	}

	title := strings.TrimSpace(msg.Title)
	if title != "" && content != "" {
		return title + " " + content
	}
	if title != "" {
		return title
	}
	return content
}

// findTickers returns the universe tickers mentioned in text, in first-seen
// order. Bare uppercase tokens match unless the symbol is ambiguous;
// $-prefixed symbols always match regardless of case.
func (e *Extractor) findTickers(text string) []string {
	var found []string
	seen := make(map[string]bool)

	for _, tok := range bareTickerPattern.FindAllString(text, -1) {
		if e.universe[tok] && !e.ambiguous[tok] && !seen[tok] {
			seen[tok] = true
			found = append(found, tok)
		}
	}

	for _, m := range dollarTickerPattern.FindAllStringSubmatch(text, -1) {
		tok := strings.ToUpper(m[1])
		if e.universe[tok] && !seen[tok] {
			seen[tok] = true
			found = append(found, tok)
		}
	}

	return found
}

// extractContext returns the text surrounding each occurrence of the ticker,
// contextWindow characters on each side, joined with spaces.
func extractContext(text, ticker string) string {
	pattern := regexp.MustCompile(`(\b|\$)` + regexp.QuoteMeta(ticker) + `\b`)

	var contexts []string
	for _, loc := range pattern.FindAllStringIndex(text, -1) {
		// Window offsets are bytes; move each cut point back to a rune
		// boundary so multibyte text is never split.
		start := loc[0] - contextWindow
		if start < 0 {
			start = 0
		}
		for start > 0 && !utf8.RuneStart(text[start]) {
			start--
		}
		end := loc[1] + contextWindow
		if end > len(text) {
			end = len(text)
		}
		for end < len(text) && !utf8.RuneStart(text[end]) {
			end++
		}
		contexts = append(contexts, text[start:end])
	}

	return strings.Join(contexts, " ")
}

// extractPriceTargets scans for price targets mentioned near the ticker,
// e.g. "AAPL price target $150" or "TSLA to $420". Best effort: unparseable
// values are dropped silently.
func extractPriceTargets(text, ticker string) []float64 {
	quoted := regexp.QuoteMeta(ticker)
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)\$?` + quoted + `\b.{0,80}?(?:price target|target price|PT)\s*\$?(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)\$?` + quoted + `\b.{0,80}?to\s+\$(\d+(?:\.\d+)?)`),
	}

	var targets []float64
	seen := make(map[float64]bool)
	for _, p := range patterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil || seen[v] {
				continue
			}
			seen[v] = true
			targets = append(targets, v)
		}
	}

	return targets
}

// truncate caps s at n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
