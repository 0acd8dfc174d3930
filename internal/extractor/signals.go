package extractor

import (
	"regexp"
	"strings"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

// Keyword groups for signal detection. BUY/SELL/HOLD are checked as a
// first-match chain per sentence; the catalyst groups are independent, so a
// sentence can carry several of them at once.
var (
	buyPattern = regexp.MustCompile(`(?i)\b(buy|bought|buying|long|calls|bullish|moon|rocket|going up|to the moon|undervalued|cheap|discount)\b`)

	sellPattern = regexp.MustCompile(`(?i)\b(sell|selling|sold|short|puts|bearish|crash|dump|tank|dropping|overvalued|expensive|bubble|correction|margin call)\b`)

	holdPattern = regexp.MustCompile(`(?i)\b(hold|holding|hodl|diamond hands|patient|patience|long term|longterm)\b`)

	earningsPattern = regexp.MustCompile(`(?i)\b(earnings|revenue|growth|profit|loss|guidance|forecast|EPS|P/E|dividend)\b`)

	newsPattern = regexp.MustCompile(`(?i)\b(news|announcement|released|launched|partnership|acquisition|merger|FDA|approval|patent|lawsuit)\b`)

	technicalPattern = regexp.MustCompile(`(?i)\b(resistance|support|trend|breakout|pattern|cup|handle|head|shoulders|triangle|wedge|channel|RSI|MACD|oversold|overbought)\b`)

	optionsPattern = regexp.MustCompile(`(?i)\b(options?|calls?|puts?|strikes?|expiry|contracts?|leaps|covered|naked|straddle|strangle|iron condor|spreads?)\b`)

	sentenceSplit = regexp.MustCompile(`[.!?\n]+`)
)

// detectSignals tags the mention with trading signals found in sentences
// that reference the ticker.
func detectSignals(text, ticker string) []models.Signal {
	tagged := make(map[models.Signal]bool)

	for _, sentence := range sentenceSplit.Split(text, -1) {
		if !mentionsTicker(sentence, ticker) {
			continue
		}

		switch {
		case buyPattern.MatchString(sentence):
			tagged[models.SignalBuy] = true
		case sellPattern.MatchString(sentence):
			tagged[models.SignalSell] = true
		case holdPattern.MatchString(sentence):
			tagged[models.SignalHold] = true
		}

		if earningsPattern.MatchString(sentence) {
			tagged[models.SignalEarnings] = true
		}
		if newsPattern.MatchString(sentence) {
			tagged[models.SignalNews] = true
		}
		if technicalPattern.MatchString(sentence) {
			tagged[models.SignalTechnical] = true
		}
		if optionsPattern.MatchString(sentence) {
			tagged[models.SignalOptions] = true
		}
	}

	var signals []models.Signal
	for _, s := range models.AllSignals {
		if tagged[s] {
			signals = append(signals, s)
		}
	}
	return signals
}

func mentionsTicker(sentence, ticker string) bool {
	return strings.Contains(sentence, ticker) ||
		strings.Contains(strings.ToUpper(sentence), "$"+ticker)
}
