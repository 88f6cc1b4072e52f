package agents

import "strings"

// ChartIntentClassifier decides whether a user message asks for a price
// chart or other visualization.
type ChartIntentClassifier interface {
	WantsChart(message string) bool
}

// KeywordChartClassifier is the default classifier: a plain keyword scan
// over the user message.
type KeywordChartClassifier struct{}

var chartKeywords = []string{
	"chart",
	"graph",
	"plot",
	"visualize",
	"visualise",
	"draw",
	"candlestick",
	"show me a picture",
}

// WantsChart reports whether the message mentions any chart keyword.
func (KeywordChartClassifier) WantsChart(message string) bool {
	m := strings.ToLower(message)
	for _, kw := range chartKeywords {
		if strings.Contains(m, kw) {
			return true
		}
	}
	return false
}
