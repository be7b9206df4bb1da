// Package classify implements the communicator: first-pass intent,
// sentiment and urgency classification of a raw user message, and
// tone-aware response formatting.
package classify

import (
	"math/rand"
	"strings"

	"go.uber.org/zap"
)

// Sentiment values produced by Classify.
const (
	SentimentNeutral  = "neutral"
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentUrgent   = "urgent"
)

// Urgency values produced by Classify.
const (
	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
)

// TargetGeneral means no specialized routing: the kernel falls through to
// its default LLM path.
const TargetGeneral = "general"

// Classification is the result of one classify pass. It is consumed
// within a single kernel turn; a reduced form (intent/sentiment/urgency)
// is merged into the session state.
type Classification struct {
	Intent      string  `json:"intent"`
	Sentiment   string  `json:"sentiment"`
	Urgency     string  `json:"urgency"`
	TargetAgent string  `json:"target_agent"`
	Confidence  float64 `json:"confidence"`
}

var (
	weatherKeywords = []string{"weather", "temperature", "forecast", "sunny", "rainy"}
	timeKeywords    = []string{"time", "clock", "hour"}
	codeKeywords    = []string{"code", "improve", "refactor", "bug", "fix", "optimize"}
	scopeKeywords   = []string{"file", "code", "module", "function", "class", "method"}
	urgencyKeywords = []string{"urgent", "emergency", "asap", "immediately"}
	positiveWords   = []string{"happy", "great", "excellent", "good", "thanks"}
	negativeWords   = []string{"sad", "bad", "terrible", "awful", "disappointed"}

	positiveEndings = []string{
		"I'm glad I could help!",
		"Happy to assist!",
		"Hope that helps!",
	}
)

// Classifier inspects raw messages. It is a pure keyword matcher; history
// is accepted for future use but not consulted.
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier creates a classifier.
func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify determines intent, sentiment, urgency and the target agent for
// a message.
//
// Intent/target rules apply in fixed precedence, first match wins:
// weather, then time, then code-improvement (which needs both a code
// keyword and a code-scope keyword). Sentiment and urgency are overlays
// evaluated independently afterwards, in the order urgency, positive,
// negative; a later overlay overwrites the sentiment set by an earlier one.
func (c *Classifier) Classify(message string) Classification {
	lower := strings.ToLower(message)

	result := Classification{
		Intent:      "query",
		Sentiment:   SentimentNeutral,
		Urgency:     UrgencyNormal,
		TargetAgent: TargetGeneral,
		Confidence:  0.7,
	}

	switch {
	case containsAny(lower, weatherKeywords):
		result.Intent = "weather_query"
		result.TargetAgent = "weather_time_agent"
		result.Confidence = 0.9
	case containsAny(lower, timeKeywords):
		result.Intent = "time_query"
		result.TargetAgent = "weather_time_agent"
		result.Confidence = 0.9
	case containsAny(lower, codeKeywords) && containsAny(lower, scopeKeywords):
		result.Intent = "code_improvement"
		result.TargetAgent = "self_improving_agent"
		result.Confidence = 0.85
	}

	if containsAny(lower, urgencyKeywords) {
		result.Urgency = UrgencyHigh
		result.Sentiment = SentimentUrgent
	}
	if containsAny(lower, positiveWords) {
		result.Sentiment = SentimentPositive
	}
	if containsAny(lower, negativeWords) {
		result.Sentiment = SentimentNegative
	}

	c.logger.Debug("classified message",
		zap.String("intent", result.Intent),
		zap.String("sentiment", result.Sentiment),
		zap.String("target", result.TargetAgent))
	return result
}

// FormatResponse adjusts a reply's tone for the classified sentiment and
// urgency. Exactly one branch applies: an urgency prefix, a positive
// affirmation suffix, an empathetic prefix, or the text unchanged.
func (c *Classifier) FormatResponse(text, sentiment, urgency string) string {
	if urgency == UrgencyHigh {
		return "URGENT: " + text
	}
	if sentiment == SentimentPositive {
		return text + " " + positiveEndings[rand.Intn(len(positiveEndings))]
	}
	if sentiment == SentimentNegative {
		return "I understand this might be frustrating. " + text
	}
	return text
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
