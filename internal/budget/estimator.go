// Package budget estimates token counts for prompt text and truncates
// oversized input to fit a hard token ceiling. Estimation is a character
// heuristic, not an exact tokenization; all functions are pure.
package budget

import "unicode/utf8"

const (
	// DefaultCharsPerToken is the estimation divisor: roughly three
	// characters per token, a blended ratio across scripts with variable
	// per-character token density.
	DefaultCharsPerToken = 3

	// DefaultCeilingTokens is the hard token ceiling applied to prompts.
	DefaultCeilingTokens = 8000

	// fastTruncateRatio is the cheap first-pass cut applied when an
	// estimate exceeds the ceiling.
	fastTruncateRatio = 0.8
)

// TokenEstimate is the result of estimating a prompt.
// TruncatedText is non-empty exactly when WithinLimit is false.
type TokenEstimate struct {
	Count         int
	WithinLimit   bool
	TruncatedText string
}

// Estimator approximates token counts using a fixed characters-per-token
// ratio against a configurable ceiling.
type Estimator struct {
	CharsPerToken int
	Ceiling       int
}

// NewEstimator returns an estimator with the default ratio and ceiling.
func NewEstimator() *Estimator {
	return NewEstimatorWithCeiling(DefaultCeilingTokens)
}

// NewEstimatorWithCeiling returns an estimator with a custom token ceiling.
// Non-positive values fall back to the defaults.
func NewEstimatorWithCeiling(ceiling int) *Estimator {
	if ceiling <= 0 {
		ceiling = DefaultCeilingTokens
	}
	return &Estimator{
		CharsPerToken: DefaultCharsPerToken,
		Ceiling:       ceiling,
	}
}

// Estimate approximates the token count of text as ceil(chars / ratio).
// When the estimate exceeds the ceiling, TruncatedText carries a fast
// heuristic cut of the input at 80% of its length.
func (e *Estimator) Estimate(text string) TokenEstimate {
	count := e.Count(text)
	if count <= e.ceiling() {
		return TokenEstimate{Count: count, WithinLimit: true}
	}

	runes := []rune(text)
	cut := int(float64(len(runes)) * fastTruncateRatio)
	return TokenEstimate{
		Count:         count,
		WithinLimit:   false,
		TruncatedText: string(runes[:cut]),
	}
}

// Count estimates the number of tokens in text. The count is deterministic
// and strictly non-decreasing in the character length of the input.
func (e *Estimator) Count(text string) int {
	ratio := e.CharsPerToken
	if ratio <= 0 {
		ratio = DefaultCharsPerToken
	}
	runeCount := utf8.RuneCountInString(text)
	return (runeCount + ratio - 1) / ratio
}

// TruncateToLimit returns text cut so that its estimated token count fits
// the ceiling. Compliant text is returned unchanged, so the function is
// idempotent.
func (e *Estimator) TruncateToLimit(text string) string {
	count := e.Count(text)
	ceiling := e.ceiling()
	if count <= ceiling {
		return text
	}

	runes := []rune(text)
	target := int(float64(len(runes)) * float64(ceiling) / float64(count))
	if target > len(runes) {
		target = len(runes)
	}
	return string(runes[:target])
}

func (e *Estimator) ceiling() int {
	if e.Ceiling <= 0 {
		return DefaultCeilingTokens
	}
	return e.Ceiling
}
