package classify

// guidance pairs the fixed user-facing message for a kind with its
// recovery checklist.
type guidance struct {
	userMessage string
	recovery    []string
}

// guides is the static, exhaustive lookup from kind to user guidance.
// Every kind must have a non-empty message and checklist.
var guides = map[Kind]guidance{
	KindAPIError: {
		userMessage: "The AI service could not complete the request. Please try again in a moment.",
		recovery: []string{
			"Wait a few seconds and retry the operation",
			"Check the service status page if the problem persists",
		},
	},
	KindTokenLimit: {
		userMessage: "The text is too long for the AI service to process in one request.",
		recovery: []string{
			"Shorten the text and try again",
			"Split the content into multiple smaller requests",
		},
	},
	KindTimeout: {
		userMessage: "The AI service took too long to respond.",
		recovery: []string{
			"Retry the operation",
			"Reduce the amount of text sent in a single request",
			"Check your network connection",
		},
	},
	KindQuotaExceeded: {
		userMessage: "The AI usage quota has been reached for now.",
		recovery: []string{
			"Wait for the quota window to reset before retrying",
			"Review your usage limits in the settings",
		},
	},
	KindAuthError: {
		userMessage: "The AI service rejected the configured credentials.",
		recovery: []string{
			"Verify that the API key is set and has not expired",
			"Contact an administrator to update the service credentials",
		},
	},
	KindUnknown: {
		userMessage: "An unexpected error occurred while contacting the AI service.",
		recovery: []string{
			"Retry the operation",
			"Contact support with the time of the failure if it keeps happening",
		},
	},
}

// UserMessage returns the fixed, non-technical message for a kind.
func UserMessage(kind Kind) string {
	if g, ok := guides[kind]; ok {
		return g.userMessage
	}
	return guides[KindUnknown].userMessage
}

// RecoveryGuide returns a copy of the recovery checklist for a kind.
func RecoveryGuide(kind Kind) []string {
	g, ok := guides[kind]
	if !ok {
		g = guides[KindUnknown]
	}
	out := make([]string, len(g.recovery))
	copy(out, g.recovery)
	return out
}
