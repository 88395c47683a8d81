package campaign

import "strings"

// complianceSuffix is appended to outbound SMS bodies that lack opt-out
// instructions. Carrier rules require the opt-out keyword, a help contact
// and a rates disclaimer on every promotional message.
const complianceSuffix = "reply STOP to opt out. Call 918-932-5396 for HELP. Msg & data rates may apply."

// HasOptOutLanguage reports whether the body already carries opt-out
// instructions. Matching is case-insensitive: either an explicit
// "reply STOP" / "text STOP" phrase, or "stop" combined with
// "unsubscribe" or "opt out".
func HasOptOutLanguage(body string) bool {
	lower := strings.ToLower(body)
	if strings.Contains(lower, "reply stop") || strings.Contains(lower, "text stop") {
		return true
	}
	if strings.Contains(lower, "stop") &&
		(strings.Contains(lower, "unsubscribe") || strings.Contains(lower, "opt out")) {
		return true
	}
	return false
}

// FormatSMSBody returns a body guaranteed to contain opt-out instructions.
// Compliant bodies pass through unchanged, so the function is idempotent.
// Empty and whitespace-only bodies pass through untouched.
func FormatSMSBody(body string) string {
	trimmed := strings.TrimRight(body, " ")
	if trimmed == "" {
		return body
	}
	if HasOptOutLanguage(body) {
		return body
	}
	return trimmed + " " + complianceSuffix
}
