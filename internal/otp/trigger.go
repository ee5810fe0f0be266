package otp

import "strings"

// DefaultKeywords is used whenever the configured keyword set is empty.
var DefaultKeywords = []string{"验证码", "verification", "code", "인증", "代码"}

// Triggered reports whether text contains any of keywords as a literal,
// case-sensitive substring.
func Triggered(text string, keywords []string) bool {
	_, _, ok := MatchKeyword(text, keywords)
	return ok
}

// MatchKeyword returns the first keyword (in keyword order) found in text
// and the byte offset of its first occurrence. Empty keywords never match.
func MatchKeyword(text string, keywords []string) (keyword string, offset int, ok bool) {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if idx := strings.Index(text, kw); idx >= 0 {
			return kw, idx, true
		}
	}
	return "", -1, false
}
