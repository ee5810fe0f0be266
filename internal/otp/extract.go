// Package otp finds one-time verification codes in message text.
//
// Everything here is pure: no I/O, no shared state. The watchers call
// Detect once per new message and dispatch whatever it returns.
package otp

// Code-shape bounds for a candidate token, inclusive.
const (
	MinCodeLen = 4
	MaxCodeLen = 8
)

// Candidate is a code-shaped token found in a message.
type Candidate struct {
	Token  string
	Digits int
	// Offset is the byte offset of Token in the scanned text.
	Offset int
}

// Extract returns every code-shaped token in text, in order of appearance.
//
// A token is a maximal run of ASCII letters and digits between 4 and 8
// characters long containing at least one digit. Runs are delimited by any
// other byte, so CJK text, punctuation and line breaks all act as word
// boundaries. Repeated tokens are returned once per occurrence.
func Extract(text string) []Candidate {
	var out []Candidate
	start := -1
	for i := 0; i <= len(text); i++ {
		if i < len(text) && isAlnum(text[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if c, ok := newCandidate(text[start:i], start); ok {
				out = append(out, c)
			}
			start = -1
		}
	}
	return out
}

// Tokens returns the token strings of cands.
func Tokens(cands []Candidate) []string {
	if len(cands) == 0 {
		return nil
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Token
	}
	return out
}

func newCandidate(run string, offset int) (Candidate, bool) {
	if len(run) < MinCodeLen || len(run) > MaxCodeLen {
		return Candidate{}, false
	}
	digits := countDigits(run)
	if digits == 0 {
		return Candidate{}, false
	}
	return Candidate{Token: run, Digits: digits, Offset: offset}, true
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

// Multi-byte UTF-8 sequences never contain bytes below 0x80, so a byte-wise
// check is safe on arbitrary text.
func isAlnum(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
