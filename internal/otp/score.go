package otp

import "fmt"

// Policy selects one candidate out of several.
type Policy string

const (
	// PolicyDigits picks the candidate with the most decimal digits.
	PolicyDigits Policy = "digits"
	// PolicyNearest picks the candidate closest to the matched keyword.
	PolicyNearest Policy = "nearest"
)

// ParsePolicy converts a config value into a Policy. Empty means PolicyDigits.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyDigits:
		return PolicyDigits, nil
	case PolicyNearest:
		return PolicyNearest, nil
	}
	return PolicyDigits, fmt.Errorf("unknown selection policy %q", s)
}

// MostDigits returns the token with the greatest digit count. Ties go to
// the earliest candidate; an empty list yields "".
func MostDigits(cands []Candidate) string {
	best := -1
	for i, c := range cands {
		if best < 0 || c.Digits > cands[best].Digits {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return cands[best].Token
}

// NearestTo returns the token whose offset is closest to offset. Ties go to
// the earliest candidate; an empty list yields "".
func NearestTo(cands []Candidate, offset int) string {
	best, bestDist := -1, 0
	for i, c := range cands {
		d := c.Offset - offset
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return ""
	}
	return cands[best].Token
}
