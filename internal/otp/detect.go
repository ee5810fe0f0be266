package otp

// Result is the outcome of running the pipeline over one message.
type Result struct {
	Triggered  bool
	Keyword    string
	Candidates []Candidate
	Code       string
}

// Found reports whether a code was selected.
func (r Result) Found() bool { return r.Code != "" }

// Detect runs trigger matching, extraction and scoring over text.
// Extraction is skipped entirely when no keyword matches.
func Detect(text string, keywords []string, policy Policy) Result {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	kw, offset, ok := MatchKeyword(text, keywords)
	if !ok {
		return Result{}
	}

	res := Result{Triggered: true, Keyword: kw, Candidates: Extract(text)}
	switch policy {
	case PolicyNearest:
		res.Code = NearestTo(res.Candidates, offset)
	default:
		res.Code = MostDigits(res.Candidates)
	}
	return res
}
