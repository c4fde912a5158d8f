package privacy

import "regexp"

// RegexDetector is the built-in Detector. It covers the obvious structured
// identifiers; an external NER-based detector can replace it without
// touching the redactor.
type RegexDetector struct{}

type piiPattern struct {
	kind        string
	re          *regexp.Regexp
	placeholder string
}

var piiPatterns = []piiPattern{
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[EMAIL]"},
	{"phone", regexp.MustCompile(`\+?\d[\d\s\-()]{8,}\d`), "[PHONE]"},
	{"card", regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`), "[CARD]"},
	{"iin", regexp.MustCompile(`\b\d{12}\b`), "[IIN]"},
}

// Detect implements Detector.
func (RegexDetector) Detect(text string) []Finding {
	var findings []Finding
	for _, p := range piiPatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			findings = append(findings, Finding{
				Type:  p.kind,
				Start: loc[0],
				End:   loc[1],
				Match: text[loc[0]:loc[1]],
			})
		}
	}
	return findings
}

// Mask implements Detector, replacing each matched span with its placeholder.
func (RegexDetector) Mask(text string) string {
	for _, p := range piiPatterns {
		text = p.re.ReplaceAllString(text, p.placeholder)
	}
	return text
}
