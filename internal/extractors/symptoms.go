package extractors

import "strings"

// SymptomMatcher performs case-insensitive keyword matching on free-text symptom labels.
type SymptomMatcher struct {
	keywords []string
}

// NewSymptomMatcher lower-cases and de-duplicates the keywords; blanks are dropped.
func NewSymptomMatcher(keywords []string) *SymptomMatcher {
	seen := make(map[string]struct{}, len(keywords))
	normalised := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		normalised = append(normalised, kw)
	}
	return &SymptomMatcher{keywords: normalised}
}

// Keywords returns the normalised keyword set.
func (m *SymptomMatcher) Keywords() []string {
	return append([]string(nil), m.keywords...)
}

// Matches reports whether the label contains any keyword.
func (m *SymptomMatcher) Matches(symptoms string) bool {
	label := strings.ToLower(symptoms)
	for _, kw := range m.keywords {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}
