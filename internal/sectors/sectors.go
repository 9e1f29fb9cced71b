package sectors

import "strings"

// Canonical sector labels assigned to documents during extraction and
// selected by subscribers at signup.
const (
	Healthcare    = "healthcare"
	Finance       = "finance"
	Tech          = "tech"
	Energy        = "energy"
	Manufacturing = "manufacturing"
	Retail        = "retail"
	Other         = "other"
)

var canonical = map[string]struct{}{
	Healthcare:    {},
	Finance:       {},
	Tech:          {},
	Energy:        {},
	Manufacturing: {},
	Retail:        {},
	Other:         {},
}

// aliases maps common signup-form spellings onto canonical labels.
var aliases = map[string]string{
	"health":      Healthcare,
	"health care": Healthcare,
	"medical":     Healthcare,
	"pharma":      Healthcare,
	"technology":  Tech,
	"software":    Tech,
	"financial":   Finance,
	"banking":     Finance,
	"fintech":     Finance,
	"oil and gas": Energy,
	"utilities":   Energy,
	"industrial":  Manufacturing,
	"commerce":    Retail,
	"ecommerce":   Retail,
}

// Normalize lowercases and trims a raw sector value and resolves known
// aliases. The result is not guaranteed to be canonical; callers that
// need the closed set should check IsCanonical.
func Normalize(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return ""
	}
	if mapped, ok := aliases[cleaned]; ok {
		return mapped
	}
	return cleaned
}

// IsCanonical reports whether label is one of the closed sector labels.
func IsCanonical(label string) bool {
	_, ok := canonical[label]
	return ok
}

// NormalizeList normalizes every value, dropping empties and duplicates
// while preserving first-seen order.
func NormalizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		normalized := Normalize(value)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// All returns the canonical labels in display order.
func All() []string {
	return []string{Healthcare, Finance, Tech, Energy, Manufacturing, Retail, Other}
}
