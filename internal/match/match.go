// Package match evaluates subscriber matching rules against extracted
// document profiles. Evaluation is pure: no clock, no storage.
package match

import (
	"strings"

	"congresssignal.com/signal/internal/sectors"
)

// Relevance tiers in ascending order of consequence.
const (
	TierLow    = "low"
	TierMedium = "medium"
	TierHigh   = "high"
)

// DefaultThreshold is assumed when a rule carries an unknown or empty
// threshold.
const DefaultThreshold = TierMedium

// Rule is one subscriber's matching rule.
type Rule struct {
	Sectors   []string
	Threshold string
	Keywords  []string
}

// Profile is the extracted profile of one document.
type Profile struct {
	Title     string
	Summary   string
	Companies []string
	Sectors   []string
	Relevance []string
}

// TierOrdinal maps a relevance tier onto its rank. Unknown tiers rank
// zero, below every real tier.
func TierOrdinal(tier string) int {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case TierLow:
		return 1
	case TierMedium:
		return 2
	case TierHigh:
		return 3
	default:
		return 0
	}
}

// Matches reports whether the profile clears the rule. All three checks
// must pass: relevance threshold, sector overlap, keyword hit.
func Matches(rule Rule, profile Profile) bool {
	if !meetsThreshold(rule.Threshold, profile.Relevance) {
		return false
	}
	if !sectorsOverlap(rule.Sectors, profile.Sectors) {
		return false
	}
	return keywordHit(rule.Keywords, profile)
}

// meetsThreshold compares the profile's strongest tier against the
// rule's threshold.
func meetsThreshold(threshold string, tiers []string) bool {
	required := TierOrdinal(threshold)
	if required == 0 {
		required = TierOrdinal(DefaultThreshold)
	}

	strongest := 0
	for _, tier := range tiers {
		if ordinal := TierOrdinal(tier); ordinal > strongest {
			strongest = ordinal
		}
	}
	return strongest >= required
}

// sectorsOverlap is vacuously true when the rule names no sectors.
func sectorsOverlap(ruleSectors, profileSectors []string) bool {
	wanted := sectors.NormalizeList(ruleSectors)
	if len(wanted) == 0 {
		return true
	}
	have := make(map[string]struct{})
	for _, sector := range sectors.NormalizeList(profileSectors) {
		have[sector] = struct{}{}
	}
	for _, sector := range wanted {
		if _, ok := have[sector]; ok {
			return true
		}
	}
	return false
}

// keywordHit is vacuously true when the rule names no keywords.
// Otherwise any keyword must appear, case-insensitively, somewhere in
// the profile's title, summary, or company names.
func keywordHit(keywords []string, profile Profile) bool {
	cleaned := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			cleaned = append(cleaned, strings.ToLower(trimmed))
		}
	}
	if len(cleaned) == 0 {
		return true
	}

	haystack := haystackFor(profile)
	for _, keyword := range cleaned {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}

func haystackFor(profile Profile) string {
	parts := make([]string, 0, 2+len(profile.Companies))
	parts = append(parts, profile.Title, profile.Summary)
	parts = append(parts, profile.Companies...)
	return strings.ToLower(strings.Join(parts, " "))
}
