package match

import "testing"

func tariffProfile() Profile {
	return Profile{
		Title:     "Section 232 Tariff Adjustment on Imported Steel",
		Summary:   "Commerce finalized new tariff rates affecting steel importers.",
		Companies: []string{"Nucor", "PharmaCorp International"},
		Sectors:   []string{"manufacturing"},
		Relevance: []string{"high"},
	}
}

func TestTierOrdinal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		tier string
		want int
	}{
		{tier: "low", want: 1},
		{tier: "medium", want: 2},
		{tier: "high", want: 3},
		{tier: "HIGH", want: 3},
		{tier: " medium ", want: 2},
		{tier: "critical", want: 0},
		{tier: "", want: 0},
	}
	for _, tc := range cases {
		if got := TierOrdinal(tc.tier); got != tc.want {
			t.Fatalf("TierOrdinal(%q) = %d, want %d", tc.tier, got, tc.want)
		}
	}
}

func TestMatchesThresholdGate(t *testing.T) {
	t.Parallel()

	rule := Rule{Threshold: "high"}

	low := tariffProfile()
	low.Relevance = []string{"low", "medium"}
	if Matches(rule, low) {
		t.Fatal("profile peaking at medium must not clear a high threshold")
	}

	mixed := tariffProfile()
	mixed.Relevance = []string{"low", "high"}
	if !Matches(rule, mixed) {
		t.Fatal("strongest tier drives the gate")
	}
}

func TestMatchesUnknownTiersRankLowest(t *testing.T) {
	t.Parallel()

	rule := Rule{Threshold: "low"}
	profile := tariffProfile()
	profile.Relevance = []string{"critical", "unknown"}
	if Matches(rule, profile) {
		t.Fatal("unrecognized tiers must rank below low")
	}

	profile.Relevance = nil
	if Matches(rule, profile) {
		t.Fatal("profile without tiers matches nothing")
	}
}

func TestMatchesUnknownThresholdDefaultsToMedium(t *testing.T) {
	t.Parallel()

	rule := Rule{Threshold: "urgent"}

	medium := tariffProfile()
	medium.Relevance = []string{"medium"}
	if !Matches(rule, medium) {
		t.Fatal("unknown threshold should behave as medium")
	}

	low := tariffProfile()
	low.Relevance = []string{"low"}
	if Matches(rule, low) {
		t.Fatal("low must not clear the defaulted medium threshold")
	}
}

func TestMatchesSectorOverlap(t *testing.T) {
	t.Parallel()

	profile := tariffProfile()

	if !Matches(Rule{Threshold: "low"}, profile) {
		t.Fatal("empty rule sectors are vacuously satisfied")
	}
	if !Matches(Rule{Threshold: "low", Sectors: []string{"Manufacturing", "finance"}}, profile) {
		t.Fatal("sector comparison must ignore case")
	}
	if Matches(Rule{Threshold: "low", Sectors: []string{"healthcare"}}, profile) {
		t.Fatal("disjoint sectors must not match")
	}
	if !Matches(Rule{Threshold: "low", Sectors: []string{"industrial"}}, profile) {
		t.Fatal("sector aliases normalize before comparison")
	}
}

func TestMatchesKeywords(t *testing.T) {
	t.Parallel()

	profile := tariffProfile()

	if !Matches(Rule{Threshold: "low", Keywords: []string{"TARIFF"}}, profile) {
		t.Fatal("keyword match must ignore case")
	}
	if !Matches(Rule{Threshold: "low", Keywords: []string{"pharma"}}, profile) {
		t.Fatal("keywords must search company names too")
	}
	if Matches(Rule{Threshold: "low", Keywords: []string{"cryptocurrency"}}, profile) {
		t.Fatal("absent keyword must not match")
	}
	if !Matches(Rule{Threshold: "low", Keywords: []string{"  ", ""}}, profile) {
		t.Fatal("blank keywords collapse to the vacuous rule")
	}
}

func TestMatchesRequiresAllChecks(t *testing.T) {
	t.Parallel()

	profile := tariffProfile()
	rule := Rule{
		Sectors:   []string{"manufacturing"},
		Threshold: "medium",
		Keywords:  []string{"cryptocurrency"},
	}
	if Matches(rule, profile) {
		t.Fatal("a failing keyword check must veto an otherwise matching rule")
	}

	rule.Keywords = []string{"steel"}
	if !Matches(rule, profile) {
		t.Fatal("all three checks passing must match")
	}
}
