package entity

// MatchTier identifies how confidently a sender name was resolved against
// a row label. Tiers are ordered strongest first; matching stops at the
// first tier that produces a hit.
type MatchTier int

const (
	TierNone MatchTier = iota
	TierExact
	TierNormalized
	TierSubstring
	TierFirstLast
	TierFirstOnly
)

func (t MatchTier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierNormalized:
		return "normalized-exact"
	case TierSubstring:
		return "substring"
	case TierFirstLast:
		return "first-and-last-name"
	case TierFirstOnly:
		return "first-name-only"
	default:
		return "none"
	}
}

// MatchResult is the outcome of resolving a sender name against a grid's
// row labels. Row is -1 when no tier matched.
type MatchResult struct {
	Row   int
	Label string
	Tier  MatchTier
}

// Found reports whether any tier matched.
func (m MatchResult) Found() bool {
	return m.Tier != TierNone
}
