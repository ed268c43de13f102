package service

import (
	"strings"

	"github.com/daniel/reach-sync/internal/domain/sheet/entity"
)

// minFirstNameLen gates the weakest tier: first-token-only matches are
// accepted only for tokens this long or longer, to avoid false positives
// on short common first names.
const minFirstNameLen = 4

// Candidate is one row label offered for matching.
type Candidate struct {
	Row   int
	Label string
}

// matchFunc is one tier's predicate. Inputs are raw strings; each tier
// normalizes as much as it needs. Returning false means "no opinion" and
// evaluation moves on.
type matchFunc func(senderName, candidate string) bool

// matchTiers is evaluated in order; the first hit wins. Priority is
// fixed: exact, normalized-exact, containment, first+last token,
// first-token-only.
var matchTiers = []struct {
	tier  entity.MatchTier
	match matchFunc
}{
	{entity.TierExact, matchExact},
	{entity.TierNormalized, matchNormalized},
	{entity.TierSubstring, matchSubstring},
	{entity.TierFirstLast, matchFirstLast},
	{entity.TierFirstOnly, matchFirstOnly},
}

// Match resolves a sender name against grid row labels. Candidates that
// are structural labels (canonical metric names, years, dates) are never
// proposed. Within a tier the first candidate in scan order wins, so the
// result is deterministic for identical inputs.
func Match(senderName string, candidates []Candidate) entity.MatchResult {
	for _, t := range matchTiers {
		for _, c := range candidates {
			if excludedLabel(c.Label) {
				continue
			}
			if t.match(senderName, c.Label) {
				return entity.MatchResult{Row: c.Row, Label: c.Label, Tier: t.tier}
			}
		}
	}
	return entity.MatchResult{Row: -1, Tier: entity.TierNone}
}

// metricLabelSet holds normalized canonical metric names; these are
// structure, not sender names.
var metricLabelSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(entity.MetricLabels))
	for _, l := range entity.MetricLabels {
		set[normalizeName(l)] = struct{}{}
	}
	return set
}()

func excludedLabel(label string) bool {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return true
	}
	if isYearLabel(trimmed) || isDateLabel(trimmed) {
		return true
	}
	_, isMetric := metricLabelSet[normalizeName(trimmed)]
	return isMetric
}

// normalizeName lowercases, strips punctuation and collapses internal
// whitespace.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func matchExact(name, cand string) bool {
	return strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(cand))
}

func matchNormalized(name, cand string) bool {
	n, c := normalizeName(name), normalizeName(cand)
	return n != "" && n == c
}

func matchSubstring(name, cand string) bool {
	n, c := normalizeName(name), normalizeName(cand)
	if n == "" || c == "" {
		return false
	}
	return strings.Contains(n, c) || strings.Contains(c, n)
}

// matchFirstLast tolerates a dropped or added middle name/initial: first
// tokens must be equal, and last tokens must be equal or contain one
// another ("Kazoleas" vs "K").
func matchFirstLast(name, cand string) bool {
	nt := strings.Fields(normalizeName(name))
	ct := strings.Fields(normalizeName(cand))
	if len(nt) < 2 || len(ct) < 2 {
		return false
	}
	if nt[0] != ct[0] {
		return false
	}
	nl, cl := nt[len(nt)-1], ct[len(ct)-1]
	return nl == cl || strings.Contains(nl, cl) || strings.Contains(cl, nl)
}

func matchFirstOnly(name, cand string) bool {
	nt := strings.Fields(normalizeName(name))
	ct := strings.Fields(normalizeName(cand))
	if len(nt) == 0 || len(ct) == 0 {
		return false
	}
	return len(nt[0]) >= minFirstNameLen && nt[0] == ct[0]
}
