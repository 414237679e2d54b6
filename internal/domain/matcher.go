package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	baseScore           = 40
	containerMatchBonus = 20
	containerMismatch   = -10
	corridorMatchBonus  = 20
	corridorMismatch    = -5
	currencyMatchBonus  = 5
	confidenceWeight    = 5
)

// MatcherConfig tunes acceptance of the best candidate
type MatcherConfig struct {
	// MinScore is the lowest accepted score. The base score alone reaches 40.
	MinScore int
	// RequireDiscriminatorMatch rejects winners that matched no container,
	// corridor or currency.
	RequireDiscriminatorMatch bool
}

// DefaultMatcherConfig returns the default acceptance rules
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{MinScore: baseScore}
}

// CardScore is the outcome of scoring one eligible candidate
type CardScore struct {
	Points               int
	Reasons              []string
	DiscriminatorMatched bool
}

// MatchResult is the selected rate card and why it won
type MatchResult struct {
	Card        RateCard
	Score       int
	Explanation string
}

// ScoreRateCard scores card for the request. The boolean is false when the
// card fails a hard filter (service, air exclusion, unit or scope).
func ScoreRateCard(card RateCard, key ServiceKey, pctx PricingContext, unit Unit, currency Currency, airMode bool) (CardScore, bool) {
	if card.ServiceKey != key {
		return CardScore{}, false
	}
	if airMode && card.ContainerType != nil {
		return CardScore{}, false
	}
	if NormalizeUnit(card.Unit) != unit {
		return CardScore{}, false
	}
	if !pctx.Scope.IsValid() || card.Scope != pctx.Scope {
		return CardScore{}, false
	}

	s := CardScore{Points: baseScore, Reasons: []string{"unit " + string(unit), "scope " + string(pctx.Scope)}}

	if card.ContainerType != nil && len(pctx.Containers) > 0 {
		want := NormalizeContainerType(*card.ContainerType)
		if hasContainerType(pctx.Containers, want) {
			s.Points += containerMatchBonus
			s.DiscriminatorMatched = true
			s.Reasons = append(s.Reasons, "container "+want)
		} else {
			s.Points += containerMismatch
			s.Reasons = append(s.Reasons, "container mismatch "+want)
		}
	}

	if card.Corridor != nil && pctx.Corridor != nil {
		if strings.EqualFold(strings.TrimSpace(*card.Corridor), *pctx.Corridor) {
			s.Points += corridorMatchBonus
			s.DiscriminatorMatched = true
			s.Reasons = append(s.Reasons, "corridor "+*pctx.Corridor)
		} else {
			s.Points += corridorMismatch
			s.Reasons = append(s.Reasons, "corridor mismatch "+*card.Corridor)
		}
	}

	if cur, ok := NormalizeCurrency(card.Currency); ok && cur == currency {
		s.Points += currencyMatchBonus
		s.DiscriminatorMatched = true
		s.Reasons = append(s.Reasons, "currency "+string(cur))
	}

	if bonus := confidenceBonus(card.Confidence); bonus > 0 {
		s.Points += bonus
		s.Reasons = append(s.Reasons, fmt.Sprintf("confidence +%d", bonus))
	}

	return s, true
}

func confidenceBonus(confidence float64) int {
	c := math.Max(0, math.Min(1, confidence))
	return int(math.Round(c * confidenceWeight))
}

func hasContainerType(containers []Container, code string) bool {
	for _, c := range containers {
		if c.Type == code {
			return true
		}
	}
	return false
}

// Matcher selects the best rate card from a candidate set
type Matcher struct {
	config MatcherConfig
}

// NewMatcher creates a matcher
func NewMatcher(config MatcherConfig) *Matcher {
	return &Matcher{config: config}
}

type scoredCard struct {
	card  RateCard
	score CardScore
}

// FindBest returns the winning card or nil. Cards below MinScore, or without
// a discriminator match when one is required, never compete. Ties go to the
// higher stored confidence, then to the lowest card id, independent of
// candidate order.
func (m *Matcher) FindBest(candidates []RateCard, key ServiceKey, pctx PricingContext, unit Unit, currency Currency, airMode bool) *MatchResult {
	scored := 0
	eligible := make([]scoredCard, 0, len(candidates))
	for _, card := range candidates {
		s, ok := ScoreRateCard(card, key, pctx, unit, currency, airMode)
		if !ok {
			continue
		}
		scored++
		if s.Points < m.config.MinScore {
			continue
		}
		if m.config.RequireDiscriminatorMatch && !s.DiscriminatorMatched {
			continue
		}
		eligible = append(eligible, scoredCard{card: card, score: s})
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.score.Points != b.score.Points {
			return a.score.Points > b.score.Points
		}
		if a.card.Confidence != b.card.Confidence {
			return a.card.Confidence > b.card.Confidence
		}
		return a.card.ID < b.card.ID
	})

	best := eligible[0]
	return &MatchResult{
		Card:  best.card,
		Score: best.score.Points,
		Explanation: fmt.Sprintf("rate card %s (score %d: %s; %d candidates)",
			best.card.ID, best.score.Points, strings.Join(best.score.Reasons, ", "), scored),
	}
}
