// Package scoring implements the tender evaluation engine: a pure function
// from a (tender, profile) pair to an evaluation.
package scoring

import (
	"strings"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
)

// Score evaluates tender against profile. It performs no I/O and returns the
// same result for the same inputs; EvaluatedAt is left for the caller to set.
//
// Matching is case-insensitive substring containment, so short keywords such
// as "IT" also hit inside unrelated words ("politiet", "kvalitet").
func Score(t model.Tender, p model.Profile) model.Evaluation {
	title := normalize(t.Title)
	body := normalize(t.Body)
	codes := tenderCodes(t.CPVCodes)
	foldedCodes := make([]string, len(codes))
	for i, c := range codes {
		foldedCodes[i] = normalize(c)
	}

	orgID := p.OrganizationID
	if orgID == "" {
		orgID = t.OrganizationID
	}

	ev := model.Evaluation{
		TenderID:                t.ID,
		OrganizationID:          orgID,
		LeadProfileID:           p.ID,
		CombinationType:         model.CombinationSolo,
		MetRequirements:         []model.RequirementMatch{},
		MissingRequirements:     []model.RequirementMatch{},
		MatchedSupportKeywords:  []model.KeywordMatch{},
		MatchedNegativeKeywords: []model.KeywordMatch{},
		MatchedCPVCodes:         []model.CPVMatch{},
		CriteriaFingerprint:     Fingerprint(p),
	}

	for _, req := range uniqueRequirements(p.MinimumRequirements) {
		loc, ok := locateRequirement(req.folded, title, body, foldedCodes)
		if !ok {
			ev.MissingRequirements = append(ev.MissingRequirements, model.RequirementMatch{Keyword: req.raw})
			continue
		}
		ev.MetRequirements = append(ev.MetRequirements, model.RequirementMatch{Keyword: req.raw, FoundIn: loc})
	}

	if len(ev.MetRequirements) == 0 {
		ev.Explanation = ExplanationGateFailed
		return ev
	}
	ev.AllMinimumRequirementsMet = true

	for _, kw := range uniqueKeywords(p.SupportKeywords) {
		if loc, ok := locateText(kw.folded, title, body); ok {
			ev.SupportScore += kw.weight
			ev.MatchedSupportKeywords = append(ev.MatchedSupportKeywords, model.KeywordMatch{
				Keyword: kw.raw, Weight: kw.weight, FoundIn: loc,
			})
		}
	}

	for _, kw := range uniqueKeywords(p.NegativeKeywords) {
		if loc, ok := locateText(kw.folded, title, body); ok {
			ev.NegativeScore += kw.weight
			ev.MatchedNegativeKeywords = append(ev.MatchedNegativeKeywords, model.KeywordMatch{
				Keyword: kw.raw, Weight: kw.weight, FoundIn: loc,
			})
		}
	}

	for _, c := range uniqueCodes(p.CPVCodes) {
		if hasPrefix(codes, c.raw) {
			ev.CPVScore += c.weight
			ev.MatchedCPVCodes = append(ev.MatchedCPVCodes, model.CPVMatch{
				Code: c.raw, Weight: c.weight, FoundIn: model.FoundInCPV,
			})
		}
	}

	// Reserved for lead/partner combinations; solo scoring never earns synergy.
	ev.SynergyBonus = 0
	ev.TotalScore = ev.SupportScore + ev.NegativeScore + ev.CPVScore + ev.SynergyBonus
	ev.Explanation = explain(&ev)
	return ev
}

// locateRequirement checks title, description and CPV codes in that order.
func locateRequirement(kw, title, body string, codes []string) (model.MatchLocation, bool) {
	if loc, ok := locateText(kw, title, body); ok {
		return loc, true
	}
	for _, c := range codes {
		if strings.Contains(c, kw) {
			return model.FoundInCPV, true
		}
	}
	return "", false
}

// locateText checks title, then description.
func locateText(kw, title, body string) (model.MatchLocation, bool) {
	switch {
	case strings.Contains(title, kw):
		return model.FoundInTitle, true
	case strings.Contains(body, kw):
		return model.FoundInDescription, true
	}
	return "", false
}

func hasPrefix(codes []string, prefix string) bool {
	for _, c := range codes {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
