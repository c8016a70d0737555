package store

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
)

const leaseExpiredMessage = "lease expired before the job finished"

func newLeaseToken() string {
	return uuid.NewString()
}

type scannable interface {
	Scan(dest ...any) error
}

type criteriaJSON struct {
	minReq, support, negative, cpv []byte
}

// marshalList encodes a slice as a JSON array, never as null.
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func unmarshalList[T any](data []byte) ([]T, error) {
	out := []T{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func encodeCriteria(p model.Profile) (criteriaJSON, error) {
	var c criteriaJSON
	var err error
	if c.minReq, err = marshalList(p.MinimumRequirements); err != nil {
		return c, err
	}
	if c.support, err = marshalList(p.SupportKeywords); err != nil {
		return c, err
	}
	if c.negative, err = marshalList(p.NegativeKeywords); err != nil {
		return c, err
	}
	c.cpv, err = marshalList(p.CPVCodes)
	return c, err
}

func decodeCriteria(p *model.Profile, minReq, support, negative, cpv []byte) error {
	var err error
	if p.MinimumRequirements, err = unmarshalList[model.MinimumRequirement](minReq); err != nil {
		return eris.Wrap(err, "minimum_requirements")
	}
	if p.SupportKeywords, err = unmarshalList[model.WeightedKeyword](support); err != nil {
		return eris.Wrap(err, "support_keywords")
	}
	if p.NegativeKeywords, err = unmarshalList[model.WeightedKeyword](negative); err != nil {
		return eris.Wrap(err, "negative_keywords")
	}
	if p.CPVCodes, err = unmarshalList[model.CPVCode](cpv); err != nil {
		return eris.Wrap(err, "cpv_codes")
	}
	return nil
}

var evaluationColumns = []string{
	"tender_id", "organization_id", "lead_profile_id", "partner_profile_id", "combination_type",
	"all_minimum_requirements_met", "met_requirements", "missing_requirements",
	"support_score", "negative_score", "cpv_score", "synergy_bonus", "total_score",
	"matched_support_keywords", "matched_negative_keywords", "matched_cpv_codes",
	"explanation", "criteria_fingerprint", "evaluated_at",
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

// evaluationRow returns ev's values in evaluationColumns order. evaluatedAt is
// passed in the representation the backend stores.
func evaluationRow(ev *model.Evaluation, evaluatedAt any) ([]any, error) {
	met, err := marshalList(ev.MetRequirements)
	if err != nil {
		return nil, err
	}
	missing, err := marshalList(ev.MissingRequirements)
	if err != nil {
		return nil, err
	}
	support, err := marshalList(ev.MatchedSupportKeywords)
	if err != nil {
		return nil, err
	}
	negative, err := marshalList(ev.MatchedNegativeKeywords)
	if err != nil {
		return nil, err
	}
	cpv, err := marshalList(ev.MatchedCPVCodes)
	if err != nil {
		return nil, err
	}
	combination := ev.CombinationType
	if combination == "" {
		combination = model.CombinationSolo
	}
	return []any{
		ev.TenderID, ev.OrganizationID, ev.LeadProfileID, ev.PartnerProfileID, string(combination),
		ev.AllMinimumRequirementsMet, met, missing,
		ev.SupportScore, ev.NegativeScore, ev.CPVScore, ev.SynergyBonus, ev.TotalScore,
		support, negative, cpv,
		ev.Explanation, ev.CriteriaFingerprint, evaluatedAt,
	}, nil
}

// scanEvaluation reads a row selected with evaluationColumns. evaluated_at is
// scanned into evaluatedAt for the caller to convert.
func scanEvaluation(row scannable, evaluatedAt any) (*model.Evaluation, error) {
	var ev model.Evaluation
	var combination string
	var met, missing, support, negative, cpv []byte
	err := row.Scan(
		&ev.TenderID, &ev.OrganizationID, &ev.LeadProfileID, &ev.PartnerProfileID, &combination,
		&ev.AllMinimumRequirementsMet, &met, &missing,
		&ev.SupportScore, &ev.NegativeScore, &ev.CPVScore, &ev.SynergyBonus, &ev.TotalScore,
		&support, &negative, &cpv,
		&ev.Explanation, &ev.CriteriaFingerprint, evaluatedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.CombinationType = model.CombinationType(combination)

	if ev.MetRequirements, err = unmarshalList[model.RequirementMatch](met); err != nil {
		return nil, eris.Wrap(err, "met_requirements")
	}
	if ev.MissingRequirements, err = unmarshalList[model.RequirementMatch](missing); err != nil {
		return nil, eris.Wrap(err, "missing_requirements")
	}
	if ev.MatchedSupportKeywords, err = unmarshalList[model.KeywordMatch](support); err != nil {
		return nil, eris.Wrap(err, "matched_support_keywords")
	}
	if ev.MatchedNegativeKeywords, err = unmarshalList[model.KeywordMatch](negative); err != nil {
		return nil, eris.Wrap(err, "matched_negative_keywords")
	}
	if ev.MatchedCPVCodes, err = unmarshalList[model.CPVMatch](cpv); err != nil {
		return nil, eris.Wrap(err, "matched_cpv_codes")
	}
	return &ev, nil
}
