package model

import "time"

// MatchLocation records where a keyword was found in a tender.
type MatchLocation string

const (
	FoundInTitle       MatchLocation = "title"
	FoundInDescription MatchLocation = "description"
	FoundInCPV         MatchLocation = "cpv"
)

// RequirementMatch is a minimum requirement and where it matched. FoundIn is
// empty for missing requirements.
type RequirementMatch struct {
	Keyword string        `json:"keyword"`
	FoundIn MatchLocation `json:"found_in,omitempty"`
}

// KeywordMatch is a matched support or negative keyword.
type KeywordMatch struct {
	Keyword string        `json:"keyword"`
	Weight  int           `json:"weight"`
	FoundIn MatchLocation `json:"found_in"`
}

// CPVMatch is a matched profile CPV prefix.
type CPVMatch struct {
	Code    string        `json:"code"`
	Weight  int           `json:"weight"`
	FoundIn MatchLocation `json:"found_in"`
}

// Evaluation is the scored result of one (tender, profile) pair. Rows are
// unique per (TenderID, OrganizationID, LeadProfileID) and can always be
// rebuilt from profile and tender data.
type Evaluation struct {
	TenderID         string          `json:"tender_id"`
	OrganizationID   string          `json:"organization_id"`
	LeadProfileID    string          `json:"lead_profile_id"`
	PartnerProfileID string          `json:"partner_profile_id,omitempty"`
	CombinationType  CombinationType `json:"combination_type"`

	// AllMinimumRequirementsMet is true when the tender passed the gate,
	// i.e. at least one minimum requirement matched.
	AllMinimumRequirementsMet bool               `json:"all_minimum_requirements_met"`
	MetRequirements           []RequirementMatch `json:"met_requirements"`
	MissingRequirements       []RequirementMatch `json:"missing_requirements"`

	SupportScore  int `json:"support_score"`
	NegativeScore int `json:"negative_score"`
	CPVScore      int `json:"cpv_score"`
	SynergyBonus  int `json:"synergy_bonus"`
	TotalScore    int `json:"total_score"`

	MatchedSupportKeywords  []KeywordMatch `json:"matched_support_keywords"`
	MatchedNegativeKeywords []KeywordMatch `json:"matched_negative_keywords"`
	MatchedCPVCodes         []CPVMatch     `json:"matched_cpv_codes"`

	Explanation         string    `json:"explanation"`
	CriteriaFingerprint string    `json:"criteria_fingerprint"`
	EvaluatedAt         time.Time `json:"evaluated_at"`
}

// Qualifies reports whether the evaluation passed the minimum requirement gate.
func (e *Evaluation) Qualifies() bool {
	return e.AllMinimumRequirementsMet
}

// Key returns the uniqueness key of the evaluation row.
func (e *Evaluation) Key() EvaluationKey {
	return EvaluationKey{TenderID: e.TenderID, OrganizationID: e.OrganizationID, LeadProfileID: e.LeadProfileID}
}

// EvaluationKey identifies a single evaluation row.
type EvaluationKey struct {
	TenderID       string
	OrganizationID string
	LeadProfileID  string
}
