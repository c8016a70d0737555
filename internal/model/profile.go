package model

// MinimumRequirement is a gate keyword. At least one of a profile's minimum
// requirements must match for a tender to qualify; it carries no points.
type MinimumRequirement struct {
	Keyword string `json:"keyword" yaml:"keyword"`
}

// WeightedKeyword is a support or negative keyword. Support weights are
// positive (1-3 by convention). Negative weights are stored as penalties and
// are negative by convention; the engine adds them as stored.
type WeightedKeyword struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	Weight  int    `json:"weight" yaml:"weight"`
}

// CPVCode is a CPV prefix with a weight. A tender matches when any of its CPV
// codes starts with Code.
type CPVCode struct {
	Code   string `json:"code" yaml:"code"`
	Weight int    `json:"weight" yaml:"weight"`
}

// Profile is a scoring target for an organization: the organization's own
// company or a partner, each with its own criteria.
type Profile struct {
	ID                  string               `json:"id" yaml:"id"`
	OrganizationID      string               `json:"organization_id" yaml:"organization_id"`
	Name                string               `json:"name,omitempty" yaml:"name"`
	IsOwnProfile        bool                 `json:"is_own_profile" yaml:"is_own_profile"`
	MinimumRequirements []MinimumRequirement `json:"minimum_requirements" yaml:"minimum_requirements"`
	SupportKeywords     []WeightedKeyword    `json:"support_keywords" yaml:"support_keywords"`
	NegativeKeywords    []WeightedKeyword    `json:"negative_keywords" yaml:"negative_keywords"`
	CPVCodes            []CPVCode            `json:"cpv_codes" yaml:"cpv_codes"`
}

// OwnProfile returns the profile flagged as the organization's own, or nil.
func OwnProfile(profiles []Profile) *Profile {
	for i := range profiles {
		if profiles[i].IsOwnProfile {
			return &profiles[i]
		}
	}
	return nil
}
