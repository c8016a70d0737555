package model

// CombinationType identifies the kind of scoring unit an evaluation belongs to.
type CombinationType string

const (
	// CombinationSolo scores a single profile on its own.
	CombinationSolo CombinationType = "solo"
	// CombinationLeadPartner scores the own profile leading with a partner.
	CombinationLeadPartner CombinationType = "lead_partner"
	// CombinationPartnerLed scores a partner leading with the own profile.
	CombinationPartnerLed CombinationType = "partner_led"
)

// Valid reports whether t is a known combination type.
func (t CombinationType) Valid() bool {
	switch t {
	case CombinationSolo, CombinationLeadPartner, CombinationPartnerLed:
		return true
	}
	return false
}

// Combination is a named scoring unit. Only Solo combinations are scored by
// the engine; the pair variants exist so persisted rows and the synergy bonus
// have a place to grow into.
type Combination struct {
	Type             CombinationType `json:"type"`
	LeadProfileID    string          `json:"lead_profile_id"`
	PartnerProfileID string          `json:"partner_profile_id,omitempty"`
}

// Solo returns a single-profile combination.
func Solo(profileID string) Combination {
	return Combination{Type: CombinationSolo, LeadProfileID: profileID}
}

// LeadPartner returns a combination led by lead with partner attached.
func LeadPartner(lead, partner string) Combination {
	return Combination{Type: CombinationLeadPartner, LeadProfileID: lead, PartnerProfileID: partner}
}

// PartnerLed returns a combination where the partner leads.
func PartnerLed(lead, partner string) Combination {
	return Combination{Type: CombinationPartnerLed, LeadProfileID: lead, PartnerProfileID: partner}
}

// IsSolo reports whether c scores a single profile.
func (c Combination) IsSolo() bool {
	return c.Type == CombinationSolo
}
