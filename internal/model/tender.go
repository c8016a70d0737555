package model

import "time"

// Tender is a normalized public tender notice. Tenders are delivered by the
// upstream feed and never modified here.
type Tender struct {
	ID             string     `json:"id" yaml:"id"`
	OrganizationID string     `json:"organization_id" yaml:"organization_id"`
	Title          string     `json:"title" yaml:"title"`
	Body           string     `json:"body" yaml:"body"`
	CPVCodes       []string   `json:"cpv_codes" yaml:"cpv_codes"`
	Deadline       *time.Time `json:"deadline,omitempty" yaml:"deadline"`
	PublishedDate  *time.Time `json:"published_date,omitempty" yaml:"published_date"`
	URL            string     `json:"url,omitempty" yaml:"url"`
}
