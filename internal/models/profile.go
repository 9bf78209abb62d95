package models

// SizeClass is the requester company size bucket.
type SizeClass string

const (
	SizeMicro  SizeClass = "micro"
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
)

// RequesterProfile is the company looking for partners. In the platform this
// is the PMI (the foreign SME) profile.
type RequesterProfile struct {
	ID                 string    `json:"id,omitempty" yaml:"id,omitempty"`
	CompanyName        string    `json:"companyName,omitempty" yaml:"company_name,omitempty"`
	Sector             string    `json:"sector" yaml:"sector"`
	TargetMarkets      []string  `json:"targetMarkets" yaml:"target_markets"`
	BusinessNeeds      []string  `json:"businessNeeds" yaml:"business_needs"`
	SizeClass          SizeClass `json:"sizeClass" yaml:"size_class"`
	CapacityDescriptor string    `json:"capacityDescriptor,omitempty" yaml:"capacity_descriptor,omitempty"`
	ObjectivesText     string    `json:"objectivesText,omitempty" yaml:"objectives_text,omitempty"`
}

// CandidateProfile is a local partner evaluated against a requester.
type CandidateProfile struct {
	ID               string   `json:"id" yaml:"id"`
	DisplayName      string   `json:"displayName" yaml:"display_name"`
	Country          string   `json:"country" yaml:"country"`
	City             string   `json:"city,omitempty" yaml:"city,omitempty"`
	PartnerType      string   `json:"partnerType" yaml:"partner_type"`
	ExpertiseSectors []string `json:"expertiseSectors" yaml:"expertise_sectors"`
	ServicesOffered  []string `json:"servicesOffered" yaml:"services_offered"`
	DescriptionText  string   `json:"descriptionText,omitempty" yaml:"description_text,omitempty"`
}
