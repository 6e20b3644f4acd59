package domain

import "time"

// ProfileKind tags the two mutually-exclusive seller kinds.
type ProfileKind string

const (
	ProfileKindIndividual   ProfileKind = "INDIVIDUAL"
	ProfileKindOrganization ProfileKind = "ORGANIZATION"
)

// IndividualProfile is the private-seller variant.
type IndividualProfile struct {
	ID           string
	CredentialID string
	FirstName    string
	LastName     string
	Phone        string
	PhoneAlt     string
	Town         string
	Province     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrganizationProfile is the dealership variant.
type OrganizationProfile struct {
	ID            string
	CredentialID  string
	Name          string
	ContactFirst  string
	ContactLast   string
	StreetAddress string
	StreetExtra   string
	Town          string
	Province      string
	Phone         string
	PhoneAlt      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Profile is the tagged union over the two seller kinds. Exactly one of the
// variant pointers is non-nil, matching Kind.
type Profile struct {
	Kind         ProfileKind
	Individual   *IndividualProfile
	Organization *OrganizationProfile
}

// NewIndividual wraps an individual record as a tagged Profile.
func NewIndividual(p *IndividualProfile) Profile {
	return Profile{Kind: ProfileKindIndividual, Individual: p}
}

// NewOrganization wraps an organization record as a tagged Profile.
func NewOrganization(p *OrganizationProfile) Profile {
	return Profile{Kind: ProfileKindOrganization, Organization: p}
}

// CredentialID returns the owning credential id regardless of variant.
func (p Profile) CredentialID() string {
	switch p.Kind {
	case ProfileKindIndividual:
		if p.Individual != nil {
			return p.Individual.CredentialID
		}
	case ProfileKindOrganization:
		if p.Organization != nil {
			return p.Organization.CredentialID
		}
	}
	return ""
}

// DisplayName returns the name shown in page headers for either variant.
func (p Profile) DisplayName() string {
	switch p.Kind {
	case ProfileKindIndividual:
		if p.Individual != nil {
			return p.Individual.FirstName + " " + p.Individual.LastName
		}
	case ProfileKindOrganization:
		if p.Organization != nil {
			return p.Organization.Name
		}
	}
	return ""
}
