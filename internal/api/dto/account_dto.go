package dto

// IndividualPayload carries private-seller form fields.
type IndividualPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	PhoneAlt  string `json:"phone_alt,omitempty"`
	Town      string `json:"town"`
	Province  string `json:"province"`
}

// OrganizationPayload carries dealership form fields.
type OrganizationPayload struct {
	Name          string `json:"name"`
	ContactFirst  string `json:"contact_first"`
	ContactLast   string `json:"contact_last"`
	StreetAddress string `json:"street_address"`
	StreetExtra   string `json:"street_extra,omitempty"`
	Town          string `json:"town"`
	Province      string `json:"province"`
	Phone         string `json:"phone"`
	PhoneAlt      string `json:"phone_alt,omitempty"`
}

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email        string               `json:"email"`
	Password     string               `json:"password"`
	SellerKind   string               `json:"seller_kind"`
	Individual   *IndividualPayload   `json:"individual,omitempty"`
	Organization *OrganizationPayload `json:"organization,omitempty"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EditProfileRequest patches the credential and profile; empty email or
// password means unchanged.
type EditProfileRequest struct {
	Email        string               `json:"email,omitempty"`
	Password     string               `json:"password,omitempty"`
	SellerKind   string               `json:"seller_kind"`
	Individual   *IndividualPayload   `json:"individual,omitempty"`
	Organization *OrganizationPayload `json:"organization,omitempty"`
}

// ForgotPasswordRequest starts the reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes the reset flow; email and token travel in
// the link's query string.
type ResetPasswordRequest struct {
	Password string `json:"password"`
}
