package domain

// IdentityClaims are the verified claims of a provider-issued identity token.
type IdentityClaims struct {
	ExternalID string
	Email      string
	Phone      string
	Name       string
	Picture    string
}

// ProviderAccount describes an account to create at the identity provider.
type ProviderAccount struct {
	ExternalID  string
	Email       string
	Password    string
	DisplayName string
	PhotoURL    string
}

// DevTokenRequest asks the local provider to sign a token, standing in for a
// client SDK completing phone or Google sign-in.
type DevTokenRequest struct {
	ExternalID string `json:"uid" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone_number" validate:"omitempty,e164"`
	Name       string `json:"name"`
	Picture    string `json:"picture" validate:"omitempty,url"`
}

// DevPasswordSignInRequest exchanges an email account's password for a token.
type DevPasswordSignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
