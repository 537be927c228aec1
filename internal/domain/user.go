package domain

import "time"

// User is the durable identity record. ExternalID is shared with the identity
// provider's account id; the two systems are joined on it.
type User struct {
	ExternalID         string     `json:"id" dynamodbav:"external_id"`
	Name               string     `json:"name" dynamodbav:"name"`
	Email              string     `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Phone              string     `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	PasswordHash       string     `json:"-" dynamodbav:"password_hash,omitempty"`
	Bio                string     `json:"bio,omitempty" dynamodbav:"bio,omitempty"`
	Role               string     `json:"role" dynamodbav:"role"`
	RegistrationMethod string     `json:"register_method" dynamodbav:"register_method"`
	Status             string     `json:"status" dynamodbav:"status"`
	ProfilePicture     string     `json:"profile_pic,omitempty" dynamodbav:"profile_pic,omitempty"`
	PaymentMethod      string     `json:"payment_method,omitempty" dynamodbav:"payment_method,omitempty"`
	PaymentAccount     string     `json:"payment_acc,omitempty" dynamodbav:"payment_acc,omitempty"`
	DateOfBirth        *time.Time `json:"date_of_birth,omitempty" dynamodbav:"date_of_birth,omitempty"`
	Country            string     `json:"country,omitempty" dynamodbav:"country,omitempty"`
	Gender             string     `json:"gender,omitempty" dynamodbav:"gender,omitempty"`
	Points             int        `json:"points" dynamodbav:"points"`
	Rating             float64    `json:"rating" dynamodbav:"rating"`
	JoinedAt           time.Time  `json:"date_joined" dynamodbav:"joined_at"`
	CreatedAt          time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt          time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// NewUser returns a record with the defaults every registration path shares:
// buyer role, active status, zero points and rating.
func NewUser(externalID, name, method string, now time.Time) *User {
	return &User{
		ExternalID:         externalID,
		Name:               name,
		Role:               RoleBuyer,
		RegistrationMethod: method,
		Status:             StatusActive,
		JoinedAt:           now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

type EmailSignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,numeric,len=6"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

type PhoneSignUpRequest struct {
	Token    string `json:"token" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type EmailSignInRequest struct {
	Email string `json:"email" validate:"required,email"`
}
