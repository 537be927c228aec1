package domain

// Marketplace roles.
const (
	RoleAdmin  = "admin"
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// Registration methods. The stored method decides which sign-in path a user may take.
const (
	MethodEmail  = "email"
	MethodPhone  = "phone"
	MethodGoogle = "google"
)
