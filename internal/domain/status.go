package domain

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)
