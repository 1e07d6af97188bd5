package tenant

import "errors"

var (
	// ErrUnknownTenant means no tenant owns the routing key. The provider
	// can deliver events for numbers that are not provisioned yet, so the
	// caller drops the unit instead of failing the request.
	ErrUnknownTenant = errors.New("unknown tenant")

	// ErrRoutingKeyTaken means another tenant already claims the phone
	// number id.
	ErrRoutingKeyTaken = errors.New("phone number id already assigned")
)

// Tenant is one customer account: a WhatsApp business number, its outbound
// credential, and the persona used to seed empty conversations.
type Tenant struct {
	ID            string `json:"id"`
	PhoneNumberID string `json:"phone_number_id"`
	Token         string `json:"-"`
	Persona       string `json:"persona"`
}

// CreateInput is the provisioning input for a new tenant.
type CreateInput struct {
	ID            string `json:"id" validate:"required"`
	PhoneNumberID string `json:"phone_number_id" validate:"required"`
	Token         string `json:"token" validate:"required"`
	Persona       string `json:"persona"`
}
