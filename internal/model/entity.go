package model

import "time"

// Entity is the owner-attested ground truth for one audited business.
// It is mutated only through explicit owner action (entity import/delete)
// and is a read-only input to every audit operation.
type Entity struct {
	ID        string            `json:"id" yaml:"id"`
	TenantID  string            `json:"tenant_id" yaml:"-"`
	Name      string            `json:"name" yaml:"name"`
	Address   string            `json:"address" yaml:"address"`
	Phone     string            `json:"phone" yaml:"phone"`
	Website   string            `json:"website" yaml:"website"`
	Hours     map[string]string `json:"hours,omitempty" yaml:"hours,omitempty"`
	Amenities []string          `json:"amenities,omitempty" yaml:"amenities,omitempty"`
	CreatedAt time.Time         `json:"created_at" yaml:"-"`
	UpdatedAt time.Time         `json:"updated_at" yaml:"-"`
}
