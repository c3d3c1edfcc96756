package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is the delivery destination captured at checkout. It is stored
// as a JSONB column on orders; the shape is validated before persistence.
type Address struct {
	Street  string  `json:"street" validate:"required"`
	City    string  `json:"city" validate:"required"`
	State   string  `json:"state" validate:"required"`
	ZipCode string  `json:"zip_code" validate:"required"`
	Country string  `json:"country" validate:"required"`
	Phone   *string `json:"phone,omitempty"`
}

// Validate checks the required fields without touching the validator
// registry, for callers outside the HTTP boundary.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Street) == "" {
		return fmt.Errorf("address: missing street")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.State) == "" {
		return fmt.Errorf("address: missing state")
	}
	if strings.TrimSpace(a.ZipCode) == "" {
		return fmt.Errorf("address: missing zip_code")
	}
	if strings.TrimSpace(a.Country) == "" {
		return fmt.Errorf("address: missing country")
	}
	return nil
}

// Value marshals Address into its JSONB representation.
func (a Address) Value() (driver.Value, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("address: marshal %w", err)
	}
	return string(raw), nil
}

// Scan decodes the JSONB column back into the struct.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("address: unsupported scan type %T", value)
	}

	return json.Unmarshal(raw, a)
}
