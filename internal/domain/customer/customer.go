package customer

import (
	"errors"
	"strings"
	"time"
)

var ErrCustomerNotFound = errors.New("customer not found")

// Customer is keyed by phone. Names follow the latest order (last writer wins).
type Customer struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizePhone strips surrounding whitespace and inner spaces so that
// "012 345 678" and "012345678" resolve to the same customer.
func NormalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

// Rename applies the supplied name and reports whether anything changed.
func (c *Customer) Rename(fullName string, now time.Time) bool {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" || fullName == c.FullName {
		return false
	}
	c.FullName = fullName
	c.UpdatedAt = now
	return true
}
