// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

// User is the identity record returned by the backend for the signed-in
// partner. It is a cache of backend truth, never authoritative: the session
// controller re-derives it rather than assuming it stays valid.
type User struct {
	ID       string  `json:"id"`        // Backend identifier for the account.
	Name     string  `json:"name"`      // Display name.
	Email    string  `json:"email"`     // Primary contact email, used as the login identifier.
	PhoneNo  *string `json:"phoneNo"`   // Nil is a valid state: it triggers the profile-completion prompt.
	Role     string  `json:"role"`      // Role within the partner organisation.
	IsActive bool    `json:"is_active"` // Whether the backend considers the account active.
	UserType string  `json:"user_type"` // Account category, e.g. "partner".
}

// NeedsProfile reports whether the account is missing data the portal
// prompts for after sign-in. A nil phone number is meaningful, not an error.
func (u *User) NeedsProfile() bool {
	return u != nil && u.PhoneNo == nil
}
