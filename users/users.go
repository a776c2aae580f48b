package users

import (
	"slices"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// GroupType is a NotifiQ group name, carried in the access token's groups claim
type GroupType string

const (
	GroupITStaff   GroupType = "IT Staff"  // Can triage, assign and update tickets
	GroupCustomers GroupType = "Customers" // Can submit and follow their own tickets
)

type User struct {
	ID           string      `json:"id,omitempty"`           // Unique identifier for the user
	Username     string      `json:"username,omitempty"`     // Chosen at registration; seeded users have none
	Email        string      `json:"email,omitempty"`        // User's email address, also the login identifier
	PasswordHash string      `json:"-"`                      // Hashed version of the user's password - never serialize
	FirstName    string      `json:"first_name,omitempty"`   // First name of the user
	LastName     string      `json:"last_name,omitempty"`    // Last name of the user
	Groups       []GroupType `json:"groups,omitempty"`       // Group memberships
	IsSuperuser  bool        `json:"is_superuser,omitempty"` // Superuser flag
	Active       bool        `json:"active,omitempty"`       // Inactive users cannot obtain tokens
	DateJoined   time.Time   `json:"date_joined,omitempty"`  // Date and time when the user registered
	LastLogin    time.Time   `json:"last_login,omitempty"`   // Last time the user logged in
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's stored hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

func (u *User) HasGroup(group GroupType) bool {
	return slices.Contains(u.Groups, group)
}

// GroupNames returns the groups as plain strings for token claims
func (u *User) GroupNames() []string {
	names := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		names = append(names, string(g))
	}
	return names
}
