package domain

import (
	"strings"
	"time"
)

// Role names a permission tier.
type Role string

const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleStaff      Role = "staff"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePharmacist, RoleStaff:
		return true
	}
	return false
}

type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Password  string    `json:"-" db:"password"`
	Name      string    `json:"name" db:"name"`
	Role      Role      `json:"role" db:"role"`
	Initials  string    `json:"initials" db:"initials"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// InitialsFor derives upper-case initials from a display name, e.g. "Sarah PharmD" -> "SP".
// At most three letters are kept.
func InitialsFor(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		r := []rune(part)
		if len(r) == 0 {
			continue
		}
		b.WriteString(strings.ToUpper(string(r[0])))
		if b.Len() >= 3 {
			break
		}
	}
	return b.String()
}
