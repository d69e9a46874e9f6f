package constants

const (
	RoleFarmer  = "farmer"  // sellers: create offers, submit commitments
	RoleCompany = "company" // buyers: create requests, accept offers/commitments
)

// ValidRoles is the set of allowed DB enum values for user role.
var ValidRoles = []string{RoleFarmer, RoleCompany}

// IsValidRole returns true if role is one of the allowed enum values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
