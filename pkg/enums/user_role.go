package enums

// UserRole is the coarse permission level stamped into access tokens.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	return member(r, []UserRole{UserRoleCustomer, UserRoleAdmin})
}

func ParseUserRole(value string) (UserRole, error) {
	return parseMember("user role", value, []UserRole{UserRoleCustomer, UserRoleAdmin})
}
