package adminui

import "Newsletterwebserver/internal/domain"

// userType labels an account for the users table. Allow-listed emails count
// as admins whatever their stored role.
func userType(u domain.User, isAdmin func(domain.User) bool) string {
	if u.Role == domain.UserRoleAdmin {
		return "Administrateur"
	}
	if isAdmin != nil && isAdmin(u) {
		return "Administrateur (liste)"
	}
	return "Commerçant"
}
