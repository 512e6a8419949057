package models

// User is an account row. PasswordHash never leaves the server; API
// responses use the trimmed representation built by the handlers.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	IsActive     bool   `json:"is_active"`
	IsStaff      bool   `json:"is_staff"`
	IsSuperuser  bool   `json:"is_superuser"`
}

// Elevated reports whether the user may act on accounts other than
// their own.
func (u *User) Elevated() bool {
	return u.IsStaff || u.IsSuperuser
}
