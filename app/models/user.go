package models

// Validate checks the username format and that a password hash is set.
func (u *User) Validate() error {
	return validate.Struct(u)
}

// Clone returns a copy of the user.
func (u *User) Clone() *User {
	cp := *u
	return &cp
}
