package models

// Role distinguishes the two kinds of portal users.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid returns true when the role is supported.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// Profile is the user record linked one-to-one with a backend auth identity.
type Profile struct {
	ID      string  `db:"id" json:"id"`
	Role    Role    `db:"role" json:"role"`
	Name    string  `db:"name" json:"name"`
	RollNo  *string `db:"roll_no" json:"roll_no"`
	Class   *string `db:"class" json:"class"`
	Contact *string `db:"contact" json:"contact"`
}

// Display returns the value of an optional profile column for rendering.
func Display(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// StringPtr returns nil for empty input.
func StringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
