package auth

import "strings"

// Role decides which dashboard and navigation a user sees.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// ParseRole accepts "student" or "teacher" in any case.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleTeacher:
		return RoleTeacher, true
	}
	return "", false
}

// RoleFromMetadata reads the role a user chose at registration. The value is
// client supplied and not checked against any server-side roles table.
func RoleFromMetadata(md map[string]interface{}) Role {
	s, _ := md["role"].(string)
	if r, ok := ParseRole(s); ok {
		return r
	}
	return RoleStudent
}

func (r Role) DashboardPath() string { return "/" + string(r) + "/dashboard" }
func (r Role) LoginPath() string     { return "/" + string(r) + "/login" }
func (r Role) RegisterPath() string  { return "/" + string(r) + "/register" }

// Title is the capitalized role name used in page headings.
func (r Role) Title() string {
	if r == "" {
		return ""
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}
