package auth

import (
	"strings"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/models"
)

// UserProfile is the signed-in user as the portal sees it: identity and
// registration metadata from the session joined with the profiles row.
type UserProfile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	MatricNumber  string `json:"matricNumber,omitempty"`
	Level         string `json:"level,omitempty"`
	StaffID       string `json:"staffId,omitempty"`
	Department    string `json:"department,omitempty"`
	Qualification string `json:"qualification,omitempty"`
}

// DeriveProfile joins a session user with its profiles row. It returns nil
// when either is missing.
func DeriveProfile(u *models.User, row *models.Profile) *UserProfile {
	if u == nil || row == nil {
		return nil
	}
	return &UserProfile{
		ID:            u.ID,
		Name:          displayName(row.FirstName, row.LastName, u.Email),
		Email:         u.Email,
		Role:          RoleFromMetadata(u.UserMetadata),
		MatricNumber:  u.MetadataString("matricNumber"),
		Level:         u.MetadataString("level"),
		StaffID:       u.MetadataString("staffId"),
		Department:    u.MetadataString("department"),
		Qualification: u.MetadataString("qualification"),
	}
}

// displayName is "first last", else the local part of the email, else "User".
func displayName(first, last, email string) string {
	if name := strings.TrimSpace(first + " " + last); name != "" {
		return name
	}
	if local, _, _ := strings.Cut(email, "@"); strings.TrimSpace(local) != "" {
		return local
	}
	return "User"
}

// Registration is what a registration form submits.
type Registration struct {
	Name          string
	Email         string
	Password      string
	Role          Role
	MatricNumber  string
	Level         string
	StaffID       string
	Department    string
	Qualification string
}

// Metadata packs the registration fields into user metadata. Empty optional
// fields are left out.
func (r Registration) Metadata() map[string]interface{} {
	role := r.Role
	if role == "" {
		role = RoleStudent
	}
	md := map[string]interface{}{"name": r.Name, "role": string(role)}
	for k, v := range map[string]string{
		"matricNumber":  r.MatricNumber,
		"level":         r.Level,
		"staffId":       r.StaffID,
		"department":    r.Department,
		"qualification": r.Qualification,
	} {
		if v != "" {
			md[k] = v
		}
	}
	return md
}
