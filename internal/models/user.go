package models

import "time"

// Identity links a user to a sign-in provider (email, oauth...).
type Identity struct {
	ID       string `json:"id" bson:"id"`
	Provider string `json:"provider" bson:"provider"`
}

// User is an account as returned by the hosted auth service.
// Identities is nil when the service omitted the field and an empty, non-nil
// slice when it explicitly returned none.
type User struct {
	ID               string                 `json:"id" bson:"id"`
	Email            string                 `json:"email" bson:"email"`
	Role             string                 `json:"role,omitempty" bson:"role,omitempty"`
	UserMetadata     map[string]interface{} `json:"user_metadata,omitempty" bson:"user_metadata,omitempty"`
	Identities       []Identity             `json:"identities,omitempty" bson:"identities,omitempty"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at,omitempty" bson:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at" bson:"created_at"`
}

// MetadataString returns a string value from user metadata, or "" when the
// key is missing or not a string.
func (u *User) MetadataString(key string) string {
	if u == nil || u.UserMetadata == nil {
		return ""
	}
	s, _ := u.UserMetadata[key].(string)
	return s
}
