package models

import "time"

// Profile is a row of the "profiles" table keyed by auth user id.
type Profile struct {
	ID                string    `json:"id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	AvatarURL         string    `json:"avatar_url"`
	Role              string    `json:"role"`
	MatricNumber      string    `json:"matric_number"`
	Level             string    `json:"level"`
	StaffID           string    `json:"staff_id"`
	Department        string    `json:"department"`
	Qualification     string    `json:"qualification"`
	ApprovalStatus    string    `json:"approval_status"`
	IsAdmin           bool      `json:"is_admin"`
	EmailVerified     bool      `json:"email_verified"`
	ReceiptPath       string    `json:"receipt_path"`
	SMSParsingEnabled bool      `json:"sms_parsing_enabled"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
