// Package forms validates the portal's HTML forms before anything reaches the
// backend. Each form reports only its first failing field, in the order the
// fields appear on the page.
package forms

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/auth"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	MinPasswordLength = 6
	DefaultLevel      = "100L"
	uploadYears       = 5
)

// Levels are the study levels offered on registration and upload forms.
var Levels = []string{"100L", "200L", "300L", "400L", "500L"}

// Semesters are the accepted semester values.
var Semesters = []string{"First", "Second"}

// FieldError names the field that failed and the message shown next to it.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

type check struct {
	field string
	value interface{}
	rules []validation.Rule
}

// first runs checks in order and stops at the first failure.
func first(checks ...check) error {
	for _, c := range checks {
		if err := validation.Validate(c.value, c.rules...); err != nil {
			return &FieldError{Field: c.field, Message: err.Error()}
		}
	}
	return nil
}

func passwordRules() []validation.Rule {
	const msg = "Password must be at least 6 characters"
	return []validation.Rule{
		validation.Required.Error(msg),
		validation.Length(MinPasswordLength, 0).Error(msg),
	}
}

func emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("Email is required"),
		is.Email.Error("Please enter a valid email"),
	}
}

func matches(other, message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		if s, _ := value.(string); s != other {
			return errors.New(message)
		}
		return nil
	})
}

func oneOf(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Login is the shared student/teacher login form.
type Login struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

func (f *Login) Normalize() { f.Email = strings.TrimSpace(f.Email) }

func (f Login) Validate() error {
	return first(
		check{"email", f.Email, emailRules()},
		check{"password", f.Password, []validation.Rule{validation.Required.Error("Password is required")}},
	)
}

// StudentRegistration is the student sign-up form.
type StudentRegistration struct {
	Name            string `form:"name"`
	MatricNumber    string `form:"matricNumber"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirmPassword"`
	Level           string `form:"level"`
}

func (f *StudentRegistration) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.MatricNumber = strings.TrimSpace(f.MatricNumber)
	f.Email = strings.TrimSpace(f.Email)
	if f.Level == "" {
		f.Level = DefaultLevel
	}
}

func (f StudentRegistration) Validate() error {
	return first(
		check{"name", f.Name, []validation.Rule{validation.Required.Error("Full name is required")}},
		check{"matricNumber", f.MatricNumber, []validation.Rule{validation.Required.Error("Matric number is required")}},
		check{"email", f.Email, emailRules()},
		check{"password", f.Password, passwordRules()},
		check{"confirmPassword", f.ConfirmPassword, []validation.Rule{matches(f.Password, "Passwords do not match")}},
		check{"level", f.Level, []validation.Rule{
			validation.Required.Error("Please select your level"),
			validation.In(oneOf(Levels)...).Error("Please select your level"),
		}},
	)
}

func (f StudentRegistration) Registration() auth.Registration {
	return auth.Registration{
		Name:         f.Name,
		Email:        f.Email,
		Password:     f.Password,
		Role:         auth.RoleStudent,
		MatricNumber: f.MatricNumber,
		Level:        f.Level,
	}
}

// TeacherRegistration is the teacher sign-up form.
type TeacherRegistration struct {
	Name            string `form:"name"`
	StaffID         string `form:"staffId"`
	Email           string `form:"email"`
	Department      string `form:"department"`
	Qualification   string `form:"qualification"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirmPassword"`
}

func (f *TeacherRegistration) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.StaffID = strings.TrimSpace(f.StaffID)
	f.Email = strings.TrimSpace(f.Email)
	f.Department = strings.TrimSpace(f.Department)
	f.Qualification = strings.TrimSpace(f.Qualification)
}

func (f TeacherRegistration) Validate() error {
	return first(
		check{"name", f.Name, []validation.Rule{validation.Required.Error("Full name is required")}},
		check{"staffId", f.StaffID, []validation.Rule{validation.Required.Error("Staff ID is required")}},
		check{"email", f.Email, emailRules()},
		check{"department", f.Department, []validation.Rule{validation.Required.Error("Department is required")}},
		check{"qualification", f.Qualification, []validation.Rule{validation.Required.Error("Qualification is required")}},
		check{"password", f.Password, passwordRules()},
		check{"confirmPassword", f.ConfirmPassword, []validation.Rule{matches(f.Password, "Passwords do not match")}},
	)
}

func (f TeacherRegistration) Registration() auth.Registration {
	return auth.Registration{
		Name:          f.Name,
		Email:         f.Email,
		Password:      f.Password,
		Role:          auth.RoleTeacher,
		StaffID:       f.StaffID,
		Department:    f.Department,
		Qualification: f.Qualification,
	}
}

// Upload is the teacher's past question upload form. The file itself is not
// stored; its extension decides the format.
type Upload struct {
	CourseCode  string `form:"courseCode"`
	CourseTitle string `form:"courseTitle"`
	Year        string `form:"year"`
	Semester    string `form:"semester"`
	Level       string `form:"level"`
	FileName    string `form:"-"`
}

// NewUpload returns the form with the page's defaults.
func NewUpload(now time.Time) Upload {
	return Upload{Year: strconv.Itoa(now.Year()), Semester: "First", Level: "300L"}
}

// UploadYears lists the selectable years, newest first.
func UploadYears(now time.Time) []string {
	out := make([]string, uploadYears)
	for i := range out {
		out[i] = strconv.Itoa(now.Year() - i)
	}
	return out
}

func (f *Upload) Normalize() {
	f.CourseCode = strings.ToUpper(strings.Join(strings.Fields(f.CourseCode), " "))
	f.CourseTitle = strings.TrimSpace(f.CourseTitle)
	f.Year = strings.TrimSpace(f.Year)
}

func (f Upload) Validate() error { return f.ValidateAt(time.Now()) }

func (f Upload) ValidateAt(now time.Time) error {
	return first(
		check{"courseCode", f.CourseCode, []validation.Rule{validation.Required.Error("Course code is required")}},
		check{"courseTitle", f.CourseTitle, []validation.Rule{validation.Required.Error("Course title is required")}},
		check{"year", f.Year, []validation.Rule{
			validation.Required.Error("Please select a year"),
			validation.In(oneOf(UploadYears(now))...).Error("Please select a year"),
		}},
		check{"semester", f.Semester, []validation.Rule{
			validation.Required.Error("Please select a semester"),
			validation.In(oneOf(Semesters)...).Error("Please select a semester"),
		}},
		check{"level", f.Level, []validation.Rule{
			validation.Required.Error("Please select a level"),
			validation.In(oneOf(Levels)...).Error("Please select a level"),
		}},
		check{"file", f.FileName, []validation.Rule{
			validation.Required.Error("Please choose a file to upload"),
			validation.By(func(interface{}) error {
				if f.Format() == "" {
					return errors.New("Only PDF and DOCX files are accepted")
				}
				return nil
			}),
		}},
	)
}

// Format maps the uploaded file's extension to PDF or DOCX.
func (f Upload) Format() string {
	switch strings.ToLower(filepath.Ext(f.FileName)) {
	case ".pdf":
		return "PDF"
	case ".doc", ".docx":
		return "DOCX"
	}
	return ""
}

// YearInt returns the validated year.
func (f Upload) YearInt() int {
	y, _ := strconv.Atoi(f.Year)
	return y
}
