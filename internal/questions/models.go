package questions

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// PastQuestion is a catalog entry. Files are not stored; Format only records
// what was uploaded.
type PastQuestion struct {
	ID         string    `json:"id" bson:"_id,omitempty" yaml:"id"`
	CourseCode string    `json:"courseCode" bson:"courseCode" yaml:"courseCode"`
	Title      string    `json:"title" bson:"title" yaml:"title"`
	Year       int       `json:"year" bson:"year" yaml:"year"`
	Semester   string    `json:"semester" bson:"semester" yaml:"semester"`
	Level      string    `json:"level" bson:"level" yaml:"level"`
	Format     string    `json:"format" bson:"format" yaml:"format"`
	UploadedBy string    `json:"uploadedBy,omitempty" bson:"uploadedBy,omitempty" yaml:"uploadedBy"`
	Downloads  int       `json:"downloads" bson:"downloads" yaml:"downloads"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt" yaml:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt" yaml:"-"`
}

// Level tabs on the browse page.
const (
	TabAll   = "all"
	Tab100   = "100"
	Tab200   = "200"
	Tab300   = "300"
	TabUpper = "400+"
)

// Tabs lists the browse page tabs in display order.
var Tabs = []string{TabAll, Tab100, Tab200, Tab300, TabUpper}

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	Level      string `form:"level" json:"level,omitempty"`
	Year       string `form:"year" json:"year,omitempty"`
	Semester   string `form:"semester" json:"semester,omitempty"`
	CourseCode string `form:"courseCode" json:"courseCode,omitempty"`
	Search     string `form:"q" json:"q,omitempty"`
	Tab        string `form:"tab" json:"tab,omitempty"`
}

// Active reports whether any filter other than the tab is set.
func (f Filter) Active() bool {
	return f.Level != "" || f.Year != "" || f.Semester != "" || f.CourseCode != "" || f.Search != ""
}

// Match reports whether q passes every filter. Course code and search text
// are compared case-insensitively as substrings.
func (f Filter) Match(q *PastQuestion) bool {
	if f.Level != "" && q.Level != f.Level {
		return false
	}
	if f.Year != "" && strconv.Itoa(q.Year) != f.Year {
		return false
	}
	if f.Semester != "" && q.Semester != f.Semester {
		return false
	}
	if !inTab(f.Tab, q.Level) {
		return false
	}
	fold := cases.Fold()
	code := fold.String(q.CourseCode)
	if f.CourseCode != "" && !strings.Contains(code, fold.String(strings.TrimSpace(f.CourseCode))) {
		return false
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		s = fold.String(s)
		if !strings.Contains(fold.String(q.Title), s) && !strings.Contains(code, s) {
			return false
		}
	}
	return true
}

func inTab(tab, level string) bool {
	switch tab {
	case "", TabAll:
		return true
	case TabUpper:
		return level == "400L" || level == "500L"
	}
	return level == tab+"L"
}
