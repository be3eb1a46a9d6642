package questions

import (
	_ "embed"
	"fmt"

	"github.com/goccy/go-yaml"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Questions []*PastQuestion `yaml:"questions"`
}

// Seed returns the built-in catalog.
func Seed() ([]*PastQuestion, error) {
	return ParseSeed(seedYAML)
}

// ParseSeed decodes a YAML catalog of the form {questions: [...]}.
func ParseSeed(data []byte) ([]*PastQuestion, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse question catalog: %w", err)
	}
	for i, q := range f.Questions {
		if q.CourseCode == "" || q.Title == "" {
			return nil, fmt.Errorf("parse question catalog: entry %d lacks course code or title", i)
		}
		if q.UpdatedAt.IsZero() {
			q.UpdatedAt = q.CreatedAt
		}
	}
	return f.Questions, nil
}
