// Package entries stores, lists, searches and streams "day in the life" job entries.
package entries

import (
	"strings"
	"time"

	apperrors "kurio/internal/common/errors"
	"kurio/internal/common/validation"
)

const DefaultCategory = "General"

// Categories is the fixed set of browsing categories.
var Categories = []string{
	"General",
	"Tech",
	"Health",
	"Transport",
	"Food and Beverages",
	"Education",
	"Legal",
	"Finance",
	"Marketing",
	"Sales",
	"Customer Service",
	"HR",
}

// Entry is a job description, either a raw submission or a curated entry.
type Entry struct {
	ID         string    `json:"id"`
	JobTitle   string    `json:"job_title"`
	TypicalDay string    `json:"typical_day"`
	Category   string    `json:"category"`
	ImageURL   string    `json:"image_url,omitempty"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Submission is a user-provided entry awaiting moderation.
type Submission struct {
	JobTitle   string `json:"job_title"`
	TypicalDay string `json:"typical_day"`
	Category   string `json:"category,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	Source     string `json:"source,omitempty"`
}

var submissionSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["job_title", "typical_day"],
	"additionalProperties": false,
	"properties": {
		"job_title":   {"type": "string", "minLength": 1, "maxLength": 200},
		"typical_day": {"type": "string", "minLength": 1, "maxLength": 20000},
		"category":    {"enum": ["General", "Tech", "Health", "Transport", "Food and Beverages", "Education", "Legal", "Finance", "Marketing", "Sales", "Customer Service", "HR"]},
		"image_url":   {"type": "string", "maxLength": 2048},
		"source":      {"type": "string", "maxLength": 2048}
	}
}`)

// Normalize trims every field and fills in the default category.
func (s Submission) Normalize() Submission {
	s.JobTitle = strings.TrimSpace(s.JobTitle)
	s.TypicalDay = strings.TrimSpace(s.TypicalDay)
	s.Category = strings.TrimSpace(s.Category)
	s.ImageURL = strings.TrimSpace(s.ImageURL)
	s.Source = strings.TrimSpace(s.Source)
	if s.Category == "" {
		s.Category = DefaultCategory
	}
	return s
}

// Validate checks a normalized submission.
func (s Submission) Validate() error {
	result, err := submissionSchema.Validate(s)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !result.Valid {
		return apperrors.NewEntryValidationFailedError(result.Error())
	}
	return nil
}

// IsCategory reports whether name is one of Categories.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}
