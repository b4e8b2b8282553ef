// internal/workers/entries/submit-entry/models.go
package submitentry

import "kurio/internal/entries"

type Input struct {
	JobTitle   string `json:"jobTitle"`
	TypicalDay string `json:"typicalDay"`
	Category   string `json:"category"`
	ImageURL   string `json:"imageUrl"`
	Source     string `json:"source"`
}

func (in Input) submission() entries.Submission {
	source := in.Source
	if source == "" {
		source = "workflow"
	}
	return entries.Submission{
		JobTitle:   in.JobTitle,
		TypicalDay: in.TypicalDay,
		Category:   in.Category,
		ImageURL:   in.ImageURL,
		Source:     source,
	}
}

type Output struct {
	EntryID   string `json:"entryId"`
	Category  string `json:"category"`
	CreatedAt string `json:"createdAt"` // RFC 3339
}
