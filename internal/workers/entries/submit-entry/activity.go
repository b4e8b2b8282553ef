// internal/workers/entries/submit-entry/activity.go
package submitentry

import (
	apperrors "kurio/internal/common/errors"
	"kurio/internal/entries"
	"kurio/pkg/registry"
)

var Activity = registry.Activity{
	ID:          TaskType,
	DisplayName: "Submit Job Entry",
	Description: "Stores a job entry for moderation, then indexes it and notifies moderators",
	Category:    "entries",
	TaskType:    TaskType,
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"jobTitle", "typicalDay"},
		"properties": map[string]interface{}{
			"jobTitle":   map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 200},
			"typicalDay": map[string]interface{}{"type": "string", "minLength": 1},
			"category":   map[string]interface{}{"type": "string", "enum": entries.Categories},
			"imageUrl":   map[string]interface{}{"type": "string"},
			"source":     map[string]interface{}{"type": "string"},
		},
	},
	OutputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"entryId":   map[string]interface{}{"type": "string"},
			"category":  map[string]interface{}{"type": "string"},
			"createdAt": map[string]interface{}{"type": "string", "format": "date-time"},
		},
	},
	ErrorCodes: []string{
		string(apperrors.ErrCodeEntryValidationFailed),
		string(apperrors.ErrCodeDatabaseInsertFailed),
	},
	Timeout: "30s",
	Retries: apperrors.GetRetryCount(apperrors.ErrCodeDatabaseInsertFailed),
	Tags:    []string{"moderation"},
}
