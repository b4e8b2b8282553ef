// internal/workers/rag/ask-question/activity.go
package askquestion

import (
	apperrors "kurio/internal/common/errors"
	"kurio/internal/common/rag"
	"kurio/pkg/registry"
)

var Activity = registry.Activity{
	ID:          TaskType,
	DisplayName: "Ask Question",
	Description: "Answers a career question through the retrieval-augmented answering service",
	Category:    "rag",
	TaskType:    TaskType,
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"question"},
		"properties": map[string]interface{}{
			"question":        map[string]interface{}{"type": "string", "minLength": 1},
			"retrievalMethod": map[string]interface{}{"type": "string", "enum": rag.Methods()},
			"k":               map[string]interface{}{"type": "integer", "minimum": 1},
			"retries":         map[string]interface{}{"type": "integer", "minimum": 0},
		},
	},
	OutputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"answer":         map[string]interface{}{"type": "string"},
			"answerMetadata": map[string]interface{}{"type": "object"},
		},
	},
	ErrorCodes: []string{
		string(apperrors.ErrCodeQuestionInvalid),
		string(apperrors.ErrCodeRAGTimeout),
		string(apperrors.ErrCodeRAGConnectionFailed),
		string(apperrors.ErrCodeRAGServerError),
	},
	Timeout: "3m",
	Retries: apperrors.GetRetryCount(apperrors.ErrCodeRAGTimeout),
	Tags:    []string{"question-answering"},
}
