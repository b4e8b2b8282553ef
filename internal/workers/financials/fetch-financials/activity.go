// internal/workers/financials/fetch-financials/activity.go
package fetchfinancials

import (
	apperrors "kurio/internal/common/errors"
	"kurio/pkg/registry"
)

var Activity = registry.Activity{
	ID:          TaskType,
	DisplayName: "Fetch Company Financials",
	Description: "Summarizes cash flow and income from the company's latest 10-K on SEC EDGAR",
	Category:    "financials",
	TaskType:    TaskType,
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"ticker"},
		"properties": map[string]interface{}{
			"ticker": map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 10},
		},
	},
	ErrorCodes: []string{
		string(apperrors.ErrCodeFinancialsNotFound),
		string(apperrors.ErrCodeSECRequestFailed),
	},
	Timeout: "2m",
	Retries: apperrors.GetRetryCount(apperrors.ErrCodeSECRequestFailed),
	Tags:    []string{"sec", "edgar"},
}
