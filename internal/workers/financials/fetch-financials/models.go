// internal/workers/financials/fetch-financials/models.go
package fetchfinancials

import "kurio/internal/financials"

type Input struct {
	Ticker string `json:"ticker"`
}

type Output struct {
	Ticker     string                 `json:"ticker"`
	CIK        string                 `json:"cik"`
	FilingDate string                 `json:"filingDate"`
	Financials *financials.Financials `json:"financials"`
}
