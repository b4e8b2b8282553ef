// Package financials builds plain-language cash flow and income summaries from
// a company's latest 10-K filing on SEC EDGAR.
package financials

// Financials is the summary served for one ticker.
type Financials struct {
	Ticker          string          `json:"ticker"`
	CIK             string          `json:"cik"`
	Source          string          `json:"source"`
	Cashflow        Section         `json:"cashflow"`
	IncomeStatement IncomeStatement `json:"income_statement"`
	FilingDate      string          `json:"filing_date"`
	ReportDate      string          `json:"report_date"`
}

// Section maps a readable label to a reported value; nil means not reported.
type Section map[string]*float64

// IncomeStatement groups income facts by section: revenue, expenses, profit, shares.
type IncomeStatement map[string]Section

const (
	SectionRevenue  = "revenue"
	SectionExpenses = "expenses"
	SectionProfit   = "profit"
	SectionShares   = "shares"
)

const (
	labelTotalRevenue    = "Total Revenue"
	labelInterestIncome  = "Interest Income"
	labelOtherIncome     = "Other Income"
	labelCostOfRevenue   = "Cost of Revenue"
	labelRAndD           = "Research & Development"
	labelSalesMarketing  = "Sales & Marketing"
	labelGeneralAdmin    = "General & Administrative"
	labelOperatingTotal  = "Operating Expenses (Total)"
	labelInterestExpense = "Interest Expense"
	labelGrossProfit     = "Gross Profit"
	labelOperatingIncome = "Operating Income"
	labelIncomeBeforeTax = "Income Before Tax"
)

// cashflowTags maps each cash flow label to its us-gaap element.
var cashflowTags = map[string]string{
	// Operating
	"Net profit (or loss if negative)":                   "NetIncomeLoss",
	"Depreciation (wear & tear on assets)":               "DepreciationDepletionAndAmortization",
	"stock_comp":                                         "ShareBasedCompensation",
	"change_ar":                                          "IncreaseDecreaseInAccountsReceivable",
	"change_inventory":                                   "IncreaseDecreaseInInventory",
	"change_ap":                                          "IncreaseDecreaseInAccountsPayable",
	"Cash from day-to-day business (Operating Cashflow)": "NetCashProvidedByUsedInOperatingActivities",

	// Investing
	"Buying equipment/buildings (Capital Expenditure)": "PaymentsToAcquirePropertyPlantAndEquipment",
	"acquisitions":                                  "PaymentsToAcquireBusinessesNetOfCashAcquired",
	"asset_sales":                                   "ProceedsFromSaleOfPropertyPlantAndEquipment",
	"investments_purchase":                          "PaymentsToAcquireMarketableSecurities",
	"investments_maturity":                          "ProceedsFromMaturitiesOfMarketableSecurities",
	"Cash from investments (Buying/Selling assets)": "NetCashProvidedByUsedInInvestingActivities",

	// Financing
	"Money raised from issuing new shares":                 "ProceedsFromIssuanceOfCommonStock",
	"Money spent buying back shares of company":            "PaymentsForRepurchaseOfCommonStock",
	"Borrowed money (New loans or bonds)":                  "ProceedsFromIssuanceOfLongTermDebt",
	"Loan repayments":                                      "RepaymentsOfLongTermDebt",
	"Dividends paid to shareholders":                       "PaymentsOfDividends",
	"Cash from investors and loans (Financing activities)": "NetCashProvidedByUsedInFinancingActivities",

	// Summary
	"Change in cash during the period":        "CashAndCashEquivalentsPeriodIncreaseDecrease",
	"Cash at the beginning of the period":     "CashAndCashEquivalentsAtBeginningOfPeriod",
	"Cash remaining at the end of the period": "CashAndCashEquivalentsAtCarryingValue",
}

// incomeTags lists candidate us-gaap elements per label, first match wins.
var incomeTags = map[string]map[string][]string{
	SectionRevenue: {
		labelTotalRevenue: {
			"Revenues",
			"RevenueFromContractWithCustomerExcludingAssessedTax",
			"SalesRevenueNet",
			"SalesRevenueGoodsNet",
			"SalesRevenueServicesNet",
		},
		"Advertising Revenue": {"AdvertisingRevenue"},
		labelInterestIncome:   {"InterestIncome"},
		labelOtherIncome:      {"OtherNonoperatingIncomeExpense"},
	},
	SectionExpenses: {
		labelCostOfRevenue:   {"CostOfRevenue", "CostOfGoodsSold"},
		labelRAndD:           {"ResearchAndDevelopmentExpense"},
		labelSalesMarketing:  {"SellingAndMarketingExpense"},
		labelGeneralAdmin:    {"GeneralAndAdministrativeExpense"},
		labelOperatingTotal:  {"OperatingExpenses"},
		labelInterestExpense: {"InterestExpense"},
		"Income Tax Expense": {"IncomeTaxExpenseBenefit"},
	},
	SectionProfit: {
		labelGrossProfit:     {"GrossProfit"},
		labelOperatingIncome: {"OperatingIncomeLoss"},
		labelIncomeBeforeTax: {"IncomeLossFromContinuingOperationsBeforeIncomeTaxesExtraordinaryItemsNoncontrollingInterest"},
		"Net Income":         {"NetIncomeLoss"},
	},
	SectionShares: {
		"Earnings per Share (Basic)":                    {"EarningsPerShareBasic"},
		"Earnings per Share (Diluted)":                  {"EarningsPerShareDiluted"},
		"Weighted Average Shares Outstanding (Basic)":   {"WeightedAverageNumberOfSharesOutstandingBasic"},
		"Weighted Average Shares Outstanding (Diluted)": {"WeightedAverageNumberOfDilutedSharesOutstanding"},
	},
}

// Cashflow reads every cash flow label from facts.
func Cashflow(facts Facts) Section {
	out := make(Section, len(cashflowTags))
	for label, tag := range cashflowTags {
		out[label] = facts.Number(tag)
	}
	return out
}

// Income reads the grouped income statement and fills in derived metrics
// the filing left out.
func Income(facts Facts) IncomeStatement {
	out := make(IncomeStatement, len(incomeTags))
	for section, labels := range incomeTags {
		s := make(Section, len(labels))
		for label, tags := range labels {
			s[label] = facts.Number(tags...)
		}
		out[section] = s
	}
	derive(out)
	return out
}

func derive(is IncomeStatement) {
	rev, exp, profit := is[SectionRevenue], is[SectionExpenses], is[SectionProfit]

	if profit[labelGrossProfit] == nil && rev[labelTotalRevenue] != nil && exp[labelCostOfRevenue] != nil {
		profit[labelGrossProfit] = ptr(*rev[labelTotalRevenue] - *exp[labelCostOfRevenue])
	}

	if exp[labelOperatingTotal] == nil {
		if total, ok := sum(exp[labelRAndD], exp[labelSalesMarketing], exp[labelGeneralAdmin]); ok {
			exp[labelOperatingTotal] = ptr(total)
		}
	}

	if profit[labelOperatingIncome] == nil && profit[labelGrossProfit] != nil && exp[labelOperatingTotal] != nil {
		profit[labelOperatingIncome] = ptr(*profit[labelGrossProfit] - *exp[labelOperatingTotal])
	}

	if profit[labelIncomeBeforeTax] == nil && profit[labelOperatingIncome] != nil {
		other := value(rev[labelInterestIncome]) - value(exp[labelInterestExpense]) + value(rev[labelOtherIncome])
		profit[labelIncomeBeforeTax] = ptr(*profit[labelOperatingIncome] + other)
	}
}

// sum adds the reported values; ok is false when none are reported.
func sum(values ...*float64) (total float64, ok bool) {
	for _, v := range values {
		if v != nil {
			total += *v
			ok = true
		}
	}
	return total, ok
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func ptr(v float64) *float64 { return &v }
