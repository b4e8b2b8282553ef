package financials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	httpclient "kurio/internal/common/http"
)

const (
	DefaultDataURL   = "https://data.sec.gov"
	DefaultWWWURL    = "https://www.sec.gov"
	DefaultUserAgent = "kurio-agent/1.0 (potatojacket9@gmail.com)"
)

// ErrNotFound marks a lookup step that found nothing for the ticker.
var ErrNotFound = errors.New("not found")

type notFoundError struct{ msg string }

func (e *notFoundError) Error() string        { return e.msg }
func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(format string, args ...interface{}) error {
	return &notFoundError{msg: fmt.Sprintf(format, args...)}
}

type EDGARConfig struct {
	DataURL   string
	WWWURL    string
	UserAgent string
	Timeout   time.Duration
}

// Filing locates a 10-K filing.
type Filing struct {
	Accession  string
	IndexURL   string
	FilingDate string
	ReportDate string
}

// EDGARClient talks to the SEC's public JSON and archive endpoints. EDGAR
// rejects requests without a descriptive User-Agent.
type EDGARClient struct {
	http    *httpclient.Client
	dataURL string
	wwwURL  string
}

func NewEDGARClient(cfg EDGARConfig) *EDGARClient {
	if cfg.DataURL == "" {
		cfg.DataURL = DefaultDataURL
	}
	if cfg.WWWURL == "" {
		cfg.WWWURL = DefaultWWWURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &EDGARClient{
		http:    httpclient.NewClient(cfg.Timeout).WithHeader("User-Agent", cfg.UserAgent),
		dataURL: strings.TrimRight(cfg.DataURL, "/"),
		wwwURL:  strings.TrimRight(cfg.WWWURL, "/"),
	}
}

type tickerRecord struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// LookupCIK resolves a ticker (case-insensitive) to its zero-padded CIK.
func (c *EDGARClient) LookupCIK(ctx context.Context, ticker string) (string, error) {
	var records map[string]tickerRecord
	if err := c.http.GetJSON(ctx, c.wwwURL+"/files/company_tickers.json", &records); err != nil {
		return "", fmt.Errorf("load company tickers: %w", err)
	}
	for _, r := range records {
		if strings.EqualFold(r.Ticker, ticker) {
			return fmt.Sprintf("%010d", r.CIK), nil
		}
	}
	return "", notFound("CIK not found for ticker '%s'.", ticker)
}

type submissions struct {
	Filings struct {
		Recent struct {
			Form            []string `json:"form"`
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			ReportDate      []string `json:"reportDate"`
		} `json:"recent"`
	} `json:"filings"`
}

// Latest10K returns the most recent annual report in the company's submissions.
func (c *EDGARClient) Latest10K(ctx context.Context, cik string) (*Filing, error) {
	var subs submissions
	if err := c.http.GetJSON(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, cik), &subs); err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}

	recent := subs.Filings.Recent
	n := min(len(recent.Form), len(recent.AccessionNumber), len(recent.FilingDate), len(recent.ReportDate))
	for i := 0; i < n; i++ {
		if recent.Form[i] != "10-K" {
			continue
		}
		acc := recent.AccessionNumber[i]
		cikNum, err := strconv.ParseInt(cik, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse cik %q: %w", cik, err)
		}
		return &Filing{
			Accession:  acc,
			IndexURL:   fmt.Sprintf("%s/Archives/edgar/data/%d/%s/%s-index.html", c.wwwURL, cikNum, strings.ReplaceAll(acc, "-", ""), acc),
			FilingDate: recent.FilingDate[i],
			ReportDate: recent.ReportDate[i],
		}, nil
	}
	return nil, ErrNotFound
}

var linkbaseSuffixes = []string{"_cal.xml", "_lab.xml", "_pre.xml", "_def.xml"}

// PrimaryXBRLURL finds the XBRL instance among the filing index links,
// skipping the linkbase files.
func (c *EDGARClient) PrimaryXBRLURL(ctx context.Context, indexURL string) (string, error) {
	page, err := c.http.GetBody(ctx, indexURL)
	if err != nil {
		return "", fmt.Errorf("load filing index: %w", err)
	}

	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", ErrNotFound
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" && isInstance(string(val)) {
					return c.absolute(string(val)), nil
				}
				if !more {
					break
				}
			}
		}
	}
}

func isInstance(href string) bool {
	if !strings.HasSuffix(href, ".xml") {
		return false
	}
	for _, s := range linkbaseSuffixes {
		if strings.Contains(href, s) {
			return false
		}
	}
	return true
}

func (c *EDGARClient) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return c.wwwURL + href
}

// Facts downloads and parses an XBRL instance.
func (c *EDGARClient) Facts(ctx context.Context, url string) (Facts, error) {
	doc, err := c.http.GetBody(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("load xbrl: %w", err)
	}
	return ParseFacts(doc)
}

// Fetch runs the whole chain: ticker, CIK, latest 10-K, XBRL instance, summary.
func (c *EDGARClient) Fetch(ctx context.Context, ticker string) (*Financials, error) {
	cik, err := c.LookupCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	filing, err := c.Latest10K(ctx, cik)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("No 10-K filing found for '%s'.", ticker)
	}
	if err != nil {
		return nil, err
	}

	xbrlURL, err := c.PrimaryXBRLURL(ctx, filing.IndexURL)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("No XBRL XML file found for '%s'.", ticker)
	}
	if err != nil {
		return nil, err
	}

	facts, err := c.Facts(ctx, xbrlURL)
	if err != nil {
		return nil, err
	}

	return &Financials{
		Ticker:          ticker,
		CIK:             cik,
		Source:          xbrlURL,
		Cashflow:        Cashflow(facts),
		IncomeStatement: Income(facts),
		FilingDate:      filing.FilingDate,
		ReportDate:      filing.ReportDate,
	}, nil
}
