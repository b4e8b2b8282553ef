package financials

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Facts holds the first reported value of every us-gaap element in an XBRL
// instance, keyed by local name.
type Facts map[string]string

// Number returns the first of tags that parses as a number.
func (f Facts) Number(tags ...string) *float64 {
	for _, tag := range tags {
		raw, ok := f[tag]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64)
		if err != nil {
			continue
		}
		return &v
	}
	return nil
}

// ParseFacts scans an XBRL instance document.
func ParseFacts(doc []byte) (Facts, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = false

	facts := Facts{}
	var current string
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xbrl: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			current = ""
			if isGAAP(t.Name) {
				if _, seen := facts[t.Name.Local]; !seen {
					current = t.Name.Local
					text.Reset()
				}
			}
		case xml.CharData:
			if current != "" {
				text.Write(t)
			}
		case xml.EndElement:
			if current != "" && t.Name.Local == current {
				if v := strings.TrimSpace(text.String()); v != "" {
					facts[current] = v
				}
				current = ""
			}
		}
	}
	return facts, nil
}

// isGAAP accepts both a resolved namespace (http://fasb.org/us-gaap/2024)
// and an undeclared us-gaap prefix.
func isGAAP(name xml.Name) bool {
	return strings.Contains(name.Space, "us-gaap")
}
