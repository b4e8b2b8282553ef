package insights

import (
	"sort"
	"strings"
)

var blockNodes = map[string]bool{
	"paragraph":  true,
	"heading-1":  true,
	"heading-2":  true,
	"heading-3":  true,
	"heading-4":  true,
	"heading-5":  true,
	"heading-6":  true,
	"blockquote": true,
	"list-item":  true,
	"hr":         true,
}

// PlainText renders a rich text document (or a plain string) as text with one
// line per block and "- " before list items.
func PlainText(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}

	var b strings.Builder
	writeNode(&b, v)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func writeNode(b *strings.Builder, v interface{}) {
	node, ok := v.(map[string]interface{})
	if !ok {
		return
	}
	nodeType, _ := node["nodeType"].(string)

	if nodeType == "text" {
		value, _ := node["value"].(string)
		b.WriteString(value)
		return
	}
	if nodeType == "list-item" {
		b.WriteString("- ")
	}

	children, _ := node["content"].([]interface{})
	for _, child := range children {
		writeNode(b, child)
	}

	if blockNodes[nodeType] {
		b.WriteString("\n")
	}
}

// findPDF looks for a PDF link in asset fields, then embedded assets in the
// body, then anywhere in the JSON payload.
func findPDF(fields map[string]interface{}, body interface{}, jsonData ...interface{}) string {
	for _, k := range sortedKeys(fields) {
		v := fields[k]
		if url := assetPDF(v); url != "" {
			return url
		}
		if list, ok := v.([]interface{}); ok {
			for _, item := range list {
				if url := assetPDF(item); url != "" {
					return url
				}
			}
		}
	}

	if url := embeddedPDF(body); url != "" {
		return url
	}

	for _, d := range jsonData {
		if url := jsonPDF(d); url != "" {
			return url
		}
	}
	return ""
}

func assetPDF(v interface{}) string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	if f, ok := m["fields"].(map[string]interface{}); ok {
		if file, ok := f["file"].(map[string]interface{}); ok {
			url, _ := file["url"].(string)
			contentType, _ := file["contentType"].(string)
			if url != "" && (contentType == "application/pdf" || isPDF(url)) {
				return withScheme(url)
			}
		}
	}
	if url, ok := m["url"].(string); ok && isPDF(url) {
		return withScheme(url)
	}
	return ""
}

func embeddedPDF(v interface{}) string {
	node, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	nodeType, _ := node["nodeType"].(string)
	if nodeType == "embedded-asset-block" || nodeType == "embedded-asset" {
		if data, ok := node["data"].(map[string]interface{}); ok {
			if url := assetPDF(data["target"]); url != "" {
				return url
			}
			if url := assetPDF(data); url != "" {
				return url
			}
		}
	}
	children, _ := node["content"].([]interface{})
	for _, child := range children {
		if url := embeddedPDF(child); url != "" {
			return url
		}
	}
	return ""
}

func jsonPDF(v interface{}) string {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if !isPDF(s) {
			return ""
		}
		if strings.HasPrefix(s, "//") {
			return "https:" + s
		}
		return s
	case []interface{}:
		for _, item := range val {
			if url := jsonPDF(item); url != "" {
				return url
			}
		}
	case map[string]interface{}:
		if url := assetPDF(val); url != "" {
			return url
		}
		if url, ok := val["pdfUrl"].(string); ok && strings.TrimSpace(url) != "" {
			return withScheme(strings.TrimSpace(url))
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if url := jsonPDF(val[k]); url != "" {
				return url
			}
		}
	}
	return ""
}

func isPDF(url string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(url)), ".pdf")
}

// withScheme prefixes protocol-relative asset URLs with https:.
func withScheme(url string) string {
	url = strings.TrimSpace(url)
	if strings.HasPrefix(url, "http") {
		return url
	}
	return "https:" + url
}
