package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxSummaryLen   = 512
	maxHTMLBodySize = 1 << 20 // 1 MiB
)

// Summarize reduces a response body to one short line for outcome records.
// HTML error pages collapse to their title, JSON is compacted and anything
// else is trimmed.
func Summarize(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	if json.Valid(trimmed) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return truncate(buf.String())
		}
	}

	if looksLikeHTML(trimmed) {
		if title := htmlTitle(trimmed); title != "" {
			return truncate(title)
		}
	}

	return truncate(strings.Join(strings.Fields(string(trimmed)), " "))
}

func looksLikeHTML(body []byte) bool {
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	lower := bytes.ToLower(head)
	return bytes.Contains(lower, []byte("<html")) || bytes.Contains(lower, []byte("<!doctype html"))
}

func htmlTitle(body []byte) string {
	if len(body) > maxHTMLBodySize {
		body = body[:maxHTMLBodySize]
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	og := ""
	if node := doc.Find(`meta[property="og:title"]`).First(); node.Length() > 0 {
		og, _ = node.Attr("content")
	}
	return firstNonEmpty(
		og,
		doc.Find("title").First().Text(),
		doc.Find("h1").First().Text(),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string) string {
	if len(s) <= maxSummaryLen {
		return s
	}
	n := maxSummaryLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
