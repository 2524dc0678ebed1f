package extract

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	// MinVisibleText is the shortest page text worth sending to a model;
	// anything shorter is a block page or an empty result.
	MinVisibleText = 200
	// MaxExtractionChars bounds the page prefix sent for extraction.
	MaxExtractionChars = 22000
)

// nonContent are elements that never carry listing prices.
const nonContent = "script, style, noscript, nav, header, footer, svg, iframe, template"

// VisibleText parses HTML and returns its readable text with whitespace
// collapsed to single spaces.
func VisibleText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing page: %w", err)
	}

	doc.Find(nonContent).Remove()

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	return strings.Join(strings.Fields(sel.Text()), " "), nil
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
