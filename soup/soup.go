// Package soup converts HTML from any source (a string, an HTTP response,
// a located WebDriver element) into a goquery document for text and
// attribute extraction.
package soup

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tebeka/selenium"
)

// Parse parses an HTML string into a document.
func Parse(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// ParseReader parses HTML read from r into a document.
func ParseReader(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

// ParseResponse parses the body of an HTTP response into a document. The
// body is consumed but not closed.
func ParseResponse(resp *http.Response) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(resp.Body)
}

// ParseElement parses a located element's outer HTML into a document. The
// document roots at the element itself, so selectors run against the
// fragment, not the whole page.
func ParseElement(el selenium.WebElement) (*goquery.Document, error) {
	html, err := el.GetAttribute("outerHTML")
	if err != nil {
		return nil, fmt.Errorf("reading element outerHTML: %v", err)
	}
	return Parse(html)
}

// ParseElements parses each located element into its own document.
func ParseElements(els []selenium.WebElement) ([]*goquery.Document, error) {
	docs := make([]*goquery.Document, 0, len(els))
	for _, el := range els {
		doc, err := ParseElement(el)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Texts returns the trimmed text of every node matching selector, skipping
// nodes whose text is empty after trimming.
func Texts(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// Attrs returns the named attribute of every node matching selector that
// carries it.
func Attrs(doc *goquery.Document, selector, name string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(name); ok {
			out = append(out, v)
		}
	})
	return out
}
