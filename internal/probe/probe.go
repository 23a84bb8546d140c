// Package probe checks selector cascades against a saved page, so broken
// selectors can be fixed without driving a live browser.
package probe

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/ghostpost/ghostpost/internal/types"
)

// SelectorResult is the outcome of one selector
type SelectorResult struct {
	Selector string
	Matches  int
	Err      error
}

// CascadeResult reports every selector of a cascade and the one a live run would pick
type CascadeResult struct {
	Name      string
	XPath     bool
	Selectors []SelectorResult
	Winner    string // empty when nothing matched
}

// Report is the result of probing one page
type Report struct {
	Title    string
	Cascades []CascadeResult
}

// Broken returns the names of cascades with no matching selector
func (r Report) Broken() []string {
	var out []string
	for _, c := range r.Cascades {
		if c.Winner == "" {
			out = append(out, c.Name)
		}
	}
	return out
}

// Run evaluates cascades against html. CSS selectors go through goquery and
// XPath expressions through htmlquery.
func Run(html []byte, cascades []types.Cascade) (Report, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(html))
	if err != nil {
		return Report{}, fmt.Errorf("failed to parse page: %w", err)
	}
	gq := goquery.NewDocumentFromNode(doc)

	var report Report
	if title := htmlquery.FindOne(doc, "//title"); title != nil {
		report.Title = strings.TrimSpace(htmlquery.InnerText(title))
	}

	for _, c := range cascades {
		res := CascadeResult{Name: c.Name, XPath: c.XPath}
		for _, sel := range c.Selectors {
			sr := SelectorResult{Selector: sel}
			if c.XPath {
				nodes, err := htmlquery.QueryAll(doc, sel)
				sr.Matches, sr.Err = len(nodes), err
			} else {
				sr.Matches = gq.Find(sel).Length()
			}
			if sr.Err == nil && sr.Matches > 0 && res.Winner == "" {
				res.Winner = sel
			}
			res.Selectors = append(res.Selectors, sr)
		}
		report.Cascades = append(report.Cascades, res)
	}
	return report, nil
}

// Write prints the report in a human readable form
func (r Report) Write(w io.Writer) error {
	var b strings.Builder
	if r.Title != "" {
		fmt.Fprintf(&b, "Page: %s\n", r.Title)
	}
	for _, c := range r.Cascades {
		kind := "css"
		if c.XPath {
			kind = "xpath"
		}
		winner := c.Winner
		if winner == "" {
			winner = "NONE"
		}
		fmt.Fprintf(&b, "\n[%s] (%s) -> %s\n", c.Name, kind, winner)
		for _, s := range c.Selectors {
			if s.Err != nil {
				fmt.Fprintf(&b, "  %-4s %s (%v)\n", "err", s.Selector, s.Err)
				continue
			}
			fmt.Fprintf(&b, "  %-4d %s\n", s.Matches, s.Selector)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
