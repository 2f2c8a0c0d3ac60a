// Package view reads case rows out of a rendered list view and writes
// highlighting decisions back into it.
package view

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Veraticus/caselight/internal/common"
)

// Selectors for the host page structure.
const (
	GridSelector   = `table[role="grid"]`
	HeaderSelector = "thead th"
	RowSelector    = "tbody tr"
	CellSelector   = "th, td"
)

// valueSelector picks the element holding a cell's display value when present.
const valueSelector = "a[title], lightning-formatted-text, span[title]"

// Document is a parsed list view.
type Document struct {
	doc *goquery.Document
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse view: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseString parses an HTML document held in memory.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Tables returns every grid table with its header mapping and rows.
// It returns common.ErrViewIncomplete when no grid is rendered yet.
func (d *Document) Tables() ([]*Table, error) {
	grids := d.doc.Find(GridSelector)
	if grids.Length() == 0 {
		return nil, fmt.Errorf("%w: no %s found", common.ErrViewIncomplete, GridSelector)
	}

	tables := make([]*Table, 0, grids.Length())
	grids.Each(func(i int, s *goquery.Selection) {
		tables = append(tables, newTable(i, s))
	})
	return tables, nil
}

// Rows returns every row of every grid table, in document order.
func (d *Document) Rows() ([]*RowView, error) {
	tables, err := d.Tables()
	if err != nil {
		return nil, err
	}

	var rows []*RowView
	for _, t := range tables {
		rows = append(rows, t.Rows...)
	}
	return rows, nil
}

// Fingerprint hashes the headers and extracted row text of every grid.
// Annotations written by Apply do not affect it.
func (d *Document) Fingerprint() string {
	h := sha256.New()
	tables, err := d.Tables()
	if err != nil {
		return ""
	}
	for _, t := range tables {
		fmt.Fprintf(h, "table:%d:%s\n", t.Index, strings.Join(t.Headers, "|"))
		for _, r := range t.Rows {
			fmt.Fprintf(h, "row:%s\n", r.Row.Fingerprint())
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	for _, n := range d.doc.Nodes {
		if err := html.Render(w, n); err != nil {
			return fmt.Errorf("failed to render view: %w", err)
		}
	}
	return nil
}

// Bytes renders the document into memory.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cellText returns the trimmed display text of a cell, ignoring note indicators.
func cellText(cell *goquery.Selection) string {
	value := cell.Find(valueSelector).Not(NoteSelector).First()
	if value.Length() > 0 {
		return strings.TrimSpace(value.Text())
	}

	var b strings.Builder
	cell.Contents().Not(NoteSelector).Each(func(_ int, s *goquery.Selection) {
		b.WriteString(s.Text())
	})
	return strings.TrimSpace(b.String())
}
