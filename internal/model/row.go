// Package model defines the core data structures for the caselight application.
package model

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// Column is a logical column name in a case list view.
type Column string

// Column vocabulary recognized in list views.
const (
	ColumnAccountName   Column = "accountName"
	ColumnFirstResponse Column = "firstResponse"
	ColumnStatus        Column = "status"
	ColumnJiraStatus    Column = "jiraStatus"
	ColumnLastModified  Column = "lastModified"
	ColumnCaseNumber    Column = "caseNumber"
	ColumnSupportTier   Column = "supportTier"
	ColumnSubject       Column = "subject"
)

// HeaderVocabulary maps the header labels of a list view to logical columns.
// Order matters: it is the order headers are matched in.
var HeaderVocabulary = []struct {
	Label  string
	Column Column
}{
	{Label: "Account Name", Column: ColumnAccountName},
	{Label: "First Response", Column: ColumnFirstResponse},
	{Label: "Status", Column: ColumnStatus},
	{Label: "JIRA Status", Column: ColumnJiraStatus},
	{Label: "Last Modified Date", Column: ColumnLastModified},
	{Label: "Case Number", Column: ColumnCaseNumber},
	{Label: "Subject", Column: ColumnSubject},
	{Label: "Account Support Tier", Column: ColumnSupportTier},
}

// Row is a snapshot of one rendered record: column to trimmed cell text.
// A column missing from the map is not present in the current table layout.
type Row map[Column]string

// Get returns the trimmed value of a column and whether the column is present.
func (r Row) Get(col Column) (string, bool) {
	v, ok := r[col]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Fold returns the trimmed, lower-cased value of a column.
func (r Row) Fold(col Column) (string, bool) {
	v, ok := r.Get(col)
	if !ok {
		return "", false
	}
	return strings.ToLower(v), true
}

// CaseNumber returns the row's case number, or "" when the column is absent.
func (r Row) CaseNumber() string {
	v, _ := r.Get(ColumnCaseNumber)
	return v
}

// Fingerprint returns a stable hash of the row contents.
func (r Row) Fingerprint() string {
	cols := make([]string, 0, len(r))
	for col := range r {
		cols = append(cols, string(col))
	}
	sort.Strings(cols)

	h := sha256.New()
	for _, col := range cols {
		fmt.Fprintf(h, "%s=%s\x00", col, r[Column(col)])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
