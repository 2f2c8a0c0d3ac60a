package view

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Veraticus/caselight/internal/model"
)

// Table is one grid with its resolved column positions.
type Table struct {
	sel     *goquery.Selection
	Columns map[model.Column]int
	Headers []string
	Rows    []*RowView
	Index   int
}

func newTable(index int, sel *goquery.Selection) *Table {
	t := &Table{sel: sel, Index: index}

	sel.Find(HeaderSelector).Each(func(_ int, th *goquery.Selection) {
		label, ok := th.Attr("aria-label")
		if !ok || strings.TrimSpace(label) == "" {
			label = th.Text()
		}
		t.Headers = append(t.Headers, strings.TrimSpace(label))
	})
	t.Columns = MapHeaders(t.Headers)

	sel.Find(RowSelector).Each(func(i int, tr *goquery.Selection) {
		t.Rows = append(t.Rows, newRowView(t, i, tr))
	})
	return t
}

// MapHeaders binds header labels to logical columns. Exact matches are
// bound first; remaining vocabulary entries then bind, longest label first,
// to the first unbound header containing the label. Matching is case-sensitive.
func MapHeaders(headers []string) map[model.Column]int {
	columns := make(map[model.Column]int)
	bound := make(map[int]bool)

	for _, v := range model.HeaderVocabulary {
		for i, h := range headers {
			if !bound[i] && h == v.Label {
				columns[v.Column] = i
				bound[i] = true
				break
			}
		}
	}

	byLength := make([]int, len(model.HeaderVocabulary))
	for i := range byLength {
		byLength[i] = i
	}
	sort.SliceStable(byLength, func(a, b int) bool {
		return len(model.HeaderVocabulary[byLength[a]].Label) > len(model.HeaderVocabulary[byLength[b]].Label)
	})

	for _, idx := range byLength {
		v := model.HeaderVocabulary[idx]
		if _, ok := columns[v.Column]; ok {
			continue
		}
		for i, h := range headers {
			if !bound[i] && strings.Contains(h, v.Label) {
				columns[v.Column] = i
				bound[i] = true
				break
			}
		}
	}
	return columns
}

// Has reports whether the table exposes col.
func (t *Table) Has(col model.Column) bool {
	_, ok := t.Columns[col]
	return ok
}
