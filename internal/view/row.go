package view

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Veraticus/caselight/internal/model"
)

// Markers written into the view.
const (
	PlatinumClass  = "caselight-platinum"
	NoteClass      = "caselight-note"
	NoteSelector   = "button." + NoteClass
	AppliedAttr    = "data-caselight"
	origStyleAttr  = "data-caselight-style"
	hasNoteAttr    = "data-has-note"
	caseNumberAttr = "data-case-number"
)

// Note indicator labels.
const (
	noteIcon    = "📝"
	addNoteIcon = "+"
	addNoteHint = "Add note"
)

// RowView is one rendered row and the field values extracted from it.
type RowView struct {
	sel   *goquery.Selection
	table *Table
	Row   model.Row
	Index int
}

func newRowView(t *Table, index int, tr *goquery.Selection) *RowView {
	cells := tr.Find(CellSelector)
	row := make(model.Row, len(t.Columns))
	for col, i := range t.Columns {
		if i < cells.Length() {
			row[col] = cellText(cells.Eq(i))
		}
	}
	return &RowView{sel: tr, table: t, Row: row, Index: index}
}

// Apply writes a decision into the row: background color, platinum marker
// and note indicator. noteText pre-fills the indicator's editing surface.
// It reports whether the row's markup changed.
func (r *RowView) Apply(d model.Decision, noteText string) bool {
	before, _ := goquery.OuterHtml(r.sel)

	if _, saved := r.sel.Attr(origStyleAttr); !saved {
		orig, _ := r.sel.Attr("style")
		r.sel.SetAttr(origStyleAttr, orig)
	}
	r.setBackground(d.Color)

	if d.IsPlatinum {
		r.sel.AddClass(PlatinumClass)
	} else {
		r.sel.RemoveClass(PlatinumClass)
		removeEmptyClass(r.sel)
	}

	r.setNoteIndicator(d.HasNote, noteText)
	r.sel.SetAttr(AppliedAttr, "applied")

	after, _ := goquery.OuterHtml(r.sel)
	return before != after
}

// Background returns the background color currently set on the row.
func (r *RowView) Background() model.Color {
	style, _ := r.sel.Attr("style")
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(strings.ToLower(name)) == "background-color" {
			return model.Color(strings.TrimSpace(value))
		}
	}
	return model.NoColor
}

// IsPlatinum reports whether the platinum marker is set.
func (r *RowView) IsPlatinum() bool {
	return r.sel.HasClass(PlatinumClass)
}

// NoteIndicator returns the note indicator state, if the row has one.
func (r *RowView) NoteIndicator() (hasNote bool, title string, ok bool) {
	btn := r.sel.Find(NoteSelector).First()
	if btn.Length() == 0 {
		return false, "", false
	}
	title, _ = btn.Attr("title")
	return btn.AttrOr(hasNoteAttr, "false") == "true", title, true
}

func (r *RowView) setBackground(color model.Color) {
	style, _ := r.sel.Attr("style")

	var decls []string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name, _, _ := strings.Cut(decl, ":")
		if strings.TrimSpace(strings.ToLower(name)) == "background-color" {
			continue
		}
		decls = append(decls, decl)
	}
	if color != model.NoColor {
		decls = append(decls, "background-color: "+string(color))
	}

	if len(decls) == 0 {
		r.sel.RemoveAttr("style")
		return
	}
	r.sel.SetAttr("style", strings.Join(decls, "; "))
}

func (r *RowView) setNoteIndicator(hasNote bool, noteText string) {
	i, ok := r.table.Columns[model.ColumnCaseNumber]
	caseNumber := r.Row.CaseNumber()
	if !ok || caseNumber == "" {
		return
	}
	cell := r.sel.Find(CellSelector).Eq(i)
	if cell.Length() == 0 {
		return
	}

	btn := cell.Find(NoteSelector)
	if btn.Length() == 0 {
		cell.AppendHtml(`<button type="button" class="` + NoteClass + `"></button>`)
		btn = cell.Find(NoteSelector)
	}

	btn.SetAttr(caseNumberAttr, caseNumber)
	if hasNote {
		btn.SetAttr(hasNoteAttr, "true")
		btn.SetAttr("title", noteText)
		btn.SetText(noteIcon)
	} else {
		btn.SetAttr(hasNoteAttr, "false")
		btn.SetAttr("title", addNoteHint)
		btn.SetText(addNoteIcon)
	}
}

// Cleanup removes every marker Apply wrote and restores the original row
// styles. It returns the number of rows restored.
func (d *Document) Cleanup() int {
	restored := 0
	d.doc.Find("[" + AppliedAttr + "]").Each(func(_ int, s *goquery.Selection) {
		if orig, ok := s.Attr(origStyleAttr); ok {
			if orig == "" {
				s.RemoveAttr("style")
			} else {
				s.SetAttr("style", orig)
			}
		}
		s.RemoveAttr(origStyleAttr)
		s.RemoveAttr(AppliedAttr)
		s.RemoveClass(PlatinumClass)
		removeEmptyClass(s)
		restored++
	})
	d.doc.Find(NoteSelector).Remove()
	return restored
}

func removeEmptyClass(s *goquery.Selection) {
	if class, ok := s.Attr("class"); ok && strings.TrimSpace(class) == "" {
		s.RemoveAttr("class")
	}
}
