package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/caselight/internal/model"
	"github.com/Veraticus/caselight/internal/settings"
	"github.com/Veraticus/caselight/internal/synchronizer"
)

// RenderTable lays out rows under headers. backgrounds, when non-nil, holds
// one color per row; an empty entry leaves the row unstyled.
func RenderTable(headers []string, rows [][]string, backgrounds []string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(joinCells(headers, widths)))
	b.WriteString("\n")

	for i, row := range rows {
		line := joinCells(row, widths)
		if i < len(backgrounds) && backgrounds[i] != "" {
			line = lipgloss.NewStyle().
				Background(lipgloss.Color(backgrounds[i])).
				Foreground(RowTextColor).
				Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func joinCells(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = TableCellStyle.Width(widths[i] + 2).Render(cell)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// RenderDecisions shows every row of a pass with the rule that colored it.
func RenderDecisions(rows []synchronizer.RowResult) string {
	if len(rows) == 0 {
		return FormatInfo("No case rows found")
	}

	headers := []string{"Case", "Account", "Status", "Rule", "Color", "Note"}
	cells := make([][]string, 0, len(rows))
	backgrounds := make([]string, 0, len(rows))
	for _, r := range rows {
		account, _ := r.Row.Get(model.ColumnAccountName)
		status, _ := r.Row.Get(model.ColumnStatus)

		rule := string(r.Decision.Rule)
		if r.Decision.HasNote {
			rule = "note"
		}
		if rule == "" {
			rule = "-"
		}
		if r.Decision.IsPlatinum {
			rule = PlatinumIcon + " " + rule
		}

		note := ""
		if r.Decision.HasNote {
			note = NoteIcon + " " + truncate(r.Note, 40)
		}

		color := string(r.Decision.Color)
		if color == "" {
			color = "-"
		}

		cells = append(cells, []string{r.Row.CaseNumber(), account, status, rule, color, note})
		backgrounds = append(backgrounds, string(r.Decision.Color))
	}
	return RenderTable(headers, cells, backgrounds)
}

// RenderRules lists the builtin rules in priority order followed by the account rules.
func RenderRules(s model.Settings) string {
	var b strings.Builder

	state := FormatSuccess("Highlighting enabled")
	if !s.Enabled {
		state = FormatWarning("Highlighting disabled")
	}
	b.WriteString(state)
	b.WriteString("\n\n")
	b.WriteString(FormatTitle("Builtin rules"))
	b.WriteString("\n")

	rs := s.Rules
	rows := make([][]string, 0, len(settings.BuiltinRuleKeys))
	for i, key := range settings.BuiltinRuleKeys {
		rule, err := settings.RuleField(&rs, key)
		if err != nil {
			continue
		}
		enabled := SuccessStyle.Render("on")
		if !rule.Enabled {
			enabled = SubtleStyle.Render("off")
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), key, enabled, Swatch(string(rule.Color))})
	}
	b.WriteString(RenderTable([]string{"#", "Rule", "Enabled", "Color"}, rows, nil))
	b.WriteString("\n")
	b.WriteString(FormatTitle("Account rules"))
	b.WriteString("\n")

	if len(rs.Accounts) == 0 {
		b.WriteString(SubtleStyle.Render("No account rules"))
		b.WriteString("\n")
		return b.String()
	}

	accounts := make([][]string, 0, len(rs.Accounts))
	for i, a := range rs.Accounts {
		accounts = append(accounts, []string{strconv.Itoa(i), a.AccountName, Swatch(string(a.Color))})
	}
	b.WriteString(RenderTable([]string{"Index", "Account", "Color"}, accounts, nil))
	return b.String()
}

// RenderNotes lists notes by case number.
func RenderNotes(notes []model.Note) string {
	if len(notes) == 0 {
		return FormatInfo("No notes")
	}
	rows := make([][]string, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, []string{n.CaseNumber, truncate(n.Text, 60)})
	}
	return RenderTable([]string{"Case", "Note"}, rows, nil)
}

// RenderRefresh describes the auto-refresh state.
func RenderRefresh(r model.RefreshSettings) string {
	lines := []string{}
	if r.Enabled && r.Target != "" {
		lines = append(lines, FormatSuccess("Auto-refresh enabled"))
		lines = append(lines, fmt.Sprintf("Target:   %s", r.Target))
		lines = append(lines, fmt.Sprintf("Interval: every %d min", r.Interval))
	} else {
		lines = append(lines, FormatWarning("Auto-refresh disabled"))
	}

	last := "never"
	if r.LastRefresh != nil {
		last = r.LastRefresh.Local().Format(time.DateTime)
	}
	lines = append(lines, fmt.Sprintf("Last refresh: %s", last))
	return RenderBox("Auto-refresh", strings.Join(lines, "\n"))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
