package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/caselight/internal/model"
)

var refNow = time.Date(2024, 1, 17, 15, 0, 0, 0, time.UTC)

func testRuleset() model.Ruleset {
	return model.Ruleset{
		ActionNeeded:  model.BuiltinRule{Enabled: true, Color: "#ef9a9a"},
		Platinum:      model.BuiltinRule{Enabled: true, Color: "#e1bee7"},
		FirstResponse: model.BuiltinRule{Enabled: true, Color: "#ffecb3"},
		JiraClosed:    model.BuiltinRule{Enabled: true, Color: "#c8e6c9"},
		LastModified:  model.BuiltinRule{Enabled: true, Color: "#ffcdd2"},
		Accounts: []model.AccountRule{
			{AccountName: "Acme Corp", Color: "#111111"},
			{AccountName: "acme corp", Color: "#222222"},
			{AccountName: "Globex", Color: "#333333"},
		},
	}
}

// quietRow matches no rule at all.
func quietRow() model.Row {
	return model.Row{
		model.ColumnAccountName:   "Initech",
		model.ColumnFirstResponse: "1/17/2024, 9:00 AM",
		model.ColumnStatus:        "New",
		model.ColumnJiraStatus:    "In Progress",
		model.ColumnLastModified:  "1/17/2024, 9:00 AM",
		model.ColumnCaseNumber:    "00001234",
		model.ColumnSupportTier:   "Standard",
	}
}

func with(row model.Row, kv ...string) model.Row {
	out := make(model.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[model.Column(kv[i])] = kv[i+1]
	}
	return out
}

func without(row model.Row, cols ...model.Column) model.Row {
	out := make(model.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	for _, c := range cols {
		delete(out, c)
	}
	return out
}

func TestEvaluate_Priority(t *testing.T) {
	rs := testRuleset()
	stale := "1/15/2024, 2:30 PM"

	tests := []struct {
		row  model.Row
		name string
		want model.Decision
	}{
		{
			name: "no rule matches",
			row:  quietRow(),
			want: model.Decision{},
		},
		{
			name: "action needed beats everything",
			row: with(quietRow(),
				"status", "Technical Issue/Bug",
				"jiraStatus", "Released",
				"lastModified", stale,
				"supportTier", "Platinum Support",
				"accountName", "Acme Corp",
				"firstResponse", ""),
			want: model.Decision{Color: "#ef9a9a", Rule: model.RuleActionNeeded, IsPlatinum: true},
		},
		{
			name: "platinum beats account",
			row:  with(quietRow(), "supportTier", "platinum support", "accountName", "Acme Corp"),
			want: model.Decision{Color: "#e1bee7", Rule: model.RulePlatinum, IsPlatinum: true},
		},
		{
			name: "account first match wins",
			row:  with(quietRow(), "accountName", "  ACME CORP ", "firstResponse", ""),
			want: model.Decision{Color: "#111111", Rule: model.RuleAccount},
		},
		{
			name: "empty first response beats jira",
			row:  with(quietRow(), "firstResponse", "   ", "jiraStatus", "Done"),
			want: model.Decision{Color: "#ffecb3", Rule: model.RuleFirstResponse},
		},
		{
			name: "absent first response fires",
			row:  without(quietRow(), model.ColumnFirstResponse),
			want: model.Decision{Color: "#ffecb3", Rule: model.RuleFirstResponse},
		},
		{
			name: "jira closed beats stale",
			row:  with(quietRow(), "jiraStatus", "Canceled", "lastModified", stale),
			want: model.Decision{Color: "#c8e6c9", Rule: model.RuleJiraClosed},
		},
		{
			name: "stale alone",
			row:  with(quietRow(), "lastModified", stale),
			want: model.Decision{Color: "#ffcdd2", Rule: model.RuleLastModified},
		},
		{
			name: "action needed requires status column",
			row: without(with(quietRow(),
				"jiraStatus", "Released",
				"lastModified", stale), model.ColumnStatus),
			want: model.Decision{Color: "#c8e6c9", Rule: model.RuleJiraClosed},
		},
		{
			name: "action needed requires staleness",
			row: with(quietRow(),
				"status", "technical issue/bug",
				"jiraStatus", "done"),
			want: model.Decision{Color: "#c8e6c9", Rule: model.RuleJiraClosed},
		},
		{
			name: "unparsable date is not stale",
			row:  with(quietRow(), "lastModified", "last tuesday-ish"),
			want: model.Decision{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.row, rs, false, refNow)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_NoteSuppressesColor(t *testing.T) {
	rs := testRuleset()
	rows := []model.Row{
		quietRow(),
		with(quietRow(), "supportTier", "Platinum Support"),
		with(quietRow(), "accountName", "Globex"),
		without(quietRow(), model.ColumnFirstResponse),
		with(quietRow(), "status", "Technical Issue/Bug", "jiraStatus", "Released", "lastModified", "1/1/2024, 1:00 AM"),
	}

	for _, row := range rows {
		got := Evaluate(row, rs, true, refNow)
		assert.Equal(t, model.Decision{HasNote: true}, got)
	}
}

func TestEvaluate_DisabledRulesNeverFire(t *testing.T) {
	rs := testRuleset().WithoutRules()
	rows := []model.Row{
		with(quietRow(), "supportTier", "Platinum Support"),
		with(quietRow(), "accountName", "Globex"),
		without(quietRow(), model.ColumnFirstResponse),
		with(quietRow(), "jiraStatus", "done"),
		with(quietRow(), "lastModified", "1/1/2024, 1:00 AM"),
	}

	for _, row := range rows {
		got := Evaluate(row, rs, false, refNow)
		assert.Equal(t, model.Decision{}, got)
	}
}

func TestEvaluate_DisabledRuleFallsThrough(t *testing.T) {
	rs := testRuleset()
	rs.Platinum.Enabled = false

	row := with(quietRow(), "supportTier", "Platinum Support", "accountName", "Globex")
	got := Evaluate(row, rs, false, refNow)

	assert.Equal(t, model.Decision{Color: "#333333", Rule: model.RuleAccount}, got)
}

func TestEvaluate_Idempotent(t *testing.T) {
	rs := testRuleset()
	e := NewEvaluator(rs, refNow)
	row := with(quietRow(), "jiraStatus", "released")

	first := e.Evaluate(row, false)
	second := e.Evaluate(row, false)
	assert.Equal(t, first, second)
	assert.Equal(t, first, Evaluate(row, rs, false, refNow))
}

func TestEvaluator_SnapshotIsolation(t *testing.T) {
	rs := testRuleset()
	e := NewEvaluator(rs, refNow)

	rs.Accounts[2].Color = "#999999"
	got := e.Evaluate(with(quietRow(), "accountName", "Globex"), false)
	assert.Equal(t, model.Color("#333333"), got.Color)
}

func TestEvaluator_Chain(t *testing.T) {
	e := NewEvaluator(testRuleset(), refNow)

	var kinds []model.RuleKind
	for _, r := range e.Chain() {
		kinds = append(kinds, r.Kind)
	}
	assert.Equal(t, []model.RuleKind{
		model.RuleActionNeeded,
		model.RulePlatinum,
		model.RuleAccount,
		model.RuleFirstResponse,
		model.RuleJiraClosed,
		model.RuleLastModified,
	}, kinds)
}

func TestWithStaleAfter(t *testing.T) {
	row := with(quietRow(), "lastModified", "1/17/2024, 9:00 AM")

	assert.Equal(t, model.NoColor, Evaluate(row, testRuleset(), false, refNow).Color)
	got := Evaluate(row, testRuleset(), false, refNow, WithStaleAfter(time.Hour))
	assert.Equal(t, model.RuleLastModified, got.Rule)
}
