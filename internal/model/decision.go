package model

import "time"

// RuleKind identifies which rule produced a decision.
type RuleKind string

// Rule kinds in descending priority.
const (
	RuleNone          RuleKind = ""
	RuleActionNeeded  RuleKind = "action_needed"
	RulePlatinum      RuleKind = "platinum"
	RuleAccount       RuleKind = "account"
	RuleFirstResponse RuleKind = "first_response"
	RuleJiraClosed    RuleKind = "jira_closed"
	RuleLastModified  RuleKind = "last_modified"
)

// Decision is the outcome of evaluating one row.
type Decision struct {
	Color      Color
	Rule       RuleKind
	HasNote    bool
	IsPlatinum bool
}

// Colored reports whether the decision assigns a background color.
func (d Decision) Colored() bool {
	return d.Color != NoColor
}

// Note is a free-text annotation attached to a case.
type Note struct {
	CaseNumber string `json:"caseNumber"`
	Text       string `json:"text"`
}

// RefreshSettings configures the periodic reload of the view target.
type RefreshSettings struct {
	LastRefresh *time.Time
	Target      string
	Interval    int
	Enabled     bool
}

// Settings is the full persisted configuration snapshot.
type Settings struct {
	Rules   Ruleset
	Refresh RefreshSettings
	Enabled bool
}

// Clone returns a deep copy of the settings.
func (s Settings) Clone() Settings {
	out := s
	out.Rules = s.Rules.Clone()
	if s.Refresh.LastRefresh != nil {
		t := *s.Refresh.LastRefresh
		out.Refresh.LastRefresh = &t
	}
	return out
}
