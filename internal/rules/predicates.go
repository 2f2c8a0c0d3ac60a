package rules

import (
	"strings"
	"time"

	"github.com/Veraticus/caselight/internal/datetime"
	"github.com/Veraticus/caselight/internal/model"
)

// Status and tier values the builtin predicates compare against, lower-cased.
const (
	StatusTechnicalIssue = "technical issue/bug"
	TierPlatinum         = "platinum support"
)

// DefaultStaleAfter is the age after which a case counts as stale.
const DefaultStaleAfter = 24 * time.Hour

// closedJiraStatuses is the set of JIRA statuses that count as closed.
var closedJiraStatuses = map[string]bool{
	"released":  true,
	"done":      true,
	"cancelled": true,
	"canceled":  true,
}

// equalsFold reports whether the column is present and equals want ignoring case.
func equalsFold(row model.Row, col model.Column, want string) bool {
	v, ok := row.Fold(col)
	return ok && v == want
}

// JiraClosed reports whether the row's JIRA status is released, done or cancelled.
func JiraClosed(row model.Row) bool {
	v, ok := row.Fold(model.ColumnJiraStatus)
	return ok && closedJiraStatuses[v]
}

// Stale reports whether the row was last modified strictly more than
// staleAfter before now. Missing or unparsable dates are never stale.
func Stale(row model.Row, now time.Time, staleAfter time.Duration) bool {
	v, ok := row.Get(model.ColumnLastModified)
	if !ok || v == "" {
		return false
	}
	return datetime.OlderThan(v, now, staleAfter)
}

// ActionNeeded reports whether a closed JIRA is attached to a stale
// technical issue. Every one of the three signals is required.
func ActionNeeded(row model.Row, now time.Time, staleAfter time.Duration) bool {
	return JiraClosed(row) &&
		equalsFold(row, model.ColumnStatus, StatusTechnicalIssue) &&
		Stale(row, now, staleAfter)
}

// Platinum reports whether the row's account has platinum support.
func Platinum(row model.Row) bool {
	return equalsFold(row, model.ColumnSupportTier, TierPlatinum)
}

// FirstResponseEmpty reports whether the first response is absent, empty or whitespace.
func FirstResponseEmpty(row model.Row) bool {
	v, _ := row.Get(model.ColumnFirstResponse)
	return v == ""
}

// MatchAccount returns the color of the first account rule whose name
// equals the row's account name, ignoring case and surrounding whitespace.
func MatchAccount(row model.Row, accounts []model.AccountRule) (model.Color, bool) {
	name, ok := row.Fold(model.ColumnAccountName)
	if !ok || name == "" {
		return model.NoColor, false
	}

	for _, rule := range accounts {
		ruleName := strings.ToLower(strings.TrimSpace(rule.AccountName))
		if ruleName != "" && ruleName == name {
			return rule.Color, true
		}
	}
	return model.NoColor, false
}
