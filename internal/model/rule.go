package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Color is a CSS hex color such as "#ffecb3". The zero value means no color.
type Color string

// NoColor is the absence of a background color.
const NoColor Color = ""

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Valid reports whether c is a #rgb or #rrggbb hex color.
func (c Color) Valid() bool {
	return hexColorRe.MatchString(string(c))
}

// Normalize lower-cases the color and validates it.
func (c Color) Normalize() (Color, error) {
	n := Color(strings.ToLower(strings.TrimSpace(string(c))))
	if !n.Valid() {
		return NoColor, fmt.Errorf("invalid color %q: expected #rgb or #rrggbb", string(c))
	}
	return n, nil
}

// BuiltinRule is a toggleable rule bound to a fixed condition.
type BuiltinRule struct {
	Color   Color `json:"color" yaml:"color"`
	Enabled bool  `json:"enabled" yaml:"enabled"`
}

// AccountRule colors rows whose account name matches AccountName, ignoring case.
type AccountRule struct {
	AccountName string `json:"accountName" yaml:"accountName"`
	Color       Color  `json:"color" yaml:"color"`
}

// Ruleset is an immutable snapshot of all rule configuration.
type Ruleset struct {
	Accounts      []AccountRule `json:"accountColorRules" yaml:"accountColorRules"`
	ActionNeeded  BuiltinRule   `json:"actionNeededRule" yaml:"actionNeededRule"`
	Platinum      BuiltinRule   `json:"platinumRule" yaml:"platinumRule"`
	FirstResponse BuiltinRule   `json:"firstResponseRule" yaml:"firstResponseRule"`
	JiraClosed    BuiltinRule   `json:"jiraStatusReleasedRule" yaml:"jiraStatusReleasedRule"`
	LastModified  BuiltinRule   `json:"lastModifiedRule" yaml:"lastModifiedRule"`
}

// Clone returns a deep copy of the ruleset.
func (r Ruleset) Clone() Ruleset {
	out := r
	if r.Accounts != nil {
		out.Accounts = make([]AccountRule, len(r.Accounts))
		copy(out.Accounts, r.Accounts)
	}
	return out
}

// WithoutRules returns the ruleset with every builtin rule disabled and no account rules.
func (r Ruleset) WithoutRules() Ruleset {
	out := r.Clone()
	out.Accounts = nil
	out.ActionNeeded.Enabled = false
	out.Platinum.Enabled = false
	out.FirstResponse.Enabled = false
	out.JiraClosed.Enabled = false
	out.LastModified.Enabled = false
	return out
}
