// Package settings decodes the persisted configuration store into typed
// snapshots, applying documented defaults for missing keys.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/caselight/internal/model"
	"github.com/Veraticus/caselight/internal/service"
)

// Store keys.
const (
	KeyHighlightEnabled = "highlightEnabled"
	KeyAccountRules     = "accountColorRules"
	KeyActionNeeded     = "actionNeededRule"
	KeyPlatinum         = "platinumRule"
	KeyFirstResponse    = "firstResponseRule"
	KeyJiraClosed       = "jiraStatusReleasedRule"
	KeyLastModified     = "lastModifiedRule"
	KeyRefreshEnabled   = "refreshEnabled"
	KeyRefreshInterval  = "refreshInterval"
	KeyRefreshTarget    = "refreshTarget"

	// KeyLastRefreshTime lives in the local namespace.
	KeyLastRefreshTime = "lastRefreshTime"
)

// DefaultRefreshInterval is the refresh period in minutes.
const DefaultRefreshInterval = 5

// ErrUnknownRule is returned for builtin rule names that do not exist.
var ErrUnknownRule = errors.New("unknown rule")

// ErrEmptyAccountName is returned when an account rule has no name.
var ErrEmptyAccountName = errors.New("account name cannot be empty")

// ErrRuleIndex is returned when an account rule index is out of range.
var ErrRuleIndex = errors.New("account rule index out of range")

// Defaults returns the settings used when the store is empty.
func Defaults() model.Settings {
	return model.Settings{
		Enabled: true,
		Rules: model.Ruleset{
			ActionNeeded:  model.BuiltinRule{Enabled: true, Color: "#ef9a9a"},
			Platinum:      model.BuiltinRule{Enabled: true, Color: "#e1bee7"},
			FirstResponse: model.BuiltinRule{Enabled: true, Color: "#ffecb3"},
			JiraClosed:    model.BuiltinRule{Enabled: true, Color: "#c8e6c9"},
			LastModified:  model.BuiltinRule{Enabled: true, Color: "#ffcdd2"},
		},
		Refresh: model.RefreshSettings{
			Enabled:  false,
			Interval: DefaultRefreshInterval,
		},
	}
}

// BuiltinRuleKeys lists the store key of every builtin rule in priority order.
var BuiltinRuleKeys = []string{
	KeyActionNeeded,
	KeyPlatinum,
	KeyFirstResponse,
	KeyJiraClosed,
	KeyLastModified,
}

// ruleAliases maps short CLI names to builtin rule keys.
var ruleAliases = map[string]string{
	"action-needed":  KeyActionNeeded,
	"platinum":       KeyPlatinum,
	"first-response": KeyFirstResponse,
	"jira-closed":    KeyJiraClosed,
	"last-modified":  KeyLastModified,
}

// ResolveRuleKey accepts either a store key or a short alias.
func ResolveRuleKey(name string) (string, error) {
	name = strings.TrimSpace(name)
	if key, ok := ruleAliases[strings.ToLower(name)]; ok {
		return key, nil
	}
	for _, key := range BuiltinRuleKeys {
		if key == name {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRule, name)
}

// RuleField returns a pointer to the builtin rule stored under key.
func RuleField(rs *model.Ruleset, key string) (*model.BuiltinRule, error) {
	switch key {
	case KeyActionNeeded:
		return &rs.ActionNeeded, nil
	case KeyPlatinum:
		return &rs.Platinum, nil
	case KeyFirstResponse:
		return &rs.FirstResponse, nil
	case KeyJiraClosed:
		return &rs.JiraClosed, nil
	case KeyLastModified:
		return &rs.LastModified, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRule, key)
}

// Load reads a settings snapshot from store. Missing keys fall back to
// Defaults; undecodable values are logged and also fall back.
func Load(ctx context.Context, store service.Store) (model.Settings, error) {
	s := Defaults()

	values, err := store.Get(ctx, service.NamespaceSync)
	if err != nil {
		return s, fmt.Errorf("failed to load settings: %w", err)
	}

	decode(values, KeyHighlightEnabled, &s.Enabled)
	decode(values, KeyAccountRules, &s.Rules.Accounts)
	for _, key := range BuiltinRuleKeys {
		field, _ := RuleField(&s.Rules, key)
		decode(values, key, field)
	}
	decode(values, KeyRefreshEnabled, &s.Refresh.Enabled)
	decode(values, KeyRefreshInterval, &s.Refresh.Interval)
	decode(values, KeyRefreshTarget, &s.Refresh.Target)
	if s.Refresh.Interval <= 0 {
		s.Refresh.Interval = DefaultRefreshInterval
	}

	local, err := store.Get(ctx, service.NamespaceLocal, KeyLastRefreshTime)
	if err != nil {
		return s, fmt.Errorf("failed to load local settings: %w", err)
	}
	var last string
	if decode(local, KeyLastRefreshTime, &last) && last != "" {
		if t, err := time.Parse(time.RFC3339, last); err == nil {
			s.Refresh.LastRefresh = &t
		}
	}

	return s, nil
}

// decode unmarshals values[key] into dst, leaving dst untouched on absence
// or failure. It reports whether dst was set.
func decode(values map[string]json.RawMessage, key string, dst any) bool {
	raw, ok := values[key]
	if !ok || string(raw) == "null" {
		return false
	}

	tmp, err := decodeInto(raw, dst)
	if err != nil {
		slog.Warn("Ignoring undecodable setting, using default", "key", key, "error", err)
		return false
	}
	tmp()
	return true
}

// decodeInto decodes into a fresh value of dst's type and returns a commit
// function, so a partial decode never clobbers the default.
func decodeInto(raw json.RawMessage, dst any) (func(), error) {
	switch d := dst.(type) {
	case *bool:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return func() { *d = v }, nil
	case *int:
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return func() { *d = v }, nil
	case *string:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return func() { *d = v }, nil
	case *model.BuiltinRule:
		v := *d
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return func() { *d = v }, nil
	case *[]model.AccountRule:
		var v []model.AccountRule
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return func() { *d = v }, nil
	}
	return nil, fmt.Errorf("unsupported setting type %T", dst)
}
