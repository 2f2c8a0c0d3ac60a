package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/caselight/internal/model"
	"github.com/Veraticus/caselight/internal/service"
)

// SaveRule stores a builtin rule under key after validating its color.
func SaveRule(ctx context.Context, store service.Store, key string, rule model.BuiltinRule) error {
	if _, err := RuleField(&model.Ruleset{}, key); err != nil {
		return err
	}
	color, err := rule.Color.Normalize()
	if err != nil {
		return err
	}
	rule.Color = color
	return store.Set(ctx, service.NamespaceSync, map[string]any{key: rule})
}

// UpdateRule loads the rule under key, applies fn and saves the result.
func UpdateRule(ctx context.Context, store service.Store, key string, fn func(*model.BuiltinRule)) (model.BuiltinRule, error) {
	current, err := Load(ctx, store)
	if err != nil {
		return model.BuiltinRule{}, err
	}
	field, err := RuleField(&current.Rules, key)
	if err != nil {
		return model.BuiltinRule{}, err
	}

	rule := *field
	fn(&rule)
	if err := SaveRule(ctx, store, key, rule); err != nil {
		return model.BuiltinRule{}, err
	}
	return rule, nil
}

// UpsertAccountRule updates the color of the rule whose name matches
// accountName ignoring case, or appends a new rule.
func UpsertAccountRule(ctx context.Context, store service.Store, accountName string, color model.Color) ([]model.AccountRule, error) {
	accountName = strings.TrimSpace(accountName)
	if accountName == "" {
		return nil, ErrEmptyAccountName
	}
	color, err := color.Normalize()
	if err != nil {
		return nil, err
	}

	current, err := Load(ctx, store)
	if err != nil {
		return nil, err
	}

	rules := current.Rules.Accounts
	updated := false
	for i := range rules {
		if strings.EqualFold(strings.TrimSpace(rules[i].AccountName), accountName) {
			rules[i].Color = color
			updated = true
			break
		}
	}
	if !updated {
		rules = append(rules, model.AccountRule{AccountName: accountName, Color: color})
	}

	if err := store.Set(ctx, service.NamespaceSync, map[string]any{KeyAccountRules: rules}); err != nil {
		return nil, err
	}
	return rules, nil
}

// DeleteAccountRule removes the account rule at index.
func DeleteAccountRule(ctx context.Context, store service.Store, index int) ([]model.AccountRule, error) {
	current, err := Load(ctx, store)
	if err != nil {
		return nil, err
	}

	rules := current.Rules.Accounts
	if index < 0 || index >= len(rules) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrRuleIndex, index, len(rules))
	}

	rules = append(rules[:index:index], rules[index+1:]...)
	if err := store.Set(ctx, service.NamespaceSync, map[string]any{KeyAccountRules: rules}); err != nil {
		return nil, err
	}
	return rules, nil
}

// SaveRuleset replaces the whole ruleset.
func SaveRuleset(ctx context.Context, store service.Store, rs model.Ruleset) error {
	values := make(map[string]any, len(BuiltinRuleKeys)+1)
	for _, key := range BuiltinRuleKeys {
		field, _ := RuleField(&rs, key)
		color, err := field.Color.Normalize()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		field.Color = color
		values[key] = *field
	}

	accounts := make([]model.AccountRule, 0, len(rs.Accounts))
	for i, rule := range rs.Accounts {
		name := strings.TrimSpace(rule.AccountName)
		if name == "" {
			return fmt.Errorf("account rule %d: %w", i, ErrEmptyAccountName)
		}
		color, err := rule.Color.Normalize()
		if err != nil {
			return fmt.Errorf("account rule %d: %w", i, err)
		}
		accounts = append(accounts, model.AccountRule{AccountName: name, Color: color})
	}
	values[KeyAccountRules] = accounts

	return store.Set(ctx, service.NamespaceSync, values)
}

// SetEnabled toggles highlighting globally.
func SetEnabled(ctx context.Context, store service.Store, enabled bool) error {
	return store.Set(ctx, service.NamespaceSync, map[string]any{KeyHighlightEnabled: enabled})
}

// EnableRefresh turns on periodic reloading of target every intervalMinutes.
func EnableRefresh(ctx context.Context, store service.Store, target string, intervalMinutes int) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("refresh target cannot be empty")
	}
	if intervalMinutes <= 0 {
		intervalMinutes = DefaultRefreshInterval
	}
	return store.Set(ctx, service.NamespaceSync, map[string]any{
		KeyRefreshEnabled:  true,
		KeyRefreshInterval: intervalMinutes,
		KeyRefreshTarget:   target,
	})
}

// DisableRefresh turns off periodic reloading and clears the target.
func DisableRefresh(ctx context.Context, store service.Store) error {
	return store.Set(ctx, service.NamespaceSync, map[string]any{
		KeyRefreshEnabled: false,
		KeyRefreshTarget:  "",
	})
}

// RecordRefresh stores the time of the last successful reload.
func RecordRefresh(ctx context.Context, store service.Store, at time.Time) error {
	return store.Set(ctx, service.NamespaceLocal, map[string]any{
		KeyLastRefreshTime: at.UTC().Format(time.RFC3339),
	})
}
