package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/caselight/internal/model"
	"github.com/Veraticus/caselight/internal/testutil"
)

func TestUpsertAccountRule(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	_, err := UpsertAccountRule(ctx, store, "Acme Corp", "#FFEEDD")
	require.NoError(t, err)
	_, err = UpsertAccountRule(ctx, store, "Globex", "#abc")
	require.NoError(t, err)

	rules, err := UpsertAccountRule(ctx, store, "  acme corp ", "#112233")
	require.NoError(t, err)

	assert.Equal(t, []model.AccountRule{
		{AccountName: "Acme Corp", Color: "#112233"},
		{AccountName: "Globex", Color: "#abc"},
	}, rules)

	loaded, err := Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, rules, loaded.Rules.Accounts)
}

func TestUpsertAccountRule_Validation(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	_, err := UpsertAccountRule(ctx, store, "   ", "#ffffff")
	assert.ErrorIs(t, err, ErrEmptyAccountName)

	_, err = UpsertAccountRule(ctx, store, "Acme", "red")
	assert.Error(t, err)
}

func TestDeleteAccountRule(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		_, err := UpsertAccountRule(ctx, store, name, "#000000")
		require.NoError(t, err)
	}

	rules, err := DeleteAccountRule(ctx, store, 1)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "A", rules[0].AccountName)
	assert.Equal(t, "C", rules[1].AccountName)

	_, err = DeleteAccountRule(ctx, store, 5)
	assert.ErrorIs(t, err, ErrRuleIndex)
}

func TestUpdateRule(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	rule, err := UpdateRule(ctx, store, KeyLastModified, func(r *model.BuiltinRule) {
		r.Enabled = false
	})
	require.NoError(t, err)
	assert.Equal(t, model.BuiltinRule{Enabled: false, Color: "#ffcdd2"}, rule)

	loaded, err := Load(ctx, store)
	require.NoError(t, err)
	assert.False(t, loaded.Rules.LastModified.Enabled)

	_, err = UpdateRule(ctx, store, "nope", func(*model.BuiltinRule) {})
	assert.ErrorIs(t, err, ErrUnknownRule)
}

func TestSaveRuleset(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	rs := Defaults().Rules
	rs.Platinum = model.BuiltinRule{Enabled: false, Color: "#ABCDEF"}
	rs.Accounts = []model.AccountRule{{AccountName: " Initech ", Color: "#010203"}}
	require.NoError(t, SaveRuleset(ctx, store, rs))

	loaded, err := Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, model.BuiltinRule{Enabled: false, Color: "#abcdef"}, loaded.Rules.Platinum)
	assert.Equal(t, []model.AccountRule{{AccountName: "Initech", Color: "#010203"}}, loaded.Rules.Accounts)

	rs.Accounts = []model.AccountRule{{AccountName: "", Color: "#010203"}}
	assert.ErrorIs(t, SaveRuleset(ctx, store, rs), ErrEmptyAccountName)
}

func TestRefreshSettings(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	require.NoError(t, EnableRefresh(ctx, store, "https://example.test/cases", 0))
	loaded, err := Load(ctx, store)
	require.NoError(t, err)
	assert.True(t, loaded.Refresh.Enabled)
	assert.Equal(t, DefaultRefreshInterval, loaded.Refresh.Interval)
	assert.Equal(t, "https://example.test/cases", loaded.Refresh.Target)

	at := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	require.NoError(t, RecordRefresh(ctx, store, at))
	require.NoError(t, DisableRefresh(ctx, store))

	loaded, err = Load(ctx, store)
	require.NoError(t, err)
	assert.False(t, loaded.Refresh.Enabled)
	assert.Empty(t, loaded.Refresh.Target)
	require.NotNil(t, loaded.Refresh.LastRefresh)
	assert.True(t, at.Equal(*loaded.Refresh.LastRefresh))

	assert.Error(t, EnableRefresh(ctx, store, " ", 5))
}
