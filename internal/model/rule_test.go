package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColor_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		input   Color
		want    Color
		wantErr bool
	}{
		{name: "six digits", input: "#FFECB3", want: "#ffecb3"},
		{name: "three digits", input: "#AbC", want: "#abc"},
		{name: "surrounding space", input: " #c8e6c9 ", want: "#c8e6c9"},
		{name: "missing hash", input: "ffecb3", wantErr: true},
		{name: "named color", input: "red", wantErr: true},
		{name: "wrong length", input: "#abcd", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.Normalize()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, NoColor, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleset_Clone(t *testing.T) {
	rs := Ruleset{
		Accounts: []AccountRule{{AccountName: "Acme", Color: "#111111"}},
		Platinum: BuiltinRule{Enabled: true, Color: "#e1bee7"},
	}

	clone := rs.Clone()
	clone.Accounts[0].Color = "#222222"
	clone.Platinum.Enabled = false

	assert.Equal(t, Color("#111111"), rs.Accounts[0].Color)
	assert.True(t, rs.Platinum.Enabled)
}

func TestRuleset_WithoutRules(t *testing.T) {
	rs := Ruleset{
		Accounts:      []AccountRule{{AccountName: "Acme", Color: "#111111"}},
		ActionNeeded:  BuiltinRule{Enabled: true, Color: "#ef9a9a"},
		FirstResponse: BuiltinRule{Enabled: true, Color: "#ffecb3"},
	}

	out := rs.WithoutRules()
	assert.Empty(t, out.Accounts)
	assert.False(t, out.ActionNeeded.Enabled)
	assert.False(t, out.FirstResponse.Enabled)
	assert.Equal(t, Color("#ffecb3"), out.FirstResponse.Color)
	assert.Len(t, rs.Accounts, 1)
}

func TestSettings_Clone(t *testing.T) {
	last := time.Date(2024, 10, 15, 9, 30, 0, 0, time.UTC)
	s := Settings{
		Enabled: true,
		Rules:   Ruleset{Accounts: []AccountRule{{AccountName: "Acme"}}},
		Refresh: RefreshSettings{LastRefresh: &last},
	}

	clone := s.Clone()
	*clone.Refresh.LastRefresh = last.Add(time.Hour)
	clone.Rules.Accounts[0].AccountName = "Globex"

	assert.Equal(t, last, *s.Refresh.LastRefresh)
	assert.Equal(t, "Acme", s.Rules.Accounts[0].AccountName)
}

func TestDecision_Colored(t *testing.T) {
	assert.False(t, Decision{}.Colored())
	assert.True(t, Decision{Color: "#fff", Rule: RuleAccount}.Colored())
}
