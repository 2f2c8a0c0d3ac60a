package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRow_Get(t *testing.T) {
	row := Row{
		ColumnAccountName: "  Acme Corp ",
		ColumnStatus:      "",
	}

	tests := []struct {
		name   string
		col    Column
		want   string
		wantOK bool
	}{
		{name: "trimmed value", col: ColumnAccountName, want: "Acme Corp", wantOK: true},
		{name: "present but empty", col: ColumnStatus, want: "", wantOK: true},
		{name: "absent column", col: ColumnJiraStatus, want: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := row.Get(tt.col)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestRow_Fold(t *testing.T) {
	row := Row{ColumnJiraStatus: " Released "}

	got, ok := row.Fold(ColumnJiraStatus)
	assert.True(t, ok)
	assert.Equal(t, "released", got)

	_, ok = row.Fold(ColumnStatus)
	assert.False(t, ok)
}

func TestRow_CaseNumber(t *testing.T) {
	assert.Equal(t, "00123", Row{ColumnCaseNumber: " 00123"}.CaseNumber())
	assert.Empty(t, Row{}.CaseNumber())
}

func TestRow_Fingerprint(t *testing.T) {
	a := Row{ColumnCaseNumber: "1", ColumnStatus: "New"}
	b := Row{ColumnStatus: "New", ColumnCaseNumber: "1"}
	c := Row{ColumnCaseNumber: "1", ColumnStatus: "Closed"}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)
}
