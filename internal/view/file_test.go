package view

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/caselight/internal/model"
)

func TestFile_LoadSave(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "cases.html")
	require.NoError(t, os.WriteFile(in, []byte(listView), 0o600))

	tests := []struct {
		name    string
		output  string
		inPlace bool
	}{
		{name: "in place", output: "", inPlace: true},
		{name: "separate output", output: filepath.Join(dir, "out.html"), inPlace: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := NewFile(in, tt.output)
			assert.Equal(t, tt.inPlace, f.InPlace())

			doc, err := f.Load(ctx)
			require.NoError(t, err)
			rows, err := doc.Rows()
			require.NoError(t, err)
			rows[0].Apply(model.Decision{Color: "#ffecb3"}, "")

			require.NoError(t, f.Save(ctx, doc))

			written, err := os.ReadFile(f.Output())
			require.NoError(t, err)
			assert.Contains(t, string(written), "background-color: #ffecb3")
			assert.True(t, f.WroteContent(written))
			assert.False(t, f.WroteContent([]byte(listView)))
		})
	}
}

func TestFile_LoadMissing(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "missing.html"), "")
	_, err := f.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
