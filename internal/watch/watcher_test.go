package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/caselight/internal/model"
	"github.com/Veraticus/caselight/internal/synchronizer"
	"github.com/Veraticus/caselight/internal/view"
)

const twoRows = `<html><body><table role="grid">
<thead><tr><th>Case Number</th><th>Status</th></tr></thead>
<tbody><tr><td>00001</td><td>New</td></tr><tr><td>00002</td><td>Closed</td></tr></tbody>
</table></body></html>`

type recorder struct {
	signals []synchronizer.SignalKind
	mu      sync.Mutex
}

func (r *recorder) Signal(kind synchronizer.SignalKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, kind)
}

func (r *recorder) all() []synchronizer.SignalKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]synchronizer.SignalKind(nil), r.signals...)
}

func newTestWatcher(t *testing.T, contents string) (*FileWatcher, *view.File, *recorder, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.html")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	file := view.NewFile(path, "")
	rec := &recorder{}
	w, err := New(file, rec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, file, rec, path
}

func TestClassify(t *testing.T) {
	w, file, _, path := newTestWatcher(t, twoRows)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	w.remember(data)

	_, ok := w.Classify(data)
	assert.False(t, ok, "unchanged content")

	added := strings.Replace(twoRows, "</tbody>", "<tr><td>00003</td><td>New</td></tr></tbody>", 1)
	kind, ok := w.Classify([]byte(added))
	assert.True(t, ok)
	assert.Equal(t, synchronizer.SignalStructural, kind)

	restyled := strings.Replace(added, "<body>", `<body class="slds">`, 1)
	kind, ok = w.Classify([]byte(restyled))
	assert.True(t, ok)
	assert.Equal(t, synchronizer.SignalUnrecognized, kind)

	doc, err := file.Load(context.Background())
	require.NoError(t, err)
	rows, err := doc.Rows()
	require.NoError(t, err)
	rows[0].Apply(model.Decision{Color: "#ffecb3"}, "")
	require.NoError(t, file.Save(context.Background(), doc))

	own, err := os.ReadFile(path)
	require.NoError(t, err)
	_, ok = w.Classify(own)
	assert.False(t, ok, "content written by the synchronizer")
}

func TestClassify_NoGrid(t *testing.T) {
	w, _, _, _ := newTestWatcher(t, `<p>loading</p>`)

	kind, ok := w.Classify([]byte(`<p>still loading</p>`))
	assert.True(t, ok)
	assert.Equal(t, synchronizer.SignalUnrecognized, kind)
}

func TestFileWatcher_Events(t *testing.T) {
	w, _, rec, path := newTestWatcher(t, twoRows)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	added := strings.Replace(twoRows, "</tbody>", "<tr><td>00003</td><td>New</td></tr></tbody>", 1)
	require.NoError(t, os.WriteFile(path, []byte(added), 0o600))

	require.Eventually(t, func() bool {
		for _, s := range rec.all() {
			if s == synchronizer.SignalStructural {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.html"), []byte(twoRows), 0o600))
	time.Sleep(100 * time.Millisecond)
	for _, s := range rec.all() {
		assert.NotEqual(t, synchronizer.SignalCosmetic, s)
	}
}

func TestFileWatcher_Removed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.html")
	require.NoError(t, os.WriteFile(path, []byte(twoRows), 0o600))

	removed := make(chan string, 1)
	w, err := New(view.NewFile(path, ""), &recorder{}, OnRemoved(func(p string) {
		select {
		case removed <- p:
		default:
		}
	}))
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.Remove(path))

	select {
	case p := <-removed:
		abs, _ := filepath.Abs(path)
		assert.Equal(t, abs, p)
	case <-time.After(5 * time.Second):
		t.Fatal("removal not reported")
	}
}
