package synchronizer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/caselight/internal/common"
	"github.com/Veraticus/caselight/internal/model"
	"github.com/Veraticus/caselight/internal/notes"
	"github.com/Veraticus/caselight/internal/settings"
	"github.com/Veraticus/caselight/internal/testutil"
	"github.com/Veraticus/caselight/internal/view"
)

const caseList = `<html><body><table role="grid">
<thead><tr><th>Case Number</th><th>Account Name</th><th>First Response</th><th>JIRA Status</th><th>Account Support Tier</th></tr></thead>
<tbody>
<tr><td>00001</td><td>Acme</td><td></td><td>Open</td><td>Standard</td></tr>
<tr><td>00002</td><td>Globex</td><td>Replied</td><td>Released</td><td>Standard</td></tr>
<tr><td>00003</td><td>Initech</td><td>Replied</td><td>Open</td><td>Platinum Support</td></tr>
</tbody></table></body></html>`

type memSource struct {
	onLoad func()
	html   string
	loads  int
	saves  int
	active int
	peak   int
	mu     sync.Mutex
}

func (m *memSource) Load(_ context.Context) (*view.Document, error) {
	m.mu.Lock()
	m.loads++
	m.active++
	if m.active > m.peak {
		m.peak = m.active
	}
	html, hook := m.html, m.onLoad
	m.mu.Unlock()

	if hook != nil {
		hook()
	}

	m.mu.Lock()
	m.active--
	m.mu.Unlock()
	return view.ParseString(html)
}

func (m *memSource) Save(_ context.Context, doc *view.Document) error {
	data, err := doc.Bytes()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.html = string(data)
	m.saves++
	return nil
}

func (m *memSource) set(html string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.html = html
}

func (m *memSource) get() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.html
}

type staticSettings struct {
	s  model.Settings
	mu sync.Mutex
}

func (s *staticSettings) Snapshot() model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s.Clone()
}

func (s *staticSettings) update(fn func(*model.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.s)
}

type staticNotes struct {
	n notes.Snapshot
}

func (n staticNotes) Snapshot() notes.Snapshot { return n.n }

type harness struct {
	sync     *Synchronizer
	clock    *testutil.FakeClock
	source   *memSource
	settings *staticSettings
	results  []Result
	errs     []error
	config   Config
}

func newHarness(t *testing.T, html string, noteSnap notes.Snapshot, mutate func(*Config)) *harness {
	t.Helper()
	h := &harness{
		clock:    testutil.NewFakeClock(time.Date(2024, 10, 15, 12, 0, 0, 0, time.Local)),
		source:   &memSource{html: html},
		settings: &staticSettings{s: settings.Defaults()},
		config:   DefaultConfig(),
	}
	h.config.MaxRetries = 3
	if mutate != nil {
		mutate(&h.config)
	}
	h.sync = New(h.source, h.settings, staticNotes{n: noteSnap}, h.config,
		WithClock(h.clock),
		WithPassHook(func(r Result, err error) {
			h.results = append(h.results, r)
			h.errs = append(h.errs, err)
		}),
	)
	h.sync.Start(context.Background())
	t.Cleanup(h.sync.Stop)
	return h
}

func (h *harness) last() Result {
	return h.results[len(h.results)-1]
}

func TestSynchronizer_InitialPass(t *testing.T) {
	h := newHarness(t, caseList, nil, nil)

	h.clock.Advance(h.config.InitialDelay - time.Millisecond)
	assert.Equal(t, 0, h.sync.Passes())

	h.clock.Advance(time.Millisecond)
	require.Equal(t, 1, h.sync.Passes())
	require.NoError(t, h.errs[0])

	res := h.last()
	require.Len(t, res.Rows, 3)
	assert.True(t, res.Changed)
	assert.NotEmpty(t, res.PassID)

	tests := []struct {
		want     model.Color
		rule     model.RuleKind
		platinum bool
	}{
		{want: "#ffecb3", rule: model.RuleFirstResponse},
		{want: "#c8e6c9", rule: model.RuleJiraClosed},
		{want: "#e1bee7", rule: model.RulePlatinum, platinum: true},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.want, res.Rows[i].Decision.Color, "row %d", i)
		assert.Equal(t, tt.rule, res.Rows[i].Decision.Rule, "row %d", i)
		assert.Equal(t, tt.platinum, res.Rows[i].Decision.IsPlatinum, "row %d", i)
	}
	assert.Contains(t, h.source.get(), "background-color: #ffecb3")
}

func TestSynchronizer_DebounceCollapse(t *testing.T) {
	h := newHarness(t, caseList, nil, nil)
	h.clock.Advance(h.config.InitialDelay)
	require.Equal(t, 1, h.sync.Passes())

	for i := 0; i < 5; i++ {
		if i == 4 {
			h.source.set(strings.Replace(caseList, "<td></td>", "<td>Replied</td>", 1))
		}
		h.sync.Signal(SignalStructural)
		h.clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, 1, h.sync.Passes(), "no pass before the debounce window closes")

	h.clock.Advance(h.config.Debounce)
	assert.Equal(t, 2, h.sync.Passes())
	assert.Equal(t, 0, h.clock.Pending())

	res := h.last()
	assert.Equal(t, model.NoColor, res.Rows[0].Decision.Color, "pass sees the state at fire time")
}

func TestSynchronizer_SignalDuringPassQueuesOneMore(t *testing.T) {
	h := newHarness(t, caseList, nil, nil)

	var runOnceErr error
	first := true
	h.source.onLoad = func() {
		if !first {
			return
		}
		first = false
		h.sync.Signal(SignalStructural)
		h.sync.Signal(SignalSettings)
		_, runOnceErr = h.sync.RunOnce(context.Background())
	}

	h.clock.Advance(h.config.InitialDelay)
	assert.Equal(t, 1, h.sync.Passes())
	assert.ErrorIs(t, runOnceErr, ErrPassRunning)
	assert.Equal(t, 1, h.clock.Pending())

	h.clock.Advance(h.config.Debounce)
	assert.Equal(t, 2, h.sync.Passes())
	assert.Equal(t, 0, h.clock.Pending())
	assert.Equal(t, 1, h.source.peak)
}

func TestSynchronizer_CosmeticSignalsIgnored(t *testing.T) {
	h := newHarness(t, caseList, nil, nil)
	h.clock.Advance(h.config.InitialDelay)

	h.sync.Signal(SignalCosmetic)
	assert.Equal(t, 0, h.clock.Pending())

	h.clock.Advance(time.Minute)
	assert.Equal(t, 1, h.sync.Passes())
}

func TestSynchronizer_RetryCap(t *testing.T) {
	h := newHarness(t, `<html><body><p>Loading</p></body></html>`, nil, nil)

	h.clock.Advance(h.config.InitialDelay)
	for i := 0; i < h.config.MaxRetries; i++ {
		h.clock.Advance(h.config.Debounce)
	}
	assert.Equal(t, 1+h.config.MaxRetries, h.sync.Passes())
	for _, err := range h.errs {
		assert.ErrorIs(t, err, common.ErrViewIncomplete)
	}

	h.clock.Advance(time.Minute)
	assert.Equal(t, 1+h.config.MaxRetries, h.sync.Passes(), "idle after the cap")
	assert.Equal(t, 0, h.clock.Pending())

	h.sync.Signal(SignalUnrecognized)
	assert.Equal(t, 0, h.clock.Pending(), "unrecognized signals stay idle after the cap")

	h.source.set(caseList)
	h.sync.Signal(SignalStructural)
	assert.Equal(t, 0, h.sync.Retries())
	h.clock.Advance(h.config.Debounce)
	assert.Equal(t, 2+h.config.MaxRetries, h.sync.Passes())
	assert.NoError(t, h.errs[len(h.errs)-1])
}

func TestSynchronizer_UnrecognizedSignalsBounded(t *testing.T) {
	h := newHarness(t, caseList, nil, nil)
	h.clock.Advance(h.config.InitialDelay)

	for i := 0; i < h.config.MaxRetries+2; i++ {
		h.sync.Signal(SignalUnrecognized)
		h.clock.Advance(h.config.Debounce)
	}
	assert.Equal(t, 1+h.config.MaxRetries, h.sync.Passes())
	assert.Equal(t, h.config.MaxRetries, h.sync.Retries())
}

func TestSynchronizer_NoteSuppressesColor(t *testing.T) {
	h := newHarness(t, caseList, notes.Snapshot{"00001": "waiting on customer"}, nil)
	h.clock.Advance(h.config.InitialDelay)

	res := h.last()
	assert.Equal(t, model.NoColor, res.Rows[0].Decision.Color)
	assert.True(t, res.Rows[0].Decision.HasNote)
	assert.Equal(t, "waiting on customer", res.Rows[0].Note)

	doc, err := view.ParseString(h.source.get())
	require.NoError(t, err)
	rows, err := doc.Rows()
	require.NoError(t, err)
	hasNote, title, ok := rows[0].NoteIndicator()
	assert.True(t, ok)
	assert.True(t, hasNote)
	assert.Equal(t, "waiting on customer", title)
	assert.Equal(t, model.NoColor, rows[0].Background())
}

func TestSynchronizer_DisabledRunsCleanup(t *testing.T) {
	h := newHarness(t, caseList, nil, nil)
	h.clock.Advance(h.config.InitialDelay)
	require.Contains(t, h.source.get(), "background-color")

	h.settings.update(func(s *model.Settings) { s.Enabled = false })
	h.sync.Signal(SignalSettings)
	h.clock.Advance(h.config.Debounce)

	res := h.last()
	assert.True(t, res.Disabled)
	assert.Equal(t, 3, res.Cleaned)
	assert.Empty(t, res.Rows)

	out := h.source.get()
	assert.NotContains(t, out, "background-color")
	assert.NotContains(t, out, view.NoteClass)
	assert.NotContains(t, out, view.PlatinumClass)
}

func TestSynchronizer_UnchangedViewNotRewritten(t *testing.T) {
	h := newHarness(t, caseList, nil, nil)
	h.clock.Advance(h.config.InitialDelay)
	require.Equal(t, 1, h.source.saves)

	h.sync.Signal(SignalApply)
	h.clock.Advance(h.config.Debounce)
	assert.Equal(t, 2, h.sync.Passes())
	assert.False(t, h.last().Changed)
	assert.Equal(t, 1, h.source.saves)
}

func TestSynchronizer_StopCancelsPending(t *testing.T) {
	h := newHarness(t, caseList, nil, nil)
	h.sync.Stop()

	h.clock.Advance(time.Minute)
	assert.Equal(t, 0, h.sync.Passes())

	h.sync.Signal(SignalApply)
	assert.Equal(t, 0, h.clock.Pending())
}

func TestSynchronizer_RunOnce(t *testing.T) {
	src := &memSource{html: caseList}
	s := New(src, &staticSettings{s: settings.Defaults()}, staticNotes{}, DefaultConfig(),
		WithClock(testutil.NewFakeClock(time.Date(2024, 10, 15, 12, 0, 0, 0, time.Local))))

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
	assert.Equal(t, 1, s.Passes())
}
