package consent

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls     []string
	analytics bool
	marketing bool
}

func (r *recorder) ShowBanner()    { r.calls = append(r.calls, "show") }
func (r *recorder) HideBanner()    { r.calls = append(r.calls, "hide") }
func (r *recorder) OpenSettings()  { r.calls = append(r.calls, "open") }
func (r *recorder) CloseSettings() { r.calls = append(r.calls, "close") }
func (r *recorder) SetCheckboxes(analytics, marketing bool) {
	r.analytics, r.marketing = analytics, marketing
}

func (r *recorder) EnableAnalytics()  { r.calls = append(r.calls, "analytics:on") }
func (r *recorder) DisableAnalytics() { r.calls = append(r.calls, "analytics:off") }
func (r *recorder) EnableMarketing()  { r.calls = append(r.calls, "marketing:on") }
func (r *recorder) DisableMarketing() { r.calls = append(r.calls, "marketing:off") }

type manualScheduler struct {
	delay     time.Duration
	pending   func()
	cancelled bool
}

func (s *manualScheduler) schedule(d time.Duration, f func()) func() bool {
	s.delay = d
	s.pending = f
	return func() bool {
		s.cancelled = true
		return true
	}
}

func (s *manualScheduler) fire() {
	if s.pending != nil && !s.cancelled {
		s.pending()
	}
}

type failingStorage struct{ *MemoryStorage }

func (failingStorage) Set(key, value string) error { return errors.New("quota exceeded") }

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestManager(storage Storage) (*Manager, *recorder, *manualScheduler) {
	rec := &recorder{}
	sched := &manualScheduler{}
	m := NewManager(storage, rec, rec,
		WithScheduler(sched.schedule),
		WithClock(func() time.Time { return fixedNow }),
	)
	return m, rec, sched
}

func storedDecision(t *testing.T, s *MemoryStorage) Decision {
	t.Helper()
	raw, ok, err := s.Get(StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	var d Decision
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	return d
}

func TestInit_UndecidedShowsBannerAfterDelay(t *testing.T) {
	m, rec, sched := newTestManager(NewMemoryStorage())

	m.Init()
	assert.Equal(t, BannerDelay, sched.delay)
	assert.False(t, m.BannerVisible())
	assert.Empty(t, rec.calls)

	sched.fire()
	assert.True(t, m.BannerVisible())
	assert.Equal(t, []string{"show"}, rec.calls)

	_, decided := m.Decision()
	assert.False(t, decided)
}

func TestInit_StoredDecisionIsAppliedWithoutBanner(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(StorageKey, `{"essential":true,"analytics":true,"marketing":false,"timestamp":"2026-01-02T03:04:05Z"}`))
	m, rec, sched := newTestManager(storage)

	m.Init()

	assert.Nil(t, sched.pending)
	assert.False(t, m.BannerVisible())
	assert.Equal(t, []string{"analytics:on", "marketing:off"}, rec.calls)
	assert.True(t, rec.analytics)
	assert.False(t, rec.marketing)

	d, ok := m.Decision()
	require.True(t, ok)
	assert.True(t, d.Analytics)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), d.Timestamp)
}

func TestInit_CorruptDecisionCountsAsUndecided(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(StorageKey, `{not json`))
	m, rec, sched := newTestManager(storage)

	m.Init()
	sched.fire()

	assert.True(t, m.BannerVisible())
	assert.Equal(t, []string{"show"}, rec.calls)
}

func TestAcceptAll(t *testing.T) {
	storage := NewMemoryStorage()
	m, rec, sched := newTestManager(storage)
	m.Init()
	sched.fire()

	require.NoError(t, m.AcceptAll())

	assert.False(t, m.BannerVisible())
	assert.Equal(t, Decision{Essential: true, Analytics: true, Marketing: true, Timestamp: fixedNow}, storedDecision(t, storage))
	assert.Equal(t, []string{"show", "analytics:on", "marketing:on", "hide"}, rec.calls)

	raw, _, _ := storage.Get(StorageKey)
	assert.Contains(t, raw, `"timestamp":"2026-03-01T09:30:00Z"`)
}

func TestAcceptEssential(t *testing.T) {
	storage := NewMemoryStorage()
	m, rec, _ := newTestManager(storage)
	m.Init()

	require.NoError(t, m.AcceptEssential())

	assert.Equal(t, Decision{Essential: true, Timestamp: fixedNow}, storedDecision(t, storage))
	assert.Equal(t, []string{"analytics:off", "marketing:off", "hide"}, rec.calls)
}

func TestDecisionBeforeDelayCancelsBanner(t *testing.T) {
	m, rec, sched := newTestManager(NewMemoryStorage())
	m.Init()

	require.NoError(t, m.AcceptEssential())
	sched.fire()

	assert.True(t, sched.cancelled)
	assert.False(t, m.BannerVisible())
	assert.NotContains(t, rec.calls, "show")
}

func TestBannerCallbackIgnoredOnceDecided(t *testing.T) {
	m, rec, sched := newTestManager(NewMemoryStorage())
	m.Init()
	require.NoError(t, m.AcceptAll())

	// A timer that already fired cannot be cancelled; the callback must not show the banner.
	sched.pending()

	assert.False(t, m.BannerVisible())
	assert.NotContains(t, rec.calls, "show")
}

func TestSaveSettings(t *testing.T) {
	storage := NewMemoryStorage()
	m, rec, sched := newTestManager(storage)
	m.Init()
	sched.fire()
	m.OpenSettings()
	require.True(t, m.SettingsOpen())

	require.NoError(t, m.SaveSettings(false, true))

	assert.False(t, m.SettingsOpen())
	assert.False(t, m.BannerVisible())
	assert.Equal(t, Decision{Essential: true, Marketing: true, Timestamp: fixedNow}, storedDecision(t, storage))
	assert.Equal(t, []string{"show", "open", "analytics:off", "marketing:on", "close", "hide"}, rec.calls)
	assert.False(t, rec.analytics)
	assert.True(t, rec.marketing)
}

func TestSaveSettings_OverwritesWholesale(t *testing.T) {
	storage := NewMemoryStorage()
	m, _, _ := newTestManager(storage)
	m.Init()

	require.NoError(t, m.AcceptAll())
	require.NoError(t, m.SaveSettings(false, false))

	d := storedDecision(t, storage)
	assert.False(t, d.Analytics)
	assert.False(t, d.Marketing)
	assert.True(t, d.Essential)
}

func TestCloseSettingsKeepsDecision(t *testing.T) {
	storage := NewMemoryStorage()
	m, _, _ := newTestManager(storage)
	m.Init()
	require.NoError(t, m.AcceptEssential())

	m.OpenSettings()
	m.CloseSettings()

	assert.False(t, m.SettingsOpen())
	d, ok := m.Decision()
	require.True(t, ok)
	assert.False(t, d.Analytics)
}

func TestEscape(t *testing.T) {
	m, rec, _ := newTestManager(NewMemoryStorage())
	m.Init()

	m.Escape()
	assert.Empty(t, rec.calls)

	m.OpenSettings()
	m.Escape()
	assert.False(t, m.SettingsOpen())
	assert.Equal(t, []string{"open", "close"}, rec.calls)
}

func TestDecisionAppliedWhenStorageFails(t *testing.T) {
	m, rec, _ := newTestManager(failingStorage{NewMemoryStorage()})
	m.Init()

	err := m.AcceptAll()

	assert.Error(t, err)
	d, ok := m.Decision()
	require.True(t, ok)
	assert.True(t, d.Marketing)
	assert.Contains(t, rec.calls, "analytics:on")
}

func TestReloadAfterDecision(t *testing.T) {
	storage := NewMemoryStorage()
	first, _, _ := newTestManager(storage)
	first.Init()
	require.NoError(t, first.AcceptAll())

	second, rec, sched := newTestManager(storage)
	second.Init()

	assert.Nil(t, sched.pending)
	assert.Equal(t, []string{"analytics:on", "marketing:on"}, rec.calls)
}

// reentrantView reads the Manager from inside its callbacks.
type reentrantView struct {
	recorder
	m           *Manager
	sawVisible  bool
	sawDecision bool
	sawSettings bool
}

func (v *reentrantView) ShowBanner() {
	v.recorder.ShowBanner()
	v.sawVisible = v.m.BannerVisible()
}

func (v *reentrantView) SetCheckboxes(analytics, marketing bool) {
	v.recorder.SetCheckboxes(analytics, marketing)
	_, v.sawDecision = v.m.Decision()
}

func (v *reentrantView) OpenSettings() {
	v.recorder.OpenSettings()
	v.sawSettings = v.m.SettingsOpen()
}

func runWithin(t *testing.T, d time.Duration, f func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("manager call did not return")
	}
}

func TestCallbacksMayQueryManager(t *testing.T) {
	view := &reentrantView{}
	syncScheduler := func(_ time.Duration, f func()) func() bool {
		f()
		return func() bool { return false }
	}
	m := NewManager(NewMemoryStorage(), view, &view.recorder,
		WithScheduler(syncScheduler),
		WithClock(func() time.Time { return fixedNow }),
	)
	view.m = m

	runWithin(t, time.Second, func() {
		m.Init()
		m.OpenSettings()
		assert.NoError(t, m.SaveSettings(true, false))
	})

	assert.True(t, view.sawVisible, "banner state is set before ShowBanner")
	assert.True(t, view.sawSettings)
	assert.True(t, view.sawDecision)
	assert.False(t, m.BannerVisible())
	assert.Equal(t, []string{"show", "open", "analytics:on", "marketing:off", "close", "hide"}, view.calls)
}
