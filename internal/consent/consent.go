// Package consent drives the cookie consent banner shown on the practice website.
//
// A visitor is either undecided or has a Decision persisted under StorageKey.
// Undecided visitors see the banner after BannerDelay; decided visitors never see
// it again and get their stored preferences applied on every page load.
package consent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// StorageKey is the client-local key holding the Decision JSON.
const StorageKey = "cookieConsent"

// BannerDelay is how long an undecided visitor waits before the banner appears.
const BannerDelay = time.Second

// Decision is the visitor's consent choice. Essential is always true.
type Decision struct {
	Essential bool      `json:"essential"`
	Analytics bool      `json:"analytics"`
	Marketing bool      `json:"marketing"`
	Timestamp time.Time `json:"timestamp"`
}

// Storage is the client-local key/value store.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// View renders the banner and the settings dialog.
type View interface {
	ShowBanner()
	HideBanner()
	OpenSettings()
	CloseSettings()
	SetCheckboxes(analytics, marketing bool)
}

// Preferences switches optional third-party content on and off.
type Preferences interface {
	EnableAnalytics()
	DisableAnalytics()
	EnableMarketing()
	DisableMarketing()
}

// Scheduler runs f after d. The returned function cancels the call if it has not run yet.
type Scheduler func(d time.Duration, f func()) (cancel func() bool)

// AfterFunc is the default Scheduler.
func AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Manager is the consent state machine. It is safe for concurrent use. View,
// Preferences and Scheduler are called without the Manager's lock held, so they
// may query the Manager from inside a callback. Storage is called under the lock.
type Manager struct {
	storage  Storage
	view     View
	prefs    Preferences
	schedule Scheduler
	delay    time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu            sync.Mutex
	decision      *Decision
	bannerVisible bool
	settingsOpen  bool
	cancelBanner  func() bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithScheduler replaces time.AfterFunc.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.schedule = s }
}

// WithClock sets the time source used for decision timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithBannerDelay overrides BannerDelay.
func WithBannerDelay(d time.Duration) Option {
	return func(m *Manager) { m.delay = d }
}

// WithLogger sets the logger for storage problems.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(storage Storage, view View, prefs Preferences, opts ...Option) *Manager {
	m := &Manager{
		storage:  storage,
		view:     view,
		prefs:    prefs,
		schedule: AfterFunc,
		delay:    BannerDelay,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init reads the stored decision. Without one the banner is scheduled; with one the
// stored preferences are applied and the banner stays hidden.
func (m *Manager) Init() {
	m.update(func() []func() {
		d, ok := m.load()
		if !ok {
			m.decision = nil
			return []func(){m.scheduleBanner}
		}
		m.decision = &d
		return m.apply(d)
	})
}

// Decision returns the current decision; ok is false while the visitor is undecided.
func (m *Manager) Decision() (Decision, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decision == nil {
		return Decision{}, false
	}
	return *m.decision, true
}

// BannerVisible reports whether the banner is currently shown.
func (m *Manager) BannerVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bannerVisible
}

// SettingsOpen reports whether the settings dialog is open.
func (m *Manager) SettingsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settingsOpen
}

// AcceptAll consents to every category and hides the banner.
func (m *Manager) AcceptAll() error {
	var err error
	m.update(func() []func() {
		var calls []func()
		calls, err = m.decide(true, true)
		return append(calls, m.hideBanner()...)
	})
	return err
}

// AcceptEssential declines every optional category and hides the banner.
func (m *Manager) AcceptEssential() error {
	var err error
	m.update(func() []func() {
		var calls []func()
		calls, err = m.decide(false, false)
		return append(calls, m.hideBanner()...)
	})
	return err
}

// SaveSettings stores the choices made in the settings dialog, then closes the
// dialog and hides the banner.
func (m *Manager) SaveSettings(analytics, marketing bool) error {
	var err error
	m.update(func() []func() {
		var calls []func()
		calls, err = m.decide(analytics, marketing)
		calls = append(calls, m.closeSettings()...)
		return append(calls, m.hideBanner()...)
	})
	return err
}

// OpenSettings opens the settings dialog.
func (m *Manager) OpenSettings() {
	m.update(func() []func() {
		m.settingsOpen = true
		return []func(){m.view.OpenSettings}
	})
}

// CloseSettings closes the dialog without changing the decision.
func (m *Manager) CloseSettings() {
	m.update(m.closeSettings)
}

// Escape closes the settings dialog if it is open and does nothing otherwise.
func (m *Manager) Escape() {
	m.update(func() []func() {
		if !m.settingsOpen {
			return nil
		}
		return m.closeSettings()
	})
}

// Close cancels a pending banner.
func (m *Manager) Close() {
	m.update(m.takeCancel)
}

// update mutates state under the lock and then makes the View, Preferences and
// Scheduler calls that fn returned, in order, with the lock released. Callbacks
// may therefore call back into the Manager.
func (m *Manager) update(fn func() []func()) {
	m.mu.Lock()
	calls := fn()
	m.mu.Unlock()

	for _, call := range calls {
		call()
	}
}

func (m *Manager) scheduleBanner() {
	cancel := m.schedule(m.delay, m.showBannerIfUndecided)

	m.mu.Lock()
	pending := m.decision == nil && !m.bannerVisible
	if pending {
		m.cancelBanner = cancel
	}
	m.mu.Unlock()

	if !pending {
		cancel()
	}
}

func (m *Manager) showBannerIfUndecided() {
	m.update(func() []func() {
		m.cancelBanner = nil
		if m.decision != nil || m.bannerVisible {
			return nil
		}
		m.bannerVisible = true
		return []func(){m.view.ShowBanner}
	})
}

// decide replaces the stored decision wholesale and returns the calls applying it.
// The decision takes effect for this page even when it could not be persisted.
func (m *Manager) decide(analytics, marketing bool) ([]func(), error) {
	d := Decision{
		Essential: true,
		Analytics: analytics,
		Marketing: marketing,
		Timestamp: m.now().UTC(),
	}
	m.decision = &d
	calls := m.apply(d)

	raw, err := json.Marshal(d)
	if err != nil {
		return calls, fmt.Errorf("encode consent decision: %w", err)
	}
	if err := m.storage.Set(StorageKey, string(raw)); err != nil {
		m.logger.Warn("failed to persist consent decision", slog.Any("error", err))
		return calls, fmt.Errorf("store consent decision: %w", err)
	}
	return calls, nil
}

func (m *Manager) apply(d Decision) []func() {
	analytics, marketing := m.prefs.DisableAnalytics, m.prefs.DisableMarketing
	if d.Analytics {
		analytics = m.prefs.EnableAnalytics
	}
	if d.Marketing {
		marketing = m.prefs.EnableMarketing
	}
	return []func(){
		analytics,
		marketing,
		func() { m.view.SetCheckboxes(d.Analytics, d.Marketing) },
	}
}

// load returns the stored decision. Missing, unreadable and corrupt values all
// count as undecided.
func (m *Manager) load() (Decision, bool) {
	raw, ok, err := m.storage.Get(StorageKey)
	if err != nil {
		m.logger.Warn("failed to read consent decision", slog.Any("error", err))
		return Decision{}, false
	}
	if !ok || raw == "" {
		return Decision{}, false
	}

	var d Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		m.logger.Debug("ignoring corrupt consent decision", slog.Any("error", err))
		return Decision{}, false
	}
	d.Essential = true
	return d, true
}

func (m *Manager) takeCancel() []func() {
	cancel := m.cancelBanner
	m.cancelBanner = nil
	if cancel == nil {
		return nil
	}
	return []func(){func() { cancel() }}
}

func (m *Manager) hideBanner() []func() {
	m.bannerVisible = false
	return append(m.takeCancel(), m.view.HideBanner)
}

func (m *Manager) closeSettings() []func() {
	m.settingsOpen = false
	return []func(){m.view.CloseSettings}
}
