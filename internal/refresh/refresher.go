package refresh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/caselight/internal/common"
	"github.com/Veraticus/caselight/internal/service"
	"github.com/Veraticus/caselight/internal/settings"
	"github.com/Veraticus/caselight/internal/view"
)

// AlarmName is the alarm driving periodic reloads.
const AlarmName = "caselightRefresher"

// ReasonTargetClosed is logged when the configured target is removed.
const ReasonTargetClosed = "Target was closed."

// maxBodySize caps the size of a view downloaded from a URL target.
const maxBodySize = 32 << 20

// Refresher reloads the configured target into the view file on every alarm.
type Refresher struct {
	store    service.Store
	alarms   service.Alarms
	clock    service.Clock
	client   *http.Client
	logger   *slog.Logger
	onReload func()
	dest     string
	retry    common.RetryOptions
	period   time.Duration
	unit     time.Duration
	mu       sync.Mutex
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithHTTPClient sets the client used for URL targets.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Refresher) { r.client = c }
}

// WithClock sets the clock used to stamp refreshes.
func WithClock(c service.Clock) Option {
	return func(r *Refresher) { r.clock = c }
}

// WithRetry sets the retry policy for reaching the target.
func WithRetry(opts common.RetryOptions) Option {
	return func(r *Refresher) { r.retry = opts }
}

// WithIntervalUnit sets the duration of one refreshInterval unit. Defaults to a minute.
func WithIntervalUnit(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.unit = d
		}
	}
}

// OnReload registers fn to be called after every successful reload.
func OnReload(fn func()) Option {
	return func(r *Refresher) { r.onReload = fn }
}

// NewRefresher creates a refresher writing reloaded content to dest.
func NewRefresher(store service.Store, alarms service.Alarms, dest string, opts ...Option) *Refresher {
	r := &Refresher{
		store:  store,
		alarms: alarms,
		dest:   dest,
		clock:  service.SystemClock{},
		client: &http.Client{Timeout: 30 * time.Second},
		logger: common.Component("refresh"),
		retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2,
		},
		unit: time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sync schedules or cancels the refresh alarm to match the stored settings.
func (r *Refresher) Sync(ctx context.Context) error {
	cfg, err := settings.Load(ctx, r.store)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !cfg.Refresh.Enabled || cfg.Refresh.Target == "" {
		if r.alarms.Cancel(AlarmName) {
			r.logger.Info("Auto-refresh stopped")
		}
		r.period = 0
		return nil
	}

	period := time.Duration(cfg.Refresh.Interval) * r.unit
	if period == r.period {
		return nil
	}
	r.period = period
	r.alarms.Schedule(AlarmName, period, func() {
		if err := r.OnAlarm(ctx, AlarmName); err != nil {
			r.logger.Error("Refresh failed", "error", err)
		}
	})
	r.logger.Info("Auto-refresh scheduled", "target", cfg.Refresh.Target, "period", period)
	return nil
}

// OnAlarm reloads the target when refresh is enabled. A target that no
// longer exists disables refresh instead.
func (r *Refresher) OnAlarm(ctx context.Context, name string) error {
	if name != AlarmName {
		return nil
	}

	cfg, err := settings.Load(ctx, r.store)
	if err != nil {
		return err
	}
	if !cfg.Refresh.Enabled || cfg.Refresh.Target == "" {
		return nil
	}
	target := cfg.Refresh.Target

	err = common.WithRetry(ctx, func() error {
		return r.reload(ctx, target)
	}, r.retry)

	var gone *common.TargetGoneError
	if errors.As(err, &gone) {
		return r.disable(ctx, gone.Reason)
	}
	if err != nil {
		return fmt.Errorf("failed to reload %s: %w", target, err)
	}

	if err := settings.RecordRefresh(ctx, r.store, r.clock.Now()); err != nil {
		return err
	}
	r.logger.Debug("Reloaded target", "target", target)

	if r.onReload != nil {
		r.onReload()
	}
	return nil
}

// TargetRemoved disables refresh when target is the configured target.
func (r *Refresher) TargetRemoved(ctx context.Context, target string) error {
	cfg, err := settings.Load(ctx, r.store)
	if err != nil {
		return err
	}
	if cfg.Refresh.Target == "" || !sameTarget(cfg.Refresh.Target, target) {
		return nil
	}
	return r.disable(ctx, ReasonTargetClosed)
}

// disable cancels the alarm and clears the stored target.
func (r *Refresher) disable(ctx context.Context, reason string) error {
	r.mu.Lock()
	r.alarms.Cancel(AlarmName)
	r.period = 0
	r.mu.Unlock()

	if err := settings.DisableRefresh(ctx, r.store); err != nil {
		return err
	}
	r.logger.Info("Auto-refresh disabled", "reason", reason)
	return nil
}

func (r *Refresher) reload(ctx context.Context, target string) error {
	if isURL(target) {
		return r.reloadURL(ctx, target)
	}
	return r.reloadFile(target)
}

func (r *Refresher) reloadFile(target string) error {
	data, err := os.ReadFile(target)
	if errors.Is(err, os.ErrNotExist) {
		return common.NewTargetGoneError(target, fmt.Sprintf("Target file %s not found.", target))
	}
	if err != nil {
		return &common.RetryableError{Err: err, Retryable: true}
	}
	if sameTarget(target, r.dest) {
		return nil
	}
	return view.WriteAtomic(r.dest, data)
}

func (r *Refresher) reloadURL(ctx context.Context, target string) error {
	if err := r.checkURL(ctx, target); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return &common.RetryableError{Err: err, Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(target, resp.StatusCode); err != nil {
		return err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &common.RetryableError{Err: err, Retryable: true}
	}
	return view.WriteAtomic(r.dest, data)
}

func (r *Refresher) checkURL(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return &common.RetryableError{Err: err, Retryable: true}
	}
	_ = resp.Body.Close()

	// Some servers reject HEAD; the GET decides in that case.
	if resp.StatusCode == http.StatusMethodNotAllowed {
		return nil
	}
	return statusError(target, resp.StatusCode)
}

func statusError(target string, code int) error {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return common.NewTargetGoneError(target, fmt.Sprintf("Target %s not found.", target))
	case code >= 500 || code == http.StatusTooManyRequests:
		return &common.RetryableError{Err: fmt.Errorf("target returned status %d", code), Retryable: true}
	case code >= 400:
		return fmt.Errorf("target returned status %d", code)
	}
	return nil
}

func isURL(target string) bool {
	u, err := url.Parse(target)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func sameTarget(a, b string) bool {
	if isURL(a) || isURL(b) {
		return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
