/*
Package prefsync reconciles frequently edited preference sliders and restriction tags with the
remote preference store without flooding it.

A Synchronizer buffers edits and, once no edit has arrived for a quiet period, writes the full
preference set once. It moves through an explicit state machine:

	Idle -> Pending -> Writing -> Idle
	                   Writing -> Pending (edits arrive while a write is in flight)

A write already in flight is never cancelled, so two writes can race; the last response
processed decides the indicator.
*/
package prefsync

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vibecheck/internal/pkg/logx"
	"vibecheck/internal/pkg/metrics"
)

// Defaults for Options.
const (
	DefaultQuietPeriod = time.Second
	DefaultSavedWindow = 2 * time.Second
)

// Remote is the preference store.
type Remote interface {
	Fetch(ctx context.Context) (Preferences, error)
	Store(ctx context.Context, prefs Preferences) error
}

// Phase is the write state of a Synchronizer.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseWriting
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseWriting:
		return "writing"
	default:
		return "idle"
	}
}

// Indicator is the derived save status shown next to the controls.
type Indicator string

const (
	IndicatorIdle   Indicator = "idle"
	IndicatorSaving Indicator = "saving"
	IndicatorSaved  Indicator = "saved"
	IndicatorFailed Indicator = "failed"
)

// WriteFailure reports a rejected write. Local state is kept as it was.
type WriteFailure struct {
	Preferences Preferences
	Err         error
}

func (e *WriteFailure) Error() string {
	return fmt.Sprintf("write preferences: %v", e.Err)
}

func (e *WriteFailure) Unwrap() error { return e.Err }

// Snapshot is the observable state of a Synchronizer.
type Snapshot struct {
	Loaded      bool        `json:"loaded"`
	Preferences Preferences `json:"preferences"`
	Phase       string      `json:"phase"`
	Indicator   Indicator   `json:"indicator"`
	LastError   string      `json:"last_error,omitempty"`
}

// Options tunes a Synchronizer.
type Options struct {
	// QuietPeriod is how long edits must pause before a write.
	QuietPeriod time.Duration

	// SavedWindow is how long saved or failed stays on the indicator.
	SavedWindow time.Duration

	Metrics *metrics.Metrics
	Logger  *zerolog.Logger
}

// Synchronizer owns the local preference state of one user.
type Synchronizer struct {
	remote      Remote
	quietPeriod time.Duration
	savedWindow time.Duration
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	mu     sync.Mutex
	loaded bool
	closed bool
	local  Preferences

	// synced is the newest value known to match the remote.
	synced    Preferences
	syncedSeq uint64

	// debounce timer; timerGen invalidates timers that fired after being replaced.
	timer    *time.Timer
	timerGen uint64
	pending  bool

	inflight int
	writeSeq uint64

	indicator      Indicator
	indicatorTimer *time.Timer
	indicatorGen   uint64
	lastFailure    *WriteFailure

	writes sync.WaitGroup

	listeners map[int]func(Snapshot)
	nextID    int
}

// New returns an unloaded Synchronizer over remote.
func New(remote Remote, opts Options) *Synchronizer {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if opts.SavedWindow <= 0 {
		opts.SavedWindow = DefaultSavedWindow
	}

	logger := logx.Component("prefsync")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Synchronizer{
		remote:      remote,
		quietPeriod: opts.QuietPeriod,
		savedWindow: opts.SavedWindow,
		metrics:     opts.Metrics,
		logger:      logger,
		indicator:   IndicatorIdle,
		listeners:   make(map[int]func(Snapshot)),
	}
}

// Load seeds local state from the remote. Until it succeeds every edit fails with ErrNotLoaded.
// Loading an already loaded Synchronizer is a no-op.
func (s *Synchronizer) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	prefs, err := s.remote.Fetch(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load preferences")
		return fmt.Errorf("load preferences: %w", err)
	}

	s.mu.Lock()
	if s.loaded || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.local = prefs.Clone()
	s.synced = prefs.Clone()
	s.loaded = true
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	return nil
}

// Set changes one slider.
func (s *Synchronizer) Set(field Field, value int) error {
	field, err := ParseField(string(field))
	if err != nil {
		return err
	}
	if err := checkRange(field, value); err != nil {
		return err
	}

	return s.edit(func(p *Preferences) bool {
		*p.slider(field) = value
		return true
	})
}

// AddRestriction appends tag unless it is already present.
func (s *Synchronizer) AddRestriction(tag string) error {
	tag, err := normalizeTag(tag)
	if err != nil {
		return err
	}

	return s.edit(func(p *Preferences) bool {
		if slices.Contains(p.Restrictions, tag) {
			return false
		}
		p.Restrictions = append(p.Restrictions, tag)
		return true
	})
}

// RemoveRestriction deletes tag if present.
func (s *Synchronizer) RemoveRestriction(tag string) error {
	tag, err := normalizeTag(tag)
	if err != nil {
		return err
	}

	return s.edit(func(p *Preferences) bool {
		i := slices.Index(p.Restrictions, tag)
		if i < 0 {
			return false
		}
		p.Restrictions = slices.Delete(p.Restrictions, i, i+1)
		return true
	})
}

// Apply validates patch as a whole and applies it as one edit.
func (s *Synchronizer) Apply(patch Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.Empty() {
		return s.edit(func(*Preferences) bool { return false })
	}

	return s.edit(func(p *Preferences) bool {
		patch.applyTo(p)
		return true
	})
}

// edit applies mutate and restarts the quiet period when it reports a change.
func (s *Synchronizer) edit(mutate func(*Preferences) bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}

	if !mutate(&s.local) {
		s.mu.Unlock()
		return nil
	}

	s.armLocked()
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	return nil
}

// armLocked restarts the debounce timer: Idle|Pending|Writing -> Pending.
func (s *Synchronizer) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerGen++
	gen := s.timerGen
	s.pending = true
	s.timer = time.AfterFunc(s.quietPeriod, func() { s.fire(gen) })
}

// disarmLocked cancels a pending write.
func (s *Synchronizer) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
	s.pending = false
}

func (s *Synchronizer) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.timerGen || s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.pending = false

	prefs, seq, ok := s.beginWriteLocked()
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	if ok {
		_ = s.write(context.Background(), prefs, seq)
	}
}

// beginWriteLocked moves to Writing unless the local state already matches the remote.
func (s *Synchronizer) beginWriteLocked() (Preferences, uint64, bool) {
	if s.local.Equal(s.synced) {
		s.logger.Debug().Msg("Preferences unchanged since last sync, write suppressed")
		return Preferences{}, 0, false
	}

	s.inflight++
	s.writeSeq++
	s.writes.Add(1)
	s.setIndicatorLocked(IndicatorSaving)

	return s.local.Clone(), s.writeSeq, true
}

func (s *Synchronizer) write(ctx context.Context, prefs Preferences, seq uint64) error {
	defer s.writes.Done()

	start := time.Now()
	err := s.remote.Store(ctx, prefs)

	s.mu.Lock()
	s.inflight--

	var failure *WriteFailure
	if err != nil {
		failure = &WriteFailure{Preferences: prefs, Err: err}
		s.lastFailure = failure
		s.metrics.IncPreferenceWrite("failure")
		s.logger.Warn().Err(err).Uint64("seq", seq).Dur("latency", time.Since(start)).Msg("Preference write failed")
	} else {
		if seq > s.syncedSeq {
			s.synced = prefs
			s.syncedSeq = seq
		}
		s.lastFailure = nil
		s.metrics.IncPreferenceWrite("success")
		s.logger.Debug().Uint64("seq", seq).Dur("latency", time.Since(start)).Msg("Preferences written")
	}

	if s.inflight > 0 {
		s.setIndicatorLocked(IndicatorSaving)
	} else if failure != nil {
		s.flashIndicatorLocked(IndicatorFailed)
	} else {
		s.flashIndicatorLocked(IndicatorSaved)
	}

	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)

	if failure != nil {
		return failure
	}
	return nil
}

func (s *Synchronizer) setIndicatorLocked(ind Indicator) {
	if s.indicatorTimer != nil {
		s.indicatorTimer.Stop()
		s.indicatorTimer = nil
	}
	s.indicatorGen++
	s.indicator = ind
}

// flashIndicatorLocked shows ind for the saved window, then returns to idle.
func (s *Synchronizer) flashIndicatorLocked(ind Indicator) {
	s.setIndicatorLocked(ind)
	if s.closed {
		return
	}

	gen := s.indicatorGen
	s.indicatorTimer = time.AfterFunc(s.savedWindow, func() {
		s.mu.Lock()
		if gen != s.indicatorGen || s.closed {
			s.mu.Unlock()
			return
		}
		s.indicatorTimer = nil
		s.indicator = IndicatorIdle
		snap := s.snapshotLocked()
		listeners := s.listenersLocked()
		s.mu.Unlock()

		notify(listeners, snap)
	})
}

// Flush writes pending edits now instead of waiting for the quiet period.
// It returns a *WriteFailure when the write is rejected.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.pending || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.disarmLocked()

	prefs, seq, ok := s.beginWriteLocked()
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	if !ok {
		return nil
	}
	return s.write(ctx, prefs, seq)
}

// Close stops the timers, drops pending edits, and waits for in-flight writes.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.writes.Wait()
		return
	}
	s.closed = true
	s.disarmLocked()
	if s.indicatorTimer != nil {
		s.indicatorTimer.Stop()
		s.indicatorTimer = nil
	}
	s.indicatorGen++
	s.listeners = map[int]func(Snapshot){}
	s.mu.Unlock()

	s.writes.Wait()
}

// Phase reports the current write state.
func (s *Synchronizer) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseLocked()
}

func (s *Synchronizer) phaseLocked() Phase {
	switch {
	case s.pending:
		return PhasePending
	case s.inflight > 0:
		return PhaseWriting
	default:
		return PhaseIdle
	}
}

// Indicator reports the derived save status.
func (s *Synchronizer) Indicator() Indicator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indicator
}

// LastFailure returns the most recent write failure, cleared by the next successful write.
func (s *Synchronizer) LastFailure() *WriteFailure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFailure
}

// Snapshot returns the observable state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	snap := Snapshot{
		Loaded:      s.loaded,
		Preferences: s.local.Clone(),
		Phase:       s.phaseLocked().String(),
		Indicator:   s.indicator,
	}
	if s.lastFailure != nil {
		snap.LastError = s.lastFailure.Err.Error()
	}
	return snap
}

// Subscribe registers fn for every observable change. fn runs on the goroutine that caused the
// change and must not block.
func (s *Synchronizer) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Synchronizer) listenersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}
