package prefsync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vibecheck/internal/app/gateway"
	"vibecheck/internal/pkg/logx"
)

const (
	// DefaultIdleTimeout is how long an unreferenced Synchronizer survives.
	DefaultIdleTimeout = 5 * time.Minute

	evictFlushTimeout = 30 * time.Second
)

// RemoteFactory builds the Remote of one user from their token source.
type RemoteFactory func(tokens gateway.TokenSource) Remote

type evictMsg struct {
	subject string
	gen     uint64
}

type entry struct {
	sync   *Synchronizer
	tokens *gateway.StaticToken
	refs   int
	idle   *time.Timer
	gen    uint64
}

// Manager keeps one Synchronizer per user and evicts the ones left unreferenced.
type Manager struct {
	newRemote   RemoteFactory
	opts        Options
	idleTimeout time.Duration

	mu      sync.Mutex
	entries map[string]*entry

	// evict carries idle timer expirations to the eviction loop.
	evict chan evictMsg
	done  chan struct{}
	wg    sync.WaitGroup

	logger zerolog.Logger
}

// NewManager starts a Manager. Synchronizers are built with opts.
func NewManager(newRemote RemoteFactory, opts Options, idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	m := &Manager{
		newRemote:   newRemote,
		opts:        opts,
		idleTimeout: idleTimeout,
		entries:     make(map[string]*entry),
		evict:       make(chan evictMsg, 16),
		done:        make(chan struct{}),
		logger:      logx.Component("prefsync_manager"),
	}

	m.wg.Add(1)
	go m.runEvictionLoop()

	return m
}

func (m *Manager) runEvictionLoop() {
	defer m.wg.Done()

	m.logger.Info().Msg("Eviction loop started.")

	for {
		select {
		case msg := <-m.evict:
			m.evictIdle(msg)
		case <-m.done:
			m.logger.Info().Msg("Eviction loop stopped.")
			return
		}
	}
}

// Acquire returns the loaded Synchronizer for subject, creating it on first use, and a release
// function the caller must invoke once done. subject must be the identity-service verified owner
// of token; token then replaces the credential used for writes.
func (m *Manager) Acquire(ctx context.Context, subject, token string) (*Synchronizer, func(), error) {
	if subject == "" || token == "" {
		return nil, nil, ErrNoCredential
	}

	m.mu.Lock()
	if m.entries == nil {
		m.mu.Unlock()
		return nil, nil, ErrClosed
	}

	e, ok := m.entries[subject]
	if ok {
		e.tokens.Set(token)
		if e.idle != nil {
			e.idle.Stop()
			e.idle = nil
		}
	} else {
		tokens := gateway.NewStaticToken(token)
		e = &entry{
			sync:   New(m.newRemote(tokens), m.withSubject(subject)),
			tokens: tokens,
		}
		m.entries[subject] = e
		m.logger.Info().Str("subject", logx.MaskSubject(subject)).Msg("Preference synchronizer created.")
	}
	e.refs++
	e.gen++
	m.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() { m.release(subject, e) })
	}

	if err := e.sync.Load(ctx); err != nil {
		release()
		return nil, nil, err
	}

	return e.sync, release, nil
}

func (m *Manager) withSubject(subject string) Options {
	opts := m.opts
	logger := logx.Component("prefsync").With().Str("subject", logx.MaskSubject(subject)).Logger()
	opts.Logger = &logger
	return opts
}

func (m *Manager) release(subject string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries == nil || m.entries[subject] != e {
		return
	}

	e.refs--
	if e.refs > 0 {
		return
	}

	gen := e.gen
	e.idle = time.AfterFunc(m.idleTimeout, func() {
		select {
		case m.evict <- evictMsg{subject: subject, gen: gen}:
		case <-m.done:
		}
	})
}

func (m *Manager) evictIdle(msg evictMsg) {
	m.mu.Lock()
	e, ok := m.entries[msg.subject]
	if !ok || e.refs > 0 || e.gen != msg.gen {
		m.mu.Unlock()
		return
	}
	delete(m.entries, msg.subject)
	m.mu.Unlock()

	closeSynchronizer(e.sync, m.logger.With().Str("subject", logx.MaskSubject(msg.subject)).Logger())
	m.logger.Info().Str("subject", logx.MaskSubject(msg.subject)).Msg("Idle preference synchronizer removed.")
}

// Len returns the number of live synchronizers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Shutdown flushes and closes every synchronizer and stops the eviction loop.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down preference manager...")

	m.mu.Lock()
	entries := m.entries
	m.entries = nil
	for _, e := range entries {
		if e.idle != nil {
			e.idle.Stop()
		}
	}
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()

	for subject, e := range entries {
		closeSynchronizer(e.sync, m.logger.With().Str("subject", logx.MaskSubject(subject)).Logger())
	}

	m.logger.Info().Msg("Preference manager shutdown complete.")
}

func closeSynchronizer(s *Synchronizer, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), evictFlushTimeout)
	defer cancel()

	if err := s.Flush(ctx); err != nil {
		logger.Warn().Err(err).Msg("Final preference flush failed")
	}
	s.Close()
}
