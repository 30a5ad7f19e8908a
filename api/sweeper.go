/*
sweeper.go - Idle session sweeper

PURPOSE:
  Periodically discards billing, purchase and salary-entry sessions that
  nobody has touched for a while. An abandoned browser tab otherwise keeps
  its session in memory until restart. Nothing is recorded for a swept
  session; it behaves exactly like an explicit discard.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Uses Handler.SweepIdle, which holds the handler lock for one pass
  - Logs the number of dropped sessions per pass

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 minute)
  - MaxIdle: Idle time before a session is dropped (default: 2 hours)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewIdleSweeper(handler)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: SweepIdle
*/
package api

import (
	"sync"
	"time"
)

// IdleSweeper drops idle sessions in the background.
type IdleSweeper struct {
	Handler       *Handler
	CheckInterval time.Duration
	MaxIdle       time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewIdleSweeper creates a sweeper with default intervals.
func NewIdleSweeper(handler *Handler) *IdleSweeper {
	return &IdleSweeper{
		Handler:       handler,
		CheckInterval: time.Minute,
		MaxIdle:       2 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the sweeper.
func (s *IdleSweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.Handler.Logger
	if !s.Enabled || s.MaxIdle <= 0 {
		log.Info().Msg("idle sweeper disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.stop = make(chan struct{})
	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	log.Info().
		Dur("check_interval", s.CheckInterval).
		Dur("max_idle", s.MaxIdle).
		Msg("idle sweeper started")
}

// Stop stops the sweeper and waits for the running pass to finish.
func (s *IdleSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.Handler.Logger.Info().Msg("idle sweeper stopped")
	}
}

func (s *IdleSweeper) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ticker.C:
			s.sweep(s.Handler.clock())
		case <-s.stop:
			return
		}
	}
}

// sweep runs one pass and returns the number of sessions dropped.
func (s *IdleSweeper) sweep(now time.Time) int {
	dropped := s.Handler.SweepIdle(now, s.MaxIdle)
	if dropped > 0 {
		sessions, entries := s.Handler.OpenCount()
		s.Handler.Logger.Info().
			Int("dropped", dropped).
			Int("open_sessions", sessions).
			Int("open_entries", entries).
			Msg("idle sessions swept")
	}
	return dropped
}
