package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/jtsunne/ncmon/internal/client"
	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/errors"
	"github.com/jtsunne/ncmon/internal/logger"
	"github.com/jtsunne/ncmon/internal/model"
)

// Interval bounds and default.
const (
	MinInterval     = 10 * time.Second
	MaxInterval     = time.Hour
	DefaultInterval = 60 * time.Second

	// DefaultMaxWorkers caps concurrently running fetches, stale ones
	// included.
	DefaultMaxWorkers = 4
)

var (
	ErrIntervalOutOfRange = fmt.Errorf("interval must be between %s and %s", MinInterval, MaxInterval)
	ErrAlreadyStarted     = stderrors.New("scheduler already started")
)

// Sink receives the outcome of fetch cycles. Calls are made while the
// scheduler holds its session lock, so implementations must not block and
// must not call back into the scheduler.
type Sink interface {
	OnSnapshot(snap model.Snapshot)
	OnError(message string)
	OnLoading(server config.ServerConfig)
}

// Session is a copy of the scheduler's state.
type Session struct {
	Active   config.ServerConfig
	Interval time.Duration
	Last     *model.Snapshot
	InFlight bool
}

// SchedulerConfig wires a Scheduler. Clock and MaxWorkers are optional.
type SchedulerConfig struct {
	Client     client.MetricsClient
	Sink       Sink
	Clock      Clock
	Server     config.ServerConfig
	Interval   time.Duration
	MaxWorkers int64
}

// Scheduler polls one active server on a recurring ticker. At most one
// fetch is outstanding for the active server; triggers arriving while it
// runs are dropped. Switching servers tags later fetches with a new
// generation so results of the old server are discarded.
type Scheduler struct {
	client  client.MetricsClient
	sink    Sink
	clock   Clock
	workers *semaphore.Weighted
	logger  zerolog.Logger

	mu       sync.Mutex
	session  Session
	gen      uint64
	pending  bool // a cycle found no free worker and waits for one
	ticker   Ticker
	tickStop chan struct{}
	started  bool
	stopped  bool
	ctx      context.Context
	cancel   context.CancelFunc

	wg sync.WaitGroup
}

// NewScheduler validates cfg and returns an idle Scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Client == nil {
		return nil, stderrors.New("scheduler: client is required")
	}
	if cfg.Sink == nil {
		return nil, stderrors.New("scheduler: sink is required")
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if err := ValidateInterval(cfg.Interval); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}

	return &Scheduler{
		client:  cfg.Client,
		sink:    cfg.Sink,
		clock:   cfg.Clock,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
		logger:  logger.WithComponent("scheduler"),
		session: Session{Active: cfg.Server, Interval: cfg.Interval},
	}, nil
}

// ValidateInterval reports whether d is an accepted polling interval.
func ValidateInterval(d time.Duration) error {
	if d < MinInterval || d > MaxInterval {
		return fmt.Errorf("%w: got %s", ErrIntervalOutOfRange, d)
	}
	return nil
}

// Start shows the loading state, starts the ticker and runs the first cycle.
// Cancelling ctx has the same effect as Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Info().
		Str("server", s.session.Active.DisplayName).
		Dur("interval", s.session.Interval).
		Msg("Starting scheduler")

	s.sink.OnLoading(s.session.Active)
	s.restartTickerLocked()
	s.startCycleLocked()

	return nil
}

// Stop cancels the ticker and abandons any in-flight fetch without waiting
// for it. Results that arrive afterwards are discarded.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return
	}
	s.stopped = true
	s.stopTickerLocked()
	s.cancel()

	s.logger.Info().Msg("Scheduler stopped")
}

// Refresh starts a cycle now. It reports false when a fetch is already
// outstanding or no worker slot was free; in the latter case the cycle is
// started as soon as a stale fetch returns its slot.
func (s *Scheduler) Refresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running() {
		return false
	}
	return s.startCycleLocked()
}

// SetInterval changes the polling period. A changed value restarts the
// ticker and starts a cycle immediately; the current value is a no-op.
func (s *Scheduler) SetInterval(d time.Duration) error {
	if err := ValidateInterval(d); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if d == s.session.Interval {
		return nil
	}
	s.session.Interval = d
	s.logger.Info().Dur("interval", d).Msg("Poll interval changed")

	if s.running() {
		s.restartTickerLocked()
		s.startCycleLocked()
	}
	return nil
}

// SwitchConfig makes server the active configuration. The last snapshot is
// cleared, the sink is told to show its loading state, the ticker restarts
// and a cycle starts. A fetch still running for the previous server is
// left to finish and its result is ignored.
func (s *Scheduler) SwitchConfig(server config.ServerConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.session.Active = server
	s.session.Last = nil
	s.session.InFlight = false

	s.logger.Info().Str("server", server.DisplayName).Uint64("generation", s.gen).Msg("Switched server")

	s.sink.OnLoading(server)
	if s.running() {
		s.restartTickerLocked()
		s.startCycleLocked()
	}
}

// Session returns a copy of the current state.
func (s *Scheduler) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session
}

func (s *Scheduler) running() bool {
	return s.started && !s.stopped && s.ctx.Err() == nil
}

func (s *Scheduler) startCycleLocked() bool {
	if s.session.InFlight {
		s.logger.Debug().Msg("Fetch in flight, cycle dropped")
		return false
	}
	if !s.workers.TryAcquire(1) {
		s.logger.Warn().Msg("No free worker, cycle deferred")
		s.pending = true
		return false
	}

	s.pending = false
	s.session.InFlight = true
	gen, server := s.gen, s.session.Active

	s.wg.Add(1)
	go s.run(gen, server)

	return true
}

func (s *Scheduler) run(gen uint64, server config.ServerConfig) {
	defer s.wg.Done()

	payload, err := s.client.Fetch(s.ctx, server)
	s.workers.Release(1)
	if s.ctx.Err() != nil {
		return
	}

	var snap model.Snapshot
	if err == nil {
		snap = Normalize(payload, server.SourcePath, s.clock.Now())
	}

	s.complete(gen, snap, err)
}

func (s *Scheduler) complete(gen uint64, snap model.Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if gen != s.gen {
		s.logger.Debug().
			Uint64("generation", gen).
			Uint64("current", s.gen).
			Msg("Discarding stale fetch result")
		s.dispatchPendingLocked()
		return
	}

	s.session.InFlight = false

	if err != nil {
		s.logger.Warn().Err(err).Str("code", errors.CodeOf(err)).Msg("Fetch failed")
		s.sink.OnError(errorMessage(err))
		return
	}

	s.session.Last = &snap
	s.sink.OnSnapshot(snap)
}

// dispatchPendingLocked starts the deferred cycle once a worker slot is
// free again and the active server has no fetch outstanding.
func (s *Scheduler) dispatchPendingLocked() {
	if !s.pending || s.session.InFlight || !s.running() {
		return
	}
	s.logger.Debug().Msg("Worker freed, starting deferred cycle")
	s.startCycleLocked()
}

// errorMessage is the user-facing text of err: the structured error's
// message when there is one.
func errorMessage(err error) string {
	var se *errors.Error
	if stderrors.As(err, &se) {
		return se.Error()
	}
	return err.Error()
}

func (s *Scheduler) restartTickerLocked() {
	s.stopTickerLocked()

	t := s.clock.Ticker(s.session.Interval)
	stop := make(chan struct{})
	s.ticker, s.tickStop = t, stop

	go s.tickLoop(t.Chan(), stop)
}

func (s *Scheduler) stopTickerLocked() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.tickStop)
	s.ticker, s.tickStop = nil, nil
}

func (s *Scheduler) tickLoop(ticks <-chan time.Time, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-s.ctx.Done():
			return
		case <-ticks:
			s.Refresh()
		}
	}
}
