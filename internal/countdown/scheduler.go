package countdown

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/estensen/roi-dashboard/internal/models"
)

var ErrStopped = errors.New("countdown scheduler stopped")

// Update is pushed to subscribers whenever an investment's display is recomputed.
type Update struct {
	InvestmentID string
	Display      string
	At           time.Time
}

// Scheduler runs one repeating job per investment. Each job recomputes only its
// own investment from the clock; jobs share nothing but the output map.
type Scheduler struct {
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger
	cron     gocron.Scheduler

	// lifecycle serialises Replace and Stop; jobs is only touched under it.
	lifecycle sync.Mutex
	jobs      map[string]uuid.UUID
	stopped   bool

	mu          sync.RWMutex
	generation  uint64
	displays    map[string]string
	subscribers map[int]func(Update)
	nextSubID   int
}

type Option func(*Scheduler)

func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates and starts an empty scheduler. Call Replace to track investments.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		clock:       clockwork.NewRealClock(),
		interval:    time.Second,
		logger:      slog.Default(),
		jobs:        make(map[string]uuid.UUID),
		displays:    make(map[string]string),
		subscribers: make(map[int]func(Update)),
	}
	for _, opt := range opts {
		opt(s)
	}

	cron, err := gocron.NewScheduler(
		gocron.WithClock(s.clock),
		gocron.WithLogger(s.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create countdown scheduler: %w", err)
	}
	cron.Start()
	s.cron = cron

	return s, nil
}

// Replace tears down every running countdown and starts a fresh set for
// investments. Displays for the new set are computed before Replace returns.
// If scheduling fails partway, every job started by this call is removed again.
func (s *Scheduler) Replace(investments []models.Investment) error {
	gen, initial, err := s.replace(investments)
	for _, u := range initial {
		s.publish(gen, u)
	}
	return err
}

func (s *Scheduler) replace(investments []models.Investment) (uint64, []Update, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.stopped {
		return 0, nil, ErrStopped
	}

	tracked := uniqueByID(investments)
	now := s.clock.Now()

	displays := make(map[string]string, len(tracked))
	initial := make([]Update, 0, len(tracked))
	for _, inv := range tracked {
		displays[inv.ID] = Format(inv, now)
		initial = append(initial, Update{InvestmentID: inv.ID, Display: displays[inv.ID], At: now})
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.displays = displays
	s.mu.Unlock()

	teardownErr := s.teardown()

	for _, inv := range tracked {
		job, err := s.cron.NewJob(
			gocron.DurationJob(s.interval),
			gocron.NewTask(func() {
				s.tick(gen, inv)
			}),
			gocron.WithName("countdown:"+inv.ID),
			gocron.WithTags(inv.ID),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return gen, nil, errors.Join(
				teardownErr,
				fmt.Errorf("failed to schedule countdown for investment %s: %w", inv.ID, err),
				s.teardown(),
			)
		}
		s.jobs[inv.ID] = job.ID()
	}

	s.logger.Debug("countdowns replaced", "investments", len(tracked), "generation", gen)
	return gen, initial, teardownErr
}

// teardown removes every job; callers hold lifecycle.
func (s *Scheduler) teardown() error {
	var errs []error
	for id, jobID := range s.jobs {
		if err := s.cron.RemoveJob(jobID); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
			errs = append(errs, fmt.Errorf("failed to remove countdown for investment %s: %w", id, err))
		}
	}
	s.jobs = make(map[string]uuid.UUID)
	return errors.Join(errs...)
}

func (s *Scheduler) tick(gen uint64, inv models.Investment) {
	now := s.clock.Now()
	display := Format(inv, now)

	s.mu.Lock()
	if gen != s.generation {
		// Superseded by a newer snapshot.
		s.mu.Unlock()
		return
	}
	s.displays[inv.ID] = display
	s.mu.Unlock()

	s.publish(gen, Update{InvestmentID: inv.ID, Display: display, At: now})
}

// publish delivers u unless a newer Replace or Stop has superseded gen.
// Subscribers run without any scheduler lock held.
func (s *Scheduler) publish(gen uint64, u Update) {
	s.mu.RLock()
	if gen != s.generation {
		s.mu.RUnlock()
		return
	}
	subs := make([]func(Update), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(u)
	}
}

// Subscribe registers fn for every update and returns a function that removes it.
// fn runs on the scheduler's goroutines and must not block.
func (s *Scheduler) Subscribe(fn func(Update)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Snapshot returns a copy of the current countdown map.
func (s *Scheduler) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.displays))
	for id, display := range s.displays {
		out[id] = display
	}
	return out
}

// Display returns the current countdown for one investment.
func (s *Scheduler) Display(investmentID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	display, ok := s.displays[investmentID]
	return display, ok
}

// Tracked lists the investment ids that currently have a running job.
func (s *Scheduler) Tracked() []string {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stop cancels every countdown, clears the countdown map and shuts the
// scheduler down. It is safe to call twice.
func (s *Scheduler) Stop() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	s.mu.Lock()
	s.generation++
	s.displays = make(map[string]string)
	s.mu.Unlock()

	s.jobs = make(map[string]uuid.UUID)
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down countdown scheduler: %w", err)
	}
	return nil
}

// uniqueByID drops investments without an id and keeps the last entry per id.
func uniqueByID(investments []models.Investment) []models.Investment {
	index := make(map[string]int, len(investments))
	out := make([]models.Investment, 0, len(investments))
	for _, inv := range investments {
		if inv.ID == "" {
			continue
		}
		if i, seen := index[inv.ID]; seen {
			out[i] = inv
			continue
		}
		index[inv.ID] = len(out)
		out = append(out, inv)
	}
	return out
}
