package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/Prabhat2912/contest-tracker/pkg/clock"
	"github.com/Prabhat2912/contest-tracker/pkg/logger"
)

// Task names used as schedule keys and in status reporting
const (
	TaskContestUpdates  = "contest_updates"
	TaskSolutionFetches = "solution_fetching"
)

// ContestUpdateFunc refreshes the contest store from all sources
type ContestUpdateFunc func(ctx context.Context) error

// SolutionFetchFunc runs one solution enrichment batch
type SolutionFetchFunc func(ctx context.Context) error

// Scheduler drives the recurring jobs with one-shot timers that re-arm
// themselves after every run. Daily jobs are re-anchored to the next wall
// clock occurrence each time, so runtime drift never accumulates.
type Scheduler struct {
	clk clock.Clock
	log *logger.Logger

	mu     sync.Mutex
	timers map[string]clock.Timer
}

// New creates a scheduler. A nil clk means the real wall clock.
func New(clk clock.Clock, log *logger.Logger) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		clk:    clk,
		log:    log.WithComponent("scheduler"),
		timers: make(map[string]clock.Timer),
	}
}

// ScheduleDailyContestUpdates arms the contest refresh to run every day at
// hour:minute UTC. Scheduling the same task again replaces the pending timer.
func (s *Scheduler) ScheduleDailyContestUpdates(hour, minute int, run ContestUpdateFunc) {
	log := s.log.WithTask(TaskContestUpdates)

	var arm func()
	arm = func() {
		delay := s.untilNextUTC(hour, minute)
		log.Info().Dur("delay", delay).Msg("Next contest update scheduled")
		s.setTimer(TaskContestUpdates, s.clk.AfterFunc(delay, func() {
			if err := run(context.Background()); err != nil {
				log.Error().Err(err).Msg("Contest update failed")
			}
			// Re-arm only while the schedule is still active
			if s.active(TaskContestUpdates) {
				arm()
			}
		}))
	}
	arm()
}

// ScheduleSolutionFetching runs one enrichment batch immediately and then
// every interval after the previous run completes.
func (s *Scheduler) ScheduleSolutionFetching(interval time.Duration, run SolutionFetchFunc) {
	log := s.log.WithTask(TaskSolutionFetches)

	var armAfter func(d time.Duration)
	armAfter = func(d time.Duration) {
		s.setTimer(TaskSolutionFetches, s.clk.AfterFunc(d, func() {
			if err := run(context.Background()); err != nil {
				log.Error().Err(err).Msg("Solution fetch failed")
			}
			if s.active(TaskSolutionFetches) {
				log.Info().Dur("interval", interval).Msg("Next solution fetch scheduled")
				armAfter(interval)
			}
		}))
	}

	log.Info().Dur("interval", interval).Msg("Solution fetching scheduled")
	armAfter(0)
}

// StopAllSchedules cancels every pending timer. A task whose callback is
// mid-run finishes but does not re-arm. Safe to call more than once.
func (s *Scheduler) StopAllSchedules() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
	s.log.Info().Msg("All schedules stopped")
}

// Status reports which tasks currently have a pending or re-arming timer
func (s *Scheduler) Status() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := map[string]bool{
		TaskContestUpdates:  false,
		TaskSolutionFetches: false,
	}
	for name := range s.timers {
		status[name] = true
	}
	return status
}

// untilNextUTC returns the duration until the next hour:minute in UTC,
// rolling to tomorrow when today's occurrence has already passed
func (s *Scheduler) untilNextUTC(hour, minute int) time.Duration {
	now := s.clk.Now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

func (s *Scheduler) setTimer(name string, t clock.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[name]; ok {
		old.Stop()
	}
	s.timers[name] = t
}

func (s *Scheduler) active(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[name]
	return ok
}
