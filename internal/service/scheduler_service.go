package service

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"family-finance/internal/log"
)

// SchedulerService runs named background jobs on cron. A job still running
// when its next tick arrives is skipped rather than started twice.
type SchedulerService struct {
	cron   *cron.Cron
	logger *log.Logger
}

func NewSchedulerService(loc *time.Location, logger *log.Logger) *SchedulerService {
	logger = logger.WithComponent(log.ComponentScheduler)
	cronLog := cron.PrintfLogger(logger.StdLogger(slog.LevelDebug))
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		logger: logger,
	}
}

// Daily runs job every day at clock, given as HH:MM in the scheduler's location.
func (s *SchedulerService) Daily(name, clock string, job func()) error {
	spec, err := dailySpec(clock)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return s.add(name, spec, job)
}

// Every runs job at a fixed interval, rounded down to whole seconds.
func (s *SchedulerService) Every(name string, interval time.Duration, job func()) error {
	if interval < time.Second {
		return fmt.Errorf("schedule %s: interval %s is shorter than a second", name, interval)
	}
	return s.add(name, fmt.Sprintf("@every %ds", int(interval/time.Second)), job)
}

func (s *SchedulerService) add(name, spec string, job func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		started := time.Now()
		job()
		s.logger.Debug("job finished", log.FieldJob, name, log.FieldDuration, time.Since(started).Milliseconds())
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.logger.Info("job scheduled", log.FieldJob, name, "spec", spec)
	return nil
}

func (s *SchedulerService) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", log.FieldCount, len(s.cron.Entries()))
}

// Stop halts the scheduler and waits for running jobs to return.
func (s *SchedulerService) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func dailySpec(clock string) (string, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", clock)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", clock)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", clock)
	}
	// seconds field first: WithSeconds is on
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
