package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "animebot/pkg/logx"
)

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg: cfg,
		log: log,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// ScheduleOption tweaks a single registration.
type ScheduleOption func(*scheduleDef)

// RunImmediately makes the first trigger fire as soon as the service starts
// (or right away when registered on a running service).
func RunImmediately() ScheduleOption {
	return func(d *scheduleDef) { d.immediate = true }
}

// AddSchedule registers job under name. A previous schedule with the same
// name is replaced. Registration before Start is kept until Start runs.
func (s *Service) AddSchedule(name, schedule string, timeout time.Duration, job Job, opts ...ScheduleOption) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name required")
	}
	if job == nil {
		return errors.New("job required")
	}
	ps, err := ParseSchedule(schedule)
	if err != nil {
		return err
	}
	if _, err := s.parser.Parse(ps.CronSpec()); err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}

	d := &scheduleDef{name: name, spec: ps, timeout: timeout, job: job}
	for _, o := range opts {
		o(d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(name)
	s.defs = append(s.defs, d)
	if s.c != nil {
		if err := s.addCronLocked(d); err != nil {
			return err
		}
	}
	s.log.Debug("schedule registered",
		logx.String("name", name),
		logx.String("spec", ps.CronSpec()),
		logx.Duration("timeout", timeout),
		logx.Bool("immediate", d.immediate),
	)
	return nil
}

func (s *Service) removeLocked(name string) bool {
	n := 0
	removed := false
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

// Start begins triggering. Jobs run under a context derived from ctx.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}

	s.loc = s.loadLocationLocked()
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	cl := cronLogger{log: s.log}
	s.c = cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	for _, d := range s.defs {
		if err := s.addCronLocked(d); err != nil {
			s.log.Error("schedule register failed", logx.String("name", d.name), logx.Err(err))
		}
	}
	s.c.Start()
	s.log.Info("scheduler started", logx.String("tz", s.loc.String()), logx.Int("schedules", len(s.defs)))
}

// Stop cancels running jobs and waits for them until ctx ends.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCancel = nil
	for _, d := range s.defs {
		d.entryID = 0
	}
	s.mu.Unlock()

	if c == nil {
		return
	}
	done := c.Stop().Done()
	if cancel != nil {
		cancel()
	}
	select {
	case <-done:
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out; jobs still running")
	}
}

// Snapshot reports whether the service runs and, per schedule, its spec and
// next/previous trigger. Triggers are zero while stopped.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc := s.loc
	if loc == nil {
		loc = s.loadLocationLocked()
	}
	out := Snapshot{Running: s.c != nil, Timezone: loc.String()}
	for _, d := range s.defs {
		it := ScheduleInfo{Name: d.name, Spec: d.spec.CronSpec(), Timeout: d.timeout}
		if s.c != nil && d.entryID != 0 {
			e := s.c.Entry(d.entryID)
			it.Next, it.Prev = e.Next, e.Prev
		}
		out.Schedules = append(out.Schedules, it)
	}
	return out
}

// addCronLocked requires a running cron (s.c != nil) and s.mu held.
func (s *Service) addCronLocked(d *scheduleDef) error {
	sched, err := s.parser.Parse(d.spec.CronSpec())
	if err != nil {
		return err
	}
	if d.immediate {
		sched = &immediateSchedule{base: sched}
	}
	ctx := s.runCtx
	d.entryID = s.c.Schedule(sched, cron.FuncJob(func() { s.run(ctx, d) }))
	return nil
}

func (s *Service) run(parent context.Context, d *scheduleDef) {
	ctx := parent
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, d.timeout)
		defer cancel()
	}
	start := time.Now()
	err := d.job(ctx)
	took := time.Since(start)
	switch {
	case err == nil:
		s.log.Debug("schedule run ok", logx.String("name", d.name), logx.Duration("took", took))
	case errors.Is(err, context.Canceled) && parent.Err() != nil:
		s.log.Debug("schedule run cancelled", logx.String("name", d.name))
	default:
		s.log.Warn("schedule run failed", logx.String("name", d.name), logx.Duration("took", took), logx.Err(err))
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
