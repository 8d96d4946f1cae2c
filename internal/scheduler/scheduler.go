package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"blockerday/internal/config"
	appLog "blockerday/internal/log"
	"blockerday/internal/model"
	"blockerday/internal/schedule"
)

// Digest summarizes the default calendar at one point in time.
type Digest struct {
	Today       string
	RangeEnd    string
	Days        int
	BusyBlocks  int
	TotalBlocks int
}

// Scheduler periodically logs a digest of the default feed so operators
// can watch the schedule roll over at UTC midnight. It only observes; the
// HTTP handlers never read anything it produces.
type Scheduler struct {
	cron *cron.Cron
	cfg  *config.Config
	gen  *schedule.Generator
}

// New builds a scheduler evaluating cfg.DigestCron in UTC.
func New(cfg *config.Config, gen *schedule.Generator) *Scheduler {
	if gen == nil {
		gen = schedule.New(nil)
	}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)
	return &Scheduler{cron: c, cfg: cfg, gen: gen}
}

// Start registers the digest job and blocks until ctx is cancelled. It
// returns immediately when the digest is disabled, and with an error when
// the cron expression does not parse.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.DigestEnabled() {
		appLog.Info("daily digest disabled")
		return nil
	}

	spec := strings.TrimSpace(s.cfg.DigestCron)
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parse digest cron %q: %w", spec, err)
	}
	s.cron.Schedule(sched, cron.FuncJob(func() { s.RunOnce() }))

	s.cron.Start()
	appLog.Info("scheduler started",
		"digest_cron", spec,
		"next_run", sched.Next(time.Now().UTC()).Format(time.RFC3339),
	)

	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	appLog.Info("scheduler stopped")
}

// RunOnce generates the default calendar, logs its digest and returns it.
func (s *Scheduler) RunOnce() Digest {
	cal := s.gen.Generate(s.cfg.Generation())

	d := Digest{
		Today:      cal.Today.Format(model.DateLayout),
		Days:       len(cal.Days),
		BusyBlocks: cal.BusyCount(),
	}
	if n := len(cal.Days); n > 0 {
		d.RangeEnd = cal.Days[n-1].Key()
	}
	for _, day := range cal.Days {
		d.TotalBlocks += len(day.Blocks)
	}

	appLog.Info("daily digest",
		"today", d.Today,
		"range_end", d.RangeEnd,
		"days", d.Days,
		"busy_blocks", d.BusyBlocks,
		"total_blocks", d.TotalBlocks,
	)
	return d
}
