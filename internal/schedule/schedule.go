package schedule

import (
	"strconv"
	"time"

	"blockerday/internal/model"
)

// UIDDomain is the host part of every event UID.
const UIDDomain = "blocker.day"

// Generator turns a GenerationConfig into a Calendar. The clock is its only
// source of non-determinism: it anchors "today" and stamps events.
type Generator struct {
	now func() time.Time
}

// New creates a Generator reading time from now. A nil now uses time.Now.
func New(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Generate schedules today (UTC date) and the following cfg.TotalDays days.
// Each day gets its own Mulberry32 seeded with Hash(salt+date), and every
// block consumes exactly one draw in index order; a block is busy when the
// draw is strictly below cfg.BlockProbability.
func (g *Generator) Generate(cfg model.GenerationConfig) model.Calendar {
	cfg.BlockHours = model.ResolveBlockHours(cfg.BlockHours)
	perDay := model.BlocksPerDay(cfg.BlockHours)

	cal := model.Calendar{
		Config:    cfg,
		Today:     utcDate(g.now()),
		Namespace: HashHex(cfg.SeedSalt),
	}

	for offset := 0; offset <= cfg.TotalDays; offset++ {
		day := scheduleDay(cfg, cal.Today.AddDate(0, 0, offset), perDay)
		cal.Days = append(cal.Days, day)

		for _, b := range day.Blocks {
			if !b.Busy {
				continue
			}
			cal.Events = append(cal.Events, model.Event{
				UID:     eventUID(cfg.SeedSalt, day.Key(), b.StartMinute, cal.Namespace),
				Date:    day.Date,
				Block:   b,
				Start:   day.Date.Add(time.Duration(b.StartMinute) * time.Minute),
				End:     day.Date.Add(time.Duration(b.EndMinute) * time.Minute),
				Stamp:   g.now().UTC(),
				Summary: cfg.CalendarName,
			})
		}
	}

	return cal
}

func scheduleDay(cfg model.GenerationConfig, date time.Time, perDay int) model.Day {
	key := date.Format(model.DateLayout)
	day := model.Day{
		Date:   date,
		Seed:   Hash(cfg.SeedSalt + key),
		Blocks: make([]model.Block, 0, perDay),
	}

	rng := NewMulberry32(day.Seed)
	for i := 0; i < perDay; i++ {
		b := model.NewBlock(i, cfg.BlockHours)
		b.Draw = rng.Float64()
		b.Busy = b.Draw < cfg.BlockProbability
		day.Blocks = append(day.Blocks, b)
	}
	return day
}

// eventUID is "{hash(salt-date-startMinutes)}-{hash(salt)}@blocker.day".
func eventUID(salt, date string, startMinute int, namespace string) string {
	id := HashHex(salt + "-" + date + "-" + strconv.Itoa(startMinute))
	return id + "-" + namespace + "@" + UIDDomain
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
