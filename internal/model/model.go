package model

import (
	"math"
	"time"
)

// DateLayout is the calendar-date form used for day seeds and event ids.
const DateLayout = "2006-01-02"

// DefaultBlockHours is used whenever a block size outside AllowedBlockHours
// is requested.
const DefaultBlockHours = 3

// AllowedBlockHours lists the block sizes that evenly divide a day.
var AllowedBlockHours = []float64{0.5, 1, 2, 3, 4, 6, 8, 12, 24}

// GenerationConfig is the fully resolved input of one feed generation.
// It is built once at the HTTP boundary and passed by value into the
// generator, which never reads the environment itself.
type GenerationConfig struct {
	// SeedSalt is the sole source of determinism.
	SeedSalt string
	// BlockProbability is the chance that a block is busy. The boundary
	// keeps it within [0.01, 0.99].
	BlockProbability float64
	// CalendarName is the calendar title and every event's summary.
	CalendarName string
	// Timezone is the TZID declared by the calendar and referenced by
	// every DTSTART/DTEND.
	Timezone string
	// BlockHours is the size of each candidate block, one of AllowedBlockHours.
	BlockHours float64
	// TotalDays is the number of days after today to schedule; TotalDays+1
	// days are examined.
	TotalDays int
}

// ResolveBlockHours returns h when it is one of AllowedBlockHours and
// DefaultBlockHours otherwise.
func ResolveBlockHours(h float64) float64 {
	for _, allowed := range AllowedBlockHours {
		if h == allowed {
			return h
		}
	}
	return DefaultBlockHours
}

// BlocksPerDay reports how many blocks of h hours partition a day.
func BlocksPerDay(h float64) int {
	return int(24 / ResolveBlockHours(h))
}

// Block is one candidate slot of a day.
type Block struct {
	Index int
	// StartMinute / EndMinute are offsets from local midnight; EndMinute of
	// the last block is 1440.
	StartMinute int
	EndMinute   int
	// Draw is the PRNG value that decided the block.
	Draw float64
	Busy bool
}

// NewBlock computes the minute bounds of block i for blocks of h hours.
func NewBlock(i int, h float64) Block {
	return Block{
		Index:       i,
		StartMinute: int(math.Round(float64(i) * h * 60)),
		EndMinute:   int(math.Round(float64(i+1) * h * 60)),
	}
}

// Day holds every block of one scheduled calendar date.
type Day struct {
	// Date is midnight of the day, location UTC.
	Date   time.Time
	Seed   uint32
	Blocks []Block
}

// Key returns the YYYY-MM-DD form of the day.
func (d Day) Key() string {
	return d.Date.Format(DateLayout)
}

// Event is a busy block ready to be written as a VEVENT.
type Event struct {
	UID   string
	Date  time.Time
	Block Block

	// Start / End are floating wall-clock times in the configured timezone.
	// They are carried in a UTC time.Time only as a container for the wall
	// fields. A block ending at 24:00 ends at 00:00 of the following date.
	Start time.Time
	End   time.Time

	// Stamp is the generation time, the only non-reproducible field.
	Stamp time.Time

	Summary string
}

// Calendar is the result of one generation.
type Calendar struct {
	Config GenerationConfig
	// Today is the UTC date that anchors the schedule.
	Today time.Time
	// Namespace is the hex hash of the seed shared by every event UID.
	Namespace string
	Days      []Day
	// Events are ordered day-major, then by block index.
	Events []Event
}

// BusyCount reports the number of busy blocks across all days.
func (c Calendar) BusyCount() int {
	return len(c.Events)
}
