package config

import (
	"net/url"
	"strconv"
	"strings"

	"blockerday/internal/model"
)

// Resolve applies the query overrides of one feed request on top of the
// configured defaults. Unparseable values are ignored; parsed ones are
// clamped. The seed is only taken from the query when SeedViaURL is set.
func (c *Config) Resolve(q url.Values) model.GenerationConfig {
	gc := c.Generation()

	if c.SeedViaURL {
		if s := q.Get("seed"); s != "" {
			gc.SeedSalt = s
		}
	}
	if q.Has("days") {
		if n, err := strconv.Atoi(strings.TrimSpace(q.Get("days"))); err == nil {
			gc.TotalDays = ClampDays(n)
		}
	}
	if q.Has("hours") {
		if h, ok := parseNumber(q.Get("hours")); ok {
			gc.BlockHours = model.ResolveBlockHours(h)
		}
	}
	if q.Has("probability") {
		if p, ok := parseNumber(q.Get("probability")); ok {
			gc.BlockProbability = ClampProbability(p)
		}
	}
	return gc
}
