package ics

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
)

func toronto(t *testing.T) FixedZone {
	t.Helper()
	z, ok := LookupFixedZone("America/Toronto")
	require.True(t, ok)
	return z
}

func TestLookupFixedZoneOnlyToronto(t *testing.T) {
	for _, id := range []string{"", "UTC", "America/New_York", "Europe/Paris", "america/toronto"} {
		_, ok := LookupFixedZone(id)
		require.False(t, ok, id)
		require.Nil(t, Timezone(id), id)
	}
	require.NotNil(t, Timezone("America/Toronto"))
}

func TestFixedZoneMatchesTZDatabase(t *testing.T) {
	z := toronto(t)
	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)

	for d := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC); d.Year() < 2028; d = d.AddDate(0, 0, 1) {
		wantName, wantOffset := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc).Zone()
		name, offset, err := z.Offset(d)
		require.NoError(t, err)
		require.Equal(t, wantOffset, offset, d.Format("2006-01-02"))
		require.Equal(t, wantName, name, d.Format("2006-01-02"))
	}
}

func TestFixedZoneTransitions(t *testing.T) {
	z := toronto(t)
	cases := []struct {
		local  time.Time
		name   string
		offset int
	}{
		{time.Date(2026, 3, 8, 1, 59, 0, 0, time.UTC), "EST", -5 * 3600},
		{time.Date(2026, 3, 8, 3, 0, 0, 0, time.UTC), "EDT", -4 * 3600},
		{time.Date(2026, 11, 1, 0, 30, 0, 0, time.UTC), "EDT", -4 * 3600},
		{time.Date(2026, 11, 1, 3, 0, 0, 0, time.UTC), "EST", -5 * 3600},
		{time.Date(1960, 7, 1, 12, 0, 0, 0, time.UTC), "EST", -5 * 3600},
	}
	for _, tc := range cases {
		name, offset, err := z.Offset(tc.local)
		require.NoError(t, err)
		require.Equal(t, tc.name, name, tc.local.String())
		require.Equal(t, tc.offset, offset, tc.local.String())
	}
}

func TestFixedZoneUTC(t *testing.T) {
	z := toronto(t)

	at, name, err := z.UTC(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "EDT", name)
	require.Equal(t, time.Date(2026, 10, 15, 4, 0, 0, 0, time.UTC), at)

	at, name, err = z.UTC(time.Date(2026, 12, 1, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "EST", name)
	require.Equal(t, time.Date(2026, 12, 1, 14, 30, 0, 0, time.UTC), at)
}

func TestFormatOffset(t *testing.T) {
	require.Equal(t, "-0500", formatOffset(-5*3600))
	require.Equal(t, "-0400", formatOffset(-4*3600))
	require.Equal(t, "+0530", formatOffset(5*3600+30*60))
	require.Equal(t, "+0000", formatOffset(0))
}
