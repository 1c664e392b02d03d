package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTime(t *testing.T) {
	ct, err := ParseClockTime("17:30")
	require.NoError(t, err)
	assert.Equal(t, ClockTime{Hour: 17, Minute: 30}, ct)
	assert.Equal(t, "17:30", ct.String())

	for _, bad := range []string{"", "25:00", "12:60", "noon", "12", "12:0x"} {
		_, err := ParseClockTime(bad)
		assert.Error(t, err, bad)
	}
}

func TestFromTmpDefaults(t *testing.T) {
	cfg, err := FromTmp(ConfigTmp{})
	require.NoError(t, err)

	assert.Equal(t, "folio.db", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.WebAddr)
	assert.Equal(t, ClockTime{Hour: 17, Minute: 30}, cfg.DailyAt)
	assert.Equal(t, ClockTime{Hour: 12, Minute: 0}, cfg.WeeklyAt)
	assert.Equal(t, "America/New_York", cfg.Location.String())
}

func TestFromTmpNormalizesWatchlist(t *testing.T) {
	cfg, err := FromTmp(ConfigTmp{Watchlist: []string{" aapl ", "MSFT", "", "  "}})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Watchlist)
}

func TestFromTmpRejectsBadSchedule(t *testing.T) {
	_, err := FromTmp(ConfigTmp{DailyAt: "99:00"})
	require.Error(t, err)

	_, err = FromTmp(ConfigTmp{Timezone: "Not/AZone"})
	require.Error(t, err)
}
