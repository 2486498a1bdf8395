package hours

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayName(t *testing.T) {
	assert.Equal(t, "sunday", DayName(time.Sunday))
	assert.Equal(t, "monday", DayName(time.Monday))
	assert.Equal(t, "saturday", DayName(time.Saturday))
	assert.Equal(t, "", DayName(time.Weekday(9)))
}

func TestParseAndFormatClock(t *testing.T) {
	cases := map[string]int{"00:00": 0, "09:30": 570, "9:05": 545, "17:45:00": 1065, "23:59": 1439}
	for in, want := range cases {
		got, err := ParseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "24:00", "12:60", "1230", "ab:cd", "12:5"} {
		_, err := ParseClock(bad)
		assert.ErrorIs(t, err, ErrInvalidClock, bad)
	}
	assert.Equal(t, "09:05", FormatClock(545))
	assert.Equal(t, "09:30", Truncate("09:30:00"))
	assert.Equal(t, "garbage", Truncate("garbage"))
}

func TestDefaultWeek(t *testing.T) {
	w := DefaultWeek()
	require.Len(t, w, 7)
	assert.True(t, w["sunday"].Closed)
	assert.Equal(t, Day{Start: "09:00", End: "18:00"}, w["monday"])
	assert.Equal(t, Day{Start: "09:00", End: "18:00"}, w["saturday"])
}

func TestWeekValidate(t *testing.T) {
	require.NoError(t, Week{"monday": {Start: "09:00", End: "17:00"}, "sunday": {Closed: true}}.Validate())

	assert.Error(t, Week{"funday": {Closed: true}}.Validate())
	assert.Error(t, Week{"monday": {Start: "18:00", End: "09:00"}}.Validate())
	assert.Error(t, Week{"monday": {Start: "09:00"}}.Validate())
}

func TestLoadWeekFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "week.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Sunday: {closed: false, start: \"10:00:00\", end: \"16:00\"}\n"), 0o600))

	w, err := LoadWeek(path)
	require.NoError(t, err)
	assert.Equal(t, Week{"sunday": {Start: "10:00", End: "16:00"}}, w)

	def, err := LoadWeek("")
	require.NoError(t, err)
	assert.Equal(t, DefaultWeek(), def)
}
