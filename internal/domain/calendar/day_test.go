package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysUntilIsSigned(t *testing.T) {
	end := NewDay(2024, time.June, 30)

	assert.Equal(t, 10, NewDay(2024, time.June, 20).DaysUntil(end))
	assert.Equal(t, 0, end.DaysUntil(end))
	assert.Equal(t, -5, NewDay(2024, time.July, 5).DaysUntil(end))
}

func TestDayOfUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	instant := time.Date(2024, time.July, 1, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-07-01", DayOf(instant, time.UTC).String())
	assert.Equal(t, "2024-06-30", DayOf(instant, loc).String())
}

func TestParseDayRoundTrip(t *testing.T) {
	d, err := ParseDay("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", d.AddDays(1).String())

	_, err = ParseDay("29/02/2024")
	assert.Error(t, err)
}

func TestDayText(t *testing.T) {
	var d Day
	require.NoError(t, d.UnmarshalText([]byte("2024-06-30")))
	assert.Equal(t, NewDay(2024, time.June, 30), d)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2024-06-30", string(text))

	assert.Error(t, d.UnmarshalText([]byte("June 30")))
}
