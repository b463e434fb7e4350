package calendar

import "time"

// Day is a civil date. Deadlines and idempotency keys are computed on days,
// never on instants, so the same tick on the same date always agrees.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return Day{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

func NewDay(year int, month time.Month, day int) Day {
	return DayOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC), time.UTC)
}

func (d Day) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns the signed number of days from d to other.
func (d Day) DaysUntil(other Day) int {
	return int(other.midnight().Sub(d.midnight()).Hours() / 24)
}

func (d Day) Before(other Day) bool { return d.midnight().Before(other.midnight()) }
func (d Day) After(other Day) bool  { return d.midnight().After(other.midnight()) }
func (d Day) IsZero() bool          { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

func (d Day) AddDays(n int) Day {
	return DayOf(d.midnight().AddDate(0, 0, n), time.UTC)
}

func (d Day) String() string {
	return d.midnight().Format("2006-01-02")
}

func ParseDay(value string) (Day, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t, time.UTC), nil
}

func (d Day) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
