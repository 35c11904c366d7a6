package forecast

import "time"

// Calendar supplies the holiday and payday flags for a date. Training and
// forecasting must use the same calendar so encodings stay consistent.
type Calendar interface {
	IsHoliday(date time.Time) bool
	IsPayday(date time.Time) bool
}

// IsWeekend reports whether the date falls on Saturday or Sunday. Weekend
// detection is fixed and does not go through the Calendar interface.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// RegionalCalendar is the default calendar: a fixed fallback holiday set
// plus the end-of-month payday rule (the 25th or later, or the 1st).
type RegionalCalendar struct {
	holidays map[[2]int]bool // month, day
}

// NewRegionalCalendar returns the default calendar with the built-in
// holiday set.
func NewRegionalCalendar() *RegionalCalendar {
	return &RegionalCalendar{
		holidays: map[[2]int]bool{
			{1, 1}:   true, // New Year's Day
			{8, 15}:  true, // mid-August public holiday
			{10, 2}:  true, // early-October public holiday
			{12, 25}: true, // Christmas Day
		},
	}
}

// IsHoliday reports whether the date matches the fallback holiday set
func (c *RegionalCalendar) IsHoliday(date time.Time) bool {
	return c.holidays[[2]int{int(date.Month()), date.Day()}]
}

// IsPayday reports whether the date is a typical salary day
func (c *RegionalCalendar) IsPayday(date time.Time) bool {
	day := date.Day()
	return day >= 25 || day == 1
}

// StaticCalendar flags exactly the dates it was given. Useful when the
// caller already resolved holidays upstream.
type StaticCalendar struct {
	Holidays map[string]bool
	Paydays  map[string]bool
}

const calendarDateLayout = "2006-01-02"

// IsHoliday reports whether the date was registered as a holiday
func (c *StaticCalendar) IsHoliday(date time.Time) bool {
	return c.Holidays[date.Format(calendarDateLayout)]
}

// IsPayday reports whether the date was registered as a payday
func (c *StaticCalendar) IsPayday(date time.Time) bool {
	return c.Paydays[date.Format(calendarDateLayout)]
}
