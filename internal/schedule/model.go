package schedule

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Weekday is the closed set of days an availability rule can name.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var weekdayFromTime = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

func ParseWeekday(s string) (Weekday, error) {
	switch w := Weekday(s); w {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return w, nil
	}
	return "", fmt.Errorf("unknown weekday %q", s)
}

// TimeOfDay is a clock time with minute precision, stored as minutes since
// midnight. The wire and database representation is "HH:MM".
type TimeOfDay int

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Minutes returns the offset from midnight in minutes.
func (t TimeOfDay) Minutes() int { return int(t) }

func (t TimeOfDay) Add(minutes int) TimeOfDay { return t + TimeOfDay(minutes) }

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

func (t *TimeOfDay) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseTimeOfDay(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case []byte:
		return t.Scan(string(v))
	}
	return fmt.Errorf("cannot scan %T into TimeOfDay", src)
}

// Date is a civil calendar date with no time or timezone component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf extracts the civil date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) toTime() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Weekday() Weekday {
	return weekdayFromTime[d.toTime().Weekday()]
}

// Next returns the following calendar day.
func (d Date) Next() Date {
	return DateOf(d.toTime().AddDate(0, 0, 1))
}

// Compare returns -1, 0 or 1 ordering d against o chronologically.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.toTime(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

// MonthRange returns the first and last calendar days of the given month.
func MonthRange(year int, month time.Month) (Date, Date) {
	first := NewDate(year, month, 1)
	last := DateOf(first.toTime().AddDate(0, 1, -1))
	return first, last
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Specialty struct {
	ID              uuid.UUID
	Name            string
	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AvailabilityRule is a doctor's recurring weekly commitment: a time range on
// one weekday, valid between ValidFrom and ValidTo inclusive.
type AvailabilityRule struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	SpecialtyID uuid.UUID
	Weekday     Weekday
	TimeFrom    TimeOfDay
	TimeTo      TimeOfDay
	ValidFrom   Date
	ValidTo     Date
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the rule's structural invariants.
func (r AvailabilityRule) Validate() error {
	if _, err := ParseWeekday(string(r.Weekday)); err != nil {
		return &ValidationError{Field: "weekday", Reason: err.Error()}
	}
	if r.TimeTo <= r.TimeFrom {
		return &ValidationError{
			Field:  "time_to",
			Reason: fmt.Sprintf("time range %s-%s is empty or inverted", r.TimeFrom, r.TimeTo),
		}
	}
	if r.ValidTo.Before(r.ValidFrom) {
		return &ValidationError{
			Field:  "valid_to",
			Reason: fmt.Sprintf("validity window %s..%s is inverted", r.ValidFrom, r.ValidTo),
		}
	}
	return nil
}

// coversDate reports whether the rule applies on the given calendar date.
func (r AvailabilityRule) coversDate(d Date) bool {
	if r.Weekday != d.Weekday() {
		return false
	}
	return !d.Before(r.ValidFrom) && !d.After(r.ValidTo)
}

// ScheduleSlot is one concrete bookable unit: a specialty-duration window on
// a specific date for one doctor. Whether it is booked is derived from the
// appointments table, never stored on the slot itself.
type ScheduleSlot struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	SpecialtyID uuid.UUID
	Date        Date
	TimeFrom    TimeOfDay
	TimeTo      TimeOfDay
	CreatedAt   time.Time
}

// ValidationError marks malformed rule or duration input. It is raised before
// any slot is generated for the offending doctor.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
