package schedule

import "time"

// DefaultBufferMinutes is the minimum lead time between "now" and a same-day
// slot's start for the slot to be offered.
const DefaultBufferMinutes = 120

// FilterBookable returns the slots that are still legally bookable at the
// given instant. The caller supplies the instant so the function stays a pure
// computation over its inputs.
//
// "Today" and the current time of day are both evaluated in loc, the clinic's
// reference timezone; a slot dated before today is dropped, a slot dated
// today is dropped unless it starts at least bufferMinutes from now, and a
// slot dated after today is always kept.
func FilterBookable(slots []ScheduleSlot, now time.Time, bufferMinutes int, loc *time.Location) []ScheduleSlot {
	local := now.In(loc)
	today := DateOf(local)
	nowMinutes := local.Hour()*60 + local.Minute()

	out := make([]ScheduleSlot, 0, len(slots))
	for _, s := range slots {
		switch {
		case s.Date.Before(today):
			continue
		case s.Date.After(today):
			out = append(out, s)
		case s.TimeFrom.Minutes()-nowMinutes >= bufferMinutes:
			out = append(out, s)
		}
	}
	return out
}
