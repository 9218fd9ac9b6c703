package schedule

import (
	"fmt"
	"sort"
)

// ExpandAvailability materializes slot candidates from recurring weekly rules.
//
// For every calendar day in [from, to] it finds the rules whose weekday
// matches and whose validity window contains the day, then partitions each
// rule's [TimeFrom, TimeTo) range into consecutive windows of
// durationMinutes. A trailing remainder shorter than the full duration is not
// offered as a slot.
//
// Rules that overlap on the same doctor+specialty+weekday are rejected: two
// rules competing for the same clock time would materialize colliding slots,
// so the configuration is refused up front.
func ExpandAvailability(rules []AvailabilityRule, from, to Date, durationMinutes int) ([]ScheduleSlot, error) {
	if durationMinutes <= 0 {
		return nil, &ValidationError{
			Field:  "duration_minutes",
			Reason: fmt.Sprintf("appointment duration must be positive, got %d", durationMinutes),
		}
	}
	if to.Before(from) {
		return nil, &ValidationError{
			Field:  "date_range",
			Reason: fmt.Sprintf("range %s..%s is inverted", from, to),
		}
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}

	var slots []ScheduleSlot
	for day := from; !day.After(to); day = day.Next() {
		for _, r := range rules {
			if !r.Active || !r.coversDate(day) {
				continue
			}
			for start := r.TimeFrom; start.Add(durationMinutes) <= r.TimeTo; start = start.Add(durationMinutes) {
				slots = append(slots, ScheduleSlot{
					DoctorID:    r.DoctorID,
					SpecialtyID: r.SpecialtyID,
					Date:        day,
					TimeFrom:    start,
					TimeTo:      start.Add(durationMinutes),
				})
			}
		}
	}
	return slots, nil
}

// ValidateRules checks every rule's structural invariants and refuses
// overlapping rules. It runs both when staff save a weekly schedule and again
// before expansion, since rules may predate the overlap policy.
func ValidateRules(rules []AvailabilityRule) error {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return rejectOverlapping(rules)
}

// rejectOverlapping refuses rule sets where two rules for the same
// doctor+specialty+weekday have intersecting time ranges and intersecting
// validity windows.
func rejectOverlapping(rules []AvailabilityRule) error {
	type key struct {
		doctor    string
		specialty string
		weekday   Weekday
	}
	grouped := make(map[key][]AvailabilityRule)
	for _, r := range rules {
		k := key{r.DoctorID.String(), r.SpecialtyID.String(), r.Weekday}
		grouped[k] = append(grouped[k], r)
	}
	for _, group := range grouped {
		sort.Slice(group, func(i, j int) bool {
			return group[i].TimeFrom < group[j].TimeFrom
		})
		// All pairs, not just neighbours: a rule with a disjoint validity
		// window may sit between two that do collide.
		for i := range group {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if b.TimeFrom < a.TimeTo && validityIntersects(a, b) {
					return &ValidationError{
						Field: "availability_rules",
						Reason: fmt.Sprintf("rules %s-%s and %s-%s overlap on %s",
							a.TimeFrom, a.TimeTo, b.TimeFrom, b.TimeTo, b.Weekday),
					}
				}
			}
		}
	}
	return nil
}

func validityIntersects(a, b AvailabilityRule) bool {
	return !a.ValidTo.Before(b.ValidFrom) && !b.ValidTo.Before(a.ValidFrom)
}
