package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRule(weekday Weekday, from, to string, validFrom, validTo Date) AvailabilityRule {
	return AvailabilityRule{
		ID:          uuid.New(),
		DoctorID:    uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		SpecialtyID: uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		Weekday:     weekday,
		TimeFrom:    MustTimeOfDay(from),
		TimeTo:      MustTimeOfDay(to),
		ValidFrom:   validFrom,
		ValidTo:     validTo,
		Active:      true,
	}
}

func january2025() (Date, Date) {
	return MonthRange(2025, time.January)
}

func TestExpandAvailability_MondayMorning(t *testing.T) {
	from, to := january2025()
	rule := testRule(Monday, "08:00", "10:00", from, to)

	slots, err := ExpandAvailability([]AvailabilityRule{rule}, from, to, 30)
	require.NoError(t, err)

	// Mondays in January 2025: 6, 13, 20, 27. Four 30-minute slots each.
	require.Len(t, slots, 16)

	mondays := map[string]int{}
	for _, s := range slots {
		assert.Equal(t, Monday, s.Date.Weekday())
		assert.Equal(t, 30, s.TimeTo.Minutes()-s.TimeFrom.Minutes())
		mondays[s.Date.String()]++
	}
	assert.Equal(t, map[string]int{
		"2025-01-06": 4,
		"2025-01-13": 4,
		"2025-01-20": 4,
		"2025-01-27": 4,
	}, mondays)

	// First day's slots are contiguous from 08:00 to 10:00.
	first := slots[:4]
	assert.Equal(t, "08:00", first[0].TimeFrom.String())
	assert.Equal(t, "10:00", first[3].TimeTo.String())
	for i := 1; i < 4; i++ {
		assert.Equal(t, first[i-1].TimeTo, first[i].TimeFrom)
	}
}

func TestExpandAvailability_SlotCountWhenDurationDividesEvenly(t *testing.T) {
	from, to := january2025()
	rule := testRule(Wednesday, "08:00", "14:00", from, to)

	slots, err := ExpandAvailability([]AvailabilityRule{rule}, from, to, 30)
	require.NoError(t, err)

	// 6 hours / 30 min = 12 slots per Wednesday; five Wednesdays in Jan 2025.
	assert.Len(t, slots, 12*5)
}

func TestExpandAvailability_DiscardsShortRemainder(t *testing.T) {
	day := NewDate(2025, time.January, 6)
	rule := testRule(Monday, "08:00", "09:15", day, day)

	slots, err := ExpandAvailability([]AvailabilityRule{rule}, day, day, 30)
	require.NoError(t, err)

	// 75 minutes holds two full 30-minute slots; the 15-minute tail is dropped.
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[1].TimeTo.String())
}

func TestExpandAvailability_ValidityWindowClipsDates(t *testing.T) {
	from, to := january2025()
	rule := testRule(Monday, "08:00", "09:00", NewDate(2025, time.January, 10), NewDate(2025, time.January, 20))

	slots, err := ExpandAvailability([]AvailabilityRule{rule}, from, to, 30)
	require.NoError(t, err)

	dates := map[string]bool{}
	for _, s := range slots {
		dates[s.Date.String()] = true
	}
	assert.Equal(t, map[string]bool{"2025-01-13": true, "2025-01-20": true}, dates)
}

func TestExpandAvailability_InactiveRuleIgnored(t *testing.T) {
	from, to := january2025()
	rule := testRule(Monday, "08:00", "10:00", from, to)
	rule.Active = false

	slots, err := ExpandAvailability([]AvailabilityRule{rule}, from, to, 30)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestExpandAvailability_InvalidDuration(t *testing.T) {
	from, to := january2025()
	rule := testRule(Monday, "08:00", "10:00", from, to)

	for _, duration := range []int{0, -15} {
		_, err := ExpandAvailability([]AvailabilityRule{rule}, from, to, duration)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "duration_minutes", verr.Field)
	}
}

func TestExpandAvailability_InvalidTimeRange(t *testing.T) {
	from, to := january2025()

	for _, tc := range []struct{ from, to string }{
		{"10:00", "10:00"},
		{"10:00", "08:00"},
	} {
		rule := testRule(Monday, tc.from, tc.to, from, to)
		_, err := ExpandAvailability([]AvailabilityRule{rule}, from, to, 30)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	}
}

func TestExpandAvailability_RejectsOverlappingRules(t *testing.T) {
	from, to := january2025()
	a := testRule(Monday, "08:00", "12:00", from, to)
	b := testRule(Monday, "11:00", "14:00", from, to)

	_, err := ExpandAvailability([]AvailabilityRule{a, b}, from, to, 30)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "availability_rules", verr.Field)
}

func TestExpandAvailability_NonOverlappingSameDayRulesBothContribute(t *testing.T) {
	day := NewDate(2025, time.January, 6)
	morning := testRule(Monday, "08:00", "10:00", day, day)
	afternoon := testRule(Monday, "14:00", "16:00", day, day)

	slots, err := ExpandAvailability([]AvailabilityRule{morning, afternoon}, day, day, 60)
	require.NoError(t, err)
	require.Len(t, slots, 4)
}

func TestExpandAvailability_OverlapAllowedWhenValidityDisjoint(t *testing.T) {
	a := testRule(Monday, "08:00", "12:00", NewDate(2025, time.January, 1), NewDate(2025, time.January, 15))
	b := testRule(Monday, "10:00", "14:00", NewDate(2025, time.January, 16), NewDate(2025, time.January, 31))

	from, to := january2025()
	_, err := ExpandAvailability([]AvailabilityRule{a, b}, from, to, 30)
	assert.NoError(t, err)
}
