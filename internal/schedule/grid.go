package schedule

import (
	"sort"

	"github.com/google/uuid"
)

// DoctorSlots is one doctor's slots within a single day of the grid.
type DoctorSlots struct {
	DoctorID uuid.UUID      `json:"doctor_id"`
	Slots    []ScheduleSlot `json:"slots"`
}

// DayGrid is one calendar day of the week grid.
type DayGrid struct {
	Date    Date          `json:"date"`
	Doctors []DoctorSlots `json:"doctors"`
}

// GroupByDateAndDoctor buckets a flat slot list by calendar date and, within
// a date, by doctor. The same grouping feeds the staff weekly calendar and
// the patient-facing picker, so the output order is fully deterministic:
// dates ascending, doctors by id ascending, slots by start time ascending
// with ties broken by doctor id then slot id. No slot is dropped or
// duplicated.
func GroupByDateAndDoctor(slots []ScheduleSlot) []DayGrid {
	byDate := make(map[Date]map[uuid.UUID][]ScheduleSlot)
	for _, s := range slots {
		doctors := byDate[s.Date]
		if doctors == nil {
			doctors = make(map[uuid.UUID][]ScheduleSlot)
			byDate[s.Date] = doctors
		}
		doctors[s.DoctorID] = append(doctors[s.DoctorID], s)
	}

	dates := make([]Date, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	grid := make([]DayGrid, 0, len(dates))
	for _, d := range dates {
		doctors := byDate[d]
		ids := make([]uuid.UUID, 0, len(doctors))
		for id := range doctors {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

		day := DayGrid{Date: d, Doctors: make([]DoctorSlots, 0, len(ids))}
		for _, id := range ids {
			list := doctors[id]
			sort.Slice(list, func(i, j int) bool {
				if list[i].TimeFrom != list[j].TimeFrom {
					return list[i].TimeFrom < list[j].TimeFrom
				}
				if list[i].DoctorID != list[j].DoctorID {
					return list[i].DoctorID.String() < list[j].DoctorID.String()
				}
				return list[i].ID.String() < list[j].ID.String()
			})
			day.Doctors = append(day.Doctors, DoctorSlots{DoctorID: id, Slots: list})
		}
		grid = append(grid, day)
	}
	return grid
}
