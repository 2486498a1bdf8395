package availability

import (
	"github.com/salonbook/salonbook/libs/hours"
	"github.com/salonbook/salonbook/services/booking-service/internal/model"
)

// MarkBusy flags every slot whose start equals a live appointment's time.
// Only the start slot is blocked; a long service does not cover the slots after it.
func MarkBusy(slots []string, appts []model.Appointment) []Slot {
	taken := make(map[string]struct{}, len(appts))
	for _, a := range appts {
		if !a.Status.Blocks() {
			continue
		}
		taken[hours.Truncate(a.Time)] = struct{}{}
	}

	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		_, busy := taken[s]
		out = append(out, Slot{Time: s, Busy: busy})
	}
	return out
}

// DropPast removes slots at or before nowMinutes (minutes after midnight).
// Callers apply it only when the requested date is today in the tenant clock.
func DropPast(slots []Slot, nowMinutes int) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		m, err := hours.ParseClock(s.Time)
		if err != nil || m <= nowMinutes {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Available returns the slots that are not busy.
func Available(slots []Slot) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if !s.Busy {
			out = append(out, s)
		}
	}
	return out
}
