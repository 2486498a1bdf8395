package availability

import "github.com/salonbook/salonbook/libs/hours"

// Slot is one bookable start time.
type Slot struct {
	Time string `json:"time"`
	Busy bool   `json:"busy"`
}

// GenerateSlots steps from start (inclusive) to end (exclusive) by interval
// minutes. A start is produced only when its whole interval ends by end, so
// 09:00-10:00 at 45 minutes yields just 09:00. It returns nil for a
// non-positive interval, an empty or inverted window, or unparsable bounds.
func GenerateSlots(start, end string, interval int) []string {
	if interval <= 0 {
		return nil
	}
	from, err := hours.ParseClock(start)
	if err != nil {
		return nil
	}
	to, err := hours.ParseClock(end)
	if err != nil || from >= to {
		return nil
	}

	slots := make([]string, 0, (to-from)/interval)
	for m := from; m+interval <= to; m += interval {
		slots = append(slots, hours.FormatClock(m))
	}
	return slots
}
