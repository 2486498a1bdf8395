package availability

import (
	"fmt"
	"time"

	"github.com/salonbook/salonbook/libs/hours"
)

const (
	SourceStaff  = "staff"
	SourceTenant = "tenant"
)

// DayHours is the resolved working window for one staff member on one date.
// Reason is set only when Closed.
type DayHours struct {
	Closed bool
	Start  string
	End    string
	Reason string
	Source string
}

// ResolveDay picks the hours for date. A staff override that names the weekday
// wins; otherwise the tenant week applies. A missing or closed entry closes the day.
func ResolveDay(date time.Time, tenantWeek, staffWeek hours.Week, tenantName, staffName string) DayHours {
	day := hours.DayName(date.Weekday())

	if staffWeek != nil {
		if entry, ok := staffWeek[day]; ok {
			if entry.Closed {
				return DayHours{
					Closed: true,
					Source: SourceStaff,
					Reason: fmt.Sprintf("%s does not work on %s", orDefault(staffName, "This staff member"), hours.Title(day)),
				}
			}
			return DayHours{Start: entry.Start, End: entry.End, Source: SourceStaff}
		}
	}

	entry, ok := tenantWeek[day]
	if !ok || entry.Closed {
		return DayHours{
			Closed: true,
			Source: SourceTenant,
			Reason: fmt.Sprintf("%s is closed on %s", orDefault(tenantName, "The salon"), hours.Title(day)),
		}
	}
	return DayHours{Start: entry.Start, End: entry.End, Source: SourceTenant}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
