package availability

import "time"

// Clock is injected so "today" and the past-time cut-off are testable.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// TenantNow returns now shifted into a fixed UTC offset.
func TenantNow(c Clock, offsetMinutes int) time.Time {
	return c.Now().In(time.FixedZone("", offsetMinutes*60))
}
