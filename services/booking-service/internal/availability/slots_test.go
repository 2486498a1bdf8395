package availability

import (
	"testing"

	"github.com/salonbook/salonbook/libs/hours"
)

func TestGenerateSlots_FullDay(t *testing.T) {
	slots := GenerateSlots("09:00", "18:00", 30)
	if len(slots) != 18 {
		t.Fatalf("expected 18 slots, got %d", len(slots))
	}
	if slots[0] != "09:00" || slots[1] != "09:30" {
		t.Fatalf("unexpected first slots %v", slots[:2])
	}
	if slots[len(slots)-1] != "17:30" {
		t.Fatalf("expected last slot 17:30, got %s", slots[len(slots)-1])
	}
}

func TestGenerateSlots_CountIsFloorOfWindow(t *testing.T) {
	cases := []struct {
		start, end string
		interval   int
	}{
		{"09:00", "18:00", 30},
		{"09:00", "17:50", 45},
		{"08:15", "12:00", 20},
		{"00:00", "23:59", 7},
		{"10:00", "10:05", 10},
	}
	for _, tc := range cases {
		from, _ := hours.ParseClock(tc.start)
		to, _ := hours.ParseClock(tc.end)
		want := (to - from) / tc.interval

		slots := GenerateSlots(tc.start, tc.end, tc.interval)
		if len(slots) != want {
			t.Fatalf("%s-%s/%d: expected %d slots, got %d", tc.start, tc.end, tc.interval, want, len(slots))
		}
		for _, s := range slots {
			m, err := hours.ParseClock(s)
			if err != nil {
				t.Fatalf("slot %q is not HH:MM", s)
			}
			if m < from || m >= to {
				t.Fatalf("slot %s outside [%s, %s)", s, tc.start, tc.end)
			}
		}
	}
}

func TestGenerateSlots_DropsTrailingPartialInterval(t *testing.T) {
	got := GenerateSlots("09:00", "10:00", 45)
	if len(got) != 1 || got[0] != "09:00" {
		t.Fatalf("expected [09:00], got %v", got)
	}
}

func TestGenerateSlots_Degenerate(t *testing.T) {
	cases := []struct {
		start, end string
		interval   int
	}{
		{"09:00", "18:00", 0},
		{"09:00", "18:00", -15},
		{"18:00", "09:00", 30},
		{"09:00", "09:00", 30},
		{"nine", "18:00", 30},
		{"09:00", "", 30},
	}
	for _, tc := range cases {
		if got := GenerateSlots(tc.start, tc.end, tc.interval); len(got) != 0 {
			t.Fatalf("%s-%s/%d: expected no slots, got %v", tc.start, tc.end, tc.interval, got)
		}
	}
}
