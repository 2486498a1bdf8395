package availability

import (
	"strings"
	"testing"
	"time"

	"github.com/salonbook/salonbook/libs/hours"
)

var (
	sunday = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
)

func TestResolveDay_TenantDefault(t *testing.T) {
	dh := ResolveDay(monday, hours.DefaultWeek(), nil, "Salon A", "Ayse")
	if dh.Closed || dh.Start != "09:00" || dh.End != "18:00" || dh.Source != SourceTenant {
		t.Fatalf("unexpected hours %+v", dh)
	}
}

func TestResolveDay_TenantClosed(t *testing.T) {
	dh := ResolveDay(sunday, hours.DefaultWeek(), nil, "Salon A", "Ayse")
	if !dh.Closed || dh.Source != SourceTenant {
		t.Fatalf("expected tenant-closed sunday, got %+v", dh)
	}
	if dh.Reason != "Salon A is closed on Sunday" {
		t.Fatalf("unexpected reason %q", dh.Reason)
	}
}

func TestResolveDay_StaffOverrideClosesOpenTenantDay(t *testing.T) {
	tenant := hours.DefaultWeek()
	tenant["sunday"] = hours.Day{Start: "10:00", End: "16:00"}
	staff := hours.Week{"sunday": {Closed: true}}

	dh := ResolveDay(sunday, tenant, staff, "Salon A", "Ayse")
	if !dh.Closed || dh.Source != SourceStaff {
		t.Fatalf("expected staff-closed sunday, got %+v", dh)
	}
	if !strings.Contains(dh.Reason, "Ayse") || !strings.Contains(dh.Reason, "Sunday") {
		t.Fatalf("expected staff-specific reason, got %q", dh.Reason)
	}
}

func TestResolveDay_StaffOverrideHours(t *testing.T) {
	staff := hours.Week{"monday": {Start: "12:00", End: "20:00"}}
	dh := ResolveDay(monday, hours.DefaultWeek(), staff, "Salon A", "Ayse")
	if dh.Closed || dh.Start != "12:00" || dh.End != "20:00" || dh.Source != SourceStaff {
		t.Fatalf("unexpected hours %+v", dh)
	}
}

func TestResolveDay_StaffOverrideWithoutDayFallsBack(t *testing.T) {
	staff := hours.Week{"tuesday": {Closed: true}}
	dh := ResolveDay(monday, hours.DefaultWeek(), staff, "Salon A", "Ayse")
	if dh.Closed || dh.Source != SourceTenant {
		t.Fatalf("expected tenant hours, got %+v", dh)
	}
}

func TestResolveDay_MissingTenantEntryIsClosed(t *testing.T) {
	dh := ResolveDay(monday, hours.Week{}, nil, "", "")
	if !dh.Closed || dh.Reason == "" {
		t.Fatalf("expected closed with reason, got %+v", dh)
	}
}
