// v0
// detect_test.go
package detect

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/synergy-ai/optimizer/internal/model"
)

type recordingSink struct {
	conflicts []model.Conflict
}

func (s *recordingSink) Submit(c model.Conflict) { s.conflicts = append(s.conflicts, c) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func booking(id, space string, startHour, startMin, endHour, endMin int, status model.BookingStatus) model.Booking {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return model.Booking{
		ID:         id,
		EmployeeID: "emp-" + id,
		SpaceID:    space,
		SpaceType:  model.DeriveSpaceType(space),
		StartTime:  day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute),
		EndTime:    day.Add(time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute),
		Status:     status,
	}
}

func TestOverlapDetection(t *testing.T) {
	sink := &recordingSink{}
	d := New(testLogger(), sink)

	bookings := []model.Booking{
		booking("b1", "room-a", 14, 0, 15, 0, model.BookingConfirmed),
		booking("b2", "room-a", 14, 30, 15, 30, model.BookingConfirmed),
	}
	out := d.Detect(bookings, nil)
	if len(out) != 1 {
		t.Fatalf("expected one overlap conflict, got %d", len(out))
	}
	c := out[0]
	if c.Type != model.ConflictBookingOverlap {
		t.Fatalf("expected booking_overlap, got %s", c.Type)
	}
	if c.Severity != model.SeverityHigh {
		t.Fatalf("expected high severity, got %s", c.Severity)
	}
	if len(sink.conflicts) != 1 {
		t.Fatalf("expected conflict pushed to sink")
	}
}

func TestBoundaryTouchingBookingsDoNotOverlap(t *testing.T) {
	d := New(testLogger(), &recordingSink{})
	bookings := []model.Booking{
		booking("b1", "room-a", 10, 0, 11, 0, model.BookingConfirmed),
		booking("b2", "room-a", 11, 0, 12, 0, model.BookingConfirmed),
	}
	if out := d.Detect(bookings, nil); len(out) != 0 {
		t.Fatalf("bookings touching at a boundary must not overlap, got %d conflicts", len(out))
	}
}

func TestContainedBookingOverlaps(t *testing.T) {
	d := New(testLogger(), &recordingSink{})
	bookings := []model.Booking{
		booking("b1", "room-a", 10, 0, 11, 0, model.BookingConfirmed),
		booking("b2", "room-a", 10, 30, 10, 45, model.BookingConfirmed),
	}
	if out := d.Detect(bookings, nil); len(out) != 1 {
		t.Fatalf("contained booking must overlap, got %d conflicts", len(out))
	}
}

func TestNonConfirmedBookingsIgnored(t *testing.T) {
	d := New(testLogger(), &recordingSink{})
	bookings := []model.Booking{
		booking("b1", "room-a", 14, 0, 15, 0, model.BookingConfirmed),
		booking("b2", "room-a", 14, 0, 15, 0, model.BookingPending),
		booking("b3", "room-a", 14, 0, 15, 0, model.BookingCancelled),
	}
	if out := d.Detect(bookings, nil); len(out) != 0 {
		t.Fatalf("pending/cancelled bookings must not conflict, got %d", len(out))
	}
}

func TestDifferentSpacesDoNotConflict(t *testing.T) {
	d := New(testLogger(), &recordingSink{})
	bookings := []model.Booking{
		booking("b1", "room-a", 14, 0, 15, 0, model.BookingConfirmed),
		booking("b2", "room-b", 14, 0, 15, 0, model.BookingConfirmed),
	}
	if out := d.Detect(bookings, nil); len(out) != 0 {
		t.Fatalf("bookings in different spaces must not conflict, got %d", len(out))
	}
}

func TestDetectionIsIdempotent(t *testing.T) {
	d := New(testLogger(), &recordingSink{})
	bookings := []model.Booking{
		booking("b1", "room-a", 14, 0, 15, 0, model.BookingConfirmed),
		booking("b2", "room-a", 14, 30, 15, 30, model.BookingConfirmed),
	}
	first := d.Detect(bookings, nil)
	second := d.Detect(bookings, nil)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one conflict per run, got %d and %d", len(first), len(second))
	}
	if first[0].ID != second[0].ID {
		t.Fatalf("expected identical conflict id across runs: %s vs %s", first[0].ID, second[0].ID)
	}
}

func TestConflictIDIndependentOfKeyOrder(t *testing.T) {
	a := ConflictID(model.ConflictBookingOverlap, "b1", "b2")
	b := ConflictID(model.ConflictBookingOverlap, "b2", "b1")
	if a != b {
		t.Fatalf("conflict id must not depend on key order: %s vs %s", a, b)
	}
	c := ConflictID(model.ConflictOvercrowding, "b1", "b2")
	if a == c {
		t.Fatalf("conflict id must incorporate the type")
	}
}

func TestOvercrowdingThresholdIsStrict(t *testing.T) {
	d := New(testLogger(), &recordingSink{})
	alloc := func(util float64) model.SpaceAllocation {
		return model.SpaceAllocation{SpaceID: "desk-1", Utilization: util, EnvironmentalScore: 80}
	}

	if out := d.Detect(nil, []model.SpaceAllocation{alloc(0.95)}); len(out) != 0 {
		t.Fatalf("utilization exactly 0.95 must not trigger overcrowding")
	}
	out := d.Detect(nil, []model.SpaceAllocation{alloc(0.951)})
	if len(out) != 1 || out[0].Type != model.ConflictOvercrowding {
		t.Fatalf("utilization 0.951 must trigger overcrowding, got %+v", out)
	}
	if out[0].Severity != model.SeverityMedium {
		t.Fatalf("expected medium severity, got %s", out[0].Severity)
	}
}

func TestEnvironmentalAlert(t *testing.T) {
	d := New(testLogger(), &recordingSink{})
	out := d.Detect(nil, []model.SpaceAllocation{
		{SpaceID: "desk-1", Utilization: 0.2, EnvironmentalScore: 49.9},
		{SpaceID: "desk-2", Utilization: 0.2, EnvironmentalScore: 50},
	})
	if len(out) != 1 {
		t.Fatalf("expected one environmental alert, got %d", len(out))
	}
	if out[0].Type != model.ConflictEnvironmentalAlert || out[0].AffectedSpaces[0] != "desk-1" {
		t.Fatalf("unexpected conflict %+v", out[0])
	}
}

func TestUndefinedUtilizationSkipsOvercrowding(t *testing.T) {
	d := New(testLogger(), &recordingSink{})
	out := d.Detect(nil, []model.SpaceAllocation{
		{SpaceID: "desk-1", Utilization: -1, EnvironmentalScore: 80},
	})
	if len(out) != 0 {
		t.Fatalf("undefined utilization must not trigger overcrowding, got %d", len(out))
	}
}
