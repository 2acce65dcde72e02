package inspection

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
)

type mockCalendar struct {
	booked   map[string][]*entity.PermitInspection
	listFunc func(ctx context.Context, inspectorID string, day time.Time) ([]*entity.PermitInspection, error)
}

func (m *mockCalendar) ListForInspectorDay(ctx context.Context, inspectorID string, day time.Time) ([]*entity.PermitInspection, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, inspectorID, day)
	}
	return m.booked[inspectorID], nil
}

// monday is a fixed reference day so tests never depend on the wall clock.
var monday = time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC)

func slotAt(day time.Time, hour, minutes int) entity.TimeSlot {
	start := day.Add(time.Duration(hour)*time.Hour + time.Duration(minutes)*time.Minute)
	return entity.TimeSlot{Start: start, End: start.Add(time.Hour)}
}

func bookedAt(day time.Time, hour int) *entity.PermitInspection {
	return &entity.PermitInspection{ScheduledTimeSlot: slotAt(day, hour, 0)}
}

func TestScheduler_FindAvailableInspector_FirstFit(t *testing.T) {
	cal := &mockCalendar{booked: map[string][]*entity.PermitInspection{}}
	s := NewScheduler(cal, zap.NewNop())
	pool := []entity.Inspector{
		{ID: "i1", Name: "First", Active: true},
		{ID: "i2", Name: "Second", Active: true},
	}

	got, err := s.FindAvailableInspector(context.Background(), slotAt(monday, 10, 0), entity.InspectionTypeFraming, pool)
	if err != nil {
		t.Fatalf("FindAvailableInspector() error = %v", err)
	}
	if got == nil || got.ID != "i1" {
		t.Errorf("FindAvailableInspector() = %+v, want i1 (first fit)", got)
	}
}

func TestScheduler_FindAvailableInspector_SkipsInactive(t *testing.T) {
	cal := &mockCalendar{booked: map[string][]*entity.PermitInspection{}}
	s := NewScheduler(cal, zap.NewNop())
	pool := []entity.Inspector{
		{ID: "i1", Active: false},
		{ID: "i2", Active: true},
	}

	got, _ := s.FindAvailableInspector(context.Background(), slotAt(monday, 10, 0), entity.InspectionTypeFraming, pool)
	if got == nil || got.ID != "i2" {
		t.Errorf("FindAvailableInspector() = %+v, want i2", got)
	}
}

func TestScheduler_FindAvailableInspector_SkipsUnsupportedType(t *testing.T) {
	cal := &mockCalendar{booked: map[string][]*entity.PermitInspection{}}
	s := NewScheduler(cal, zap.NewNop())
	pool := []entity.Inspector{
		{ID: "i1", Active: true, SupportedTypes: []string{entity.InspectionTypeElectrical}},
		{ID: "i2", Active: true}, // empty list covers all types
	}

	got, _ := s.FindAvailableInspector(context.Background(), slotAt(monday, 10, 0), entity.InspectionTypeFraming, pool)
	if got == nil || got.ID != "i2" {
		t.Errorf("FindAvailableInspector() = %+v, want i2", got)
	}

	got, _ = s.FindAvailableInspector(context.Background(), slotAt(monday, 10, 0), entity.InspectionTypeElectrical, pool)
	if got == nil || got.ID != "i1" {
		t.Errorf("FindAvailableInspector(electrical) = %+v, want i1", got)
	}
}

func TestScheduler_FindAvailableInspector_RespectsDailyCap(t *testing.T) {
	cal := &mockCalendar{booked: map[string][]*entity.PermitInspection{
		// i1 is at cap even though nothing overlaps the requested slot
		"i1": {bookedAt(monday, 8)},
	}}
	s := NewScheduler(cal, zap.NewNop())
	pool := []entity.Inspector{
		{ID: "i1", Active: true, MaxPerDay: 1},
		{ID: "i2", Active: true, MaxPerDay: 1},
	}

	got, _ := s.FindAvailableInspector(context.Background(), slotAt(monday, 14, 0), entity.InspectionTypeFinal, pool)
	if got == nil || got.ID != "i2" {
		t.Errorf("FindAvailableInspector() = %+v, want i2", got)
	}
}

func TestScheduler_FindAvailableInspector_ZeroCapIsUnlimited(t *testing.T) {
	cal := &mockCalendar{booked: map[string][]*entity.PermitInspection{
		"i1": {bookedAt(monday, 8), bookedAt(monday, 9), bookedAt(monday, 10)},
	}}
	s := NewScheduler(cal, zap.NewNop())
	pool := []entity.Inspector{{ID: "i1", Active: true, MaxPerDay: 0}}

	got, _ := s.FindAvailableInspector(context.Background(), slotAt(monday, 14, 0), entity.InspectionTypeFinal, pool)
	if got == nil || got.ID != "i1" {
		t.Errorf("FindAvailableInspector() = %+v, want i1", got)
	}
}

func TestScheduler_FindAvailableInspector_SkipsOverlap(t *testing.T) {
	cal := &mockCalendar{booked: map[string][]*entity.PermitInspection{
		"i1": {bookedAt(monday, 10)},
	}}
	s := NewScheduler(cal, zap.NewNop())
	pool := []entity.Inspector{
		{ID: "i1", Active: true},
		{ID: "i2", Active: true},
	}

	// Half-overlapping request lands on the free inspector.
	got, _ := s.FindAvailableInspector(context.Background(), slotAt(monday, 10, 30), entity.InspectionTypeFinal, pool)
	if got == nil || got.ID != "i2" {
		t.Errorf("overlapping slot should fall to i2, got %+v", got)
	}

	// Back-to-back slots do not conflict.
	got, _ = s.FindAvailableInspector(context.Background(), slotAt(monday, 11, 0), entity.InspectionTypeFinal, pool)
	if got == nil || got.ID != "i1" {
		t.Errorf("adjacent slot should stay with i1, got %+v", got)
	}
}

func TestScheduler_FindAvailableInspector_NobodyQualifies(t *testing.T) {
	cal := &mockCalendar{booked: map[string][]*entity.PermitInspection{}}
	s := NewScheduler(cal, zap.NewNop())
	pool := []entity.Inspector{{ID: "i1", Active: false}}

	got, err := s.FindAvailableInspector(context.Background(), slotAt(monday, 10, 0), entity.InspectionTypeFinal, pool)
	if err != nil {
		t.Fatalf("FindAvailableInspector() error = %v", err)
	}
	if got != nil {
		t.Errorf("FindAvailableInspector() = %+v, want nil", got)
	}
}

func TestScheduler_EnumerateSlots(t *testing.T) {
	cal := &mockCalendar{booked: map[string][]*entity.PermitInspection{}}
	s := NewScheduler(cal, zap.NewNop())
	pool := []entity.Inspector{{ID: "i1", Active: true}}

	// One Monday window, 09:00 to 12:00.
	windows := []entity.DayWindow{{Weekday: time.Monday, StartMinutes: 540, EndMinutes: 720}}

	slots, err := s.EnumerateSlots(context.Background(), monday, monday.AddDate(0, 0, 1), windows, 60, entity.InspectionTypeFinal, pool)
	if err != nil {
		t.Fatalf("EnumerateSlots() error = %v", err)
	}

	// Tuesday has no window, so only Monday's three hourly slots appear.
	if len(slots) != 3 {
		t.Fatalf("len(slots) = %d, want 3", len(slots))
	}
	if !slots[0].Slot.Start.Equal(monday.Add(9 * time.Hour)) {
		t.Errorf("first slot = %v, want 09:00", slots[0].Slot.Start)
	}
	if slots[0].InspectorID != "i1" {
		t.Errorf("InspectorID = %s, want i1", slots[0].InspectorID)
	}
}

func TestScheduler_EnumerateSlots_ExcludesBooked(t *testing.T) {
	cal := &mockCalendar{booked: map[string][]*entity.PermitInspection{
		"i1": {bookedAt(monday, 10)},
	}}
	s := NewScheduler(cal, zap.NewNop())
	pool := []entity.Inspector{{ID: "i1", Active: true}}
	windows := []entity.DayWindow{{Weekday: time.Monday, StartMinutes: 540, EndMinutes: 720}}

	slots, err := s.EnumerateSlots(context.Background(), monday, monday, windows, 60, entity.InspectionTypeFinal, pool)
	if err != nil {
		t.Fatalf("EnumerateSlots() error = %v", err)
	}

	if len(slots) != 2 {
		t.Fatalf("len(slots) = %d, want 2", len(slots))
	}
	for _, s := range slots {
		if s.Slot.Start.Hour() == 10 {
			t.Errorf("booked 10:00 slot should be excluded")
		}
	}
}

func TestScheduler_EnumerateSlots_PartialSlotDropped(t *testing.T) {
	cal := &mockCalendar{booked: map[string][]*entity.PermitInspection{}}
	s := NewScheduler(cal, zap.NewNop())
	pool := []entity.Inspector{{ID: "i1", Active: true}}

	// 09:00 to 10:30 window with 60-minute slots: only 09:00 fits entirely.
	windows := []entity.DayWindow{{Weekday: time.Monday, StartMinutes: 540, EndMinutes: 630}}

	slots, err := s.EnumerateSlots(context.Background(), monday, monday, windows, 60, entity.InspectionTypeFinal, pool)
	if err != nil {
		t.Fatalf("EnumerateSlots() error = %v", err)
	}
	if len(slots) != 1 {
		t.Errorf("len(slots) = %d, want 1", len(slots))
	}
}

func TestTimeSlot_Overlaps(t *testing.T) {
	base := slotAt(monday, 10, 0)

	tests := []struct {
		name  string
		other entity.TimeSlot
		want  bool
	}{
		{"identical", slotAt(monday, 10, 0), true},
		{"starts inside", slotAt(monday, 10, 30), true},
		{"ends inside", slotAt(monday, 9, 30), true},
		{"contains", entity.TimeSlot{Start: monday.Add(9 * time.Hour), End: monday.Add(12 * time.Hour)}, true},
		{"adjacent before", slotAt(monday, 9, 0), false},
		{"adjacent after", slotAt(monday, 11, 0), false},
		{"disjoint", slotAt(monday, 14, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.other.Overlaps(base); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}
