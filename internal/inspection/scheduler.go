// Package inspection implements inspection scheduling: inspector
// auto-assignment, slot enumeration, buffer-day rules and the inspection
// record lifecycle.
package inspection

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
)

// CalendarReader fetches an inspector's booked day
type CalendarReader interface {
	// ListForInspectorDay returns the inspector's scheduled and in-progress
	// inspections on the given calendar day.
	ListForInspectorDay(ctx context.Context, inspectorID string, day time.Time) ([]*entity.PermitInspection, error)
}

// Scheduler finds inspectors and enumerates bookable slots
type Scheduler struct {
	calendar CalendarReader
	logger   *zap.Logger
}

// NewScheduler creates a scheduler
func NewScheduler(calendar CalendarReader, logger *zap.Logger) *Scheduler {
	return &Scheduler{calendar: calendar, logger: logger}
}

// FindAvailableInspector returns the first inspector from the pool who can
// take the slot: active, supporting the inspection type, under their daily
// cap, and free of any overlapping booking. First fit, not load balanced.
// Returns nil when nobody qualifies.
func (s *Scheduler) FindAvailableInspector(ctx context.Context, slot entity.TimeSlot, inspectionType string, pool []entity.Inspector) (*entity.Inspector, error) {
	for i := range pool {
		inspector := pool[i]
		if !inspector.Active || !inspector.Supports(inspectionType) {
			continue
		}

		booked, err := s.calendar.ListForInspectorDay(ctx, inspector.ID, slot.Start)
		if err != nil {
			return nil, err
		}

		if inspector.MaxPerDay > 0 && len(booked) >= inspector.MaxPerDay {
			continue
		}

		if hasConflict(slot, booked) {
			continue
		}

		return &inspector, nil
	}

	return nil, nil
}

func hasConflict(slot entity.TimeSlot, booked []*entity.PermitInspection) bool {
	for _, existing := range booked {
		if slot.Overlaps(existing.ScheduledTimeSlot) {
			return true
		}
	}
	return false
}

// AvailableSlot is one bookable slot with the inspector who would take it
type AvailableSlot struct {
	Slot        entity.TimeSlot `json:"slot"`
	InspectorID string          `json:"inspectorId"`
}

// EnumerateSlots walks each calendar day in [from, to], intersects the
// municipality's day-of-week windows, subdivides each window into
// slotMinutes slots and emits those for which an inspector is available.
func (s *Scheduler) EnumerateSlots(ctx context.Context, from, to time.Time, windows []entity.DayWindow, slotMinutes int, inspectionType string, pool []entity.Inspector) ([]AvailableSlot, error) {
	if slotMinutes <= 0 {
		slotMinutes = 60
	}

	var slots []AvailableSlot
	duration := time.Duration(slotMinutes) * time.Minute

	for day := startOfDay(from); !day.After(to); day = day.AddDate(0, 0, 1) {
		for _, window := range windows {
			if window.Weekday != day.Weekday() {
				continue
			}

			windowStart := day.Add(time.Duration(window.StartMinutes) * time.Minute)
			windowEnd := day.Add(time.Duration(window.EndMinutes) * time.Minute)

			for start := windowStart; !start.Add(duration).After(windowEnd); start = start.Add(duration) {
				candidate := entity.TimeSlot{Start: start, End: start.Add(duration)}

				inspector, err := s.FindAvailableInspector(ctx, candidate, inspectionType, pool)
				if err != nil {
					return nil, err
				}
				if inspector == nil {
					continue
				}

				slots = append(slots, AvailableSlot{Slot: candidate, InspectorID: inspector.ID})
			}
		}
	}

	return slots, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
