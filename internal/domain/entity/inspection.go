package entity

import "time"

// Inspection statuses
const (
	InspectionStatusScheduled   = "scheduled"
	InspectionStatusInProgress  = "in_progress"
	InspectionStatusCompleted   = "completed"
	InspectionStatusCancelled   = "cancelled"
	InspectionStatusNoAccess    = "no_access"
	InspectionStatusRescheduled = "rescheduled"
)

// Inspection results
const (
	InspectionResultPending     = "pending"
	InspectionResultPassed      = "passed"
	InspectionResultFailed      = "failed"
	InspectionResultPartial     = "partial"
	InspectionResultConditional = "conditional"
	InspectionResultCancelled   = "cancelled"
)

// Inspection types: the closed trade/phase enum
const (
	InspectionTypeFooting    = "footing"
	InspectionTypeFoundation = "foundation"
	InspectionTypeFraming    = "framing"
	InspectionTypeElectrical = "electrical"
	InspectionTypePlumbing   = "plumbing"
	InspectionTypeMechanical = "mechanical"
	InspectionTypeInsulation = "insulation"
	InspectionTypeRoofing    = "roofing"
	InspectionTypeFinal      = "final"
)

// InspectionTypes lists every recognized inspection type
var InspectionTypes = []string{
	InspectionTypeFooting,
	InspectionTypeFoundation,
	InspectionTypeFraming,
	InspectionTypeElectrical,
	InspectionTypePlumbing,
	InspectionTypeMechanical,
	InspectionTypeInsulation,
	InspectionTypeRoofing,
	InspectionTypeFinal,
}

// IsInspectionType reports whether t is a recognized inspection type
func IsInspectionType(t string) bool {
	for _, known := range InspectionTypes {
		if known == t {
			return true
		}
	}
	return false
}

// TimeSlot is a half-open [Start, End) interval on a calendar day
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two slots intersect. The three cases: s starts
// inside other, s ends inside other, s fully contains other.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	if s.Start.Compare(other.Start) >= 0 && s.Start.Before(other.End) {
		return true
	}
	if s.End.After(other.Start) && s.End.Compare(other.End) <= 0 {
		return true
	}
	return s.Start.Compare(other.Start) <= 0 && s.End.Compare(other.End) >= 0
}

// Violation is one correctable defect recorded during an inspection
type Violation struct {
	Code        string     `json:"code,omitempty"`
	Description string     `json:"description"`
	Severity    string     `json:"severity,omitempty"`
	RecordedBy  string     `json:"recordedBy"`
	RecordedAt  time.Time  `json:"recordedAt"`
	Resolved    bool       `json:"resolved"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy  string     `json:"resolvedBy,omitempty"`
}

// ChecklistItem is one point-in-time checklist entry copied from the active
// template when the inspection is first accessed.
type ChecklistItem struct {
	Order   int    `json:"order"`
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
	Notes   string `json:"notes,omitempty"`
}

// InspectionHistoryEntry is one append-only action record
type InspectionHistoryEntry struct {
	Action      string    `json:"action"`
	PerformedBy string    `json:"performedBy"`
	PerformedAt time.Time `json:"performedAt"`
	Details     string    `json:"details,omitempty"`
}

// PermitInspection is one scheduled or completed inspection event tied to
// exactly one permit. Never hard-deleted.
type PermitInspection struct {
	ID             int64  `json:"id"`
	PermitID       int64  `json:"permitId"`
	MunicipalityID string `json:"municipalityId"`
	PropertyID     string `json:"propertyId"`
	Type           string `json:"type"`

	ScheduledDate     time.Time `json:"scheduledDate"`
	ScheduledTimeSlot TimeSlot  `json:"scheduledTimeSlot"`
	InspectorID       string    `json:"inspector"`

	Status string `json:"status"`
	Result string `json:"result"`

	Violations []Violation     `json:"violations,omitempty"`
	Checklist  []ChecklistItem `json:"checklist,omitempty"`

	RequiresReinspection bool `json:"requiresReinspection"`

	History []InspectionHistoryEntry `json:"history,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OpenViolations counts unresolved violations
func (i *PermitInspection) OpenViolations() int {
	var open int
	for _, v := range i.Violations {
		if !v.Resolved {
			open++
		}
	}
	return open
}

// RefreshReinspection applies the invariant: requiresReinspection is true
// whenever any violation exists or the result is failed, or partial with
// open violations.
func (i *PermitInspection) RefreshReinspection() {
	if len(i.Violations) > 0 {
		i.RequiresReinspection = true
		return
	}
	if i.Result == InspectionResultFailed {
		i.RequiresReinspection = true
		return
	}
	if i.Result == InspectionResultPartial && i.OpenViolations() > 0 {
		i.RequiresReinspection = true
	}
}

// Inspector is a member of the municipality's inspection pool. An empty
// SupportedTypes list means the inspector covers all types.
type Inspector struct {
	ID             string   `json:"id"`
	MunicipalityID string   `json:"municipalityId"`
	Name           string   `json:"name"`
	SupportedTypes []string `json:"supportedTypes,omitempty"`
	MaxPerDay      int      `json:"maxPerDay"`
	Active         bool     `json:"active"`
}

// Supports reports whether the inspector can perform the inspection type
func (i Inspector) Supports(inspectionType string) bool {
	if len(i.SupportedTypes) == 0 {
		return true
	}
	for _, t := range i.SupportedTypes {
		if t == inspectionType {
			return true
		}
	}
	return false
}

// DayWindow is one bookable window on a day of the week, minutes from midnight
type DayWindow struct {
	Weekday      time.Weekday `json:"weekday"`
	StartMinutes int          `json:"startMinutes"`
	EndMinutes   int          `json:"endMinutes"`
}
