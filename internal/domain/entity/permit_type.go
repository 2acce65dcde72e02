package entity

import "time"

// DepartmentReviewConfig is one required-department entry on a permit type.
// The order of entries is the order reviews are seeded onto new permits.
type DepartmentReviewConfig struct {
	Department        string   `json:"department"`
	Required          bool     `json:"required"`
	RequiredDocuments []string `json:"requiredDocuments,omitempty"`
	Checklist         []string `json:"checklist,omitempty"`
	CustomFields      []string `json:"customFields,omitempty"`
}

// CustomFormField is an applicant-facing field definition
type CustomFormField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"` // text, number, date, boolean, select
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// InspectionRequirement declares one inspection a permit type demands
type InspectionRequirement struct {
	Type             string `json:"type"`
	BufferDays       int    `json:"bufferDays"`
	EstimatedMinutes int    `json:"estimatedMinutes"`
}

// InspectionSettings groups the inspection requirements of a permit type
type InspectionSettings struct {
	RequiredInspections []InspectionRequirement `json:"requiredInspections,omitempty"`
}

// FeeScheduleLink caches the currently active schedule for quick lookup.
// Refreshed whenever a schedule is activated for the type.
type FeeScheduleLink struct {
	LinkedScheduleID *int64 `json:"linkedScheduleId,omitempty"`
}

// PermitType is the municipality-owned template governing fee policy,
// required departments and inspection requirements for a class of permits.
// Referenced, never owned, by permits.
type PermitType struct {
	ID             int64  `json:"id"`
	MunicipalityID string `json:"municipalityId"`
	Name           string `json:"name"`
	Prefix         string `json:"prefix"` // permit-number type prefix, e.g. BLD

	Categories         []string                 `json:"categories,omitempty"`
	DepartmentReviews  []DepartmentReviewConfig `json:"departmentReviews,omitempty"`
	CustomFormFields   []CustomFormField        `json:"customFormFields,omitempty"`
	InspectionSettings InspectionSettings       `json:"inspectionSettings"`
	FeeSchedule        FeeScheduleLink          `json:"feeSchedule"`

	Lifecycle Lifecycle `json:"lifecycle"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsProject reports whether permits of this type aggregate child permits.
// Multi-category types produce project permits.
func (t *PermitType) IsProject() bool {
	return len(t.Categories) > 1
}

// RequirementFor returns the inspection requirement for an inspection type
func (t *PermitType) RequirementFor(inspectionType string) (InspectionRequirement, bool) {
	for _, req := range t.InspectionSettings.RequiredInspections {
		if req.Type == inspectionType {
			return req, true
		}
	}
	return InspectionRequirement{}, false
}
