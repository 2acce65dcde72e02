package entity

import "time"

// ChecklistTemplateItem is one ordered item of a template
type ChecklistTemplateItem struct {
	Order int    `json:"order"`
	Label string `json:"label"`
}

// InspectionChecklistTemplate is the municipality+inspection-type scoped
// checklist source. At most one active template per (municipality, type);
// the partial unique index in the schema enforces it. Inspections copy the
// items by value, so later template edits never change past inspections.
type InspectionChecklistTemplate struct {
	ID             int64                   `json:"id"`
	MunicipalityID string                  `json:"municipalityId"`
	InspectionType string                  `json:"inspectionType"`
	Items          []ChecklistTemplateItem `json:"items"`
	Active         bool                    `json:"active"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

// Instantiate copies the template items into inspection checklist entries
func (t *InspectionChecklistTemplate) Instantiate() []ChecklistItem {
	items := make([]ChecklistItem, 0, len(t.Items))
	for _, item := range t.Items {
		items = append(items, ChecklistItem{Order: item.Order, Label: item.Label})
	}
	return items
}
