package entity

import "time"

// Fee schedule lifecycle statuses
const (
	ScheduleStatusDraft     = "draft"
	ScheduleStatusScheduled = "scheduled"
	ScheduleStatusActive    = "active"
	ScheduleStatusArchived  = "archived"
)

// Fee calculation types
const (
	CalcFlat       = "flat"
	CalcPerSqft    = "per_sqft"
	CalcPercentage = "percentage"
	CalcTiered     = "tiered"
	CalcCustom     = "custom"
)

// Additional-fee calculation types
const (
	AddFeeFlat             = "flat"
	AddFeePercentageOfBase = "percentage_of_base"
	AddFeePerSqft          = "per_sqft"
	AddFeePerUnit          = "per_unit"
)

// Condition operators for additional fees
const (
	OpGT  = "gt"
	OpGTE = "gte"
	OpLT  = "lt"
	OpLTE = "lte"
	OpEQ  = "eq"
)

// FeeTier is one cumulative bracket of a tiered calculation. MaxValue nil
// means the bracket is unbounded.
type FeeTier struct {
	MinValue   float64  `json:"minValue"`
	MaxValue   *float64 `json:"maxValue,omitempty"`
	Rate       float64  `json:"rate"`
	FlatAmount float64  `json:"flatAmount"`
}

// FeeCondition gates an additional fee on a permit-data field
type FeeCondition struct {
	Field    string  `json:"field"`
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
}

// AdditionalFee is a conditional line item layered on top of the base fee.
// Optional fees appear in the breakdown but never in the total.
type AdditionalFee struct {
	Name            string        `json:"name"`
	CalculationType string        `json:"calculationType"`
	Amount          float64       `json:"amount"`
	Rate            float64       `json:"rate,omitempty"`
	AppliesWhen     *FeeCondition `json:"appliesWhen,omitempty"`
	IsOptional      bool          `json:"isOptional"`
}

// FeeConfiguration is the calculation policy of one schedule version
type FeeConfiguration struct {
	CalculationType string          `json:"calculationType"`
	BaseAmount      float64         `json:"baseAmount"`
	PerSqftRate     float64         `json:"perSqftRate,omitempty"`
	PercentageRate  float64         `json:"percentageRate,omitempty"`
	Tiers           []FeeTier       `json:"tiers,omitempty"`
	MinimumFee      float64         `json:"minimumFee,omitempty"`
	MaximumFee      float64         `json:"maximumFee,omitempty"`
	AdditionalFees  []AdditionalFee `json:"additionalFees,omitempty"`
}

// FeeSchedule is one version of a fee policy for a permit type. Immutable
// once activated except for status transitions.
type FeeSchedule struct {
	ID           int64  `json:"id"`
	PermitTypeID int64  `json:"permitTypeId"`
	Version      int    `json:"version"`
	Status       string `json:"status"`

	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
	EndDate       *time.Time `json:"endDate,omitempty"`

	FeeConfiguration FeeConfiguration `json:"feeConfiguration"`

	CreatedBy         string     `json:"createdBy"`
	PreviousVersionID *int64     `json:"previousVersionId,omitempty"`
	ActivatedAt       *time.Time `json:"activatedAt,omitempty"`
	ActivatedBy       string     `json:"activatedBy,omitempty"`
	ArchivedAt        *time.Time `json:"archivedAt,omitempty"`
	ArchivedBy        string     `json:"archivedBy,omitempty"`
	ArchivedReason    string     `json:"archivedReason,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PermitData carries the calculation inputs taken from a permit application
type PermitData struct {
	SquareFootage  float64            `json:"squareFootage,omitempty"`
	EstimatedValue float64            `json:"estimatedValue,omitempty"`
	Units          float64            `json:"units,omitempty"`
	Fields         map[string]float64 `json:"fields,omitempty"`
}

// Field resolves a named numeric field, checking the well-known inputs first
func (d PermitData) Field(name string) (float64, bool) {
	switch name {
	case "squareFootage":
		return d.SquareFootage, true
	case "estimatedValue":
		return d.EstimatedValue, true
	case "units":
		return d.Units, true
	}
	v, ok := d.Fields[name]
	return v, ok
}

// FeeLineItem is one computed fee in a breakdown or on a permit
type FeeLineItem struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Optional bool    `json:"optional,omitempty"`
	Paid     bool    `json:"paid,omitempty"`
	Refunded bool    `json:"refunded,omitempty"`
}

// FeeBreakdown is the result of a fee calculation
type FeeBreakdown struct {
	BaseFee        float64       `json:"baseFee"`
	AdditionalFees []FeeLineItem `json:"additionalFees,omitempty"`
	TotalFee       float64       `json:"totalFee"`
}

// FeeSnapshot freezes the schedule in effect at submission. Later schedule
// changes never touch it.
type FeeSnapshot struct {
	ScheduleID      int64            `json:"scheduleId"`
	ScheduleVersion int              `json:"scheduleVersion"`
	Configuration   FeeConfiguration `json:"configuration"`
	Breakdown       FeeBreakdown     `json:"breakdown"`
	CapturedAt      time.Time        `json:"capturedAt"`
}
