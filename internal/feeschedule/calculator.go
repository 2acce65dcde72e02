// Package feeschedule implements versioned fee policies: the deterministic
// fee calculator and the draft/scheduled/active/archived lifecycle.
package feeschedule

import (
	"sort"

	"github.com/chadRoberge/avitar-suite-sub001/internal/apperr"
	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
)

// CalculateFees computes a fee breakdown from permit data. Pure function:
// no side effects, no persistence.
func CalculateFees(cfg entity.FeeConfiguration, data entity.PermitData) entity.FeeBreakdown {
	base := baseFee(cfg, data)
	base = clamp(base, cfg.MinimumFee, cfg.MaximumFee)

	breakdown := entity.FeeBreakdown{BaseFee: base, TotalFee: base}

	for _, add := range cfg.AdditionalFees {
		if !conditionApplies(add.AppliesWhen, data) {
			continue
		}

		amount := additionalAmount(add, base, data)
		breakdown.AdditionalFees = append(breakdown.AdditionalFees, entity.FeeLineItem{
			Name:     add.Name,
			Amount:   amount,
			Optional: add.IsOptional,
		})

		// Optional fees are elective add-ons: reported, never totaled
		if !add.IsOptional {
			breakdown.TotalFee += amount
		}
	}

	return breakdown
}

func baseFee(cfg entity.FeeConfiguration, data entity.PermitData) float64 {
	switch cfg.CalculationType {
	case entity.CalcFlat:
		return cfg.BaseAmount
	case entity.CalcPerSqft:
		return cfg.BaseAmount + data.SquareFootage*cfg.PerSqftRate
	case entity.CalcPercentage:
		return cfg.BaseAmount + data.EstimatedValue*(cfg.PercentageRate/100)
	case entity.CalcTiered:
		return tieredFee(cfg, data.EstimatedValue)
	case entity.CalcCustom:
		// Formula evaluation is an unimplemented extension point; custom
		// configurations are rejected at validation time, so this only
		// covers legacy rows.
		return cfg.BaseAmount
	default:
		return cfg.BaseAmount
	}
}

// tieredFee applies cumulative brackets: every tier whose floor the value
// reaches contributes, not just the highest bracket.
func tieredFee(cfg entity.FeeConfiguration, value float64) float64 {
	fee := cfg.BaseAmount

	tiers := make([]entity.FeeTier, len(cfg.Tiers))
	copy(tiers, cfg.Tiers)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinValue < tiers[j].MinValue })

	for _, tier := range tiers {
		if value < tier.MinValue {
			continue
		}

		fee += tier.FlatAmount

		upper := value
		if tier.MaxValue != nil && *tier.MaxValue < value {
			upper = *tier.MaxValue
		}
		if delta := upper - tier.MinValue; delta > 0 {
			fee += tier.Rate * delta
		}
	}

	return fee
}

// clamp raises to the floor first, then applies the cap. Zero means
// unconfigured for both bounds.
func clamp(fee, minimum, maximum float64) float64 {
	if minimum > 0 && fee < minimum {
		fee = minimum
	}
	if maximum > 0 && fee > maximum {
		fee = maximum
	}
	return fee
}

// conditionApplies evaluates an appliesWhen gate. No condition means the
// fee always applies.
func conditionApplies(cond *entity.FeeCondition, data entity.PermitData) bool {
	if cond == nil {
		return true
	}

	value, ok := data.Field(cond.Field)
	if !ok {
		return false
	}

	switch cond.Operator {
	case entity.OpGT:
		return value > cond.Value
	case entity.OpGTE:
		return value >= cond.Value
	case entity.OpLT:
		return value < cond.Value
	case entity.OpLTE:
		return value <= cond.Value
	case entity.OpEQ:
		return value == cond.Value
	default:
		return false
	}
}

// additionalAmount computes one additional fee against the clamped base fee
func additionalAmount(add entity.AdditionalFee, baseFee float64, data entity.PermitData) float64 {
	switch add.CalculationType {
	case entity.AddFeePercentageOfBase:
		return baseFee * (add.Rate / 100)
	case entity.AddFeePerSqft:
		return add.Rate * data.SquareFootage
	case entity.AddFeePerUnit:
		units := data.Units
		if units <= 0 {
			units = 1
		}
		return add.Rate * units
	default: // flat
		return add.Amount
	}
}

// ValidateConfiguration checks a fee configuration before it is saved.
// Custom calculation is a declared enum value with no formula evaluator, so
// it is rejected here rather than silently degrading to the base amount.
func ValidateConfiguration(cfg entity.FeeConfiguration) error {
	switch cfg.CalculationType {
	case entity.CalcFlat, entity.CalcPerSqft, entity.CalcPercentage, entity.CalcTiered:
	case entity.CalcCustom:
		return apperr.Validation("custom fee calculation is not supported")
	default:
		return apperr.Validation("unknown calculation type %q", cfg.CalculationType)
	}

	if cfg.BaseAmount < 0 {
		return apperr.Validation("base amount must not be negative")
	}
	if cfg.MinimumFee < 0 || cfg.MaximumFee < 0 {
		return apperr.Validation("fee bounds must not be negative")
	}
	if cfg.MinimumFee > 0 && cfg.MaximumFee > 0 && cfg.MinimumFee > cfg.MaximumFee {
		return apperr.Validation("minimum fee exceeds maximum fee")
	}

	if cfg.CalculationType == entity.CalcTiered && len(cfg.Tiers) == 0 {
		return apperr.Validation("tiered calculation requires at least one tier")
	}
	for _, tier := range cfg.Tiers {
		if tier.MinValue < 0 || tier.Rate < 0 || tier.FlatAmount < 0 {
			return apperr.Validation("tier values must not be negative")
		}
		if tier.MaxValue != nil && *tier.MaxValue <= tier.MinValue {
			return apperr.Validation("tier max value must exceed min value")
		}
	}

	for _, add := range cfg.AdditionalFees {
		switch add.CalculationType {
		case entity.AddFeeFlat, entity.AddFeePercentageOfBase, entity.AddFeePerSqft, entity.AddFeePerUnit:
		default:
			return apperr.Validation("unknown additional fee calculation type %q", add.CalculationType)
		}
		if add.AppliesWhen != nil {
			switch add.AppliesWhen.Operator {
			case entity.OpGT, entity.OpGTE, entity.OpLT, entity.OpLTE, entity.OpEQ:
			default:
				return apperr.Validation("unknown condition operator %q", add.AppliesWhen.Operator)
			}
		}
	}

	return nil
}
