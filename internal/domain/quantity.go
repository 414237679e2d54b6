package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// QuantityResult is the billable quantity of a service and how it was derived.
// A nil Quantity means the quantity could not be resolved.
type QuantityResult struct {
	Quantity   *float64
	Unit       Unit
	RuleID     *string
	Trace      string
	Conversion *string
}

// ComputeQuantity derives the billable quantity of key from the shipment
// context according to rule.
func ComputeQuantity(key ServiceKey, rule *QuantityRule, pctx PricingContext, conversions ConversionTable, airMode bool) QuantityResult {
	if rule == nil {
		return QuantityResult{
			Quantity: quantity(1),
			Unit:     UnitFlat,
			Trace:    fmt.Sprintf("no rule for %s: 1 FLAT", key),
		}
	}

	ruleID := rule.ID
	res := QuantityResult{Unit: rule.unitFor(key), RuleID: &ruleID}

	if airMode && rule.Basis.IsContainerBased() {
		res.Trace = fmt.Sprintf("air shipment: %s rule not applied", rule.Basis)
		return res
	}
	if rule.Basis.AllowsUnset() && rule.RequiresFactKey != "" && !pctx.HasFact(rule.RequiresFactKey) {
		res.Trace = fmt.Sprintf("required fact %s missing", rule.RequiresFactKey)
		return res
	}

	switch rule.Basis {
	case BasisEVP:
		evpQuantity(&res, pctx, conversions)
	case BasisCount:
		countQuantity(&res, key, pctx)
	case BasisTonne:
		if pctx.WeightKg == nil || *pctx.WeightKg <= 0 {
			res.Quantity = quantity(1)
			res.Trace = "TONNE: missing weight, default 1"
			break
		}
		tonnes := math.Ceil(*pctx.WeightKg / 1000)
		res.Quantity = quantity(tonnes)
		res.Trace = fmt.Sprintf("TONNE: ceil(%s kg / 1000) = %s", formatQuantity(*pctx.WeightKg), formatQuantity(tonnes))
	case BasisKG:
		if pctx.WeightKg == nil || *pctx.WeightKg <= 0 {
			res.Trace = "KG: chargeable weight missing"
			break
		}
		res.Quantity = quantity(*pctx.WeightKg)
		res.Trace = fmt.Sprintf("KG: %s kg", formatQuantity(*pctx.WeightKg))
	default:
		res.Quantity = quantity(1)
		res.Trace = fmt.Sprintf("%s: 1 %s", rule.Basis, res.Unit)
	}

	return res
}

func evpQuantity(res *QuantityResult, pctx PricingContext, conversions ConversionTable) {
	if len(pctx.Containers) == 0 {
		res.Quantity = quantity(1)
		res.Trace = "EVP: missing containers, default 1"
		return
	}

	var total float64
	terms := make([]string, 0, len(pctx.Containers))
	for _, c := range pctx.Containers {
		factor, ok := conversions.Factor(c.Type)
		term := fmt.Sprintf("%dx%s@%s", c.Quantity, c.Type, formatQuantity(factor))
		if !ok {
			factor = 1
			term = fmt.Sprintf("%dx%s@1(default)", c.Quantity, c.Type)
		}
		total += factor * float64(c.Quantity)
		terms = append(terms, term)
	}

	conversion := strings.Join(terms, " + ")
	res.Quantity = quantity(total)
	res.Conversion = &conversion
	res.Trace = fmt.Sprintf("EVP: %s = %s", conversion, formatQuantity(total))
}

func countQuantity(res *QuantityResult, key ServiceKey, pctx PricingContext) {
	if len(pctx.Containers) == 0 {
		res.Quantity = quantity(1)
		res.Trace = "COUNT: missing containers, default 1"
		return
	}

	var total int
	for _, c := range pctx.Containers {
		if key == ServiceInlandTrucking && c.NominalSizeFeet() < 40 {
			continue
		}
		total += c.Quantity
	}

	if key == ServiceInlandTrucking && total == 0 {
		res.Quantity = quantity(1)
		res.Trace = "COUNT: no container of 40ft or more, minimum 1 voyage"
		return
	}

	res.Quantity = quantity(float64(total))
	if key == ServiceInlandTrucking {
		res.Trace = fmt.Sprintf("COUNT: %d containers of 40ft or more", total)
		return
	}
	res.Trace = fmt.Sprintf("COUNT: %d containers", total)
}

// unitFor is the canonical default unit of the rule, or the natural unit of its basis
func (r *QuantityRule) unitFor(key ServiceKey) Unit {
	if r.DefaultUnit != "" {
		return NormalizeUnit(r.DefaultUnit)
	}
	switch r.Basis {
	case BasisEVP:
		return UnitEVP
	case BasisCount:
		if key == ServiceInlandTrucking {
			return UnitVoyage
		}
		return UnitEVP
	case BasisTonne:
		return UnitTonne
	case BasisKG:
		return UnitKG
	}
	return UnitFlat
}

func quantity(v float64) *float64 {
	return &v
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
