/*
Copyright 2025 IBI Reports Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package leaklens

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/ibi-reports/leaklens/config"
	"github.com/ibi-reports/leaklens/model"
)

// RunParams is the explicit per-run configuration handed to the classifier.
// ReferenceDate replaces the wall clock everywhere, so a run's results are
// reproducible from its parameters alone.
type RunParams struct {
	TATWindowDays      int             `json:"tat_window_days"`
	AmountToleranceAbs decimal.Decimal `json:"amount_tolerance_abs"`
	AmountTolerancePct decimal.Decimal `json:"amount_tolerance_pct"`
	ReferenceDate      time.Time       `json:"reference_date"`
	MonetaryField      string          `json:"monetary_field"`
}

// DefaultRunParams builds run parameters from configured defaults and an
// explicit reference date.
func DefaultRunParams(cnf *config.Configuration, referenceDate time.Time) RunParams {
	return RunParams{
		TATWindowDays:      cnf.Reconciliation.TatWindowDays,
		AmountToleranceAbs: decimal.NewFromFloat(cnf.Reconciliation.AmountToleranceAbs),
		AmountTolerancePct: decimal.NewFromFloat(cnf.Reconciliation.AmountTolerancePct),
		ReferenceDate:      referenceDate,
		MonetaryField:      cnf.Reconciliation.MonetaryField,
	}
}

// Validate checks the parameters before a run starts.
func (p RunParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.TATWindowDays, validation.Required, validation.Min(1)),
		validation.Field(&p.MonetaryField, validation.Required),
		validation.Field(&p.ReferenceDate, validation.By(func(value interface{}) error {
			t, ok := value.(time.Time)
			if !ok || t.IsZero() {
				return errors.New("reference date is required")
			}
			return nil
		})),
		validation.Field(&p.AmountToleranceAbs, validation.By(nonNegativeDecimal)),
		validation.Field(&p.AmountTolerancePct, validation.By(nonNegativeDecimal)),
	)
}

func nonNegativeDecimal(value interface{}) error {
	d, ok := value.(decimal.Decimal)
	if !ok || d.IsNegative() {
		return errors.New("must be a non-negative amount")
	}
	return nil
}

// Rule names recorded as classification evidence.
const (
	ruleReconciled          = "refund_reimbursed_within_tolerance"
	ruleRefundedNotReturned = "refund_without_return"
	ruleReturnAging         = "return_awaiting_reimbursement"
	ruleAmountMismatch      = "refund_reimbursement_amount_gap"
	ruleUnclassifiable      = "no_rule_matched"
)

// Classify assigns exactly one outcome to a correlation group. It is a
// total, pure function of the group and the parameters: rules are evaluated
// in fixed priority order, first match wins, and an unrecognized evidence
// pattern falls through to unclassifiable rather than erroring.
func Classify(group *model.CorrelationGroup, params RunParams) model.Classification {
	refund := group.Record(model.SourceRefund)
	ret := group.Record(model.SourceReturn)
	reim := group.Record(model.SourceReimbursement)

	// Rules 1 and 4: a refund matched by a reimbursement is settled by the
	// amount comparison alone — within tolerance it reconciles, beyond it
	// the gap is a mismatch. A return record is corroborating, not
	// required, in either direction; the reimbursement is the stronger
	// evidence than a missing return.
	if refund != nil && reim != nil && refund.Amount != nil && reim.Amount != nil {
		delta := refund.Amount.Sub(*reim.Amount).Abs()
		if !exceedsTolerance(delta, *refund.Amount, params) {
			return model.Classification{
				Outcome:     model.OutcomeReconciled,
				Rule:        ruleReconciled,
				AmountDelta: &delta,
			}
		}
		return model.Classification{
			Outcome:     model.OutcomeAmountMismatch,
			Rule:        ruleAmountMismatch,
			AmountDelta: &delta,
		}
	}

	// Rule 2: money went back to the customer but nothing ever came back.
	if refund != nil && ret == nil {
		return model.Classification{
			Outcome: model.OutcomeRefundedNotReturned,
			Rule:    ruleRefundedNotReturned,
		}
	}

	// Rule 3: returned, not reimbursed; age against the TAT window decides
	// between pending and leaked.
	if ret != nil && reim == nil && ret.EventDate != nil {
		tat := wholeDays(*ret.EventDate, params.ReferenceDate)
		outcome := model.OutcomeReturnedNotReimbursed
		if tat > params.TATWindowDays {
			outcome = model.OutcomeAgedUnresolved
		}
		return model.Classification{
			Outcome: outcome,
			Rule:    ruleReturnAging,
			TATDays: &tat,
		}
	}

	return model.Classification{
		Outcome: model.OutcomeUnclassifiable,
		Rule:    ruleUnclassifiable,
	}
}

// exceedsTolerance reports whether a delta breaches BOTH the absolute and
// the relative ceiling. Breaching only one never flags a mismatch, which
// keeps rounding noise out of the mismatch bucket. The relative ceiling is
// computed against the refund amount.
func exceedsTolerance(delta, base decimal.Decimal, params RunParams) bool {
	if delta.IsZero() {
		return false
	}
	pctCeiling := base.Abs().Mul(params.AmountTolerancePct).Div(decimal.NewFromInt(100))
	return delta.GreaterThan(params.AmountToleranceAbs) && delta.GreaterThan(pctCeiling)
}

// wholeDays is the elapsed TAT in whole days, truncated, never rounded up.
func wholeDays(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
