package backtest

import (
	"github.com/shopspring/decimal"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Accumulate folds matched purchases into per-step snapshots and a summary.
// Each step buys contribution's worth of units at the matched price and marks
// the running position to market at that price. The summary values the final
// position at lastPrice, the most recent observation of the whole series.
//
// Every division is zero-guarded: a non-positive matched price is skipped,
// and an empty matched sequence yields an all-zero summary with Periods=0.
func Accumulate(contribution decimal.Decimal, matched []domain.PriceObservation, lastPrice decimal.Decimal) ([]domain.BacktestStep, domain.BacktestSummary) {
	steps := make([]domain.BacktestStep, 0, len(matched))

	cumUnits := decimal.Zero
	cumCost := decimal.Zero

	for _, obs := range matched {
		if !obs.Price.IsPositive() {
			continue
		}

		units := contribution.Div(obs.Price)
		cumUnits = cumUnits.Add(units)
		cumCost = cumCost.Add(contribution)

		steps = append(steps, domain.BacktestStep{
			Instant:  obs.Instant,
			Price:    obs.Price,
			Units:    units,
			Cost:     contribution,
			CumUnits: cumUnits,
			CumCost:  cumCost,
			Value:    cumUnits.Mul(obs.Price),
		})
	}

	summary := domain.BacktestSummary{
		Periods:       len(steps),
		TotalInvested: cumCost,
		TotalUnits:    cumUnits,
		AverageCost:   decimal.Zero,
		EndValue:      decimal.Zero,
		ProfitLoss:    decimal.Zero,
		ProfitLossPct: decimal.Zero,
	}
	if len(steps) == 0 {
		return steps, summary
	}

	if cumUnits.IsPositive() {
		summary.AverageCost = cumCost.Div(cumUnits)
	}
	summary.EndValue = cumUnits.Mul(lastPrice)
	summary.ProfitLoss = summary.EndValue.Sub(cumCost)
	if cumCost.IsPositive() {
		summary.ProfitLossPct = summary.ProfitLoss.Div(cumCost).Mul(hundred)
	}

	return steps, summary
}
