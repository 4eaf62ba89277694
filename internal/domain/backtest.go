package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestStep represents one matched purchase in a simulation run.
// Steps live only for the duration of a single backtest and are never persisted.
type BacktestStep struct {
	Instant  time.Time
	Price    decimal.Decimal
	Units    decimal.Decimal // Contribution / Price
	Cost     decimal.Decimal // = Contribution
	CumUnits decimal.Decimal
	CumCost  decimal.Decimal
	Value    decimal.Decimal // CumUnits x Price (mark-to-market at this step)
}

// BacktestSummary aggregates a completed simulation run
// All fields are derived; divisions are zero-guarded upstream
type BacktestSummary struct {
	Periods       int
	TotalInvested decimal.Decimal
	TotalUnits    decimal.Decimal
	AverageCost   decimal.Decimal // TotalInvested / TotalUnits, zero when no units
	EndValue      decimal.Decimal // TotalUnits x last observed price
	ProfitLoss    decimal.Decimal
	ProfitLossPct decimal.Decimal // percentage, zero when nothing invested
}
