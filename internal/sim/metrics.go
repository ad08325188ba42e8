package sim

// accumulator builds a BacktestResult incrementally as positions close. It is
// owned by a single run and needs no locking.
type accumulator struct {
	capital float64
	result  BacktestResult

	grossProfit float64
	grossLoss   float64
}

func newAccumulator(symbol string, bars int, capital float64) *accumulator {
	return &accumulator{
		capital: capital,
		result: BacktestResult{
			Symbol: symbol,
			Bars:   bars,
		},
	}
}

// recordSignal tallies one scored signal against the realized next-bar
// direction.
func (a *accumulator) recordSignal(correct bool) {
	a.result.Signals++
	if correct {
		a.result.SignalsCorrect++
	}
}

// recordClose folds a closed position into the running metrics and extends
// the equity curve.
func (a *accumulator) recordClose(p Position) {
	a.result.Trades = append(a.result.Trades, p)
	a.result.TradeCount++
	a.result.TotalPnL += p.RealizedPnL

	if p.RealizedPnL > 0 {
		a.result.Wins++
		a.grossProfit += p.RealizedPnL
	} else if p.RealizedPnL < 0 {
		a.result.Losses++
		a.grossLoss += -p.RealizedPnL
	} else {
		a.result.Losses++
	}

	a.result.EquityCurve = append(a.result.EquityCurve, EquityPoint{
		Timestamp:     p.CloseTimestamp,
		CumulativePnL: a.result.TotalPnL,
	})
}

// finalize computes the derived ratios and returns the completed result.
func (a *accumulator) finalize() BacktestResult {
	r := a.result

	if r.Signals > 0 {
		r.PredictionAccuracyPct = 100.0 * float64(r.SignalsCorrect) / float64(r.Signals)
	}
	if r.TradeCount > 0 {
		r.WinRatePct = 100.0 * float64(r.Wins) / float64(r.TradeCount)
	}
	switch {
	case a.grossProfit > 0 && a.grossLoss == 0:
		r.ProfitFactorInf = true
	case a.grossLoss > 0:
		r.ProfitFactor = a.grossProfit / a.grossLoss
	}
	if a.capital > 0 {
		r.TotalReturnPct = r.TotalPnL / a.capital * 100.0
	}
	return r
}
