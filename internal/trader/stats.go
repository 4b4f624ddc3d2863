package trader

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// leverageMultipliers is the fixed set of scenarios in the sensitivity table.
var leverageMultipliers = []int{1, 2, 5, 10, 20}

// Summary holds the post-run statistics derived from a trade ledger. It is
// computed once after the replay completes; never re-entrant.
type Summary struct {
	TotalTrades    int
	Wins           int
	Losses         int
	WinRatePct     float64
	AvgHold        time.Duration
	WorstLoss      float64
	FinalEquity    float64
	TotalReturnPct float64
	MaxDrawdownPct float64 // <= 0
	EquityCurve    []float64
	Monthly        []MonthlyStat
	Leverage       []LeverageScenario
}

// MonthlyStat is the PnL/win-rate breakdown for one exit month.
type MonthlyStat struct {
	Month      string // "2024-06"
	PnL        float64
	Trades     int
	Wins       int
	WinRatePct float64
}

// LeverageScenario linearly scales the realized return and drawdown by a
// leverage multiplier. This is a coarse approximation, not a leveraged
// replay: a scaled drawdown past -100% is clamped to total loss.
type LeverageScenario struct {
	Leverage    int
	ReturnPct   float64
	DrawdownPct float64
	Equity      float64
	Liquidated  bool
}

// ComputeSummary derives every statistic from the ledger alone. The equity
// curve is reconstructed from realized PnL at trade closes, not
// mark-to-market.
func ComputeSummary(trades []ClosedTrade, startingEquity float64) Summary {
	s := Summary{
		TotalTrades: len(trades),
		EquityCurve: []float64{startingEquity},
		FinalEquity: startingEquity,
	}

	var holdTotal time.Duration
	equity := startingEquity
	for _, t := range trades {
		if t.PnL > 0 {
			s.Wins++
		} else if t.PnL < 0 {
			s.Losses++
		}
		if t.PnL < s.WorstLoss {
			s.WorstLoss = t.PnL
		}
		holdTotal += t.Duration
		equity += t.PnL
		s.EquityCurve = append(s.EquityCurve, equity)
	}
	s.FinalEquity = equity
	s.TotalReturnPct = (equity - startingEquity) / startingEquity * 100

	if len(trades) > 0 {
		s.WinRatePct = float64(s.Wins) / float64(len(trades)) * 100
		s.AvgHold = holdTotal / time.Duration(len(trades))
	}

	s.MaxDrawdownPct = maxDrawdownPct(s.EquityCurve)
	s.Monthly = monthlyBreakdown(trades)
	s.Leverage = leverageTable(s.TotalReturnPct, s.MaxDrawdownPct, startingEquity)
	return s
}

// maxDrawdownPct returns min((equity_i - running_max_i)/running_max_i) as a
// percentage. A monotonically increasing curve yields exactly 0.
func maxDrawdownPct(curve []float64) float64 {
	worst := 0.0
	runningMax := curve[0]
	for _, e := range curve {
		if e > runningMax {
			runningMax = e
		}
		dd := (e - runningMax) / runningMax
		if dd < worst {
			worst = dd
		}
	}
	return worst * 100
}

func monthlyBreakdown(trades []ClosedTrade) []MonthlyStat {
	byMonth := make(map[string]*MonthlyStat)
	for _, t := range trades {
		month := t.ExitTime.Format("2006-01")
		m, ok := byMonth[month]
		if !ok {
			m = &MonthlyStat{Month: month}
			byMonth[month] = m
		}
		m.PnL += t.PnL
		m.Trades++
		if t.PnL > 0 {
			m.Wins++
		}
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)

	out := make([]MonthlyStat, 0, len(months))
	for _, month := range months {
		m := byMonth[month]
		if m.Trades > 0 {
			m.WinRatePct = float64(m.Wins) / float64(m.Trades) * 100
		}
		out = append(out, *m)
	}
	return out
}

func leverageTable(baseReturnPct, baseDrawdownPct, startingEquity float64) []LeverageScenario {
	out := make([]LeverageScenario, 0, len(leverageMultipliers))
	for _, lev := range leverageMultipliers {
		sc := LeverageScenario{
			Leverage:    lev,
			ReturnPct:   baseReturnPct * float64(lev),
			DrawdownPct: baseDrawdownPct * float64(lev),
		}
		if sc.DrawdownPct <= -100 {
			// Liquidation floor: the scaled drawdown wipes the account
			// regardless of the unscaled return.
			sc.ReturnPct = -100
			sc.Equity = 0
			sc.Liquidated = true
		} else {
			sc.Equity = startingEquity * (1 + sc.ReturnPct/100)
		}
		out = append(out, sc)
	}
	return out
}

// Render formats the summary as the human-readable report printed after a
// replay.
func (s Summary) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "--- Detailed Statistics ---\n")
	fmt.Fprintf(&b, "Total Trades: %d\n", s.TotalTrades)
	if s.TotalTrades == 0 {
		fmt.Fprintf(&b, "No trades were executed.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Losing Trades: %d\n", s.Losses)
	fmt.Fprintf(&b, "Win Rate: %.2f%%\n", s.WinRatePct)
	fmt.Fprintf(&b, "Avg Hold Time: %s\n", s.AvgHold)
	fmt.Fprintf(&b, "Max Loss (Single Trade): $%.2f\n", s.WorstLoss)
	fmt.Fprintf(&b, "Max Drawdown (Portfolio): %.2f%%\n", s.MaxDrawdownPct)
	fmt.Fprintf(&b, "Final Equity: $%.2f\n", s.FinalEquity)
	fmt.Fprintf(&b, "Final Return: %.2f%%\n", s.TotalReturnPct)

	fmt.Fprintf(&b, "\n--- Monthly ROI Breakdown ---\n")
	for _, m := range s.Monthly {
		fmt.Fprintf(&b, "%s: PnL $%.2f | Trades: %d | WR: %.1f%%\n",
			m.Month, m.PnL, m.Trades, m.WinRatePct)
	}

	fmt.Fprintf(&b, "\n--- Leverage Sensitivity (Approximation) ---\n")
	fmt.Fprintf(&b, "Note: return and drawdown scaled linearly, not a leveraged replay.\n")
	fmt.Fprintf(&b, "%-5s | %-12s | %-10s | %s\n", "Lev", "Return %", "Max DD %", "Est. Equity")
	for _, sc := range s.Leverage {
		flag := ""
		if sc.Liquidated {
			flag = " (LIQUIDATED)"
		} else if sc.DrawdownPct < -30 {
			flag = " (RISKY)"
		}
		fmt.Fprintf(&b, "%-4dx | %-12.2f | %-10.2f | $%.0f%s\n",
			sc.Leverage, sc.ReturnPct, sc.DrawdownPct, sc.Equity, flag)
	}
	return b.String()
}
