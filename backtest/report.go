package backtest

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/risk"
)

// RunRecord turns a result into the summary the journal stores.
func (r Result) RunRecord(strategy, dataset string, p risk.Policy) journal.Run {
	return journal.Run{
		RunID:             r.RunID,
		Created:           time.Now().UTC(),
		Mode:              "backtest",
		Strategy:          strategy,
		Instruments:       []string{r.Instrument},
		Dataset:           dataset,
		Start:             r.Start,
		End:               r.End,
		Steps:             r.Steps,
		RiskPct:           p.RiskPct,
		StopATRMultiplier: p.StopATRMultiplier,
		RewardRatio:       p.RewardRatio,
		CommissionPct:     p.CommissionPct,
		Metrics:           r.Metrics,
	}
}

func PrintRun(w io.Writer, r journal.Run) {
	m := r.Metrics

	title := " Backtest Result"
	if r.Mode == "paper" {
		title = " Paper Trading Result"
	}

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Instruments:   %v\n", r.Instruments)
	if r.Dataset != "" {
		fmt.Fprintf(w, "Dataset:       %s\n", r.Dataset)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Steps:         %d\n", r.Steps)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Rules")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Risk per Trade: %.2f%%\n", r.RiskPct)
	fmt.Fprintf(w, "Stop (ATR x):  %.2f\n", r.StopATRMultiplier)
	fmt.Fprintf(w, "Risk/Reward:   %.2f\n", r.RewardRatio)
	fmt.Fprintf(w, "Commission:    %.2f%%\n", r.CommissionPct)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", m.TotalTrades)
	fmt.Fprintf(w, "Wins:          %d\n", m.Winners)
	fmt.Fprintf(w, "Losses:        %d\n", m.Losers)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", m.WinRate)
	if math.IsInf(m.ProfitFactor, 1) {
		fmt.Fprintln(w, "Profit Factor: inf")
	} else {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", m.ProfitFactor)
	}
	fmt.Fprintf(w, "Avg Win:       %.2f%%\n", m.AvgWinPct)
	fmt.Fprintf(w, "Avg Loss:      %.2f%%\n", m.AvgLossPct)
	fmt.Fprintf(w, "Expectancy:    %.2f%%\n", m.ExpectancyPct)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Capital: %.2f\n", m.InitialCapital)
	fmt.Fprintf(w, "End Capital:   %.2f\n", m.FinalCapital)
	fmt.Fprintf(w, "Return:        %.2f%%\n", m.TotalReturnPct)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", m.MaxDrawdownPct)
	fmt.Fprintf(w, "Volatility:    %.2f%%\n", m.VolatilityPct)
	fmt.Fprintf(w, "Sharpe:        %.2f\n", m.Sharpe)

	fmt.Fprintln(w, "==================================================")
}
