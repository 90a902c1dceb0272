package journal

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/tradesim/ledger"
)

// Run summarises one backtest or paper session. It mirrors the runs table.
type Run struct {
	RunID       string
	Created     time.Time
	Mode        string // "backtest" or "paper"
	Strategy    string
	Instruments []string
	Dataset     string

	Start time.Time
	End   time.Time
	Steps int

	// Trade rules
	RiskPct           float64
	StopATRMultiplier float64
	RewardRatio       float64
	CommissionPct     float64

	Metrics ledger.Metrics

	OrgPath     string
	Notes       []string
	NextActions []string
}

var runOrgFuncs = template.FuncMap{
	"pf": func(x float64) string {
		if math.IsInf(x, 1) {
			return "inf"
		}
		return fmt.Sprintf("%.2f", x)
	},
	"join": strings.Join,
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// WriteOrg renders the run as an Org-mode section.
func (r *Run) WriteOrg(w io.Writer) error {
	return runOrg.Execute(w, r)
}

// FormatOrg is WriteOrg into a string.
func (r *Run) FormatOrg() (string, error) {
	var buf bytes.Buffer
	if err := r.WriteOrg(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SaveOrg writes the Org section to r.OrgPath.
func (r *Run) SaveOrg() error {
	if r.OrgPath == "" {
		return fmt.Errorf("save org: no path for run %s", r.RunID)
	}
	s, err := r.FormatOrg()
	if err != nil {
		return fmt.Errorf("save org: %w", err)
	}
	return os.WriteFile(r.OrgPath, []byte(s), 0644)
}

const RunOrgTemplate = `* {{if eq .Mode "paper"}}PAPER{{else}}BACKTEST{{end}}: {{.Strategy}} {{join .Instruments ", "}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:MODE:        {{.Mode}}
:STRATEGY:    {{.Strategy}}
:INSTRUMENTS: {{join .Instruments " "}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02 15:04"}}
:END_DATE:    {{.End.Format "2006-01-02 15:04"}}
:STEPS:       {{.Steps}}
:START_CAP:   {{printf "%.2f" .Metrics.InitialCapital}}
:END_CAP:     {{printf "%.2f" .Metrics.FinalCapital}}
:RETURN_PCT:  {{printf "%.2f" .Metrics.TotalReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .Metrics.MaxDrawdownPct}}
:TRADES:      {{.Metrics.TotalTrades}}
:WINS:        {{.Metrics.Winners}}
:LOSSES:      {{.Metrics.Losers}}
:WIN_RATE:    {{printf "%.2f" .Metrics.WinRate}}
:PROFIT_FAC:  {{pf .Metrics.ProfitFactor}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Trade Rules
| Parameter        | Value |
|------------------+-------|
| Risk per Trade % | {{printf "%.2f" .RiskPct}} |
| Stop (ATR x)     | {{printf "%.2f" .StopATRMultiplier}} |
| R:R              | {{printf "%.2f" .RewardRatio}} |
| Commission %     | {{printf "%.2f" .CommissionPct}} |

** Performance Summary
- Return:           *{{printf "%.2f" .Metrics.TotalReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .Metrics.MaxDrawdownPct}}%*
- Win Rate:         *{{printf "%.2f" .Metrics.WinRate}}%*
- Profit Factor:    *{{pf .Metrics.ProfitFactor}}*
- Avg Win / Loss:   *{{printf "%.2f" .Metrics.AvgWinPct}}% / {{printf "%.2f" .Metrics.AvgLossPct}}%*
- Expectancy:       *{{printf "%.2f" .Metrics.ExpectancyPct}}%*
- Volatility:       *{{printf "%.2f" .Metrics.VolatilityPct}}%*
- Sharpe:           *{{printf "%.2f" .Metrics.Sharpe}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Metrics.Winners}} |
| Losses  | {{.Metrics.Losers}} |
| Total   | {{.Metrics.TotalTrades}} |
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
{{- if .NextActions }}

** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`
