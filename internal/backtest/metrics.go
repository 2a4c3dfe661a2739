package backtest

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
	"github.com/ducminhle1904/trend-breakout-bot/internal/regime"
)

// annualization factor for per-candle Sharpe and Sortino ratios
var sqrtPeriodsPerYear = math.Sqrt(365)

// Ratio is a float that may be +Inf and still serializes to JSON
type Ratio float64

func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	case math.IsNaN(f):
		return []byte(`null`), nil
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"+Inf"`:
		*r = Ratio(math.Inf(1))
		return nil
	case `"-Inf"`:
		*r = Ratio(math.Inf(-1))
		return nil
	case `null`:
		*r = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

func (r Ratio) String() string {
	f := float64(r)
	if math.IsInf(f, 1) {
		return "inf"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// DirectionStats breaks the ledger down for one side
type DirectionStats struct {
	Entries      int     `json:"entries"`
	Exits        int     `json:"exits"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"`
	NetPnL       float64 `json:"net_pnl"`
	ProfitFactor Ratio   `json:"profit_factor"`
}

type Summary struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	NetPnL         float64 `json:"net_pnl"`
	TotalReturn    float64 `json:"total_return"`

	TotalEntries int     `json:"total_entries"`
	TotalExits   int     `json:"total_exits"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor Ratio   `json:"profit_factor"`

	MaxDrawdown  float64 `json:"max_drawdown"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio Ratio   `json:"sortino_ratio"`

	Long        DirectionStats              `json:"long"`
	Short       DirectionStats              `json:"short"`
	LongShare   float64                     `json:"long_share"`
	ExitReasons map[position.ExitReason]int `json:"exit_reasons"`
}

// Aggregate reduces a ledger and equity curve into summary statistics.
// An empty ledger yields zero statistics.
func Aggregate(initialCapital, finalCapital float64, trades []Trade, equity []EquityPoint) Summary {
	s := Summary{
		InitialCapital: initialCapital,
		FinalCapital:   finalCapital,
		NetPnL:         finalCapital - initialCapital,
		ExitReasons:    make(map[position.ExitReason]int, len(position.AllExitReasons)),
	}
	for _, reason := range position.AllExitReasons {
		s.ExitReasons[reason] = 0
	}
	if initialCapital > 0 {
		s.TotalReturn = (finalCapital - initialCapital) / initialCapital
	}

	var grossProfit, grossLoss float64
	for _, t := range trades {
		switch tr := t.(type) {
		case *EntryTrade:
			s.TotalEntries++
			sideStats(&s, tr.Direction).Entries++

		case *ExitTrade:
			s.TotalExits++
			s.ExitReasons[tr.Reason]++
			side := sideStats(&s, tr.Direction)
			side.Exits++
			side.NetPnL += tr.PnL
			if tr.IsWin() {
				s.Wins++
				side.Wins++
				grossProfit += tr.PnL
				side.GrossProfit += tr.PnL
			} else {
				s.Losses++
				side.Losses++
				grossLoss += math.Abs(tr.PnL)
				side.GrossLoss += math.Abs(tr.PnL)
			}
		}
	}

	s.WinRate = rate(s.Wins, s.TotalExits)
	s.ProfitFactor = ProfitFactor(grossProfit, grossLoss)
	for _, side := range []*DirectionStats{&s.Long, &s.Short} {
		side.WinRate = rate(side.Wins, side.Exits)
		side.ProfitFactor = ProfitFactor(side.GrossProfit, side.GrossLoss)
	}
	s.LongShare = rate(s.Long.Entries, s.TotalEntries)

	s.MaxDrawdown = MaxDrawdown(equity)
	s.SharpeRatio = SharpeRatio(equity)
	s.SortinoRatio = SortinoRatio(equity)
	return s
}

func sideStats(s *Summary, d regime.Direction) *DirectionStats {
	if d == regime.DirectionDown {
		return &s.Short
	}
	return &s.Long
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// ProfitFactor is gross profit over gross loss: +Inf with no losses and some profit, 0 with neither.
func ProfitFactor(grossProfit, grossLoss float64) Ratio {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return Ratio(math.Inf(1))
		}
		return 0
	}
	return Ratio(grossProfit / grossLoss)
}

// MaxDrawdown is the largest drawdown recorded on the curve
func MaxDrawdown(equity []EquityPoint) float64 {
	maxDD := 0.0
	for _, p := range equity {
		if p.Drawdown > maxDD {
			maxDD = p.Drawdown
		}
	}
	return maxDD
}

func equityReturns(equity []EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1].Equity > 0 {
			returns = append(returns, (equity[i].Equity-equity[i-1].Equity)/equity[i-1].Equity)
		}
	}
	return returns
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SharpeRatio of per-candle equity returns, annualized with sqrt(365). Zero without variance.
func SharpeRatio(equity []EquityPoint) float64 {
	returns := equityReturns(equity)
	if len(returns) == 0 {
		return 0
	}

	avg := mean(returns)
	variance := 0.0
	for _, r := range returns {
		variance += (r - avg) * (r - avg)
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std < 1e-12 {
		return 0
	}
	return avg / std * sqrtPeriodsPerYear
}

// SortinoRatio is SharpeRatio with downside deviation. +Inf when no candle lost equity
// but the average return is positive.
func SortinoRatio(equity []EquityPoint) Ratio {
	returns := equityReturns(equity)
	if len(returns) == 0 {
		return 0
	}

	avg := mean(returns)
	downside := 0.0
	n := 0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
			n++
		}
	}
	if n == 0 {
		if avg > 0 {
			return Ratio(math.Inf(1))
		}
		return 0
	}
	return Ratio(avg / math.Sqrt(downside/float64(n)) * sqrtPeriodsPerYear)
}
