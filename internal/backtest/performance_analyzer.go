package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coretrade/engine/pkg/types"
)

// DailyReturn is one day's aggregate equity change across every portfolio.
//
// Adapted from the teacher's internal/backtest/performance_analyzer.go
// DailyReturn, generalized from a single portfolio's float64 equity to
// this engine's multi-portfolio decimal.Decimal equity curve.
type DailyReturn struct {
	Date      time.Time
	Return    decimal.Decimal
	ReturnPct float64
	Equity    decimal.Decimal
}

// Report is the outcome of a backtest run: trade statistics, return and
// risk metrics, and a daily return series. Grounded on the teacher's
// BacktestResult, trimmed of the teacher's per-exchange trade fields
// (Exchange, ActualPrice, Strategy) since this engine's Transaction has
// no exchange dimension, and converted throughout from float64 to
// decimal.Decimal to match the rest of the engine's money handling.
type Report struct {
	TotalTrades           int
	WinningTrades         int
	LosingTrades          int
	WinRate               float64
	ProfitFactor          float64
	AverageTrade          decimal.Decimal
	BestTrade             decimal.Decimal
	WorstTrade            decimal.Decimal
	MaxConsecutiveWins    int
	MaxConsecutiveLosses  int
	TotalCommission       decimal.Decimal

	InitialEquity  decimal.Decimal
	FinalEquity    decimal.Decimal
	TotalReturn    decimal.Decimal
	TotalReturnPct float64

	MaxDrawdown    decimal.Decimal
	MaxDrawdownPct float64
	SharpeRatio    float64
	SortinoRatio   float64
	CalmarRatio    float64

	DailyReturns []DailyReturn
	Trades       []types.Transaction
}

// NewReport builds a Report from every PortfolioSnapshot taken during a
// run (one per portfolio per bar) and every Transaction executed across
// every portfolio. snapshots need not be sorted; trades are assumed to
// already be grouped by portfolio in execution order (as returned by
// portfoliohandler.Handler.AllTransactions).
func NewReport(snapshots []types.PortfolioSnapshot, trades []types.Transaction) *Report {
	r := &Report{TotalTrades: len(trades), Trades: trades}

	equityCurve := aggregateEquityCurve(snapshots)
	r.calculateTradeMetrics(trades)
	r.calculateReturnMetrics(equityCurve)
	r.calculateDailyReturns(equityCurve)
	r.calculateRiskMetrics(equityCurve)
	return r
}

type equityPoint struct {
	Time   time.Time
	Equity decimal.Decimal
}

// aggregateEquityCurve sums TotalEquity across every portfolio snapshot
// sharing a timestamp, producing one run-wide equity series.
func aggregateEquityCurve(snapshots []types.PortfolioSnapshot) []equityPoint {
	byTime := make(map[time.Time]decimal.Decimal)
	for _, s := range snapshots {
		byTime[s.Time] = byTime[s.Time].Add(s.TotalEquity)
	}
	times := make([]time.Time, 0, len(byTime))
	for t := range byTime {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	curve := make([]equityPoint, 0, len(times))
	for _, t := range times {
		curve = append(curve, equityPoint{Time: t, Equity: byTime[t]})
	}
	return curve
}

// calculateTradeMetrics mirrors the teacher's adjacent-trade P&L
// approximation: a SELL's profit is measured against the immediately
// preceding transaction on the same ticker. This engine carries exact
// realized P&L per position in internal/position, but the report works
// from the flat transaction ledger alone so it stays independent of
// which portfolio a trade belonged to.
func (r *Report) calculateTradeMetrics(trades []types.Transaction) {
	var totalPnL, winningPnL, losingPnL decimal.Decimal
	consecutiveWins, consecutiveLosses, streak := 0, 0, 0
	inWinStreak := false

	for i, t := range trades {
		pnl := decimal.Zero
		if i > 0 && trades[i-1].Ticker == t.Ticker && t.Action == "SELL" {
			pnl = t.Price.Sub(trades[i-1].Price).Mul(t.Quantity)
		}

		totalPnL = totalPnL.Add(pnl)
		r.TotalCommission = r.TotalCommission.Add(t.Commission)

		switch {
		case pnl.IsPositive():
			r.WinningTrades++
			winningPnL = winningPnL.Add(pnl)
			if inWinStreak {
				streak++
			} else {
				streak, inWinStreak = 1, true
			}
			if streak > consecutiveWins {
				consecutiveWins = streak
			}
		case pnl.IsNegative():
			r.LosingTrades++
			losingPnL = losingPnL.Add(pnl.Abs())
			if !inWinStreak {
				streak++
			} else {
				streak, inWinStreak = 1, false
			}
			if streak > consecutiveLosses {
				consecutiveLosses = streak
			}
		}

		if pnl.GreaterThan(r.BestTrade) {
			r.BestTrade = pnl
		}
		if pnl.LessThan(r.WorstTrade) {
			r.WorstTrade = pnl
		}
	}

	r.MaxConsecutiveWins = consecutiveWins
	r.MaxConsecutiveLosses = consecutiveLosses

	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
		r.AverageTrade = totalPnL.Div(decimal.NewFromInt(int64(r.TotalTrades)))
	}
	if losingPnL.IsPositive() {
		pf, _ := winningPnL.Div(losingPnL).Float64()
		r.ProfitFactor = pf
	}
}

func (r *Report) calculateReturnMetrics(curve []equityPoint) {
	if len(curve) < 2 {
		return
	}
	r.InitialEquity = curve[0].Equity
	r.FinalEquity = curve[len(curve)-1].Equity
	r.TotalReturn = r.FinalEquity.Sub(r.InitialEquity)
	if r.InitialEquity.IsPositive() {
		pct, _ := r.TotalReturn.Div(r.InitialEquity).Float64()
		r.TotalReturnPct = pct * 100
	}
}

func (r *Report) calculateDailyReturns(curve []equityPoint) {
	dailyEquity := make(map[string]decimal.Decimal)
	for _, p := range curve {
		dailyEquity[p.Time.Format("2006-01-02")] = p.Equity
	}
	var days []string
	for d := range dailyEquity {
		days = append(days, d)
	}
	sort.Strings(days)

	for i := 1; i < len(days); i++ {
		prev := dailyEquity[days[i-1]]
		cur := dailyEquity[days[i]]
		if !prev.IsPositive() {
			continue
		}
		ret := cur.Sub(prev)
		pct, _ := ret.Div(prev).Float64()
		date, _ := time.Parse("2006-01-02", days[i])
		r.DailyReturns = append(r.DailyReturns, DailyReturn{
			Date:      date,
			Return:    ret,
			ReturnPct: pct * 100,
			Equity:    cur,
		})
	}
}

func (r *Report) calculateRiskMetrics(curve []equityPoint) {
	if len(curve) < 2 {
		return
	}

	maxEquity := curve[0].Equity
	for _, p := range curve {
		if p.Equity.GreaterThan(maxEquity) {
			maxEquity = p.Equity
		}
		drawdown := maxEquity.Sub(p.Equity)
		if drawdown.GreaterThan(r.MaxDrawdown) {
			r.MaxDrawdown = drawdown
		}
		if maxEquity.IsPositive() {
			pct, _ := drawdown.Div(maxEquity).Float64()
			if pct*100 > r.MaxDrawdownPct {
				r.MaxDrawdownPct = pct * 100
			}
		}
	}

	returns := make([]float64, len(r.DailyReturns))
	for i, dr := range r.DailyReturns {
		returns[i] = dr.ReturnPct / 100
	}
	if len(returns) > 1 {
		r.SharpeRatio = CalculateSharpeRatio(returns, 0)
		r.SortinoRatio = calculateSortinoRatio(returns, 0)
	}
	if r.MaxDrawdownPct > 0 && r.TotalReturnPct != 0 {
		r.CalmarRatio = r.TotalReturnPct / r.MaxDrawdownPct
	}
}

// CalculateSharpeRatio computes the annualized Sharpe ratio from a daily
// return series, assuming 252 trading days/year.
func CalculateSharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	avg := mean(returns)
	std := stddev(returns, avg)
	if std == 0 {
		return 0
	}
	excess := avg - riskFreeRate/252
	return (excess / std) * math.Sqrt(252)
}

func calculateSortinoRatio(returns []float64, target float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	avg := mean(returns)

	var sumSq float64
	var count int
	for _, ret := range returns {
		if ret < target {
			diff := ret - target
			sumSq += diff * diff
			count++
		}
	}
	if count == 0 {
		return 0
	}
	downside := math.Sqrt(sumSq / float64(count))
	if downside == 0 {
		return 0
	}
	excess := avg - target/252
	return (excess / downside) * math.Sqrt(252)
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, avg float64) float64 {
	var sumSq float64
	for _, x := range xs {
		diff := x - avg
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

// WriteReport writes a Report as JSON, a trade CSV, a daily-returns
// CSV, and a plaintext summary into dir, mirroring the teacher's
// GenerateReport multi-format output.
func WriteReport(r *Report, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("backtest: creating report dir %s: %w", dir, err)
	}
	if err := writeJSONReport(r, dir); err != nil {
		return err
	}
	if err := writeTradesCSV(r.Trades, filepath.Join(dir, "trades.csv")); err != nil {
		return err
	}
	if err := writeDailyReturnsCSV(r.DailyReturns, filepath.Join(dir, "daily_returns.csv")); err != nil {
		return err
	}
	return writeSummary(r, filepath.Join(dir, "summary.txt"))
}

func writeJSONReport(r *Report, dir string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("backtest: marshaling report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.json"), data, 0o644); err != nil {
		return fmt.Errorf("backtest: writing report.json: %w", err)
	}
	return nil
}

func writeTradesCSV(trades []types.Transaction, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("backtest: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Time", "PortfolioID", "Ticker", "Action", "Price", "Quantity", "Commission"}); err != nil {
		return err
	}
	for _, t := range trades {
		record := []string{
			t.Time.Format(time.RFC3339),
			t.PortfolioID,
			t.Ticker,
			t.Action,
			t.Price.String(),
			t.Quantity.String(),
			t.Commission.String(),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeDailyReturnsCSV(returns []DailyReturn, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("backtest: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Date", "Return", "ReturnPct", "Equity"}); err != nil {
		return err
	}
	for _, dr := range returns {
		record := []string{
			dr.Date.Format("2006-01-02"),
			dr.Return.String(),
			fmt.Sprintf("%.4f", dr.ReturnPct),
			dr.Equity.String(),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(r *Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("backtest: creating %s: %w", path, err)
	}
	defer f.Close()

	fmt.Fprintf(f, "BACKTEST SUMMARY\n================\n\n")
	fmt.Fprintf(f, "Initial Equity: %s\n", r.InitialEquity.String())
	fmt.Fprintf(f, "Final Equity:   %s\n", r.FinalEquity.String())
	fmt.Fprintf(f, "Total Return:   %s (%.2f%%)\n", r.TotalReturn.String(), r.TotalReturnPct)
	fmt.Fprintf(f, "Max Drawdown:   %s (%.2f%%)\n", r.MaxDrawdown.String(), r.MaxDrawdownPct)
	fmt.Fprintf(f, "Sharpe Ratio:   %.2f\n", r.SharpeRatio)
	fmt.Fprintf(f, "Sortino Ratio:  %.2f\n", r.SortinoRatio)
	fmt.Fprintf(f, "Calmar Ratio:   %.2f\n\n", r.CalmarRatio)
	fmt.Fprintf(f, "Total Trades:   %d\n", r.TotalTrades)
	fmt.Fprintf(f, "Winning Trades: %d\n", r.WinningTrades)
	fmt.Fprintf(f, "Losing Trades:  %d\n", r.LosingTrades)
	fmt.Fprintf(f, "Win Rate:       %.2f%%\n", r.WinRate*100)
	fmt.Fprintf(f, "Profit Factor:  %.2f\n", r.ProfitFactor)
	fmt.Fprintf(f, "Average Trade:  %s\n", r.AverageTrade.String())
	fmt.Fprintf(f, "Best Trade:     %s\n", r.BestTrade.String())
	fmt.Fprintf(f, "Worst Trade:    %s\n", r.WorstTrade.String())
	fmt.Fprintf(f, "Total Commission: %s\n", r.TotalCommission.String())
	return nil
}
