package notifier

import (
	"errors"
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"StockScope/internal/analyzer"
	"StockScope/internal/collector"
	"StockScope/internal/crossasset"
	"StockScope/internal/model"
	"StockScope/internal/simulation"
	"StockScope/internal/valuation"
)

var directionMark = map[model.Direction]string{
	model.Bullish: "🟢",
	model.Neutral: "⚪",
	model.Bearish: "🔴",
}

func esc(s string) string { return html.EscapeString(s) }

// compact prints large amounts with a K/M/B/T suffix.
func compact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func optional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

// FormatTechnical formats the indicator status table and signals.
func FormatTechnical(rep *analyzer.TechnicalReport) string {
	var b strings.Builder
	ind, out := rep.Indicators, rep.Outlook

	b.WriteString(fmt.Sprintf("📊 <b>%s technical outlook</b> | %s\n\n", esc(ind.Symbol), ind.AsOf.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Price: %.2f\n", ind.Price))
	if ind.High52w != nil && ind.Low52w != nil {
		b.WriteString(fmt.Sprintf("52w range: %.2f ~ %.2f", *ind.Low52w, *ind.High52w))
		if rep.RangePosition != nil {
			b.WriteString(fmt.Sprintf(" (at %.0f%%)", *rep.RangePosition*100))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n📈 <b>Indicators:</b>\n")
	for _, row := range out.Rows {
		b.WriteString(fmt.Sprintf("  %s %s: %s | %s\n", directionMark[row.Direction], esc(row.Indicator), esc(row.Value), esc(row.Status)))
	}
	if len(out.Signals) > 0 {
		b.WriteString("\n🔔 <b>Signals:</b>\n")
		for _, s := range out.Signals {
			b.WriteString(fmt.Sprintf("  • %s\n", esc(s)))
		}
	}
	b.WriteString(fmt.Sprintf("\nScore: %+d | Bias: <b>%s</b>\n", out.Score, out.Bias))
	if out.WarningMsg != "" {
		b.WriteString(fmt.Sprintf("\n%s\n", out.WarningMsg))
	}
	return b.String()
}

// FormatValuation formats a DCF run, its sensitivity grid and the analyst
// outlook.
func FormatValuation(rep *analyzer.ValuationReport) string {
	var b strings.Builder
	res := rep.DCF
	title := esc(rep.Symbol)
	if rep.Name != "" {
		title = fmt.Sprintf("%s (%s)", esc(rep.Name), esc(rep.Symbol))
	}
	b.WriteString(fmt.Sprintf("💵 <b>DCF valuation: %s</b>\n\n", title))

	hist := make([]string, len(res.History))
	for i, v := range res.History {
		hist[i] = compact(v)
	}
	b.WriteString(fmt.Sprintf("FCF history (latest first): %s\n", strings.Join(hist, ", ")))
	if res.DroppedPeriods > 0 {
		b.WriteString(fmt.Sprintf("⚠️ %d older period(s) skipped, cash flow line items missing\n", res.DroppedPeriods))
	}
	a := res.Assumptions
	b.WriteString(fmt.Sprintf("Growth: %.2f%% (%s) | Discount: %.2f%% | Terminal: %.2f%% | %d years\n",
		*a.GrowthRate, res.GrowthSource, a.DiscountRate, a.TerminalGrowth, a.ForecastYears))
	if res.GrowthSource == valuation.GrowthDefault {
		b.WriteString("⚠️ Not enough cash flow history, default growth applied\n")
	}

	b.WriteString("\n<b>Projection:</b>\n")
	for k, v := range res.Projected {
		b.WriteString(fmt.Sprintf("  Year %d: %s\n", k+1, compact(v)))
	}
	b.WriteString(fmt.Sprintf("Terminal value: %s\n", compact(res.TerminalValue)))
	b.WriteString(fmt.Sprintf("PV forecast: %s | PV terminal: %s\n", compact(res.PVForecast), compact(res.PVTerminal)))
	b.WriteString(fmt.Sprintf("Enterprise value: <b>%s</b>\n", compact(res.EnterpriseValue)))

	if res.PerShare == nil {
		b.WriteString("Per-share value: n/a (share count unavailable)\n")
	} else {
		b.WriteString(fmt.Sprintf("Shares: %s (%s)\n", compact(*res.Shares), res.SharesSource))
		b.WriteString(fmt.Sprintf("Per-share value: <b>%.2f</b>\n", *res.PerShare))
	}
	if rep.Price != nil {
		b.WriteString(fmt.Sprintf("Market price: %.2f\n", *rep.Price))
	}
	if rep.HasVerdict {
		b.WriteString(fmt.Sprintf("Verdict: <b>%s</b> (%+.1f%%)\n", rep.Rating, rep.UpsidePct))
	}

	if rep.Grid != nil {
		b.WriteString("\n<b>Sensitivity</b> (per share, growth ↓ / discount →):\n")
		b.WriteString(FormatGrid(rep.Grid))
	}

	if o := rep.Outlook; !o.Empty() {
		b.WriteString("\n🔭 <b>Analyst outlook:</b>\n")
		b.WriteString(fmt.Sprintf("  Targets: low %s | mean %s | high %s\n",
			optional(o.TargetLow, "%.2f"), optional(o.TargetMean, "%.2f"), optional(o.TargetHigh, "%.2f")))
		if o.NextYearEPS != nil {
			b.WriteString(fmt.Sprintf("  Next year EPS: %.2f (%s)\n", *o.NextYearEPS, optional(o.NextYearGrowth, "%+.1f%%")))
		}
		if o.GrowthMin != nil && o.GrowthMax != nil {
			b.WriteString(fmt.Sprintf("  5y growth range: %.1f%% ~ %.1f%% | EPS %.2f ~ %.2f\n",
				*o.GrowthMin, *o.GrowthMax, *o.EPSMin, *o.EPSMax))
		}
	}
	return b.String()
}

// FormatGrid renders a sensitivity grid as a monospace table. The base
// cell is bracketed.
func FormatGrid(g *valuation.Grid) string {
	var b strings.Builder
	b.WriteString("<pre>")
	b.WriteString(fmt.Sprintf("%7s", ""))
	for _, d := range g.Discounts {
		b.WriteString(fmt.Sprintf("%10s", fmt.Sprintf("%.1f%%", d)))
	}
	b.WriteString("\n")
	for i, growth := range g.Growths {
		b.WriteString(fmt.Sprintf("%7s", fmt.Sprintf("%.1f%%", growth)))
		for j, c := range g.Cells[i] {
			var cell string
			switch c.Status {
			case valuation.CellOK:
				cell = fmt.Sprintf("%.2f", *c.PerShare)
			case valuation.CellInvalid:
				cell = "-"
			default:
				cell = "n/a"
			}
			if i == g.BaseRow && j == g.BaseCol {
				cell = "[" + cell + "]"
			}
			b.WriteString(fmt.Sprintf("%10s", cell))
		}
		b.WriteString("\n")
	}
	b.WriteString("</pre>\n")
	return b.String()
}

// FormatSimulation formats the report of any simulation kind.
func FormatSimulation(rep *analyzer.SimulationReport) string {
	switch rep.Kind {
	case simulation.KindMonteCarlo:
		return formatMonteCarlo(rep)
	case simulation.KindTrend:
		return formatTrend(rep)
	case simulation.KindSupportResistance:
		return formatLevels(rep)
	case simulation.KindTechnical:
		return FormatTechnical(rep.Technical)
	default:
		return fmt.Sprintf("unsupported simulation %v", rep.Kind)
	}
}

func formatMonteCarlo(rep *analyzer.SimulationReport) string {
	var b strings.Builder
	mc := rep.MonteCarlo
	p, st := mc.Params, mc.Stats
	b.WriteString(fmt.Sprintf("🎲 <b>%s Monte Carlo</b> | %d paths × %d days\n\n", esc(rep.Symbol), p.Paths, p.Horizon))
	b.WriteString(fmt.Sprintf("Start: %.2f (%s)\n", mc.Start, rep.Last.Time.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("μ: %.4f%% | σ: %.4f%% daily | annual vol: %.1f%% | %d samples\n",
		st.Mean*100, st.Std*100, st.AnnualizedVol*100, st.Samples))

	end := mc.Bands[len(mc.Bands)-1]
	b.WriteString(fmt.Sprintf("\nDay %d, %.0f%% band: %.2f ~ %.2f (median %.2f)\n",
		end.Day, p.Confidence*100, end.Lower, end.Upper, end.Median))

	r := mc.Risk
	b.WriteString("\n⚖️ <b>Risk:</b>\n")
	b.WriteString(fmt.Sprintf("  Expected return: %+.2f%% (mean %.2f)\n", r.ExpectedReturnPct, r.MeanTerminal))
	b.WriteString(fmt.Sprintf("  VaR 95%%: %.2f%%\n", r.VaR95Pct))
	b.WriteString(fmt.Sprintf("  Tail loss 99%%: %.2f%%\n", r.TailLoss99Pct))
	b.WriteString(fmt.Sprintf("  Probability of gain: %.1f%%\n", r.ProbGainPct))
	b.WriteString(fmt.Sprintf("\nSeed: %d\n", p.Seed))
	return b.String()
}

func formatTrend(rep *analyzer.SimulationReport) string {
	var b strings.Builder
	t := rep.Trend
	h := len(t.Forecast)
	b.WriteString(fmt.Sprintf("📐 <b>%s linear trend</b> | %d days ahead\n\n", esc(rep.Symbol), h))
	b.WriteString(fmt.Sprintf("Last close: %.2f (%s)\n", rep.Last.Close, rep.Last.Time.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Slope: %+.4f / day | residual σ: %.2f\n", t.Slope, t.ResidualStd))
	if n := len(t.Fitted); n > 0 {
		b.WriteString(fmt.Sprintf("Fitted today: %.2f (%.2f ~ %.2f)\n", t.Fitted[n-1], t.FittedLower[n-1], t.FittedUpper[n-1]))
	}
	b.WriteString(fmt.Sprintf("Day %d forecast: <b>%.2f</b> (%.2f ~ %.2f)\n", h, t.Forecast[h-1], t.Lower[h-1], t.Upper[h-1]))
	if t.ZFallback {
		b.WriteString(fmt.Sprintf("⚠️ %.0f%% confidence not tabulated, z = %.2f used\n", t.Confidence, t.Z))
	} else {
		b.WriteString(fmt.Sprintf("Confidence: %.0f%% (z = %.3f)\n", t.Confidence, t.Z))
	}
	return b.String()
}

func joinPrices(vs []float64) string {
	if len(vs) == 0 {
		return "none"
	}
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = fmt.Sprintf("%.2f", v)
	}
	return strings.Join(out, ", ")
}

func formatLevels(rep *analyzer.SimulationReport) string {
	var b strings.Builder
	lv := rep.Levels
	b.WriteString(fmt.Sprintf("🧱 <b>%s support / resistance</b>\n\n", esc(rep.Symbol)))

	writeLevels := func(name string, levels []simulation.Level) {
		b.WriteString(fmt.Sprintf("<b>%s:</b>", name))
		if len(levels) == 0 {
			b.WriteString(" none\n")
			return
		}
		b.WriteString("\n")
		for _, l := range levels {
			b.WriteString(fmt.Sprintf("  %.2f (%d touches)\n", l.Price, l.Touches))
		}
	}
	writeLevels("Supports", lv.Supports)
	writeLevels("Resistances", lv.Resistances)

	r := lv.Range
	b.WriteString(fmt.Sprintf("\nPrice: %.2f\n", r.Price))
	b.WriteString(fmt.Sprintf("Supports below: %s\n", joinPrices(r.SupportsBelow)))
	b.WriteString(fmt.Sprintf("Resistances above: %s\n", joinPrices(r.ResistancesAbove)))
	if r.Support != nil && r.Resistance != nil {
		b.WriteString(fmt.Sprintf("Range: %.2f ~ %.2f (%.1f%% wide), at %.0f%%: <b>%s</b>\n",
			*r.Support, *r.Resistance, r.SizePct, r.PositionPct, r.Zone))
	}
	return b.String()
}

// FormatCompare formats a multi-symbol comparison.
func FormatCompare(rep *analyzer.CompareReport) string {
	var b strings.Builder
	switch rep.Kind {
	case analyzer.CompareNormalize:
		b.WriteString(fmt.Sprintf("🏁 <b>Performance</b> (%s)\n\n", rep.Method))
		unit := "%"
		if rep.Method == crossasset.MethodZScore {
			unit = "σ"
		}
		for _, r := range rep.Ranking {
			if r.Err != nil {
				continue
			}
			b.WriteString(fmt.Sprintf("  %d. %s: %+.2f%s\n", r.Rank, esc(r.Symbol), r.Final, unit))
		}
		if len(rep.Summaries) > 0 {
			b.WriteString("\n<b>Trend summary:</b>\n")
			for _, s := range rep.Summaries {
				b.WriteString(fmt.Sprintf("  %s: %.2f → %.2f (%+.2f%%), range %.2f ~ %.2f\n",
					esc(s.Symbol), s.First, s.Last, s.ChangePct, s.Low, s.High))
			}
		}
	case analyzer.CompareCorrelation:
		b.WriteString("🔗 <b>Correlation</b>\n\n")
		b.WriteString(formatMatrix(rep.Matrix))
		if rep.HasExtremes {
			b.WriteString(fmt.Sprintf("Most correlated: %s / %s (%.2f)\n", esc(rep.Highest.A), esc(rep.Highest.B), rep.Highest.Value))
			b.WriteString(fmt.Sprintf("Least correlated: %s / %s (%.2f)\n", esc(rep.Lowest.A), esc(rep.Lowest.B), rep.Lowest.Value))
		}
	case analyzer.CompareVolatility:
		b.WriteString("🌪 <b>Volatility</b> (annualized, lowest first)\n\n")
		for _, v := range rep.Volatility {
			b.WriteString(fmt.Sprintf("  %s: vol %.1f%% | max drawdown %.1f%%\n", esc(v.Symbol), v.AnnualizedPct, v.MaxDrawdownPct))
		}
	}
	b.WriteString(formatFailures(rep.Failed))
	return b.String()
}

func formatMatrix(m *crossasset.Matrix) string {
	var b strings.Builder
	b.WriteString("<pre>")
	b.WriteString(fmt.Sprintf("%8s", ""))
	for _, n := range m.Names {
		b.WriteString(fmt.Sprintf("%8s", truncate(n, 7)))
	}
	b.WriteString("\n")
	for i, n := range m.Names {
		b.WriteString(fmt.Sprintf("%8s", truncate(n, 7)))
		for j := range m.Names {
			if m.Valid(i, j) {
				b.WriteString(fmt.Sprintf("%8.2f", m.Values[i][j]))
			} else {
				b.WriteString(fmt.Sprintf("%8s", "n/a"))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("</pre>\n")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return esc(s)
	}
	return esc(s[:n])
}

func formatFailures(failed map[string]error) string {
	if len(failed) == 0 {
		return ""
	}
	syms := make([]string, 0, len(failed))
	for s := range failed {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	var b strings.Builder
	b.WriteString("\n⚠️ <b>Skipped:</b>\n")
	for _, s := range syms {
		b.WriteString(fmt.Sprintf("  %s: %s\n", esc(s), esc(Reason(failed[s]))))
	}
	return b.String()
}

// DigestEntry is one symbol of the scheduled watchlist digest.
type DigestEntry struct {
	Symbol string
	Report *analyzer.TechnicalReport
	Err    error
}

// FormatDigest formats the watchlist digest, one line per symbol.
func FormatDigest(at time.Time, entries []DigestEntry) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗞 <b>StockScope watchlist</b> | %s\n\n", at.Format("2006-01-02")))
	var warnings []string
	for _, e := range entries {
		if e.Err != nil {
			b.WriteString(fmt.Sprintf("❌ %s: %s\n", esc(e.Symbol), esc(Reason(e.Err))))
			continue
		}
		ind, out := e.Report.Indicators, e.Report.Outlook
		b.WriteString(fmt.Sprintf("%s <b>%s</b> %.2f | RSI %s | score %+d (%s)\n",
			directionMark[out.Bias], esc(e.Symbol), ind.Price, optional(ind.RSI, "%.0f"), out.Score, out.Bias))
		if out.WarningMsg != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", esc(e.Symbol), out.WarningMsg))
		}
	}
	if len(warnings) > 0 {
		b.WriteString("\n")
		for _, w := range warnings {
			b.WriteString(w + "\n")
		}
	}
	return b.String()
}

// Reason turns an analysis error into a short user-facing explanation.
func Reason(err error) string {
	var e *model.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case model.KindProviderUnavailable:
		if errors.Is(err, collector.ErrNoData) {
			return "no data for this symbol"
		}
		return "data provider unavailable"
	case model.KindInsufficientData:
		return "not enough data: " + e.Msg
	case model.KindMissingFinancials:
		return fmt.Sprintf("financial statements incomplete (%s)", e.Param)
	case model.KindInvalidAssumptions:
		return fmt.Sprintf("invalid %s: %s", e.Param, e.Msg)
	default:
		return err.Error()
	}
}

// FormatError formats a failed request.
func FormatError(what string, err error) string {
	return fmt.Sprintf("❌ %s failed: %s", esc(what), esc(Reason(err)))
}
