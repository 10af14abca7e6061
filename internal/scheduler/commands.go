package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"StockScope/internal/analyzer"
	"StockScope/internal/crossasset"
	"StockScope/internal/notifier"
	"StockScope/internal/simulation"
)

const helpText = `<b>StockScope commands</b>

/tech SYM - technical outlook
/dcf SYM [growth%] - DCF valuation with sensitivity grid
/sim SYM - Monte Carlo simulation
/trend SYM - linear trend forecast
/levels SYM - support and resistance levels
/compare SYM SYM... [percent|zscore] - normalized performance
/corr SYM SYM... - correlation matrix
/vol SYM SYM... - volatility and drawdown
/digest - watchlist digest now
/help - this message`

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return helpText
	}
	// Commands in groups arrive as /cmd@BotName.
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	ctx, cancel := context.WithTimeout(ctx, s.CommandTimeout)
	defer cancel()

	switch cmd {
	case "/tech":
		return s.single(args, cmd, func(sym string) string {
			rep, err := s.Analyzer.Technical(ctx, sym)
			if err != nil {
				return notifier.FormatError(cmd+" "+sym, err)
			}
			return notifier.FormatTechnical(rep)
		})
	case "/dcf":
		return s.dcf(ctx, args)
	case "/sim", "/trend", "/levels":
		kind := map[string]simulation.Kind{
			"/sim":    simulation.KindMonteCarlo,
			"/trend":  simulation.KindTrend,
			"/levels": simulation.KindSupportResistance,
		}[cmd]
		return s.single(args, cmd, func(sym string) string {
			rep, err := s.Analyzer.Simulate(ctx, sym, kind)
			if err != nil {
				return notifier.FormatError(cmd+" "+sym, err)
			}
			return notifier.FormatSimulation(rep)
		})
	case "/compare":
		return s.compare(ctx, cmd, args, analyzer.CompareNormalize)
	case "/corr":
		return s.compare(ctx, cmd, args, analyzer.CompareCorrelation)
	case "/vol":
		return s.compare(ctx, cmd, args, analyzer.CompareVolatility)
	case "/digest":
		if len(s.Watchlist) == 0 {
			return "Watchlist is empty."
		}
		return s.digest(ctx)
	default:
		return helpText
	}
}

func usage(cmd, params string) string {
	return fmt.Sprintf("Usage: %s %s", cmd, params)
}

// single runs fn for a command that takes exactly one symbol.
func (s *Scheduler) single(args []string, cmd string, fn func(sym string) string) string {
	if len(args) != 1 {
		return usage(cmd, "SYM")
	}
	return fn(strings.ToUpper(args[0]))
}

// parseGrowth accepts "8", "8%" and "8.5".
func parseGrowth(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
}

func (s *Scheduler) dcf(ctx context.Context, args []string) string {
	if len(args) < 1 || len(args) > 2 {
		return usage("/dcf", "SYM [growth%]")
	}
	sym := strings.ToUpper(args[0])
	var growth *float64
	if len(args) == 2 {
		g, err := parseGrowth(args[1])
		if err != nil {
			return fmt.Sprintf("Invalid growth rate %q, expected a percentage such as 8 or 8%%.", args[1])
		}
		growth = &g
	}
	rep, err := s.Analyzer.Valuation(ctx, sym, growth)
	if err != nil {
		return notifier.FormatError("/dcf "+sym, err)
	}
	return notifier.FormatValuation(rep)
}

func (s *Scheduler) compare(ctx context.Context, cmd string, args []string, kind analyzer.CompareKind) string {
	method := crossasset.MethodPercent
	if kind == analyzer.CompareNormalize && len(args) > 0 {
		last := strings.ToLower(args[len(args)-1])
		if methodWords[last] {
			m, err := crossasset.ParseMethod(last)
			if err != nil {
				return notifier.FormatError(cmd, err)
			}
			method = m
			args = args[:len(args)-1]
		}
	}
	minSymbols := 1
	if kind == analyzer.CompareCorrelation {
		minSymbols = 2
	}
	if len(args) < minSymbols {
		if kind == analyzer.CompareNormalize {
			return usage(cmd, "SYM SYM... [percent|zscore]")
		}
		return usage(cmd, "SYM SYM...")
	}
	rep, err := s.Analyzer.Compare(ctx, args, kind, method)
	if err != nil {
		return notifier.FormatError(cmd, err)
	}
	return notifier.FormatCompare(rep)
}

// methodWords are the trailing /compare arguments read as a normalization
// method rather than a ticker.
var methodWords = map[string]bool{"percent": true, "zscore": true, "z-score": true}
