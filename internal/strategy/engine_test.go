package strategy

import (
	"strings"
	"testing"

	"StockScope/internal/model"
)

func f(v float64) *float64 { return &v }

func hasSignal(out *model.TechnicalOutlook, substr string) bool {
	for _, s := range out.Signals {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func TestEvaluate_BullishMarket(t *testing.T) {
	ind := &model.TechnicalIndicators{
		Symbol:    "AAPL",
		Price:     210,
		MAs:       map[int]float64{20: 200, 50: 190, 200: 170},
		RSIPeriod: 14,
		RSI:       f(62),
		BandUpper: f(220),
		BandMid:   f(200),
		BandLower: f(180),
	}
	out := Evaluate(ind)
	if out == nil {
		t.Fatal("expected non-nil outlook")
	}
	// 3 price rows, 2 cross rows, RSI, Bollinger
	if len(out.Rows) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(out.Rows))
	}
	if out.Rows[0].Indicator != "Price vs MA20" || out.Rows[0].Direction != model.Bullish {
		t.Errorf("unexpected first row: %+v", out.Rows[0])
	}
	if out.Rows[3].Indicator != "MA20 vs MA50" || out.Rows[3].Status != "bullish cross" {
		t.Errorf("unexpected cross row: %+v", out.Rows[3])
	}
	if out.Bias != model.Bullish {
		t.Errorf("expected bullish bias, got %v (score %d)", out.Bias, out.Score)
	}
	if !hasSignal(out, "golden cross") {
		t.Errorf("expected golden cross signal, got %v", out.Signals)
	}
	if !hasSignal(out, "neutral to strong") {
		t.Errorf("expected neutral-strong RSI signal, got %v", out.Signals)
	}
	// band width 20% and position 0.75 → middle of the bands
	if !hasSignal(out, "middle of the bands") {
		t.Errorf("expected mid-band signal, got %v", out.Signals)
	}
	if out.WarningMsg != "" {
		t.Errorf("unexpected warning: %s", out.WarningMsg)
	}
}

func TestEvaluate_BearishMarket(t *testing.T) {
	ind := &model.TechnicalIndicators{
		Price:     85,
		MAs:       map[int]float64{50: 95, 200: 100},
		RSIPeriod: 14,
		RSI:       f(22),
		BandUpper: f(100),
		BandMid:   f(90),
		BandLower: f(82),
	}
	out := Evaluate(ind)
	if out.Bias != model.Bearish {
		t.Errorf("expected bearish bias, got %v (score %d)", out.Bias, out.Score)
	}
	if !hasSignal(out, "below the major moving averages") || !hasSignal(out, "death cross") {
		t.Errorf("expected bearish trend signals, got %v", out.Signals)
	}
	if !hasSignal(out, "oversold") {
		t.Errorf("expected oversold signal, got %v", out.Signals)
	}
	if !hasSignal(out, "near the lower band") {
		t.Errorf("expected lower band signal, got %v", out.Signals)
	}
	row := out.Rows[len(out.Rows)-1]
	if row.Indicator != "Bollinger" || !strings.HasPrefix(row.Status, "inside band") {
		t.Errorf("unexpected band row: %+v", row)
	}

	ind.Price = 80
	row, _ = bandRow(ind)
	if !strings.HasPrefix(row.Status, "below lower band") || row.Direction != model.Bullish {
		t.Errorf("unexpected band row below the lower band: %+v", row)
	}
}

func TestEvaluate_OverboughtWarning(t *testing.T) {
	ind := &model.TechnicalIndicators{Price: 100, RSIPeriod: 14, RSI: f(88)}
	out := Evaluate(ind)
	if out.WarningMsg == "" {
		t.Error("expected take-profit warning for RSI > 85")
	}
	if len(out.Rows) != 1 || out.Rows[0].Status != "overbought" {
		t.Errorf("unexpected rows: %+v", out.Rows)
	}
}

func TestEvaluate_Squeeze(t *testing.T) {
	ind := &model.TechnicalIndicators{Price: 100, BandUpper: f(104), BandMid: f(100), BandLower: f(96)}
	out := Evaluate(ind)
	if !hasSignal(out, "squeezing (8.0%)") {
		t.Errorf("expected squeeze signal, got %v", out.Signals)
	}
	if out.Rows[0].Status != "inside band (50.0%)" {
		t.Errorf("unexpected band status: %s", out.Rows[0].Status)
	}
}

func TestEvaluate_MissingIndicators(t *testing.T) {
	out := Evaluate(&model.TechnicalIndicators{Price: 10})
	if len(out.Rows) != 0 || len(out.Signals) != 0 {
		t.Errorf("expected empty outlook, got %+v", out)
	}
	if out.Bias != model.Neutral {
		t.Errorf("expected neutral bias, got %v", out.Bias)
	}
}

func TestRSIStatusThresholds(t *testing.T) {
	tests := []struct {
		rsi  float64
		want string
	}{
		{70.5, "overbought"},
		{70, "neutral"},
		{30, "neutral"},
		{29.9, "oversold"},
	}
	for _, tt := range tests {
		row, ok := rsiRow(&model.TechnicalIndicators{RSI: f(tt.rsi), RSIPeriod: 14})
		if !ok || row.Status != tt.want {
			t.Errorf("rsi %.1f: got %q, want %q", tt.rsi, row.Status, tt.want)
		}
	}
}
