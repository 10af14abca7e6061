package model

import "time"

// LineItem names a financial statement row.
type LineItem string

const (
	ItemOperatingCashFlow  LineItem = "Operating Cash Flow"
	ItemCapitalExpenditure LineItem = "Capital Expenditure"
	ItemTotalRevenue       LineItem = "Total Revenue"
	ItemGrossProfit        LineItem = "Gross Profit"
	ItemOperatingIncome    LineItem = "Operating Income"
	ItemNetIncome          LineItem = "Net Income"
	ItemCurrentAssets      LineItem = "Current Assets"
	ItemCurrentLiabilities LineItem = "Current Liabilities"
	ItemInventory          LineItem = "Inventory"
)

// StatementPeriod holds the reported line items of one fiscal period.
type StatementPeriod struct {
	End   time.Time
	items map[LineItem]float64
}

// NewPeriod creates a period ending at end.
func NewPeriod(end time.Time) StatementPeriod {
	return StatementPeriod{End: end, items: make(map[LineItem]float64)}
}

// Set records a line item value.
func (p *StatementPeriod) Set(item LineItem, v float64) {
	if p.items == nil {
		p.items = make(map[LineItem]float64)
	}
	p.items[item] = v
}

// Lookup returns the line item value and whether it was reported.
func (p StatementPeriod) Lookup(item LineItem) (float64, bool) {
	v, ok := p.items[item]
	return v, ok
}

// Statements groups the three statements of one symbol. Every slice is
// ordered most-recent-first.
type Statements struct {
	Symbol   string
	CashFlow []StatementPeriod
	Income   []StatementPeriod
	Balance  []StatementPeriod
}
