package simulation

import (
	"fmt"
	"strings"

	"StockScope/internal/model"
)

// Kind selects a forward-looking analysis.
type Kind int

const (
	KindMonteCarlo Kind = iota
	KindTechnical
	KindSupportResistance
	KindTrend
)

var kindNames = map[Kind]string{
	KindMonteCarlo:        "montecarlo",
	KindTechnical:         "technical",
	KindSupportResistance: "levels",
	KindTrend:             "trend",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the names printed by String plus a few aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "montecarlo", "monte-carlo", "mc", "sim":
		return KindMonteCarlo, nil
	case "technical", "tech":
		return KindTechnical, nil
	case "levels", "support", "sr":
		return KindSupportResistance, nil
	case "trend", "linear":
		return KindTrend, nil
	}
	return 0, model.Invalid("simulation", "kind", "unknown analysis %q", s)
}
