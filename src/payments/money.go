package payments

import (
	"math"
	"strings"
)

// ToMinorUnits converts a decimal major-unit amount to the integer the
// gateway charges in.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}

// RoundMoney rounds to cents so accumulated float sums compare cleanly.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

func LedgerCurrency(currency string) string {
	return strings.ToUpper(currency)
}

func GatewayCurrency(currency string) string {
	return strings.ToLower(currency)
}
