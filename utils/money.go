package utils

import "math"

// Round rounds a monetary amount to 2 decimals.
func Round(value float64) float64 {
	return math.Round(value*100) / 100
}

// NetFromGross derives the net unit price from a gross price and a VAT
// percentage, rounded to 2 decimals.
func NetFromGross(gross, vatPercent float64) float64 {
	return Round(gross / (1 + vatPercent/100))
}

// VatPercentFromTotals derives the effective VAT percentage from basket
// totals. Used for the synthetic shipping line, whose rate is not stored on
// the basket.
func VatPercentFromTotals(gross, net float64) float64 {
	if net == 0 {
		return 0
	}
	return math.Round((gross/net - 1) * 100)
}
