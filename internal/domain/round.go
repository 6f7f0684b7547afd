package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds half-up to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Percent returns part/whole*100 rounded to two decimals, or 0 when whole is 0.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(whole))).
		Round(2).
		InexactFloat64()
}

// MeanInts is the arithmetic mean rounded to two decimals; 0 for no values.
func MeanInts(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromInt(int64(v)))
	}
	return sum.Div(decimal.NewFromInt(int64(len(values)))).Round(2).InexactFloat64()
}

// MeanFloats is the arithmetic mean rounded to two decimals; 0 for no values.
func MeanFloats(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.Div(decimal.NewFromInt(int64(len(values)))).Round(2).InexactFloat64()
}
