package models

import "github.com/shopspring/decimal"

// MoneyPlaces is the precision every stored monetary value is rounded to.
const MoneyPlaces = 2

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// AddMoney adds b to a and rounds the result, so repeated updates never drift.
func AddMoney(a, b decimal.Decimal) decimal.Decimal {
	return RoundMoney(a.Add(b))
}
