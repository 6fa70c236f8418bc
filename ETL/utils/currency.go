package utils

import (
	"github.com/shopspring/decimal"
)

// Convert переводит сумму по курсу и округляет до копеек.
// Нулевой курс считается отсутствующим и трактуется как 1.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return amount.Round(2)
	}
	return amount.Mul(rate).Round(2)
}

// LineTotal считает сумму строки продажи: цена за единицу * количество
func LineTotal(unitPrice decimal.Decimal, quantity int64) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity))
}
