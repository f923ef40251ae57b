// Package money содержит операции с денежными суммами в копейках.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount возвращается для нечисловых сумм и сумм с более чем двумя знаками после запятой.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrOutOfRange возвращается, если сумма превышает MaxCents.
	ErrOutOfRange = errors.New("amount out of range")
)

// PerMille задаёт количество единиц, к которому относится цена услуги.
const PerMille = 1000

// MaxCents ограничивает любую сумму и баланс в копейках.
const MaxCents int64 = 1 << 53

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(MaxCents)
)

// Parse разбирает десятичную строку ("12.50") в копейки.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("%w: more than two decimal places in %q", ErrInvalidAmount, s)
	}
	if cents.Abs().GreaterThan(maxCents) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}

	return cents.IntPart(), nil
}

// Format возвращает сумму в копейках строкой с двумя знаками после запятой.
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ToFloat переводит копейки в рубли для JSON-ответов.
func ToFloat(cents int64) float64 {
	f, _ := decimal.New(cents, -2).Float64()
	return f
}

// OrderTotal считает стоимость заказа по цене за 1000 единиц, округляя до копейки.
// Стоимость больше MaxCents возвращает ErrOutOfRange.
func OrderTotal(pricePerMille, quantity int64) (int64, error) {
	total := decimal.NewFromInt(pricePerMille).
		Mul(decimal.NewFromInt(quantity)).
		Div(decimal.NewFromInt(PerMille)).
		Round(0)
	if total.Abs().GreaterThan(maxCents) {
		return 0, fmt.Errorf("%w: order total %s", ErrOutOfRange, total.String())
	}
	return total.IntPart(), nil
}
