package orderbook

import (
	"sequencer/domain/message"

	"github.com/shopspring/decimal"
)

var (
	feeRateScale = decimal.NewFromInt(int64(message.MaxFeeRate))
	hundred      = decimal.NewFromInt(message.MaxPercentage)
)

// quo is integer division truncated toward zero.
func quo(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	q, _ := a.QuoRem(b, 0)
	return q
}

// Notional converts a base amount at price into quote fundamental units.
func Notional(amount, price decimal.Decimal, baseDecimals, quoteDecimals int) decimal.Decimal {
	return amount.Mul(price).Shift(int32(quoteDecimals - baseDecimals)).Truncate(0)
}

func NotionalFee(notional decimal.Decimal, rate message.FeeRate) decimal.Decimal {
	return quo(notional.Mul(rate.Decimal()), feeRateScale)
}

func NotionalPlusFee(amount, price decimal.Decimal, baseDecimals, quoteDecimals int, rate message.FeeRate) decimal.Decimal {
	n := Notional(amount, price, baseDecimals, quoteDecimals)
	return n.Add(NotionalFee(n, rate))
}

// QuantityFromNotionalAndPrice is the inverse of Notional, truncated.
func QuantityFromNotionalAndPrice(notional, price decimal.Decimal, baseDecimals, quoteDecimals int) decimal.Decimal {
	return quo(notional.Shift(int32(baseDecimals-quoteDecimals)), price)
}

// NotionalExcludingFee backs the fee out of an amount that already
// includes it: n + n*rate/1e6 = amount.
func NotionalExcludingFee(amountWithFee decimal.Decimal, rate message.FeeRate) decimal.Decimal {
	return quo(amountWithFee.Mul(feeRateScale), feeRateScale.Add(rate.Decimal()))
}

func percentOf(amount decimal.Decimal, pct int) decimal.Decimal {
	return quo(amount.Mul(decimal.NewFromInt(int64(pct))), hundred)
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
