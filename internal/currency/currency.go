// Package currency converts between wei, decimal ETH strings, and the
// secondary display currency. All math is fixed-point; floats never touch an
// amount.
package currency

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const weiDigits = 18

// WeiToEth renders an integer wei amount as a decimal ETH string without
// precision loss.
func WeiToEth(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -weiDigits).String()
}

// EthToWei parses a decimal ETH string into integer wei. Amounts with
// sub-wei precision are rejected rather than rounded.
func EthToWei(eth string) (*big.Int, error) {
	amount, err := decimal.NewFromString(eth)
	if err != nil {
		return nil, fmt.Errorf("parse eth amount %q: %w", eth, err)
	}

	shifted := amount.Shift(weiDigits)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("eth amount %q has sub-wei precision", eth)
	}

	return shifted.BigInt(), nil
}

// EthToFiat converts an ETH amount into the display currency using a fixed
// rate. The result is for presentation only and must never feed back into a
// wei amount.
func EthToFiat(eth string, rate decimal.Decimal) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(eth)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse eth amount %q: %w", eth, err)
	}
	return amount.Mul(rate).Round(0), nil
}

// FiatToEth converts a display-currency amount into ETH, rounded to six
// decimal places the way the campaign forms present it.
func FiatToEth(fiat string, rate decimal.Decimal) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(fiat)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse fiat amount %q: %w", fiat, err)
	}
	if rate.IsZero() {
		return decimal.Zero, fmt.Errorf("fiat rate is zero")
	}
	return amount.DivRound(rate, 6), nil
}
