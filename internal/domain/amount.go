package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL Lamports = 1_000_000_000

// Lamports is an amount in the smallest native-token unit.
type Lamports uint64

// SOL converts a fractional SOL amount to lamports, rounding up.
func SOL(amount float64) Lamports {
	d := decimal.NewFromFloat(amount).Shift(9).Ceil()
	if d.Sign() <= 0 {
		return 0
	}
	return Lamports(d.BigInt().Uint64())
}

// Decimal returns the amount in SOL.
func (l Lamports) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(l)), -9)
}

// String renders the amount in SOL with nine decimals.
func (l Lamports) String() string {
	return l.Decimal().StringFixed(9)
}

// Sub returns l-o, or zero if o exceeds l.
func (l Lamports) Sub(o Lamports) Lamports {
	if o >= l {
		return 0
	}
	return l - o
}

// ParseSOL parses a decimal SOL string such as "0.2" into lamports, rounding up.
func ParseSOL(s string) (Lamports, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse SOL amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative SOL amount %q", s)
	}
	return Lamports(d.Shift(9).Ceil().BigInt().Uint64()), nil
}
