package ton

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// NanoPerTON: 1 TON = 1_000_000_000 nanoTON.
const NanoPerTON = 1_000_000_000

var nanoPerTON = decimal.NewFromInt(NanoPerTON)

// FanticsToNano converts fantics to nanoTON at rate fantics per TON, rounding down.
func FanticsToNano(fantics, rate int64) int64 {
	if rate <= 0 || fantics <= 0 {
		return 0
	}
	return decimal.NewFromInt(fantics).
		Mul(nanoPerTON).
		Div(decimal.NewFromInt(rate)).
		Floor().
		IntPart()
}

// NanoToFantics converts nanoTON to fantics at rate fantics per TON, rounding down.
func NanoToFantics(nano, rate int64) int64 {
	if rate <= 0 || nano <= 0 {
		return 0
	}
	return decimal.NewFromInt(nano).
		Mul(decimal.NewFromInt(rate)).
		Div(nanoPerTON).
		Floor().
		IntPart()
}

// FeeNano is bps basis points of amountNano, rounded down.
func FeeNano(amountNano int64, bps int) int64 {
	if bps <= 0 || amountNano <= 0 {
		return 0
	}
	return decimal.NewFromInt(amountNano).
		Mul(decimal.NewFromInt(int64(bps))).
		Div(decimal.NewFromInt(10_000)).
		Floor().
		IntPart()
}

// FormatNano renders nanoTON as a TON decimal string, e.g. 1500000000 -> "1.5".
func FormatNano(nano int64) string {
	return decimal.New(nano, -9).String()
}

// ParseTONToNano converts a decimal TON string (e.g. "5.5") to nanoTON.
// Digits beyond the ninth decimal place are dropped.
func ParseTONToNano(tonStr string) (*big.Int, error) {
	tonStr = strings.TrimSpace(tonStr)
	if tonStr == "" {
		return nil, fmt.Errorf("empty TON amount")
	}
	d, err := decimal.NewFromString(tonStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TON amount: %s", tonStr)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative TON amount: %s", tonStr)
	}
	return d.Shift(9).Floor().BigInt(), nil
}
