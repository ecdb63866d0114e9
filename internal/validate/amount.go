package validate

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bjeschke/solanahub/internal/domain"
)

// MaxDecimals bounds the decimals accepted by ToBaseUnits. SPL mints use
// at most 9; the bound is generous to keep the function reusable.
const MaxDecimals = 18

// ToBaseUnits converts a user-entered decimal amount string to base units:
// floor(amount * 10^decimals). Fails with domain.ErrInvalidAmount if the
// string is not a number, is negative, or the result does not fit uint64.
func ToBaseUnits(amount string, decimals int) (uint64, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return 0, fmt.Errorf("%w: decimals %d out of range [0, %d]", domain.ErrInvalidAmount, decimals, MaxDecimals)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidAmount, amount)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", domain.ErrInvalidAmount, amount)
	}

	base := d.Shift(int32(decimals)).Floor().BigInt()
	if !base.IsUint64() {
		return 0, fmt.Errorf("%w: %q exceeds integer precision at %d decimals", domain.ErrInvalidAmount, amount, decimals)
	}

	return base.Uint64(), nil
}
