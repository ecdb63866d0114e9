// Package validate checks and normalizes user-supplied addresses and
// amounts before any instruction is built. Pure: no side effects, no
// network access.
package validate

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"

	"github.com/bjeschke/solanahub/internal/domain"
)

// ParseAddress decodes a base58 address into a public key handle.
// Fails with domain.ErrInvalidAddress unless the input decodes to exactly
// 32 bytes.
func ParseAddress(s string) (common.PublicKey, error) {
	var pk common.PublicKey

	if s == "" {
		return pk, fmt.Errorf("%w: empty string", domain.ErrInvalidAddress)
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("%w: %q is not base58", domain.ErrInvalidAddress, s)
	}
	if len(raw) != common.PublicKeyLength {
		return pk, fmt.Errorf("%w: %q decodes to %d bytes, want %d",
			domain.ErrInvalidAddress, s, len(raw), common.PublicKeyLength)
	}

	copy(pk[:], raw)
	return pk, nil
}

// IsOnCurve reports whether the key is a valid ed25519 curve point.
// Wallet owners are on-curve; program-derived addresses are not.
func IsOnCurve(pk common.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(pk.Bytes())
	return err == nil
}

// ParseWalletAddress parses an address and additionally requires it to be
// on-curve, rejecting PDAs where a wallet owner is expected.
func ParseWalletAddress(s string) (common.PublicKey, error) {
	pk, err := ParseAddress(s)
	if err != nil {
		return pk, err
	}
	if !IsOnCurve(pk) {
		return common.PublicKey{}, fmt.Errorf("%w: %q is not on the ed25519 curve", domain.ErrInvalidAddress, s)
	}
	return pk, nil
}
