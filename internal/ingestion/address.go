package ingestion

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateAddress checks that an address is valid base58 decoding to a
// 32-byte public key. Program-derived addresses pass; they are valid
// account keys even though they are off-curve.
func ValidateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("address %q: %w", addr, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("address %q: decoded to %d bytes, want 32", addr, len(raw))
	}
	return nil
}

// IsOnCurve reports whether the address is a valid ed25519 curve point.
// Wallet keypairs are on-curve; associated token accounts and other PDAs
// are not. Returns false for malformed addresses.
func IsOnCurve(addr string) bool {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
