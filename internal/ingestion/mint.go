package ingestion

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrInvalidMint is returned when a mint address fails validation.
var ErrInvalidMint = errors.New("invalid mint address")

// ValidateMint checks that mint is a base58-encoded 32-byte ed25519 public
// key lying on the curve. Program-derived addresses are off-curve by
// construction and are rejected.
func ValidateMint(mint string) error {
	if mint == "" {
		return fmt.Errorf("%w: empty", ErrInvalidMint)
	}

	decoded, err := base58.Decode(mint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMint, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("%w: expected 32 bytes, got %d", ErrInvalidMint, len(decoded))
	}
	if !isOnCurve(decoded) {
		return fmt.Errorf("%w: point not on ed25519 curve", ErrInvalidMint)
	}

	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
