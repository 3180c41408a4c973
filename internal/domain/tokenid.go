package domain

import (
	"fmt"
	"math/big"
)

// TokenID identifies a ticket as a composite of the owning activity's id and
// a per-activity sequential index. The packed on-wire form is
// (activityID << 64) | localIndex, which is globally unique without a global
// counter and cheap to decompose. Packed ids exceed 64 bits for any activity
// past the first, so the external representation is the decimal string of
// the packed big integer — the same form the web client round-trips.
type TokenID struct {
	ActivityID uint64
	LocalIndex uint64
}

// NewTokenID builds the composite id for the localIndex-th ticket of an
// activity.
func NewTokenID(activityID, localIndex uint64) TokenID {
	return TokenID{ActivityID: activityID, LocalIndex: localIndex}
}

// BigInt returns the packed 128-bit form of the token id.
func (t TokenID) BigInt() *big.Int {
	packed := new(big.Int).SetUint64(t.ActivityID)
	packed.Lsh(packed, 64)
	return packed.Or(packed, new(big.Int).SetUint64(t.LocalIndex))
}

// String returns the decimal string of the packed id.
func (t TokenID) String() string {
	return t.BigInt().String()
}

// ParseTokenID decodes a decimal packed token id back into its
// (activityID, localIndex) parts.
func ParseTokenID(s string) (TokenID, error) {
	packed, ok := new(big.Int).SetString(s, 10)
	if !ok || packed.Sign() < 0 {
		return TokenID{}, fmt.Errorf("token id %q: %w", s, ErrTicketNotFound)
	}
	if packed.BitLen() > 128 {
		return TokenID{}, fmt.Errorf("token id %q out of range: %w", s, ErrTicketNotFound)
	}

	local := new(big.Int).And(packed, maxUint64)
	activity := new(big.Int).Rsh(packed, 64)
	return TokenID{
		ActivityID: activity.Uint64(),
		LocalIndex: local.Uint64(),
	}, nil
}

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// MarshalText encodes the token id as its decimal packed form for JSON and
// cache keys.
func (t TokenID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes the decimal packed form.
func (t *TokenID) UnmarshalText(text []byte) error {
	parsed, err := ParseTokenID(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
