package domain

import (
	"bytes"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// IdentityLen is the byte length of an account identity.
const IdentityLen = 32

// ErrInvalidIdentity is returned when an identity string cannot be decoded.
var ErrInvalidIdentity = errors.New("invalid identity")

// Identity is an opaque 32-byte account identifier.
// The zero value denotes the native currency when used as a token reference.
type Identity [IdentityLen]byte

// NativeToken is the token reference for the chain's native value.
var NativeToken = Identity{}

// ParseIdentity decodes a base58 identity string.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if len(raw) != IdentityLen {
		return id, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidIdentity, IdentityLen, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// MustParseIdentity is ParseIdentity that panics on error. Intended for tests and constants.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IdentityFromBytes copies b into an Identity. b must be exactly 32 bytes.
func IdentityFromBytes(b []byte) (Identity, error) {
	var id Identity
	if len(b) != IdentityLen {
		return id, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidIdentity, IdentityLen, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// String returns the base58 form.
func (id Identity) String() string {
	return base58.Encode(id[:])
}

// IsZero reports whether id is the all-zero identity.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// Compare orders identities by their raw bytes.
func (id Identity) Compare(other Identity) int {
	return bytes.Compare(id[:], other[:])
}

// IsOnCurve reports whether id decodes to a valid ed25519 point.
// Program-derived accounts are off-curve and cannot sign.
func (id Identity) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(id[:])
	return err == nil
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
