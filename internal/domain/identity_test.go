package domain

import (
	"crypto/sha256"
	"encoding/json"
	"testing"

	"filippo.io/edwards25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentity_RoundTrip(t *testing.T) {
	var id Identity
	for i := range id {
		id[i] = byte(i + 1)
	}

	parsed, err := ParseIdentity(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseIdentity_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"bad alphabet", "0OIl"},
		{"too short", "3mJr7AoUXx2Wqd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIdentity(tt.input)
			assert.ErrorIs(t, err, ErrInvalidIdentity)
		})
	}
}

func TestIdentity_Compare(t *testing.T) {
	a := Identity{1}
	b := Identity{2}

	assert.Negative(t, a.Compare(b))
	assert.Positive(t, b.Compare(a))
	assert.Zero(t, a.Compare(a))
}

func TestIdentity_IsOnCurve(t *testing.T) {
	gen, err := IdentityFromBytes(edwards25519.NewGeneratorPoint().Bytes())
	require.NoError(t, err)
	assert.True(t, gen.IsOnCurve(), "generator must be on curve")

	// Roughly half of all 32-byte strings are off curve.
	found := false
	for i := 0; i < 64 && !found; i++ {
		h := sha256.Sum256([]byte{byte(i)})
		if !Identity(h).IsOnCurve() {
			found = true
		}
	}
	assert.True(t, found, "expected an off-curve hash within 64 attempts")
}

func TestIdentity_JSONMapKey(t *testing.T) {
	m := map[Identity]Amount{{7}: NewAmount(42)}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded map[Identity]Amount
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, NewAmount(42), decoded[Identity{7}])
}

func TestSortedIdentities(t *testing.T) {
	m := map[Identity]struct{}{
		{3}: {},
		{1}: {},
		{2}: {},
	}

	keys := SortedIdentities(m)
	require.Len(t, keys, 3)
	assert.Equal(t, Identity{1}, keys[0])
	assert.Equal(t, Identity{2}, keys[1])
	assert.Equal(t, Identity{3}, keys[2])
}
