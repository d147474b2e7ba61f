package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		total uint64
		bps   uint16
		want  uint64
	}{
		{"default rate", 2000, 200, 40},
		{"floors", 1049, 200, 20},
		{"zero rate", 5000, 0, 0},
		{"full rate", 5000, 10000, 5000},
		{"tiny total", 1, 200, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(domain.NewAmount(tt.total), tt.bps)
			assert.Equal(t, domain.NewAmount(tt.want), got)
		})
	}
}

func TestSplit(t *testing.T) {
	fee, net := Split(domain.NewAmount(2000), 200)
	assert.Equal(t, domain.NewAmount(40), fee)
	assert.Equal(t, domain.NewAmount(1960), net)
}

func TestAccrueAndDrain(t *testing.T) {
	var acct domain.FeeAccount

	Accrue(&acct, domain.NewAmount(40))
	Accrue(&acct, domain.NewAmount(10))
	assert.Equal(t, domain.NewAmount(50), acct.Available())

	assert.Equal(t, domain.NewAmount(50), Drain(&acct))
	assert.True(t, acct.Available().IsZero())
	assert.True(t, Drain(&acct).IsZero())

	Accrue(&acct, domain.NewAmount(5))
	assert.Equal(t, domain.NewAmount(5), acct.Available())
	assert.False(t, acct.Withdrawn.Gt(acct.Accumulated))
}

func TestValidateBasisPoints(t *testing.T) {
	assert.NoError(t, ValidateBasisPoints(10000))
	assert.True(t, apperrors.IsCode(ValidateBasisPoints(10001), apperrors.CodeInvalidInput))
}
