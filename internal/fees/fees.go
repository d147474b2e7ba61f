// Package fees holds platform fee arithmetic.
package fees

import (
	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
)

var basisPointsDenominator = domain.NewAmount(uint64(domain.MaxBasisPoints))

// Compute returns floor(total * bps / 10000). Rounding favors the creator.
func Compute(total domain.Amount, bps uint16) domain.Amount {
	return total.MulDiv(domain.NewAmount(uint64(bps)), basisPointsDenominator)
}

// Split returns the fee and the creator's net share of total.
func Split(total domain.Amount, bps uint16) (fee, net domain.Amount) {
	fee = Compute(total, bps)
	return fee, total.Sub(fee)
}

// Accrue adds fee to the account.
func Accrue(acct *domain.FeeAccount, fee domain.Amount) {
	acct.Accumulated = acct.Accumulated.Add(fee)
}

// Drain marks everything available as withdrawn and returns it.
func Drain(acct *domain.FeeAccount) domain.Amount {
	avail := acct.Available()
	acct.Withdrawn = acct.Withdrawn.Add(avail)
	return avail
}

// ValidateBasisPoints rejects rates above 100%.
func ValidateBasisPoints(bps uint16) error {
	if bps > domain.MaxBasisPoints {
		return apperrors.Newf(apperrors.CodeInvalidInput, "fee_basis_points %d exceeds %d", bps, domain.MaxBasisPoints)
	}
	return nil
}
