package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"token-launchpad/internal/domain"
)

// ComputeSettlementID computes a deterministic settlement_id using SHA256.
// Formula: SHA256(kind|launch_id|token|to|amount|nonce)
// nonce is the number of settlements already recorded for the launch.
// Returns hex-encoded hash (64 characters).
func ComputeSettlementID(
	kind domain.SettlementKind,
	launchID uint64,
	token domain.Identity,
	to domain.Identity,
	amount domain.Amount,
	nonce int,
) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%s|%d",
		string(kind),
		launchID,
		token.String(),
		to.String(),
		amount.String(),
		nonce,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
