package domain

// SettlementKind identifies which operation produced an external token call.
type SettlementKind string

const (
	SettlementClaim       SettlementKind = "CLAIM"
	SettlementRefund      SettlementKind = "REFUND"
	SettlementAdminRefund SettlementKind = "ADMIN_REFUND"
	SettlementWithdraw    SettlementKind = "WITHDRAW"
	SettlementFees        SettlementKind = "FEES"
	SettlementDeposit     SettlementKind = "DEPOSIT"
	SettlementRescue      SettlementKind = "RESCUE"
)

// SettlementStatus tracks an external call through its two phases.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "PENDING"
	SettlementCompleted SettlementStatus = "COMPLETED"
	SettlementFailed    SettlementStatus = "FAILED"

	// SettlementVoided marks a staged movement whose local effects never
	// committed. It was never executed and owes nothing.
	SettlementVoided SettlementStatus = "VOIDED"
)

// Settlement records one value movement owed to or by the launchpad.
// Effects are committed before the call; a Failed settlement is a debt
// that retry_settlement can discharge later.
// Corresponds to settlements table in PostgreSQL.
type Settlement struct {
	ID        string           `json:"id"` // deterministic hash, see idhash
	Kind      SettlementKind   `json:"kind"`
	LaunchID  uint64           `json:"launch_id"` // 0 for platform-level movements
	Token     Identity         `json:"token"`     // NativeToken for value
	From      Identity         `json:"from"`
	To        Identity         `json:"to"`
	Amount    Amount           `json:"amount"`
	Status    SettlementStatus `json:"status"`
	Reason    string           `json:"reason,omitempty"` // last failure
	Attempts  int              `json:"attempts"`
	CreatedAt uint64           `json:"created_at"` // block
	UpdatedAt uint64           `json:"updated_at"` // block
}
