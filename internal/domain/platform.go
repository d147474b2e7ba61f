package domain

// DefaultFeeBasisPoints is the platform fee applied when none is configured (2%).
const DefaultFeeBasisPoints uint16 = 200

// MaxBasisPoints is 100%.
const MaxBasisPoints uint16 = 10000

// FeeAccount tracks platform fees across all launches.
type FeeAccount struct {
	BasisPoints uint16 `json:"basis_points"`
	Accumulated Amount `json:"accumulated"`
	Withdrawn   Amount `json:"withdrawn"` // never exceeds Accumulated
}

// Available returns fees that can still be withdrawn.
func (f FeeAccount) Available() Amount {
	return f.Accumulated.Sub(f.Withdrawn)
}

// Platform is the process-wide administrative state.
// Corresponds to the single-row platform table in PostgreSQL.
type Platform struct {
	Owner        Identity   `json:"owner"`
	Self         Identity   `json:"self"` // account holding deposits and escrow
	FeeRecipient Identity   `json:"fee_recipient"`
	Paused       bool       `json:"paused"`
	Fees         FeeAccount `json:"fees"`
	FeeGuard     bool       `json:"fee_guard"` // fee withdrawal in flight
	Settling     []string   `json:"settling,omitempty"` // platform settlements awaiting completion
}

// Clone returns a deep copy.
func (p *Platform) Clone() *Platform {
	if p == nil {
		return nil
	}
	c := *p
	c.Settling = append([]string(nil), p.Settling...)
	return &c
}

// RemoveSettling drops ids from list, keeping order.
func RemoveSettling(list []string, ids ...string) []string {
	var out []string
	for _, s := range list {
		keep := true
		for _, id := range ids {
			if s == id {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, s)
		}
	}
	return out
}
