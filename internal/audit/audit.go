// Package audit cross-checks stored launches against their event history
// and settlement ledger. It never mutates anything.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/storage"
)

// ErrLaunchNotFound is returned when the launch id doesn't exist.
var ErrLaunchNotFound = errors.New("launch not found")

// Divergence is one mismatch between stored state and what the history says.
type Divergence struct {
	Rule     string `json:"rule"`
	Subject  string `json:"subject,omitempty"` // contributor, settlement id, ...
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

func (d Divergence) String() string {
	if d.Subject != "" {
		return fmt.Sprintf("%s [%s]: expected %s, got %s", d.Rule, d.Subject, d.Expected, d.Actual)
	}
	return fmt.Sprintf("%s: expected %s, got %s", d.Rule, d.Expected, d.Actual)
}

// LaunchResult is the audit outcome of one launch.
type LaunchResult struct {
	LaunchID           uint64              `json:"launch_id"`
	Status             domain.LaunchStatus `json:"status"`
	Match              bool                `json:"match"`
	Divergences        []Divergence        `json:"divergences,omitempty"`
	Events             int                 `json:"events"`
	Settlements        int                 `json:"settlements"`
	FailedSettlements  int                 `json:"failed_settlements"`
	PendingSettlements int                 `json:"pending_settlements"`

	// ArchiveDrift lists event types whose archived count differs from the
	// primary log. The archive is written best-effort, so drift does not
	// make a launch divergent.
	ArchiveDrift []Divergence `json:"archive_drift,omitempty"`
}

// Report contains results for every launch plus the platform checks.
type Report struct {
	TotalLaunches     int            `json:"total_launches"`
	MatchedLaunches   int            `json:"matched_launches"`
	DivergentLaunches int            `json:"divergent_launches"`
	DriftingLaunches  int            `json:"drifting_launches"`
	Platform          []Divergence   `json:"platform,omitempty"`
	Results           []LaunchResult `json:"results"`
}

// Clean reports whether nothing diverged.
func (r *Report) Clean() bool {
	return r.DivergentLaunches == 0 && len(r.Platform) == 0
}

// Options holds the stores an Auditor reads.
type Options struct {
	Launches    storage.LaunchStore
	Events      storage.EventStore
	Settlements storage.SettlementStore
	Platform    storage.PlatformStore
	Archive     storage.EventArchive // optional
}

// Auditor verifies stored launches.
type Auditor struct {
	launches    storage.LaunchStore
	events      storage.EventStore
	settlements storage.SettlementStore
	platform    storage.PlatformStore
	archive     storage.EventArchive
}

// New creates an Auditor.
func New(opts Options) *Auditor {
	return &Auditor{
		launches:    opts.Launches,
		events:      opts.Events,
		settlements: opts.Settlements,
		platform:    opts.Platform,
		archive:     opts.Archive,
	}
}

// VerifyLaunch audits a single launch.
func (a *Auditor) VerifyLaunch(ctx context.Context, id uint64) (*LaunchResult, error) {
	l, err := a.launches.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrLaunchNotFound
		}
		return nil, err
	}
	l.EnsureMaps()

	evs, err := a.events.GetByLaunch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load events of launch %d: %w", id, err)
	}
	sts, err := a.settlements.GetByLaunch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load settlements of launch %d: %w", id, err)
	}

	divs := CompareLaunch(l, evs, sts)
	res := &LaunchResult{
		LaunchID:    id,
		Status:      l.Status,
		Match:       len(divs) == 0,
		Divergences: divs,
		Events:      len(evs),
		Settlements: len(sts),
	}
	for _, st := range sts {
		switch st.Status {
		case domain.SettlementFailed:
			res.FailedSettlements++
		case domain.SettlementPending:
			res.PendingSettlements++
		}
	}

	if a.archive != nil {
		counts, err := a.archive.CountByType(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("count archived events of launch %d: %w", id, err)
		}
		res.ArchiveDrift = CompareArchive(evs, counts)
	}
	return res, nil
}

// VerifyAll audits every launch and the platform fee account.
func (a *Auditor) VerifyAll(ctx context.Context) (*Report, error) {
	launches, err := a.launches.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		TotalLaunches: len(launches),
		Results:       make([]LaunchResult, 0, len(launches)),
	}

	for _, l := range launches {
		res, err := a.VerifyLaunch(ctx, l.ID)
		if err != nil {
			// Record error as divergence
			report.Results = append(report.Results, LaunchResult{
				LaunchID: l.ID,
				Status:   l.Status,
				Divergences: []Divergence{
					{Rule: "error", Expected: "audit to run", Actual: err.Error()},
				},
			})
			report.DivergentLaunches++
			continue
		}

		report.Results = append(report.Results, *res)
		if len(res.ArchiveDrift) > 0 {
			report.DriftingLaunches++
		}
		if res.Match {
			report.MatchedLaunches++
		} else {
			report.DivergentLaunches++
		}
	}

	if a.platform != nil {
		platform, err := a.verifyPlatform(ctx)
		if err != nil {
			return nil, err
		}
		report.Platform = platform
	}
	return report, nil
}

func (a *Auditor) verifyPlatform(ctx context.Context) ([]Divergence, error) {
	p, err := a.platform.Get(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load platform: %w", err)
	}
	sts, err := a.settlements.GetByLaunch(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load platform settlements: %w", err)
	}
	return ComparePlatform(p, sts), nil
}

// CompareLaunch checks l against its events and settlements and returns
// every divergence, including broken ledger invariants.
func CompareLaunch(l *domain.Launch, evs []*domain.Event, sts []*domain.Settlement) []Divergence {
	var out []Divergence
	for _, v := range ledger.VerifyInvariants(l) {
		out = append(out, Divergence{Rule: v.Rule, Expected: "invariant holds", Actual: v.Detail})
	}

	h := replay(evs, sts)

	// Refunds take both the value and its tokens back out of the sale.
	if raised := h.raised.Sub(h.refunded); raised.Cmp(l.TotalRaised) != 0 {
		out = append(out, amountDivergence("replayed_raised", "", raised, l.TotalRaised))
	}
	wantSold := h.sold.Sub(h.refunded.Div(l.PricePerToken))
	if sold := l.TotalTokens.Sub(l.TokensRemaining); wantSold.Cmp(sold) != 0 {
		out = append(out, amountDivergence("replayed_tokens_sold", "", wantSold, sold))
	}
	if h.refunded.Cmp(l.TotalRefunded) != 0 {
		out = append(out, amountDivergence("replayed_refunded", "", h.refunded, l.TotalRefunded))
	}

	for _, id := range domain.SortedIdentities(h.contributed) {
		want := h.contributed[id]
		if _, refunded := h.refundedTo[id]; refunded {
			if got, live := l.Contributions[id]; live {
				out = append(out, amountDivergence("refunded_entry_live", id.String(), domain.ZeroAmount, got))
			}
			if got := h.refundedTo[id]; got.Cmp(want) != 0 {
				out = append(out, amountDivergence("refund_amount", id.String(), want, got))
			}
			continue
		}
		if got := l.ContributionOf(id); got.Cmp(want) != 0 {
			out = append(out, amountDivergence("contribution", id.String(), want, got))
		}
	}
	for _, id := range ledger.Contributors(l) {
		if _, ok := h.contributed[id]; !ok {
			out = append(out, amountDivergence("contribution", id.String(), domain.ZeroAmount, l.Contributions[id]))
		}
	}

	for _, id := range domain.SortedIdentities(mergeKeys(h.claimStaged, l.Claimed)) {
		if want, got := h.claimStaged[id], l.ClaimedOf(id); want.Cmp(got) != 0 {
			out = append(out, amountDivergence("claimed", id.String(), want, got))
		}
		if want, got := h.claimCompleted[id], h.claimEvents[id]; want.Cmp(got) != 0 {
			out = append(out, amountDivergence("claim_events", id.String(), want, got))
		}
	}

	if h.withdrawals > 1 {
		out = append(out, Divergence{Rule: "withdraw_once", Expected: "1", Actual: fmt.Sprint(h.withdrawals)})
	}
	if h.withdrawals > 0 && !l.FundsWithdrawn {
		out = append(out, Divergence{Rule: "funds_withdrawn", Expected: "true", Actual: "false"})
	}
	if l.Guarded && len(l.Settling) == 0 {
		out = append(out, Divergence{Rule: "guard_without_call", Expected: "settling settlement", Actual: "none"})
	}
	return out
}

// ComparePlatform checks the fee account against fee settlements.
func ComparePlatform(p *domain.Platform, sts []*domain.Settlement) []Divergence {
	var out []Divergence
	if p.Fees.Withdrawn.Gt(p.Fees.Accumulated) {
		out = append(out, amountDivergence("fees_withdrawn_bound", "", p.Fees.Accumulated, p.Fees.Withdrawn))
	}
	drained := domain.ZeroAmount
	for _, st := range sts {
		if st.Kind == domain.SettlementFees && st.Status != domain.SettlementVoided {
			drained = drained.Add(st.Amount)
		}
	}
	if drained.Cmp(p.Fees.Withdrawn) != 0 {
		out = append(out, amountDivergence("fees_withdrawn", "", drained, p.Fees.Withdrawn))
	}
	return out
}

// CompareArchive checks archived per-type counts against the primary log.
func CompareArchive(evs []*domain.Event, archived map[domain.EventType]uint64) []Divergence {
	primary := make(map[domain.EventType]uint64)
	for _, e := range evs {
		primary[e.Type]++
	}

	types := make([]string, 0, len(primary)+len(archived))
	seen := make(map[domain.EventType]bool)
	for t := range primary {
		seen[t] = true
		types = append(types, string(t))
	}
	for t := range archived {
		if !seen[t] {
			types = append(types, string(t))
		}
	}
	sort.Strings(types)

	var out []Divergence
	for _, name := range types {
		t := domain.EventType(name)
		if primary[t] != archived[t] {
			out = append(out, Divergence{
				Rule:     "archive_count",
				Subject:  name,
				Expected: strconv.FormatUint(primary[t], 10),
				Actual:   strconv.FormatUint(archived[t], 10),
			})
		}
	}
	return out
}

// history is what the event log and settlement ledger say happened.
type history struct {
	raised, sold, refunded domain.Amount

	contributed    map[domain.Identity]domain.Amount
	refundedTo     map[domain.Identity]domain.Amount
	claimStaged    map[domain.Identity]domain.Amount // every claim settlement counts: effects precede the call
	claimCompleted map[domain.Identity]domain.Amount
	claimEvents    map[domain.Identity]domain.Amount

	withdrawals int
}

func replay(evs []*domain.Event, sts []*domain.Settlement) history {
	h := history{
		contributed:    make(map[domain.Identity]domain.Amount),
		refundedTo:     make(map[domain.Identity]domain.Amount),
		claimStaged:    make(map[domain.Identity]domain.Amount),
		claimCompleted: make(map[domain.Identity]domain.Amount),
		claimEvents:    make(map[domain.Identity]domain.Amount),
	}

	zeroNetWithdraw := false
	for _, e := range evs {
		switch e.Type {
		case domain.EventContributed:
			h.raised = h.raised.Add(e.Amount)
			h.sold = h.sold.Add(e.Tokens)
			h.contributed[e.Actor] = h.contributed[e.Actor].Add(e.Amount)
		case domain.EventTokensClaimed:
			h.claimEvents[e.Actor] = h.claimEvents[e.Actor].Add(e.Tokens)
		case domain.EventFundsWithdrawn:
			if e.Ref == "" {
				zeroNetWithdraw = true
			}
		}
	}

	for _, st := range sts {
		// Voided settlements belong to launch changes that never committed.
		if st.Status == domain.SettlementVoided {
			continue
		}
		switch st.Kind {
		case domain.SettlementRefund, domain.SettlementAdminRefund:
			h.refunded = h.refunded.Add(st.Amount)
			h.refundedTo[st.To] = h.refundedTo[st.To].Add(st.Amount)
		case domain.SettlementClaim:
			h.claimStaged[st.To] = h.claimStaged[st.To].Add(st.Amount)
			if st.Status == domain.SettlementCompleted {
				h.claimCompleted[st.To] = h.claimCompleted[st.To].Add(st.Amount)
			}
		case domain.SettlementWithdraw:
			h.withdrawals++
		}
	}
	if zeroNetWithdraw {
		h.withdrawals++
	}
	return h
}

func amountDivergence(rule, subject string, expected, actual domain.Amount) Divergence {
	return Divergence{Rule: rule, Subject: subject, Expected: expected.String(), Actual: actual.String()}
}

func mergeKeys(a, b map[domain.Identity]domain.Amount) map[domain.Identity]struct{} {
	out := make(map[domain.Identity]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}
