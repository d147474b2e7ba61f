package launchpad

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/clock"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/events"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/storage/memory"
	"token-launchpad/internal/token/stub"
)

var (
	owner   = domain.Identity{0xA0}
	self    = domain.Identity{0xB0}
	creator = domain.Identity{0xC0}
	saleTok = domain.Identity{0x70}
	alice   = domain.Identity{0x01}
	bob     = domain.Identity{0x02}
	carol   = domain.Identity{0x03}
)

func amt(n uint64) domain.Amount { return domain.NewAmount(n) }

type fixture struct {
	svc         *Service
	clock       *clock.Manual
	token       *stub.Client
	log         *events.Log
	launches    *faultyLaunches
	platform    *faultyPlatform
	settlements *memory.SettlementStore
	ctx         context.Context
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()

	o := Options{Owner: owner, Self: self}
	for _, fn := range opts {
		fn(&o)
	}

	clk := clock.NewManual(10)
	tok := stub.NewClient(self)
	tok.Mint(domain.NativeToken, self, amt(1_000_000))
	tok.Mint(saleTok, self, amt(1_000_000))
	log := events.NewLog(memory.NewEventStore(), nil)
	launches := &faultyLaunches{LaunchStore: memory.NewLaunchStore()}
	platform := &faultyPlatform{PlatformStore: memory.NewPlatformStore()}
	settlements := memory.NewSettlementStore()

	svc, err := New(context.Background(), Deps{
		Launches:    launches,
		Platform:    platform,
		Settlements: settlements,
		Events:      log,
		Token:       tok,
		Clock:       clk,
	}, o)
	require.NoError(t, err)

	return &fixture{
		svc:         svc,
		clock:       clk,
		token:       tok,
		log:         log,
		launches:    launches,
		platform:    platform,
		settlements: settlements,
		ctx:         context.Background(),
	}
}

// baseInput is the launch of scenario A: start 20, end 100.
func baseInput() domain.CreateLaunchInput {
	return domain.CreateLaunchInput{
		Title:         "Launch",
		Description:   "a sale",
		Token:         saleTok,
		TotalTokens:   amt(1000),
		PricePerToken: amt(1),
		MinRaise:      amt(500),
		MaxRaise:      amt(1000),
		MaxPerWallet:  amt(100),
		StartTime:     20,
		EndTime:       100,
	}
}

// activeLaunch creates and starts in, then moves the clock to its start.
func (f *fixture) activeLaunch(t *testing.T, in domain.CreateLaunchInput) uint64 {
	t.Helper()
	id, err := f.svc.CreateLaunch(f.ctx, creator, in)
	require.NoError(t, err)
	require.NoError(t, f.svc.StartLaunch(f.ctx, creator, id))
	f.clock.Set(in.StartTime)
	return id
}

func (f *fixture) contribute(t *testing.T, id uint64, who domain.Identity, n uint64) *domain.ContributionReceipt {
	t.Helper()
	r, err := f.svc.Contribute(f.ctx, who, id, amt(n))
	require.NoError(t, err)
	return r
}

func (f *fixture) launch(t *testing.T, id uint64) *domain.Launch {
	t.Helper()
	l, err := f.svc.GetLaunch(f.ctx, id)
	require.NoError(t, err)
	return l
}

func (f *fixture) assertInvariants(t *testing.T, id uint64) {
	t.Helper()
	assert.Empty(t, ledger.VerifyInvariants(f.launch(t, id)))
}

func (f *fixture) eventTypes(t *testing.T, id uint64) []domain.EventType {
	t.Helper()
	evs, err := f.svc.GetEvents(f.ctx, id)
	require.NoError(t, err)
	out := make([]domain.EventType, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}

func contributor(i int) domain.Identity {
	return domain.Identity{0x10, byte(i)}
}

func requireCode(t *testing.T, err error, code apperrors.Code, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	require.Equal(t, code, apperrors.GetCode(err), "error: %v", err)
}

func TestNew_PlatformDefaults(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.GetPlatform(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, owner, p.Owner)
	assert.Equal(t, owner, p.FeeRecipient, "fee recipient defaults to owner")
	assert.Equal(t, domain.DefaultFeeBasisPoints, p.Fees.BasisPoints)
	assert.False(t, p.Paused)
}

func TestNew_RejectsBadFee(t *testing.T) {
	bps := uint16(10001)
	_, err := New(context.Background(), Deps{
		Launches:    memory.NewLaunchStore(),
		Platform:    memory.NewPlatformStore(),
		Settlements: memory.NewSettlementStore(),
		Events:      events.NewLog(memory.NewEventStore(), nil),
		Token:       stub.NewClient(self),
		Clock:       clock.NewManual(0),
	}, Options{Owner: owner, Self: self, FeeBasisPoints: &bps})
	requireCode(t, err, apperrors.CodeInvalidInput)
}

func TestCreateLaunch_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *domain.CreateLaunchInput)
	}{
		{"empty title", func(in *domain.CreateLaunchInput) { in.Title = "" }},
		{"long title", func(in *domain.CreateLaunchInput) { in.Title = string(make([]byte, 129)) }},
		{"long description", func(in *domain.CreateLaunchInput) { in.Description = string(make([]byte, 2049)) }},
		{"native sale token", func(in *domain.CreateLaunchInput) { in.Token = domain.NativeToken }},
		{"zero price", func(in *domain.CreateLaunchInput) { in.PricePerToken = domain.ZeroAmount }},
		{"zero tokens", func(in *domain.CreateLaunchInput) { in.TotalTokens = domain.ZeroAmount }},
		{"zero wallet cap", func(in *domain.CreateLaunchInput) { in.MaxPerWallet = domain.ZeroAmount }},
		{"min above max", func(in *domain.CreateLaunchInput) { in.MinRaise = amt(1001) }},
		{"max above supply value", func(in *domain.CreateLaunchInput) { in.MaxRaise = amt(1001); in.MinRaise = amt(1) }},
		{"start in past", func(in *domain.CreateLaunchInput) { in.StartTime = 10 }},
		{"end before start", func(in *domain.CreateLaunchInput) { in.EndTime = 20 }},
		{"oversized amount", func(in *domain.CreateLaunchInput) { in.TotalTokens = domain.MaxAmount() }},
		{"vesting ends early", func(in *domain.CreateLaunchInput) {
			in.Vesting = &domain.VestingConfig{StartBlock: 20, CliffDuration: 10, VestingDuration: 10}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := baseInput()
			tt.mutate(&in)

			_, err := f.svc.CreateLaunch(f.ctx, creator, in)
			requireCode(t, err, apperrors.CodeInvalidInput)

			n, err := f.svc.GetLaunchCount(f.ctx)
			require.NoError(t, err)
			assert.Zero(t, n, "rejected create stores nothing")
		})
	}
}

func TestCreateLaunch_AssignsIncreasingIDs(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.CreateLaunch(f.ctx, creator, baseInput())
	require.NoError(t, err)
	b, err := f.svc.CreateLaunch(f.ctx, alice, baseInput())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a)
	assert.Equal(t, uint64(2), b)

	mine, err := f.svc.GetCreatorLaunches(f.ctx, creator)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a, mine[0].ID)

	l := f.launch(t, a)
	assert.Equal(t, domain.StatusPending, l.Status)
	assert.Equal(t, amt(1000), l.TokensRemaining)
	assert.Equal(t, []domain.EventType{domain.EventLaunchCreated}, f.eventTypes(t, a))
}

// Scenario A: soft cap missed, each contributor refunds exactly once.
func TestScenario_FailedLaunchRefunds(t *testing.T) {
	f := newFixture(t)
	id := f.activeLaunch(t, baseInput())

	f.contribute(t, id, alice, 100)
	f.contribute(t, id, bob, 100)
	f.assertInvariants(t, id)

	_, err := f.svc.Finalize(f.ctx, carol, id)
	requireCode(t, err, apperrors.CodeInvalidState)

	f.clock.Set(101)
	status, err := f.svc.Finalize(f.ctx, carol, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefundAvailable, status)

	l := f.launch(t, id)
	assert.Equal(t, domain.StatusFailed, l.Outcome)
	assert.Equal(t, amt(200), l.TotalRaised)

	_, err = f.svc.Finalize(f.ctx, carol, id)
	requireCode(t, err, apperrors.CodeInvalidState)

	for i, who := range []domain.Identity{alice, bob} {
		got, err := f.svc.ClaimRefund(f.ctx, who, id)
		require.NoError(t, err)
		assert.Equal(t, amt(100), got)
		assert.Equal(t, amt(100), f.token.Balance(domain.NativeToken, who))

		_, err = f.svc.ClaimRefund(f.ctx, who, id)
		requireCode(t, err, apperrors.CodeNothingToRefund)

		// Each refund takes its value and tokens back out of the sale.
		l := f.launch(t, id)
		left := uint64(100 * (1 - i))
		assert.Equal(t, amt(left), l.TotalRaised)
		assert.Equal(t, amt(1000-left), l.TokensRemaining)
		assert.Equal(t, amt(uint64(100*(i+1))), l.TotalRefunded)
		f.assertInvariants(t, id)
	}

	_, err = f.svc.ClaimRefund(f.ctx, carol, id)
	requireCode(t, err, apperrors.CodeNothingToRefund)

	l = f.launch(t, id)
	assert.Equal(t, domain.StatusFinalized, l.Status, "last refund finalizes")
	assert.Empty(t, l.Contributions)
	f.assertInvariants(t, id)

	assert.Equal(t, []domain.EventType{
		domain.EventLaunchCreated,
		domain.EventLaunchStarted,
		domain.EventContributed,
		domain.EventContributed,
		domain.EventSaleEnded,
		domain.EventLaunchFailed,
		domain.EventRefundsAvailable,
		domain.EventRefundClaimed,
		domain.EventRefundClaimed,
		domain.EventLaunchFinalized,
	}, f.eventTypes(t, id))
}

// Scenario B: soft cap met, creator withdraws once, contributors claim.
func TestScenario_SuccessfulLaunchWithdraw(t *testing.T) {
	f := newFixture(t)
	id := f.activeLaunch(t, baseInput())

	for i := 0; i < 6; i++ {
		f.contribute(t, id, contributor(i), 100)
	}

	_, err := f.svc.WithdrawFunds(f.ctx, creator, id)
	requireCode(t, err, apperrors.CodeInvalidState)

	f.clock.Set(101)
	status, err := f.svc.Finalize(f.ctx, carol, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDistributionPending, status)
	assert.Equal(t, domain.StatusSucceeded, f.launch(t, id).Outcome)

	_, err = f.svc.WithdrawFunds(f.ctx, alice, id)
	requireCode(t, err, apperrors.CodeUnauthorized)

	net, err := f.svc.WithdrawFunds(f.ctx, creator, id)
	require.NoError(t, err)
	assert.Equal(t, amt(588), net, "600 - 2% fee")
	assert.Equal(t, amt(588), f.token.Balance(domain.NativeToken, creator))

	_, err = f.svc.WithdrawFunds(f.ctx, creator, id)
	requireCode(t, err, apperrors.CodeAlreadyWithdrawn)

	accumulated, err := f.svc.GetAccumulatedFees(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, amt(12), accumulated)

	for i := 0; i < 6; i++ {
		got, err := f.svc.ClaimTokens(f.ctx, contributor(i), id)
		require.NoError(t, err)
		assert.Equal(t, amt(100), got)

		_, err = f.svc.ClaimTokens(f.ctx, contributor(i), id)
		requireCode(t, err, apperrors.CodeAlreadyClaimed)
	}

	l := f.launch(t, id)
	assert.Equal(t, domain.StatusFinalized, l.Status)
	assert.True(t, l.FundsWithdrawn)
	f.assertInvariants(t, id)

	_, err = f.svc.ClaimTokens(f.ctx, contributor(0), id)
	requireCode(t, err, apperrors.CodeAlreadyClaimed)
	_, err = f.svc.ClaimRefund(f.ctx, contributor(0), id)
	requireCode(t, err, apperrors.CodeInvalidState)
}

// Scenario C: wallet cap clamps the accepted amount.
func TestScenario_WalletCapClamp(t *testing.T) {
	f := newFixture(t)
	id := f.activeLaunch(t, baseInput())

	r := f.contribute(t, id, alice, 150)
	assert.Equal(t, amt(100), r.Accepted)
	assert.Equal(t, amt(100), r.TokensPurchased)
	assert.Equal(t, amt(50), r.Refunded)
	assert.False(t, r.SaleEnded)

	_, err := f.svc.Contribute(f.ctx, alice, id, amt(1))
	requireCode(t, err, apperrors.CodeLimitExceeded)

	got, err := f.svc.GetContribution(f.ctx, id, alice)
	require.NoError(t, err)
	assert.Equal(t, amt(100), got, "repeated contributions never pass the wallet cap")

	evs, err := f.log.OfType(f.ctx, domain.EventContributed)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, amt(50), evs[0].Refunded)
}

// Scenario D: vesting cliff then linear release.
func TestScenario_VestedClaims(t *testing.T) {
	f := newFixture(t)
	in := baseInput()
	in.MinRaise = amt(100)
	in.Vesting = &domain.VestingConfig{StartBlock: 20, CliffDuration: 5000, VestingDuration: 50000}
	id := f.activeLaunch(t, in)

	f.contribute(t, id, alice, 100)
	f.clock.Set(101)
	_, err := f.svc.Finalize(f.ctx, carol, id)
	require.NoError(t, err)

	f.clock.Set(20 + 4999)
	c, err := f.svc.GetClaimableTokens(f.ctx, id, alice)
	require.NoError(t, err)
	assert.True(t, c.IsZero())
	_, err = f.svc.ClaimTokens(f.ctx, alice, id)
	requireCode(t, err, apperrors.CodeNothingToClaim)

	f.clock.Set(20 + 5000 + 25000)
	c, err = f.svc.GetClaimableTokens(f.ctx, id, alice)
	require.NoError(t, err)
	assert.Equal(t, amt(50), c)

	got, err := f.svc.ClaimTokens(f.ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, amt(50), got)
	_, err = f.svc.ClaimTokens(f.ctx, alice, id)
	requireCode(t, err, apperrors.CodeNothingToClaim, "second claim at the same height releases nothing")

	f.clock.Set(20 + 5000 + 50000)
	got, err = f.svc.ClaimTokens(f.ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, amt(50), got)

	claimed, err := f.svc.GetClaimed(f.ctx, id, alice)
	require.NoError(t, err)
	assert.Equal(t, amt(100), claimed)
	assert.Equal(t, amt(100), f.token.Balance(saleTok, alice))
	f.assertInvariants(t, id)
}

func TestWithdrawFunds_FeeRounding(t *testing.T) {
	tests := []struct {
		raise   uint64
		wantNet uint64
		wantFee uint64
	}{
		{raise: 100, wantNet: 98, wantFee: 2},
		{raise: 99, wantNet: 98, wantFee: 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.raise), func(t *testing.T) {
			f := newFixture(t)
			in := baseInput()
			in.MinRaise = amt(1)
			id := f.activeLaunch(t, in)
			f.contribute(t, id, alice, tt.raise)

			f.clock.Set(101)
			_, err := f.svc.Finalize(f.ctx, carol, id)
			require.NoError(t, err)

			net, err := f.svc.WithdrawFunds(f.ctx, creator, id)
			require.NoError(t, err)
			assert.Equal(t, amt(tt.wantNet), net)

			avail, err := f.svc.GetAvailableFees(f.ctx)
			require.NoError(t, err)
			assert.Equal(t, amt(tt.wantFee), avail)
		})
	}
}

func TestContribute_FullySubscribedEndsSale(t *testing.T) {
	f := newFixture(t)
	in := baseInput()
	in.MaxRaise = amt(250)
	in.MinRaise = amt(100)
	id := f.activeLaunch(t, in)

	f.contribute(t, id, alice, 100)
	f.contribute(t, id, bob, 100)
	r := f.contribute(t, id, carol, 100)
	assert.Equal(t, amt(50), r.Accepted)
	assert.Equal(t, amt(50), r.Refunded)
	assert.True(t, r.SaleEnded)

	l := f.launch(t, id)
	assert.Equal(t, domain.StatusEnded, l.Status)
	assert.Equal(t, domain.EndReasonFullySubscribed, l.EndReason)

	_, err := f.svc.Contribute(f.ctx, contributor(9), id, amt(10))
	requireCode(t, err, apperrors.CodeInvalidState)

	status, err := f.svc.Finalize(f.ctx, carol, id)
	require.NoError(t, err, "an Ended launch finalizes before end_time")
	assert.Equal(t, domain.StatusDistributionPending, status)

	types := f.eventTypes(t, id)
	assert.Contains(t, types, domain.EventSaleFullySubscribed)
}

func TestContribute_Window(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.CreateLaunch(f.ctx, creator, baseInput())
	require.NoError(t, err)

	_, err = f.svc.Contribute(f.ctx, alice, id, amt(10))
	requireCode(t, err, apperrors.CodeInvalidState, "pending")

	require.NoError(t, f.svc.StartLaunch(f.ctx, creator, id))
	_, err = f.svc.Contribute(f.ctx, alice, id, amt(10))
	requireCode(t, err, apperrors.CodeInvalidState, "before start_time")

	f.clock.Set(100)
	f.contribute(t, id, alice, 10)

	f.clock.Set(101)
	_, err = f.svc.Contribute(f.ctx, alice, id, amt(10))
	requireCode(t, err, apperrors.CodeInvalidState, "after end_time")

	_, err = f.svc.Contribute(f.ctx, alice, 99, amt(10))
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestContribute_Concurrent(t *testing.T) {
	f := newFixture(t)
	in := baseInput()
	in.MaxPerWallet = amt(10)
	id := f.activeLaunch(t, in)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Contribute(f.ctx, contributor(i), id, amt(10))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	l := f.launch(t, id)
	assert.Equal(t, amt(400), l.TotalRaised)
	assert.Len(t, l.Contributions, 40)
	f.assertInvariants(t, id)
}

func TestStartLaunch_Rules(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.CreateLaunch(f.ctx, creator, baseInput())
	require.NoError(t, err)

	err = f.svc.StartLaunch(f.ctx, alice, id)
	requireCode(t, err, apperrors.CodeUnauthorized)

	f.clock.Set(20)
	err = f.svc.StartLaunch(f.ctx, creator, id)
	requireCode(t, err, apperrors.CodeInvalidState, "start_time reached")

	f.clock.Set(19)
	require.NoError(t, f.svc.StartLaunch(f.ctx, creator, id))
	err = f.svc.StartLaunch(f.ctx, creator, id)
	requireCode(t, err, apperrors.CodeInvalidState)

	l := f.launch(t, id)
	assert.Equal(t, domain.StatusActive, l.Status)
	assert.True(t, l.WhitelistLocked)

	active, err := f.svc.GetActiveLaunches(f.ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
}

func TestCancelLaunch_Rules(t *testing.T) {
	f := newFixture(t)

	pending, err := f.svc.CreateLaunch(f.ctx, creator, baseInput())
	require.NoError(t, err)
	requireCode(t, f.svc.CancelLaunch(f.ctx, alice, pending), apperrors.CodeUnauthorized)
	require.NoError(t, f.svc.CancelLaunch(f.ctx, creator, pending))

	l := f.launch(t, pending)
	assert.Equal(t, domain.StatusFinalized, l.Status, "nothing to refund")
	assert.Equal(t, domain.StatusCancelled, l.Outcome)

	active := f.activeLaunch(t, baseInput())
	f.contribute(t, active, alice, 50)
	requireCode(t, f.svc.CancelLaunch(f.ctx, creator, active), apperrors.CodeInvalidState)
	require.NoError(t, f.svc.CancelLaunch(f.ctx, owner, active))
	requireCode(t, f.svc.CancelLaunch(f.ctx, owner, active), apperrors.CodeInvalidState)

	assert.Equal(t, domain.StatusRefundAvailable, f.launch(t, active).Status)
	got, err := f.svc.ClaimRefund(f.ctx, alice, active)
	require.NoError(t, err)
	assert.Equal(t, amt(50), got)
	assert.Equal(t, domain.StatusFinalized, f.launch(t, active).Status)
}

func TestMarkTokensDeposited(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.RequireTokenDeposit = true })
	id, err := f.svc.CreateLaunch(f.ctx, creator, baseInput())
	require.NoError(t, err)

	requireCode(t, f.svc.StartLaunch(f.ctx, creator, id), apperrors.CodeInvalidState)
	requireCode(t, f.svc.MarkTokensDeposited(f.ctx, alice, id), apperrors.CodeUnauthorized)

	// No allowance yet: the pull fails and the launch stays undeposited.
	requireCode(t, f.svc.MarkTokensDeposited(f.ctx, creator, id), apperrors.CodeCrossContractCallFailed)
	l := f.launch(t, id)
	assert.False(t, l.TokensDeposited)
	assert.False(t, l.Guarded)

	f.clock.Set(11)
	f.token.Mint(saleTok, creator, amt(1000))
	f.token.Allow(saleTok, creator, self, amt(1000))
	require.NoError(t, f.svc.MarkTokensDeposited(f.ctx, creator, id))
	assert.True(t, f.launch(t, id).TokensDeposited)
	assert.True(t, f.token.Balance(saleTok, creator).IsZero())

	requireCode(t, f.svc.MarkTokensDeposited(f.ctx, creator, id), apperrors.CodeInvalidState)
	require.NoError(t, f.svc.StartLaunch(f.ctx, creator, id))

	sts, err := f.svc.GetSettlements(f.ctx, id)
	require.NoError(t, err)
	require.Len(t, sts, 2)
	assert.Equal(t, domain.SettlementFailed, sts[0].Status)
	assert.Equal(t, domain.SettlementCompleted, sts[1].Status)
	assert.NotEqual(t, sts[0].ID, sts[1].ID)
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	in := baseInput()
	in.WhitelistEnabled = true
	id, err := f.svc.CreateLaunch(f.ctx, creator, in)
	require.NoError(t, err)

	_, err = f.svc.AddToWhitelist(f.ctx, creator, id, []domain.Identity{bob, alice})
	require.NoError(t, err)
	require.NoError(t, f.svc.StartLaunch(f.ctx, creator, id))
	f.clock.Set(20)
	f.contribute(t, id, bob, 30)
	f.contribute(t, id, alice, 20)

	ok, err := f.svc.IsWhitelisted(f.ctx, id, alice)
	require.NoError(t, err)
	assert.True(t, ok)

	members, err := f.svc.GetWhitelist(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []domain.Identity{alice, bob}, members)

	cs, err := f.svc.GetContributors(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []domain.Identity{alice, bob}, cs, "ascending identity order")

	bought, err := f.svc.GetTokensPurchased(f.ctx, id, bob)
	require.NoError(t, err)
	assert.Equal(t, amt(30), bought)

	c, err := f.svc.GetClaimableTokens(f.ctx, id, bob)
	require.NoError(t, err)
	assert.True(t, c.IsZero(), "nothing is claimable before success")

	o, err := f.svc.GetOwner(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, owner, o)

	_, err = f.svc.GetLaunch(f.ctx, 42)
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = f.svc.GetEvents(f.ctx, 42)
	requireCode(t, err, apperrors.CodeNotFound)

	page, err := f.svc.GetEventsSince(f.ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	_, err = f.svc.GetEventsSince(f.ctx, 0, 0)
	requireCode(t, err, apperrors.CodeInvalidInput)
}
