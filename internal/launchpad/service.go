// Package launchpad implements the launch state machine and the
// contribution, claim, refund and fee operations over it.
package launchpad

import (
	"context"
	"errors"
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/clock"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/events"
	"token-launchpad/internal/fees"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/registry"
	"token-launchpad/internal/storage"
	"token-launchpad/internal/token"
)

// DefaultAdminRefundDelay is the number of blocks after end_time before
// the owner may force refunds.
const DefaultAdminRefundDelay uint64 = 30

// Options are the construction parameters of a Service.
type Options struct {
	Owner        domain.Identity
	Self         domain.Identity // account holding deposits and escrowed value
	FeeRecipient domain.Identity // defaults to Owner

	// FeeBasisPoints applies when no platform record exists yet.
	// Nil selects DefaultFeeBasisPoints.
	FeeBasisPoints *uint16

	RequireTokenDeposit bool
	AdminRefundDelay    uint64 // 0 selects DefaultAdminRefundDelay
}

// Deps are the collaborators of a Service.
type Deps struct {
	Launches    storage.LaunchStore
	Platform    storage.PlatformStore
	Settlements storage.SettlementStore
	Events      *events.Log
	Token       token.Client
	Clock       clock.Source
	Logger      *zap.Logger
}

// Service owns every launch and the platform fee account.
// Each launch is mutated under its own lock; platform state under one lock.
type Service struct {
	launches    *registry.Registry
	platform    storage.PlatformStore
	settlements storage.SettlementStore
	events      *events.Log
	token       token.Client
	clock       clock.Source
	logger      *zap.Logger

	requireDeposit   bool
	adminRefundDelay uint64

	// platformMu orders platform writes. CreateLaunch holds it shared.
	// Lock order is platformMu before any launch lock.
	platformMu deadlock.RWMutex

	// inflight holds the settlements staged by a running operation.
	flightMu deadlock.Mutex
	inflight map[string]struct{}
}

// New builds a Service, creating the platform record on first start.
// An existing platform record wins over opts.
func New(ctx context.Context, deps Deps, opts Options) (*Service, error) {
	if deps.Launches == nil || deps.Platform == nil || deps.Settlements == nil || deps.Events == nil {
		return nil, errors.New("launchpad: stores and event log are required")
	}
	if deps.Token == nil || deps.Clock == nil {
		return nil, errors.New("launchpad: token client and clock are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		launches:         registry.New(deps.Launches, deps.Events),
		platform:         deps.Platform,
		settlements:      deps.Settlements,
		events:           deps.Events,
		token:            deps.Token,
		clock:            deps.Clock,
		logger:           logger.Named("launchpad"),
		requireDeposit:   opts.RequireTokenDeposit,
		adminRefundDelay: opts.AdminRefundDelay,
		inflight:         make(map[string]struct{}),
	}
	if s.adminRefundDelay == 0 {
		s.adminRefundDelay = DefaultAdminRefundDelay
	}

	if err := s.initPlatform(ctx, opts); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) initPlatform(ctx context.Context, opts Options) error {
	p, err := s.platform.Get(ctx)
	if err == nil {
		s.logger.Info("platform loaded",
			zap.Stringer("owner", p.Owner),
			zap.Uint16("fee_bps", p.Fees.BasisPoints),
			zap.Bool("paused", p.Paused),
		)
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("load platform: %w", err)
	}

	if opts.Owner.IsZero() || opts.Self.IsZero() {
		return apperrors.New(apperrors.CodeInvalidInput, "owner and self identities are required")
	}
	bps := domain.DefaultFeeBasisPoints
	if opts.FeeBasisPoints != nil {
		bps = *opts.FeeBasisPoints
	}
	if err := fees.ValidateBasisPoints(bps); err != nil {
		return err
	}
	recipient := opts.FeeRecipient
	if recipient.IsZero() {
		recipient = opts.Owner
	}

	p = &domain.Platform{
		Owner:        opts.Owner,
		Self:         opts.Self,
		FeeRecipient: recipient,
		Fees:         domain.FeeAccount{BasisPoints: bps},
	}
	if err := s.platform.Put(ctx, p); err != nil {
		return fmt.Errorf("create platform: %w", err)
	}
	s.logger.Info("platform created",
		zap.Stringer("owner", p.Owner),
		zap.Stringer("self", p.Self),
		zap.Uint16("fee_bps", bps),
	)
	return nil
}

// loadPlatform reads the platform record. Callers hold platformMu when
// they intend to write it back.
func (s *Service) loadPlatform(ctx context.Context) (*domain.Platform, error) {
	p, err := s.platform.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load platform: %w", err)
	}
	return p, nil
}

// withPlatform runs fn with exclusive access to the platform record and
// saves it, then appends the returned events, when fn succeeds. A nil
// platform means nothing was saved; a non-nil one with an error means
// only the events were lost.
func (s *Service) withPlatform(ctx context.Context, fn func(p *domain.Platform) ([]*domain.Event, error)) (*domain.Platform, error) {
	s.platformMu.Lock()
	defer s.platformMu.Unlock()

	p, err := s.loadPlatform(ctx)
	if err != nil {
		return nil, err
	}
	evs, err := fn(p)
	if err != nil {
		return nil, err
	}
	if err := s.platform.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("save platform: %w", err)
	}
	if err := s.events.Append(ctx, evs...); err != nil {
		return p, err
	}
	return p, nil
}

// requireOwner fails with Unauthorized unless caller owns the platform.
func (s *Service) requireOwner(ctx context.Context, caller domain.Identity) (*domain.Platform, error) {
	p, err := s.loadPlatform(ctx)
	if err != nil {
		return nil, err
	}
	if caller != p.Owner {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "caller is not the platform owner")
	}
	return p, nil
}

// observe records a rejected operation. Use as: defer s.observe(op, caller, &err).
func (s *Service) observe(op string, caller domain.Identity, err *error) {
	if *err == nil {
		return
	}
	code := apperrors.GetCode(*err)
	observability.RecordRejection(op, string(code))
	if code == apperrors.CodeReentrancyGuard {
		observability.RecordReentrancy(op)
	}

	if code == apperrors.CodeUnknown {
		s.logger.Error("operation failed",
			zap.String("op", op),
			zap.Stringer("caller", caller),
			zap.Error(*err),
		)
		return
	}
	s.logger.Debug("operation rejected",
		zap.String("op", op),
		zap.Stringer("caller", caller),
		zap.String("code", string(code)),
		zap.Error(*err),
	)
}

// event builds an event stamped with the current block.
func (s *Service) event(t domain.EventType, launchID uint64, actor domain.Identity) *domain.Event {
	return &domain.Event{
		Type:     t,
		LaunchID: launchID,
		Block:    s.clock.Now(),
		Actor:    actor,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

func requireCreator(l *domain.Launch, caller domain.Identity) error {
	if caller != l.Creator {
		return apperrors.Newf(apperrors.CodeUnauthorized, "caller is not the creator of launch %d", l.ID)
	}
	return nil
}

func requireUnguarded(l *domain.Launch) error {
	if l.Guarded {
		return apperrors.Newf(apperrors.CodeReentrancyGuard, "launch %d has an external call in flight", l.ID)
	}
	return nil
}

func invalidState(l *domain.Launch, op string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidState,
		fmt.Sprintf("%s not allowed in status %s", op, l.Status),
		map[string]string{"launch_id": fmt.Sprint(l.ID), "status": string(l.Status)},
	)
}
