package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
)

// defaultEventPage is the page size of /v1/events without a limit.
const defaultEventPage = 100

// maxEventPage bounds the limit query parameter.
const maxEventPage = 1000

// ContributionView is the per-contributor reply of a launch.
type ContributionView struct {
	LaunchID        uint64          `json:"launch_id"`
	Contributor     domain.Identity `json:"contributor"`
	Contribution    domain.Amount   `json:"contribution"`
	TokensPurchased domain.Amount   `json:"tokens_purchased"`
	Claimed         domain.Amount   `json:"claimed"`
	Claimable       domain.Amount   `json:"claimable"`
}

// FeesView reports the platform fee account.
type FeesView struct {
	BasisPoints uint16        `json:"basis_points"`
	Accumulated domain.Amount `json:"accumulated"`
	Available   domain.Amount `json:"available"`
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleListLaunches serves every launch, or a subset selected by
// ?status=active or ?creator=<identity>.
func (s *Server) handleListLaunches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("creator") != "":
		creator, err := domain.ParseIdentity(q.Get("creator"))
		if err != nil {
			s.writeError(w, r, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid creator", err))
			return
		}
		ls, err := s.svc.GetCreatorLaunches(r.Context(), creator)
		s.reply(w, r, nonNilLaunches(ls), err)
	case q.Get("status") == "active":
		ls, err := s.svc.GetActiveLaunches(r.Context())
		s.reply(w, r, nonNilLaunches(ls), err)
	case q.Get("status") != "":
		s.writeError(w, r, apperrors.Newf(apperrors.CodeInvalidInput, "unsupported status filter %q", q.Get("status")))
	default:
		ls, err := s.svc.GetLaunches(r.Context())
		s.reply(w, r, nonNilLaunches(ls), err)
	}
}

func (s *Server) handleLaunchCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.GetLaunchCount(r.Context())
	s.reply(w, r, map[string]uint64{"count": n}, err)
}

func (s *Server) handleGetLaunch(w http.ResponseWriter, r *http.Request) {
	id, err := launchIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.svc.GetLaunch(r.Context(), id)
	s.reply(w, r, l, err)
}

func (s *Server) handleContributors(w http.ResponseWriter, r *http.Request) {
	id, err := launchIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ids, err := s.svc.GetContributors(r.Context(), id)
	s.reply(w, r, nonNilIdentities(ids), err)
}

func (s *Server) handleContribution(w http.ResponseWriter, r *http.Request) {
	id, err := launchIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	who, err := identityParam(r, "account")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	view := ContributionView{LaunchID: id, Contributor: who}
	if view.Contribution, err = s.svc.GetContribution(ctx, id, who); err != nil {
		s.writeError(w, r, err)
		return
	}
	if view.TokensPurchased, err = s.svc.GetTokensPurchased(ctx, id, who); err != nil {
		s.writeError(w, r, err)
		return
	}
	if view.Claimed, err = s.svc.GetClaimed(ctx, id, who); err != nil {
		s.writeError(w, r, err)
		return
	}
	view.Claimable, err = s.svc.GetClaimableTokens(ctx, id, who)
	s.reply(w, r, view, err)
}

func (s *Server) handleWhitelist(w http.ResponseWriter, r *http.Request) {
	id, err := launchIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ids, err := s.svc.GetWhitelist(r.Context(), id)
	s.reply(w, r, nonNilIdentities(ids), err)
}

func (s *Server) handleIsWhitelisted(w http.ResponseWriter, r *http.Request) {
	id, err := launchIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	who, err := identityParam(r, "account")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok, err := s.svc.IsWhitelisted(r.Context(), id, who)
	s.reply(w, r, map[string]bool{"whitelisted": ok}, err)
}

func (s *Server) handleLaunchEvents(w http.ResponseWriter, r *http.Request) {
	id, err := launchIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	evs, err := s.svc.GetEvents(r.Context(), id)
	s.reply(w, r, nonNilEvents(evs), err)
}

func (s *Server) handleLaunchSettlements(w http.ResponseWriter, r *http.Request) {
	id, err := launchIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.svc.GetLaunch(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	sts, err := s.svc.GetSettlements(r.Context(), id)
	s.reply(w, r, nonNilSettlements(sts), err)
}

func (s *Server) handlePlatform(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetPlatform(r.Context())
	s.reply(w, r, p, err)
}

func (s *Server) handleOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := s.svc.GetOwner(r.Context())
	s.reply(w, r, map[string]domain.Identity{"owner": owner}, err)
}

func (s *Server) handlePaused(w http.ResponseWriter, r *http.Request) {
	paused, err := s.svc.IsPaused(r.Context())
	s.reply(w, r, map[string]bool{"paused": paused}, err)
}

func (s *Server) handleFees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := s.svc.GetPlatform(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view := FeesView{BasisPoints: p.Fees.BasisPoints}
	if view.Accumulated, err = s.svc.GetAccumulatedFees(ctx); err != nil {
		s.writeError(w, r, err)
		return
	}
	view.Available, err = s.svc.GetAvailableFees(ctx)
	s.reply(w, r, view, err)
}

func (s *Server) handlePlatformEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := s.svc.GetEvents(r.Context(), 0)
	s.reply(w, r, nonNilEvents(evs), err)
}

func (s *Server) handlePlatformSettlements(w http.ResponseWriter, r *http.Request) {
	sts, err := s.svc.GetSettlements(r.Context(), 0)
	s.reply(w, r, nonNilSettlements(sts), err)
}

// handleEventsSince pages the whole log with ?after=<seq>&limit=<n>.
func (s *Server) handleEventsSince(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var after uint64
	if raw := q.Get("after"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, apperrors.Newf(apperrors.CodeInvalidInput, "invalid after %q", raw))
			return
		}
		after = v
	}

	limit := defaultEventPage
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, apperrors.Newf(apperrors.CodeInvalidInput, "invalid limit %q", raw))
			return
		}
		limit = min(v, maxEventPage)
	}

	evs, err := s.svc.GetEventsSince(r.Context(), after, limit)
	s.reply(w, r, nonNilEvents(evs), err)
}

func (s *Server) handleFailedSettlements(w http.ResponseWriter, r *http.Request) {
	sts, err := s.svc.GetFailedSettlements(r.Context())
	s.reply(w, r, nonNilSettlements(sts), err)
}

func (s *Server) handleGetSettlement(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.GetSettlement(r.Context(), chi.URLParam(r, "settlementID"))
	s.reply(w, r, st, err)
}

func nonNilLaunches(ls []*domain.Launch) []*domain.Launch {
	if ls == nil {
		return []*domain.Launch{}
	}
	return ls
}

func nonNilIdentities(ids []domain.Identity) []domain.Identity {
	if ids == nil {
		return []domain.Identity{}
	}
	return ids
}

func nonNilEvents(evs []*domain.Event) []*domain.Event {
	if evs == nil {
		return []*domain.Event{}
	}
	return evs
}

func nonNilSettlements(sts []*domain.Settlement) []*domain.Settlement {
	if sts == nil {
		return []*domain.Settlement{}
	}
	return sts
}
