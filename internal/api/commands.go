package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
)

// Request bodies.
type (
	contributeRequest struct {
		Amount domain.Amount `json:"amount"`
	}
	whitelistRequest struct {
		Identities []domain.Identity `json:"identities"`
	}
	adminRefundRequest struct {
		Contributor domain.Identity `json:"contributor"` // zero refunds everyone
	}
	feeRecipientRequest struct {
		Recipient domain.Identity `json:"recipient"`
	}
	feeRateRequest struct {
		BasisPoints uint16 `json:"basis_points"`
	}
	rescueRequest struct {
		Token  domain.Identity `json:"token"`
		Amount domain.Amount   `json:"amount"`
		To     domain.Identity `json:"to"`
	}
)

// Reply bodies.
type (
	createLaunchResponse struct {
		LaunchID uint64 `json:"launch_id"`
	}
	amountResponse struct {
		Amount domain.Amount `json:"amount"`
	}
	statusResponse struct {
		Status domain.LaunchStatus `json:"status"`
	}
	countResponse struct {
		Count int `json:"count"`
	}
)

func launchIDParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "launchID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Newf(apperrors.CodeInvalidInput, "invalid launch id %q", raw)
	}
	return id, nil
}

func identityParam(r *http.Request, name string) (domain.Identity, error) {
	raw := chi.URLParam(r, name)
	id, err := domain.ParseIdentity(raw)
	if err != nil {
		return domain.Identity{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid "+name, err)
	}
	return id, nil
}

// launchCommand runs fn for the launch in the path on behalf of the caller.
func (s *Server) launchCommand(w http.ResponseWriter, r *http.Request, fn func(caller domain.Identity, id uint64) (any, error)) {
	id, err := launchIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	out, err := fn(caller, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateLaunch(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateLaunchInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	id, err := s.svc.CreateLaunch(r.Context(), caller, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createLaunchResponse{LaunchID: id})
}

func (s *Server) handleStartLaunch(w http.ResponseWriter, r *http.Request) {
	s.launchCommand(w, r, func(caller domain.Identity, id uint64) (any, error) {
		return nil, s.svc.StartLaunch(r.Context(), caller, id)
	})
}

func (s *Server) handleMarkDeposited(w http.ResponseWriter, r *http.Request) {
	s.launchCommand(w, r, func(caller domain.Identity, id uint64) (any, error) {
		return nil, s.svc.MarkTokensDeposited(r.Context(), caller, id)
	})
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.launchCommand(w, r, func(caller domain.Identity, id uint64) (any, error) {
		return s.svc.Contribute(r.Context(), caller, id, req.Amount)
	})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	s.launchCommand(w, r, func(caller domain.Identity, id uint64) (any, error) {
		st, err := s.svc.Finalize(r.Context(), caller, id)
		if err != nil {
			return nil, err
		}
		return statusResponse{Status: st}, nil
	})
}

func (s *Server) handleClaimTokens(w http.ResponseWriter, r *http.Request) {
	s.launchCommand(w, r, func(caller domain.Identity, id uint64) (any, error) {
		return amountReply(s.svc.ClaimTokens(r.Context(), caller, id))
	})
}

func (s *Server) handleClaimRefund(w http.ResponseWriter, r *http.Request) {
	s.launchCommand(w, r, func(caller domain.Identity, id uint64) (any, error) {
		return amountReply(s.svc.ClaimRefund(r.Context(), caller, id))
	})
}

func (s *Server) handleWithdrawFunds(w http.ResponseWriter, r *http.Request) {
	s.launchCommand(w, r, func(caller domain.Identity, id uint64) (any, error) {
		return amountReply(s.svc.WithdrawFunds(r.Context(), caller, id))
	})
}

func (s *Server) handleCancelLaunch(w http.ResponseWriter, r *http.Request) {
	s.launchCommand(w, r, func(caller domain.Identity, id uint64) (any, error) {
		return nil, s.svc.CancelLaunch(r.Context(), caller, id)
	})
}

func (s *Server) handleAddToWhitelist(w http.ResponseWriter, r *http.Request) {
	s.whitelistCommand(w, r, true)
}

func (s *Server) handleRemoveFromWhitelist(w http.ResponseWriter, r *http.Request) {
	s.whitelistCommand(w, r, false)
}

func (s *Server) whitelistCommand(w http.ResponseWriter, r *http.Request, add bool) {
	var req whitelistRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.launchCommand(w, r, func(caller domain.Identity, id uint64) (any, error) {
		var (
			n   int
			err error
		)
		if add {
			n, err = s.svc.AddToWhitelist(r.Context(), caller, id, req.Identities)
		} else {
			n, err = s.svc.RemoveFromWhitelist(r.Context(), caller, id, req.Identities)
		}
		if err != nil {
			return nil, err
		}
		return countResponse{Count: n}, nil
	})
}

func (s *Server) handleAdminForceRefund(w http.ResponseWriter, r *http.Request) {
	var req adminRefundRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.launchCommand(w, r, func(caller domain.Identity, id uint64) (any, error) {
		return amountReply(s.svc.AdminForceRefund(r.Context(), caller, id, req.Contributor))
	})
}

// platformCommand runs a platform-level command on behalf of the caller.
func (s *Server) platformCommand(w http.ResponseWriter, r *http.Request, fn func(caller domain.Identity) (any, error)) {
	caller, _ := CallerFromContext(r.Context())
	out, err := fn(caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.platformCommand(w, r, func(caller domain.Identity) (any, error) {
		return nil, s.svc.Pause(r.Context(), caller)
	})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.platformCommand(w, r, func(caller domain.Identity) (any, error) {
		return nil, s.svc.Resume(r.Context(), caller)
	})
}

func (s *Server) handleSetFeeRecipient(w http.ResponseWriter, r *http.Request) {
	var req feeRecipientRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.platformCommand(w, r, func(caller domain.Identity) (any, error) {
		return nil, s.svc.SetFeeRecipient(r.Context(), caller, req.Recipient)
	})
}

func (s *Server) handleSetFeeRate(w http.ResponseWriter, r *http.Request) {
	var req feeRateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.platformCommand(w, r, func(caller domain.Identity) (any, error) {
		return nil, s.svc.SetFeeBasisPoints(r.Context(), caller, req.BasisPoints)
	})
}

func (s *Server) handleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	s.platformCommand(w, r, func(caller domain.Identity) (any, error) {
		return amountReply(s.svc.WithdrawFees(r.Context(), caller))
	})
}

func (s *Server) handleRescueTokens(w http.ResponseWriter, r *http.Request) {
	var req rescueRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.platformCommand(w, r, func(caller domain.Identity) (any, error) {
		return nil, s.svc.RescueTokens(r.Context(), caller, req.Token, req.Amount, req.To)
	})
}

func (s *Server) handleRetrySettlement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "settlementID")
	s.platformCommand(w, r, func(caller domain.Identity) (any, error) {
		st, err := s.svc.RetrySettlement(r.Context(), caller, id)
		if err != nil {
			return nil, err
		}
		return st, nil
	})
}

func (s *Server) handleRecoverLaunch(w http.ResponseWriter, r *http.Request) {
	s.launchCommand(w, r, func(caller domain.Identity, id uint64) (any, error) {
		return s.recoverReply(r, caller, id)
	})
}

func (s *Server) handleRecoverPlatform(w http.ResponseWriter, r *http.Request) {
	s.platformCommand(w, r, func(caller domain.Identity) (any, error) {
		return s.recoverReply(r, caller, 0)
	})
}

func (s *Server) recoverReply(r *http.Request, caller domain.Identity, id uint64) (any, error) {
	rec, err := s.svc.RecoverSettlements(r.Context(), caller, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func amountReply(a domain.Amount, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return amountResponse{Amount: a}, nil
}
