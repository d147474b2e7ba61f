// Package api exposes the launchpad commands and queries over HTTP.
//
// Commands are POST requests whose caller identity is taken from the
// X-Caller header. Queries are GET requests and need no caller.
// Launch events stream over a websocket at /v1/events/stream.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"token-launchpad/internal/events"
	"token-launchpad/internal/launchpad"
	"token-launchpad/internal/observability"
)

// Options configures a Server.
type Options struct {
	Service *launchpad.Service
	Events  *events.Log
	Logger  *zap.Logger

	// StrictIdentities rejects callers that are not valid ed25519 points.
	StrictIdentities bool

	// StreamBuffer is the per-subscriber event buffer. Defaults to 64.
	StreamBuffer int
}

// Server is the HTTP host of a launchpad Service.
type Server struct {
	svc              *launchpad.Service
	events           *events.Log
	logger           *zap.Logger
	strictIdentities bool
	streamBuffer     int
	upgrader         websocket.Upgrader
	pingInterval     time.Duration
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	buf := opts.StreamBuffer
	if buf <= 0 {
		buf = 64
	}
	return &Server{
		svc:              opts.Service,
		events:           opts.Events,
		logger:           logger.Named("api"),
		strictIdentities: opts.StrictIdentities,
		streamBuffer:     buf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: 30 * time.Second,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, s.instrument)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireCaller)

			r.Post("/launches", s.handleCreateLaunch)
			r.Post("/launches/{launchID}/start", s.handleStartLaunch)
			r.Post("/launches/{launchID}/deposit", s.handleMarkDeposited)
			r.Post("/launches/{launchID}/contribute", s.handleContribute)
			r.Post("/launches/{launchID}/finalize", s.handleFinalize)
			r.Post("/launches/{launchID}/claim", s.handleClaimTokens)
			r.Post("/launches/{launchID}/refund", s.handleClaimRefund)
			r.Post("/launches/{launchID}/withdraw", s.handleWithdrawFunds)
			r.Post("/launches/{launchID}/cancel", s.handleCancelLaunch)
			r.Post("/launches/{launchID}/whitelist/add", s.handleAddToWhitelist)
			r.Post("/launches/{launchID}/whitelist/remove", s.handleRemoveFromWhitelist)
			r.Post("/launches/{launchID}/admin-refund", s.handleAdminForceRefund)
			r.Post("/launches/{launchID}/recover", s.handleRecoverLaunch)

			r.Post("/admin/pause", s.handlePause)
			r.Post("/admin/resume", s.handleResume)
			r.Post("/admin/fee-recipient", s.handleSetFeeRecipient)
			r.Post("/admin/fee-rate", s.handleSetFeeRate)
			r.Post("/admin/withdraw-fees", s.handleWithdrawFees)
			r.Post("/admin/rescue", s.handleRescueTokens)
			r.Post("/admin/recover", s.handleRecoverPlatform)

			r.Post("/settlements/{settlementID}/retry", s.handleRetrySettlement)
		})

		r.Get("/launches", s.handleListLaunches)
		r.Get("/launches/count", s.handleLaunchCount)
		r.Get("/launches/{launchID}", s.handleGetLaunch)
		r.Get("/launches/{launchID}/contributors", s.handleContributors)
		r.Get("/launches/{launchID}/contributions/{account}", s.handleContribution)
		r.Get("/launches/{launchID}/whitelist", s.handleWhitelist)
		r.Get("/launches/{launchID}/whitelist/{account}", s.handleIsWhitelisted)
		r.Get("/launches/{launchID}/events", s.handleLaunchEvents)
		r.Get("/launches/{launchID}/settlements", s.handleLaunchSettlements)

		r.Get("/platform", s.handlePlatform)
		r.Get("/platform/owner", s.handleOwner)
		r.Get("/platform/paused", s.handlePaused)
		r.Get("/platform/fees", s.handleFees)
		r.Get("/platform/events", s.handlePlatformEvents)
		r.Get("/platform/settlements", s.handlePlatformSettlements)

		r.Get("/events", s.handleEventsSince)
		r.Get("/events/stream", s.handleStream)

		r.Get("/settlements/failed", s.handleFailedSettlements)
		r.Get("/settlements/{settlementID}", s.handleGetSettlement)
	})

	return r
}
