package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"filippo.io/edwards25519"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/clock"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/events"
	"token-launchpad/internal/launchpad"
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
)

type testEnv struct {
	srv   *httptest.Server
	clock *clock.Manual
	token *stub.Client
}

func newTestEnv(t *testing.T, strict bool) *testEnv {
	t.Helper()

	clk := clock.NewManual(10)
	tok := stub.NewClient(self)
	tok.Mint(domain.NativeToken, self, domain.NewAmount(1_000_000))
	tok.Mint(saleTok, self, domain.NewAmount(1_000_000))

	log := events.NewLog(memory.NewEventStore(), nil, events.WithBroadcaster(events.NewBroadcaster()))
	svc, err := launchpad.New(context.Background(), launchpad.Deps{
		Launches:    memory.NewLaunchStore(),
		Platform:    memory.NewPlatformStore(),
		Settlements: memory.NewSettlementStore(),
		Events:      log,
		Token:       tok,
		Clock:       clk,
	}, launchpad.Options{Owner: owner, Self: self})
	require.NoError(t, err)

	api := NewServer(Options{Service: svc, Events: log, StrictIdentities: strict})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, clock: clk, token: tok}
}

func (e *testEnv) do(t *testing.T, method, path string, caller *domain.Identity, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set(HeaderCaller, caller.String())
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) post(t *testing.T, path string, caller domain.Identity, body any) *http.Response {
	t.Helper()
	return e.do(t, http.MethodPost, path, &caller, body)
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	return e.do(t, http.MethodGet, path, nil, nil)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func requireError(t *testing.T, resp *http.Response, status int, code apperrors.Code) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	body := decode[ErrorBody](t, resp)
	assert.Equal(t, code, body.Error.Code)
	assert.NotEmpty(t, body.Error.RequestID)
}

func launchInput() domain.CreateLaunchInput {
	return domain.CreateLaunchInput{
		Title:         "Launch",
		Description:   "a sale",
		Token:         saleTok,
		TotalTokens:   domain.NewAmount(1000),
		PricePerToken: domain.NewAmount(1),
		MinRaise:      domain.NewAmount(100),
		MaxRaise:      domain.NewAmount(1000),
		MaxPerWallet:  domain.NewAmount(100),
		StartTime:     20,
		EndTime:       100,
	}
}

func (e *testEnv) createActive(t *testing.T) uint64 {
	t.Helper()

	resp := e.post(t, "/v1/launches", creator, launchInput())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[createLaunchResponse](t, resp)

	resp = e.post(t, "/v1/launches/1/start", creator, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	e.clock.Set(20)
	return created.LaunchID
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))

	resp = env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t, false)

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(HeaderRequestID, "req-42")
	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-42", resp.Header.Get(HeaderRequestID))
}

func TestSuccessfulLaunchFlow(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.createActive(t)
	require.Equal(t, uint64(1), id)

	resp := env.post(t, "/v1/launches/1/contribute", alice, contributeRequest{Amount: domain.NewAmount(150)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	receipt := decode[domain.ContributionReceipt](t, resp)
	assert.Equal(t, domain.NewAmount(100), receipt.Accepted, "clamped to the wallet cap")
	assert.Equal(t, domain.NewAmount(50), receipt.Refunded)

	resp = env.post(t, "/v1/launches/1/contribute", bob, contributeRequest{Amount: domain.NewAmount(100)})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/v1/launches?status=active")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]*domain.Launch](t, resp), 1)

	env.clock.Set(101)
	resp = env.post(t, "/v1/launches/1/finalize", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StatusDistributionPending, decode[statusResponse](t, resp).Status)

	resp = env.get(t, "/v1/launches/1/contributions/"+alice.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[ContributionView](t, resp)
	assert.Equal(t, domain.NewAmount(100), view.Contribution)
	assert.Equal(t, domain.NewAmount(100), view.TokensPurchased)
	assert.Equal(t, domain.NewAmount(100), view.Claimable)

	resp = env.post(t, "/v1/launches/1/claim", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.NewAmount(100), decode[amountResponse](t, resp).Amount)
	assert.Equal(t, domain.NewAmount(100), env.token.Balance(saleTok, alice))

	resp = env.post(t, "/v1/launches/1/claim", alice, nil)
	requireError(t, resp, http.StatusConflict, apperrors.CodeAlreadyClaimed)

	resp = env.post(t, "/v1/launches/1/withdraw", creator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.NewAmount(196), decode[amountResponse](t, resp).Amount)

	resp = env.get(t, "/v1/platform/fees")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fees := decode[FeesView](t, resp)
	assert.Equal(t, domain.DefaultFeeBasisPoints, fees.BasisPoints)
	assert.Equal(t, domain.NewAmount(4), fees.Available)

	resp = env.post(t, "/v1/admin/withdraw-fees", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.NewAmount(4), decode[amountResponse](t, resp).Amount)

	resp = env.get(t, "/v1/launches/1/events")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	evs := decode[[]*domain.Event](t, resp)
	require.NotEmpty(t, evs)
	assert.Equal(t, domain.EventLaunchCreated, evs[0].Type)

	resp = env.get(t, "/v1/launches/1/settlements")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]*domain.Settlement](t, resp), 2, "one claim and one withdrawal")

	resp = env.get(t, "/v1/platform/settlements")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]*domain.Settlement](t, resp), 1)
}

func TestRefundAndRetryFlow(t *testing.T) {
	env := newTestEnv(t, false)
	env.createActive(t)

	resp := env.post(t, "/v1/launches/1/contribute", alice, contributeRequest{Amount: domain.NewAmount(50)})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env.clock.Set(101)
	resp = env.post(t, "/v1/launches/1/finalize", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StatusRefundAvailable, decode[statusResponse](t, resp).Status)

	env.token.FailNext(assert.AnError)
	resp = env.post(t, "/v1/launches/1/refund", alice, nil)
	requireError(t, resp, http.StatusBadGateway, apperrors.CodeCrossContractCallFailed)

	resp = env.get(t, "/v1/settlements/failed")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	failed := decode[[]*domain.Settlement](t, resp)
	require.Len(t, failed, 1)
	assert.Equal(t, domain.SettlementRefund, failed[0].Kind)

	resp = env.post(t, "/v1/settlements/"+failed[0].ID+"/retry", alice, nil)
	requireError(t, resp, http.StatusForbidden, apperrors.CodeUnauthorized)

	resp = env.post(t, "/v1/settlements/"+failed[0].ID+"/retry", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.SettlementCompleted, decode[domain.Settlement](t, resp).Status)
	assert.Equal(t, domain.NewAmount(50), env.token.Balance(domain.NativeToken, alice))

	resp = env.get(t, "/v1/settlements/" + failed[0].ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decode[domain.Settlement](t, resp).Attempts)
}

func TestWhitelistEndpoints(t *testing.T) {
	env := newTestEnv(t, false)

	in := launchInput()
	in.WhitelistEnabled = true
	resp := env.post(t, "/v1/launches", creator, in)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.post(t, "/v1/launches/1/whitelist/add", creator, whitelistRequest{Identities: []domain.Identity{alice, bob}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decode[countResponse](t, resp).Count)

	resp = env.post(t, "/v1/launches/1/whitelist/remove", creator, whitelistRequest{Identities: []domain.Identity{bob}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[countResponse](t, resp).Count)

	resp = env.get(t, "/v1/launches/1/whitelist/"+alice.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[map[string]bool](t, resp)["whitelisted"])

	resp = env.get(t, "/v1/launches/1/whitelist")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []domain.Identity{alice}, decode[[]domain.Identity](t, resp))

	require.Equal(t, http.StatusNoContent, env.post(t, "/v1/launches/1/start", creator, nil).StatusCode)
	env.clock.Set(20)

	resp = env.post(t, "/v1/launches/1/contribute", bob, contributeRequest{Amount: domain.NewAmount(10)})
	requireError(t, resp, http.StatusUnprocessableEntity, apperrors.CodeWhitelistRequired)

	resp = env.post(t, "/v1/launches/1/whitelist/add", creator, whitelistRequest{Identities: []domain.Identity{bob}})
	requireError(t, resp, http.StatusConflict, apperrors.CodeWhitelistLocked)
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.post(t, "/v1/admin/pause", alice, nil)
	requireError(t, resp, http.StatusForbidden, apperrors.CodeUnauthorized)

	require.Equal(t, http.StatusNoContent, env.post(t, "/v1/admin/pause", owner, nil).StatusCode)
	resp = env.get(t, "/v1/platform/paused")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[map[string]bool](t, resp)["paused"])

	resp = env.post(t, "/v1/launches", creator, launchInput())
	requireError(t, resp, http.StatusConflict, apperrors.CodeInvalidState)

	require.Equal(t, http.StatusNoContent, env.post(t, "/v1/admin/resume", owner, nil).StatusCode)

	resp = env.post(t, "/v1/admin/fee-rate", owner, feeRateRequest{BasisPoints: 10001})
	requireError(t, resp, http.StatusBadRequest, apperrors.CodeInvalidInput)
	require.Equal(t, http.StatusNoContent, env.post(t, "/v1/admin/fee-rate", owner, feeRateRequest{BasisPoints: 500}).StatusCode)

	require.Equal(t, http.StatusNoContent, env.post(t, "/v1/admin/fee-recipient", owner, feeRecipientRequest{Recipient: bob}).StatusCode)

	resp = env.get(t, "/v1/platform")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[domain.Platform](t, resp)
	assert.Equal(t, owner, p.Owner)
	assert.Equal(t, bob, p.FeeRecipient)
	assert.Equal(t, uint16(500), p.Fees.BasisPoints)
	assert.False(t, p.Paused)

	resp = env.get(t, "/v1/platform/owner")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, owner, decode[map[string]domain.Identity](t, resp)["owner"])

	other := domain.Identity{0x71}
	env.token.Mint(other, self, domain.NewAmount(10))
	resp = env.post(t, "/v1/admin/rescue", owner, rescueRequest{Token: other, Amount: domain.NewAmount(10), To: bob})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, domain.NewAmount(10), env.token.Balance(other, bob))

	resp = env.get(t, "/v1/platform/events")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode[[]*domain.Event](t, resp))
}

func TestRequestErrors(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name   string
		method string
		path   string
		caller *domain.Identity
		body   string
		status int
		code   apperrors.Code
	}{
		{name: "missing caller", method: http.MethodPost, path: "/v1/launches/1/start", status: http.StatusBadRequest, code: apperrors.CodeInvalidInput},
		{name: "unknown launch", method: http.MethodGet, path: "/v1/launches/9", status: http.StatusNotFound, code: apperrors.CodeNotFound},
		{name: "bad launch id", method: http.MethodGet, path: "/v1/launches/abc", status: http.StatusBadRequest, code: apperrors.CodeInvalidInput},
		{name: "zero launch id", method: http.MethodGet, path: "/v1/launches/0", status: http.StatusBadRequest, code: apperrors.CodeInvalidInput},
		{name: "bad account", method: http.MethodGet, path: "/v1/launches/1/contributions/0OIl", status: http.StatusBadRequest, code: apperrors.CodeInvalidInput},
		{name: "unknown settlement", method: http.MethodGet, path: "/v1/settlements/nope", status: http.StatusNotFound, code: apperrors.CodeNotFound},
		{name: "bad limit", method: http.MethodGet, path: "/v1/events?limit=x", status: http.StatusBadRequest, code: apperrors.CodeInvalidInput},
		{name: "zero limit", method: http.MethodGet, path: "/v1/events?limit=0", status: http.StatusBadRequest, code: apperrors.CodeInvalidInput},
		{name: "unknown status filter", method: http.MethodGet, path: "/v1/launches?status=ended", status: http.StatusBadRequest, code: apperrors.CodeInvalidInput},
		{name: "malformed body", method: http.MethodPost, path: "/v1/launches", caller: &creator, body: "{", status: http.StatusBadRequest, code: apperrors.CodeInvalidInput},
		{name: "unknown field", method: http.MethodPost, path: "/v1/launches", caller: &creator, body: `{"colour":"red"}`, status: http.StatusBadRequest, code: apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, env.srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			if tt.caller != nil {
				req.Header.Set(HeaderCaller, tt.caller.String())
			}
			resp, err := env.srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			requireError(t, resp, tt.status, tt.code)
		})
	}
}

func TestEventsPaging(t *testing.T) {
	env := newTestEnv(t, false)
	env.createActive(t)

	resp := env.get(t, "/v1/events?limit=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[[]*domain.Event](t, resp)
	require.Len(t, first, 1)
	assert.Equal(t, domain.EventLaunchCreated, first[0].Type)

	resp = env.get(t, "/v1/events?after=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rest := decode[[]*domain.Event](t, resp)
	require.NotEmpty(t, rest)
	assert.Equal(t, domain.EventLaunchStarted, rest[0].Type)
}

func TestStrictIdentities(t *testing.T) {
	env := newTestEnv(t, true)

	var offCurve domain.Identity
	for i := 0; i < 64; i++ {
		h := sha256.Sum256([]byte{byte(i)})
		if !domain.Identity(h).IsOnCurve() {
			offCurve = h
			break
		}
	}
	require.False(t, offCurve.IsZero())

	resp := env.post(t, "/v1/launches", offCurve, launchInput())
	requireError(t, resp, http.StatusBadRequest, apperrors.CodeInvalidInput)

	onCurve, err := domain.IdentityFromBytes(edwards25519.NewGeneratorPoint().Bytes())
	require.NoError(t, err)
	resp = env.post(t, "/v1/launches", onCurve, launchInput())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t, false)

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/v1/events/stream?launch_id=1"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	env.createActive(t)

	want := []domain.EventType{domain.EventLaunchCreated, domain.EventLaunchStarted}
	for _, typ := range want {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var e domain.Event
		require.NoError(t, conn.ReadJSON(&e))
		assert.Equal(t, typ, e.Type)
		assert.Equal(t, uint64(1), e.LaunchID)
	}
}

func TestEventStream_BadFilter(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.get(t, "/v1/events/stream?launch_id=x")
	requireError(t, resp, http.StatusBadRequest, apperrors.CodeInvalidInput)
}

func TestRecoverEndpoints(t *testing.T) {
	env := newTestEnv(t, false)
	env.createActive(t)

	resp := env.post(t, "/v1/launches/1/recover", alice, nil)
	requireError(t, resp, http.StatusForbidden, apperrors.CodeUnauthorized)

	resp = env.post(t, "/v1/launches/1/recover", owner, nil)
	requireError(t, resp, http.StatusConflict, apperrors.CodeInvalidState)

	resp = env.post(t, "/v1/launches/9/recover", owner, nil)
	requireError(t, resp, http.StatusNotFound, apperrors.CodeNotFound)

	resp = env.post(t, "/v1/admin/recover", alice, nil)
	requireError(t, resp, http.StatusForbidden, apperrors.CodeUnauthorized)

	resp = env.post(t, "/v1/admin/recover", owner, nil)
	requireError(t, resp, http.StatusConflict, apperrors.CodeInvalidState)
}
