package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/airdrop/api/server"
	"github.com/malbeclabs/airdrop/core/pkg/airdrop"
	"github.com/malbeclabs/airdrop/core/pkg/ledger"
)

const (
	testAdmin    = "admin-wallet"
	testOperator = "operator-wallet"
	testPool     = "pool-address"
)

type testOracle struct {
	balance uint64
}

func (o *testOracle) BalanceOf(ctx context.Context, addr string) (uint64, error) {
	return o.balance, nil
}

func newTestServer(t *testing.T, oracle *testOracle) (*server.Server, *ledger.MemoryLedger) {
	t.Helper()
	ctx := context.Background()

	lgr := ledger.NewMemoryLedger(testPool, 1_000_000)
	if oracle == nil {
		oracle = &testOracle{}
	}

	engine, err := airdrop.New(ctx, airdrop.Config{
		Logger:      slog.New(slog.DiscardHandler),
		Ledger:      lgr,
		Oracle:      oracle,
		PoolAddress: testPool,
		Admin:       testAdmin,
	})
	require.NoError(t, err)
	require.NoError(t, engine.GrantRole(ctx, testAdmin, airdrop.RoleOperator, testOperator))

	s, err := server.New(server.Config{
		Logger:       slog.New(slog.DiscardHandler),
		Engine:       engine,
		ListenAddr:   "127.0.0.1:0",
		AuthDisabled: true,
		VersionInfo:  server.VersionInfo{Version: "test"},
	})
	require.NoError(t, err)
	return s, lgr
}

func doJSON(t *testing.T, h http.Handler, method, path, wallet string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if wallet != "" {
		req.Header.Set("X-Wallet", wallet)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAirdrop_Server_Phase1Flow(t *testing.T) {
	t.Parallel()
	s, lgr := newTestServer(t, nil)
	h := s.Handler()

	// Activate phase 1 as admin.
	rec := doJSON(t, h, http.MethodPost, "/api/admin/phases", testAdmin, map[string]any{"phase": 1, "active": true})
	require.Equal(t, http.StatusOK, rec.Code)

	// Submit social proof.
	rec = doJSON(t, h, http.MethodPost, "/api/proofs", "wallet-w", map[string]string{
		"x_handle":       "@w",
		"discord_handle": "w#1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Claiming before verification is rejected.
	rec = doJSON(t, h, http.MethodPost, "/api/claims/phase1", "wallet-w", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "social_proof_not_verified")

	// Operator verifies all three flags.
	rec = doJSON(t, h, http.MethodPost, "/api/proofs/wallet-w/verify", testOperator, map[string]bool{
		"x_verified":       true,
		"discord_verified": true,
		"share_verified":   true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Non-operator verification is rejected.
	rec = doJSON(t, h, http.MethodPost, "/api/proofs/wallet-w/verify", "rando", map[string]bool{})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Claim succeeds and pays the flat reward.
	rec = doJSON(t, h, http.MethodPost, "/api/claims/phase1", "wallet-w", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var claim struct {
		Amount  uint64 `json:"amount"`
		Ordinal uint64 `json:"ordinal"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claim))
	require.Equal(t, uint64(10_000), claim.Amount)
	require.Equal(t, uint64(1), claim.Ordinal)
	paid, err := lgr.BalanceOf(context.Background(), "wallet-w")
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), paid)

	// Double claim is rejected.
	rec = doJSON(t, h, http.MethodPost, "/api/claims/phase1", "wallet-w", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "already_claimed")

	// Status and stats reflect the claim.
	rec = doJSON(t, h, http.MethodGet, "/api/status/phase1/wallet-w", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st airdrop.Phase1Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.True(t, st.Claimed)

	rec = doJSON(t, h, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats airdrop.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, uint64(1), stats.Participants)
	require.Equal(t, uint64(airdrop.Phase1Cap-1), stats.RemainingSlots)
}

func TestAirdrop_Server_Phase2Flow(t *testing.T) {
	t.Parallel()
	oracle := &testOracle{balance: 12_000}
	s, lgr := newTestServer(t, oracle)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/admin/phases", testAdmin, map[string]any{"phase": 2, "active": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/claims/phase2", "wallet-x", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var claim struct {
		Amount uint64 `json:"amount"`
		Tier   int    `json:"tier"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claim))
	require.Equal(t, uint64(15_000), claim.Amount)
	require.Equal(t, 3, claim.Tier)
	paid, err := lgr.BalanceOf(context.Background(), "wallet-x")
	require.NoError(t, err)
	require.Equal(t, uint64(15_000), paid)

	// Below-minimum wallet is rejected.
	oracle.balance = 500
	rec = doJSON(t, h, http.MethodPost, "/api/claims/phase2", "wallet-y", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "insufficient_reputation")

	// Status shows the frozen paid amount alongside the live prospective view.
	oracle.balance = 30_000
	rec = doJSON(t, h, http.MethodGet, "/api/status/phase2/wallet-x", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st airdrop.Phase2Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.True(t, st.Claimed)
	require.Equal(t, uint64(15_000), st.PaidAmount)
	require.Equal(t, uint64(20_000), st.ProspectiveReward)
}

func TestAirdrop_Server_PauseAndRoles(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/admin/roles", testAdmin, map[string]string{
		"action": "grant", "role": "pauser", "wallet": "pauser-wallet",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Non-pauser cannot pause.
	rec = doJSON(t, h, http.MethodPost, "/api/admin/pause", "rando", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/admin/pause", "pauser-wallet", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// All claims are rejected while paused.
	rec = doJSON(t, h, http.MethodPost, "/api/claims/phase1", "wallet-w", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "paused")

	rec = doJSON(t, h, http.MethodPost, "/api/admin/unpause", "pauser-wallet", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Unknown role is rejected.
	rec = doJSON(t, h, http.MethodPost, "/api/admin/roles", testAdmin, map[string]string{
		"action": "grant", "role": "godmode", "wallet": "w",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAirdrop_Server_TierPreview(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/tiers/7500", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Amount uint64 `json:"amount"`
		Tier   int    `json:"tier"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, uint64(10_000), resp.Amount)
	require.Equal(t, 2, resp.Tier)

	rec = doJSON(t, h, http.MethodGet, "/api/tiers/not-a-number", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAirdrop_Server_HealthAndVersion(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/version", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"test"`)
}

func TestAirdrop_Server_UpgradeAuthorization(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/admin/roles", testAdmin, map[string]string{
		"action": "grant", "role": "upgrader", "wallet": "upgrader-wallet",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/admin/upgrade", "upgrader-wallet", map[string]string{
		"target": "v2-implementation",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/admin/upgrade", "rando", map[string]string{
		"target": "v2-implementation",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}
