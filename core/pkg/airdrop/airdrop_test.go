package airdrop

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type mockLedger struct {
	balanceFunc  func(ctx context.Context, addr string) (uint64, error)
	transferFunc func(ctx context.Context, to string, amount uint64) error

	transfers []transferCall
}

type transferCall struct {
	to     string
	amount uint64
}

func (m *mockLedger) BalanceOf(ctx context.Context, addr string) (uint64, error) {
	if m.balanceFunc != nil {
		return m.balanceFunc(ctx, addr)
	}
	return 1_000_000_000, nil
}

func (m *mockLedger) Transfer(ctx context.Context, to string, amount uint64) error {
	if m.transferFunc != nil {
		if err := m.transferFunc(ctx, to, amount); err != nil {
			return err
		}
	}
	m.transfers = append(m.transfers, transferCall{to: to, amount: amount})
	return nil
}

type mockOracle struct {
	balanceFunc func(ctx context.Context, addr string) (uint64, error)
}

func (m *mockOracle) BalanceOf(ctx context.Context, addr string) (uint64, error) {
	if m.balanceFunc != nil {
		return m.balanceFunc(ctx, addr)
	}
	return 0, nil
}

const (
	testAdmin    = "admin-wallet"
	testOperator = "operator-wallet"
	testPool     = "pool-address"
)

func newTestEngine(t *testing.T, ledger *mockLedger, oracle *mockOracle) *Engine {
	t.Helper()
	ctx := context.Background()

	if ledger == nil {
		ledger = &mockLedger{}
	}
	if oracle == nil {
		oracle = &mockOracle{}
	}

	e, err := New(ctx, Config{
		Logger:      slog.New(slog.DiscardHandler),
		Clock:       clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		Ledger:      ledger,
		Oracle:      oracle,
		PoolAddress: testPool,
		Admin:       testAdmin,
	})
	require.NoError(t, err)
	require.NoError(t, e.GrantRole(ctx, testAdmin, RoleOperator, testOperator))
	return e
}

// submitAndVerify brings a wallet to fully verified state.
func submitAndVerify(t *testing.T, e *Engine, wallet string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.SubmitProof(ctx, wallet, "x-handle", "discord-handle"))
	require.NoError(t, e.VerifyProof(ctx, testOperator, wallet, true, true, true))
}

// claim1 and claim2 discard the claim result when a test only cares
// about the error.
func claim1(e *Engine, wallet string) error {
	_, err := e.ClaimPhase1(context.Background(), wallet)
	return err
}

func claim2(e *Engine, wallet string) error {
	_, err := e.ClaimPhase2(context.Background(), wallet)
	return err
}

func TestAirdrop_Engine_ConfigValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := New(ctx, Config{})
	require.Error(t, err)

	_, err = New(ctx, Config{Logger: slog.New(slog.DiscardHandler), Ledger: &mockLedger{}, Oracle: &mockOracle{}, PoolAddress: testPool})
	require.ErrorContains(t, err, "admin")
}

func TestAirdrop_SubmitProof(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEngine(t, nil, nil)

	t.Run("empty handle rejected", func(t *testing.T) {
		require.ErrorIs(t, e.SubmitProof(ctx, "w1", "", "d"), ErrInvalidSocialProof)
		require.ErrorIs(t, e.SubmitProof(ctx, "w1", "x", ""), ErrInvalidSocialProof)
	})

	t.Run("resubmission revokes verification", func(t *testing.T) {
		submitAndVerify(t, e, "w2")
		rec, ok := e.Proof("w2")
		require.True(t, ok)
		require.True(t, rec.FullyVerified())
		require.False(t, rec.VerifiedAt.IsZero())

		require.NoError(t, e.SubmitProof(ctx, "w2", "new-x", "new-discord"))
		rec, ok = e.Proof("w2")
		require.True(t, ok)
		require.False(t, rec.FullyVerified())
		require.True(t, rec.VerifiedAt.IsZero())
	})
}

func TestAirdrop_VerifyProof(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEngine(t, nil, nil)

	t.Run("requires operator role", func(t *testing.T) {
		require.NoError(t, e.SubmitProof(ctx, "w1", "x", "d"))
		require.ErrorIs(t, e.VerifyProof(ctx, "rando", "w1", true, true, true), ErrUnauthorized)
	})

	t.Run("requires existing record", func(t *testing.T) {
		require.ErrorIs(t, e.VerifyProof(ctx, testOperator, "nobody", true, true, true), ErrProofNotFound)
	})

	t.Run("flags are authoritative and revocable", func(t *testing.T) {
		require.NoError(t, e.SubmitProof(ctx, "w2", "x", "d"))
		require.NoError(t, e.VerifyProof(ctx, testOperator, "w2", true, true, false))
		rec, _ := e.Proof("w2")
		require.False(t, rec.FullyVerified())

		require.NoError(t, e.VerifyProof(ctx, testOperator, "w2", true, true, true))
		rec, _ = e.Proof("w2")
		require.True(t, rec.FullyVerified())

		// A follow-up call with a false flag revokes, not ORs.
		require.NoError(t, e.VerifyProof(ctx, testOperator, "w2", true, false, true))
		rec, _ = e.Proof("w2")
		require.False(t, rec.FullyVerified())
		require.False(t, rec.DiscordVerified)
	})
}

func TestAirdrop_ClaimPhase1(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("full scenario", func(t *testing.T) {
		t.Parallel()
		ledger := &mockLedger{}
		e := newTestEngine(t, ledger, nil)
		require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 1, true))

		require.NoError(t, e.SubmitProof(ctx, "wallet-w", "a", "b"))
		require.NoError(t, e.VerifyProof(ctx, testOperator, "wallet-w", true, true, false))
		st := e.Phase1Status("wallet-w")
		require.False(t, st.Verified)
		require.ErrorIs(t, claim1(e, "wallet-w"), ErrSocialProofNotVerified)

		require.NoError(t, e.VerifyProof(ctx, testOperator, "wallet-w", true, true, true))
		ordinal, err := e.ClaimPhase1(ctx, "wallet-w")
		require.NoError(t, err)
		require.Equal(t, uint64(1), ordinal)

		stats, err := e.Stats(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(1), stats.Participants)
		require.Equal(t, uint64(Phase1Cap-1), stats.RemainingSlots)

		require.Len(t, ledger.transfers, 1)
		require.Equal(t, transferCall{to: "wallet-w", amount: 10_000}, ledger.transfers[0])

		st = e.Phase1Status("wallet-w")
		require.True(t, st.Claimed)
		require.False(t, st.Eligible)
	})

	t.Run("phase inactive", func(t *testing.T) {
		t.Parallel()
		e := newTestEngine(t, nil, nil)
		submitAndVerify(t, e, "w")
		require.ErrorIs(t, claim1(e, "w"), ErrPhaseNotActive)
	})

	t.Run("double claim fails and changes nothing", func(t *testing.T) {
		t.Parallel()
		ledger := &mockLedger{}
		e := newTestEngine(t, ledger, nil)
		require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 1, true))
		submitAndVerify(t, e, "w")

		require.NoError(t, claim1(e, "w"))
		require.ErrorIs(t, claim1(e, "w"), ErrAlreadyClaimed)

		stats, err := e.Stats(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(1), stats.Participants)
		require.Len(t, ledger.transfers, 1)
	})

	t.Run("cap enforcement", func(t *testing.T) {
		t.Parallel()
		e := newTestEngine(t, nil, nil)
		require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 1, true))
		submitAndVerify(t, e, "late")

		// Simulate a fully subscribed phase 1.
		e.state.Lock()
		e.participants = Phase1Cap
		e.state.Unlock()

		require.ErrorIs(t, claim1(e, "late"), ErrPhase1Full)
	})

	t.Run("insufficient pool leaves state untouched", func(t *testing.T) {
		t.Parallel()
		ledger := &mockLedger{
			balanceFunc: func(ctx context.Context, addr string) (uint64, error) { return 9_999, nil },
		}
		e := newTestEngine(t, ledger, nil)
		require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 1, true))
		submitAndVerify(t, e, "w")

		require.ErrorIs(t, claim1(e, "w"), ErrInsufficientContractBalance)

		e.state.RLock()
		participants := e.participants
		_, claimed := e.phase1Claims["w"]
		e.state.RUnlock()
		require.Zero(t, participants)
		require.False(t, claimed)
		require.Empty(t, ledger.transfers)
	})

	t.Run("transfer failure rolls back atomically", func(t *testing.T) {
		t.Parallel()
		ledger := &mockLedger{
			transferFunc: func(ctx context.Context, to string, amount uint64) error {
				return errors.New("ledger unavailable")
			},
		}
		e := newTestEngine(t, ledger, nil)
		require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 1, true))
		submitAndVerify(t, e, "w")

		require.ErrorIs(t, claim1(e, "w"), ErrTransferFailed)

		e.state.RLock()
		participants := e.participants
		_, claimed := e.phase1Claims["w"]
		e.state.RUnlock()
		require.Zero(t, participants)
		require.False(t, claimed)

		// The claim still works once the ledger recovers.
		ledger.transferFunc = nil
		require.NoError(t, claim1(e, "w"))
	})

	t.Run("reentrant transfer callback rejected", func(t *testing.T) {
		t.Parallel()
		ledger := &mockLedger{}
		var e *Engine
		var nestedErr error
		ledger.transferFunc = func(ctx context.Context, to string, amount uint64) error {
			nestedErr = claim1(e, "attacker")
			return nil
		}
		e = newTestEngine(t, ledger, nil)
		require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 1, true))
		submitAndVerify(t, e, "attacker")

		require.NoError(t, claim1(e, "attacker"))
		require.ErrorIs(t, nestedErr, ErrReentrantCall)
		require.Len(t, ledger.transfers, 1)
	})
}

func TestAirdrop_ClaimPhase2(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("tiered scenario with frozen paid amount", func(t *testing.T) {
		t.Parallel()
		ledger := &mockLedger{}
		balance := uint64(7_500)
		oracle := &mockOracle{
			balanceFunc: func(ctx context.Context, addr string) (uint64, error) { return balance, nil },
		}
		e := newTestEngine(t, ledger, oracle)
		require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 2, true))

		claim, err := e.ClaimPhase2(ctx, "wallet-x")
		require.NoError(t, err)
		require.Equal(t, Phase2Claim{Amount: 10_000, Tier: 2}, claim)
		require.Len(t, ledger.transfers, 1)
		require.Equal(t, transferCall{to: "wallet-x", amount: 10_000}, ledger.transfers[0])

		st, err := e.Phase2Status(ctx, "wallet-x")
		require.NoError(t, err)
		require.True(t, st.Claimed)
		require.Equal(t, uint64(10_000), st.PaidAmount)
		require.Equal(t, 2, st.PaidTier)

		// A later balance increase changes the prospective view but never
		// the recorded paid amount.
		balance = 30_000
		st, err = e.Phase2Status(ctx, "wallet-x")
		require.NoError(t, err)
		require.Equal(t, uint64(20_000), st.ProspectiveReward)
		require.Equal(t, 4, st.ProspectiveTier)
		require.Equal(t, uint64(10_000), st.PaidAmount)
		require.Equal(t, 2, st.PaidTier)

		require.ErrorIs(t, claim2(e, "wallet-x"), ErrAlreadyClaimed)
		require.Len(t, ledger.transfers, 1)
	})

	t.Run("below minimum balance", func(t *testing.T) {
		t.Parallel()
		oracle := &mockOracle{
			balanceFunc: func(ctx context.Context, addr string) (uint64, error) { return 999, nil },
		}
		e := newTestEngine(t, nil, oracle)
		require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 2, true))
		require.ErrorIs(t, claim2(e, "w"), ErrInsufficientRON)
	})

	t.Run("phase inactive", func(t *testing.T) {
		t.Parallel()
		e := newTestEngine(t, nil, &mockOracle{
			balanceFunc: func(ctx context.Context, addr string) (uint64, error) { return 5_000, nil },
		})
		require.ErrorIs(t, claim2(e, "w"), ErrPhaseNotActive)
	})

	t.Run("insufficient pool", func(t *testing.T) {
		t.Parallel()
		ledger := &mockLedger{
			balanceFunc: func(ctx context.Context, addr string) (uint64, error) { return 100, nil },
		}
		oracle := &mockOracle{
			balanceFunc: func(ctx context.Context, addr string) (uint64, error) { return 5_000, nil },
		}
		e := newTestEngine(t, ledger, oracle)
		require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 2, true))
		require.ErrorIs(t, claim2(e, "w"), ErrInsufficientContractBalance)
	})

	t.Run("transfer failure rolls back", func(t *testing.T) {
		t.Parallel()
		ledger := &mockLedger{
			transferFunc: func(ctx context.Context, to string, amount uint64) error {
				return errors.New("ledger unavailable")
			},
		}
		oracle := &mockOracle{
			balanceFunc: func(ctx context.Context, addr string) (uint64, error) { return 12_000, nil },
		}
		e := newTestEngine(t, ledger, oracle)
		require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 2, true))

		require.ErrorIs(t, claim2(e, "w"), ErrTransferFailed)
		st, err := e.Phase2Status(ctx, "w")
		require.NoError(t, err)
		require.False(t, st.Claimed)
		require.Zero(t, st.PaidAmount)
	})
}

func TestAirdrop_PauseInvariant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEngine(t, nil, &mockOracle{
		balanceFunc: func(ctx context.Context, addr string) (uint64, error) { return 5_000, nil },
	})
	require.NoError(t, e.GrantRole(ctx, testAdmin, RolePauser, "pauser-wallet"))
	require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 1, true))
	require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 2, true))
	submitAndVerify(t, e, "w")

	require.ErrorIs(t, e.Pause(ctx, "rando"), ErrUnauthorized)
	require.NoError(t, e.Pause(ctx, "pauser-wallet"))

	require.ErrorIs(t, claim1(e, "w"), ErrPaused)
	require.ErrorIs(t, claim2(e, "w"), ErrPaused)
	require.ErrorIs(t, e.SubmitProof(ctx, "w2", "x", "d"), ErrPaused)

	// Views and administrative operations stay available.
	_, err := e.Stats(ctx)
	require.NoError(t, err)
	require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 1, false))

	require.NoError(t, e.Unpause(ctx, "pauser-wallet"))
	require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 1, true))
	require.NoError(t, claim1(e, "w"))
}

func TestAirdrop_Roles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEngine(t, nil, nil)

	require.ErrorIs(t, e.GrantRole(ctx, "rando", RolePauser, "w"), ErrUnauthorized)
	require.Error(t, e.GrantRole(ctx, testAdmin, Role("bogus"), "w"))

	require.NoError(t, e.GrantRole(ctx, testAdmin, RoleCompliance, "c"))
	require.True(t, e.HasRole("c", RoleCompliance))

	require.NoError(t, e.RevokeRole(ctx, testAdmin, RoleCompliance, "c"))
	require.False(t, e.HasRole("c", RoleCompliance))
}

func TestAirdrop_EmergencyWithdraw(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ledger := &mockLedger{
		balanceFunc: func(ctx context.Context, addr string) (uint64, error) { return 50_000, nil },
	}
	e := newTestEngine(t, ledger, nil)
	require.NoError(t, e.GrantRole(ctx, testAdmin, RoleCompliance, "compliance-wallet"))

	require.ErrorIs(t, e.EmergencyWithdraw(ctx, "rando", "vault", 1), ErrUnauthorized)
	require.Error(t, e.EmergencyWithdraw(ctx, "compliance-wallet", "", 1))
	require.Error(t, e.EmergencyWithdraw(ctx, "compliance-wallet", "vault", 0))
	require.Error(t, e.EmergencyWithdraw(ctx, "compliance-wallet", "vault", 60_000))

	require.NoError(t, e.EmergencyWithdraw(ctx, "compliance-wallet", "vault", 50_000))
	require.Equal(t, []transferCall{{to: "vault", amount: 50_000}}, ledger.transfers)
}

func TestAirdrop_AuthorizeUpgrade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEngine(t, nil, nil)
	require.NoError(t, e.GrantRole(ctx, testAdmin, RoleUpgrader, "upgrader-wallet"))

	require.ErrorIs(t, e.AuthorizeUpgrade("upgrader-wallet", ""), ErrUnauthorizedUpgrade)
	require.ErrorIs(t, e.AuthorizeUpgrade("rando", "v2-implementation"), ErrUnauthorizedUpgrade)
	require.NoError(t, e.AuthorizeUpgrade("upgrader-wallet", "v2-implementation"))
}

func TestAirdrop_SetPhaseActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEngine(t, nil, nil)

	require.ErrorIs(t, e.SetPhaseActive(ctx, "rando", 1, true), ErrUnauthorized)
	require.Error(t, e.SetPhaseActive(ctx, testAdmin, 3, true))

	require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 2, true))
	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	require.False(t, stats.Phase1Active)
	require.True(t, stats.Phase2Active)
}

func TestAirdrop_Events(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEngine(t, nil, &mockOracle{
		balanceFunc: func(ctx context.Context, addr string) (uint64, error) { return 25_000, nil },
	})

	var got []Event
	e.Subscribe(func(ev Event) { got = append(got, ev) })

	require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 1, true))
	require.NoError(t, e.SetPhaseActive(ctx, testAdmin, 2, true))
	submitAndVerify(t, e, "w")
	require.NoError(t, claim1(e, "w"))
	require.NoError(t, claim2(e, "w"))

	var types []EventType
	for _, ev := range got {
		types = append(types, ev.Type)
	}
	require.Equal(t, []EventType{
		EventPhaseToggled,
		EventPhaseToggled,
		EventProofSubmitted,
		EventProofVerified,
		EventPhase1Claimed,
		EventPhase2Claimed,
	}, types)

	claimed1 := got[4]
	require.Equal(t, uint64(10_000), claimed1.Amount)
	require.Equal(t, uint64(1), claimed1.Ordinal)

	claimed2 := got[5]
	require.Equal(t, uint64(20_000), claimed2.Amount)
	require.Equal(t, 4, claimed2.Tier)
	require.Equal(t, uint64(25_000), claimed2.Balance)
}

func TestAirdrop_SnapshotRestore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	snap := &Snapshot{
		Proofs: map[string]SocialProofRecord{
			"w": {Wallet: "w", XHandle: "x", DiscordHandle: "d", XVerified: true, DiscordVerified: true, ShareVerified: true},
		},
		Phase1Claims: map[string]uint64{"claimed-wallet": 1},
		Phase2Claims: map[string]Phase2Claim{"claimed-wallet": {Amount: 15_000, Tier: 3}},
		Participants: 1,
		Phase1Active: true,
		Roles:        map[Role]map[string]bool{RoleOperator: {testOperator: true}},
	}

	e, err := New(ctx, Config{
		Logger:      slog.New(slog.DiscardHandler),
		Ledger:      &mockLedger{},
		Oracle:      &mockOracle{},
		Store:       &snapshotOnlyStore{snap: snap},
		PoolAddress: testPool,
		Admin:       testAdmin,
	})
	require.NoError(t, err)

	require.ErrorIs(t, claim1(e, "claimed-wallet"), ErrAlreadyClaimed)
	require.NoError(t, claim1(e, "w"))

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), stats.Participants)
	require.True(t, e.HasRole(testOperator, RoleOperator))
}

// snapshotOnlyStore returns a fixed snapshot and discards writes.
type snapshotOnlyStore struct {
	nopStore
	snap *Snapshot
}

func (s *snapshotOnlyStore) Load(context.Context) (*Snapshot, error) { return s.snap, nil }
