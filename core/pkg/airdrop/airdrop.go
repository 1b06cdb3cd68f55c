// Package airdrop implements the two-phase token distribution engine.
//
// The engine owns all mutable distributor state and serializes every mutating
// operation: an operation either completes with its effects committed or is
// rolled back in full. Phase 1 is a capped, flat-rate claim gated on operator
// attestation of social proof; phase 2 is an uncapped, tiered claim gated on
// a reputation balance read fresh from an external oracle.
package airdrop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
)

const (
	// Phase1Cap is the maximum number of phase 1 participants.
	Phase1Cap = 5_000

	// Phase1Reward is the flat per-wallet phase 1 payout in whole tokens.
	Phase1Reward = 10_000
)

// TokenLedger is the external fungible-token ledger holding the distribution
// pool. Transfer failure is fatal for the enclosing claim and is never
// retried.
type TokenLedger interface {
	BalanceOf(ctx context.Context, addr string) (uint64, error)
	Transfer(ctx context.Context, to string, amount uint64) error
}

// ReputationOracle reports reputation balances. It is queried fresh on every
// phase 2 status check and claim; the engine never caches its answers.
type ReputationOracle interface {
	BalanceOf(ctx context.Context, addr string) (uint64, error)
}

// Store persists engine state so claim records survive restarts and code
// upgrades. The Delete methods exist only for same-call rollback of a failed
// transfer.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	PutProof(ctx context.Context, rec SocialProofRecord) error
	PutPhase1Claim(ctx context.Context, wallet string, ordinal, amount uint64) error
	DeletePhase1Claim(ctx context.Context, wallet string) error
	PutPhase2Claim(ctx context.Context, wallet string, amount uint64, tier int) error
	DeletePhase2Claim(ctx context.Context, wallet string) error
	SetPhaseActive(ctx context.Context, phase int, active bool) error
	SetPaused(ctx context.Context, paused bool) error
	GrantRole(ctx context.Context, role Role, wallet string) error
	RevokeRole(ctx context.Context, role Role, wallet string) error
	RecordEvent(ctx context.Context, ev Event) error
}

type Config struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	Ledger TokenLedger
	Oracle ReputationOracle
	Store  Store // optional — if nil, state lives in memory only

	// PoolAddress is the ledger address holding the distribution pool.
	PoolAddress string

	// Admin is the super-administrator identity. Only this identity can
	// grant and revoke roles and toggle phases.
	Admin string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Ledger == nil {
		return errors.New("token ledger is required")
	}
	if cfg.Oracle == nil {
		return errors.New("reputation oracle is required")
	}
	if cfg.PoolAddress == "" {
		return errors.New("pool address is required")
	}
	if cfg.Admin == "" {
		return errors.New("admin identity is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Store == nil {
		cfg.Store = nopStore{}
	}
	return nil
}

// Engine is the distributor state machine. All mutating entry points are
// serialized through op; views only take the state read lock and are safe to
// call in any state, including during an in-flight transfer.
type Engine struct {
	log    *slog.Logger
	cfg    Config
	clock  clockwork.Clock
	ledger TokenLedger
	oracle ReputationOracle
	store  Store
	sinks  []EventSink

	op    sync.Mutex   // serializes mutating operations end to end
	state sync.RWMutex // guards the fields below

	proofs       map[string]SocialProofRecord
	phase1Claims map[string]uint64 // wallet -> participant ordinal
	phase2Claims map[string]Phase2Claim
	participants uint64
	phase1Active bool
	phase2Active bool
	paused       bool
	roles        map[Role]map[string]bool

	// transferring is set for the duration of an external transfer so a call
	// back into either claim entry point is rejected instead of re-executed.
	transferring atomic.Bool
}

func New(ctx context.Context, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		log:          cfg.Logger,
		cfg:          cfg,
		clock:        cfg.Clock,
		ledger:       cfg.Ledger,
		oracle:       cfg.Oracle,
		store:        cfg.Store,
		proofs:       make(map[string]SocialProofRecord),
		phase1Claims: make(map[string]uint64),
		phase2Claims: make(map[string]Phase2Claim),
		roles:        make(map[Role]map[string]bool),
	}

	snap, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		e.restore(snap)
	}

	e.log.Info("engine: initialized",
		"participants", e.participants,
		"phase1_active", e.phase1Active,
		"phase2_active", e.phase2Active,
		"paused", e.paused,
	)
	return e, nil
}

func (e *Engine) restore(snap *Snapshot) {
	for w, rec := range snap.Proofs {
		e.proofs[w] = rec
	}
	for w, ord := range snap.Phase1Claims {
		e.phase1Claims[w] = ord
	}
	for w, c := range snap.Phase2Claims {
		e.phase2Claims[w] = c
	}
	e.participants = snap.Participants
	e.phase1Active = snap.Phase1Active
	e.phase2Active = snap.Phase2Active
	e.paused = snap.Paused
	for role, members := range snap.Roles {
		m := make(map[string]bool, len(members))
		for w, ok := range members {
			if ok {
				m[w] = true
			}
		}
		e.roles[role] = m
	}
}

// hasRole reports role membership. Callers hold at least the state read lock.
func (e *Engine) hasRole(wallet string, role Role) bool {
	return e.roles[role][wallet]
}

// HasRole reports whether wallet holds the given capability.
func (e *Engine) HasRole(wallet string, role Role) bool {
	e.state.RLock()
	defer e.state.RUnlock()
	return e.hasRole(wallet, role)
}

// transfer runs a pool payout with the reentrancy flag set. The flag is
// cleared on every exit path.
func (e *Engine) transfer(ctx context.Context, to string, amount uint64) error {
	e.transferring.Store(true)
	defer e.transferring.Store(false)
	return e.ledger.Transfer(ctx, to, amount)
}

// nopStore is the storeless mode used by tests and in-memory deployments.
type nopStore struct{}

func (nopStore) Load(context.Context) (*Snapshot, error)                      { return nil, nil }
func (nopStore) PutProof(context.Context, SocialProofRecord) error            { return nil }
func (nopStore) PutPhase1Claim(context.Context, string, uint64, uint64) error { return nil }
func (nopStore) DeletePhase1Claim(context.Context, string) error              { return nil }
func (nopStore) PutPhase2Claim(context.Context, string, uint64, int) error    { return nil }
func (nopStore) DeletePhase2Claim(context.Context, string) error              { return nil }
func (nopStore) SetPhaseActive(context.Context, int, bool) error              { return nil }
func (nopStore) SetPaused(context.Context, bool) error                        { return nil }
func (nopStore) GrantRole(context.Context, Role, string) error                { return nil }
func (nopStore) RevokeRole(context.Context, Role, string) error               { return nil }
func (nopStore) RecordEvent(context.Context, Event) error                     { return nil }
