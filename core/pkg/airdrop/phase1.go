package airdrop

import (
	"context"
	"fmt"
)

// ClaimPhase1 pays the flat phase 1 reward to a fully verified wallet. Checks
// run in a fixed order, each with its own failure kind; no state changes
// unless every check passes. Claim state is committed before the external
// transfer so a reentrant call cannot claim twice, and a failed transfer
// rolls the whole claim back. Returns the wallet's participation ordinal.
func (e *Engine) ClaimPhase1(ctx context.Context, wallet string) (uint64, error) {
	if e.transferring.Load() {
		return 0, ErrReentrantCall
	}

	e.op.Lock()
	defer e.op.Unlock()

	e.state.Lock()
	switch {
	case e.paused:
		e.state.Unlock()
		return 0, ErrPaused
	case !e.phase1Active:
		e.state.Unlock()
		return 0, ErrPhaseNotActive
	}
	if _, claimed := e.phase1Claims[wallet]; claimed {
		e.state.Unlock()
		return 0, ErrAlreadyClaimed
	}
	if e.participants >= Phase1Cap {
		e.state.Unlock()
		return 0, ErrPhase1Full
	}
	rec, ok := e.proofs[wallet]
	if !ok || !rec.FullyVerified() {
		e.state.Unlock()
		return 0, ErrSocialProofNotVerified
	}
	e.state.Unlock()

	pool, err := e.ledger.BalanceOf(ctx, e.cfg.PoolAddress)
	if err != nil {
		return 0, fmt.Errorf("failed to query pool balance: %w", err)
	}
	if pool < Phase1Reward {
		return 0, ErrInsufficientContractBalance
	}

	// Commit the claim before handing control to the external ledger.
	e.state.Lock()
	ordinal := e.participants + 1
	if err := e.store.PutPhase1Claim(ctx, wallet, ordinal, Phase1Reward); err != nil {
		e.state.Unlock()
		return 0, fmt.Errorf("failed to persist phase 1 claim: %w", err)
	}
	e.phase1Claims[wallet] = ordinal
	e.participants = ordinal
	e.state.Unlock()

	if err := e.transfer(ctx, wallet, Phase1Reward); err != nil {
		e.state.Lock()
		delete(e.phase1Claims, wallet)
		e.participants = ordinal - 1
		e.state.Unlock()
		if derr := e.store.DeletePhase1Claim(ctx, wallet); derr != nil {
			e.log.Error("engine: failed to roll back phase 1 claim record", "wallet", wallet, "error", derr)
		}
		return 0, fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}

	e.log.Info("engine: phase 1 claimed", "wallet", wallet, "ordinal", ordinal, "amount", uint64(Phase1Reward))
	e.emit(ctx, Event{
		Type:    EventPhase1Claimed,
		Wallet:  wallet,
		Amount:  Phase1Reward,
		Ordinal: ordinal,
	})
	return ordinal, nil
}
