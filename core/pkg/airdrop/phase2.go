package airdrop

import (
	"context"
	"fmt"

	"github.com/malbeclabs/airdrop/core/pkg/tiers"
)

// ClaimPhase2 pays a tiered reward based on the wallet's reputation balance,
// read fresh from the oracle at claim time. The paid amount is recorded and
// frozen; later balance changes have no effect on it, and only one claim is
// ever possible per wallet. Returns the paid amount and tier.
func (e *Engine) ClaimPhase2(ctx context.Context, wallet string) (Phase2Claim, error) {
	if e.transferring.Load() {
		return Phase2Claim{}, ErrReentrantCall
	}

	e.op.Lock()
	defer e.op.Unlock()

	e.state.Lock()
	switch {
	case e.paused:
		e.state.Unlock()
		return Phase2Claim{}, ErrPaused
	case !e.phase2Active:
		e.state.Unlock()
		return Phase2Claim{}, ErrPhaseNotActive
	}
	if _, claimed := e.phase2Claims[wallet]; claimed {
		e.state.Unlock()
		return Phase2Claim{}, ErrAlreadyClaimed
	}
	e.state.Unlock()

	balance, err := e.oracle.BalanceOf(ctx, wallet)
	if err != nil {
		return Phase2Claim{}, fmt.Errorf("failed to query reputation balance: %w", err)
	}
	if balance < tiers.MinBalance {
		return Phase2Claim{}, ErrInsufficientRON
	}

	reward, tier := tiers.RewardFor(balance)
	if reward == 0 {
		return Phase2Claim{}, ErrInvalidRONBalance
	}

	pool, err := e.ledger.BalanceOf(ctx, e.cfg.PoolAddress)
	if err != nil {
		return Phase2Claim{}, fmt.Errorf("failed to query pool balance: %w", err)
	}
	if pool < reward {
		return Phase2Claim{}, ErrInsufficientContractBalance
	}

	claim := Phase2Claim{Amount: reward, Tier: tier}

	e.state.Lock()
	if err := e.store.PutPhase2Claim(ctx, wallet, reward, tier); err != nil {
		e.state.Unlock()
		return Phase2Claim{}, fmt.Errorf("failed to persist phase 2 claim: %w", err)
	}
	e.phase2Claims[wallet] = claim
	e.state.Unlock()

	if err := e.transfer(ctx, wallet, reward); err != nil {
		e.state.Lock()
		delete(e.phase2Claims, wallet)
		e.state.Unlock()
		if derr := e.store.DeletePhase2Claim(ctx, wallet); derr != nil {
			e.log.Error("engine: failed to roll back phase 2 claim record", "wallet", wallet, "error", derr)
		}
		return Phase2Claim{}, fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}

	e.log.Info("engine: phase 2 claimed", "wallet", wallet, "balance", balance, "amount", reward, "tier", tier)
	e.emit(ctx, Event{
		Type:    EventPhase2Claimed,
		Wallet:  wallet,
		Amount:  reward,
		Tier:    tier,
		Balance: balance,
	})
	return claim, nil
}
