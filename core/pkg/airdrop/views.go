package airdrop

import (
	"context"
	"fmt"

	"github.com/malbeclabs/airdrop/core/pkg/tiers"
)

// Phase1Status reports the wallet's phase 1 standing. Pure read; safe to call
// in any state.
func (e *Engine) Phase1Status(wallet string) Phase1Status {
	e.state.RLock()
	defer e.state.RUnlock()

	_, claimed := e.phase1Claims[wallet]
	rec, ok := e.proofs[wallet]
	verified := ok && rec.FullyVerified()

	return Phase1Status{
		Active:   e.phase1Active,
		Claimed:  claimed,
		Verified: verified,
		Eligible: e.phase1Active && !claimed && verified && e.participants < Phase1Cap,
	}
}

// Phase2Status reports the wallet's phase 2 standing. The balance and
// prospective reward come from a fresh oracle query even when the wallet has
// already claimed; the paid amount stays frozen at its claim-time value.
func (e *Engine) Phase2Status(ctx context.Context, wallet string) (Phase2Status, error) {
	balance, err := e.oracle.BalanceOf(ctx, wallet)
	if err != nil {
		return Phase2Status{}, fmt.Errorf("failed to query reputation balance: %w", err)
	}
	reward, tier := tiers.RewardFor(balance)

	e.state.RLock()
	defer e.state.RUnlock()

	claim, claimed := e.phase2Claims[wallet]
	st := Phase2Status{
		Active:            e.phase2Active,
		Claimed:           claimed,
		Eligible:          e.phase2Active && !claimed && balance >= tiers.MinBalance && reward > 0,
		Balance:           balance,
		ProspectiveReward: reward,
		ProspectiveTier:   tier,
	}
	if claimed {
		st.PaidAmount = claim.Amount
		st.PaidTier = claim.Tier
	}
	return st, nil
}

// Stats reports aggregate distributor state, including the live pool balance
// held by the external ledger.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	pool, err := e.ledger.BalanceOf(ctx, e.cfg.PoolAddress)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query pool balance: %w", err)
	}

	e.state.RLock()
	defer e.state.RUnlock()

	remaining := uint64(0)
	if e.participants < Phase1Cap {
		remaining = Phase1Cap - e.participants
	}
	return Stats{
		Participants:   e.participants,
		RemainingSlots: remaining,
		Phase1Active:   e.phase1Active,
		Phase2Active:   e.phase2Active,
		Paused:         e.paused,
		PoolBalance:    pool,
	}, nil
}
