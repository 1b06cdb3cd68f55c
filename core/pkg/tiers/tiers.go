// Package tiers maps reputation balances to airdrop reward amounts.
//
// The table is fixed at deployment time. Every range is inclusive on its
// lower bound and exclusive on its upper bound; the top range is unbounded.
package tiers

// MinBalance is the smallest reputation balance that earns any reward.
const MinBalance = 1_000

// Tier boundaries and rewards, in whole tokens.
const (
	tier1Min = 1_000
	tier2Min = 5_000
	tier3Min = 10_000
	tier4Min = 25_000

	tier1Reward = 5_000
	tier2Reward = 10_000
	tier3Reward = 15_000
	tier4Reward = 20_000
)

// RewardFor returns the reward amount and tier number for a reputation
// balance. Balances below MinBalance return (0, 0). Integer arithmetic only,
// so results are reproducible for any input.
func RewardFor(balance uint64) (amount uint64, tier int) {
	switch {
	case balance >= tier4Min:
		return tier4Reward, 4
	case balance >= tier3Min:
		return tier3Reward, 3
	case balance >= tier2Min:
		return tier2Reward, 2
	case balance >= tier1Min:
		return tier1Reward, 1
	default:
		return 0, 0
	}
}
