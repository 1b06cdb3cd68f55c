package airdrop

import "time"

// Role is an administrative capability. Membership is granted and revoked by
// the super-admin identity and gates every mutating administrative entry point.
type Role string

const (
	// RoleUpgrader may authorize implementation upgrades.
	RoleUpgrader Role = "upgrader"
	// RolePauser may pause and unpause the distributor.
	RolePauser Role = "pauser"
	// RoleOperator may attest to social proof records.
	RoleOperator Role = "operator"
	// RoleCompliance may perform emergency withdrawals.
	RoleCompliance Role = "compliance"
)

// Valid reports whether r is one of the known capabilities.
func (r Role) Valid() bool {
	switch r {
	case RoleUpgrader, RolePauser, RoleOperator, RoleCompliance:
		return true
	}
	return false
}

// SocialProofRecord holds a wallet's submitted handles and the operator
// attestation state. Records are created on first submission and never
// deleted; resubmission overwrites the record and revokes prior verification.
type SocialProofRecord struct {
	Wallet          string    `json:"wallet"`
	XHandle         string    `json:"x_handle"`
	DiscordHandle   string    `json:"discord_handle"`
	XVerified       bool      `json:"x_verified"`
	DiscordVerified bool      `json:"discord_verified"`
	ShareVerified   bool      `json:"share_verified"`
	VerifiedAt      time.Time `json:"verified_at"` // zero = never verified
}

// FullyVerified reports whether all three attestation flags are set.
func (r *SocialProofRecord) FullyVerified() bool {
	return r.XVerified && r.DiscordVerified && r.ShareVerified
}

// Phase2Claim records the amount paid to a wallet at the moment of its
// phase 2 claim. The amount is frozen; later reputation changes do not
// alter it.
type Phase2Claim struct {
	Amount uint64 `json:"amount"`
	Tier   int    `json:"tier"`
}

// Phase1Status is the read-only phase 1 view for a single wallet.
type Phase1Status struct {
	Active   bool `json:"active"`
	Claimed  bool `json:"claimed"`
	Verified bool `json:"verified"`
	Eligible bool `json:"eligible"`
}

// Phase2Status is the read-only phase 2 view for a single wallet. Balance and
// the prospective reward are recomputed from the oracle on every call, even
// for wallets whose paid amount is already frozen.
type Phase2Status struct {
	Active            bool   `json:"active"`
	Claimed           bool   `json:"claimed"`
	Eligible          bool   `json:"eligible"`
	Balance           uint64 `json:"balance"`
	ProspectiveReward uint64 `json:"prospective_reward"`
	ProspectiveTier   int    `json:"prospective_tier"`
	PaidAmount        uint64 `json:"paid_amount,omitempty"`
	PaidTier          int    `json:"paid_tier,omitempty"`
}

// Stats is the aggregate distributor view.
type Stats struct {
	Participants   uint64 `json:"participants"`
	RemainingSlots uint64 `json:"remaining_slots"`
	Phase1Active   bool   `json:"phase1_active"`
	Phase2Active   bool   `json:"phase2_active"`
	Paused         bool   `json:"paused"`
	PoolBalance    uint64 `json:"pool_balance"`
}

// Snapshot is the full persisted engine state, loaded at startup. The layout
// must keep its meaning across code upgrades; schema changes go through
// explicit store migrations.
type Snapshot struct {
	Proofs       map[string]SocialProofRecord
	Phase1Claims map[string]uint64 // wallet -> participant ordinal
	Phase2Claims map[string]Phase2Claim
	Participants uint64
	Phase1Active bool
	Phase2Active bool
	Paused       bool
	Roles        map[Role]map[string]bool
}
