package airdrop

import "errors"

// Claim and registry failures surfaced to callers. Each kind is terminal for
// the call it occurs in; callers use errors.Is to decide whether a retry can
// ever succeed (for example after verification) or never will (AlreadyClaimed).
var (
	// ErrPaused is returned by claim and proof-submission entry points while
	// the distributor is paused. Administrative and view operations still work.
	ErrPaused = errors.New("distributor is paused")

	// ErrPhaseNotActive is returned when a claim targets a phase whose active
	// flag is false.
	ErrPhaseNotActive = errors.New("phase is not active")

	// ErrAlreadyClaimed is returned when the wallet already has a recorded
	// claim for the phase.
	ErrAlreadyClaimed = errors.New("wallet has already claimed")

	// ErrPhase1Full is returned once the participant counter has reached the
	// phase 1 cap.
	ErrPhase1Full = errors.New("phase 1 participant cap reached")

	// ErrSocialProofNotVerified is returned when a wallet attempts a phase 1
	// claim without all three verification flags set.
	ErrSocialProofNotVerified = errors.New("social proof not fully verified")

	// ErrInsufficientRON is returned when the reputation balance is below the
	// phase 2 minimum threshold.
	ErrInsufficientRON = errors.New("reputation balance below phase 2 minimum")

	// ErrInvalidRONBalance is returned when a balance meets the minimum but
	// resolves to a zero reward. Guards against a degenerate tier table.
	ErrInvalidRONBalance = errors.New("reputation balance resolves to zero reward")

	// ErrInsufficientContractBalance is returned when the pool cannot cover
	// the computed payout.
	ErrInsufficientContractBalance = errors.New("pool balance insufficient for payout")

	// ErrInvalidSocialProof is returned when a proof submission carries an
	// empty handle.
	ErrInvalidSocialProof = errors.New("social proof handles must not be empty")

	// ErrProofNotFound is returned when verification targets a wallet with no
	// submitted proof record.
	ErrProofNotFound = errors.New("no social proof record for wallet")

	// ErrUnauthorized is returned for any role-gated call by a non-member.
	ErrUnauthorized = errors.New("caller does not hold the required role")

	// ErrUnauthorizedUpgrade is returned when the upgrade predicate is called
	// with an empty target or by a caller without the upgrader role.
	ErrUnauthorizedUpgrade = errors.New("upgrade not authorized")

	// ErrReentrantCall is returned when a claim entry point is re-entered
	// while a token transfer is in flight.
	ErrReentrantCall = errors.New("reentrant claim rejected")

	// ErrTransferFailed wraps a token ledger transfer failure. The enclosing
	// claim is rolled back in full before this is returned.
	ErrTransferFailed = errors.New("token transfer failed")
)
