package airdrop

import (
	"context"
	"errors"
	"fmt"
)

// SubmitProof records the wallet's social handles. A resubmission overwrites
// the prior record and revokes any verification the operator had granted.
func (e *Engine) SubmitProof(ctx context.Context, wallet, xHandle, discordHandle string) error {
	if wallet == "" {
		return errors.New("wallet is required")
	}
	if xHandle == "" || discordHandle == "" {
		return ErrInvalidSocialProof
	}

	e.op.Lock()
	defer e.op.Unlock()

	e.state.Lock()
	if e.paused {
		e.state.Unlock()
		return ErrPaused
	}

	rec := SocialProofRecord{
		Wallet:        wallet,
		XHandle:       xHandle,
		DiscordHandle: discordHandle,
	}

	if err := e.store.PutProof(ctx, rec); err != nil {
		e.state.Unlock()
		return fmt.Errorf("failed to persist proof: %w", err)
	}
	e.proofs[wallet] = rec
	e.state.Unlock()

	e.log.Debug("engine: proof submitted", "wallet", wallet)
	e.emit(ctx, Event{Type: EventProofSubmitted, Wallet: wallet})
	return nil
}

// VerifyProof sets the wallet's three attestation flags exactly as given and
// stamps the verification time. The call is authoritative, not incremental:
// a follow-up call with any flag false revokes full verification. Only
// identities holding RoleOperator may call it.
func (e *Engine) VerifyProof(ctx context.Context, operator, wallet string, xVerified, discordVerified, shareVerified bool) error {
	e.op.Lock()
	defer e.op.Unlock()

	e.state.Lock()
	if !e.hasRole(operator, RoleOperator) {
		e.state.Unlock()
		return ErrUnauthorized
	}

	rec, ok := e.proofs[wallet]
	if !ok || rec.XHandle == "" {
		e.state.Unlock()
		return ErrProofNotFound
	}

	rec.XVerified = xVerified
	rec.DiscordVerified = discordVerified
	rec.ShareVerified = shareVerified
	rec.VerifiedAt = e.clock.Now().UTC()

	if err := e.store.PutProof(ctx, rec); err != nil {
		e.state.Unlock()
		return fmt.Errorf("failed to persist verification: %w", err)
	}
	e.proofs[wallet] = rec
	e.state.Unlock()

	e.log.Info("engine: proof verified",
		"wallet", wallet,
		"operator", operator,
		"fully_verified", rec.FullyVerified(),
	)
	e.emit(ctx, Event{
		Type:            EventProofVerified,
		Wallet:          wallet,
		XVerified:       xVerified,
		DiscordVerified: discordVerified,
		ShareVerified:   shareVerified,
	})
	return nil
}

// Proof returns the wallet's social proof record, if any.
func (e *Engine) Proof(wallet string) (SocialProofRecord, bool) {
	e.state.RLock()
	defer e.state.RUnlock()
	rec, ok := e.proofs[wallet]
	return rec, ok
}
