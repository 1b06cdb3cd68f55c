package airdrop

import (
	"context"
	"errors"
	"fmt"
)

// SetPhaseActive toggles a phase flag. Admin only.
func (e *Engine) SetPhaseActive(ctx context.Context, caller string, phase int, active bool) error {
	if caller != e.cfg.Admin {
		return ErrUnauthorized
	}
	if phase != 1 && phase != 2 {
		return fmt.Errorf("invalid phase %d", phase)
	}

	e.op.Lock()
	defer e.op.Unlock()

	e.state.Lock()
	if err := e.store.SetPhaseActive(ctx, phase, active); err != nil {
		e.state.Unlock()
		return fmt.Errorf("failed to persist phase flag: %w", err)
	}
	if phase == 1 {
		e.phase1Active = active
	} else {
		e.phase2Active = active
	}
	e.state.Unlock()

	e.log.Info("engine: phase toggled", "phase", phase, "active", active, "caller", caller)
	e.emit(ctx, Event{Type: EventPhaseToggled, Phase: phase, Active: active})
	return nil
}

// Pause stops all claim and proof-submission entry points. Pauser role only.
// Administrative and view operations remain available while paused.
func (e *Engine) Pause(ctx context.Context, caller string) error {
	return e.setPaused(ctx, caller, true)
}

// Unpause re-enables claim and proof-submission entry points. Pauser role only.
func (e *Engine) Unpause(ctx context.Context, caller string) error {
	return e.setPaused(ctx, caller, false)
}

func (e *Engine) setPaused(ctx context.Context, caller string, paused bool) error {
	e.op.Lock()
	defer e.op.Unlock()

	e.state.Lock()
	if !e.hasRole(caller, RolePauser) {
		e.state.Unlock()
		return ErrUnauthorized
	}
	if err := e.store.SetPaused(ctx, paused); err != nil {
		e.state.Unlock()
		return fmt.Errorf("failed to persist pause flag: %w", err)
	}
	e.paused = paused
	e.state.Unlock()

	evType := EventPaused
	if !paused {
		evType = EventUnpaused
	}
	e.log.Info("engine: pause flag changed", "paused", paused, "caller", caller)
	e.emit(ctx, Event{Type: evType})
	return nil
}

// EmergencyWithdraw moves tokens out of the pool to a recovery address.
// Compliance role only. Nothing about claim state changes.
func (e *Engine) EmergencyWithdraw(ctx context.Context, caller, to string, amount uint64) error {
	e.op.Lock()
	defer e.op.Unlock()

	e.state.RLock()
	authorized := e.hasRole(caller, RoleCompliance)
	e.state.RUnlock()
	if !authorized {
		return ErrUnauthorized
	}
	if to == "" {
		return errors.New("recipient is required")
	}
	if amount == 0 {
		return errors.New("amount must be greater than zero")
	}

	pool, err := e.ledger.BalanceOf(ctx, e.cfg.PoolAddress)
	if err != nil {
		return fmt.Errorf("failed to query pool balance: %w", err)
	}
	if pool < amount {
		return fmt.Errorf("withdrawal of %d exceeds pool balance %d", amount, pool)
	}

	if err := e.transfer(ctx, to, amount); err != nil {
		return fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}

	e.log.Warn("engine: emergency withdrawal", "to", to, "amount", amount, "caller", caller)
	return nil
}

// GrantRole adds wallet to a capability. Admin only.
func (e *Engine) GrantRole(ctx context.Context, caller string, role Role, wallet string) error {
	if caller != e.cfg.Admin {
		return ErrUnauthorized
	}
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}
	if wallet == "" {
		return errors.New("wallet is required")
	}

	e.op.Lock()
	defer e.op.Unlock()

	e.state.Lock()
	defer e.state.Unlock()
	if err := e.store.GrantRole(ctx, role, wallet); err != nil {
		return fmt.Errorf("failed to persist role grant: %w", err)
	}
	if e.roles[role] == nil {
		e.roles[role] = make(map[string]bool)
	}
	e.roles[role][wallet] = true
	e.log.Info("engine: role granted", "role", role, "wallet", wallet)
	return nil
}

// RevokeRole removes wallet from a capability. Admin only.
func (e *Engine) RevokeRole(ctx context.Context, caller string, role Role, wallet string) error {
	if caller != e.cfg.Admin {
		return ErrUnauthorized
	}
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}

	e.op.Lock()
	defer e.op.Unlock()

	e.state.Lock()
	defer e.state.Unlock()
	if err := e.store.RevokeRole(ctx, role, wallet); err != nil {
		return fmt.Errorf("failed to persist role revocation: %w", err)
	}
	delete(e.roles[role], wallet)
	e.log.Info("engine: role revoked", "role", role, "wallet", wallet)
	return nil
}

// AuthorizeUpgrade is the predicate the external upgrade delivery mechanism
// must call before swapping implementation code. It authorizes nothing by
// itself; the mechanics of replacement are outside the engine.
func (e *Engine) AuthorizeUpgrade(caller, target string) error {
	if target == "" {
		return ErrUnauthorizedUpgrade
	}
	e.state.RLock()
	authorized := e.hasRole(caller, RoleUpgrader)
	e.state.RUnlock()
	if !authorized {
		return ErrUnauthorizedUpgrade
	}
	e.log.Info("engine: upgrade authorized", "caller", caller, "target", target)
	return nil
}
