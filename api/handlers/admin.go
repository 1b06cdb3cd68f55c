package handlers

import (
	"net/http"

	"github.com/malbeclabs/airdrop/core/pkg/airdrop"
)

// SetPhaseRequest is the body for POST /api/admin/phases.
type SetPhaseRequest struct {
	Phase  int  `json:"phase"`
	Active bool `json:"active"`
}

// PostSetPhase handles POST /api/admin/phases. Super-admin only.
func (h *Handlers) PostSetPhase(w http.ResponseWriter, r *http.Request) {
	caller := WalletFromContext(r.Context())

	var req SetPhaseRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Phase != 1 && req.Phase != 2 {
		h.writeError(w, http.StatusBadRequest, "invalid_phase", "phase must be 1 or 2")
		return
	}

	if err := h.engine.SetPhaseActive(r.Context(), caller, req.Phase, req.Active); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"phase": req.Phase, "active": req.Active})
}

// PostPause handles POST /api/admin/pause. Pauser role only.
func (h *Handlers) PostPause(w http.ResponseWriter, r *http.Request) {
	caller := WalletFromContext(r.Context())

	if err := h.engine.Pause(r.Context(), caller); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

// PostUnpause handles POST /api/admin/unpause. Pauser role only.
func (h *Handlers) PostUnpause(w http.ResponseWriter, r *http.Request) {
	caller := WalletFromContext(r.Context())

	if err := h.engine.Unpause(r.Context(), caller); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

// RoleRequest is the body for POST /api/admin/roles.
type RoleRequest struct {
	Action string `json:"action"` // "grant" or "revoke"
	Role   string `json:"role"`
	Wallet string `json:"wallet"`
}

// PostRole handles POST /api/admin/roles. Super-admin only.
func (h *Handlers) PostRole(w http.ResponseWriter, r *http.Request) {
	caller := WalletFromContext(r.Context())

	var req RoleRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Wallet == "" {
		h.writeError(w, http.StatusBadRequest, "missing_wallet", "wallet is required")
		return
	}

	role := airdrop.Role(req.Role)
	if !role.Valid() {
		h.writeError(w, http.StatusBadRequest, "invalid_role", "unknown role")
		return
	}
	var err error
	switch req.Action {
	case "grant":
		err = h.engine.GrantRole(r.Context(), caller, role, req.Wallet)
	case "revoke":
		err = h.engine.RevokeRole(r.Context(), caller, role, req.Wallet)
	default:
		h.writeError(w, http.StatusBadRequest, "invalid_action", "action must be grant or revoke")
		return
	}
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"action": req.Action,
		"role":   req.Role,
		"wallet": req.Wallet,
	})
}

// WithdrawRequest is the body for POST /api/admin/withdraw.
type WithdrawRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// PostWithdraw handles POST /api/admin/withdraw. Compliance role only;
// moves pool funds without touching any claim records.
func (h *Handlers) PostWithdraw(w http.ResponseWriter, r *http.Request) {
	caller := WalletFromContext(r.Context())

	var req WithdrawRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.To == "" {
		h.writeError(w, http.StatusBadRequest, "missing_recipient", "to is required")
		return
	}
	if req.Amount == 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_amount", "amount must be greater than zero")
		return
	}

	if err := h.engine.EmergencyWithdraw(r.Context(), caller, req.To, req.Amount); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"to": req.To, "amount": req.Amount})
}

// UpgradeRequest is the body for POST /api/admin/upgrade.
type UpgradeRequest struct {
	Target string `json:"target"`
}

// PostAuthorizeUpgrade handles POST /api/admin/upgrade. Checks the upgrade
// authorization predicate for the caller; performs no upgrade itself.
func (h *Handlers) PostAuthorizeUpgrade(w http.ResponseWriter, r *http.Request) {
	caller := WalletFromContext(r.Context())

	var req UpgradeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.engine.AuthorizeUpgrade(caller, req.Target); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"authorized": true, "target": req.Target})
}
