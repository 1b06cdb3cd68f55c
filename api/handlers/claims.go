package handlers

import (
	"net/http"

	"github.com/malbeclabs/airdrop/api/metrics"
	"github.com/malbeclabs/airdrop/core/pkg/airdrop"
)

// Phase1ClaimResponse is returned on a successful phase 1 claim.
type Phase1ClaimResponse struct {
	Wallet  string `json:"wallet"`
	Amount  uint64 `json:"amount"`
	Ordinal uint64 `json:"ordinal"`
}

// PostClaimPhase1 handles POST /api/claims/phase1 for the authenticated
// wallet.
func (h *Handlers) PostClaimPhase1(w http.ResponseWriter, r *http.Request) {
	wallet := WalletFromContext(r.Context())

	ordinal, err := h.engine.ClaimPhase1(r.Context(), wallet)
	metrics.RecordClaim("1", airdrop.Phase1Reward, err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, Phase1ClaimResponse{
		Wallet:  wallet,
		Amount:  airdrop.Phase1Reward,
		Ordinal: ordinal,
	})
}

// Phase2ClaimResponse is returned on a successful phase 2 claim.
type Phase2ClaimResponse struct {
	Wallet string `json:"wallet"`
	Amount uint64 `json:"amount"`
	Tier   int    `json:"tier"`
}

// PostClaimPhase2 handles POST /api/claims/phase2 for the authenticated
// wallet.
func (h *Handlers) PostClaimPhase2(w http.ResponseWriter, r *http.Request) {
	wallet := WalletFromContext(r.Context())

	claim, err := h.engine.ClaimPhase2(r.Context(), wallet)
	metrics.RecordClaim("2", claim.Amount, err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, Phase2ClaimResponse{
		Wallet: wallet,
		Amount: claim.Amount,
		Tier:   claim.Tier,
	})
}
