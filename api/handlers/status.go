package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/malbeclabs/airdrop/api/metrics"
	"github.com/malbeclabs/airdrop/core/pkg/tiers"
)

// GetPhase1Status handles GET /api/status/phase1/{wallet}.
func (h *Handlers) GetPhase1Status(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	h.writeJSON(w, http.StatusOK, h.engine.Phase1Status(wallet))
}

// GetPhase2Status handles GET /api/status/phase2/{wallet}. The reputation
// balance is read fresh from the oracle on every request.
func (h *Handlers) GetPhase2Status(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")

	st, err := h.engine.Phase2Status(r.Context(), wallet)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// GetStats handles GET /api/stats.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	metrics.UpdateDistributionGauges(stats.Participants, stats.RemainingSlots, stats.PoolBalance, stats.Paused)
	h.writeJSON(w, http.StatusOK, stats)
}

// TierPreviewResponse describes the reward a given balance would earn.
type TierPreviewResponse struct {
	Balance uint64 `json:"balance"`
	Amount  uint64 `json:"amount"`
	Tier    int    `json:"tier"`
}

// GetTierPreview handles GET /api/tiers/{balance}. Pure table lookup, no
// oracle involved.
func (h *Handlers) GetTierPreview(w http.ResponseWriter, r *http.Request) {
	balance, err := strconv.ParseUint(chi.URLParam(r, "balance"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_balance", "balance must be a non-negative integer")
		return
	}

	amount, tier := tiers.RewardFor(balance)
	h.writeJSON(w, http.StatusOK, TierPreviewResponse{
		Balance: balance,
		Amount:  amount,
		Tier:    tier,
	})
}
