package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/malbeclabs/airdrop/api/metrics"
	"github.com/malbeclabs/airdrop/core/pkg/airdrop"
)

// SubmitProofRequest is the body for POST /api/proofs.
type SubmitProofRequest struct {
	XHandle       string `json:"x_handle"`
	DiscordHandle string `json:"discord_handle"`
}

// ProofResponse describes a wallet's social proof record.
type ProofResponse struct {
	Wallet          string     `json:"wallet"`
	XHandle         string     `json:"x_handle"`
	DiscordHandle   string     `json:"discord_handle"`
	XVerified       bool       `json:"x_verified"`
	DiscordVerified bool       `json:"discord_verified"`
	ShareVerified   bool       `json:"share_verified"`
	FullyVerified   bool       `json:"fully_verified"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
}

// PostProof handles POST /api/proofs. The authenticated wallet submits or
// resubmits its social proof handles.
func (h *Handlers) PostProof(w http.ResponseWriter, r *http.Request) {
	wallet := WalletFromContext(r.Context())

	var req SubmitProofRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.engine.SubmitProof(r.Context(), wallet, req.XHandle, req.DiscordHandle); err != nil {
		h.writeEngineError(w, err)
		return
	}
	metrics.ProofsSubmittedTotal.Inc()

	rec, _ := h.engine.Proof(wallet)
	h.writeJSON(w, http.StatusCreated, proofResponse(rec))
}

// VerifyProofRequest is the body for POST /api/proofs/{wallet}/verify.
type VerifyProofRequest struct {
	XVerified       bool `json:"x_verified"`
	DiscordVerified bool `json:"discord_verified"`
	ShareVerified   bool `json:"share_verified"`
}

// PostVerifyProof handles POST /api/proofs/{wallet}/verify. The caller must
// hold the operator role; the flags are applied exactly as sent.
func (h *Handlers) PostVerifyProof(w http.ResponseWriter, r *http.Request) {
	operator := WalletFromContext(r.Context())
	wallet := chi.URLParam(r, "wallet")

	var req VerifyProofRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := h.engine.VerifyProof(r.Context(), operator, wallet, req.XVerified, req.DiscordVerified, req.ShareVerified)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	metrics.ProofsVerifiedTotal.Inc()

	rec, _ := h.engine.Proof(wallet)
	h.writeJSON(w, http.StatusOK, proofResponse(rec))
}

// GetProof handles GET /api/proofs/{wallet}.
func (h *Handlers) GetProof(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")

	rec, ok := h.engine.Proof(wallet)
	if !ok {
		h.writeError(w, http.StatusNotFound, "proof_not_found", "no social proof for wallet")
		return
	}
	h.writeJSON(w, http.StatusOK, proofResponse(rec))
}

func proofResponse(rec airdrop.SocialProofRecord) ProofResponse {
	resp := ProofResponse{
		Wallet:          rec.Wallet,
		XHandle:         rec.XHandle,
		DiscordHandle:   rec.DiscordHandle,
		XVerified:       rec.XVerified,
		DiscordVerified: rec.DiscordVerified,
		ShareVerified:   rec.ShareVerified,
		FullyVerified:   rec.FullyVerified(),
	}
	if !rec.VerifiedAt.IsZero() {
		verifiedAt := rec.VerifiedAt
		resp.VerifiedAt = &verifiedAt
	}
	return resp
}
