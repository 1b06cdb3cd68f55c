// Package handlers implements the HTTP surface of the airdrop API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/malbeclabs/airdrop/core/pkg/airdrop"
)

type Config struct {
	Logger *slog.Logger
	Engine *airdrop.Engine

	// AuthDisabled skips wallet signature verification and trusts the
	// X-Wallet header as-is. Local development only.
	AuthDisabled bool
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Engine == nil {
		return errors.New("engine is required")
	}
	return nil
}

// Handlers holds the request handlers for the airdrop API.
type Handlers struct {
	log    *slog.Logger
	engine *airdrop.Engine
	cfg    Config
}

func New(cfg Config) (*Handlers, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Handlers{log: cfg.Logger, engine: cfg.Engine, cfg: cfg}, nil
}

// ErrorResponse is the JSON body returned for all request failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeEngineError maps distributor errors onto HTTP status codes.
func (h *Handlers) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, airdrop.ErrPaused):
		h.writeError(w, http.StatusServiceUnavailable, "paused", err.Error())
	case errors.Is(err, airdrop.ErrPhaseNotActive):
		h.writeError(w, http.StatusConflict, "phase_not_active", err.Error())
	case errors.Is(err, airdrop.ErrAlreadyClaimed):
		h.writeError(w, http.StatusConflict, "already_claimed", err.Error())
	case errors.Is(err, airdrop.ErrPhase1Full):
		h.writeError(w, http.StatusConflict, "phase1_full", err.Error())
	case errors.Is(err, airdrop.ErrSocialProofNotVerified):
		h.writeError(w, http.StatusForbidden, "social_proof_not_verified", err.Error())
	case errors.Is(err, airdrop.ErrInsufficientRON):
		h.writeError(w, http.StatusForbidden, "insufficient_reputation", err.Error())
	case errors.Is(err, airdrop.ErrInvalidRONBalance):
		h.writeError(w, http.StatusForbidden, "invalid_reputation_balance", err.Error())
	case errors.Is(err, airdrop.ErrInsufficientContractBalance):
		h.writeError(w, http.StatusConflict, "insufficient_pool_balance", err.Error())
	case errors.Is(err, airdrop.ErrInvalidSocialProof):
		h.writeError(w, http.StatusBadRequest, "invalid_social_proof", err.Error())
	case errors.Is(err, airdrop.ErrProofNotFound):
		h.writeError(w, http.StatusNotFound, "proof_not_found", err.Error())
	case errors.Is(err, airdrop.ErrUnauthorized), errors.Is(err, airdrop.ErrUnauthorizedUpgrade):
		h.writeError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, airdrop.ErrReentrantCall):
		h.writeError(w, http.StatusConflict, "claim_in_progress", err.Error())
	case errors.Is(err, airdrop.ErrTransferFailed):
		h.writeError(w, http.StatusBadGateway, "transfer_failed", err.Error())
	default:
		h.log.Error("internal error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return false
	}
	return true
}
