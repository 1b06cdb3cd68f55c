package handlers

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"
)

// Signed request headers. The wallet signs a message binding the method,
// path and timestamp so a captured signature cannot be replayed against
// another endpoint or reused later.
const (
	HeaderWallet    = "X-Wallet"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"

	// maxTimestampSkew bounds how stale a signed request may be.
	maxTimestampSkew = 5 * time.Minute
)

type walletContextKey struct{}

// ContextWithWallet returns a new context with the authenticated wallet.
func ContextWithWallet(ctx context.Context, wallet string) context.Context {
	return context.WithValue(ctx, walletContextKey{}, wallet)
}

// WalletFromContext returns the authenticated wallet from the context.
func WalletFromContext(ctx context.Context) string {
	if wallet, ok := ctx.Value(walletContextKey{}).(string); ok {
		return wallet
	}
	return ""
}

// BuildAuthMessage builds the message a wallet must sign for a request.
func BuildAuthMessage(method, path, timestamp string) string {
	return fmt.Sprintf("airdrop-api:%s:%s:%s", method, path, timestamp)
}

// WalletAuth verifies the request signature headers and stores the wallet
// in the request context. With AuthDisabled set, the X-Wallet header is
// trusted as-is.
func (h *Handlers) WalletAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wallet := r.Header.Get(HeaderWallet)
		if wallet == "" {
			h.writeError(w, http.StatusUnauthorized, "missing_wallet", "X-Wallet header is required")
			return
		}

		if h.cfg.AuthDisabled {
			next.ServeHTTP(w, r.WithContext(ContextWithWallet(r.Context(), wallet)))
			return
		}

		// Validate public key format (Solana base58, 32-44 chars)
		if len(wallet) < 32 || len(wallet) > 44 {
			h.writeError(w, http.StatusUnauthorized, "invalid_wallet", "invalid public key format")
			return
		}

		timestamp := r.Header.Get(HeaderTimestamp)
		if timestamp == "" {
			h.writeError(w, http.StatusUnauthorized, "missing_timestamp", "X-Timestamp header is required")
			return
		}
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusUnauthorized, "invalid_timestamp", "X-Timestamp must be a unix timestamp")
			return
		}
		if skew := time.Since(time.Unix(ts, 0)); skew > maxTimestampSkew || skew < -maxTimestampSkew {
			h.writeError(w, http.StatusUnauthorized, "stale_timestamp", "request timestamp is outside the allowed window")
			return
		}

		signature := r.Header.Get(HeaderSignature)
		if signature == "" {
			h.writeError(w, http.StatusUnauthorized, "missing_signature", "X-Signature header is required")
			return
		}

		message := BuildAuthMessage(r.Method, r.URL.Path, timestamp)
		valid, err := verifyEd25519Signature(wallet, message, signature)
		if err != nil || !valid {
			h.log.Warn("invalid request signature", "wallet", wallet, "error", err)
			h.writeError(w, http.StatusUnauthorized, "invalid_signature", "signature verification failed")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithWallet(r.Context(), wallet)))
	})
}

// verifyEd25519Signature verifies an Ed25519 signature (used for Solana wallet auth)
func verifyEd25519Signature(publicKeyBase58, message, signatureBase64 string) (bool, error) {
	// Decode the public key from base58
	publicKeyBytes, err := base58.Decode(publicKeyBase58)
	if err != nil {
		return false, fmt.Errorf("failed to decode public key: %w", err)
	}

	if len(publicKeyBytes) != ed25519.PublicKeySize {
		return false, fmt.Errorf("invalid public key size: expected %d, got %d", ed25519.PublicKeySize, len(publicKeyBytes))
	}

	// Decode the signature from base64
	signatureBytes, err := base64.StdEncoding.DecodeString(signatureBase64)
	if err != nil {
		// Try URL-safe base64
		signatureBytes, err = base64.URLEncoding.DecodeString(signatureBase64)
		if err != nil {
			// Try raw base64 (without padding)
			signatureBytes, err = base64.RawStdEncoding.DecodeString(signatureBase64)
			if err != nil {
				return false, fmt.Errorf("failed to decode signature: %w", err)
			}
		}
	}

	if len(signatureBytes) != ed25519.SignatureSize {
		return false, fmt.Errorf("invalid signature size: expected %d, got %d", ed25519.SignatureSize, len(signatureBytes))
	}

	publicKey := ed25519.PublicKey(publicKeyBytes)
	valid := ed25519.Verify(publicKey, []byte(message), signatureBytes)

	return valid, nil
}

// GetIPFromRequest extracts the client IP, preferring proxy headers.
func GetIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
