package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/malbeclabs/airdrop/api/metrics"
	"github.com/malbeclabs/airdrop/utils/pkg/retry"
)

// SolanaRPC wraps the solana-go RPC client methods the oracle uses.
type SolanaRPC interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment solanarpc.CommitmentType) (*solanarpc.GetBalanceResult, error)
}

// SolanaOracleConfig configures a reputation oracle backed by a Solana
// account balance.
type SolanaOracleConfig struct {
	Logger *slog.Logger
	RPC    SolanaRPC

	// Denominator divides the raw lamport balance into reputation units.
	// Defaults to 1e9 (whole SOL).
	Denominator uint64

	ReadRetry retry.Config
}

func (cfg *SolanaOracleConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.RPC == nil {
		return errors.New("solana rpc client is required")
	}
	if cfg.Denominator == 0 {
		cfg.Denominator = 1_000_000_000
	}
	if cfg.ReadRetry.MaxAttempts == 0 {
		cfg.ReadRetry = retry.DefaultConfig()
	}
	return nil
}

// SolanaOracle reads reputation balances from Solana. Every call hits the
// RPC endpoint; nothing is cached, so balance changes are visible on the
// next query.
type SolanaOracle struct {
	log *slog.Logger
	cfg SolanaOracleConfig
}

func NewSolanaOracle(cfg SolanaOracleConfig) (*SolanaOracle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SolanaOracle{log: cfg.Logger, cfg: cfg}, nil
}

func (o *SolanaOracle) BalanceOf(ctx context.Context, addr string) (uint64, error) {
	pubkey, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid wallet address %q: %w", addr, err)
	}

	start := time.Now()
	var balance uint64
	err = retry.Do(ctx, o.cfg.ReadRetry, func() error {
		result, err := o.cfg.RPC.GetBalance(ctx, pubkey, solanarpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		balance = result.Value / o.cfg.Denominator
		return nil
	})
	metrics.RecordLedgerRequest("oracle_balance_of", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to query reputation balance: %w", err)
	}

	o.log.Debug("oracle: balance", "wallet", addr, "balance", balance)
	return balance, nil
}
