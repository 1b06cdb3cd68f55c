package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/malbeclabs/airdrop/api/metrics"
	"github.com/malbeclabs/airdrop/utils/pkg/retry"
)

// RPCLedgerConfig configures a JSON-RPC 2.0 token ledger client.
type RPCLedgerConfig struct {
	Logger *slog.Logger
	URL    string

	// HTTPClient is optional; a 10s-timeout client is used when nil.
	HTTPClient *http.Client

	// ReadRetry controls retry for balance queries. Transfers are never
	// retried: a transfer whose response was lost may still have been
	// applied, and the engine treats transfer failure as terminal.
	ReadRetry retry.Config
}

func (cfg *RPCLedgerConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.URL == "" {
		return errors.New("ledger rpc url is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.ReadRetry.MaxAttempts == 0 {
		cfg.ReadRetry = retry.DefaultConfig()
	}
	return nil
}

// RPCLedger talks JSON-RPC 2.0 to a remote token ledger exposing balanceOf
// and transfer methods.
type RPCLedger struct {
	log *slog.Logger
	cfg RPCLedgerConfig
}

func NewRPCLedger(cfg RPCLedgerConfig) (*RPCLedger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RPCLedger{log: cfg.Logger, cfg: cfg}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (l *RPCLedger) BalanceOf(ctx context.Context, addr string) (uint64, error) {
	start := time.Now()
	balance, err := l.balanceOf(ctx, addr)
	metrics.RecordLedgerRequest("balance_of", time.Since(start), err)
	return balance, err
}

func (l *RPCLedger) balanceOf(ctx context.Context, addr string) (uint64, error) {
	var balance uint64
	err := retry.Do(ctx, l.cfg.ReadRetry, func() error {
		var result struct {
			Balance uint64 `json:"balance"`
		}
		if err := l.call(ctx, "ledger_balanceOf", []any{addr}, &result); err != nil {
			return err
		}
		balance = result.Balance
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query balance: %w", err)
	}
	return balance, nil
}

func (l *RPCLedger) Transfer(ctx context.Context, to string, amount uint64) error {
	start := time.Now()
	err := l.transfer(ctx, to, amount)
	metrics.RecordLedgerRequest("transfer", time.Since(start), err)
	return err
}

func (l *RPCLedger) transfer(ctx context.Context, to string, amount uint64) error {
	var result struct {
		Success bool `json:"success"`
	}
	if err := l.call(ctx, "ledger_transfer", []any{to, amount}, &result); err != nil {
		return fmt.Errorf("failed to transfer: %w", err)
	}
	if !result.Success {
		return errors.New("ledger rejected transfer")
	}
	return nil
}

func (l *RPCLedger) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error: %s (code %d)", rpcResp.Error.Message, rpcResp.Error.Code)
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}
