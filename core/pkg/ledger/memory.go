// Package ledger provides token ledger and reputation oracle clients for the
// distribution engine: an in-memory ledger for tests and local development, a
// JSON-RPC client for a remote token ledger, and a Solana RPC reputation
// oracle.
package ledger

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLedger is a map-backed token ledger. It satisfies both the engine's
// TokenLedger and ReputationOracle interfaces and supports failure injection,
// which the engine tests use to exercise rollback paths.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]uint64
	pool     string

	// TransferErr, when non-nil, is returned by every Transfer call.
	TransferErr error
}

// NewMemoryLedger creates a ledger whose pool address holds the given
// initial balance.
func NewMemoryLedger(pool string, poolBalance uint64) *MemoryLedger {
	return &MemoryLedger{
		balances: map[string]uint64{pool: poolBalance},
		pool:     pool,
	}
}

func (l *MemoryLedger) BalanceOf(_ context.Context, addr string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr], nil
}

// Transfer moves tokens from the pool to the recipient.
func (l *MemoryLedger) Transfer(_ context.Context, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.TransferErr != nil {
		return l.TransferErr
	}
	if l.balances[l.pool] < amount {
		return fmt.Errorf("pool balance %d below transfer amount %d", l.balances[l.pool], amount)
	}
	l.balances[l.pool] -= amount
	l.balances[to] += amount
	return nil
}

// SetBalance overwrites an address balance. Test and dev helper.
func (l *MemoryLedger) SetBalance(addr string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] = amount
}
