package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malbeclabs/airdrop/core/pkg/airdrop"
	"github.com/malbeclabs/airdrop/core/pkg/store"
)

func openStore(log *slog.Logger, cfg store.PostgresConfig) (*store.Postgres, *pgxpool.Pool, error) {
	pool, err := store.NewPool(context.Background(), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	st, err := store.NewPostgres(store.Config{Logger: log, Pool: pool})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool, nil
}

// GrantRole writes a role membership directly to the database, bypassing the
// API's signature checks. Break-glass only: the running API will not see the
// change until it restarts and reloads its snapshot.
func GrantRole(log *slog.Logger, cfg store.PostgresConfig, roleName, wallet string) error {
	role := airdrop.Role(roleName)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q (valid: upgrader, pauser, operator, compliance)", roleName)
	}
	if wallet == "" {
		return fmt.Errorf("wallet is required")
	}

	st, pool, err := openStore(log, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := st.GrantRole(context.Background(), role, wallet); err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}
	log.Info("role granted", "role", role, "wallet", wallet)
	return nil
}

// RevokeRole removes a role membership directly from the database.
func RevokeRole(log *slog.Logger, cfg store.PostgresConfig, roleName, wallet string) error {
	role := airdrop.Role(roleName)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q (valid: upgrader, pauser, operator, compliance)", roleName)
	}
	if wallet == "" {
		return fmt.Errorf("wallet is required")
	}

	st, pool, err := openStore(log, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := st.RevokeRole(context.Background(), role, wallet); err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	log.Info("role revoked", "role", role, "wallet", wallet)
	return nil
}
