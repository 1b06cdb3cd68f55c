// Package store persists distributor state in Postgres so claim records
// survive restarts and code upgrades. Schema changes go through goose
// migrations; the stored layout must never be reinterpreted in place.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/malbeclabs/airdrop/core/pkg/airdrop"
)

// PostgresConfig holds connection settings for the distributor database.
type PostgresConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

func (cfg *PostgresConfig) Validate() error {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == "" {
		cfg.Port = "5432"
	}
	if cfg.Database == "" {
		return errors.New("database name is required")
	}
	if cfg.Username == "" {
		return errors.New("database username is required")
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	return nil
}

// ConnString returns the pgx connection string.
func (cfg *PostgresConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)
}

// NewPool connects a pgx pool and pings it.
func NewPool(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

type Config struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Pool == nil {
		return errors.New("postgres pool is required")
	}
	return nil
}

// Postgres implements the engine's Store interface on a pgx pool.
type Postgres struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewPostgres(cfg Config) (*Postgres, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Postgres{log: cfg.Logger, pool: cfg.Pool}, nil
}

// Load reads the full distributor state. The per-table queries run
// concurrently; each goroutine fills a disjoint part of the snapshot.
func (s *Postgres) Load(ctx context.Context) (*airdrop.Snapshot, error) {
	snap := &airdrop.Snapshot{
		Proofs:       make(map[string]airdrop.SocialProofRecord),
		Phase1Claims: make(map[string]uint64),
		Phase2Claims: make(map[string]airdrop.Phase2Claim),
		Roles:        make(map[airdrop.Role]map[string]bool),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.loadProofs(ctx, snap) })
	g.Go(func() error { return s.loadPhase1Claims(ctx, snap) })
	g.Go(func() error { return s.loadPhase2Claims(ctx, snap) })
	g.Go(func() error { return s.loadFlags(ctx, snap) })
	g.Go(func() error { return s.loadRoles(ctx, snap) })

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Debug("store: loaded snapshot",
		"proofs", len(snap.Proofs),
		"phase1_claims", len(snap.Phase1Claims),
		"phase2_claims", len(snap.Phase2Claims),
	)
	return snap, nil
}

func (s *Postgres) loadProofs(ctx context.Context, snap *airdrop.Snapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT wallet, x_handle, discord_handle, x_verified, discord_verified, share_verified, verified_at
		FROM social_proofs`)
	if err != nil {
		return fmt.Errorf("failed to load social proofs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec airdrop.SocialProofRecord
		var verifiedAt sql.NullTime
		if err := rows.Scan(&rec.Wallet, &rec.XHandle, &rec.DiscordHandle,
			&rec.XVerified, &rec.DiscordVerified, &rec.ShareVerified, &verifiedAt); err != nil {
			return fmt.Errorf("failed to scan social proof: %w", err)
		}
		if verifiedAt.Valid {
			rec.VerifiedAt = verifiedAt.Time
		}
		snap.Proofs[rec.Wallet] = rec
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate social proofs: %w", err)
	}
	return nil
}

func (s *Postgres) loadPhase1Claims(ctx context.Context, snap *airdrop.Snapshot) error {
	rows, err := s.pool.Query(ctx, `SELECT wallet, ordinal FROM phase1_claims`)
	if err != nil {
		return fmt.Errorf("failed to load phase 1 claims: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var wallet string
		var ordinal int64
		if err := rows.Scan(&wallet, &ordinal); err != nil {
			return fmt.Errorf("failed to scan phase 1 claim: %w", err)
		}
		snap.Phase1Claims[wallet] = uint64(ordinal)
		if uint64(ordinal) > snap.Participants {
			snap.Participants = uint64(ordinal)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate phase 1 claims: %w", err)
	}
	return nil
}

func (s *Postgres) loadPhase2Claims(ctx context.Context, snap *airdrop.Snapshot) error {
	rows, err := s.pool.Query(ctx, `SELECT wallet, amount, tier FROM phase2_claims`)
	if err != nil {
		return fmt.Errorf("failed to load phase 2 claims: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var wallet string
		var amount int64
		var tier int
		if err := rows.Scan(&wallet, &amount, &tier); err != nil {
			return fmt.Errorf("failed to scan phase 2 claim: %w", err)
		}
		snap.Phase2Claims[wallet] = airdrop.Phase2Claim{Amount: uint64(amount), Tier: tier}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate phase 2 claims: %w", err)
	}
	return nil
}

func (s *Postgres) loadFlags(ctx context.Context, snap *airdrop.Snapshot) error {
	flags := map[string]*bool{
		"phase1_active": &snap.Phase1Active,
		"phase2_active": &snap.Phase2Active,
		"paused":        &snap.Paused,
	}
	rows, err := s.pool.Query(ctx, `SELECT name, value FROM distributor_flags`)
	if err != nil {
		return fmt.Errorf("failed to load flags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var value bool
		if err := rows.Scan(&name, &value); err != nil {
			return fmt.Errorf("failed to scan flag: %w", err)
		}
		if dst, ok := flags[name]; ok {
			*dst = value
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate flags: %w", err)
	}
	return nil
}

func (s *Postgres) loadRoles(ctx context.Context, snap *airdrop.Snapshot) error {
	rows, err := s.pool.Query(ctx, `SELECT role, wallet FROM role_members`)
	if err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role, wallet string
		if err := rows.Scan(&role, &wallet); err != nil {
			return fmt.Errorf("failed to scan role member: %w", err)
		}
		r := airdrop.Role(role)
		if snap.Roles[r] == nil {
			snap.Roles[r] = make(map[string]bool)
		}
		snap.Roles[r][wallet] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate role members: %w", err)
	}
	return nil
}

func (s *Postgres) PutProof(ctx context.Context, rec airdrop.SocialProofRecord) error {
	var verifiedAt sql.NullTime
	if !rec.VerifiedAt.IsZero() {
		verifiedAt = sql.NullTime{Time: rec.VerifiedAt, Valid: true}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO social_proofs (wallet, x_handle, discord_handle, x_verified, discord_verified, share_verified, verified_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (wallet) DO UPDATE SET
			x_handle = EXCLUDED.x_handle,
			discord_handle = EXCLUDED.discord_handle,
			x_verified = EXCLUDED.x_verified,
			discord_verified = EXCLUDED.discord_verified,
			share_verified = EXCLUDED.share_verified,
			verified_at = EXCLUDED.verified_at,
			updated_at = now()`,
		rec.Wallet, rec.XHandle, rec.DiscordHandle,
		rec.XVerified, rec.DiscordVerified, rec.ShareVerified, verifiedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert social proof: %w", err)
	}
	return nil
}

func (s *Postgres) PutPhase1Claim(ctx context.Context, wallet string, ordinal, amount uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO phase1_claims (wallet, ordinal, amount) VALUES ($1, $2, $3)`,
		wallet, int64(ordinal), int64(amount))
	if err != nil {
		return fmt.Errorf("failed to insert phase 1 claim: %w", err)
	}
	return nil
}

func (s *Postgres) DeletePhase1Claim(ctx context.Context, wallet string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM phase1_claims WHERE wallet = $1`, wallet)
	if err != nil {
		return fmt.Errorf("failed to delete phase 1 claim: %w", err)
	}
	return nil
}

func (s *Postgres) PutPhase2Claim(ctx context.Context, wallet string, amount uint64, tier int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO phase2_claims (wallet, amount, tier) VALUES ($1, $2, $3)`,
		wallet, int64(amount), tier)
	if err != nil {
		return fmt.Errorf("failed to insert phase 2 claim: %w", err)
	}
	return nil
}

func (s *Postgres) DeletePhase2Claim(ctx context.Context, wallet string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM phase2_claims WHERE wallet = $1`, wallet)
	if err != nil {
		return fmt.Errorf("failed to delete phase 2 claim: %w", err)
	}
	return nil
}

func (s *Postgres) SetPhaseActive(ctx context.Context, phase int, active bool) error {
	name := "phase1_active"
	if phase == 2 {
		name = "phase2_active"
	}
	return s.setFlag(ctx, name, active)
}

func (s *Postgres) SetPaused(ctx context.Context, paused bool) error {
	return s.setFlag(ctx, "paused", paused)
}

func (s *Postgres) setFlag(ctx context.Context, name string, value bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO distributor_flags (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`, name, value)
	if err != nil {
		return fmt.Errorf("failed to set flag %s: %w", name, err)
	}
	return nil
}

func (s *Postgres) GrantRole(ctx context.Context, role airdrop.Role, wallet string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO role_members (role, wallet) VALUES ($1, $2)
		ON CONFLICT (role, wallet) DO NOTHING`, string(role), wallet)
	if err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}
	return nil
}

func (s *Postgres) RevokeRole(ctx context.Context, role airdrop.Role, wallet string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM role_members WHERE role = $1 AND wallet = $2`, string(role), wallet)
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	return nil
}

func (s *Postgres) RecordEvent(ctx context.Context, ev airdrop.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO events (id, type, payload, at) VALUES ($1, $2, $3, $4)`,
		ev.ID, string(ev.Type), payload, ev.At)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}
