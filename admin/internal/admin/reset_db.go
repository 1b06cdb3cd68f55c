package admin

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/malbeclabs/airdrop/core/pkg/store"
)

// ResetDB drops all distributor tables from the database, including the
// goose version table, so a following --pg-migrate starts from scratch.
func ResetDB(log *slog.Logger, cfg store.PostgresConfig, dryRun, skipConfirm bool) error {
	ctx := context.Background()

	pool, err := store.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	// Query for all distributor tables in the public schema
	tableQuery := `
		SELECT tablename
		FROM pg_tables
		WHERE schemaname = 'public'
		  AND (tablename IN ('social_proofs', 'phase1_claims', 'phase2_claims',
		       'distributor_flags', 'role_members', 'events')
		       OR tablename = 'goose_db_version')
		ORDER BY tablename
	`

	rows, err := pool.Query(ctx, tableQuery)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read tables: %w", err)
	}

	if len(tables) == 0 {
		fmt.Println("No distributor tables found")
		return nil
	}

	fmt.Printf("⚠️  WARNING: This will DROP %d table(s) from database '%s':\n\n", len(tables), cfg.Database)
	for _, table := range tables {
		fmt.Printf("  - %s\n", table)
	}

	if dryRun {
		fmt.Println("\n[DRY RUN] Would drop the above tables")
		return nil
	}

	// Prompt for confirmation unless --yes flag is set
	if !skipConfirm {
		fmt.Printf("\n⚠️  This is a DESTRUCTIVE operation that cannot be undone!\n")
		fmt.Printf("Type 'yes' to confirm: ")

		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}

		response = strings.TrimSpace(strings.ToLower(response))
		if response != "yes" {
			fmt.Printf("\nConfirmation failed. Operation cancelled.\n")
			return nil
		}
		fmt.Println()
	}

	fmt.Println("Dropping tables...")
	for _, table := range tables {
		dropQuery := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)
		if _, err := pool.Exec(ctx, dropQuery); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
		fmt.Printf("  ✓ Dropped %s\n", table)
	}

	fmt.Printf("\nSuccessfully dropped %d table(s)\n", len(tables))
	return nil
}
