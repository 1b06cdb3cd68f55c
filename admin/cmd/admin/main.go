package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/airdrop/admin/internal/admin"
	"github.com/malbeclabs/airdrop/core/pkg/store"
	"github.com/malbeclabs/airdrop/utils/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")

	// Postgres configuration
	pgHostFlag := flag.String("postgres-host", "localhost", "Postgres host (or set POSTGRES_HOST env var)")
	pgPortFlag := flag.String("postgres-port", "5432", "Postgres port (or set POSTGRES_PORT env var)")
	pgDatabaseFlag := flag.String("postgres-database", "airdrop", "Postgres database name (or set POSTGRES_DATABASE env var)")
	pgUsernameFlag := flag.String("postgres-username", "airdrop", "Postgres username (or set POSTGRES_USERNAME env var)")
	pgPasswordFlag := flag.String("postgres-password", "", "Postgres password (or set POSTGRES_PASSWORD env var)")
	pgSSLModeFlag := flag.String("postgres-sslmode", "disable", "Postgres sslmode (or set POSTGRES_SSLMODE env var)")

	// Commands
	pgMigrateFlag := flag.Bool("pg-migrate", false, "Run database migrations using goose")
	pgMigrateDownFlag := flag.Bool("pg-migrate-down", false, "Roll back the most recent database migration")
	pgMigrateStatusFlag := flag.Bool("pg-migrate-status", false, "Show database migration status")
	resetDBFlag := flag.Bool("reset-db", false, "Drop all distributor tables (including goose version table)")
	grantRoleFlag := flag.Bool("grant-role", false, "Grant a role membership directly in the database (break-glass)")
	revokeRoleFlag := flag.Bool("revoke-role", false, "Revoke a role membership directly in the database (break-glass)")
	dryRunFlag := flag.Bool("dry-run", false, "Dry run mode - show what would be done without actually executing")
	yesFlag := flag.Bool("yes", false, "Skip confirmation prompt (use with caution)")

	// Role command options
	roleFlag := flag.String("role", "", "Role name for --grant-role/--revoke-role (upgrader, pauser, operator, compliance)")
	walletFlag := flag.String("wallet", "", "Wallet for --grant-role/--revoke-role")

	flag.Parse()

	log := logger.New(*verboseFlag)

	// Override Postgres flags with environment variables if set
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		*pgHostFlag = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		*pgPortFlag = v
	}
	if v := os.Getenv("POSTGRES_DATABASE"); v != "" {
		*pgDatabaseFlag = v
	}
	if v := os.Getenv("POSTGRES_USERNAME"); v != "" {
		*pgUsernameFlag = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		*pgPasswordFlag = v
	}
	if v := os.Getenv("POSTGRES_SSLMODE"); v != "" {
		*pgSSLModeFlag = v
	}

	pgCfg := store.PostgresConfig{
		Host:     *pgHostFlag,
		Port:     *pgPortFlag,
		Database: *pgDatabaseFlag,
		Username: *pgUsernameFlag,
		Password: *pgPasswordFlag,
		SSLMode:  *pgSSLModeFlag,
	}

	// Execute commands
	if *pgMigrateFlag {
		return store.MigrateUp(log, pgCfg)
	}

	if *pgMigrateDownFlag {
		return store.MigrateDown(log, pgCfg)
	}

	if *pgMigrateStatusFlag {
		return store.MigrateStatus(log, pgCfg)
	}

	if *resetDBFlag {
		return admin.ResetDB(log, pgCfg, *dryRunFlag, *yesFlag)
	}

	if *grantRoleFlag {
		return admin.GrantRole(log, pgCfg, *roleFlag, *walletFlag)
	}

	if *revokeRoleFlag {
		return admin.RevokeRole(log, pgCfg, *roleFlag, *walletFlag)
	}

	flag.Usage()
	return fmt.Errorf("no command specified")
}
