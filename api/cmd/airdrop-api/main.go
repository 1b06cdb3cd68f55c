package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack"
	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/airdrop/api/metrics"
	"github.com/malbeclabs/airdrop/api/server"
	"github.com/malbeclabs/airdrop/core/pkg/airdrop"
	"github.com/malbeclabs/airdrop/core/pkg/ledger"
	"github.com/malbeclabs/airdrop/core/pkg/store"
	slacknotify "github.com/malbeclabs/airdrop/notify/slack"
	"github.com/malbeclabs/airdrop/utils/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultListenAddr  = "0.0.0.0:8080"
	defaultMetricsAddr = "0.0.0.0:0"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	enablePprofFlag := flag.Bool("enable-pprof", false, "Enable pprof server")
	listenAddrFlag := flag.String("listen-addr", defaultListenAddr, "Address to listen on for API requests")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics")
	allowedOriginsFlag := flag.StringSlice("allowed-origins", nil, "CORS origins allowed to call the API (or set ALLOWED_ORIGINS env var, comma-separated)")
	authDisabledFlag := flag.Bool("auth-disabled", false, "Disable wallet signature verification (local development only)")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 30*time.Second, "Maximum time to wait for in-flight requests during graceful shutdown")

	// Postgres configuration
	pgHostFlag := flag.String("postgres-host", "localhost", "Postgres host (or set POSTGRES_HOST env var)")
	pgPortFlag := flag.String("postgres-port", "5432", "Postgres port (or set POSTGRES_PORT env var)")
	pgDatabaseFlag := flag.String("postgres-database", "airdrop", "Postgres database name (or set POSTGRES_DATABASE env var)")
	pgUsernameFlag := flag.String("postgres-username", "airdrop", "Postgres username (or set POSTGRES_USERNAME env var)")
	pgPasswordFlag := flag.String("postgres-password", "", "Postgres password (or set POSTGRES_PASSWORD env var)")
	pgSSLModeFlag := flag.String("postgres-sslmode", "disable", "Postgres sslmode (or set POSTGRES_SSLMODE env var)")
	pgMigrateFlag := flag.Bool("pg-migrate", false, "Run database migrations before serving")

	// Token ledger and reputation oracle
	ledgerURLFlag := flag.String("ledger-rpc-url", "", "Token ledger JSON-RPC URL (or set LEDGER_RPC_URL env var)")
	solanaURLFlag := flag.String("solana-rpc-url", "https://api.mainnet-beta.solana.com", "Solana RPC URL for reputation balances (or set SOLANA_RPC_URL env var)")
	poolAddressFlag := flag.String("pool-address", "", "Ledger address holding the distribution pool (or set POOL_ADDRESS env var)")
	adminWalletFlag := flag.String("admin-wallet", "", "Super-administrator wallet (or set ADMIN_WALLET env var)")

	// Slack notifications
	slackChannelFlag := flag.String("slack-channel", "", "Slack channel for distribution notifications (or set SLACK_CHANNEL env var; requires SLACK_BOT_TOKEN)")

	flag.Parse()

	// A .env file is optional; ignore a missing one.
	_ = godotenv.Load()

	log := logger.New(*verboseFlag)

	// Override flags with environment variables if set
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
	if v := os.Getenv("LEDGER_RPC_URL"); v != "" {
		*ledgerURLFlag = v
	}
	if v := os.Getenv("SOLANA_RPC_URL"); v != "" {
		*solanaURLFlag = v
	}
	if v := os.Getenv("POOL_ADDRESS"); v != "" {
		*poolAddressFlag = v
	}
	if v := os.Getenv("ADMIN_WALLET"); v != "" {
		*adminWalletFlag = v
	}
	if v := os.Getenv("SLACK_CHANNEL"); v != "" {
		*slackChannelFlag = v
	}
	if v, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok && len(*allowedOriginsFlag) == 0 {
		*allowedOriginsFlag = splitOrigins(v)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		env := os.Getenv("SENTRY_ENVIRONMENT")
		if env == "" {
			env = "development"
		}
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: env,
			Release:     version,
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Start pprof server if enabled
	if *enablePprofFlag {
		go func() {
			log.Info("starting pprof server", "address", "localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				log.Error("failed to start pprof server", "error", err)
			}
		}()
	}

	// Start metrics server
	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pgCfg := store.PostgresConfig{
		Host:     *pgHostFlag,
		Port:     *pgPortFlag,
		Database: *pgDatabaseFlag,
		Username: *pgUsernameFlag,
		Password: *pgPasswordFlag,
		SSLMode:  *pgSSLModeFlag,
	}

	if *pgMigrateFlag {
		if err := store.MigrateUp(log, pgCfg); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := store.NewPool(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	st, err := store.NewPostgres(store.Config{Logger: log, Pool: pool})
	if err != nil {
		return err
	}

	tokenLedger, err := ledger.NewRPCLedger(ledger.RPCLedgerConfig{
		Logger: log,
		URL:    *ledgerURLFlag,
	})
	if err != nil {
		return err
	}

	oracle, err := ledger.NewSolanaOracle(ledger.SolanaOracleConfig{
		Logger: log,
		RPC:    solanarpc.New(*solanaURLFlag),
	})
	if err != nil {
		return err
	}

	engine, err := airdrop.New(ctx, airdrop.Config{
		Logger:      log,
		Ledger:      tokenLedger,
		Oracle:      oracle,
		Store:       st,
		PoolAddress: *poolAddressFlag,
		Admin:       *adminWalletFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize distributor engine: %w", err)
	}

	if *slackChannelFlag != "" {
		botToken := os.Getenv("SLACK_BOT_TOKEN")
		if botToken == "" {
			return fmt.Errorf("--slack-channel requires the SLACK_BOT_TOKEN env var")
		}
		notifier, err := slacknotify.New(slacknotify.Config{
			Logger:  log,
			Client:  slack.New(botToken),
			Channel: *slackChannelFlag,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize slack notifier: %w", err)
		}
		engine.Subscribe(notifier.Sink())
		defer notifier.Close()
		log.Info("slack notifications enabled", "channel", *slackChannelFlag)
	}

	srv, err := server.New(server.Config{
		Logger:          log,
		Engine:          engine,
		ListenAddr:      *listenAddrFlag,
		ShutdownTimeout: *shutdownTimeoutFlag,
		AllowedOrigins:  *allowedOriginsFlag,
		AuthDisabled:    *authDisabledFlag,
		VersionInfo: server.VersionInfo{
			Version: version,
			Commit:  commit,
			Date:    date,
		},
	})
	if err != nil {
		return err
	}

	if *authDisabledFlag {
		log.Warn("wallet signature verification is DISABLED; do not run this in production")
	}

	log.Info("airdrop api listening", "address", *listenAddrFlag, "version", version)
	return srv.Run(ctx)
}

func splitOrigins(v string) []string {
	var origins []string
	for _, o := range strings.Split(v, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
