package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/smartpay/internal/completion/gemini"
	"github.com/MarkoPoloResearchLab/smartpay/internal/ethwallet"
	"github.com/MarkoPoloResearchLab/smartpay/internal/marketapi"
	"github.com/MarkoPoloResearchLab/smartpay/internal/netconfig"
	"github.com/MarkoPoloResearchLab/smartpay/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/chat"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/payment"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/txledger"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/wallet"
)

const (
	flagListenAddr         = "listen-addr"
	flagDatabaseURL        = "database-url"
	flagAllowedOrigins     = "allowed-origins"
	flagSessionSigningKey  = "session-signing-key"
	flagConfigURL          = "config-url"
	flagGeminiAPIKey       = "gemini-api-key"
	flagGeminiBaseURL      = "gemini-base-url"
	flagGeminiModel        = "gemini-model"
	flagWalletRPCURL       = "wallet-rpc-url"
	flagApproveFailureRate = "approve-failure-rate"
	flagSettleFailureRate  = "settle-failure-rate"
	flagSettlementDelay    = "settlement-delay"
	flagSuccessDelay       = "success-delay"
	envPrefix              = "SMARTPAY"

	defaultDatabaseURL = "sqlite:///tmp/smartpay.db"
)

type runtimeConfig struct {
	DatabaseURL        string
	ConfigURL          string
	GeminiAPIKey       string
	GeminiBaseURL      string
	GeminiModel        string
	WalletRPCURL       string
	ApproveFailureRate float64
	SettleFailureRate  float64
	SettlementDelay    time.Duration
	API                marketapi.Config
}

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "smartpayd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "smartpayd",
		Short:         "HTTP backend for the SmartPay agent marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagListenAddr, "", "HTTP listen address")
	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "transaction store connection string (sqlite path or postgres URL)")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().String(flagSessionSigningKey, "", "chat access token signing key (required)")
	cmd.Flags().String(flagConfigURL, netconfig.DefaultURL, "settlement network config endpoint")
	cmd.Flags().String(flagGeminiAPIKey, "", "Gemini API key; simulated replies when empty")
	cmd.Flags().String(flagGeminiBaseURL, "", "Gemini API base URL override")
	cmd.Flags().String(flagGeminiModel, "", "Gemini model name override")
	cmd.Flags().String(flagWalletRPCURL, "", "Ethereum JSON-RPC endpoint; simulated wallet when empty")
	cmd.Flags().Float64(flagApproveFailureRate, -1, "authorization failure probability override")
	cmd.Flags().Float64(flagSettleFailureRate, -1, "settlement failure probability override")
	cmd.Flags().Duration(flagSettlementDelay, -1, "simulated settlement latency override")
	cmd.Flags().Duration(flagSuccessDelay, -1, "completed payment display delay override")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flagNames := []string{
		flagListenAddr, flagDatabaseURL, flagAllowedOrigins, flagSessionSigningKey,
		flagConfigURL, flagGeminiAPIKey, flagGeminiBaseURL, flagGeminiModel,
		flagWalletRPCURL, flagApproveFailureRate, flagSettleFailureRate,
		flagSettlementDelay, flagSuccessDelay,
	}
	for _, flagName := range flagNames {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	if v.GetString(flagSessionSigningKey) == "" {
		return fmt.Errorf("%s is required", flagSessionSigningKey)
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.ConfigURL = strings.TrimSpace(v.GetString(flagConfigURL))
	cfg.GeminiAPIKey = strings.TrimSpace(v.GetString(flagGeminiAPIKey))
	cfg.GeminiBaseURL = strings.TrimSpace(v.GetString(flagGeminiBaseURL))
	cfg.GeminiModel = strings.TrimSpace(v.GetString(flagGeminiModel))
	cfg.WalletRPCURL = strings.TrimSpace(v.GetString(flagWalletRPCURL))
	cfg.ApproveFailureRate = v.GetFloat64(flagApproveFailureRate)
	cfg.SettleFailureRate = v.GetFloat64(flagSettleFailureRate)
	cfg.SettlementDelay = v.GetDuration(flagSettlementDelay)

	cfg.API = marketapi.Config{
		ListenAddr:        strings.TrimSpace(v.GetString(flagListenAddr)),
		AllowedOrigins:    marketapi.ParseAllowedOrigins(v.GetString(flagAllowedOrigins)),
		SessionSigningKey: v.GetString(flagSessionSigningKey),
		SuccessDelay:      v.GetDuration(flagSuccessDelay),
	}
	return cfg.API.Validate()
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()

	if err := gormstore.Migrate(gormDB); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	ledger, err := txledger.NewLedger(gormstore.New(gormDB), txledger.DefaultNamespace,
		txledger.WithOperationLogger(marketapi.NewLedgerOperationLogger(logger)))
	if err != nil {
		return fmt.Errorf("ledger init: %w", err)
	}

	connector, err := buildConnector(cfg, logger)
	if err != nil {
		return fmt.Errorf("wallet init: %w", err)
	}

	completer, err := buildCompleter(cfg, logger)
	if err != nil {
		return fmt.Errorf("completion init: %w", err)
	}

	deps := marketapi.Dependencies{
		Logger:    logger,
		Connector: connector,
		Gateway:   payment.NewSimulator(simulatorOptions(cfg)...),
		Completer: completer,
		Ledger:    ledger,
		Network:   netconfig.NewLoader(cfg.ConfigURL, netconfig.WithLogger(logger)),
	}
	return marketapi.Run(ctx, cfg.API, deps)
}

// buildConnector prefers a live JSON-RPC wallet and falls back to the
// embedded demo identity.
func buildConnector(cfg *runtimeConfig, logger *zap.Logger) (*wallet.Connector, error) {
	options := []wallet.ConnectorOption{
		wallet.WithFallbackProvider(wallet.NewSimulatedProvider()),
	}
	if cfg.WalletRPCURL != "" {
		provider, err := ethwallet.NewProvider(cfg.WalletRPCURL, ethwallet.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		options = append(options, wallet.WithProvider(provider))
	}
	return wallet.NewConnector(options...), nil
}

func buildCompleter(cfg *runtimeConfig, logger *zap.Logger) (chat.Completer, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Info("no gemini api key set, chat replies are simulated")
		return chat.NewSimulatedCompleter(), nil
	}
	return gemini.NewClient(gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
	})
}

func simulatorOptions(cfg *runtimeConfig) []payment.SimulatorOption {
	options := []payment.SimulatorOption{}
	if cfg.ApproveFailureRate >= 0 {
		options = append(options, payment.WithApproveFailureRate(cfg.ApproveFailureRate))
	}
	if cfg.SettleFailureRate >= 0 {
		options = append(options, payment.WithSettleFailureRate(cfg.SettleFailureRate))
	}
	if cfg.SettlementDelay >= 0 {
		options = append(options, payment.WithSettlementDelay(cfg.SettlementDelay))
	}
	return options
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, err
	}

	var db *gorm.DB
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
	default:
		return nil, nil, fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "smartpay.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}
