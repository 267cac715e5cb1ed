// File: main.go

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"proxypool/pkg/config"
	"proxypool/pkg/database"
	"proxypool/pkg/models"
	"proxypool/pkg/pool"
	"proxypool/pkg/probe"
	"proxypool/pkg/proxy"
)

var (
	debugFlag  bool
	configFile string
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "proxypool",
	Short: "Multi-vendor proxy pool with health tracking",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set up logging based on the debug flag
		var logLevel slog.Level
		if debugFlag {
			logLevel = slog.LevelDebug
		} else {
			logLevel = slog.LevelInfo
		}

		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
		slog.SetDefault(logger)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the pool and keep it healthy until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := mustLoadConfig()
		statsEvery, _ := cmd.Flags().GetDuration("stats-interval")

		m, err := newManager(cfg)
		if err != nil {
			logger.Error("Error creating pool", "error", err)
			os.Exit(1)
		}
		if err := m.Start(ctx); err != nil {
			logger.Error("Error starting pool", "error", err)
			os.Exit(1)
		}
		defer m.Stop()

		var db *database.DB
		if cfg.Database.Enabled {
			db, err = initDB(ctx, cfg.Database)
			if err != nil {
				logger.Error("Error initializing database", "error", err)
				os.Exit(1)
			}
			defer db.Close()

			snapshot, err := db.LoadSnapshot(ctx)
			if err != nil {
				logger.Warn("Error loading snapshot", "error", err)
			} else {
				logger.Info("Snapshot restored", "descriptors", m.Restore(snapshot))
			}
		}

		ticker := time.NewTicker(statsEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("Shutting down")
				if db != nil {
					saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					if err := db.SaveSnapshot(saveCtx, m.Snapshot()); err != nil {
						logger.Error("Error saving snapshot", "error", err)
					}
					cancel()
				}
				return
			case <-ticker.C:
				logStats(m.Stats())
				if db != nil {
					if err := db.SaveSnapshot(ctx, m.Snapshot()); err != nil {
						logger.Warn("Error saving snapshot", "error", err)
					}
				}
			}
		}
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Validate a static proxy list",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		protocolFlag, _ := cmd.Flags().GetString("protocol")
		protocol, err := models.ParseProtocol(protocolFlag)
		if err != nil {
			logger.Error("Invalid protocol", "error", err)
			os.Exit(1)
		}

		f, err := os.Open(args[0])
		if err != nil {
			logger.Error("Error opening file", "error", err)
			os.Exit(1)
		}
		defer f.Close()

		entries, skipped := proxy.ParseList(f, protocol)
		for _, s := range skipped {
			logger.Warn("Skipping malformed entry", "line", s.Line, "reason", s.Reason)
		}
		fmt.Printf("valid: %d, skipped: %d\n", len(entries), len(skipped))
		if len(entries) == 0 {
			os.Exit(1)
		}
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Seed every provider, run one health sweep and print the stats",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		m, err := newManager(cfg)
		if err != nil {
			logger.Error("Error creating pool", "error", err)
			os.Exit(1)
		}
		if err := m.Start(context.Background()); err != nil {
			logger.Error("Error starting pool", "error", err)
			os.Exit(1)
		}
		defer m.Stop()

		report := m.Sweep(context.Background())
		logger.Info("Sweep finished", "probed", report.Probed, "failed", report.Failed)
		printJSON(m.Stats())
	},
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Check out one proxy and print it with the password masked",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		m, err := newManager(cfg)
		if err != nil {
			logger.Error("Error creating pool", "error", err)
			os.Exit(1)
		}
		if err := m.Start(context.Background()); err != nil {
			logger.Error("Error starting pool", "error", err)
			os.Exit(1)
		}
		defer m.Stop()

		typeFlag, _ := cmd.Flags().GetString("type")
		country, _ := cmd.Flags().GetString("country")
		state, _ := cmd.Flags().GetString("state")

		criteria := models.Criteria{Country: country, State: state}
		if typeFlag != "" {
			t, err := models.ParseEgressType(typeFlag)
			if err != nil {
				logger.Error("Invalid type", "error", err)
				os.Exit(1)
			}
			criteria.Type = t
		}

		d, err := m.Checkout(context.Background(), criteria)
		if err != nil {
			logger.Error("Checkout failed", "error", err)
			os.Exit(1)
		}
		defer m.Release(d.ID)
		fmt.Println(d.Redacted())
	},
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt-secret [value]",
	Short: "Encrypt a provider secret for use in the config file",
	Long: `Encrypt a provider secret with the key in ` + config.SecretKeyEnv + `.
The output can be used in place of any password, api_key or package_key.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		enc, err := config.NewSecrets(os.Getenv(config.SecretKeyEnv)).Encrypt(args[0])
		if err != nil {
			logger.Error("Error encrypting secret", "error", err)
			os.Exit(1)
		}
		fmt.Println(enc)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default is config.yaml in ., $HOME/.proxypool or /etc/proxypool)")
	runCmd.Flags().Duration("stats-interval", time.Minute, "How often to log pool statistics")
	parseCmd.Flags().String("protocol", "http", "Protocol for entries without a scheme")
	checkoutCmd.Flags().String("type", "", "Egress type (residential, datacenter, mobile, isp)")
	checkoutCmd.Flags().String("country", "", "Two-letter country code")
	checkoutCmd.Flags().String("state", "", "State or region code")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(encryptCmd)
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.proxypool")
		viper.AddConfigPath("/etc/proxypool/")
	}
	viper.SetEnvPrefix("PROXYPOOL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func mustLoadConfig() *config.Config {
	if err := viper.ReadInConfig(); err != nil {
		logger.Error("Error reading config file", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

func newManager(cfg *config.Config) (*pool.Manager, error) {
	providers, err := proxy.NewProviders(cfg.Providers, logger)
	if err != nil {
		return nil, err
	}
	return pool.NewManager(cfg.Pool, providers, newProber(cfg.Probe), logger), nil
}

func newProber(cfg config.ProbeConfig) probe.Prober {
	if !cfg.Enabled {
		return nil
	}
	httpProber := probe.NewHTTPProber(cfg.URL, cfg.Timeout)
	if strings.EqualFold(cfg.Mode, config.ProbeModeDNS) {
		return &probe.DNSProber{
			Resolver: cfg.Resolver,
			Domain:   cfg.Domain,
			Timeout:  cfg.Timeout,
			Fallback: httpProber,
		}
	}
	return httpProber
}

func initDB(ctx context.Context, cfg database.Config) (*database.DB, error) {
	db, err := database.NewDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	return db, nil
}

func logStats(s models.Stats) {
	logger.Info("Pool stats",
		"total", s.Total,
		"healthy", s.Healthy,
		"degraded", s.Degraded,
		"dead", s.Dead,
		"unknown", s.Unknown,
		"in_use", s.InUse)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Error("Error encoding output", "error", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
