package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	pgxadapter "github.com/lborres/bantay/adapters/pgx"
	"github.com/lborres/bantay/config"
	"github.com/lborres/bantay/pkg/logger"
)

var (
	cfgFile string
	envFile string
	cfg     *config.Config
	log     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bantay",
	Short: "Resilient session and profile resolution service",
	Long: `bantay resolves signed-in users to profiles with an access role, keeps
serving the role a user registered with while the remote store catches up,
and never returns an empty content list.

Example usage:
  bantay migrate               # Create tables in the configured database
  bantay seed                  # Write the bundled content into the database
  bantay serve                 # Start the HTTP server`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./bantay.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func initConfig() error {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	slog.SetDefault(log)

	log.Debug("configuration loaded",
		"addr", cfg.Server.Addr,
		"base_path", cfg.Server.BasePath,
		"redis", cfg.Redis.Addr != "",
		"bolt_path", cfg.Local.BoltPath,
	)
	return nil
}

// openDatabase connects to Postgres and returns the pool with its adapter.
func openDatabase(ctx context.Context) (*pgxpool.Pool, *pgxadapter.Adapter, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing database url: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pgxadapter.New(pool), nil
}
