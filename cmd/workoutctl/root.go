package main

import (
	"context"
	"fmt"
	"os"

	"github.com/2beens/gymsession/internal/config"
	"github.com/2beens/gymsession/internal/db"
	"github.com/2beens/gymsession/internal/gymstats/repo"
	"github.com/2beens/gymsession/internal/gymstats/workout"
	"github.com/2beens/gymsession/internal/logging"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	env        string
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "workoutctl",
		Short:         "Maintenance tool for the gymsession workout store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.env, "env", "development", "environment [prod | production | dev | development]")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "./config.toml", "path for the TOML config file")

	rootCmd.AddCommand(newImportProgramCmd(opts))
	rootCmd.AddCommand(newReconcileCmd(opts))
	rootCmd.AddCommand(newBackupCmd(opts))
	rootCmd.AddCommand(newGenSecretCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "workoutctl %s (%s)\n", version, commit)
		},
	})

	return rootCmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.env, o.configPath)
	if err != nil {
		return nil, err
	}
	log.SetLevel(logging.GetLevel(cfg.LogLevel))
	return cfg, nil
}

// openStore opens the configured workout store. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (workout.Store, func(), error) {
	switch cfg.Storage {
	case "postgres":
		poolParams := db.NewDBPoolParams{
			DBHost:     cfg.PostgresHost,
			DBPort:     cfg.PostgresPort,
			DBName:     cfg.PostgresDBName,
			DBUser:     cfg.PostgresUser,
			DBPassword: os.Getenv("GYMSESSION_DB_PASS"),
			MaxConns:   2,
		}
		if cfg.RunMigrations {
			if err := db.RunMigrations(poolParams.ConnString()); err != nil {
				return nil, nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		pool, err := db.NewDBPool(ctx, poolParams)
		if err != nil {
			return nil, nil, fmt.Errorf("new db pool: %w", err)
		}
		return repo.NewPsqlRepo(pool), pool.Close, nil
	case "sqlite":
		sqliteRepo, err := repo.OpenSqliteRepo(ctx, cfg.SqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return sqliteRepo, func() {
			if err := sqliteRepo.Close(); err != nil {
				log.Errorf("close sqlite repo: %s", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("storage [%s] not supported by workoutctl", cfg.Storage)
	}
}
