package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/2beens/gymsession/internal/gymstats/programs"
	"github.com/2beens/gymsession/internal/gymstats/session"
	"github.com/2beens/gymsession/pkg"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newImportProgramCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-program [file.yaml]",
		Short: "Import a workout program with its days and exercises",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open program file: %w", err)
			}
			defer func() {
				if err := f.Close(); err != nil {
					log.Warnf("close program file: %s", err)
				}
			}()

			changes, err := programs.Import(cmd.Context(), store, f, time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported program [%s] %s\n", changes.Programs[0].Name, changes.Programs[0].ID)
			for _, d := range changes.DayTemplates {
				fmt.Fprintf(out, "  day [%s] %s\n", d.Name, d.ID)
			}
			return nil
		},
	}
}

func newReconcileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Close in-progress sessions that were abandoned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			reconciler := session.NewReconciler(store, session.OrphanPolicy{
				StaleAfter:        cfg.OrphanStaleAfter(),
				EstimatedDuration: cfg.OrphanEstimatedDuration(),
			}, nil, time.Now)
			closed, err := reconciler.CloseOrphans(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "closed %d orphan sessions\n", len(closed))
			for _, s := range closed {
				fmt.Fprintf(out, "  %s started %s\n", s.ID, s.StartTime.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newBackupCmd(opts *rootOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a tar.gz backup of the sqlite workout store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage != "sqlite" {
				return errors.New("backup is only supported for sqlite storage, use pg_dump for postgres")
			}

			exists, err := pkg.PathExists(cfg.SqlitePath, false)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("sqlite store %s not found", cfg.SqlitePath)
			}

			backupPath := filepath.Join(outDir, fmt.Sprintf("gymsession-%s.tar.gz", time.Now().Format("20060102-150405")))
			f, err := os.Create(backupPath)
			if err != nil {
				return fmt.Errorf("create backup file: %w", err)
			}
			if err := pkg.Compress(cfg.SqlitePath, f); err != nil {
				_ = f.Close()
				return fmt.Errorf("compress store: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close backup file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "backup written: %s\n", backupPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "directory to write the backup into")
	return cmd
}

func newGenSecretCmd() *cobra.Command {
	var length int
	cmd := &cobra.Command{
		Use:   "gen-secret",
		Short: "Generate an app secret and the bcrypt hash the service is configured with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := pkg.GenerateRandomString(length)
			if err != nil {
				return err
			}
			hash, err := pkg.HashPassword(secret)
			if err != nil {
				return fmt.Errorf("hash secret: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "secret: %s\n", secret)
			fmt.Fprintf(out, "GYMSESSION_APP_SECRET_HASH=%s\n", hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&length, "length", 32, "secret length")
	return cmd
}
