package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/divyanshu1906/CrowdFunding-Website/config"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/database"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/repository"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/service"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "crowdfund",
		Short:         "Crowdfunding backend: project catalog, Razorpay orders and webhook reconciliation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ./config.yaml or ./config/config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, sets up logging and opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log)
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)
			defer logger.Sync()
			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Infof("[migrate] schema up to date")
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute raised_amount of every project from paid payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)
			defer logger.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			svc := service.NewReconcileService(repository.NewProjectRepository(db))
			if err := svc.RecomputeRaised(ctx); err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			logger.Infof("[reconcile] raised amounts recomputed")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "abort if the recompute takes longer than this")
	return cmd
}
