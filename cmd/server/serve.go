package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/divyanshu1906/CrowdFunding-Website/config"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/database"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/repository"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/router"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/scheduler"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/service"
	"github.com/divyanshu1906/CrowdFunding-Website/pkg/cloudinary"
	"github.com/divyanshu1906/CrowdFunding-Website/pkg/localstore"
	"github.com/divyanshu1906/CrowdFunding-Website/pkg/payment"
)

func serveCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not auto-migrate the schema on start")
	return cmd
}

func newGateway(cfg config.PaymentConfig) payment.Gateway {
	if !cfg.GatewayConfigured() {
		return nil
	}
	if cfg.Provider == "stub" {
		logger.Warnf("[payment] using stub gateway, orders are not sent to Razorpay")
		return &payment.StubGateway{Key: cfg.KeyID, Secret: cfg.KeySecret}
	}
	return payment.NewRazorpayGateway(cfg.BaseURL, cfg.KeyID, cfg.KeySecret, cfg.Timeout)
}

func newMediaStore(cfg *config.Config) (service.MediaStore, error) {
	if cfg.Cloudinary.Enabled() {
		client, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			return nil, err
		}
		logger.Infof("[media] uploading to cloudinary folder %q", cfg.Cloudinary.Folder)
		return service.NewCloudinaryStore(client, cfg.Cloudinary.Folder), nil
	}
	if err := os.MkdirAll(cfg.Storage.LocalDir, 0o755); err != nil {
		return nil, err
	}
	logger.Infof("[media] cloudinary not configured, storing uploads in %s", cfg.Storage.LocalDir)
	return service.NewDiskStore(localstore.New(cfg.Storage.LocalDir, cfg.Storage.PublicURL)), nil
}

func serve(skipMigrate bool) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeDB(db)
	defer logger.Sync()

	if !skipMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
	}

	media, err := newMediaStore(cfg)
	if err != nil {
		return err
	}
	engine, cleanup, err := router.Setup(cfg, db, router.Deps{Gateway: newGateway(cfg.Payment), Media: media})
	if err != nil {
		return err
	}
	defer cleanup()

	var reconciler scheduler.Reconciler
	if cfg.Reconcile.Enabled {
		reconciler = service.NewReconcileService(repository.NewProjectRepository(db))
	}
	jobs, err := scheduler.NewManager(reconciler, cfg.Reconcile.Interval)
	if err != nil {
		return err
	}
	jobs.WithTokenPurge(service.NewAuthService(cfg, repository.NewUserRepository(db), repository.NewRevokedTokenRepository(db)))
	if err := jobs.Start(); err != nil {
		return err
	}
	defer jobs.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	logger.Infof("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Infof("server stopped")
	return nil
}
