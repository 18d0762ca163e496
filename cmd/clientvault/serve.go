package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kjayal/clientvault"
	"github.com/kjayal/clientvault/config"
	"github.com/kjayal/clientvault/database"
	vaulthttp "github.com/kjayal/clientvault/http"
	"github.com/kjayal/clientvault/objectstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the clientvault HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5810, "HTTP server port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()
	slog.Info("connected to database", "type", cfg.Database.Type)

	store, err := objectstore.New(ctx, cfg.ObjectStore)
	if err != nil {
		return fmt.Errorf("connect object store: %w", err)
	}
	slog.Info("object store ready", "bucket", cfg.ObjectStore.Bucket, "region", cfg.ObjectStore.Region)

	service, err := clientvault.NewClientService(repo, store, clientvault.ServiceConfig{
		OpTimeout:     time.Duration(cfg.Service.OpTimeout) * time.Second,
		VerifyUploads: cfg.Service.VerifyUploads,
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	broker, err := clientvault.NewUploadBroker(store, clientvault.BrokerConfig{
		TTL:       time.Duration(cfg.Broker.GrantTTL) * time.Second,
		KeyPrefix: cfg.Broker.KeyPrefix,
	})
	if err != nil {
		return fmt.Errorf("create upload broker: %w", err)
	}

	handlerConfig := vaulthttp.HandlerConfig{
		CORS: cfg.CORS,
	}
	handler := vaulthttp.NewHandler(&handlerConfig, service, broker)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
