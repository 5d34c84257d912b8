package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"faturas/internal/config"
	"faturas/internal/logger"
	"faturas/internal/normalizer"
	"faturas/internal/server"
	"faturas/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the invoice upload and dashboard HTTP API",
	Long: `Start the HTTP server exposing the invoice pipeline:

  POST /upload              upload a PDF, run OCR and normalization
  GET  /download/{filename} download a stored JSON artifact
  POST /clear-data          delete all uploads and outputs
  GET  /api/dados-graficos  chart aggregation over stored invoices

The server shuts down gracefully on SIGINT/SIGTERM.`,
	Example: `  # Serve on the default address (:5000)
  faturas serve

  # Custom address
  faturas serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: HTTP_ADDR or :5000)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	st, err := store.New(cfg.UploadDir, cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	ocrService, err := createOCRService(cmd.Context(), log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(ocrService, normalizer.New(), st).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info().Msg("HTTP server stopped")
	return nil
}
