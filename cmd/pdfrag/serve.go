package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/perbu/pdfrag/pkg/server"
)

var flagServeAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP search service",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx, setupHooks{})
	if err != nil {
		return err
	}
	defer rt.cleanup()

	sc := rt.cfg.Server
	if flagServeAddr != "" {
		sc.Addr = flagServeAddr
	}

	srv := server.New(rt.engine, server.Config{
		Addr:            sc.Addr,
		ReadTimeout:     time.Duration(sc.ReadTimeoutSecs) * time.Second,
		WriteTimeout:    time.Duration(sc.WriteTimeoutSecs) * time.Second,
		ShutdownTimeout: time.Duration(sc.ShutdownTimeoutSecs) * time.Second,
		CORSOrigins:     sc.CORSOrigins,
		MaxBodyBytes:    sc.MaxBodyBytes,
		DefaultTopK:     rt.cfg.Search.DefaultTopK,
	}, rt.logger)

	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
