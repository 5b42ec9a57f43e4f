package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"vidlink/internal/config"
	"vidlink/internal/logging"
	"vidlink/internal/server"
	"vidlink/internal/signaling"
)

var opts config.Options

var rootCmd = &cobra.Command{
	Use:   "vidlink",
	Short: "Signaling server for 1:1 peer-to-peer video calls over WebRTC",
	Long: `Vidlink pairs two browsers inside a short-lived room and relays the
SDP and ICE messages they need to bring up a direct WebRTC connection.
Once the call is established the media flows peer-to-peer; this server
only ever sees signaling.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default "+config.DefaultAddr+")")
	rootCmd.Flags().DurationVar(&opts.RoomTimeout, "room-timeout", 0, "idle time before an empty room is evicted (default 5m)")
	rootCmd.Flags().DurationVar(&opts.ReapInterval, "reap-interval", 0, "period of the idle-room cleanup task (default 1m)")
}

func run(cmd *cobra.Command, args []string) error {
	logging.Init()

	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	registry := signaling.NewRegistry(cfg.RoomTimeout)
	go registry.Run(ctx, cfg.ReapInterval)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(registry).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting vidlink server", "addr", cfg.Addr)
		slog.Info("open http://localhost:3000 in your browser to start a video call")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
