package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theladymaker/atelier/internal/server"
	"github.com/theladymaker/atelier/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		deps, err := initPipeline(cfg, "serve")
		if err != nil {
			return err
		}
		deps.AccessKey = cfg.Server.AccessKey
		if deps.AccessKey == "" {
			zap.L().Warn("server.access_key is empty, sessions are not locked")
		}

		sessions := session.NewManager(deps, cfg.Server.SessionTTL())
		srv := server.New(server.Config{
			Address:        fmt.Sprintf(":%d", cfg.Server.Port),
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}, sessions)

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
