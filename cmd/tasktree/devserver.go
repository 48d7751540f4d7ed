package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/tasktree/internal/devserver"
	"github.com/sandeepkv93/tasktree/internal/model"
)

func devServerCmd(configPath *string) *cobra.Command {
	var (
		addr      string
		accessTTL time.Duration
		seedEmail string
		seedPass  string
	)
	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run an in-memory TaskTree backend for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.DevAddr
			}
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

			srv := devserver.New(devserver.Options{Logger: logger, AccessTTL: accessTTL})
			if seedEmail != "" {
				p := srv.SeedUser(model.Profile{Name: seedEmail, Email: seedEmail, Role: model.RoleSolo}, seedPass)
				logger.Info("seeded user", slog.String("email", p.Email), slog.String("id", p.ID))
			}
			httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			errc := make(chan error, 1)
			go func() {
				logger.Info("starting dev server", slog.String("addr", httpServer.Addr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			}
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config dev_addr)")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", 15*time.Minute, "access token lifetime")
	cmd.Flags().StringVar(&seedEmail, "seed-email", "", "create a verified user at startup")
	cmd.Flags().StringVar(&seedPass, "seed-password", "password", "password for --seed-email")
	return cmd
}
