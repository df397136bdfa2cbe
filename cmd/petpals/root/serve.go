package root

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/petpals/internal/clock"
	"github.com/dukerupert/petpals/internal/engine"
	"github.com/dukerupert/petpals/internal/middleware"
	"github.com/dukerupert/petpals/internal/server"
	ws "github.com/dukerupert/petpals/internal/websocket"
)

const maintenanceInterval = time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cleanup, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			logger := d.logger
			clk := clock.System()
			hub := ws.NewHub(logger.With("component", "websocket"))
			registry := engine.NewRegistry(d.layer, clk, d.cfg.EngineConfig(), hub, logger)
			srv := server.New(registry, hub, middleware.NewRateLimiter(clk), server.Options{
				AllowedOrigins: d.cfg.Server.AllowedOrigins,
				RateLimit:      d.cfg.Server.RateLimit,
				RateWindow:     d.cfg.Server.RateWindow.Duration,
			}, logger)

			httpServer := &http.Server{
				Addr:              ":" + d.cfg.Server.Port,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			// Background maintenance goroutine
			maintCtx, maintCancel := context.WithCancel(context.Background())
			defer maintCancel()
			go func() {
				ticker := time.NewTicker(maintenanceInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if n, err := d.layer.FlushPending(maintCtx); err != nil {
							slog.Error("flush queued writes", "error", err)
						} else if n > 0 {
							slog.Info("writes still queued for remote", "count", n)
						}
						srv.RateLimiter().Cleanup()
					case <-maintCtx.Done():
						return
					}
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("petpals starting", "addr", httpServer.Addr, "remote", d.cfg.Remote.Backend)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

			logger.Info("shutting down")
			maintCancel()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(ctx)
		},
	}
}
