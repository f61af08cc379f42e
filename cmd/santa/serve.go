package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mistletoe/internal/app"
	"mistletoe/internal/config"
	"mistletoe/internal/server"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serves the admin API and the public reveal endpoints. Requires MISTLETOE_JWT_SECRET. Reloads vocabulary_file on change and delivers configured webhooks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := viper.GetString("jwt_secret")
			if secret == "" {
				return fmt.Errorf("MISTLETOE_JWT_SECRET is required for bearer auth")
			}
			return openWorkspace(cmd.Context(), zap.InfoLevel, func(ctx context.Context, ws *app.Workspace) error {
				logger := ws.Engine.Logger
				handler, err := server.New(server.Config{
					Engine:   ws.Engine,
					BasePath: basePath,
					Auth:     server.AuthConfig{JWTSecret: secret, Logger: logger},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
				if path := ws.Config.VocabularyPath(ws.Dir); path != "" {
					w := config.VocabularyWatcher{Path: path, Holder: ws.Vocabulary, Logger: logger}
					g.Go(func() error { return w.Run(gctx) })
				}
				if len(ws.Config.Webhooks) > 0 {
					d := server.NewWebhookDispatcher(ws.Engine, ws.Config.Webhooks, logger)
					g.Go(func() error { return d.Run(gctx) })
				}
				logger.Info("serving", zap.String("addr", addr), zap.String("base_path", basePath), zap.Int("webhooks", len(ws.Config.Webhooks)))
				fmt.Printf("Serving Mistletoe API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
				return g.Wait()
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}
