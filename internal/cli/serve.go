// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/gemaraproj/extractval/internal/httpapi"
	"github.com/gemaraproj/extractval/internal/metrics"
	"github.com/gemaraproj/extractval/internal/tool"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := mcp.NewServer(&mcp.Implementation{Name: "extractval", Version: Version}, nil)
			tool.NewHandlers(a.registry, a.logger).Register(server)

			a.logger.Info("starting MCP server on stdio")
			if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mcp server failed: %w", err)
			}
			return nil
		},
	}
}

func newServeHTTPCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-http",
		Short: "Run the HTTP validation API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			gin.SetMode(gin.ReleaseMode)
			api := httpapi.NewServer(a.registry, metrics.NewRecorder(), a.logger, a.cfg.Batch.Workers)
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.SetupRouter(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("starting HTTP server", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("http server failed: %w", err)
			case <-cmd.Context().Done():
			}

			a.logger.Info("shutting down HTTP server")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to http.addr from config)")
	return cmd
}
