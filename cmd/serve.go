package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/linkmcp/internal/browser"
	"github.com/xkilldash9x/linkmcp/internal/mcp"
	"github.com/xkilldash9x/linkmcp/internal/tools"
)

const browserCloseTimeout = 10 * time.Second

// launcherFactory is swapped out in tests so no real browser starts.
var launcherFactory = func(a *app) browser.Launcher {
	return browser.NewChromeLauncher(a.cfg.Browser(), a.logger)
}

func newServeCmd(a *app) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser tools to an agent over MCP stdio or HTTP",
		Long: `Starts the tool server. With --transport stdio (the default) the agent
launches linkmcp as a subprocess and speaks MCP over stdin/stdout. With
--transport http the same tools are served as a JSON API and websocket on
--listen, together with /metrics and /healthz.

The browser is started lazily on the first tool call and reused afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}
	serveCmd.Flags().String("transport", "", "tool transport: stdio or http (overrides server.transport)")
	serveCmd.Flags().String("listen", "", "listen address for the http transport (overrides server.listen_addr)")
	serveCmd.Flags().Bool("headless", false, "run the browser headless (overrides browser.headless)")
	serveCmd.Flags().String("profile-dir", "", "browser profile directory (overrides browser.profile_dir)")
	return serveCmd
}

func (a *app) serve(cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := a.logger

	env, err := tools.Build(a.cfg, launcherFactory(a), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tools: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), browserCloseTimeout)
		defer cancel()
		if err := env.Manager().Close(closeCtx); err != nil {
			logger.Warn("Error closing browser.", zap.Error(err))
		}
	}()

	dispatcher := mcp.NewDispatcher(tools.NewRegistry(), env, nil, logger)
	info := mcp.ServerInfo{Name: "linkmcp", Version: Version}

	g, gctx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gctx)
	defer stopWatch()
	g.Go(func() error {
		if err := env.WatchTables(watchCtx); err != nil {
			logger.Warn("Table watcher stopped.", zap.Error(err))
		}
		return nil
	})

	transport := strings.ToLower(a.cfg.Server().Transport)
	logger.Info("Starting tool server.",
		zap.String("transport", transport),
		zap.String("version", Version),
		zap.Int("tools", len(dispatcher.Tools())))

	g.Go(func() error {
		defer stopWatch()
		switch transport {
		case "http":
			return mcp.NewServer(dispatcher, logger).ListenAndServe(gctx, a.cfg.Server().ListenAddr)
		default:
			return mcp.NewStdioServer(dispatcher, info, logger).Serve(gctx, cmd.InOrStdin(), cmd.OutOrStdout())
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("Shutdown requested.")
		return nil
	}
	return err
}
