package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spoj/mq-mcp/internal/config"
	"github.com/spoj/mq-mcp/internal/dispatch"
	"github.com/spoj/mq-mcp/internal/fstree"
	"github.com/spoj/mq-mcp/internal/manifest"
	"github.com/spoj/mq-mcp/internal/mcp"
	"github.com/spoj/mq-mcp/internal/model"
	"github.com/spoj/mq-mcp/internal/overview"
	"github.com/spoj/mq-mcp/internal/selector"
	"github.com/spoj/mq-mcp/internal/slogutil"
	"github.com/spoj/mq-mcp/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the root directory over MCP (stdio)",
	Long: `Start the MCP server on stdin/stdout. The server exposes the map_query
tools, directory navigation, and the cached overview for one root
directory.

stdout carries protocol frames only; logs go to stderr and, when
configured, a file. This command is typically invoked by MCP clients
and not directly by users.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	root, err := resolveRoot(cfg.Root)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := manifest.Load(root)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	client, err := model.NewGeminiClient(ctx, os.Getenv("GEMINI_API_KEY"), cfg.Model.Name)
	if err != nil {
		return fmt.Errorf("creating model client: %w", err)
	}

	enum := fstree.New(root, cfg.Limits.TreeCap, m)
	sel := selector.New(enum, nil)
	disp := dispatch.New(
		dispatch.NewLimiter(cfg.Limits.Concurrency),
		client,
		dispatch.DefaultRetryPolicy(cfg.Model.MaxAttempts, cfg.Model.RetryBaseDelay),
		logger,
	)
	views, err := overview.NewService(disp, cfg.Limits.OverviewSampleCap, logger, nil)
	if err != nil {
		return err
	}

	server := mcp.NewServer(version.Version, mcp.Deps{
		Enum:        enum,
		Selector:    sel,
		Dispatcher:  disp,
		Overview:    views,
		Description: m.Description,
	}, logger)

	if err := server.Start(ctx); err != nil {
		if err == context.Canceled {
			return nil
		}
		logger.Error("MCP server error",
			"error", err.Error(),
		)
		return err
	}

	return nil
}

// buildLogger creates the serve logger: stderr always, plus a file
// when configured. stdout is reserved for protocol frames.
func buildLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	level := slogutil.LevelFromString(cfg.Log.Level)
	stderrHandler := slogutil.NewHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	if cfg.Log.File == "" {
		return slog.New(stderrHandler), func() {}, nil
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	fileHandler := slogutil.NewHandler(f, &slog.HandlerOptions{Level: level})

	return slogutil.NewTeeLogger(stderrHandler, fileHandler), func() { _ = f.Close() }, nil
}

// resolveRoot canonicalizes the served root and verifies it is a
// directory.
func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("root %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %s is not a directory", root)
	}
	return abs, nil
}
