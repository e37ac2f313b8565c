// Command hivemind-claims runs the team memory claims engine as an MCP
// server over stdio.
//
// Add to your AI tool's MCP config:
//
//	{
//	  "mcpServers": {
//	    "hivemind": {
//	      "command": "hivemind-claims",
//	      "env": {"HIVEMIND_DB_PATH": "/path/to/team.db"}
//	    }
//	  }
//	}
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	hivemind "github.com/anamnesos/hivemind-sub005"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("HIVEMIND_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	// Logs go to stderr: stdout belongs to the MCP stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	eng, err := hivemind.Open(
		hivemind.WithLogger(logger),
		hivemind.WithVersion(version),
	)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close(context.Background()) }()

	return eng.Run(ctx)
}
