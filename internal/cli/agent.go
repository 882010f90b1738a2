package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/edufilter/internal/control"
	"github.com/vietddude/edufilter/internal/core/domain"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the classification agent",
	Long: `Reads video metadata as JSON lines on stdin, one {"videoId": ..., "title": ...} per line,
and writes classification broadcasts as JSON lines on stdout. Cached results are written
immediately; misses are batched and sent to the classification server.`,
	Run: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := control.NewAgent(ctx, cfg, os.Stdout)
	if err != nil {
		slog.Error("Failed to initialize agent", "error", err)
		os.Exit(1)
	}
	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start agent", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		readRequests(ctx, app)
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
	case <-done:
		slog.Debug("Input closed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
}

func readRequests(ctx context.Context, app *control.Agent) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req domain.VideoRequest
		if err := json.Unmarshal(line, &req); err != nil || req.VideoID == "" {
			slog.Warn("Skipping invalid input line", "error", err)
			continue
		}

		if rec, ok := app.Request(ctx, req); ok {
			if err := app.WriteCached(ctx, req.VideoID, rec); err != nil {
				slog.Error("Failed to write cached classification", "videoId", req.VideoID, "error", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Error("Failed to read input", "error", err)
	}
}
