package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/edufilter/internal/control"
)

var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Remove every cached classification",
	Args:  cobra.NoArgs,
	Run:   runResetCache,
}

func init() {
	rootCmd.AddCommand(resetCacheCmd)
}

func runResetCache(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	n, err := control.ResetCache(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to reset cache", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %d cached classifications\n", n)
}
