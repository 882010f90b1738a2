package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/edufilter/internal/control"
)

var (
	auditLimit int
	statusJSON bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent backoff state, cache size and recent audit log",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&auditLimit, "audit", 10, "number of audit entries to show (0 = all)")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	st, err := control.ReadStatus(context.Background(), cfg, auditLimit)
	if err != nil {
		slog.Error("Failed to read agent status", "error", err)
		os.Exit(1)
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(st)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	backoff := "inactive"
	if st.BackoffActive {
		backoff = "active until " + st.BackoffUntil.Format(time.RFC3339)
	}
	_, _ = fmt.Fprintf(w, "STORAGE\t%s (audit: %s)\n", cfg.Agent.Storage, cfg.Agent.AuditStorage)
	_, _ = fmt.Fprintf(w, "BACKOFF\t%s\n", backoff)
	_, _ = fmt.Fprintf(w, "CACHE\t%d / %d entries\n", st.CacheEntries, cfg.Agent.MaxCacheEntries)
	_ = w.Flush()

	fmt.Println()
	for _, e := range st.Audit {
		fmt.Println(e.String())
	}
}
