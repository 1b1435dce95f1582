// Package cli implements the bst command line. Every command opens the
// local save directly; "bst serve" exposes the same game over HTTP.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sskkslay-netizen/Bst/internal/app/game"
	"github.com/sskkslay-netizen/Bst/internal/daemon"
	"github.com/sskkslay-netizen/Bst/internal/domain"
	"github.com/sskkslay-netizen/Bst/internal/infra/observability"
)

var (
	flagHome     string
	flagLogLevel string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagHome, "home", "", "BST data directory (default $BST_HOME or ~/.bst)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Override the configured log level")
}

var rootCmd = &cobra.Command{
	Use:   "bst",
	Short: "BST: study, pull, level up",
	Long: `BST turns study material into quiz dungeons and matching bombs that pay
gems, then spends those gems on a gacha of literary agents.
Progress is saved locally; run 'bst serve' to play from the web client.`,
	SilenceUsage: true,
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// ─── Runtime ────────────────────────────────────────────────────────────────

func homeDir() string {
	if flagHome != "" {
		return flagHome
	}
	return daemon.Home()
}

// openRuntime loads the config and the save. The caller must Close it.
func openRuntime(ctx context.Context) (*daemon.Daemon, error) {
	home := homeDir()
	cfg, err := daemon.LoadConfig(home)
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	log, err := observability.NewLogger(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return daemon.New(ctx, home, cfg, log)
}

// withGame opens the runtime, runs fn and closes it again.
func withGame(cmd *cobra.Command, fn func(ctx context.Context, svc *game.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		d.Log.Sync()
		d.Close()
	}()
	if r := d.Game.LoadReport(); r.Corrupt {
		fmt.Fprintln(cmd.ErrOrStderr(), "⚠️  The saved game could not be read. A new game was started.")
	}
	return fn(ctx, d.Game)
}

// ─── Output ─────────────────────────────────────────────────────────────────

func printOutcome(w io.Writer, out game.Outcome) {
	for _, g := range out.Grants {
		if s := formatGrant(g); s != "" {
			fmt.Fprintf(w, "  + %s\n", s)
		}
	}
	if out.Warning != "" {
		fmt.Fprintf(w, "⚠️  %s\n", out.Warning)
	}
}

func formatGrant(g domain.Grant) string {
	var parts []string
	if g.Coins != 0 {
		parts = append(parts, fmt.Sprintf("%d coins", g.Coins))
	}
	if g.Gems != 0 {
		parts = append(parts, fmt.Sprintf("%d gems", g.Gems))
	}
	if g.StudyPoints != 0 {
		parts = append(parts, fmt.Sprintf("%d study points", g.StudyPoints))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("%s (%s)", strings.Join(parts, ", "), g.Reason)
}
