package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 0, "Override the configured API port")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the game API for the web client",
	Long: `Start the BST HTTP API. The custom catalog file is watched and merged
whenever it changes. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			d.Config.API.Port = port
		}
		if r := d.Game.LoadReport(); r.Corrupt {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠️  The saved game could not be read. A new game was started.")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ BST API on http://%s\n", d.Config.Addr())
		return d.Serve(ctx)
	},
}
