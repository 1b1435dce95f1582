package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sskkslay-netizen/Bst/internal/app/catalog"
	"github.com/sskkslay-netizen/Bst/internal/app/game"
	"github.com/sskkslay-netizen/Bst/internal/daemon"
)

// ─── Custom Catalog CLI ─────────────────────────────────────────────────────
// The custom catalog is a YAML file in the BST home, laid out like the
// built-in presets. A running server picks up changes on its own; these
// commands merge it into the save immediately as well.

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogRemoveCmd)

	catalogImportCmd.Flags().StringP("file", "f", "", "Path to a catalog YAML file")
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage custom cards, equipment and banners",
	Long: `Manage the custom catalog. Entries are merged over the built-in
presets by ID, so a custom card with a preset ID replaces that preset.`,
}

// ─── catalog import ─────────────────────────────────────────────────────────

var catalogImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Install a catalog YAML file as the custom catalog",
	Args:  cobra.NoArgs,
	RunE:  runCatalogImport,
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	src, _ := cmd.Flags().GetString("file")
	if src == "" {
		return fmt.Errorf("catalog YAML file required: bst catalog import -f <file>")
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("cannot read catalog file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a YAML file", src)
	}

	// Parse before installing so a broken file never replaces a good one.
	if _, err := catalog.LoadFile(src, time.Now()); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read catalog file: %w", err)
	}

	dest, err := customCatalogPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return fmt.Errorf("create home directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	// Opening the runtime merges the installed file into the save.
	if err := withGame(cmd, func(context.Context, *game.Service) error { return nil }); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Custom catalog installed at %s\n", dest)
	return nil
}

// ─── catalog list ───────────────────────────────────────────────────────────

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the entries of the custom catalog",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path, err := customCatalogPath()
	if err != nil {
		return err
	}
	c, err := catalog.LoadFile(path, time.Now())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(out, "No custom catalog installed.")
			fmt.Fprintln(out, "Use 'bst catalog import -f <file>' to install one.")
			return nil
		}
		return err
	}

	fmt.Fprintf(out, "Custom catalog (%s):\n", path)
	fmt.Fprintf(out, "Cards (%d):\n", len(c.Cards))
	for _, d := range c.Cards {
		fmt.Fprintf(out, "  • %s  %s [%s]\n", d.ID, d.Name, d.Rarity)
	}
	fmt.Fprintf(out, "Equipment (%d):\n", len(c.Equipment))
	for _, e := range c.Equipment {
		fmt.Fprintf(out, "  • %s  %s [%s]\n", e.ID, e.Name, e.Rarity)
	}
	fmt.Fprintf(out, "Banners (%d):\n", len(c.Banners))
	for _, b := range c.Banners {
		fmt.Fprintf(out, "  • %s  %s\n", b.ID, b.Name)
	}
	return nil
}

// ─── catalog remove ─────────────────────────────────────────────────────────

var catalogRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Uninstall the custom catalog file",
	Long: `Remove the custom catalog file. Entries already merged into the save
stay there; use the dev API to change them.`,
	Args: cobra.NoArgs,
	RunE: runCatalogRemove,
}

func runCatalogRemove(cmd *cobra.Command, args []string) error {
	path, err := customCatalogPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no custom catalog at %s", path)
		}
		return fmt.Errorf("remove catalog: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Custom catalog removed.\n")
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func customCatalogPath() (string, error) {
	cfg, err := daemon.LoadConfig(homeDir())
	if err != nil {
		return "", err
	}
	if cfg.Catalog.CustomPath == "" {
		return "", errors.New("custom catalog disabled: catalog.custom_path is empty")
	}
	return cfg.Catalog.CustomPath, nil
}
