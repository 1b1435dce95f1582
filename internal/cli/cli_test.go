package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--home", home}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestStatus_FreshHome(t *testing.T) {
	home := t.TempDir()
	out, err := run(t, home, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Gems:  5000") {
		t.Errorf("expected starting gems in output, got:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(home, "bst.db")); err != nil {
		t.Errorf("expected save file: %v", err)
	}
}

func TestPull_PersistsAcrossCommands(t *testing.T) {
	home := t.TempDir()

	out, err := run(t, home, "pull")
	if err != nil {
		t.Fatalf("list banners: %v", err)
	}
	if !strings.Contains(out, "b_standard") {
		t.Errorf("banner list missing b_standard:\n%s", out)
	}

	out, err = run(t, home, "pull", "b_standard")
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if !strings.Contains(out, "4900 gems left") {
		t.Errorf("expected gems to drop by 100:\n%s", out)
	}

	out, err = run(t, home, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Gems:  4900") {
		t.Errorf("pull should persist between commands:\n%s", out)
	}
}

func TestPull_UnknownBanner(t *testing.T) {
	if _, err := run(t, t.TempDir(), "pull", "b_missing"); err == nil {
		t.Error("expected error for unknown banner")
	}
}

func TestCatalog_ImportListRemove(t *testing.T) {
	home := t.TempDir()

	out, err := run(t, home, "catalog", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No custom catalog installed") {
		t.Errorf("expected empty notice:\n%s", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("cards:\n  - id: c_bad\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, home, "catalog", "import", "-f", bad); err == nil {
		t.Error("expected invalid catalog to be rejected")
	}
	if _, err := os.Stat(filepath.Join(home, "catalog.yaml")); !os.IsNotExist(err) {
		t.Error("rejected catalog must not be installed")
	}

	good := filepath.Join(t.TempDir(), "good.yaml")
	yaml := "cards:\n  - id: c_custom\n    name: Custom Agent\n    rarity: SR\n"
	if err := os.WriteFile(good, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, home, "catalog", "import", "-f", good); err != nil {
		t.Fatalf("import: %v", err)
	}
	out, err = run(t, home, "catalog", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "c_custom") {
		t.Errorf("imported card missing from list:\n%s", out)
	}

	if _, err := run(t, home, "catalog", "remove"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := run(t, home, "catalog", "remove"); err == nil {
		t.Error("second remove should fail")
	}
}

func TestParsePick(t *testing.T) {
	tests := []struct {
		line    string
		term    int
		def     int
		wantErr bool
	}{
		{"1 a", 0, 0, false},
		{"3 C", 2, 2, false},
		{"8 h", 7, 7, false},
		{"9 a", 0, 0, true},
		{"1 i", 0, 0, true},
		{"1", 0, 0, true},
		{"x a", 0, 0, true},
		{"1 ab", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			term, def, err := parsePick(tt.line, 8, 8)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePick(%q) err = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if err == nil && (term != tt.term || def != tt.def) {
				t.Errorf("parsePick(%q) = %d, %d; want %d, %d", tt.line, term, def, tt.term, tt.def)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	if got := preview("short", 10); got != "short" {
		t.Errorf("preview = %q", got)
	}
	if got := preview("a  long\nline of text", 8); got != "a long …" {
		t.Errorf("preview = %q", got)
	}
}
