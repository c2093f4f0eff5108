package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func seedGlabConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	config := `hosts:
  gitlab.example.com:
    token: glpat-sekret
    is_oauth2: false
`
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(config), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GLAB_CONFIG_DIR", dir)
}

func TestRequireConfiguredHostname(t *testing.T) {
	seedGlabConfig(t)
	t.Setenv("GITLAB_TOKEN", "")

	if err := requireConfiguredHostname("gitlab.example.com"); err != nil {
		t.Errorf("configured host rejected: %v", err)
	}

	err := requireConfiguredHostname("gitlab.typo.com")
	if err == nil {
		t.Fatal("unconfigured host should be rejected")
	}
	if !strings.Contains(err.Error(), "gitlab.example.com") {
		t.Errorf("error %q should list the configured hosts", err)
	}
}

func TestRequireConfiguredHostname_EnvTokenBypasses(t *testing.T) {
	seedGlabConfig(t)
	t.Setenv("GITLAB_TOKEN", "env-token")

	if err := requireConfiguredHostname("gitlab.anywhere.com"); err != nil {
		t.Errorf("GITLAB_TOKEN should allow any host, got: %v", err)
	}
}

func TestRequireConfiguredHostname_NoConfig(t *testing.T) {
	t.Setenv("GLAB_CONFIG_DIR", t.TempDir())
	t.Setenv("GITLAB_TOKEN", "")

	err := requireConfiguredHostname("gitlab.example.com")
	if err == nil {
		t.Fatal("expected error without any config")
	}
	if !strings.Contains(err.Error(), "GITLAB_TOKEN") {
		t.Errorf("error %q should point at GITLAB_TOKEN", err)
	}
}

func TestFetchCommandRegistered(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"fetch"})
	if err != nil {
		t.Fatalf("Find(fetch): %v", err)
	}
	if cmd.Name() != "fetch" {
		t.Errorf("command = %q, want fetch", cmd.Name())
	}
	for _, flag := range []string{"hostname", "group", "out-dir", "quiet", "workers", "max-retries", "timeout"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("fetch command missing --%s flag", flag)
		}
	}
}
