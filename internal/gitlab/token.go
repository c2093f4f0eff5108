package gitlab

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type CredentialSource string

const (
	CredentialSourceEnv        CredentialSource = "env:GITLAB_TOKEN"
	CredentialSourceGlabConfig CredentialSource = "glab-config"
)

// Credential is an access token plus how it should be presented to the API.
type Credential struct {
	Token string
	// OAuth is true for tokens issued via the OAuth flow (glab auth login
	// through the browser); those go into an Authorization bearer header
	// instead of PRIVATE-TOKEN.
	OAuth bool
}

// glabConfig mirrors the subset of ~/.config/glab-cli/config.yml we read.
type glabConfig struct {
	Hosts map[string]glabHost `yaml:"hosts"`
}

type glabHost struct {
	Token    string `yaml:"token"`
	IsOAuth2 string `yaml:"is_oauth2"`
}

// ResolveCredential resolves an access token for the given host.
//
// Precedence:
//  1. GITLAB_TOKEN environment variable
//  2. glab CLI config entry for the host
//
// It never prints the token.
func ResolveCredential(hostname string) (Credential, CredentialSource, error) {
	if env := strings.TrimSpace(os.Getenv("GITLAB_TOKEN")); env != "" {
		return Credential{Token: env}, CredentialSourceEnv, nil
	}

	cfg, err := loadGlabConfig()
	if err != nil {
		return Credential{}, "", err
	}
	host, ok := cfg.Hosts[hostname]
	if !ok || strings.TrimSpace(host.Token) == "" {
		return Credential{}, "", fmt.Errorf("no token for host %q (set GITLAB_TOKEN or run 'glab auth login --hostname %s')", hostname, hostname)
	}
	return Credential{
		Token: strings.TrimSpace(host.Token),
		OAuth: strings.EqualFold(strings.TrimSpace(host.IsOAuth2), "true"),
	}, CredentialSourceGlabConfig, nil
}

// ConfiguredHostnames lists the GitLab hosts known to the glab CLI, sorted.
// A missing or unreadable config yields an empty list, not an error; callers
// use the list for validation and help text only.
func ConfiguredHostnames() []string {
	cfg, err := loadGlabConfig()
	if err != nil {
		return nil
	}
	hosts := make([]string, 0, len(cfg.Hosts))
	for h := range cfg.Hosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

func loadGlabConfig() (*glabConfig, error) {
	path := glabConfigPath()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glab config %s: %w", path, err)
	}
	var cfg glabConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse glab config %s: %w", path, err)
	}
	if cfg.Hosts == nil {
		cfg.Hosts = map[string]glabHost{}
	}
	return &cfg, nil
}

func glabConfigPath() string {
	// GLAB_CONFIG_DIR matches the glab CLI's own override and doubles as the
	// test seam.
	if dir := os.Getenv("GLAB_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "config.yml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "glab-cli", "config.yml")
	}
	return filepath.Join(home, ".config", "glab-cli", "config.yml")
}
