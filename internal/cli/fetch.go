package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"glabgrab/internal/config"
	"glabgrab/internal/engine"
	"glabgrab/internal/flags"
	gl "glabgrab/internal/gitlab"
	"glabgrab/internal/output"

	"github.com/spf13/cobra"
)

var cfg = config.New()

const fetchHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
	glabgrab authenticates to GitLab using an access token.

	Sources (in order):
	1) GITLAB_TOKEN environment variable
	2) glab CLI configuration (~/.config/glab-cli/config.yml) for the chosen host

	The --hostname value must be a host already configured for the glab CLI,
	which guarantees credentials exist for it. Configure a new host with:
	  glab auth login --hostname gitlab.example.com

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}Use "{{.CommandPath}} [command] --help" for more information about a command.
`

var fetchCmd = &cobra.Command{
	Use:   "fetch <query>",
	Short: "Search code and download all matching files",
	Args:  cobra.ExactArgs(1),
	Long: `Search a GitLab instance for code (blob scope) and download every matching
file into one output directory.

Pipeline:
	Search results stream in page by page while downloads are already running.
	Project metadata is pre-fetched once per project, downloads run on a
	bounded worker pool, rate-limited requests back off exponentially, and
	files already present from a prior run are skipped.

Output:
	<out-dir>/<sanitized filenames>  downloaded file contents
	<out-dir>/metadata.json          origin of every downloaded file
	<out-dir>/download.log           structured log of every attempt

Exit codes:
	0 = clean run
	1 = completed, but some downloads failed (see download.log)
	3 = fatal error (auth, validation, or broken search pagination)

Examples:
  glabgrab fetch 'GeneratedValue' --hostname gitlab.example.com
  glabgrab fetch 'class MyService' --hostname gitlab.example.com --workers 20
  glabgrab fetch 'AuthFilter' --hostname gitlab.example.com --group platform/backend
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg.Search.Query = args[0]

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		if err := requireConfiguredHostname(cfg.Search.Hostname); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		cred, source, err := gl.ResolveCredential(cfg.Search.Hostname)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to resolve GitLab token: %v\n", err)
			os.Exit(3)
		}

		client, err := gl.NewClient(cfg.Search.Hostname, cred, gl.WithVerbose(cfg.Runtime.Verbose, nil))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create GitLab client: %v\n", err)
			os.Exit(3)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, cfg.Runtime.Timeout)
		defer cancelTimeout()

		console := output.NewConsole(os.Stderr, cfg.Output.Quiet)
		console.Printf("Authenticated via %s\n", source)

		eng := engine.NewEngine(client, console)
		os.Exit(eng.Run(ctx, cfg))
	},
}

// requireConfiguredHostname rejects hosts the glab CLI does not know about.
// This catches typos before any network call and guarantees a token source
// exists, mirroring how glab itself scopes authentication per host.
func requireConfiguredHostname(hostname string) error {
	// An explicit token override works for any host.
	if os.Getenv("GITLAB_TOKEN") != "" {
		return nil
	}
	hosts := gl.ConfiguredHostnames()
	if len(hosts) == 0 {
		return fmt.Errorf("no glab CLI configuration found; set GITLAB_TOKEN or run 'glab auth login --hostname %s'", hostname)
	}
	if !slices.Contains(hosts, hostname) {
		return fmt.Errorf("hostname %q is not configured in glab (available: %v)", hostname, hosts)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.SetHelpTemplate(fetchHelpTemplate)

	// Search
	fetchCmd.Flags().StringVar(&cfg.Search.Hostname, flags.FlagHostname, "", "GitLab hostname to search (must be configured in glab)")
	fetchCmd.Flags().StringVar(&cfg.Search.Group, flags.FlagGroup, "", "Scope the search to a group path (e.g. platform/backend)")

	// Output
	fetchCmd.Flags().StringVar(&cfg.Output.Dir, flags.FlagOutDir, "", "Output directory (default: query-derived directory under the system temp dir)")
	fetchCmd.Flags().BoolVar(&cfg.Output.Quiet, flags.FlagQuiet, false, "Suppress progress and summary output")

	// Runtime
	fetchCmd.Flags().IntVar(&cfg.Runtime.Workers, flags.FlagWorkers, cfg.Runtime.Workers, fmt.Sprintf("Parallel download workers (%d-%d)", config.MinWorkers, config.MaxWorkers))
	fetchCmd.Flags().IntVar(&cfg.Runtime.MaxRetries, flags.FlagMaxRetries, cfg.Runtime.MaxRetries, "Max retries for rate-limited or transient requests")
	fetchCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout for the whole run")

	_ = fetchCmd.MarkFlagRequired(flags.FlagHostname)
}
