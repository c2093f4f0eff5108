package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "glabgrab",
	Short: "Search GitLab code and download every matching file",
	Long: `glabgrab runs a blob-scoped code search against a GitLab instance and
downloads all matching files to a local directory, in parallel, with
rate-limit-aware retries and resumable output.

Examples:
	# Show available commands and global flags
	glabgrab --help

	# Search a whole instance and download matches
	glabgrab fetch 'GeneratedValue' --hostname gitlab.example.com

	# Scope to a group, with more workers
	glabgrab fetch 'class MyService' --hostname gitlab.example.com --group platform --workers 20

	# Print build info
	glabgrab version

Output:
	Files, metadata.json and download.log land in one output directory per
	query; re-running the same query resumes instead of re-downloading.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, "verbose", false, "Enable verbose logging (prints every GitLab API call and full error details)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
