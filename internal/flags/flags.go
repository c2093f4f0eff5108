package flags

// Package flags defines canonical CLI flag names shared across the CLI and engine.
// Keeping these as constants helps avoid drift between Cobra flag wiring and other
// code paths that need to reference flags (e.g. error messages).
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Search.Hostname, flags.FlagHostname, "", "...")
//	arg := "--" + flags.FlagHostname
const (
	// Search
	FlagHostname = "hostname"
	FlagGroup    = "group"

	// Output
	FlagOutDir = "out-dir"
	FlagQuiet  = "quiet"

	// Runtime
	FlagWorkers    = "workers"
	FlagMaxRetries = "max-retries"
	FlagTimeout    = "timeout"
)
