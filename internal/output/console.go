package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

const progressBarWidth = 40

// Console renders the live progress line and the final summary. Quiet mode
// turns every method into a no-op so machine consumers see nothing but the
// artifacts on disk.
type Console struct {
	mu     sync.Mutex
	writer io.Writer
	quiet  bool
}

func NewConsole(w io.Writer, quiet bool) *Console {
	if w == nil {
		w = os.Stderr
	}
	return &Console{writer: w, quiet: quiet}
}

func (c *Console) Printf(format string, args ...any) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.writer, format, args...)
}

// Header announces the run parameters before any network work starts.
func (c *Console) Header(query, hostname, group, outDir string, workers int) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.writer, color.BlueString("GitLab code search & download"))
	fmt.Fprintf(c.writer, "Host: %s\n", color.YellowString(hostname))
	fmt.Fprintf(c.writer, "Query: %s\n", color.YellowString(query))
	if group != "" {
		fmt.Fprintf(c.writer, "Group: %s\n", color.YellowString(group))
	}
	fmt.Fprintf(c.writer, "Output directory: %s\n", color.YellowString(outDir))
	fmt.Fprintf(c.writer, "Workers: %s\n", color.YellowString("%d", workers))
}

// Progress redraws the single-line progress bar in place. Total may still be
// growing while enumeration runs, so the bar can shrink in percentage terms
// between updates.
func (c *Console) Progress(counts Counts) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	completed := counts.Completed()
	percent := 0.0
	filled := 0
	if counts.Total > 0 {
		percent = float64(completed) / float64(counts.Total) * 100
		filled = progressBarWidth * completed / counts.Total
		if filled > progressBarWidth {
			filled = progressBarWidth
		}
	}
	bar := strings.Repeat("=", filled) + strings.Repeat("-", progressBarWidth-filled)

	fmt.Fprintf(c.writer, "\r[%s] %d/%d (%.1f%%) | %s %s %s",
		bar, completed, counts.Total, percent,
		color.GreenString("ok:%d", counts.Success),
		color.BlueString("skip:%d", counts.Skipped),
		color.RedString("fail:%d", counts.Failed),
	)
}

// Summary prints the final report after the pipeline drains.
func (c *Console) Summary(counts Counts, outDir string, elapsed time.Duration, fatalErr error) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.writer)
	if fatalErr != nil {
		fmt.Fprintln(c.writer, color.RedString("Run aborted: %v", fatalErr))
		fmt.Fprintln(c.writer, color.RedString("Partial results below were kept and can be resumed."))
	} else {
		fmt.Fprintln(c.writer, color.GreenString("Download complete"))
	}
	fmt.Fprintf(c.writer, "Downloaded: %s\n", color.GreenString("%d", counts.Success))
	fmt.Fprintf(c.writer, "Skipped (already present): %s\n", color.BlueString("%d", counts.Skipped))
	fmt.Fprintf(c.writer, "Failed: %s\n", color.RedString("%d", counts.Failed))
	fmt.Fprintf(c.writer, "Elapsed: %s\n", elapsed.Truncate(time.Second))
	fmt.Fprintf(c.writer, "Output directory: %s\n", color.YellowString(outDir))
	fmt.Fprintf(c.writer, "Metadata: %s\n", color.YellowString(outDir+"/"+MetadataFilename))
	fmt.Fprintf(c.writer, "Log: %s\n", color.YellowString(outDir+"/"+RunLogFilename))
}
