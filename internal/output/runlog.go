package output

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const RunLogFilename = "download.log"

// RunLog is the structured append-only log of everything the run attempted.
// One JSON line per event, timestamped by zerolog, safe for concurrent
// writers. Failures are never silently dropped: every terminal outcome lands
// here with its error detail.
type RunLog struct {
	file   *os.File
	Logger zerolog.Logger
}

// OpenRunLog opens (or extends) the run log in dir.
func OpenRunLog(dir string) (*RunLog, error) {
	f, err := os.OpenFile(filepath.Join(dir, RunLogFilename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	logger := zerolog.New(f).With().Timestamp().Logger()
	return &RunLog{file: f, Logger: logger}, nil
}

func (l *RunLog) Close() error {
	return l.file.Close()
}

// Outcome writes one event for a terminal download outcome.
func (l *RunLog) Outcome(o Outcome) {
	ev := l.Logger.Info()
	if o.Status == StatusFailed {
		ev = l.Logger.Error()
	}
	ev = ev.
		Str("event", "download."+string(o.Status)).
		Int("project_id", o.Hit.ProjectID).
		Str("project_path", o.ProjectPath).
		Str("file_path", o.Hit.FilePath).
		Str("ref", o.Hit.Ref)

	switch o.Status {
	case StatusSuccess:
		ev = ev.Str("local_filename", o.LocalFilename).
			Int64("bytes", o.Bytes).
			Int("attempts", o.Attempts)
	case StatusSkipped:
		ev = ev.Str("reason", o.SkipReason)
	case StatusFailed:
		ev = ev.Str("error_kind", string(o.ErrorKind)).
			Int("attempts", o.Attempts)
		if o.Err != nil {
			ev = ev.Str("error", o.Err.Error())
		}
	}
	ev.Send()
}
