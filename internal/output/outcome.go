package output

// Hit is one matched file reference returned by the search API. ProjectPath
// stays empty until the owning project has been resolved.
type Hit struct {
	ProjectID   int
	ProjectPath string
	FilePath    string
	Ref         string
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// ErrorKind is the stable failure taxonomy carried by Failed outcomes.
type ErrorKind string

const (
	ErrKindRateLimitExhausted ErrorKind = "RateLimitExhausted"
	ErrKindNetwork            ErrorKind = "NetworkError"
	ErrKindProjectResolution  ErrorKind = "ProjectResolutionError"
	ErrKindMalformedResponse  ErrorKind = "MalformedResponse"
	ErrKindLocalWrite         ErrorKind = "LocalWriteError"
)

const SkipReasonAlreadyDownloaded = "already_downloaded"

// Outcome is the terminal result for a single hit. Exactly one is produced
// per hit and it is immutable once recorded.
type Outcome struct {
	Hit         Hit
	ProjectPath string
	Status      Status

	// Success fields
	LocalFilename string
	Bytes         int64

	// Skipped fields
	SkipReason string

	// Failed fields
	ErrorKind ErrorKind
	Err       error

	// Attempts is how many network attempts the file fetch consumed.
	Attempts int
}
