package output

import "sync"

// Counts is a snapshot of the run's progress. Total grows while enumeration
// is still feeding the pipeline.
type Counts struct {
	Total   int
	Success int
	Skipped int
	Failed  int
}

func (c Counts) Completed() int {
	return c.Success + c.Skipped + c.Failed
}

// Accountant aggregates outcome counts and collects one MetadataRecord per
// successful download. It is the single mutation point shared by the download
// workers; all mutation happens under one mutex.
type Accountant struct {
	mu      sync.Mutex
	counts  Counts
	records []MetadataRecord
}

func NewAccountant() *Accountant {
	return &Accountant{}
}

// AddTotal registers n newly enumerated hits.
func (a *Accountant) AddTotal(n int) Counts {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts.Total += n
	return a.counts
}

// Record accounts one terminal outcome and returns the updated snapshot so
// the caller can refresh a progress display without re-locking.
func (a *Accountant) Record(o Outcome) Counts {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch o.Status {
	case StatusSuccess:
		a.counts.Success++
		a.records = append(a.records, MetadataRecord{
			LocalFilename: o.LocalFilename,
			ProjectPath:   o.ProjectPath,
			FilePath:      o.Hit.FilePath,
			Ref:           o.Hit.Ref,
		})
	case StatusSkipped:
		a.counts.Skipped++
	default:
		a.counts.Failed++
	}
	return a.counts
}

func (a *Accountant) Counts() Counts {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts
}

// Records returns the metadata collection in append order.
func (a *Accountant) Records() []MetadataRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]MetadataRecord, len(a.records))
	copy(out, a.records)
	return out
}
