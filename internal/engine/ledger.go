package engine

import (
	"sync"

	"glabgrab/internal/output"
)

// Ledger tracks which (project path, file path) pairs have already been
// materialized to the output directory, by a prior run or the current one.
// Reserve is the dedup point for the download workers: the first caller for a
// pair wins, everyone else skips without a network call.
type Ledger struct {
	mu      sync.Mutex
	entries map[ledgerKey]struct{}
}

type ledgerKey struct {
	projectPath string
	filePath    string
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[ledgerKey]struct{})}
}

// Seed preloads the ledger from a prior run's metadata records.
func (l *Ledger) Seed(records []output.MetadataRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range records {
		l.entries[ledgerKey{projectPath: r.ProjectPath, filePath: r.FilePath}] = struct{}{}
	}
}

// Reserve atomically claims a pair. It returns false when the pair is already
// present, meaning the caller must skip it.
func (l *Ledger) Reserve(projectPath, filePath string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := ledgerKey{projectPath: projectPath, filePath: filePath}
	if _, ok := l.entries[k]; ok {
		return false
	}
	l.entries[k] = struct{}{}
	return true
}

// Release drops a reservation after a terminal failure so a later run (or a
// duplicate hit) may try the pair again.
func (l *Ledger) Release(projectPath, filePath string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, ledgerKey{projectPath: projectPath, filePath: filePath})
}

// Contains reports whether a pair is recorded.
func (l *Ledger) Contains(projectPath, filePath string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[ledgerKey{projectPath: projectPath, filePath: filePath}]
	return ok
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
