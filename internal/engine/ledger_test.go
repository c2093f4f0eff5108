package engine

import (
	"sync"
	"sync/atomic"
	"testing"

	"glabgrab/internal/output"
)

func TestLedger_ReserveOnce(t *testing.T) {
	l := NewLedger()

	if !l.Reserve("group/app", "src/main.go") {
		t.Fatal("first Reserve should succeed")
	}
	if l.Reserve("group/app", "src/main.go") {
		t.Error("second Reserve for the same pair should fail")
	}
	if !l.Reserve("group/app", "src/other.go") {
		t.Error("different file path should reserve independently")
	}
	if !l.Reserve("group/lib", "src/main.go") {
		t.Error("different project path should reserve independently")
	}
	if l.Len() != 3 {
		t.Errorf("Len = %d, want 3", l.Len())
	}
}

func TestLedger_Release(t *testing.T) {
	l := NewLedger()
	l.Reserve("group/app", "a.go")
	l.Release("group/app", "a.go")

	if l.Contains("group/app", "a.go") {
		t.Error("released pair should no longer be contained")
	}
	if !l.Reserve("group/app", "a.go") {
		t.Error("released pair should be reservable again")
	}
}

func TestLedger_Seed(t *testing.T) {
	l := NewLedger()
	l.Seed([]output.MetadataRecord{
		{ProjectPath: "group/app", FilePath: "a.go"},
		{ProjectPath: "group/app", FilePath: "b.go"},
	})

	if l.Reserve("group/app", "a.go") {
		t.Error("seeded pair should not be reservable")
	}
	if !l.Contains("group/app", "b.go") {
		t.Error("seeded pair should be contained")
	}
	if l.Len() != 2 {
		t.Errorf("Len = %d, want 2", l.Len())
	}
}

func TestLedger_ConcurrentReserve(t *testing.T) {
	l := NewLedger()
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Reserve("group/app", "contested.go") {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("%d goroutines won the reservation, want exactly 1", wins)
	}
}
