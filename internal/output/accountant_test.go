package output

import (
	"fmt"
	"sync"
	"testing"
)

func TestAccountant_Record(t *testing.T) {
	a := NewAccountant()
	a.AddTotal(3)

	counts := a.Record(Outcome{
		Hit:           Hit{ProjectID: 1, FilePath: "a.go", Ref: "main"},
		ProjectPath:   "group/app",
		Status:        StatusSuccess,
		LocalFilename: "group__app__a.go",
	})
	if counts.Success != 1 || counts.Total != 3 {
		t.Errorf("counts = %+v", counts)
	}

	counts = a.Record(Outcome{Status: StatusSkipped, SkipReason: SkipReasonAlreadyDownloaded})
	if counts.Skipped != 1 {
		t.Errorf("counts = %+v", counts)
	}

	counts = a.Record(Outcome{Status: StatusFailed, ErrorKind: ErrKindNetwork})
	if counts.Failed != 1 {
		t.Errorf("counts = %+v", counts)
	}

	if got := counts.Completed(); got != 3 {
		t.Errorf("Completed = %d, want 3", got)
	}

	// Only successes produce metadata records.
	records := a.Records()
	if len(records) != 1 {
		t.Fatalf("records = %+v, want 1", records)
	}
	want := MetadataRecord{
		LocalFilename: "group__app__a.go",
		ProjectPath:   "group/app",
		FilePath:      "a.go",
		Ref:           "main",
	}
	if records[0] != want {
		t.Errorf("record = %+v, want %+v", records[0], want)
	}
}

func TestAccountant_ConcurrentRecording(t *testing.T) {
	a := NewAccountant()
	const n = 100
	a.AddTotal(n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a.Record(Outcome{
				Hit:           Hit{FilePath: fmt.Sprintf("f%d.go", i)},
				Status:        StatusSuccess,
				LocalFilename: fmt.Sprintf("f%d.go", i),
			})
		}(i)
	}
	wg.Wait()

	counts := a.Counts()
	if counts.Success != n {
		t.Errorf("success = %d, want %d", counts.Success, n)
	}
	if got := len(a.Records()); got != n {
		t.Errorf("records = %d, want %d", got, n)
	}
}

func TestAccountant_RecordsReturnsCopy(t *testing.T) {
	a := NewAccountant()
	a.Record(Outcome{Status: StatusSuccess, LocalFilename: "a"})

	records := a.Records()
	records[0].LocalFilename = "mutated"

	if a.Records()[0].LocalFilename != "a" {
		t.Error("Records must return a copy, not the backing slice")
	}
}
