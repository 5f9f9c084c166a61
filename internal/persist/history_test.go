package persist

import (
	"path/filepath"
	"testing"
)

func TestHistoryRecordAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	hist, err := OpenHistory(filepath.Join(dir, "history.sqlite"))
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer hist.Close()

	flat := []float32{1, 42, 1, 2, 3, 4, 0, 10, 100, 100, 1, 0.1, 1, 0}
	if err := hist.Record(5, 0.166, flat); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := hist.Load(5)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(flat) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(flat))
	}
	for i := range flat {
		if got[i] != flat[i] {
			t.Fatalf("field %d = %v, want %v", i, got[i], flat[i])
		}
	}
}

func TestHistoryNilIsNoOp(t *testing.T) {
	var hist *History
	if err := hist.Record(1, 0, []float32{0}); err != nil {
		t.Fatalf("Record on nil History: %v", err)
	}
	if err := hist.Close(); err != nil {
		t.Fatalf("Close on nil History: %v", err)
	}
}
