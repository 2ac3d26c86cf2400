package batch

import (
	"errors"
	"testing"
)

func TestNewOK(t *testing.T) {
	r := NewOK(2, "p-1", "Gold Ring")
	if r.Index() != 2 || r.ID() != "p-1" || r.Name() != "Gold Ring" {
		t.Errorf("result = %+v", r)
	}
	if r.Status() != StatusOK {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusOK)
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestNewError(t *testing.T) {
	err := errors.New("name is required")
	r := NewError(0, "", "", err)
	if r.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusError)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
}

func TestCounts(t *testing.T) {
	results := []Result{
		NewOK(0, "a", "A"),
		NewError(1, "", "B", errors.New("bad price")),
		NewOK(2, "c", "C"),
	}
	ok, failed := Counts(results)
	if ok != 2 || failed != 1 {
		t.Errorf("Counts = %d ok, %d failed", ok, failed)
	}
}
