package batch

import (
	"errors"
	"testing"
)

func TestNewOK(t *testing.T) {
	r := NewOK("v-1")
	if r.ID() != "v-1" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Status() != StatusOK {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusOK)
	}
	if r.Err() != nil || r.Message() != "" {
		t.Errorf("Err() = %v, Message() = %q", r.Err(), r.Message())
	}
}

func TestNewError(t *testing.T) {
	err := errors.New("location is required")
	r := NewError("v-2", err)
	if r.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusError)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
	if r.Message() != "v-2: location is required" {
		t.Errorf("Message() = %q", r.Message())
	}
}
